package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/kingrea/lecture-archive/internal/mermaid"
)

type FixMermaidCmd struct{}

func (c *FixMermaidCmd) Run(g *Globals) error {
	e, err := g.open()
	if err != nil {
		return err
	}
	defer e.close()

	ctx, cancel := signalContext()
	defer cancel()
	summary, err := mermaid.FixAll(ctx, e.cfg.DataDir(), e.cfg.Catalog(), e.log)
	if err != nil {
		return err
	}
	for _, r := range summary.Fixed {
		fmt.Println(styles.ok.Render("fixed   ") + relTo(e.cfg.DataDir(), r.Path))
	}
	for _, r := range summary.Failed {
		fmt.Println(styles.err.Render("failed  ") + relTo(e.cfg.DataDir(), r.Path) + ": " + r.Reason)
	}
	fmt.Println(panel("Mermaid fix", []row{
		{"Files checked", summary.Checked},
		{"Files fixed", len(summary.Fixed)},
		{"No changes", summary.Checked - len(summary.Fixed) - len(summary.Failed)},
		{"Failed", len(summary.Failed)},
	}))
	if len(summary.Fixed) > 0 {
		_ = e.journal.Info("fix-mermaid: fixed=%d checked=%d", len(summary.Fixed), summary.Checked)
		fmt.Println(styles.muted.Render("Run `archive build` to regenerate the pages."))
	}
	return nil
}

func relTo(base, path string) string {
	if rel, err := filepath.Rel(base, path); err == nil {
		return rel
	}
	return path
}

type DebugMermaidCmd struct {
	File string `arg:"" type:"existingfile" help:"Lecture JSON file to inspect."`
}

const previewLen = 200

func (c *DebugMermaidCmd) Run() error {
	report, ok, err := mermaid.DiagnoseFile(c.File)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println(styles.warn.Render("No mermaid_chart field found"))
		return nil
	}
	fmt.Println(panel("Mermaid chart", []row{
		{"File", c.File},
		{"Length", fmt.Sprintf("%d characters", report.Length)},
		{"Lines", report.Lines},
	}))
	preview := report.Cleaned
	if len(preview) > previewLen {
		preview = preview[:previewLen]
	}
	fmt.Println(styles.title.Render("First characters"))
	fmt.Println(preview)
	fmt.Println(styles.title.Render("Diagnostics"))
	if report.OK() {
		fmt.Println(styles.ok.Render("No obvious syntax issues detected"))
	}
	for _, issue := range report.Issues {
		fmt.Println(styles.warn.Render("! ") + issue)
	}
	fmt.Println(styles.title.Render("Cleaned version"))
	fmt.Println("---START---")
	fmt.Println(report.Cleaned)
	fmt.Println("---END---")
	return nil
}

type CheckCmd struct {
	Dir      string `arg:"" type:"existingdir" help:"Directory of lecture JSON files."`
	Details  bool   `help:"Print every problem, not only the per-file verdict."`
	Reformat bool   `help:"Rewrite valid files with two-space indentation, keeping a .backup copy."`
}

func (c *CheckCmd) Run() error {
	checks, err := mermaid.Check(context.Background(), c.Dir, mermaid.CheckOptions{Reformat: c.Reformat})
	if err != nil {
		return err
	}
	var invalid, charts, incomplete, reformatted int
	for _, check := range checks {
		name := relTo(c.Dir, check.Path)
		switch {
		case !check.Valid():
			invalid++
			fmt.Println(styles.err.Render("invalid ") + name + ": " + check.SyntaxErr.Error())
			continue
		case len(check.Problems) > 0 || (check.HasChart && !check.Chart.OK()):
			incomplete++
			fmt.Println(styles.warn.Render("warn    ") + name)
		default:
			fmt.Println(styles.ok.Render("ok      ") + name)
		}
		if check.HasChart {
			charts++
		}
		if check.Reformatted {
			reformatted++
		}
		if !c.Details {
			continue
		}
		for _, problem := range check.Problems {
			fmt.Println(styles.muted.Render("        - ") + problem.Error())
		}
		if !check.HasChart {
			fmt.Println(styles.muted.Render("        - no mermaid chart"))
		}
		for _, issue := range check.Chart.Issues {
			fmt.Println(styles.muted.Render("        - chart: ") + issue)
		}
	}
	rows := []row{
		{"Files", len(checks)},
		{"Invalid JSON", invalid},
		{"With warnings", incomplete},
		{"With charts", charts},
	}
	if c.Reformat {
		rows = append(rows, row{"Reformatted", reformatted})
	}
	fmt.Println(panel("Check", rows))
	if invalid > 0 {
		return fmt.Errorf("check: %d file(s) are not valid JSON", invalid)
	}
	return nil
}
