package main

import (
	"fmt"

	"github.com/kingrea/lecture-archive/internal/rename"
	"github.com/kingrea/lecture-archive/internal/tui"
)

type RenameCmd struct {
	DryRun      bool `name:"dry-run" xor:"mode" help:"Show what would be renamed without touching files."`
	Preview     bool `xor:"mode" help:"List every file with its proposed name and status."`
	Interactive bool `short:"i" xor:"mode" help:"Pick which renames to apply from a checklist."`
}

func (c *RenameCmd) Run(g *Globals) error {
	e, err := g.open()
	if err != nil {
		return err
	}
	defer e.close()

	ctx, cancel := signalContext()
	defer cancel()
	planner := rename.NewPlanner(e.cfg.DataDir(), e.cfg.Catalog(), e.log)
	proposals, err := planner.Plan(ctx)
	if err != nil {
		return err
	}

	if c.Preview {
		printPreview(proposals)
		return nil
	}

	selected := proposals
	if c.Interactive {
		pending := rename.Pending(proposals)
		if len(pending) == 0 {
			fmt.Println(styles.ok.Render("All files already follow the naming convention."))
			return nil
		}
		selected, err = tui.RunReview(pending)
		if err != nil {
			return err
		}
		if len(selected) == 0 {
			fmt.Println(styles.muted.Render("Nothing selected; no files renamed."))
			return nil
		}
	}

	result, applied := rename.Apply(planner.DataDir(), selected, c.DryRun, e.log)
	for _, p := range applied {
		switch p.Status {
		case rename.StatusRename:
			fmt.Println(styles.ok.Render("rename  ") + p.String())
		case rename.StatusTargetExists:
			fmt.Println(styles.warn.Render("exists  ") + p.String())
		case rename.StatusError:
			fmt.Println(styles.err.Render("error   ") + p.String())
		}
	}
	title := "Rename complete"
	if c.DryRun {
		title = "Rename dry run"
	}
	fmt.Println(panel(title, []row{
		{"Renamed", result.Renamed},
		{"Skipped", result.Skipped},
		{"Errors", result.Errors},
	}))
	if !c.DryRun && result.Renamed > 0 {
		_ = e.journal.Info("rename: renamed=%d skipped=%d errors=%d", result.Renamed, result.Skipped, result.Errors)
	}
	return nil
}

func printPreview(proposals []rename.Proposal) {
	counts := map[rename.Status]int{}
	for _, p := range proposals {
		counts[p.Status]++
		var tag string
		switch p.Status {
		case rename.StatusCorrect:
			tag = styles.muted.Render("ok      ")
		case rename.StatusRename:
			tag = styles.ok.Render("rename  ")
		case rename.StatusTargetExists:
			tag = styles.warn.Render("exists  ")
		default:
			tag = styles.err.Render("error   ")
		}
		fmt.Println(tag + p.String())
	}
	fmt.Println(panel("Rename preview", []row{
		{"Files", len(proposals)},
		{"Already correct", counts[rename.StatusCorrect]},
		{"To rename", counts[rename.StatusRename]},
		{"Target exists", counts[rename.StatusTargetExists]},
		{"Errors", counts[rename.StatusError]},
	}))
}
