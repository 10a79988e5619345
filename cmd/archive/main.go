// cmd/archive/main.go
//
// Entry point for the archive CLI. Each subcommand is a kong command struct
// with a Run method; shared flags live on Globals and are bound into every
// Run call.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/alecthomas/kong"

	"github.com/kingrea/lecture-archive/internal/config"
	"github.com/kingrea/lecture-archive/internal/journal"
	"github.com/kingrea/lecture-archive/internal/logging"
)

// Globals are flags accepted by every command.
type Globals struct {
	Project  string `short:"C" type:"path" default:"." help:"Project directory holding archive.yaml."`
	LogLevel string `name:"log-level" help:"Override the configured log level (debug, info, warn, error)."`
}

// CLI is the full command tree.
type CLI struct {
	Globals

	Init         InitCmd         `cmd:"" help:"Create archive.yaml and the .archive state directory."`
	Build        BuildCmd        `cmd:"" default:"1" help:"Generate section listings and lecture pages from data/."`
	Verify       VerifyCmd       `cmd:"" help:"Check every generated page for its archive meta tags."`
	Rename       RenameCmd       `cmd:"" help:"Rename lecture JSON files to <date>-<identifier>.json."`
	FixMermaid   FixMermaidCmd   `cmd:"" name:"fix-mermaid" help:"Repair colon labels inside round mermaid nodes."`
	DebugMermaid DebugMermaidCmd `cmd:"" name:"debug-mermaid" help:"Print diagnostics for one lecture's mermaid chart."`
	Check        CheckCmd        `cmd:"" help:"Validate lecture JSON syntax, charts and expected fields."`
	History      HistoryCmd      `cmd:"" help:"Show recent entries from the build journal."`
}

func main() {
	cli := CLI{}
	kongCtx := kong.Parse(
		&cli,
		kong.Name("archive"),
		kong.Description("Static site generator for the lecture archive."),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Bind(&cli.Globals),
	)

	if err := kongCtx.Run(); err != nil {
		fmt.Fprintln(os.Stderr, styles.err.Render("Error: ")+err.Error())
		os.Exit(1)
	}
}

// env is everything a command needs once the project config is loaded.
type env struct {
	cfg     *config.Config
	log     *logging.Logger
	journal *journal.Journal
}

func (g *Globals) open() (*env, error) {
	cfg, err := config.Load(g.Project)
	if err != nil {
		return nil, err
	}
	opts := cfg.LogOptions()
	if g.LogLevel != "" {
		opts.Level = g.LogLevel
	}
	log, err := logging.New(opts)
	if err != nil {
		return nil, err
	}
	j, err := journal.Open(cfg.JournalPath())
	if err != nil {
		log.Warn("build journal unavailable", "error", err)
		j = nil
	}
	return &env{cfg: cfg, log: log, journal: j}, nil
}

func (e *env) close() {
	e.log.Sync()
}

// signalContext is cancelled on interrupt so long runs stop between files.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

type InitCmd struct{}

func (c *InitCmd) Run(g *Globals) error {
	if err := config.Init(g.Project); err != nil {
		return err
	}
	fmt.Println(styles.ok.Render("Initialized ") + g.Project)
	return nil
}

type HistoryCmd struct {
	N int `short:"n" default:"20" help:"Number of entries to show."`
}

func (c *HistoryCmd) Run(g *Globals) error {
	e, err := g.open()
	if err != nil {
		return err
	}
	defer e.close()
	lines, total, err := e.journal.Tail(c.N)
	if err != nil {
		return err
	}
	if total == 0 {
		fmt.Println(styles.muted.Render("No builds recorded yet."))
		return nil
	}
	fmt.Println(styles.title.Render(fmt.Sprintf("Last %d of %d entries", len(lines), total)))
	for _, line := range lines {
		fmt.Println(line)
	}
	return nil
}
