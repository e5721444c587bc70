package cli

import (
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"gorm.io/gorm/logger"

	"github.com/mrlokans/querylog/internal/config"
	"github.com/mrlokans/querylog/internal/database"
	"github.com/mrlokans/querylog/internal/database/runs"
)

// RunsCommand lists the runs recorded in the ledger, newest first.
type RunsCommand struct {
	DatabasePath string
	Limit        int

	out io.Writer
}

func NewRunsCommand(cfg *config.Config) *RunsCommand {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	return &RunsCommand{DatabasePath: cfg.Database.Path, out: os.Stdout}
}

// ParseFlags parses command line flags
func (cmd *RunsCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	fs.StringVar(&cmd.DatabasePath, "db", cmd.DatabasePath, "Path to the ledger database")
	fs.IntVar(&cmd.Limit, "limit", 20, "Number of runs to show")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s runs [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "List recorded ingest runs.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if cmd.Limit <= 0 {
		return fmt.Errorf("-limit must be positive")
	}
	return nil
}

// Run executes the runs command
func (cmd *RunsCommand) Run() error {
	if _, err := os.Stat(cmd.DatabasePath); err != nil {
		return fmt.Errorf("ledger database %s: %w", cmd.DatabasePath, err)
	}

	db, err := database.NewDatabase(cmd.DatabasePath, database.WithLogLevel(logger.Warn))
	if err != nil {
		return fmt.Errorf("failed to open ledger database: %w", err)
	}
	defer db.Close()

	list, total, err := runs.NewRepository(db.DB).List(cmd.Limit, 0)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if len(list) == 0 {
		fmt.Fprintln(cmd.out, "No runs recorded")
		return nil
	}

	tw := tabwriter.NewWriter(cmd.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tTRIGGER\tSTATUS\tLINES\tROUTED\tDROPPED\tCATEGORIES\tSOURCE")
	for _, run := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
			run.ID,
			run.StartedAt.Local().Format(time.DateTime),
			run.Trigger,
			run.Status,
			run.Lines,
			run.Routed,
			run.Invalid+run.Upstream+run.Filtered,
			len(run.Categories),
			run.Source,
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.out, "\nShowing %d of %d run(s)\n", len(list), total)
	return nil
}
