package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"gorm.io/gorm/logger"

	"github.com/mrlokans/querylog/internal/config"
	"github.com/mrlokans/querylog/internal/database"
	"github.com/mrlokans/querylog/internal/database/runs"
	"github.com/mrlokans/querylog/internal/flatten"
	"github.com/mrlokans/querylog/internal/ingest"
	"github.com/mrlokans/querylog/internal/router"
)

var errOutputAndPrefix = errors.New("-output and -prefix are mutually exclusive")

// ingestFlags are shared by the file, folder and stdin commands. Defaults
// come from the environment configuration; flags override them.
type ingestFlags struct {
	cfg *config.Config

	Output        string
	Prefix        string
	Categories    string
	Delimiter     string
	CategoryField string
	OmitCategory  bool
	Workers       int
	BatchSize     int
	DatabasePath  string
	Verbose       bool
}

func newIngestFlags(cfg *config.Config) ingestFlags {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	return ingestFlags{cfg: cfg}
}

func (f *ingestFlags) register(fs *flag.FlagSet, withPrefix bool) {
	fs.StringVar(&f.Output, "output", "", "Output directory for the per-category CSV files")
	if withPrefix {
		fs.StringVar(&f.Prefix, "prefix", "", "Write \"<prefix>_<category>.csv\" files instead of a directory")
	}
	fs.StringVar(&f.Categories, "categories", f.cfg.Ingest.CategoryFilter, "Comma-separated categories to keep (default: all)")
	fs.StringVar(&f.Delimiter, "delimiter", f.cfg.Ingest.Delimiter, "Column delimiter")
	fs.StringVar(&f.CategoryField, "category-field", f.cfg.Ingest.CategoryField, "Field holding the record category")
	fs.BoolVar(&f.OmitCategory, "omit-category", f.cfg.Ingest.OmitCategoryColumn, "Leave the category field out of the CSV columns")
	fs.IntVar(&f.Workers, "workers", f.cfg.Ingest.Workers, "Number of parallel workers")
	fs.IntVar(&f.BatchSize, "batch", f.cfg.Ingest.BatchSize, "Lines per batch")
	fs.StringVar(&f.DatabasePath, "db", "", "Record the run in this ledger database (default: no ledger)")
	fs.BoolVar(&f.Verbose, "verbose", false, "Enable verbose logging")
	fs.BoolVar(&f.Verbose, "d", false, "Shorthand for -verbose")
}

func (f *ingestFlags) settings() ingest.Settings {
	return ingest.Settings{
		Delimiter:          f.Delimiter,
		CategoryField:      f.CategoryField,
		OmitCategoryColumn: f.OmitCategory,
		Categories:         f.Categories,
		AlwaysInclude:      f.cfg.Ingest.AlwaysInclude,
		BatchSize:          f.BatchSize,
		Workers:            f.Workers,
	}
}

// target resolves where output goes. Explicit flags win over the
// configured prefix, which wins over defaultDir.
func (f *ingestFlags) target(defaultDir string) (router.Addressing, error) {
	switch {
	case f.Output != "" && f.Prefix != "":
		return router.Addressing{}, errOutputAndPrefix
	case f.Prefix != "":
		return router.PrefixTarget(f.Prefix), nil
	case f.Output != "":
		return router.DirectoryTarget(f.Output), nil
	case f.cfg.Output.Prefix != "":
		return router.PrefixTarget(f.cfg.Output.Prefix), nil
	default:
		return router.DirectoryTarget(defaultDir), nil
	}
}

// service builds the ingest service, opening the ledger when -db is set.
// The returned close function is never nil.
func (f *ingestFlags) service() (*ingest.Service, func(), error) {
	if f.Verbose {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	if f.DatabasePath == "" {
		return ingest.NewService(f.settings()), func() {}, nil
	}

	level := logger.Warn
	if f.Verbose {
		level = logger.Info
	}
	db, err := database.NewDatabase(f.DatabasePath, database.WithLogLevel(level))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open ledger database: %w", err)
	}
	closeDB := func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}
	svc := ingest.NewService(f.settings(), ingest.WithServiceRecorder(runs.NewRepository(db.DB)))
	return svc, closeDB, nil
}

// signalContext is cancelled on SIGINT or SIGTERM; the pipeline stops at
// the next batch boundary.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func printOutcome(w io.Writer, outcome ingest.Outcome) {
	run := outcome.Run
	res := outcome.Result

	elapsed := time.Duration(0)
	if run.FinishedAt != nil {
		elapsed = run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond)
	}

	fmt.Fprintf(w, "Run %s %s in %v\n", run.ID, run.Status, elapsed)
	fmt.Fprintf(w, "  source:  %s\n", run.Source)
	fmt.Fprintf(w, "  output:  %s\n", run.OutputPath)
	fmt.Fprintf(w, "  lines:   %d\n", res.Lines)
	fmt.Fprintf(w, "  routed:  %d\n", res.Routed)
	fmt.Fprintf(w, "  dropped: %d", res.DroppedTotal())
	if res.DroppedTotal() > 0 {
		for _, reason := range flatten.Reasons {
			if n := res.Dropped[reason]; n > 0 {
				fmt.Fprintf(w, " %s=%d", reason, n)
			}
		}
	}
	fmt.Fprintln(w)

	if len(run.Categories) == 0 {
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  CATEGORY\tLINES\tPATH")
	for _, c := range run.Categories {
		fmt.Fprintf(tw, "  %s\t%d\t%s\n", c.Category, c.Lines, c.Path)
	}
	tw.Flush()
}
