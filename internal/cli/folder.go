package cli

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/mrlokans/querylog/internal/config"
	"github.com/mrlokans/querylog/internal/entities"
	"github.com/mrlokans/querylog/internal/ingest"
)

// FolderCommand routes every log file below a folder. Files in the folder
// itself share one output directory; each top-level subfolder gets its own.
type FolderCommand struct {
	ingestFlags
	Input string

	out io.Writer
}

func NewFolderCommand(cfg *config.Config) *FolderCommand {
	return &FolderCommand{ingestFlags: newIngestFlags(cfg), out: os.Stdout}
}

// ParseFlags parses command line flags
func (cmd *FolderCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("folder", flag.ContinueOnError)
	fs.StringVar(&cmd.Input, "input", "", "Folder with log files")
	cmd.register(fs, false)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s folder -input <dir> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Split every query log below a folder into per-category CSV files.\n")
		fmt.Fprintf(os.Stderr, "Without -output, files go to \"<dir>_%s\".\n\n", cmd.cfg.Output.FolderSuffix)
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s folder -input logs\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s folder -input logs -output /srv/csv -workers 8\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if cmd.Input == "" {
		return fmt.Errorf("-input is required")
	}
	return nil
}

// Run executes the folder command
func (cmd *FolderCommand) Run() error {
	outRoot := cmd.Output
	if outRoot == "" {
		outRoot = ingest.DefaultFolderOutput(cmd.Input, cmd.cfg.Output.FolderSuffix)
	}

	svc, closeLedger, err := cmd.service()
	if err != nil {
		return err
	}
	defer closeLedger()

	ctx, cancel := signalContext()
	defer cancel()

	outcomes, total, err := svc.Runner(entities.RunTriggerCLI, "").RunFolder(ctx, cmd.Input, outRoot)
	for _, outcome := range outcomes {
		printOutcome(cmd.out, outcome)
		fmt.Fprintln(cmd.out)
	}
	fmt.Fprintf(cmd.out, "%d run(s): %d lines, %d routed, %d dropped -> %s\n",
		len(outcomes), total.Lines, total.Routed, total.DroppedTotal(), outRoot)
	return err
}
