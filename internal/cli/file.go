package cli

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/mrlokans/querylog/internal/config"
	"github.com/mrlokans/querylog/internal/entities"
)

// FileCommand routes one log file (plain, .gz or .zip) into per-category CSV files.
type FileCommand struct {
	ingestFlags
	Input string

	out io.Writer
}

func NewFileCommand(cfg *config.Config) *FileCommand {
	return &FileCommand{ingestFlags: newIngestFlags(cfg), out: os.Stdout}
}

// ParseFlags parses command line flags
func (cmd *FileCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("file", flag.ContinueOnError)
	fs.StringVar(&cmd.Input, "input", "", "Log file to route (.json, .gz or .zip)")
	cmd.register(fs, true)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s file -input <path> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Split a newline-delimited JSON query log into one CSV file per category.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s file -input logs/2024-01-01.json\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s file -input logs/2024-01-01.json.gz -prefix out/2024-01-01\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s file -input logs.zip -categories liveboard,vehicle -db ./querylog.db\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if cmd.Input == "" {
		return fmt.Errorf("-input is required")
	}
	return nil
}

// Run executes the file command
func (cmd *FileCommand) Run() error {
	target, err := cmd.target(cmd.cfg.Output.Dir)
	if err != nil {
		return err
	}

	svc, closeLedger, err := cmd.service()
	if err != nil {
		return err
	}
	defer closeLedger()

	ctx, cancel := signalContext()
	defer cancel()

	outcome, err := svc.Runner(entities.RunTriggerCLI, "").RunFile(ctx, cmd.Input, target)
	if outcome.Run != nil {
		printOutcome(cmd.out, outcome)
	}
	return err
}
