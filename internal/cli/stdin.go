package cli

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/mrlokans/querylog/internal/config"
	"github.com/mrlokans/querylog/internal/entities"
)

// StdinCommand routes a log piped on standard input.
type StdinCommand struct {
	ingestFlags

	in  io.Reader
	out io.Writer
}

func NewStdinCommand(cfg *config.Config) *StdinCommand {
	return &StdinCommand{ingestFlags: newIngestFlags(cfg), in: os.Stdin, out: os.Stdout}
}

// ParseFlags parses command line flags
func (cmd *StdinCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("stdin", flag.ContinueOnError)
	cmd.register(fs, true)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s stdin [options] < log.json\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Split a query log read from standard input into one CSV file per category.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  zcat logs/*.gz | %s stdin -output generated_csvs\n", os.Args[0])
	}

	return fs.Parse(args)
}

// Run executes the stdin command
func (cmd *StdinCommand) Run() error {
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

	outcome, err := svc.Runner(entities.RunTriggerCLI, "").RunReader(ctx, "stdin", cmd.in, target)
	if outcome.Run != nil {
		printOutcome(cmd.out, outcome)
	}
	return err
}
