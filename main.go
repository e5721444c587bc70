package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/mrlokans/querylog/internal/cli"
	"github.com/mrlokans/querylog/internal/config"
	"github.com/mrlokans/querylog/internal/entrypoint"
)

// Version information - set at build time via ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

// command is implemented by every subcommand in internal/cli.
type command interface {
	ParseFlags(args []string) error
	Run() error
}

func main() {
	cfg := config.NewConfig()

	// If no arguments or "serve" command, run the HTTP server
	if len(os.Args) < 2 || os.Args[1] == "serve" {
		entrypoint.Run(cfg, Version)
		return
	}

	name := os.Args[1]
	args := os.Args[2:]

	var cmd command
	switch name {
	case "file":
		cmd = cli.NewFileCommand(cfg)
	case "folder":
		cmd = cli.NewFolderCommand(cfg)
	case "stdin":
		cmd = cli.NewStdinCommand(cfg)
	case "runs":
		cmd = cli.NewRunsCommand(cfg)

	case "version":
		fmt.Printf("querylog %s (%s)\n", Version, Commit)
		return

	case "-h", "--help", "help":
		printUsage()
		return

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", name)
		printUsage()
		os.Exit(1)
	}

	if err := cmd.ParseFlags(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := cmd.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [options]\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  serve    Start the HTTP server (default if no command given)\n")
	fmt.Fprintf(os.Stderr, "  file     Split one log file (.json, .gz, .zip) into per-category CSV files\n")
	fmt.Fprintf(os.Stderr, "  folder   Split every log file below a folder\n")
	fmt.Fprintf(os.Stderr, "  stdin    Split a log read from standard input\n")
	fmt.Fprintf(os.Stderr, "  runs     List runs recorded in the ledger database\n")
	fmt.Fprintf(os.Stderr, "  version  Print the version\n")
	fmt.Fprintf(os.Stderr, "\nUse '%s <command> -h' for help on a specific command.\n", os.Args[0])
}
