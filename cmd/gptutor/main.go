package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stdout)
		os.Exit(1)
	}

	if err := run(context.Background(), os.Args[1], os.Args[2:], bufio.NewReader(os.Stdin), os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, command string, args []string, in *bufio.Reader, out io.Writer) error {
	switch command {
	case "init":
		return cmdInit(in, out)
	case "config":
		return cmdConfig(ctx, args, out)
	case "provider":
		return cmdProvider(ctx, args, in, out)
	case "migrate":
		return cmdMigrate(ctx, args, out)
	case "adduser":
		return cmdAddUser(ctx, args, in, out)
	case "help", "-h", "--help":
		printUsage(out)
		return nil
	case "version", "-v", "--version":
		fmt.Fprintf(out, "gptutor %s\n", Version)
		return nil
	default:
		printUsage(out)
		return fmt.Errorf("unknown command: %s", command)
	}
}

func printUsage(out io.Writer) {
	fmt.Fprintln(out, `GPTutor - coding exercises from a language model

Usage:
  gptutor <command> [arguments]

Setup Commands:
  init                     Create ~/.gptutor and a default configuration
  config [file]            Show the effective configuration (secrets masked)
  provider list [file]     List configured completion providers
  provider set-key <name>  Store an API key for a provider

Database Commands:
  migrate [file]           Apply pending schema migrations
  adduser [file]           Create a user account interactively

Other:
  help                     Show this help message
  version                  Show version information

The optional [file] is a settings file; the default is ~/.gptutor/config.yaml.
Start the server with: gptutord [file]`)
}

// configPath returns the optional settings file argument
func configPath(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}
