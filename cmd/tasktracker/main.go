package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"
)

// Version information set via ldflags
var (
	version = "dev"
	commit  = "none"
)

const usage = `tasktracker - multi-user task tracker

Usage:
  tasktracker <command> [flags]

Commands:
  serve         run the HTTP API (and the notice dispatcher when enabled)
  tui           open the terminal console
  seed          create the bootstrap administrator if none exists
  dispatch      deliver pending assignment notices
  init-config   write a default configuration file
  secret        set or delete a secret in the system keyring
  version       print the version

Run "tasktracker <command> --help" for command flags.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "serve":
		err = runServe(args)
	case "tui":
		err = runTUI(args)
	case "seed":
		err = runSeed(args)
	case "dispatch":
		err = runDispatch(args)
	case "init-config":
		err = runInitConfig(args)
	case "secret":
		err = runSecret(args)
	case "version", "--version", "-v":
		fmt.Printf("tasktracker %s (commit: %s)\n", version, commit)
	case "help", "--help", "-h":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}

	if err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
