// Command holdingsctl runs the holdings pipeline from the command line:
// single quote lookups, live totals, price refreshes, snapshots and seeding.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path"
	"syscall"

	"github.com/google/subcommands"
)

var verbose = flag.Bool("v", false, "log at debug level")

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")

	for _, c := range commands {
		commander.Register(c, "")
	}
	commander.Register(&seedCmd{}, "setup")

	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(int(commander.Execute(ctx)))
}
