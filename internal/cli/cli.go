// Package cli implements the portfolio command-line tool on top of the
// market data client and ledger used by the server.
package cli

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/google/subcommands"

	"portfoliotracker/pkg/portfolio"
)

// Env is what every command needs: a market data source and two writers.
type Env struct {
	Market portfolio.MarketData
	Stdout io.Writer
	Stderr io.Writer
}

// Register adds the commands to c, grouped the way they show up in help.
func Register(c *subcommands.Commander, env *Env) {
	c.Register(c.HelpCommand(), "")
	c.Register(c.FlagsCommand(), "")
	c.Register(c.CommandsCommand(), "")

	c.Register(&quoteCmd{env: env}, "market")
	c.Register(&historyCmd{env: env}, "market")
	c.Register(&fundamentalsCmd{env: env}, "market")

	c.Register(&importCmd{env: env}, "holdings")
}

// Run parses args against a fresh command set and executes the selected
// command.
func Run(ctx context.Context, name string, args []string, env *Env) subcommands.ExitStatus {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(env.Stderr)
	commander := subcommands.NewCommander(fs, name)
	commander.Output = env.Stdout
	commander.Error = env.Stderr
	Register(commander, env)
	if err := fs.Parse(args); err != nil {
		return subcommands.ExitUsageError
	}
	return commander.Execute(ctx)
}

func (e *Env) errorf(format string, args ...interface{}) {
	fmt.Fprintf(e.Stderr, format+"\n", args...)
}

// tickerArg returns the single ticker argument, normalized.
func tickerArg(f *flag.FlagSet) (string, bool) {
	if f.NArg() != 1 {
		return "", false
	}
	ticker := portfolio.NormalizeTicker(f.Arg(0))
	return ticker, ticker != ""
}
