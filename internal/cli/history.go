package cli

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/google/subcommands"

	"portfoliotracker/pkg/portfolio"
)

type historyCmd struct {
	env    *Env
	period string
}

func (*historyCmd) Name() string     { return "history" }
func (*historyCmd) Synopsis() string { return "print daily closes for a ticker" }
func (*historyCmd) Usage() string {
	return `portfolio history [-period 6mo] <ticker>

  Prints one "date close" line per trading day in the window.
`
}

func (c *historyCmd) SetFlags(f *flag.FlagSet) {
	names := make([]string, 0, len(portfolio.Periods))
	for _, p := range portfolio.Periods {
		names = append(names, string(p))
	}
	f.StringVar(&c.period, "period", string(portfolio.DefaultPeriod), "history window: "+strings.Join(names, ", "))
}

func (c *historyCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ticker, ok := tickerArg(f)
	if !ok {
		f.Usage()
		return subcommands.ExitUsageError
	}
	period, err := portfolio.ParsePeriod(c.period)
	if err != nil {
		c.env.errorf("Error parsing period: %s", portfolio.UserMessage(err))
		return subcommands.ExitUsageError
	}
	points, err := c.env.Market.History(ctx, ticker, period)
	if err != nil {
		c.env.errorf("Could not load price history for %s: %v", ticker, err)
		return subcommands.ExitFailure
	}
	if len(points) == 0 {
		c.env.errorf("No price history for %s.", ticker)
		return subcommands.ExitFailure
	}
	for _, p := range points {
		fmt.Fprintf(c.env.Stdout, "%s\t%.2f\n", p.Date.Format("2006-01-02"), p.Close)
	}
	return subcommands.ExitSuccess
}
