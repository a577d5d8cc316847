package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"portfoliotracker/pkg/portfolio"
)

// fundamentalsOrder matches the company tab layout.
var fundamentalsOrder = []string{
	"Market Cap",
	"PE Ratio (TTM)",
	"EPS (TTM)",
	"Dividend Yield",
	"52W High",
	"52W Low",
	"Sector",
	"Industry",
}

type fundamentalsCmd struct {
	env *Env
}

func (*fundamentalsCmd) Name() string     { return "fundamentals" }
func (*fundamentalsCmd) Synopsis() string { return "print company fundamentals" }
func (*fundamentalsCmd) Usage() string {
	return `portfolio fundamentals <ticker>

  Prints market cap, valuation ratios, dividend yield and the 52 week range.
  Fields the provider does not report show as N/A.
`
}

func (*fundamentalsCmd) SetFlags(*flag.FlagSet) {}

func (c *fundamentalsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ticker, ok := tickerArg(f)
	if !ok {
		f.Usage()
		return subcommands.ExitUsageError
	}
	fundamentals, err := c.env.Market.Fundamentals(ctx, ticker)
	if err != nil {
		c.env.errorf("Error fetching fundamentals for %s: %v", ticker, err)
		return subcommands.ExitFailure
	}
	display := portfolio.FundamentalsDisplay(fundamentals)
	if fundamentals.ShortName != "" {
		fmt.Fprintf(c.env.Stdout, "%s (%s)\n", fundamentals.ShortName, ticker)
	} else {
		fmt.Fprintln(c.env.Stdout, ticker)
	}
	for _, key := range fundamentalsOrder {
		fmt.Fprintf(c.env.Stdout, "%-16s%s\n", key+":", display[key])
	}
	return subcommands.ExitSuccess
}
