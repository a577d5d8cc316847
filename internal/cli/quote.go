package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"
	"github.com/shopspring/decimal"

	"portfoliotracker/pkg/portfolio"
)

type quoteCmd struct {
	env *Env
}

func (*quoteCmd) Name() string     { return "quote" }
func (*quoteCmd) Synopsis() string { return "print the latest price for a ticker" }
func (*quoteCmd) Usage() string {
	return `portfolio quote <ticker>

  Prints the company name and latest close.
`
}

func (*quoteCmd) SetFlags(*flag.FlagSet) {}

func (c *quoteCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ticker, ok := tickerArg(f)
	if !ok {
		f.Usage()
		return subcommands.ExitUsageError
	}
	price, err := c.env.Market.CurrentPrice(ctx, ticker)
	if err != nil {
		c.env.errorf("Error fetching data for %s.", ticker)
		return subcommands.ExitFailure
	}
	if price == nil {
		c.env.errorf("Could not fetch data for %s.", ticker)
		return subcommands.ExitFailure
	}
	name := c.env.Market.CompanyName(ctx, ticker)
	fmt.Fprintf(c.env.Stdout, "%s\t%s\t%s\n", ticker, name, portfolio.FormatMoney(decimal.NewFromFloat(*price), portfolio.DefaultCurrency))
	return subcommands.ExitSuccess
}
