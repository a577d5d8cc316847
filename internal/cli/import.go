package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"portfoliotracker/pkg/portfolio"
)

type importCmd struct {
	env    *Env
	output string
}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "price a holdings CSV and print the summary" }
func (*importCmd) Usage() string {
	return `portfolio import [-o export.csv] <file.csv>

  Reads a CSV with Ticker, Quantity and Buy Price columns, prices every row
  and prints what was imported, what was skipped and the portfolio totals.
  With -o the priced holdings are written in export format.
`
}

func (c *importCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.output, "o", "", "write the priced holdings to this CSV file")
}

func (c *importCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	in, err := os.Open(f.Arg(0))
	if err != nil {
		c.env.errorf("Error opening import file: %v", err)
		return subcommands.ExitFailure
	}
	defer in.Close()

	records, err := portfolio.ParseImportCSV(in)
	if err != nil {
		c.env.errorf("Error reading import file: %s", portfolio.UserMessage(err))
		return subcommands.ExitFailure
	}

	ledger := portfolio.NewLedger()
	result := ledger.BulkImport(ctx, c.env.Market, records)
	imported := result.Imported()
	fmt.Fprintf(c.env.Stdout, "Imported %d holdings.\n", len(imported))
	for _, s := range result.Skipped() {
		fmt.Fprintf(c.env.Stdout, "Skipped %s (%s)\n", s.Ticker, s.Reason)
	}

	summary := portfolio.BuildOverview(ledger).Summary.Display
	for _, key := range []string{"Total Market Value", "Total Cost Basis", "Total Gain/Loss", "Overall Return"} {
		fmt.Fprintf(c.env.Stdout, "%-20s%s\n", key+":", summary[key])
	}

	if c.output == "" {
		return subcommands.ExitSuccess
	}
	out, err := os.Create(c.output)
	if err != nil {
		c.env.errorf("Error creating %s: %v", c.output, err)
		return subcommands.ExitFailure
	}
	if err := portfolio.WriteExportCSV(out, ledger.Holdings()); err != nil {
		_ = out.Close()
		c.env.errorf("Error writing %s: %v", c.output, err)
		return subcommands.ExitFailure
	}
	if err := out.Close(); err != nil {
		c.env.errorf("Error writing %s: %v", c.output, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
