package cmd

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"
)

// fmtCmd rewrites the market database in canonical form.
type fmtCmd struct{}

func (*fmtCmd) Name() string     { return "fmt" }
func (*fmtCmd) Synopsis() string { return "rewrite the market database in canonical form" }
func (*fmtCmd) Usage() string {
	return `iq fmt

  Reads and rewrites the market database: assets in ticker order, one
  price file per year with stable field order, stale files removed. Run
  it after hand-editing to keep diffs minimal.
`
}

func (*fmtCmd) SetFlags(f *flag.FlagSet) {}

func (*fmtCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	market, err := DecodeMarket()
	if err != nil {
		return fail(err)
	}
	if err := EncodeMarket(market); err != nil {
		return fail(err)
	}
	fmt.Printf("Formatted market database with %d asset(s)\n", len(market.Tickers()))
	return subcommands.ExitSuccess
}
