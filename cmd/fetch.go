package cmd

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"
	"github.com/varun18-code/indiaquant"
)

// fetchCmd holds the flags for the 'fetch' subcommand.
type fetchCmd struct {
	class string
	from  string
	to    string
}

func (*fetchCmd) Name() string     { return "fetch" }
func (*fetchCmd) Synopsis() string { return "fetch daily price history into the market database" }
func (*fetchCmd) Usage() string {
	return `iq fetch [-class <class>] [-from <date>] [-to <date>] TICKER...

  Fetches daily closes from Yahoo Finance for each ticker and merges them
  into the market database. NSE tickers may be given bare (RELIANCE) or
  suffixed (RELIANCE.NS); indices start with '^'.
`
}

func (c *fetchCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.class, "class", string(indiaquant.Equity), "asset class: equity, mutual_fund or index")
	f.StringVar(&c.from, "from", "", "start of the history (defaults to one year back)")
	f.StringVar(&c.to, "to", "", "end of the history (defaults to today)")
}

func (c *fetchCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Println(c.Usage())
		return subcommands.ExitUsageError
	}
	log := Logger()

	if c.from == "" {
		c.from = indiaquant.Today().Add(-365).String()
	}
	rng, err := parseRange(c.from, c.to)
	if err != nil {
		return fail(err)
	}

	market, err := DecodeMarket()
	if err != nil {
		return fail(err)
	}

	source := indiaquant.NewYahooSource(log)
	for _, ticker := range f.Args() {
		asset := indiaquant.NewAsset(ticker, indiaquant.AssetClass(c.class))
		series, err := source.DailyHistory(asset, rng)
		if err != nil {
			return fail(fmt.Errorf("fetching %s: %w", ticker, err))
		}
		if err := market.Merge(series); err != nil {
			return fail(err)
		}
		fmt.Printf("Fetched %d closes for %s\n", series.Len(), ticker)
	}

	if err := EncodeMarket(market); err != nil {
		return fail(err)
	}
	return subcommands.ExitSuccess
}
