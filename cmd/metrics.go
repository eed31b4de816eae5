package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/varun18-code/indiaquant"
	"github.com/varun18-code/indiaquant/renderer"
)

// metricsCmd holds the flags for the 'metrics' subcommand.
type metricsCmd struct {
	ticker    string
	benchmark string
	from      string
	to        string
	rf        float64
}

func (*metricsCmd) Name() string     { return "metrics" }
func (*metricsCmd) Synopsis() string { return "report risk and performance metrics for one asset" }
func (*metricsCmd) Usage() string {
	return `iq metrics -ticker T [-benchmark B] [-from <date>] [-to <date>] [-rf <rate>]

  Computes the ex-post metric report of an asset's price history:
  returns, volatility, Sharpe and Sortino ratios, drawdown and value at
  risk, plus beta, alpha and information ratio against a benchmark.
`
}

func (c *metricsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.ticker, "ticker", "", "asset ticker")
	f.StringVar(&c.benchmark, "benchmark", "", "benchmark ticker")
	f.StringVar(&c.from, "from", "", "start of the window")
	f.StringVar(&c.to, "to", "", "end of the window (defaults to today)")
	f.Float64Var(&c.rf, "rf", 0.0, "annual risk-free rate")
}

func (c *metricsCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	if c.ticker == "" {
		fmt.Fprintln(os.Stderr, "Error: -ticker is required")
		return subcommands.ExitUsageError
	}
	rng, err := parseRange(c.from, c.to)
	if err != nil {
		return fail(err)
	}
	market, err := DecodeMarket()
	if err != nil {
		return fail(err)
	}

	tickers := []string{c.ticker}
	if c.benchmark != "" {
		tickers = append(tickers, c.benchmark)
	}
	calendar, err := market.Calendar(tickers, rng)
	if err != nil {
		return fail(err)
	}
	if len(calendar) < 3 {
		return fail(&indiaquant.InsufficientDataError{Observations: len(calendar), Needed: 3})
	}

	equity, returns := priceCurve(market, c.ticker, calendar)
	var benchmark []float64
	if c.benchmark != "" {
		_, benchmark = priceCurve(market, c.benchmark, calendar)
	}

	report, err := indiaquant.NewPerformanceReport(calendar[1:], equity[1:], returns, benchmark, c.rf, indiaquant.Daily.PeriodsPerYear())
	if err != nil {
		return fail(err)
	}
	printMarkdown(renderer.PerformanceMarkdown(report))
	return subcommands.ExitSuccess
}

// priceCurve samples an asset on a shared calendar and derives its simple
// returns. The calendar guarantees every date has a price.
func priceCurve(market *indiaquant.Market, ticker string, calendar []indiaquant.Date) (equity, returns []float64) {
	series := market.Get(ticker)
	equity = make([]float64, len(calendar))
	for i, on := range calendar {
		equity[i], _ = series.Price(on)
	}
	returns = make([]float64, len(calendar)-1)
	for i := 1; i < len(equity); i++ {
		returns[i-1] = equity[i]/equity[i-1] - 1
	}
	return equity, returns
}
