package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/google/subcommands"
	"github.com/varun18-code/indiaquant"
	"github.com/varun18-code/indiaquant/renderer"
)

// frontierCmd holds the flags for the 'frontier' subcommand.
type frontierCmd struct {
	tickers string
	from    string
	to      string
	points  int
	rf      float64
	decay   float64
	logRet  bool
	lower   string
	upper   string
	timeout time.Duration
	correl  bool
}

func (*frontierCmd) Name() string { return "frontier" }
func (*frontierCmd) Synopsis() string {
	return "compute the efficient frontier for a set of assets"
}
func (*frontierCmd) Usage() string {
	return `iq frontier -tickers T1,T2,... [-from <date>] [-to <date>] [options]

  Estimates expected returns and covariance from daily history and sweeps
  the efficient frontier, reporting each point with the minimum-variance
  and tangency portfolios. Interrupting the sweep (Ctrl-C) prints the
  points computed so far.
`
}

func (c *frontierCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.tickers, "tickers", "", "comma-separated tickers to optimize over")
	f.StringVar(&c.from, "from", "", "start of the estimation window (defaults to one year back)")
	f.StringVar(&c.to, "to", "", "end of the estimation window (defaults to today)")
	f.IntVar(&c.points, "points", 20, "number of frontier points")
	f.Float64Var(&c.rf, "rf", 0.0, "annual risk-free rate, e.g. 0.06")
	f.Float64Var(&c.decay, "decay", 0, "EWMA decay lambda in (0,1); 0 selects the sample covariance")
	f.BoolVar(&c.logRet, "log-returns", false, "estimate from log returns instead of simple returns")
	f.StringVar(&c.lower, "lower", "", "comma-separated per-asset lower weight bounds (default 0)")
	f.StringVar(&c.upper, "upper", "", "comma-separated per-asset upper weight bounds (default 1)")
	f.DurationVar(&c.timeout, "timeout", 30*time.Second, "per-solve timeout")
	f.BoolVar(&c.correl, "correlation", false, "also print the asset correlation matrix")
}

func (c *frontierCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	log := Logger()
	tickers := splitTickers(c.tickers)
	if len(tickers) < 2 {
		fmt.Fprintln(os.Stderr, "Error: -tickers needs at least two assets")
		return subcommands.ExitUsageError
	}
	if c.from == "" {
		c.from = indiaquant.Today().Add(-365).String()
	}
	rng, err := parseRange(c.from, c.to)
	if err != nil {
		return fail(err)
	}
	lower, err := splitWeights(c.lower)
	if err != nil {
		return fail(err)
	}
	upper, err := splitWeights(c.upper)
	if err != nil {
		return fail(err)
	}

	market, err := DecodeMarket()
	if err != nil {
		return fail(err)
	}

	estimator := indiaquant.NewEstimator(indiaquant.Daily)
	estimator.Decay = c.decay
	estimator.Log = log
	if c.logRet {
		estimator.Compounding = indiaquant.LogReturns
	}

	returns, err := estimator.Returns(market, tickers, rng)
	if err != nil {
		return fail(err)
	}
	cov, err := estimator.Covariance(returns)
	if err != nil {
		return fail(err)
	}

	optimizer := indiaquant.Optimizer{
		Lower:         lower,
		Upper:         upper,
		RiskFree:      c.rf,
		Points:        c.points,
		SolverTimeout: c.timeout,
		Log:           log,
	}

	// Ctrl-C stops the sweep; the partial frontier is still reported.
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	mu := returns.MeanReturns()
	front, err := optimizer.Frontier(ctx, mu, cov)
	if err != nil {
		return fail(err)
	}
	var tangency *indiaquant.FrontierPoint
	if !front.Cancelled {
		point, err := optimizer.MaxSharpe(mu, cov)
		if err != nil {
			return fail(err)
		}
		tangency = &point
	}

	printMarkdown(renderer.FrontierMarkdown(front, tangency, c.rf))
	if c.correl {
		printMarkdown(renderer.CorrelationMarkdown(cov.Assets(), cov.Correlation()))
	}
	return subcommands.ExitSuccess
}
