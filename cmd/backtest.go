package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/google/subcommands"
	"github.com/rs/zerolog"
	"github.com/varun18-code/indiaquant"
	"github.com/varun18-code/indiaquant/renderer"
)

// backtestCmd holds the flags for the 'backtest' subcommand.
type backtestCmd struct {
	strategy  string
	tickers   string
	weights   string
	every     string
	lookback  int
	from      string
	to        string
	cash      float64
	currency  string
	costRate  float64
	costFee   float64
	benchmark string
	rf        float64
	timeout   time.Duration
}

func (*backtestCmd) Name() string     { return "backtest" }
func (*backtestCmd) Synopsis() string { return "simulate a strategy over historical prices" }
func (*backtestCmd) Usage() string {
	return `iq backtest -strategy <name> -tickers T1,T2,... [options]

  Replays a strategy day by day against the market database and reports
  the equity curve metrics and trades. Strategies:

    buy-and-hold          invest once into the given weights
    rebalance             trade back to the weights on a calendar schedule
    frontier-min-variance re-optimize to the minimum-variance portfolio
    frontier-max-sharpe   re-optimize to the tangency portfolio
`
}

func (c *backtestCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.strategy, "strategy", "buy-and-hold", "strategy name")
	f.StringVar(&c.tickers, "tickers", "", "comma-separated universe tickers")
	f.StringVar(&c.weights, "weights", "", "comma-separated target weights (defaults to equal weight)")
	f.StringVar(&c.every, "every", "monthly", "rebalance schedule: daily, weekly or monthly")
	f.IntVar(&c.lookback, "lookback", 365, "estimation window in calendar days for frontier strategies")
	f.StringVar(&c.from, "from", "", "first simulated day")
	f.StringVar(&c.to, "to", "", "last simulated day (defaults to today)")
	f.Float64Var(&c.cash, "cash", 100000, "initial cash")
	f.StringVar(&c.currency, "currency", "INR", "account currency")
	f.Float64Var(&c.costRate, "cost-rate", 0, "proportional transaction cost, e.g. 0.001")
	f.Float64Var(&c.costFee, "cost-fee", 0, "flat fee per trade in account currency")
	f.StringVar(&c.benchmark, "benchmark", "", "benchmark ticker for beta, alpha and information ratio")
	f.Float64Var(&c.rf, "rf", 0.0, "annual risk-free rate")
	f.DurationVar(&c.timeout, "timeout", 30*time.Second, "per-solve timeout for frontier strategies")
}

func (c *backtestCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	log := Logger()
	tickers := splitTickers(c.tickers)
	if len(tickers) == 0 {
		fmt.Fprintln(os.Stderr, "Error: -tickers is required")
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
	universe, err := market.Assets(tickers)
	if err != nil {
		return fail(err)
	}

	strategy, err := c.buildStrategy(universe, log)
	if err != nil {
		return fail(err)
	}

	var costs indiaquant.CostModel
	switch {
	case c.costRate > 0 && c.costFee > 0:
		costs = indiaquant.BrokerageCost{Fee: indiaquant.M(c.costFee, c.currency), Rate: c.costRate}
	case c.costRate > 0:
		costs = indiaquant.ProportionalCost{Rate: c.costRate}
	case c.costFee > 0:
		costs = indiaquant.PerTradeCost{Fee: indiaquant.M(c.costFee, c.currency)}
	}

	simulator := &indiaquant.Simulator{
		Market:      market,
		Strategy:    strategy,
		Universe:    universe,
		Over:        rng,
		InitialCash: indiaquant.M(c.cash, c.currency),
		Costs:       costs,
		Log:         log,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	result, runErr := simulator.Run(ctx)

	var benchmark []float64
	if c.benchmark != "" && len(result.Records) > 1 {
		benchmark, err = c.benchmarkReturns(market, result)
		if err != nil {
			return fail(err)
		}
	}
	report, perfErr := result.Performance(benchmark, c.rf)
	if perfErr != nil {
		return fail(perfErr)
	}
	printMarkdown(renderer.BacktestMarkdown(result, report))
	if runErr != nil {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// benchmarkReturns samples the benchmark on the simulated calendar, so
// the two series stay aligned even when the benchmark trades on extra
// days.
func (c *backtestCmd) benchmarkReturns(market *indiaquant.Market, result *indiaquant.BacktestResult) ([]float64, error) {
	series := market.Get(c.benchmark)
	if series == nil {
		return nil, fmt.Errorf("benchmark ticker %q is not in the market database", c.benchmark)
	}
	returns := make([]float64, 0, len(result.Records))
	prev := 0.0
	for i, rec := range result.Records {
		p, ok := series.PriceAsOf(rec.On)
		if !ok {
			return nil, &indiaquant.BenchmarkMismatchError{Overlap: i, Needed: len(result.Records)}
		}
		if i > 0 {
			returns = append(returns, p/prev-1)
		}
		prev = p
	}
	// align with the equity returns, whose first entry covers day one
	return append([]float64{0}, returns...), nil
}

func (c *backtestCmd) buildStrategy(universe []indiaquant.Asset, log zerolog.Logger) (indiaquant.Strategy, error) {
	period, err := indiaquant.ParsePeriod(c.every)
	if err != nil {
		return nil, err
	}

	target := indiaquant.EqualWeight(universe)
	if c.weights != "" {
		weights, err := splitWeights(c.weights)
		if err != nil {
			return nil, err
		}
		if target, err = indiaquant.NewPortfolio(universe, weights, false); err != nil {
			return nil, err
		}
	}

	switch c.strategy {
	case "buy-and-hold":
		return &indiaquant.BuyAndHold{Target: target}, nil
	case "rebalance":
		return &indiaquant.CalendarRebalance{Target: target, Every: period}, nil
	case "frontier-min-variance", "frontier-max-sharpe":
		objective := indiaquant.MinVarianceObjective
		if c.strategy == "frontier-max-sharpe" {
			objective = indiaquant.MaxSharpeObjective
		}
		estimator := indiaquant.NewEstimator(indiaquant.Daily)
		estimator.Log = log
		return &indiaquant.FrontierTracking{
			Assets:    universe,
			Objective: objective,
			Every:     period,
			Lookback:  c.lookback,
			Estimator: estimator,
			Optimizer: indiaquant.Optimizer{RiskFree: c.rf, SolverTimeout: c.timeout, Log: log},
			Cache:     indiaquant.NewCache(),
			Log:       log,
		}, nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", c.strategy)
	}
}
