package indiaquant

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// A Strategy decides target weights during a simulation. Allocate is
// called once per trading day with the market truncated to that day, so a
// strategy can only ever see prices at or before the decision date. It
// returns the desired portfolio and whether the simulator should trade
// toward it; returning ok=false keeps the current holdings untouched.
//
// Strategies may carry state between calls. A Strategy value belongs to a
// single simulation run.
type Strategy interface {
	Name() string
	Allocate(on Date, market *Market, current Portfolio) (target Portfolio, ok bool, err error)
}

// BuyAndHold invests into its target weights on the first trading day and
// never trades again.
type BuyAndHold struct {
	Target Portfolio

	invested bool
}

func (s *BuyAndHold) Name() string { return "buy-and-hold" }

func (s *BuyAndHold) Allocate(on Date, market *Market, current Portfolio) (Portfolio, bool, error) {
	if s.invested {
		return Portfolio{}, false, nil
	}
	s.invested = true
	return s.Target, true, nil
}

// CalendarRebalance trades back to fixed target weights on the first
// trading day of every period bucket, weekly or monthly, and on the first
// day of the run.
type CalendarRebalance struct {
	Target Portfolio
	Every  Period

	started    bool
	lastBucket Date
}

func (s *CalendarRebalance) Name() string {
	return fmt.Sprintf("rebalance-%s", s.Every)
}

func (s *CalendarRebalance) Allocate(on Date, market *Market, current Portfolio) (Portfolio, bool, error) {
	bucket := on.StartOf(s.Every)
	if s.started && bucket == s.lastBucket {
		return Portfolio{}, false, nil
	}
	s.started = true
	s.lastBucket = bucket
	return s.Target, true, nil
}

// Objective selects which frontier portfolio a FrontierTracking strategy
// targets.
type Objective int

const (
	MinVarianceObjective Objective = iota
	MaxSharpeObjective
)

func (o Objective) String() string {
	switch o {
	case MinVarianceObjective:
		return "min-variance"
	case MaxSharpeObjective:
		return "max-sharpe"
	default:
		return fmt.Sprintf("Objective(%d)", int(o))
	}
}

// ParseObjective reads an Objective from its String form.
func ParseObjective(s string) (Objective, error) {
	switch s {
	case "min-variance":
		return MinVarianceObjective, nil
	case "max-sharpe":
		return MaxSharpeObjective, nil
	}
	return 0, fmt.Errorf("unknown objective %q (want min-variance or max-sharpe)", s)
}

// FrontierTracking re-optimizes its holdings on a calendar schedule from a
// rolling lookback window of history. Early in a run the window may hold
// too few observations to estimate a covariance matrix; those rebalance
// dates are skipped, holdings are kept, and the simulation continues.
type FrontierTracking struct {
	Assets    []Asset
	Objective Objective
	Every     Period         // rebalance schedule
	Lookback  int            // size of the estimation window in calendar days, defaults to 365
	Estimator Estimator      // return and covariance estimation settings
	Optimizer Optimizer      // constraints and solver settings
	Cache     *Cache         // optional memoization of estimation windows
	Log       zerolog.Logger

	started    bool
	lastBucket Date
}

func (s *FrontierTracking) Name() string {
	return fmt.Sprintf("frontier-%s", s.Objective)
}

func (s *FrontierTracking) Allocate(on Date, market *Market, current Portfolio) (Portfolio, bool, error) {
	bucket := on.StartOf(s.Every)
	if s.started && bucket == s.lastBucket {
		return Portfolio{}, false, nil
	}

	lookback := s.Lookback
	if lookback <= 0 {
		lookback = 365
	}
	window := NewRange(on.Add(-lookback), on)

	tickers := make([]string, len(s.Assets))
	for i, a := range s.Assets {
		tickers[i] = a.Ticker()
	}
	returns, err := s.Estimator.ReturnsOf(market, tickers, window, s.Cache)
	var insufficient *InsufficientDataError
	if errors.As(err, &insufficient) {
		s.Log.Debug().
			Stringer("on", on).
			Int("observations", insufficient.Observations).
			Msg("estimation window too short, holding")
		return Portfolio{}, false, nil
	}
	if err != nil {
		return Portfolio{}, false, err
	}
	cov, err := s.Estimator.Covariance(returns)
	if err != nil {
		return Portfolio{}, false, err
	}

	var point FrontierPoint
	mu := returns.MeanReturns()
	switch s.Objective {
	case MaxSharpeObjective:
		point, err = s.Optimizer.MaxSharpe(mu, cov)
	default:
		point, err = s.Optimizer.MinVariance(mu, cov)
	}
	if err != nil {
		return Portfolio{}, false, fmt.Errorf("re-optimizing on %s: %w", on, err)
	}

	s.started = true
	s.lastBucket = bucket
	return point.Portfolio, true, nil
}
