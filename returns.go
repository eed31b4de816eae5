package indiaquant

import (
	"fmt"
	"math"
	"slices"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Compounding selects the return convention. A single run must use one
// convention throughout; mixing simple and log returns is a defect.
type Compounding int

const (
	SimpleReturns Compounding = iota
	LogReturns
)

func (c Compounding) String() string {
	if c == LogReturns {
		return "log"
	}
	return "simple"
}

// FillPolicy says what to do with a sampling date on which an asset has no
// observation. The policy is always explicit: missing data is never
// silently coerced.
type FillPolicy int

const (
	// DropMissing drops the sampling date for all assets, keeping the
	// matrix aligned on genuinely shared observations.
	DropMissing FillPolicy = iota
	// ForwardFill carries the last known price forward, for at most
	// FillLimit consecutive sampling dates per asset.
	ForwardFill
)

func (f FillPolicy) String() string {
	if f == ForwardFill {
		return "forward-fill"
	}
	return "drop"
}

// Estimator converts price series into periodic returns and covariance
// matrices. All knobs are explicit: period, compounding convention,
// annualization factor, missing-data policy and covariance weighting.
type Estimator struct {
	Period      Period
	Compounding Compounding

	// Annualization is the number of periods per year used to scale means
	// and covariances. It must be set explicitly; use NewEstimator for the
	// conventional factor of a period.
	Annualization float64

	// Decay is the exponential weighting factor lambda in (0,1) for an
	// exponentially-weighted covariance. Zero selects the default sample
	// covariance.
	Decay float64

	Fill      FillPolicy
	FillLimit int // max consecutive forward-fills per asset; only with ForwardFill

	Log zerolog.Logger
}

// NewEstimator returns a sample-covariance estimator of simple returns at
// the given period, annualized by the period's conventional factor.
func NewEstimator(period Period) Estimator {
	return Estimator{
		Period:        period,
		Compounding:   SimpleReturns,
		Annualization: period.PeriodsPerYear(),
		FillLimit:     5,
		Log:           zerolog.Nop(),
	}
}

func (e Estimator) validate() error {
	if e.Annualization <= 0 {
		return fmt.Errorf("estimator: annualization factor must be set explicitly, got %g", e.Annualization)
	}
	if e.Decay < 0 || e.Decay >= 1 {
		return fmt.Errorf("estimator: decay must be in [0,1), got %g", e.Decay)
	}
	return nil
}

// ReturnMatrix holds aligned periodic returns for an ordered set of
// assets. All series share the same date index.
type ReturnMatrix struct {
	assets        []Asset
	dates         []Date      // one date per return observation
	series        [][]float64 // series[i][t] is the return of asset i at dates[t]
	compounding   Compounding
	annualization float64
}

// Assets returns the ordered asset list.
func (rm *ReturnMatrix) Assets() []Asset { return slices.Clone(rm.assets) }

// Dates returns the shared date index.
func (rm *ReturnMatrix) Dates() []Date { return slices.Clone(rm.dates) }

// Len returns the number of aligned observations.
func (rm *ReturnMatrix) Len() int { return len(rm.dates) }

// Series returns the return series for the asset at position i.
func (rm *ReturnMatrix) Series(i int) []float64 { return slices.Clone(rm.series[i]) }

// SeriesByTicker returns the return series for a ticker.
func (rm *ReturnMatrix) SeriesByTicker(ticker string) ([]float64, bool) {
	for i, a := range rm.assets {
		if a.Ticker() == ticker {
			return slices.Clone(rm.series[i]), true
		}
	}
	return nil, false
}

// Compounding returns the convention the matrix was built with.
func (rm *ReturnMatrix) Compounding() Compounding { return rm.compounding }

// MeanReturns returns the annualized mean return vector, in asset order.
func (rm *ReturnMatrix) MeanReturns() []float64 {
	mu := make([]float64, len(rm.assets))
	for i, s := range rm.series {
		mu[i] = stat.Mean(s, nil) * rm.annualization
	}
	return mu
}

// dense lays the matrix out as (observations × assets) for gonum.
func (rm *ReturnMatrix) dense() *mat.Dense {
	n, d := len(rm.dates), len(rm.assets)
	x := mat.NewDense(n, d, nil)
	for j, s := range rm.series {
		for t, r := range s {
			x.Set(t, j, r)
		}
	}
	return x
}

// Returns samples the market at period boundaries and produces the aligned
// return matrix for the given tickers over rng. It fails with
// *InsufficientDataError when fewer than 2 aligned return observations
// remain after applying the missing-data policy.
func (e Estimator) Returns(m *Market, tickers []string, rng Range) (*ReturnMatrix, error) {
	if err := e.validate(); err != nil {
		return nil, err
	}
	assets, err := m.Assets(tickers)
	if err != nil {
		return nil, err
	}

	sampleDates := e.sampleDates(m, tickers, rng)

	// Sample each asset's price on each date, applying the fill policy.
	// A date where any asset has no usable price is dropped for all.
	prices := make([][]float64, len(tickers))
	for i := range prices {
		prices[i] = make([]float64, 0, len(sampleDates))
	}
	var kept []Date
	fills := make([]int, len(tickers)) // consecutive forward-fills per asset
	for _, on := range sampleDates {
		row := make([]float64, len(tickers))
		usable := true
		for i, t := range tickers {
			s := m.Get(t)
			if p, ok := s.Price(on); ok {
				row[i], fills[i] = p, 0
				continue
			}
			if e.Fill == ForwardFill && fills[i] < e.FillLimit {
				if p, ok := s.PriceAsOf(on); ok {
					row[i] = p
					fills[i]++
					continue
				}
			}
			usable = false
			break
		}
		if !usable {
			continue
		}
		kept = append(kept, on)
		for i := range tickers {
			prices[i] = append(prices[i], row[i])
		}
	}

	if len(kept) < 3 { // need 3 prices for 2 returns
		return nil, &InsufficientDataError{Observations: max(0, len(kept)-1), Needed: 2}
	}

	e.Log.Debug().
		Int("assets", len(tickers)).
		Int("observations", len(kept)-1).
		Str("period", e.Period.String()).
		Str("compounding", e.Compounding.String()).
		Msg("sampled aligned price matrix")

	series := make([][]float64, len(tickers))
	for i, p := range prices {
		series[i] = e.periodReturns(p)
	}
	return &ReturnMatrix{
		assets:        assets,
		dates:         kept[1:],
		series:        series,
		compounding:   e.Compounding,
		annualization: e.Annualization,
	}, nil
}

// sampleDates builds the sampling calendar: the union of observation dates
// within rng, reduced to the last date of each period bucket for weekly
// and monthly estimation.
func (e Estimator) sampleDates(m *Market, tickers []string, rng Range) []Date {
	seen := make(map[Date]bool)
	var union []Date
	for _, t := range tickers {
		s := m.Get(t)
		if s == nil {
			continue
		}
		for on := range s.Values() {
			if !rng.IsZero() && !rng.Contains(on) {
				continue
			}
			if !seen[on] {
				seen[on] = true
				union = append(union, on)
			}
		}
	}
	slices.SortFunc(union, Date.Compare)
	if e.Period == Daily {
		return union
	}
	// keep the last date of each bucket
	var dates []Date
	for i, on := range union {
		if i+1 == len(union) || union[i+1].StartOf(e.Period) != on.StartOf(e.Period) {
			dates = append(dates, on)
		}
	}
	return dates
}

// periodReturns converts a sampled price path into period returns using
// the configured compounding convention.
func (e Estimator) periodReturns(prices []float64) []float64 {
	ret := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if e.Compounding == LogReturns {
			ret[i-1] = math.Log(prices[i] / prices[i-1])
		} else {
			ret[i-1] = prices[i]/prices[i-1] - 1
		}
	}
	return ret
}

// ReturnsOf is Returns with memoization: when a cache is given, the
// computed matrix is stored under a key covering the estimator settings,
// the asset set and the window, so distinct configurations never collide.
// The sampling scan over the market is the expensive step; means and
// covariances derive cheaply from the cached matrix.
func (e Estimator) ReturnsOf(m *Market, tickers []string, rng Range, cache *Cache) (*ReturnMatrix, error) {
	var key string
	if cache != nil {
		key = e.cacheKey(tickers, rng)
		if rm, ok := cache.Returns(key); ok {
			e.Log.Debug().Str("key", key[:12]).Msg("return matrix cache hit")
			return rm, nil
		}
	}
	rm, err := e.Returns(m, tickers, rng)
	if err != nil {
		return nil, err
	}
	if cache != nil {
		cache.PutReturns(key, rm)
	}
	return rm, nil
}

// CovarianceMatrix is a symmetric positive-semidefinite matrix over the
// same asset ordering as the ReturnMatrix it was estimated from. Diagonal
// entries are the assets' annualized variances.
type CovarianceMatrix struct {
	assets []Asset
	sym    *mat.SymDense
}

// Covariance estimates the annualized covariance matrix of a return
// matrix: sample covariance by default, exponentially weighted when the
// estimator's Decay is set.
func (e Estimator) Covariance(rm *ReturnMatrix) (*CovarianceMatrix, error) {
	if err := e.validate(); err != nil {
		return nil, err
	}
	n := rm.Len()
	if n < 2 {
		return nil, &InsufficientDataError{Observations: n, Needed: 2}
	}

	var weights []float64
	if e.Decay > 0 {
		// EWMA weights: newest observation carries the most weight.
		weights = make([]float64, n)
		for t := range weights {
			weights[t] = math.Pow(e.Decay, float64(n-1-t))
		}
	}

	d := len(rm.assets)
	sym := mat.NewSymDense(d, nil)
	stat.CovarianceMatrix(sym, rm.dense(), weights)
	sym.ScaleSym(e.Annualization, sym)

	e.Log.Debug().
		Int("dim", d).
		Float64("decay", e.Decay).
		Msg("estimated covariance matrix")

	return &CovarianceMatrix{assets: rm.Assets(), sym: sym}, nil
}

// Dim returns the matrix dimension.
func (c *CovarianceMatrix) Dim() int { return len(c.assets) }

// Assets returns the ordered asset list the matrix is indexed by.
func (c *CovarianceMatrix) Assets() []Asset { return slices.Clone(c.assets) }

// At returns Σ[i][j].
func (c *CovarianceMatrix) At(i, j int) float64 { return c.sym.At(i, j) }

// Variance returns the diagonal entry for asset i.
func (c *CovarianceMatrix) Variance(i int) float64 { return c.sym.At(i, i) }

// Sym exposes the matrix to gonum consumers. The returned value must be
// treated as read-only.
func (c *CovarianceMatrix) Sym() mat.Symmetric { return c.sym }

// Correlation derives the correlation matrix. Entries involving an asset
// with zero variance are reported as NaN rather than silently zeroed.
func (c *CovarianceMatrix) Correlation() *mat.SymDense {
	d := c.Dim()
	corr := mat.NewSymDense(d, nil)
	for i := 0; i < d; i++ {
		for j := i; j < d; j++ {
			denom := math.Sqrt(c.Variance(i) * c.Variance(j))
			if denom == 0 {
				corr.SetSym(i, j, math.NaN())
				continue
			}
			corr.SetSym(i, j, c.At(i, j)/denom)
		}
	}
	return corr
}

// NewCovarianceMatrix builds a covariance matrix from raw entries. It is
// mostly useful for tests and for callers that estimate Σ elsewhere; the
// entries must be symmetric and square over the asset ordering.
func NewCovarianceMatrix(assets []Asset, entries [][]float64) (*CovarianceMatrix, error) {
	d := len(assets)
	if len(entries) != d {
		return nil, fmt.Errorf("covariance matrix has %d rows for %d assets", len(entries), d)
	}
	sym := mat.NewSymDense(d, nil)
	for i := range entries {
		if len(entries[i]) != d {
			return nil, fmt.Errorf("covariance row %d has %d entries, want %d", i, len(entries[i]), d)
		}
		for j := i; j < d; j++ {
			if math.Abs(entries[i][j]-entries[j][i]) > 1e-12 {
				return nil, fmt.Errorf("covariance matrix is not symmetric at (%d,%d)", i, j)
			}
			sym.SetSym(i, j, entries[i][j])
		}
	}
	return &CovarianceMatrix{assets: slices.Clone(assets), sym: sym}, nil
}
