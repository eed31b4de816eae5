package indiaquant

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// Metrics operate on periodic return series and equity curves after the
// fact. Ratios whose denominator is zero (flat series, no downside) come
// back as NaN rather than a fake zero or infinity, so callers can tell
// "undefined" apart from "bad".

// TotalReturn compounds a periodic return series into a cumulative return.
func TotalReturn(returns []float64) float64 {
	growth := 1.0
	for _, r := range returns {
		growth *= 1 + r
	}
	return growth - 1
}

// AnnualizedReturn geometrically annualizes a periodic return series.
// periodsPerYear is explicit, never guessed from the data.
func AnnualizedReturn(returns []float64, periodsPerYear float64) float64 {
	if len(returns) == 0 {
		return math.NaN()
	}
	return math.Pow(1+TotalReturn(returns), periodsPerYear/float64(len(returns))) - 1
}

// Volatility is the annualized sample standard deviation of returns.
func Volatility(returns []float64, periodsPerYear float64) float64 {
	if len(returns) < 2 {
		return math.NaN()
	}
	return stat.StdDev(returns, nil) * math.Sqrt(periodsPerYear)
}

// periodicRiskFree converts an annual risk-free rate into its
// geometrically equivalent per-period rate.
func periodicRiskFree(riskFree, periodsPerYear float64) float64 {
	return math.Pow(1+riskFree, 1/periodsPerYear) - 1
}

// SharpeRatio is the annualized mean excess return over its standard
// deviation. NaN when the excess-return deviation is zero.
func SharpeRatio(returns []float64, riskFree, periodsPerYear float64) float64 {
	if len(returns) < 2 {
		return math.NaN()
	}
	rf := periodicRiskFree(riskFree, periodsPerYear)
	excess := make([]float64, len(returns))
	for i, r := range returns {
		excess[i] = r - rf
	}
	sd := stat.StdDev(excess, nil)
	if sd == 0 || math.IsNaN(sd) {
		return math.NaN()
	}
	return stat.Mean(excess, nil) / sd * math.Sqrt(periodsPerYear)
}

// DownsideDeviation is the root mean square of negative excess returns,
// with positive excess returns counted as zero.
func DownsideDeviation(returns []float64, riskFree, periodsPerYear float64) float64 {
	if len(returns) == 0 {
		return math.NaN()
	}
	rf := periodicRiskFree(riskFree, periodsPerYear)
	var sum float64
	for _, r := range returns {
		if e := r - rf; e < 0 {
			sum += e * e
		}
	}
	return math.Sqrt(sum / float64(len(returns)))
}

// SortinoRatio is the annualized mean excess return over the downside
// deviation. NaN when there is no downside.
func SortinoRatio(returns []float64, riskFree, periodsPerYear float64) float64 {
	if len(returns) == 0 {
		return math.NaN()
	}
	dd := DownsideDeviation(returns, riskFree, periodsPerYear)
	if dd == 0 || math.IsNaN(dd) {
		return math.NaN()
	}
	rf := periodicRiskFree(riskFree, periodsPerYear)
	excess := make([]float64, len(returns))
	for i, r := range returns {
		excess[i] = r - rf
	}
	return stat.Mean(excess, nil) / dd * math.Sqrt(periodsPerYear)
}

// Drawdown describes the deepest peak-to-trough loss of an equity curve.
// Depth is a positive fraction; a curve that never falls below a prior
// peak has Depth 0 and Peak equal to Trough.
type Drawdown struct {
	Depth  float64
	Peak   Date
	Trough Date
}

// MaxDrawdown scans an equity curve for its deepest drawdown. The dates
// slice must be aligned with the equity values.
func MaxDrawdown(dates []Date, equity []float64) Drawdown {
	if len(equity) == 0 || len(dates) != len(equity) {
		return Drawdown{Depth: math.NaN()}
	}
	dd := Drawdown{Peak: dates[0], Trough: dates[0]}
	peakVal, peakDate := equity[0], dates[0]
	for i := 1; i < len(equity); i++ {
		if equity[i] > peakVal {
			peakVal, peakDate = equity[i], dates[i]
			continue
		}
		if peakVal <= 0 {
			continue
		}
		if depth := 1 - equity[i]/peakVal; depth > dd.Depth {
			dd = Drawdown{Depth: depth, Peak: peakDate, Trough: dates[i]}
		}
	}
	return dd
}

// Beta regresses portfolio returns against benchmark returns over their
// common length. Both series must be sampled on the same dates; fewer
// than two overlapping observations is a BenchmarkMismatchError.
func Beta(returns, benchmark []float64) (float64, error) {
	if len(returns) != len(benchmark) {
		return 0, &BenchmarkMismatchError{Overlap: min(len(returns), len(benchmark)), Needed: max(len(returns), len(benchmark))}
	}
	if len(returns) < 2 {
		return 0, &BenchmarkMismatchError{Overlap: len(returns), Needed: 2}
	}
	v := stat.Variance(benchmark, nil)
	if v == 0 {
		return math.NaN(), nil
	}
	return stat.Covariance(returns, benchmark, nil) / v, nil
}

// Alpha is the annualized excess return of the portfolio over its
// beta-adjusted benchmark exposure.
func Alpha(returns, benchmark []float64, riskFree, periodsPerYear float64) (float64, error) {
	beta, err := Beta(returns, benchmark)
	if err != nil {
		return 0, err
	}
	rf := periodicRiskFree(riskFree, periodsPerYear)
	excess := stat.Mean(returns, nil) - rf
	benchExcess := stat.Mean(benchmark, nil) - rf
	return (excess - beta*benchExcess) * periodsPerYear, nil
}

// InformationRatio is the annualized mean active return over the tracking
// error. NaN when the tracking error is zero.
func InformationRatio(returns, benchmark []float64, periodsPerYear float64) (float64, error) {
	if len(returns) != len(benchmark) || len(returns) < 2 {
		return 0, &BenchmarkMismatchError{Overlap: min(len(returns), len(benchmark)), Needed: 2}
	}
	active := make([]float64, len(returns))
	for i := range returns {
		active[i] = returns[i] - benchmark[i]
	}
	te := stat.StdDev(active, nil)
	if te == 0 || math.IsNaN(te) {
		return math.NaN(), nil
	}
	return stat.Mean(active, nil) / te * math.Sqrt(periodsPerYear), nil
}

// ValueAtRisk is the empirical loss quantile of a periodic return series
// at the given confidence level, e.g. 0.95 for the 5th percentile return.
// Reported as a positive loss fraction when the quantile is negative.
func ValueAtRisk(returns []float64, confidence float64) float64 {
	if len(returns) == 0 || confidence <= 0 || confidence >= 1 {
		return math.NaN()
	}
	sorted := slices.Clone(returns)
	slices.Sort(sorted)
	q := stat.Quantile(1-confidence, stat.LinInterp, sorted, nil)
	return math.Max(0, -q)
}

// PerformanceReport bundles the ex-post metrics of one return series.
// Benchmark-relative fields are NaN when no benchmark was supplied.
type PerformanceReport struct {
	TotalReturn      float64
	AnnualizedReturn float64
	Volatility       float64
	Sharpe           float64
	Sortino          float64
	MaxDrawdown      Drawdown
	VaR95            float64
	VaR99            float64
	Beta             float64
	Alpha            float64
	InformationRatio float64
}

// NewPerformanceReport computes the full metric set for an equity curve
// and its periodic returns. benchmark may be nil; when present it must be
// aligned with returns or the computation fails with a
// BenchmarkMismatchError.
func NewPerformanceReport(dates []Date, equity, returns, benchmark []float64, riskFree, periodsPerYear float64) (PerformanceReport, error) {
	report := PerformanceReport{
		TotalReturn:      TotalReturn(returns),
		AnnualizedReturn: AnnualizedReturn(returns, periodsPerYear),
		Volatility:       Volatility(returns, periodsPerYear),
		Sharpe:           SharpeRatio(returns, riskFree, periodsPerYear),
		Sortino:          SortinoRatio(returns, riskFree, periodsPerYear),
		MaxDrawdown:      MaxDrawdown(dates, equity),
		VaR95:            ValueAtRisk(returns, 0.95),
		VaR99:            ValueAtRisk(returns, 0.99),
		Beta:             math.NaN(),
		Alpha:            math.NaN(),
		InformationRatio: math.NaN(),
	}
	if benchmark == nil {
		return report, nil
	}
	var err error
	if report.Beta, err = Beta(returns, benchmark); err != nil {
		return report, err
	}
	if report.Alpha, err = Alpha(returns, benchmark, riskFree, periodsPerYear); err != nil {
		return report, err
	}
	if report.InformationRatio, err = InformationRatio(returns, benchmark, periodsPerYear); err != nil {
		return report, err
	}
	return report, nil
}
