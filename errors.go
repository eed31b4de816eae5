package indiaquant

import (
	"errors"
	"fmt"
)

// ErrOptimizerTimeout is returned when an iterative solver exceeds its
// configured SolverTimeout. No partial weight vector accompanies it: partial
// optimizer iterates are not safe to expose.
var ErrOptimizerTimeout = errors.New("optimizer timed out")

// MalformedSeriesError reports a price series that violates the input
// contract: non-monotonic timestamps, duplicate days, or non-finite prices.
type MalformedSeriesError struct {
	Ticker string
	Detail string
}

func (e *MalformedSeriesError) Error() string {
	return fmt.Sprintf("malformed series %q: %s", e.Ticker, e.Detail)
}

// InsufficientDataError reports that too few aligned observations exist to
// estimate returns or covariance.
type InsufficientDataError struct {
	Observations int
	Needed       int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: %d aligned observations, need at least %d", e.Observations, e.Needed)
}

// IllConditionedCovarianceError reports a singular or near-singular
// covariance matrix. The optimizer refuses to produce weights from it
// rather than returning an unstable or NaN-containing vector.
type IllConditionedCovarianceError struct {
	Cond float64 // estimated condition number; +Inf when singular
}

func (e *IllConditionedCovarianceError) Error() string {
	return fmt.Sprintf("covariance matrix is ill-conditioned (cond=%.3g)", e.Cond)
}

// InfeasibleConstraintsError reports weight constraints that no portfolio
// can satisfy, e.g. bounds that cannot sum to one.
type InfeasibleConstraintsError struct {
	Detail string
}

func (e *InfeasibleConstraintsError) Error() string {
	return fmt.Sprintf("infeasible constraints: %s", e.Detail)
}

// BenchmarkMismatchError reports a benchmark series whose date range does
// not overlap the strategy returns sufficiently.
type BenchmarkMismatchError struct {
	Overlap int
	Needed  int
}

func (e *BenchmarkMismatchError) Error() string {
	return fmt.Sprintf("benchmark mismatch: %d overlapping observations, need at least %d", e.Overlap, e.Needed)
}
