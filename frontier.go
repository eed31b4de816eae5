package indiaquant

import (
	"context"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

// condLimit is the condition number beyond which a covariance matrix is
// rejected as ill-conditioned.
const condLimit = 1e12

// FrontierPoint is one optimal portfolio on the risk/return curve.
type FrontierPoint struct {
	Return     float64 // annualized expected return muᵀw
	Volatility float64 // annualized sqrt(wᵀΣw)
	Portfolio  Portfolio
}

// Sharpe returns the point's Sharpe ratio for a risk-free rate.
func (p FrontierPoint) Sharpe(riskFree float64) float64 {
	if p.Volatility == 0 {
		return math.NaN()
	}
	return (p.Return - riskFree) / p.Volatility
}

// Frontier is an efficient frontier: points ordered by ascending
// volatility. Cancelled marks a sweep stopped early by its context; the
// points computed so far are still valid.
type Frontier struct {
	Points      []FrontierPoint
	MinVariance FrontierPoint
	Cancelled   bool
}

// Optimizer solves constrained mean-variance problems. The solver is
// deterministic: identical inputs always produce identical weights. Among
// degenerate optima the strongly-convex solver converges to the unique
// minimum-norm solution, and the max-return vertex resolves ties by asset
// order.
type Optimizer struct {
	// Lower and Upper are per-asset weight bounds. Nil selects the
	// long-only defaults of 0 and 1.
	Lower, Upper []float64

	// RiskFree is the annualized risk-free rate used by the tangency
	// portfolio and Sharpe ratios.
	RiskFree float64

	// Points is the number of frontier points to sweep. Defaults to 20.
	Points int

	// SolverTimeout bounds each iterative solve. On expiry the solve
	// fails with ErrOptimizerTimeout and no weight vector is exposed.
	SolverTimeout time.Duration

	Log zerolog.Logger
}

// solver carries the validated problem state shared by one optimization
// call. It is built once per call and never mutated afterwards, so
// independent runs on the same inputs stay isolated.
type solver struct {
	mu       []float64
	sigma    *mat.SymDense
	lo, hi   []float64
	step     float64 // 1/(2*lambdaMax), the gradient step of the QP
	deadline time.Time
}

// newSolver validates constraints, gates on matrix conditioning, and
// prepares the shared solver state.
func (o *Optimizer) newSolver(mu []float64, cov *CovarianceMatrix) (*solver, error) {
	n := cov.Dim()
	if len(mu) != n {
		return nil, fmt.Errorf("expected returns vector has %d entries for %d assets", len(mu), n)
	}
	lo, hi := o.bounds(n)
	if len(lo) != n || len(hi) != n {
		return nil, &InfeasibleConstraintsError{Detail: fmt.Sprintf("bounds have %d/%d entries for %d assets", len(lo), len(hi), n)}
	}
	var sumLo, sumHi float64
	for i := 0; i < n; i++ {
		if lo[i] > hi[i] {
			return nil, &InfeasibleConstraintsError{Detail: fmt.Sprintf("lower bound %g above upper bound %g for asset %d", lo[i], hi[i], i)}
		}
		sumLo += lo[i]
		sumHi += hi[i]
	}
	if sumLo > 1+WeightTolerance || sumHi < 1-WeightTolerance {
		return nil, &InfeasibleConstraintsError{Detail: fmt.Sprintf("bounds sum to [%g, %g], cannot reach 1", sumLo, sumHi)}
	}

	// Conditioning gate: refuse singular or near-singular matrices rather
	// than producing unstable weights.
	var eig mat.EigenSym
	if !eig.Factorize(cov.sym, false) {
		return nil, &IllConditionedCovarianceError{Cond: math.Inf(1)}
	}
	vals := eig.Values(nil)
	lambdaMin, lambdaMax := vals[0], vals[0]
	for _, v := range vals[1:] {
		lambdaMin = math.Min(lambdaMin, v)
		lambdaMax = math.Max(lambdaMax, v)
	}
	if lambdaMin <= 0 || lambdaMax/lambdaMin > condLimit {
		cond := math.Inf(1)
		if lambdaMin > 0 {
			cond = lambdaMax / lambdaMin
		}
		return nil, &IllConditionedCovarianceError{Cond: cond}
	}

	s := &solver{
		mu:    slices.Clone(mu),
		sigma: cov.sym,
		lo:    lo,
		hi:    hi,
		step:  1 / (2 * lambdaMax),
	}
	if o.SolverTimeout > 0 {
		s.deadline = time.Now().Add(o.SolverTimeout)
	}
	return s, nil
}

func (o *Optimizer) bounds(n int) ([]float64, []float64) {
	lo, hi := o.Lower, o.Upper
	if lo == nil {
		lo = make([]float64, n) // long-only
	}
	if hi == nil {
		hi = make([]float64, n)
		for i := range hi {
			hi[i] = 1
		}
	}
	return slices.Clone(lo), slices.Clone(hi)
}

// MinVariance solves min wᵀΣw subject to the weight bounds and sum-to-one.
func (o *Optimizer) MinVariance(mu []float64, cov *CovarianceMatrix) (FrontierPoint, error) {
	s, err := o.newSolver(mu, cov)
	if err != nil {
		return FrontierPoint{}, err
	}
	w, err := s.solveQP(0, nil)
	if err != nil {
		return FrontierPoint{}, err
	}
	return s.point(cov.Assets(), w)
}

// MinVarianceAt solves the minimum-variance portfolio achieving a target
// expected return, the building block of the frontier sweep.
func (o *Optimizer) MinVarianceAt(target float64, mu []float64, cov *CovarianceMatrix) (FrontierPoint, error) {
	s, err := o.newSolver(mu, cov)
	if err != nil {
		return FrontierPoint{}, err
	}
	w, err := s.solveAtReturn(target)
	if err != nil {
		return FrontierPoint{}, err
	}
	return s.point(cov.Assets(), w)
}

// MaxSharpe solves for the tangency portfolio: the feasible portfolio
// maximizing (muᵀw − rf) / sqrt(wᵀΣw).
func (o *Optimizer) MaxSharpe(mu []float64, cov *CovarianceMatrix) (FrontierPoint, error) {
	s, err := o.newSolver(mu, cov)
	if err != nil {
		return FrontierPoint{}, err
	}
	w, err := s.maxSharpe(o.RiskFree)
	if err != nil {
		return FrontierPoint{}, err
	}
	return s.point(cov.Assets(), w)
}

// Frontier sweeps N evenly spaced target returns from the minimum-variance
// return to the maximum achievable return, collecting the points ordered by
// ascending volatility. Cancellation is cooperative and checked between
// points: a cancelled sweep returns the partial frontier with the
// Cancelled marker set, not an error.
func (o *Optimizer) Frontier(ctx context.Context, mu []float64, cov *CovarianceMatrix) (*Frontier, error) {
	s, err := o.newSolver(mu, cov)
	if err != nil {
		return nil, err
	}
	points := o.Points
	if points <= 0 {
		points = 20
	}

	wMin, err := s.solveQP(0, nil)
	if err != nil {
		return nil, err
	}
	assets := cov.Assets()
	minVar, err := s.point(assets, wMin)
	if err != nil {
		return nil, err
	}

	f := &Frontier{MinVariance: minVar}
	rLo := minVar.Return
	rHi := s.maxReturn()
	o.Log.Debug().
		Float64("return_low", rLo).
		Float64("return_high", rHi).
		Int("points", points).
		Msg("sweeping efficient frontier")

	for i := 0; i < points; i++ {
		if ctx.Err() != nil {
			f.Cancelled = true
			o.Log.Warn().Int("computed", len(f.Points)).Msg("frontier sweep cancelled")
			return f, nil
		}
		var w []float64
		var err error
		switch {
		case i == 0 || rHi-rLo < 1e-12:
			w = wMin
		case i == points-1:
			w = s.maxReturnWeights()
		default:
			target := rLo + (rHi-rLo)*float64(i)/float64(points-1)
			w, err = s.solveAtReturn(target)
			if err != nil {
				return nil, err
			}
		}
		pt, err := s.point(assets, w)
		if err != nil {
			return nil, err
		}
		f.Points = append(f.Points, pt)
	}

	slices.SortStableFunc(f.Points, func(a, b FrontierPoint) int {
		switch {
		case a.Volatility < b.Volatility:
			return -1
		case a.Volatility > b.Volatility:
			return 1
		default:
			return 0
		}
	})
	return f, nil
}

// point packages a weight vector into a FrontierPoint.
func (s *solver) point(assets []Asset, w []float64) (FrontierPoint, error) {
	p, err := NewPortfolio(assets, w, false)
	if err != nil {
		return FrontierPoint{}, fmt.Errorf("optimizer produced invalid weights: %w", err)
	}
	return FrontierPoint{
		Return:     dot(s.mu, w),
		Volatility: math.Sqrt(s.quadForm(w)),
		Portfolio:  p,
	}, nil
}

func dot(a, b []float64) float64 {
	var d float64
	for i := range a {
		d += a[i] * b[i]
	}
	return d
}

func (s *solver) quadForm(w []float64) float64 {
	var v float64
	n := len(w)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			v += w[i] * w[j] * s.sigma.At(i, j)
		}
	}
	return v
}

// grad computes the gradient of wᵀΣw − tau·muᵀw.
func (s *solver) grad(w []float64, tau float64, out []float64) {
	n := len(w)
	for i := 0; i < n; i++ {
		g := -tau * s.mu[i]
		for j := 0; j < n; j++ {
			g += 2 * s.sigma.At(i, j) * w[j]
		}
		out[i] = g
	}
}

// project computes the Euclidean projection onto the feasible set
// {w : sum(w)=1, lo ≤ w ≤ hi} by bisecting the dual variable of the
// sum constraint.
func (s *solver) project(v []float64) []float64 {
	n := len(v)
	lamLo, lamHi := v[0]-s.hi[0], v[0]-s.lo[0]
	for i := 1; i < n; i++ {
		lamLo = math.Min(lamLo, v[i]-s.hi[i])
		lamHi = math.Max(lamHi, v[i]-s.lo[i])
	}
	lamLo, lamHi = lamLo-1, lamHi+1

	clipSum := func(lam float64) float64 {
		var sum float64
		for i := 0; i < n; i++ {
			sum += math.Min(s.hi[i], math.Max(s.lo[i], v[i]-lam))
		}
		return sum
	}
	for k := 0; k < 100; k++ {
		mid := (lamLo + lamHi) / 2
		if clipSum(mid) > 1 {
			lamLo = mid
		} else {
			lamHi = mid
		}
	}
	lam := (lamLo + lamHi) / 2
	w := make([]float64, n)
	for i := 0; i < n; i++ {
		w[i] = math.Min(s.hi[i], math.Max(s.lo[i], v[i]-lam))
	}
	return w
}

// equalWeightStart is the fixed, deterministic starting point of every solve.
func (s *solver) equalWeightStart() []float64 {
	n := len(s.mu)
	w := make([]float64, n)
	for i := range w {
		w[i] = 1 / float64(n)
	}
	return s.project(w)
}

// solveQP minimizes wᵀΣw − tau·muᵀw over the feasible set with an
// accelerated projected-gradient method. tau=0 is the minimum-variance
// problem; growing tau traces the efficient frontier. The warm start w0
// only affects speed, never the solution: the objective is strictly convex.
func (s *solver) solveQP(tau float64, w0 []float64) ([]float64, error) {
	const (
		maxIter = 200000
		tol     = 1e-12
	)
	x := w0
	if x == nil {
		x = s.equalWeightStart()
	} else {
		x = s.project(x)
	}
	y := slices.Clone(x)
	t := 1.0
	g := make([]float64, len(x))
	scratch := make([]float64, len(x))

	for k := 0; k < maxIter; k++ {
		if k%512 == 0 && !s.deadline.IsZero() && time.Now().After(s.deadline) {
			return nil, ErrOptimizerTimeout
		}
		s.grad(y, tau, g)
		for i := range scratch {
			scratch[i] = y[i] - s.step*g[i]
		}
		xNew := s.project(scratch)

		if k%16 == 0 {
			// gradient-mapping optimality check at xNew
			s.grad(xNew, tau, g)
			for i := range scratch {
				scratch[i] = xNew[i] - s.step*g[i]
			}
			mapped := s.project(scratch)
			var diff float64
			for i := range mapped {
				diff = math.Max(diff, math.Abs(mapped[i]-xNew[i]))
			}
			if diff < tol {
				return xNew, nil
			}
		}

		tNew := (1 + math.Sqrt(1+4*t*t)) / 2
		for i := range y {
			y[i] = xNew[i] + (t-1)/tNew*(xNew[i]-x[i])
		}
		x, t = xNew, tNew
	}
	return x, nil
}

// maxReturnWeights solves max muᵀw over the feasible set exactly: start
// every asset at its lower bound and greedily assign the remaining mass by
// descending expected return, breaking ties by asset order.
func (s *solver) maxReturnWeights() []float64 {
	n := len(s.mu)
	w := slices.Clone(s.lo)
	mass := 1.0
	for i := range w {
		mass -= w[i]
	}
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		switch {
		case s.mu[a] > s.mu[b]:
			return -1
		case s.mu[a] < s.mu[b]:
			return 1
		default:
			return 0
		}
	})
	for _, i := range order {
		if mass <= 0 {
			break
		}
		add := math.Min(mass, s.hi[i]-s.lo[i])
		w[i] += add
		mass -= add
	}
	return w
}

func (s *solver) maxReturn() float64 { return dot(s.mu, s.maxReturnWeights()) }

// solveAtReturn finds the minimum-variance portfolio with muᵀw equal to
// the target, by bisecting the risk-tolerance parameter tau: the optimal
// return of solveQP is nondecreasing in tau.
func (s *solver) solveAtReturn(target float64) ([]float64, error) {
	wMin, err := s.solveQP(0, nil)
	if err != nil {
		return nil, err
	}
	rMin := dot(s.mu, wMin)
	rMax := s.maxReturn()
	span := math.Max(1e-12, rMax-rMin)
	if target <= rMin+1e-12*span {
		return wMin, nil
	}
	if target >= rMax-1e-12*span {
		return s.maxReturnWeights(), nil
	}

	// grow tau until the target return is bracketed
	tauHi := 1.0
	w := wMin
	for i := 0; i < 64; i++ {
		w, err = s.solveQP(tauHi, w)
		if err != nil {
			return nil, err
		}
		if dot(s.mu, w) >= target {
			break
		}
		tauHi *= 2
	}

	tauLo := 0.0
	for i := 0; i < 64; i++ {
		tau := (tauLo + tauHi) / 2
		w, err = s.solveQP(tau, w)
		if err != nil {
			return nil, err
		}
		r := dot(s.mu, w)
		if math.Abs(r-target) < 1e-9*span {
			return w, nil
		}
		if r < target {
			tauLo = tau
		} else {
			tauHi = tau
		}
	}
	return w, nil
}

// maxSharpe locates the tangency portfolio. Sharpe is unimodal along the
// efficient frontier, so it scans the sweep for the best region, refines
// it by golden-section search on the target return, and finally polishes
// the weights with a penalized Nelder-Mead pass, keeping the polished vector only
// when it is feasible and strictly better.
func (s *solver) maxSharpe(riskFree float64) ([]float64, error) {
	wMin, err := s.solveQP(0, nil)
	if err != nil {
		return nil, err
	}
	rMin := dot(s.mu, wMin)
	rMax := s.maxReturn()
	if rMax-rMin < 1e-12 {
		return wMin, nil // single feasible return level
	}

	sharpeOf := func(w []float64) float64 {
		vol := math.Sqrt(s.quadForm(w))
		if vol == 0 {
			return math.Inf(-1)
		}
		return (dot(s.mu, w) - riskFree) / vol
	}

	// coarse scan
	const scan = 33
	bestIdx, bestSharpe := 0, math.Inf(-1)
	bestW := wMin
	for i := 0; i < scan; i++ {
		target := rMin + (rMax-rMin)*float64(i)/float64(scan-1)
		w, err := s.solveAtReturn(target)
		if err != nil {
			return nil, err
		}
		if sh := sharpeOf(w); sh > bestSharpe {
			bestIdx, bestSharpe, bestW = i, sh, w
		}
	}

	// golden-section refinement around the best scanned target
	lo := rMin + (rMax-rMin)*float64(max(0, bestIdx-1))/float64(scan-1)
	hi := rMin + (rMax-rMin)*float64(min(scan-1, bestIdx+1))/float64(scan-1)
	const invPhi = 0.6180339887498949
	a, b := lo, hi
	x1 := b - invPhi*(b-a)
	x2 := a + invPhi*(b-a)
	w1, err := s.solveAtReturn(x1)
	if err != nil {
		return nil, err
	}
	w2, err := s.solveAtReturn(x2)
	if err != nil {
		return nil, err
	}
	f1, f2 := sharpeOf(w1), sharpeOf(w2)
	for i := 0; i < 40 && b-a > 1e-11*(rMax-rMin); i++ {
		if f1 > f2 {
			b, x2, f2, w2 = x2, x1, f1, w1
			x1 = b - invPhi*(b-a)
			if w1, err = s.solveAtReturn(x1); err != nil {
				return nil, err
			}
			f1 = sharpeOf(w1)
		} else {
			a, x1, f1, w1 = x1, x2, f2, w2
			x2 = a + invPhi*(b-a)
			if w2, err = s.solveAtReturn(x2); err != nil {
				return nil, err
			}
			f2 = sharpeOf(w2)
		}
	}
	for _, w := range [][]float64{w1, w2} {
		if sh := sharpeOf(w); sh > bestSharpe {
			bestSharpe, bestW = sh, w
		}
	}

	// penalized Nelder-Mead polish; accept only strict improvement
	if polished := s.polishSharpe(bestW, riskFree); polished != nil {
		if sh := sharpeOf(polished); sh > bestSharpe {
			bestW = polished
		}
	}
	return bestW, nil
}

// polishSharpe runs a penalized Nelder-Mead pass on the negative Sharpe
// ratio and projects the result back onto the feasible set. Any failure
// simply yields nil: the caller keeps the frontier-search solution.
func (s *solver) polishSharpe(w0 []float64, riskFree float64) []float64 {
	const penalty = 1e4
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			w := s.project(x)
			vol := math.Sqrt(math.Max(s.quadForm(w), 1e-18))
			obj := -(dot(s.mu, w) - riskFree) / vol
			var sum float64
			for _, v := range x {
				sum += v
			}
			return obj + penalty*(sum-1)*(sum-1)
		},
	}
	settings := &optimize.Settings{FuncEvaluations: 8000}
	result, err := optimize.Minimize(problem, slices.Clone(w0), settings, &optimize.NelderMead{})
	if err != nil || result == nil {
		return nil
	}
	return s.project(result.X)
}
