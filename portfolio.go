package indiaquant

import (
	"fmt"
	"math"
	"slices"
)

// WeightTolerance is the tolerance within which portfolio weights must
// sum to one.
const WeightTolerance = 1e-9

// Portfolio is an allocation of weights over an ordered set of assets.
// Unless leverage is explicitly allowed, weights sum to one within
// WeightTolerance. A Portfolio is immutable after construction.
type Portfolio struct {
	assets   []Asset
	weights  []float64
	leverage bool
}

// NewPortfolio validates and builds a portfolio. Weights must be finite
// and sum to one within WeightTolerance unless allowLeverage is set, in
// which case any finite weights (including a cash residual or shorts) are
// accepted.
func NewPortfolio(assets []Asset, weights []float64, allowLeverage bool) (Portfolio, error) {
	if len(assets) != len(weights) {
		return Portfolio{}, fmt.Errorf("portfolio has %d assets but %d weights", len(assets), len(weights))
	}
	sum := 0.0
	for i, w := range weights {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return Portfolio{}, fmt.Errorf("weight for %s is not finite", assets[i].Ticker())
		}
		sum += w
	}
	if !allowLeverage && math.Abs(sum-1) > WeightTolerance {
		return Portfolio{}, fmt.Errorf("weights sum to %.12f, want 1 within %g", sum, WeightTolerance)
	}
	return Portfolio{
		assets:   slices.Clone(assets),
		weights:  slices.Clone(weights),
		leverage: allowLeverage,
	}, nil
}

// EqualWeight returns the uniform portfolio over the given assets.
func EqualWeight(assets []Asset) Portfolio {
	weights := make([]float64, len(assets))
	for i := range weights {
		weights[i] = 1 / float64(len(assets))
	}
	p, err := NewPortfolio(assets, weights, false)
	if err != nil {
		panic(err) // unreachable: uniform weights always sum to one
	}
	return p
}

// IsZero reports whether the portfolio is the empty zero value.
func (p Portfolio) IsZero() bool { return len(p.assets) == 0 }

// Assets returns a copy of the ordered asset list.
func (p Portfolio) Assets() []Asset { return slices.Clone(p.assets) }

// Weights returns a copy of the weight vector, in asset order.
func (p Portfolio) Weights() []float64 { return slices.Clone(p.weights) }

// Weight returns the weight for a ticker, zero when absent.
func (p Portfolio) Weight(ticker string) float64 {
	for i, a := range p.assets {
		if a.Ticker() == ticker {
			return p.weights[i]
		}
	}
	return 0
}

// Leveraged reports whether the portfolio was built with leverage allowed.
func (p Portfolio) Leveraged() bool { return p.leverage }

// ExpectedReturn returns muᵀw for an expected-return vector in asset order.
func (p Portfolio) ExpectedReturn(mu []float64) float64 {
	var ret float64
	for i, w := range p.weights {
		ret += w * mu[i]
	}
	return ret
}

// Variance returns wᵀΣw for a covariance matrix in asset order.
func (p Portfolio) Variance(cov *CovarianceMatrix) float64 {
	var v float64
	for i, wi := range p.weights {
		for j, wj := range p.weights {
			v += wi * wj * cov.At(i, j)
		}
	}
	return v
}

// Volatility returns sqrt(wᵀΣw).
func (p Portfolio) Volatility(cov *CovarianceMatrix) float64 {
	return math.Sqrt(p.Variance(cov))
}

func (p Portfolio) String() string {
	s := "{"
	for i, a := range p.assets {
		if i > 0 {
			s += " "
		}
		s += fmt.Sprintf("%s:%.4f", a.Ticker(), p.weights[i])
	}
	return s + "}"
}
