package indiaquant

import (
	"errors"
	"math"
	"testing"
)

func TestReturnsSimpleAndLog(t *testing.T) {
	m := testMarket(t, day0, map[string][]float64{"AAA": {100, 110, 121}})

	e := NewEstimator(Daily)
	rm, err := e.Returns(m, []string{"AAA"}, Range{})
	if err != nil {
		t.Fatalf("Returns: %v", err)
	}
	got := rm.Series(0)
	want := []float64{0.1, 0.1}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Errorf("simple return[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	e.Compounding = LogReturns
	rm, err = e.Returns(m, []string{"AAA"}, Range{})
	if err != nil {
		t.Fatalf("Returns(log): %v", err)
	}
	got = rm.Series(0)
	for i := range got {
		if math.Abs(got[i]-math.Log(1.1)) > 1e-12 {
			t.Errorf("log return[%d] = %v, want ln(1.1)", i, got[i])
		}
	}
}

func TestReturnsInsufficientData(t *testing.T) {
	m := testMarket(t, day0, map[string][]float64{"AAA": {100, 110}})
	e := NewEstimator(Daily)
	_, err := e.Returns(m, []string{"AAA"}, Range{})
	var insufficient *InsufficientDataError
	if !errors.As(err, &insufficient) {
		t.Fatalf("Returns error = %v, want InsufficientDataError", err)
	}
	if insufficient.Observations >= insufficient.Needed {
		t.Errorf("error reports %d observations for %d needed", insufficient.Observations, insufficient.Needed)
	}
}

func TestAnnualizationIsExplicit(t *testing.T) {
	m := testMarket(t, day0, map[string][]float64{"AAA": {100, 110, 121}})
	e := Estimator{Period: Daily} // no annualization factor set
	if _, err := e.Returns(m, []string{"AAA"}, Range{}); err == nil {
		t.Error("estimator accepted a zero annualization factor")
	}
}

func TestMeanReturnsAnnualized(t *testing.T) {
	m := testMarket(t, day0, map[string][]float64{"AAA": {100, 110, 121}})
	e := NewEstimator(Daily)
	e.Annualization = 10
	rm, err := e.Returns(m, []string{"AAA"}, Range{})
	if err != nil {
		t.Fatal(err)
	}
	mu := rm.MeanReturns()
	if math.Abs(mu[0]-0.1*10) > 1e-12 {
		t.Errorf("MeanReturns = %v, want 1.0 with annualization 10", mu[0])
	}
}

func TestMissingDataPolicies(t *testing.T) {
	m := NewMarket()
	if err := m.Add(testSeries(t, "AAA", day0, 100, 101, 102, 103, 104)); err != nil {
		t.Fatal(err)
	}
	// BBB has no close on day0+2
	points := []PricePoint{
		{day0, 50}, {day0.Add(1), 51}, {day0.Add(3), 53}, {day0.Add(4), 54},
	}
	bbb, err := NewPriceSeries(NewAsset("BBB", Equity), points)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Add(bbb); err != nil {
		t.Fatal(err)
	}

	drop := NewEstimator(Daily)
	rm, err := drop.Returns(m, []string{"AAA", "BBB"}, Range{})
	if err != nil {
		t.Fatal(err)
	}
	if rm.Len() != 3 { // 4 shared dates, 3 returns
		t.Errorf("DropMissing kept %d returns, want 3", rm.Len())
	}

	fill := NewEstimator(Daily)
	fill.Fill = ForwardFill
	rm, err = fill.Returns(m, []string{"AAA", "BBB"}, Range{})
	if err != nil {
		t.Fatal(err)
	}
	if rm.Len() != 4 { // the gap is carried forward
		t.Errorf("ForwardFill kept %d returns, want 4", rm.Len())
	}
	bs, _ := rm.SeriesByTicker("BBB")
	if bs[1] != 0 { // 51 carried forward: zero return into the gap
		t.Errorf("filled return = %v, want 0", bs[1])
	}

	// a cap of zero consecutive fills behaves like DropMissing
	capped := NewEstimator(Daily)
	capped.Fill = ForwardFill
	capped.FillLimit = 0
	rm, err = capped.Returns(m, []string{"AAA", "BBB"}, Range{})
	if err != nil {
		t.Fatal(err)
	}
	if rm.Len() != 3 {
		t.Errorf("FillLimit 0 kept %d returns, want 3", rm.Len())
	}
}

func TestCovarianceProperties(t *testing.T) {
	m := testMarket(t, day0, map[string][]float64{
		"AAA": pricesFromReturns(100, 0.01, -0.02, 0.03, -0.01, 0.02, 0.01, -0.03),
		"BBB": pricesFromReturns(50, -0.01, 0.01, 0.02, 0.02, -0.02, 0.00, 0.01),
	})

	for _, decay := range []float64{0, 0.94} {
		e := NewEstimator(Daily)
		e.Decay = decay
		rm, err := e.Returns(m, []string{"AAA", "BBB"}, Range{})
		if err != nil {
			t.Fatal(err)
		}
		cov, err := e.Covariance(rm)
		if err != nil {
			t.Fatal(err)
		}
		for i := 0; i < cov.Dim(); i++ {
			if cov.Variance(i) < 0 {
				t.Errorf("decay %v: variance[%d] = %v, must be non-negative", decay, i, cov.Variance(i))
			}
			for j := 0; j < cov.Dim(); j++ {
				if cov.At(i, j) != cov.At(j, i) {
					t.Errorf("decay %v: matrix not symmetric at (%d,%d)", decay, i, j)
				}
			}
		}
	}
}

func TestEWMAWeightsRecentObservations(t *testing.T) {
	// volatility concentrated in the most recent days must push the EWMA
	// variance above the sample variance
	m := testMarket(t, day0, map[string][]float64{
		"AAA": pricesFromReturns(100, 0.001, -0.001, 0.001, -0.001, 0.001, 0.05, -0.05, 0.05),
		"BBB": pricesFromReturns(50, 0.002, 0.001, -0.002, 0.001, -0.001, 0.01, -0.02, 0.015),
	})

	sample := NewEstimator(Daily)
	rm, err := sample.Returns(m, []string{"AAA", "BBB"}, Range{})
	if err != nil {
		t.Fatal(err)
	}
	sampleCov, err := sample.Covariance(rm)
	if err != nil {
		t.Fatal(err)
	}

	ewma := NewEstimator(Daily)
	ewma.Decay = 0.8
	ewmaCov, err := ewma.Covariance(rm)
	if err != nil {
		t.Fatal(err)
	}

	if ewmaCov.Variance(0) <= sampleCov.Variance(0) {
		t.Errorf("EWMA variance %v not above sample variance %v despite recent volatility",
			ewmaCov.Variance(0), sampleCov.Variance(0))
	}
}

func TestEstimatorValidation(t *testing.T) {
	m := testMarket(t, day0, map[string][]float64{"AAA": {100, 101, 102}})
	e := NewEstimator(Daily)
	e.Decay = 1.0 // not allowed, weights would never decay
	if _, err := e.Returns(m, []string{"AAA"}, Range{}); err == nil {
		t.Error("estimator accepted decay 1.0")
	}
	e = NewEstimator(Daily)
	if _, err := e.Returns(m, []string{"AAA", "GHOST"}, Range{}); err == nil {
		t.Error("estimator accepted an unknown ticker")
	}
}

func TestCorrelationDiagonal(t *testing.T) {
	m := testMarket(t, day0, map[string][]float64{
		"AAA": pricesFromReturns(100, 0.01, -0.02, 0.03, -0.01),
		"BBB": pricesFromReturns(50, -0.01, 0.01, 0.02, 0.02),
	})
	e := NewEstimator(Daily)
	rm, err := e.Returns(m, []string{"AAA", "BBB"}, Range{})
	if err != nil {
		t.Fatal(err)
	}
	cov, err := e.Covariance(rm)
	if err != nil {
		t.Fatal(err)
	}
	corr := cov.Correlation()
	for i := 0; i < 2; i++ {
		if math.Abs(corr.At(i, i)-1) > 1e-9 {
			t.Errorf("corr[%d][%d] = %v, want 1", i, i, corr.At(i, i))
		}
	}
	if off := corr.At(0, 1); off < -1-1e-9 || off > 1+1e-9 {
		t.Errorf("corr[0][1] = %v, out of [-1,1]", off)
	}
}
