package indiaquant

import (
	"errors"
	"math"
	"testing"
)

func almostEqual(a, b, tol float64) bool { return math.Abs(a-b) <= tol }

func TestTotalReturn(t *testing.T) {
	tests := []struct {
		name    string
		returns []float64
		want    float64
	}{
		{"empty", nil, 0},
		{"compounds", []float64{0.1, 0.1}, 0.21},
		{"round trip", []float64{0.25, -0.2}, 0},
		{"loss", []float64{-0.5}, -0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TotalReturn(tt.returns); !almostEqual(got, tt.want, 1e-12) {
				t.Errorf("TotalReturn = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAnnualizedReturn(t *testing.T) {
	// two periods at exactly one year: annualization is the identity
	if got := AnnualizedReturn([]float64{0.1, 0.1}, 2); !almostEqual(got, 0.21, 1e-12) {
		t.Errorf("AnnualizedReturn = %v, want 0.21", got)
	}
	// one period out of two per year compounds up
	if got := AnnualizedReturn([]float64{0.1}, 2); !almostEqual(got, 0.21, 1e-12) {
		t.Errorf("AnnualizedReturn = %v, want 0.21", got)
	}
	if got := AnnualizedReturn(nil, 252); !math.IsNaN(got) {
		t.Errorf("AnnualizedReturn on empty series = %v, want NaN", got)
	}
}

func TestVolatility(t *testing.T) {
	// sample std of [0.01, -0.01] is 0.01*sqrt(2)
	got := Volatility([]float64{0.01, -0.01}, 252)
	want := 0.01 * math.Sqrt2 * math.Sqrt(252)
	if !almostEqual(got, want, 1e-12) {
		t.Errorf("Volatility = %v, want %v", got, want)
	}
	if got := Volatility([]float64{0.01}, 252); !math.IsNaN(got) {
		t.Errorf("Volatility of one return = %v, want NaN", got)
	}
}

func TestSharpeRatio(t *testing.T) {
	if got := SharpeRatio([]float64{0.01, 0.01, 0.01}, 0, 252); !math.IsNaN(got) {
		t.Errorf("Sharpe of flat series = %v, want NaN", got)
	}
	got := SharpeRatio([]float64{0.02, 0.0}, 0, 252)
	want := 0.01 / (0.01 * math.Sqrt2) * math.Sqrt(252)
	if !almostEqual(got, want, 1e-9) {
		t.Errorf("Sharpe = %v, want %v", got, want)
	}
	// a positive risk-free rate lowers the ratio
	if withRF := SharpeRatio([]float64{0.02, 0.0}, 0.05, 252); withRF >= got {
		t.Errorf("Sharpe with risk-free %v not below %v", withRF, got)
	}
}

func TestSortinoRatio(t *testing.T) {
	if got := SortinoRatio([]float64{0.01, 0.02, 0.03}, 0, 252); !math.IsNaN(got) {
		t.Errorf("Sortino with no downside = %v, want NaN", got)
	}
	// downside deviation counts negatives over the full length
	returns := []float64{0.02, -0.01, 0.02, -0.01}
	dd := DownsideDeviation(returns, 0, 252)
	want := math.Sqrt(2 * 0.01 * 0.01 / 4)
	if !almostEqual(dd, want, 1e-12) {
		t.Errorf("DownsideDeviation = %v, want %v", dd, want)
	}
	got := SortinoRatio(returns, 0, 252)
	if !almostEqual(got, 0.005/dd*math.Sqrt(252), 1e-9) {
		t.Errorf("Sortino = %v", got)
	}
}

func TestMaxDrawdown(t *testing.T) {
	dates := make([]Date, 5)
	for i := range dates {
		dates[i] = day0.Add(i)
	}

	t.Run("single trough", func(t *testing.T) {
		dd := MaxDrawdown(dates, []float64{100, 120, 90, 95, 130})
		if !almostEqual(dd.Depth, 0.25, 1e-12) {
			t.Errorf("Depth = %v, want 0.25", dd.Depth)
		}
		if dd.Peak != dates[1] || dd.Trough != dates[2] {
			t.Errorf("drawdown dated %s to %s, want %s to %s", dd.Peak, dd.Trough, dates[1], dates[2])
		}
	})

	t.Run("monotone rise", func(t *testing.T) {
		dd := MaxDrawdown(dates, []float64{100, 110, 120, 130, 140})
		if dd.Depth != 0 {
			t.Errorf("Depth = %v, want 0", dd.Depth)
		}
		if dd.Peak != dd.Trough {
			t.Errorf("riseless drawdown has distinct dates %s and %s", dd.Peak, dd.Trough)
		}
	})

	t.Run("misaligned input", func(t *testing.T) {
		dd := MaxDrawdown(dates[:2], []float64{100, 90, 80})
		if !math.IsNaN(dd.Depth) {
			t.Errorf("Depth = %v, want NaN", dd.Depth)
		}
	})
}

func TestBeta(t *testing.T) {
	bench := []float64{0.01, -0.02, 0.03, -0.01}

	t.Run("double exposure", func(t *testing.T) {
		returns := make([]float64, len(bench))
		for i, b := range bench {
			returns[i] = 2 * b
		}
		beta, err := Beta(returns, bench)
		if err != nil {
			t.Fatal(err)
		}
		if !almostEqual(beta, 2, 1e-12) {
			t.Errorf("Beta = %v, want 2", beta)
		}
	})

	t.Run("length mismatch", func(t *testing.T) {
		_, err := Beta([]float64{0.01, 0.02}, bench)
		var mismatch *BenchmarkMismatchError
		if !errors.As(err, &mismatch) {
			t.Fatalf("error = %v, want BenchmarkMismatchError", err)
		}
		if mismatch.Overlap != 2 {
			t.Errorf("Overlap = %d, want 2", mismatch.Overlap)
		}
	})

	t.Run("flat benchmark", func(t *testing.T) {
		beta, err := Beta([]float64{0.01, 0.02, 0.03}, []float64{0.01, 0.01, 0.01})
		if err != nil {
			t.Fatal(err)
		}
		if !math.IsNaN(beta) {
			t.Errorf("Beta against flat benchmark = %v, want NaN", beta)
		}
	})
}

func TestAlpha(t *testing.T) {
	bench := []float64{0.01, -0.02, 0.03, -0.01}
	// returns = bench + constant edge: beta 1, alpha the annualized edge
	returns := make([]float64, len(bench))
	for i, b := range bench {
		returns[i] = b + 0.001
	}
	alpha, err := Alpha(returns, bench, 0, 252)
	if err != nil {
		t.Fatal(err)
	}
	if !almostEqual(alpha, 0.001*252, 1e-9) {
		t.Errorf("Alpha = %v, want %v", alpha, 0.001*252)
	}
}

func TestInformationRatio(t *testing.T) {
	bench := []float64{0.01, -0.02, 0.03, -0.01}
	t.Run("zero tracking error", func(t *testing.T) {
		ir, err := InformationRatio(bench, bench, 252)
		if err != nil {
			t.Fatal(err)
		}
		if !math.IsNaN(ir) {
			t.Errorf("InformationRatio of identical series = %v, want NaN", ir)
		}
	})
	t.Run("length mismatch", func(t *testing.T) {
		_, err := InformationRatio(bench[:2], bench, 252)
		var mismatch *BenchmarkMismatchError
		if !errors.As(err, &mismatch) {
			t.Errorf("error = %v, want BenchmarkMismatchError", err)
		}
	})
}

func TestValueAtRisk(t *testing.T) {
	returns := []float64{-0.05, -0.02, 0.0, 0.01, 0.02, 0.03, 0.04, 0.05, 0.06, 0.07}
	got := ValueAtRisk(returns, 0.95)
	if got <= 0 || got > 0.05 {
		t.Errorf("VaR95 = %v, want a loss in (0, 0.05]", got)
	}
	// all gains: no loss quantile
	if got := ValueAtRisk([]float64{0.01, 0.02, 0.03}, 0.95); got != 0 {
		t.Errorf("VaR of all-positive series = %v, want 0", got)
	}
	if got := ValueAtRisk(returns, 1.5); !math.IsNaN(got) {
		t.Errorf("VaR at confidence 1.5 = %v, want NaN", got)
	}
}

func TestNewPerformanceReport(t *testing.T) {
	dates := []Date{day0, day0.Add(1), day0.Add(2), day0.Add(3)}
	equity := []float64{100, 102, 101, 104}
	returns := []float64{0.02, -0.0098, 0.0297}

	t.Run("without benchmark", func(t *testing.T) {
		report, err := NewPerformanceReport(dates, equity, returns, nil, 0, 252)
		if err != nil {
			t.Fatal(err)
		}
		if !almostEqual(report.TotalReturn, TotalReturn(returns), 1e-12) {
			t.Errorf("TotalReturn = %v", report.TotalReturn)
		}
		if !math.IsNaN(report.Beta) || !math.IsNaN(report.Alpha) || !math.IsNaN(report.InformationRatio) {
			t.Error("benchmark-relative metrics must be NaN without a benchmark")
		}
	})

	t.Run("with benchmark", func(t *testing.T) {
		bench := []float64{0.01, -0.005, 0.015}
		report, err := NewPerformanceReport(dates, equity, returns, bench, 0, 252)
		if err != nil {
			t.Fatal(err)
		}
		if math.IsNaN(report.Beta) {
			t.Error("Beta is NaN with a benchmark present")
		}
	})

	t.Run("mismatched benchmark", func(t *testing.T) {
		_, err := NewPerformanceReport(dates, equity, returns, []float64{0.01}, 0, 252)
		var mismatch *BenchmarkMismatchError
		if !errors.As(err, &mismatch) {
			t.Errorf("error = %v, want BenchmarkMismatchError", err)
		}
	})
}
