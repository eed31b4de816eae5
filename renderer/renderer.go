// Package renderer turns engine results into markdown reports. Every
// renderer returns a plain markdown string; callers decide whether to
// print it raw or through a terminal renderer.
package renderer

import (
	"fmt"
	"math"

	"github.com/varun18-code/indiaquant"
)

// pct formats a fraction as a percentage, or "n/a" when the value is
// undefined.
func pct(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return indiaquant.Percent(v * 100).String()
}

// num formats a ratio with two decimals, or "n/a" when undefined.
func num(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", v)
}

// weight formats a portfolio weight, hiding the noise below a hundredth
// of a percent.
func weight(v float64) string {
	if math.Abs(v) < 1e-4 {
		return "-"
	}
	return indiaquant.Percent(v * 100).String()
}
