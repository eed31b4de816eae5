package indiaquant

import (
	"fmt"
	"strings"
)

// Period is the sampling and rebalancing granularity of the engine.
type Period int

const (
	Daily Period = iota
	Weekly
	Monthly
)

func (p Period) String() string {
	switch p {
	case Daily:
		return "daily"
	case Weekly:
		return "weekly"
	case Monthly:
		return "monthly"
	default:
		return "periodic"
	}
}

// PeriodsPerYear returns the conventional annualization factor for the
// period (252 trading days, 52 weeks, 12 months). Estimators take the
// factor as an explicit parameter; this is only the conventional default.
func (p Period) PeriodsPerYear() float64 {
	switch p {
	case Daily:
		return 252
	case Weekly:
		return 52
	case Monthly:
		return 12
	default:
		panic(fmt.Sprintf("unknown period %d", p))
	}
}

// Range returns a Range spanning the period containing the date d.
func (p Period) Range(d Date) Range {
	return Range{From: d.StartOf(p), To: d.EndOf(p)}
}

// ParsePeriod parses a period name like "daily" or "month".
func ParsePeriod(s string) (Period, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "daily", "day":
		return Daily, nil
	case "weekly", "week":
		return Weekly, nil
	case "monthly", "month":
		return Monthly, nil
	default:
		return Daily, fmt.Errorf("unknown period %s", s)
	}
}
