package indiaquant

import (
	"sort"
	"testing"
	"time"
)

// fixtures shared by the package tests

var day0 = NewDate(2024, time.January, 1)

// testSeries builds a series with one price per consecutive calendar day
// starting at 'start'.
func testSeries(t *testing.T, ticker string, start Date, prices ...float64) *PriceSeries {
	t.Helper()
	points := make([]PricePoint, len(prices))
	for i, p := range prices {
		points[i] = PricePoint{On: start.Add(i), Price: p}
	}
	s, err := NewPriceSeries(NewAsset(ticker, Equity), points)
	if err != nil {
		t.Fatalf("building series %s: %v", ticker, err)
	}
	return s
}

// testMarket builds a market from per-ticker price lists sharing the same
// start date.
func testMarket(t *testing.T, start Date, prices map[string][]float64) *Market {
	t.Helper()
	tickers := make([]string, 0, len(prices))
	for ticker := range prices {
		tickers = append(tickers, ticker)
	}
	sort.Strings(tickers)
	m := NewMarket()
	for _, ticker := range tickers {
		if err := m.Add(testSeries(t, ticker, start, prices[ticker]...)); err != nil {
			t.Fatalf("adding %s: %v", ticker, err)
		}
	}
	return m
}

// pricesFromReturns turns a start price and a daily return list into a
// price path.
func pricesFromReturns(start float64, returns ...float64) []float64 {
	prices := []float64{start}
	for _, r := range returns {
		prices = append(prices, prices[len(prices)-1]*(1+r))
	}
	return prices
}
