package indiaquant

import (
	"errors"
	"math"
	"testing"
)

func TestNewPriceSeriesRejectsMalformed(t *testing.T) {
	asset := NewAsset("AAA", Equity)
	tests := []struct {
		name   string
		points []PricePoint
	}{
		{"negative price", []PricePoint{{day0, 100}, {day0.Add(1), -5}}},
		{"zero price", []PricePoint{{day0, 0}}},
		{"nan price", []PricePoint{{day0, math.NaN()}}},
		{"unsorted dates", []PricePoint{{day0.Add(1), 100}, {day0, 101}}},
		{"duplicate dates", []PricePoint{{day0, 100}, {day0, 101}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPriceSeries(asset, tt.points)
			var malformed *MalformedSeriesError
			if !errors.As(err, &malformed) {
				t.Errorf("NewPriceSeries error = %v, want MalformedSeriesError", err)
			}
			if malformed != nil && malformed.Ticker != "AAA" {
				t.Errorf("error names ticker %q, want AAA", malformed.Ticker)
			}
		})
	}
}

func TestPriceLookup(t *testing.T) {
	s := testSeries(t, "AAA", day0, 100, 110, 120)

	if p, ok := s.Price(day0.Add(1)); !ok || p != 110 {
		t.Errorf("Price(day+1) = %v,%v want 110,true", p, ok)
	}
	if _, ok := s.Price(day0.Add(10)); ok {
		t.Error("Price on a missing day must not be found")
	}
	if p, ok := s.PriceAsOf(day0.Add(10)); !ok || p != 120 {
		t.Errorf("PriceAsOf(day+10) = %v,%v want 120,true", p, ok)
	}
	if _, ok := s.PriceAsOf(day0.Add(-1)); ok {
		t.Error("PriceAsOf before the first observation must not be found")
	}
}

func TestMarketAddAndMerge(t *testing.T) {
	m := NewMarket()
	if err := m.Add(testSeries(t, "AAA", day0, 100, 110)); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := m.Add(testSeries(t, "AAA", day0, 1, 2)); err == nil {
		t.Error("Add accepted a duplicate ticker")
	}

	// merge overlaps: the fresh observation wins
	fresh := testSeries(t, "AAA", day0.Add(1), 111, 121)
	if err := m.Merge(fresh); err != nil {
		t.Fatalf("Merge: %v", err)
	}
	s := m.Get("AAA")
	if s.Len() != 3 {
		t.Fatalf("merged series has %d points, want 3", s.Len())
	}
	if p, _ := s.Price(day0.Add(1)); p != 111 {
		t.Errorf("merged price = %v, want the fresh 111", p)
	}
	if p, _ := s.Price(day0); p != 100 {
		t.Errorf("merged price = %v, want the original 100", p)
	}
}

func TestMarketCalendarIntersection(t *testing.T) {
	m := NewMarket()
	if err := m.Add(testSeries(t, "AAA", day0, 100, 110, 120, 130)); err != nil {
		t.Fatal(err)
	}
	// BBB misses day0+1
	points := []PricePoint{{day0, 50}, {day0.Add(2), 52}, {day0.Add(3), 53}}
	bbb, err := NewPriceSeries(NewAsset("BBB", Equity), points)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Add(bbb); err != nil {
		t.Fatal(err)
	}

	calendar, err := m.Calendar([]string{"AAA", "BBB"}, Range{})
	if err != nil {
		t.Fatalf("Calendar: %v", err)
	}
	want := []Date{day0, day0.Add(2), day0.Add(3)}
	if len(calendar) != len(want) {
		t.Fatalf("calendar has %d days, want %d", len(calendar), len(want))
	}
	for i := range want {
		if calendar[i] != want[i] {
			t.Errorf("calendar[%d] = %v, want %v", i, calendar[i], want[i])
		}
	}

	if _, err := m.Calendar([]string{"AAA", "ZZZ"}, Range{}); err == nil {
		t.Error("Calendar accepted an unknown ticker")
	}
}

func TestMarketTruncatedHidesTheFuture(t *testing.T) {
	m := testMarket(t, day0, map[string][]float64{"AAA": {100, 110, 120, 130}})
	cut := day0.Add(1)
	view := m.Truncated(cut)

	if last := view.Get("AAA").Last(); last != cut {
		t.Errorf("truncated view ends at %v, want %v", last, cut)
	}
	if _, ok := view.Get("AAA").Price(day0.Add(2)); ok {
		t.Error("truncated view leaks a future price")
	}
	// the source market is untouched
	if m.Get("AAA").Len() != 4 {
		t.Error("truncation modified the source market")
	}
}

func TestTruncatedBetweenObservations(t *testing.T) {
	points := []PricePoint{{day0, 100}, {day0.Add(5), 110}}
	s, err := NewPriceSeries(NewAsset("AAA", Equity), points)
	if err != nil {
		t.Fatal(err)
	}
	view := s.truncated(day0.Add(3))
	if view.Len() != 1 || view.Last() != day0 {
		t.Errorf("truncated mid-gap keeps %d points ending %v, want 1 ending %v", view.Len(), view.Last(), day0)
	}
}

func TestAssetString(t *testing.T) {
	a := NewAsset("NIFTYBEES", MutualFund)
	if a.String() != "NIFTYBEES (mutual_fund)" {
		t.Errorf("String() = %q", a.String())
	}
}
