package indiaquant

import (
	"errors"
	"fmt"
	"iter"
	"math"
	"slices"
)

// PricePoint is a single (day, price) observation supplied by a data
// ingestion collaborator.
type PricePoint struct {
	On    Date    `json:"on"`
	Price float64 `json:"price"`
}

// PriceSeries is the ordered history of prices for one asset. Timestamps
// are strictly increasing and prices are finite; both are validated at
// construction. A PriceSeries is immutable once built: consumers only ever
// get read access, so views can share the backing arrays.
type PriceSeries struct {
	asset  Asset
	days   []Date
	prices []float64
}

// NewPriceSeries validates and builds a price series. It returns a
// *MalformedSeriesError when timestamps are not strictly increasing or a
// price is not a finite positive number.
func NewPriceSeries(asset Asset, points []PricePoint) (*PriceSeries, error) {
	days := make([]Date, 0, len(points))
	prices := make([]float64, 0, len(points))
	for i, pt := range points {
		if math.IsNaN(pt.Price) || math.IsInf(pt.Price, 0) {
			return nil, &MalformedSeriesError{Ticker: asset.Ticker(), Detail: fmt.Sprintf("non-finite price on %s", pt.On)}
		}
		if pt.Price <= 0 {
			return nil, &MalformedSeriesError{Ticker: asset.Ticker(), Detail: fmt.Sprintf("non-positive price %g on %s", pt.Price, pt.On)}
		}
		if i > 0 && !days[i-1].Before(pt.On) {
			return nil, &MalformedSeriesError{Ticker: asset.Ticker(), Detail: fmt.Sprintf("timestamps not strictly increasing at %s", pt.On)}
		}
		days = append(days, pt.On)
		prices = append(prices, pt.Price)
	}
	return &PriceSeries{asset: asset, days: days, prices: prices}, nil
}

// Asset returns the asset this series belongs to.
func (s *PriceSeries) Asset() Asset { return s.asset }

// Len returns the number of observations.
func (s *PriceSeries) Len() int { return len(s.days) }

// First returns the first day of the series, or the zero date when empty.
func (s *PriceSeries) First() Date {
	if len(s.days) == 0 {
		return Date{}
	}
	return s.days[0]
}

// Last returns the last day of the series, or the zero date when empty.
func (s *PriceSeries) Last() Date {
	if len(s.days) == 0 {
		return Date{}
	}
	return s.days[len(s.days)-1]
}

// Values returns an iterator over all (day, price) pairs in chronological order.
func (s *PriceSeries) Values() iter.Seq2[Date, float64] {
	return func(yield func(Date, float64) bool) {
		for i, on := range s.days {
			if !yield(on, s.prices[i]) {
				return
			}
		}
	}
}

// search locates 'day' in the sorted days slice.
func (s *PriceSeries) search(day Date) (int, bool) {
	return slices.BinarySearchFunc(s.days, day, Date.Compare)
}

// Price returns the price observed exactly on 'day'.
func (s *PriceSeries) Price(day Date) (float64, bool) {
	if i, ok := s.search(day); ok {
		return s.prices[i], true
	}
	return 0, false
}

// PriceAsOf returns the price on 'day' or the most recent observation
// before it.
func (s *PriceSeries) PriceAsOf(day Date) (float64, bool) {
	i, found := s.search(day)
	if found {
		return s.prices[i], true
	}
	if i == 0 {
		return 0, false // no observation on or before that day
	}
	return s.prices[i-1], true
}

// truncated returns a view of the series with no observation after 'day'.
// The view shares the backing arrays: the series is immutable.
func (s *PriceSeries) truncated(day Date) *PriceSeries {
	i, found := s.search(day)
	if found {
		i++
	}
	return &PriceSeries{asset: s.asset, days: s.days[:i], prices: s.prices[:i]}
}

// Market is the price series store: the set of immutable historical price
// series the engine works from. It is loaded once per session; estimators,
// optimizers and simulators only ever read from it, so independent runs
// can share a Market freely.
type Market struct {
	series []*PriceSeries
	index  map[string]*PriceSeries
}

// NewMarket returns a new empty price series store.
func NewMarket() *Market {
	return &Market{index: make(map[string]*PriceSeries)}
}

// Add registers a series in the store. Adding a ticker twice is an error.
func (m *Market) Add(s *PriceSeries) error {
	ticker := s.Asset().Ticker()
	if _, ok := m.index[ticker]; ok {
		return fmt.Errorf("ticker %q is already defined", ticker)
	}
	m.series = append(m.series, s)
	m.index[ticker] = s
	return nil
}

// Merge combines a freshly fetched series with the store. An unknown
// ticker is added as-is; for a known one, new observations are unioned
// with the existing history and win on overlapping days.
func (m *Market) Merge(s *PriceSeries) error {
	ticker := s.Asset().Ticker()
	old, ok := m.index[ticker]
	if !ok {
		return m.Add(s)
	}
	byDay := make(map[Date]float64, old.Len()+s.Len())
	for on, p := range old.Values() {
		byDay[on] = p
	}
	for on, p := range s.Values() {
		byDay[on] = p
	}
	points := make([]PricePoint, 0, len(byDay))
	for on, p := range byDay {
		points = append(points, PricePoint{On: on, Price: p})
	}
	slices.SortFunc(points, func(a, b PricePoint) int { return a.On.Compare(b.On) })
	merged, err := NewPriceSeries(s.Asset(), points)
	if err != nil {
		return err
	}
	m.index[ticker] = merged
	for i, prev := range m.series {
		if prev == old {
			m.series[i] = merged
			break
		}
	}
	return nil
}

// Has reports whether a ticker is present.
func (m *Market) Has(ticker string) bool {
	_, ok := m.index[ticker]
	return ok
}

// Get returns the series for a ticker, or nil.
func (m *Market) Get(ticker string) *PriceSeries { return m.index[ticker] }

// Tickers returns all tickers in alphabetical order.
func (m *Market) Tickers() []string {
	tickers := make([]string, 0, len(m.series))
	for t := range m.index {
		tickers = append(tickers, t)
	}
	slices.Sort(tickers)
	return tickers
}

// Assets returns the assets for the given tickers, reporting every
// unknown ticker rather than only the first.
func (m *Market) Assets(tickers []string) ([]Asset, error) {
	assets := make([]Asset, len(tickers))
	var errs []error
	for i, t := range tickers {
		s, ok := m.index[t]
		if !ok {
			errs = append(errs, fmt.Errorf("unknown ticker %q", t))
			continue
		}
		assets[i] = s.Asset()
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return assets, nil
}

// Calendar returns the sorted trading days within rng on which every one
// of the given tickers has a price observation. This intersection calendar
// is what the simulator steps over.
func (m *Market) Calendar(tickers []string, rng Range) ([]Date, error) {
	if len(tickers) == 0 {
		return nil, nil
	}
	first, ok := m.index[tickers[0]]
	if !ok {
		return nil, fmt.Errorf("unknown ticker %q", tickers[0])
	}
	var days []Date
	for on := range first.Values() {
		if !rng.IsZero() && !rng.Contains(on) {
			continue
		}
		shared := true
		for _, t := range tickers[1:] {
			s, ok := m.index[t]
			if !ok {
				return nil, fmt.Errorf("unknown ticker %q", t)
			}
			if _, ok := s.Price(on); !ok {
				shared = false
				break
			}
		}
		if shared {
			days = append(days, on)
		}
	}
	return days, nil
}

// Truncated returns a view of the market containing no observation after
// 'day'. The simulator hands this view to strategies so they structurally
// cannot look ahead.
func (m *Market) Truncated(day Date) *Market {
	t := NewMarket()
	for _, s := range m.series {
		// Add cannot fail here: tickers are unique in the source market.
		_ = t.Add(s.truncated(day))
	}
	return t
}
