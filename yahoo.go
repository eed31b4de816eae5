package indiaquant

import (
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/piquette/finance-go/quote"
	"github.com/rs/zerolog"
)

// Yahoo Finance ingestion. NSE listings trade under their exchange
// suffix, so bare tickers are normalized before fetching.

// NormalizeTicker maps a ticker to its Yahoo Finance symbol. Equities and
// funds without an explicit exchange suffix get the NSE ".NS" suffix;
// indices (^NSEI, ^BSESN) and already-suffixed symbols pass through.
func NormalizeTicker(ticker string, class AssetClass) string {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if class == Index || strings.HasPrefix(ticker, "^") || strings.Contains(ticker, ".") {
		return ticker
	}
	return ticker + ".NS"
}

// YahooSource fetches daily closes and spot quotes from Yahoo Finance.
type YahooSource struct {
	Log zerolog.Logger

	client *http.Client
}

func NewYahooSource(log zerolog.Logger) *YahooSource {
	return &YahooSource{Log: log, client: dailyClient(log)}
}

// DailyHistory fetches the adjusted daily close series of one asset over
// a date range and packages it as a PriceSeries.
func (y *YahooSource) DailyHistory(asset Asset, rng Range) (*PriceSeries, error) {
	symbol := NormalizeTicker(asset.Ticker(), asset.Class())
	start := rng.From.Time()
	end := rng.To.Time().Add(24 * time.Hour) // chart end is exclusive

	params := &chart.Params{
		Symbol:   symbol,
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Interval: datetime.OneDay,
	}
	iter := chart.Get(params)

	var points []PricePoint
	for iter.Next() {
		bar := iter.Bar()
		px := bar.AdjClose.InexactFloat64()
		if px <= 0 || math.IsNaN(px) {
			continue // yahoo sometimes emits empty bars on holidays
		}
		on := NewDate(time.Unix(int64(bar.Timestamp), 0).UTC().Date())
		points = append(points, PricePoint{On: on, Price: px})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("fetching history for %s: %w", symbol, err)
	}
	if len(points) == 0 {
		return nil, &InsufficientDataError{Observations: 0, Needed: 1}
	}
	y.Log.Info().
		Str("symbol", symbol).
		Int("points", len(points)).
		Stringer("from", points[0].On).
		Stringer("to", points[len(points)-1].On).
		Msg("fetched daily history")
	return NewPriceSeries(asset, points)
}

// Spot fetches the latest traded price of one asset, falling back to the
// raw quote feed when the typed API yields nothing.
func (y *YahooSource) Spot(asset Asset) (float64, error) {
	symbol := NormalizeTicker(asset.Ticker(), asset.Class())
	q, err := quote.Get(symbol)
	if err == nil && q != nil && q.RegularMarketPrice > 0 {
		return q.RegularMarketPrice, nil
	}
	if err != nil {
		y.Log.Debug().Err(err).Str("symbol", symbol).Msg("quote API failed, trying raw feed")
	}
	return y.spotFallback(symbol)
}

// spotFallback reads the price straight out of the chart JSON feed.
func (y *YahooSource) spotFallback(symbol string) (float64, error) {
	addr := "https://query1.finance.yahoo.com/v8/finance/chart/" + symbol + "?interval=1d&range=1d"
	var jobj any
	if err := jwget(y.client, addr, &jobj); err != nil {
		return math.NaN(), fmt.Errorf("error in wget %q: %w", symbol, err)
	}
	path := "$.chart.result[0].meta.regularMarketPrice"
	jval, err := jsonpath.Get(path, jobj)
	if err != nil {
		return math.NaN(), fmt.Errorf("error parsing %q: %q %w", symbol, path, err)
	}
	// jsonpath may hand back a single answer or a list of one
	if jlist, ok := jval.([]any); ok && len(jlist) > 0 {
		jval = jlist[0]
	}
	val, ok := jval.(float64)
	if !ok {
		return math.NaN(), fmt.Errorf("error parsing %q: %q not a float: %v", symbol, path, jval)
	}
	return val, nil
}
