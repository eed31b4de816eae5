package indiaquant

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const attrOn = "on"
const priceFilesGlob = "[0-9][0-9][0-9][0-9].jsonl"

// This file persists a Market in a folder, human-readable and
// git-friendly: a definition file listing the assets, one line per
// asset, next to one JSONL file per year holding the daily closes.
//
// Decode reads the definition file first, then every year file line by
// line. Encode writes assets in alphabetical ticker order and one price
// line per day with a stable field order, then removes year files that
// no longer hold any data.

// decodeAssets parses the asset definition file, one JSON object per
// line. filename is for error messages only.
func decodeAssets(filename string, r io.Reader) ([]Asset, error) {
	type jasset struct {
		Ticker string `json:"ticker"`
		Class  string `json:"class"`
	}

	var assets []Asset
	seen := make(map[string]bool)
	scanner := bufio.NewScanner(r)
	i := 0
	for scanner.Scan() {
		i++
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}
		var ja jasset
		if err := json.Unmarshal(line, &ja); err != nil {
			return nil, fmt.Errorf("format error in %s:%d: %w", filename, i, err)
		}
		if seen[ja.Ticker] {
			return nil, fmt.Errorf("format error in %s:%d: ticker %q is already defined", filename, i, ja.Ticker)
		}
		seen[ja.Ticker] = true
		assets = append(assets, NewAsset(ja.Ticker, AssetClass(ja.Class)))
	}
	return assets, scanner.Err()
}

// fileLine is one line of a persisted file, kept with its location for
// error messages.
type fileLine struct {
	filename string
	i        int
	txt      string
}

func loadLines(filenames ...string) ([]fileLine, error) {
	var list []fileLine
	for _, filename := range filenames {
		r, err := os.Open(filename)
		if err != nil {
			return nil, fmt.Errorf("cannot open %q for reading: %w", filename, err)
		}
		scanner := bufio.NewScanner(r)
		i := 0
		for scanner.Scan() {
			i++
			list = append(list, fileLine{filename, i, scanner.Text()})
		}
		err = scanner.Err()
		r.Close()
		if err != nil {
			return nil, fmt.Errorf("cannot read %q: %w", filename, err)
		}
	}
	return list, nil
}

// decodePriceLine parses one {"on": date, TICKER: price, ...} line into
// the per-ticker point lists.
func decodePriceLine(points map[string][]PricePoint, l fileLine) error {
	if strings.TrimSpace(l.txt) == "" {
		return nil
	}
	jobj := make(map[string]any)
	if err := json.Unmarshal([]byte(l.txt), &jobj); err != nil {
		return fmt.Errorf("parse error %s:%d: not a correct json: %w", l.filename, l.i, err)
	}
	jvalue, ok := jobj[attrOn]
	if !ok {
		return fmt.Errorf("parse error %s:%d: missing the property %q with a date", l.filename, l.i, attrOn)
	}
	jstring, ok := jvalue.(string)
	if !ok {
		return fmt.Errorf("parse error %s:%d: property %q must be of type 'string'", l.filename, l.i, attrOn)
	}
	on, err := ParseDate(jstring)
	if err != nil {
		return fmt.Errorf("parse error %s:%d: property %q must be a valid date: %w", l.filename, l.i, attrOn, err)
	}

	for ticker, price := range jobj {
		if ticker == attrOn {
			continue
		}
		p, ok := price.(float64)
		if !ok {
			return fmt.Errorf("parse error %s:%d: property %q must be of type 'number'", l.filename, l.i, ticker)
		}
		if _, exists := points[ticker]; !exists {
			return fmt.Errorf("parse error %s:%d: property %q must be a declared ticker", l.filename, l.i, ticker)
		}
		points[ticker] = append(points[ticker], PricePoint{On: on, Price: p})
	}
	return nil
}

// DecodeMarket reads a market folder identified by its definition file.
// A missing definition file yields an empty market.
func DecodeMarket(definitionFile string) (*Market, error) {
	m := NewMarket()

	f, err := os.Open(definitionFile)
	if err != nil {
		if os.IsNotExist(err) {
			return m, nil
		}
		return nil, fmt.Errorf("load error: cannot open market definition file %q: %w", definitionFile, err)
	}
	assets, err := decodeAssets(definitionFile, f)
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("load error: cannot read market definition file: %w", err)
	}

	folder := filepath.Dir(definitionFile)
	filenames, err := filepath.Glob(filepath.Join(folder, priceFilesGlob))
	if err != nil {
		return nil, fmt.Errorf("load error: cannot scan folder %q for price files: %w", folder, err)
	}
	sort.Strings(filenames)
	lines, err := loadLines(filenames...)
	if err != nil {
		return nil, err
	}

	points := make(map[string][]PricePoint, len(assets))
	for _, a := range assets {
		points[a.Ticker()] = nil
	}
	for _, line := range lines {
		if err := decodePriceLine(points, line); err != nil {
			return nil, err
		}
	}

	for _, a := range assets {
		pts := points[a.Ticker()]
		if len(pts) == 0 {
			continue // declared but not yet fetched
		}
		sort.Slice(pts, func(i, j int) bool { return pts[i].On.Before(pts[j].On) })
		series, err := NewPriceSeries(a, pts)
		if err != nil {
			return nil, fmt.Errorf("load error: %w", err)
		}
		if err := m.Add(series); err != nil {
			return nil, fmt.Errorf("load error: %w", err)
		}
	}
	return m, nil
}

// encodeAssets writes the asset definitions, one per line, in ticker
// order for stable output.
func encodeAssets(w io.Writer, assets []Asset) error {
	type jasset struct {
		Ticker string `json:"ticker"`
		Class  string `json:"class"`
	}
	for _, a := range assets {
		data, err := json.Marshal(jasset{Ticker: a.Ticker(), Class: string(a.Class())})
		if err != nil {
			return fmt.Errorf("persist error: cannot marshal asset %q: %w", a.Ticker(), err)
		}
		if _, err := w.Write(append(data, '\n')); err != nil {
			return fmt.Errorf("persist error: cannot write to file: %w", err)
		}
	}
	return nil
}

// encodePriceLine writes one day of closes with a stable field order.
func encodePriceLine(w io.Writer, day Date, tickers []string, prices []float64) error {
	var jw jsonObjectWriter
	jw.Append(attrOn, day.String())
	for i, ticker := range tickers {
		if math.IsNaN(prices[i]) {
			continue // no close for this ticker that day
		}
		jw.Append(ticker, prices[i])
	}
	b, err := jw.MarshalJSON()
	if err != nil {
		return err
	}
	_, err = w.Write(append(b, '\n'))
	return err
}

// EncodeMarket persists the market next to its definition file: the
// definitions themselves plus one JSONL price file per calendar year.
// Year files that no longer hold any data are removed.
func EncodeMarket(definitionFile string, m *Market) error {
	tickers := m.Tickers() // sorted
	assets := make([]Asset, 0, len(tickers))
	days := make(map[Date]bool)
	for _, ticker := range tickers {
		series := m.Get(ticker)
		assets = append(assets, series.Asset())
		for day := range series.Values() {
			days[day] = true
		}
	}

	folder := filepath.Dir(definitionFile)
	f, err := os.Create(definitionFile)
	if err != nil {
		return fmt.Errorf("persist error: cannot create file %q: %w", definitionFile, err)
	}
	defer f.Close()
	if err := encodeAssets(f, assets); err != nil {
		return err
	}

	calendar := make([]Date, 0, len(days))
	for day := range days {
		calendar = append(calendar, day)
	}
	sort.Slice(calendar, func(i, j int) bool { return calendar[i].Before(calendar[j]) })

	// group days by year file
	written := make(map[string]bool)
	var year *os.File
	var yearName string
	defer func() {
		if year != nil {
			year.Close()
		}
	}()
	prices := make([]float64, len(tickers))
	for _, day := range calendar {
		name := filepath.Join(folder, fmt.Sprintf("%d.jsonl", day.Year()))
		if name != yearName {
			if year != nil {
				year.Close()
			}
			if year, err = os.Create(name); err != nil {
				return fmt.Errorf("persist error: cannot create file %q: %w", name, err)
			}
			yearName = name
			written[name] = true
		}
		for i, ticker := range tickers {
			if p, ok := m.Get(ticker).Price(day); ok {
				prices[i] = p
			} else {
				prices[i] = math.NaN()
			}
		}
		if err := encodePriceLine(year, day, tickers, prices); err != nil {
			return fmt.Errorf("persist error: cannot write %q: %w", yearName, err)
		}
	}

	// remove year files not regenerated by this encode
	existing, err := filepath.Glob(filepath.Join(folder, priceFilesGlob))
	if err != nil {
		return fmt.Errorf("persist error: cannot scan folder %q: %w", folder, err)
	}
	for _, name := range existing {
		if !written[name] {
			if err := os.Remove(name); err != nil {
				return fmt.Errorf("persist error: cannot remove stale file %q: %w", name, err)
			}
		}
	}
	return nil
}
