package indiaquant

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestMarketRoundTrip(t *testing.T) {
	// prices spanning a year boundary land in two year files
	m := NewMarket()
	a, err := NewPriceSeries(NewAsset("AAA", Equity), []PricePoint{
		{On: NewDate(2023, time.December, 29), Price: 100},
		{On: NewDate(2023, time.December, 30), Price: 101},
		{On: NewDate(2024, time.January, 2), Price: 103},
	})
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewPriceSeries(NewAsset("BBB", MutualFund), []PricePoint{
		{On: NewDate(2024, time.January, 2), Price: 50.25},
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range []*PriceSeries{a, b} {
		if err := m.Add(s); err != nil {
			t.Fatal(err)
		}
	}

	folder := t.TempDir()
	definition := filepath.Join(folder, "market.jsonl")
	if err := EncodeMarket(definition, m); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"2023.jsonl", "2024.jsonl"} {
		if _, err := os.Stat(filepath.Join(folder, name)); err != nil {
			t.Errorf("year file %s not written: %v", name, err)
		}
	}

	got, err := DecodeMarket(definition)
	if err != nil {
		t.Fatal(err)
	}
	if tickers := got.Tickers(); len(tickers) != 2 {
		t.Fatalf("decoded %d tickers, want 2", len(tickers))
	}
	if got.Get("BBB").Asset().Class() != MutualFund {
		t.Error("asset class lost in the round trip")
	}
	s := got.Get("AAA")
	if s.Len() != 3 {
		t.Fatalf("AAA has %d points, want 3", s.Len())
	}
	if p, ok := s.Price(NewDate(2023, time.December, 30)); !ok || p != 101 {
		t.Errorf("AAA on 2023-12-30 = %v (%v), want 101", p, ok)
	}
	if p, ok := got.Get("BBB").Price(NewDate(2024, time.January, 2)); !ok || p != 50.25 {
		t.Errorf("BBB on 2024-01-02 = %v (%v), want 50.25", p, ok)
	}
}

func TestDecodeMissingMarket(t *testing.T) {
	m, err := DecodeMarket(filepath.Join(t.TempDir(), "market.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Tickers()) != 0 {
		t.Errorf("missing definition decoded %d tickers, want an empty market", len(m.Tickers()))
	}
}

func TestEncodeIsCanonical(t *testing.T) {
	folder := t.TempDir()
	definition := filepath.Join(folder, "market.jsonl")

	m := NewMarket()
	s, err := NewPriceSeries(NewAsset("AAA", Equity), []PricePoint{
		{On: NewDate(2024, time.March, 1), Price: 100},
		{On: NewDate(2024, time.March, 4), Price: 102},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Add(s); err != nil {
		t.Fatal(err)
	}
	if err := EncodeMarket(definition, m); err != nil {
		t.Fatal(err)
	}
	first, err := os.ReadFile(filepath.Join(folder, "2024.jsonl"))
	if err != nil {
		t.Fatal(err)
	}

	// decode and re-encode must reproduce the bytes
	decoded, err := DecodeMarket(definition)
	if err != nil {
		t.Fatal(err)
	}
	if err := EncodeMarket(definition, decoded); err != nil {
		t.Fatal(err)
	}
	second, err := os.ReadFile(filepath.Join(folder, "2024.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	if string(first) != string(second) {
		t.Errorf("re-encode changed the file:\n%s\nvs\n%s", first, second)
	}
	if !strings.HasPrefix(string(first), `{"on":"2024-03-01","AAA":100}`) {
		t.Errorf("price line format changed:\n%s", first)
	}
}

func TestEncodeRemovesStaleYearFiles(t *testing.T) {
	folder := t.TempDir()
	definition := filepath.Join(folder, "market.jsonl")
	stale := filepath.Join(folder, "1999.jsonl")
	if err := os.WriteFile(stale, []byte(`{"on":"1999-01-04","AAA":10}`+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	m := NewMarket()
	s, err := NewPriceSeries(NewAsset("AAA", Equity), []PricePoint{
		{On: NewDate(2024, time.March, 1), Price: 100},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Add(s); err != nil {
		t.Fatal(err)
	}
	if err := EncodeMarket(definition, m); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("stale year file survived the encode")
	}
}

func TestDecodeRejectsBadLines(t *testing.T) {
	write := func(t *testing.T, folder, definition, prices string) string {
		t.Helper()
		def := filepath.Join(folder, "market.jsonl")
		if err := os.WriteFile(def, []byte(definition), 0o644); err != nil {
			t.Fatal(err)
		}
		if prices != "" {
			if err := os.WriteFile(filepath.Join(folder, "2024.jsonl"), []byte(prices), 0o644); err != nil {
				t.Fatal(err)
			}
		}
		return def
	}

	tests := []struct {
		name       string
		definition string
		prices     string
	}{
		{
			"duplicate ticker",
			"{\"ticker\":\"AAA\",\"class\":\"equity\"}\n{\"ticker\":\"AAA\",\"class\":\"equity\"}\n",
			"",
		},
		{
			"undeclared ticker in prices",
			"{\"ticker\":\"AAA\",\"class\":\"equity\"}\n",
			"{\"on\":\"2024-03-01\",\"BBB\":10}\n",
		},
		{
			"missing date",
			"{\"ticker\":\"AAA\",\"class\":\"equity\"}\n",
			"{\"AAA\":10}\n",
		},
		{
			"price not a number",
			"{\"ticker\":\"AAA\",\"class\":\"equity\"}\n",
			"{\"on\":\"2024-03-01\",\"AAA\":\"ten\"}\n",
		},
		{
			"broken json",
			"{\"ticker\":\"AAA\",\"class\":\"equity\"}\n",
			"{\"on\":\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := write(t, t.TempDir(), tt.definition, tt.prices)
			if _, err := DecodeMarket(def); err == nil {
				t.Error("DecodeMarket accepted a malformed folder")
			}
		})
	}
}
