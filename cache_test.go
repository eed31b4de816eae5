package indiaquant

import (
	"testing"
)

func TestCacheKey(t *testing.T) {
	if CacheKey("a", "b") != CacheKey("a", "b") {
		t.Error("identical parts hash to different keys")
	}
	if CacheKey("a", "b") == CacheKey("b", "a") {
		t.Error("part order does not change the key")
	}
	// part boundaries matter: ["ab"] and ["a","b"] are different inputs
	if CacheKey("ab") == CacheKey("a", "b") {
		t.Error("part boundaries do not change the key")
	}
	if len(CacheKey()) != 64 {
		t.Errorf("key length = %d, want a hex sha256", len(CacheKey()))
	}
}

func TestCacheReturns(t *testing.T) {
	market := testMarket(t, day0, map[string][]float64{
		"AAA": pricesFromReturns(100, 0.01, -0.01, 0.02),
	})
	e := NewEstimator(Daily)
	rm, err := e.Returns(market, []string{"AAA"}, Range{})
	if err != nil {
		t.Fatal(err)
	}

	c := NewCache()
	key := CacheKey("test")
	if _, ok := c.Returns(key); ok {
		t.Error("empty cache reported a hit")
	}
	c.PutReturns(key, rm)
	got, ok := c.Returns(key)
	if !ok || got != rm {
		t.Error("cached return matrix not returned as stored")
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
}

func TestCacheRefusesCancelledFrontier(t *testing.T) {
	c := NewCache()
	c.PutFrontier("partial", &Frontier{Cancelled: true})
	if _, ok := c.Frontier("partial"); ok {
		t.Error("cancelled frontier was cached")
	}
	c.PutFrontier("complete", &Frontier{})
	if _, ok := c.Frontier("complete"); !ok {
		t.Error("complete frontier was not cached")
	}
}

func TestReturnsOfMemoizes(t *testing.T) {
	market := testMarket(t, day0, map[string][]float64{
		"AAA": pricesFromReturns(100, 0.01, -0.01, 0.02),
		"BBB": pricesFromReturns(50, 0.00, 0.01, -0.01),
	})
	e := NewEstimator(Daily)
	c := NewCache()

	first, err := e.ReturnsOf(market, []string{"AAA", "BBB"}, Range{}, c)
	if err != nil {
		t.Fatal(err)
	}
	if c.Len() != 1 {
		t.Fatalf("Len = %d after first call, want 1", c.Len())
	}
	second, err := e.ReturnsOf(market, []string{"AAA", "BBB"}, Range{}, c)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Error("second call did not reuse the cached matrix")
	}

	// different settings miss the cache
	ewma := e
	ewma.Decay = 0.94
	third, err := ewma.ReturnsOf(market, []string{"AAA", "BBB"}, Range{}, c)
	if err != nil {
		t.Fatal(err)
	}
	if third == first {
		t.Error("different estimator settings hit the same cache entry")
	}

	// nil cache just computes
	if _, err := e.ReturnsOf(market, []string{"AAA"}, Range{}, nil); err != nil {
		t.Fatal(err)
	}
}
