package indiaquant

import "fmt"

// AssetClass tags the broad kind of an asset.
type AssetClass string

const (
	Equity     AssetClass = "equity"
	MutualFund AssetClass = "mutual_fund"
	Index      AssetClass = "index"
)

// Asset identifies a tradable instrument. It is immutable after creation.
type Asset struct {
	ticker string
	class  AssetClass
}

// NewAsset creates an asset from a ticker symbol and a class tag.
func NewAsset(ticker string, class AssetClass) Asset {
	return Asset{ticker: ticker, class: class}
}

// Ticker returns the asset's ticker symbol.
func (a Asset) Ticker() string { return a.ticker }

// Class returns the asset's class tag.
func (a Asset) Class() AssetClass { return a.class }

func (a Asset) String() string { return fmt.Sprintf("%s (%s)", a.ticker, a.class) }
