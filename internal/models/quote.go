package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceQuote is the current USD price and 24h percent change for an asset
type PriceQuote struct {
	AssetID     string          `json:"assetId"`
	Price       decimal.Decimal `json:"price"`
	Change24h   decimal.Decimal `json:"change24h"`
	LastUpdated time.Time       `json:"lastUpdated"`
}

// QuoteBatch is the result of one upstream fetch. Every quote in the batch
// carries FetchedAt as its LastUpdated.
type QuoteBatch struct {
	Quotes    []PriceQuote `json:"quotes"`
	FetchedAt time.Time    `json:"fetchedAt"`
}
