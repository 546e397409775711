package models

import (
	"github.com/shopspring/decimal"
)

// EnrichedHolding is a holding joined with its quote and derived figures
type EnrichedHolding struct {
	PortfolioHolding
	Price           decimal.Decimal `json:"price"`
	MarketValue     decimal.Decimal `json:"marketValue"`
	CostBasis       decimal.Decimal `json:"costBasis"`
	GainLoss        decimal.Decimal `json:"gainLoss"`
	GainLossPercent decimal.Decimal `json:"gainLossPercent"`
	Change24h       decimal.Decimal `json:"change24h"`
}

// Allocation is the share of market value held in one category
type Allocation struct {
	Label      AssetCategory   `json:"label"`
	Value      decimal.Decimal `json:"value"`
	Percentage decimal.Decimal `json:"percentage"`
}

// PortfolioMetrics aggregates a full set of enriched holdings.
// TopPerformer and WorstPerformer are nil for an empty portfolio.
type PortfolioMetrics struct {
	TotalMarketValue   decimal.Decimal  `json:"totalMarketValue"`
	TotalCostBasis     decimal.Decimal  `json:"totalCostBasis"`
	AbsoluteGain       decimal.Decimal  `json:"absoluteGain"`
	RelativeGain       decimal.Decimal  `json:"relativeGain"`
	DailyChangeValue   decimal.Decimal  `json:"dailyChangeValue"`
	DailyChangePercent decimal.Decimal  `json:"dailyChangePercent"`
	Allocations        []Allocation     `json:"allocations"`
	TopPerformer       *EnrichedHolding `json:"topPerformer,omitempty"`
	WorstPerformer     *EnrichedHolding `json:"worstPerformer,omitempty"`
}
