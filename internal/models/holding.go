package models

import (
	"github.com/shopspring/decimal"
)

// PortfolioHolding is one position the user has logged.
// Symbol, Name and Category are copied from the catalog when the holding is
// written and are not refreshed afterwards.
type PortfolioHolding struct {
	ID            string          `json:"id"`
	AssetID       string          `json:"assetId"`
	Symbol        string          `json:"symbol"`
	Name          string          `json:"name"`
	Category      AssetCategory   `json:"category"`
	Quantity      decimal.Decimal `json:"quantity"`
	PurchasePrice decimal.Decimal `json:"purchasePrice"`
	PurchaseDate  string          `json:"purchaseDate,omitempty"`
	Notes         string          `json:"notes,omitempty"`
}

// HoldingInput is the payload accepted by the holdings upsert path.
// An empty ID creates a new holding; AssetID takes precedence over Symbol.
type HoldingInput struct {
	ID            string          `json:"id,omitempty"`
	AssetID       string          `json:"assetId,omitempty"`
	Symbol        string          `json:"symbol,omitempty"`
	Quantity      decimal.Decimal `json:"quantity"`
	PurchasePrice decimal.Decimal `json:"purchasePrice"`
	PurchaseDate  string          `json:"purchaseDate,omitempty"`
	Notes         string          `json:"notes,omitempty"`
}
