package valuation

import (
	"github.com/shopspring/decimal"
	"github.com/trogers1052/portfolio-tracker/internal/models"
)

// Enrich joins each holding with its quote by asset id.
//
// The result has one entry per holding in input order. A holding without a
// quote is valued at its purchase price with no 24h change. If several
// quotes share an asset id the last one wins.
func Enrich(holdings []models.PortfolioHolding, quotes []models.PriceQuote) []models.EnrichedHolding {
	byAsset := make(map[string]models.PriceQuote, len(quotes))
	for _, q := range quotes {
		byAsset[q.AssetID] = q
	}

	out := make([]models.EnrichedHolding, 0, len(holdings))
	for _, h := range holdings {
		out = append(out, enrichOne(h, byAsset))
	}
	return out
}

func enrichOne(h models.PortfolioHolding, byAsset map[string]models.PriceQuote) models.EnrichedHolding {
	price := h.PurchasePrice
	change := decimal.Zero
	if q, ok := byAsset[h.AssetID]; ok {
		price = q.Price
		change = q.Change24h
	}

	marketValue := price.Mul(h.Quantity)
	costBasis := h.PurchasePrice.Mul(h.Quantity)
	gainLoss := marketValue.Sub(costBasis)

	return models.EnrichedHolding{
		PortfolioHolding: h,
		Price:            price,
		MarketValue:      marketValue,
		CostBasis:        costBasis,
		GainLoss:         gainLoss,
		GainLossPercent:  safeDiv(gainLoss, costBasis),
		Change24h:        change,
	}
}
