package valuation

import (
	"github.com/shopspring/decimal"
	"github.com/trogers1052/portfolio-tracker/internal/models"
)

// Aggregate summarizes a set of enriched holdings.
//
// Allocations list categories in order of first appearance. Top and worst
// performers are chosen by GainLossPercent; ties go to the holding that
// comes first in the input.
func Aggregate(holdings []models.EnrichedHolding) models.PortfolioMetrics {
	if len(holdings) == 0 {
		return models.PortfolioMetrics{
			TotalMarketValue:   decimal.Zero,
			TotalCostBasis:     decimal.Zero,
			AbsoluteGain:       decimal.Zero,
			RelativeGain:       decimal.Zero,
			DailyChangeValue:   decimal.Zero,
			DailyChangePercent: decimal.Zero,
			Allocations:        []models.Allocation{},
		}
	}

	totalMarketValue := decimal.Zero
	totalCostBasis := decimal.Zero
	dailyChangeValue := decimal.Zero
	for _, h := range holdings {
		totalMarketValue = totalMarketValue.Add(h.MarketValue)
		totalCostBasis = totalCostBasis.Add(h.CostBasis)
		dailyChangeValue = dailyChangeValue.Add(percentOf(h.MarketValue, h.Change24h))
	}
	absoluteGain := totalMarketValue.Sub(totalCostBasis)

	top, worst := performers(holdings)

	return models.PortfolioMetrics{
		TotalMarketValue:   totalMarketValue,
		TotalCostBasis:     totalCostBasis,
		AbsoluteGain:       absoluteGain,
		RelativeGain:       safeDiv(absoluteGain, totalCostBasis),
		DailyChangeValue:   dailyChangeValue,
		DailyChangePercent: safeDiv(dailyChangeValue, totalMarketValue),
		Allocations:        allocate(holdings, totalMarketValue),
		TopPerformer:       top,
		WorstPerformer:     worst,
	}
}

func allocate(holdings []models.EnrichedHolding, total decimal.Decimal) []models.Allocation {
	var order []models.AssetCategory
	values := make(map[models.AssetCategory]decimal.Decimal)
	for _, h := range holdings {
		v, ok := values[h.Category]
		if !ok {
			order = append(order, h.Category)
			v = decimal.Zero
		}
		values[h.Category] = v.Add(h.MarketValue)
	}

	out := make([]models.Allocation, 0, len(order))
	for _, c := range order {
		out = append(out, models.Allocation{
			Label:      c,
			Value:      values[c],
			Percentage: safeDiv(values[c], total),
		})
	}
	return out
}

// performers scans once for the extremes. Only a strictly better value
// replaces the current pick, which matches taking the first element of a
// stable sort.
func performers(holdings []models.EnrichedHolding) (top, worst *models.EnrichedHolding) {
	topIdx, worstIdx := 0, 0
	for i := 1; i < len(holdings); i++ {
		p := holdings[i].GainLossPercent
		if p.GreaterThan(holdings[topIdx].GainLossPercent) {
			topIdx = i
		}
		if p.LessThan(holdings[worstIdx].GainLossPercent) {
			worstIdx = i
		}
	}

	t, w := holdings[topIdx], holdings[worstIdx]
	return &t, &w
}
