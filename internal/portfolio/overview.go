package portfolio

import (
	"context"
	"time"

	"github.com/trogers1052/portfolio-tracker/internal/models"
	"github.com/trogers1052/portfolio-tracker/internal/quotes"
	"github.com/trogers1052/portfolio-tracker/internal/valuation"
)

// Overview is everything the dashboard renders for one refresh
type Overview struct {
	Holdings   []models.EnrichedHolding `json:"holdings"`
	Metrics    models.PortfolioMetrics  `json:"metrics"`
	FetchedAt  *time.Time               `json:"fetchedAt,omitempty"`
	LastSync   *time.Time               `json:"lastSync,omitempty"`
	QuoteError string                   `json:"quoteError,omitempty"`
	Stale      bool                     `json:"stale"`
}

// Overview values the current holdings with the latest quotes. Quote
// failures never block it: the last good quotes, or none, are used and the
// failure is reported in QuoteError.
func (s *Service) Overview(ctx context.Context) Overview {
	snap := s.Snapshot()
	ids := heldAssetIDs(snap.Holdings)

	var out Overview
	var batch models.QuoteBatch
	if len(ids) > 0 && s.quotes != nil {
		var err error
		batch, err = s.quotes.Fetch(ctx, ids)
		switch {
		case err == nil:
			t := batch.FetchedAt
			out.FetchedAt = &t
			if err := s.SetLastSync(ctx, t); err != nil {
				s.log.Warn().Err(err).Msg("Failed to record last sync")
			}
		case quotes.IsStale(err):
			t := batch.FetchedAt
			out.FetchedAt = &t
			out.Stale = true
			out.QuoteError = err.Error()
		default:
			out.QuoteError = err.Error()
		}
	}

	out.Holdings = valuation.Enrich(snap.Holdings, batch.Quotes)
	out.Metrics = valuation.Aggregate(out.Holdings)
	out.LastSync = s.Snapshot().LastSync
	return out
}
