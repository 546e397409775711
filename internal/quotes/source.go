// Package quotes fetches market quotes from an upstream provider and keeps
// the last good result per asset set so callers always have something to
// value the portfolio with.
package quotes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/trogers1052/portfolio-tracker/internal/models"
)

// ErrUpstream marks failures talking to the quote provider: transport
// errors, non-2xx responses and undecodable payloads.
var ErrUpstream = errors.New("quote provider unavailable")

// ErrNoAssets is returned when ids were requested but none is a supported asset
var ErrNoAssets = errors.New("No valid asset identifiers provided.")

// Source fetches quotes for a set of asset ids. Ids missing from the
// upstream response are omitted from the batch, not padded.
type Source interface {
	Fetch(ctx context.Context, ids []string) (models.QuoteBatch, error)
}

// StaleError is returned together with the last good batch when a refresh
// failed. The batch is still usable.
type StaleError struct {
	Err       error
	FetchedAt time.Time
}

func (e *StaleError) Error() string {
	return fmt.Sprintf("serving quotes fetched at %s: %v", e.FetchedAt.Format(time.RFC3339), e.Err)
}

func (e *StaleError) Unwrap() error {
	return e.Err
}

// IsStale reports whether err only means the returned batch is out of date
func IsStale(err error) bool {
	var stale *StaleError
	return errors.As(err, &stale)
}

func emptyBatch(at time.Time) models.QuoteBatch {
	return models.QuoteBatch{Quotes: []models.PriceQuote{}, FetchedAt: at}
}
