package quotes

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/trogers1052/portfolio-tracker/internal/models"
)

// Publisher announces refreshed quote batches
type Publisher interface {
	PublishQuotesRefreshed(ctx context.Context, batch models.QuoteBatch) error
}

// PollerConfig wires a Poller
type PollerConfig struct {
	Cache *Cache
	// Targets returns the asset ids to refresh, normally the held assets
	Targets func() []string
	// OnRefresh is called after every successful refresh, may be nil
	OnRefresh func(ctx context.Context, batch models.QuoteBatch)
	// Publisher may be nil
	Publisher Publisher
	Log       zerolog.Logger
}

// Poller refreshes quotes for the held assets. It is a scheduler job and is
// also run directly on manual refresh.
type Poller struct {
	cfg PollerConfig
	log zerolog.Logger
}

// NewPoller creates a poller
func NewPoller(cfg PollerConfig) *Poller {
	return &Poller{
		cfg: cfg,
		log: cfg.Log.With().Str("job", "quote-refresh").Logger(),
	}
}

// Name identifies the job
func (p *Poller) Name() string {
	return "quote-refresh"
}

// Run refreshes quotes once. Nothing is fetched when no assets are held.
func (p *Poller) Run(ctx context.Context) error {
	_, err := p.Refresh(ctx)
	return err
}

// Refresh refreshes quotes once and returns the batch. On upstream failure
// it returns the last good batch with a *StaleError, or an empty batch.
func (p *Poller) Refresh(ctx context.Context) (models.QuoteBatch, error) {
	ids := p.cfg.Targets()
	if len(ids) == 0 {
		p.log.Debug().Msg("No held assets, skipping quote refresh")
		return emptyBatch(p.cfg.Cache.now().UTC()), nil
	}

	batch, err := p.cfg.Cache.Refresh(ctx, ids)
	if err != nil {
		return batch, fmt.Errorf("failed to refresh quotes: %w", err)
	}

	p.log.Info().Int("assets", len(ids)).Int("quotes", len(batch.Quotes)).Msg("Quotes refreshed")

	if p.cfg.OnRefresh != nil {
		p.cfg.OnRefresh(ctx, batch)
	}
	if p.cfg.Publisher != nil {
		if err := p.cfg.Publisher.PublishQuotesRefreshed(ctx, batch); err != nil {
			p.log.Warn().Err(err).Msg("Failed to publish quotes refreshed event")
		}
	}
	return batch, nil
}
