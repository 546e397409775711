package portfolio

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/trogers1052/portfolio-tracker/internal/catalog"
	"github.com/trogers1052/portfolio-tracker/internal/models"
)

// Publisher announces portfolio changes. Implementations must not block for long.
type Publisher interface {
	PublishHoldingUpserted(ctx context.Context, h models.PortfolioHolding) error
	PublishHoldingDeleted(ctx context.Context, id string) error
	PublishPortfolioReset(ctx context.Context) error
}

// QuoteFetcher supplies quotes for the overview. On failure it should return
// whatever batch it still has (stale or empty) alongside the error.
type QuoteFetcher interface {
	Fetch(ctx context.Context, ids []string) (models.QuoteBatch, error)
}

// Service owns the portfolio. It is the single writer: every mutation
// builds a new State, persists it, then swaps it in.
type Service struct {
	mu        sync.RWMutex
	state     State
	store     Store
	quotes    QuoteFetcher
	publisher Publisher
	newID     func() string
	log       zerolog.Logger
}

// Config wires a Service
type Config struct {
	Store  Store
	Quotes QuoteFetcher
	// Publisher may be nil
	Publisher Publisher
	Log       zerolog.Logger
}

// NewService creates a Service and loads the persisted state. A document
// that cannot be loaded is logged and the portfolio starts empty.
func NewService(ctx context.Context, cfg Config) *Service {
	s := &Service{
		store:     cfg.Store,
		quotes:    cfg.Quotes,
		publisher: cfg.Publisher,
		newID:     uuid.NewString,
		log:       cfg.Log.With().Str("component", "portfolio").Logger(),
	}

	state, err := cfg.Store.Load(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to load portfolio, starting empty")
		state = State{}
	}
	s.state = state.clone()

	s.log.Info().Int("holdings", len(s.state.Holdings)).Msg("Portfolio loaded")
	return s
}

// Snapshot returns the current state
func (s *Service) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

// AssetIDs returns the distinct catalog asset ids currently held, in order of first appearance
func (s *Service) AssetIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return heldAssetIDs(s.state.Holdings)
}

func heldAssetIDs(holdings []models.PortfolioHolding) []string {
	ids := make([]string, 0, len(holdings))
	for _, h := range holdings {
		ids = append(ids, h.AssetID)
	}
	return catalog.Filter(ids)
}

// Upsert validates in and creates or fully replaces a holding.
// Symbol, name and category are copied from the catalog asset.
func (s *Service) Upsert(ctx context.Context, in models.HoldingInput) (models.PortfolioHolding, error) {
	asset, ok := resolveAsset(in)
	if !ok {
		return models.PortfolioHolding{}, ErrUnknownAsset
	}
	if !in.Quantity.IsPositive() {
		return models.PortfolioHolding{}, &ValidationError{Field: "quantity", Reason: "Enter a position size greater than zero."}
	}
	if !in.PurchasePrice.IsPositive() {
		return models.PortfolioHolding{}, &ValidationError{Field: "purchasePrice", Reason: "Enter the acquisition price per coin."}
	}

	id := strings.TrimSpace(in.ID)
	if id == "" {
		id = s.newID()
	}

	h := models.PortfolioHolding{
		ID:            id,
		AssetID:       asset.ID,
		Symbol:        asset.Symbol,
		Name:          asset.Name,
		Category:      asset.Category,
		Quantity:      in.Quantity,
		PurchasePrice: in.PurchasePrice,
		PurchaseDate:  strings.TrimSpace(in.PurchaseDate),
		Notes:         strings.TrimSpace(in.Notes),
	}

	if err := s.mutate(ctx, func(st State) (State, bool) {
		return st.withHolding(h), true
	}); err != nil {
		return models.PortfolioHolding{}, err
	}

	s.log.Info().Str("holding_id", h.ID).Str("asset", h.AssetID).Msg("Holding saved")
	if s.publisher != nil {
		if err := s.publisher.PublishHoldingUpserted(ctx, h); err != nil {
			s.log.Warn().Err(err).Str("holding_id", h.ID).Msg("Failed to publish holding upserted event")
		}
	}
	return h, nil
}

// Delete removes a holding. Deleting an unknown id is a no-op.
func (s *Service) Delete(ctx context.Context, id string) error {
	removed := false
	err := s.mutate(ctx, func(st State) (State, bool) {
		next, ok := st.withoutHolding(id)
		removed = ok
		return next, ok
	})
	if err != nil {
		return err
	}
	if !removed {
		return nil
	}

	s.log.Info().Str("holding_id", id).Msg("Holding deleted")
	if s.publisher != nil {
		if err := s.publisher.PublishHoldingDeleted(ctx, id); err != nil {
			s.log.Warn().Err(err).Str("holding_id", id).Msg("Failed to publish holding deleted event")
		}
	}
	return nil
}

// Reset clears every holding and the last sync time
func (s *Service) Reset(ctx context.Context) error {
	if err := s.mutate(ctx, func(State) (State, bool) {
		return State{}.clone(), true
	}); err != nil {
		return err
	}

	s.log.Info().Msg("Portfolio reset")
	if s.publisher != nil {
		if err := s.publisher.PublishPortfolioReset(ctx); err != nil {
			s.log.Warn().Err(err).Msg("Failed to publish portfolio reset event")
		}
	}
	return nil
}

// SetLastSync records when quotes were last fetched successfully. It only
// moves forward; a t no newer than the stored one is ignored without a save.
func (s *Service) SetLastSync(ctx context.Context, t time.Time) error {
	return s.mutate(ctx, func(st State) (State, bool) {
		return st.withLastSync(t)
	})
}

// mutate applies fn to the current state under the write lock. The new
// state is saved before it becomes visible; on a save error nothing changes.
func (s *Service) mutate(ctx context.Context, fn func(State) (State, bool)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, changed := fn(s.state)
	if !changed {
		return nil
	}
	if err := s.store.Save(ctx, next); err != nil {
		return fmt.Errorf("failed to save portfolio: %w", err)
	}
	s.state = next
	return nil
}

func resolveAsset(in models.HoldingInput) (models.AssetDescriptor, bool) {
	if id := strings.TrimSpace(in.AssetID); id != "" {
		return catalog.FindByID(id)
	}
	if in.Symbol != "" {
		return catalog.FindBySymbol(in.Symbol)
	}
	return models.AssetDescriptor{}, false
}
