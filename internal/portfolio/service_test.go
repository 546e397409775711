package portfolio

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/portfolio-tracker/internal/models"
	"github.com/trogers1052/portfolio-tracker/internal/quotes"
)

// memoryStore is an in-memory Store that can be told to fail
type memoryStore struct {
	mu      sync.Mutex
	state   State
	saves   int
	loadErr error
	saveErr error
}

func (m *memoryStore) Load(ctx context.Context) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return State{}, m.loadErr
	}
	return m.state.clone(), nil
}

func (m *memoryStore) Save(ctx context.Context, state State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.state = state.clone()
	return nil
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishHoldingUpserted(ctx context.Context, h models.PortfolioHolding) error {
	return m.Called(ctx, h).Error(0)
}

func (m *mockPublisher) PublishHoldingDeleted(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockPublisher) PublishPortfolioReset(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// stubQuotes returns a fixed batch and error
type stubQuotes struct {
	batch   models.QuoteBatch
	err     error
	lastIDs []string
}

func (s *stubQuotes) Fetch(ctx context.Context, ids []string) (models.QuoteBatch, error) {
	s.lastIDs = ids
	return s.batch, s.err
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func input(assetID, qty, price string) models.HoldingInput {
	return models.HoldingInput{AssetID: assetID, Quantity: d(qty), PurchasePrice: d(price)}
}

func newTestService(t *testing.T, store *memoryStore, q QuoteFetcher) *Service {
	t.Helper()
	s := NewService(context.Background(), Config{Store: store, Quotes: q, Log: zerolog.Nop()})
	n := 0
	s.newID = func() string {
		n++
		return "h" + string(rune('0'+n))
	}
	return s
}

func TestNewService_LoadFailureStartsEmpty(t *testing.T) {
	store := &memoryStore{loadErr: errors.New("corrupt")}
	s := newTestService(t, store, nil)

	snap := s.Snapshot()
	assert.Empty(t, snap.Holdings)
	assert.NotNil(t, snap.Holdings)
	assert.Nil(t, snap.LastSync)
}

func TestUpsert_CreatesHoldingFromCatalog(t *testing.T) {
	store := &memoryStore{}
	s := newTestService(t, store, nil)

	h, err := s.Upsert(context.Background(), models.HoldingInput{
		AssetID:       "bitcoin",
		Quantity:      d("0.5"),
		PurchasePrice: d("30000"),
		PurchaseDate:  " 2024-01-02 ",
		Notes:         "cold wallet",
	})
	require.NoError(t, err)

	assert.Equal(t, "h1", h.ID)
	assert.Equal(t, "BTC", h.Symbol)
	assert.Equal(t, "Bitcoin", h.Name)
	assert.Equal(t, models.CategoryLayer1, h.Category)
	assert.Equal(t, "2024-01-02", h.PurchaseDate)
	assert.Equal(t, "cold wallet", h.Notes)

	require.Len(t, store.state.Holdings, 1)
	assert.Equal(t, h, store.state.Holdings[0])
	assert.Equal(t, 1, store.saves)
}

func TestUpsert_ResolvesBySymbol(t *testing.T) {
	s := newTestService(t, &memoryStore{}, nil)

	h, err := s.Upsert(context.Background(), models.HoldingInput{
		Symbol:        "eth",
		Quantity:      d("2"),
		PurchasePrice: d("1800"),
	})
	require.NoError(t, err)
	assert.Equal(t, "ethereum", h.AssetID)
	assert.Equal(t, "ETH", h.Symbol)
}

func TestUpsert_Validation(t *testing.T) {
	tests := []struct {
		name    string
		in      models.HoldingInput
		wantErr error
		reason  string
	}{
		{name: "unknown asset", in: input("not-a-coin", "1", "1"), wantErr: ErrUnknownAsset},
		{name: "no asset", in: models.HoldingInput{Quantity: d("1"), PurchasePrice: d("1")}, wantErr: ErrUnknownAsset},
		{name: "zero quantity", in: input("bitcoin", "0", "1"), reason: "Enter a position size greater than zero."},
		{name: "negative quantity", in: input("bitcoin", "-1", "1"), reason: "Enter a position size greater than zero."},
		{name: "zero price", in: input("bitcoin", "1", "0"), reason: "Enter the acquisition price per coin."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &memoryStore{}
			s := newTestService(t, store, nil)

			_, err := s.Upsert(context.Background(), tt.in)
			require.Error(t, err)
			assert.True(t, IsValidation(err))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.Equal(t, tt.reason, err.Error())
			}
			assert.Empty(t, s.Snapshot().Holdings)
			assert.Zero(t, store.saves)
		})
	}
}

func TestUpsert_ReplacesInPlace(t *testing.T) {
	s := newTestService(t, &memoryStore{}, nil)
	ctx := context.Background()

	first, err := s.Upsert(ctx, input("bitcoin", "1", "100"))
	require.NoError(t, err)
	_, err = s.Upsert(ctx, input("ethereum", "2", "200"))
	require.NoError(t, err)

	in := input("solana", "3", "300")
	in.ID = first.ID
	_, err = s.Upsert(ctx, in)
	require.NoError(t, err)

	holdings := s.Snapshot().Holdings
	require.Len(t, holdings, 2)
	assert.Equal(t, first.ID, holdings[0].ID)
	assert.Equal(t, "solana", holdings[0].AssetID)
	assert.Equal(t, "SOL", holdings[0].Symbol)
	assert.Equal(t, "ethereum", holdings[1].AssetID)
}

func TestUpsert_UnknownIDIsAppended(t *testing.T) {
	s := newTestService(t, &memoryStore{}, nil)

	in := input("dogecoin", "1000", "0.1")
	in.ID = "imported-1"
	h, err := s.Upsert(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "imported-1", h.ID)
	assert.Len(t, s.Snapshot().Holdings, 1)
}

func TestUpsert_SaveFailureKeepsState(t *testing.T) {
	store := &memoryStore{saveErr: errors.New("disk full")}
	s := newTestService(t, store, nil)

	_, err := s.Upsert(context.Background(), input("bitcoin", "1", "1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to save portfolio")
	assert.False(t, IsValidation(err))
	assert.Empty(t, s.Snapshot().Holdings)
}

func TestSnapshot_IsIsolated(t *testing.T) {
	s := newTestService(t, &memoryStore{}, nil)
	_, err := s.Upsert(context.Background(), input("bitcoin", "1", "1"))
	require.NoError(t, err)

	snap := s.Snapshot()
	snap.Holdings[0].Symbol = "XXX"

	assert.Equal(t, "BTC", s.Snapshot().Holdings[0].Symbol)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	store := &memoryStore{}
	s := newTestService(t, store, nil)

	a, err := s.Upsert(ctx, input("bitcoin", "1", "1"))
	require.NoError(t, err)
	b, err := s.Upsert(ctx, input("ethereum", "1", "1"))
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, a.ID))
	holdings := s.Snapshot().Holdings
	require.Len(t, holdings, 1)
	assert.Equal(t, b.ID, holdings[0].ID)

	saves := store.saves
	require.NoError(t, s.Delete(ctx, "missing"))
	assert.Len(t, s.Snapshot().Holdings, 1)
	assert.Equal(t, saves, store.saves)
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t, &memoryStore{}, nil)

	_, err := s.Upsert(ctx, input("bitcoin", "1", "1"))
	require.NoError(t, err)
	require.NoError(t, s.SetLastSync(ctx, time.Now()))

	require.NoError(t, s.Reset(ctx))
	snap := s.Snapshot()
	assert.Empty(t, snap.Holdings)
	assert.Nil(t, snap.LastSync)
}

func TestPublishesEvents(t *testing.T) {
	ctx := context.Background()
	pub := new(mockPublisher)
	store := &memoryStore{}
	s := NewService(ctx, Config{Store: store, Publisher: pub, Log: zerolog.Nop()})
	s.newID = func() string { return "fixed" }

	pub.On("PublishHoldingUpserted", ctx, mock.MatchedBy(func(h models.PortfolioHolding) bool {
		return h.ID == "fixed" && h.AssetID == "bitcoin"
	})).Return(nil).Once()
	pub.On("PublishHoldingDeleted", ctx, "fixed").Return(errors.New("broker down")).Once()
	pub.On("PublishPortfolioReset", ctx).Return(nil).Once()

	_, err := s.Upsert(ctx, input("bitcoin", "1", "1"))
	require.NoError(t, err)

	// publish failures are logged, not returned
	require.NoError(t, s.Delete(ctx, "fixed"))
	require.NoError(t, s.Delete(ctx, "fixed"))
	require.NoError(t, s.Reset(ctx))

	pub.AssertExpectations(t)
}

func TestAssetIDs(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t, &memoryStore{}, nil)

	for _, id := range []string{"ethereum", "bitcoin", "ethereum"} {
		_, err := s.Upsert(ctx, input(id, "1", "1"))
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"ethereum", "bitcoin"}, s.AssetIDs())
}

func TestSetLastSync_OnlyMovesForward(t *testing.T) {
	ctx := context.Background()
	store := &memoryStore{}
	s := newTestService(t, store, nil)

	newer := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	older := newer.Add(-time.Minute)

	require.NoError(t, s.SetLastSync(ctx, newer))
	assert.Equal(t, 1, store.saves)

	require.NoError(t, s.SetLastSync(ctx, older))
	require.NoError(t, s.SetLastSync(ctx, newer))
	assert.Equal(t, 1, store.saves)

	snap := s.Snapshot()
	require.NotNil(t, snap.LastSync)
	assert.True(t, newer.Equal(*snap.LastSync))
}

func TestSetLastSync_ConcurrentKeepsLatest(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t, &memoryStore{}, nil)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, s.SetLastSync(ctx, base.Add(time.Duration(i)*time.Second)))
		}(i)
	}
	wg.Wait()

	snap := s.Snapshot()
	require.NotNil(t, snap.LastSync)
	assert.True(t, base.Add(49*time.Second).Equal(*snap.LastSync))
}

func TestOverview_FetchesIDsOfValuedHoldings(t *testing.T) {
	ctx := context.Background()
	q := &stubQuotes{batch: models.QuoteBatch{FetchedAt: time.Now(), Quotes: []models.PriceQuote{}}}
	s := newTestService(t, &memoryStore{}, q)
	s.newID = uuid.NewString
	_, err := s.Upsert(ctx, input("bitcoin", "1", "1"))
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			h, err := s.Upsert(ctx, input("solana", "1", "1"))
			if !assert.NoError(t, err) {
				return
			}
			if err := s.Delete(ctx, h.ID); !assert.NoError(t, err) {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		default:
		}
		ov := s.Overview(ctx)
		held := make([]string, 0, len(ov.Holdings))
		for _, h := range ov.Holdings {
			held = append(held, h.AssetID)
		}
		require.Equal(t, held, q.lastIDs)
	}
}

func TestOverview(t *testing.T) {
	ctx := context.Background()
	fetched := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	batch := models.QuoteBatch{
		FetchedAt: fetched,
		Quotes: []models.PriceQuote{
			{AssetID: "bitcoin", Price: d("40000"), Change24h: d("2"), LastUpdated: fetched},
		},
	}

	t.Run("empty portfolio skips fetch", func(t *testing.T) {
		q := &stubQuotes{batch: batch}
		s := newTestService(t, &memoryStore{}, q)

		ov := s.Overview(ctx)
		assert.Nil(t, q.lastIDs)
		assert.Empty(t, ov.Holdings)
		assert.True(t, ov.Metrics.TotalMarketValue.IsZero())
		assert.Nil(t, ov.FetchedAt)
		assert.Empty(t, ov.QuoteError)
	})

	t.Run("fresh quotes record last sync", func(t *testing.T) {
		q := &stubQuotes{batch: batch}
		s := newTestService(t, &memoryStore{}, q)
		_, err := s.Upsert(ctx, input("bitcoin", "0.5", "30000"))
		require.NoError(t, err)

		ov := s.Overview(ctx)
		assert.Equal(t, []string{"bitcoin"}, q.lastIDs)
		require.Len(t, ov.Holdings, 1)
		assert.True(t, ov.Holdings[0].MarketValue.Equal(d("20000")))
		assert.True(t, ov.Metrics.TotalMarketValue.Equal(d("20000")))
		assert.True(t, ov.Metrics.TotalCostBasis.Equal(d("15000")))
		require.NotNil(t, ov.FetchedAt)
		assert.True(t, fetched.Equal(*ov.FetchedAt))
		require.NotNil(t, ov.LastSync)
		assert.True(t, fetched.Equal(*ov.LastSync))
		assert.False(t, ov.Stale)
		assert.Empty(t, ov.QuoteError)
	})

	t.Run("older fetch keeps newer last sync", func(t *testing.T) {
		store := &memoryStore{}
		q := &stubQuotes{batch: batch}
		s := newTestService(t, store, q)
		_, err := s.Upsert(ctx, input("bitcoin", "0.5", "30000"))
		require.NoError(t, err)
		later := fetched.Add(time.Minute)
		require.NoError(t, s.SetLastSync(ctx, later))
		saves := store.saves

		ov := s.Overview(ctx)
		require.NotNil(t, ov.LastSync)
		assert.True(t, later.Equal(*ov.LastSync))
		assert.Equal(t, saves, store.saves)
	})

	t.Run("stale quotes are used and reported", func(t *testing.T) {
		q := &stubQuotes{batch: batch, err: &quotes.StaleError{Err: errors.New("timeout"), FetchedAt: fetched}}
		s := newTestService(t, &memoryStore{}, q)
		_, err := s.Upsert(ctx, input("bitcoin", "1", "30000"))
		require.NoError(t, err)

		ov := s.Overview(ctx)
		assert.True(t, ov.Stale)
		assert.NotEmpty(t, ov.QuoteError)
		assert.True(t, ov.Metrics.TotalMarketValue.Equal(d("40000")))
		assert.Nil(t, ov.LastSync)
	})

	t.Run("failure without quotes values at zero", func(t *testing.T) {
		q := &stubQuotes{batch: models.QuoteBatch{Quotes: []models.PriceQuote{}}, err: quotes.ErrUpstream}
		s := newTestService(t, &memoryStore{}, q)
		_, err := s.Upsert(ctx, input("bitcoin", "1", "30000"))
		require.NoError(t, err)

		ov := s.Overview(ctx)
		assert.Equal(t, quotes.ErrUpstream.Error(), ov.QuoteError)
		assert.Nil(t, ov.FetchedAt)
		require.Len(t, ov.Holdings, 1)
		assert.True(t, ov.Holdings[0].MarketValue.IsZero())
		assert.True(t, ov.Metrics.AbsoluteGain.Equal(d("-30000")))
	})
}
