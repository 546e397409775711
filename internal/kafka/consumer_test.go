package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/portfolio-tracker/internal/models"
)

type mockHoldings struct {
	mu      sync.Mutex
	upserts []models.HoldingInput
	deletes []string
	err     error
	called  chan struct{}
}

func (m *mockHoldings) Upsert(ctx context.Context, in models.HoldingInput) (models.PortfolioHolding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts = append(m.upserts, in)
	m.signal()
	if m.err != nil {
		return models.PortfolioHolding{}, m.err
	}
	return models.PortfolioHolding{ID: "new-id", AssetID: in.AssetID}, nil
}

func (m *mockHoldings) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes = append(m.deletes, id)
	m.signal()
	return m.err
}

func (m *mockHoldings) signal() {
	if m.called != nil {
		select {
		case m.called <- struct{}{}:
		default:
		}
	}
}

func (m *mockHoldings) Upserts() []models.HoldingInput {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.upserts
}

type mockReader struct {
	cfg  kafka.ReaderConfig
	msgs chan kafka.Message

	mu         sync.Mutex
	closeCalls int
}

func newMockReader(topic string, buffer int) *mockReader {
	return &mockReader{
		cfg:  kafka.ReaderConfig{Topic: topic},
		msgs: make(chan kafka.Message, buffer),
	}
}

func (r *mockReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case msg := <-r.msgs:
		return msg, nil
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (r *mockReader) Close() error {
	r.mu.Lock()
	r.closeCalls++
	r.mu.Unlock()
	return nil
}

func (r *mockReader) Config() kafka.ReaderConfig {
	return r.cfg
}

func (r *mockReader) CloseCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closeCalls
}

func commandMessage(t *testing.T, cmd models.HoldingCommand) kafka.Message {
	t.Helper()
	payload, err := json.Marshal(cmd)
	require.NoError(t, err)
	return kafka.Message{Value: payload}
}

func TestCommandConsumer_processMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("upsert", func(t *testing.T) {
		holdings := &mockHoldings{}
		consumer := &CommandConsumer{holdings: holdings, log: zerolog.Nop()}

		msg := kafka.Message{Value: []byte(`{
			"command": "UPSERT",
			"holding": {"assetId": "solana", "quantity": "12.5", "purchasePrice": "98.10", "notes": "ledger"}
		}`)}
		require.NoError(t, consumer.processMessage(ctx, msg))

		upserts := holdings.Upserts()
		require.Len(t, upserts, 1)
		assert.Equal(t, "solana", upserts[0].AssetID)
		assert.True(t, upserts[0].Quantity.Equal(decimal.RequireFromString("12.5")))
		assert.True(t, upserts[0].PurchasePrice.Equal(decimal.RequireFromString("98.10")))
		assert.Equal(t, "ledger", upserts[0].Notes)
	})

	t.Run("upsert without holding", func(t *testing.T) {
		consumer := &CommandConsumer{holdings: &mockHoldings{}, log: zerolog.Nop()}
		err := consumer.processMessage(ctx, commandMessage(t, models.HoldingCommand{Command: models.CommandUpsert}))
		assert.ErrorIs(t, err, errMissingHolding)
	})

	t.Run("upsert rejected", func(t *testing.T) {
		holdings := &mockHoldings{err: errors.New("invalid")}
		consumer := &CommandConsumer{holdings: holdings, log: zerolog.Nop()}

		err := consumer.processMessage(ctx, commandMessage(t, models.HoldingCommand{
			Command: models.CommandUpsert,
			Holding: &models.HoldingInput{AssetID: "bitcoin"},
		}))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to upsert holding")
	})

	t.Run("delete", func(t *testing.T) {
		holdings := &mockHoldings{}
		consumer := &CommandConsumer{holdings: holdings, log: zerolog.Nop()}

		require.NoError(t, consumer.processMessage(ctx, commandMessage(t, models.HoldingCommand{
			Command:   models.CommandDelete,
			HoldingID: "abc",
		})))
		assert.Equal(t, []string{"abc"}, holdings.deletes)
	})

	t.Run("delete without id", func(t *testing.T) {
		consumer := &CommandConsumer{holdings: &mockHoldings{}, log: zerolog.Nop()}
		err := consumer.processMessage(ctx, commandMessage(t, models.HoldingCommand{Command: models.CommandDelete}))
		assert.ErrorIs(t, err, errMissingHoldingID)
	})

	t.Run("unknown command is ignored", func(t *testing.T) {
		holdings := &mockHoldings{}
		consumer := &CommandConsumer{holdings: holdings, log: zerolog.Nop()}

		require.NoError(t, consumer.processMessage(ctx, commandMessage(t, models.HoldingCommand{Command: "RENAME"})))
		assert.Empty(t, holdings.upserts)
		assert.Empty(t, holdings.deletes)
	})

	t.Run("malformed payload", func(t *testing.T) {
		consumer := &CommandConsumer{holdings: &mockHoldings{}, log: zerolog.Nop()}
		err := consumer.processMessage(ctx, kafka.Message{Value: []byte("not json")})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to unmarshal holding command")
	})
}

func TestCommandConsumer_Start_skipsBadMessagesAndShutsDown(t *testing.T) {
	holdings := &mockHoldings{called: make(chan struct{}, 1)}
	reader := newMockReader("holding-commands", 2)
	consumer := &CommandConsumer{reader: reader, holdings: holdings, log: zerolog.Nop()}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- consumer.Start(ctx)
	}()

	reader.msgs <- kafka.Message{Value: []byte("{broken")}
	reader.msgs <- commandMessage(t, models.HoldingCommand{
		Command: models.CommandUpsert,
		Holding: &models.HoldingInput{AssetID: "ethereum", Quantity: decimal.NewFromInt(1), PurchasePrice: decimal.NewFromInt(2000)},
	})

	select {
	case <-holdings.called:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for command to be applied")
	}

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for consumer to shut down")
	}

	require.Len(t, holdings.Upserts(), 1)
	assert.Equal(t, "ethereum", holdings.Upserts()[0].AssetID)
	assert.Equal(t, 1, reader.CloseCalls())
}
