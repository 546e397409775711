package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/trogers1052/portfolio-tracker/internal/models"
)

// HoldingWriter applies holding commands to the portfolio
type HoldingWriter interface {
	Upsert(ctx context.Context, in models.HoldingInput) (models.PortfolioHolding, error)
	Delete(ctx context.Context, id string) error
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
	Config() kafka.ReaderConfig
}

// CommandConsumer applies holding commands from an import feed
type CommandConsumer struct {
	reader   messageReader
	holdings HoldingWriter
	log      zerolog.Logger
}

// NewCommandConsumer creates a new Kafka consumer for holding commands
func NewCommandConsumer(brokers []string, topic, groupID string, holdings HoldingWriter, log zerolog.Logger) *CommandConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       1e6, // 1MB
		MaxWait:        1 * time.Second,
		StartOffset:    kafka.FirstOffset,
		CommitInterval: time.Second,
	})

	return &CommandConsumer{
		reader:   reader,
		holdings: holdings,
		log:      log.With().Str("component", "kafka_consumer").Logger(),
	}
}

// Start consumes messages until ctx is cancelled
func (c *CommandConsumer) Start(ctx context.Context) error {
	c.log.Info().Str("topic", c.reader.Config().Topic).Msg("Starting Kafka command consumer")

	for {
		select {
		case <-ctx.Done():
			c.log.Info().Msg("Kafka command consumer shutting down")
			return c.reader.Close()
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					c.log.Info().Msg("Kafka command consumer shutting down")
					return c.reader.Close()
				}
				c.log.Error().Err(err).Msg("Error reading message")
				continue
			}

			if err := c.processMessage(ctx, msg); err != nil {
				c.log.Error().Err(err).
					Int("partition", msg.Partition).
					Int64("offset", msg.Offset).
					Msg("Error processing message")
			}
		}
	}
}

var (
	errMissingHolding   = errors.New("command has no holding")
	errMissingHoldingID = errors.New("delete command has no holding id")
)

// processMessage handles a single Kafka message
func (c *CommandConsumer) processMessage(ctx context.Context, msg kafka.Message) error {
	var cmd models.HoldingCommand
	if err := json.Unmarshal(msg.Value, &cmd); err != nil {
		return fmt.Errorf("failed to unmarshal holding command: %w", err)
	}

	switch cmd.Command {
	case models.CommandUpsert:
		if cmd.Holding == nil {
			return errMissingHolding
		}
		h, err := c.holdings.Upsert(ctx, *cmd.Holding)
		if err != nil {
			return fmt.Errorf("failed to upsert holding: %w", err)
		}
		c.log.Info().Str("holding_id", h.ID).Str("asset", h.AssetID).Msg("Applied upsert command")
	case models.CommandDelete:
		id := cmd.HoldingID
		if id == "" && cmd.Holding != nil {
			id = cmd.Holding.ID
		}
		if id == "" {
			return errMissingHoldingID
		}
		if err := c.holdings.Delete(ctx, id); err != nil {
			return fmt.Errorf("failed to delete holding: %w", err)
		}
		c.log.Info().Str("holding_id", id).Msg("Applied delete command")
	default:
		c.log.Debug().Str("command", cmd.Command).Msg("Ignoring command")
	}
	return nil
}

// Close closes the Kafka consumer
func (c *CommandConsumer) Close() error {
	return c.reader.Close()
}
