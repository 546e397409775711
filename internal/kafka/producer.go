package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/trogers1052/portfolio-tracker/internal/models"
)

// portfolioKey keys events that are not about a single holding
const portfolioKey = "portfolio"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer handles publishing portfolio events to Kafka
type Producer struct {
	writer messageWriter
	topic  string
	now    func() time.Time
}

// NewProducer creates a new Kafka producer
func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
	}

	return &Producer{
		writer: writer,
		topic:  topic,
		now:    time.Now,
	}
}

// PublishHoldingUpserted publishes a holding upserted event
func (p *Producer) PublishHoldingUpserted(ctx context.Context, h models.PortfolioHolding) error {
	event := models.PortfolioEvent{
		EventType: models.EventHoldingUpserted,
		Holding:   &h,
		HoldingID: h.ID,
		Timestamp: p.now(),
	}
	return p.publish(ctx, h.ID, event)
}

// PublishHoldingDeleted publishes a holding deleted event
func (p *Producer) PublishHoldingDeleted(ctx context.Context, id string) error {
	event := models.PortfolioEvent{
		EventType: models.EventHoldingDeleted,
		HoldingID: id,
		Timestamp: p.now(),
	}
	return p.publish(ctx, id, event)
}

// PublishPortfolioReset publishes a portfolio reset event
func (p *Producer) PublishPortfolioReset(ctx context.Context) error {
	event := models.PortfolioEvent{
		EventType: models.EventPortfolioReset,
		Timestamp: p.now(),
	}
	return p.publish(ctx, portfolioKey, event)
}

// PublishQuotesRefreshed publishes the latest quote batch
func (p *Producer) PublishQuotesRefreshed(ctx context.Context, batch models.QuoteBatch) error {
	event := models.PortfolioEvent{
		EventType: models.EventQuotesRefreshed,
		Quotes:    &batch,
		Timestamp: p.now(),
	}
	return p.publish(ctx, portfolioKey, event)
}

func (p *Producer) publish(ctx context.Context, key string, event models.PortfolioEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}

	return nil
}

// Close closes the Kafka producer
func (p *Producer) Close() error {
	return p.writer.Close()
}
