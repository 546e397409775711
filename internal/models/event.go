package models

import "time"

// Portfolio event type constants
const (
	EventHoldingUpserted = "HOLDING_UPSERTED"
	EventHoldingDeleted  = "HOLDING_DELETED"
	EventPortfolioReset  = "PORTFOLIO_RESET"
	EventQuotesRefreshed = "QUOTES_REFRESHED"
)

// Holding command constants
const (
	CommandUpsert = "UPSERT"
	CommandDelete = "DELETE"
)

// PortfolioEvent represents a Kafka event for portfolio changes
type PortfolioEvent struct {
	EventType string            `json:"event_type"`
	Holding   *PortfolioHolding `json:"holding,omitempty"`
	HoldingID string            `json:"holding_id,omitempty"`
	Quotes    *QuoteBatch       `json:"quotes,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// HoldingCommand is an inbound request to change the portfolio, consumed from Kafka
type HoldingCommand struct {
	Command   string        `json:"command"`
	Holding   *HoldingInput `json:"holding,omitempty"`
	HoldingID string        `json:"holding_id,omitempty"`
}
