// internal/events/types.go
package events

import (
	"time"

	"github.com/gagliardetto/solana-go"
)

// EventType represents the type of event.
type EventType string

const (
	// Market events
	MarketCreated  EventType = "market.created"
	SwapExecuted   EventType = "swap.executed"
	CurveCompleted EventType = "curve.completed"

	// Migration events
	MigrationExecuted EventType = "migration.executed"

	// Configuration events
	ConfigUpdated EventType = "config.updated"
)

// AllTypes lists every event type in emission order of a market's life.
var AllTypes = []EventType{MarketCreated, SwapExecuted, CurveCompleted, MigrationExecuted, ConfigUpdated}

// Swap operation names.
const (
	OpBuy    = "Buy"
	OpSell   = "Sell"
	OpDevBuy = "Dev Buy"
)

// Event is the base interface for all events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	EventType EventType
	EventTime time.Time
}

// NewBaseEvent stamps an event of type t at now.
func NewBaseEvent(t EventType, now time.Time) BaseEvent {
	return BaseEvent{EventType: t, EventTime: now}
}

// Type returns the event type.
func (e BaseEvent) Type() EventType {
	return e.EventType
}

// Timestamp returns when the event occurred.
func (e BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

// MarketCreatedEvent is emitted once a market is open for trading.
type MarketCreatedEvent struct {
	BaseEvent
	Market    solana.PublicKey
	Creator   solana.PublicKey
	Name      string
	Symbol    string
	URI       string
	Invariant string // decimal u128
}

// SwapExecutedEvent is emitted for every buy, sell and dev buy.
type SwapExecutedEvent struct {
	BaseEvent
	Operation    string
	Actor        solana.PublicKey
	Market       solana.PublicKey
	InputAmount  uint64
	OutputAmount uint64
	Fee          uint64
	AssetIn      solana.PublicKey
	AssetOut     solana.PublicKey
	FeeRecipient solana.PublicKey
}

// CurveCompletedEvent is emitted when a market reaches its threshold.
type CurveCompletedEvent struct {
	BaseEvent
	Market    solana.PublicKey
	Recipient solana.PublicKey
	Pool      solana.PublicKey
	QuotePool solana.PublicKey
}

// MigrationExecutedEvent is emitted when reserves were handed to a pool.
type MigrationExecutedEvent struct {
	BaseEvent
	Market     solana.PublicKey
	PoolHandle solana.PublicKey
	Controller solana.PublicKey
	Amount0    uint64
	Amount1    uint64
}

// ConfigUpdatedEvent is emitted when the admin changes a mutable field.
type ConfigUpdatedEvent struct {
	BaseEvent
	Field string
	Old   uint64
	New   uint64
	Admin solana.PublicKey
}
