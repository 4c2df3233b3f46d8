// internal/export/journal.go
package export

import (
	"context"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/pumpcurve/internal/events"
	applog "github.com/rovshanmuradov/pumpcurve/internal/logger"
)

// Record is one event flattened into an exportable row.
type Record struct {
	Time      time.Time `json:"time"`
	Type      string    `json:"type"`
	Market    string    `json:"market"`
	Actor     string    `json:"actor,omitempty"`
	Operation string    `json:"operation,omitempty"`
	Input     uint64    `json:"input"`
	Output    uint64    `json:"output"`
	Fee       uint64    `json:"fee"`
	Detail    string    `json:"detail,omitempty"`
}

// CSVHeaders returns the column names matching Record.ToCSV.
func CSVHeaders() []string {
	return []string{"time", "type", "market", "actor", "operation", "input", "output", "fee", "detail"}
}

// ToCSV renders the record as a CSV row.
func (r Record) ToCSV() []string {
	return []string{
		r.Time.UTC().Format(time.RFC3339Nano),
		r.Type,
		r.Market,
		r.Actor,
		r.Operation,
		strconv.FormatUint(r.Input, 10),
		strconv.FormatUint(r.Output, 10),
		strconv.FormatUint(r.Fee, 10),
		r.Detail,
	}
}

// FromEvent flattens a market event. Unknown event types are skipped.
func FromEvent(e events.Event) (Record, bool) {
	r := Record{Time: e.Timestamp(), Type: string(e.Type())}
	switch ev := e.(type) {
	case *events.MarketCreatedEvent:
		r.Market = ev.Market.String()
		r.Actor = ev.Creator.String()
		r.Detail = ev.Symbol
	case *events.SwapExecutedEvent:
		r.Market = ev.Market.String()
		r.Actor = ev.Actor.String()
		r.Operation = ev.Operation
		r.Input = ev.InputAmount
		r.Output = ev.OutputAmount
		r.Fee = ev.Fee
	case *events.CurveCompletedEvent:
		r.Market = ev.Market.String()
		r.Actor = ev.Recipient.String()
	case *events.MigrationExecutedEvent:
		r.Market = ev.Market.String()
		r.Input = ev.Amount0
		r.Output = ev.Amount1
		r.Detail = ev.PoolHandle.String()
	case *events.ConfigUpdatedEvent:
		r.Actor = ev.Admin.String()
		r.Operation = ev.Field
		r.Input = ev.Old
		r.Output = ev.New
	default:
		return Record{}, false
	}
	return r, true
}

// Journal records every event delivered by the bus. Swaps are also
// appended to an optional CSV tape as they happen.
type Journal struct {
	mu      sync.Mutex
	records []Record
	tape    *applog.TapeWriter
	logger  *zap.Logger
}

// NewJournal creates a journal. tape may be nil.
func NewJournal(tape *applog.TapeWriter, logger *zap.Logger) *Journal {
	return &Journal{tape: tape, logger: logger.Named("journal")}
}

// Attach subscribes the journal to every event type of bus.
func (j *Journal) Attach(bus *events.Bus) events.Subscription {
	return bus.SubscribeAll(j)
}

// Handle implements events.Handler.
func (j *Journal) Handle(_ context.Context, e events.Event) error {
	r, ok := FromEvent(e)
	if !ok {
		j.logger.Debug("Skipping unknown event", zap.String("event_type", string(e.Type())))
		return nil
	}

	j.mu.Lock()
	j.records = append(j.records, r)
	j.mu.Unlock()

	if j.tape != nil && e.Type() == events.SwapExecuted {
		return j.tape.Append(r.ToCSV())
	}
	return nil
}

// Records returns a copy of everything recorded so far.
func (j *Journal) Records() []Record {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]Record, len(j.records))
	copy(out, j.records)
	return out
}

// Len returns the number of recorded events.
func (j *Journal) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.records)
}
