package export

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/pumpcurve/internal/events"
	applog "github.com/rovshanmuradov/pumpcurve/internal/logger"
)

var (
	t0     = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	mintA  = solana.NewWallet().PublicKey()
	mintB  = solana.NewWallet().PublicKey()
	trader = solana.NewWallet().PublicKey()
)

func swap(op string, mint solana.PublicKey, in, out, fee uint64, at time.Duration) *events.SwapExecutedEvent {
	return &events.SwapExecutedEvent{
		BaseEvent:    events.NewBaseEvent(events.SwapExecuted, t0.Add(at)),
		Operation:    op,
		Actor:        trader,
		Market:       mint,
		InputAmount:  in,
		OutputAmount: out,
		Fee:          fee,
	}
}

func testEvents() []events.Event {
	return []events.Event{
		&events.MarketCreatedEvent{
			BaseEvent: events.NewBaseEvent(events.MarketCreated, t0),
			Market:    mintA,
			Creator:   trader,
			Symbol:    "AAA",
		},
		swap(events.OpDevBuy, mintA, 1_000_000_000, 34_277_831_558_568, 11_000_000, time.Second),
		swap(events.OpBuy, mintA, 10_000, 354_089_884, 100, 2*time.Second),
		swap(events.OpSell, mintA, 354_089_884, 9_802, 3_540_898, 3*time.Second),
		swap(events.OpBuy, mintB, 20_000, 700_000_000, 200, 4*time.Second),
		&events.CurveCompletedEvent{
			BaseEvent: events.NewBaseEvent(events.CurveCompleted, t0.Add(5*time.Second)),
			Market:    mintB,
			Recipient: trader,
		},
	}
}

func testRecords(t *testing.T) []Record {
	t.Helper()
	var out []Record
	for _, e := range testEvents() {
		r, ok := FromEvent(e)
		require.True(t, ok)
		out = append(out, r)
	}
	return out
}

func TestJournalRecordsBusEvents(t *testing.T) {
	tapePath := filepath.Join(t.TempDir(), "tape.csv")
	tape, err := applog.OpenTape(tapePath, CSVHeaders(), time.Second, zap.NewNop())
	require.NoError(t, err)

	bus := events.NewBus(zap.NewNop(), 64)
	journal := NewJournal(tape, zap.NewNop())
	journal.Attach(bus)

	for _, e := range testEvents() {
		require.NoError(t, bus.Publish(e))
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, bus.Shutdown(ctx))
	require.NoError(t, tape.Close())

	records := journal.Records()
	require.Len(t, records, 6)
	assert.Equal(t, string(events.MarketCreated), records[0].Type)
	assert.Equal(t, events.OpDevBuy, records[1].Operation)
	assert.Equal(t, string(events.CurveCompleted), records[5].Type)

	f, err := os.Open(tapePath)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 5, "header plus four swaps")
	assert.Equal(t, CSVHeaders(), rows[0])
	assert.Equal(t, "354089884", rows[2][6])
}

func TestExportCSV(t *testing.T) {
	exporter := NewExporter(zap.NewNop())
	dir := t.TempDir()

	path, err := exporter.Export(testRecords(t), ExportOptions{
		Format:       FormatCSV,
		OutputDir:    dir,
		MarketFilter: mintA.String(),
		TypeFilter:   events.SwapExecuted,
	})
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.Len(t, rows, 4)
	assert.Equal(t, CSVHeaders(), rows[0])
	for _, row := range rows[1:] {
		assert.Equal(t, mintA.String(), row[2])
	}
	assert.Equal(t, events.OpSell, rows[3][4])
	assert.Equal(t, "3540898", rows[3][7])
}

func TestExportJSON(t *testing.T) {
	exporter := NewExporter(zap.NewNop())

	path, err := exporter.Export(testRecords(t), ExportOptions{Format: FormatJSON, OutputDir: t.TempDir()})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, int64(6), gjson.GetBytes(data, "record_count").Int())
	assert.Equal(t, int64(2), gjson.GetBytes(data, "summary.unique_markets").Int())
	assert.Equal(t, int64(2), gjson.GetBytes(data, "summary.buy_count").Int())
	assert.Equal(t, int64(1), gjson.GetBytes(data, "summary.sell_count").Int())
	assert.Equal(t, int64(1), gjson.GetBytes(data, "summary.dev_buy_count").Int())
	assert.Equal(t, int64(1), gjson.GetBytes(data, "summary.completions").Int())
	assert.Equal(t, "1000030000", gjson.GetBytes(data, "summary.base_volume_in").String())
	assert.Equal(t, "9802", gjson.GetBytes(data, "summary.base_volume_out").String())
	assert.Equal(t, "11000300", gjson.GetBytes(data, "summary.base_fees").String())
	assert.Equal(t, "3540898", gjson.GetBytes(data, "summary.token_fees").String())
	assert.Equal(t, "Dev Buy", gjson.GetBytes(data, "records.1.operation").String())
	assert.Equal(t, uint64(34_277_831_558_568), gjson.GetBytes(data, "records.1.output").Uint())
}

func TestExportRejections(t *testing.T) {
	exporter := NewExporter(zap.NewNop())

	_, err := exporter.Export(nil, ExportOptions{Format: FormatCSV, OutputDir: t.TempDir()})
	assert.Error(t, err)

	_, err = exporter.Export(testRecords(t), ExportOptions{
		Format:    FormatCSV,
		OutputDir: t.TempDir(),
		StartTime: t0.Add(time.Hour),
	})
	assert.Error(t, err)

	_, err = exporter.Export(testRecords(t), ExportOptions{Format: "xml", OutputDir: t.TempDir()})
	assert.Error(t, err)
}
