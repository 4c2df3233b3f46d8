package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/pumpcurve/internal/events"
)

// ExportFormat represents the export file format
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatJSON ExportFormat = "json"
)

// ExportOptions configures the export behavior
type ExportOptions struct {
	Format       ExportFormat
	StartTime    time.Time
	EndTime      time.Time
	MarketFilter string // mint, base58
	TypeFilter   events.EventType
	OutputDir    string
	// Prefix replaces the default "events" file name prefix.
	Prefix string
}

// Exporter writes journal records to files.
type Exporter struct {
	logger *zap.Logger
	now    func() time.Time
}

// NewExporter creates a new exporter
func NewExporter(logger *zap.Logger) *Exporter {
	return &Exporter{
		logger: logger,
		now:    time.Now,
	}
}

// Export writes the records matching options and returns the file path.
func (e *Exporter) Export(records []Record, options ExportOptions) (string, error) {
	filtered := filterRecords(records, options)
	if len(filtered) == 0 {
		return "", fmt.Errorf("no records match the export criteria")
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Time.Before(filtered[j].Time)
	})

	if err := os.MkdirAll(options.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	outputPath := filepath.Join(options.OutputDir, e.generateFilename(options))

	var err error
	switch options.Format {
	case FormatCSV:
		err = exportToCSV(filtered, outputPath)
	case FormatJSON:
		err = e.exportToJSON(filtered, outputPath)
	default:
		err = fmt.Errorf("unsupported format: %s", options.Format)
	}
	if err != nil {
		return "", err
	}

	e.logger.Info("Events exported",
		zap.String("file", outputPath),
		zap.Int("count", len(filtered)),
		zap.String("format", string(options.Format)))

	return outputPath, nil
}

func filterRecords(records []Record, options ExportOptions) []Record {
	var filtered []Record
	for _, r := range records {
		if !options.StartTime.IsZero() && r.Time.Before(options.StartTime) {
			continue
		}
		if !options.EndTime.IsZero() && r.Time.After(options.EndTime) {
			continue
		}
		if options.MarketFilter != "" && r.Market != options.MarketFilter {
			continue
		}
		if options.TypeFilter != "" && r.Type != string(options.TypeFilter) {
			continue
		}
		filtered = append(filtered, r)
	}
	return filtered
}

func (e *Exporter) generateFilename(options ExportOptions) string {
	prefix := options.Prefix
	if prefix == "" {
		prefix = "events"
	}
	if options.MarketFilter != "" && len(options.MarketFilter) >= 8 {
		prefix += "_" + options.MarketFilter[:8]
	}
	return fmt.Sprintf("%s_%s.%s", prefix, e.now().Format("20060102_150405"), options.Format)
}

func exportToCSV(records []Record, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(CSVHeaders()); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, r := range records {
		if err := writer.Write(r.ToCSV()); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func (e *Exporter) exportToJSON(records []Record, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create JSON file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	exportData := struct {
		ExportTime  time.Time `json:"export_time"`
		RecordCount int       `json:"record_count"`
		Summary     Summary   `json:"summary"`
		Records     []Record  `json:"records"`
	}{
		ExportTime:  e.now().UTC(),
		RecordCount: len(records),
		Summary:     Summarize(records),
		Records:     records,
	}

	if err := encoder.Encode(exportData); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// Summary contains statistics over exported records. Volumes are decimal
// strings since sums may exceed 64 bits.
type Summary struct {
	TotalRecords   int             `json:"total_records"`
	UniqueMarkets  int             `json:"unique_markets"`
	MarketsCreated int             `json:"markets_created"`
	BuyCount       int             `json:"buy_count"`
	SellCount      int             `json:"sell_count"`
	DevBuyCount    int             `json:"dev_buy_count"`
	Completions    int             `json:"completions"`
	Migrations     int             `json:"migrations"`
	BaseVolumeIn   decimal.Decimal `json:"base_volume_in"`
	BaseVolumeOut  decimal.Decimal `json:"base_volume_out"`
	BaseFees       decimal.Decimal `json:"base_fees"`
	TokenFees      decimal.Decimal `json:"token_fees"`
	StartDate      time.Time       `json:"start_date"`
	EndDate        time.Time       `json:"end_date"`
}

// Summarize computes a Summary of records in time order.
func Summarize(records []Record) Summary {
	summary := Summary{
		TotalRecords:  len(records),
		BaseVolumeIn:  decimal.Zero,
		BaseVolumeOut: decimal.Zero,
		BaseFees:      decimal.Zero,
		TokenFees:     decimal.Zero,
	}
	if len(records) == 0 {
		return summary
	}
	summary.StartDate = records[0].Time
	summary.EndDate = records[len(records)-1].Time

	markets := make(map[string]struct{})
	add := func(d decimal.Decimal, v uint64) decimal.Decimal {
		return d.Add(decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0))
	}

	for _, r := range records {
		if r.Market != "" {
			markets[r.Market] = struct{}{}
		}
		switch events.EventType(r.Type) {
		case events.MarketCreated:
			summary.MarketsCreated++
		case events.CurveCompleted:
			summary.Completions++
		case events.MigrationExecuted:
			summary.Migrations++
		case events.SwapExecuted:
			switch r.Operation {
			case events.OpBuy, events.OpDevBuy:
				if r.Operation == events.OpBuy {
					summary.BuyCount++
				} else {
					summary.DevBuyCount++
				}
				summary.BaseVolumeIn = add(summary.BaseVolumeIn, r.Input)
				summary.BaseFees = add(summary.BaseFees, r.Fee)
			case events.OpSell:
				summary.SellCount++
				summary.BaseVolumeOut = add(summary.BaseVolumeOut, r.Output)
				summary.TokenFees = add(summary.TokenFees, r.Fee)
			}
		}
	}
	summary.UniqueMarkets = len(markets)
	return summary
}
