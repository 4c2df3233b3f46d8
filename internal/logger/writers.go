// internal/logger/writers.go
package logger

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrTapeHeaderMismatch возвращается, когда существующая лента была записана
// с другим набором колонок.
var ErrTapeHeaderMismatch = errors.New("tape header mismatch")

// TapeStats счётчики ленты.
type TapeStats struct {
	Rows    uint64
	Flushes uint64
}

// TapeWriter is an append-only CSV tape shared by concurrent writers.
// Rows are buffered and flushed on a ticker and on Close.
type TapeWriter struct {
	mu      sync.Mutex
	csv     *csv.Writer
	file    *os.File
	ticker  *time.Ticker
	done    chan struct{}
	closed  bool
	logger  *zap.Logger
	path    string
	columns int
	stats   TapeStats
}

// OpenTape opens (or creates) the tape at path. A new file receives header
// as its first row; an existing one must start with the same header.
func OpenTape(path string, header []string, flushEvery time.Duration, logger *zap.Logger) (*TapeWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create tape directory: %w", err)
	}

	if err := checkTapeHeader(path, header); err != nil {
		return nil, err
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open tape: %w", err)
	}
	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat tape: %w", err)
	}

	tw := &TapeWriter{
		csv:     csv.NewWriter(file),
		file:    file,
		ticker:  time.NewTicker(flushEvery),
		done:    make(chan struct{}),
		logger:  logger.Named("tape"),
		path:    path,
		columns: len(header),
	}

	if stat.Size() == 0 && len(header) > 0 {
		// заголовок не считается строкой
		if err := tw.csv.Write(header); err != nil {
			tw.ticker.Stop()
			file.Close()
			return nil, fmt.Errorf("failed to write tape header: %w", err)
		}
		tw.csv.Flush()
	}

	go tw.flushLoop()
	return tw, nil
}

func checkTapeHeader(path string, header []string) error {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open tape: %w", err)
	}
	defer f.Close()

	existing, err := csv.NewReader(f).Read()
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read tape header: %w", err)
	}
	if !slices.Equal(existing, header) {
		return fmt.Errorf("%w: %s has %v", ErrTapeHeaderMismatch, path, existing)
	}
	return nil
}

// Append добавляет одну строку. Число колонок должно совпадать с заголовком.
func (tw *TapeWriter) Append(row []string) error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if tw.closed {
		return fmt.Errorf("tape %s is closed", tw.path)
	}
	if tw.columns > 0 && len(row) != tw.columns {
		return fmt.Errorf("tape row has %d columns, want %d", len(row), tw.columns)
	}
	if err := tw.csv.Write(row); err != nil {
		return fmt.Errorf("failed to append tape row: %w", err)
	}
	tw.stats.Rows++
	return nil
}

// Sync flushes buffered rows to disk.
func (tw *TapeWriter) Sync() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	return tw.syncLocked()
}

func (tw *TapeWriter) syncLocked() error {
	if tw.closed {
		return nil
	}
	tw.csv.Flush()
	if err := tw.csv.Error(); err != nil {
		return fmt.Errorf("tape flush: %w", err)
	}
	if err := tw.file.Sync(); err != nil {
		return fmt.Errorf("tape sync: %w", err)
	}
	tw.stats.Flushes++
	return nil
}

func (tw *TapeWriter) flushLoop() {
	for {
		select {
		case <-tw.ticker.C:
			if err := tw.Sync(); err != nil {
				tw.logger.Error("Periodic tape flush failed",
					zap.String("file", tw.path),
					zap.Error(err))
			}
		case <-tw.done:
			return
		}
	}
}

// Close flushes remaining rows and closes the file. Повторный вызов безопасен.
func (tw *TapeWriter) Close() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.closed {
		return nil
	}

	close(tw.done)
	tw.ticker.Stop()

	tw.csv.Flush()
	flushErr := tw.csv.Error()
	closeErr := tw.file.Close()
	tw.closed = true

	if flushErr != nil {
		return fmt.Errorf("tape flush on close: %w", flushErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close tape: %w", closeErr)
	}

	tw.logger.Debug("Tape closed",
		zap.String("file", tw.path),
		zap.Uint64("rows", tw.stats.Rows),
		zap.Uint64("flushes", tw.stats.Flushes))
	return nil
}

// Stats returns a copy of the counters.
func (tw *TapeWriter) Stats() TapeStats {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	return tw.stats
}

// Path returns the tape file location.
func (tw *TapeWriter) Path() string { return tw.path }
