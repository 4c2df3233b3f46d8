package logger

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testHeader = []string{"time", "market", "operation", "amount"}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestTapeConcurrentAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tape", "swaps.csv")
	tape, err := OpenTape(path, testHeader, 10*time.Millisecond, zap.NewNop())
	require.NoError(t, err)

	const goroutines, perGoroutine = 8, 50
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func(id int) {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				row := []string{"t", fmt.Sprintf("m%d", id), "Buy", fmt.Sprint(j)}
				if err := tape.Append(row); err != nil {
					t.Errorf("append failed: %v", err)
				}
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, uint64(goroutines*perGoroutine), tape.Stats().Rows)
	require.NoError(t, tape.Close())
	require.NoError(t, tape.Close())

	rows := readCSV(t, path)
	require.Len(t, rows, goroutines*perGoroutine+1)
	assert.Equal(t, testHeader, rows[0])
}

func TestTapeReopenAppendsWithoutSecondHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "swaps.csv")

	for i := 0; i < 2; i++ {
		tape, err := OpenTape(path, testHeader, time.Second, zap.NewNop())
		require.NoError(t, err)
		require.NoError(t, tape.Append([]string{"t", "m", "Sell", fmt.Sprint(i)}))
		require.NoError(t, tape.Sync())
		require.NoError(t, tape.Close())
	}

	rows := readCSV(t, path)
	require.Len(t, rows, 3)
	assert.Equal(t, testHeader, rows[0])
	assert.Equal(t, "1", rows[2][3])
}

func TestTapeRejections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "swaps.csv")
	tape, err := OpenTape(path, testHeader, time.Second, zap.NewNop())
	require.NoError(t, err)

	assert.Error(t, tape.Append([]string{"too", "short"}))
	require.NoError(t, tape.Close())
	assert.Error(t, tape.Append([]string{"t", "m", "Buy", "1"}))

	_, err = OpenTape(path, []string{"other", "columns"}, time.Second, zap.NewNop())
	assert.ErrorIs(t, err, ErrTapeHeaderMismatch)
}
