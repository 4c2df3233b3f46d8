package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	t.Setenv("PUMPCURVE_LOG_FILE", filepath.Join(t.TempDir(), "curvesim.log"))
	t.Setenv("PUMPCURVE_LOG_LEVEL", "error")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute())
	return out.String()
}

func TestQuoteCommand(t *testing.T) {
	out := execute(t, "quote", "--amount", "10000")
	assert.Contains(t, out, "buy 10000: fee 100, net 9900, output 354089884")

	out = execute(t, "quote", "--side", "sell", "--amount", "354089884",
		"--base-reserves", "9900", "--quote-reserves", "1072999645910116", "--json")
	assert.Equal(t, uint64(9_802), gjson.Get(out, "output").Uint())
	assert.Equal(t, uint64(98), gjson.Get(out, "base_reserves_after").Uint())
}

func TestInspectCommand(t *testing.T) {
	out := execute(t, "inspect", "CPMMoo8L3F4NbTegBCKVNunggL7H1ZpdTHKxQB5qKP1C")
	assert.Contains(t, out, "77Pw9AmRgWD6oqjeufeV3enKnPfkavJia7Lq8RhVRTbu")
	assert.Contains(t, out, "32190000000000000000000000")
	assert.Contains(t, out, "curve account (50 bytes)")
	assert.Contains(t, out, "00ac23fc06000000")
}

func TestRunCommand(t *testing.T) {
	dir := t.TempDir()
	out := execute(t, "run", filepath.Join("..", "..", "scenarios", "round_trip.yaml"),
		"--export-dir", dir, "--format", "json")
	assert.Contains(t, out, "scenario \"round-trip\", 5 steps")
	assert.Contains(t, out, "events exported to "+dir)
}
