package curve

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
)

const (
	testVirtualBase  = uint64(30_000_000_000)
	testVirtualQuote = uint64(1_073_000_000_000_000)
	testThreshold    = uint64(85_000_000_000)
)

func newKey() solana.PublicKey {
	return solana.NewWallet().PublicKey()
}

func testParams() InitParams {
	return InitParams{
		SwapFeeBps:          100,
		CompletionThreshold: testThreshold,
		InitialVirtualBase:  testVirtualBase,
		InitialVirtualQuote: testVirtualQuote,
		CreatePoolFee:       1_000_000,
		MigrationFee:        150_000_000,
		BaseAsset:           solana.WrappedSol,
		FeeRecipient:        newKey(),
	}
}

func newTestConfig(t *testing.T) (*GlobalConfiguration, solana.PublicKey) {
	t.Helper()
	admin := newKey()
	cfg, err := NewGlobalConfiguration(admin, testParams())
	require.NoError(t, err)
	return cfg, admin
}

func newTestCurve(t *testing.T, cfg *GlobalConfiguration) *BondingCurve {
	t.Helper()
	c, err := NewBondingCurve(cfg)
	require.NoError(t, err)
	return c
}

func requireKind(t *testing.T, err error, want Kind) {
	t.Helper()
	require.Error(t, err)
	require.ErrorIs(t, err, want)
}
