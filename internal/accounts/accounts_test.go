package accounts

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveMarket(t *testing.T) {
	mint := solana.NewWallet().PublicKey()

	a, err := DeriveMarket(ProgramID, mint)
	require.NoError(t, err)
	b, err := DeriveMarket(ProgramID, mint)
	require.NoError(t, err)

	assert.Equal(t, a, b, "derivation is deterministic")
	assert.Equal(t, mint, a.Mint)
	assert.NotEqual(t, a.BondingCurve, a.PoolVault)

	other, err := DeriveMarket(ProgramID, solana.NewWallet().PublicKey())
	require.NoError(t, err)
	assert.NotEqual(t, a.PoolVault, other.PoolVault)
}

func TestGlobalConfigAddress(t *testing.T) {
	addr, err := GlobalConfigAddress(ProgramID)
	require.NoError(t, err)
	assert.False(t, addr.IsZero())
}
