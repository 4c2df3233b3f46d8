package memory

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/pumpcurve/internal/accounts"
	"github.com/rovshanmuradov/pumpcurve/internal/curve"
	"github.com/rovshanmuradov/pumpcurve/internal/storage"
	"github.com/rovshanmuradov/pumpcurve/internal/storage/models"
)

func TestMemoryStorage(t *testing.T) {
	ctx := context.Background()
	s := NewStorage(accounts.ProgramID, zap.NewNop())

	_, err := s.LoadConfig(ctx)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	cfg, err := curve.NewGlobalConfiguration(solana.NewWallet().PublicKey(), curve.InitParams{
		SwapFeeBps:          100,
		InitialVirtualBase:  30_000_000_000,
		InitialVirtualQuote: 1_073_000_000_000_000,
		BaseAsset:           solana.WrappedSol,
	})
	require.NoError(t, err)
	require.NoError(t, s.SaveConfig(ctx, cfg))

	loaded, err := s.LoadConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, *cfg, *loaded)

	c, err := curve.NewBondingCurve(cfg)
	require.NoError(t, err)

	first := &models.Market{Mint: solana.NewWallet().PublicKey(), CreatedAt: 2, Curve: *c, Symbol: "B"}
	second := &models.Market{Mint: solana.NewWallet().PublicKey(), CreatedAt: 1, Curve: *c, Symbol: "A"}
	require.NoError(t, s.SaveMarket(ctx, first))
	require.NoError(t, s.SaveMarket(ctx, second))

	_, err = s.LoadMarket(ctx, solana.NewWallet().PublicKey())
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// stored records are copies, not aliases
	first.Curve.BaseReserves = 99
	got, err := s.LoadMarket(ctx, first.Mint)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), got.Curve.BaseReserves)

	list, err := s.ListMarkets(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "A", list[0].Symbol)
	assert.Equal(t, "B", list[1].Symbol)
}

func TestMemoryStorage_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewStorage(accounts.ProgramID, zap.NewNop())
	_, err := s.ListMarkets(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
