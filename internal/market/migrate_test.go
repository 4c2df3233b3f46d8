package market

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/pumpcurve/internal/curve"
	"github.com/rovshanmuradov/pumpcurve/internal/events"
	"github.com/rovshanmuradov/pumpcurve/internal/liquidity"
)

// orderedMint returns a fresh mint that sorts before the base asset when
// first is true and after it otherwise.
func orderedMint(t *testing.T, first bool) solana.PublicKey {
	t.Helper()
	for i := 0; i < 100_000; i++ {
		k := solana.NewWallet().PublicKey()
		if (bytes.Compare(k[:], solana.WrappedSol[:]) < 0) == first {
			return k
		}
	}
	t.Fatal("no mint with the requested ordering")
	return solana.PublicKey{}
}

// completeMarket drives a fresh market past the completion threshold.
func (h *harness) completeMarket(t *testing.T, mint solana.PublicKey) solana.PublicKey {
	t.Helper()
	h.createMarketFor(t, mint, 0)

	whale := solana.NewWallet().PublicKey()
	h.fund(t, whale, 56_000_000_000, 0)
	res, err := h.svc.Buy(context.Background(), SwapRequest{Actor: whale, Mint: mint, Amount: 56_000_000_000})
	require.NoError(t, err)
	require.True(t, res.Completed)
	return whale
}

func TestCompletionBlocksSwaps(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	mint := solana.NewWallet().PublicKey()
	whale := h.completeMarket(t, mint)

	completed := h.sink.ofType(events.CurveCompleted)
	require.Len(t, completed, 1)
	ev := completed[0].(*events.CurveCompletedEvent)
	assert.Equal(t, mint, ev.Market)
	assert.Equal(t, whale, ev.Recipient)

	m, err := h.svc.Market(ctx, mint)
	require.NoError(t, err)
	assert.Equal(t, curve.StateCompleted, m.Curve.State)
	assert.True(t, m.Curve.IsCompleted)

	h.fund(t, whale, 1_000, 0)
	_, err = h.svc.Buy(ctx, SwapRequest{Actor: whale, Mint: mint, Amount: 1_000})
	assert.ErrorIs(t, err, curve.BondingCurveIsCompleted)
	_, err = h.svc.Sell(ctx, SwapRequest{Actor: whale, Mint: mint, Amount: 1_000})
	assert.ErrorIs(t, err, curve.BondingCurveIsCompleted)
}

func TestMigrate(t *testing.T) {
	tests := []struct {
		name      string
		mintFirst bool
	}{
		{"base asset is token0", false},
		{"mint is token0", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			ctx := context.Background()
			mint := orderedMint(t, tt.mintFirst)
			h.completeMarket(t, mint)
			h.pools.InjectTransientFailures(2)

			poolCreator := solana.NewWallet().PublicKey()
			require.NoError(t, h.ledger.Airdrop(ctx, h.admin, 200_000_000))

			before, err := h.svc.Market(ctx, mint)
			require.NoError(t, err)

			m, err := h.svc.Migrate(ctx, MigrateRequest{Caller: h.admin, Mint: mint, Creator: poolCreator})
			require.NoError(t, err)
			assert.Equal(t, curve.StateMigrated, m.Curve.State)
			assert.Equal(t, 3, h.pools.Attempts())

			pool, ok := h.pools.Pool(m.Migration.PoolHandle)
			require.True(t, ok)
			if tt.mintFirst {
				assert.Equal(t, mint, pool.Token0)
				assert.Equal(t, before.Curve.QuoteReserves, pool.Reserve0)
				assert.Equal(t, before.Curve.BaseReserves, pool.Reserve1)
			} else {
				assert.Equal(t, solana.WrappedSol, pool.Token0)
				assert.Equal(t, before.Curve.BaseReserves, pool.Reserve0)
				assert.Equal(t, before.Curve.QuoteReserves, pool.Reserve1)
			}
			assert.Equal(t, liquidity.CPSwapProgramID, m.Migration.Controller)

			assert.Equal(t, uint64(0), h.balance(t, solana.WrappedSol, m.PoolVault))
			assert.Equal(t, before.Curve.BaseReserves, h.balance(t, solana.WrappedSol, pool.Handle))
			assert.Equal(t, before.Curve.QuoteReserves, h.balance(t, mint, pool.Handle))

			adminLamports, err := h.ledger.Lamports(ctx, h.admin)
			require.NoError(t, err)
			assert.Equal(t, 200_000_000-migrationFee-txFee, adminLamports)
			creatorLamports, err := h.ledger.Lamports(ctx, poolCreator)
			require.NoError(t, err)
			assert.Equal(t, migrationFee+txFee, creatorLamports)

			migrated := h.sink.ofType(events.MigrationExecuted)
			require.Len(t, migrated, 1)
			assert.Equal(t, pool.Handle, migrated[0].(*events.MigrationExecutedEvent).PoolHandle)

			stored, err := h.svc.Market(ctx, mint)
			require.NoError(t, err)
			assert.True(t, stored.HasMigration)
			assert.Equal(t, pool.Handle, stored.Migration.PoolHandle)

			_, err = h.svc.Migrate(ctx, MigrateRequest{Caller: h.admin, Mint: mint})
			assert.ErrorIs(t, err, curve.BondingCurveAlreadyMigrated)
		})
	}
}

func TestMigrate_Rejections(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	active, _ := h.createMarket(t, 0)
	completed := solana.NewWallet().PublicKey()
	h.completeMarket(t, completed)

	stranger := solana.NewWallet().PublicKey()
	require.NoError(t, h.ledger.Airdrop(ctx, stranger, 1_000_000_000))

	tests := []struct {
		name     string
		fund     uint64
		req      MigrateRequest
		expected curve.Kind
	}{
		{"not the authority", 0, MigrateRequest{Caller: stranger, Mint: completed}, curve.InvalidMigrationAuth},
		{"balance equals the fee", migrationFee + txFee, MigrateRequest{Caller: h.admin, Mint: completed}, curve.NotEnoughSolBalance},
		{"still active", 1_000_000_000, MigrateRequest{Caller: h.admin, Mint: active}, curve.BondingCurveIsNotCompleted},
		{"unknown market", 0, MigrateRequest{Caller: h.admin, Mint: solana.NewWallet().PublicKey()}, curve.MarketNotFound},
	}

	// admin starts without lamports and is topped up row by row
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lamports, err := h.ledger.Lamports(ctx, h.admin)
			require.NoError(t, err)
			if lamports < tt.fund {
				require.NoError(t, h.ledger.Airdrop(ctx, h.admin, tt.fund-lamports))
			}

			_, err = h.svc.Migrate(ctx, tt.req)
			assert.ErrorIs(t, err, tt.expected)
		})
	}
	assert.Empty(t, h.sink.ofType(events.MigrationExecuted))
}

// brokenPools always fails with a permanent error.
type brokenPools struct {
	calls int
}

var errPoolRejected = errors.New("pool program rejected the instruction")

func (b *brokenPools) InitializePool(context.Context, liquidity.PoolParams) (solana.PublicKey, error) {
	b.calls++
	return solana.PublicKey{}, errPoolRejected
}

func (b *brokenPools) ProgramID() solana.PublicKey { return liquidity.CPSwapProgramID }

func TestMigrate_PermanentFailureRollsBack(t *testing.T) {
	pools := &brokenPools{}
	h := newHarnessWith(t, nil, pools)
	ctx := context.Background()
	mint := solana.NewWallet().PublicKey()
	h.completeMarket(t, mint)
	require.NoError(t, h.ledger.Airdrop(ctx, h.admin, 200_000_000))

	before, err := h.svc.Market(ctx, mint)
	require.NoError(t, err)
	snap := h.ledger.Snapshot()

	_, err = h.svc.Migrate(ctx, MigrateRequest{Caller: h.admin, Mint: mint, Creator: solana.NewWallet().PublicKey()})
	require.ErrorIs(t, err, errPoolRejected)
	assert.Equal(t, 1, pools.calls, "permanent errors are not retried")

	assert.Equal(t, snap, h.ledger.Snapshot())

	after, err := h.svc.Market(ctx, mint)
	require.NoError(t, err)
	assert.Equal(t, curve.StateCompleted, after.Curve.State)
	assert.Equal(t, before.Curve.BaseReserves, after.Curve.BaseReserves)
	assert.False(t, after.HasMigration)
}
