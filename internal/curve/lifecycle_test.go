package curve

import (
	"bytes"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mintOrdered returns a fresh key that sorts before (or after) base.
func mintOrdered(base solana.PublicKey, before bool) solana.PublicKey {
	for {
		k := newKey()
		cmp := bytes.Compare(k[:], base[:])
		if (before && cmp < 0) || (!before && cmp > 0) {
			return k
		}
	}
}

func completedCurve(t *testing.T, cfg *GlobalConfiguration) *BondingCurve {
	t.Helper()
	c := newTestCurve(t, cfg)
	q, err := QuoteBuy(cfg, c, 56_000_000_000, 0)
	require.NoError(t, err)
	require.NoError(t, c.ApplyBuy(q))
	require.True(t, CheckCompletion(cfg, c))
	return c
}

func TestCheckCompletion_OneWay(t *testing.T) {
	cfg, _ := newTestConfig(t)
	c := newTestCurve(t, cfg)

	assert.False(t, CheckCompletion(cfg, c))
	assert.Equal(t, StateActive, c.State)

	q, err := QuoteBuy(cfg, c, 56_000_000_000, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(55_440_000_000), q.NetInput)
	require.NoError(t, c.ApplyBuy(q))

	assert.True(t, CheckCompletion(cfg, c))
	assert.True(t, c.IsCompleted)
	assert.Equal(t, StateCompleted, c.State)

	// already completed: no second transition, and raising the threshold
	// does not reopen the market
	assert.False(t, CheckCompletion(cfg, c))
	cfg.CompletionThreshold = ^uint64(0)
	assert.False(t, CheckCompletion(cfg, c))
	assert.True(t, c.IsCompleted)
	assert.Equal(t, StateCompleted, c.State)
}

func TestCompletionReached_Boundary(t *testing.T) {
	cfg, _ := newTestConfig(t)
	c := newTestCurve(t, cfg)

	c.BaseReserves = testThreshold - testVirtualBase - 1
	assert.False(t, CompletionReached(cfg, c))
	c.BaseReserves++
	assert.True(t, CompletionReached(cfg, c), "threshold is inclusive")
}

func TestMarkMigrated(t *testing.T) {
	cfg, _ := newTestConfig(t)

	c := newTestCurve(t, cfg)
	requireKind(t, c.MarkMigrated(), BondingCurveIsNotCompleted)

	c = completedCurve(t, cfg)
	require.NoError(t, c.MarkMigrated())
	assert.Equal(t, StateMigrated, c.State)
	assert.True(t, c.IsCompleted)
	requireKind(t, c.MarkMigrated(), BondingCurveAlreadyMigrated)
}

func TestPlanMigration_Ordering(t *testing.T) {
	cfg, admin := newTestConfig(t)

	tests := []struct {
		name       string
		mintBefore bool
	}{
		{"base asset is token0", false},
		{"mint is token0", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mint := mintOrdered(cfg.BaseAsset, tt.mintBefore)
			c := completedCurve(t, cfg)
			token0, token1 := SortTokens(cfg.BaseAsset, mint)

			plan, err := PlanMigration(cfg, c, mint, MigrationRequest{
				Caller:           admin,
				Token0:           token0,
				Token1:           token1,
				AuthorityBalance: 1_000_000_000,
				TxConfirmFee:     5_000,
			})
			require.NoError(t, err)
			assert.Equal(t, cfg.MigrationFee+5_000, plan.LamportsRequired)

			if tt.mintBefore {
				assert.Equal(t, mint, plan.Token0)
				assert.Equal(t, c.QuoteReserves, plan.Amount0)
				assert.Equal(t, c.BaseReserves, plan.Amount1)
			} else {
				assert.Equal(t, cfg.BaseAsset, plan.Token0)
				assert.Equal(t, c.BaseReserves, plan.Amount0)
				assert.Equal(t, c.QuoteReserves, plan.Amount1)
			}
			assert.Equal(t, StateCompleted, c.State, "planning does not mutate")
		})
	}
}

func TestPlanMigration_Rejections(t *testing.T) {
	cfg, admin := newTestConfig(t)
	mint := newKey()
	token0, token1 := SortTokens(cfg.BaseAsset, mint)
	required := cfg.MigrationFee + 5_000

	valid := func() MigrationRequest {
		return MigrationRequest{
			Caller:           admin,
			Token0:           token0,
			Token1:           token1,
			AuthorityBalance: required + 1,
			TxConfirmFee:     5_000,
		}
	}

	tests := []struct {
		name   string
		state  LifecycleState
		mutate func(*MigrationRequest)
		want   Kind
	}{
		{"wrong authority", StateCompleted, func(r *MigrationRequest) { r.Caller = newKey() }, InvalidMigrationAuth},
		{"not completed", StateActive, func(*MigrationRequest) {}, BondingCurveIsNotCompleted},
		{"already migrated", StateMigrated, func(*MigrationRequest) {}, BondingCurveAlreadyMigrated},
		{"unsorted tokens", StateCompleted, func(r *MigrationRequest) { r.Token0, r.Token1 = r.Token1, r.Token0 }, TokenConstraintError},
		{"same token", StateCompleted, func(r *MigrationRequest) { r.Token1 = r.Token0 }, TokenConstraintError},
		{"foreign token", StateCompleted, func(r *MigrationRequest) { r.Token0, r.Token1 = SortTokens(newKey(), newKey()) }, TokenConstraintError},
		{"balance equals requirement", StateCompleted, func(r *MigrationRequest) { r.AuthorityBalance = required }, NotEnoughSolBalance},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestCurve(t, cfg)
			c.State = tt.state
			req := valid()
			tt.mutate(&req)

			_, err := PlanMigration(cfg, c, mint, req)
			requireKind(t, err, tt.want)
		})
	}
}
