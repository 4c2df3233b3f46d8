// internal/market/migrate.go
package market

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/pumpcurve/internal/curve"
	"github.com/rovshanmuradov/pumpcurve/internal/events"
	"github.com/rovshanmuradov/pumpcurve/internal/liquidity"
	"github.com/rovshanmuradov/pumpcurve/internal/storage/models"
)

// MigrateRequest hands a completed market to an external pool.
type MigrateRequest struct {
	Caller solana.PublicKey
	Mint   solana.PublicKey
	// Creator funds and owns the new pool. Defaults to Caller.
	Creator solana.PublicKey
}

// Migrate validates the hand-off, pays the migration fee to the pool
// creator, moves the reserves out of the vault and initializes the pool.
// Any failure before the market is marked migrated reverses every transfer.
func (s *Service) Migrate(ctx context.Context, req MigrateRequest) (*models.Market, error) {
	const op = "migrate"

	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	unlock := s.lockMarket(req.Mint)
	defer unlock()

	creator := req.Creator
	if creator.IsZero() {
		creator = req.Caller
	}

	cfg, err := s.loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	m, err := s.loadMarket(ctx, op, req.Mint)
	if err != nil {
		return nil, err
	}

	balance, err := s.lamports.Lamports(ctx, req.Caller)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read authority lamports: %w", op, err)
	}

	token0, token1 := curve.SortTokens(cfg.BaseAsset, req.Mint)
	plan, err := curve.PlanMigration(cfg, &m.Curve, req.Mint, curve.MigrationRequest{
		Caller:           req.Caller,
		Token0:           token0,
		Token1:           token1,
		AuthorityBalance: balance,
		TxConfirmFee:     s.opts.TxConfirmFee,
	})
	if err != nil {
		return nil, err
	}

	undo := newUndoStack(op, s.logger)
	fail := func(err error) (*models.Market, error) {
		undo.unwind(ctx, err)
		return nil, err
	}

	if err := undo.do(ctx, "migration fee",
		func(ctx context.Context) error {
			return s.lamports.TransferLamports(ctx, req.Caller, creator, plan.LamportsRequired)
		},
		func(ctx context.Context) error {
			return s.lamports.TransferLamports(ctx, creator, req.Caller, plan.LamportsRequired)
		}); err != nil {
		return fail(fmt.Errorf("%s: %w", op, err))
	}
	if err := s.moveLegs(ctx, undo, []leg{
		{"token0 reserves", plan.Token0, m.PoolVault, creator, plan.Amount0},
		{"token1 reserves", plan.Token1, m.PoolVault, creator, plan.Amount1},
	}); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	handle, err := s.initializePool(ctx, liquidity.PoolParams{
		Token0:  plan.Token0,
		Token1:  plan.Token1,
		Amount0: plan.Amount0,
		Amount1: plan.Amount1,
		Creator: creator,
	})
	if err != nil {
		return fail(fmt.Errorf("%s: pool initialization failed: %w", op, err))
	}

	if err := m.Curve.MarkMigrated(); err != nil {
		// unreachable after a successful plan
		return nil, err
	}
	now := s.now()
	m.HasMigration = true
	m.Migration = models.Migration{
		PoolHandle: handle,
		Controller: s.pools.ProgramID(),
		Token0:     plan.Token0,
		Token1:     plan.Token1,
		Amount0:    plan.Amount0,
		Amount1:    plan.Amount1,
		MigratedAt: now.Unix(),
	}
	if err := s.store.SaveMarket(ctx, m); err != nil {
		// the pool already holds the reserves, so nothing can be reversed
		s.logger.Error("Market migrated but record not saved",
			zap.String("mint", req.Mint.String()),
			zap.String("pool", handle.String()),
			zap.Error(err))
		return nil, fmt.Errorf("%s: failed to save market: %w", op, err)
	}

	s.logger.Info("Market migrated",
		zap.String("mint", req.Mint.String()),
		zap.String("pool", handle.String()),
		zap.String("controller", m.Migration.Controller.String()),
		zap.Uint64("amount0", plan.Amount0),
		zap.Uint64("amount1", plan.Amount1),
		zap.Uint64("lamports_paid", plan.LamportsRequired))

	s.publish(&events.MigrationExecutedEvent{
		BaseEvent:  events.NewBaseEvent(events.MigrationExecuted, now),
		Market:     req.Mint,
		PoolHandle: handle,
		Controller: m.Migration.Controller,
		Amount0:    plan.Amount0,
		Amount1:    plan.Amount1,
	})
	return m, nil
}

// initializePool calls the pool program, retrying transient failures with
// exponential backoff.
func (s *Service) initializePool(ctx context.Context, p liquidity.PoolParams) (solana.PublicKey, error) {
	op := func() (solana.PublicKey, error) {
		handle, err := s.pools.InitializePool(ctx, p)
		if err != nil {
			if liquidity.IsTransient(err) {
				return solana.PublicKey{}, err
			}
			return solana.PublicKey{}, backoff.Permanent(err)
		}
		return handle, nil
	}

	b := backoff.NewExponentialBackOff()
	if s.opts.RetryInitialInterval > 0 {
		b.InitialInterval = s.opts.RetryInitialInterval
	}
	maxElapsed := s.opts.RetryMaxElapsed
	if maxElapsed <= 0 {
		maxElapsed = 15 * time.Second
	}

	return backoff.Retry(
		ctx,
		op,
		backoff.WithBackOff(b),
		backoff.WithMaxElapsedTime(maxElapsed),
		backoff.WithNotify(func(err error, next time.Duration) {
			s.logger.Warn("Pool initialization failed, retrying",
				zap.Duration("next_attempt_in", next),
				zap.Error(err))
		}),
	)
}
