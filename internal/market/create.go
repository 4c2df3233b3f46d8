// internal/market/create.go
package market

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/pumpcurve/internal/accounts"
	"github.com/rovshanmuradov/pumpcurve/internal/curve"
	"github.com/rovshanmuradov/pumpcurve/internal/events"
	"github.com/rovshanmuradov/pumpcurve/internal/storage"
	"github.com/rovshanmuradov/pumpcurve/internal/storage/models"
)

// CreateMarket opens a market for req.Mint: it charges the creation fee
// and rent, mints the supply into the pool vault and runs the optional dev
// buy, all or nothing.
func (s *Service) CreateMarket(ctx context.Context, req curve.CreateRequest) (*models.Market, error) {
	const op = "create_market"

	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	unlock := s.lockMarket(req.Mint)
	defer unlock()

	cfg, err := s.loadConfig(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := s.store.LoadMarket(ctx, req.Mint); err == nil {
		return nil, curve.Wrap(op, curve.MarketAlreadyExists, fmt.Errorf("mint %s", req.Mint))
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%s: failed to load market: %w", op, err)
	}

	baseBalance, err := s.custody.Balance(ctx, cfg.BaseAsset, req.Creator)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read creator balance: %w", op, err)
	}
	lamports, err := s.lamports.Lamports(ctx, req.Creator)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read creator lamports: %w", op, err)
	}

	plan, err := curve.PrepareCreation(cfg, req, baseBalance, lamports)
	if err != nil {
		return nil, err
	}

	addrs, err := accounts.DeriveMarket(s.opts.ProgramID, req.Mint)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	vault := addrs.PoolVault

	undo := newUndoStack(op, s.logger)
	fail := func(err error) (*models.Market, error) {
		undo.unwind(ctx, err)
		return nil, err
	}

	if err := undo.do(ctx, "pay rent",
		func(ctx context.Context) error {
			return s.lamports.TransferLamports(ctx, req.Creator, req.Mint, curve.CreationRent)
		},
		func(ctx context.Context) error {
			return s.lamports.TransferLamports(ctx, req.Mint, req.Creator, curve.CreationRent)
		}); err != nil {
		return fail(err)
	}
	if err := s.moveToken(ctx, undo, "platform fee", cfg.BaseAsset, req.Creator, cfg.FeeRecipient, plan.PlatformFee); err != nil {
		return fail(err)
	}
	if err := undo.do(ctx, "mint supply",
		func(ctx context.Context) error { return s.issuer.Mint(ctx, req.Mint, vault, plan.Supply) },
		func(ctx context.Context) error { return s.issuer.Burn(ctx, req.Mint, vault, plan.Supply) },
	); err != nil {
		return fail(err)
	}
	if plan.DevBuy != nil {
		if err := s.moveToken(ctx, undo, "dev buy input", cfg.BaseAsset, req.Creator, vault, plan.DevBuy.NetInput); err != nil {
			return fail(err)
		}
		if err := s.moveToken(ctx, undo, "initial transfer", req.Mint, vault, req.Creator, plan.InitialTransferAmount); err != nil {
			return fail(err)
		}
	}

	m := &models.Market{
		Mint:           req.Mint,
		Creator:        req.Creator,
		PoolVault:      vault,
		Name:           req.Name,
		Symbol:         req.Symbol,
		URI:            req.URI,
		CreatedAt:      s.now().Unix(),
		Curve:          *plan.Curve,
		RetainedAmount: plan.RetainedAmount,
	}
	if err := s.store.SaveMarket(ctx, m); err != nil {
		return fail(fmt.Errorf("%s: failed to save market: %w", op, err))
	}

	s.logger.Info("Market created",
		zap.String("mint", req.Mint.String()),
		zap.String("creator", req.Creator.String()),
		zap.String("symbol", req.Symbol),
		zap.String("invariant", m.Curve.InvariantValue().Dec()),
		zap.Uint64("dev_buy", req.DevBuy),
		zap.Bool("completed", plan.Completed))

	now := s.now()
	s.publish(&events.MarketCreatedEvent{
		BaseEvent: events.NewBaseEvent(events.MarketCreated, now),
		Market:    req.Mint,
		Creator:   req.Creator,
		Name:      req.Name,
		Symbol:    req.Symbol,
		URI:       req.URI,
		Invariant: m.Curve.InvariantValue().Dec(),
	})
	if plan.DevBuy != nil {
		s.publish(&events.SwapExecutedEvent{
			BaseEvent:    events.NewBaseEvent(events.SwapExecuted, now),
			Operation:    events.OpDevBuy,
			Actor:        req.Creator,
			Market:       req.Mint,
			InputAmount:  req.DevBuy,
			OutputAmount: plan.DevBuy.Output,
			Fee:          plan.PlatformFee,
			AssetIn:      cfg.BaseAsset,
			AssetOut:     req.Mint,
			FeeRecipient: cfg.FeeRecipient,
		})
	}
	if plan.Completed {
		s.publishCompleted(m, req.Creator, addrs, now)
	}
	return m, nil
}
