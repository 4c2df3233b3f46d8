// internal/market/swap.go
package market

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/pumpcurve/internal/accounts"
	"github.com/rovshanmuradov/pumpcurve/internal/curve"
	"github.com/rovshanmuradov/pumpcurve/internal/events"
	"github.com/rovshanmuradov/pumpcurve/internal/storage/models"
)

// SwapRequest is a buy or sell against one market. For a buy Amount is in
// the base asset, for a sell in the market's token. MinOut is the slippage
// floor.
type SwapRequest struct {
	Actor  solana.PublicKey
	Mint   solana.PublicKey
	Amount uint64
	MinOut uint64
}

// SwapResult describes an executed swap.
type SwapResult struct {
	Operation string
	Input     uint64
	Fee       uint64
	NetInput  uint64
	Output    uint64
	Completed bool
	Curve     curve.BondingCurve
}

// moveToken transfers amount and records the reverse transfer.
func (s *Service) moveToken(ctx context.Context, undo *undoStack, name string, asset, from, to solana.PublicKey, amount uint64) error {
	if amount == 0 {
		return nil
	}
	return undo.do(ctx, name,
		func(ctx context.Context) error { return s.custody.Transfer(ctx, asset, from, to, amount) },
		func(ctx context.Context) error { return s.custody.Transfer(ctx, asset, to, from, amount) },
	)
}

// leg is one token movement of a swap.
type leg struct {
	name            string
	asset, from, to solana.PublicKey
	amount          uint64
}

// moveLegs performs legs in order. If one fails, the ones already done are
// reversed.
func (s *Service) moveLegs(ctx context.Context, undo *undoStack, legs []leg) error {
	for _, l := range legs {
		if err := s.moveToken(ctx, undo, l.name, l.asset, l.from, l.to, l.amount); err != nil {
			undo.unwind(ctx, err)
			return err
		}
	}
	return nil
}

// QuoteBuy prices a buy without executing it.
func (s *Service) QuoteBuy(ctx context.Context, mint solana.PublicKey, amount, minOut uint64) (curve.BuyQuote, error) {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()

	cfg, err := s.loadConfig(ctx)
	if err != nil {
		return curve.BuyQuote{}, err
	}
	m, err := s.loadMarket(ctx, "buy", mint)
	if err != nil {
		return curve.BuyQuote{}, err
	}
	return curve.QuoteBuy(cfg, &m.Curve, amount, minOut)
}

// QuoteSell prices a sell without executing it.
func (s *Service) QuoteSell(ctx context.Context, mint solana.PublicKey, amount, minOut uint64) (curve.SellQuote, error) {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()

	cfg, err := s.loadConfig(ctx)
	if err != nil {
		return curve.SellQuote{}, err
	}
	m, err := s.loadMarket(ctx, "sell", mint)
	if err != nil {
		return curve.SellQuote{}, err
	}
	return curve.QuoteSell(cfg, &m.Curve, amount, minOut)
}

// Buy spends req.Amount of the base asset on the market's token.
func (s *Service) Buy(ctx context.Context, req SwapRequest) (*SwapResult, error) {
	const op = "buy"

	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	unlock := s.lockMarket(req.Mint)
	defer unlock()

	cfg, err := s.loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	m, err := s.loadMarket(ctx, op, req.Mint)
	if err != nil {
		return nil, err
	}

	q, err := curve.QuoteBuy(cfg, &m.Curve, req.Amount, req.MinOut)
	if err != nil {
		return nil, err
	}

	balance, err := s.custody.Balance(ctx, cfg.BaseAsset, req.Actor)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read balance: %w", op, err)
	}
	if balance < req.Amount {
		return nil, curve.Wrap(op, curve.NotEnoughBaseToken, fmt.Errorf("balance %d, need %d", balance, req.Amount))
	}

	undo := newUndoStack(op, s.logger)
	if err := s.moveLegs(ctx, undo, []leg{
		{"fee", cfg.BaseAsset, req.Actor, cfg.FeeRecipient, q.Fee},
		{"input", cfg.BaseAsset, req.Actor, m.PoolVault, q.NetInput},
		{"output", req.Mint, m.PoolVault, req.Actor, q.Output},
	}); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := m.Curve.ApplyBuy(q); err != nil {
		undo.unwind(ctx, err)
		return nil, err
	}
	completed := curve.CheckCompletion(cfg, &m.Curve)

	if err := s.store.SaveMarket(ctx, m); err != nil {
		undo.unwind(ctx, err)
		return nil, fmt.Errorf("%s: failed to save market: %w", op, err)
	}

	s.logger.Info("Buy executed",
		zap.String("mint", req.Mint.String()),
		zap.String("actor", req.Actor.String()),
		zap.Uint64("input", req.Amount),
		zap.Uint64("fee", q.Fee),
		zap.Uint64("output", q.Output),
		zap.String("price", curve.SpotPrice(&m.Curve).String()),
		zap.String("progress", curve.Progress(cfg, &m.Curve).String()))

	now := s.now()
	s.publish(&events.SwapExecutedEvent{
		BaseEvent:    events.NewBaseEvent(events.SwapExecuted, now),
		Operation:    events.OpBuy,
		Actor:        req.Actor,
		Market:       req.Mint,
		InputAmount:  req.Amount,
		OutputAmount: q.Output,
		Fee:          q.Fee,
		AssetIn:      cfg.BaseAsset,
		AssetOut:     req.Mint,
		FeeRecipient: cfg.FeeRecipient,
	})
	if completed {
		addrs, err := accounts.DeriveMarket(s.opts.ProgramID, req.Mint)
		if err != nil {
			s.logger.Error("Failed to derive market addresses", zap.Error(err))
		}
		s.publishCompleted(m, req.Actor, addrs, now)
	}

	return &SwapResult{
		Operation: events.OpBuy,
		Input:     req.Amount,
		Fee:       q.Fee,
		NetInput:  q.NetInput,
		Output:    q.Output,
		Completed: completed,
		Curve:     m.Curve,
	}, nil
}

// Sell returns req.Amount of the market's token for the base asset.
func (s *Service) Sell(ctx context.Context, req SwapRequest) (*SwapResult, error) {
	const op = "sell"

	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	unlock := s.lockMarket(req.Mint)
	defer unlock()

	cfg, err := s.loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	m, err := s.loadMarket(ctx, op, req.Mint)
	if err != nil {
		return nil, err
	}

	q, err := curve.QuoteSell(cfg, &m.Curve, req.Amount, req.MinOut)
	if err != nil {
		return nil, err
	}

	balance, err := s.custody.Balance(ctx, req.Mint, req.Actor)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read balance: %w", op, err)
	}
	if balance < req.Amount {
		return nil, curve.Wrap(op, curve.NotEnoughQuoteToken, fmt.Errorf("balance %d, need %d", balance, req.Amount))
	}

	undo := newUndoStack(op, s.logger)
	if err := s.moveLegs(ctx, undo, []leg{
		{"fee", req.Mint, req.Actor, cfg.FeeRecipient, q.Fee},
		{"input", req.Mint, req.Actor, m.PoolVault, q.NetInput},
		{"output", cfg.BaseAsset, m.PoolVault, req.Actor, q.Output},
	}); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := m.Curve.ApplySell(q); err != nil {
		undo.unwind(ctx, err)
		return nil, err
	}
	if err := s.store.SaveMarket(ctx, m); err != nil {
		undo.unwind(ctx, err)
		return nil, fmt.Errorf("%s: failed to save market: %w", op, err)
	}

	s.logger.Info("Sell executed",
		zap.String("mint", req.Mint.String()),
		zap.String("actor", req.Actor.String()),
		zap.Uint64("input", req.Amount),
		zap.Uint64("fee", q.Fee),
		zap.Uint64("output", q.Output),
		zap.String("price", curve.SpotPrice(&m.Curve).String()))

	s.publish(&events.SwapExecutedEvent{
		BaseEvent:    events.NewBaseEvent(events.SwapExecuted, s.now()),
		Operation:    events.OpSell,
		Actor:        req.Actor,
		Market:       req.Mint,
		InputAmount:  req.Amount,
		OutputAmount: q.Output,
		Fee:          q.Fee,
		AssetIn:      req.Mint,
		AssetOut:     cfg.BaseAsset,
		FeeRecipient: cfg.FeeRecipient,
	})

	return &SwapResult{
		Operation: events.OpSell,
		Input:     req.Amount,
		Fee:       q.Fee,
		NetInput:  q.NetInput,
		Output:    q.Output,
		Curve:     m.Curve,
	}, nil
}

func (s *Service) publishCompleted(m *models.Market, recipient solana.PublicKey, addrs accounts.MarketAddresses, now time.Time) {
	s.logger.Info("Bonding curve completed",
		zap.String("mint", m.Mint.String()),
		zap.Uint64("base_reserves", m.Curve.BaseReserves),
		zap.Uint64("quote_reserves", m.Curve.QuoteReserves))

	s.publish(&events.CurveCompletedEvent{
		BaseEvent: events.NewBaseEvent(events.CurveCompleted, now),
		Market:    m.Mint,
		Recipient: recipient,
		Pool:      addrs.BondingCurve,
		QuotePool: m.PoolVault,
	})
}
