// =============================
// File: internal/custody/ledger.go
// =============================
package custody

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/pumpcurve/internal/fixedmath"
)

// ErrInsufficientFunds is returned when a debit exceeds the balance.
var ErrInsufficientFunds = errors.New("insufficient funds")

type holding struct {
	asset solana.PublicKey
	owner solana.PublicKey
}

// Ledger хранит балансы активов и нативные балансы (lamports) в памяти.
// Все операции атомарны относительно друг друга.
type Ledger struct {
	mu       sync.Mutex
	balances map[holding]uint64
	lamports map[solana.PublicKey]uint64
	logger   *zap.Logger
}

// NewLedger создает пустой реестр балансов.
func NewLedger(logger *zap.Logger) *Ledger {
	return &Ledger{
		balances: make(map[holding]uint64),
		lamports: make(map[solana.PublicKey]uint64),
		logger:   logger.Named("custody"),
	}
}

// Balance returns owner's balance of asset.
func (l *Ledger) Balance(ctx context.Context, asset, owner solana.PublicKey) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[holding{asset, owner}], nil
}

// Transfer moves amount of asset from one owner to another.
func (l *Ledger) Transfer(ctx context.Context, asset, from, to solana.PublicKey, amount uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	// перевод самому себе ничего не меняет
	if from.Equals(to) || amount == 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	src := holding{asset, from}
	dst := holding{asset, to}

	debited, err := fixedmath.Sub64(l.balances[src], amount)
	if err != nil {
		return fmt.Errorf("transfer %d of %s from %s: %w", amount, asset, from, ErrInsufficientFunds)
	}
	credited, err := fixedmath.Add64(l.balances[dst], amount)
	if err != nil {
		return fmt.Errorf("transfer %d of %s to %s: %w", amount, asset, to, err)
	}
	l.balances[src] = debited
	l.balances[dst] = credited

	l.logger.Debug("Transfer",
		zap.String("asset", asset.String()),
		zap.String("from", from.String()),
		zap.String("to", to.String()),
		zap.Uint64("amount", amount))
	return nil
}

// Mint issues amount of asset to an owner.
func (l *Ledger) Mint(ctx context.Context, asset, to solana.PublicKey, amount uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	key := holding{asset, to}
	credited, err := fixedmath.Add64(l.balances[key], amount)
	if err != nil {
		return fmt.Errorf("mint %d of %s: %w", amount, asset, err)
	}
	l.balances[key] = credited

	l.logger.Debug("Mint",
		zap.String("asset", asset.String()),
		zap.String("to", to.String()),
		zap.Uint64("amount", amount))
	return nil
}

// Burn destroys amount of asset held by an owner.
func (l *Ledger) Burn(ctx context.Context, asset, from solana.PublicKey, amount uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	key := holding{asset, from}
	debited, err := fixedmath.Sub64(l.balances[key], amount)
	if err != nil {
		return fmt.Errorf("burn %d of %s: %w", amount, asset, ErrInsufficientFunds)
	}
	l.balances[key] = debited
	return nil
}

// Lamports returns the native balance of owner.
func (l *Ledger) Lamports(ctx context.Context, owner solana.PublicKey) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lamports[owner], nil
}

// TransferLamports moves native balance between owners.
func (l *Ledger) TransferLamports(ctx context.Context, from, to solana.PublicKey, amount uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if from.Equals(to) || amount == 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	debited, err := fixedmath.Sub64(l.lamports[from], amount)
	if err != nil {
		return fmt.Errorf("transfer %d lamports from %s: %w", amount, from, ErrInsufficientFunds)
	}
	credited, err := fixedmath.Add64(l.lamports[to], amount)
	if err != nil {
		return fmt.Errorf("transfer %d lamports to %s: %w", amount, to, err)
	}
	l.lamports[from] = debited
	l.lamports[to] = credited

	l.logger.Debug("Lamports transfer",
		zap.String("from", from.String()),
		zap.String("to", to.String()),
		zap.Uint64("lamports", amount))
	return nil
}

// Airdrop credits native balance out of thin air. Used to fund simulated
// actors.
func (l *Ledger) Airdrop(ctx context.Context, to solana.PublicKey, amount uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	credited, err := fixedmath.Add64(l.lamports[to], amount)
	if err != nil {
		return fmt.Errorf("airdrop to %s: %w", to, err)
	}
	l.lamports[to] = credited
	return nil
}

// Snapshot является копией балансов для отчетов и тестов.
type Snapshot struct {
	Assets   map[solana.PublicKey]map[solana.PublicKey]uint64
	Lamports map[solana.PublicKey]uint64
}

// Snapshot returns a copy of every non-zero balance.
func (l *Ledger) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	snap := Snapshot{
		Assets:   make(map[solana.PublicKey]map[solana.PublicKey]uint64),
		Lamports: make(map[solana.PublicKey]uint64, len(l.lamports)),
	}
	for h, v := range l.balances {
		if v == 0 {
			continue
		}
		if snap.Assets[h.asset] == nil {
			snap.Assets[h.asset] = make(map[solana.PublicKey]uint64)
		}
		snap.Assets[h.asset][h.owner] = v
	}
	for owner, v := range l.lamports {
		if v != 0 {
			snap.Lamports[owner] = v
		}
	}
	return snap
}
