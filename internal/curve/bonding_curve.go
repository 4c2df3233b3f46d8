// ======================================
// File: internal/curve/bonding_curve.go
// ======================================
package curve

import (
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/holiman/uint256"

	"github.com/rovshanmuradov/pumpcurve/internal/fixedmath"
)

// LifecycleState is the one-directional market lifecycle.
type LifecycleState uint8

const (
	StateActive LifecycleState = iota
	StateCompleted
	StateMigrated
)

func (s LifecycleState) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateCompleted:
		return "completed"
	case StateMigrated:
		return "migrated"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// ErrStaleQuote is returned when a quote is applied to a curve whose
// reserves moved after the quote was computed.
var ErrStaleQuote = errors.New("quote does not match current reserves")

// BondingCurve is the per-market reserve state. Field order matches the
// persisted layout; State is appended after the completion flag.
type BondingCurve struct {
	InitVirtualBase  uint64
	InitVirtualQuote uint64
	BaseReserves     uint64
	QuoteReserves    uint64
	Invariant        bin.Uint128
	IsCompleted      bool
	State            LifecycleState
}

// NewBondingCurve seeds a curve from the configured virtual reserves. The
// invariant is fixed here and never recomputed.
func NewBondingCurve(cfg *GlobalConfiguration) (*BondingCurve, error) {
	const op = "create_bonding_curve"

	if cfg.InitialVirtualBase == 0 || cfg.InitialVirtualQuote == 0 {
		return nil, newError(op, InvalidVirtualReserves)
	}
	k, err := fixedmath.ToUint128(fixedmath.Mul128(cfg.InitialVirtualBase, cfg.InitialVirtualQuote))
	if err != nil {
		return nil, mathError(op, err)
	}

	return &BondingCurve{
		InitVirtualBase:  cfg.InitialVirtualBase,
		InitVirtualQuote: cfg.InitialVirtualQuote,
		BaseReserves:     0,
		QuoteReserves:    cfg.InitialVirtualQuote,
		Invariant:        k,
		State:            StateActive,
	}, nil
}

// InvariantValue returns the invariant in the wide arithmetic domain.
func (c *BondingCurve) InvariantValue() *uint256.Int {
	return fixedmath.FromUint128(c.Invariant)
}

// Active reports whether the curve still accepts swaps.
func (c *BondingCurve) Active() bool {
	return c.State == StateActive
}

// ApplyBuy commits a buy quote computed against the current reserves.
func (c *BondingCurve) ApplyBuy(q BuyQuote) error {
	if !c.Active() {
		return newError("buy", BondingCurveIsCompleted)
	}
	if q.BaseBefore != c.BaseReserves || q.QuoteBefore != c.QuoteReserves {
		return fmt.Errorf("buy: %w", ErrStaleQuote)
	}
	c.BaseReserves = q.NewBase
	c.QuoteReserves = q.NewQuote
	return nil
}

// ApplySell commits a sell quote computed against the current reserves.
func (c *BondingCurve) ApplySell(q SellQuote) error {
	if !c.Active() {
		return newError("sell", BondingCurveIsCompleted)
	}
	if q.BaseBefore != c.BaseReserves || q.QuoteBefore != c.QuoteReserves {
		return fmt.Errorf("sell: %w", ErrStaleQuote)
	}
	c.BaseReserves = q.NewBase
	c.QuoteReserves = q.NewQuote
	return nil
}

// MarkMigrated moves a completed curve to its terminal state.
func (c *BondingCurve) MarkMigrated() error {
	const op = "migrate"

	switch c.State {
	case StateCompleted:
		c.State = StateMigrated
		return nil
	case StateMigrated:
		return newError(op, BondingCurveAlreadyMigrated)
	default:
		return newError(op, BondingCurveIsNotCompleted)
	}
}

// Clone returns an independent copy of the curve.
func (c *BondingCurve) Clone() *BondingCurve {
	cp := *c
	return &cp
}
