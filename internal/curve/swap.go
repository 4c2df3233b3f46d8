// =============================
// File: internal/curve/swap.go
// =============================
package curve

import (
	"github.com/holiman/uint256"

	"github.com/rovshanmuradov/pumpcurve/internal/fixedmath"
)

// BuyQuote is the full result of pricing a buy. Nothing is mutated until it
// is applied with BondingCurve.ApplyBuy.
type BuyQuote struct {
	Input       uint64
	Fee         uint64
	NetInput    uint64
	Denominator *uint256.Int
	TargetQuote uint64
	Output      uint64

	BaseBefore  uint64
	QuoteBefore uint64
	NewBase     uint64
	NewQuote    uint64
}

// SellQuote is the full result of pricing a sell.
type SellQuote struct {
	Input       uint64
	Fee         uint64
	NetInput    uint64
	Denominator *uint256.Int
	// TargetBase может превышать 64 бита, когда виртуальная база велика.
	TargetBase *uint256.Int
	Output     uint64

	BaseBefore  uint64
	QuoteBefore uint64
	NewBase     uint64
	NewQuote    uint64
}

// SwapFee returns floor(amount * bps / 10000).
func SwapFee(amount, bps uint64) (uint64, error) {
	return fixedmath.MulDivFloor(amount, bps, MaxBasisPoints)
}

func splitFee(op string, amount, bps uint64) (fee, net uint64, err error) {
	fee, err = SwapFee(amount, bps)
	if err != nil {
		return 0, 0, mathError(op, err)
	}
	net, err = fixedmath.Sub64(amount, fee)
	if err != nil {
		return 0, 0, mathError(op, err)
	}
	return fee, net, nil
}

// QuoteBuy prices spending baseIn of the base asset for the quote asset.
// The target quote reserve is the invariant divided by the new virtual base
// level, truncated, so rounding always favours the pool.
func QuoteBuy(cfg *GlobalConfiguration, c *BondingCurve, baseIn, expected uint64) (BuyQuote, error) {
	const op = "buy"

	if !c.Active() {
		return BuyQuote{}, newError(op, BondingCurveIsCompleted)
	}

	fee, net, err := splitFee(op, baseIn, cfg.SwapFeeBps)
	if err != nil {
		return BuyQuote{}, err
	}

	den, err := fixedmath.Add128(fixedmath.Widen(c.InitVirtualBase), fixedmath.Widen(c.BaseReserves))
	if err != nil {
		return BuyQuote{}, mathError(op, err)
	}
	if den, err = fixedmath.Add128(den, fixedmath.Widen(net)); err != nil {
		return BuyQuote{}, mathError(op, err)
	}

	target, err := fixedmath.Div128(c.InvariantValue(), den)
	if err != nil {
		return BuyQuote{}, mathError(op, err)
	}
	out, err := fixedmath.Sub128(fixedmath.Widen(c.QuoteReserves), target)
	if err != nil {
		return BuyQuote{}, newError(op, OverflowEstimateOutQuote)
	}
	// target <= quote reserves here, so both fit 64 bits
	output := out.Uint64()

	if output < expected {
		return BuyQuote{}, newError(op, SlippageExceeded)
	}

	newBase, err := fixedmath.Add64(c.BaseReserves, net)
	if err != nil {
		return BuyQuote{}, mathError(op, err)
	}

	return BuyQuote{
		Input:       baseIn,
		Fee:         fee,
		NetInput:    net,
		Denominator: den,
		TargetQuote: target.Uint64(),
		Output:      output,
		BaseBefore:  c.BaseReserves,
		QuoteBefore: c.QuoteReserves,
		NewBase:     newBase,
		NewQuote:    c.QuoteReserves - output,
	}, nil
}

// QuoteSell prices returning quoteIn of the quote asset for the base asset.
// It mirrors QuoteBuy: the fee comes off the quote leg and the target base
// level is the truncated invariant over the new quote reserve.
func QuoteSell(cfg *GlobalConfiguration, c *BondingCurve, quoteIn, expected uint64) (SellQuote, error) {
	const op = "sell"

	if !c.Active() {
		return SellQuote{}, newError(op, BondingCurveIsCompleted)
	}

	fee, net, err := splitFee(op, quoteIn, cfg.SwapFeeBps)
	if err != nil {
		return SellQuote{}, err
	}

	den, err := fixedmath.Add128(fixedmath.Widen(c.QuoteReserves), fixedmath.Widen(net))
	if err != nil {
		return SellQuote{}, mathError(op, err)
	}
	target, err := fixedmath.Div128(c.InvariantValue(), den)
	if err != nil {
		return SellQuote{}, mathError(op, err)
	}

	virtualBase, err := fixedmath.Add128(fixedmath.Widen(c.InitVirtualBase), fixedmath.Widen(c.BaseReserves))
	if err != nil {
		return SellQuote{}, mathError(op, err)
	}
	out, err := fixedmath.Sub128(virtualBase, target)
	if err != nil {
		return SellQuote{}, newError(op, OverflowEstimateOutBase)
	}
	// only real reserves can be paid out, never the virtual seed
	if !out.IsUint64() || out.Uint64() > c.BaseReserves {
		return SellQuote{}, newError(op, OverflowEstimateOutBase)
	}
	output := out.Uint64()

	if output < expected {
		return SellQuote{}, newError(op, SlippageExceeded)
	}

	newQuote, err := fixedmath.Add64(c.QuoteReserves, net)
	if err != nil {
		return SellQuote{}, mathError(op, err)
	}

	return SellQuote{
		Input:       quoteIn,
		Fee:         fee,
		NetInput:    net,
		Denominator: den,
		TargetBase:  target,
		Output:      output,
		BaseBefore:  c.BaseReserves,
		QuoteBefore: c.QuoteReserves,
		NewBase:     c.BaseReserves - output,
		NewQuote:    newQuote,
	}, nil
}
