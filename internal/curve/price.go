// internal/curve/price.go
package curve

import (
	"math/big"

	"github.com/shopspring/decimal"
)

const (
	priceScale    = 18
	progressScale = 8
)

func dec(v uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0)
}

// SpotPrice returns the marginal price of one quote unit in base units,
// computed from the virtual base level and the live quote reserve.
func SpotPrice(c *BondingCurve) decimal.Decimal {
	if c.QuoteReserves == 0 {
		return decimal.Zero
	}
	level := dec(c.InitVirtualBase).Add(dec(c.BaseReserves))
	return level.DivRound(dec(c.QuoteReserves), priceScale)
}

// Progress returns the share of the completion threshold already reached,
// capped at one.
func Progress(cfg *GlobalConfiguration, c *BondingCurve) decimal.Decimal {
	one := decimal.NewFromInt(1)
	if cfg.CompletionThreshold == 0 || c.State != StateActive {
		return one
	}
	level := dec(c.InitVirtualBase).Add(dec(c.BaseReserves))
	p := level.DivRound(dec(cfg.CompletionThreshold), progressScale)
	if p.GreaterThan(one) {
		return one
	}
	return p
}
