// ==================================
// File: internal/curve/lifecycle.go
// ==================================
package curve

import (
	"bytes"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/pumpcurve/internal/fixedmath"
)

// CompletionReached reports whether the virtual base level has reached the
// configured threshold.
func CompletionReached(cfg *GlobalConfiguration, c *BondingCurve) bool {
	level, err := fixedmath.Add64(c.BaseReserves, c.InitVirtualBase)
	if err != nil {
		// beyond any u64 threshold
		return true
	}
	return level >= cfg.CompletionThreshold
}

// CheckCompletion flips an active curve to completed once the threshold is
// reached. It reports whether this call performed the transition.
func CheckCompletion(cfg *GlobalConfiguration, c *BondingCurve) bool {
	if c.State != StateActive || !CompletionReached(cfg, c) {
		return false
	}
	c.State = StateCompleted
	c.IsCompleted = true
	return true
}

// MigrationRequest describes a hand-off of a completed market to an
// external pool. Token0 and Token1 must be the base asset and the market
// mint in ascending byte order.
type MigrationRequest struct {
	Caller           solana.PublicKey
	Token0           solana.PublicKey
	Token1           solana.PublicKey
	AuthorityBalance uint64
	TxConfirmFee     uint64
}

// MigrationPlan is a validated migration: the native amount the authority
// pays and the reserve amounts in pool slot order.
type MigrationPlan struct {
	Mint             solana.PublicKey
	Token0           solana.PublicKey
	Token1           solana.PublicKey
	Amount0          uint64
	Amount1          uint64
	LamportsRequired uint64
}

// SortTokens returns a and b in ascending byte order.
func SortTokens(a, b solana.PublicKey) (solana.PublicKey, solana.PublicKey) {
	if bytes.Compare(a[:], b[:]) > 0 {
		return b, a
	}
	return a, b
}

// PlanMigration validates a migration of the market identified by mint and
// computes what must be handed to the pool initializer. It does not mutate c.
func PlanMigration(cfg *GlobalConfiguration, c *BondingCurve, mint solana.PublicKey, req MigrationRequest) (MigrationPlan, error) {
	const op = "migrate"

	if err := Authorize(op, cfg.MigrationAuthority, req.Caller, InvalidMigrationAuth); err != nil {
		return MigrationPlan{}, err
	}

	switch c.State {
	case StateActive:
		return MigrationPlan{}, newError(op, BondingCurveIsNotCompleted)
	case StateMigrated:
		return MigrationPlan{}, newError(op, BondingCurveAlreadyMigrated)
	}

	if bytes.Compare(req.Token0[:], req.Token1[:]) >= 0 {
		return MigrationPlan{}, newError(op, TokenConstraintError)
	}
	pairOK := (req.Token0.Equals(cfg.BaseAsset) && req.Token1.Equals(mint)) ||
		(req.Token0.Equals(mint) && req.Token1.Equals(cfg.BaseAsset))
	if !pairOK {
		return MigrationPlan{}, newError(op, TokenConstraintError)
	}

	required, err := addChecked(op, cfg.MigrationFee, req.TxConfirmFee)
	if err != nil {
		return MigrationPlan{}, err
	}
	if req.AuthorityBalance <= required {
		return MigrationPlan{}, newError(op, NotEnoughSolBalance)
	}

	plan := MigrationPlan{
		Mint:             mint,
		Token0:           req.Token0,
		Token1:           req.Token1,
		LamportsRequired: required,
	}
	if req.Token0.Equals(cfg.BaseAsset) {
		plan.Amount0, plan.Amount1 = c.BaseReserves, c.QuoteReserves
	} else {
		plan.Amount0, plan.Amount1 = c.QuoteReserves, c.BaseReserves
	}
	return plan, nil
}
