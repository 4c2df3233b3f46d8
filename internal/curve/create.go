// ===============================
// File: internal/curve/create.go
// ===============================
package curve

import (
	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/pumpcurve/internal/fixedmath"
)

const (
	// MintAccountSize is the on-chain size of a token mint account.
	MintAccountSize = 82
	// MetadataSpace is reserved for name, symbol and URI.
	MetadataSpace = 250

	accountStorageOverhead  = 128
	lamportsPerByteYear     = 3480
	exemptionThresholdYears = 2
)

// RentExemptMinimum returns the native balance needed to keep an account of
// dataLen bytes alive.
func RentExemptMinimum(dataLen uint64) uint64 {
	return (accountStorageOverhead + dataLen) * lamportsPerByteYear * exemptionThresholdYears
}

// CreationRent is the native balance a creator must exceed to open a market.
var CreationRent = RentExemptMinimum(MintAccountSize + MetadataSpace)

// CreateRequest is a request to open a new market for Mint.
type CreateRequest struct {
	Creator                solana.PublicKey
	Mint                   solana.PublicKey
	BaseAsset              solana.PublicKey
	FeeRecipient           solana.PublicKey
	Name                   string
	Symbol                 string
	URI                    string
	DevBuy                 uint64
	InitialTransferPercent uint64
}

// CreationPlan is a validated market creation: the seeded curve and every
// amount the caller has to move to make it real.
type CreationPlan struct {
	Curve *BondingCurve
	// DevBuy is nil when no dev buy was requested.
	DevBuy *BuyQuote
	// PlatformFee is the creation fee plus the dev buy fee, paid to the
	// fee recipient in the base asset.
	PlatformFee uint64
	// Supply is minted to the pool vault.
	Supply uint64
	// InitialTransferAmount of the dev buy output goes to the creator; the
	// rest of it stays in the pool vault outside the reserves.
	InitialTransferAmount uint64
	RetainedAmount        uint64
	Completed             bool
}

// PrepareCreation validates req against cfg and the creator's balances and
// computes the initial curve, including the optional dev buy.
func PrepareCreation(cfg *GlobalConfiguration, req CreateRequest, creatorBaseBalance, creatorLamports uint64) (CreationPlan, error) {
	const op = "create_market"

	if !req.BaseAsset.Equals(cfg.BaseAsset) {
		return CreationPlan{}, newError(op, InvalidBaseToken)
	}
	if !req.FeeRecipient.Equals(cfg.FeeRecipient) {
		return CreationPlan{}, newError(op, InvalidFeeWallet)
	}
	cost, err := addChecked(op, req.DevBuy, cfg.CreatePoolFee)
	if err != nil {
		return CreationPlan{}, err
	}
	if creatorBaseBalance <= cost {
		return CreationPlan{}, newError(op, NotEnoughBaseToken)
	}
	if req.InitialTransferPercent > MaxBasisPoints {
		return CreationPlan{}, newError(op, InvalidInitialTokenTransferPercent)
	}
	if creatorLamports <= CreationRent {
		return CreationPlan{}, newError(op, NotEnoughSolBalance)
	}

	c, err := NewBondingCurve(cfg)
	if err != nil {
		return CreationPlan{}, err
	}

	plan := CreationPlan{
		Curve:       c,
		PlatformFee: cfg.CreatePoolFee,
		Supply:      cfg.InitialVirtualQuote,
	}

	if req.DevBuy > 0 {
		q, err := QuoteBuy(cfg, c, req.DevBuy, 0)
		if err != nil {
			return CreationPlan{}, err
		}
		if q.Output == 0 {
			return CreationPlan{}, newError(op, DevBuyAmountIsTooSmall)
		}
		if err := c.ApplyBuy(q); err != nil {
			return CreationPlan{}, err
		}
		if plan.PlatformFee, err = addChecked(op, plan.PlatformFee, q.Fee); err != nil {
			return CreationPlan{}, err
		}
		transfer, err := fixedmath.MulDivFloor(q.Output, req.InitialTransferPercent, MaxBasisPoints)
		if err != nil {
			return CreationPlan{}, mathError(op, err)
		}
		plan.DevBuy = &q
		plan.InitialTransferAmount = transfer
		plan.RetainedAmount = q.Output - transfer
	}

	plan.Completed = CheckCompletion(cfg, c)
	return plan, nil
}

func addChecked(op string, a, b uint64) (uint64, error) {
	sum, err := fixedmath.Add64(a, b)
	if err != nil {
		return 0, mathError(op, err)
	}
	return sum, nil
}
