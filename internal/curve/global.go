// ===============================
// File: internal/curve/global.go
// ===============================
package curve

import (
	"github.com/gagliardetto/solana-go"
)

// MaxBasisPoints is the denominator for every basis point quantity.
const MaxBasisPoints uint64 = 10_000

// GlobalConfiguration holds the deployment-wide parameters read by every
// market operation. Field order matches the persisted layout.
type GlobalConfiguration struct {
	SwapFeeBps          uint64
	CompletionThreshold uint64
	InitialVirtualBase  uint64
	InitialVirtualQuote uint64
	CreatePoolFee       uint64
	BaseAsset           solana.PublicKey
	FeeRecipient        solana.PublicKey
	MigrationAuthority  solana.PublicKey
	Admin               solana.PublicKey
	MigrationFee        uint64
}

// InitParams are the caller-supplied parameters of a new configuration.
type InitParams struct {
	SwapFeeBps          uint64
	CompletionThreshold uint64
	InitialVirtualBase  uint64
	InitialVirtualQuote uint64
	CreatePoolFee       uint64
	MigrationFee        uint64
	BaseAsset           solana.PublicKey
	FeeRecipient        solana.PublicKey
}

// NewGlobalConfiguration builds the configuration owned by initializer, who
// becomes both the admin and the migration authority.
func NewGlobalConfiguration(initializer solana.PublicKey, p InitParams) (*GlobalConfiguration, error) {
	const op = "initialize"

	if p.SwapFeeBps > MaxBasisPoints {
		return nil, newError(op, InvalidSwapFee)
	}
	if p.InitialVirtualBase == 0 || p.InitialVirtualQuote == 0 {
		return nil, newError(op, InvalidVirtualReserves)
	}

	return &GlobalConfiguration{
		SwapFeeBps:          p.SwapFeeBps,
		CompletionThreshold: p.CompletionThreshold,
		InitialVirtualBase:  p.InitialVirtualBase,
		InitialVirtualQuote: p.InitialVirtualQuote,
		CreatePoolFee:       p.CreatePoolFee,
		BaseAsset:           p.BaseAsset,
		FeeRecipient:        p.FeeRecipient,
		MigrationAuthority:  initializer,
		Admin:               initializer,
		MigrationFee:        p.MigrationFee,
	}, nil
}

// Authorize fails with kind unless caller is the expected identity.
func Authorize(op string, expected, caller solana.PublicKey, kind Kind) error {
	if !expected.Equals(caller) {
		return newError(op, kind)
	}
	return nil
}

// SetSwapFee changes the swap fee rate and returns the previous value.
func (g *GlobalConfiguration) SetSwapFee(caller solana.PublicKey, bps uint64) (uint64, error) {
	const op = "set_swap_fee"

	if err := Authorize(op, g.Admin, caller, InvalidAdminAccount); err != nil {
		return 0, err
	}
	if bps > MaxBasisPoints {
		return 0, newError(op, InvalidSwapFee)
	}
	old := g.SwapFeeBps
	g.SwapFeeBps = bps
	return old, nil
}

// SetCompletionThreshold changes the completion threshold and returns the
// previous value. Markets that already completed stay completed.
func (g *GlobalConfiguration) SetCompletionThreshold(caller solana.PublicKey, threshold uint64) (uint64, error) {
	const op = "set_completion_threshold"

	if err := Authorize(op, g.Admin, caller, InvalidAdminAccount); err != nil {
		return 0, err
	}
	old := g.CompletionThreshold
	g.CompletionThreshold = threshold
	return old, nil
}

// Clone returns a copy safe to hand to readers.
func (g *GlobalConfiguration) Clone() *GlobalConfiguration {
	c := *g
	return &c
}
