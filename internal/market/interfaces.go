// internal/market/interfaces.go
package market

import (
	"context"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/pumpcurve/internal/events"
	"github.com/rovshanmuradov/pumpcurve/internal/liquidity"
)

// Custody moves token balances between owners.
type Custody interface {
	Transfer(ctx context.Context, asset, from, to solana.PublicKey, amount uint64) error
	Balance(ctx context.Context, asset, owner solana.PublicKey) (uint64, error)
}

// Issuer creates and destroys supply of a market's token.
type Issuer interface {
	Mint(ctx context.Context, asset, to solana.PublicKey, amount uint64) error
	Burn(ctx context.Context, asset, from solana.PublicKey, amount uint64) error
}

// Lamports reads and moves native balances.
type Lamports interface {
	Lamports(ctx context.Context, owner solana.PublicKey) (uint64, error)
	TransferLamports(ctx context.Context, from, to solana.PublicKey, amount uint64) error
}

// PoolInitializer creates the external pool a completed market migrates to.
// Errors that report Temporary() == true are retried.
type PoolInitializer interface {
	InitializePool(ctx context.Context, p liquidity.PoolParams) (solana.PublicKey, error)
	ProgramID() solana.PublicKey
}

// EventSink receives fire-and-forget notifications.
type EventSink interface {
	Publish(event events.Event) error
}
