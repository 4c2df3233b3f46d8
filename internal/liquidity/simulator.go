// =============================
// File: internal/liquidity/simulator.go
// =============================
package liquidity

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// CPSwapProgramID is the constant-product pool program markets migrate to.
var CPSwapProgramID = solana.MustPublicKeyFromBase58("CPMMoo8L3F4NbTegBCKVNunggL7H1ZpdTHKxQB5qKP1C")

const poolSeed = "pool"

var errNetworkUnavailable = errors.New("pool program temporarily unavailable")

// PoolParams are the ordered initial amounts of a new pool.
type PoolParams struct {
	Token0  solana.PublicKey
	Token1  solana.PublicKey
	Amount0 uint64
	Amount1 uint64
	// Creator funds the pool and owns it afterwards.
	Creator solana.PublicKey
}

// Pool is an initialized constant-product pool.
type Pool struct {
	Handle   solana.PublicKey
	Token0   solana.PublicKey
	Token1   solana.PublicKey
	Reserve0 uint64
	Reserve1 uint64
	Creator  solana.PublicKey
}

// Transferer moves token balances into the pool.
type Transferer interface {
	Transfer(ctx context.Context, asset, from, to solana.PublicKey, amount uint64) error
}

// Simulator is an in-process stand-in for the external pool program. It
// pulls the initial amounts from the creator into an account owned by the
// pool handle.
type Simulator struct {
	mu        sync.Mutex
	programID solana.PublicKey
	custody   Transferer
	pools     map[solana.PublicKey]Pool
	failNext  int
	attempts  int
	logger    *zap.Logger
}

// NewSimulator creates a pool simulator for programID.
func NewSimulator(programID solana.PublicKey, custody Transferer, logger *zap.Logger) *Simulator {
	return &Simulator{
		programID: programID,
		custody:   custody,
		pools:     make(map[solana.PublicKey]Pool),
		logger:    logger.Named("liquidity"),
	}
}

// ProgramID returns the program that controls created pools.
func (s *Simulator) ProgramID() solana.PublicKey {
	return s.programID
}

// InjectTransientFailures makes the next n initializations fail with a
// retryable error.
func (s *Simulator) InjectTransientFailures(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = n
}

// Attempts returns how many initializations were tried.
func (s *Simulator) Attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

// PoolAddress derives the pool handle for an ordered pair.
func PoolAddress(programID, token0, token1 solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{[]byte(poolSeed), token0.Bytes(), token1.Bytes()},
		programID,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive pool address: %w", err)
	}
	return addr, nil
}

// InitializePool creates a pool for p and returns its handle.
func (s *Simulator) InitializePool(ctx context.Context, p PoolParams) (solana.PublicKey, error) {
	if err := ctx.Err(); err != nil {
		return solana.PublicKey{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.attempts++
	if s.failNext > 0 {
		s.failNext--
		s.logger.Warn("Pool initialization failed, retryable",
			zap.Int("attempt", s.attempts))
		return solana.PublicKey{}, &TransientError{Attempt: s.attempts, Err: errNetworkUnavailable}
	}

	if bytes.Compare(p.Token0[:], p.Token1[:]) >= 0 {
		return solana.PublicKey{}, ErrTokenOrder
	}
	if p.Amount0 == 0 || p.Amount1 == 0 {
		return solana.PublicKey{}, ErrEmptyPool
	}

	handle, err := PoolAddress(s.programID, p.Token0, p.Token1)
	if err != nil {
		return solana.PublicKey{}, err
	}
	if _, ok := s.pools[handle]; ok {
		return solana.PublicKey{}, fmt.Errorf("%s: %w", handle, ErrPoolExists)
	}

	if err := s.custody.Transfer(ctx, p.Token0, p.Creator, handle, p.Amount0); err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to fund pool with token0: %w", err)
	}
	if err := s.custody.Transfer(ctx, p.Token1, p.Creator, handle, p.Amount1); err != nil {
		if rbErr := s.custody.Transfer(ctx, p.Token0, handle, p.Creator, p.Amount0); rbErr != nil {
			s.logger.Error("Failed to return token0 after funding error", zap.Error(rbErr))
		}
		return solana.PublicKey{}, fmt.Errorf("failed to fund pool with token1: %w", err)
	}

	s.pools[handle] = Pool{
		Handle:   handle,
		Token0:   p.Token0,
		Token1:   p.Token1,
		Reserve0: p.Amount0,
		Reserve1: p.Amount1,
		Creator:  p.Creator,
	}

	s.logger.Info("Pool initialized",
		zap.String("pool", handle.String()),
		zap.String("token0", p.Token0.String()),
		zap.String("token1", p.Token1.String()),
		zap.Uint64("amount0", p.Amount0),
		zap.Uint64("amount1", p.Amount1))

	return handle, nil
}

// Pool returns a created pool by handle.
func (s *Simulator) Pool(handle solana.PublicKey) (Pool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pools[handle]
	return p, ok
}
