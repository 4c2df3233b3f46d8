// =================================
// File: internal/market/service.go
// =================================
package market

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/pumpcurve/internal/accounts"
	"github.com/rovshanmuradov/pumpcurve/internal/curve"
	"github.com/rovshanmuradov/pumpcurve/internal/events"
	"github.com/rovshanmuradov/pumpcurve/internal/storage"
	"github.com/rovshanmuradov/pumpcurve/internal/storage/models"
)

// ErrNotInitialized is returned before the global configuration exists.
var ErrNotInitialized = errors.New("global configuration not initialized")

// ErrAlreadyInitialized is returned when the configuration is created twice.
var ErrAlreadyInitialized = errors.New("global configuration already initialized")

// Deps are the collaborators of a Service.
type Deps struct {
	Custody  Custody
	Issuer   Issuer
	Lamports Lamports
	Pools    PoolInitializer
	Events   EventSink
	Store    storage.Storage
}

// Options tune a Service.
type Options struct {
	ProgramID solana.PublicKey
	// TxConfirmFee is added to the migration fee the authority must cover.
	TxConfirmFee uint64
	// Retry policy for transient pool initialization failures.
	RetryInitialInterval time.Duration
	RetryMaxElapsed      time.Duration
	Now                  func() time.Time
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{
		ProgramID:            accounts.ProgramID,
		TxConfirmFee:         1_000_000,
		RetryInitialInterval: 500 * time.Millisecond,
		RetryMaxElapsed:      15 * time.Second,
		Now:                  time.Now,
	}
}

// Service executes market operations. Mutations of one market are
// serialized by a per-market lock; configuration writes exclude every
// market operation.
type Service struct {
	cfgMu sync.RWMutex

	locksMu sync.Mutex
	locks   map[solana.PublicKey]*sync.Mutex

	custody  Custody
	issuer   Issuer
	lamports Lamports
	pools    PoolInitializer
	sink     EventSink
	store    storage.Storage

	opts   Options
	logger *zap.Logger
}

// NewService wires a Service.
func NewService(deps Deps, opts Options, logger *zap.Logger) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.ProgramID.IsZero() {
		opts.ProgramID = accounts.ProgramID
	}
	return &Service{
		locks:    make(map[solana.PublicKey]*sync.Mutex),
		custody:  deps.Custody,
		issuer:   deps.Issuer,
		lamports: deps.Lamports,
		pools:    deps.Pools,
		sink:     deps.Events,
		store:    deps.Store,
		opts:     opts,
		logger:   logger.Named("market"),
	}
}

// lockMarket acquires the lock of one market and returns its release.
func (s *Service) lockMarket(mint solana.PublicKey) func() {
	s.locksMu.Lock()
	mu, ok := s.locks[mint]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[mint] = mu
	}
	s.locksMu.Unlock()

	mu.Lock()
	return mu.Unlock
}

func (s *Service) loadConfig(ctx context.Context) (*curve.GlobalConfiguration, error) {
	cfg, err := s.store.LoadConfig(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotInitialized
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

func (s *Service) loadMarket(ctx context.Context, op string, mint solana.PublicKey) (*models.Market, error) {
	m, err := s.store.LoadMarket(ctx, mint)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, curve.Wrap(op, curve.MarketNotFound, err)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: failed to load market: %w", op, err)
	}
	return m, nil
}

// publish hands an event to the sink without letting a full or closed sink
// affect the operation that produced it.
func (s *Service) publish(e events.Event) {
	if s.sink == nil {
		return
	}
	if err := s.sink.Publish(e); err != nil {
		s.logger.Warn("Event not published",
			zap.String("event_type", string(e.Type())),
			zap.Error(err))
	}
}

func (s *Service) now() time.Time {
	return s.opts.Now().UTC()
}

// Config returns the current global configuration.
func (s *Service) Config(ctx context.Context) (*curve.GlobalConfiguration, error) {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.loadConfig(ctx)
}

// InitializeConfiguration creates the deployment configuration. The
// initializer becomes admin and migration authority.
func (s *Service) InitializeConfiguration(ctx context.Context, initializer solana.PublicKey, p curve.InitParams) (*curve.GlobalConfiguration, error) {
	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()

	if _, err := s.loadConfig(ctx); err == nil {
		return nil, ErrAlreadyInitialized
	} else if !errors.Is(err, ErrNotInitialized) {
		return nil, err
	}

	cfg, err := curve.NewGlobalConfiguration(initializer, p)
	if err != nil {
		return nil, err
	}
	if err := s.store.SaveConfig(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to save configuration: %w", err)
	}

	s.logger.Info("Global configuration initialized",
		zap.String("admin", initializer.String()),
		zap.Uint64("swap_fee_bps", cfg.SwapFeeBps),
		zap.Uint64("completion_threshold", cfg.CompletionThreshold),
		zap.Uint64("initial_virtual_base", cfg.InitialVirtualBase),
		zap.Uint64("initial_virtual_quote", cfg.InitialVirtualQuote))
	return cfg, nil
}

// SetSwapFee changes the swap fee rate. Only the admin may call it.
func (s *Service) SetSwapFee(ctx context.Context, caller solana.PublicKey, bps uint64) error {
	return s.updateConfig(ctx, "swap_fee_bps", caller, bps, (*curve.GlobalConfiguration).SetSwapFee)
}

// SetCompletionThreshold changes the completion threshold. Only the admin
// may call it.
func (s *Service) SetCompletionThreshold(ctx context.Context, caller solana.PublicKey, threshold uint64) error {
	return s.updateConfig(ctx, "completion_threshold", caller, threshold, (*curve.GlobalConfiguration).SetCompletionThreshold)
}

func (s *Service) updateConfig(
	ctx context.Context,
	field string,
	caller solana.PublicKey,
	value uint64,
	set func(*curve.GlobalConfiguration, solana.PublicKey, uint64) (uint64, error),
) error {
	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()

	cfg, err := s.loadConfig(ctx)
	if err != nil {
		return err
	}
	old, err := set(cfg, caller, value)
	if err != nil {
		return err
	}
	if err := s.store.SaveConfig(ctx, cfg); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	s.logger.Info("Configuration updated",
		zap.String("field", field),
		zap.Uint64("old", old),
		zap.Uint64("new", value))

	s.publish(&events.ConfigUpdatedEvent{
		BaseEvent: events.NewBaseEvent(events.ConfigUpdated, s.now()),
		Field:     field,
		Old:       old,
		New:       value,
		Admin:     caller,
	})
	return nil
}

// Market returns the record of one market.
func (s *Service) Market(ctx context.Context, mint solana.PublicKey) (*models.Market, error) {
	return s.loadMarket(ctx, "get_market", mint)
}

// Markets returns every market, oldest first.
func (s *Service) Markets(ctx context.Context) ([]*models.Market, error) {
	return s.store.ListMarkets(ctx)
}
