// =============================================
// File: internal/scenario/runner.go
// =============================================
package scenario

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/pumpcurve/internal/accounts"
	"github.com/rovshanmuradov/pumpcurve/internal/config"
	"github.com/rovshanmuradov/pumpcurve/internal/curve"
	"github.com/rovshanmuradov/pumpcurve/internal/custody"
	"github.com/rovshanmuradov/pumpcurve/internal/events"
	"github.com/rovshanmuradov/pumpcurve/internal/export"
	"github.com/rovshanmuradov/pumpcurve/internal/liquidity"
	applog "github.com/rovshanmuradov/pumpcurve/internal/logger"
	"github.com/rovshanmuradov/pumpcurve/internal/market"
	"github.com/rovshanmuradov/pumpcurve/internal/storage/memory"
)

// ErrUnexpectedOutcome is returned when a step fails unexpectedly or
// succeeds where an error was expected.
var ErrUnexpectedOutcome = errors.New("unexpected step outcome")

// StepResult is the outcome of one replayed step.
type StepResult struct {
	Index  int
	Action Action
	Actor  string
	Market string
	Output uint64
	// Err is the error kind name for steps that failed as expected.
	Err string
}

// MarketSummary is the final state of one market.
type MarketSummary struct {
	Name          string
	Mint          solana.PublicKey
	State         curve.LifecycleState
	BaseReserves  uint64
	QuoteReserves uint64
	SpotPrice     string
	Progress      string
	PoolHandle    solana.PublicKey
}

// Report is the result of a run.
type Report struct {
	RunID    string
	Scenario string
	Steps    []StepResult
	Markets  []MarketSummary
	Records  []export.Record
	Balances custody.Snapshot
	Actors   map[string]solana.PublicKey
	BusStats events.BusStats
}

// Runner replays scenarios against a fresh in-process deployment.
type Runner struct {
	cfg      *config.Config
	tapePath string
	logger   *zap.Logger
}

// NewRunner creates a runner using cfg for genesis, events and migration
// settings.
func NewRunner(cfg *config.Config, logger *zap.Logger) *Runner {
	return &Runner{cfg: cfg, logger: logger.Named("scenario")}
}

// WithTape makes every run append its swaps to the CSV file at path.
func (r *Runner) WithTape(path string) *Runner {
	r.tapePath = path
	return r
}

// run is the state of one replay.
type run struct {
	svc     *market.Service
	ledger  *custody.Ledger
	pools   *liquidity.Simulator
	actors  map[string]solana.PublicKey
	markets map[string]solana.PublicKey
	genesis *curve.GlobalConfiguration
	logger  *zap.Logger
}

// Run replays sc. The replay and the event bus drain run in one errgroup:
// the bus is shut down once the replay ends, so every event is journaled
// before Run returns.
func (r *Runner) Run(ctx context.Context, sc *Scenario) (*Report, error) {
	runID := uuid.New().String()
	logger := r.logger.With(zap.String("run_id", runID), zap.String("scenario", sc.Name))

	var tape *applog.TapeWriter
	if r.tapePath != "" {
		var err error
		tape, err = applog.OpenTape(r.tapePath, export.CSVHeaders(), time.Second, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open swap tape: %w", err)
		}
		defer func() {
			if err := tape.Close(); err != nil {
				logger.Error("Failed to close swap tape", zap.Error(err))
			}
		}()
	}

	bus := events.NewBus(logger, r.cfg.Events.BufferSize)
	journal := export.NewJournal(tape, logger)
	journal.Attach(bus)

	st, err := r.deploy(ctx, sc, bus, logger)
	if err != nil {
		_ = bus.Shutdown(context.Background())
		return nil, err
	}

	report := &Report{RunID: runID, Scenario: sc.Name, Actors: st.actors}
	replayed := make(chan struct{})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(replayed)
		steps, err := st.replay(gctx, sc.Steps)
		report.Steps = steps
		return err
	})
	g.Go(func() error {
		select {
		case <-replayed:
		case <-gctx.Done():
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return bus.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		logger.Error("Scenario failed", zap.Error(err))
		return report, err
	}

	report.Markets, err = st.summarize(ctx, sc)
	if err != nil {
		return report, err
	}
	report.Records = journal.Records()
	report.Balances = st.ledger.Snapshot()
	report.BusStats = bus.Stats()

	logger.Info("Scenario completed",
		zap.Int("steps", len(report.Steps)),
		zap.Int("markets", len(report.Markets)),
		zap.Int("events", len(report.Records)))
	return report, nil
}

// deploy wires the service, initializes the global configuration and funds
// the actors.
func (r *Runner) deploy(ctx context.Context, sc *Scenario, bus *events.Bus, logger *zap.Logger) (*run, error) {
	ledger := custody.NewLedger(logger)
	pools := liquidity.NewSimulator(liquidity.CPSwapProgramID, ledger, logger)

	opts := market.DefaultOptions()
	opts.TxConfirmFee = r.cfg.Migration.TxConfirmFee
	opts.RetryInitialInterval = r.cfg.Migration.RetryInitialInterval
	opts.RetryMaxElapsed = r.cfg.Migration.RetryMaxElapsed

	svc := market.NewService(market.Deps{
		Custody:  ledger,
		Issuer:   ledger,
		Lamports: ledger,
		Pools:    pools,
		Events:   bus,
		Store:    memory.NewStorage(opts.ProgramID, logger),
	}, opts, logger)

	admin, feeRecipient, baseAsset, err := r.cfg.Genesis.Keys(func() solana.PublicKey {
		return solana.NewWallet().PublicKey()
	})
	if err != nil {
		return nil, fmt.Errorf("invalid genesis keys: %w", err)
	}
	genesis, err := svc.InitializeConfiguration(ctx, admin, r.cfg.Genesis.InitParams(baseAsset, feeRecipient))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize configuration: %w", err)
	}

	st := &run{
		svc:     svc,
		ledger:  ledger,
		pools:   pools,
		actors:  map[string]solana.PublicKey{ActorAdmin: admin, ActorFeeRecipient: feeRecipient},
		markets: make(map[string]solana.PublicKey),
		genesis: genesis,
		logger:  logger,
	}
	for _, a := range sc.Actors {
		key := solana.NewWallet().PublicKey()
		st.actors[a.Name] = key
		if err := st.fund(ctx, key, a.Base, a.Lamports); err != nil {
			return nil, err
		}
	}
	return st, nil
}

func (st *run) fund(ctx context.Context, owner solana.PublicKey, base, lamports uint64) error {
	if base > 0 {
		if err := st.ledger.Mint(ctx, st.genesis.BaseAsset, owner, base); err != nil {
			return fmt.Errorf("failed to fund %s: %w", owner, err)
		}
	}
	if lamports > 0 {
		if err := st.ledger.Airdrop(ctx, owner, lamports); err != nil {
			return fmt.Errorf("failed to fund %s: %w", owner, err)
		}
	}
	return nil
}

func (st *run) replay(ctx context.Context, steps []Step) ([]StepResult, error) {
	results := make([]StepResult, 0, len(steps))
	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		out, err := st.execute(ctx, step)
		res := StepResult{Index: i + 1, Action: step.Action, Actor: step.Actor, Market: step.Market, Output: out}

		if err := checkOutcome(step, err); err != nil {
			return results, fmt.Errorf("step %d (%s): %w", i+1, step.Action, err)
		}
		if err != nil {
			res.Err = step.ExpectError
		}
		results = append(results, res)

		st.logger.Debug("Step replayed",
			zap.Int("step", i+1),
			zap.String("action", string(step.Action)),
			zap.String("actor", step.Actor),
			zap.Uint64("output", out),
			zap.String("error", res.Err))
	}
	return results, nil
}

// checkOutcome compares a step error with the expected kind.
func checkOutcome(step Step, err error) error {
	if step.ExpectError == "" {
		if err != nil {
			return fmt.Errorf("%w: %w", ErrUnexpectedOutcome, err)
		}
		return nil
	}
	want, _ := curve.ParseKind(step.ExpectError)
	if err == nil {
		return fmt.Errorf("%w: expected %s, step succeeded", ErrUnexpectedOutcome, want)
	}
	if !errors.Is(err, want) {
		return fmt.Errorf("%w: expected %s: %w", ErrUnexpectedOutcome, want, err)
	}
	return nil
}

func (st *run) execute(ctx context.Context, step Step) (uint64, error) {
	actor := st.actors[step.Actor]

	switch step.Action {
	case ActionCreate:
		mint, ok := st.markets[step.Market]
		if !ok {
			mint = solana.NewWallet().PublicKey()
		}
		m, err := st.svc.CreateMarket(ctx, curve.CreateRequest{
			Creator:                actor,
			Mint:                   mint,
			BaseAsset:              st.genesis.BaseAsset,
			FeeRecipient:           st.genesis.FeeRecipient,
			Name:                   step.Name,
			Symbol:                 step.Symbol,
			URI:                    step.URI,
			DevBuy:                 step.DevBuy,
			InitialTransferPercent: step.InitialTransferPercent,
		})
		if err != nil {
			return 0, err
		}
		st.markets[step.Market] = mint
		return m.RetainedAmount, nil

	case ActionBuy:
		res, err := st.svc.Buy(ctx, market.SwapRequest{Actor: actor, Mint: st.markets[step.Market], Amount: step.Amount, MinOut: step.MinOut})
		if err != nil {
			return 0, err
		}
		return res.Output, nil

	case ActionSell, ActionSellAll:
		mint := st.markets[step.Market]
		amount := step.Amount
		if step.Action == ActionSellAll {
			balance, err := st.ledger.Balance(ctx, mint, actor)
			if err != nil {
				return 0, err
			}
			amount = balance
		}
		res, err := st.svc.Sell(ctx, market.SwapRequest{Actor: actor, Mint: mint, Amount: amount, MinOut: step.MinOut})
		if err != nil {
			return 0, err
		}
		return res.Output, nil

	case ActionMigrate:
		if step.InjectFailures > 0 {
			st.pools.InjectTransientFailures(step.InjectFailures)
		}
		m, err := st.svc.Migrate(ctx, market.MigrateRequest{Caller: actor, Mint: st.markets[step.Market]})
		if err != nil {
			return 0, err
		}
		return m.Migration.Amount0, nil

	case ActionFund:
		return 0, st.fund(ctx, actor, step.Amount, step.Lamports)

	case ActionSetSwapFee:
		return 0, st.svc.SetSwapFee(ctx, actor, step.Value)

	case ActionSetThreshold:
		return 0, st.svc.SetCompletionThreshold(ctx, actor, step.Value)
	}
	return 0, fmt.Errorf("unsupported action %q", step.Action)
}

func (st *run) summarize(ctx context.Context, sc *Scenario) ([]MarketSummary, error) {
	cfg, err := st.svc.Config(ctx)
	if err != nil {
		return nil, err
	}

	var out []MarketSummary
	seen := make(map[string]bool)
	for _, step := range sc.Steps {
		mint, ok := st.markets[step.Market]
		if step.Action != ActionCreate || !ok || seen[step.Market] {
			continue
		}
		seen[step.Market] = true

		m, err := st.svc.Market(ctx, mint)
		if err != nil {
			return nil, err
		}
		addrs, err := accounts.DeriveMarket(accounts.ProgramID, mint)
		if err != nil {
			return nil, err
		}
		st.logger.Debug("Market accounts",
			zap.String("market", step.Market),
			zap.String("bonding_curve", addrs.BondingCurve.String()),
			zap.String("pool_vault", addrs.PoolVault.String()))

		out = append(out, MarketSummary{
			Name:          step.Market,
			Mint:          mint,
			State:         m.Curve.State,
			BaseReserves:  m.Curve.BaseReserves,
			QuoteReserves: m.Curve.QuoteReserves,
			SpotPrice:     curve.SpotPrice(&m.Curve).String(),
			Progress:      curve.Progress(cfg, &m.Curve).String(),
			PoolHandle:    m.Migration.PoolHandle,
		})
	}
	return out, nil
}
