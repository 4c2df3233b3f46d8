// =============================================
// File: internal/scenario/scenario.go
// =============================================
package scenario

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/rovshanmuradov/pumpcurve/internal/curve"
)

// Action is what a step does.
type Action string

const (
	ActionCreate       Action = "create"
	ActionBuy          Action = "buy"
	ActionSell         Action = "sell"
	ActionSellAll      Action = "sell_all"
	ActionMigrate      Action = "migrate"
	ActionFund         Action = "fund"
	ActionSetSwapFee   Action = "set_swap_fee"
	ActionSetThreshold Action = "set_completion_threshold"
)

// Reserved actor names bound to the genesis identities.
const (
	ActorAdmin        = "admin"
	ActorFeeRecipient = "fee_recipient"
)

// Scenario is a scripted sequence of market operations.
type Scenario struct {
	Name   string  `yaml:"name"`
	Actors []Actor `yaml:"actors"`
	Steps  []Step  `yaml:"steps"`
}

// Actor is a simulated wallet with its starting balances.
type Actor struct {
	Name     string `yaml:"name"`
	Base     uint64 `yaml:"base"`
	Lamports uint64 `yaml:"lamports"`
}

// Step is one operation. Markets are referred to by a local name; the mint
// is generated when the market is created.
type Step struct {
	Action Action `yaml:"action"`
	Actor  string `yaml:"actor"`
	Market string `yaml:"market"`

	Amount uint64 `yaml:"amount"`
	MinOut uint64 `yaml:"min_out"`

	// create
	Name                   string `yaml:"name"`
	Symbol                 string `yaml:"symbol"`
	URI                    string `yaml:"uri"`
	DevBuy                 uint64 `yaml:"dev_buy"`
	InitialTransferPercent uint64 `yaml:"initial_transfer_percent"`

	// fund
	Lamports uint64 `yaml:"lamports"`

	// migrate: transient pool failures injected before the call
	InjectFailures int `yaml:"inject_failures"`

	// set_swap_fee, set_completion_threshold
	Value uint64 `yaml:"value"`

	// ExpectError names the error kind the step must fail with.
	ExpectError string `yaml:"expect_error"`
}

// Loader reads scenario files.
type Loader struct {
	logger *zap.Logger
}

// NewLoader constructs a Loader with the given logger.
func NewLoader(logger *zap.Logger) *Loader {
	return &Loader{logger: logger}
}

// LoadYAML reads and validates a scenario file.
func (l *Loader) LoadYAML(path string) (*Scenario, error) {
	if filepath.IsAbs(path) {
		l.logger.Debug("Using absolute path for scenario file", zap.String("path", path))
	}

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	sc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	l.logger.Info("Loaded scenario",
		zap.String("name", sc.Name),
		zap.Int("actors", len(sc.Actors)),
		zap.Int("steps", len(sc.Steps)))
	return sc, nil
}

// Parse decodes and validates a scenario.
func Parse(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Validate checks actor names, step actions and required fields.
func (sc *Scenario) Validate() error {
	if len(sc.Steps) == 0 {
		return errors.New("no steps found in scenario")
	}

	actors := map[string]bool{ActorAdmin: true, ActorFeeRecipient: true}
	for _, a := range sc.Actors {
		if a.Name == "" {
			return errors.New("actor without a name")
		}
		if actors[a.Name] {
			return fmt.Errorf("duplicate or reserved actor %q", a.Name)
		}
		actors[a.Name] = true
	}

	markets := make(map[string]bool)
	for i, st := range sc.Steps {
		if err := st.validate(actors, markets); err != nil {
			return fmt.Errorf("step %d (%s): %w", i+1, st.Action, err)
		}
	}
	return nil
}

func (st Step) validate(actors, markets map[string]bool) error {
	if st.ExpectError != "" {
		if _, ok := curve.ParseKind(st.ExpectError); !ok {
			return fmt.Errorf("unknown error kind %q", st.ExpectError)
		}
	}
	if st.Actor == "" || !actors[st.Actor] {
		return fmt.Errorf("unknown actor %q", st.Actor)
	}

	switch st.Action {
	case ActionCreate:
		if st.Market == "" {
			return errors.New("market name is required")
		}
		if markets[st.Market] && st.ExpectError == "" {
			return fmt.Errorf("market %q created twice", st.Market)
		}
		markets[st.Market] = true
	case ActionBuy, ActionSell:
		if st.Amount == 0 && st.ExpectError == "" {
			return errors.New("amount must be positive")
		}
		fallthrough
	case ActionSellAll, ActionMigrate:
		if !markets[st.Market] {
			return fmt.Errorf("market %q is not created by an earlier step", st.Market)
		}
	case ActionFund:
		if st.Amount == 0 && st.Lamports == 0 {
			return errors.New("nothing to fund")
		}
	case ActionSetSwapFee, ActionSetThreshold:
	default:
		return fmt.Errorf("unsupported action %q", st.Action)
	}
	return nil
}
