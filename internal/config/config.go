// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/viper"

	"github.com/rovshanmuradov/pumpcurve/internal/curve"
)

type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Events    EventsConfig    `mapstructure:"events"`
	Migration MigrationConfig `mapstructure:"migration"`
	Genesis   GenesisConfig   `mapstructure:"genesis"`
	Export    ExportConfig    `mapstructure:"export"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max_size"`    // мегабайты
	MaxAge     int    `mapstructure:"max_age"`     // дни
	MaxBackups int    `mapstructure:"max_backups"` // количество файлов
	Compress   bool   `mapstructure:"compress"`
	Pretty     bool   `mapstructure:"pretty"`
}

type EventsConfig struct {
	BufferSize int `mapstructure:"buffer_size"`
}

type MigrationConfig struct {
	TxConfirmFee         uint64        `mapstructure:"tx_confirm_fee"`
	RetryInitialInterval time.Duration `mapstructure:"retry_initial_interval"`
	RetryMaxElapsed      time.Duration `mapstructure:"retry_max_elapsed"`
}

// GenesisConfig holds the parameters of the global configuration. Keys are
// base58; an empty admin or fee recipient is generated by the caller.
type GenesisConfig struct {
	Admin               string `mapstructure:"admin"`
	BaseAsset           string `mapstructure:"base_asset"`
	FeeRecipient        string `mapstructure:"fee_recipient"`
	SwapFeeBps          uint64 `mapstructure:"swap_fee_bps"`
	CompletionThreshold uint64 `mapstructure:"completion_threshold"`
	InitialVirtualBase  uint64 `mapstructure:"initial_virtual_base"`
	InitialVirtualQuote uint64 `mapstructure:"initial_virtual_quote"`
	CreatePoolFee       uint64 `mapstructure:"create_pool_fee"`
	MigrationFee        uint64 `mapstructure:"migration_fee"`
}

type ExportConfig struct {
	Dir    string `mapstructure:"dir"`
	Format string `mapstructure:"format"`
}

const (
	DefaultBufferSize          = 1024
	DefaultTxConfirmFee        = 1_000_000
	DefaultSwapFeeBps          = 100
	DefaultCompletionThreshold = 85_000_000_000
	DefaultVirtualBase         = 30_000_000_000
	DefaultVirtualQuote        = 1_073_000_000_000_000
	DefaultCreatePoolFee       = 1_000_000
	DefaultMigrationFee        = 150_000_000

	envPrefix = "PUMPCURVE"
)

func setDefaults(v *viper.Viper) {
	defaults := map[string]interface{}{
		"log.level":                        "info",
		"log.file":                         "pumpcurve.log",
		"log.max_size":                     100,
		"log.max_age":                      7,
		"log.max_backups":                  3,
		"log.compress":                     true,
		"log.pretty":                       false,
		"events.buffer_size":               DefaultBufferSize,
		"migration.tx_confirm_fee":         DefaultTxConfirmFee,
		"migration.retry_initial_interval": "500ms",
		"migration.retry_max_elapsed":      "15s",
		"genesis.admin":                    "",
		"genesis.fee_recipient":            "",
		"genesis.base_asset":               solana.WrappedSol.String(),
		"genesis.swap_fee_bps":             DefaultSwapFeeBps,
		"genesis.completion_threshold":     DefaultCompletionThreshold,
		"genesis.initial_virtual_base":     DefaultVirtualBase,
		"genesis.initial_virtual_quote":    DefaultVirtualQuote,
		"genesis.create_pool_fee":          DefaultCreatePoolFee,
		"genesis.migration_fee":            DefaultMigrationFee,
		"export.dir":                       "exports",
		"export.format":                    "csv",
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}

// LoadConfig reads the file at path. An empty path yields the defaults,
// still overridable from PUMPCURVE_* variables.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config error: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal error: %w", err)
	}

	return &cfg, validateConfig(&cfg)
}

func validateConfig(cfg *Config) error {
	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log.level %q", cfg.Log.Level)
	}
	if cfg.Events.BufferSize <= 0 {
		return errors.New("invalid events.buffer_size")
	}
	if cfg.Migration.RetryInitialInterval <= 0 || cfg.Migration.RetryMaxElapsed <= 0 {
		return errors.New("migration retry intervals must be positive")
	}
	if err := validateGenesis(&cfg.Genesis); err != nil {
		return err
	}
	switch cfg.Export.Format {
	case "csv", "json":
	default:
		return fmt.Errorf("unsupported export.format %q", cfg.Export.Format)
	}
	return nil
}

func validateGenesis(g *GenesisConfig) error {
	if g.SwapFeeBps > curve.MaxBasisPoints {
		return errors.New("genesis.swap_fee_bps exceeds 10000")
	}
	if g.InitialVirtualBase == 0 || g.InitialVirtualQuote == 0 {
		return errors.New("genesis virtual reserves must be non-zero")
	}
	for name, key := range map[string]string{
		"genesis.admin":         g.Admin,
		"genesis.base_asset":    g.BaseAsset,
		"genesis.fee_recipient": g.FeeRecipient,
	} {
		if key == "" {
			continue
		}
		if _, err := solana.PublicKeyFromBase58(key); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}
	return nil
}

// Keys resolves the genesis identities. Missing admin or fee recipient keys
// are filled by generate.
func (g GenesisConfig) Keys(generate func() solana.PublicKey) (admin, feeRecipient, baseAsset solana.PublicKey, err error) {
	resolve := func(s string) (solana.PublicKey, error) {
		if s == "" {
			return generate(), nil
		}
		return solana.PublicKeyFromBase58(s)
	}
	if admin, err = resolve(g.Admin); err != nil {
		return
	}
	if feeRecipient, err = resolve(g.FeeRecipient); err != nil {
		return
	}
	if g.BaseAsset == "" {
		return admin, feeRecipient, solana.WrappedSol, nil
	}
	baseAsset, err = solana.PublicKeyFromBase58(g.BaseAsset)
	return
}

// InitParams converts the genesis section into curve parameters.
func (g GenesisConfig) InitParams(baseAsset, feeRecipient solana.PublicKey) curve.InitParams {
	return curve.InitParams{
		SwapFeeBps:          g.SwapFeeBps,
		CompletionThreshold: g.CompletionThreshold,
		InitialVirtualBase:  g.InitialVirtualBase,
		InitialVirtualQuote: g.InitialVirtualQuote,
		CreatePoolFee:       g.CreatePoolFee,
		MigrationFee:        g.MigrationFee,
		BaseAsset:           baseAsset,
		FeeRecipient:        feeRecipient,
	}
}
