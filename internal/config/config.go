// Package config holds the engine-wide configuration. The config is parsed
// once at boot, validated, and passed by reference into each component's
// constructor; nothing mutates it afterwards.
package config

import (
	"os"

	"github.com/breeze-labs/breeze/pkg/errors"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Default values applied after parsing.
const (
	DefaultAppName              = "Breeze"
	DefaultReserveADA           = 10
	DefaultAPIPort              = 8090
	DefaultSweepSeconds         = 30
	DefaultBacktestWalletADA    = 10_000
	lovelacePerADA        int64 = 1_000000
)

// KupoProviderConfig configures a Kupo submission data provider.
type KupoProviderConfig struct {
	KupoURL   string `yaml:"kupo_url" validate:"required,url"`
	OgmiosURL string `yaml:"ogmios_url" validate:"required,url"`
}

// BlockfrostProviderConfig configures a Blockfrost submission data provider.
type BlockfrostProviderConfig struct {
	URL       string `yaml:"url" validate:"required,url"`
	ProjectID string `yaml:"project_id" validate:"required"`
}

// SubmissionProviderConfig must resolve to exactly one of the two known
// provider shapes; anything else aborts boot.
type SubmissionProviderConfig struct {
	Kupo       *KupoProviderConfig       `yaml:"kupo,omitempty"`
	Blockfrost *BlockfrostProviderConfig `yaml:"blockfrost,omitempty"`
}

// Resolve returns whichever provider shape is configured, or a fatal boot
// error when zero or both are present.
func (c SubmissionProviderConfig) Resolve() (any, error) {
	switch {
	case c.Kupo != nil && c.Blockfrost != nil:
		return nil, errors.New(errors.ErrCodeInvalidProviderConfig, "submission provider config matches both kupo and blockfrost shapes")
	case c.Kupo != nil:
		return c.Kupo, nil
	case c.Blockfrost != nil:
		return c.Blockfrost, nil
	default:
		return nil, errors.New(errors.ErrCodeInvalidProviderConfig, "unknown submission provider config")
	}
}

// EngineConfig is the immutable engine-wide configuration.
type EngineConfig struct {
	// AppName brands log lines and order metadata.
	AppName string `yaml:"app_name"`
	// FeedHost is the live event stream endpoint (ws:// or wss:// scheme).
	FeedHost string `yaml:"feed_host" validate:"required"`
	// APIHost is the market API endpoint used for historic queries.
	APIHost string `yaml:"api_host" validate:"required,url"`
	// LedgerPath is the persistent order store location.
	LedgerPath string `yaml:"ledger_path" validate:"required"`
	// SeedPhrase unlocks the hot wallet. Required when CanSubmitOrders is set.
	SeedPhrase []string `yaml:"seed_phrase"`
	// CanSubmitOrders disables real submissions when false ("dry run"):
	// the gate logs intended trades and returns without touching the
	// execution adapter.
	CanSubmitOrders bool `yaml:"can_submit_orders"`
	// ReserveADA is the native-asset floor, in whole ADA, that trade sizing
	// must never spend below.
	ReserveADA int64 `yaml:"reserve_ada" validate:"gte=0"`
	// APIPort is the control server listen port.
	APIPort int `yaml:"api_port" validate:"gte=0,lte=65535"`
	// SweepIntervalSeconds is the auto-cancel sweep period.
	SweepIntervalSeconds int `yaml:"sweep_interval_seconds" validate:"gte=0"`
	// SubmissionProvider carries the execution adapter's data provider
	// settings; exactly one of the two shapes must be present.
	SubmissionProvider SubmissionProviderConfig `yaml:"submission_provider"`
	// SlackWebhookURL enables the Slack notification channel when set.
	SlackWebhookURL string `yaml:"slack_webhook_url" validate:"omitempty,url"`
	// BacktestWalletADA seeds the simulated wallet of every backtest run,
	// in whole ADA.
	BacktestWalletADA int64 `yaml:"backtest_wallet_ada" validate:"gte=0"`
}

// ReserveFloorLovelace converts the configured reserve floor into the native
// asset's smallest unit.
func (c *EngineConfig) ReserveFloorLovelace() int64 {
	return c.ReserveADA * lovelacePerADA
}

// BacktestWalletLovelace converts the simulated wallet seed into lovelace.
func (c *EngineConfig) BacktestWalletLovelace() int64 {
	return c.BacktestWalletADA * lovelacePerADA
}

// Parse parses and validates a YAML engine configuration. All failures here
// are fatal boot errors.
func Parse(content []byte) (*EngineConfig, error) {
	cfg := &EngineConfig{
		AppName:              DefaultAppName,
		ReserveADA:           DefaultReserveADA,
		APIPort:              DefaultAPIPort,
		SweepIntervalSeconds: DefaultSweepSeconds,
		BacktestWalletADA:    DefaultBacktestWalletADA,
	}

	if err := yaml.Unmarshal(content, cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse engine config", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "engine config failed validation", err)
	}

	if cfg.LedgerPath == "" {
		return nil, errors.New(errors.ErrCodeMissingLedgerPath, "ledger path not configured")
	}

	if _, err := cfg.SubmissionProvider.Resolve(); err != nil {
		return nil, err
	}

	if cfg.CanSubmitOrders && len(cfg.SeedPhrase) == 0 {
		return nil, errors.New(errors.ErrCodeMissingSeedPhrase, "must provide seed phrase when can_submit_orders is true")
	}

	return cfg, nil
}

// Load reads and parses a YAML engine configuration from disk.
func Load(path string) (*EngineConfig, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read config %s", path)
	}

	return Parse(content)
}
