package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"yieldhub/crypto"
	"yieldhub/native/lending"

	"github.com/BurntSushi/toml"
)

type Config struct {
	ListenAddress string `toml:"ListenAddress"`
	DataDir       string `toml:"DataDir"`
	Environment   string `toml:"Environment"`

	// Bech32 module accounts. Empty addresses are generated at startup,
	// which is only suitable for throwaway development runs.
	VaultAddress     string `toml:"VaultAddress"`
	AuthorityAddress string `toml:"AuthorityAddress"`
	PermanentAccount string `toml:"PermanentAccount"`

	AuthTokens []string `toml:"AuthTokens"`

	Lending  lending.Config          `toml:"Lending"`
	Reserves []lending.ReserveConfig `toml:"Reserves"`
	Staking  StakingConfig           `toml:"Staking"`
	Gateway  GatewayConfig           `toml:"Gateway"`
}

type StakingConfig struct {
	Asset     string `toml:"Asset"`
	ScoreUnit string `toml:"ScoreUnit"`
}

type GatewayConfig struct {
	ObservabilityEnabled bool                       `toml:"ObservabilityEnabled"`
	LogRequests          bool                       `toml:"LogRequests"`
	RateLimits           map[string]RateLimitConfig `toml:"RateLimits"`
}

type RateLimitConfig struct {
	RequestsPerMinute float64 `toml:"RequestsPerMinute"`
	Burst             int     `toml:"Burst"`
}

// Load loads the configuration from the given path, creating a default file
// when none exists.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.ListenAddress) == "" {
		cfg.ListenAddress = ":8545"
	}
	if strings.TrimSpace(cfg.Environment) == "" {
		cfg.Environment = "dev"
	}
	if cfg.Lending == (lending.Config{}) {
		cfg.Lending = lending.DefaultConfig()
	}
	if strings.TrimSpace(cfg.Staking.Asset) == "" {
		cfg.Staking.Asset = "YHB"
	}
	if strings.TrimSpace(cfg.Staking.ScoreUnit) == "" {
		cfg.Staking.ScoreUnit = "1000000000000000000"
	}
	if len(cfg.Reserves) == 0 {
		cfg.Reserves = []lending.ReserveConfig{{
			Asset:                   cfg.Staking.Asset,
			LTVBps:                  7_500,
			LiquidationThresholdBps: 8_000,
			LiquidationPenaltyBps:   500,
		}}
	}
}

func createDefault(path string) (*Config, error) {
	cfg := Default()
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every section for values no node could start with.
func (c *Config) Validate() error {
	if err := c.Lending.Validate(); err != nil {
		return fmt.Errorf("lending config: %w", err)
	}
	for _, reserve := range c.Reserves {
		if strings.TrimSpace(reserve.Asset) == "" {
			return fmt.Errorf("reserve config: asset symbol is required")
		}
		if err := reserve.Params().Validate(); err != nil {
			return fmt.Errorf("reserve config %s: %w", reserve.Asset, err)
		}
	}
	if strings.TrimSpace(c.Staking.Asset) == "" {
		return fmt.Errorf("staking config: asset symbol is required")
	}
	for _, raw := range []string{c.VaultAddress, c.AuthorityAddress, c.PermanentAccount} {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		if _, err := crypto.DecodeAddress(strings.TrimSpace(raw)); err != nil {
			return fmt.Errorf("invalid module address %q: %w", raw, err)
		}
	}
	for key, limit := range c.Gateway.RateLimits {
		if limit.RequestsPerMinute <= 0 {
			return fmt.Errorf("rate limit %s: requests per minute must be positive", key)
		}
	}
	return nil
}

// Address decodes a configured bech32 address, generating a fresh one when
// the field is empty.
func Address(raw string) (crypto.Address, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" {
		return crypto.DecodeAddress(trimmed)
	}
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return crypto.Address{}, err
	}
	return key.PubKey().Address(), nil
}
