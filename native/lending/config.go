package lending

// Config captures the runtime configuration for the lending module.
type Config struct {
	BaseRateBps       uint64 `toml:"BaseRateBps"`
	MultiplierBps     uint64 `toml:"MultiplierBps"`
	JumpMultiplierBps uint64 `toml:"JumpMultiplierBps"`
	KinkBps           uint64 `toml:"KinkBps"`
	ReserveFactorBps  uint64 `toml:"ReserveFactorBps"`
	MaxUsers          uint64 `toml:"MaxUsers"`
}

// ReserveConfig holds the per-asset risk limits declared in configuration.
type ReserveConfig struct {
	Asset                   string `toml:"Asset"`
	LTVBps                  uint64 `toml:"LTVBps"`
	LiquidationThresholdBps uint64 `toml:"LiquidationThresholdBps"`
	LiquidationPenaltyBps   uint64 `toml:"LiquidationPenaltyBps"`
}

// DefaultConfig mirrors the stock market parameters.
func DefaultConfig() Config {
	return Config{
		BaseRateBps:       DefaultInterestModel.BaseRateBps,
		MultiplierBps:     DefaultInterestModel.MultiplierBps,
		JumpMultiplierBps: DefaultInterestModel.JumpMultiplierBps,
		KinkBps:           DefaultInterestModel.KinkBps,
		ReserveFactorBps:  1_000,
	}
}

// Model builds the interest model described by the configuration.
func (c Config) Model() InterestModel {
	return InterestModel{
		BaseRateBps:       c.BaseRateBps,
		MultiplierBps:     c.MultiplierBps,
		JumpMultiplierBps: c.JumpMultiplierBps,
		KinkBps:           c.KinkBps,
	}
}

// Validate rejects configurations no market could operate under.
func (c Config) Validate() error {
	if c.KinkBps == 0 || c.KinkBps > 10_000 {
		return ErrInvalidParameter
	}
	if c.ReserveFactorBps >= 10_000 {
		return ErrInvalidParameter
	}
	return nil
}

// Params converts a reserve configuration into engine risk parameters.
func (r ReserveConfig) Params() RiskParameters {
	return RiskParameters{
		LTVBps:                  r.LTVBps,
		LiquidationThresholdBps: r.LiquidationThresholdBps,
		LiquidationPenaltyBps:   r.LiquidationPenaltyBps,
	}
}
