package staking

import (
	"math/big"

	"yieldhub/crypto"
)

// Tier ranks a staking account by loyalty score. Higher tiers earn a larger
// share of the reward pool.
type Tier uint8

const (
	TierBronze Tier = iota
	TierSilver
	TierGold
	TierDiamond
)

func (t Tier) String() string {
	switch t {
	case TierBronze:
		return "bronze"
	case TierSilver:
		return "silver"
	case TierGold:
		return "gold"
	case TierDiamond:
		return "diamond"
	default:
		return "unknown"
	}
}

// RewardMode selects how accrued rewards are released.
type RewardMode uint8

const (
	// RewardModeRecurringInvestment reinvests a configured share of every
	// accrual and pays out the remainder immediately.
	RewardModeRecurringInvestment RewardMode = iota
	// RewardModeRealTimeBatch accumulates rewards and releases them once the
	// configured batch size or payout threshold is reached.
	RewardModeRealTimeBatch
)

// CompoundStrategy controls whether a reinvestment restarts the commitment.
type CompoundStrategy uint8

const (
	StrategySimple CompoundStrategy = iota
	StrategyCompound
)

// BatchFrequency is the minimum cadence between batch payouts.
type BatchFrequency uint8

const (
	BatchInstant BatchFrequency = iota
	BatchHourly
	BatchDaily
)

// Seconds returns the minimum gap enforced between batch payouts.
func (f BatchFrequency) Seconds() uint64 {
	switch f {
	case BatchHourly:
		return 3_600
	case BatchDaily:
		return 86_400
	default:
		return 0
	}
}

// RecurringFrequency is the cadence hint for recurring reinvestment.
type RecurringFrequency uint8

const (
	RecurDaily RecurringFrequency = iota
	RecurWeekly
	RecurMonthly
)

// RewardPreferences configures how DistributeRewards releases value for one
// account.
type RewardPreferences struct {
	Mode                RewardMode
	ReinvestmentPercent uint64
	Strategy            CompoundStrategy
	Frequency           RecurringFrequency
	BatchSize           uint64
	BatchFrequency      BatchFrequency
	PayoutThreshold     *big.Int
	AutoCompound        bool
}

// Validate rejects preferences no distributor could honour.
func (p RewardPreferences) Validate() error {
	if p.ReinvestmentPercent > 100 {
		return ErrInvalidParameter
	}
	if p.PayoutThreshold != nil && p.PayoutThreshold.Sign() < 0 {
		return ErrInvalidParameter
	}
	return nil
}

// DefaultPreferences returns the stock preference set: recurring investment
// reinvesting 80% under the compounding strategy.
func DefaultPreferences() RewardPreferences {
	return RewardPreferences{
		Mode:                RewardModeRecurringInvestment,
		ReinvestmentPercent: 80,
		Strategy:            StrategyCompound,
	}
}

// Clone returns a deep copy of the preferences.
func (p RewardPreferences) Clone() RewardPreferences {
	clone := p
	if p.PayoutThreshold != nil {
		clone.PayoutThreshold = new(big.Int).Set(p.PayoutThreshold)
	}
	return clone
}

// StakeAccount tracks one participant's staking position. Closing the
// position zeroes the amounts but keeps the record for loyalty history.
type StakeAccount struct {
	Address              crypto.Address
	StakeAmount          *big.Int
	StakeStartTime       uint64
	LockDurationDays     uint64
	IntendedEndTime      uint64
	Tier                 Tier
	AccumulatedRewards   *big.Int
	TotalRewardsReceived *big.Int
	LastPayoutTime       uint64
	LastBatchTime        uint64
	PendingBatchCount    uint64
	InteractionCount     uint64
	Preferences          RewardPreferences
	DerivativeAmount     *big.Int
	LeverageHandle       string
}

// Active reports whether the account currently holds staked principal.
func (a *StakeAccount) Active() bool {
	return a != nil && a.StakeAmount != nil && a.StakeAmount.Sign() > 0
}

// Clone returns a deep copy of the stake account.
func (a *StakeAccount) Clone() *StakeAccount {
	if a == nil {
		return nil
	}
	clone := *a
	clone.StakeAmount = copyBigInt(a.StakeAmount)
	clone.AccumulatedRewards = copyBigInt(a.AccumulatedRewards)
	clone.TotalRewardsReceived = copyBigInt(a.TotalRewardsReceived)
	clone.DerivativeAmount = copyBigInt(a.DerivativeAmount)
	clone.Preferences = a.Preferences.Clone()
	return &clone
}

func copyBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
