package staking

import "math/big"

// baseRewardRateBps is the annual staking yield before tier scaling.
const baseRewardRateBps = 1_700

const (
	yearSeconds = 31_536_000
	daySeconds  = 86_400
)

// rewardFor computes stake * rate * elapsed * tierMultiplier, annualised.
// All factors are integer so the result is exact up to the final division.
func rewardFor(stake *big.Int, elapsedSeconds uint64, tier Tier) *big.Int {
	if stake == nil || stake.Sign() <= 0 || elapsedSeconds == 0 {
		return big.NewInt(0)
	}
	reward := new(big.Int).Set(stake)
	reward.Mul(reward, big.NewInt(baseRewardRateBps))
	reward.Mul(reward, new(big.Int).SetUint64(elapsedSeconds))
	reward.Mul(reward, new(big.Int).SetUint64(TierMultiplierPercent(tier)))
	reward.Quo(reward, big.NewInt(10_000*100))
	reward.Quo(reward, big.NewInt(yearSeconds))
	return reward
}

// baseRewardFor computes the unscaled (tier-neutral) yield used when sizing
// the cross-tier redistribution pool.
func baseRewardFor(stake *big.Int, elapsedSeconds uint64) *big.Int {
	if stake == nil || stake.Sign() <= 0 || elapsedSeconds == 0 {
		return big.NewInt(0)
	}
	reward := new(big.Int).Set(stake)
	reward.Mul(reward, big.NewInt(baseRewardRateBps))
	reward.Mul(reward, new(big.Int).SetUint64(elapsedSeconds))
	reward.Quo(reward, big.NewInt(10_000))
	reward.Quo(reward, big.NewInt(yearSeconds))
	return reward
}

// AccruedReward returns the reward earned since the last payout.
func AccruedReward(account *StakeAccount, now uint64) *big.Int {
	if !account.Active() {
		return big.NewInt(0)
	}
	since := account.LastPayoutTime
	if since == 0 {
		since = account.StakeStartTime
	}
	if now <= since {
		return big.NewInt(0)
	}
	return rewardFor(account.StakeAmount, now-since, account.Tier)
}

// FullTermPenalty returns the early-exit cost: the reward the position would
// have earned over the entire intended commitment, elapsed or not.
func FullTermPenalty(account *StakeAccount) *big.Int {
	if !account.Active() || account.IntendedEndTime <= account.StakeStartTime {
		return big.NewInt(0)
	}
	return rewardFor(account.StakeAmount, account.IntendedEndTime-account.StakeStartTime, account.Tier)
}
