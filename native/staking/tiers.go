package staking

import "math/big"

// Loyalty scoring weights: staked principal and lifetime rewards count
// double, commitment time counts triple, interaction frequency counts once.
const (
	amountWeight    = 2
	timeWeight      = 3
	frequencyWeight = 1
	rewardsWeight   = 2
)

var (
	silverFloor  = big.NewInt(100)
	goldFloor    = big.NewInt(250)
	diamondFloor = big.NewInt(500)
)

// LoyaltyScore computes the tier score for an account at the given time.
// Amount and rewards scores are whole asset units, the time score is whole
// days since the stake started.
func LoyaltyScore(account *StakeAccount, now uint64, unit *big.Int) *big.Int {
	score := big.NewInt(0)
	if account == nil {
		return score
	}
	if unit == nil || unit.Sign() <= 0 {
		unit = big.NewInt(1)
	}

	if account.StakeAmount != nil && account.StakeAmount.Sign() > 0 {
		amountScore := new(big.Int).Quo(account.StakeAmount, unit)
		score.Add(score, amountScore.Mul(amountScore, big.NewInt(amountWeight)))
	}
	if now > account.StakeStartTime {
		days := (now - account.StakeStartTime) / 86_400
		timeScore := new(big.Int).SetUint64(days)
		score.Add(score, timeScore.Mul(timeScore, big.NewInt(timeWeight)))
	}
	score.Add(score, new(big.Int).SetUint64(account.InteractionCount*frequencyWeight))
	if account.TotalRewardsReceived != nil && account.TotalRewardsReceived.Sign() > 0 {
		rewardsScore := new(big.Int).Quo(account.TotalRewardsReceived, unit)
		score.Add(score, rewardsScore.Mul(rewardsScore, big.NewInt(rewardsWeight)))
	}
	return score
}

// TierForScore maps a loyalty score onto a tier.
func TierForScore(score *big.Int) Tier {
	if score == nil {
		return TierBronze
	}
	switch {
	case score.Cmp(diamondFloor) > 0:
		return TierDiamond
	case score.Cmp(goldFloor) > 0:
		return TierGold
	case score.Cmp(silverFloor) > 0:
		return TierSilver
	default:
		return TierBronze
	}
}

// TierMultiplierPercent scales the base reward rate per tier.
func TierMultiplierPercent(tier Tier) uint64 {
	switch tier {
	case TierDiamond:
		return 150
	case TierGold:
		return 125
	case TierSilver:
		return 100
	default:
		return 75
	}
}

// redistributionWeight is the relative share of the redistribution pool each
// tier contributes: lower tiers fund most of it.
func redistributionWeight(tier Tier) uint64 {
	switch tier {
	case TierBronze:
		return 40
	case TierSilver:
		return 30
	case TierGold:
		return 20
	default:
		return 10
	}
}

// RedistributeYield computes the zero-sum cross-tier transfer for one
// distribution round. The pool is 20% of the aggregate base yield, funded by
// every account weighted by tier, and credited to Gold and Diamond accounts
// pro-rata to their base yield. The returned adjustments sum to exactly zero;
// when no Gold or Diamond account participates no pool is taken.
func RedistributeYield(tiers []Tier, baseYields []*big.Int) []*big.Int {
	n := len(tiers)
	adjustments := make([]*big.Int, n)
	for i := range adjustments {
		adjustments[i] = big.NewInt(0)
	}
	if n == 0 || len(baseYields) != n {
		return adjustments
	}

	aggregate := big.NewInt(0)
	upperYield := big.NewInt(0)
	weighted := big.NewInt(0)
	for i, tier := range tiers {
		yield := baseYields[i]
		if yield == nil || yield.Sign() <= 0 {
			continue
		}
		aggregate.Add(aggregate, yield)
		weighted.Add(weighted, new(big.Int).Mul(yield, new(big.Int).SetUint64(redistributionWeight(tier))))
		if tier == TierGold || tier == TierDiamond {
			upperYield.Add(upperYield, yield)
		}
	}
	if aggregate.Sign() == 0 || upperYield.Sign() == 0 || weighted.Sign() == 0 {
		return adjustments
	}

	pool := new(big.Int).Mul(aggregate, big.NewInt(20))
	pool.Quo(pool, big.NewInt(100))
	if pool.Sign() == 0 {
		return adjustments
	}

	// Contributions: pool share proportional to tier weight times yield.
	taken := big.NewInt(0)
	lastContributor := -1
	for i, tier := range tiers {
		yield := baseYields[i]
		if yield == nil || yield.Sign() <= 0 {
			continue
		}
		share := new(big.Int).Mul(yield, new(big.Int).SetUint64(redistributionWeight(tier)))
		share.Mul(share, pool)
		share.Quo(share, weighted)
		adjustments[i] = new(big.Int).Neg(share)
		taken.Add(taken, share)
		lastContributor = i
	}
	// Rounding remainder lands on the final contributor so the pool balances.
	if lastContributor >= 0 {
		dust := new(big.Int).Sub(pool, taken)
		adjustments[lastContributor].Sub(adjustments[lastContributor], dust)
		taken.Add(taken, dust)
	}

	// Credits: pool split across Gold and Diamond pro-rata to base yield.
	granted := big.NewInt(0)
	lastUpper := -1
	for i, tier := range tiers {
		if tier != TierGold && tier != TierDiamond {
			continue
		}
		yield := baseYields[i]
		if yield == nil || yield.Sign() <= 0 {
			continue
		}
		credit := new(big.Int).Mul(pool, yield)
		credit.Quo(credit, upperYield)
		adjustments[i].Add(adjustments[i], credit)
		granted.Add(granted, credit)
		lastUpper = i
	}
	if lastUpper >= 0 {
		dust := new(big.Int).Sub(pool, granted)
		adjustments[lastUpper].Add(adjustments[lastUpper], dust)
	}
	return adjustments
}
