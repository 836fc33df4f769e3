package staking

import (
	"math/big"

	"yieldhub/core/types"
	"yieldhub/crypto"
	nativecommon "yieldhub/native/common"
)

// DistributeRewards accrues and releases rewards for a single account. It is
// a cohort of one: the cross-tier redistribution still applies, which for a
// lone Gold or Diamond account nets to zero.
func (e *Engine) DistributeRewards(owner crypto.Address) (*big.Int, error) {
	paid, err := e.DistributeRewardsBatch([]crypto.Address{owner})
	if err != nil {
		return nil, err
	}
	return paid[0], nil
}

// DistributeRewardsBatch runs one distribution round over a cohort. Each
// account accrues its tier-scaled reward since its last payout; the
// redistribution pool (20% of the cohort's aggregate base yield) then shifts
// value from lower to upper tiers before payouts are settled per account
// preference. Immediately repeating the call pays zero: accrual always
// starts from the last payout time.
func (e *Engine) DistributeRewardsBatch(owners []crypto.Address) ([]*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if len(owners) == 0 {
		return nil, ErrInvalidParameter
	}

	accounts := make([]*StakeAccount, len(owners))
	tiers := make([]Tier, len(owners))
	baseYields := make([]*big.Int, len(owners))
	rewards := make([]*big.Int, len(owners))
	for i, owner := range owners {
		account, err := e.loadStakeAccount(owner)
		if err != nil {
			return nil, err
		}
		if !account.Active() {
			return nil, ErrNoStake
		}
		since := account.LastPayoutTime
		if since == 0 {
			since = account.StakeStartTime
		}
		if e.timestamp < since {
			return nil, ErrClockSkew
		}
		accounts[i] = account
		tiers[i] = account.Tier
		baseYields[i] = baseRewardFor(account.StakeAmount, e.timestamp-since)
		rewards[i] = AccruedReward(account, e.timestamp)
	}

	adjustments := RedistributeYield(tiers, baseYields)
	paid := make([]*big.Int, len(owners))
	for i, owner := range owners {
		reward := new(big.Int).Add(rewards[i], adjustments[i])
		if reward.Sign() < 0 {
			reward = big.NewInt(0)
		}
		amount, err := e.settle(owner, accounts[i], reward)
		if err != nil {
			return nil, err
		}
		paid[i] = amount
	}
	return paid, nil
}

// settle applies one accrued reward to the account per its preferences and
// moves any immediate payout from the vault to the owner.
func (e *Engine) settle(owner crypto.Address, account *StakeAccount, reward *big.Int) (*big.Int, error) {
	paid := big.NewInt(0)
	realized := big.NewInt(0)
	pending := new(big.Int).Add(copyBigInt(account.AccumulatedRewards), reward)

	switch account.Preferences.Mode {
	case RewardModeRealTimeBatch:
		account.AccumulatedRewards = pending
		account.PendingBatchCount++
		if e.batchReady(account) {
			paid = new(big.Int).Set(account.AccumulatedRewards)
			realized = paid
			account.AccumulatedRewards = big.NewInt(0)
			account.PendingBatchCount = 0
			account.LastBatchTime = e.timestamp
		}
	default:
		reinvest := new(big.Int).Mul(pending, new(big.Int).SetUint64(account.Preferences.ReinvestmentPercent))
		reinvest.Quo(reinvest, big.NewInt(100))
		paid = new(big.Int).Sub(pending, reinvest)
		realized = pending
		if reinvest.Sign() > 0 {
			account.StakeAmount = new(big.Int).Add(account.StakeAmount, reinvest)
			if account.Preferences.Strategy == StrategyCompound {
				end, err := commitmentEnd(e.timestamp, account.LockDurationDays)
				if err != nil {
					return nil, err
				}
				account.StakeStartTime = e.timestamp
				account.IntendedEndTime = end
			}
		}
		account.AccumulatedRewards = big.NewInt(0)
	}

	if realized.Sign() > 0 {
		account.TotalRewardsReceived = new(big.Int).Add(copyBigInt(account.TotalRewardsReceived), realized)
	}
	account.LastPayoutTime = e.timestamp
	e.refreshTier(account)

	if paid.Sign() > 0 {
		ownerAcc, err := e.loadAccount(owner)
		if err != nil {
			return nil, err
		}
		vaultAcc, err := e.loadAccount(e.vaultAddress)
		if err != nil {
			return nil, err
		}
		if vaultAcc.Balance(e.asset).Cmp(paid) < 0 {
			return nil, ErrInsufficientBalance
		}
		vaultAcc.SetBalance(e.asset, new(big.Int).Sub(vaultAcc.Balance(e.asset), paid))
		ownerAcc.SetBalance(e.asset, new(big.Int).Add(ownerAcc.Balance(e.asset), paid))
		if err := e.state.PutAccount(owner, ownerAcc); err != nil {
			return nil, err
		}
		if err := e.state.PutAccount(e.vaultAddress, vaultAcc); err != nil {
			return nil, err
		}
	}
	if err := e.state.PutStakeAccount(account); err != nil {
		return nil, err
	}
	if paid.Sign() > 0 {
		e.state.AppendEvent(&types.Event{Type: eventRewards, Attributes: map[string]string{
			"address": owner.String(),
			"amount":  paid.String(),
			"tier":    account.Tier.String(),
		}})
		mode := "recurring"
		if account.Preferences.Mode == RewardModeRealTimeBatch {
			mode = "batch"
		}
		e.telemetry.AddRewardsPaid(mode, float64(paid.Int64()))
	}
	e.telemetry.ObserveStakeOperation("distribute")
	return paid, nil
}

// batchReady reports whether the accumulated batch can be released: either
// the batch size or the payout threshold is met, within the cadence floor.
// With no size or threshold configured any positive balance releases.
func (e *Engine) batchReady(account *StakeAccount) bool {
	if account.AccumulatedRewards == nil || account.AccumulatedRewards.Sign() <= 0 {
		return false
	}
	gap := account.Preferences.BatchFrequency.Seconds()
	if gap > 0 && account.LastBatchTime > 0 && e.timestamp < account.LastBatchTime+gap {
		return false
	}
	size := account.Preferences.BatchSize
	threshold := account.Preferences.PayoutThreshold
	if size == 0 && (threshold == nil || threshold.Sign() == 0) {
		return true
	}
	if size > 0 && account.PendingBatchCount >= size {
		return true
	}
	if threshold != nil && threshold.Sign() > 0 && account.AccumulatedRewards.Cmp(threshold) >= 0 {
		return true
	}
	return false
}
