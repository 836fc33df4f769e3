package staking

import (
	"fmt"
	"math/big"

	"yieldhub/core/types"
	"yieldhub/crypto"
	nativecommon "yieldhub/native/common"
	"yieldhub/observability/metrics"
)

const moduleName = "staking"

const (
	minLockDays = 1
	maxLockDays = 3_650
)

const (
	eventStake    = "staking.stake"
	eventWithdraw = "staking.withdraw"
	eventPenalty  = "staking.penalty"
	eventRewards  = "staking.rewards"
)

type engineState interface {
	GetStakeAccount(addr crypto.Address) (*StakeAccount, error)
	PutStakeAccount(account *StakeAccount) error
	GetAccount(addr crypto.Address) (*types.Account, error)
	PutAccount(addr crypto.Address, account *types.Account) error
	AppendEvent(evt *types.Event)
}

// Engine drives the staking subsystem: positions, tiers, penalties and
// reward distribution. Staked principal is held by the vault; early-exit
// penalties accumulate in the permanent account, which no operation in this
// module (or any other) can withdraw from.
type Engine struct {
	state            engineState
	asset            string
	vaultAddress     crypto.Address
	permanentAccount crypto.Address
	converter        LiquidityConverter
	desk             LeverageDesk
	timestamp        uint64
	pauses           nativecommon.PauseView
	telemetry        *metrics.LendingMetrics
	scoreUnit        *big.Int
}

// NewEngine constructs a staking engine over the given vault and permanent
// penalty sink for one staking asset. Capabilities default to the in-memory
// implementations.
func NewEngine(vault, permanent crypto.Address, asset string) *Engine {
	return &Engine{
		asset:            asset,
		vaultAddress:     vault,
		permanentAccount: permanent,
		converter:        NewMemoryConverter(),
		desk:             NewMemoryLeverageDesk(),
		telemetry:        metrics.Lending(),
		scoreUnit:        big.NewInt(1),
	}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

func (e *Engine) SetPauses(p nativecommon.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
}

// SetTimestamp records the unix timestamp all accrual math runs against.
func (e *Engine) SetTimestamp(ts uint64) {
	if e == nil {
		return
	}
	e.timestamp = ts
}

// SetConverter swaps in a liquidity conversion capability.
func (e *Engine) SetConverter(c LiquidityConverter) {
	if e == nil || c == nil {
		return
	}
	e.converter = c
}

// SetLeverageDesk swaps in a leverage position capability.
func (e *Engine) SetLeverageDesk(d LeverageDesk) {
	if e == nil || d == nil {
		return
	}
	e.desk = d
}

// SetScoreUnit sets the base-unit divisor used when converting amounts into
// whole-unit loyalty scores.
func (e *Engine) SetScoreUnit(unit *big.Int) {
	if e == nil || unit == nil || unit.Sign() <= 0 {
		return
	}
	e.scoreUnit = new(big.Int).Set(unit)
}

// commitmentEnd returns the unix end time of a lock starting at start. The
// duration bound keeps the multiplication in range; the addition is checked
// so a timestamp near the uint64 ceiling cannot wrap the end time.
func commitmentEnd(start, durationDays uint64) (uint64, error) {
	end := start + durationDays*daySeconds
	if end < start {
		return 0, ErrArithmeticOverflow
	}
	return end, nil
}

// StakeWithImmediateLiquidity opens a staking position: principal moves to
// the vault, the converter issues the liquid derivative, and when requested
// the leverage desk opens a position against it.
func (e *Engine) StakeWithImmediateLiquidity(owner crypto.Address, amount *big.Int, durationDays uint64, enableLeverage bool) (*StakeAccount, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if durationDays < minLockDays || durationDays > maxLockDays {
		return nil, ErrInvalidParameter
	}
	endTime, err := commitmentEnd(e.timestamp, durationDays)
	if err != nil {
		return nil, err
	}

	account, err := e.loadStakeAccount(owner)
	if err != nil {
		return nil, err
	}
	if account.Active() {
		return nil, ErrStakeExists
	}

	ownerAcc, err := e.loadAccount(owner)
	if err != nil {
		return nil, err
	}
	vaultAcc, err := e.loadAccount(e.vaultAddress)
	if err != nil {
		return nil, err
	}
	if ownerAcc.Balance(e.asset).Cmp(amount) < 0 {
		return nil, ErrInsufficientBalance
	}

	derivative, err := e.converter.Convert(amount)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExternalCallFailed, err)
	}
	handle := ""
	if enableLeverage {
		handle, err = e.desk.Open(derivative)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrExternalCallFailed, err)
		}
	}

	ownerAcc.SetBalance(e.asset, new(big.Int).Sub(ownerAcc.Balance(e.asset), amount))
	vaultAcc.SetBalance(e.asset, new(big.Int).Add(vaultAcc.Balance(e.asset), amount))

	account.StakeAmount = new(big.Int).Set(amount)
	account.StakeStartTime = e.timestamp
	account.LockDurationDays = durationDays
	account.IntendedEndTime = endTime
	account.DerivativeAmount = derivative
	account.LeverageHandle = handle
	account.AccumulatedRewards = big.NewInt(0)
	account.LastPayoutTime = e.timestamp
	account.InteractionCount++
	e.refreshTier(account)

	if err := e.persist(owner, account, ownerAcc, vaultAcc); err != nil {
		return nil, err
	}
	e.state.AppendEvent(&types.Event{Type: eventStake, Attributes: map[string]string{
		"address":  owner.String(),
		"amount":   amount.String(),
		"duration": fmt.Sprintf("%d", durationDays),
		"leverage": fmt.Sprintf("%t", enableLeverage),
	}})
	e.telemetry.ObserveStakeOperation("stake")
	return account, nil
}

// WithdrawWithImmediateLiquidity closes the caller's position. Leaving
// before the intended end forfeits the full-term reward from principal,
// floored at zero, with the forfeited amount routed to the permanent
// account. Leaving at or after the end pays principal plus accrued reward.
// The amount released to the owner is returned.
func (e *Engine) WithdrawWithImmediateLiquidity(owner crypto.Address) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}

	account, err := e.loadStakeAccount(owner)
	if err != nil {
		return nil, err
	}
	if !account.Active() {
		return nil, ErrNoStake
	}

	if account.LeverageHandle != "" {
		if _, err := e.desk.Close(account.LeverageHandle); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrExternalCallFailed, err)
		}
	}
	if account.DerivativeAmount != nil && account.DerivativeAmount.Sign() > 0 {
		if _, err := e.converter.Redeem(account.DerivativeAmount); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrExternalCallFailed, err)
		}
	}

	principal := new(big.Int).Set(account.StakeAmount)
	withdrawal := new(big.Int).Set(principal)
	penalty := big.NewInt(0)
	reward := big.NewInt(0)

	if e.timestamp < account.IntendedEndTime {
		penalty = FullTermPenalty(account)
		if penalty.Cmp(principal) > 0 {
			penalty = new(big.Int).Set(principal)
		}
		withdrawal.Sub(withdrawal, penalty)
	} else {
		reward = AccruedReward(account, e.timestamp)
		reward.Add(reward, copyBigInt(account.AccumulatedRewards))
		withdrawal.Add(withdrawal, reward)
	}

	ownerAcc, err := e.loadAccount(owner)
	if err != nil {
		return nil, err
	}
	vaultAcc, err := e.loadAccount(e.vaultAddress)
	if err != nil {
		return nil, err
	}
	if vaultAcc.Balance(e.asset).Cmp(new(big.Int).Add(withdrawal, penalty)) < 0 {
		return nil, ErrInsufficientBalance
	}
	vaultAcc.SetBalance(e.asset, new(big.Int).Sub(vaultAcc.Balance(e.asset), new(big.Int).Add(withdrawal, penalty)))
	ownerAcc.SetBalance(e.asset, new(big.Int).Add(ownerAcc.Balance(e.asset), withdrawal))

	tier := account.Tier
	account.StakeAmount = big.NewInt(0)
	account.DerivativeAmount = big.NewInt(0)
	account.LeverageHandle = ""
	account.AccumulatedRewards = big.NewInt(0)
	account.PendingBatchCount = 0
	if reward.Sign() > 0 {
		account.TotalRewardsReceived = new(big.Int).Add(copyBigInt(account.TotalRewardsReceived), reward)
	}
	account.LastPayoutTime = e.timestamp
	account.InteractionCount++
	e.refreshTier(account)

	if err := e.persist(owner, account, ownerAcc, vaultAcc); err != nil {
		return nil, err
	}
	if penalty.Sign() > 0 {
		permanentAcc, err := e.loadAccount(e.permanentAccount)
		if err != nil {
			return nil, err
		}
		permanentAcc.SetBalance(e.asset, new(big.Int).Add(permanentAcc.Balance(e.asset), penalty))
		if err := e.state.PutAccount(e.permanentAccount, permanentAcc); err != nil {
			return nil, err
		}
		e.state.AppendEvent(&types.Event{Type: eventPenalty, Attributes: map[string]string{
			"address": owner.String(),
			"amount":  penalty.String(),
			"tier":    tier.String(),
		}})
		e.telemetry.ObservePenalty(tier.String())
	}
	e.state.AppendEvent(&types.Event{Type: eventWithdraw, Attributes: map[string]string{
		"address": owner.String(),
		"amount":  withdrawal.String(),
		"reward":  reward.String(),
		"penalty": penalty.String(),
	}})
	e.telemetry.ObserveStakeOperation("withdraw")
	return withdrawal, nil
}

// SetRewardPreferences stores the caller's payout configuration.
func (e *Engine) SetRewardPreferences(owner crypto.Address, prefs RewardPreferences) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if err := prefs.Validate(); err != nil {
		return err
	}
	account, err := e.loadStakeAccount(owner)
	if err != nil {
		return err
	}
	account.Preferences = prefs.Clone()
	account.InteractionCount++
	e.refreshTier(account)
	return e.state.PutStakeAccount(account)
}

// StakeAccountOf returns a copy of the caller's staking record.
func (e *Engine) StakeAccountOf(owner crypto.Address) (*StakeAccount, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	account, err := e.state.GetStakeAccount(owner)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrNoStake
	}
	return account.Clone(), nil
}

func (e *Engine) refreshTier(account *StakeAccount) {
	account.Tier = TierForScore(LoyaltyScore(account, e.timestamp, e.scoreUnit))
}

func (e *Engine) loadStakeAccount(owner crypto.Address) (*StakeAccount, error) {
	account, err := e.state.GetStakeAccount(owner)
	if err != nil {
		return nil, err
	}
	if account == nil {
		account = &StakeAccount{
			Address:              owner,
			StakeAmount:          big.NewInt(0),
			AccumulatedRewards:   big.NewInt(0),
			TotalRewardsReceived: big.NewInt(0),
			DerivativeAmount:     big.NewInt(0),
			Preferences:          DefaultPreferences(),
		}
	}
	return account, nil
}

func (e *Engine) loadAccount(addr crypto.Address) (*types.Account, error) {
	acc, err := e.state.GetAccount(addr)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		acc = types.NewAccount()
	}
	return acc, nil
}

func (e *Engine) persist(owner crypto.Address, account *StakeAccount, ownerAcc, vaultAcc *types.Account) error {
	if err := e.state.PutStakeAccount(account); err != nil {
		return err
	}
	if err := e.state.PutAccount(owner, ownerAcc); err != nil {
		return err
	}
	return e.state.PutAccount(e.vaultAddress, vaultAcc)
}
