package routes

import (
	"fmt"
	"math/big"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"yieldhub/crypto"
	"yieldhub/native/staking"
)

func (a *apiRoutes) mountStaking(r chi.Router) {
	r.Get("/accounts/{address}", a.stakingAccount)
	r.Post("/stake", a.stakingStake)
	r.Post("/withdraw", a.stakingWithdraw)
	r.Post("/preferences", a.stakingPreferences)
	r.Post("/distribute", a.stakingDistribute)
}

type stakeRequest struct {
	Address        string `json:"address"`
	Amount         string `json:"amount"`
	DurationDays   uint64 `json:"durationDays"`
	EnableLeverage bool   `json:"enableLeverage"`
}

type stakingWithdrawRequest struct {
	Address string `json:"address"`
}

type preferencesRequest struct {
	Address             string `json:"address"`
	Mode                string `json:"mode"`
	ReinvestmentPercent uint64 `json:"reinvestmentPercent"`
	Strategy            string `json:"strategy"`
	Frequency           string `json:"frequency"`
	BatchSize           uint64 `json:"batchSize"`
	BatchFrequency      string `json:"batchFrequency"`
	PayoutThreshold     string `json:"payoutThreshold"`
	AutoCompound        bool   `json:"autoCompound"`
}

type distributeRequest struct {
	Address   string   `json:"address"`
	Addresses []string `json:"addresses"`
}

type stakeAccountView struct {
	Address              string `json:"address"`
	StakeAmount          string `json:"stakeAmount"`
	StakeStartTime       uint64 `json:"stakeStartTime"`
	LockDurationDays     uint64 `json:"lockDurationDays"`
	IntendedEndTime      uint64 `json:"intendedEndTime"`
	Tier                 string `json:"tier"`
	AccumulatedRewards   string `json:"accumulatedRewards"`
	TotalRewardsReceived string `json:"totalRewardsReceived"`
	LastPayoutTime       uint64 `json:"lastPayoutTime"`
	PendingBatchCount    uint64 `json:"pendingBatchCount"`
	InteractionCount     uint64 `json:"interactionCount"`
	DerivativeAmount     string `json:"derivativeAmount"`
	LeverageHandle       string `json:"leverageHandle,omitempty"`
}

func (a *apiRoutes) stakingAccount(w http.ResponseWriter, r *http.Request) {
	addr, err := parseAddress(chi.URLParam(r, "address"))
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	a.mu.Lock()
	account, err := a.staking.StakeAccountOf(addr)
	a.mu.Unlock()
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stakeAccountView{
		Address:              account.Address.String(),
		StakeAmount:          account.StakeAmount.String(),
		StakeStartTime:       account.StakeStartTime,
		LockDurationDays:     account.LockDurationDays,
		IntendedEndTime:      account.IntendedEndTime,
		Tier:                 account.Tier.String(),
		AccumulatedRewards:   account.AccumulatedRewards.String(),
		TotalRewardsReceived: account.TotalRewardsReceived.String(),
		LastPayoutTime:       account.LastPayoutTime,
		PendingBatchCount:    account.PendingBatchCount,
		InteractionCount:     account.InteractionCount,
		DerivativeAmount:     account.DerivativeAmount.String(),
		LeverageHandle:       account.LeverageHandle,
	})
}

func (a *apiRoutes) stakingStake(w http.ResponseWriter, r *http.Request) {
	var req stakeRequest
	if err := decodeRequest(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	addr, err := parseAddress(req.Address)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeBadRequest(w, err)
		return
	}

	a.mu.Lock()
	a.staking.SetTimestamp(a.timestamp())
	account, err := a.staking.StakeWithImmediateLiquidity(addr, amount, req.DurationDays, req.EnableLeverage)
	a.mu.Unlock()
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":     "ok",
		"tier":       account.Tier.String(),
		"derivative": account.DerivativeAmount.String(),
		"endTime":    fmt.Sprintf("%d", account.IntendedEndTime),
	})
}

func (a *apiRoutes) stakingWithdraw(w http.ResponseWriter, r *http.Request) {
	var req stakingWithdrawRequest
	if err := decodeRequest(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	addr, err := parseAddress(req.Address)
	if err != nil {
		writeBadRequest(w, err)
		return
	}

	a.mu.Lock()
	a.staking.SetTimestamp(a.timestamp())
	withdrawn, err := a.staking.WithdrawWithImmediateLiquidity(addr)
	a.mu.Unlock()
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"withdrawn": withdrawn.String(),
	})
}

func (a *apiRoutes) stakingPreferences(w http.ResponseWriter, r *http.Request) {
	var req preferencesRequest
	if err := decodeRequest(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	addr, err := parseAddress(req.Address)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	prefs, err := parsePreferences(req)
	if err != nil {
		writeBadRequest(w, err)
		return
	}

	a.mu.Lock()
	a.staking.SetTimestamp(a.timestamp())
	err = a.staking.SetRewardPreferences(addr, prefs)
	a.mu.Unlock()
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *apiRoutes) stakingDistribute(w http.ResponseWriter, r *http.Request) {
	var req distributeRequest
	if err := decodeRequest(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}

	var owners []crypto.Address
	if len(req.Addresses) > 0 {
		for _, raw := range req.Addresses {
			addr, err := parseAddress(raw)
			if err != nil {
				writeBadRequest(w, err)
				return
			}
			owners = append(owners, addr)
		}
	} else {
		addr, err := parseAddress(req.Address)
		if err != nil {
			writeBadRequest(w, err)
			return
		}
		owners = []crypto.Address{addr}
	}

	a.mu.Lock()
	a.staking.SetTimestamp(a.timestamp())
	rewards, err := a.staking.DistributeRewardsBatch(owners)
	a.mu.Unlock()
	if err != nil {
		writeEngineError(w, err)
		return
	}

	payload := make(map[string]string, len(owners))
	for i, owner := range owners {
		payload[owner.String()] = rewards[i].String()
	}
	writeJSON(w, http.StatusOK, payload)
}

func parsePreferences(req preferencesRequest) (staking.RewardPreferences, error) {
	prefs := staking.RewardPreferences{
		ReinvestmentPercent: req.ReinvestmentPercent,
		BatchSize:           req.BatchSize,
		AutoCompound:        req.AutoCompound,
	}
	switch strings.ToLower(strings.TrimSpace(req.Mode)) {
	case "", "recurring":
		prefs.Mode = staking.RewardModeRecurringInvestment
	case "batch":
		prefs.Mode = staking.RewardModeRealTimeBatch
	default:
		return prefs, fmt.Errorf("unknown reward mode %q", req.Mode)
	}
	switch strings.ToLower(strings.TrimSpace(req.Strategy)) {
	case "", "simple":
		prefs.Strategy = staking.StrategySimple
	case "compound":
		prefs.Strategy = staking.StrategyCompound
	default:
		return prefs, fmt.Errorf("unknown compound strategy %q", req.Strategy)
	}
	switch strings.ToLower(strings.TrimSpace(req.Frequency)) {
	case "", "daily":
		prefs.Frequency = staking.RecurDaily
	case "weekly":
		prefs.Frequency = staking.RecurWeekly
	case "monthly":
		prefs.Frequency = staking.RecurMonthly
	default:
		return prefs, fmt.Errorf("unknown recurring frequency %q", req.Frequency)
	}
	switch strings.ToLower(strings.TrimSpace(req.BatchFrequency)) {
	case "", "instant":
		prefs.BatchFrequency = staking.BatchInstant
	case "hourly":
		prefs.BatchFrequency = staking.BatchHourly
	case "daily":
		prefs.BatchFrequency = staking.BatchDaily
	default:
		return prefs, fmt.Errorf("unknown batch frequency %q", req.BatchFrequency)
	}
	if raw := strings.TrimSpace(req.PayoutThreshold); raw != "" {
		threshold, ok := new(big.Int).SetString(raw, 10)
		if !ok {
			return prefs, fmt.Errorf("invalid payout threshold %q", req.PayoutThreshold)
		}
		prefs.PayoutThreshold = threshold
	}
	return prefs, nil
}
