package lending

import (
	"bytes"
	"math/big"
	"strings"

	"yieldhub/core/types"
	"yieldhub/crypto"
	nativecommon "yieldhub/native/common"
	"yieldhub/observability/metrics"
)

const moduleName = "lending"

const (
	eventDeposit   = "lending.deposit"
	eventBorrow    = "lending.borrow"
	eventRepay     = "lending.repay"
	eventWithdraw  = "lending.withdraw"
	eventLiquidate = "lending.liquidate"
	eventFlashLoan = "lending.flash_loan"
)

type engineState interface {
	GetMarket() (*Market, error)
	PutMarket(market *Market) error
	GetUserAccount(addr crypto.Address) (*UserAccount, error)
	PutUserAccount(account *UserAccount) error
	GetAccount(addr crypto.Address) (*types.Account, error)
	PutAccount(addr crypto.Address, account *types.Account) error
	GetFeeAccrual() (*FeeAccrual, error)
	PutFeeAccrual(fees *FeeAccrual) error
	AppendEvent(evt *types.Event)
}

// Engine orchestrates the primary state transitions for the lending module.
// Every operation runs against a write journal committed only on success, so
// a rejected check leaves all touched accounts exactly as they were.
type Engine struct {
	state        engineState
	vaultAddress crypto.Address
	timestamp    uint64
	pauses       nativecommon.PauseView
	telemetry    *metrics.LendingMetrics
	flashActive  map[string]bool
}

// NewEngine constructs a lending engine configured with the pooled liquidity
// vault address.
func NewEngine(vault crypto.Address) *Engine {
	return &Engine{
		vaultAddress: vault,
		telemetry:    metrics.Lending(),
		flashActive:  make(map[string]bool),
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

// SetTimestamp records the unix timestamp used when computing accrual deltas.
func (e *Engine) SetTimestamp(ts uint64) {
	if e == nil {
		return
	}
	e.timestamp = ts
}

// VaultAddress returns the pooled liquidity vault the engine debits and
// credits on behalf of the market.
func (e *Engine) VaultAddress() crypto.Address {
	return e.vaultAddress
}

// InitMarket creates the market with zeroed totals. The permanent account
// accumulates staking penalties and has no withdrawing entry point anywhere
// in the module.
func (e *Engine) InitMarket(authority, permanent crypto.Address, model InterestModel, reserveFactorBps, maxUsers uint64) (*Market, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if authority.IsZero() || permanent.IsZero() {
		return nil, ErrInvalidParameter
	}
	if reserveFactorBps >= 10_000 {
		return nil, ErrInvalidParameter
	}
	existing, err := e.state.GetMarket()
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrMarketExists
	}
	market := &Market{
		Authority:        authority,
		PermanentAccount: permanent,
		Model:            model,
		ReserveFactorBps: reserveFactorBps,
		TotalDeposits:    big.NewInt(0),
		TotalBorrows:     big.NewInt(0),
		Reserves:         make(map[string]*Reserve),
		MaxUsers:         maxUsers,
	}
	if err := e.state.PutMarket(market); err != nil {
		return nil, err
	}
	return market, nil
}

// AddReserve registers a new single-asset pool under the market. Only the
// market authority may add reserves.
func (e *Engine) AddReserve(caller crypto.Address, asset string, params RiskParameters) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	asset = strings.TrimSpace(asset)
	if asset == "" {
		return ErrInvalidParameter
	}
	if err := params.Validate(); err != nil {
		return err
	}

	j := newJournal(e.state)
	market, err := e.ensureMarket(j)
	if err != nil {
		return err
	}
	if !sameAddress(caller, market.Authority) {
		return ErrUnauthorized
	}
	if market.Reserve(asset) != nil {
		return ErrReserveExists
	}
	market.Reserves[asset] = &Reserve{
		Asset:           asset,
		Params:          params,
		TotalDeposits:   big.NewInt(0),
		TotalBorrows:    big.NewInt(0),
		SupplyIndex:     new(big.Int).Set(ray),
		BorrowIndex:     new(big.Int).Set(ray),
		LastAccrualTime: e.timestamp,
	}
	if err := j.PutMarket(market); err != nil {
		return err
	}
	return j.Commit()
}

// Deposit credits the user's position and the reserve and market totals.
func (e *Engine) Deposit(depositor crypto.Address, asset string, amount *big.Int) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}

	j := newJournal(e.state)
	market, reserve, err := e.prepare(j, asset)
	if err != nil {
		return err
	}

	user, created, err := e.ensureUserAccount(j, depositor)
	if err != nil {
		return err
	}
	if created {
		if market.MaxUsers > 0 && market.CurrentUsers >= market.MaxUsers {
			return ErrMarketFull
		}
		market.CurrentUsers++
	}
	e.syncPositions(user, market)

	depositorAcc, err := e.loadAccount(j, depositor)
	if err != nil {
		return err
	}
	vaultAcc, err := e.loadAccount(j, e.vaultAddress)
	if err != nil {
		return err
	}
	if err := debit(depositorAcc, asset, amount); err != nil {
		return err
	}
	credit(vaultAcc, asset, amount)

	pos := user.Deposits[asset]
	if pos == nil {
		pos = &Position{Principal: big.NewInt(0), Index: copyBigInt(reserve.SupplyIndex)}
		user.Deposits[asset] = pos
	}
	pos.Principal = new(big.Int).Add(pos.Principal, amount)
	pos.Index = copyBigInt(reserve.SupplyIndex)

	reserve.TotalDeposits = new(big.Int).Add(reserve.TotalDeposits, amount)
	market.TotalDeposits = new(big.Int).Add(market.TotalDeposits, amount)

	if err := e.persist(j, market, user, depositor, depositorAcc); err != nil {
		return err
	}
	if err := j.PutAccount(e.vaultAddress, vaultAcc); err != nil {
		return err
	}
	j.AppendEvent(opEvent(eventDeposit, depositor, asset, amount))
	if err := j.Commit(); err != nil {
		return err
	}
	e.telemetry.ObserveOperation("deposit", asset)
	return nil
}

// Borrow debits reserve liquidity against the borrower's collateral. The
// collateral check runs on the post-accrual, post-mutation position.
func (e *Engine) Borrow(borrower crypto.Address, asset string, amount *big.Int) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}

	j := newJournal(e.state)
	market, reserve, err := e.prepare(j, asset)
	if err != nil {
		return err
	}

	if reserve.AvailableLiquidity().Cmp(amount) < 0 {
		return ErrInsufficientLiquidity
	}

	user, _, err := e.ensureUserAccount(j, borrower)
	if err != nil {
		return err
	}
	e.syncPositions(user, market)

	pos := user.Borrows[asset]
	if pos == nil {
		pos = &Position{Principal: big.NewInt(0), Index: copyBigInt(reserve.BorrowIndex)}
		user.Borrows[asset] = pos
	}
	pos.Principal = new(big.Int).Add(pos.Principal, amount)
	pos.Index = copyBigInt(reserve.BorrowIndex)

	if !withinBorrowLimit(user, market) {
		return ErrInsufficientCollateral
	}

	vaultAcc, err := e.loadAccount(j, e.vaultAddress)
	if err != nil {
		return err
	}
	borrowerAcc, err := e.loadAccount(j, borrower)
	if err != nil {
		return err
	}
	if err := debit(vaultAcc, asset, amount); err != nil {
		return ErrInsufficientLiquidity
	}
	credit(borrowerAcc, asset, amount)

	reserve.TotalBorrows = new(big.Int).Add(reserve.TotalBorrows, amount)
	market.TotalBorrows = new(big.Int).Add(market.TotalBorrows, amount)

	if err := e.persist(j, market, user, borrower, borrowerAcc); err != nil {
		return err
	}
	if err := j.PutAccount(e.vaultAddress, vaultAcc); err != nil {
		return err
	}
	j.AppendEvent(opEvent(eventBorrow, borrower, asset, amount))
	if err := j.Commit(); err != nil {
		return err
	}
	e.telemetry.ObserveOperation("borrow", asset)
	return nil
}

// Repay reduces the borrower's outstanding debt, capped at the recorded
// principal. The actual amount repaid is returned.
func (e *Engine) Repay(borrower crypto.Address, asset string, amount *big.Int) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}

	j := newJournal(e.state)
	market, reserve, err := e.prepare(j, asset)
	if err != nil {
		return nil, err
	}

	user, _, err := e.ensureUserAccount(j, borrower)
	if err != nil {
		return nil, err
	}
	e.syncPositions(user, market)

	pos := user.Borrows[asset]
	if pos == nil || pos.Principal.Sign() == 0 {
		return nil, ErrNoBorrowFound
	}
	repay := minBigInt(amount, pos.Principal)

	borrowerAcc, err := e.loadAccount(j, borrower)
	if err != nil {
		return nil, err
	}
	vaultAcc, err := e.loadAccount(j, e.vaultAddress)
	if err != nil {
		return nil, err
	}
	if err := debit(borrowerAcc, asset, repay); err != nil {
		return nil, err
	}
	credit(vaultAcc, asset, repay)

	pos.Principal = new(big.Int).Sub(pos.Principal, repay)
	pos.Index = copyBigInt(reserve.BorrowIndex)
	if pos.Principal.Sign() == 0 {
		delete(user.Borrows, asset)
	}

	reserve.TotalBorrows = new(big.Int).Sub(reserve.TotalBorrows, repay)
	market.TotalBorrows = new(big.Int).Sub(market.TotalBorrows, repay)

	if err := e.persist(j, market, user, borrower, borrowerAcc); err != nil {
		return nil, err
	}
	if err := j.PutAccount(e.vaultAddress, vaultAcc); err != nil {
		return nil, err
	}
	j.AppendEvent(opEvent(eventRepay, borrower, asset, repay))
	if err := j.Commit(); err != nil {
		return nil, err
	}
	e.telemetry.ObserveOperation("repay", asset)
	return repay, nil
}

// Withdraw releases deposited funds back to the user while ensuring the
// remaining collateral still supports every outstanding borrow. Requesting
// more than the recorded principal fails outright rather than clamping.
func (e *Engine) Withdraw(withdrawer crypto.Address, asset string, amount *big.Int) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}

	j := newJournal(e.state)
	market, reserve, err := e.prepare(j, asset)
	if err != nil {
		return err
	}

	user, _, err := e.ensureUserAccount(j, withdrawer)
	if err != nil {
		return err
	}
	e.syncPositions(user, market)

	pos := user.Deposits[asset]
	if pos == nil || pos.Principal.Sign() == 0 {
		return ErrNoDepositFound
	}
	if amount.Cmp(pos.Principal) > 0 {
		return ErrInsufficientBalance
	}

	pos.Principal = new(big.Int).Sub(pos.Principal, amount)
	pos.Index = copyBigInt(reserve.SupplyIndex)
	if !withinBorrowLimit(user, market) {
		return ErrInsufficientBalance
	}
	// Liquidity is checked only after the position checks so a withdrawal the
	// caller is not entitled to never surfaces as a liquidity failure.
	if reserve.AvailableLiquidity().Cmp(amount) < 0 {
		return ErrInsufficientLiquidity
	}
	if pos.Principal.Sign() == 0 {
		delete(user.Deposits, asset)
	}

	vaultAcc, err := e.loadAccount(j, e.vaultAddress)
	if err != nil {
		return err
	}
	withdrawerAcc, err := e.loadAccount(j, withdrawer)
	if err != nil {
		return err
	}
	if err := debit(vaultAcc, asset, amount); err != nil {
		return ErrInsufficientLiquidity
	}
	credit(withdrawerAcc, asset, amount)

	reserve.TotalDeposits = new(big.Int).Sub(reserve.TotalDeposits, amount)
	market.TotalDeposits = new(big.Int).Sub(market.TotalDeposits, amount)

	if err := e.persist(j, market, user, withdrawer, withdrawerAcc); err != nil {
		return err
	}
	if err := j.PutAccount(e.vaultAddress, vaultAcc); err != nil {
		return err
	}
	j.AppendEvent(opEvent(eventWithdraw, withdrawer, asset, amount))
	if err := j.Commit(); err != nil {
		return err
	}
	e.telemetry.ObserveOperation("withdraw", asset)
	return nil
}

// Liquidate lets a third party repay part of an unhealthy borrower's debt in
// exchange for seized collateral plus the liquidation penalty. The penalty is
// funded entirely from the borrower's forfeited collateral. Repaid debt and
// seized collateral are returned.
func (e *Engine) Liquidate(liquidator, borrower crypto.Address, asset string, repayAmount *big.Int) (*big.Int, *big.Int, error) {
	if e == nil || e.state == nil {
		return nil, nil, ErrNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, nil, err
	}
	if repayAmount == nil || repayAmount.Sign() <= 0 {
		return nil, nil, ErrInvalidAmount
	}

	j := newJournal(e.state)
	market, reserve, err := e.prepare(j, asset)
	if err != nil {
		return nil, nil, err
	}

	target, _, err := e.ensureUserAccount(j, borrower)
	if err != nil {
		return nil, nil, err
	}
	e.syncPositions(target, market)

	debtPos := target.Borrows[asset]
	if debtPos == nil || debtPos.Principal.Sign() == 0 {
		return nil, nil, ErrNoBorrowFound
	}
	if positionHealthy(target, market) {
		return nil, nil, ErrNotLiquidatable
	}

	repaid := minBigInt(repayAmount, debtPos.Principal)
	seized := bpsShare(repaid, 10_000+reserve.Params.LiquidationPenaltyBps)
	collateralPos := target.Deposits[asset]
	available := big.NewInt(0)
	if collateralPos != nil && collateralPos.Principal != nil {
		available = collateralPos.Principal
	}
	if seized.Cmp(available) > 0 {
		seized = new(big.Int).Set(available)
	}

	liquidatorAcc, err := e.loadAccount(j, liquidator)
	if err != nil {
		return nil, nil, err
	}
	vaultAcc, err := e.loadAccount(j, e.vaultAddress)
	if err != nil {
		return nil, nil, err
	}
	if err := debit(liquidatorAcc, asset, repaid); err != nil {
		return nil, nil, err
	}
	credit(vaultAcc, asset, repaid)

	debtPos.Principal = new(big.Int).Sub(debtPos.Principal, repaid)
	debtPos.Index = copyBigInt(reserve.BorrowIndex)
	if debtPos.Principal.Sign() == 0 {
		delete(target.Borrows, asset)
	}
	reserve.TotalBorrows = new(big.Int).Sub(reserve.TotalBorrows, repaid)
	market.TotalBorrows = new(big.Int).Sub(market.TotalBorrows, repaid)

	if seized.Sign() > 0 {
		collateralPos.Principal = new(big.Int).Sub(collateralPos.Principal, seized)
		collateralPos.Index = copyBigInt(reserve.SupplyIndex)
		if collateralPos.Principal.Sign() == 0 {
			delete(target.Deposits, asset)
		}
		if err := debit(vaultAcc, asset, seized); err != nil {
			return nil, nil, ErrInsufficientLiquidity
		}
		credit(liquidatorAcc, asset, seized)
		reserve.TotalDeposits = new(big.Int).Sub(reserve.TotalDeposits, seized)
		market.TotalDeposits = new(big.Int).Sub(market.TotalDeposits, seized)
	}

	if err := e.persist(j, market, target, liquidator, liquidatorAcc); err != nil {
		return nil, nil, err
	}
	if err := j.PutAccount(e.vaultAddress, vaultAcc); err != nil {
		return nil, nil, err
	}
	j.AppendEvent(&types.Event{Type: eventLiquidate, Attributes: map[string]string{
		"liquidator": liquidator.String(),
		"borrower":   borrower.String(),
		"asset":      asset,
		"repaid":     repaid.String(),
		"seized":     seized.String(),
	}})
	if err := j.Commit(); err != nil {
		return nil, nil, err
	}
	e.telemetry.ObserveLiquidation(asset)
	return repaid, seized, nil
}

// WithdrawProtocolFees transfers accrued protocol fees for the asset to the
// recipient. Only the market authority may drain the fee sink.
func (e *Engine) WithdrawProtocolFees(caller, recipient crypto.Address, asset string, amount *big.Int) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}

	j := newJournal(e.state)
	market, reserve, err := e.prepare(j, asset)
	if err != nil {
		return nil, err
	}
	if !sameAddress(caller, market.Authority) {
		return nil, ErrUnauthorized
	}

	fees, err := j.GetFeeAccrual()
	if err != nil {
		return nil, err
	}
	if fees == nil {
		fees = &FeeAccrual{}
	}
	if fees.Fees(asset).Cmp(amount) < 0 {
		return nil, ErrInsufficientLiquidity
	}

	vaultAcc, err := e.loadAccount(j, e.vaultAddress)
	if err != nil {
		return nil, err
	}
	recipientAcc, err := e.loadAccount(j, recipient)
	if err != nil {
		return nil, err
	}
	if err := debit(vaultAcc, asset, amount); err != nil {
		return nil, ErrInsufficientLiquidity
	}
	credit(recipientAcc, asset, amount)

	fees.ProtocolFees[asset] = new(big.Int).Sub(fees.Fees(asset), amount)
	reserve.TotalDeposits = new(big.Int).Sub(reserve.TotalDeposits, amount)
	market.TotalDeposits = new(big.Int).Sub(market.TotalDeposits, amount)

	if err := j.PutMarket(market); err != nil {
		return nil, err
	}
	if err := j.PutFeeAccrual(fees); err != nil {
		return nil, err
	}
	if err := j.PutAccount(e.vaultAddress, vaultAcc); err != nil {
		return nil, err
	}
	if err := j.PutAccount(recipient, recipientAcc); err != nil {
		return nil, err
	}
	if err := j.Commit(); err != nil {
		return nil, err
	}
	return new(big.Int).Set(amount), nil
}

// prepare loads the market, accrues every reserve up to the engine timestamp
// and returns the requested reserve.
func (e *Engine) prepare(j *journal, asset string) (*Market, *Reserve, error) {
	market, err := e.ensureMarket(j)
	if err != nil {
		return nil, nil, err
	}
	if err := e.accrueAll(j, market); err != nil {
		return nil, nil, err
	}
	reserve := market.Reserve(strings.TrimSpace(asset))
	if reserve == nil {
		return nil, nil, ErrReserveNotFound
	}
	return market, reserve, nil
}

// accrueAll compounds every reserve's indexes for the time elapsed since the
// last accrual. A timestamp behind LastAccrualTime is a consistency fault and
// aborts the operation.
func (e *Engine) accrueAll(j *journal, market *Market) error {
	fees, err := j.GetFeeAccrual()
	if err != nil {
		return err
	}
	if fees == nil {
		fees = &FeeAccrual{}
	}
	feesChanged := false

	for _, asset := range market.ReserveAssets() {
		reserve := market.Reserves[asset]
		if e.timestamp < reserve.LastAccrualTime {
			return ErrClockSkew
		}
		delta := e.timestamp - reserve.LastAccrualTime
		if delta == 0 {
			continue
		}
		if reserve.TotalBorrows == nil || reserve.TotalBorrows.Sign() == 0 {
			reserve.LastAccrualTime = e.timestamp
			continue
		}

		utilization := market.Model.Utilization(reserve.TotalBorrows, reserve.TotalDeposits)
		borrowRate := market.Model.BorrowRate(utilization)
		depositRate := market.Model.DepositRate(utilization, market.ReserveFactorBps)

		reserve.BorrowIndex = rayMul(reserve.BorrowIndex, rateFactor(borrowRate, delta))
		reserve.SupplyIndex = rayMul(reserve.SupplyIndex, rateFactor(depositRate, delta))

		interest := computeInterest(reserve.TotalBorrows, borrowRate, delta)
		if interest.Sign() > 0 {
			reserveShare := bpsShare(interest, market.ReserveFactorBps)
			if reserveShare.Sign() > 0 {
				fees.AddFees(asset, reserveShare)
				feesChanged = true
			}
			reserve.TotalBorrows = new(big.Int).Add(reserve.TotalBorrows, interest)
			reserve.TotalDeposits = new(big.Int).Add(reserve.TotalDeposits, interest)
			market.TotalBorrows = new(big.Int).Add(market.TotalBorrows, interest)
			market.TotalDeposits = new(big.Int).Add(market.TotalDeposits, interest)
		}
		reserve.LastAccrualTime = e.timestamp
	}

	if feesChanged {
		return j.PutFeeAccrual(fees)
	}
	return nil
}

// syncPositions grows every position principal to the current reserve index
// so later checks and mutations act on live values.
func (e *Engine) syncPositions(user *UserAccount, market *Market) {
	if user == nil || market == nil {
		return
	}
	for _, asset := range user.DepositAssets() {
		reserve := market.Reserve(asset)
		if reserve == nil {
			continue
		}
		pos := user.Deposits[asset]
		pos.Principal = valueAtIndex(pos.Principal, pos.Index, reserve.SupplyIndex)
		pos.Index = copyBigInt(reserve.SupplyIndex)
	}
	for _, asset := range user.BorrowAssets() {
		reserve := market.Reserve(asset)
		if reserve == nil {
			continue
		}
		pos := user.Borrows[asset]
		pos.Principal = valueAtIndex(pos.Principal, pos.Index, reserve.BorrowIndex)
		pos.Index = copyBigInt(reserve.BorrowIndex)
	}
}

func (e *Engine) ensureMarket(j *journal) (*Market, error) {
	market, err := j.GetMarket()
	if err != nil {
		return nil, err
	}
	if market == nil {
		return nil, ErrMarketNotFound
	}
	if market.TotalDeposits == nil {
		market.TotalDeposits = big.NewInt(0)
	}
	if market.TotalBorrows == nil {
		market.TotalBorrows = big.NewInt(0)
	}
	if market.Reserves == nil {
		market.Reserves = make(map[string]*Reserve)
	}
	return market, nil
}

func (e *Engine) ensureUserAccount(j *journal, addr crypto.Address) (*UserAccount, bool, error) {
	user, err := j.GetUserAccount(addr)
	if err != nil {
		return nil, false, err
	}
	created := false
	if user == nil {
		user = &UserAccount{Address: addr}
		created = true
	}
	if user.Deposits == nil {
		user.Deposits = make(map[string]*Position)
	}
	if user.Borrows == nil {
		user.Borrows = make(map[string]*Position)
	}
	return user, created, nil
}

func (e *Engine) loadAccount(j *journal, addr crypto.Address) (*types.Account, error) {
	acc, err := j.GetAccount(addr)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		acc = types.NewAccount()
	}
	return acc, nil
}

// persist stores the mutated market, user account and ledger account in the
// journal so Commit flushes them together.
func (e *Engine) persist(j *journal, market *Market, user *UserAccount, addr crypto.Address, acc *types.Account) error {
	if err := j.PutMarket(market); err != nil {
		return err
	}
	if err := j.PutUserAccount(user); err != nil {
		return err
	}
	return j.PutAccount(addr, acc)
}

func debit(acc *types.Account, asset string, amount *big.Int) error {
	balance := acc.Balance(asset)
	if balance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	acc.SetBalance(asset, new(big.Int).Sub(balance, amount))
	return nil
}

func credit(acc *types.Account, asset string, amount *big.Int) {
	acc.SetBalance(asset, new(big.Int).Add(acc.Balance(asset), amount))
}

func sameAddress(a, b crypto.Address) bool {
	return bytes.Equal(a.Bytes(), b.Bytes())
}

func opEvent(kind string, addr crypto.Address, asset string, amount *big.Int) *types.Event {
	return &types.Event{Type: kind, Attributes: map[string]string{
		"address": addr.String(),
		"asset":   asset,
		"amount":  amount.String(),
	}}
}
