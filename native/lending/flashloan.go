package lending

import (
	"math/big"

	"yieldhub/core/types"
	"yieldhub/crypto"
	nativecommon "yieldhub/native/common"
)

// FlashState is the narrow view handed to a flash loan strategy. Strategies
// may move funds between ledger accounts but cannot touch market state.
type FlashState interface {
	GetAccount(addr crypto.Address) (*types.Account, error)
	PutAccount(addr crypto.Address, account *types.Account) error
}

// Strategy is the borrower-supplied callback executed while the loan is
// outstanding. Returning an error aborts the loan and discards every write
// the strategy made.
type Strategy func(st FlashState) error

// FlashLoan lends the requested amount for the duration of the strategy
// callback. The loan succeeds only when the vault ends the callback holding
// its starting balance plus the fee; otherwise no state change survives. The
// fee is credited to reserve deposits so it compounds to suppliers.
func (e *Engine) FlashLoan(borrower crypto.Address, asset string, amount, fee *big.Int, strategy Strategy) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if fee == nil || fee.Sign() < 0 {
		return ErrInvalidAmount
	}
	if strategy == nil {
		return ErrInvalidParameter
	}
	if e.flashActive[asset] {
		return ErrReentrantFlashLoan
	}
	e.flashActive[asset] = true
	defer delete(e.flashActive, asset)

	j := newJournal(e.state)
	market, reserve, err := e.prepare(j, asset)
	if err != nil {
		return err
	}
	if reserve.AvailableLiquidity().Cmp(amount) < 0 {
		return ErrInsufficientLiquidity
	}

	vaultAcc, err := e.loadAccount(j, e.vaultAddress)
	if err != nil {
		return err
	}
	startBalance := copyBigInt(vaultAcc.Balance(asset))

	borrowerAcc, err := e.loadAccount(j, borrower)
	if err != nil {
		return err
	}
	if err := debit(vaultAcc, asset, amount); err != nil {
		return ErrInsufficientLiquidity
	}
	credit(borrowerAcc, asset, amount)
	if err := j.PutAccount(e.vaultAddress, vaultAcc); err != nil {
		return err
	}
	if err := j.PutAccount(borrower, borrowerAcc); err != nil {
		return err
	}

	if err := strategy(j); err != nil {
		return err
	}

	vaultAcc, err = e.loadAccount(j, e.vaultAddress)
	if err != nil {
		return err
	}
	required := new(big.Int).Add(startBalance, fee)
	if vaultAcc.Balance(asset).Cmp(required) < 0 {
		return ErrFlashLoanNotRepaid
	}

	if fee.Sign() > 0 {
		reserve.TotalDeposits = new(big.Int).Add(reserve.TotalDeposits, fee)
		market.TotalDeposits = new(big.Int).Add(market.TotalDeposits, fee)
	}
	// Accrual in prepare mutates the market even when the fee is zero; the
	// market must land in the same commit as the fee sink.
	if err := j.PutMarket(market); err != nil {
		return err
	}

	j.AppendEvent(&types.Event{Type: eventFlashLoan, Attributes: map[string]string{
		"borrower": borrower.String(),
		"asset":    asset,
		"amount":   amount.String(),
		"fee":      fee.String(),
	}})
	if err := j.Commit(); err != nil {
		return err
	}
	e.telemetry.ObserveFlashLoan(asset)
	return nil
}
