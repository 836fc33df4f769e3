package lending

import (
	"errors"
	"math/big"
	"testing"
)

func TestFlashLoanAddsFeeToDeposits(t *testing.T) {
	engine, state := newTestEngine(t)
	supplier := makeAddress(0x10)
	borrower := makeAddress(0x11)
	state.setBalance(supplier, testAsset, 75_000)
	state.setBalance(borrower, testAsset, 100)

	if err := engine.Deposit(supplier, testAsset, big.NewInt(75_000)); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	strategy := func(st FlashState) error {
		// Return principal plus fee straight back to the vault.
		acc, err := st.GetAccount(borrower)
		if err != nil {
			return err
		}
		vault, err := st.GetAccount(engine.VaultAddress())
		if err != nil {
			return err
		}
		repay := big.NewInt(10_100)
		acc.SetBalance(testAsset, new(big.Int).Sub(acc.Balance(testAsset), repay))
		vault.SetBalance(testAsset, new(big.Int).Add(vault.Balance(testAsset), repay))
		if err := st.PutAccount(borrower, acc); err != nil {
			return err
		}
		return st.PutAccount(engine.VaultAddress(), vault)
	}

	if err := engine.FlashLoan(borrower, testAsset, big.NewInt(10_000), big.NewInt(100), strategy); err != nil {
		t.Fatalf("flash loan: %v", err)
	}

	reserve := state.market.Reserve(testAsset)
	if reserve.TotalDeposits.Cmp(big.NewInt(75_100)) != 0 {
		t.Fatalf("expected deposits 75100, got %s", reserve.TotalDeposits)
	}
	if reserve.TotalBorrows.Sign() != 0 {
		t.Fatalf("flash loan left borrows: %s", reserve.TotalBorrows)
	}
	if got := state.balance(engine.VaultAddress(), testAsset); got.Cmp(big.NewInt(75_100)) != 0 {
		t.Fatalf("unexpected vault balance: %s", got)
	}
	if got := state.balance(borrower, testAsset); got.Sign() != 0 {
		t.Fatalf("unexpected borrower balance: %s", got)
	}
}

func TestFlashLoanZeroFeePersistsAccrual(t *testing.T) {
	engine, state := newTestEngine(t)
	supplier := makeAddress(0x10)
	borrower := makeAddress(0x11)
	state.setBalance(supplier, testAsset, 1_000_000)

	if err := engine.Deposit(supplier, testAsset, big.NewInt(1_000_000)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if err := engine.Borrow(supplier, testAsset, big.NewInt(500_000)); err != nil {
		t.Fatalf("borrow: %v", err)
	}

	later := uint64(1_000 + yearSeconds)
	engine.SetTimestamp(later)

	// Zero fee: returning the principal alone satisfies the repayment check.
	repay := func(st FlashState) error {
		acc, err := st.GetAccount(borrower)
		if err != nil {
			return err
		}
		vault, err := st.GetAccount(engine.VaultAddress())
		if err != nil {
			return err
		}
		acc.SetBalance(testAsset, new(big.Int).Sub(acc.Balance(testAsset), big.NewInt(100)))
		vault.SetBalance(testAsset, new(big.Int).Add(vault.Balance(testAsset), big.NewInt(100)))
		if err := st.PutAccount(borrower, acc); err != nil {
			return err
		}
		return st.PutAccount(engine.VaultAddress(), vault)
	}
	if err := engine.FlashLoan(borrower, testAsset, big.NewInt(100), big.NewInt(0), repay); err != nil {
		t.Fatalf("flash loan: %v", err)
	}

	// u=0.5 at the default model is a 15% borrow rate; one year on 500000
	// accrues 75000 interest, 10% of it to the fee sink.
	if got := state.fees.Fees(testAsset); got.Cmp(big.NewInt(7_500)) != 0 {
		t.Fatalf("expected fees 7500 after flash loan, got %s", got)
	}
	reserve := state.market.Reserve(testAsset)
	if reserve.LastAccrualTime != later {
		t.Fatalf("accrual time not persisted: got %d want %d", reserve.LastAccrualTime, later)
	}

	// A same-timestamp operation must not re-accrue the interval.
	state.setBalance(borrower, testAsset, 1)
	if err := engine.Deposit(borrower, testAsset, big.NewInt(1)); err != nil {
		t.Fatalf("deposit after flash loan: %v", err)
	}
	if got := state.fees.Fees(testAsset); got.Cmp(big.NewInt(7_500)) != 0 {
		t.Fatalf("fees double-counted after flash loan: %s", got)
	}
}

func TestFlashLoanUnrepaidRollsBack(t *testing.T) {
	engine, state := newTestEngine(t)
	supplier := makeAddress(0x10)
	borrower := makeAddress(0x11)
	state.setBalance(supplier, testAsset, 75_000)

	if err := engine.Deposit(supplier, testAsset, big.NewInt(75_000)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	eventsBefore := len(state.events)

	keep := func(FlashState) error { return nil }
	err := engine.FlashLoan(borrower, testAsset, big.NewInt(10_000), big.NewInt(100), keep)
	if !errors.Is(err, ErrFlashLoanNotRepaid) {
		t.Fatalf("expected ErrFlashLoanNotRepaid, got %v", err)
	}

	reserve := state.market.Reserve(testAsset)
	if reserve.TotalDeposits.Cmp(big.NewInt(75_000)) != 0 {
		t.Fatalf("failed loan mutated deposits: %s", reserve.TotalDeposits)
	}
	if got := state.balance(engine.VaultAddress(), testAsset); got.Cmp(big.NewInt(75_000)) != 0 {
		t.Fatalf("failed loan mutated vault balance: %s", got)
	}
	if got := state.balance(borrower, testAsset); got.Sign() != 0 {
		t.Fatalf("failed loan credited borrower: %s", got)
	}
	if len(state.events) != eventsBefore {
		t.Fatalf("failed loan emitted events")
	}
}

func TestFlashLoanStrategyErrorAborts(t *testing.T) {
	engine, state := newTestEngine(t)
	supplier := makeAddress(0x10)
	borrower := makeAddress(0x11)
	state.setBalance(supplier, testAsset, 1_000)

	if err := engine.Deposit(supplier, testAsset, big.NewInt(1_000)); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	boom := errors.New("strategy failed")
	err := engine.FlashLoan(borrower, testAsset, big.NewInt(500), big.NewInt(1), func(FlashState) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected strategy error, got %v", err)
	}
	if got := state.balance(engine.VaultAddress(), testAsset); got.Cmp(big.NewInt(1_000)) != 0 {
		t.Fatalf("aborted loan mutated vault: %s", got)
	}
}

func TestFlashLoanRejectsReentrancy(t *testing.T) {
	engine, state := newTestEngine(t)
	supplier := makeAddress(0x10)
	borrower := makeAddress(0x11)
	state.setBalance(supplier, testAsset, 1_000)

	if err := engine.Deposit(supplier, testAsset, big.NewInt(1_000)); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	err := engine.FlashLoan(borrower, testAsset, big.NewInt(100), big.NewInt(0), func(FlashState) error {
		return engine.FlashLoan(borrower, testAsset, big.NewInt(100), big.NewInt(0), func(FlashState) error {
			return nil
		})
	})
	if !errors.Is(err, ErrReentrantFlashLoan) {
		t.Fatalf("expected ErrReentrantFlashLoan, got %v", err)
	}
}

func TestFlashLoanRespectsAvailableLiquidity(t *testing.T) {
	engine, state := newTestEngine(t)
	supplier := makeAddress(0x10)
	borrower := makeAddress(0x11)
	state.setBalance(supplier, testAsset, 100)

	if err := engine.Deposit(supplier, testAsset, big.NewInt(100)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	err := engine.FlashLoan(borrower, testAsset, big.NewInt(200), big.NewInt(0), func(FlashState) error {
		return nil
	})
	if !errors.Is(err, ErrInsufficientLiquidity) {
		t.Fatalf("expected ErrInsufficientLiquidity, got %v", err)
	}
}
