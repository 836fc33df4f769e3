package lending

import (
	"errors"
	"math/big"
	"testing"
)

func TestAccrueAllUpdatesIndexesAndFees(t *testing.T) {
	engine, state := newTestEngine(t)
	state.market.Model = InterestModel{BaseRateBps: 0, MultiplierBps: 10_000, JumpMultiplierBps: 0, KinkBps: 10_000}
	state.market.ReserveFactorBps = 2_000

	reserve := state.market.Reserve(testAsset)
	reserve.TotalDeposits = big.NewInt(1_000)
	reserve.TotalBorrows = big.NewInt(500)
	state.market.TotalDeposits = big.NewInt(1_000)
	state.market.TotalBorrows = big.NewInt(500)

	engine.SetTimestamp(1_000 + yearSeconds)

	j := newJournal(state)
	market, err := j.GetMarket()
	if err != nil {
		t.Fatalf("get market: %v", err)
	}
	if err := engine.accrueAll(j, market); err != nil {
		t.Fatalf("accrue: %v", err)
	}
	if err := j.PutMarket(market); err != nil {
		t.Fatalf("put market: %v", err)
	}
	if err := j.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	reserve = state.market.Reserve(testAsset)
	// u = 0.5, borrow rate = 0.5/yr: index 1.0 -> 1.5 after one year.
	expectedBorrowIndex := new(big.Int).Mul(ray, big.NewInt(3))
	expectedBorrowIndex.Quo(expectedBorrowIndex, big.NewInt(2))
	if reserve.BorrowIndex.Cmp(expectedBorrowIndex) != 0 {
		t.Fatalf("unexpected borrow index: got %s want %s", reserve.BorrowIndex, expectedBorrowIndex)
	}
	// deposit rate = 0.5 * 0.5 * 0.8 = 0.2/yr.
	expectedSupplyIndex := new(big.Int).Mul(ray, big.NewInt(6))
	expectedSupplyIndex.Quo(expectedSupplyIndex, big.NewInt(5))
	if reserve.SupplyIndex.Cmp(expectedSupplyIndex) != 0 {
		t.Fatalf("unexpected supply index: got %s want %s", reserve.SupplyIndex, expectedSupplyIndex)
	}

	// interest = 500 * 0.5 = 250; reserve factor 20% -> 50 to the fee sink.
	if reserve.TotalBorrows.Cmp(big.NewInt(750)) != 0 {
		t.Fatalf("unexpected borrows after accrual: %s", reserve.TotalBorrows)
	}
	if reserve.TotalDeposits.Cmp(big.NewInt(1_250)) != 0 {
		t.Fatalf("unexpected deposits after accrual: %s", reserve.TotalDeposits)
	}
	if state.fees == nil || state.fees.Fees(testAsset).Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("unexpected protocol fees: %v", state.fees)
	}
	if reserve.LastAccrualTime != 1_000+yearSeconds {
		t.Fatalf("accrual time not advanced: %d", reserve.LastAccrualTime)
	}
}

func TestAccrueAllRejectsClockSkew(t *testing.T) {
	engine, state := newTestEngine(t)
	reserve := state.market.Reserve(testAsset)
	reserve.TotalDeposits = big.NewInt(100)
	reserve.TotalBorrows = big.NewInt(50)
	reserve.LastAccrualTime = 5_000
	engine.SetTimestamp(4_000)

	j := newJournal(state)
	market, err := j.GetMarket()
	if err != nil {
		t.Fatalf("get market: %v", err)
	}
	if err := engine.accrueAll(j, market); !errors.Is(err, ErrClockSkew) {
		t.Fatalf("expected ErrClockSkew, got %v", err)
	}
}

func TestAccrueAllNoElapsedTimeIsNoop(t *testing.T) {
	engine, state := newTestEngine(t)
	reserve := state.market.Reserve(testAsset)
	reserve.TotalDeposits = big.NewInt(100)
	reserve.TotalBorrows = big.NewInt(50)

	j := newJournal(state)
	market, err := j.GetMarket()
	if err != nil {
		t.Fatalf("get market: %v", err)
	}
	if err := engine.accrueAll(j, market); err != nil {
		t.Fatalf("accrue: %v", err)
	}
	got := market.Reserve(testAsset)
	if got.BorrowIndex.Cmp(ray) != 0 || got.SupplyIndex.Cmp(ray) != 0 {
		t.Fatalf("indexes moved with no elapsed time")
	}
	if got.TotalBorrows.Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("totals moved with no elapsed time")
	}
}

func TestPositionsAccrueLazilyAgainstIndex(t *testing.T) {
	principal := big.NewInt(500)
	entry := new(big.Int).Set(ray)
	current := new(big.Int).Mul(ray, big.NewInt(3))
	current.Quo(current, big.NewInt(2))

	grown := valueAtIndex(principal, entry, current)
	if grown.Cmp(big.NewInt(750)) != 0 {
		t.Fatalf("unexpected grown principal: %s", grown)
	}
	// An index at or below the entry never shrinks the principal.
	same := valueAtIndex(principal, current, entry)
	if same.Cmp(principal) != 0 {
		t.Fatalf("principal shrank: %s", same)
	}
}
