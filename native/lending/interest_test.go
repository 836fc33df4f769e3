package lending

import (
	"math/big"
	"testing"
)

func TestUtilizationZeroWhenEmpty(t *testing.T) {
	model := DefaultInterestModel
	u := model.Utilization(big.NewInt(0), big.NewInt(0))
	if u.Sign() != 0 {
		t.Fatalf("expected zero utilization, got %s", u)
	}
	u = model.Utilization(big.NewInt(50), big.NewInt(200))
	if u.Cmp(big.NewRat(1, 4)) != 0 {
		t.Fatalf("expected 0.25 utilization, got %s", u)
	}
}

func TestBorrowRateKinkedCurve(t *testing.T) {
	model := DefaultInterestModel

	// Below the kink only the primary multiplier applies:
	// 5% + 0.5*20% = 15%.
	rate := model.BorrowRate(big.NewRat(1, 2))
	if rate.Cmp(big.NewRat(15, 100)) != 0 {
		t.Fatalf("unexpected rate below kink: %s", rate)
	}

	// At the kink: 5% + 0.8*20% = 21%.
	rate = model.BorrowRate(big.NewRat(4, 5))
	if rate.Cmp(big.NewRat(21, 100)) != 0 {
		t.Fatalf("unexpected rate at kink: %s", rate)
	}

	// Beyond the kink the jump multiplier covers the excess:
	// 5% + 0.8*20% + 0.2*50% = 31%.
	rate = model.BorrowRate(big.NewRat(1, 1))
	if rate.Cmp(big.NewRat(31, 100)) != 0 {
		t.Fatalf("unexpected rate beyond kink: %s", rate)
	}
}

func TestDepositRateAppliesReserveFactor(t *testing.T) {
	model := DefaultInterestModel
	u := big.NewRat(1, 2)
	borrow := model.BorrowRate(u)

	// deposit = borrow * u * (1 - 10%).
	expected := new(big.Rat).Mul(borrow, u)
	expected.Mul(expected, big.NewRat(9, 10))
	got := model.DepositRate(u, 1_000)
	if got.Cmp(expected) != 0 {
		t.Fatalf("unexpected deposit rate: got %s want %s", got, expected)
	}
}

func TestRatesDeterministic(t *testing.T) {
	model := DefaultInterestModel
	u := big.NewRat(3, 7)
	first := model.BorrowRate(u)
	second := model.BorrowRate(u)
	if first.Cmp(second) != 0 {
		t.Fatalf("borrow rate not deterministic")
	}
}
