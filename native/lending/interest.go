package lending

import "math/big"

// The interest model is a pure function of its inputs so the same code can
// drive live accrual and act as an oracle in tests.

// Utilization computes U = totalBorrowed / totalDeposited. When no liquidity
// exists the utilisation is defined as zero.
func (m InterestModel) Utilization(totalBorrowed, totalDeposited *big.Int) *big.Rat {
	if totalBorrowed == nil || totalBorrowed.Sign() == 0 {
		return new(big.Rat)
	}
	if totalDeposited == nil || totalDeposited.Sign() == 0 {
		return new(big.Rat)
	}
	return new(big.Rat).SetFrac(totalBorrowed, totalDeposited)
}

// BorrowRate derives the annual borrow rate for the given utilisation:
// base + min(u, kink)*multiplier + max(u-kink, 0)*jumpMultiplier, with the
// basis point parameters scaled down to a plain annual fraction.
func (m InterestModel) BorrowRate(utilization *big.Rat) *big.Rat {
	rate := bpsToRat(m.BaseRateBps)
	if utilization == nil || utilization.Sign() <= 0 {
		return rate
	}
	kink := bpsToRat(m.KinkBps)
	primary := new(big.Rat).Set(utilization)
	if kink.Sign() > 0 && primary.Cmp(kink) > 0 {
		primary.Set(kink)
	}
	rate.Add(rate, new(big.Rat).Mul(primary, bpsToRat(m.MultiplierBps)))

	excess := new(big.Rat).Sub(utilization, kink)
	if excess.Sign() > 0 {
		rate.Add(rate, new(big.Rat).Mul(excess, bpsToRat(m.JumpMultiplierBps)))
	}
	return rate
}

// DepositRate derives the annual deposit rate: borrowRate * utilisation *
// (1 - reserveFactor). The reserve factor share is routed to protocol fees
// during accrual instead of compounding into the supply index.
func (m InterestModel) DepositRate(utilization *big.Rat, reserveFactorBps uint64) *big.Rat {
	if utilization == nil || utilization.Sign() <= 0 {
		return new(big.Rat)
	}
	borrowRate := m.BorrowRate(utilization)
	if borrowRate.Sign() == 0 {
		return new(big.Rat)
	}
	if reserveFactorBps > 10_000 {
		reserveFactorBps = 10_000
	}
	oneMinusReserve := new(big.Rat).Sub(big.NewRat(1, 1), bpsToRat(reserveFactorBps))
	rate := new(big.Rat).Mul(borrowRate, utilization)
	rate.Mul(rate, oneMinusReserve)
	return rate
}

func bpsToRat(bps uint64) *big.Rat {
	return new(big.Rat).SetFrac(new(big.Int).SetUint64(bps), big.NewInt(10_000))
}

// DefaultInterestModel mirrors the launch configuration: 5% base rate, 20%
// multiplier, 50% jump multiplier and an 80% utilisation kink.
var DefaultInterestModel = InterestModel{
	BaseRateBps:       500,
	MultiplierBps:     2000,
	JumpMultiplierBps: 5000,
	KinkBps:           8000,
}
