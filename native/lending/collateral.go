package lending

import "math/big"

// Collateral valuation runs on synced positions only: callers must bring the
// user's principals up to the current reserve indexes first so no check ever
// sees a stale snapshot. Collateral is valued at face amount; a price oracle
// would plug in here.

// borrowValue sums the user's outstanding borrows across reserves.
func borrowValue(user *UserAccount) *big.Int {
	total := big.NewInt(0)
	if user == nil {
		return total
	}
	for _, asset := range user.BorrowAssets() {
		pos := user.Borrows[asset]
		if pos != nil && pos.Principal != nil && pos.Principal.Sign() > 0 {
			total.Add(total, pos.Principal)
		}
	}
	return total
}

// collateralLimit sums each deposit weighted by its reserve's LTV. Borrows
// and withdrawals are permitted only while borrowValue stays within this
// limit.
func collateralLimit(user *UserAccount, market *Market) *big.Int {
	return weightedDeposits(user, market, func(r *Reserve) uint64 { return r.Params.LTVBps })
}

// liquidationCapacity sums each deposit weighted by its reserve's
// liquidation threshold. The health factor compares this capacity against
// the outstanding borrow value.
func liquidationCapacity(user *UserAccount, market *Market) *big.Int {
	return weightedDeposits(user, market, func(r *Reserve) uint64 { return r.Params.LiquidationThresholdBps })
}

func weightedDeposits(user *UserAccount, market *Market, weight func(*Reserve) uint64) *big.Int {
	total := big.NewInt(0)
	if user == nil || market == nil {
		return total
	}
	for _, asset := range user.DepositAssets() {
		pos := user.Deposits[asset]
		if pos == nil || pos.Principal == nil || pos.Principal.Sign() <= 0 {
			continue
		}
		reserve := market.Reserve(asset)
		if reserve == nil {
			continue
		}
		total.Add(total, bpsShare(pos.Principal, weight(reserve)))
	}
	return total
}

// withinBorrowLimit reports whether the user's borrows fit under the LTV
// bound of their collateral.
func withinBorrowLimit(user *UserAccount, market *Market) bool {
	debt := borrowValue(user)
	if debt.Sign() == 0 {
		return true
	}
	return debt.Cmp(collateralLimit(user, market)) <= 0
}

// positionHealthy reports whether the health factor is at least one. A user
// with no debt is always healthy.
func positionHealthy(user *UserAccount, market *Market) bool {
	debt := borrowValue(user)
	if debt.Sign() == 0 {
		return true
	}
	return liquidationCapacity(user, market).Cmp(debt) >= 0
}
