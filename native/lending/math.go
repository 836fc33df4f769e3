package lending

import "math/big"

var (
	basisPoints = big.NewInt(10_000)
	ray         = mustBigInt("1000000000000000000000000000") // 1e27 precision
	halfRay     = new(big.Int).Rsh(ray, 1)
)

// yearSeconds is the accrual denominator for annualised rates.
const yearSeconds = 31_536_000

func mustBigInt(value string) *big.Int {
	v, ok := new(big.Int).SetString(value, 10)
	if !ok {
		panic("invalid big integer constant")
	}
	return v
}

func copyBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

func rayMul(a, b *big.Int) *big.Int {
	if a == nil || b == nil {
		return big.NewInt(0)
	}
	product := new(big.Int).Mul(a, b)
	product.Add(product, halfRay)
	product.Quo(product, ray)
	return product
}

func ratToRay(r *big.Rat) *big.Int {
	if r == nil {
		return new(big.Int).Set(ray)
	}
	scaled := new(big.Rat).Mul(r, new(big.Rat).SetInt(ray))
	num := scaled.Num()
	den := scaled.Denom()
	if den.Sign() == 0 {
		return new(big.Int).Set(ray)
	}
	result := new(big.Int).Quo(new(big.Int).Add(num, halfUp(den)), den)
	if result.Sign() == 0 {
		return new(big.Int).Set(ray)
	}
	return result
}

// rateFactor converts an annual rate into the compounding multiplier for a
// delta of elapsed seconds: 1 + rate * delta / yearSeconds, ray scaled.
func rateFactor(rate *big.Rat, delta uint64) *big.Int {
	if rate == nil || rate.Sign() == 0 || delta == 0 {
		return new(big.Int).Set(ray)
	}
	perSecond := new(big.Rat).Set(rate)
	perSecond.Quo(perSecond, new(big.Rat).SetUint64(yearSeconds))
	perSecond.Mul(perSecond, new(big.Rat).SetUint64(delta))
	factor := new(big.Rat).Add(big.NewRat(1, 1), perSecond)
	return ratToRay(factor)
}

// computeInterest returns the absolute interest accrued on the outstanding
// borrow total over delta seconds at the annual rate.
func computeInterest(totalBorrowed *big.Int, rate *big.Rat, delta uint64) *big.Int {
	if totalBorrowed == nil || totalBorrowed.Sign() == 0 || rate == nil || rate.Sign() == 0 || delta == 0 {
		return big.NewInt(0)
	}
	perSecond := new(big.Rat).Set(rate)
	perSecond.Quo(perSecond, new(big.Rat).SetUint64(yearSeconds))
	perSecond.Mul(perSecond, new(big.Rat).SetUint64(delta))
	interest := new(big.Rat).Mul(perSecond, new(big.Rat).SetInt(totalBorrowed))
	if interest.Sign() <= 0 {
		return big.NewInt(0)
	}
	num := interest.Num()
	den := interest.Denom()
	if den.Sign() == 0 {
		return big.NewInt(0)
	}
	return new(big.Int).Quo(new(big.Int).Add(num, halfUp(den)), den)
}

// valueAtIndex grows a principal recorded at entryIndex to the current index.
func valueAtIndex(principal, entryIndex, currentIndex *big.Int) *big.Int {
	if principal == nil || principal.Sign() == 0 {
		return big.NewInt(0)
	}
	if entryIndex == nil || entryIndex.Sign() == 0 || currentIndex == nil || currentIndex.Sign() == 0 {
		return new(big.Int).Set(principal)
	}
	if currentIndex.Cmp(entryIndex) <= 0 {
		return new(big.Int).Set(principal)
	}
	grown := new(big.Int).Mul(principal, currentIndex)
	grown.Add(grown, halfUp(entryIndex))
	grown.Quo(grown, entryIndex)
	return grown
}

// bpsShare returns amount * bps / 10000, floored at zero.
func bpsShare(amount *big.Int, bps uint64) *big.Int {
	if amount == nil || amount.Sign() <= 0 || bps == 0 {
		return big.NewInt(0)
	}
	share := new(big.Int).Mul(amount, new(big.Int).SetUint64(bps))
	share.Quo(share, basisPoints)
	if share.Sign() < 0 {
		return big.NewInt(0)
	}
	return share
}

// halfUp returns floor(x/2), the bias added before dividing by x to round
// half away from zero. Flooring keeps exact quotients exact.
func halfUp(x *big.Int) *big.Int {
	if x == nil {
		return big.NewInt(0)
	}
	if x.Sign() <= 0 {
		return big.NewInt(0)
	}
	return new(big.Int).Rsh(x, 1)
}

func minBigInt(a, b *big.Int) *big.Int {
	if a == nil {
		return copyBigInt(b)
	}
	if b == nil {
		return copyBigInt(a)
	}
	if a.Cmp(b) <= 0 {
		return new(big.Int).Set(a)
	}
	return new(big.Int).Set(b)
}
