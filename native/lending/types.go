package lending

import (
	"math/big"
	"sort"

	"yieldhub/crypto"
)

// InterestModel holds the kinked rate curve parameters, all expressed in
// basis points. The kink marks the utilisation where the jump multiplier
// takes over from the primary multiplier.
type InterestModel struct {
	BaseRateBps       uint64
	MultiplierBps     uint64
	JumpMultiplierBps uint64
	KinkBps           uint64
}

// RiskParameters groups the per-reserve safety limits, all in basis points.
// A reserve is only valid when 0 < LTV < LiquidationThreshold < 10000.
type RiskParameters struct {
	LTVBps                  uint64
	LiquidationThresholdBps uint64
	LiquidationPenaltyBps   uint64
}

// Validate checks the basis point ordering required of every reserve.
func (p RiskParameters) Validate() error {
	if p.LTVBps == 0 || p.LTVBps >= p.LiquidationThresholdBps {
		return ErrInvalidParameter
	}
	if p.LiquidationThresholdBps >= 10_000 {
		return ErrInvalidParameter
	}
	if p.LiquidationPenaltyBps >= 10_000 {
		return ErrInvalidParameter
	}
	return nil
}

// Reserve is a single-asset pool inside the market. Totals are denominated in
// the asset's base units; indexes are ray-scaled cumulative multipliers that
// start at 1.0 and never decrease.
type Reserve struct {
	Asset           string
	Params          RiskParameters
	TotalDeposits   *big.Int
	TotalBorrows    *big.Int
	SupplyIndex     *big.Int
	BorrowIndex     *big.Int
	LastAccrualTime uint64
}

// Clone returns a deep copy of the reserve.
func (r *Reserve) Clone() *Reserve {
	if r == nil {
		return nil
	}
	clone := &Reserve{
		Asset:           r.Asset,
		Params:          r.Params,
		LastAccrualTime: r.LastAccrualTime,
	}
	clone.TotalDeposits = copyBigInt(r.TotalDeposits)
	clone.TotalBorrows = copyBigInt(r.TotalBorrows)
	clone.SupplyIndex = copyBigInt(r.SupplyIndex)
	clone.BorrowIndex = copyBigInt(r.BorrowIndex)
	return clone
}

// AvailableLiquidity returns the deposits not currently lent out.
func (r *Reserve) AvailableLiquidity() *big.Int {
	if r == nil || r.TotalDeposits == nil || r.TotalBorrows == nil {
		return big.NewInt(0)
	}
	liquidity := new(big.Int).Sub(r.TotalDeposits, r.TotalBorrows)
	if liquidity.Sign() < 0 {
		return big.NewInt(0)
	}
	return liquidity
}

// Market captures the global accounting state for the lending protocol. The
// aggregate totals always equal the sum of the corresponding reserve totals.
type Market struct {
	Authority        crypto.Address
	PermanentAccount crypto.Address
	Model            InterestModel
	ReserveFactorBps uint64
	TotalDeposits    *big.Int
	TotalBorrows     *big.Int
	Reserves         map[string]*Reserve
	MaxUsers         uint64
	CurrentUsers     uint64
}

// Reserve returns the reserve registered for the asset, nil when absent.
func (m *Market) Reserve(asset string) *Reserve {
	if m == nil || m.Reserves == nil {
		return nil
	}
	return m.Reserves[asset]
}

// ReserveAssets lists registered reserve symbols in sorted order so iteration
// stays deterministic across runs.
func (m *Market) ReserveAssets() []string {
	if m == nil || m.Reserves == nil {
		return nil
	}
	assets := make([]string, 0, len(m.Reserves))
	for asset := range m.Reserves {
		assets = append(assets, asset)
	}
	sort.Strings(assets)
	return assets
}

// Clone returns a deep copy of the market including its reserves.
func (m *Market) Clone() *Market {
	if m == nil {
		return nil
	}
	clone := &Market{
		Authority:        m.Authority,
		PermanentAccount: m.PermanentAccount,
		Model:            m.Model,
		ReserveFactorBps: m.ReserveFactorBps,
		MaxUsers:         m.MaxUsers,
		CurrentUsers:     m.CurrentUsers,
	}
	clone.TotalDeposits = copyBigInt(m.TotalDeposits)
	clone.TotalBorrows = copyBigInt(m.TotalBorrows)
	if m.Reserves != nil {
		clone.Reserves = make(map[string]*Reserve, len(m.Reserves))
		for asset, reserve := range m.Reserves {
			clone.Reserves[asset] = reserve.Clone()
		}
	}
	return clone
}

// Position records a single deposit or borrow against one reserve. Principal
// is the face amount at the index recorded when the position was last synced;
// the live value is principal * currentIndex / Index.
type Position struct {
	Principal *big.Int
	Index     *big.Int
}

// Clone returns a deep copy of the position.
func (p *Position) Clone() *Position {
	if p == nil {
		return nil
	}
	return &Position{
		Principal: copyBigInt(p.Principal),
		Index:     copyBigInt(p.Index),
	}
}

// UserAccount maintains the lending positions for an individual participant.
// Deposits and borrows hold at most one entry per reserve.
type UserAccount struct {
	Address  crypto.Address
	Deposits map[string]*Position
	Borrows  map[string]*Position
}

// DepositAssets lists assets with deposit positions in sorted order.
func (u *UserAccount) DepositAssets() []string {
	return sortedAssets(u.Deposits)
}

// BorrowAssets lists assets with borrow positions in sorted order.
func (u *UserAccount) BorrowAssets() []string {
	return sortedAssets(u.Borrows)
}

func sortedAssets(positions map[string]*Position) []string {
	if len(positions) == 0 {
		return nil
	}
	assets := make([]string, 0, len(positions))
	for asset := range positions {
		assets = append(assets, asset)
	}
	sort.Strings(assets)
	return assets
}

// Clone returns a deep copy of the user account.
func (u *UserAccount) Clone() *UserAccount {
	if u == nil {
		return nil
	}
	clone := &UserAccount{Address: u.Address}
	if u.Deposits != nil {
		clone.Deposits = make(map[string]*Position, len(u.Deposits))
		for asset, pos := range u.Deposits {
			clone.Deposits[asset] = pos.Clone()
		}
	}
	if u.Borrows != nil {
		clone.Borrows = make(map[string]*Position, len(u.Borrows))
		for asset, pos := range u.Borrows {
			clone.Borrows[asset] = pos.Clone()
		}
	}
	return clone
}

// FeeAccrual captures the protocol fee totals routed from borrow interest,
// keyed by reserve asset.
type FeeAccrual struct {
	ProtocolFees map[string]*big.Int
}

// Fees returns the accrued protocol fees for the asset, zero when absent.
func (f *FeeAccrual) Fees(asset string) *big.Int {
	if f == nil || f.ProtocolFees == nil {
		return big.NewInt(0)
	}
	if amount, ok := f.ProtocolFees[asset]; ok && amount != nil {
		return amount
	}
	return big.NewInt(0)
}

// AddFees accumulates protocol fees for the asset.
func (f *FeeAccrual) AddFees(asset string, amount *big.Int) {
	if f == nil || amount == nil || amount.Sign() <= 0 {
		return
	}
	if f.ProtocolFees == nil {
		f.ProtocolFees = make(map[string]*big.Int)
	}
	f.ProtocolFees[asset] = new(big.Int).Add(f.Fees(asset), amount)
}

// Clone returns a deep copy of the fee accrual structure.
func (f *FeeAccrual) Clone() *FeeAccrual {
	if f == nil {
		return nil
	}
	clone := &FeeAccrual{}
	if f.ProtocolFees != nil {
		clone.ProtocolFees = make(map[string]*big.Int, len(f.ProtocolFees))
		for asset, amount := range f.ProtocolFees {
			clone.ProtocolFees[asset] = copyBigInt(amount)
		}
	}
	return clone
}
