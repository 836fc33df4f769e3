package types

import (
	"math/big"
	"sort"
)

// Account is a ledger entry holding per-asset balances. Assets are identified
// by their reserve symbol; balances are denominated in base units.
type Account struct {
	Nonce    uint64              `json:"nonce"`
	Balances map[string]*big.Int `json:"balances"`
}

// NewAccount returns an account with an initialised balance map.
func NewAccount() *Account {
	return &Account{Balances: make(map[string]*big.Int)}
}

// Balance returns the balance recorded for the asset, zero when absent. The
// returned value is the live entry; callers mutate it through SetBalance.
func (a *Account) Balance(asset string) *big.Int {
	if a == nil || a.Balances == nil {
		return big.NewInt(0)
	}
	if bal, ok := a.Balances[asset]; ok && bal != nil {
		return bal
	}
	return big.NewInt(0)
}

// SetBalance records the balance for the asset, initialising the map if needed.
func (a *Account) SetBalance(asset string, amount *big.Int) {
	if a == nil {
		return
	}
	if a.Balances == nil {
		a.Balances = make(map[string]*big.Int)
	}
	if amount == nil {
		amount = big.NewInt(0)
	}
	a.Balances[asset] = amount
}

// Assets lists the asset symbols with recorded balances in sorted order so
// iteration stays deterministic.
func (a *Account) Assets() []string {
	if a == nil || a.Balances == nil {
		return nil
	}
	assets := make([]string, 0, len(a.Balances))
	for asset := range a.Balances {
		assets = append(assets, asset)
	}
	sort.Strings(assets)
	return assets
}

// Clone returns a deep copy of the account.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	clone := &Account{Nonce: a.Nonce, Balances: make(map[string]*big.Int, len(a.Balances))}
	for asset, bal := range a.Balances {
		if bal != nil {
			clone.Balances[asset] = new(big.Int).Set(bal)
		}
	}
	return clone
}
