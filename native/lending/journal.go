package lending

import (
	"sort"

	"yieldhub/core/types"
	"yieldhub/crypto"
)

// journal buffers every read and write performed by a single operation. Reads
// pull deep copies from the backing state; writes stay in the buffer until
// Commit, so an operation that fails part-way leaves the backing state
// untouched. Flash loan strategies run against the same buffer.
type journal struct {
	backing engineState

	market       *Market
	marketLoaded bool
	marketDirty  bool

	users     map[string]*UserAccount
	userDirty map[string]bool

	accounts     map[string]*types.Account
	accountAddrs map[string]crypto.Address
	accountDirty map[string]bool

	fees       *FeeAccrual
	feesLoaded bool
	feesDirty  bool

	events []*types.Event
}

func newJournal(backing engineState) *journal {
	return &journal{
		backing:      backing,
		users:        make(map[string]*UserAccount),
		userDirty:    make(map[string]bool),
		accounts:     make(map[string]*types.Account),
		accountAddrs: make(map[string]crypto.Address),
		accountDirty: make(map[string]bool),
	}
}

func addrKey(addr crypto.Address) string {
	return string(addr.Bytes())
}

func (j *journal) GetMarket() (*Market, error) {
	if j.marketLoaded {
		return j.market, nil
	}
	market, err := j.backing.GetMarket()
	if err != nil {
		return nil, err
	}
	j.market = market.Clone()
	j.marketLoaded = true
	return j.market, nil
}

func (j *journal) PutMarket(market *Market) error {
	j.market = market
	j.marketLoaded = true
	j.marketDirty = true
	return nil
}

func (j *journal) GetUserAccount(addr crypto.Address) (*UserAccount, error) {
	key := addrKey(addr)
	if user, ok := j.users[key]; ok {
		return user, nil
	}
	user, err := j.backing.GetUserAccount(addr)
	if err != nil {
		return nil, err
	}
	cloned := user.Clone()
	j.users[key] = cloned
	return cloned, nil
}

func (j *journal) PutUserAccount(user *UserAccount) error {
	if user == nil {
		return nil
	}
	key := addrKey(user.Address)
	j.users[key] = user
	j.userDirty[key] = true
	return nil
}

func (j *journal) GetAccount(addr crypto.Address) (*types.Account, error) {
	key := addrKey(addr)
	if acc, ok := j.accounts[key]; ok {
		return acc, nil
	}
	acc, err := j.backing.GetAccount(addr)
	if err != nil {
		return nil, err
	}
	cloned := acc.Clone()
	j.accounts[key] = cloned
	j.accountAddrs[key] = addr
	return cloned, nil
}

func (j *journal) PutAccount(addr crypto.Address, acc *types.Account) error {
	key := addrKey(addr)
	j.accounts[key] = acc
	j.accountAddrs[key] = addr
	j.accountDirty[key] = true
	return nil
}

func (j *journal) GetFeeAccrual() (*FeeAccrual, error) {
	if j.feesLoaded {
		return j.fees, nil
	}
	fees, err := j.backing.GetFeeAccrual()
	if err != nil {
		return nil, err
	}
	j.fees = fees.Clone()
	j.feesLoaded = true
	return j.fees, nil
}

func (j *journal) PutFeeAccrual(fees *FeeAccrual) error {
	j.fees = fees
	j.feesLoaded = true
	j.feesDirty = true
	return nil
}

func (j *journal) AppendEvent(evt *types.Event) {
	if evt == nil {
		return
	}
	j.events = append(j.events, evt)
}

// Commit flushes buffered writes to the backing state in a deterministic
// order: market, user accounts, ledger accounts, fees, events.
func (j *journal) Commit() error {
	if j.marketDirty {
		if err := j.backing.PutMarket(j.market); err != nil {
			return err
		}
	}
	for _, key := range sortedKeys(j.userDirty) {
		if err := j.backing.PutUserAccount(j.users[key]); err != nil {
			return err
		}
	}
	for _, key := range sortedKeys(j.accountDirty) {
		if err := j.backing.PutAccount(j.accountAddrs[key], j.accounts[key]); err != nil {
			return err
		}
	}
	if j.feesDirty {
		if err := j.backing.PutFeeAccrual(j.fees); err != nil {
			return err
		}
	}
	for _, evt := range j.events {
		j.backing.AppendEvent(evt)
	}
	return nil
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for key, dirty := range set {
		if dirty {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}
