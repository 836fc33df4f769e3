package storage

import (
	"fmt"
	"math/big"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/rlp"

	"yieldhub/core/types"
	"yieldhub/crypto"
	"yieldhub/native/lending"
	"yieldhub/native/staking"
)

// Key prefixes for persisted records.
var (
	keyMarket     = []byte("lending/market")
	keyFees       = []byte("lending/fees")
	prefixUser    = "lending/user/"
	prefixLedger  = "ledger/"
	prefixStake   = "staking/"
	maxEventsKept = 4_096
)

// StateStore persists markets, user positions, staking records and ledger
// accounts as RLP records over a Database. It satisfies the state interface
// of both the lending and the staking engine. RLP has no map encoding, so
// per-asset maps are flattened to sorted (asset, amount) pairs.
type StateStore struct {
	db Database

	mu     sync.Mutex
	events []*types.Event
}

func NewStateStore(db Database) *StateStore {
	return &StateStore{db: db}
}

type balancePair struct {
	Asset  string
	Amount *big.Int
}

type accountRecord struct {
	Nonce    uint64
	Balances []balancePair
}

type positionEntry struct {
	Asset     string
	Principal *big.Int
	Index     *big.Int
}

type reserveRecord struct {
	Asset                   string
	LTVBps                  uint64
	LiquidationThresholdBps uint64
	LiquidationPenaltyBps   uint64
	TotalDeposits           *big.Int
	TotalBorrows            *big.Int
	SupplyIndex             *big.Int
	BorrowIndex             *big.Int
	LastAccrualTime         uint64
}

type marketRecord struct {
	Authority         []byte
	PermanentAccount  []byte
	BaseRateBps       uint64
	MultiplierBps     uint64
	JumpMultiplierBps uint64
	KinkBps           uint64
	ReserveFactorBps  uint64
	TotalDeposits     *big.Int
	TotalBorrows      *big.Int
	Reserves          []reserveRecord
	MaxUsers          uint64
	CurrentUsers      uint64
}

type userAccountRecord struct {
	Address  []byte
	Deposits []positionEntry
	Borrows  []positionEntry
}

type feeRecord struct {
	Fees []balancePair
}

type preferencesRecord struct {
	Mode                uint8
	ReinvestmentPercent uint64
	Strategy            uint8
	Frequency           uint8
	BatchSize           uint64
	BatchFrequency      uint8
	PayoutThreshold     *big.Int
	AutoCompound        bool
}

type stakeRecord struct {
	Address              []byte
	StakeAmount          *big.Int
	StakeStartTime       uint64
	LockDurationDays     uint64
	IntendedEndTime      uint64
	Tier                 uint8
	AccumulatedRewards   *big.Int
	TotalRewardsReceived *big.Int
	LastPayoutTime       uint64
	LastBatchTime        uint64
	PendingBatchCount    uint64
	InteractionCount     uint64
	Preferences          preferencesRecord
	DerivativeAmount     *big.Int
	LeverageHandle       string
}

func (s *StateStore) read(key []byte, out interface{}) (bool, error) {
	ok, err := s.db.Has(key)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	raw, err := s.db.Get(key)
	if err != nil {
		return false, err
	}
	if err := rlp.DecodeBytes(raw, out); err != nil {
		return false, fmt.Errorf("storage: decode %q: %w", key, err)
	}
	return true, nil
}

func (s *StateStore) write(key []byte, in interface{}) error {
	raw, err := rlp.EncodeToBytes(in)
	if err != nil {
		return fmt.Errorf("storage: encode %q: %w", key, err)
	}
	return s.db.Put(key, raw)
}

func nonNil(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return v
}

// --- lending state ---

func (s *StateStore) GetMarket() (*lending.Market, error) {
	var rec marketRecord
	ok, err := s.read(keyMarket, &rec)
	if err != nil || !ok {
		return nil, err
	}
	market := &lending.Market{
		Authority:        crypto.NewAddress(crypto.HubPrefix, rec.Authority),
		PermanentAccount: crypto.NewAddress(crypto.HubPrefix, rec.PermanentAccount),
		Model: lending.InterestModel{
			BaseRateBps:       rec.BaseRateBps,
			MultiplierBps:     rec.MultiplierBps,
			JumpMultiplierBps: rec.JumpMultiplierBps,
			KinkBps:           rec.KinkBps,
		},
		ReserveFactorBps: rec.ReserveFactorBps,
		TotalDeposits:    rec.TotalDeposits,
		TotalBorrows:     rec.TotalBorrows,
		Reserves:         make(map[string]*lending.Reserve, len(rec.Reserves)),
		MaxUsers:         rec.MaxUsers,
		CurrentUsers:     rec.CurrentUsers,
	}
	for _, r := range rec.Reserves {
		market.Reserves[r.Asset] = &lending.Reserve{
			Asset: r.Asset,
			Params: lending.RiskParameters{
				LTVBps:                  r.LTVBps,
				LiquidationThresholdBps: r.LiquidationThresholdBps,
				LiquidationPenaltyBps:   r.LiquidationPenaltyBps,
			},
			TotalDeposits:   r.TotalDeposits,
			TotalBorrows:    r.TotalBorrows,
			SupplyIndex:     r.SupplyIndex,
			BorrowIndex:     r.BorrowIndex,
			LastAccrualTime: r.LastAccrualTime,
		}
	}
	return market, nil
}

func (s *StateStore) PutMarket(market *lending.Market) error {
	if market == nil {
		return fmt.Errorf("storage: nil market")
	}
	rec := marketRecord{
		Authority:         market.Authority.Bytes(),
		PermanentAccount:  market.PermanentAccount.Bytes(),
		BaseRateBps:       market.Model.BaseRateBps,
		MultiplierBps:     market.Model.MultiplierBps,
		JumpMultiplierBps: market.Model.JumpMultiplierBps,
		KinkBps:           market.Model.KinkBps,
		ReserveFactorBps:  market.ReserveFactorBps,
		TotalDeposits:     nonNil(market.TotalDeposits),
		TotalBorrows:      nonNil(market.TotalBorrows),
		MaxUsers:          market.MaxUsers,
		CurrentUsers:      market.CurrentUsers,
	}
	for _, asset := range market.ReserveAssets() {
		r := market.Reserves[asset]
		rec.Reserves = append(rec.Reserves, reserveRecord{
			Asset:                   r.Asset,
			LTVBps:                  r.Params.LTVBps,
			LiquidationThresholdBps: r.Params.LiquidationThresholdBps,
			LiquidationPenaltyBps:   r.Params.LiquidationPenaltyBps,
			TotalDeposits:           nonNil(r.TotalDeposits),
			TotalBorrows:            nonNil(r.TotalBorrows),
			SupplyIndex:             nonNil(r.SupplyIndex),
			BorrowIndex:             nonNil(r.BorrowIndex),
			LastAccrualTime:         r.LastAccrualTime,
		})
	}
	return s.write(keyMarket, &rec)
}

func userKey(addr crypto.Address) []byte {
	return append([]byte(prefixUser), addr.Bytes()...)
}

func (s *StateStore) GetUserAccount(addr crypto.Address) (*lending.UserAccount, error) {
	var rec userAccountRecord
	ok, err := s.read(userKey(addr), &rec)
	if err != nil || !ok {
		return nil, err
	}
	user := &lending.UserAccount{
		Address:  crypto.NewAddress(crypto.HubPrefix, rec.Address),
		Deposits: make(map[string]*lending.Position, len(rec.Deposits)),
		Borrows:  make(map[string]*lending.Position, len(rec.Borrows)),
	}
	for _, p := range rec.Deposits {
		user.Deposits[p.Asset] = &lending.Position{Principal: p.Principal, Index: p.Index}
	}
	for _, p := range rec.Borrows {
		user.Borrows[p.Asset] = &lending.Position{Principal: p.Principal, Index: p.Index}
	}
	return user, nil
}

func (s *StateStore) PutUserAccount(user *lending.UserAccount) error {
	if user == nil {
		return fmt.Errorf("storage: nil user account")
	}
	rec := userAccountRecord{Address: user.Address.Bytes()}
	for _, asset := range user.DepositAssets() {
		pos := user.Deposits[asset]
		rec.Deposits = append(rec.Deposits, positionEntry{Asset: asset, Principal: nonNil(pos.Principal), Index: nonNil(pos.Index)})
	}
	for _, asset := range user.BorrowAssets() {
		pos := user.Borrows[asset]
		rec.Borrows = append(rec.Borrows, positionEntry{Asset: asset, Principal: nonNil(pos.Principal), Index: nonNil(pos.Index)})
	}
	return s.write(userKey(user.Address), &rec)
}

func ledgerKey(addr crypto.Address) []byte {
	return append([]byte(prefixLedger), addr.Bytes()...)
}

func (s *StateStore) GetAccount(addr crypto.Address) (*types.Account, error) {
	var rec accountRecord
	ok, err := s.read(ledgerKey(addr), &rec)
	if err != nil || !ok {
		return nil, err
	}
	account := types.NewAccount()
	account.Nonce = rec.Nonce
	for _, pair := range rec.Balances {
		account.SetBalance(pair.Asset, pair.Amount)
	}
	return account, nil
}

func (s *StateStore) PutAccount(addr crypto.Address, account *types.Account) error {
	if account == nil {
		return fmt.Errorf("storage: nil account")
	}
	rec := accountRecord{Nonce: account.Nonce}
	for _, asset := range account.Assets() {
		rec.Balances = append(rec.Balances, balancePair{Asset: asset, Amount: account.Balance(asset)})
	}
	return s.write(ledgerKey(addr), &rec)
}

func (s *StateStore) GetFeeAccrual() (*lending.FeeAccrual, error) {
	var rec feeRecord
	ok, err := s.read(keyFees, &rec)
	if err != nil || !ok {
		return nil, err
	}
	fees := &lending.FeeAccrual{}
	for _, pair := range rec.Fees {
		fees.AddFees(pair.Asset, pair.Amount)
	}
	return fees, nil
}

func (s *StateStore) PutFeeAccrual(fees *lending.FeeAccrual) error {
	if fees == nil {
		return fmt.Errorf("storage: nil fee accrual")
	}
	rec := feeRecord{}
	for _, asset := range sortedFeeAssets(fees) {
		rec.Fees = append(rec.Fees, balancePair{Asset: asset, Amount: fees.Fees(asset)})
	}
	return s.write(keyFees, &rec)
}

// --- staking state ---

func stakeKey(addr crypto.Address) []byte {
	return append([]byte(prefixStake), addr.Bytes()...)
}

func (s *StateStore) GetStakeAccount(addr crypto.Address) (*staking.StakeAccount, error) {
	var rec stakeRecord
	ok, err := s.read(stakeKey(addr), &rec)
	if err != nil || !ok {
		return nil, err
	}
	return &staking.StakeAccount{
		Address:              crypto.NewAddress(crypto.HubPrefix, rec.Address),
		StakeAmount:          rec.StakeAmount,
		StakeStartTime:       rec.StakeStartTime,
		LockDurationDays:     rec.LockDurationDays,
		IntendedEndTime:      rec.IntendedEndTime,
		Tier:                 staking.Tier(rec.Tier),
		AccumulatedRewards:   rec.AccumulatedRewards,
		TotalRewardsReceived: rec.TotalRewardsReceived,
		LastPayoutTime:       rec.LastPayoutTime,
		LastBatchTime:        rec.LastBatchTime,
		PendingBatchCount:    rec.PendingBatchCount,
		InteractionCount:     rec.InteractionCount,
		Preferences: staking.RewardPreferences{
			Mode:                staking.RewardMode(rec.Preferences.Mode),
			ReinvestmentPercent: rec.Preferences.ReinvestmentPercent,
			Strategy:            staking.CompoundStrategy(rec.Preferences.Strategy),
			Frequency:           staking.RecurringFrequency(rec.Preferences.Frequency),
			BatchSize:           rec.Preferences.BatchSize,
			BatchFrequency:      staking.BatchFrequency(rec.Preferences.BatchFrequency),
			PayoutThreshold:     rec.Preferences.PayoutThreshold,
			AutoCompound:        rec.Preferences.AutoCompound,
		},
		DerivativeAmount: rec.DerivativeAmount,
		LeverageHandle:   rec.LeverageHandle,
	}, nil
}

func (s *StateStore) PutStakeAccount(account *staking.StakeAccount) error {
	if account == nil {
		return fmt.Errorf("storage: nil stake account")
	}
	rec := stakeRecord{
		Address:              account.Address.Bytes(),
		StakeAmount:          nonNil(account.StakeAmount),
		StakeStartTime:       account.StakeStartTime,
		LockDurationDays:     account.LockDurationDays,
		IntendedEndTime:      account.IntendedEndTime,
		Tier:                 uint8(account.Tier),
		AccumulatedRewards:   nonNil(account.AccumulatedRewards),
		TotalRewardsReceived: nonNil(account.TotalRewardsReceived),
		LastPayoutTime:       account.LastPayoutTime,
		LastBatchTime:        account.LastBatchTime,
		PendingBatchCount:    account.PendingBatchCount,
		InteractionCount:     account.InteractionCount,
		Preferences: preferencesRecord{
			Mode:                uint8(account.Preferences.Mode),
			ReinvestmentPercent: account.Preferences.ReinvestmentPercent,
			Strategy:            uint8(account.Preferences.Strategy),
			Frequency:           uint8(account.Preferences.Frequency),
			BatchSize:           account.Preferences.BatchSize,
			BatchFrequency:      uint8(account.Preferences.BatchFrequency),
			PayoutThreshold:     nonNil(account.Preferences.PayoutThreshold),
			AutoCompound:        account.Preferences.AutoCompound,
		},
		DerivativeAmount: nonNil(account.DerivativeAmount),
		LeverageHandle:   account.LeverageHandle,
	}
	return s.write(stakeKey(account.Address), &rec)
}

// --- events ---

// AppendEvent records an emitted event in the in-memory ring. The log is a
// read-side convenience for the gateway, not durable state.
func (s *StateStore) AppendEvent(evt *types.Event) {
	if evt == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, evt)
	if len(s.events) > maxEventsKept {
		s.events = s.events[len(s.events)-maxEventsKept:]
	}
}

// Events returns a copy of the buffered event log, newest last.
func (s *StateStore) Events() []*types.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*types.Event, len(s.events))
	copy(out, s.events)
	return out
}

func sortedFeeAssets(fees *lending.FeeAccrual) []string {
	if fees == nil || len(fees.ProtocolFees) == 0 {
		return nil
	}
	assets := make([]string, 0, len(fees.ProtocolFees))
	for asset := range fees.ProtocolFees {
		assets = append(assets, asset)
	}
	sort.Strings(assets)
	return assets
}
