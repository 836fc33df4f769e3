package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"yieldhub/core/types"
	"yieldhub/crypto"
	"yieldhub/gateway/middleware"
	"yieldhub/native/lending"
	"yieldhub/native/staking"
	"yieldhub/storage"
)

const testAsset = "USD"

func testAddress(t *testing.T, suffix byte) crypto.Address {
	t.Helper()
	raw := make([]byte, 20)
	raw[19] = suffix
	return crypto.NewAddress(crypto.HubPrefix, raw)
}

type testHarness struct {
	handler   http.Handler
	store     *storage.StateStore
	authority crypto.Address
	vault     crypto.Address
}

func newTestHarness(t *testing.T, cfg *Config) *testHarness {
	t.Helper()
	store := storage.NewStateStore(storage.NewMemDB())
	vault := testAddress(t, 0xfe)
	authority := testAddress(t, 0x01)
	permanent := testAddress(t, 0x02)

	clock := func() time.Time { return time.Unix(1_700_000_000, 0) }

	lend := lending.NewEngine(vault)
	lend.SetState(store)
	lend.SetTimestamp(uint64(clock().Unix()))
	_, err := lend.InitMarket(authority, permanent, lending.DefaultInterestModel, 1_000, 0)
	require.NoError(t, err)
	require.NoError(t, lend.AddReserve(authority, testAsset, lending.RiskParameters{
		LTVBps:                  7_500,
		LiquidationThresholdBps: 8_000,
		LiquidationPenaltyBps:   500,
	}))

	stake := staking.NewEngine(vault, permanent, testAsset)
	stake.SetState(store)
	stake.SetTimestamp(uint64(clock().Unix()))

	full := Config{
		Lending: lend,
		Staking: stake,
		Store:   store,
		Now:     clock,
	}
	if cfg != nil {
		full.Authenticator = cfg.Authenticator
		full.RateLimiter = cfg.RateLimiter
		full.Observability = cfg.Observability
	}
	handler, err := New(full)
	require.NoError(t, err)
	return &testHarness{handler: handler, store: store, authority: authority, vault: vault}
}

func (h *testHarness) fund(t *testing.T, addr crypto.Address, amount int64) {
	t.Helper()
	account, err := h.store.GetAccount(addr)
	require.NoError(t, err)
	if account == nil {
		account = types.NewAccount()
	}
	account.SetBalance(testAsset, big.NewInt(amount))
	require.NoError(t, h.store.PutAccount(addr, account))
}

func (h *testHarness) post(t *testing.T, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func (h *testHarness) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
}

func TestSupplyAndMarketView(t *testing.T) {
	h := newTestHarness(t, nil)
	depositor := testAddress(t, 0x10)
	h.fund(t, depositor, 1_000)

	rec := h.post(t, "/v1/lending/supply", lendingOpRequest{
		Address: depositor.String(),
		Asset:   testAsset,
		Amount:  "400",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = h.get(t, "/v1/lending/market")
	require.Equal(t, http.StatusOK, rec.Code)
	var market marketView
	decodeBody(t, rec, &market)
	require.Equal(t, "400", market.TotalDeposits)
	require.Len(t, market.Reserves, 1)
	require.Equal(t, testAsset, market.Reserves[0].Asset)
	require.Equal(t, "400", market.Reserves[0].TotalDeposits)

	rec = h.get(t, "/v1/lending/positions/"+depositor.String())
	require.Equal(t, http.StatusOK, rec.Code)
	var positions positionsView
	decodeBody(t, rec, &positions)
	require.Len(t, positions.Deposits, 1)
	require.Equal(t, "400", positions.Deposits[0].Principal)
	require.Empty(t, positions.Borrows)
}

func TestBorrowRepayRoundTrip(t *testing.T) {
	h := newTestHarness(t, nil)
	borrower := testAddress(t, 0x11)
	h.fund(t, borrower, 1_000)

	rec := h.post(t, "/v1/lending/supply", lendingOpRequest{
		Address: borrower.String(), Asset: testAsset, Amount: "1000",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = h.post(t, "/v1/lending/borrow", lendingOpRequest{
		Address: borrower.String(), Asset: testAsset, Amount: "500",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Repay more than owed: the engine settles only the outstanding debt.
	rec = h.post(t, "/v1/lending/repay", lendingOpRequest{
		Address: borrower.String(), Asset: testAsset, Amount: "800",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var result map[string]string
	decodeBody(t, rec, &result)
	require.Equal(t, "500", result["repaid"])
}

func TestLendingErrorStatuses(t *testing.T) {
	h := newTestHarness(t, nil)
	user := testAddress(t, 0x12)
	h.fund(t, user, 1_000)

	rec := h.post(t, "/v1/lending/supply", lendingOpRequest{
		Address: "not-an-address", Asset: testAsset, Amount: "10",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.post(t, "/v1/lending/supply", lendingOpRequest{
		Address: user.String(), Asset: testAsset, Amount: "abc",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.post(t, "/v1/lending/supply", lendingOpRequest{
		Address: user.String(), Asset: "EUR", Amount: "10",
	})
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.post(t, "/v1/lending/borrow", lendingOpRequest{
		Address: user.String(), Asset: testAsset, Amount: "10",
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = h.post(t, "/v1/lending/repay", lendingOpRequest{
		Address: user.String(), Asset: testAsset, Amount: "10",
	})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProtocolFeeWithdrawRequiresAuthority(t *testing.T) {
	h := newTestHarness(t, nil)
	outsider := testAddress(t, 0x13)

	rec := h.post(t, "/v1/lending/fees/withdraw", feeWithdrawRequest{
		Caller:    outsider.String(),
		Recipient: outsider.String(),
		Asset:     testAsset,
		Amount:    "1",
	})
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestStakingLifecycleOverHTTP(t *testing.T) {
	h := newTestHarness(t, nil)
	staker := testAddress(t, 0x20)
	h.fund(t, staker, 10_000)

	rec := h.post(t, "/v1/staking/stake", stakeRequest{
		Address:      staker.String(),
		Amount:       "10000",
		DurationDays: 365,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var opened map[string]string
	decodeBody(t, rec, &opened)
	require.Equal(t, "10000", opened["derivative"])

	rec = h.get(t, "/v1/staking/accounts/"+staker.String())
	require.Equal(t, http.StatusOK, rec.Code)
	var account stakeAccountView
	decodeBody(t, rec, &account)
	require.Equal(t, "10000", account.StakeAmount)
	require.Equal(t, uint64(365), account.LockDurationDays)

	// Same-instant withdrawal forfeits the full-term yield as a penalty.
	rec = h.post(t, "/v1/staking/withdraw", stakingWithdrawRequest{Address: staker.String()})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var closed map[string]string
	decodeBody(t, rec, &closed)
	require.NotEmpty(t, closed["withdrawn"])

	rec = h.post(t, "/v1/staking/withdraw", stakingWithdrawRequest{Address: staker.String()})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStakingPreferencesParsing(t *testing.T) {
	h := newTestHarness(t, nil)
	staker := testAddress(t, 0x21)
	h.fund(t, staker, 1_000)

	rec := h.post(t, "/v1/staking/stake", stakeRequest{
		Address: staker.String(), Amount: "1000", DurationDays: 30,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = h.post(t, "/v1/staking/preferences", preferencesRequest{
		Address:         staker.String(),
		Mode:            "batch",
		BatchSize:       5,
		BatchFrequency:  "hourly",
		PayoutThreshold: "250",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = h.post(t, "/v1/staking/preferences", preferencesRequest{
		Address: staker.String(),
		Mode:    "lump-sum",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.post(t, "/v1/staking/preferences", preferencesRequest{
		Address:             staker.String(),
		ReinvestmentPercent: 150,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDistributeBatchOverHTTP(t *testing.T) {
	h := newTestHarness(t, nil)
	first := testAddress(t, 0x22)
	second := testAddress(t, 0x23)
	h.fund(t, first, 5_000)
	h.fund(t, second, 5_000)

	for _, addr := range []crypto.Address{first, second} {
		rec := h.post(t, "/v1/staking/stake", stakeRequest{
			Address: addr.String(), Amount: "5000", DurationDays: 365,
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	rec := h.post(t, "/v1/staking/distribute", distributeRequest{
		Addresses: []string{first.String(), second.String()},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var payload map[string]string
	decodeBody(t, rec, &payload)
	require.Len(t, payload, 2)
	require.Contains(t, payload, first.String())
	require.Contains(t, payload, second.String())
}

func TestAuthenticatorGatesMutations(t *testing.T) {
	auth := middleware.NewAuthenticator([]string{"secret-token"})
	h := newTestHarness(t, &Config{Authenticator: auth})
	depositor := testAddress(t, 0x30)
	h.fund(t, depositor, 1_000)

	payload, err := json.Marshal(lendingOpRequest{
		Address: depositor.String(), Asset: testAsset, Amount: "100",
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/lending/supply", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/v1/lending/supply", bytes.NewReader(payload))
	req.Header.Set("Authorization", "Bearer secret-token")
	rec = httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestRequestIDPropagation(t *testing.T) {
	h := newTestHarness(t, nil)

	rec := h.get(t, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "caller-supplied")
	rec = httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	require.Equal(t, "caller-supplied", rec.Header().Get("X-Request-ID"))
}

func TestEventsEndpointRecordsOperations(t *testing.T) {
	h := newTestHarness(t, nil)
	depositor := testAddress(t, 0x31)
	h.fund(t, depositor, 1_000)

	rec := h.post(t, "/v1/lending/supply", lendingOpRequest{
		Address: depositor.String(), Asset: testAsset, Amount: "100",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = h.get(t, "/v1/events")
	require.Equal(t, http.StatusOK, rec.Code)
	var events []*types.Event
	decodeBody(t, rec, &events)
	require.NotEmpty(t, events)
	found := false
	for _, evt := range events {
		if evt.Type == "lending.deposit" {
			found = true
		}
	}
	require.True(t, found, fmt.Sprintf("expected a deposit event, got %v", events))
}
