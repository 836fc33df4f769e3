package routes

import (
	"math/big"
	"net/http"

	"github.com/go-chi/chi/v5"

	"yieldhub/native/lending"
)

func (a *apiRoutes) mountLending(r chi.Router) {
	r.Get("/market", a.lendingMarket)
	r.Get("/positions/{address}", a.lendingPositions)
	r.Get("/fees", a.lendingFees)
	r.Post("/supply", a.lendingSupply)
	r.Post("/withdraw", a.lendingWithdraw)
	r.Post("/borrow", a.lendingBorrow)
	r.Post("/repay", a.lendingRepay)
	r.Post("/liquidate", a.lendingLiquidate)
	r.Post("/fees/withdraw", a.lendingWithdrawFees)
}

type lendingOpRequest struct {
	Address string `json:"address"`
	Asset   string `json:"asset"`
	Amount  string `json:"amount"`
}

type liquidateRequest struct {
	Liquidator string `json:"liquidator"`
	Borrower   string `json:"borrower"`
	Asset      string `json:"asset"`
	Amount     string `json:"amount"`
}

type feeWithdrawRequest struct {
	Caller    string `json:"caller"`
	Recipient string `json:"recipient"`
	Asset     string `json:"asset"`
	Amount    string `json:"amount"`
}

type reserveView struct {
	Asset                   string `json:"asset"`
	LTVBps                  uint64 `json:"ltvBps"`
	LiquidationThresholdBps uint64 `json:"liquidationThresholdBps"`
	LiquidationPenaltyBps   uint64 `json:"liquidationPenaltyBps"`
	TotalDeposits           string `json:"totalDeposits"`
	TotalBorrows            string `json:"totalBorrows"`
	SupplyIndex             string `json:"supplyIndex"`
	BorrowIndex             string `json:"borrowIndex"`
	LastAccrualTime         uint64 `json:"lastAccrualTime"`
}

type marketView struct {
	Authority        string        `json:"authority"`
	PermanentAccount string        `json:"permanentAccount"`
	ReserveFactorBps uint64        `json:"reserveFactorBps"`
	TotalDeposits    string        `json:"totalDeposits"`
	TotalBorrows     string        `json:"totalBorrows"`
	MaxUsers         uint64        `json:"maxUsers"`
	CurrentUsers     uint64        `json:"currentUsers"`
	Reserves         []reserveView `json:"reserves"`
}

type positionView struct {
	Asset     string `json:"asset"`
	Principal string `json:"principal"`
	Index     string `json:"index"`
}

type positionsView struct {
	Address  string         `json:"address"`
	Deposits []positionView `json:"deposits"`
	Borrows  []positionView `json:"borrows"`
}

func (a *apiRoutes) lendingMarket(w http.ResponseWriter, r *http.Request) {
	if a.store == nil {
		writeError(w, http.StatusServiceUnavailable, nil)
		return
	}
	a.mu.Lock()
	market, err := a.store.GetMarket()
	a.mu.Unlock()
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if market == nil {
		writeEngineError(w, lending.ErrMarketNotFound)
		return
	}
	view := marketView{
		Authority:        market.Authority.String(),
		PermanentAccount: market.PermanentAccount.String(),
		ReserveFactorBps: market.ReserveFactorBps,
		TotalDeposits:    market.TotalDeposits.String(),
		TotalBorrows:     market.TotalBorrows.String(),
		MaxUsers:         market.MaxUsers,
		CurrentUsers:     market.CurrentUsers,
	}
	for _, asset := range market.ReserveAssets() {
		reserve := market.Reserve(asset)
		view.Reserves = append(view.Reserves, reserveView{
			Asset:                   reserve.Asset,
			LTVBps:                  reserve.Params.LTVBps,
			LiquidationThresholdBps: reserve.Params.LiquidationThresholdBps,
			LiquidationPenaltyBps:   reserve.Params.LiquidationPenaltyBps,
			TotalDeposits:           reserve.TotalDeposits.String(),
			TotalBorrows:            reserve.TotalBorrows.String(),
			SupplyIndex:             reserve.SupplyIndex.String(),
			BorrowIndex:             reserve.BorrowIndex.String(),
			LastAccrualTime:         reserve.LastAccrualTime,
		})
	}
	writeJSON(w, http.StatusOK, view)
}

func (a *apiRoutes) lendingPositions(w http.ResponseWriter, r *http.Request) {
	if a.store == nil {
		writeError(w, http.StatusServiceUnavailable, nil)
		return
	}
	addr, err := parseAddress(chi.URLParam(r, "address"))
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	a.mu.Lock()
	user, err := a.store.GetUserAccount(addr)
	a.mu.Unlock()
	if err != nil {
		writeEngineError(w, err)
		return
	}
	view := positionsView{Address: addr.String()}
	if user != nil {
		for _, asset := range user.DepositAssets() {
			pos := user.Deposits[asset]
			view.Deposits = append(view.Deposits, positionView{
				Asset:     asset,
				Principal: pos.Principal.String(),
				Index:     pos.Index.String(),
			})
		}
		for _, asset := range user.BorrowAssets() {
			pos := user.Borrows[asset]
			view.Borrows = append(view.Borrows, positionView{
				Asset:     asset,
				Principal: pos.Principal.String(),
				Index:     pos.Index.String(),
			})
		}
	}
	writeJSON(w, http.StatusOK, view)
}

func (a *apiRoutes) lendingFees(w http.ResponseWriter, r *http.Request) {
	if a.store == nil {
		writeError(w, http.StatusServiceUnavailable, nil)
		return
	}
	a.mu.Lock()
	fees, err := a.store.GetFeeAccrual()
	a.mu.Unlock()
	if err != nil {
		writeEngineError(w, err)
		return
	}
	payload := make(map[string]string)
	if fees != nil {
		for asset, amount := range fees.ProtocolFees {
			if amount != nil {
				payload[asset] = amount.String()
			}
		}
	}
	writeJSON(w, http.StatusOK, payload)
}

func (a *apiRoutes) lendingSupply(w http.ResponseWriter, r *http.Request) {
	a.lendingMutation(w, r, "supply")
}

func (a *apiRoutes) lendingWithdraw(w http.ResponseWriter, r *http.Request) {
	a.lendingMutation(w, r, "withdraw")
}

func (a *apiRoutes) lendingBorrow(w http.ResponseWriter, r *http.Request) {
	a.lendingMutation(w, r, "borrow")
}

func (a *apiRoutes) lendingRepay(w http.ResponseWriter, r *http.Request) {
	a.lendingMutation(w, r, "repay")
}

func (a *apiRoutes) lendingMutation(w http.ResponseWriter, r *http.Request, op string) {
	var req lendingOpRequest
	if err := decodeRequest(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	addr, err := parseAddress(req.Address)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeBadRequest(w, err)
		return
	}

	a.mu.Lock()
	a.lending.SetTimestamp(a.timestamp())
	var repaid string
	switch op {
	case "supply":
		err = a.lending.Deposit(addr, req.Asset, amount)
	case "withdraw":
		err = a.lending.Withdraw(addr, req.Asset, amount)
	case "borrow":
		err = a.lending.Borrow(addr, req.Asset, amount)
	case "repay":
		var settled *big.Int
		settled, err = a.lending.Repay(addr, req.Asset, amount)
		if err == nil {
			repaid = settled.String()
		}
	}
	a.mu.Unlock()
	if err != nil {
		writeEngineError(w, err)
		return
	}

	payload := map[string]string{"status": "ok", "op": op}
	if repaid != "" {
		payload["repaid"] = repaid
	}
	writeJSON(w, http.StatusOK, payload)
}

func (a *apiRoutes) lendingLiquidate(w http.ResponseWriter, r *http.Request) {
	var req liquidateRequest
	if err := decodeRequest(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	liquidator, err := parseAddress(req.Liquidator)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	borrower, err := parseAddress(req.Borrower)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeBadRequest(w, err)
		return
	}

	a.mu.Lock()
	a.lending.SetTimestamp(a.timestamp())
	repaid, seized, err := a.lending.Liquidate(liquidator, borrower, req.Asset, amount)
	a.mu.Unlock()
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"repaid": repaid.String(),
		"seized": seized.String(),
	})
}

func (a *apiRoutes) lendingWithdrawFees(w http.ResponseWriter, r *http.Request) {
	var req feeWithdrawRequest
	if err := decodeRequest(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	recipient, err := parseAddress(req.Recipient)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeBadRequest(w, err)
		return
	}

	a.mu.Lock()
	a.lending.SetTimestamp(a.timestamp())
	withdrawn, err := a.lending.WithdrawProtocolFees(caller, recipient, req.Asset, amount)
	a.mu.Unlock()
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"withdrawn": withdrawn.String(),
	})
}
