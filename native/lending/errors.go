package lending

import "errors"

var (
	ErrNilState               = errors.New("lending: state not configured")
	ErrMarketExists           = errors.New("lending: market already initialised")
	ErrMarketNotFound         = errors.New("lending: market not initialised")
	ErrMarketFull             = errors.New("lending: market user capacity reached")
	ErrReserveExists          = errors.New("lending: reserve already registered")
	ErrReserveNotFound        = errors.New("lending: reserve not registered")
	ErrInvalidAmount          = errors.New("lending: amount must be positive")
	ErrInvalidParameter       = errors.New("lending: invalid parameter")
	ErrUnauthorized           = errors.New("lending: unauthorized")
	ErrInsufficientBalance    = errors.New("lending: insufficient balance")
	ErrInsufficientLiquidity  = errors.New("lending: insufficient liquidity")
	ErrInsufficientCollateral = errors.New("lending: insufficient collateral")
	ErrNoBorrowFound          = errors.New("lending: no outstanding borrow for reserve")
	ErrNoDepositFound         = errors.New("lending: no deposit recorded for reserve")
	ErrNotLiquidatable        = errors.New("lending: position not eligible for liquidation")
	ErrClockSkew              = errors.New("lending: accrual timestamp precedes last update")
	ErrReentrantFlashLoan     = errors.New("lending: reserve already targeted by a flash loan")
	ErrFlashLoanNotRepaid     = errors.New("lending: flash loan principal plus fee not returned")
)
