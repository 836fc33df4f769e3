package staking

import "errors"

var (
	// ErrNilState indicates the engine has not been wired to persistence.
	ErrNilState = errors.New("staking: state not configured")
	// ErrInvalidAmount indicates a nil, zero or negative amount.
	ErrInvalidAmount = errors.New("staking: invalid amount")
	// ErrInvalidParameter indicates a parameter outside its accepted range.
	ErrInvalidParameter = errors.New("staking: invalid parameter")
	// ErrNoStake indicates the caller has no active staking position.
	ErrNoStake = errors.New("staking: no active stake")
	// ErrStakeExists indicates the caller already holds an active position.
	ErrStakeExists = errors.New("staking: stake already active")
	// ErrInsufficientBalance indicates the caller cannot fund the stake.
	ErrInsufficientBalance = errors.New("staking: insufficient balance")
	// ErrExternalCallFailed wraps a failure from the liquidity converter or
	// the leverage desk.
	ErrExternalCallFailed = errors.New("staking: external call failed")
	// ErrArithmeticOverflow indicates a checked conversion would wrap.
	ErrArithmeticOverflow = errors.New("staking: arithmetic overflow")
	// ErrClockSkew indicates the engine timestamp ran backwards.
	ErrClockSkew = errors.New("staking: timestamp precedes last accrual")
)
