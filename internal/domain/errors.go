package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrMarketNotResolved  = errors.New("market not resolved")
	ErrMarketResolved     = errors.New("market already resolved")
	ErrAlreadyClaimed     = errors.New("position already claimed")
	ErrInsufficientShares = errors.New("insufficient shares")
	ErrPoolConservation   = errors.New("pool conservation violated")
	ErrDeadlineNotReached = errors.New("market deadline not reached")
	ErrRateLimited        = errors.New("rate limited")
	ErrLockHeld           = errors.New("lock already held")
)
