package domain

import "errors"

var (
	ErrMarketNotFound    = errors.New("market not found")
	ErrCrossedBook       = errors.New("crossed book")
	ErrStaleMarket       = errors.New("market state stale")
	ErrNoVenue           = errors.New("no suitable execution venue")
	ErrInsufficientDepth = errors.New("insufficient depth")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrFlashLoan         = errors.New("flash loan unavailable")
	ErrTransaction       = errors.New("transaction failed")
	ErrSecurityViolation = errors.New("security violation")
	ErrConfig            = errors.New("configuration error")
	ErrNetwork           = errors.New("network error")
	ErrStaleOpportunity  = errors.New("opportunity expired")
)
