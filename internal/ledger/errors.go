package ledger

import "errors"

// Sentinel errors for ledger operations. Every failure aborts the whole
// call with no partial state change; callers are responsible for
// resubmission.
var (
	ErrUnauthorized    = errors.New("ledger: unauthorized")
	ErrMarketNotFound  = errors.New("ledger: market not found")
	ErrMarketExpired   = errors.New("ledger: market expired")
	ErrMarketClosed    = errors.New("ledger: market closed")
	ErrNotExpired      = errors.New("ledger: market not yet expired")
	ErrAlreadyResolved = errors.New("ledger: market already resolved")
	ErrAlreadyClaimed  = errors.New("ledger: winnings already claimed")
	ErrNoPosition      = errors.New("ledger: no winning position")
	ErrInvalidAmount   = errors.New("ledger: invalid amount")
	ErrInvalidPrice    = errors.New("ledger: invalid price")
	ErrTransferFailed  = errors.New("ledger: transfer failed")

	ErrOracleExists   = errors.New("ledger: oracle already trusted")
	ErrOracleAbsent   = errors.New("ledger: oracle not trusted")
	ErrTooManyOracles = errors.New("ledger: trusted oracle set full")
)
