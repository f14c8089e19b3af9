package dex

import "errors"

// Errors surfaced to callers. The message text mirrors the revert reasons the
// exchange has always reported, so integrators matching on strings keep working.
var (
	// ErrUnauthorized rejects owner-only operations invoked by anyone else.
	ErrUnauthorized = errors.New("dex: caller is not the owner")
	// ErrDuplicateToken rejects registering a token address twice.
	ErrDuplicateToken = errors.New("dex: add the token that already exists")
	// ErrInvalidInterface rejects a token ledger or price feed handle whose
	// probe reads do not return the expected shape.
	ErrInvalidInterface = errors.New("dex: function returned an unexpected amount of data")
	// ErrTokenNotFound is returned when an operation references an unregistered token.
	ErrTokenNotFound = errors.New("dex: token does not exist")
	// ErrFromTokenNotFound identifies an unregistered swap input token.
	ErrFromTokenNotFound = errors.New("dex: from token does not exist")
	// ErrToTokenNotFound identifies an unregistered swap output token.
	ErrToTokenNotFound = errors.New("dex: to token does not exist")
	// ErrInsufficientBalance is returned when the caller's external balance cannot cover the amount.
	ErrInsufficientBalance = errors.New("dex: not enough tokens on balance")
	// ErrInsufficientAllowance is returned when the caller has not approved the engine to move the amount.
	ErrInsufficientAllowance = errors.New("dex: not enough approved tokens")
	// ErrInsufficientReserve is returned when the engine's own reserve cannot cover the payout.
	ErrInsufficientReserve = errors.New("dex: not enough tokens in supply")
	// ErrNothingToUnstake rejects unstaking zero or more than the position holds.
	ErrNothingToUnstake = errors.New("dex: nothing to unstake")
	// ErrSlippageExceeded rejects a checked swap whose output misses the 0.5% tolerance.
	ErrSlippageExceeded = errors.New("dex: slippage is more than 0.5%")
)

var (
	errNilState      = errors.New("dex engine: state not configured")
	errInvalidAmount = errors.New("dex engine: amount must be positive")
	errTokenNotBound = errors.New("dex engine: token handles not bound")
	errOraclePrice   = errors.New("dex engine: oracle returned a non-positive price")
	errTransfer      = errors.New("dex engine: external transfer failed")
	errRefund        = errors.New("dex engine: refund after aborted swap failed, input held by engine")
)
