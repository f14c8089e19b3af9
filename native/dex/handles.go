package dex

import (
	"math/big"

	"alsmadex/crypto"
)

// TokenLedger is the fungible-token contract surface the engine consumes. The
// engine never assumes a specific implementation; anything satisfying this
// interface can be registered.
type TokenLedger interface {
	Address() crypto.Address
	Symbol() (string, error)
	Decimals() (uint8, error)
	BalanceOf(account crypto.Address) (*big.Int, error)
	Allowance(owner, spender crypto.Address) (*big.Int, error)
	Transfer(to crypto.Address, amount *big.Int) (bool, error)
	TransferFrom(from, to crypto.Address, amount *big.Int) (bool, error)
}

// PriceFeed exposes the latest USD price observation for a token. The answer
// is a fixed-point integer scaled by the feed's own decimals.
type PriceFeed interface {
	Address() crypto.Address
	Decimals() (uint8, error)
	LatestPrice() (*big.Int, uint8, error)
}
