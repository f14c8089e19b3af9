package dex

import (
	"math/big"

	"alsmadex/crypto"
	nativecommon "alsmadex/native/common"
)

// TreasuryBalance returns the accumulated non-staker commission for the token.
func (e *Engine) TreasuryBalance(tokenAddr crypto.Address) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	token, err := e.state.GetToken(tokenAddr)
	if err != nil {
		return nil, err
	}
	if token == nil {
		return nil, ErrTokenNotFound
	}
	pool, err := e.ensurePool(tokenAddr)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(pool.TreasuryBalance), nil
}

// WithdrawTreasury transfers the token's full treasury balance to the owner
// and zeroes it. Only the owner may call it.
func (e *Engine) WithdrawTreasury(caller, tokenAddr crypto.Address) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if !caller.Equal(e.owner) {
		return nil, ErrUnauthorized
	}
	token, err := e.state.GetToken(tokenAddr)
	if err != nil {
		return nil, err
	}
	if token == nil {
		return nil, ErrTokenNotFound
	}
	ledger, _, err := e.handles(tokenAddr)
	if err != nil {
		return nil, err
	}
	pool, err := e.ensurePool(tokenAddr)
	if err != nil {
		return nil, err
	}

	amount := new(big.Int).Set(pool.TreasuryBalance)
	if amount.Sign() > 0 && pool.ContractReserve.Cmp(amount) < 0 {
		return nil, ErrInsufficientReserve
	}

	pool.TreasuryBalance = big.NewInt(0)
	pool.ContractReserve = new(big.Int).Sub(pool.ContractReserve, amount)
	if err := e.state.PutPool(tokenAddr, pool); err != nil {
		return nil, err
	}

	if amount.Sign() > 0 {
		ok, err := ledger.Transfer(e.owner, amount)
		if err != nil || !ok {
			pool.TreasuryBalance = amount
			pool.ContractReserve = new(big.Int).Add(pool.ContractReserve, amount)
			if putErr := e.state.PutPool(tokenAddr, pool); putErr != nil {
				return nil, putErr
			}
			return nil, errTransfer
		}
	}

	e.emit(newTreasuryWithdrawnEvent(tokenAddr, e.owner, amount))
	return amount, nil
}
