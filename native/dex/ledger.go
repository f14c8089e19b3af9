package dex

import (
	"math/big"

	"alsmadex/crypto"
	nativecommon "alsmadex/native/common"
)

// settle realises the reward accrued since the position's last settlement and
// advances its accumulator snapshot. Call it before mutating the staked amount
// and before surfacing Earned externally.
func settle(position *Position, pool *Pool) {
	if position.Staked.Sign() > 0 {
		delta := new(big.Int).Sub(pool.AccRewardPerShare, position.RewardDebt)
		if delta.Sign() > 0 {
			pending := new(big.Int).Mul(position.Staked, delta)
			pending.Quo(pending, rewardScale)
			position.Earned = new(big.Int).Add(position.Earned, pending)
		}
	}
	position.RewardDebt = new(big.Int).Set(pool.AccRewardPerShare)
}

// creditReward distributes a commission slice to the token's stakers through
// the per-share accumulator. With nobody staked the amount would be orphaned
// by a zero division, so it lands in the treasury instead.
func creditReward(pool *Pool, amount *big.Int) {
	if amount == nil || amount.Sign() == 0 {
		return
	}
	if pool.TotalStaked.Sign() == 0 {
		pool.TreasuryBalance = new(big.Int).Add(pool.TreasuryBalance, amount)
		return
	}
	increment := new(big.Int).Mul(amount, rewardScale)
	increment.Quo(increment, pool.TotalStaked)
	pool.AccRewardPerShare = new(big.Int).Add(pool.AccRewardPerShare, increment)
}

// Stake pulls amount of the token from the caller's external balance into the
// engine and credits the caller's stake position.
func (e *Engine) Stake(caller, tokenAddr crypto.Address, amount *big.Int) (*StakeDetails, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, errInvalidAmount
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

	balance, err := ledger.BalanceOf(caller)
	if err != nil {
		return nil, errTransfer
	}
	if balance == nil || balance.Cmp(amount) < 0 {
		return nil, ErrInsufficientBalance
	}
	allowance, err := ledger.Allowance(caller, e.moduleAddress)
	if err != nil {
		return nil, errTransfer
	}
	if allowance == nil || allowance.Cmp(amount) < 0 {
		return nil, ErrInsufficientAllowance
	}

	pool, err := e.ensurePool(tokenAddr)
	if err != nil {
		return nil, err
	}
	position, err := e.ensurePosition(tokenAddr, caller)
	if err != nil {
		return nil, err
	}
	settle(position, pool)

	ok, err := ledger.TransferFrom(caller, e.moduleAddress, amount)
	if err != nil || !ok {
		return nil, errTransfer
	}

	position.Staked = new(big.Int).Add(position.Staked, amount)
	pool.TotalStaked = new(big.Int).Add(pool.TotalStaked, amount)
	pool.ContractReserve = new(big.Int).Add(pool.ContractReserve, amount)

	if err := e.state.PutPosition(tokenAddr, position); err != nil {
		return nil, err
	}
	if err := e.state.PutPool(tokenAddr, pool); err != nil {
		return nil, err
	}

	e.emit(newStakedEvent(tokenAddr, caller, amount, position))
	return &StakeDetails{
		Staked: new(big.Int).Set(position.Staked),
		Earned: new(big.Int).Set(position.Earned),
	}, nil
}

// Unstake releases amount of the caller's staked tokens back to their
// external balance.
func (e *Engine) Unstake(caller, tokenAddr crypto.Address, amount *big.Int) (*StakeDetails, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
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
	position, err := e.ensurePosition(tokenAddr, caller)
	if err != nil {
		return nil, err
	}
	settle(position, pool)

	if amount == nil || amount.Sign() <= 0 || amount.Cmp(position.Staked) > 0 {
		return nil, ErrNothingToUnstake
	}
	if pool.ContractReserve.Cmp(amount) < 0 {
		return nil, ErrInsufficientReserve
	}

	position.Staked = new(big.Int).Sub(position.Staked, amount)
	pool.TotalStaked = new(big.Int).Sub(pool.TotalStaked, amount)
	pool.ContractReserve = new(big.Int).Sub(pool.ContractReserve, amount)

	if err := e.state.PutPosition(tokenAddr, position); err != nil {
		return nil, err
	}
	if err := e.state.PutPool(tokenAddr, pool); err != nil {
		return nil, err
	}

	ok, err := ledger.Transfer(caller, amount)
	if err != nil || !ok {
		// Roll the ledger entries back so the failed payout leaves no trace.
		settleBack := func() {
			position.Staked = new(big.Int).Add(position.Staked, amount)
			pool.TotalStaked = new(big.Int).Add(pool.TotalStaked, amount)
			pool.ContractReserve = new(big.Int).Add(pool.ContractReserve, amount)
		}
		settleBack()
		if putErr := e.state.PutPosition(tokenAddr, position); putErr != nil {
			return nil, putErr
		}
		if putErr := e.state.PutPool(tokenAddr, pool); putErr != nil {
			return nil, putErr
		}
		return nil, errTransfer
	}

	e.emit(newUnstakedEvent(tokenAddr, caller, amount, position))
	return &StakeDetails{
		Staked: new(big.Int).Set(position.Staked),
		Earned: new(big.Int).Set(position.Earned),
	}, nil
}

// TotalStaked returns the sum of all stake positions for the token.
func (e *Engine) TotalStaked(tokenAddr crypto.Address) (*big.Int, error) {
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
	return new(big.Int).Set(pool.TotalStaked), nil
}

// StakeDetailsFor returns the staked amount and realised reward for the given
// account, including reward pending since the last settlement. The read does
// not persist anything.
func (e *Engine) StakeDetailsFor(tokenAddr, account crypto.Address) (*StakeDetails, error) {
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
	position, err := e.ensurePosition(tokenAddr, account)
	if err != nil {
		return nil, err
	}
	settle(position, pool)
	return &StakeDetails{
		Staked: new(big.Int).Set(position.Staked),
		Earned: new(big.Int).Set(position.Earned),
	}, nil
}

// WithdrawStakingProfits pays out the caller's realised reward for the token
// and zeroes it. Withdrawing with nothing earned succeeds without an external
// transfer.
func (e *Engine) WithdrawStakingProfits(caller, tokenAddr crypto.Address) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
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
	position, err := e.ensurePosition(tokenAddr, caller)
	if err != nil {
		return nil, err
	}
	settle(position, pool)

	earned := new(big.Int).Set(position.Earned)
	if earned.Sign() > 0 && pool.ContractReserve.Cmp(earned) < 0 {
		return nil, ErrInsufficientReserve
	}

	position.Earned = big.NewInt(0)
	pool.ContractReserve = new(big.Int).Sub(pool.ContractReserve, earned)

	if err := e.state.PutPosition(tokenAddr, position); err != nil {
		return nil, err
	}
	if err := e.state.PutPool(tokenAddr, pool); err != nil {
		return nil, err
	}

	if earned.Sign() > 0 {
		ok, err := ledger.Transfer(caller, earned)
		if err != nil || !ok {
			position.Earned = earned
			pool.ContractReserve = new(big.Int).Add(pool.ContractReserve, earned)
			if putErr := e.state.PutPosition(tokenAddr, position); putErr != nil {
				return nil, putErr
			}
			if putErr := e.state.PutPool(tokenAddr, pool); putErr != nil {
				return nil, putErr
			}
			return nil, errTransfer
		}
	}

	e.emit(newProfitsWithdrawnEvent(tokenAddr, caller, earned))
	return earned, nil
}
