package dex

import (
	"math/big"

	"alsmadex/crypto"
)

// Token is the registry record stored for every tradeable token. Records are
// immutable after registration and never deleted.
type Token struct {
	Address      crypto.Address
	FeedAddress  crypto.Address
	Symbol       string
	Decimals     uint8
	FeedDecimals uint8
}

// Clone returns a copy so callers cannot mutate registry state.
func (t *Token) Clone() *Token {
	if t == nil {
		return nil
	}
	clone := *t
	return &clone
}

// Pool aggregates the per-token staking and reserve state.
type Pool struct {
	// TotalStaked is the sum of all stake positions for the token.
	TotalStaked *big.Int
	// AccRewardPerShare is the cumulative staker reward per staked unit,
	// scaled by rewardScale. It only ever increases.
	AccRewardPerShare *big.Int
	// TreasuryBalance is the accumulated non-staker commission share.
	TreasuryBalance *big.Int
	// ContractReserve is the token balance the engine itself holds. Every
	// outbound payout must be covered by it.
	ContractReserve *big.Int
}

// Clone returns a deep copy of the pool record.
func (p *Pool) Clone() *Pool {
	if p == nil {
		return nil
	}
	clone := &Pool{}
	if p.TotalStaked != nil {
		clone.TotalStaked = new(big.Int).Set(p.TotalStaked)
	}
	if p.AccRewardPerShare != nil {
		clone.AccRewardPerShare = new(big.Int).Set(p.AccRewardPerShare)
	}
	if p.TreasuryBalance != nil {
		clone.TreasuryBalance = new(big.Int).Set(p.TreasuryBalance)
	}
	if p.ContractReserve != nil {
		clone.ContractReserve = new(big.Int).Set(p.ContractReserve)
	}
	return clone
}

// Position tracks a single account's stake in a single token pool. Positions
// are created on first stake and may sit at zero afterwards.
type Position struct {
	Account crypto.Address
	// Staked is the account's deposited amount.
	Staked *big.Int
	// RewardDebt snapshots the pool accumulator at the last settlement.
	RewardDebt *big.Int
	// Earned is realized but unwithdrawn reward.
	Earned *big.Int
}

// Clone returns a deep copy of the position record.
func (p *Position) Clone() *Position {
	if p == nil {
		return nil
	}
	clone := &Position{Account: p.Account}
	if p.Staked != nil {
		clone.Staked = new(big.Int).Set(p.Staked)
	}
	if p.RewardDebt != nil {
		clone.RewardDebt = new(big.Int).Set(p.RewardDebt)
	}
	if p.Earned != nil {
		clone.Earned = new(big.Int).Set(p.Earned)
	}
	return clone
}

// StakeDetails is the view returned to stakers: deposited amount plus the
// reward realised through the last commission event.
type StakeDetails struct {
	Staked *big.Int
	Earned *big.Int
}

// TokenDetails bundles the registry record with the caller-facing quote data.
type TokenDetails struct {
	Token          *Token
	Balance        *big.Int
	ExchangeRate   *big.Int
	CommissionRate uint64
}

// SwapQuote is the pure pre-trade estimate: the cross rate (input price
// expressed in output-token feed units), the net output after commission, and
// the commission charged in output-token units.
type SwapQuote struct {
	ExchangeRate *big.Int
	ToAmount     *big.Int
	CommissionTo *big.Int
}
