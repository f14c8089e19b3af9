package dex

import (
	"math/big"

	"alsmadex/crypto"
)

// stakedValue prices the pool's total stake in USD as an exact rational:
// totalStaked * answer / 10^(tokenDecimals + feedDecimals).
func (e *Engine) stakedValue(token *Token, pool *Pool) (*big.Rat, error) {
	if pool.TotalStaked.Sign() == 0 {
		return new(big.Rat), nil
	}
	answer, feedDecimals, err := e.latestPrice(token)
	if err != nil {
		return nil, err
	}
	num := new(big.Int).Mul(pool.TotalStaked, answer)
	den := pow10(int(token.Decimals) + int(feedDecimals))
	return new(big.Rat).SetFrac(num, den), nil
}

// commissionRate computes the swap commission for the token, in basis points.
// The base rate is scaled by totalValue/stakedValue(token): a token holding a
// thin share of the overall staked value is cheap to drain, so trades into it
// pay more. The result is clamped to [MinRateBps, MaxRateBps]; a pool with no
// staked value charges the maximum. Caller holds the engine mutex.
func (e *Engine) commissionRate(token *Token) (uint64, error) {
	tokens, err := e.state.TokenList()
	if err != nil {
		return 0, err
	}
	totalValue := new(big.Rat)
	tokenValue := new(big.Rat)
	for _, t := range tokens {
		pool, err := e.ensurePool(t.Address)
		if err != nil {
			return 0, err
		}
		value, err := e.stakedValue(t, pool)
		if err != nil {
			return 0, err
		}
		totalValue.Add(totalValue, value)
		if t.Address.Equal(token.Address) {
			tokenValue.Set(value)
		}
	}
	if tokenValue.Sign() == 0 {
		return e.params.MaxRateBps, nil
	}

	raw := new(big.Rat).SetFrac64(int64(e.params.BaseRateBps), 1)
	raw.Mul(raw, new(big.Rat).Quo(totalValue, tokenValue))

	min := new(big.Rat).SetFrac64(int64(e.params.MinRateBps), 1)
	max := new(big.Rat).SetFrac64(int64(e.params.MaxRateBps), 1)
	if raw.Cmp(min) < 0 {
		return e.params.MinRateBps, nil
	}
	if raw.Cmp(max) > 0 {
		return e.params.MaxRateBps, nil
	}
	// Truncate toward zero; the clamp above keeps the result in range.
	out := new(big.Int).Quo(raw.Num(), raw.Denom())
	return out.Uint64(), nil
}

// CommissionRate is the exported read used by quoting surfaces.
func (e *Engine) CommissionRate(tokenAddr crypto.Address) (uint64, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	token, err := e.state.GetToken(tokenAddr)
	if err != nil {
		return 0, err
	}
	if token == nil {
		return 0, ErrTokenNotFound
	}
	return e.commissionRate(token)
}

func pow10(exp int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(exp)), nil)
}
