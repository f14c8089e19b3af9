package dex

import (
	"math/big"

	"alsmadex/crypto"
	nativecommon "alsmadex/native/common"
)

// quote carries the intermediate amounts derived for one swap from a single
// consistent price snapshot. The split satisfies
// netToAmount + toStakers + toTreasury == rawToAmount exactly.
type quote struct {
	exchangeRate *big.Int
	rawToAmount  *big.Int
	commission   *big.Int
	toStakers    *big.Int
	toTreasury   *big.Int
	netToAmount  *big.Int
	rateBps      uint64
}

// buildQuote runs the pricing pipeline: cross-rate conversion through USD,
// then the commission split for the output token. Caller holds the mutex.
func (e *Engine) buildQuote(from, to *Token, fromAmount *big.Int) (*quote, error) {
	fromAnswer, fromFeedDecimals, err := e.latestPrice(from)
	if err != nil {
		return nil, err
	}
	toAnswer, toFeedDecimals, err := e.latestPrice(to)
	if err != nil {
		return nil, err
	}

	// rawToAmount = fromAmount * fromAnswer * 10^(toDec+toFeedDec)
	//             / (toAnswer * 10^(fromDec+fromFeedDec))
	num := new(big.Int).Mul(fromAmount, fromAnswer)
	num.Mul(num, pow10(int(to.Decimals)+int(toFeedDecimals)))
	den := new(big.Int).Mul(toAnswer, pow10(int(from.Decimals)+int(fromFeedDecimals)))
	rawToAmount := new(big.Int).Quo(num, den)

	// The cross rate is surfaced in the output feed's fixed-point scale.
	exchangeRate := new(big.Int).Mul(fromAnswer, pow10(int(toFeedDecimals)))
	exchangeRate.Quo(exchangeRate, toAnswer)

	rateBps, err := e.commissionRate(to)
	if err != nil {
		return nil, err
	}

	commission := new(big.Int).Mul(rawToAmount, new(big.Int).SetUint64(rateBps))
	commission.Quo(commission, basisPoints)
	toStakers := new(big.Int).Mul(commission, new(big.Int).SetUint64(e.params.StakerShareBps))
	toStakers.Quo(toStakers, basisPoints)
	toTreasury := new(big.Int).Sub(commission, toStakers)
	netToAmount := new(big.Int).Sub(rawToAmount, commission)

	return &quote{
		exchangeRate: exchangeRate,
		rawToAmount:  rawToAmount,
		commission:   commission,
		toStakers:    toStakers,
		toTreasury:   toTreasury,
		netToAmount:  netToAmount,
		rateBps:      rateBps,
	}, nil
}

func (e *Engine) swapTokens(fromAddr, toAddr crypto.Address) (*Token, *Token, error) {
	from, err := e.state.GetToken(fromAddr)
	if err != nil {
		return nil, nil, err
	}
	if from == nil {
		return nil, nil, ErrFromTokenNotFound
	}
	to, err := e.state.GetToken(toAddr)
	if err != nil {
		return nil, nil, err
	}
	if to == nil {
		return nil, nil, ErrToTokenNotFound
	}
	return from, to, nil
}

// EstimatedSwapDetails prices a prospective swap without touching any state:
// the cross rate, the net output after commission, and the commission amount.
func (e *Engine) EstimatedSwapDetails(fromAddr, toAddr crypto.Address, fromAmount *big.Int) (*SwapQuote, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	from, to, err := e.swapTokens(fromAddr, toAddr)
	if err != nil {
		return nil, err
	}
	if fromAmount == nil || fromAmount.Sign() <= 0 {
		return nil, errInvalidAmount
	}
	q, err := e.buildQuote(from, to, fromAmount)
	if err != nil {
		return nil, err
	}
	return &SwapQuote{
		ExchangeRate: q.exchangeRate,
		ToAmount:     q.netToAmount,
		CommissionTo: q.commission,
	}, nil
}

// Swap exchanges fromAmount of the input token for the output token at the
// oracle cross rate, charging the output token's commission. The commission
// stays in the engine's reserve: the staker share lands on the output pool's
// reward accumulator and the rest accrues to the treasury.
func (e *Engine) Swap(caller crypto.Address, fromAddr, toAddr crypto.Address, fromAmount *big.Int) (*SwapQuote, error) {
	return e.swap(caller, fromAddr, toAddr, fromAmount, nil)
}

// SwapWithSlippageCheck behaves like Swap but rejects the trade when the net
// output falls more than 0.5% short of the caller's expected amount.
func (e *Engine) SwapWithSlippageCheck(caller crypto.Address, fromAddr, toAddr crypto.Address, fromAmount, expectedToAmount *big.Int) (*SwapQuote, error) {
	if expectedToAmount == nil || expectedToAmount.Sign() <= 0 {
		return nil, errInvalidAmount
	}
	return e.swap(caller, fromAddr, toAddr, fromAmount, expectedToAmount)
}

func (e *Engine) swap(caller crypto.Address, fromAddr, toAddr crypto.Address, fromAmount, expectedToAmount *big.Int) (*SwapQuote, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	from, to, err := e.swapTokens(fromAddr, toAddr)
	if err != nil {
		return nil, err
	}
	if fromAmount == nil || fromAmount.Sign() <= 0 {
		return nil, errInvalidAmount
	}
	fromLedger, _, err := e.handles(fromAddr)
	if err != nil {
		return nil, err
	}
	toLedger, _, err := e.handles(toAddr)
	if err != nil {
		return nil, err
	}

	q, err := e.buildQuote(from, to, fromAmount)
	if err != nil {
		return nil, err
	}

	if expectedToAmount != nil {
		// netToAmount >= expected * (1 - tolerance), in integers.
		lhs := new(big.Int).Mul(q.netToAmount, basisPoints)
		rhs := new(big.Int).Mul(expectedToAmount, big.NewInt(10_000-slippageToleranceBps))
		if lhs.Cmp(rhs) < 0 {
			return nil, ErrSlippageExceeded
		}
	}

	balance, err := fromLedger.BalanceOf(caller)
	if err != nil {
		return nil, errTransfer
	}
	if balance == nil || balance.Cmp(fromAmount) < 0 {
		return nil, ErrInsufficientBalance
	}
	allowance, err := fromLedger.Allowance(caller, e.moduleAddress)
	if err != nil {
		return nil, errTransfer
	}
	if allowance == nil || allowance.Cmp(fromAmount) < 0 {
		return nil, ErrInsufficientAllowance
	}

	fromPool, err := e.ensurePool(fromAddr)
	if err != nil {
		return nil, err
	}
	toPool, err := e.ensurePool(toAddr)
	if err != nil {
		return nil, err
	}
	if toPool.ContractReserve.Cmp(q.netToAmount) < 0 {
		return nil, ErrInsufficientReserve
	}

	// Pull the input first; nothing is recorded yet if the pull fails.
	ok, err := fromLedger.TransferFrom(caller, e.moduleAddress, fromAmount)
	if err != nil || !ok {
		return nil, errTransfer
	}

	fromPool.ContractReserve = new(big.Int).Add(fromPool.ContractReserve, fromAmount)
	toPool.ContractReserve = new(big.Int).Sub(toPool.ContractReserve, q.netToAmount)
	creditReward(toPool, q.toStakers)
	toPool.TreasuryBalance = new(big.Int).Add(toPool.TreasuryBalance, q.toTreasury)

	if err := e.state.PutPool(fromAddr, fromPool); err != nil {
		return nil, err
	}
	if err := e.state.PutPool(toAddr, toPool); err != nil {
		return nil, err
	}

	// Outbound payout goes last. If it fails, restore both pools first so the
	// books never record a swap that paid nothing, then hand the pulled input
	// back. A refund failure on top leaves the input with the engine; the
	// restored pools make the surplus visible against the reserve.
	ok, err = toLedger.Transfer(caller, q.netToAmount)
	if err != nil || !ok {
		fromPool.ContractReserve = new(big.Int).Sub(fromPool.ContractReserve, fromAmount)
		toPool.ContractReserve = new(big.Int).Add(toPool.ContractReserve, q.netToAmount)
		toPool.TreasuryBalance = new(big.Int).Sub(toPool.TreasuryBalance, q.toTreasury)
		uncredit(toPool, q.toStakers)
		if putErr := e.state.PutPool(fromAddr, fromPool); putErr != nil {
			return nil, putErr
		}
		if putErr := e.state.PutPool(toAddr, toPool); putErr != nil {
			return nil, putErr
		}
		if refunded, refundErr := fromLedger.Transfer(caller, fromAmount); refundErr != nil || !refunded {
			return nil, errRefund
		}
		return nil, errTransfer
	}

	e.emit(newSwappedEvent(caller, fromAddr, toAddr, fromAmount, q))
	return &SwapQuote{
		ExchangeRate: q.exchangeRate,
		ToAmount:     q.netToAmount,
		CommissionTo: q.commission,
	}, nil
}

// uncredit reverses a creditReward applied in the same operation. It exists
// only for the abort path above, where no settlement can have observed the
// increment yet.
func uncredit(pool *Pool, amount *big.Int) {
	if amount == nil || amount.Sign() == 0 {
		return
	}
	if pool.TotalStaked.Sign() == 0 {
		pool.TreasuryBalance = new(big.Int).Sub(pool.TreasuryBalance, amount)
		return
	}
	increment := new(big.Int).Mul(amount, rewardScale)
	increment.Quo(increment, pool.TotalStaked)
	pool.AccRewardPerShare = new(big.Int).Sub(pool.AccRewardPerShare, increment)
}
