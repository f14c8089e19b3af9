package dex

import (
	"math/big"
	"sync"

	"alsmadex/crypto"
)

// MemoryLedger is an in-process fungible-token ledger satisfying TokenLedger.
// It backs the test suite and the local development daemon; production
// deployments bind real external ledgers instead.
type MemoryLedger struct {
	mu         sync.Mutex
	address    crypto.Address
	symbol     string
	decimals   uint8
	operator   crypto.Address
	balances   map[string]*big.Int
	allowances map[string]map[string]*big.Int
}

// NewMemoryLedger constructs an empty ledger with the given identity.
func NewMemoryLedger(address crypto.Address, symbol string, decimals uint8) *MemoryLedger {
	return &MemoryLedger{
		address:    address,
		symbol:     symbol,
		decimals:   decimals,
		balances:   make(map[string]*big.Int),
		allowances: make(map[string]map[string]*big.Int),
	}
}

func (l *MemoryLedger) Address() crypto.Address { return l.address }

// SetOperator fixes the account debited by direct Transfer calls. The engine
// transfers out of its own module account, so fixtures set it to that address.
func (l *MemoryLedger) SetOperator(operator crypto.Address) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.operator = operator
}

func (l *MemoryLedger) Symbol() (string, error) { return l.symbol, nil }

func (l *MemoryLedger) Decimals() (uint8, error) { return l.decimals, nil }

// Mint credits freshly created tokens to the account.
func (l *MemoryLedger) Mint(account crypto.Address, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := string(account.Bytes())
	l.balances[key] = new(big.Int).Add(l.balanceLocked(key), amount)
}

func (l *MemoryLedger) balanceLocked(key string) *big.Int {
	if bal, ok := l.balances[key]; ok {
		return bal
	}
	return big.NewInt(0)
}

func (l *MemoryLedger) BalanceOf(account crypto.Address) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(big.Int).Set(l.balanceLocked(string(account.Bytes()))), nil
}

// Approve authorises spender to move up to amount on behalf of owner.
func (l *MemoryLedger) Approve(owner, spender crypto.Address, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ownerKey := string(owner.Bytes())
	if l.allowances[ownerKey] == nil {
		l.allowances[ownerKey] = make(map[string]*big.Int)
	}
	l.allowances[ownerKey][string(spender.Bytes())] = new(big.Int).Set(amount)
}

func (l *MemoryLedger) Allowance(owner, spender crypto.Address) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if spenders, ok := l.allowances[string(owner.Bytes())]; ok {
		if allowance, ok := spenders[string(spender.Bytes())]; ok {
			return new(big.Int).Set(allowance), nil
		}
	}
	return big.NewInt(0), nil
}

// Transfer moves amount out of the operator account. It mirrors the
// msg.sender semantics of an on-chain ledger, where the engine contract is
// the sender of its own payouts.
func (l *MemoryLedger) Transfer(to crypto.Address, amount *big.Int) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.moveLocked(string(l.operator.Bytes()), string(to.Bytes()), amount), nil
}

func (l *MemoryLedger) TransferFrom(from, to crypto.Address, amount *big.Int) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.moveLocked(string(from.Bytes()), string(to.Bytes()), amount), nil
}

func (l *MemoryLedger) moveLocked(fromKey, toKey string, amount *big.Int) bool {
	balance := l.balanceLocked(fromKey)
	if balance.Cmp(amount) < 0 {
		return false
	}
	l.balances[fromKey] = new(big.Int).Sub(balance, amount)
	l.balances[toKey] = new(big.Int).Add(l.balanceLocked(toKey), amount)
	return true
}

// StaticFeed is a fixed-answer PriceFeed used by tests and local fixtures,
// mirroring the mock data feeds the exchange was originally validated against.
type StaticFeed struct {
	address  crypto.Address
	answer   *big.Int
	decimals uint8
}

// NewStaticFeed returns a feed that always reports the given answer.
func NewStaticFeed(address crypto.Address, answer *big.Int, decimals uint8) *StaticFeed {
	return &StaticFeed{address: address, answer: new(big.Int).Set(answer), decimals: decimals}
}

func (f *StaticFeed) Address() crypto.Address { return f.address }

func (f *StaticFeed) Decimals() (uint8, error) { return f.decimals, nil }

func (f *StaticFeed) LatestPrice() (*big.Int, uint8, error) {
	return new(big.Int).Set(f.answer), f.decimals, nil
}

// SetAnswer updates the reported price; handy for slippage scenarios.
func (f *StaticFeed) SetAnswer(answer *big.Int) {
	f.answer = new(big.Int).Set(answer)
}
