package dex

import (
	"fmt"
	"math/big"
	"sync"

	"alsmadex/core/events"
	"alsmadex/crypto"
	nativecommon "alsmadex/native/common"
)

// engineState is the persistence surface the engine requires. Tokens keep
// registration order; lookups return nil (not an error) for absent records.
type engineState interface {
	GetToken(addr crypto.Address) (*Token, error)
	PutToken(token *Token) error
	TokenList() ([]*Token, error)
	GetPool(token crypto.Address) (*Pool, error)
	PutPool(token crypto.Address, pool *Pool) error
	GetPosition(token, account crypto.Address) (*Position, error)
	PutPosition(token crypto.Address, position *Position) error
}

// Engine orchestrates the exchange: token registry, staking ledger, swap
// execution, and treasury settlement. Every public operation takes the caller
// identity explicitly and executes under a single mutex, so state transitions
// never interleave.
type Engine struct {
	mu sync.Mutex

	state         engineState
	owner         crypto.Address
	moduleAddress crypto.Address
	params        Params
	emitter       events.Emitter
	pauses        nativecommon.PauseView

	ledgers map[string]TokenLedger
	feeds   map[string]PriceFeed
}

// NewEngine constructs an engine owned by the given account. The module
// address is the identity the engine uses on external token ledgers: stakes
// and swap inputs are pulled into it, payouts flow out of it.
func NewEngine(owner, moduleAddress crypto.Address, params Params) *Engine {
	return &Engine{
		owner:         owner,
		moduleAddress: moduleAddress,
		params:        params.Normalize(),
		emitter:       events.NoopEmitter{},
		ledgers:       make(map[string]TokenLedger),
		feeds:         make(map[string]PriceFeed),
	}
}

// SetState wires the engine to its persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetEmitter wires the engine's event sink. A nil emitter silences events.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetPauses wires the operational pause switches.
func (e *Engine) SetPauses(p nativecommon.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
}

// Owner returns the privileged account fixed at construction.
func (e *Engine) Owner() crypto.Address { return e.owner }

// ModuleAddress returns the engine's own account on external ledgers.
func (e *Engine) ModuleAddress() crypto.Address { return e.moduleAddress }

func (e *Engine) emit(ev events.Event) {
	if e.emitter != nil {
		e.emitter.Emit(ev)
	}
}

// AddToken registers a tradeable token bound to a price feed. Only the owner
// may register; the handles are probed for the expected read surface before
// anything is stored, so a misbehaving contract is rejected at the boundary.
func (e *Engine) AddToken(caller crypto.Address, ledger TokenLedger, feed PriceFeed) (*Token, error) {
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
	if ledger == nil || feed == nil {
		return nil, ErrInvalidInterface
	}

	addr := ledger.Address()
	existing, err := e.state.GetToken(addr)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrDuplicateToken
	}

	symbol, err := ledger.Symbol()
	if err != nil || symbol == "" {
		return nil, ErrInvalidInterface
	}
	decimals, err := ledger.Decimals()
	if err != nil {
		return nil, ErrInvalidInterface
	}
	answer, feedDecimals, err := feed.LatestPrice()
	if err != nil || answer == nil || answer.Sign() <= 0 {
		return nil, ErrInvalidInterface
	}

	token := &Token{
		Address:      addr,
		FeedAddress:  feed.Address(),
		Symbol:       symbol,
		Decimals:     decimals,
		FeedDecimals: feedDecimals,
	}
	if err := e.state.PutToken(token); err != nil {
		return nil, err
	}
	e.bind(ledger, feed)

	e.emit(newTokenCreatedEvent(token))
	return token.Clone(), nil
}

// BindToken reattaches live handles for a token that is already registered.
// Registration persists only addresses, so a restarted process rebinds its
// collaborators before serving traffic.
func (e *Engine) BindToken(ledger TokenLedger, feed PriceFeed) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if ledger == nil || feed == nil {
		return ErrInvalidInterface
	}
	token, err := e.state.GetToken(ledger.Address())
	if err != nil {
		return err
	}
	if token == nil {
		return ErrTokenNotFound
	}
	if !token.FeedAddress.Equal(feed.Address()) {
		return fmt.Errorf("dex engine: feed %s does not match registered feed %s", feed.Address(), token.FeedAddress)
	}
	e.bind(ledger, feed)
	return nil
}

func (e *Engine) bind(ledger TokenLedger, feed PriceFeed) {
	key := string(ledger.Address().Bytes())
	e.ledgers[key] = ledger
	e.feeds[key] = feed
}

// TokenList returns every registered token in registration order.
func (e *Engine) TokenList() ([]*Token, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	tokens, err := e.state.TokenList()
	if err != nil {
		return nil, err
	}
	out := make([]*Token, 0, len(tokens))
	for _, token := range tokens {
		out = append(out, token.Clone())
	}
	return out, nil
}

// TokenDetails returns the registry record plus the caller's external balance,
// the current oracle answer, and the current commission rate for the token.
func (e *Engine) TokenDetails(caller, tokenAddr crypto.Address) (*TokenDetails, error) {
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
	ledger, _, err := e.handles(tokenAddr)
	if err != nil {
		return nil, err
	}
	balance, err := ledger.BalanceOf(caller)
	if err != nil {
		return nil, fmt.Errorf("dex engine: balance read: %w", err)
	}
	answer, _, err := e.latestPrice(token)
	if err != nil {
		return nil, err
	}
	rate, err := e.commissionRate(token)
	if err != nil {
		return nil, err
	}
	return &TokenDetails{
		Token:          token.Clone(),
		Balance:        balance,
		ExchangeRate:   answer,
		CommissionRate: rate,
	}, nil
}

func (e *Engine) handles(tokenAddr crypto.Address) (TokenLedger, PriceFeed, error) {
	key := string(tokenAddr.Bytes())
	ledger, ok := e.ledgers[key]
	if !ok {
		return nil, nil, errTokenNotBound
	}
	feed, ok := e.feeds[key]
	if !ok {
		return nil, nil, errTokenNotBound
	}
	return ledger, feed, nil
}

// latestPrice reads the oracle answer for a registered token and rejects
// non-positive observations.
func (e *Engine) latestPrice(token *Token) (*big.Int, uint8, error) {
	_, feed, err := e.handles(token.Address)
	if err != nil {
		return nil, 0, err
	}
	answer, decimals, err := feed.LatestPrice()
	if err != nil {
		return nil, 0, fmt.Errorf("dex engine: price read: %w", err)
	}
	if answer == nil || answer.Sign() <= 0 {
		return nil, 0, errOraclePrice
	}
	return answer, decimals, nil
}

func (e *Engine) ensurePool(tokenAddr crypto.Address) (*Pool, error) {
	pool, err := e.state.GetPool(tokenAddr)
	if err != nil {
		return nil, err
	}
	if pool == nil {
		pool = &Pool{}
	}
	if pool.TotalStaked == nil {
		pool.TotalStaked = big.NewInt(0)
	}
	if pool.AccRewardPerShare == nil {
		pool.AccRewardPerShare = big.NewInt(0)
	}
	if pool.TreasuryBalance == nil {
		pool.TreasuryBalance = big.NewInt(0)
	}
	if pool.ContractReserve == nil {
		pool.ContractReserve = big.NewInt(0)
	}
	return pool, nil
}

func (e *Engine) ensurePosition(tokenAddr, account crypto.Address) (*Position, error) {
	position, err := e.state.GetPosition(tokenAddr, account)
	if err != nil {
		return nil, err
	}
	if position == nil {
		position = &Position{Account: account}
	}
	if position.Staked == nil {
		position.Staked = big.NewInt(0)
	}
	if position.RewardDebt == nil {
		position.RewardDebt = big.NewInt(0)
	}
	if position.Earned == nil {
		position.Earned = big.NewInt(0)
	}
	return position, nil
}
