package state

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"

	"alsmadex/crypto"
	"alsmadex/native/dex"
	"alsmadex/storage"
)

var (
	tokenPrefix    = []byte("dex/token/")
	tokenIndexKey  = []byte("dex/token-index")
	poolPrefix     = []byte("dex/pool/")
	positionPrefix = []byte("dex/position/")
)

// Manager persists exchange state in a key-value store using RLP encoding.
// It satisfies the engine's persistence interface; lookups return nil for
// absent records so the engine can lazily materialise pools and positions.
type Manager struct {
	db storage.Database
}

// NewManager wraps the supplied database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

type storedToken struct {
	Address      [20]byte
	FeedAddress  [20]byte
	Symbol       string
	Decimals     uint8
	FeedDecimals uint8
}

type storedPool struct {
	TotalStaked       *big.Int
	AccRewardPerShare *big.Int
	TreasuryBalance   *big.Int
	ContractReserve   *big.Int
}

type storedPosition struct {
	Account    [20]byte
	Staked     *big.Int
	RewardDebt *big.Int
	Earned     *big.Int
}

type storedTokenIndex struct {
	Addresses [][]byte
}

func tokenKey(addr crypto.Address) []byte {
	return append(append([]byte(nil), tokenPrefix...), hexAddr(addr)...)
}

func poolKey(addr crypto.Address) []byte {
	return append(append([]byte(nil), poolPrefix...), hexAddr(addr)...)
}

func positionKey(token, account crypto.Address) []byte {
	key := append([]byte(nil), positionPrefix...)
	key = append(key, hexAddr(token)...)
	key = append(key, '/')
	return append(key, hexAddr(account)...)
}

func hexAddr(addr crypto.Address) []byte {
	return []byte(hex.EncodeToString(addr.Bytes()))
}

func (m *Manager) get(key []byte, out interface{}) (bool, error) {
	raw, err := m.db.Get(key)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := rlp.DecodeBytes(raw, out); err != nil {
		return false, fmt.Errorf("state: decode %q: %w", key, err)
	}
	return true, nil
}

func (m *Manager) put(key []byte, value interface{}) error {
	raw, err := rlp.EncodeToBytes(value)
	if err != nil {
		return fmt.Errorf("state: encode %q: %w", key, err)
	}
	return m.db.Put(key, raw)
}

// GetToken returns the registry record for the address, or nil if absent.
func (m *Manager) GetToken(addr crypto.Address) (*dex.Token, error) {
	var stored storedToken
	ok, err := m.get(tokenKey(addr), &stored)
	if err != nil || !ok {
		return nil, err
	}
	return tokenFromStored(&stored), nil
}

// PutToken stores a new registry record and appends it to the registration
// order index.
func (m *Manager) PutToken(token *dex.Token) error {
	if token == nil {
		return fmt.Errorf("state: nil token")
	}
	stored := &storedToken{
		Symbol:       token.Symbol,
		Decimals:     token.Decimals,
		FeedDecimals: token.FeedDecimals,
	}
	copy(stored.Address[:], token.Address.Bytes())
	copy(stored.FeedAddress[:], token.FeedAddress.Bytes())
	if err := m.put(tokenKey(token.Address), stored); err != nil {
		return err
	}

	var index storedTokenIndex
	if _, err := m.get(tokenIndexKey, &index); err != nil {
		return err
	}
	for _, existing := range index.Addresses {
		if string(existing) == string(token.Address.Bytes()) {
			return nil
		}
	}
	index.Addresses = append(index.Addresses, append([]byte(nil), token.Address.Bytes()...))
	return m.put(tokenIndexKey, &index)
}

// TokenList returns every registered token in registration order.
func (m *Manager) TokenList() ([]*dex.Token, error) {
	var index storedTokenIndex
	if _, err := m.get(tokenIndexKey, &index); err != nil {
		return nil, err
	}
	tokens := make([]*dex.Token, 0, len(index.Addresses))
	for _, raw := range index.Addresses {
		addr := crypto.NewAddress(crypto.AlxPrefix, append([]byte(nil), raw...))
		token, err := m.GetToken(addr)
		if err != nil {
			return nil, err
		}
		if token == nil {
			return nil, fmt.Errorf("state: token index references missing record %x", raw)
		}
		tokens = append(tokens, token)
	}
	return tokens, nil
}

// GetPool returns the pool record for the token, or nil if absent.
func (m *Manager) GetPool(token crypto.Address) (*dex.Pool, error) {
	var stored storedPool
	ok, err := m.get(poolKey(token), &stored)
	if err != nil || !ok {
		return nil, err
	}
	return &dex.Pool{
		TotalStaked:       stored.TotalStaked,
		AccRewardPerShare: stored.AccRewardPerShare,
		TreasuryBalance:   stored.TreasuryBalance,
		ContractReserve:   stored.ContractReserve,
	}, nil
}

// PutPool stores the pool record for the token.
func (m *Manager) PutPool(token crypto.Address, pool *dex.Pool) error {
	if pool == nil {
		return fmt.Errorf("state: nil pool")
	}
	return m.put(poolKey(token), &storedPool{
		TotalStaked:       nonNil(pool.TotalStaked),
		AccRewardPerShare: nonNil(pool.AccRewardPerShare),
		TreasuryBalance:   nonNil(pool.TreasuryBalance),
		ContractReserve:   nonNil(pool.ContractReserve),
	})
}

// GetPosition returns the stake position for (token, account), or nil.
func (m *Manager) GetPosition(token, account crypto.Address) (*dex.Position, error) {
	var stored storedPosition
	ok, err := m.get(positionKey(token, account), &stored)
	if err != nil || !ok {
		return nil, err
	}
	return &dex.Position{
		Account:    crypto.NewAddress(crypto.AlxPrefix, append([]byte(nil), stored.Account[:]...)),
		Staked:     stored.Staked,
		RewardDebt: stored.RewardDebt,
		Earned:     stored.Earned,
	}, nil
}

// PutPosition stores the stake position under (token, position.Account).
func (m *Manager) PutPosition(token crypto.Address, position *dex.Position) error {
	if position == nil {
		return fmt.Errorf("state: nil position")
	}
	stored := &storedPosition{
		Staked:     nonNil(position.Staked),
		RewardDebt: nonNil(position.RewardDebt),
		Earned:     nonNil(position.Earned),
	}
	copy(stored.Account[:], position.Account.Bytes())
	return m.put(positionKey(token, position.Account), stored)
}

func tokenFromStored(stored *storedToken) *dex.Token {
	return &dex.Token{
		Address:      crypto.NewAddress(crypto.AlxPrefix, append([]byte(nil), stored.Address[:]...)),
		FeedAddress:  crypto.NewAddress(crypto.AlxPrefix, append([]byte(nil), stored.FeedAddress[:]...)),
		Symbol:       stored.Symbol,
		Decimals:     stored.Decimals,
		FeedDecimals: stored.FeedDecimals,
	}
}

func nonNil(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return v
}
