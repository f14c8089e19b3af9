package events

import (
	"math/big"
	"strconv"

	"alsmadex/core/types"
	"alsmadex/crypto"
)

const (
	// TypeTokenCreated is emitted when the owner registers a new tradeable token.
	TypeTokenCreated = "dex.tokenCreated"
	// TypeStaked captures a deposit into a token's staking pool.
	TypeStaked = "dex.staked"
	// TypeUnstaked captures a withdrawal from a token's staking pool.
	TypeUnstaked = "dex.unstaked"
	// TypeSwapped is emitted when a cross-token swap commits.
	TypeSwapped = "dex.swapped"
	// TypeProfitsWithdrawn is emitted when a staker claims accrued commission rewards.
	TypeProfitsWithdrawn = "dex.profitsWithdrawn"
	// TypeTreasuryWithdrawn is emitted when the owner drains a token's treasury balance.
	TypeTreasuryWithdrawn = "dex.treasuryWithdrawn"
)

// TokenCreated captures the metadata recorded for a freshly registered token.
type TokenCreated struct {
	Token    [20]byte
	Feed     [20]byte
	Symbol   string
	Decimals uint8
}

// EventType satisfies the Event interface.
func (TokenCreated) EventType() string { return TypeTokenCreated }

// Event converts the structured payload into a broadcastable event.
func (e TokenCreated) Event() *types.Event {
	return &types.Event{Type: TypeTokenCreated, Attributes: map[string]string{
		"token":    crypto.MustNewAddress(crypto.AlxPrefix, e.Token[:]).String(),
		"feed":     crypto.MustNewAddress(crypto.AlxPrefix, e.Feed[:]).String(),
		"symbol":   e.Symbol,
		"decimals": strconv.FormatUint(uint64(e.Decimals), 10),
	}}
}

// Staked captures the position realised after a stake deposit.
type Staked struct {
	Token   [20]byte
	Account [20]byte
	Amount  *big.Int
	Staked  *big.Int
	Earned  *big.Int
}

// EventType satisfies the Event interface.
func (Staked) EventType() string { return TypeStaked }

// Event converts the structured payload into a broadcastable event.
func (e Staked) Event() *types.Event {
	return &types.Event{Type: TypeStaked, Attributes: map[string]string{
		"token":  crypto.MustNewAddress(crypto.AlxPrefix, e.Token[:]).String(),
		"addr":   crypto.MustNewAddress(crypto.AlxPrefix, e.Account[:]).String(),
		"amount": formatAmount(e.Amount),
		"staked": formatAmount(e.Staked),
		"earned": formatAmount(e.Earned),
	}}
}

// Unstaked captures the position realised after a stake withdrawal.
type Unstaked struct {
	Token   [20]byte
	Account [20]byte
	Amount  *big.Int
	Staked  *big.Int
	Earned  *big.Int
}

// EventType satisfies the Event interface.
func (Unstaked) EventType() string { return TypeUnstaked }

// Event converts the structured payload into a broadcastable event.
func (e Unstaked) Event() *types.Event {
	return &types.Event{Type: TypeUnstaked, Attributes: map[string]string{
		"token":  crypto.MustNewAddress(crypto.AlxPrefix, e.Token[:]).String(),
		"addr":   crypto.MustNewAddress(crypto.AlxPrefix, e.Account[:]).String(),
		"amount": formatAmount(e.Amount),
		"staked": formatAmount(e.Staked),
		"earned": formatAmount(e.Earned),
	}}
}

// Swapped captures the amounts realised by a committed swap.
type Swapped struct {
	Caller     [20]byte
	FromToken  [20]byte
	ToToken    [20]byte
	FromAmount *big.Int
	ToAmount   *big.Int
	Commission *big.Int
	ToStakers  *big.Int
	ToTreasury *big.Int
}

// EventType satisfies the Event interface.
func (Swapped) EventType() string { return TypeSwapped }

// Event converts the structured payload into a broadcastable event.
func (e Swapped) Event() *types.Event {
	return &types.Event{Type: TypeSwapped, Attributes: map[string]string{
		"addr":       crypto.MustNewAddress(crypto.AlxPrefix, e.Caller[:]).String(),
		"fromToken":  crypto.MustNewAddress(crypto.AlxPrefix, e.FromToken[:]).String(),
		"toToken":    crypto.MustNewAddress(crypto.AlxPrefix, e.ToToken[:]).String(),
		"fromAmount": formatAmount(e.FromAmount),
		"toAmount":   formatAmount(e.ToAmount),
		"commission": formatAmount(e.Commission),
		"toStakers":  formatAmount(e.ToStakers),
		"toTreasury": formatAmount(e.ToTreasury),
	}}
}

// ProfitsWithdrawn captures a staker claiming their accrued commission rewards.
type ProfitsWithdrawn struct {
	Token   [20]byte
	Account [20]byte
	Earned  *big.Int
}

// EventType satisfies the Event interface.
func (ProfitsWithdrawn) EventType() string { return TypeProfitsWithdrawn }

// Event converts the structured payload into a broadcastable event.
func (e ProfitsWithdrawn) Event() *types.Event {
	return &types.Event{Type: TypeProfitsWithdrawn, Attributes: map[string]string{
		"token":  crypto.MustNewAddress(crypto.AlxPrefix, e.Token[:]).String(),
		"addr":   crypto.MustNewAddress(crypto.AlxPrefix, e.Account[:]).String(),
		"earned": formatAmount(e.Earned),
	}}
}

// TreasuryWithdrawn captures the owner draining a token's treasury balance.
type TreasuryWithdrawn struct {
	Token  [20]byte
	Owner  [20]byte
	Amount *big.Int
}

// EventType satisfies the Event interface.
func (TreasuryWithdrawn) EventType() string { return TypeTreasuryWithdrawn }

// Event converts the structured payload into a broadcastable event.
func (e TreasuryWithdrawn) Event() *types.Event {
	return &types.Event{Type: TypeTreasuryWithdrawn, Attributes: map[string]string{
		"token":  crypto.MustNewAddress(crypto.AlxPrefix, e.Token[:]).String(),
		"addr":   crypto.MustNewAddress(crypto.AlxPrefix, e.Owner[:]).String(),
		"amount": formatAmount(e.Amount),
	}}
}

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
