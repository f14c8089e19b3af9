package dex

import (
	"math/big"

	"alsmadex/core/events"
	"alsmadex/crypto"
)

func addr20(a crypto.Address) [20]byte {
	var out [20]byte
	copy(out[:], a.Bytes())
	return out
}

func newTokenCreatedEvent(token *Token) events.TokenCreated {
	return events.TokenCreated{
		Token:    addr20(token.Address),
		Feed:     addr20(token.FeedAddress),
		Symbol:   token.Symbol,
		Decimals: token.Decimals,
	}
}

func newStakedEvent(token, account crypto.Address, amount *big.Int, position *Position) events.Staked {
	return events.Staked{
		Token:   addr20(token),
		Account: addr20(account),
		Amount:  new(big.Int).Set(amount),
		Staked:  new(big.Int).Set(position.Staked),
		Earned:  new(big.Int).Set(position.Earned),
	}
}

func newUnstakedEvent(token, account crypto.Address, amount *big.Int, position *Position) events.Unstaked {
	return events.Unstaked{
		Token:   addr20(token),
		Account: addr20(account),
		Amount:  new(big.Int).Set(amount),
		Staked:  new(big.Int).Set(position.Staked),
		Earned:  new(big.Int).Set(position.Earned),
	}
}

func newSwappedEvent(caller crypto.Address, from, to crypto.Address, fromAmount *big.Int, q *quote) events.Swapped {
	return events.Swapped{
		Caller:     addr20(caller),
		FromToken:  addr20(from),
		ToToken:    addr20(to),
		FromAmount: new(big.Int).Set(fromAmount),
		ToAmount:   new(big.Int).Set(q.netToAmount),
		Commission: new(big.Int).Set(q.commission),
		ToStakers:  new(big.Int).Set(q.toStakers),
		ToTreasury: new(big.Int).Set(q.toTreasury),
	}
}

func newProfitsWithdrawnEvent(token, account crypto.Address, earned *big.Int) events.ProfitsWithdrawn {
	return events.ProfitsWithdrawn{
		Token:   addr20(token),
		Account: addr20(account),
		Earned:  new(big.Int).Set(earned),
	}
}

func newTreasuryWithdrawnEvent(token, owner crypto.Address, amount *big.Int) events.TreasuryWithdrawn {
	return events.TreasuryWithdrawn{
		Token:  addr20(token),
		Owner:  addr20(owner),
		Amount: new(big.Int).Set(amount),
	}
}
