package dex

import (
	"errors"
	"math/big"
	"testing"
)

func TestWithdrawTreasury(t *testing.T) {
	env, btc, usdt := swapEnv(t)
	trader := testAddr(0x40)
	fromAmount := big.NewInt(100_000)
	btc.Mint(trader, fromAmount)
	btc.Approve(trader, env.module, fromAmount)
	if _, err := env.engine.Swap(trader, btc.Address(), usdt.Address(), fromAmount); err != nil {
		t.Fatalf("swap: %v", err)
	}

	balance, err := env.engine.TreasuryBalance(usdt.Address())
	if err != nil {
		t.Fatalf("treasury balance: %v", err)
	}
	if balance.Cmp(big.NewInt(800_000)) != 0 {
		t.Fatalf("expected 800000 in treasury, got %s", balance)
	}

	if _, err := env.engine.WithdrawTreasury(trader, usdt.Address()); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	before, _ := usdt.BalanceOf(env.owner)
	amount, err := env.engine.WithdrawTreasury(env.owner, usdt.Address())
	if err != nil {
		t.Fatalf("withdraw treasury: %v", err)
	}
	if amount.Cmp(balance) != 0 {
		t.Fatalf("withdrew %s, expected %s", amount, balance)
	}
	after, _ := usdt.BalanceOf(env.owner)
	if diff := new(big.Int).Sub(after, before); diff.Cmp(balance) != 0 {
		t.Fatalf("owner received %s, expected %s", diff, balance)
	}

	drained, err := env.engine.TreasuryBalance(usdt.Address())
	if err != nil {
		t.Fatalf("treasury balance: %v", err)
	}
	if drained.Sign() != 0 {
		t.Fatalf("treasury not drained: %s", drained)
	}
}

func TestWithdrawTreasuryEmpty(t *testing.T) {
	env := newTestEnv(t)
	btc, _ := env.addToken(t, 0x10, "BTC", 8, big.NewInt(2_000_000_000_000), 8)

	amount, err := env.engine.WithdrawTreasury(env.owner, btc.Address())
	if err != nil {
		t.Fatalf("withdraw empty treasury: %v", err)
	}
	if amount.Sign() != 0 {
		t.Fatalf("expected zero withdrawal, got %s", amount)
	}

	if _, err := env.engine.WithdrawTreasury(env.owner, testAddr(0x7f)); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound, got %v", err)
	}
}
