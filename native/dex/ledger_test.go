package dex

import (
	"errors"
	"math/big"
	"testing"
)

func TestSettleRealisesPendingReward(t *testing.T) {
	pool := &Pool{
		TotalStaked:       big.NewInt(1_000),
		AccRewardPerShare: big.NewInt(0),
		TreasuryBalance:   big.NewInt(0),
		ContractReserve:   big.NewInt(1_000),
	}
	position := &Position{
		Staked:     big.NewInt(400),
		RewardDebt: big.NewInt(0),
		Earned:     big.NewInt(0),
	}

	creditReward(pool, big.NewInt(100))
	settle(position, pool)

	if position.Earned.Cmp(big.NewInt(40)) != 0 {
		t.Fatalf("expected 40 earned, got %s", position.Earned)
	}
	if position.RewardDebt.Cmp(pool.AccRewardPerShare) != 0 {
		t.Fatalf("settle must advance the debt snapshot")
	}

	// Settling again without new rewards accrues nothing.
	settle(position, pool)
	if position.Earned.Cmp(big.NewInt(40)) != 0 {
		t.Fatalf("double settle changed earned to %s", position.Earned)
	}
}

func TestCreditRewardWithoutStakersFallsToTreasury(t *testing.T) {
	pool := &Pool{
		TotalStaked:       big.NewInt(0),
		AccRewardPerShare: big.NewInt(0),
		TreasuryBalance:   big.NewInt(0),
		ContractReserve:   big.NewInt(0),
	}
	creditReward(pool, big.NewInt(77))
	if pool.TreasuryBalance.Cmp(big.NewInt(77)) != 0 {
		t.Fatalf("expected orphaned reward in treasury, got %s", pool.TreasuryBalance)
	}
	if pool.AccRewardPerShare.Sign() != 0 {
		t.Fatalf("accumulator must stay untouched with no stakers")
	}
}

func TestRewardDistributionIsProportional(t *testing.T) {
	pool := &Pool{
		TotalStaked:       big.NewInt(4_000),
		AccRewardPerShare: big.NewInt(0),
		TreasuryBalance:   big.NewInt(0),
		ContractReserve:   big.NewInt(4_000),
	}
	alice := &Position{Staked: big.NewInt(3_000), RewardDebt: big.NewInt(0), Earned: big.NewInt(0)}
	bob := &Position{Staked: big.NewInt(1_000), RewardDebt: big.NewInt(0), Earned: big.NewInt(0)}

	creditReward(pool, big.NewInt(1_000))
	settle(alice, pool)
	settle(bob, pool)

	if alice.Earned.Cmp(big.NewInt(750)) != 0 {
		t.Fatalf("alice expected 750, got %s", alice.Earned)
	}
	if bob.Earned.Cmp(big.NewInt(250)) != 0 {
		t.Fatalf("bob expected 250, got %s", bob.Earned)
	}
}

func TestStakePullsTokensIntoEngine(t *testing.T) {
	env := newTestEnv(t)
	ledger, _ := env.addToken(t, 0x10, "BTC", 8, big.NewInt(2_000_000_000_000), 8)

	caller := testAddr(0x20)
	amount := big.NewInt(100_000_000)
	ledger.Mint(caller, amount)
	ledger.Approve(caller, env.module, amount)

	details, err := env.engine.Stake(caller, ledger.Address(), amount)
	if err != nil {
		t.Fatalf("stake: %v", err)
	}
	if details.Staked.Cmp(amount) != 0 {
		t.Fatalf("expected staked %s, got %s", amount, details.Staked)
	}
	if details.Earned.Sign() != 0 {
		t.Fatalf("fresh position earned %s", details.Earned)
	}

	callerBalance, _ := ledger.BalanceOf(caller)
	if callerBalance.Sign() != 0 {
		t.Fatalf("caller still holds %s", callerBalance)
	}
	moduleBalance, _ := ledger.BalanceOf(env.module)
	if moduleBalance.Cmp(amount) != 0 {
		t.Fatalf("engine holds %s, expected %s", moduleBalance, amount)
	}

	pool, _ := env.state.GetPool(ledger.Address())
	if pool.TotalStaked.Cmp(amount) != 0 || pool.ContractReserve.Cmp(amount) != 0 {
		t.Fatalf("pool not credited: staked=%s reserve=%s", pool.TotalStaked, pool.ContractReserve)
	}
	total, err := env.engine.TotalStaked(ledger.Address())
	if err != nil {
		t.Fatalf("total staked: %v", err)
	}
	if total.Cmp(amount) != 0 {
		t.Fatalf("total staked %s, expected %s", total, amount)
	}
}

func TestStakeValidations(t *testing.T) {
	env := newTestEnv(t)
	ledger, _ := env.addToken(t, 0x10, "BTC", 8, big.NewInt(2_000_000_000_000), 8)
	caller := testAddr(0x20)

	if _, err := env.engine.Stake(caller, testAddr(0x7f), big.NewInt(1)); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound, got %v", err)
	}
	if _, err := env.engine.Stake(caller, ledger.Address(), big.NewInt(10)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	ledger.Mint(caller, big.NewInt(10))
	if _, err := env.engine.Stake(caller, ledger.Address(), big.NewInt(10)); !errors.Is(err, ErrInsufficientAllowance) {
		t.Fatalf("expected ErrInsufficientAllowance, got %v", err)
	}
}

func TestUnstakeReturnsTokens(t *testing.T) {
	env := newTestEnv(t)
	ledger, _ := env.addToken(t, 0x10, "BTC", 8, big.NewInt(2_000_000_000_000), 8)
	caller := testAddr(0x20)
	env.stake(t, ledger, caller, big.NewInt(1_000))

	details, err := env.engine.Unstake(caller, ledger.Address(), big.NewInt(400))
	if err != nil {
		t.Fatalf("unstake: %v", err)
	}
	if details.Staked.Cmp(big.NewInt(600)) != 0 {
		t.Fatalf("expected 600 staked, got %s", details.Staked)
	}
	balance, _ := ledger.BalanceOf(caller)
	if balance.Cmp(big.NewInt(400)) != 0 {
		t.Fatalf("expected 400 returned, got %s", balance)
	}

	pool, _ := env.state.GetPool(ledger.Address())
	if pool.TotalStaked.Cmp(big.NewInt(600)) != 0 || pool.ContractReserve.Cmp(big.NewInt(600)) != 0 {
		t.Fatalf("pool not debited: staked=%s reserve=%s", pool.TotalStaked, pool.ContractReserve)
	}
}

func TestUnstakeRejectsOverdraw(t *testing.T) {
	env := newTestEnv(t)
	ledger, _ := env.addToken(t, 0x10, "BTC", 8, big.NewInt(2_000_000_000_000), 8)
	caller := testAddr(0x20)

	if _, err := env.engine.Unstake(caller, ledger.Address(), big.NewInt(1)); !errors.Is(err, ErrNothingToUnstake) {
		t.Fatalf("no position: expected ErrNothingToUnstake, got %v", err)
	}

	env.stake(t, ledger, caller, big.NewInt(100))
	if _, err := env.engine.Unstake(caller, ledger.Address(), big.NewInt(101)); !errors.Is(err, ErrNothingToUnstake) {
		t.Fatalf("overdraw: expected ErrNothingToUnstake, got %v", err)
	}
	if _, err := env.engine.Unstake(caller, ledger.Address(), big.NewInt(0)); !errors.Is(err, ErrNothingToUnstake) {
		t.Fatalf("zero: expected ErrNothingToUnstake, got %v", err)
	}
}

func TestStakeDetailsForIncludesPendingReward(t *testing.T) {
	env := newTestEnv(t)
	btc, _ := env.addToken(t, 0x10, "BTC", 8, big.NewInt(2_000_000_000_000), 8)
	usdt, _ := env.addToken(t, 0x11, "USDT", 8, big.NewInt(100_000_000), 8)

	staker := testAddr(0x20)
	trader := testAddr(0x21)
	env.stake(t, btc, staker, big.NewInt(100_000_000))
	env.stake(t, usdt, staker, big.NewInt(2_000_000_000_000))

	fromAmount := big.NewInt(100_000)
	btc.Mint(trader, fromAmount)
	btc.Approve(trader, env.module, fromAmount)
	if _, err := env.engine.Swap(trader, btc.Address(), usdt.Address(), fromAmount); err != nil {
		t.Fatalf("swap: %v", err)
	}

	details, err := env.engine.StakeDetailsFor(usdt.Address(), staker)
	if err != nil {
		t.Fatalf("stake details: %v", err)
	}
	if details.Earned.Sign() <= 0 {
		t.Fatalf("staker should have earned a reward, got %s", details.Earned)
	}

	// The read must not persist the settlement.
	stored, _ := env.state.GetPosition(usdt.Address(), staker)
	if stored.Earned.Sign() != 0 {
		t.Fatalf("read-only settlement was persisted: %s", stored.Earned)
	}
}

func TestWithdrawStakingProfits(t *testing.T) {
	env := newTestEnv(t)
	btc, _ := env.addToken(t, 0x10, "BTC", 8, big.NewInt(2_000_000_000_000), 8)
	usdt, _ := env.addToken(t, 0x11, "USDT", 8, big.NewInt(100_000_000), 8)

	staker := testAddr(0x20)
	trader := testAddr(0x21)
	env.stake(t, btc, staker, big.NewInt(100_000_000))
	env.stake(t, usdt, staker, big.NewInt(2_000_000_000_000))

	fromAmount := big.NewInt(100_000)
	btc.Mint(trader, fromAmount)
	btc.Approve(trader, env.module, fromAmount)
	if _, err := env.engine.Swap(trader, btc.Address(), usdt.Address(), fromAmount); err != nil {
		t.Fatalf("swap: %v", err)
	}

	before, _ := usdt.BalanceOf(staker)
	earned, err := env.engine.WithdrawStakingProfits(staker, usdt.Address())
	if err != nil {
		t.Fatalf("withdraw profits: %v", err)
	}
	if earned.Sign() <= 0 {
		t.Fatalf("expected positive payout, got %s", earned)
	}
	after, _ := usdt.BalanceOf(staker)
	if diff := new(big.Int).Sub(after, before); diff.Cmp(earned) != 0 {
		t.Fatalf("payout mismatch: earned %s, received %s", earned, diff)
	}

	// A second withdrawal has nothing left and moves no tokens.
	again, err := env.engine.WithdrawStakingProfits(staker, usdt.Address())
	if err != nil {
		t.Fatalf("second withdraw: %v", err)
	}
	if again.Sign() != 0 {
		t.Fatalf("expected zero payout, got %s", again)
	}
}

func TestStakeRewardsSurviveRestake(t *testing.T) {
	env := newTestEnv(t)
	btc, _ := env.addToken(t, 0x10, "BTC", 8, big.NewInt(2_000_000_000_000), 8)
	usdt, _ := env.addToken(t, 0x11, "USDT", 8, big.NewInt(100_000_000), 8)

	staker := testAddr(0x20)
	trader := testAddr(0x21)
	env.stake(t, btc, staker, big.NewInt(100_000_000))
	env.stake(t, usdt, staker, big.NewInt(2_000_000_000_000))

	fromAmount := big.NewInt(100_000)
	btc.Mint(trader, fromAmount)
	btc.Approve(trader, env.module, fromAmount)
	if _, err := env.engine.Swap(trader, btc.Address(), usdt.Address(), fromAmount); err != nil {
		t.Fatalf("swap: %v", err)
	}

	// Staking more settles the pending reward into Earned instead of losing it.
	more := big.NewInt(1_000_000)
	usdt.Mint(staker, more)
	usdt.Approve(staker, env.module, more)
	details, err := env.engine.Stake(staker, usdt.Address(), more)
	if err != nil {
		t.Fatalf("restake: %v", err)
	}
	if details.Earned.Sign() <= 0 {
		t.Fatalf("restake dropped the pending reward")
	}
}
