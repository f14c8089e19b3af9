package dex

import (
	"errors"
	"math/big"
	"testing"
)

func TestCommissionRateScalesWithValueShare(t *testing.T) {
	env := newTestEnv(t)
	btc, _ := env.addToken(t, 0x10, "BTC", 8, big.NewInt(2_000_000_000_000), 8)
	usdt, _ := env.addToken(t, 0x11, "USDT", 8, big.NewInt(100_000_000), 8)

	staker := testAddr(0x30)
	env.stake(t, btc, staker, big.NewInt(100_000_000))        // $20k
	env.stake(t, usdt, staker, big.NewInt(2_000_000_000_000)) // $20k

	// Equal value on both sides: each token holds half, rate = base * 2.
	rate, err := env.engine.CommissionRate(usdt.Address())
	if err != nil {
		t.Fatalf("commission rate: %v", err)
	}
	if rate != 2*DefaultBaseRateBps {
		t.Fatalf("expected %d bps, got %d", 2*DefaultBaseRateBps, rate)
	}

	// Quadrupling the BTC value thins USDT's share and raises its rate.
	env.stake(t, btc, staker, big.NewInt(300_000_000))
	thinned, err := env.engine.CommissionRate(usdt.Address())
	if err != nil {
		t.Fatalf("commission rate: %v", err)
	}
	if thinned <= rate {
		t.Fatalf("thinner pool must cost more: %d <= %d", thinned, rate)
	}
	// total $100k over $20k in USDT: base * 5.
	if thinned != 5*DefaultBaseRateBps {
		t.Fatalf("expected %d bps, got %d", 5*DefaultBaseRateBps, thinned)
	}

	// The deep side got cheaper than the thin side.
	deep, err := env.engine.CommissionRate(btc.Address())
	if err != nil {
		t.Fatalf("commission rate: %v", err)
	}
	if deep >= thinned {
		t.Fatalf("deep pool should quote below thin pool: %d >= %d", deep, thinned)
	}
}

func TestCommissionRateUnstackedPoolQuotesMax(t *testing.T) {
	env := newTestEnv(t)
	btc, _ := env.addToken(t, 0x10, "BTC", 8, big.NewInt(2_000_000_000_000), 8)

	rate, err := env.engine.CommissionRate(btc.Address())
	if err != nil {
		t.Fatalf("commission rate: %v", err)
	}
	if rate != DefaultMaxRateBps {
		t.Fatalf("expected max rate %d, got %d", DefaultMaxRateBps, rate)
	}
}

func TestCommissionRateClamps(t *testing.T) {
	env := newTestEnv(t)
	// A tiny base rate exposes the lower clamp: with a single token the value
	// ratio is 1, so the raw rate equals the base.
	env.engine.params = Params{BaseRateBps: 1, MinRateBps: 5, MaxRateBps: 50, StakerShareBps: 8_000}

	btc, _ := env.addToken(t, 0x10, "BTC", 8, big.NewInt(2_000_000_000_000), 8)
	usdt, _ := env.addToken(t, 0x11, "USDT", 8, big.NewInt(100_000_000), 8)

	staker := testAddr(0x30)
	env.stake(t, btc, staker, big.NewInt(100_000_000))
	rate, err := env.engine.CommissionRate(btc.Address())
	if err != nil {
		t.Fatalf("commission rate: %v", err)
	}
	if rate != 5 {
		t.Fatalf("expected lower clamp 5, got %d", rate)
	}

	// A sliver of USDT value drives its raw rate far past the upper clamp.
	env.stake(t, usdt, staker, big.NewInt(100_000_000)) // $1 against $20k
	rate, err = env.engine.CommissionRate(usdt.Address())
	if err != nil {
		t.Fatalf("commission rate: %v", err)
	}
	if rate != 50 {
		t.Fatalf("expected upper clamp 50, got %d", rate)
	}
}

func TestCommissionRateUnknownToken(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.engine.CommissionRate(testAddr(0x7f)); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound, got %v", err)
	}
}
