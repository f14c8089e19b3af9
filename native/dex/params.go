package dex

import "math/big"

// rewardScale is the fixed-point scale applied to the per-share reward
// accumulator. 1e18 keeps truncation dust negligible even for tokens with
// large staked totals.
var rewardScale = big.NewInt(1_000_000_000_000_000_000)

var basisPoints = big.NewInt(10_000)

// slippageToleranceBps is the fixed tolerance applied by checked swaps:
// the realised output may fall at most 0.5% short of the caller's estimate.
const slippageToleranceBps = 50

const moduleName = "dex"

// Default commission curve. The base rate is multiplied by the ratio of total
// staked value to the output token's staked value, so thinly staked tokens
// cost more to trade into.
const (
	DefaultBaseRateBps    = 10
	DefaultMinRateBps     = 5
	DefaultMaxRateBps     = 1_000
	DefaultStakerShareBps = 8_000
)

// Params carries the commission configuration applied by the engine.
type Params struct {
	// BaseRateBps anchors the commission curve.
	BaseRateBps uint64
	// MinRateBps and MaxRateBps clamp the computed rate.
	MinRateBps uint64
	MaxRateBps uint64
	// StakerShareBps is the commission share credited to stakers of the
	// output token; the remainder lands in the treasury.
	StakerShareBps uint64
}

// DefaultParams returns the commission configuration shipped with the engine.
func DefaultParams() Params {
	return Params{
		BaseRateBps:    DefaultBaseRateBps,
		MinRateBps:     DefaultMinRateBps,
		MaxRateBps:     DefaultMaxRateBps,
		StakerShareBps: DefaultStakerShareBps,
	}
}

// Normalize fills zero fields with defaults and repairs inverted clamps.
func (p Params) Normalize() Params {
	out := p
	if out.BaseRateBps == 0 {
		out.BaseRateBps = DefaultBaseRateBps
	}
	if out.MinRateBps == 0 {
		out.MinRateBps = DefaultMinRateBps
	}
	if out.MaxRateBps == 0 {
		out.MaxRateBps = DefaultMaxRateBps
	}
	if out.MaxRateBps < out.MinRateBps {
		out.MaxRateBps = out.MinRateBps
	}
	if out.StakerShareBps == 0 {
		out.StakerShareBps = DefaultStakerShareBps
	}
	if out.StakerShareBps > 10_000 {
		out.StakerShareBps = 10_000
	}
	return out
}
