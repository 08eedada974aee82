package collateral

import "math/big"

// Protocol constants are fixed at build time with no governance path. They are
// deliberately not part of runtime configuration so the no-governance
// guarantee holds exactly.
const (
	// LiquidationThreshold is the percentage of collateral value that counts
	// toward borrowing power. 50 means 200% collateralisation is required to
	// reach a health factor of exactly 1.0.
	LiquidationThreshold = 50
	// LiquidationPrecision scales LiquidationThreshold.
	LiquidationPrecision = 100
	// LiquidationBonus is the extra collateral percentage paid to a
	// liquidator above the exact debt-equivalent amount.
	LiquidationBonus = 10
	// BonusPrecision scales LiquidationBonus.
	BonusPrecision = 100
)

var (
	// precision is the common 18-fractional-digit fixed-point unit used for
	// all USD and health-factor arithmetic.
	precision = mustBigInt("1000000000000000000")
	// feedPrecisionScale lifts 8-decimal feed prices up to the common
	// 18-decimal representation.
	feedPrecisionScale = mustBigInt("10000000000")
	// minHealthFactor is a ratio of 1.0 in the fixed-point representation.
	minHealthFactor = new(big.Int).Set(precision)
	// maxHealthFactor is the sentinel reported for debt-free accounts.
	maxHealthFactor = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

	liquidationThreshold = big.NewInt(LiquidationThreshold)
	liquidationPrecision = big.NewInt(LiquidationPrecision)
	liquidationBonus     = big.NewInt(LiquidationBonus)
	bonusPrecision       = big.NewInt(BonusPrecision)
)

func mustBigInt(value string) *big.Int {
	v, ok := new(big.Int).SetString(value, 10)
	if !ok {
		panic("invalid big integer constant")
	}
	return v
}

// MinHealthFactor returns the minimum accepted solvency ratio (1.0 in the
// 18-decimal fixed-point representation).
func MinHealthFactor() *big.Int {
	return new(big.Int).Set(minHealthFactor)
}

// MaxHealthFactor returns the sentinel health factor reported for accounts
// with zero debt.
func MaxHealthFactor() *big.Int {
	return new(big.Int).Set(maxHealthFactor)
}

// Precision returns the common fixed-point unit.
func Precision() *big.Int {
	return new(big.Int).Set(precision)
}

// FeedPrecisionScale returns the multiplier applied to raw feed prices.
func FeedPrecisionScale() *big.Int {
	return new(big.Int).Set(feedPrecisionScale)
}
