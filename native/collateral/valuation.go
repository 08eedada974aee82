package collateral

import (
	"math/big"

	"stablecore/core/types"
	"stablecore/crypto"
	"stablecore/native/oracle"
)

// UsdValue converts an asset amount to its 18-decimal USD value using a
// guarded feed reading: value = price * feedScale * amount / 1e18. Integer
// division truncates toward zero.
func UsdValue(reading oracle.Reading, amount *big.Int) *big.Int {
	if reading.Price == nil || amount == nil {
		return big.NewInt(0)
	}
	value := new(big.Int).Mul(reading.Price, feedPrecisionScale)
	value.Mul(value, amount)
	return value.Quo(value, precision)
}

// UsdToAssetAmount converts an 18-decimal USD value back into asset units at
// the given reading: amount = usd * 1e18 / (price * feedScale).
func UsdToAssetAmount(reading oracle.Reading, usd *big.Int) *big.Int {
	if reading.Price == nil || reading.Price.Sign() <= 0 || usd == nil {
		return big.NewInt(0)
	}
	scaled := new(big.Int).Mul(reading.Price, feedPrecisionScale)
	amount := new(big.Int).Mul(usd, precision)
	return amount.Quo(amount, scaled)
}

// AccountCollateralValue sums the USD value of every deposited asset in
// registry order. Any stale or invalid feed fails the whole valuation; a
// partial sum would silently understate solvency.
func (e *Engine) AccountCollateralValue(owner crypto.Address) (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	position, err := e.ensurePosition(owner)
	if err != nil {
		return nil, err
	}
	return e.collateralValue(position)
}

func (e *Engine) collateralValue(position *types.Position) (*big.Int, error) {
	total := big.NewInt(0)
	for _, symbol := range e.registry.Assets() {
		amount, ok := position.Collateral[symbol]
		if !ok || amount == nil || amount.Sign() == 0 {
			continue
		}
		guard, err := e.registry.Guard(symbol)
		if err != nil {
			return nil, err
		}
		reading, err := guard.Read()
		if err != nil {
			return nil, err
		}
		total.Add(total, UsdValue(reading, amount))
	}
	return total, nil
}

// HealthFactor reports the owner's solvency ratio in 18-decimal fixed point.
// Debt-free accounts report the maximum sentinel value.
func (e *Engine) HealthFactor(owner crypto.Address) (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	position, err := e.ensurePosition(owner)
	if err != nil {
		return nil, err
	}
	return e.healthFactorFor(position)
}

// healthFactorFor computes (collateralValue * threshold / thresholdPrecision)
// * 1e18 / debt over the in-memory position, without touching storage.
func (e *Engine) healthFactorFor(position *types.Position) (*big.Int, error) {
	if position.Debt == nil || position.Debt.Sign() == 0 {
		return MaxHealthFactor(), nil
	}
	value, err := e.collateralValue(position)
	if err != nil {
		return nil, err
	}
	adjusted := new(big.Int).Mul(value, liquidationThreshold)
	adjusted.Quo(adjusted, liquidationPrecision)
	adjusted.Mul(adjusted, precision)
	return adjusted.Quo(adjusted, position.Debt), nil
}

// assertHealthy fails with a HealthFactorError when the position sits below
// the minimum ratio.
func (e *Engine) assertHealthy(position *types.Position) error {
	factor, err := e.healthFactorFor(position)
	if err != nil {
		return err
	}
	if factor.Cmp(minHealthFactor) < 0 {
		return brokenHealthFactor(factor)
	}
	return nil
}
