package types

import "math/big"

// Position records the collateral and debt bookkeeping for a single owner.
// Amounts are denominated in the asset's smallest unit and expressed as big
// integers to keep valuation arithmetic exact.
type Position struct {
	// Owner is the bech32-encoded account address the position belongs to.
	Owner string `json:"owner"`
	// Collateral maps an accepted asset symbol to the deposited amount.
	Collateral map[string]*big.Int `json:"collateral"`
	// Debt stores the outstanding synthetic token liability.
	Debt *big.Int `json:"debt"`
}

// Clone returns a deep copy so callers can mutate freely before committing.
func (p *Position) Clone() *Position {
	if p == nil {
		return nil
	}
	clone := &Position{Owner: p.Owner}
	if p.Collateral != nil {
		clone.Collateral = make(map[string]*big.Int, len(p.Collateral))
		for symbol, amount := range p.Collateral {
			if amount != nil {
				clone.Collateral[symbol] = new(big.Int).Set(amount)
			}
		}
	}
	if p.Debt != nil {
		clone.Debt = new(big.Int).Set(p.Debt)
	}
	return clone
}

// EnsureDefaults populates nil fields so JSON round-trips and arithmetic are safe.
func (p *Position) EnsureDefaults() {
	if p == nil {
		return
	}
	if p.Collateral == nil {
		p.Collateral = make(map[string]*big.Int)
	}
	if p.Debt == nil {
		p.Debt = big.NewInt(0)
	}
}

// CollateralFor returns the deposited amount for the symbol, defaulting to zero.
func (p *Position) CollateralFor(symbol string) *big.Int {
	if p == nil || p.Collateral == nil {
		return big.NewInt(0)
	}
	amount, ok := p.Collateral[symbol]
	if !ok || amount == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(amount)
}
