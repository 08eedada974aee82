package collateral

import (
	"fmt"
	"math/big"

	"stablecore/core/types"
	"stablecore/crypto"
)

// Position returns a copy of the owner's record. Accounts never touched by a
// deposit report an empty position rather than an error.
func (e *Engine) Position(owner crypto.Address) (*types.Position, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	position, err := e.ensurePosition(owner)
	if err != nil {
		return nil, err
	}
	return position.Clone(), nil
}

// Deposited returns the owner's balance of a single collateral asset.
func (e *Engine) Deposited(owner crypto.Address, asset string) (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	symbol := NormalizeAsset(asset)
	if !e.registry.IsAccepted(symbol) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAsset, symbol)
	}
	position, err := e.ensurePosition(owner)
	if err != nil {
		return nil, err
	}
	return position.CollateralFor(symbol), nil
}

// Debt returns the owner's outstanding stablecoin debt.
func (e *Engine) Debt(owner crypto.Address) (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	position, err := e.ensurePosition(owner)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(position.Debt), nil
}
