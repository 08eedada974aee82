package collateral

import (
	"fmt"
	"math/big"

	"stablecore/core/events"
	"stablecore/crypto"
)

// Liquidate lets a solvent third party repay debtToCover of an unhealthy
// target's debt in exchange for the debt-equivalent amount of the named
// collateral asset plus a fixed bonus. Partial liquidations are allowed in any
// size up to the outstanding debt; the only success conditions are that the
// target starts unhealthy, ends strictly healthier, and holds enough of the
// asset to pay the seizure.
func (e *Engine) Liquidate(liquidator crypto.Address, asset string, target crypto.Address, debtToCover *big.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.enter(); err != nil {
		return err
	}
	defer e.exit()

	if err := validAmount(debtToCover); err != nil {
		return err
	}
	symbol := NormalizeAsset(asset)
	guard, err := e.registry.Guard(symbol)
	if err != nil {
		return err
	}

	position, err := e.ensurePosition(target)
	if err != nil {
		return err
	}
	snapshot := position.Clone()

	startFactor, err := e.healthFactorFor(position)
	if err != nil {
		return err
	}
	if startFactor.Cmp(minHealthFactor) >= 0 {
		return ErrHealthFactorOk
	}
	if position.Debt.Cmp(debtToCover) < 0 {
		return ErrDebtUnderflow
	}

	reading, err := guard.Read()
	if err != nil {
		return err
	}
	base := UsdToAssetAmount(reading, debtToCover)
	bonus := new(big.Int).Mul(base, liquidationBonus)
	bonus.Quo(bonus, bonusPrecision)
	seize := new(big.Int).Add(base, bonus)

	held := position.CollateralFor(symbol)
	if held.Cmp(seize) < 0 {
		return fmt.Errorf("%w: need %s %s, held %s", ErrInsufficientCollateral, seize, symbol, held)
	}

	position.Debt = new(big.Int).Sub(position.Debt, debtToCover)
	position.Collateral[symbol] = new(big.Int).Sub(held, seize)

	endFactor, err := e.healthFactorFor(position)
	if err != nil {
		return err
	}
	if endFactor.Cmp(startFactor) <= 0 {
		return ErrHealthFactorNotImproved
	}

	// Self-liquidation must judge the liquidator on the mutated position, not
	// the not-yet-persisted record.
	liquidatorPos := position
	if !liquidator.Equal(target) {
		liquidatorPos, err = e.ensurePosition(liquidator)
		if err != nil {
			return err
		}
	}
	if err := e.assertHealthy(liquidatorPos); err != nil {
		return err
	}

	if err := e.state.PutPosition(target, position); err != nil {
		return err
	}
	e.emitter.Emit(events.StableBurned{Owner: target.String(), Payer: liquidator.String(), Amount: debtToCover})
	e.emitter.Emit(events.CollateralRedeemed{From: target.String(), To: liquidator.String(), Asset: symbol, Amount: seize})
	e.emitter.Emit(events.PositionLiquidated{
		Target:      target.String(),
		Liquidator:  liquidator.String(),
		Asset:       symbol,
		DebtCovered: debtToCover,
		Seized:      seize,
	})

	if err := e.stable.TransferFrom(liquidator, e.custody, debtToCover); err != nil {
		return e.rollback(target, snapshot, fmt.Errorf("%w: %v", ErrTransferFailed, err))
	}
	if err := e.stable.Burn(debtToCover); err != nil {
		_ = e.stable.TransferFrom(e.custody, liquidator, debtToCover)
		return e.rollback(target, snapshot, fmt.Errorf("%w: %v", ErrTransferFailed, err))
	}
	if err := e.bank.TransferFrom(symbol, e.custody, liquidator, seize); err != nil {
		// Reissue the burned repayment so the liquidator is made whole.
		_ = e.stable.Mint(liquidator, debtToCover)
		return e.rollback(target, snapshot, fmt.Errorf("%w: %v", ErrTransferFailed, err))
	}
	return nil
}
