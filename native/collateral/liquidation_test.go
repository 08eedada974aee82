package collateral

import (
	"errors"
	"math/big"
	"testing"

	"stablecore/crypto"
)

// setupUnderwater puts the target at health factor 0.9: 10 WETH deposited at
// $20, 100 debt minted, then a price drop to $18.
func setupUnderwater(t *testing.T) (*testRig, crypto.Address, crypto.Address) {
	t.Helper()
	rig := newTestRig(t, 20)
	target := testAddr(1)
	liquidator := testAddr(2)

	if err := rig.engine.DepositAndMint(target, "WETH", units(10), units(100)); err != nil {
		t.Fatalf("setup: %v", err)
	}
	rig.setPrice(t, 18)
	return rig, target, liquidator
}

func TestLiquidateFullDebt(t *testing.T) {
	rig, target, liquidator := setupUnderwater(t)

	if err := rig.engine.Liquidate(liquidator, "WETH", target, units(100)); err != nil {
		t.Fatalf("liquidate: %v", err)
	}

	debt, err := rig.engine.Debt(target)
	if err != nil {
		t.Fatalf("debt: %v", err)
	}
	if debt.Sign() != 0 {
		t.Fatalf("expected debt cleared, got %s", debt)
	}

	// 100 / 18 truncates to 5.555...5 units; the 10% bonus lifts the seizure
	// to 6.111...0 units.
	wantSeize, _ := new(big.Int).SetString("6111111111111111110", 10)
	remaining, err := rig.engine.Deposited(target, "WETH")
	if err != nil {
		t.Fatalf("deposited: %v", err)
	}
	wantRemaining := new(big.Int).Sub(units(10), wantSeize)
	if remaining.Cmp(wantRemaining) != 0 {
		t.Fatalf("expected %s remaining, got %s", wantRemaining, remaining)
	}

	last := rig.bank.transfers[len(rig.bank.transfers)-1]
	if last.to != liquidator.String() || last.amount.Cmp(wantSeize) != 0 {
		t.Fatalf("unexpected seizure transfer: %+v", last)
	}
	if rig.ledger.burned.Cmp(units(100)) != 0 {
		t.Fatalf("expected 100 burned, got %s", rig.ledger.burned)
	}
}

func TestLiquidatePartialImprovesHealth(t *testing.T) {
	rig, target, liquidator := setupUnderwater(t)

	before, err := rig.engine.HealthFactor(target)
	if err != nil {
		t.Fatalf("health factor: %v", err)
	}
	if err := rig.engine.Liquidate(liquidator, "WETH", target, units(50)); err != nil {
		t.Fatalf("liquidate: %v", err)
	}
	after, err := rig.engine.HealthFactor(target)
	if err != nil {
		t.Fatalf("health factor: %v", err)
	}
	if after.Cmp(before) <= 0 {
		t.Fatalf("health factor did not improve: %s -> %s", before, after)
	}
	debt, _ := rig.engine.Debt(target)
	if debt.Cmp(units(50)) != 0 {
		t.Fatalf("expected 50 debt left, got %s", debt)
	}
}

func TestLiquidateHealthyTargetRejected(t *testing.T) {
	rig := newTestRig(t, 20)
	target := testAddr(1)
	liquidator := testAddr(2)

	if err := rig.engine.DepositAndMint(target, "WETH", units(10), units(100)); err != nil {
		t.Fatalf("setup: %v", err)
	}
	before, _ := rig.engine.Position(target)

	if err := rig.engine.Liquidate(liquidator, "WETH", target, units(10)); !errors.Is(err, ErrHealthFactorOk) {
		t.Fatalf("expected ErrHealthFactorOk, got %v", err)
	}
	after, _ := rig.engine.Position(target)
	if after.Debt.Cmp(before.Debt) != 0 || after.CollateralFor("WETH").Cmp(before.CollateralFor("WETH")) != 0 {
		t.Fatalf("rejected liquidation mutated state: %+v -> %+v", before, after)
	}
}

func TestLiquidateSelfClearsOwnDebt(t *testing.T) {
	rig, target, _ := setupUnderwater(t)

	// An underwater owner covering their whole debt ends at the zero-debt
	// sentinel, so the terminal health check must see the updated position
	// rather than the stored one.
	if err := rig.engine.Liquidate(target, "WETH", target, units(100)); err != nil {
		t.Fatalf("self liquidation: %v", err)
	}
	debt, err := rig.engine.Debt(target)
	if err != nil {
		t.Fatalf("debt: %v", err)
	}
	if debt.Sign() != 0 {
		t.Fatalf("expected debt cleared, got %s", debt)
	}
	factor, err := rig.engine.HealthFactor(target)
	if err != nil {
		t.Fatalf("health factor: %v", err)
	}
	if factor.Cmp(MaxHealthFactor()) != 0 {
		t.Fatalf("expected sentinel after self liquidation, got %s", factor)
	}
}

func TestLiquidateRejectsOversizedCover(t *testing.T) {
	rig, target, liquidator := setupUnderwater(t)

	if err := rig.engine.Liquidate(liquidator, "WETH", target, units(101)); !errors.Is(err, ErrDebtUnderflow) {
		t.Fatalf("expected ErrDebtUnderflow, got %v", err)
	}
}

func TestLiquidateRejectsUnhealthyLiquidator(t *testing.T) {
	rig, target, liquidator := setupUnderwater(t)

	// The liquidator took the same position as the target at $20, so the
	// drop to $18 put both underwater.
	rig.setPrice(t, 20)
	if err := rig.engine.DepositAndMint(liquidator, "WETH", units(10), units(100)); err != nil {
		t.Fatalf("liquidator setup: %v", err)
	}
	rig.setPrice(t, 18)

	if err := rig.engine.Liquidate(liquidator, "WETH", target, units(10)); !errors.Is(err, ErrBrokenHealthFactor) {
		t.Fatalf("expected ErrBrokenHealthFactor, got %v", err)
	}
}

func TestLiquidateRollbackOnSeizureFailure(t *testing.T) {
	rig, target, liquidator := setupUnderwater(t)
	rig.bank.err = errors.New("bank offline")
	rig.ledger.minted = big.NewInt(0)

	err := rig.engine.Liquidate(liquidator, "WETH", target, units(100))
	if !errors.Is(err, ErrTransferFailed) {
		t.Fatalf("expected ErrTransferFailed, got %v", err)
	}

	debt, _ := rig.engine.Debt(target)
	if debt.Cmp(units(100)) != 0 {
		t.Fatalf("expected debt restored to 100, got %s", debt)
	}
	deposited, _ := rig.engine.Deposited(target, "WETH")
	if deposited.Cmp(units(10)) != 0 {
		t.Fatalf("expected collateral restored to 10, got %s", deposited)
	}
	// The burned repayment was reissued to the liquidator.
	if rig.ledger.minted.Cmp(units(100)) != 0 {
		t.Fatalf("expected compensating mint of 100, got %s", rig.ledger.minted)
	}
}
