package collateral

import (
	"math/big"
	"testing"
	"time"

	"stablecore/core/types"
	"stablecore/native/oracle"
)

func reading(priceUSD int64) oracle.Reading {
	return oracle.Reading{
		Price:     big.NewInt(priceUSD * 100_000_000),
		UpdatedAt: testNow,
		RoundID:   1,
	}
}

func TestUsdValueScenario(t *testing.T) {
	// 15 units at $2000 each values at $30,000 in 18-decimal terms.
	got := UsdValue(reading(2000), units(15))
	if got.Cmp(units(30_000)) != 0 {
		t.Fatalf("expected $30000, got %s", got)
	}
	if UsdValue(reading(2000), big.NewInt(0)).Sign() != 0 {
		t.Fatalf("zero amount must value at zero")
	}
}

func TestUsdConversionRoundTrip(t *testing.T) {
	prices := []int64{2000, 18, 1, 99_999}
	amounts := []*big.Int{units(15), units(1), big.NewInt(123_456_789), units(1_000_000)}
	for _, price := range prices {
		for _, amount := range amounts {
			usd := UsdValue(reading(price), amount)
			back := UsdToAssetAmount(reading(price), usd)
			diff := new(big.Int).Sub(amount, back)
			if diff.Sign() < 0 || diff.Cmp(big.NewInt(1)) > 0 {
				t.Fatalf("round trip at price %d lost %s units (amount %s)", price, diff, amount)
			}
		}
	}
}

func TestHealthFactorLiquidatableScenario(t *testing.T) {
	rig := newTestRig(t, 2000)
	owner := testAddr(1)

	// $10,000 of collateral backing 6,000 debt: 5000/6000 = 0.8333...
	rig.state.positions[owner.String()] = &types.Position{
		Owner:      owner.String(),
		Collateral: map[string]*big.Int{"WETH": units(5)},
		Debt:       units(6000),
	}
	factor, err := rig.engine.HealthFactor(owner)
	if err != nil {
		t.Fatalf("health factor: %v", err)
	}
	want, _ := new(big.Int).SetString("833333333333333333", 10)
	if factor.Cmp(want) != 0 {
		t.Fatalf("expected 0.8333, got %s", factor)
	}

	// at 4,000 debt the same collateral is safe at 1.25.
	rig.state.positions[owner.String()].Debt = units(4000)
	factor, err = rig.engine.HealthFactor(owner)
	if err != nil {
		t.Fatalf("health factor: %v", err)
	}
	want, _ = new(big.Int).SetString("1250000000000000000", 10)
	if factor.Cmp(want) != 0 {
		t.Fatalf("expected 1.25, got %s", factor)
	}
}

func TestHealthFactorMonotonicity(t *testing.T) {
	rig := newTestRig(t, 2000)
	owner := testAddr(1)

	if err := rig.engine.DepositAndMint(owner, "WETH", units(10), units(5000)); err != nil {
		t.Fatalf("setup: %v", err)
	}
	base, err := rig.engine.HealthFactor(owner)
	if err != nil {
		t.Fatalf("health factor: %v", err)
	}

	// depositing more collateral never decreases the ratio.
	if err := rig.engine.DepositCollateral(owner, "WETH", units(1)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	afterDeposit, _ := rig.engine.HealthFactor(owner)
	if afterDeposit.Cmp(base) < 0 {
		t.Fatalf("deposit decreased health factor: %s -> %s", base, afterDeposit)
	}

	// repaying debt never decreases it.
	if err := rig.engine.BurnStable(owner, units(1000)); err != nil {
		t.Fatalf("burn: %v", err)
	}
	afterBurn, _ := rig.engine.HealthFactor(owner)
	if afterBurn.Cmp(afterDeposit) < 0 {
		t.Fatalf("repay decreased health factor: %s -> %s", afterDeposit, afterBurn)
	}

	// minting more debt never increases it.
	if err := rig.engine.MintStable(owner, units(500)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	afterMint, _ := rig.engine.HealthFactor(owner)
	if afterMint.Cmp(afterBurn) > 0 {
		t.Fatalf("mint increased health factor: %s -> %s", afterBurn, afterMint)
	}

	// redeeming collateral never increases it.
	if err := rig.engine.RedeemCollateral(owner, "WETH", units(1)); err != nil {
		t.Fatalf("redeem: %v", err)
	}
	afterRedeem, _ := rig.engine.HealthFactor(owner)
	if afterRedeem.Cmp(afterMint) > 0 {
		t.Fatalf("redeem increased health factor: %s -> %s", afterMint, afterRedeem)
	}
}

func TestNoDebtSentinelIgnoresCollateral(t *testing.T) {
	rig := newTestRig(t, 2000)
	owner := testAddr(1)

	// zero collateral, zero debt.
	factor, err := rig.engine.HealthFactor(owner)
	if err != nil {
		t.Fatalf("health factor: %v", err)
	}
	if factor.Cmp(MaxHealthFactor()) != 0 {
		t.Fatalf("expected sentinel, got %s", factor)
	}

	// plenty of collateral, still zero debt.
	if err := rig.engine.DepositCollateral(owner, "WETH", units(100)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	factor, err = rig.engine.HealthFactor(owner)
	if err != nil {
		t.Fatalf("health factor: %v", err)
	}
	if factor.Cmp(MaxHealthFactor()) != 0 {
		t.Fatalf("expected sentinel with collateral, got %s", factor)
	}
}

func TestGuardTimeoutVisibleThroughRegistry(t *testing.T) {
	feed := oracle.NewManualFeed()
	guard := oracle.NewGuard(feed, 90*time.Minute)
	registry, err := NewRegistry([]string{"WBTC"}, []*oracle.Guard{guard})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	got, err := registry.Guard("wbtc")
	if err != nil {
		t.Fatalf("guard: %v", err)
	}
	if got.Timeout() != 90*time.Minute {
		t.Fatalf("unexpected timeout: %s", got.Timeout())
	}
}
