package events

import (
	"math/big"
	"strings"

	"stablecore/core/types"
)

const (
	// TypeCollateralDeposited is emitted when collateral enters protocol custody.
	TypeCollateralDeposited = "collateral.deposited"
	// TypeCollateralRedeemed is emitted when collateral leaves protocol custody.
	// A from/to mismatch signals a liquidation-driven transfer.
	TypeCollateralRedeemed = "collateral.redeemed"
	// TypeStableMinted is emitted when synthetic debt is issued to an owner.
	TypeStableMinted = "stable.minted"
	// TypeStableBurned is emitted when synthetic debt is repaid and destroyed.
	TypeStableBurned = "stable.burned"
	// TypePositionLiquidated is emitted after a completed liquidation.
	TypePositionLiquidated = "position.liquidated"
)

func amountString(amount *big.Int) string {
	if amount == nil {
		return "0"
	}
	return amount.String()
}

type CollateralDeposited struct {
	Owner  string
	Asset  string
	Amount *big.Int
}

func (CollateralDeposited) EventType() string { return TypeCollateralDeposited }

func (e CollateralDeposited) Event() *types.Event {
	return &types.Event{
		Type: TypeCollateralDeposited,
		Attributes: map[string]string{
			"owner":  e.Owner,
			"asset":  normalizeAsset(e.Asset),
			"amount": amountString(e.Amount),
		},
	}
}

type CollateralRedeemed struct {
	From   string
	To     string
	Asset  string
	Amount *big.Int
}

func (CollateralRedeemed) EventType() string { return TypeCollateralRedeemed }

func (e CollateralRedeemed) Event() *types.Event {
	return &types.Event{
		Type: TypeCollateralRedeemed,
		Attributes: map[string]string{
			"from":   e.From,
			"to":     e.To,
			"asset":  normalizeAsset(e.Asset),
			"amount": amountString(e.Amount),
		},
	}
}

type StableMinted struct {
	Owner  string
	Amount *big.Int
}

func (StableMinted) EventType() string { return TypeStableMinted }

func (e StableMinted) Event() *types.Event {
	return &types.Event{
		Type: TypeStableMinted,
		Attributes: map[string]string{
			"owner":  e.Owner,
			"amount": amountString(e.Amount),
		},
	}
}

type StableBurned struct {
	Owner  string
	Payer  string
	Amount *big.Int
}

func (StableBurned) EventType() string { return TypeStableBurned }

func (e StableBurned) Event() *types.Event {
	return &types.Event{
		Type: TypeStableBurned,
		Attributes: map[string]string{
			"owner":  e.Owner,
			"payer":  e.Payer,
			"amount": amountString(e.Amount),
		},
	}
}

type PositionLiquidated struct {
	Target      string
	Liquidator  string
	Asset       string
	DebtCovered *big.Int
	Seized      *big.Int
}

func (PositionLiquidated) EventType() string { return TypePositionLiquidated }

func (e PositionLiquidated) Event() *types.Event {
	return &types.Event{
		Type: TypePositionLiquidated,
		Attributes: map[string]string{
			"target":      e.Target,
			"liquidator":  e.Liquidator,
			"asset":       normalizeAsset(e.Asset),
			"debtCovered": amountString(e.DebtCovered),
			"seized":      amountString(e.Seized),
		},
	}
}

func normalizeAsset(asset string) string {
	trimmed := strings.TrimSpace(asset)
	if trimmed == "" {
		return ""
	}
	return strings.ToUpper(trimmed)
}
