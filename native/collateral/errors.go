package collateral

import (
	"errors"
	"fmt"
	"math/big"
)

var (
	// ErrNilState indicates the engine was used before wiring its state store.
	ErrNilState = errors.New("collateral engine: state not configured")
	// ErrLengthMismatch indicates the registry was constructed with
	// mismatched asset and feed lists.
	ErrLengthMismatch = errors.New("collateral engine: asset and feed lists differ in length")
	// ErrZeroAmount indicates an amount argument that is not strictly positive.
	ErrZeroAmount = errors.New("collateral engine: amount must be positive")
	// ErrUnsupportedAsset indicates the asset has no registered price feed.
	ErrUnsupportedAsset = errors.New("collateral engine: unsupported asset")
	// ErrTransferFailed indicates the external asset or token ledger reported
	// a transfer failure.
	ErrTransferFailed = errors.New("collateral engine: transfer failed")
	// ErrMintFailed indicates the stablecoin ledger reported a mint failure.
	ErrMintFailed = errors.New("collateral engine: mint failed")
	// ErrBrokenHealthFactor is wrapped by HealthFactorError when an operation
	// would leave an account below the minimum ratio.
	ErrBrokenHealthFactor = errors.New("collateral engine: health factor below minimum")
	// ErrHealthFactorOk indicates a liquidation attempt against a healthy account.
	ErrHealthFactorOk = errors.New("collateral engine: target health factor not below minimum")
	// ErrHealthFactorNotImproved indicates a liquidation that did not improve
	// the target's ratio. Should be unreachable given the arithmetic; kept as
	// a safety net.
	ErrHealthFactorNotImproved = errors.New("collateral engine: health factor not improved")
	// ErrInsufficientCollateral indicates a redemption larger than the
	// deposited balance. Underflow aborts the operation, never clamps.
	ErrInsufficientCollateral = errors.New("collateral engine: insufficient collateral balance")
	// ErrDebtUnderflow indicates a repayment larger than the outstanding debt.
	ErrDebtUnderflow = errors.New("collateral engine: repay amount exceeds outstanding debt")
	// ErrReentrantCall indicates a mutating operation re-entered the engine
	// before the outer call returned.
	ErrReentrantCall = errors.New("collateral engine: reentrant call")
)

// HealthFactorError carries the computed ratio that violated the minimum, for
// diagnostics.
type HealthFactorError struct {
	HealthFactor *big.Int
}

func (e *HealthFactorError) Error() string {
	if e == nil || e.HealthFactor == nil {
		return ErrBrokenHealthFactor.Error()
	}
	return fmt.Sprintf("%s (health factor %s)", ErrBrokenHealthFactor, e.HealthFactor)
}

// Unwrap lets callers match the error with errors.Is(err, ErrBrokenHealthFactor).
func (e *HealthFactorError) Unwrap() error {
	return ErrBrokenHealthFactor
}

func brokenHealthFactor(value *big.Int) error {
	err := &HealthFactorError{}
	if value != nil {
		err.HealthFactor = new(big.Int).Set(value)
	}
	return err
}
