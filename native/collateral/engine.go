package collateral

import (
	"errors"
	"fmt"
	"math/big"

	"stablecore/core/events"
	"stablecore/core/types"
	"stablecore/crypto"
)

// PositionState is the narrow persistence surface the engine requires. The
// engine is the exclusive writer of position records.
type PositionState interface {
	GetPosition(addr crypto.Address) (*types.Position, error)
	PutPosition(addr crypto.Address, position *types.Position) error
}

// StableLedger is the external stablecoin ledger boundary. A returned error is
// treated identically to a reported failure: the enclosing operation aborts.
type StableLedger interface {
	Mint(to crypto.Address, amount *big.Int) error
	Burn(amount *big.Int) error
	TransferFrom(from, to crypto.Address, amount *big.Int) error
}

// AssetBank is the external custody boundary for collateral assets.
type AssetBank interface {
	TransferFrom(asset string, from, to crypto.Address, amount *big.Int) error
}

// Engine orchestrates the collateral and solvency state transitions. It
// executes a strictly serial transaction log: callers must not invoke mutating
// operations concurrently. The entered flag additionally rejects reentrant
// calls for the duration of an outer operation, as defense in depth beyond the
// effects-before-interactions ordering.
type Engine struct {
	state    PositionState
	registry *Registry
	stable   StableLedger
	bank     AssetBank
	custody  crypto.Address
	emitter  events.Emitter
	entered  bool
}

// NewEngine constructs an engine holding collateral in custody under the
// supplied module address.
func NewEngine(custody crypto.Address, registry *Registry) *Engine {
	return &Engine{
		custody:  custody,
		registry: registry,
		emitter:  events.NoopEmitter{},
	}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state PositionState) { e.state = state }

// SetStableLedger wires the stablecoin ledger collaborator.
func (e *Engine) SetStableLedger(ledger StableLedger) { e.stable = ledger }

// SetBank wires the collateral custody collaborator.
func (e *Engine) SetBank(bank AssetBank) { e.bank = bank }

// SetEmitter configures the event sink. A nil emitter restores the no-op sink.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	e.emitter = emitter
}

// Registry exposes the accepted-asset registry for read surfaces.
func (e *Engine) Registry() *Registry {
	if e == nil {
		return nil
	}
	return e.registry
}

// Custody returns the module custody address.
func (e *Engine) Custody() crypto.Address {
	return e.custody
}

func (e *Engine) enter() error {
	if e.entered {
		return ErrReentrantCall
	}
	e.entered = true
	return nil
}

func (e *Engine) exit() { e.entered = false }

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if e.registry == nil {
		return fmt.Errorf("collateral engine: registry not configured")
	}
	return nil
}

func validAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrZeroAmount
	}
	return nil
}

// ensurePosition loads the owner's position, materialising an empty record for
// first-touch accounts.
func (e *Engine) ensurePosition(owner crypto.Address) (*types.Position, error) {
	position, err := e.state.GetPosition(owner)
	if err != nil {
		return nil, err
	}
	if position == nil {
		position = &types.Position{Owner: owner.String()}
	}
	position.EnsureDefaults()
	return position, nil
}

// rollback re-persists a snapshot after a failed external interaction so the
// operation observes all-or-nothing semantics. A failed re-persist leaves the
// books inconsistent, so that error is joined onto the cause.
func (e *Engine) rollback(owner crypto.Address, snapshot *types.Position, cause error) error {
	if snapshot == nil {
		return cause
	}
	if err := e.state.PutPosition(owner, snapshot); err != nil {
		return errors.Join(cause, fmt.Errorf("restore position snapshot: %w", err))
	}
	return cause
}

// DepositCollateral moves amount of the asset from the owner into protocol
// custody and credits the position. Bookkeeping and the deposit event precede
// the external pull so any callback observes updated state.
func (e *Engine) DepositCollateral(owner crypto.Address, asset string, amount *big.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.enter(); err != nil {
		return err
	}
	defer e.exit()
	return e.deposit(owner, asset, amount)
}

func (e *Engine) deposit(owner crypto.Address, asset string, amount *big.Int) error {
	if err := validAmount(amount); err != nil {
		return err
	}
	symbol := NormalizeAsset(asset)
	if !e.registry.IsAccepted(symbol) {
		return fmt.Errorf("%w: %s", ErrUnsupportedAsset, symbol)
	}

	position, err := e.ensurePosition(owner)
	if err != nil {
		return err
	}
	snapshot := position.Clone()

	current := position.CollateralFor(symbol)
	position.Collateral[symbol] = new(big.Int).Add(current, amount)

	if err := e.state.PutPosition(owner, position); err != nil {
		return err
	}
	e.emitter.Emit(events.CollateralDeposited{Owner: owner.String(), Asset: symbol, Amount: amount})

	if err := e.bank.TransferFrom(symbol, owner, e.custody, amount); err != nil {
		return e.rollback(owner, snapshot, fmt.Errorf("%w: %v", ErrTransferFailed, err))
	}
	return nil
}

// MintStable optimistically increases the owner's debt, verifies the health
// factor on the updated position, and only then persists and requests the
// stablecoin mint. A failing check leaves no trace.
func (e *Engine) MintStable(owner crypto.Address, amount *big.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.enter(); err != nil {
		return err
	}
	defer e.exit()
	return e.mint(owner, amount)
}

func (e *Engine) mint(owner crypto.Address, amount *big.Int) error {
	if err := validAmount(amount); err != nil {
		return err
	}
	position, err := e.ensurePosition(owner)
	if err != nil {
		return err
	}
	snapshot := position.Clone()

	position.Debt = new(big.Int).Add(position.Debt, amount)
	if err := e.assertHealthy(position); err != nil {
		return err
	}

	if err := e.state.PutPosition(owner, position); err != nil {
		return err
	}
	e.emitter.Emit(events.StableMinted{Owner: owner.String(), Amount: amount})

	if err := e.stable.Mint(owner, amount); err != nil {
		return e.rollback(owner, snapshot, fmt.Errorf("%w: %v", ErrMintFailed, err))
	}
	return nil
}

// BurnStable repays amount of the owner's debt using the owner's own tokens.
// The defensive health check cannot fire for a pure repayment but guards
// future extensions.
func (e *Engine) BurnStable(owner crypto.Address, amount *big.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.enter(); err != nil {
		return err
	}
	defer e.exit()
	return e.burn(owner, owner, amount, true)
}

// burn retires debt recorded against onBehalf, funded by payer's tokens.
// Liquidation skips the in-step health check and re-validates explicitly.
func (e *Engine) burn(onBehalf, payer crypto.Address, amount *big.Int, checkHealth bool) error {
	if err := validAmount(amount); err != nil {
		return err
	}
	position, err := e.ensurePosition(onBehalf)
	if err != nil {
		return err
	}
	snapshot := position.Clone()

	if position.Debt.Cmp(amount) < 0 {
		return ErrDebtUnderflow
	}
	position.Debt = new(big.Int).Sub(position.Debt, amount)

	if checkHealth {
		if err := e.assertHealthy(position); err != nil {
			return err
		}
	}

	if err := e.state.PutPosition(onBehalf, position); err != nil {
		return err
	}
	e.emitter.Emit(events.StableBurned{Owner: onBehalf.String(), Payer: payer.String(), Amount: amount})

	if err := e.stable.TransferFrom(payer, e.custody, amount); err != nil {
		return e.rollback(onBehalf, snapshot, fmt.Errorf("%w: %v", ErrTransferFailed, err))
	}
	if err := e.stable.Burn(amount); err != nil {
		// Hand the pulled tokens back before unwinding the bookkeeping.
		_ = e.stable.TransferFrom(e.custody, payer, amount)
		return e.rollback(onBehalf, snapshot, fmt.Errorf("%w: %v", ErrTransferFailed, err))
	}
	return nil
}

// RedeemCollateral returns amount of the asset from custody to the owner. The
// terminal health check runs against the redeemed position before anything is
// persisted, so a failing redemption leaves no trace.
func (e *Engine) RedeemCollateral(owner crypto.Address, asset string, amount *big.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.enter(); err != nil {
		return err
	}
	defer e.exit()
	return e.redeem(owner, owner, asset, amount, true)
}

// redeem moves collateral out of custody. from and to differ only when a
// liquidation seizes collateral on a third party's behalf; liquidation skips
// the in-step health check and re-validates explicitly afterwards.
func (e *Engine) redeem(from, to crypto.Address, asset string, amount *big.Int, checkHealth bool) error {
	if err := validAmount(amount); err != nil {
		return err
	}
	symbol := NormalizeAsset(asset)
	if !e.registry.IsAccepted(symbol) {
		return fmt.Errorf("%w: %s", ErrUnsupportedAsset, symbol)
	}

	position, err := e.ensurePosition(from)
	if err != nil {
		return err
	}
	snapshot := position.Clone()

	current := position.CollateralFor(symbol)
	if current.Cmp(amount) < 0 {
		return ErrInsufficientCollateral
	}
	position.Collateral[symbol] = new(big.Int).Sub(current, amount)

	if checkHealth {
		if err := e.assertHealthy(position); err != nil {
			return err
		}
	}

	if err := e.state.PutPosition(from, position); err != nil {
		return err
	}
	e.emitter.Emit(events.CollateralRedeemed{From: from.String(), To: to.String(), Asset: symbol, Amount: amount})

	if err := e.bank.TransferFrom(symbol, e.custody, to, amount); err != nil {
		return e.rollback(from, snapshot, fmt.Errorf("%w: %v", ErrTransferFailed, err))
	}
	return nil
}

// DepositAndMint performs Deposit then Mint as a single indivisible unit.
func (e *Engine) DepositAndMint(owner crypto.Address, asset string, depositAmount, mintAmount *big.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.enter(); err != nil {
		return err
	}
	defer e.exit()

	if err := validAmount(depositAmount); err != nil {
		return err
	}
	if err := validAmount(mintAmount); err != nil {
		return err
	}
	symbol := NormalizeAsset(asset)
	if !e.registry.IsAccepted(symbol) {
		return fmt.Errorf("%w: %s", ErrUnsupportedAsset, symbol)
	}

	position, err := e.ensurePosition(owner)
	if err != nil {
		return err
	}
	snapshot := position.Clone()

	current := position.CollateralFor(symbol)
	position.Collateral[symbol] = new(big.Int).Add(current, depositAmount)
	position.Debt = new(big.Int).Add(position.Debt, mintAmount)
	if err := e.assertHealthy(position); err != nil {
		return err
	}

	if err := e.state.PutPosition(owner, position); err != nil {
		return err
	}
	e.emitter.Emit(events.CollateralDeposited{Owner: owner.String(), Asset: symbol, Amount: depositAmount})
	e.emitter.Emit(events.StableMinted{Owner: owner.String(), Amount: mintAmount})

	if err := e.bank.TransferFrom(symbol, owner, e.custody, depositAmount); err != nil {
		return e.rollback(owner, snapshot, fmt.Errorf("%w: %v", ErrTransferFailed, err))
	}
	if err := e.stable.Mint(owner, mintAmount); err != nil {
		// Return the pulled collateral before unwinding the bookkeeping.
		_ = e.bank.TransferFrom(symbol, e.custody, owner, depositAmount)
		return e.rollback(owner, snapshot, fmt.Errorf("%w: %v", ErrMintFailed, err))
	}
	return nil
}

// BurnAndRedeem repays debt before releasing collateral so the terminal health
// check has the best chance of passing; the pair is indivisible.
func (e *Engine) BurnAndRedeem(owner crypto.Address, asset string, redeemAmount, burnAmount *big.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.enter(); err != nil {
		return err
	}
	defer e.exit()

	if err := validAmount(redeemAmount); err != nil {
		return err
	}
	if err := validAmount(burnAmount); err != nil {
		return err
	}
	symbol := NormalizeAsset(asset)
	if !e.registry.IsAccepted(symbol) {
		return fmt.Errorf("%w: %s", ErrUnsupportedAsset, symbol)
	}

	position, err := e.ensurePosition(owner)
	if err != nil {
		return err
	}
	snapshot := position.Clone()

	if position.Debt.Cmp(burnAmount) < 0 {
		return ErrDebtUnderflow
	}
	position.Debt = new(big.Int).Sub(position.Debt, burnAmount)

	current := position.CollateralFor(symbol)
	if current.Cmp(redeemAmount) < 0 {
		return ErrInsufficientCollateral
	}
	position.Collateral[symbol] = new(big.Int).Sub(current, redeemAmount)

	if err := e.assertHealthy(position); err != nil {
		return err
	}

	if err := e.state.PutPosition(owner, position); err != nil {
		return err
	}
	e.emitter.Emit(events.StableBurned{Owner: owner.String(), Payer: owner.String(), Amount: burnAmount})
	e.emitter.Emit(events.CollateralRedeemed{From: owner.String(), To: owner.String(), Asset: symbol, Amount: redeemAmount})

	if err := e.stable.TransferFrom(owner, e.custody, burnAmount); err != nil {
		return e.rollback(owner, snapshot, fmt.Errorf("%w: %v", ErrTransferFailed, err))
	}
	if err := e.stable.Burn(burnAmount); err != nil {
		_ = e.stable.TransferFrom(e.custody, owner, burnAmount)
		return e.rollback(owner, snapshot, fmt.Errorf("%w: %v", ErrTransferFailed, err))
	}
	if err := e.bank.TransferFrom(symbol, e.custody, owner, redeemAmount); err != nil {
		// Reissue the burned tokens so the caller is made whole.
		_ = e.stable.Mint(owner, burnAmount)
		return e.rollback(owner, snapshot, fmt.Errorf("%w: %v", ErrTransferFailed, err))
	}
	return nil
}
