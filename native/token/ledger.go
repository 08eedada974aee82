package token

import (
	"math/big"

	"stablecore/crypto"
)

// ModuleLedger binds a Stablecoin to the protocol module account so the
// collateral engine can drive supply changes without carrying caller
// identity through every call. Mints credit the recipient directly; burns
// retire tokens already pulled into module custody.
type ModuleLedger struct {
	coin   *Stablecoin
	module crypto.Address
}

// NewModuleLedger wires the stablecoin to the module account. The account
// must match the coin's operator for mints and burns to succeed.
func NewModuleLedger(coin *Stablecoin, module crypto.Address) *ModuleLedger {
	return &ModuleLedger{coin: coin, module: module}
}

// Mint issues tokens to the recipient on the module's authority.
func (l *ModuleLedger) Mint(to crypto.Address, amount *big.Int) error {
	return l.coin.Mint(l.module, to, amount)
}

// Burn retires tokens held by module custody.
func (l *ModuleLedger) Burn(amount *big.Int) error {
	return l.coin.Burn(l.module, l.module, amount)
}

// TransferFrom moves tokens between accounts on the module's authority.
func (l *ModuleLedger) TransferFrom(from, to crypto.Address, amount *big.Int) error {
	return l.coin.TransferFrom(l.module, from, to, amount)
}
