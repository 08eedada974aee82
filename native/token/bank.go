package token

import (
	"fmt"
	"math/big"
	"sync"

	"stablecore/crypto"
)

// Bank is the in-process custody ledger for collateral assets. Each asset
// keeps its own balance table. Authorisation is enforced one layer up: the
// RPC surface checks that a request is signed by the account whose funds
// move, and the collateral engine only ever moves funds between a consenting
// account and protocol custody.
type Bank struct {
	mu       sync.RWMutex
	balances map[string]map[string]*big.Int
}

// NewBank constructs an empty custody ledger.
func NewBank() *Bank {
	return &Bank{balances: make(map[string]map[string]*big.Int)}
}

// Credit issues amount of the asset to the account. Used for genesis funding
// and test fixtures.
func (b *Bank) Credit(asset string, account crypto.Address, amount *big.Int) error {
	if err := validTokenAmount(amount); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	table := b.tableLocked(asset)
	balance, ok := table[account.String()]
	if !ok {
		balance = big.NewInt(0)
		table[account.String()] = balance
	}
	balance.Add(balance, amount)
	return nil
}

// BalanceOf returns the account's holding of the asset.
func (b *Bank) BalanceOf(asset string, account crypto.Address) *big.Int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if table, ok := b.balances[asset]; ok {
		if balance, ok := table[account.String()]; ok {
			return new(big.Int).Set(balance)
		}
	}
	return big.NewInt(0)
}

// TransferFrom moves amount of the asset between accounts, failing on
// insufficient balance.
func (b *Bank) TransferFrom(asset string, from, to crypto.Address, amount *big.Int) error {
	if err := validTokenAmount(amount); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	table := b.tableLocked(asset)
	balance, ok := table[from.String()]
	if !ok || balance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s of %s", ErrInsufficientBalance, from, asset)
	}
	balance.Sub(balance, amount)
	dest, ok := table[to.String()]
	if !ok {
		dest = big.NewInt(0)
		table[to.String()] = dest
	}
	dest.Add(dest, amount)
	return nil
}

func (b *Bank) tableLocked(asset string) map[string]*big.Int {
	table, ok := b.balances[asset]
	if !ok {
		table = make(map[string]*big.Int)
		b.balances[asset] = table
	}
	return table
}
