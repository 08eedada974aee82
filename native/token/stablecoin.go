package token

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"stablecore/crypto"
)

var (
	// ErrNotOperator indicates a mint or burn attempted by an account other
	// than the configured engine operator.
	ErrNotOperator = errors.New("token: caller is not the operator")
	// ErrInsufficientBalance indicates a transfer or burn exceeding the
	// account balance.
	ErrInsufficientBalance = errors.New("token: insufficient balance")
	// ErrInsufficientAllowance indicates a delegated transfer exceeding the
	// approved amount.
	ErrInsufficientAllowance = errors.New("token: insufficient allowance")
	// ErrInvalidAmount indicates an amount that is nil or not strictly positive.
	ErrInvalidAmount = errors.New("token: amount must be positive")
)

// Stablecoin is the in-process ledger for the synthetic dollar token. Supply
// changes are gated on a single operator account so only the collateral
// engine can mint against deposits or retire repaid debt. Balances and
// allowances follow the usual fungible-token rules otherwise.
type Stablecoin struct {
	mu sync.RWMutex

	name     string
	symbol   string
	decimals uint8
	operator crypto.Address

	supply     *big.Int
	balances   map[string]*big.Int
	allowances map[string]map[string]*big.Int
}

// NewStablecoin constructs an empty ledger with supply control bound to the
// operator address.
func NewStablecoin(name, symbol string, operator crypto.Address) *Stablecoin {
	return &Stablecoin{
		name:       name,
		symbol:     symbol,
		decimals:   18,
		operator:   operator,
		supply:     big.NewInt(0),
		balances:   make(map[string]*big.Int),
		allowances: make(map[string]map[string]*big.Int),
	}
}

func (s *Stablecoin) Name() string    { return s.name }
func (s *Stablecoin) Symbol() string  { return s.symbol }
func (s *Stablecoin) Decimals() uint8 { return s.decimals }

// Operator returns the account allowed to mint and burn.
func (s *Stablecoin) Operator() crypto.Address { return s.operator }

// TotalSupply returns the outstanding token supply.
func (s *Stablecoin) TotalSupply() *big.Int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return new(big.Int).Set(s.supply)
}

// BalanceOf returns the account balance, zero for unknown accounts.
func (s *Stablecoin) BalanceOf(account crypto.Address) *big.Int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balanceLocked(account.String())
}

func (s *Stablecoin) balanceLocked(account string) *big.Int {
	if balance, ok := s.balances[account]; ok {
		return new(big.Int).Set(balance)
	}
	return big.NewInt(0)
}

func validTokenAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Mint credits newly issued tokens to the recipient. Operator only.
func (s *Stablecoin) Mint(caller, to crypto.Address, amount *big.Int) error {
	if err := validTokenAmount(amount); err != nil {
		return err
	}
	if !caller.Equal(s.operator) {
		return ErrNotOperator
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creditLocked(to.String(), amount)
	s.supply.Add(s.supply, amount)
	return nil
}

// Burn destroys tokens held by the from account. Operator only.
func (s *Stablecoin) Burn(caller, from crypto.Address, amount *big.Int) error {
	if err := validTokenAmount(amount); err != nil {
		return err
	}
	if !caller.Equal(s.operator) {
		return ErrNotOperator
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.debitLocked(from.String(), amount); err != nil {
		return err
	}
	s.supply.Sub(s.supply, amount)
	return nil
}

// Transfer moves tokens between accounts on the holder's own authority.
func (s *Stablecoin) Transfer(from, to crypto.Address, amount *big.Int) error {
	if err := validTokenAmount(amount); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.debitLocked(from.String(), amount); err != nil {
		return err
	}
	s.creditLocked(to.String(), amount)
	return nil
}

// Approve sets the spender's allowance over the owner's balance.
func (s *Stablecoin) Approve(owner, spender crypto.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	grants, ok := s.allowances[owner.String()]
	if !ok {
		grants = make(map[string]*big.Int)
		s.allowances[owner.String()] = grants
	}
	grants[spender.String()] = new(big.Int).Set(amount)
	return nil
}

// Allowance reports the remaining amount spender may move from owner.
func (s *Stablecoin) Allowance(owner, spender crypto.Address) *big.Int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if grants, ok := s.allowances[owner.String()]; ok {
		if amount, ok := grants[spender.String()]; ok {
			return new(big.Int).Set(amount)
		}
	}
	return big.NewInt(0)
}

// TransferFrom moves tokens on the spender's authority. The operator and the
// owner spend without an allowance; everyone else consumes one.
func (s *Stablecoin) TransferFrom(spender, from, to crypto.Address, amount *big.Int) error {
	if err := validTokenAmount(amount); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if !spender.Equal(from) && !spender.Equal(s.operator) {
		grants := s.allowances[from.String()]
		allowance, ok := grants[spender.String()]
		if !ok || allowance.Cmp(amount) < 0 {
			return fmt.Errorf("%w: %s from %s", ErrInsufficientAllowance, spender, from)
		}
		allowance.Sub(allowance, amount)
	}
	if err := s.debitLocked(from.String(), amount); err != nil {
		return err
	}
	s.creditLocked(to.String(), amount)
	return nil
}

func (s *Stablecoin) creditLocked(account string, amount *big.Int) {
	balance, ok := s.balances[account]
	if !ok {
		balance = big.NewInt(0)
		s.balances[account] = balance
	}
	balance.Add(balance, amount)
}

func (s *Stablecoin) debitLocked(account string, amount *big.Int) error {
	balance, ok := s.balances[account]
	if !ok || balance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: account %s", ErrInsufficientBalance, account)
	}
	balance.Sub(balance, amount)
	return nil
}
