// Copyright 2024 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package governance

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"
)

// Treasury custodies the DAO's native balance. Every debit and credit is
// serialized on mu, so the balance never goes negative.
type Treasury struct {
	mu         sync.Mutex
	balance    *uint256.Int
	controller common.Address
	journal    Journal
	clock      Clock
}

// NewTreasury creates an empty treasury controlled by controller
func NewTreasury(controller common.Address, journal Journal, clock Clock) *Treasury {
	if journal == nil {
		journal = nopJournal{}
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &Treasury{
		balance:    new(uint256.Int),
		controller: controller,
		journal:    journal,
		clock:      clock,
	}
}

// Controller returns the address allowed to withdraw
func (t *Treasury) Controller() common.Address {
	return t.controller
}

// Balance returns a copy of the current balance
func (t *Treasury) Balance() *uint256.Int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return new(uint256.Int).Set(t.balance)
}

// Deposit credits amount to the treasury. Anyone may deposit.
func (t *Treasury) Deposit(from common.Address, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return ErrInvalidAmount
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	sum, overflow := new(uint256.Int).AddOverflow(t.balance, amount)
	if overflow {
		return fmt.Errorf("%w: balance overflow", ErrInvalidAmount)
	}
	ev := &DepositEvent{From: from, Amount: new(uint256.Int).Set(amount), Time: t.clock.Now()}
	if err := t.journal.Append(ev); err != nil {
		return fmt.Errorf("%w: %v", ErrJournal, err)
	}
	t.balance = sum

	log.Info("Treasury deposit", "from", from, "amount", amount, "balance", t.balance)
	return nil
}

// Withdraw transfers amount to the controller
func (t *Treasury) Withdraw(caller common.Address, amount *uint256.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if caller != t.controller {
		return ErrUnauthorized
	}
	if amount == nil || amount.IsZero() {
		return ErrInvalidAmount
	}
	return t.withdraw(caller, amount)
}

// WithdrawAll transfers the whole balance to the controller and returns the
// amount withdrawn.
func (t *Treasury) WithdrawAll(caller common.Address) (*uint256.Int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if caller != t.controller {
		return nil, ErrUnauthorized
	}
	if t.balance.IsZero() {
		return nil, ErrInsufficientFunds
	}
	amount := new(uint256.Int).Set(t.balance)
	if err := t.withdraw(caller, amount); err != nil {
		return nil, err
	}
	return amount, nil
}

// withdraw debits amount after journaling it. Caller holds t.mu.
func (t *Treasury) withdraw(to common.Address, amount *uint256.Int) error {
	if amount.Gt(t.balance) {
		return ErrInsufficientFunds
	}
	ev := &WithdrawalEvent{To: to, Amount: new(uint256.Int).Set(amount), Time: t.clock.Now()}
	if err := t.journal.Append(ev); err != nil {
		return fmt.Errorf("%w: %v", ErrJournal, err)
	}
	t.balance = new(uint256.Int).Sub(t.balance, amount)

	withdrawalCounter.Inc(1)
	log.Info("Treasury withdrawal", "to", to, "amount", amount, "balance", t.balance)
	return nil
}

// reserve debits a purchase price ahead of the marketplace call. The debit
// becomes permanent once the execution event is journaled; on any failure
// before that the execution engine calls release.
func (t *Treasury) reserve(amount *uint256.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if amount.Gt(t.balance) {
		return ErrInsufficientFunds
	}
	t.balance = new(uint256.Int).Sub(t.balance, amount)
	return nil
}

// release returns a reserved amount.
func (t *Treasury) release(amount *uint256.Int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.balance = new(uint256.Int).Add(t.balance, amount)
}

// replayCredit and replayDebit apply journaled balance changes.
func (t *Treasury) replayCredit(amount *uint256.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	sum, overflow := new(uint256.Int).AddOverflow(t.balance, amount)
	if overflow {
		return fmt.Errorf("%w: balance overflow", ErrInvalidEvent)
	}
	t.balance = sum
	return nil
}

func (t *Treasury) replayDebit(amount *uint256.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if amount.Gt(t.balance) {
		return fmt.Errorf("%w: debit of %s exceeds balance %s", ErrInvalidEvent, amount, t.balance)
	}
	t.balance = new(uint256.Int).Sub(t.balance, amount)
	return nil
}
