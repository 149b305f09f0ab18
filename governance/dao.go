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
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"
)

// Backends bundles the collaborators a DAO is wired to
type Backends struct {
	Membership  MembershipOracle
	Marketplace MarketplaceOracle
	Journal     Journal // optional, nothing is persisted when nil
	Clock       Clock   // optional, defaults to SystemClock
}

// DAO is the facade over the ledger, the voting and execution engines and
// the treasury. It is the only entry point used by the API and the node.
type DAO struct {
	config     *Config
	clock      Clock
	membership MembershipOracle
	ledger     *Ledger
	voting     *VotingEngine
	execution  *ExecutionEngine
	treasury   *Treasury
}

// New creates a DAO with an empty ledger and treasury
func New(config *Config, controller common.Address, backends Backends) *DAO {
	if config == nil {
		config = DefaultConfig()
	}
	journal := backends.Journal
	if journal == nil {
		journal = nopJournal{}
	}
	clock := backends.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	ledger := NewLedger(config, backends.Membership, journal, clock)
	treasury := NewTreasury(controller, journal, clock)

	return &DAO{
		config:     config,
		clock:      clock,
		membership: backends.Membership,
		ledger:     ledger,
		voting:     NewVotingEngine(ledger, backends.Membership, journal, clock),
		execution:  NewExecutionEngine(config, ledger, treasury, backends.Marketplace, backends.Membership, journal, clock),
		treasury:   treasury,
	}
}

// Config returns the governance rules in force
func (d *DAO) Config() *Config {
	return d.config
}

// Now returns the DAO's notion of the current time in unix seconds
func (d *DAO) Now() uint64 {
	return d.clock.Now()
}

// CreateProposal creates a proposal to purchase unit
func (d *DAO) CreateProposal(ctx context.Context, unit uint64, requester common.Address) (uint64, error) {
	return d.ledger.CreateProposal(ctx, unit, requester)
}

// Vote casts a vote on a proposal
func (d *DAO) Vote(ctx context.Context, id uint64, voter common.Address, choice Choice) error {
	return d.voting.Vote(ctx, id, voter, choice)
}

// Execute resolves a proposal after its deadline
func (d *DAO) Execute(ctx context.Context, id uint64, caller common.Address) (Outcome, error) {
	return d.execution.Execute(ctx, id, caller)
}

// GetProposal returns a snapshot of a proposal
func (d *DAO) GetProposal(id uint64) (*Proposal, error) {
	return d.ledger.GetProposal(id)
}

// ListProposals returns all proposals by ascending ID
func (d *DAO) ListProposals() []*Proposal {
	return d.ledger.ListProposals()
}

// NumProposals returns the number of proposals created so far
func (d *DAO) NumProposals() uint64 {
	return d.ledger.NumProposals()
}

// Deposit credits the treasury
func (d *DAO) Deposit(from common.Address, amount *uint256.Int) error {
	return d.treasury.Deposit(from, amount)
}

// Withdraw moves amount from the treasury to the controller
func (d *DAO) Withdraw(caller common.Address, amount *uint256.Int) error {
	return d.treasury.Withdraw(caller, amount)
}

// WithdrawAll drains the treasury to the controller
func (d *DAO) WithdrawAll(caller common.Address) (*uint256.Int, error) {
	return d.treasury.WithdrawAll(caller)
}

// Balance returns the treasury balance
func (d *DAO) Balance() *uint256.Int {
	return d.treasury.Balance()
}

// Controller returns the treasury controller
func (d *DAO) Controller() common.Address {
	return d.treasury.Controller()
}

// IsMember reports whether addr holds at least one credential
func (d *DAO) IsMember(ctx context.Context, addr common.Address) (bool, error) {
	err := requireHolder(ctx, d.membership, addr)
	if errors.Is(err, ErrUnauthorized) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CredentialOwner returns the holder of a credential unit
func (d *DAO) CredentialOwner(ctx context.Context, token uint64) (common.Address, error) {
	owner, err := d.membership.OwnerOf(ctx, token)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrOracleUnavailable, err)
	}
	return owner, nil
}

// Apply replays a journaled event. It does not consult the oracles and does
// not write to the journal; it is meant for rebuilding state on startup.
func (d *DAO) Apply(ev Event) error {
	switch ev := ev.(type) {
	case *ProposalCreatedEvent:
		return d.ledger.insert(ev)
	case *VoteCastEvent:
		return d.voting.replay(ev)
	case *ProposalExecutedEvent:
		return d.execution.replay(ev)
	case *PurchaseStartedEvent:
		return d.execution.replayStarted(ev)
	case *PurchaseAbortedEvent:
		return d.execution.replayAborted(ev)
	case *DepositEvent:
		if ev.Amount == nil {
			return fmt.Errorf("%w: deposit without amount", ErrInvalidEvent)
		}
		return d.treasury.replayCredit(ev.Amount)
	case *WithdrawalEvent:
		if ev.Amount == nil {
			return fmt.Errorf("%w: withdrawal without amount", ErrInvalidEvent)
		}
		if ev.To != d.treasury.Controller() {
			return fmt.Errorf("%w: withdrawal to %s, controller is %s", ErrInvalidEvent, ev.To, d.treasury.Controller())
		}
		return d.treasury.replayDebit(ev.Amount)
	default:
		return fmt.Errorf("%w: unknown event %T", ErrInvalidEvent, ev)
	}
}

// SettlePurchases closes every replayed purchase that was started but never
// resolved as purchased, keeping its price debited. It returns the settled
// proposals and must be called once all events have been applied.
func (d *DAO) SettlePurchases() []*Proposal {
	return d.execution.settle()
}

// Restore applies events in order, stopping at the first one that does not
// fit the current state, then settles unresolved purchases.
func (d *DAO) Restore(events []Event) error {
	for i, ev := range events {
		if err := d.Apply(ev); err != nil {
			return fmt.Errorf("event %d (%s): %w", i, ev.Kind(), err)
		}
	}
	d.SettlePurchases()
	if len(events) > 0 {
		log.Info("Restored governance state", "events", len(events), "proposals", d.NumProposals(), "treasury", d.Balance())
	}
	return nil
}
