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
	"fmt"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"
	"github.com/holiman/uint256"
)

var (
	proposalCreatedCounter = metrics.NewRegisteredCounter("dao/proposals/created", nil)
	voteCastCounter        = metrics.NewRegisteredCounter("dao/votes/cast", nil)
	proposalExecCounter    = metrics.NewRegisteredCounter("dao/proposals/executed", nil)
	purchaseCounter        = metrics.NewRegisteredCounter("dao/purchases", nil)
	withdrawalCounter      = metrics.NewRegisteredCounter("dao/treasury/withdrawals", nil)
)

// proposalEntry is the ledger-owned record of a proposal. All reads and
// writes of proposal and voters happen with mu held.
type proposalEntry struct {
	mu       sync.Mutex
	proposal Proposal
	voters   mapset.Set[common.Address]
	pending  *uint256.Int // replayed purchase still awaiting its resolution
}

func newProposalEntry(ev *ProposalCreatedEvent) *proposalEntry {
	return &proposalEntry{
		proposal: Proposal{
			ID:        ev.ID,
			Unit:      ev.Unit,
			Proposer:  ev.Proposer,
			CreatedAt: ev.CreatedAt,
			Deadline:  ev.Deadline,
			Price:     new(uint256.Int),
		},
		voters: mapset.NewThreadUnsafeSet[common.Address](),
	}
}

// applyVote records a validated vote. Caller holds e.mu.
func (e *proposalEntry) applyVote(voter common.Address, choice Choice) {
	if choice == ChoiceYay {
		e.proposal.YayVotes++
	} else {
		e.proposal.NayVotes++
	}
	e.voters.Add(voter)
	e.proposal.Voters = append(e.proposal.Voters, voter)
}

// applyExecution moves the proposal into its terminal state. Caller holds e.mu.
func (e *proposalEntry) applyExecution(ev *ProposalExecutedEvent) {
	e.proposal.Executed = true
	e.proposal.Outcome = ev.Outcome
	e.proposal.Price = new(uint256.Int).Set(ev.Price)
}

// snapshot returns a deep copy of the proposal. Caller holds e.mu.
func (e *proposalEntry) snapshot() *Proposal {
	cpy := e.proposal
	cpy.Price = new(uint256.Int).Set(e.proposal.Price)
	cpy.Voters = make([]common.Address, len(e.proposal.Voters))
	copy(cpy.Voters, e.proposal.Voters)
	return &cpy
}

// Ledger is the authoritative store of proposals. IDs are allocated
// sequentially from zero with no gaps; records are never removed.
type Ledger struct {
	mu         sync.RWMutex
	entries    []*proposalEntry
	period     uint64
	membership MembershipOracle
	journal    Journal
	clock      Clock
}

// NewLedger creates an empty ledger
func NewLedger(config *Config, membership MembershipOracle, journal Journal, clock Clock) *Ledger {
	if journal == nil {
		journal = nopJournal{}
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &Ledger{
		period:     config.votingPeriodSeconds(),
		membership: membership,
		journal:    journal,
		clock:      clock,
	}
}

// CreateProposal allocates a new proposal to purchase unit. The requester
// must hold at least one credential.
func (l *Ledger) CreateProposal(ctx context.Context, unit uint64, requester common.Address) (uint64, error) {
	if err := requireHolder(ctx, l.membership, requester); err != nil {
		return 0, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	ev := &ProposalCreatedEvent{
		ID:        uint64(len(l.entries)),
		Unit:      unit,
		Proposer:  requester,
		CreatedAt: now,
		Deadline:  now + l.period,
	}
	if err := l.journal.Append(ev); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrJournal, err)
	}
	l.entries = append(l.entries, newProposalEntry(ev))

	proposalCreatedCounter.Inc(1)
	log.Info("Proposal created", "id", ev.ID, "unit", unit, "proposer", requester, "deadline", ev.Deadline)
	return ev.ID, nil
}

// insert adds a replayed proposal. The event ID must be the next free ID.
func (l *Ledger) insert(ev *ProposalCreatedEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if ev.ID != uint64(len(l.entries)) {
		return fmt.Errorf("%w: proposal %d created, next id is %d", ErrInvalidEvent, ev.ID, len(l.entries))
	}
	if ev.Deadline <= ev.CreatedAt {
		return fmt.Errorf("%w: proposal %d deadline %d not after creation %d", ErrInvalidEvent, ev.ID, ev.Deadline, ev.CreatedAt)
	}
	l.entries = append(l.entries, newProposalEntry(ev))
	return nil
}

// entry returns the record for id without locking it.
func (l *Ledger) entry(id uint64) (*proposalEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if id >= uint64(len(l.entries)) {
		return nil, ErrProposalNotFound
	}
	return l.entries[id], nil
}

// GetProposal returns a snapshot of proposal id
func (l *Ledger) GetProposal(id uint64) (*Proposal, error) {
	e, err := l.entry(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot(), nil
}

// ListProposals returns snapshots of all proposals in ascending ID order
func (l *Ledger) ListProposals() []*Proposal {
	l.mu.RLock()
	entries := make([]*proposalEntry, len(l.entries))
	copy(entries, l.entries)
	l.mu.RUnlock()

	list := make([]*Proposal, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		list = append(list, e.snapshot())
		e.mu.Unlock()
	}
	return list
}

// NumProposals returns the number of proposals, which is also the next ID
func (l *Ledger) NumProposals() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return uint64(len(l.entries))
}

// requireHolder checks that addr holds at least one credential.
func requireHolder(ctx context.Context, oracle MembershipOracle, addr common.Address) error {
	balance, err := oracle.BalanceOf(ctx, addr)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOracleUnavailable, err)
	}
	if balance == 0 {
		return ErrUnauthorized
	}
	return nil
}
