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

// ExecutionEngine resolves proposals once their voting window has closed
type ExecutionEngine struct {
	config     *Config
	ledger     *Ledger
	treasury   *Treasury
	market     MarketplaceOracle
	membership MembershipOracle
	journal    Journal
	clock      Clock
}

// NewExecutionEngine creates an execution engine
func NewExecutionEngine(config *Config, ledger *Ledger, treasury *Treasury, market MarketplaceOracle, membership MembershipOracle, journal Journal, clock Clock) *ExecutionEngine {
	if journal == nil {
		journal = nopJournal{}
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &ExecutionEngine{
		config:     config,
		ledger:     ledger,
		treasury:   treasury,
		market:     market,
		membership: membership,
		journal:    journal,
		clock:      clock,
	}
}

// Execute resolves proposal id. If it passed (yay > nay) and the unit is
// still for sale, the treasury buys it. On success the proposal is terminal.
func (ee *ExecutionEngine) Execute(ctx context.Context, id uint64, caller common.Address) (Outcome, error) {
	e, err := ee.ledger.entry(id)
	if err != nil {
		return OutcomeNone, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if ee.config.ExecuteHoldersOnly {
		if err := requireHolder(ctx, ee.membership, caller); err != nil {
			return OutcomeNone, err
		}
	}
	now := ee.clock.Now()
	if now < e.proposal.Deadline {
		return OutcomeNone, ErrTooEarly
	}
	if e.proposal.Executed {
		return OutcomeNone, ErrAlreadyExecuted
	}

	outcome, price, err := ee.resolve(ctx, &e.proposal, now)
	if err != nil {
		return OutcomeNone, err
	}
	ev := &ProposalExecutedEvent{ID: id, Caller: caller, Outcome: outcome, Price: price, Time: now}
	if err := ee.journal.Append(ev); err != nil {
		if outcome != OutcomePurchased {
			return OutcomeNone, fmt.Errorf("%w: %v", ErrJournal, err)
		}
		// The unit has been paid for and cannot be returned. The journaled
		// PurchaseStartedEvent settles it as purchased on the next restore.
		log.Error("Purchase completed but not journaled", "id", id, "unit", e.proposal.Unit, "price", price, "err", err)
		e.applyExecution(ev)
		return outcome, fmt.Errorf("%w: %v", ErrJournal, err)
	}
	e.applyExecution(ev)

	proposalExecCounter.Inc(1)
	if outcome == OutcomePurchased {
		purchaseCounter.Inc(1)
	}
	log.Info("Proposal executed", "id", id, "unit", e.proposal.Unit, "outcome", outcome,
		"yay", e.proposal.YayVotes, "nay", e.proposal.NayVotes, "price", price)
	return outcome, nil
}

// resolve decides the outcome of p and performs the purchase if due. It
// returns the amount left debited from the treasury.
func (ee *ExecutionEngine) resolve(ctx context.Context, p *Proposal, now uint64) (Outcome, *uint256.Int, error) {
	if p.YayVotes <= p.NayVotes {
		return OutcomeRejected, new(uint256.Int), nil
	}
	available, err := ee.market.Available(ctx, p.Unit)
	if err != nil {
		return OutcomeNone, nil, fmt.Errorf("%w: %v", ErrOracleUnavailable, err)
	}
	if !available {
		return ee.withoutPurchase(p, OutcomeUnavailable, ErrUnitUnavailable)
	}
	price, err := ee.market.PriceOf(ctx, p.Unit)
	if err != nil {
		return OutcomeNone, nil, fmt.Errorf("%w: %v", ErrOracleUnavailable, err)
	}
	if price == nil {
		return OutcomeNone, nil, fmt.Errorf("%w: no price for unit %d", ErrOracleUnavailable, p.Unit)
	}
	if err := ee.treasury.reserve(price); err != nil {
		return ee.withoutPurchase(p, OutcomeInsufficientFunds, err)
	}
	started := &PurchaseStartedEvent{ID: p.ID, Unit: p.Unit, Price: new(uint256.Int).Set(price), Time: now}
	if err := ee.journal.Append(started); err != nil {
		ee.treasury.release(price)
		return OutcomeNone, nil, fmt.Errorf("%w: %v", ErrJournal, err)
	}
	if err := ee.market.Purchase(ctx, p.Unit, price); err != nil {
		ee.treasury.release(price)
		if jerr := ee.journal.Append(&PurchaseAbortedEvent{ID: p.ID, Time: now}); jerr != nil {
			// Without the abort record a restore settles the purchase as
			// done, leaving the price debited.
			log.Error("Failed purchase not journaled", "id", p.ID, "unit", p.Unit, "price", price, "err", jerr)
			return OutcomeNone, nil, fmt.Errorf("%w: %v", ErrJournal, jerr)
		}
		if errors.Is(err, ErrPurchaseRejected) {
			return ee.withoutPurchase(p, OutcomePurchaseFailed, err)
		}
		return OutcomeNone, nil, fmt.Errorf("%w: %v", ErrOracleUnavailable, err)
	}
	return OutcomePurchased, new(uint256.Int).Set(price), nil
}

// withoutPurchase settles a passed proposal whose purchase could not happen.
// In strict mode the cause is returned and the proposal stays executable.
func (ee *ExecutionEngine) withoutPurchase(p *Proposal, outcome Outcome, cause error) (Outcome, *uint256.Int, error) {
	if ee.config.StrictExecution {
		return OutcomeNone, nil, cause
	}
	log.Warn("Passed proposal resolved without purchase", "id", p.ID, "unit", p.Unit, "outcome", outcome, "err", cause)
	return outcome, new(uint256.Int), nil
}

// replay applies a journaled execution. A purchase already debited by its
// PurchaseStartedEvent is confirmed; otherwise the recorded price is debited.
func (ee *ExecutionEngine) replay(ev *ProposalExecutedEvent) error {
	e, err := ee.ledger.entry(ev.ID)
	if err != nil {
		return fmt.Errorf("%w: execution of unknown proposal %d", ErrInvalidEvent, ev.ID)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.proposal.Executed {
		return fmt.Errorf("%w: proposal %d executed twice", ErrInvalidEvent, ev.ID)
	}
	if ev.Price == nil {
		ev.Price = new(uint256.Int)
	}
	switch {
	case e.pending != nil:
		if ev.Outcome != OutcomePurchased || !ev.Price.Eq(e.pending) {
			return fmt.Errorf("%w: proposal %d resolved as %v for %v with purchase of %v started", ErrInvalidEvent, ev.ID, ev.Outcome, ev.Price, e.pending)
		}
		e.pending = nil
	case !ev.Price.IsZero():
		if err := ee.treasury.replayDebit(ev.Price); err != nil {
			return err
		}
	}
	e.applyExecution(ev)
	return nil
}

// replayStarted debits the price of a started purchase and holds it on the
// proposal until the purchase is resolved.
func (ee *ExecutionEngine) replayStarted(ev *PurchaseStartedEvent) error {
	e, err := ee.ledger.entry(ev.ID)
	if err != nil {
		return fmt.Errorf("%w: purchase for unknown proposal %d", ErrInvalidEvent, ev.ID)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.proposal.Executed || e.pending != nil {
		return fmt.Errorf("%w: purchase for proposal %d already under way", ErrInvalidEvent, ev.ID)
	}
	if ev.Unit != e.proposal.Unit {
		return fmt.Errorf("%w: purchase of unit %d for proposal on unit %d", ErrInvalidEvent, ev.Unit, e.proposal.Unit)
	}
	if ev.Price == nil {
		return fmt.Errorf("%w: purchase without price", ErrInvalidEvent)
	}
	if err := ee.treasury.replayDebit(ev.Price); err != nil {
		return err
	}
	e.pending = new(uint256.Int).Set(ev.Price)
	return nil
}

// replayAborted returns the price of a failed purchase to the treasury.
func (ee *ExecutionEngine) replayAborted(ev *PurchaseAbortedEvent) error {
	e, err := ee.ledger.entry(ev.ID)
	if err != nil {
		return fmt.Errorf("%w: abort for unknown proposal %d", ErrInvalidEvent, ev.ID)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.pending == nil {
		return fmt.Errorf("%w: no purchase under way for proposal %d", ErrInvalidEvent, ev.ID)
	}
	if err := ee.treasury.replayCredit(e.pending); err != nil {
		return err
	}
	e.pending = nil
	return nil
}

// settle marks every proposal with an unresolved started purchase as
// purchased. The marketplace may have sold the unit before the outcome
// was journaled, so the price stays debited and the proposal is closed.
func (ee *ExecutionEngine) settle() []*Proposal {
	ee.ledger.mu.RLock()
	entries := make([]*proposalEntry, len(ee.ledger.entries))
	copy(entries, ee.ledger.entries)
	ee.ledger.mu.RUnlock()

	var settled []*Proposal
	for _, e := range entries {
		e.mu.Lock()
		if e.pending != nil {
			e.applyExecution(&ProposalExecutedEvent{ID: e.proposal.ID, Outcome: OutcomePurchased, Price: e.pending})
			e.pending = nil
			settled = append(settled, e.snapshot())
			log.Warn("Settled unresolved purchase", "id", e.proposal.ID, "unit", e.proposal.Unit, "price", e.proposal.Price)
		}
		e.mu.Unlock()
	}
	return settled
}
