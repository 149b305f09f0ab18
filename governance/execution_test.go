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
	"testing"

	"github.com/holiman/uint256"
)

// fundedDAO returns a DAO holding balance with one passed proposal for unit.
func fundedDAO(t *testing.T, config *Config, balance uint64, unit uint64) (*testDAO, uint64) {
	t.Helper()
	td := newTestDAO(config, testAlice, testBob, testCarol)
	ctx := context.Background()

	if balance > 0 {
		if err := td.Deposit(testController, uint256.NewInt(balance)); err != nil {
			t.Fatalf("deposit failed: %v", err)
		}
	}
	id, err := td.CreateProposal(ctx, unit, testAlice)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := td.Vote(ctx, id, testAlice, ChoiceYay); err != nil {
		t.Fatalf("vote failed: %v", err)
	}
	if err := td.Vote(ctx, id, testBob, ChoiceYay); err != nil {
		t.Fatalf("vote failed: %v", err)
	}
	return td, id
}

// Scenario A: a passed proposal buys an available unit.
func TestExecutionEngine_Purchase(t *testing.T) {
	td, id := fundedDAO(t, nil, 100, 7)
	ctx := context.Background()

	td.pastDeadline(id)
	outcome, err := td.Execute(ctx, id, testCarol)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != OutcomePurchased {
		t.Errorf("expected outcome %v, got %v", OutcomePurchased, outcome)
	}
	if bal := td.Balance(); bal.Uint64() != 90 {
		t.Errorf("expected balance 90, got %v", bal)
	}
	p, _ := td.GetProposal(id)
	if !p.Executed || p.Outcome != OutcomePurchased || p.Price.Uint64() != 10 {
		t.Errorf("unexpected proposal state: executed=%v outcome=%v price=%v", p.Executed, p.Outcome, p.Price)
	}
	if got := td.market.Purchases(); len(got) != 1 || got[0] != 7 {
		t.Errorf("expected purchase of unit 7, got %v", got)
	}
	if p.Status(td.clock.Now()) != StatusExecuted {
		t.Errorf("expected status executed, got %v", p.Status(td.clock.Now()))
	}
}

// Scenario B: a rejected proposal does not touch the treasury.
func TestExecutionEngine_Rejected(t *testing.T) {
	td := newTestDAO(nil, testAlice, testBob, testCarol)
	ctx := context.Background()
	if err := td.Deposit(testController, uint256.NewInt(100)); err != nil {
		t.Fatal(err)
	}

	id, _ := td.CreateProposal(ctx, 3, testAlice)
	td.Vote(ctx, id, testAlice, ChoiceYay)
	td.Vote(ctx, id, testBob, ChoiceNay)
	td.Vote(ctx, id, testCarol, ChoiceNay)

	td.pastDeadline(id)
	outcome, err := td.Execute(ctx, id, testAlice)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != OutcomeRejected {
		t.Errorf("expected outcome %v, got %v", OutcomeRejected, outcome)
	}
	if bal := td.Balance(); bal.Uint64() != 100 {
		t.Errorf("expected unchanged balance 100, got %v", bal)
	}
	if len(td.market.Purchases()) != 0 {
		t.Error("rejected proposal must not purchase")
	}
	p, _ := td.GetProposal(id)
	if !p.Executed {
		t.Error("rejected proposal must be marked executed")
	}
}

func TestExecutionEngine_TieIsRejected(t *testing.T) {
	td := newTestDAO(nil, testAlice, testBob)
	ctx := context.Background()
	td.Deposit(testController, uint256.NewInt(100))

	id, _ := td.CreateProposal(ctx, 3, testAlice)
	td.Vote(ctx, id, testAlice, ChoiceYay)
	td.Vote(ctx, id, testBob, ChoiceNay)
	td.pastDeadline(id)

	outcome, err := td.Execute(ctx, id, testAlice)
	if err != nil || outcome != OutcomeRejected {
		t.Errorf("expected rejected outcome, got %v, %v", outcome, err)
	}
}

func TestExecutionEngine_NoVotesIsRejected(t *testing.T) {
	td := newTestDAO(nil, testAlice)
	ctx := context.Background()

	id, _ := td.CreateProposal(ctx, 3, testAlice)
	td.pastDeadline(id)
	outcome, err := td.Execute(ctx, id, testOutsider)
	if err != nil || outcome != OutcomeRejected {
		t.Errorf("expected rejected outcome, got %v, %v", outcome, err)
	}
}

func TestExecutionEngine_TooEarly(t *testing.T) {
	td, id := fundedDAO(t, nil, 100, 7)
	ctx := context.Background()

	p, _ := td.GetProposal(id)
	td.clock.Set(p.Deadline - 1)
	if _, err := td.Execute(ctx, id, testAlice); err != ErrTooEarly {
		t.Errorf("expected error %v, got %v", ErrTooEarly, err)
	}
	p, _ = td.GetProposal(id)
	if p.Executed {
		t.Error("proposal must not be executed before deadline")
	}
	if td.Balance().Uint64() != 100 {
		t.Error("treasury must be untouched before deadline")
	}
}

func TestExecutionEngine_AlreadyExecuted(t *testing.T) {
	td, id := fundedDAO(t, nil, 100, 7)
	ctx := context.Background()

	td.pastDeadline(id)
	if _, err := td.Execute(ctx, id, testAlice); err != nil {
		t.Fatal(err)
	}
	if _, err := td.Execute(ctx, id, testAlice); err != ErrAlreadyExecuted {
		t.Errorf("expected error %v, got %v", ErrAlreadyExecuted, err)
	}
	if td.Balance().Uint64() != 90 {
		t.Errorf("second execution must not debit again, balance %v", td.Balance())
	}
	if n := td.market.purchaseCnt.Load(); n != 1 {
		t.Errorf("expected a single purchase call, got %d", n)
	}
}

func TestExecutionEngine_NotFound(t *testing.T) {
	td := newTestDAO(nil, testAlice)
	if _, err := td.Execute(context.Background(), 3, testAlice); err != ErrProposalNotFound {
		t.Errorf("expected error %v, got %v", ErrProposalNotFound, err)
	}
}

func TestExecutionEngine_UnitUnavailable(t *testing.T) {
	td, id := fundedDAO(t, nil, 100, 7)
	td.market.sold[7] = true

	td.pastDeadline(id)
	outcome, err := td.Execute(context.Background(), id, testAlice)
	if err != nil {
		t.Fatalf("best-effort execution should succeed, got %v", err)
	}
	if outcome != OutcomeUnavailable {
		t.Errorf("expected outcome %v, got %v", OutcomeUnavailable, outcome)
	}
	if td.Balance().Uint64() != 100 {
		t.Errorf("expected unchanged balance, got %v", td.Balance())
	}
}

func TestExecutionEngine_InsufficientFunds(t *testing.T) {
	td, id := fundedDAO(t, nil, 5, 7)

	td.pastDeadline(id)
	outcome, err := td.Execute(context.Background(), id, testAlice)
	if err != nil {
		t.Fatalf("best-effort execution should succeed, got %v", err)
	}
	if outcome != OutcomeInsufficientFunds {
		t.Errorf("expected outcome %v, got %v", OutcomeInsufficientFunds, outcome)
	}
	if td.Balance().Uint64() != 5 {
		t.Errorf("expected unchanged balance, got %v", td.Balance())
	}
	if len(td.market.Purchases()) != 0 {
		t.Error("no purchase expected without funds")
	}
	p, _ := td.GetProposal(id)
	if !p.Executed {
		t.Error("best-effort execution marks the proposal executed")
	}
}

func TestExecutionEngine_PurchaseRejected(t *testing.T) {
	td, id := fundedDAO(t, nil, 100, 7)
	td.market.rejectBuy = true

	td.pastDeadline(id)
	outcome, err := td.Execute(context.Background(), id, testAlice)
	if err != nil {
		t.Fatalf("best-effort execution should succeed, got %v", err)
	}
	if outcome != OutcomePurchaseFailed {
		t.Errorf("expected outcome %v, got %v", OutcomePurchaseFailed, outcome)
	}
	if td.Balance().Uint64() != 100 {
		t.Errorf("reservation must be released, balance %v", td.Balance())
	}
}

func TestExecutionEngine_StrictMode(t *testing.T) {
	config := DefaultConfig()
	config.StrictExecution = true
	td, id := fundedDAO(t, config, 5, 7)
	ctx := context.Background()

	td.pastDeadline(id)
	if _, err := td.Execute(ctx, id, testAlice); err != ErrInsufficientFunds {
		t.Fatalf("expected error %v, got %v", ErrInsufficientFunds, err)
	}
	p, _ := td.GetProposal(id)
	if p.Executed {
		t.Fatal("strict execution must leave the proposal executable")
	}

	// Funding the treasury lets the same proposal go through.
	if err := td.Deposit(testBob, uint256.NewInt(5)); err != nil {
		t.Fatal(err)
	}
	outcome, err := td.Execute(ctx, id, testAlice)
	if err != nil || outcome != OutcomePurchased {
		t.Fatalf("expected purchase on retry, got %v, %v", outcome, err)
	}
	if !td.Balance().IsZero() {
		t.Errorf("expected empty treasury, got %v", td.Balance())
	}
}

func TestExecutionEngine_StrictModeUnavailable(t *testing.T) {
	config := DefaultConfig()
	config.StrictExecution = true
	td, id := fundedDAO(t, config, 100, 7)
	td.market.sold[7] = true

	td.pastDeadline(id)
	if _, err := td.Execute(context.Background(), id, testAlice); err != ErrUnitUnavailable {
		t.Errorf("expected error %v, got %v", ErrUnitUnavailable, err)
	}
}

func TestExecutionEngine_MarketplaceDown(t *testing.T) {
	td, id := fundedDAO(t, nil, 100, 7)
	ctx := context.Background()
	td.pastDeadline(id)

	td.market.failQuery = true
	if _, err := td.Execute(ctx, id, testAlice); !errors.Is(err, ErrOracleUnavailable) {
		t.Fatalf("expected error %v, got %v", ErrOracleUnavailable, err)
	}
	td.market.failQuery = false

	td.market.failBuy = true
	if _, err := td.Execute(ctx, id, testAlice); !errors.Is(err, ErrOracleUnavailable) {
		t.Fatalf("expected error %v, got %v", ErrOracleUnavailable, err)
	}
	if td.Balance().Uint64() != 100 {
		t.Errorf("failed purchase must release the reservation, balance %v", td.Balance())
	}
	p, _ := td.GetProposal(id)
	if p.Executed {
		t.Fatal("oracle failure must leave the proposal unexecuted")
	}

	td.market.failBuy = false
	if outcome, err := td.Execute(ctx, id, testAlice); err != nil || outcome != OutcomePurchased {
		t.Errorf("retry after recovery: %v, %v", outcome, err)
	}
}

func TestExecutionEngine_HoldersOnly(t *testing.T) {
	config := DefaultConfig()
	config.ExecuteHoldersOnly = true
	td, id := fundedDAO(t, config, 100, 7)
	ctx := context.Background()
	td.pastDeadline(id)

	if _, err := td.Execute(ctx, id, testOutsider); err != ErrUnauthorized {
		t.Errorf("expected error %v, got %v", ErrUnauthorized, err)
	}
	if _, err := td.Execute(ctx, id, testCarol); err != nil {
		t.Errorf("holder execution failed: %v", err)
	}
}

func TestExecutionEngine_JournalFailure(t *testing.T) {
	td := newTestDAO(nil, testAlice)
	ctx := context.Background()

	id, _ := td.CreateProposal(ctx, 3, testAlice)
	td.pastDeadline(id)
	td.journal.SetFail(true)

	if _, err := td.Execute(ctx, id, testAlice); !errors.Is(err, ErrJournal) {
		t.Fatalf("expected error %v, got %v", ErrJournal, err)
	}
	p, _ := td.GetProposal(id)
	if p.Executed {
		t.Error("unjournaled rejection must not be applied")
	}
}

func TestExecutionEngine_JournalFailureBeforePurchase(t *testing.T) {
	td, id := fundedDAO(t, nil, 100, 7)
	td.pastDeadline(id)
	td.journal.SetFail(true)

	outcome, err := td.Execute(context.Background(), id, testAlice)
	if !errors.Is(err, ErrJournal) {
		t.Fatalf("expected error %v, got %v", ErrJournal, err)
	}
	if outcome != OutcomeNone {
		t.Errorf("expected outcome %v, got %v", OutcomeNone, outcome)
	}
	if got := td.market.Purchases(); len(got) != 0 {
		t.Errorf("unit bought without a journaled purchase: %v", got)
	}
	if td.Balance().Uint64() != 100 {
		t.Errorf("reservation must be released, balance %v", td.Balance())
	}
	p, _ := td.GetProposal(id)
	if p.Executed {
		t.Error("proposal must stay executable")
	}
}

func TestExecutionEngine_JournalFailureAfterPurchase(t *testing.T) {
	td, id := fundedDAO(t, nil, 100, 7)
	ctx := context.Background()
	td.pastDeadline(id)
	td.journal.FailAfter(1)

	outcome, err := td.Execute(ctx, id, testAlice)
	if !errors.Is(err, ErrJournal) {
		t.Fatalf("expected error %v, got %v", ErrJournal, err)
	}
	if outcome != OutcomePurchased {
		t.Errorf("expected outcome %v, got %v", OutcomePurchased, outcome)
	}
	p, _ := td.GetProposal(id)
	if !p.Executed {
		t.Error("a completed purchase must mark the proposal executed")
	}
	if td.Balance().Uint64() != 90 {
		t.Errorf("expected balance 90, got %v", td.Balance())
	}

	// Restarting from the journal must not buy the unit a second time.
	market := NewMockMarketplace(10)
	restored := New(DefaultConfig(), testController, Backends{
		Membership:  NewMockMembership(testAlice, testBob, testCarol),
		Marketplace: market,
		Clock:       td.clock,
	})
	if err := restored.Restore(td.journal.Events()); err != nil {
		t.Fatal(err)
	}
	p, _ = restored.GetProposal(id)
	if !p.Executed || p.Outcome != OutcomePurchased || p.Price.Uint64() != 10 {
		t.Errorf("unexpected restored state: executed=%v outcome=%v price=%v", p.Executed, p.Outcome, p.Price)
	}
	if restored.Balance().Uint64() != 90 {
		t.Errorf("expected restored balance 90, got %v", restored.Balance())
	}
	if _, err := restored.Execute(ctx, id, testAlice); err != ErrAlreadyExecuted {
		t.Errorf("expected error %v, got %v", ErrAlreadyExecuted, err)
	}
	if got := market.Purchases(); len(got) != 0 {
		t.Errorf("restored DAO bought again: %v", got)
	}
}

func TestExecutionEngine_FailedPurchaseIsJournaled(t *testing.T) {
	td, id := fundedDAO(t, nil, 100, 7)
	ctx := context.Background()
	td.pastDeadline(id)
	td.market.failBuy = true

	if _, err := td.Execute(ctx, id, testAlice); !errors.Is(err, ErrOracleUnavailable) {
		t.Fatalf("expected error %v, got %v", ErrOracleUnavailable, err)
	}
	events := td.journal.Events()
	if n := len(events); n < 2 || events[n-2].Kind() != EventPurchaseStarted || events[n-1].Kind() != EventPurchaseAborted {
		t.Fatalf("expected started and aborted purchase at journal tail, got %v", events)
	}

	restored := New(DefaultConfig(), testController, Backends{
		Membership:  NewMockMembership(testAlice, testBob, testCarol),
		Marketplace: NewMockMarketplace(10),
		Clock:       td.clock,
	})
	if err := restored.Restore(events); err != nil {
		t.Fatal(err)
	}
	if restored.Balance().Uint64() != 100 {
		t.Errorf("aborted purchase must not be debited, balance %v", restored.Balance())
	}
	p, _ := restored.GetProposal(id)
	if p.Executed {
		t.Error("aborted purchase must leave the proposal executable")
	}
	if outcome, err := restored.Execute(ctx, id, testAlice); err != nil || outcome != OutcomePurchased {
		t.Errorf("execution after restore: %v, %v", outcome, err)
	}
}

func TestExecutionEngine_AbortNotJournaled(t *testing.T) {
	td, id := fundedDAO(t, nil, 100, 7)
	td.pastDeadline(id)
	td.market.rejectBuy = true
	td.journal.FailAfter(1)

	if _, err := td.Execute(context.Background(), id, testAlice); !errors.Is(err, ErrJournal) {
		t.Fatalf("expected error %v, got %v", ErrJournal, err)
	}
	if td.Balance().Uint64() != 100 {
		t.Errorf("reservation must be released, balance %v", td.Balance())
	}
	p, _ := td.GetProposal(id)
	if p.Executed {
		t.Error("proposal must stay executable")
	}
}
