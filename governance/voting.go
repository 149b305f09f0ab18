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

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
)

// VotingEngine accepts one vote per credential holder per proposal
type VotingEngine struct {
	ledger     *Ledger
	membership MembershipOracle
	journal    Journal
	clock      Clock
}

// NewVotingEngine creates a voting engine operating on ledger
func NewVotingEngine(ledger *Ledger, membership MembershipOracle, journal Journal, clock Clock) *VotingEngine {
	if journal == nil {
		journal = nopJournal{}
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &VotingEngine{
		ledger:     ledger,
		membership: membership,
		journal:    journal,
		clock:      clock,
	}
}

// Vote casts voter's choice on proposal id. A holder of several credentials
// still casts a single vote.
func (ve *VotingEngine) Vote(ctx context.Context, id uint64, voter common.Address, choice Choice) error {
	if choice != ChoiceYay && choice != ChoiceNay {
		return ErrInvalidChoice
	}
	e, err := ve.ledger.entry(id)
	if err != nil {
		return err
	}

	// Membership, deadline and duplicate checks happen in the same critical
	// section as the tally update.
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := requireHolder(ctx, ve.membership, voter); err != nil {
		return err
	}
	now := ve.clock.Now()
	if e.proposal.Executed || now >= e.proposal.Deadline {
		return ErrVotingClosed
	}
	if e.voters.Contains(voter) {
		return ErrAlreadyVoted
	}

	ev := &VoteCastEvent{ID: id, Voter: voter, Choice: choice, Time: now}
	if err := ve.journal.Append(ev); err != nil {
		return fmt.Errorf("%w: %v", ErrJournal, err)
	}
	e.applyVote(voter, choice)

	voteCastCounter.Inc(1)
	log.Debug("Vote cast", "id", id, "voter", voter, "choice", choice,
		"yay", e.proposal.YayVotes, "nay", e.proposal.NayVotes)
	return nil
}

// replay applies a journaled vote.
func (ve *VotingEngine) replay(ev *VoteCastEvent) error {
	e, err := ve.ledger.entry(ev.ID)
	if err != nil {
		return fmt.Errorf("%w: vote on unknown proposal %d", ErrInvalidEvent, ev.ID)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	switch {
	case ev.Choice != ChoiceYay && ev.Choice != ChoiceNay:
		return fmt.Errorf("%w: vote choice %d", ErrInvalidEvent, ev.Choice)
	case e.proposal.Executed:
		return fmt.Errorf("%w: vote on executed proposal %d", ErrInvalidEvent, ev.ID)
	case e.voters.Contains(ev.Voter):
		return fmt.Errorf("%w: duplicate vote by %s on proposal %d", ErrInvalidEvent, ev.Voter, ev.ID)
	}
	e.applyVote(ev.Voter, ev.Choice)
	return nil
}
