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
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Choice represents a vote on a proposal
type Choice uint8

const (
	ChoiceYay Choice = 0x00 // in favour of the purchase
	ChoiceNay Choice = 0x01 // against the purchase
)

func (c Choice) String() string {
	switch c {
	case ChoiceYay:
		return "YAY"
	case ChoiceNay:
		return "NAY"
	default:
		return fmt.Sprintf("Choice(%d)", uint8(c))
	}
}

// ParseChoice converts "YAY"/"NAY" (case-insensitive) into a Choice.
func ParseChoice(s string) (Choice, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "YAY":
		return ChoiceYay, nil
	case "NAY":
		return ChoiceNay, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidChoice, s)
}

// Status represents the lifecycle state of a proposal at a point in time
type Status uint8

const (
	StatusOpen     Status = 0x00 // voting window open
	StatusClosed   Status = 0x01 // deadline passed, not yet executed
	StatusExecuted Status = 0x02 // terminal
)

func (s Status) String() string {
	switch s {
	case StatusOpen:
		return "open"
	case StatusClosed:
		return "closed"
	case StatusExecuted:
		return "executed"
	default:
		return fmt.Sprintf("Status(%d)", uint8(s))
	}
}

// Outcome records how an executed proposal was resolved
type Outcome uint8

const (
	OutcomeNone              Outcome = 0x00 // not executed
	OutcomeRejected          Outcome = 0x01 // nay >= yay, nothing bought
	OutcomePurchased         Outcome = 0x02 // unit bought, treasury debited
	OutcomeUnavailable       Outcome = 0x03 // unit already sold
	OutcomeInsufficientFunds Outcome = 0x04 // treasury could not cover the price
	OutcomePurchaseFailed    Outcome = 0x05 // marketplace rejected the purchase
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNone:
		return "none"
	case OutcomeRejected:
		return "rejected"
	case OutcomePurchased:
		return "purchased"
	case OutcomeUnavailable:
		return "unavailable"
	case OutcomeInsufficientFunds:
		return "insufficient-funds"
	case OutcomePurchaseFailed:
		return "purchase-failed"
	default:
		return fmt.Sprintf("Outcome(%d)", uint8(o))
	}
}

// Proposal is a governance decision to buy one marketplace unit.
// Values returned by the DAO are snapshots; mutating them has no effect on
// the ledger.
type Proposal struct {
	ID        uint64           // sequential, starts at 0
	Unit      uint64           // marketplace unit to purchase
	Proposer  common.Address   // credential holder that created it
	CreatedAt uint64           // unix seconds
	Deadline  uint64           // unix seconds, CreatedAt + voting period
	YayVotes  uint64           // votes in favour
	NayVotes  uint64           // votes against
	Executed  bool             // set exactly once
	Outcome   Outcome          // resolution, OutcomeNone until executed
	Price     *uint256.Int     // amount paid, zero unless purchased
	Voters    []common.Address // in the order votes were cast
}

// Status returns the lifecycle state of the proposal at time now.
func (p *Proposal) Status(now uint64) Status {
	switch {
	case p.Executed:
		return StatusExecuted
	case now < p.Deadline:
		return StatusOpen
	default:
		return StatusClosed
	}
}

// HasVoted reports whether addr voted on the proposal.
func (p *Proposal) HasVoted(addr common.Address) bool {
	for _, v := range p.Voters {
		if v == addr {
			return true
		}
	}
	return false
}

// Config holds the governance rules
type Config struct {
	// VotingPeriod is the fixed window between creation and deadline.
	// Rounded down to whole seconds, must be at least one second.
	VotingPeriod time.Duration

	// StrictExecution makes Execute fail, leaving the proposal re-executable,
	// when a passed proposal cannot complete its purchase. When false the
	// proposal is marked executed regardless.
	StrictExecution bool

	// ExecuteHoldersOnly requires the Execute caller to hold a credential.
	ExecuteHoldersOnly bool
}

// DefaultConfig returns the default governance configuration
func DefaultConfig() *Config {
	return &Config{
		VotingPeriod:       5 * time.Minute,
		StrictExecution:    false,
		ExecuteHoldersOnly: false,
	}
}

// votingPeriodSeconds returns the voting window in whole seconds. Periods
// shorter than a second, including negative ones, are raised to one second.
func (c *Config) votingPeriodSeconds() uint64 {
	if c.VotingPeriod < time.Second {
		return 1
	}
	return uint64(c.VotingPeriod / time.Second)
}
