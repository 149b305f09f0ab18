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
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// EventKind identifies a journaled state transition
type EventKind uint8

const (
	EventProposalCreated  EventKind = 0x01
	EventVoteCast         EventKind = 0x02
	EventProposalExecuted EventKind = 0x03
	EventDeposit          EventKind = 0x04
	EventWithdrawal       EventKind = 0x05
	EventPurchaseStarted  EventKind = 0x06
	EventPurchaseAborted  EventKind = 0x07
)

func (k EventKind) String() string {
	switch k {
	case EventProposalCreated:
		return "proposal-created"
	case EventVoteCast:
		return "vote-cast"
	case EventProposalExecuted:
		return "proposal-executed"
	case EventDeposit:
		return "deposit"
	case EventWithdrawal:
		return "withdrawal"
	case EventPurchaseStarted:
		return "purchase-started"
	case EventPurchaseAborted:
		return "purchase-aborted"
	default:
		return "unknown"
	}
}

// Event is a state transition recorded in the journal. Replaying the events
// of a journal in order through DAO.Apply reconstructs ledger and treasury.
type Event interface {
	Kind() EventKind
}

// ProposalCreatedEvent is emitted when a proposal is allocated
type ProposalCreatedEvent struct {
	ID        uint64
	Unit      uint64
	Proposer  common.Address
	CreatedAt uint64
	Deadline  uint64
}

// VoteCastEvent is emitted when a vote is accepted
type VoteCastEvent struct {
	ID     uint64
	Voter  common.Address
	Choice Choice
	Time   uint64
}

// ProposalExecutedEvent is emitted when a proposal reaches its terminal state.
// Price is the amount debited from the treasury, zero unless purchased.
type ProposalExecutedEvent struct {
	ID      uint64
	Caller  common.Address
	Outcome Outcome
	Price   *uint256.Int
	Time    uint64
}

// DepositEvent is emitted when funds enter the treasury
type DepositEvent struct {
	From   common.Address
	Amount *uint256.Int
	Time   uint64
}

// WithdrawalEvent is emitted when the controller withdraws funds
type WithdrawalEvent struct {
	To     common.Address
	Amount *uint256.Int
	Time   uint64
}

// PurchaseStartedEvent is journaled after the price is reserved and before
// the marketplace is asked to sell. Until a PurchaseAbortedEvent or a
// purchased ProposalExecutedEvent follows, the unit counts as bought.
type PurchaseStartedEvent struct {
	ID    uint64
	Unit  uint64
	Price *uint256.Int
	Time  uint64
}

// PurchaseAbortedEvent is journaled when the marketplace call of a started
// purchase fails and the reservation is returned to the treasury.
type PurchaseAbortedEvent struct {
	ID   uint64
	Time uint64
}

func (*ProposalCreatedEvent) Kind() EventKind { return EventProposalCreated }
func (*VoteCastEvent) Kind() EventKind { return EventVoteCast }
func (*ProposalExecutedEvent) Kind() EventKind { return EventProposalExecuted }
func (*DepositEvent) Kind() EventKind { return EventDeposit }
func (*WithdrawalEvent) Kind() EventKind { return EventWithdrawal }
func (*PurchaseStartedEvent) Kind() EventKind { return EventPurchaseStarted }
func (*PurchaseAbortedEvent) Kind() EventKind { return EventPurchaseAborted }
