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

package storage

import (
	"fmt"

	"github.com/cryptodevs/dao/governance"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
)

// record is the on-disk envelope of a journal entry. Parent links each
// entry to the Keccak256 hash of the previous encoded record.
type record struct {
	Kind    uint8
	Parent  common.Hash
	Payload []byte
}

type proposalCreatedData struct {
	ID        uint64
	Unit      uint64
	Proposer  common.Address
	CreatedAt uint64
	Deadline  uint64
}

type voteCastData struct {
	ID     uint64
	Voter  common.Address
	Choice uint8
	Time   uint64
}

type proposalExecutedData struct {
	ID      uint64
	Caller  common.Address
	Outcome uint8
	Price   *uint256.Int
	Time    uint64
}

type purchaseStartedData struct {
	ID    uint64
	Unit  uint64
	Price *uint256.Int
	Time  uint64
}

type purchaseAbortedData struct {
	ID   uint64
	Time uint64
}

type transferData struct {
	Account common.Address
	Amount  *uint256.Int
	Time    uint64
}

// encodeEvent serializes ev into its RLP payload.
func encodeEvent(ev governance.Event) ([]byte, error) {
	var data interface{}
	switch e := ev.(type) {
	case *governance.ProposalCreatedEvent:
		data = &proposalCreatedData{
			ID:        e.ID,
			Unit:      e.Unit,
			Proposer:  e.Proposer,
			CreatedAt: e.CreatedAt,
			Deadline:  e.Deadline,
		}
	case *governance.VoteCastEvent:
		data = &voteCastData{
			ID:     e.ID,
			Voter:  e.Voter,
			Choice: uint8(e.Choice),
			Time:   e.Time,
		}
	case *governance.ProposalExecutedEvent:
		data = &proposalExecutedData{
			ID:      e.ID,
			Caller:  e.Caller,
			Outcome: uint8(e.Outcome),
			Price:   orZero(e.Price),
			Time:    e.Time,
		}
	case *governance.DepositEvent:
		data = &transferData{Account: e.From, Amount: orZero(e.Amount), Time: e.Time}
	case *governance.WithdrawalEvent:
		data = &transferData{Account: e.To, Amount: orZero(e.Amount), Time: e.Time}
	case *governance.PurchaseStartedEvent:
		data = &purchaseStartedData{ID: e.ID, Unit: e.Unit, Price: orZero(e.Price), Time: e.Time}
	case *governance.PurchaseAbortedEvent:
		data = &purchaseAbortedData{ID: e.ID, Time: e.Time}
	default:
		return nil, fmt.Errorf("%w: unsupported event %T", governance.ErrInvalidEvent, ev)
	}
	return rlp.EncodeToBytes(data)
}

// decodeEvent is the inverse of encodeEvent.
func decodeEvent(kind governance.EventKind, payload []byte) (governance.Event, error) {
	switch kind {
	case governance.EventProposalCreated:
		var data proposalCreatedData
		if err := rlp.DecodeBytes(payload, &data); err != nil {
			return nil, err
		}
		return &governance.ProposalCreatedEvent{
			ID:        data.ID,
			Unit:      data.Unit,
			Proposer:  data.Proposer,
			CreatedAt: data.CreatedAt,
			Deadline:  data.Deadline,
		}, nil

	case governance.EventVoteCast:
		var data voteCastData
		if err := rlp.DecodeBytes(payload, &data); err != nil {
			return nil, err
		}
		return &governance.VoteCastEvent{
			ID:     data.ID,
			Voter:  data.Voter,
			Choice: governance.Choice(data.Choice),
			Time:   data.Time,
		}, nil

	case governance.EventProposalExecuted:
		var data proposalExecutedData
		if err := rlp.DecodeBytes(payload, &data); err != nil {
			return nil, err
		}
		return &governance.ProposalExecutedEvent{
			ID:      data.ID,
			Caller:  data.Caller,
			Outcome: governance.Outcome(data.Outcome),
			Price:   orZero(data.Price),
			Time:    data.Time,
		}, nil

	case governance.EventDeposit, governance.EventWithdrawal:
		var data transferData
		if err := rlp.DecodeBytes(payload, &data); err != nil {
			return nil, err
		}
		if kind == governance.EventDeposit {
			return &governance.DepositEvent{From: data.Account, Amount: orZero(data.Amount), Time: data.Time}, nil
		}
		return &governance.WithdrawalEvent{To: data.Account, Amount: orZero(data.Amount), Time: data.Time}, nil

	case governance.EventPurchaseStarted:
		var data purchaseStartedData
		if err := rlp.DecodeBytes(payload, &data); err != nil {
			return nil, err
		}
		return &governance.PurchaseStartedEvent{ID: data.ID, Unit: data.Unit, Price: orZero(data.Price), Time: data.Time}, nil

	case governance.EventPurchaseAborted:
		var data purchaseAbortedData
		if err := rlp.DecodeBytes(payload, &data); err != nil {
			return nil, err
		}
		return &governance.PurchaseAbortedEvent{ID: data.ID, Time: data.Time}, nil
	}
	return nil, fmt.Errorf("unknown event kind %d", kind)
}

func orZero(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return v
}
