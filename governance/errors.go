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

import "errors"

// Authorization errors
var (
	ErrUnauthorized = errors.New("caller is not authorized")
)

// Proposal errors
var (
	ErrProposalNotFound = errors.New("proposal not found")
	ErrVotingClosed     = errors.New("voting period has ended")
	ErrTooEarly         = errors.New("voting period has not ended yet")
	ErrAlreadyVoted     = errors.New("voter has already voted on this proposal")
	ErrAlreadyExecuted  = errors.New("proposal already executed")
	ErrInvalidChoice    = errors.New("invalid vote choice")
)

// Treasury errors
var (
	ErrInsufficientFunds = errors.New("insufficient treasury funds")
	ErrInvalidAmount     = errors.New("invalid amount")
)

// Collaborator errors
var (
	ErrOracleUnavailable = errors.New("oracle unavailable")
	ErrUnitUnavailable   = errors.New("unit is not available for purchase")
	ErrPurchaseRejected  = errors.New("purchase rejected by marketplace")
)

// Journal errors
var (
	ErrJournal      = errors.New("journal write failed")
	ErrInvalidEvent = errors.New("journal event does not apply to current state")
)
