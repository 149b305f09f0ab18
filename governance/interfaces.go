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
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// MembershipOracle answers questions about the credential (NFT) registry
type MembershipOracle interface {
	// BalanceOf returns the number of credentials held by holder
	BalanceOf(ctx context.Context, holder common.Address) (uint64, error)

	// OwnerOf returns the current holder of a credential unit
	OwnerOf(ctx context.Context, token uint64) (common.Address, error)
}

// MarketplaceOracle is the external market the treasury buys units from
type MarketplaceOracle interface {
	// Available reports whether unit can still be purchased
	Available(ctx context.Context, unit uint64) (bool, error)

	// PriceOf returns the current price of unit
	PriceOf(ctx context.Context, unit uint64) (*uint256.Int, error)

	// Purchase buys unit for price. Implementations return an error wrapping
	// ErrPurchaseRejected when the market refuses the sale; any other error
	// is treated as the market being unreachable.
	Purchase(ctx context.Context, unit uint64, price *uint256.Int) error
}

// Journal durably records state transitions before they are applied
type Journal interface {
	// Append persists ev. A nil error means the event survives a restart.
	Append(ev Event) error
}

// Clock supplies the current time in unix seconds
type Clock interface {
	Now() uint64
}

// SystemClock reads the wall clock
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() uint64 {
	return uint64(time.Now().Unix())
}

type nopJournal struct{}

func (nopJournal) Append(Event) error { return nil }
