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

// Package marketplace implements an in-memory asset market the DAO treasury
// can buy units from.
package marketplace

import (
	"context"
	"fmt"
	"sync"

	"github.com/cryptodevs/dao/governance"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"
)

// Fake is a fixed-price marketplace. Every unit is for sale until bought;
// a purchase must pay exactly the listed price and transfers the unit to
// the configured buyer.
type Fake struct {
	mu    sync.Mutex
	price *uint256.Int
	buyer common.Address
	owner map[uint64]common.Address
}

// NewFake creates a marketplace selling every unit at price to buyer.
func NewFake(price *uint256.Int, buyer common.Address) *Fake {
	return &Fake{
		price: new(uint256.Int).Set(price),
		buyer: buyer,
		owner: make(map[uint64]common.Address),
	}
}

// Available implements governance.MarketplaceOracle.
func (m *Fake) Available(ctx context.Context, unit uint64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, sold := m.owner[unit]
	return !sold, nil
}

// PriceOf implements governance.MarketplaceOracle.
func (m *Fake) PriceOf(ctx context.Context, unit uint64) (*uint256.Int, error) {
	return new(uint256.Int).Set(m.price), nil
}

// Purchase implements governance.MarketplaceOracle.
func (m *Fake) Purchase(ctx context.Context, unit uint64, price *uint256.Int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if price == nil || !price.Eq(m.price) {
		return fmt.Errorf("%w: paid %v, price is %v", governance.ErrPurchaseRejected, price, m.price)
	}
	if owner, sold := m.owner[unit]; sold {
		return fmt.Errorf("%w: unit %d already sold to %s", governance.ErrPurchaseRejected, unit, owner)
	}
	m.owner[unit] = m.buyer

	log.Info("Marketplace sold unit", "unit", unit, "buyer", m.buyer, "price", price)
	return nil
}

// MarkSold records unit as owned by the buyer without a payment. It is used
// to rebuild the market when purchases are replayed.
func (m *Fake) MarkSold(unit uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.owner[unit] = m.buyer
}

// OwnerOf returns the owner of a sold unit.
func (m *Fake) OwnerOf(unit uint64) (common.Address, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	owner, ok := m.owner[unit]
	return owner, ok
}
