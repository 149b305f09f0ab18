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

// Package membership provides credential registries the DAO uses to decide
// who may propose and vote.
package membership

import (
	"context"
	"errors"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
)

var (
	ErrNonexistentToken = errors.New("credential does not exist")
	ErrZeroAddress      = errors.New("zero address")
)

// Registry is an in-process credential registry with ERC-721 semantics:
// every token has exactly one owner and balances count owned tokens.
type Registry struct {
	mu       sync.RWMutex
	owners   map[uint64]common.Address
	balances map[common.Address]uint64
	next     uint64
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		owners:   make(map[uint64]common.Address),
		balances: make(map[common.Address]uint64),
	}
}

// Mint issues the next credential to holder and returns its token id.
func (r *Registry) Mint(holder common.Address) (uint64, error) {
	if holder == (common.Address{}) {
		return 0, ErrZeroAddress
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	token := r.next
	r.next++
	r.owners[token] = holder
	r.balances[holder]++

	log.Debug("Minted credential", "token", token, "holder", holder)
	return token, nil
}

// BalanceOf implements governance.MembershipOracle.
func (r *Registry) BalanceOf(ctx context.Context, holder common.Address) (uint64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.balances[holder], nil
}

// OwnerOf implements governance.MembershipOracle.
func (r *Registry) OwnerOf(ctx context.Context, token uint64) (common.Address, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	owner, ok := r.owners[token]
	if !ok {
		return common.Address{}, ErrNonexistentToken
	}
	return owner, nil
}

// TotalSupply returns the number of credentials minted.
func (r *Registry) TotalSupply() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.next
}
