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
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var (
	testController = common.HexToAddress("0xc0")
	testAlice      = common.HexToAddress("0xa1")
	testBob        = common.HexToAddress("0xb0")
	testCarol      = common.HexToAddress("0xca")
	testOutsider   = common.HexToAddress("0xee")

	errOracleDown = errors.New("connection refused")
)

// MockMembership is a mock credential registry
type MockMembership struct {
	mu       sync.Mutex
	balances map[common.Address]uint64
	owners   map[uint64]common.Address
	fail     bool
	calls    atomic.Int64
}

func NewMockMembership(holders ...common.Address) *MockMembership {
	m := &MockMembership{
		balances: make(map[common.Address]uint64),
		owners:   make(map[uint64]common.Address),
	}
	for _, h := range holders {
		m.Mint(h)
	}
	return m
}

func (m *MockMembership) Mint(holder common.Address) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	token := uint64(len(m.owners))
	m.owners[token] = holder
	m.balances[holder]++
	return token
}

func (m *MockMembership) SetFail(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = fail
}

func (m *MockMembership) BalanceOf(ctx context.Context, holder common.Address) (uint64, error) {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return 0, errOracleDown
	}
	return m.balances[holder], nil
}

func (m *MockMembership) OwnerOf(ctx context.Context, token uint64) (common.Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return common.Address{}, errOracleDown
	}
	owner, ok := m.owners[token]
	if !ok {
		return common.Address{}, fmt.Errorf("token %d does not exist", token)
	}
	return owner, nil
}

// MockMarketplace is a mock unit marketplace with a single price
type MockMarketplace struct {
	mu          sync.Mutex
	price       *uint256.Int
	sold        map[uint64]bool
	purchases   []uint64
	failQuery   bool
	failBuy     bool
	rejectBuy   bool
	purchaseCnt atomic.Int64
}

func NewMockMarketplace(price uint64) *MockMarketplace {
	return &MockMarketplace{
		price: uint256.NewInt(price),
		sold:  make(map[uint64]bool),
	}
}

func (m *MockMarketplace) Available(ctx context.Context, unit uint64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failQuery {
		return false, errOracleDown
	}
	return !m.sold[unit], nil
}

func (m *MockMarketplace) PriceOf(ctx context.Context, unit uint64) (*uint256.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failQuery {
		return nil, errOracleDown
	}
	return new(uint256.Int).Set(m.price), nil
}

func (m *MockMarketplace) Purchase(ctx context.Context, unit uint64, price *uint256.Int) error {
	m.purchaseCnt.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case m.failBuy:
		return errOracleDown
	case m.rejectBuy:
		return fmt.Errorf("%w: sale paused", ErrPurchaseRejected)
	case m.sold[unit]:
		return fmt.Errorf("%w: unit %d sold", ErrPurchaseRejected, unit)
	case !price.Eq(m.price):
		return fmt.Errorf("%w: wrong price", ErrPurchaseRejected)
	}
	m.sold[unit] = true
	m.purchases = append(m.purchases, unit)
	return nil
}

func (m *MockMarketplace) Purchases() []uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]uint64(nil), m.purchases...)
}

// MockClock is a manually advanced clock
type MockClock struct {
	now atomic.Uint64
}

func NewMockClock(now uint64) *MockClock {
	c := new(MockClock)
	c.now.Store(now)
	return c
}

func (c *MockClock) Now() uint64 { return c.now.Load() }
func (c *MockClock) Advance(secs uint64) { c.now.Add(secs) }
func (c *MockClock) Set(now uint64) { c.now.Store(now) }

// MockJournal records appended events in memory
type MockJournal struct {
	mu       sync.Mutex
	events   []Event
	fail     bool
	capacity int // appends fail once this many events are held, if non-zero
}

func (j *MockJournal) Append(ev Event) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.fail || (j.capacity > 0 && len(j.events) >= j.capacity) {
		return errors.New("disk full")
	}
	j.events = append(j.events, ev)
	return nil
}

func (j *MockJournal) Events() []Event {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]Event(nil), j.events...)
}

func (j *MockJournal) SetFail(fail bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.fail = fail
}

// FailAfter lets n more appends succeed and fails the rest.
func (j *MockJournal) FailAfter(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.capacity = len(j.events) + n
}

// testDAO bundles a DAO with its mock collaborators
type testDAO struct {
	*DAO
	membership *MockMembership
	market     *MockMarketplace
	clock      *MockClock
	journal    *MockJournal
}

func newTestDAO(config *Config, holders ...common.Address) *testDAO {
	if config == nil {
		config = DefaultConfig()
	}
	td := &testDAO{
		membership: NewMockMembership(holders...),
		market:     NewMockMarketplace(10),
		clock:      NewMockClock(1_700_000_000),
		journal:    new(MockJournal),
	}
	td.DAO = New(config, testController, Backends{
		Membership:  td.membership,
		Marketplace: td.market,
		Journal:     td.journal,
		Clock:       td.clock,
	})
	return td
}

// pastDeadline moves the clock to the deadline of proposal id
func (td *testDAO) pastDeadline(id uint64) {
	p, err := td.GetProposal(id)
	if err != nil {
		panic(err)
	}
	td.clock.Set(p.Deadline)
}
