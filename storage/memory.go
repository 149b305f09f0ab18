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
	"github.com/ethereum/go-ethereum/ethdb/memorydb"
)

// Memory is an ephemeral key-value store, used by tests and dev nodes.
type Memory struct {
	db *memorydb.Database
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{db: memorydb.New()}
}

func (m *Memory) Get(key []byte) ([]byte, error) {
	ok, err := m.db.Has(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return m.db.Get(key)
}

func (m *Memory) Put(key []byte, value []byte) error {
	return m.db.Put(key, value)
}

func (m *Memory) Iterate(prefix []byte, fn func(key, value []byte) error) error {
	it := m.db.NewIterator(prefix, nil)
	defer it.Release()

	for it.Next() {
		if err := fn(it.Key(), it.Value()); err != nil {
			return err
		}
	}
	return it.Error()
}

func (m *Memory) Close() error {
	return m.db.Close()
}
