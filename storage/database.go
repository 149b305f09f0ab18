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
	"errors"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrUnknownEngine  = errors.New("unknown storage engine")
	ErrJournalCorrupt = errors.New("journal corrupt")
)

// KeyValueStore is the minimal ordered key-value database the journal
// needs. Iterate visits keys with the given prefix in ascending byte order.
type KeyValueStore interface {
	Get(key []byte) ([]byte, error)
	Put(key []byte, value []byte) error
	Iterate(prefix []byte, fn func(key, value []byte) error) error
	Close() error
}

// Open opens the database described by config
func Open(config Config) (KeyValueStore, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	switch config.Engine {
	case EngineLevelDB:
		return NewLevelDB(config.Path, config.Cache, config.Handles)
	case EnginePebble:
		return NewPebble(config.Path, config.Cache, config.Handles)
	default:
		return NewMemory(), nil
	}
}

// upperBound returns the smallest key greater than every key with prefix,
// or nil if there is none.
func upperBound(prefix []byte) []byte {
	limit := make([]byte, len(prefix))
	copy(limit, prefix)
	for i := len(limit) - 1; i >= 0; i-- {
		if limit[i] < 0xff {
			limit[i]++
			return limit[:i+1]
		}
	}
	return nil
}
