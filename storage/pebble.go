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

	"github.com/cockroachdb/pebble"
	"github.com/ethereum/go-ethereum/log"
)

// Pebble is a persistent key-value store backed by cockroachdb/pebble.
type Pebble struct {
	fn string
	db *pebble.DB
}

// NewPebble opens (or creates) a pebble database at file.
func NewPebble(file string, cache int, handles int) (*Pebble, error) {
	cache = max(cache, minCache)
	handles = max(handles, minHandles)

	log.Info("Allocated cache and file handles", "database", file, "engine", EnginePebble, "cache", cache, "handles", handles)

	c := pebble.NewCache(int64(cache * 1024 * 1024))
	defer c.Unref()

	opts := &pebble.Options{
		Cache:        c,
		MaxOpenFiles: handles,
	}
	db, err := pebble.Open(file, opts)
	if err != nil {
		return nil, err
	}
	return &Pebble{fn: file, db: db}, nil
}

// Get retrieves the value stored under key.
func (d *Pebble) Get(key []byte) ([]byte, error) {
	dat, closer, err := d.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	ret := make([]byte, len(dat))
	copy(ret, dat)
	closer.Close()
	return ret, nil
}

// Put stores value under key with a synced write.
func (d *Pebble) Put(key []byte, value []byte) error {
	return d.db.Set(key, value, pebble.Sync)
}

// Iterate calls fn for every key carrying prefix, in ascending key order.
func (d *Pebble) Iterate(prefix []byte, fn func(key, value []byte) error) error {
	it, err := d.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: upperBound(prefix),
	})
	if err != nil {
		return err
	}
	for it.First(); it.Valid(); it.Next() {
		if err := fn(it.Key(), it.Value()); err != nil {
			it.Close()
			return err
		}
	}
	return it.Close()
}

// Close flushes pending writes and releases the database.
func (d *Pebble) Close() error {
	return d.db.Close()
}
