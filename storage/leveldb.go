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

	"github.com/ethereum/go-ethereum/log"
	"github.com/syndtr/goleveldb/leveldb"
	lerrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

const (
	// minCache is the minimum amount of memory in megabytes to allocate to
	// leveldb read and write caching, split half and half.
	minCache = 16

	// minHandles is the minimum number of files handles to allocate to the
	// open database files.
	minHandles = 16
)

// LevelDB is a persistent key-value store backed by goleveldb.
type LevelDB struct {
	fn string
	db *leveldb.DB
}

// NewLevelDB opens (or creates) a leveldb database at file, recovering it
// if the manifest is corrupted.
func NewLevelDB(file string, cache int, handles int) (*LevelDB, error) {
	cache = max(cache, minCache)
	handles = max(handles, minHandles)

	logger := log.New("database", file)
	logger.Info("Allocated cache and file handles", "engine", EngineLevelDB, "cache", cache, "handles", handles)

	options := &opt.Options{
		Filter:                 filter.NewBloomFilter(10),
		DisableSeeksCompaction: true,
		OpenFilesCacheCapacity: handles,
		BlockCacheCapacity:     cache / 2 * opt.MiB,
		WriteBuffer:            cache / 4 * opt.MiB,
	}
	db, err := leveldb.OpenFile(file, options)
	if _, corrupted := err.(*lerrors.ErrCorrupted); corrupted {
		logger.Warn("Recovering corrupted database")
		db, err = leveldb.RecoverFile(file, nil)
	}
	if err != nil {
		return nil, err
	}
	return &LevelDB{fn: file, db: db}, nil
}

// Get retrieves the value stored under key.
func (db *LevelDB) Get(key []byte) ([]byte, error) {
	dat, err := db.db.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return dat, nil
}

// Put stores value under key. Writes are synced so an acknowledged journal
// entry survives a crash.
func (db *LevelDB) Put(key []byte, value []byte) error {
	return db.db.Put(key, value, &opt.WriteOptions{Sync: true})
}

// Iterate calls fn for every key carrying prefix, in ascending key order.
func (db *LevelDB) Iterate(prefix []byte, fn func(key, value []byte) error) error {
	it := db.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer it.Release()

	for it.Next() {
		if err := fn(it.Key(), it.Value()); err != nil {
			return err
		}
	}
	return it.Error()
}

// Close flushes pending writes and releases the database.
func (db *LevelDB) Close() error {
	return db.db.Close()
}
