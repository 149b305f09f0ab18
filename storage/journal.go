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
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/cryptodevs/dao/governance"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"
	"github.com/ethereum/go-ethereum/rlp"
)

var (
	// journalPrefix + seq (uint64 big endian) -> RLP(record)
	journalPrefix = []byte("j")

	appendTimer  = metrics.NewRegisteredTimer("dao/journal/append", nil)
	journalGauge = metrics.NewRegisteredGauge("dao/journal/entries", nil)
)

// journalKey = journalPrefix + seq (uint64 big endian)
func journalKey(seq uint64) []byte {
	key := make([]byte, len(journalPrefix)+8)
	copy(key, journalPrefix)
	binary.BigEndian.PutUint64(key[len(journalPrefix):], seq)
	return key
}

// Journal is an append-only, hash-chained event log kept in a key-value
// store. It implements governance.Journal.
type Journal struct {
	mu   sync.Mutex
	db   KeyValueStore
	seq  uint64      // number of entries, also the next sequence number
	head common.Hash // hash of the last encoded record
}

// NewJournal opens the journal stored in db and verifies its hash chain.
func NewJournal(db KeyValueStore) (*Journal, error) {
	j := &Journal{db: db}
	seq, head, err := j.walk(nil)
	if err != nil {
		return nil, err
	}
	j.seq, j.head = seq, head
	journalGauge.Update(int64(seq))

	if seq > 0 {
		log.Info("Loaded governance journal", "entries", seq, "head", head)
	}
	return j, nil
}

// Append writes ev as the next journal entry.
func (j *Journal) Append(ev governance.Event) error {
	defer appendTimer.UpdateSince(time.Now())

	payload, err := encodeEvent(ev)
	if err != nil {
		return err
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	enc, err := rlp.EncodeToBytes(&record{Kind: uint8(ev.Kind()), Parent: j.head, Payload: payload})
	if err != nil {
		return err
	}
	if err := j.db.Put(journalKey(j.seq), enc); err != nil {
		return err
	}
	j.seq++
	j.head = crypto.Keccak256Hash(enc)
	journalGauge.Update(int64(j.seq))

	log.Trace("Journaled event", "seq", j.seq-1, "kind", ev.Kind(), "hash", j.head)
	return nil
}

// Replay decodes every entry in order and hands it to fn. Iteration stops
// at the first error.
func (j *Journal) Replay(fn func(seq uint64, ev governance.Event) error) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	_, _, err := j.walk(fn)
	return err
}

// Verify re-reads the journal and checks that the stored chain matches the
// in-memory head.
func (j *Journal) Verify() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	seq, head, err := j.walk(nil)
	if err != nil {
		return err
	}
	if seq != j.seq || head != j.head {
		return fmt.Errorf("%w: have %d entries (head %x), want %d (head %x)", ErrJournalCorrupt, seq, head, j.seq, j.head)
	}
	return nil
}

// Entry reads the entry at seq and returns its event together with the
// hash of its encoded record.
func (j *Journal) Entry(seq uint64) (governance.Event, common.Hash, error) {
	value, err := j.db.Get(journalKey(seq))
	if err != nil {
		return nil, common.Hash{}, err
	}
	var rec record
	if err := rlp.DecodeBytes(value, &rec); err != nil {
		return nil, common.Hash{}, fmt.Errorf("%w: entry %d: %v", ErrJournalCorrupt, seq, err)
	}
	ev, err := decodeEvent(governance.EventKind(rec.Kind), rec.Payload)
	if err != nil {
		return nil, common.Hash{}, fmt.Errorf("%w: entry %d: %v", ErrJournalCorrupt, seq, err)
	}
	return ev, crypto.Keccak256Hash(value), nil
}

// Len returns the number of entries in the journal.
func (j *Journal) Len() uint64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.seq
}

// Head returns the hash of the last entry, or the zero hash if empty.
func (j *Journal) Head() common.Hash {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.head
}

// walk iterates the stored entries, checking sequence contiguity and the
// parent links. If fn is non-nil, each decoded event is passed to it.
func (j *Journal) walk(fn func(seq uint64, ev governance.Event) error) (uint64, common.Hash, error) {
	var (
		seq  uint64
		head common.Hash
	)
	err := j.db.Iterate(journalPrefix, func(key, value []byte) error {
		if len(key) != len(journalPrefix)+8 {
			return fmt.Errorf("%w: malformed key %x", ErrJournalCorrupt, key)
		}
		if have := binary.BigEndian.Uint64(key[len(journalPrefix):]); have != seq {
			return fmt.Errorf("%w: gap at entry %d (found %d)", ErrJournalCorrupt, seq, have)
		}
		var rec record
		if err := rlp.DecodeBytes(value, &rec); err != nil {
			return fmt.Errorf("%w: entry %d: %v", ErrJournalCorrupt, seq, err)
		}
		if rec.Parent != head {
			return fmt.Errorf("%w: entry %d parent %x, want %x", ErrJournalCorrupt, seq, rec.Parent, head)
		}
		if fn != nil {
			ev, err := decodeEvent(governance.EventKind(rec.Kind), rec.Payload)
			if err != nil {
				return fmt.Errorf("%w: entry %d: %v", ErrJournalCorrupt, seq, err)
			}
			if err := fn(seq, ev); err != nil {
				return err
			}
		}
		head = crypto.Keccak256Hash(value)
		seq++
		return nil
	})
	return seq, head, err
}
