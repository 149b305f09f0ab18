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
	"path/filepath"
	"testing"
)

// forEachEngine runs fn against a fresh store of every supported engine.
func forEachEngine(t *testing.T, fn func(t *testing.T, db KeyValueStore)) {
	t.Helper()

	for _, engine := range []string{EngineMemory, EngineLevelDB, EnginePebble} {
		t.Run(engine, func(t *testing.T) {
			db := openTestStore(t, engine, filepath.Join(t.TempDir(), "db"))
			defer db.Close()
			fn(t, db)
		})
	}
}

func openTestStore(t *testing.T, engine, path string) KeyValueStore {
	t.Helper()

	db, err := Open(Config{Engine: engine, Path: path})
	if err != nil {
		t.Fatalf("failed to open %s store: %v", engine, err)
	}
	return db
}
