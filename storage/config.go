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

import "fmt"

// Supported database engines
const (
	EngineLevelDB = "leveldb"
	EnginePebble  = "pebble"
	EngineMemory  = "memory"
)

// Config defines configuration for the storage module
type Config struct {
	Engine  string // leveldb, pebble or memory
	Path    string // database directory, unused by the memory engine
	Cache   int    // block cache in megabytes
	Handles int    // open file limit
}

// DefaultConfig returns the default storage configuration
func DefaultConfig() Config {
	return Config{
		Engine:  EngineLevelDB,
		Cache:   16,
		Handles: 64,
	}
}

// Validate checks the configuration for obvious mistakes
func (c *Config) Validate() error {
	switch c.Engine {
	case EngineLevelDB, EnginePebble:
		if c.Path == "" {
			return fmt.Errorf("storage engine %s requires a path", c.Engine)
		}
	case EngineMemory:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEngine, c.Engine)
	}
	if c.Cache < 0 || c.Handles < 0 {
		return fmt.Errorf("negative cache (%d) or handles (%d)", c.Cache, c.Handles)
	}
	return nil
}
