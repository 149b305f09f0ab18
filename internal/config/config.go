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

// Package config assembles the node configuration from defaults, a TOML
// file, DAO_* environment variables and command line flags, in increasing
// order of priority.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"time"
	"unicode"

	"github.com/cryptodevs/dao/genesis"
	"github.com/cryptodevs/dao/governance"
	"github.com/cryptodevs/dao/internal/debug"
	"github.com/cryptodevs/dao/storage"
	"github.com/ethereum/go-ethereum/common"
	"github.com/naoina/toml"
)

// These settings ensure that TOML keys use the same names as Go struct fields.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		var link string
		if unicode.IsUpper(rune(rt.Name()[0])) && rt.PkgPath() != "main" {
			link = fmt.Sprintf(", see https://pkg.go.dev/%s#%s for available fields", rt.PkgPath(), rt.Name())
		}
		return fmt.Errorf("field '%s' is not defined in %s%s", field, rt.String(), link)
	},
}

// Duration is a time.Duration that reads and writes as "5m0s" in TOML
type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// NodeConfig configures the data directory and the RPC endpoints
type NodeConfig struct {
	DataDir     string
	HTTPAddr    string
	CORSOrigins []string `toml:",omitempty"`
	WSEnabled   bool
	Metrics     bool // serve /debug/metrics next to the RPC endpoints
}

// GovernanceConfig mirrors governance.Config
type GovernanceConfig struct {
	VotingPeriod       Duration
	StrictExecution    bool
	ExecuteHoldersOnly bool
}

// MembershipConfig selects the credential registry. With an empty Endpoint
// the node keeps an in-process registry minted from the genesis members.
// A zero Contract means the registry the genesis controller deployed first.
type MembershipConfig struct {
	Endpoint string         `toml:",omitempty"`
	Contract common.Address `toml:",omitempty"`
}

// Config is the complete node configuration
type Config struct {
	Node       NodeConfig
	Storage    storage.Config
	Governance GovernanceConfig
	Membership MembershipConfig
	Genesis    genesis.Config
	Log        debug.Config
}

// Defaults returns the configuration used when nothing else is specified
func Defaults() *Config {
	gov := governance.DefaultConfig()
	return &Config{
		Node: NodeConfig{
			DataDir:  "dao-data",
			HTTPAddr: "127.0.0.1:8645",
		},
		Storage: storage.DefaultConfig(),
		Governance: GovernanceConfig{
			VotingPeriod:       Duration(gov.VotingPeriod),
			StrictExecution:    gov.StrictExecution,
			ExecuteHoldersOnly: gov.ExecuteHoldersOnly,
		},
		Genesis: *genesis.DefaultConfig(),
		Log:     debug.DefaultConfig,
	}
}

// GovernanceRules converts the governance section for governance.New
func (c *Config) GovernanceRules() *governance.Config {
	return &governance.Config{
		VotingPeriod:       time.Duration(c.Governance.VotingPeriod),
		StrictExecution:    c.Governance.StrictExecution,
		ExecuteHoldersOnly: c.Governance.ExecuteHoldersOnly,
	}
}

// StorageConfig returns the storage section with the database path resolved
// against the data directory.
func (c *Config) StorageConfig() storage.Config {
	cfg := c.Storage
	if cfg.Engine != storage.EngineMemory && cfg.Path == "" {
		cfg.Path = filepath.Join(c.Node.DataDir, "journal")
	}
	return cfg
}

// MembershipContract returns the credential contract queried over the
// membership endpoint.
func (c *Config) MembershipContract() common.Address {
	if c.Membership.Contract != (common.Address{}) {
		return c.Membership.Contract
	}
	return c.Genesis.CredentialAddress()
}

// Validate checks the assembled configuration
func (c *Config) Validate() error {
	if c.Node.DataDir == "" && c.Storage.Engine != storage.EngineMemory {
		return errors.New("data directory not set")
	}
	storageCfg := c.StorageConfig()
	if err := storageCfg.Validate(); err != nil {
		return err
	}
	if c.Governance.VotingPeriod <= 0 {
		return fmt.Errorf("voting period must be positive, have %v", time.Duration(c.Governance.VotingPeriod))
	}
	if c.Governance.VotingPeriod%Duration(time.Second) != 0 {
		return fmt.Errorf("voting period %v is not a whole number of seconds", time.Duration(c.Governance.VotingPeriod))
	}
	if c.Log.Verbosity < 0 || c.Log.Verbosity > 5 {
		return fmt.Errorf("log verbosity %d out of range [0, 5]", c.Log.Verbosity)
	}
	return c.Genesis.Validate()
}

// Load reads a TOML file over the current values of c.
func (c *Config) Load(file string) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(c)
	// Add file name to errors that have a line number.
	if _, ok := err.(*toml.LineError); ok {
		err = errors.New(file + ", " + err.Error())
	}
	return err
}

// Dump renders c as TOML.
func (c *Config) Dump() ([]byte, error) {
	return tomlSettings.Marshal(c)
}
