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

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// EnvPrefix prefixes every environment variable the node reads
const EnvPrefix = "DAO_"

// envVar binds an environment variable to a configuration field.
type envVar struct {
	name  string
	apply func(c *Config, value string) error
}

var envVars = []envVar{
	{"DATADIR", func(c *Config, v string) error { c.Node.DataDir = v; return nil }},
	{"HTTP_ADDR", func(c *Config, v string) error { c.Node.HTTPAddr = v; return nil }},
	{"HTTP_CORS", func(c *Config, v string) error { c.Node.CORSOrigins = splitList(v); return nil }},
	{"WS", func(c *Config, v string) error { return setBool(&c.Node.WSEnabled, v) }},
	{"METRICS", func(c *Config, v string) error { return setBool(&c.Node.Metrics, v) }},
	{"STORAGE_ENGINE", func(c *Config, v string) error { c.Storage.Engine = v; return nil }},
	{"STORAGE_PATH", func(c *Config, v string) error { c.Storage.Path = v; return nil }},
	{"VOTING_PERIOD", func(c *Config, v string) error { return c.Governance.VotingPeriod.UnmarshalText([]byte(v)) }},
	{"STRICT_EXECUTION", func(c *Config, v string) error { return setBool(&c.Governance.StrictExecution, v) }},
	{"EXECUTE_HOLDERS_ONLY", func(c *Config, v string) error { return setBool(&c.Governance.ExecuteHoldersOnly, v) }},
	{"MEMBERSHIP_ENDPOINT", func(c *Config, v string) error { c.Membership.Endpoint = v; return nil }},
	{"MEMBERSHIP_CONTRACT", func(c *Config, v string) error { return setAddress(&c.Membership.Contract, v) }},
	{"CONTROLLER", func(c *Config, v string) error { return setAddress(&c.Genesis.Controller, v) }},
	{"FUNDING", func(c *Config, v string) error { c.Genesis.Funding = v; return nil }},
	{"UNIT_PRICE", func(c *Config, v string) error { c.Genesis.UnitPrice = v; return nil }},
	{"MEMBERS", func(c *Config, v string) error {
		members := splitList(v)
		c.Genesis.Members = make([]common.Address, len(members))
		for i, m := range members {
			if err := setAddress(&c.Genesis.Members[i], m); err != nil {
				return err
			}
		}
		return nil
	}},
	{"VERBOSITY", func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		c.Log.Verbosity = n
		return nil
	}},
	{"LOG_FILE", func(c *Config, v string) error { c.Log.File = v; return nil }},
	{"LOG_FORMAT", func(c *Config, v string) error { c.Log.Format = v; return nil }},
}

// ApplyEnv overrides c with the DAO_* variables present in the process
// environment.
func (c *Config) ApplyEnv() error {
	return c.applyEnv(os.LookupEnv)
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	for _, env := range envVars {
		value, ok := lookup(EnvPrefix + env.name)
		if !ok || value == "" {
			continue
		}
		if err := env.apply(c, value); err != nil {
			return fmt.Errorf("invalid %s%s=%q: %w", EnvPrefix, env.name, value, err)
		}
	}
	return nil
}

func setBool(dst *bool, v string) error {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return err
	}
	*dst = b
	return nil
}

func setAddress(dst *common.Address, v string) error {
	if !common.IsHexAddress(v) {
		return errors.New("not a hex address")
	}
	*dst = common.HexToAddress(v)
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
