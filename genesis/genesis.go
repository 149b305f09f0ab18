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

package genesis

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/params"
	"github.com/holiman/uint256"
)

var (
	ErrNoController = errors.New("genesis controller not set")
	ErrBadAmount    = errors.New("invalid wei amount")
)

// DefaultUnitPrice is the marketplace price of a unit, 0.1 ether.
var DefaultUnitPrice = new(uint256.Int).Div(uint256.NewInt(params.Ether), uint256.NewInt(10))

// Config holds the initial state of a DAO deployment
type Config struct {
	// Controller is the account allowed to withdraw from the treasury
	Controller common.Address

	// Funding is the initial treasury balance in wei (decimal)
	Funding string `toml:",omitempty"`

	// Members receive one credential each when no external registry is used
	Members []common.Address `toml:",omitempty"`

	// UnitPrice is the marketplace price of every unit in wei (decimal)
	UnitPrice string
}

// DefaultConfig returns the default genesis configuration
func DefaultConfig() *Config {
	return &Config{
		UnitPrice: DefaultUnitPrice.Dec(),
	}
}

// Validate checks the genesis for an owner and well-formed amounts
func (c *Config) Validate() error {
	if c.Controller == (common.Address{}) {
		return ErrNoController
	}
	if _, err := c.FundingAmount(); err != nil {
		return fmt.Errorf("funding: %w", err)
	}
	price, err := c.UnitPriceAmount()
	if err != nil {
		return fmt.Errorf("unit price: %w", err)
	}
	if price.IsZero() {
		return fmt.Errorf("unit price: %w: must be positive", ErrBadAmount)
	}
	return nil
}

// FundingAmount parses the initial treasury balance. An empty value means
// no funding.
func (c *Config) FundingAmount() (*uint256.Int, error) {
	if c.Funding == "" {
		return new(uint256.Int), nil
	}
	return parseWei(c.Funding)
}

// UnitPriceAmount parses the marketplace unit price.
func (c *Config) UnitPriceAmount() (*uint256.Int, error) {
	if c.UnitPrice == "" {
		return new(uint256.Int).Set(DefaultUnitPrice), nil
	}
	return parseWei(c.UnitPrice)
}

// TreasuryAddress is the buyer identity of the treasury.
func (c *Config) TreasuryAddress() common.Address {
	return PredictTreasuryAddress(c.Controller)
}

// CredentialAddress returns the predicted credential registry address.
func (c *Config) CredentialAddress() common.Address {
	return PredictCredentialAddress(c.Controller)
}

func parseWei(s string) (*uint256.Int, error) {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrBadAmount, s, err)
	}
	return v, nil
}
