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
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// Deployment nonces of the controller account. The credential registry is
// deployed first, then the marketplace at nonce 1, then the DAO treasury.
const (
	CredentialNonce uint64 = 0
	TreasuryNonce   uint64 = 2
)

// CalculateContractAddress deterministically calculates a contract address
// based on the deployer address and nonce using CREATE opcode rules
func CalculateContractAddress(deployer common.Address, nonce uint64) common.Address {
	// keccak256(rlp([deployer, nonce]))[12:]
	data, _ := rlp.EncodeToBytes([]interface{}{deployer, nonce})
	return common.BytesToAddress(crypto.Keccak256(data)[12:])
}

// PredictCredentialAddress predicts the credential registry address
func PredictCredentialAddress(controller common.Address) common.Address {
	return CalculateContractAddress(controller, CredentialNonce)
}

// PredictTreasuryAddress predicts the account holding the DAO treasury. It
// is the identity the marketplace records as buyer.
func PredictTreasuryAddress(controller common.Address) common.Address {
	return CalculateContractAddress(controller, TreasuryNonce)
}
