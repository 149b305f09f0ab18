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

package membership

import (
	"context"
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// erc721ABI holds the read-only subset of ERC-721 the oracle needs.
const erc721ABI = `[
	{"name":"balanceOf","type":"function","stateMutability":"view",
	 "inputs":[{"name":"owner","type":"address"}],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"name":"ownerOf","type":"function","stateMutability":"view",
	 "inputs":[{"name":"tokenId","type":"uint256"}],
	 "outputs":[{"name":"","type":"address"}]}
]`

// ContractOracle answers membership queries by calling an ERC-721 contract
// through an Ethereum node.
type ContractOracle struct {
	caller   ethereum.ContractCaller
	contract common.Address
	abi      abi.ABI
}

// NewContractOracle binds the credential contract deployed at contract.
func NewContractOracle(caller ethereum.ContractCaller, contract common.Address) (*ContractOracle, error) {
	parsed, err := abi.JSON(strings.NewReader(erc721ABI))
	if err != nil {
		return nil, err
	}
	return &ContractOracle{caller: caller, contract: contract, abi: parsed}, nil
}

// Contract returns the address of the bound credential contract.
func (o *ContractOracle) Contract() common.Address {
	return o.contract
}

// BalanceOf implements governance.MembershipOracle. Balances beyond uint64
// saturate.
func (o *ContractOracle) BalanceOf(ctx context.Context, holder common.Address) (uint64, error) {
	out, err := o.call(ctx, "balanceOf", holder)
	if err != nil {
		return 0, err
	}
	balance, ok := out[0].(*big.Int)
	if !ok {
		return 0, fmt.Errorf("balanceOf: unexpected result type %T", out[0])
	}
	if !balance.IsUint64() {
		return math.MaxUint64, nil
	}
	return balance.Uint64(), nil
}

// OwnerOf implements governance.MembershipOracle.
func (o *ContractOracle) OwnerOf(ctx context.Context, token uint64) (common.Address, error) {
	out, err := o.call(ctx, "ownerOf", new(big.Int).SetUint64(token))
	if err != nil {
		return common.Address{}, err
	}
	owner, ok := out[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("ownerOf: unexpected result type %T", out[0])
	}
	return owner, nil
}

func (o *ContractOracle) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	input, err := o.abi.Pack(method, args...)
	if err != nil {
		return nil, err
	}
	output, err := o.caller.CallContract(ctx, ethereum.CallMsg{To: &o.contract, Data: input}, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	if len(output) == 0 {
		return nil, fmt.Errorf("%s: no code at %s", method, o.contract)
	}
	out, err := o.abi.Unpack(method, output)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	return out, nil
}
