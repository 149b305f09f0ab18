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

package governance

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/holiman/uint256"
)

func newTestRPC(t *testing.T, td *testDAO) *rpc.Client {
	t.Helper()
	srv := rpc.NewServer()
	if err := srv.RegisterName("dao", NewAPI(td.DAO)); err != nil {
		t.Fatalf("register api: %v", err)
	}
	client := rpc.DialInProc(srv)
	t.Cleanup(func() {
		client.Close()
		srv.Stop()
	})
	return client
}

func rpcErrorCode(t *testing.T, err error) int {
	t.Helper()
	var rpcErr rpc.Error
	if !errors.As(err, &rpcErr) {
		t.Fatalf("expected rpc error, got %v", err)
	}
	return rpcErr.ErrorCode()
}

func TestAPI_ProposalLifecycle(t *testing.T) {
	td := newTestDAO(nil, testAlice, testBob)
	td.Deposit(testController, uint256.NewInt(100))
	client := newTestRPC(t, td)

	var id hexutil.Uint64
	if err := client.Call(&id, "dao_createProposal", hexutil.Uint64(7), testAlice); err != nil {
		t.Fatalf("createProposal: %v", err)
	}
	if err := client.Call(nil, "dao_vote", id, testAlice, "YAY"); err != nil {
		t.Fatalf("vote: %v", err)
	}
	if err := client.Call(nil, "dao_vote", id, testBob, "yay"); err != nil {
		t.Fatalf("vote: %v", err)
	}

	var p RPCProposal
	if err := client.Call(&p, "dao_getProposal", id); err != nil {
		t.Fatalf("getProposal: %v", err)
	}
	if p.Unit != 7 || p.YayVotes != 2 || p.Status != "open" || len(p.Voters) != 2 {
		t.Errorf("unexpected proposal %+v", p)
	}

	td.pastDeadline(uint64(id))
	var outcome string
	if err := client.Call(&outcome, "dao_execute", id, testBob); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if outcome != "purchased" {
		t.Errorf("expected outcome purchased, got %s", outcome)
	}

	var balance hexutil.Big
	if err := client.Call(&balance, "dao_balance"); err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.ToInt().Uint64() != 90 {
		t.Errorf("expected balance 90, got %v", balance.ToInt())
	}

	var list []*RPCProposal
	if err := client.Call(&list, "dao_listProposals"); err != nil {
		t.Fatalf("listProposals: %v", err)
	}
	if len(list) != 1 || !list[0].Executed || list[0].Status != "executed" || list[0].Price.ToInt().Uint64() != 10 {
		t.Errorf("unexpected list %+v", list)
	}

	var n hexutil.Uint64
	if err := client.Call(&n, "dao_numProposals"); err != nil || n != 1 {
		t.Errorf("numProposals = %d, %v", n, err)
	}
	var controller common.Address
	if err := client.Call(&controller, "dao_controller"); err != nil || controller != testController {
		t.Errorf("controller = %v, %v", controller, err)
	}
}

func TestAPI_ErrorCodes(t *testing.T) {
	td := newTestDAO(nil, testAlice)
	client := newTestRPC(t, td)

	var id hexutil.Uint64
	err := client.Call(&id, "dao_createProposal", hexutil.Uint64(1), testOutsider)
	if code := rpcErrorCode(t, err); code != codeUnauthorized {
		t.Errorf("expected code %d, got %d", codeUnauthorized, code)
	}

	err = client.Call(nil, "dao_vote", hexutil.Uint64(5), testAlice, "YAY")
	if code := rpcErrorCode(t, err); code != codeProposalNotFound {
		t.Errorf("expected code %d, got %d", codeProposalNotFound, code)
	}

	client.Call(&id, "dao_createProposal", hexutil.Uint64(1), testAlice)
	err = client.Call(nil, "dao_vote", id, testAlice, "maybe")
	if code := rpcErrorCode(t, err); code != codeInvalidParams {
		t.Errorf("expected code %d, got %d", codeInvalidParams, code)
	}

	var outcome string
	err = client.Call(&outcome, "dao_execute", id, testAlice)
	if code := rpcErrorCode(t, err); code != codeTooEarly {
		t.Errorf("expected code %d, got %d", codeTooEarly, code)
	}

	err = client.Call(nil, "dao_withdraw", testAlice, (*hexutil.Big)(big.NewInt(1)))
	if code := rpcErrorCode(t, err); code != codeUnauthorized {
		t.Errorf("expected code %d, got %d", codeUnauthorized, code)
	}
	err = client.Call(nil, "dao_withdraw", testController, (*hexutil.Big)(big.NewInt(1)))
	if code := rpcErrorCode(t, err); code != codeInsufficientFunds {
		t.Errorf("expected code %d, got %d", codeInsufficientFunds, code)
	}
	err = client.Call(nil, "dao_deposit", testAlice, (*hexutil.Big)(big.NewInt(0)))
	if code := rpcErrorCode(t, err); code != codeInvalidParams {
		t.Errorf("expected code %d, got %d", codeInvalidParams, code)
	}
}

func TestAPI_Treasury(t *testing.T) {
	td := newTestDAO(nil, testAlice)
	client := newTestRPC(t, td)

	if err := client.Call(nil, "dao_deposit", testAlice, (*hexutil.Big)(big.NewInt(30))); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if err := client.Call(nil, "dao_withdraw", testController, (*hexutil.Big)(big.NewInt(10))); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	var drained hexutil.Big
	if err := client.Call(&drained, "dao_withdrawAll", testController); err != nil {
		t.Fatalf("withdrawAll: %v", err)
	}
	if drained.ToInt().Uint64() != 20 {
		t.Errorf("expected 20 drained, got %v", drained.ToInt())
	}
	if !td.Balance().IsZero() {
		t.Errorf("expected empty treasury, got %v", td.Balance())
	}

	var member bool
	if err := client.Call(&member, "dao_isMember", testAlice); err != nil || !member {
		t.Errorf("isMember(alice) = %v, %v", member, err)
	}
	var owner common.Address
	if err := client.Call(&owner, "dao_credentialOwner", hexutil.Uint64(0)); err != nil || owner != testAlice {
		t.Errorf("credentialOwner(0) = %v, %v", owner, err)
	}
}

func TestToAmount(t *testing.T) {
	if _, err := toAmount(nil); err != ErrInvalidAmount {
		t.Errorf("nil: expected %v, got %v", ErrInvalidAmount, err)
	}
	if _, err := toAmount((*hexutil.Big)(big.NewInt(0))); err != ErrInvalidAmount {
		t.Errorf("zero: expected %v, got %v", ErrInvalidAmount, err)
	}
	huge := new(big.Int).Lsh(big.NewInt(1), 256)
	if _, err := toAmount((*hexutil.Big)(huge)); err != ErrInvalidAmount {
		t.Errorf("2^256: expected %v, got %v", ErrInvalidAmount, err)
	}
	v, err := toAmount((*hexutil.Big)(big.NewInt(12345)))
	if err != nil || v.Uint64() != 12345 {
		t.Errorf("12345: got %v, %v", v, err)
	}
}
