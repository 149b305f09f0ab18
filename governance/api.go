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
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
)

// JSON-RPC error codes returned for governance failures. Codes outside the
// reserved -32768..-32000 range are application defined.
const (
	codeUnauthorized      = 1
	codeProposalNotFound  = 2
	codeVotingClosed      = 3
	codeTooEarly          = 4
	codeAlreadyVoted      = 5
	codeAlreadyExecuted   = 6
	codeInsufficientFunds = 7
	codeOracleUnavailable = 8
	codeInvalidParams     = 9
	codeUnitUnavailable   = 10
	codePurchaseRejected  = 11
	codeJournal           = 12
)

var errorCodes = []struct {
	err  error
	code int
}{
	{ErrUnauthorized, codeUnauthorized},
	{ErrProposalNotFound, codeProposalNotFound},
	{ErrVotingClosed, codeVotingClosed},
	{ErrTooEarly, codeTooEarly},
	{ErrAlreadyVoted, codeAlreadyVoted},
	{ErrAlreadyExecuted, codeAlreadyExecuted},
	{ErrInsufficientFunds, codeInsufficientFunds},
	{ErrOracleUnavailable, codeOracleUnavailable},
	{ErrInvalidAmount, codeInvalidParams},
	{ErrInvalidChoice, codeInvalidParams},
	{ErrUnitUnavailable, codeUnitUnavailable},
	{ErrPurchaseRejected, codePurchaseRejected},
	{ErrJournal, codeJournal},
}

// apiError attaches a JSON-RPC error code to a governance error
type apiError struct {
	err  error
	code int
}

func (e *apiError) Error() string { return e.err.Error() }
func (e *apiError) ErrorCode() int { return e.code }
func (e *apiError) Unwrap() error { return e.err }

func wrapAPIError(err error) error {
	if err == nil {
		return nil
	}
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return &apiError{err: err, code: ec.code}
		}
	}
	return err
}

// RPCProposal is the JSON representation of a proposal
type RPCProposal struct {
	ID        hexutil.Uint64   `json:"id"`
	Unit      hexutil.Uint64   `json:"unit"`
	Proposer  common.Address   `json:"proposer"`
	CreatedAt hexutil.Uint64   `json:"createdAt"`
	Deadline  hexutil.Uint64   `json:"deadline"`
	YayVotes  hexutil.Uint64   `json:"yayVotes"`
	NayVotes  hexutil.Uint64   `json:"nayVotes"`
	Executed  bool             `json:"executed"`
	Status    string           `json:"status"`
	Outcome   string           `json:"outcome"`
	Price     *hexutil.Big     `json:"price"`
	Voters    []common.Address `json:"voters"`
}

func newRPCProposal(p *Proposal, now uint64) *RPCProposal {
	return &RPCProposal{
		ID:        hexutil.Uint64(p.ID),
		Unit:      hexutil.Uint64(p.Unit),
		Proposer:  p.Proposer,
		CreatedAt: hexutil.Uint64(p.CreatedAt),
		Deadline:  hexutil.Uint64(p.Deadline),
		YayVotes:  hexutil.Uint64(p.YayVotes),
		NayVotes:  hexutil.Uint64(p.NayVotes),
		Executed:  p.Executed,
		Status:    p.Status(now).String(),
		Outcome:   p.Outcome.String(),
		Price:     (*hexutil.Big)(p.Price.ToBig()),
		Voters:    p.Voters,
	}
}

// API exposes the DAO under the "dao" RPC namespace. Caller identities are
// taken from the request as given; authenticating them is up to the
// transport in front of the node.
type API struct {
	dao *DAO
}

// NewAPI creates a new governance RPC API
func NewAPI(dao *DAO) *API {
	return &API{dao: dao}
}

// CreateProposal creates a proposal to buy unit and returns its ID
func (api *API) CreateProposal(ctx context.Context, unit hexutil.Uint64, from common.Address) (hexutil.Uint64, error) {
	id, err := api.dao.CreateProposal(ctx, uint64(unit), from)
	return hexutil.Uint64(id), wrapAPIError(err)
}

// Vote casts "YAY" or "NAY" on a proposal
func (api *API) Vote(ctx context.Context, id hexutil.Uint64, voter common.Address, choice string) error {
	c, err := ParseChoice(choice)
	if err != nil {
		return wrapAPIError(err)
	}
	return wrapAPIError(api.dao.Vote(ctx, uint64(id), voter, c))
}

// Execute resolves a proposal and returns its outcome
func (api *API) Execute(ctx context.Context, id hexutil.Uint64, caller common.Address) (string, error) {
	outcome, err := api.dao.Execute(ctx, uint64(id), caller)
	if err != nil {
		return "", wrapAPIError(err)
	}
	return outcome.String(), nil
}

// Deposit credits the treasury
func (api *API) Deposit(from common.Address, amount *hexutil.Big) error {
	value, err := toAmount(amount)
	if err != nil {
		return wrapAPIError(err)
	}
	return wrapAPIError(api.dao.Deposit(from, value))
}

// Withdraw moves amount to the controller
func (api *API) Withdraw(caller common.Address, amount *hexutil.Big) error {
	value, err := toAmount(amount)
	if err != nil {
		return wrapAPIError(err)
	}
	return wrapAPIError(api.dao.Withdraw(caller, value))
}

// WithdrawAll drains the treasury to the controller
func (api *API) WithdrawAll(caller common.Address) (*hexutil.Big, error) {
	amount, err := api.dao.WithdrawAll(caller)
	if err != nil {
		return nil, wrapAPIError(err)
	}
	return (*hexutil.Big)(amount.ToBig()), nil
}

// GetProposal returns a proposal by ID
func (api *API) GetProposal(id hexutil.Uint64) (*RPCProposal, error) {
	p, err := api.dao.GetProposal(uint64(id))
	if err != nil {
		return nil, wrapAPIError(err)
	}
	return newRPCProposal(p, api.dao.Now()), nil
}

// ListProposals returns every proposal by ascending ID
func (api *API) ListProposals() []*RPCProposal {
	now := api.dao.Now()
	proposals := api.dao.ListProposals()
	list := make([]*RPCProposal, len(proposals))
	for i, p := range proposals {
		list[i] = newRPCProposal(p, now)
	}
	return list
}

// NumProposals returns the number of proposals
func (api *API) NumProposals() hexutil.Uint64 {
	return hexutil.Uint64(api.dao.NumProposals())
}

// Balance returns the treasury balance
func (api *API) Balance() *hexutil.Big {
	return (*hexutil.Big)(api.dao.Balance().ToBig())
}

// Controller returns the treasury controller
func (api *API) Controller() common.Address {
	return api.dao.Controller()
}

// IsMember reports whether addr holds a credential
func (api *API) IsMember(ctx context.Context, addr common.Address) (bool, error) {
	ok, err := api.dao.IsMember(ctx, addr)
	return ok, wrapAPIError(err)
}

// CredentialOwner returns the holder of a credential unit
func (api *API) CredentialOwner(ctx context.Context, token hexutil.Uint64) (common.Address, error) {
	owner, err := api.dao.CredentialOwner(ctx, uint64(token))
	return owner, wrapAPIError(err)
}

// toAmount converts an RPC quantity to a treasury amount.
func toAmount(amount *hexutil.Big) (*uint256.Int, error) {
	if amount == nil {
		return nil, ErrInvalidAmount
	}
	b := (*big.Int)(amount)
	if b.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	value, overflow := uint256.FromBig(b)
	if overflow {
		return nil, ErrInvalidAmount
	}
	return value, nil
}
