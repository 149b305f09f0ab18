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

// Package node assembles a governance node: storage, journal replay,
// collaborators and the JSON-RPC endpoints.
package node

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cryptodevs/dao/governance"
	"github.com/cryptodevs/dao/internal/config"
	"github.com/cryptodevs/dao/marketplace"
	"github.com/cryptodevs/dao/membership"
	"github.com/cryptodevs/dao/storage"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/gofrs/flock"
)

var (
	ErrDatadirUsed = errors.New("datadir already used by another process")
	ErrNodeRunning = errors.New("node already running")
	ErrNodeClosed  = errors.New("node closed")
)

const (
	stateInit = iota
	stateRunning
	stateClosed
)

// Option customizes a Node
type Option func(*Node)

// WithClock replaces the wall clock used by the governance engines.
func WithClock(clock governance.Clock) Option {
	return func(n *Node) { n.clock = clock }
}

// Node is a running DAO instance
type Node struct {
	config *config.Config
	clock  governance.Clock

	dirLock *flock.Flock
	db      storage.KeyValueStore
	journal *storage.Journal
	client  *ethclient.Client // nil unless membership is read from a chain
	market  *marketplace.Fake
	dao     *governance.DAO

	rpc      *rpc.Server
	lock     sync.Mutex
	state    int
	httpSrv  *http.Server
	listener net.Listener
}

// New opens the data directory, replays the journal and prepares the RPC
// server. The node does not listen until Start is called.
func New(cfg *config.Config, opts ...Option) (*Node, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	n := &Node{config: cfg, clock: governance.SystemClock{}}
	for _, opt := range opts {
		opt(n)
	}
	if cfg.Node.Metrics {
		metrics.Enable()
	}
	if err := n.openDataDir(); err != nil {
		return nil, err
	}
	if err := n.setup(); err != nil {
		n.release()
		return nil, err
	}
	return n, nil
}

func (n *Node) openDataDir() error {
	storageCfg := n.config.StorageConfig()
	if storageCfg.Engine == storage.EngineMemory {
		return nil
	}
	if err := os.MkdirAll(n.config.Node.DataDir, 0700); err != nil {
		return err
	}
	// Lock the instance directory to prevent concurrent use by another instance
	n.dirLock = flock.New(filepath.Join(n.config.Node.DataDir, "LOCK"))
	if locked, err := n.dirLock.TryLock(); err != nil {
		return err
	} else if !locked {
		return ErrDatadirUsed
	}
	return nil
}

func (n *Node) setup() error {
	var err error
	if n.db, err = storage.Open(n.config.StorageConfig()); err != nil {
		return err
	}
	if n.journal, err = storage.NewJournal(n.db); err != nil {
		return err
	}
	oracle, err := n.openMembership()
	if err != nil {
		return err
	}
	gen := &n.config.Genesis
	price, err := gen.UnitPriceAmount()
	if err != nil {
		return err
	}
	n.market = marketplace.NewFake(price, gen.TreasuryAddress())
	n.dao = governance.New(n.config.GovernanceRules(), gen.Controller, governance.Backends{
		Membership:  oracle,
		Marketplace: n.market,
		Journal:     n.journal,
		Clock:       n.clock,
	})
	if err := n.restore(); err != nil {
		return err
	}
	n.rpc = rpc.NewServer()
	if err := n.rpc.RegisterName("dao", governance.NewAPI(n.dao)); err != nil {
		return err
	}
	log.Info("Governance node initialised", "controller", gen.Controller, "treasury", gen.TreasuryAddress(),
		"balance", n.dao.Balance(), "proposals", n.dao.NumProposals())
	return nil
}

func (n *Node) openMembership() (governance.MembershipOracle, error) {
	cfg := n.config.Membership
	if cfg.Endpoint != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		client, err := ethclient.DialContext(ctx, cfg.Endpoint)
		if err != nil {
			return nil, fmt.Errorf("membership endpoint: %w", err)
		}
		n.client = client
		contract := n.config.MembershipContract()
		log.Info("Using on-chain credential registry", "endpoint", cfg.Endpoint, "contract", contract)
		return membership.NewContractOracle(client, contract)
	}
	registry := membership.NewRegistry()
	for _, member := range n.config.Genesis.Members {
		if _, err := registry.Mint(member); err != nil {
			return nil, fmt.Errorf("genesis member %s: %w", member, err)
		}
	}
	log.Info("Using in-process credential registry", "members", registry.TotalSupply())
	return registry, nil
}

// restore replays the journal into the fresh DAO, or applies the genesis
// funding if the journal is empty.
func (n *Node) restore() error {
	start := time.Now()
	err := n.journal.Replay(func(seq uint64, ev governance.Event) error {
		if err := n.dao.Apply(ev); err != nil {
			return fmt.Errorf("journal entry %d (%s): %w", seq, ev.Kind(), err)
		}
		if ex, ok := ev.(*governance.ProposalExecutedEvent); ok && ex.Outcome == governance.OutcomePurchased {
			p, err := n.dao.GetProposal(ex.ID)
			if err != nil {
				return err
			}
			n.market.MarkSold(p.Unit)
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, p := range n.dao.SettlePurchases() {
		n.market.MarkSold(p.Unit)
	}
	if entries := n.journal.Len(); entries > 0 {
		log.Info("Replayed governance journal", "entries", entries, "head", n.journal.Head(), "elapsed", time.Since(start))
		return nil
	}
	funding, err := n.config.Genesis.FundingAmount()
	if err != nil {
		return err
	}
	if !funding.IsZero() {
		if err := n.dao.Deposit(n.config.Genesis.Controller, funding); err != nil {
			return fmt.Errorf("genesis funding: %w", err)
		}
		log.Info("Funded treasury from genesis", "amount", funding)
	}
	return nil
}

// Start begins serving JSON-RPC over HTTP (and WebSocket, if enabled). An
// empty listen address leaves the node reachable in-process only.
func (n *Node) Start() error {
	n.lock.Lock()
	defer n.lock.Unlock()

	switch n.state {
	case stateRunning:
		return ErrNodeRunning
	case stateClosed:
		return ErrNodeClosed
	}
	if addr := n.config.Node.HTTPAddr; addr != "" {
		listener, err := net.Listen("tcp", addr)
		if err != nil {
			return err
		}
		n.listener = listener
		n.httpSrv = &http.Server{
			Handler:           newHTTPHandler(n.rpc, n.config.Node.CORSOrigins, n.config.Node.WSEnabled, n.config.Node.Metrics),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go n.httpSrv.Serve(listener)

		log.Info("HTTP server started", "endpoint", listener.Addr(), "cors", n.config.Node.CORSOrigins, "ws", n.config.Node.WSEnabled)
	}
	n.state = stateRunning
	return nil
}

// HTTPEndpoint returns the address the HTTP server listens on, or the empty
// string if it is not running.
func (n *Node) HTTPEndpoint() string {
	n.lock.Lock()
	defer n.lock.Unlock()

	if n.listener == nil {
		return ""
	}
	return n.listener.Addr().String()
}

// Close stops the servers and releases the data directory. It is safe to
// call on a node that was never started.
func (n *Node) Close() error {
	n.lock.Lock()
	defer n.lock.Unlock()

	if n.state == stateClosed {
		return ErrNodeClosed
	}
	n.state = stateClosed

	var errs []error
	if n.httpSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := n.httpSrv.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
		cancel()
		n.httpSrv, n.listener = nil, nil
		log.Info("HTTP server stopped")
	}
	n.rpc.Stop()
	if err := n.release(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// release closes storage and unlocks the data directory.
func (n *Node) release() error {
	var errs []error
	if n.client != nil {
		n.client.Close()
	}
	if n.db != nil {
		if err := n.db.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if n.dirLock != nil {
		if err := n.dirLock.Unlock(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Attach creates an RPC client attached to the in-process server.
func (n *Node) Attach() *rpc.Client {
	return rpc.DialInProc(n.rpc)
}

// DAO returns the governance engine
func (n *Node) DAO() *governance.DAO {
	return n.dao
}

// Journal returns the event journal
func (n *Node) Journal() *storage.Journal {
	return n.journal
}

// Marketplace returns the marketplace the treasury buys from
func (n *Node) Marketplace() *marketplace.Fake {
	return n.market
}
