package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/cryptodevs/dao/governance"
	"github.com/cryptodevs/dao/internal/config"
	"github.com/cryptodevs/dao/storage"
	"github.com/gofrs/flock"
	"github.com/urfave/cli/v2"
)

var journalCommand = &cli.Command{
	Name:  "journal",
	Usage: "Inspect the governance journal of a stopped node",
	Subcommands: []*cli.Command{
		{
			Name:   "verify",
			Usage:  "Check the hash chain and replay every event",
			Flags:  nodeFlags,
			Action: verifyJournal,
		},
		{
			Name:   "dump",
			Usage:  "Print every journaled event",
			Flags:  nodeFlags,
			Action: dumpJournal,
		},
		{
			Name:      "show",
			Usage:     "Print a single journaled event",
			ArgsUsage: "<seq>",
			Flags:     nodeFlags,
			Action:    showJournalEntry,
		},
	},
}

// openJournal opens the journal of the configured data directory, refusing
// to touch it while a node holds the lock.
func openJournal(cfg *config.Config) (*storage.Journal, func(), error) {
	storageCfg := cfg.StorageConfig()
	if storageCfg.Engine == storage.EngineMemory {
		return nil, nil, errors.New("the memory engine has no journal on disk")
	}
	lock := flock.New(filepath.Join(cfg.Node.DataDir, "LOCK"))
	if locked, err := lock.TryLock(); err != nil {
		return nil, nil, err
	} else if !locked {
		return nil, nil, errors.New("datadir is in use by a running node")
	}
	db, err := storage.Open(storageCfg)
	if err != nil {
		lock.Unlock()
		return nil, nil, err
	}
	journal, err := storage.NewJournal(db)
	if err != nil {
		db.Close()
		lock.Unlock()
		return nil, nil, err
	}
	return journal, func() { db.Close(); lock.Unlock() }, nil
}

func verifyJournal(ctx *cli.Context) error {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	journal, closeFn, err := openJournal(cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	if err := journal.Verify(); err != nil {
		return err
	}
	// Replaying into a detached DAO checks the events against the rules.
	dao := governance.New(cfg.GovernanceRules(), cfg.Genesis.Controller, governance.Backends{})
	err = journal.Replay(func(seq uint64, ev governance.Event) error {
		if err := dao.Apply(ev); err != nil {
			return fmt.Errorf("entry %d (%s): %w", seq, ev.Kind(), err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, p := range dao.SettlePurchases() {
		fmt.Fprintf(ctx.App.Writer, "Proposal %d: purchase of unit %d for %s wei started but not resolved, counted as bought\n",
			p.ID, p.Unit, p.Price.Dec())
	}
	fmt.Fprintf(ctx.App.Writer, "Journal %s: %d entries, head %s, %d proposals, treasury %s wei\n",
		okColor.Sprint("OK"), journal.Len(), journal.Head().Hex(), dao.NumProposals(), dao.Balance().Dec())
	return nil
}

func dumpJournal(ctx *cli.Context) error {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	journal, closeFn, err := openJournal(cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	return journal.Replay(func(seq uint64, ev governance.Event) error {
		_, err := fmt.Fprintf(ctx.App.Writer, "%6d %-18s %+v\n", seq, keyColor.Sprint(ev.Kind()), ev)
		return err
	})
}

func showJournalEntry(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return errors.New("expected one journal sequence number")
	}
	seq, err := strconv.ParseUint(ctx.Args().First(), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid sequence number: %w", err)
	}
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	journal, closeFn, err := openJournal(cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	ev, hash, err := journal.Entry(seq)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("no journal entry %d, journal has %d", seq, journal.Len())
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(ctx.App.Writer, "%6d %-18s %s %+v\n", seq, keyColor.Sprint(ev.Kind()), hash.Hex(), ev)
	return err
}
