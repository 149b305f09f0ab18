package main

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/cryptodevs/dao/internal/debug"
	"github.com/cryptodevs/dao/node"
	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

var runCommand = &cli.Command{
	Name:   "run",
	Usage:  "Start the governance node (default)",
	Flags:  nodeFlags,
	Action: runNode,
}

func runNode(ctx *cli.Context) error {
	if ctx.Args().Present() {
		return cli.Exit("unknown command: "+ctx.Args().First(), 1)
	}
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	if err := debug.Setup(cfg.Log); err != nil {
		return err
	}
	defer debug.Exit()

	n, err := node.New(cfg)
	if err != nil {
		return err
	}
	if err := n.Start(); err != nil {
		n.Close()
		return err
	}

	sigctx, stop := signal.NotifyContext(ctx.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(sigctx)
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Got interrupt, shutting down...")
		return n.Close()
	})
	if err := g.Wait(); err != nil && !errors.Is(err, node.ErrNodeClosed) {
		return err
	}
	return nil
}
