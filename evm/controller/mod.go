// Package controller implements a controller for the chain mirror. The
// mirror is optional: without a configured RPC endpoint the node runs on the
// ledger alone.
package controller

import (
	"context"
	"sync"

	"github.com/votela/votela"
	"github.com/votela/votela/cli"
	"github.com/votela/votela/cli/node"
	"github.com/votela/votela/core/ordering"
	"github.com/votela/votela/evm"
	"github.com/votela/votela/internal/config"
	"github.com/votela/votela/registry"
	"golang.org/x/xerrors"
)

// miniController is a CLI initializer for the chain mirror.
//
// - implements node.Initializer
type miniController struct {
	cancel context.CancelFunc
	closed sync.WaitGroup
}

// NewController creates a new controller for the chain mirror.
func NewController() node.Initializer {
	return &miniController{}
}

// SetCommands implements node.Initializer. It sets the chain commands.
func (c *miniController) SetCommands(builder node.Builder) {
	cmd := builder.SetCommand("chain")
	cmd.SetDescription("Handles the chain mirror")

	sub := cmd.SetSubCommand("status")
	sub.SetDescription("compare the registry, ledger and mirror counters")
	sub.SetAction(builder.MakeAction(statusAction{}))

	sub = cmd.SetSubCommand("journal")
	sub.SetDescription("display the submission journal")
	sub.SetFlags(
		cli.IntFlag{
			Name:  "limit",
			Usage: "maximum number of records to display",
		},
	)
	sub.SetAction(builder.MakeAction(journalAction{}))
}

// OnStart implements node.Initializer. It dials the chain endpoint when one
// is configured and starts the mirror over the ordering service.
func (c *miniController) OnStart(flags cli.Flags, inj node.Injector) error {
	cfg, err := config.Load()
	if err != nil {
		return xerrors.Errorf("config: %v", err)
	}

	if cfg.ChainRPC == "" {
		votela.Logger.Info().Msg("no chain endpoint, mirror disabled")
		return nil
	}

	client, err := evm.NewClient(cfg.ChainRPC, cfg.ChainContract, cfg.ChainKey, cfg.ChainID)
	if err != nil {
		return xerrors.Errorf("failed to create client: %v", err)
	}

	var reg *registry.Registry
	err = inj.Resolve(&reg)
	if err != nil {
		return xerrors.Errorf("injector: %v", err)
	}

	var srvc ordering.Service
	err = inj.Resolve(&srvc)
	if err != nil {
		return xerrors.Errorf("injector: %v", err)
	}

	mirror := evm.NewMirror(reg, client, srvc)

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	c.closed.Add(1)

	go func() {
		defer c.closed.Done()

		mirror.Listen(ctx)
	}()

	inj.Inject(client)

	return nil
}

// OnStop implements node.Initializer. It stops the mirror and waits for it
// to drain.
func (c *miniController) OnStop(node.Injector) error {
	if c.cancel != nil {
		c.cancel()
	}

	c.closed.Wait()

	return nil
}
