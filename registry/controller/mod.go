// Package controller implements a controller for the voter registry. It
// builds the registry over the node database, starts the watcher that folds
// the accepted casts back into it, and provides the import and search
// commands.
package controller

import (
	"context"
	"sync"

	"github.com/votela/votela/cli"
	"github.com/votela/votela/cli/node"
	"github.com/votela/votela/core/ordering"
	"github.com/votela/votela/core/store/kv"
	"github.com/votela/votela/internal/config"
	"github.com/votela/votela/registry"
	"golang.org/x/xerrors"
)

// miniController is a CLI initializer for the voter registry.
//
// - implements node.Initializer
type miniController struct {
	cancel context.CancelFunc
	closed sync.WaitGroup
}

// NewController creates a new controller for the voter registry.
func NewController() node.Initializer {
	return &miniController{}
}

// SetCommands implements node.Initializer. It sets the registry commands.
func (c *miniController) SetCommands(builder node.Builder) {
	cmd := builder.SetCommand("registry")
	cmd.SetDescription("Handles the voter registry")

	sub := cmd.SetSubCommand("import")
	sub.SetDescription("import a YAML roster of voters")
	sub.SetFlags(
		cli.StringFlag{
			Name:     "file",
			Usage:    "path to the roster file",
			Required: true,
		},
	)
	sub.SetAction(builder.MakeAction(importAction{}))

	sub = cmd.SetSubCommand("search")
	sub.SetDescription("search the registered voters")
	sub.SetFlags(
		cli.StringFlag{
			Name:  "query",
			Usage: "national id prefix, or part of the email or the name",
		},
		cli.IntFlag{
			Name:  "limit",
			Usage: "maximum number of voters to display",
		},
	)
	sub.SetAction(builder.MakeAction(searchAction{}))
}

// OnStart implements node.Initializer. It builds the registry from the
// environment settings and starts the watcher over the ordering service.
func (c *miniController) OnStart(flags cli.Flags, inj node.Injector) error {
	cfg, err := config.Load()
	if err != nil {
		return xerrors.Errorf("config: %v", err)
	}

	var db kv.DB
	err = inj.Resolve(&db)
	if err != nil {
		return xerrors.Errorf("injector: %v", err)
	}

	opts := []registry.Option{}

	switch cfg.Mailer {
	case "", "log":
	case "webhook":
		if cfg.MailerURL == "" {
			return xerrors.New("mailer url is required for the webhook mailer")
		}

		opts = append(opts, registry.WithMailer(registry.NewWebhookMailer(cfg.MailerURL)))
	default:
		return xerrors.Errorf("unknown mailer '%s'", cfg.Mailer)
	}

	reg := registry.NewRegistry(db, cfg.VoterSalt, opts...)

	var srvc ordering.Service
	err = inj.Resolve(&srvc)
	if err != nil {
		return xerrors.Errorf("injector: %v", err)
	}

	watcher := registry.NewWatcher(reg, srvc)

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	c.closed.Add(1)

	go func() {
		defer c.closed.Done()

		watcher.Listen(ctx)
	}()

	inj.Inject(reg)

	return nil
}

// OnStop implements node.Initializer. It stops the watcher and waits for it
// to drain.
func (c *miniController) OnStop(node.Injector) error {
	if c.cancel != nil {
		c.cancel()
	}

	c.closed.Wait()

	return nil
}
