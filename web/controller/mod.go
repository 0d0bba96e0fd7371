// Package controller wires the web API into the node. The service mounts on
// the proxy, so the proxy controller must start first.
package controller

import (
	"github.com/votela/votela/cli"
	"github.com/votela/votela/cli/node"
	"github.com/votela/votela/core/ordering"
	"github.com/votela/votela/core/txn"
	"github.com/votela/votela/core/txn/pool"
	"github.com/votela/votela/evm"
	"github.com/votela/votela/internal/config"
	"github.com/votela/votela/proxy"
	"github.com/votela/votela/registry"
	"github.com/votela/votela/web"
	"golang.org/x/xerrors"
)

// miniController wires the web API service into the node.
//
// - implements node.Initializer
type miniController struct{}

// NewController returns a controller initializer for the web API.
func NewController() node.Initializer {
	return miniController{}
}

// SetCommands implements node.Initializer. It registers the commands that
// talk to the token issuer of a running node.
func (miniController) SetCommands(builder node.Builder) {
	cmd := builder.SetCommand("web")
	cmd.SetDescription("Handles the web API")

	sub := cmd.SetSubCommand("token")
	sub.SetDescription("mint an operator bearer token")
	sub.SetFlags(
		cli.StringFlag{
			Name:  "subject",
			Usage: "name of the operator, written in the audit trail",
			Value: "admin",
		},
		cli.DurationFlag{
			Name:  "ttl",
			Usage: "validity of the token",
			Value: web.DefaultAdminValidity,
		},
	)
	sub.SetAction(builder.MakeAction(tokenAction{}))
}

// OnStart implements node.Initializer. It builds the API service around the
// components of the node and mounts it on the proxy.
func (miniController) OnStart(flags cli.Flags, inj node.Injector) error {
	cfg, err := config.Load()
	if err != nil {
		return xerrors.Errorf("config: %v", err)
	}

	var p proxy.Proxy
	err = inj.Resolve(&p)
	if err != nil {
		return xerrors.Errorf("injector: %v", err)
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

	var mgr txn.Manager
	err = inj.Resolve(&mgr)
	if err != nil {
		return xerrors.Errorf("injector: %v", err)
	}

	var txPool pool.Pool
	err = inj.Resolve(&txPool)
	if err != nil {
		return xerrors.Errorf("injector: %v", err)
	}

	tokens, err := web.NewTokenIssuer(cfg.TokenSecret)
	if err != nil {
		return xerrors.Errorf("failed to create token issuer: %v", err)
	}

	opts := []web.Option{web.WithOrigins(cfg.CORSOrigins)}

	// The mirror is optional, so the chain client may not be there.
	var client *evm.Client
	err = inj.Resolve(&client)
	if err == nil {
		opts = append(opts, web.WithChain(client))
	}

	srv := web.NewService(reg, srvc, mgr, txPool, tokens, opts...)

	srv.Register(p)

	inj.Inject(srv)
	inj.Inject(tokens)

	return nil
}

// OnStop implements node.Initializer. The proxy controller owns the server,
// so there is nothing to tear down here.
func (miniController) OnStop(node.Injector) error {
	return nil
}
