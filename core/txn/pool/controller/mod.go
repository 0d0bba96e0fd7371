// Package controller exposes the generic transaction command of the node.
//
// The command builds a signed transaction from raw key/value arguments and
// submits it to the pool. It is mostly a debugging tool, the commands of the
// contracts are friendlier.
package controller

import (
	"github.com/votela/votela/cli"
	"github.com/votela/votela/cli/node"
	"github.com/votela/votela/core/access"
)

const (
	// signerFlag is the flag name containing the path to the private keyfile.
	signerFlag = "key"

	// nonceFlag is the flag name containing the nonce.
	nonceFlag = "nonce"
)

// poolController is an initializer for the pool command.
//
// - implements node.Initializer
type poolController struct{}

// NewController creates the initializer of the pool command.
func NewController() node.Initializer {
	return poolController{}
}

// SetCommands implements node.Initializer. It registers the command to submit
// a raw transaction to the pool.
func (poolController) SetCommands(builder node.Builder) {
	cmd := builder.SetCommand("pool")
	cmd.SetDescription("interact with the pool")

	sub := cmd.SetSubCommand("add")
	sub.SetDescription("add a transaction to the pool")
	sub.SetFlags(cli.StringSliceFlag{
		Name:  "args",
		Usage: "list of key-value pairs",
	}, cli.IntFlag{
		Name:     nonceFlag,
		Usage:    "nonce to use, a negative value lets the manager pick one",
		Required: false,
		Value:    -1,
	}, cli.StringFlag{
		Name:     signerFlag,
		Usage:    "path to the private keyfile",
		Required: true,
	})
	sub.SetAction(builder.MakeAction(&addAction{
		client: &localClient{},
	}))
}

// OnStart implements node.Initializer. It does nothing.
func (poolController) OnStart(flags cli.Flags, inj node.Injector) error {
	return nil
}

// OnStop implements node.Initializer. It does nothing.
func (poolController) OnStop(inj node.Injector) error {
	return nil
}

// localClient serves the nonce pinned by the command line, then increments it
// for the following transactions of the same action.
//
// - implements signed.Client
type localClient struct {
	nonce uint64
}

// GetNonce implements signed.Client. It returns the current nonce and
// increments it.
func (c *localClient) GetNonce(access.Identity) (uint64, error) {
	res := c.nonce
	c.nonce++

	return res, nil
}
