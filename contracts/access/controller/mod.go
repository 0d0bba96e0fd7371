// Package controller registers the access contract on the node and exposes
// the command to seed the first grants.
//
// A fresh deployment starts with an empty ledger, so no identity is allowed
// to do anything. The command writes identities straight into the local
// access store, which makes the very first transactions possible.
package controller

import (
	"path/filepath"

	"github.com/votela/votela/cli"
	"github.com/votela/votela/cli/node"
	accessContract "github.com/votela/votela/contracts/access"
	"github.com/votela/votela/core/access"
	"github.com/votela/votela/core/execution/native"
	"golang.org/x/xerrors"
)

// aKey is the credential identifier of the access contract itself.
var aKey = [32]byte{1}

// newStore is the function used to create the new store. The tests replace
// it with a failing one.
var newStore = func(path string) (accessStore, error) {
	return newJstore(path)
}

// accessController is a CLI initializer to register the access contract and
// its command.
//
// - implements node.Initializer
type accessController struct{}

// NewController creates a new controller for the access contract.
func NewController() node.Initializer {
	return accessController{}
}

// SetCommands implements node.Initializer. It registers the command to grant
// an identity the use of the access contract.
func (accessController) SetCommands(builder node.Builder) {
	cmd := builder.SetCommand("access")
	cmd.SetDescription("Handles the access contract")

	sub := cmd.SetSubCommand("add")
	sub.SetDescription("add an identity")
	sub.SetFlags(cli.StringSliceFlag{
		Name:     "identity",
		Usage:    "identity to add, in the form of bls public keys",
		Required: true,
	})
	sub.SetAction(builder.MakeAction(addAction{}))
}

// OnStart implements node.Initializer. It opens the access store in the
// config folder and registers the access contract.
func (accessController) OnStart(flags cli.Flags, inj node.Injector) error {
	var asrvc access.Service
	err := inj.Resolve(&asrvc)
	if err != nil {
		return xerrors.Errorf("failed to resolve access service: %v", err)
	}

	var exec *native.Service
	err = inj.Resolve(&exec)
	if err != nil {
		return xerrors.Errorf("failed to resolve native service: %v", err)
	}

	accessStore, err := newStore(filepath.Join(flags.String("config"), "access.json"))
	if err != nil {
		return xerrors.Errorf("failed to create access store: %v", err)
	}

	contract := accessContract.NewContract(aKey[:], asrvc, accessStore)
	accessContract.RegisterContract(exec, contract)

	inj.Inject(accessStore)

	return nil
}

// OnStop implements node.Initializer. It does nothing.
func (accessController) OnStop(inj node.Injector) error {
	return nil
}
