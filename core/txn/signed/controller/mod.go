// Package controller injects the transaction manager built from the node
// signer, so that the CLI actions can submit signed transactions without
// tracking the nonce themselves.
package controller

import (
	"github.com/votela/votela/cli"
	"github.com/votela/votela/cli/node"
	"github.com/votela/votela/core/access"
	"github.com/votela/votela/core/ordering"
	"github.com/votela/votela/core/txn/signed"
	"github.com/votela/votela/core/validation"
	"github.com/votela/votela/crypto"
	"golang.org/x/xerrors"
)

// mgrController is an initializer for the transaction manager.
//
// - implements node.Initializer
type mgrController struct{}

// NewManagerController creates a new controller that will inject a
// transaction manager in the context.
func NewManagerController() node.Initializer {
	return mgrController{}
}

// SetCommands implements node.Initializer. The manager has no command of its
// own.
func (mgrController) SetCommands(node.Builder) {}

// OnStart implements node.Initializer. It resolves the ordering service, the
// validation service and the node signer, then injects the manager built on
// top of them.
func (mgrController) OnStart(flags cli.Flags, inj node.Injector) error {
	var srvc ordering.Service
	err := inj.Resolve(&srvc)
	if err != nil {
		return xerrors.Errorf("failed to resolve ordering service: %v", err)
	}

	var vs validation.Service
	err = inj.Resolve(&vs)
	if err != nil {
		return xerrors.Errorf("failed to resolve validation service: %v", err)
	}

	var signer crypto.Signer
	err = inj.Resolve(&signer)
	if err != nil {
		return xerrors.Errorf("failed to resolve signer: %v", err)
	}

	mgr := signed.NewManager(signer, nonceClient{
		srvc: srvc,
		vs:   vs,
	})

	inj.Inject(mgr)

	return nil
}

// OnStop implements node.Initializer. It does nothing.
func (mgrController) OnStop(node.Injector) error {
	return nil
}

// nonceClient reads the nonce of an identity from the local ledger state.
//
// - implements signed.Client
type nonceClient struct {
	srvc ordering.Service
	vs   validation.Service
}

// GetNonce implements signed.Client. It returns the next valid nonce of the
// identity according to the current state.
func (c nonceClient) GetNonce(ident access.Identity) (uint64, error) {
	store := c.srvc.GetStore()

	nonce, err := c.vs.GetNonce(store, ident)
	if err != nil {
		return 0, xerrors.Errorf("validation service: %v", err)
	}

	return nonce, nil
}
