package controller

import (
	"encoding/base64"

	"github.com/votela/votela"
	"github.com/votela/votela/cli/node"
	accessContract "github.com/votela/votela/contracts/access"
	"github.com/votela/votela/core/access"
	"github.com/votela/votela/core/execution/native"
	"github.com/votela/votela/crypto/bls"
	"golang.org/x/xerrors"
)

// addAction writes a grant for one or more identities into the local access
// store.
//
// - implements node.ActionTemplate
type addAction struct{}

// Execute implements node.ActionTemplate. It reads the list of identities
// from the flags and grants them the use of the access contract.
func (a addAction) Execute(ctx node.Context) error {
	var exec *native.Service
	err := ctx.Injector.Resolve(&exec)
	if err != nil {
		return xerrors.Errorf("failed to resolve native service: %v", err)
	}

	var asrv access.Service
	err = ctx.Injector.Resolve(&asrv)
	if err != nil {
		return xerrors.Errorf("failed to resolve access service: %v", err)
	}

	var accessStore accessStore
	err = ctx.Injector.Resolve(&accessStore)
	if err != nil {
		return xerrors.Errorf("failed to resolve access store: %v", err)
	}

	identities, err := parseIdentities(ctx.Flags.StringSlice("identity"))
	if err != nil {
		return xerrors.Errorf("failed to parse identities: %v", err)
	}

	err = asrv.Grant(accessStore, accessContract.NewCreds(aKey[:]), identities...)
	if err != nil {
		return xerrors.Errorf("failed to grant: %v", err)
	}

	votela.Logger.Info().Msgf("access granted to %v", identities)

	return nil
}

// parseIdentities decodes a list of standard base64 encoded bls public keys.
func parseIdentities(raw []string) ([]access.Identity, error) {
	identities := make([]access.Identity, len(raw))

	for i, id := range raw {
		idBuf, err := base64.StdEncoding.DecodeString(id)
		if err != nil {
			return nil, xerrors.Errorf("failed to decode pub key '%s': %v", id, err)
		}

		pk, err := bls.NewPublicKey(idBuf)
		if err != nil {
			return nil, xerrors.Errorf("failed to unmarshal identity '%s': %v", id, err)
		}

		identities[i] = pk
	}

	return identities, nil
}
