package controller

import (
	"fmt"

	"github.com/votela/votela/cli/node"
	"github.com/votela/votela/web"
	"golang.org/x/xerrors"
)

// tokenAction mints an operator bearer token with the secret of the running
// node.
//
// - implements node.ActionTemplate
type tokenAction struct{}

// Execute implements node.ActionTemplate.
func (tokenAction) Execute(ctx node.Context) error {
	var tokens *web.TokenIssuer
	err := ctx.Injector.Resolve(&tokens)
	if err != nil {
		return xerrors.Errorf("injector: %v", err)
	}

	token, err := tokens.AdminToken(ctx.Flags.String("subject"), ctx.Flags.Duration("ttl"))
	if err != nil {
		return xerrors.Errorf("failed to mint token: %v", err)
	}

	fmt.Fprintln(ctx.Out, token)

	return nil
}
