package controller

import (
	"fmt"

	"github.com/votela/votela/cli/node"
	"github.com/votela/votela/registry"
	"golang.org/x/xerrors"
)

// importAction loads a YAML roster and registers its unknown voters.
//
// - implements node.ActionTemplate
type importAction struct{}

// Execute implements node.ActionTemplate. It imports the roster.
func (a importAction) Execute(ctx node.Context) error {
	var reg *registry.Registry
	err := ctx.Injector.Resolve(&reg)
	if err != nil {
		return xerrors.Errorf("injector: %v", err)
	}

	voters, err := registry.LoadRoster(ctx.Flags.String("file"))
	if err != nil {
		return xerrors.Errorf("failed to load roster: %v", err)
	}

	added, err := reg.Import("operator", voters)
	if err != nil {
		return xerrors.Errorf("failed to import: %v", err)
	}

	fmt.Fprintf(ctx.Out, "imported %d voters out of %d\n", added, len(voters))

	return nil
}

// searchAction displays the voters matching a term.
//
// - implements node.ActionTemplate
type searchAction struct{}

// Execute implements node.ActionTemplate. It prints one voter per line.
func (a searchAction) Execute(ctx node.Context) error {
	var reg *registry.Registry
	err := ctx.Injector.Resolve(&reg)
	if err != nil {
		return xerrors.Errorf("injector: %v", err)
	}

	voters, err := reg.Search(ctx.Flags.String("query"), ctx.Flags.Int("limit"))
	if err != nil {
		return xerrors.Errorf("failed to search: %v", err)
	}

	for _, voter := range voters {
		fmt.Fprintf(ctx.Out, "%s\t%s\t%s\t%s\thas_voted=%t\n",
			voter.NationalID, voter.Email, voter.FullName, voter.Status,
			voter.HasVoted)
	}

	return nil
}
