// Package command provides the commands of the key tool, which generates and
// displays the bls keys of the system.
//
// An operator generates one key per node and one per election official. The
// PUBKEY format feeds the role commands of the voting contract, while
// BASE64_PUBKEY is the form the access commands expect.
package command

import (
	"os"

	"github.com/votela/votela/cli"
	"github.com/votela/votela/crypto/bls"
)

// Initializer registers the key commands.
//
// - implements cli.Initializer
type Initializer struct{}

// SetCommands implements cli.Initializer.
func (Initializer) SetCommands(provider cli.Provider) {
	actions := actions{
		printer: os.Stdout,

		gen: func() ([]byte, error) {
			return bls.NewSigner().MarshalBinary()
		},
		pubKeyOf: pubKeyOf,
		readFile: os.ReadFile,
		saveFile: save,
	}

	cmd := provider.SetCommand("key")

	sub := cmd.SetSubCommand("new")
	sub.SetDescription("generate a bls key pair")
	sub.SetFlags(cli.StringFlag{
		Name:  "save",
		Usage: "write the key to this file instead of the standard output",
	}, cli.BoolFlag{
		Name:  "force",
		Usage: "overwrite the file if it exists",
	})
	sub.SetAction(actions.generate)

	sub = cmd.SetSubCommand("show")
	sub.SetDescription("display a key file")
	sub.SetFlags(cli.StringFlag{
		Name:     "path",
		Usage:    "path to the key file",
		Required: true,
	}, cli.StringFlag{
		Name:  "format",
		Usage: "one of PUBKEY, BASE64 or BASE64_PUBKEY",
		Value: Pubkey,
	})
	sub.SetAction(actions.show)
}
