// Package controller implements a controller for the voting contract. It
// registers the contract and provides the commands to drive an election from
// the daemon.
package controller

import (
	"github.com/votela/votela/cli"
	"github.com/votela/votela/cli/node"
	"github.com/votela/votela/contracts/voting"
	"github.com/votela/votela/core/access"
	"github.com/votela/votela/core/execution/native"
	"golang.org/x/xerrors"
)

// aKey is the access key used for the voting contract.
var aKey = [32]byte{3}

// miniController is a CLI initializer to register the voting contract and its
// commands.
//
// - implements node.Initializer
type miniController struct{}

// NewController creates a new minimal controller for the voting contract.
func NewController() node.Initializer {
	return miniController{}
}

// SetCommands implements node.Initializer. It sets the commands to drive an
// election.
func (miniController) SetCommands(builder node.Builder) {
	cmd := builder.SetCommand("voting")
	cmd.SetDescription("Handles the voting contract")

	sub := cmd.SetSubCommand("init")
	sub.SetDescription("seed the roles with the signer of the node as owner")
	sub.SetAction(builder.MakeAction(initAction{}))

	parties := cmd.SetSubCommand("parties")
	parties.SetDescription("manage the political parties")

	sub = parties.SetSubCommand("add")
	sub.SetDescription("register a new party")
	sub.SetFlags(
		cli.StringFlag{
			Name:     "id",
			Usage:    "identifier of the party",
			Required: true,
		},
		cli.StringFlag{
			Name:     "name",
			Usage:    "display name of the party",
			Required: true,
		},
		cli.StringFlag{
			Name:  "description",
			Usage: "description of the party",
		},
	)
	sub.SetAction(builder.MakeAction(addPartyAction{}))

	sub = parties.SetSubCommand("list")
	sub.SetDescription("list the parties in registration order")
	sub.SetAction(builder.MakeAction(listPartiesAction{}))

	sub = parties.SetSubCommand("status")
	sub.SetDescription("set the active flag of a party")
	sub.SetFlags(
		cli.StringFlag{
			Name:     "id",
			Usage:    "identifier of the party",
			Required: true,
		},
		cli.StringFlag{
			Name:     "active",
			Usage:    "true to accept casts for the party, false to block them",
			Required: true,
		},
	)
	sub.SetAction(builder.MakeAction(partyStatusAction{}))

	session := cmd.SetSubCommand("session")
	session.SetDescription("manage the voting session")

	sub = session.SetSubCommand("open")
	sub.SetDescription("open a session over a voting window")
	sub.SetFlags(
		cli.StringFlag{
			Name:     "name",
			Usage:    "display name of the session",
			Required: true,
		},
		cli.StringFlag{
			Name:     "start",
			Usage:    "RFC 3339 time at which the window opens",
			Required: true,
		},
		cli.StringFlag{
			Name:     "end",
			Usage:    "RFC 3339 time at which the window closes",
			Required: true,
		},
	)
	sub.SetAction(builder.MakeAction(openSessionAction{}))

	sub = session.SetSubCommand("close")
	sub.SetDescription("close the active session")
	sub.SetAction(builder.MakeAction(closeSessionAction{}))

	sub = session.SetSubCommand("show")
	sub.SetDescription("display the session and the time remaining")
	sub.SetAction(builder.MakeAction(showSessionAction{}))

	roles := cmd.SetSubCommand("roles")
	roles.SetDescription("manage the owner and the admins")

	sub = roles.SetSubCommand("transfer")
	sub.SetDescription("transfer the ownership")
	sub.SetFlags(cli.StringFlag{
		Name:     "identity",
		Usage:    "identity of the new owner",
		Required: true,
	})
	sub.SetAction(builder.MakeAction(roleAction{cmd: voting.CmdTransferOwner}))

	sub = roles.SetSubCommand("grant")
	sub.SetDescription("add an admin")
	sub.SetFlags(cli.StringFlag{
		Name:     "identity",
		Usage:    "identity of the admin to add",
		Required: true,
	})
	sub.SetAction(builder.MakeAction(roleAction{cmd: voting.CmdGrantAdmin}))

	sub = roles.SetSubCommand("revoke")
	sub.SetDescription("remove an admin")
	sub.SetFlags(cli.StringFlag{
		Name:     "identity",
		Usage:    "identity of the admin to remove",
		Required: true,
	})
	sub.SetAction(builder.MakeAction(roleAction{cmd: voting.CmdRevokeAdmin}))

	sub = cmd.SetSubCommand("results")
	sub.SetDescription("display the per-party counts and the winner")
	sub.SetAction(builder.MakeAction(resultsAction{}))

	sub = cmd.SetSubCommand("cast")
	sub.SetDescription("record a vote for a voter hash")
	sub.SetFlags(
		cli.StringFlag{
			Name:     "hash",
			Usage:    "voter hash, 0x followed by 64 hexadecimal characters",
			Required: true,
		},
		cli.StringFlag{
			Name:     "party",
			Usage:    "identifier of the party",
			Required: true,
		},
	)
	sub.SetAction(builder.MakeAction(castAction{}))
}

// OnStart implements node.Initializer. It registers the voting contract.
func (m miniController) OnStart(flags cli.Flags, inj node.Injector) error {
	var access access.Service
	err := inj.Resolve(&access)
	if err != nil {
		return xerrors.Errorf("failed to resolve access service: %v", err)
	}

	var exec *native.Service
	err = inj.Resolve(&exec)
	if err != nil {
		return xerrors.Errorf("failed to resolve native service: %v", err)
	}

	contract := voting.NewContract(aKey[:], access)

	voting.RegisterContract(exec, contract)

	return nil
}

// OnStop implements node.Initializer.
func (miniController) OnStop(inj node.Injector) error {
	return nil
}
