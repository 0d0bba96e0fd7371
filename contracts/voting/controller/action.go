// This file implements the actions of the controller. The write actions
// submit a signed transaction to the pool and return, the read actions
// display the state committed by the ordering service.

package controller

import (
	"fmt"
	"time"

	"github.com/votela/votela"
	"github.com/votela/votela/cli/node"
	"github.com/votela/votela/contracts/voting"
	"github.com/votela/votela/contracts/voting/types"
	"github.com/votela/votela/core/execution/native"
	"github.com/votela/votela/core/ordering"
	"github.com/votela/votela/core/txn"
	"github.com/votela/votela/core/txn/pool"
	"golang.org/x/xerrors"
)

// initAction is an action to seed the roles of the ledger.
//
// - implements node.ActionTemplate
type initAction struct{}

// Execute implements node.ActionTemplate. It submits the INIT command so that
// the signer of the node becomes the owner.
func (initAction) Execute(ctx node.Context) error {
	return submit(ctx,
		txn.Arg{Key: voting.CmdArg, Value: []byte(voting.CmdInit)})
}

// addPartyAction is an action to register a party.
//
// - implements node.ActionTemplate
type addPartyAction struct{}

// Execute implements node.ActionTemplate. It submits the REGISTER_PARTY
// command.
func (addPartyAction) Execute(ctx node.Context) error {
	return submit(ctx,
		txn.Arg{Key: voting.CmdArg, Value: []byte(voting.CmdRegisterParty)},
		txn.Arg{Key: voting.PartyArg, Value: []byte(ctx.Flags.String("id"))},
		txn.Arg{Key: voting.NameArg, Value: []byte(ctx.Flags.String("name"))},
		txn.Arg{Key: voting.DescriptionArg, Value: []byte(ctx.Flags.String("description"))})
}

// partyStatusAction is an action to flip the active flag of a party.
//
// - implements node.ActionTemplate
type partyStatusAction struct{}

// Execute implements node.ActionTemplate. It submits the SET_PARTY_STATUS
// command.
func (partyStatusAction) Execute(ctx node.Context) error {
	return submit(ctx,
		txn.Arg{Key: voting.CmdArg, Value: []byte(voting.CmdSetPartyStatus)},
		txn.Arg{Key: voting.PartyArg, Value: []byte(ctx.Flags.String("id"))},
		txn.Arg{Key: voting.ActiveArg, Value: []byte(ctx.Flags.String("active"))})
}

// openSessionAction is an action to open a voting session.
//
// - implements node.ActionTemplate
type openSessionAction struct{}

// Execute implements node.ActionTemplate. It submits the OPEN_SESSION
// command.
func (openSessionAction) Execute(ctx node.Context) error {
	return submit(ctx,
		txn.Arg{Key: voting.CmdArg, Value: []byte(voting.CmdOpenSession)},
		txn.Arg{Key: voting.NameArg, Value: []byte(ctx.Flags.String("name"))},
		txn.Arg{Key: voting.StartArg, Value: []byte(ctx.Flags.String("start"))},
		txn.Arg{Key: voting.EndArg, Value: []byte(ctx.Flags.String("end"))})
}

// closeSessionAction is an action to close the active session.
//
// - implements node.ActionTemplate
type closeSessionAction struct{}

// Execute implements node.ActionTemplate. It submits the CLOSE_SESSION
// command.
func (closeSessionAction) Execute(ctx node.Context) error {
	return submit(ctx,
		txn.Arg{Key: voting.CmdArg, Value: []byte(voting.CmdCloseSession)})
}

// roleAction is an action to transfer the ownership or to add or remove an
// admin, depending on the command it carries.
//
// - implements node.ActionTemplate
type roleAction struct {
	cmd voting.Command
}

// Execute implements node.ActionTemplate. It submits the role command with
// the targeted identity.
func (a roleAction) Execute(ctx node.Context) error {
	return submit(ctx,
		txn.Arg{Key: voting.CmdArg, Value: []byte(a.cmd)},
		txn.Arg{Key: voting.IdentityArg, Value: []byte(ctx.Flags.String("identity"))})
}

// castAction is an action to record a vote.
//
// - implements node.ActionTemplate
type castAction struct{}

// Execute implements node.ActionTemplate. It submits the CAST command.
func (castAction) Execute(ctx node.Context) error {
	return submit(ctx,
		txn.Arg{Key: voting.CmdArg, Value: []byte(voting.CmdCast)},
		txn.Arg{Key: voting.HashArg, Value: []byte(ctx.Flags.String("hash"))},
		txn.Arg{Key: voting.PartyArg, Value: []byte(ctx.Flags.String("party"))})
}

// listPartiesAction is an action to display the parties.
//
// - implements node.ActionTemplate
type listPartiesAction struct{}

// Execute implements node.ActionTemplate. It prints the parties in
// registration order.
func (listPartiesAction) Execute(ctx node.Context) error {
	var srvc ordering.Service
	err := ctx.Injector.Resolve(&srvc)
	if err != nil {
		return xerrors.Errorf("injector: %v", err)
	}

	parties, err := voting.GetParties(srvc.GetStore())
	if err != nil {
		return xerrors.Errorf("failed to read parties: %v", err)
	}

	for _, party := range parties {
		fmt.Fprintf(ctx.Out, "%d\t%s\t%s\tactive=%t\tvotes=%d\n",
			party.Index, party.ID, party.Name, party.Active, party.Votes)
	}

	return nil
}

// showSessionAction is an action to display the session.
//
// - implements node.ActionTemplate
type showSessionAction struct{}

// Execute implements node.ActionTemplate. It prints the session record and
// how long it still accepts votes.
func (showSessionAction) Execute(ctx node.Context) error {
	var srvc ordering.Service
	err := ctx.Injector.Resolve(&srvc)
	if err != nil {
		return xerrors.Errorf("injector: %v", err)
	}

	session, err := voting.GetSession(srvc.GetStore())
	if err != nil {
		return xerrors.Errorf("failed to read session: %v", err)
	}

	if session.Status == types.SessionNone {
		fmt.Fprintln(ctx.Out, "no session opened yet")

		return nil
	}

	fmt.Fprintf(ctx.Out, "session %d '%s' %s [%s, %s) votes=%d remaining=%s\n",
		session.Index, session.Name, session.Status,
		session.Start.Format(time.RFC3339), session.End.Format(time.RFC3339),
		session.Votes, session.Remaining(time.Now()))

	return nil
}

// resultsAction is an action to display the counts and the winner.
//
// - implements node.ActionTemplate
type resultsAction struct{}

// Execute implements node.ActionTemplate. It prints the per-party counts,
// the global total and the winner.
func (resultsAction) Execute(ctx node.Context) error {
	var srvc ordering.Service
	err := ctx.Injector.Resolve(&srvc)
	if err != nil {
		return xerrors.Errorf("injector: %v", err)
	}

	snap := srvc.GetStore()

	parties, err := voting.GetParties(snap)
	if err != nil {
		return xerrors.Errorf("failed to read parties: %v", err)
	}

	tally, err := voting.GetTally(snap)
	if err != nil {
		return xerrors.Errorf("failed to read tally: %v", err)
	}

	for _, party := range parties {
		share := float64(0)
		if tally.Total > 0 {
			share = float64(party.Votes) / float64(tally.Total) * 100
		}

		fmt.Fprintf(ctx.Out, "%s\t%d\t%.1f%%\n", party.ID, party.Votes, share)
	}

	fmt.Fprintf(ctx.Out, "total\t%d\n", tally.Total)

	winner, found, err := voting.GetWinner(snap)
	if err != nil {
		return xerrors.Errorf("failed to compute winner: %v", err)
	}

	if found {
		fmt.Fprintf(ctx.Out, "winner\t%s\n", winner.ID)
	} else {
		fmt.Fprintln(ctx.Out, "winner\tnone yet")
	}

	return nil
}

// submit signs a transaction for the voting contract with the given
// arguments and adds it to the pool.
func submit(ctx node.Context, args ...txn.Arg) error {
	var mgr txn.Manager
	err := ctx.Injector.Resolve(&mgr)
	if err != nil {
		return xerrors.Errorf("injector: %v", err)
	}

	var p pool.Pool
	err = ctx.Injector.Resolve(&p)
	if err != nil {
		return xerrors.Errorf("injector: %v", err)
	}

	err = mgr.Sync()
	if err != nil {
		return xerrors.Errorf("failed to sync manager: %v", err)
	}

	args = append(args, txn.Arg{
		Key:   native.ContractArg,
		Value: []byte(voting.ContractName),
	})

	tx, err := mgr.Make(args...)
	if err != nil {
		return xerrors.Errorf("creating transaction: %v", err)
	}

	err = p.Add(tx)
	if err != nil {
		return xerrors.Errorf("failed to include tx: %v", err)
	}

	votela.Logger.Info().
		Hex("id", tx.GetID()).
		Str("command", string(tx.GetArg(voting.CmdArg))).
		Msg("transaction added to the pool")

	return nil
}
