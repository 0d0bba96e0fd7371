package controller

import (
	"context"
	"fmt"
	"time"

	"github.com/votela/votela/cli/node"
	"github.com/votela/votela/contracts/voting"
	"github.com/votela/votela/core/ordering"
	"github.com/votela/votela/evm"
	"github.com/votela/votela/registry"
	"golang.org/x/xerrors"
)

const queryTimeout = 10 * time.Second

// statusAction compares the counters of the registry, of the ledger and of
// the mirror contract.
//
// - implements node.ActionTemplate
type statusAction struct{}

// Execute implements node.ActionTemplate. It prints the counters side by
// side so that a disagreement is visible at a glance.
func (a statusAction) Execute(ctx node.Context) error {
	var client *evm.Client
	err := ctx.Injector.Resolve(&client)
	if err != nil {
		return xerrors.Errorf("injector: %v", err)
	}

	var srvc ordering.Service
	err = ctx.Injector.Resolve(&srvc)
	if err != nil {
		return xerrors.Errorf("injector: %v", err)
	}

	var reg *registry.Registry
	err = ctx.Injector.Resolve(&reg)
	if err != nil {
		return xerrors.Errorf("injector: %v", err)
	}

	qctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	active, err := client.IsVotingActive(qctx)
	if err != nil {
		return xerrors.Errorf("failed to read the contract: %v", err)
	}

	total, err := client.TotalVotes(qctx)
	if err != nil {
		return xerrors.Errorf("failed to read the contract: %v", err)
	}

	tally, err := voting.GetTally(srvc.GetStore())
	if err != nil {
		return xerrors.Errorf("failed to read the ledger: %v", err)
	}

	stats, err := reg.Stats()
	if err != nil {
		return xerrors.Errorf("failed to read the registry: %v", err)
	}

	fmt.Fprintf(ctx.Out, "contract %s\n", client.Address())
	fmt.Fprintf(ctx.Out, "active %t\n", active)
	fmt.Fprintf(ctx.Out, "total registry=%d ledger=%d mirror=%d\n",
		stats.Voted, tally.Total, total)

	if uint64(stats.Voted) != tally.Total {
		fmt.Fprintln(ctx.Out, "warning: the registry disagrees with the ledger")
	}

	parties, err := voting.GetParties(srvc.GetStore())
	if err != nil {
		return xerrors.Errorf("failed to read the ledger: %v", err)
	}

	for _, party := range parties {
		count, err := client.VoteCount(qctx, party.ID)
		if err != nil {
			return xerrors.Errorf("failed to read the contract: %v", err)
		}

		fmt.Fprintf(ctx.Out, "%s\tledger=%d\tmirror=%d\n", party.ID, party.Votes, count)
	}

	return nil
}

// journalAction displays the submission journal.
//
// - implements node.ActionTemplate
type journalAction struct{}

// Execute implements node.ActionTemplate. It prints one record per line,
// newest first.
func (a journalAction) Execute(ctx node.Context) error {
	var reg *registry.Registry
	err := ctx.Injector.Resolve(&reg)
	if err != nil {
		return xerrors.Errorf("injector: %v", err)
	}

	records, err := reg.MirrorRecords(ctx.Flags.Int("limit"))
	if err != nil {
		return xerrors.Errorf("failed to read the journal: %v", err)
	}

	for _, rec := range records {
		fmt.Fprintf(ctx.Out, "%d\t%s\t%s\t%s", rec.Seq, rec.Status, rec.VoterHash, rec.Party)

		if rec.TxHash != "" {
			fmt.Fprintf(ctx.Out, "\t%s", rec.TxHash)
		}

		if rec.Error != "" {
			fmt.Fprintf(ctx.Out, "\t%s", rec.Error)
		}

		fmt.Fprintln(ctx.Out)
	}

	return nil
}
