package evm

import (
	"context"
	"math/big"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/votela/votela/contracts/voting"
	"github.com/votela/votela/contracts/voting/types"
	"github.com/votela/votela/core/execution/native"
	"github.com/votela/votela/core/ordering"
	"github.com/votela/votela/core/store/kv"
	"github.com/votela/votela/core/txn"
	"github.com/votela/votela/core/txn/signed"
	"github.com/votela/votela/core/validation"
	"github.com/votela/votela/core/validation/simple"
	"github.com/votela/votela/internal/testing/fake"
	"github.com/votela/votela/registry"
	"golang.org/x/xerrors"
)

func TestMirror_Listen(t *testing.T) {
	reg := makeTestRegistry(t)

	mirror, node := makeTestMirror(t, reg, false)

	hash := makeHash()

	events := make(chan ordering.Event, 1)
	events <- ordering.Event{
		Index: 1,
		Transactions: []validation.TransactionResult{
			simple.NewTransactionResult(makeCastTx(t, hash, "orange"), true, ""),
		},
	}

	close(events)

	mirror.ordering = fakeOrdering{events: events}
	mirror.Listen(context.Background())

	records, err := reg.MirrorRecords(0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, registry.MirrorConfirmed, records[0].Status)
	require.Equal(t, hash.String(), records[0].VoterHash)
	require.Equal(t, "orange", records[0].Party)
	require.Equal(t, node.sent[0].Hash().Hex(), records[0].TxHash)
	require.Equal(t, uint64(21000), records[0].GasUsed)

	entries, err := reg.AuditTrail(1)
	require.NoError(t, err)
	require.Equal(t, registry.ActionMirrorSubmitted, entries[0].Action)
}

func TestMirror_Listen_AlreadyVoted(t *testing.T) {
	reg := makeTestRegistry(t)

	mirror, node := makeTestMirror(t, reg, true)

	events := make(chan ordering.Event, 1)
	events <- ordering.Event{
		Index: 1,
		Transactions: []validation.TransactionResult{
			simple.NewTransactionResult(makeCastTx(t, makeHash(), "orange"), true, ""),
		},
	}

	close(events)

	mirror.ordering = fakeOrdering{events: events}
	mirror.Listen(context.Background())

	records, err := reg.MirrorRecords(0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, registry.MirrorConfirmed, records[0].Status)
	require.Empty(t, records[0].TxHash)
	require.Empty(t, node.sent)
}

func TestMirror_CatchUp(t *testing.T) {
	reg := makeTestRegistry(t)

	_, err := reg.AppendMirror(makeHash().String(), "orange")
	require.NoError(t, err)

	mirror, _ := makeTestMirror(t, reg, false)
	mirror.Listen(context.Background())

	pending, err := reg.PendingMirrors()
	require.NoError(t, err)
	require.Empty(t, pending)

	records, err := reg.MirrorRecords(0)
	require.NoError(t, err)
	require.Equal(t, registry.MirrorConfirmed, records[0].Status)
}

func TestMirror_Submit_ChainDown(t *testing.T) {
	reg := makeTestRegistry(t)

	_, err := reg.AppendMirror(makeHash().String(), "orange")
	require.NoError(t, err)

	mirror, _ := makeTestMirror(t, reg, false)
	mirror.client.node = &fakeNode{callErr: xerrors.New("connection refused")}

	mirror.Listen(context.Background())

	records, err := reg.MirrorRecords(0)
	require.NoError(t, err)
	require.Equal(t, registry.MirrorFailed, records[0].Status)
	require.Contains(t, records[0].Error, "connection refused")

	entries, err := reg.AuditTrail(1)
	require.NoError(t, err)
	require.Equal(t, registry.ActionMirrorFailed, entries[0].Action)
}

func TestMirror_Submit_Malformed(t *testing.T) {
	reg := makeTestRegistry(t)

	_, err := reg.AppendMirror("zzz", "orange")
	require.NoError(t, err)

	mirror, _ := makeTestMirror(t, reg, false)
	mirror.Listen(context.Background())

	records, err := reg.MirrorRecords(0)
	require.NoError(t, err)
	require.Equal(t, registry.MirrorFailed, records[0].Status)
	require.Contains(t, records[0].Error, "malformed record")
}

func TestMirror_Interrupted(t *testing.T) {
	reg := makeTestRegistry(t)

	_, err := reg.AppendMirror(makeHash().String(), "orange")
	require.NoError(t, err)

	mirror, _ := makeTestMirror(t, reg, false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	mirror.Listen(ctx)

	pending, err := reg.PendingMirrors()
	require.NoError(t, err)
	require.Len(t, pending, 1)
}

// -----------------------------------------------------------------------------
// Utility functions

func makeTestRegistry(t *testing.T) *registry.Registry {
	t.Helper()

	db, err := kv.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })

	return registry.NewRegistry(db, "salt")
}

func makeTestMirror(t *testing.T, reg *registry.Registry, voted bool) (*Mirror, *fakeNode) {
	t.Helper()

	client := makeTestClient(t, &fakeNode{})

	node := &fakeNode{
		estimate: 21000,
		gasPrice: big.NewInt(1),
		receipt:  makeReceipt(),
		callRes: map[string][]byte{
			selector(client, "hasVoted"): packOutputs(t, client, "hasVoted", voted),
		},
	}

	client.node = node

	events := make(chan ordering.Event)
	close(events)

	mirror := NewMirror(reg, client, fakeOrdering{events: events})
	mirror.retryBase = time.Millisecond
	mirror.retryCap = time.Millisecond
	mirror.retryMax = 1

	return mirror, node
}

func makeCastTx(t *testing.T, hash types.VoterHash, party string) txn.Transaction {
	tx, err := signed.NewTransaction(0, fake.PublicKey{},
		signed.WithArg(native.ContractArg, []byte(voting.ContractName)),
		signed.WithArg(voting.CmdArg, []byte(voting.CmdCast)),
		signed.WithArg(voting.HashArg, []byte(hash.String())),
		signed.WithArg(voting.PartyArg, []byte(party)))
	require.NoError(t, err)

	return tx
}

type fakeOrdering struct {
	ordering.Service

	events chan ordering.Event
}

func (f fakeOrdering) Watch(ctx context.Context) <-chan ordering.Event {
	return f.events
}
