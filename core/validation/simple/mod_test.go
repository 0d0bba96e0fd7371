package simple

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/votela/votela/core/execution"
	"github.com/votela/votela/core/store"
	"github.com/votela/votela/core/txn"
	"github.com/votela/votela/crypto"
	"github.com/votela/votela/internal/testing/fake"
	"golang.org/x/xerrors"
)

func TestService_GetFactory(t *testing.T) {
	srvc := NewService(&fakeExec{}, nil)

	require.NotNil(t, srvc.GetFactory())
}

func TestService_GetNonce(t *testing.T) {
	srvc := NewService(&fakeExec{}, nil)

	// An identity without any transaction starts at zero.
	nonce, err := srvc.GetNonce(fakeSnapshot{}, fake.PublicKey{})
	require.NoError(t, err)
	require.Equal(t, uint64(0), nonce)

	// The stored value is the last consumed nonce, the next valid one
	// follows it.
	nonce, err = srvc.GetNonce(fakeSnapshot{value: []byte{5, 0, 0, 0, 0, 0, 0, 0}}, fake.PublicKey{})
	require.NoError(t, err)
	require.Equal(t, uint64(6), nonce)

	_, err = srvc.GetNonce(fakeSnapshot{}, nil)
	require.EqualError(t, err, "missing identity in transaction")

	_, err = srvc.GetNonce(fakeSnapshot{}, fake.NewBadPublicKey())
	require.EqualError(t, err, fake.Err("key: failed to marshal identity"))

	_, err = srvc.GetNonce(fakeSnapshot{errGet: xerrors.New("oops")}, fake.PublicKey{})
	require.EqualError(t, err, "store: oops")
}

func TestService_Validate(t *testing.T) {
	when := time.Date(2024, time.March, 10, 8, 0, 0, 0, time.UTC)

	exec := &fakeExec{}

	srvc := NewService(exec, nil)
	srvc.clock = func() time.Time { return when }

	res, err := srvc.Validate(fakeSnapshot{}, []txn.Transaction{newTx()})
	require.NoError(t, err)
	require.NotNil(t, res)

	accepted, _ := res.GetTransactionResults()[0].GetStatus()
	require.True(t, accepted)
	require.Equal(t, when, exec.step.Timestamp)

	// A wrong nonce refuses the transaction without executing it.
	tx := newTx()
	tx.nonce = 4

	res, err = srvc.Validate(fakeSnapshot{}, []txn.Transaction{tx})
	require.NoError(t, err)

	accepted, reason := res.GetTransactionResults()[0].GetStatus()
	require.False(t, accepted)
	require.Equal(t, "nonce is invalid, expected 0, got 4", reason)

	_, err = srvc.Validate(fakeSnapshot{}, []txn.Transaction{fakeTx{}})
	require.EqualError(t, err, "tx 0x0a0b0c0d: nonce: missing identity in transaction")

	_, err = srvc.Validate(fakeSnapshot{errSet: xerrors.New("oops")}, []txn.Transaction{newTx()})
	require.EqualError(t, err, "tx 0x0a0b0c0d: failed to set nonce: store: oops")

	srvc.execution = &fakeExec{err: xerrors.New("oops")}
	_, err = srvc.Validate(fakeSnapshot{}, []txn.Transaction{newTx()})
	require.EqualError(t, err, "tx 0x0a0b0c0d: failed to execute tx: oops")
}

func TestService_Set(t *testing.T) {
	srvc := NewService(&fakeExec{}, nil)
	srvc.hashFac = fake.NewHashFactory(fake.NewBadHash())

	err := srvc.set(fakeSnapshot{}, fake.PublicKey{}, 0)
	require.EqualError(t, err, fake.Err("key: failed to write identity"))

	srvc.hashFac = crypto.NewHashFactory(crypto.Sha256)
	err = srvc.set(fakeSnapshot{errSet: xerrors.New("oops")}, fake.PublicKey{}, 0)
	require.EqualError(t, err, "store: oops")
}

// -----------------------------------------------------------------------------
// Utility functions

type fakeExec struct {
	step execution.Step
	err  error
}

func (e *fakeExec) Execute(snap store.Snapshot, step execution.Step) (execution.Result, error) {
	e.step = step

	return execution.Result{Accepted: true}, e.err
}

type fakeSnapshot struct {
	store.Snapshot

	value  []byte
	errGet error
	errSet error
}

func (s fakeSnapshot) Get(key []byte) ([]byte, error) {
	return s.value, s.errGet
}

func (s fakeSnapshot) Set(key, value []byte) error {
	return s.errSet
}
