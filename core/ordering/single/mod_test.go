package single

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/votela/votela/core/execution"
	"github.com/votela/votela/core/execution/native"
	"github.com/votela/votela/core/store"
	"github.com/votela/votela/core/store/kv"
	"github.com/votela/votela/core/txn"
	"github.com/votela/votela/core/txn/pool/mem"
	"github.com/votela/votela/core/txn/signed"
	"github.com/votela/votela/core/validation"
	"github.com/votela/votela/core/validation/simple"
	"github.com/votela/votela/crypto"
	"github.com/votela/votela/crypto/bls"
	"golang.org/x/xerrors"
)

func TestService_Basic(t *testing.T) {
	db := makeDB(t)

	exec := native.NewExecution()
	exec.Set("example", testContract{})

	p := mem.NewPool()

	srvc, err := NewService(db, p, simple.NewService(exec, signed.NewTransactionFactory()))
	require.NoError(t, err)

	// 1. Start the ordering service.
	require.NoError(t, srvc.Listen())
	defer srvc.Close()

	// 2. Watch for new events before sending a transaction.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	evts := srvc.Watch(ctx)

	// 3. Send a transaction to the pool. It should be detected by the
	// sequencer and create a new record.
	signer := bls.NewSigner()

	require.NoError(t, p.Add(makeTx(t, signer, 0)))

	evt := <-evts
	require.Equal(t, uint64(0), evt.Index)
	require.Len(t, evt.Transactions, 1)

	accepted, reason := evt.Transactions[0].GetStatus()
	require.True(t, accepted, reason)

	pr, err := srvc.GetProof([]byte("ping"))
	require.NoError(t, err)
	require.Equal(t, []byte("pong"), pr.GetValue())

	value, err := srvc.GetStore().Get([]byte("ping"))
	require.NoError(t, err)
	require.Equal(t, []byte("pong"), value)

	// 4. Send another transaction. This time the record should be appended to
	// the previous one.
	require.NoError(t, p.Add(makeTx(t, signer, 1)))

	evt = <-evts
	require.Equal(t, uint64(1), evt.Index)

	first, err := srvc.GetBlock(0)
	require.NoError(t, err)

	block, err := srvc.GetBlock(1)
	require.NoError(t, err)
	require.Equal(t, uint64(1), block.GetIndex())
	require.Equal(t, first.GetHash(), block.GetFrom())

	_, err = srvc.GetBlock(5)
	require.EqualError(t, err, "unknown block at index 5")
}

func TestService_Listen(t *testing.T) {
	db := makeDB(t)

	p := mem.NewPool()

	srvc, err := NewService(db, p, makeValidation())
	require.NoError(t, err)

	err = srvc.Listen()
	require.NoError(t, err)

	err = srvc.Listen()
	require.EqualError(t, err, "service already started")

	err = srvc.Close()
	require.NoError(t, err)

	err = srvc.Close()
	require.EqualError(t, err, "service not started")

	signer := bls.NewSigner()
	require.NoError(t, p.Add(makeTx(t, signer, 0)))

	srvc, err = NewService(db, p, badValidation{})
	require.NoError(t, err)

	err = srvc.Listen()
	require.NoError(t, err)

	// The round fails so the sequencer loop stops by itself.
	srvc.closed.Wait()
}

func TestService_Load(t *testing.T) {
	db := makeDB(t)

	exec := native.NewExecution()
	exec.Set("example", testContract{})

	p := mem.NewPool()

	srvc, err := NewService(db, p, simple.NewService(exec, signed.NewTransactionFactory()))
	require.NoError(t, err)

	require.NoError(t, srvc.Listen())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	evts := srvc.Watch(ctx)

	signer := bls.NewSigner()
	require.NoError(t, p.Add(makeTx(t, signer, 0)))

	<-evts

	require.NoError(t, srvc.Close())

	// A new service on the same database should resume the chain at the tail.
	srvc, err = NewService(db, mem.NewPool(), simple.NewService(exec, signed.NewTransactionFactory()))
	require.NoError(t, err)
	require.Equal(t, uint64(1), srvc.index)

	block, err := srvc.GetBlock(0)
	require.NoError(t, err)
	require.Equal(t, block.GetHash(), srvc.from)
}

func TestService_GetProof(t *testing.T) {
	db := makeDB(t)

	srvc, err := NewService(db, mem.NewPool(), makeValidation())
	require.NoError(t, err)

	pr, err := srvc.GetProof([]byte("A"))
	require.NoError(t, err)
	require.Equal(t, []byte("A"), pr.GetKey())
	require.Nil(t, pr.GetValue())
}

func TestService_Options(t *testing.T) {
	db := makeDB(t)

	srvc, err := NewService(db, mem.NewPool(), makeValidation(),
		WithInterval(50*time.Millisecond), WithBatchLimit(5))
	require.NoError(t, err)
	require.Equal(t, 50*time.Millisecond, srvc.interval)
	require.Equal(t, 5, srvc.batchLimit)

	// Non-positive values keep the defaults.
	srvc, err = NewService(db, mem.NewPool(), makeValidation(),
		WithInterval(0), WithBatchLimit(-1))
	require.NoError(t, err)
	require.Equal(t, defaultInterval, srvc.interval)
	require.Equal(t, defaultBatchLimit, srvc.batchLimit)
}

func TestService_Gather(t *testing.T) {
	db := makeDB(t)

	p := mem.NewPool()

	srvc, err := NewService(db, p, makeValidation(), WithBatchLimit(1))
	require.NoError(t, err)

	signer := bls.NewSigner()
	require.NoError(t, p.Add(makeTx(t, signer, 0)))
	require.NoError(t, p.Add(makeTx(t, signer, 1)))

	// The batch is capped at the limit, the surplus stays pending.
	txs := srvc.gather(context.Background())
	require.Len(t, txs, 1)
	require.Equal(t, 2, p.Len())

	// An empty pool releases the round after the interval.
	srvc.interval = time.Millisecond
	srvc.pool = mem.NewPool()

	txs = srvc.gather(context.Background())
	require.Nil(t, txs)
}

// -----------------------------------------------------------------------------
// Utility functions

func makeDB(t *testing.T) kv.DB {
	db, err := kv.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })

	return db
}

func makeValidation() validation.Service {
	return simple.NewService(native.NewExecution(), signed.NewTransactionFactory())
}

func makeTx(t *testing.T, signer crypto.Signer, nonce uint64) txn.Transaction {
	tx, err := signed.NewTransaction(nonce, signer.GetPublicKey(),
		signed.WithArg(native.ContractArg, []byte("example")),
		signed.WithArg("key", []byte("ping")),
		signed.WithArg("value", []byte("pong")))
	require.NoError(t, err)

	require.NoError(t, tx.Sign(signer))

	return tx
}

type testContract struct{}

func (testContract) Execute(snap store.Snapshot, step execution.Step) error {
	key := step.Current.GetArg("key")
	value := step.Current.GetArg("value")

	if len(key) == 0 || len(value) == 0 {
		return xerrors.New("key or value is empty")
	}

	return snap.Set(key, value)
}

type badValidation struct {
	validation.Service
}

func (v badValidation) GetFactory() validation.ResultFactory {
	return simple.NewResultFactory(signed.NewTransactionFactory())
}

func (v badValidation) Validate(store.Snapshot, []txn.Transaction) (validation.Result, error) {
	return nil, xerrors.New("oops")
}
