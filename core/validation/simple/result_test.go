package simple

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/votela/votela/core/access"
	"github.com/votela/votela/core/txn"
	"github.com/votela/votela/crypto"
	"github.com/votela/votela/internal/testing/fake"
)

func TestTransactionResult_GetTransaction(t *testing.T) {
	res := NewTransactionResult(newTx(), true, "")

	require.Equal(t, newTx(), res.GetTransaction())
}

func TestTransactionResult_GetStatus(t *testing.T) {
	accepted, reason := NewTransactionResult(newTx(), true, "").GetStatus()
	require.True(t, accepted)
	require.Empty(t, reason)

	accepted, reason = NewTransactionResult(newTx(), false, "session is closed").GetStatus()
	require.False(t, accepted)
	require.Equal(t, "session is closed", reason)
}

func TestTransactionResult_Serialize(t *testing.T) {
	data, err := NewTransactionResult(newTx(), true, "").Serialize()
	require.NoError(t, err)
	require.Equal(t, `{"Transaction":{"Nonce":0},"Accepted":true}`, string(data))

	data, err = NewTransactionResult(newTx(), false, "already voted").Serialize()
	require.NoError(t, err)
	require.Equal(t, `{"Transaction":{"Nonce":0},"Accepted":false,"Reason":"already voted"}`, string(data))

	_, err = NewTransactionResult(fakeTx{err: fake.GetError()}, true, "").Serialize()
	require.EqualError(t, err, fake.Err("failed to serialize tx"))
}

func TestTransactionResultFactory_ResultOf(t *testing.T) {
	fac := NewTransactionResultFactory(fakeTxFac{})

	res, err := fac.ResultOf([]byte(`{"Transaction":{},"Accepted":false,"Reason":"not registered"}`))
	require.NoError(t, err)

	accepted, reason := res.GetStatus()
	require.False(t, accepted)
	require.Equal(t, "not registered", reason)

	_, err = fac.ResultOf([]byte(`[]`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "decoding failed: ")

	fac = NewTransactionResultFactory(fakeTxFac{err: fake.GetError()})
	_, err = fac.ResultOf([]byte(`{}`))
	require.EqualError(t, err, fake.Err("invalid transaction"))
}

func TestResult_GetTransactionResults(t *testing.T) {
	res := NewResult([]TransactionResult{{}, {}, {}})

	require.Len(t, res.GetTransactionResults(), 3)
}

func TestResult_Fingerprint(t *testing.T) {
	res := NewResult([]TransactionResult{
		{tx: fakeTx{}},
		{tx: fakeTx{}, accepted: true},
	})

	buffer := new(bytes.Buffer)

	err := res.Fingerprint(buffer)
	require.NoError(t, err)

	// One status byte follows each transaction.
	require.Equal(t, []byte{0, 1}, buffer.Bytes())

	err = res.Fingerprint(fake.NewBadHash())
	require.EqualError(t, err, fake.Err("couldn't write accepted"))

	res.txs[0].tx = fakeTx{err: fake.GetError()}
	err = res.Fingerprint(buffer)
	require.EqualError(t, err, fake.Err("couldn't fingerprint tx"))
}

func TestResult_Serialize(t *testing.T) {
	data, err := NewResult(nil).Serialize()
	require.NoError(t, err)
	require.Equal(t, `{"Transactions":[]}`, string(data))

	res := NewResult([]TransactionResult{{tx: newTx(), accepted: true}})

	data, err = res.Serialize()
	require.NoError(t, err)
	require.Equal(t, `{"Transactions":[{"Transaction":{"Nonce":0},"Accepted":true}]}`, string(data))

	res = NewResult([]TransactionResult{{tx: fakeTx{err: fake.GetError()}}})
	_, err = res.Serialize()
	require.EqualError(t, err, fake.Err("failed to serialize result: failed to serialize tx"))
}

func TestResultFactory_ResultOf(t *testing.T) {
	fac := NewResultFactory(fakeTxFac{})

	res, err := fac.ResultOf([]byte(`{"Transactions":[{"Transaction":{},"Accepted":true}]}`))
	require.NoError(t, err)
	require.Len(t, res.GetTransactionResults(), 1)

	_, err = fac.ResultOf([]byte(`[]`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "decoding failed: ")

	fac = NewResultFactory(fakeTxFac{err: fake.GetError()})
	_, err = fac.ResultOf([]byte(`{"Transactions":[{}]}`))
	require.EqualError(t, err, fake.Err("invalid result: invalid transaction"))
}

// -----------------------------------------------------------------------------
// Utility functions

type fakeTx struct {
	txn.Transaction

	nonce  uint64
	pubkey crypto.PublicKey
	err    error
}

func newTx() fakeTx {
	return fakeTx{
		pubkey: fake.PublicKey{},
	}
}

func (tx fakeTx) GetID() []byte {
	return []byte{0xa, 0xb, 0xc, 0xd}
}

func (tx fakeTx) GetNonce() uint64 {
	return tx.nonce
}

func (tx fakeTx) GetIdentity() access.Identity {
	return tx.pubkey
}

func (tx fakeTx) Fingerprint(io.Writer) error {
	return tx.err
}

func (tx fakeTx) Serialize() ([]byte, error) {
	return []byte(`{"Nonce":0}`), tx.err
}

type fakeTxFac struct {
	err error
}

func (f fakeTxFac) TransactionOf([]byte) (txn.Transaction, error) {
	return newTx(), f.err
}
