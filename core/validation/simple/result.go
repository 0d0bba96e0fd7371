// This file contains the result types produced by the service, both for a
// single transaction and for the whole batch.

package simple

import (
	"encoding/json"
	"io"

	"github.com/votela/votela/core/txn"
	"github.com/votela/votela/core/validation"
	"golang.org/x/xerrors"
)

// TransactionResult ties a transaction to the outcome of its processing. A
// refused transaction keeps the reason so that the emitter can learn why the
// ledger dropped it.
//
// - implements validation.TransactionResult
type TransactionResult struct {
	tx       txn.Transaction
	accepted bool
	reason   string
}

// NewTransactionResult creates the result of a processed transaction.
func NewTransactionResult(tx txn.Transaction, accepted bool, reason string) TransactionResult {
	return TransactionResult{
		tx:       tx,
		accepted: accepted,
		reason:   reason,
	}
}

// GetTransaction implements validation.TransactionResult. It returns the
// processed transaction.
func (res TransactionResult) GetTransaction() txn.Transaction {
	return res.tx
}

// GetStatus implements validation.TransactionResult. It returns whether the
// transaction has been accepted, and the reason when it has not.
func (res TransactionResult) GetStatus() (bool, string) {
	return res.accepted, res.reason
}

// txResultJSON is the JSON message of a transaction result.
type txResultJSON struct {
	Transaction json.RawMessage
	Accepted    bool
	Reason      string `json:",omitempty"`
}

// Serialize implements validation.TransactionResult. It returns the JSON
// encoding of the result.
func (res TransactionResult) Serialize() ([]byte, error) {
	tx, err := res.tx.Serialize()
	if err != nil {
		return nil, xerrors.Errorf("failed to serialize tx: %v", err)
	}

	data, err := json.Marshal(txResultJSON{
		Transaction: tx,
		Accepted:    res.accepted,
		Reason:      res.reason,
	})
	if err != nil {
		return nil, xerrors.Errorf("encoding failed: %v", err)
	}

	return data, nil
}

// TransactionResultFactory decodes transaction results. The transaction
// factory decides which transaction implementation is acceptable.
type TransactionResultFactory struct {
	fac txn.Factory
}

// NewTransactionResultFactory creates a factory for transaction results.
func NewTransactionResultFactory(f txn.Factory) TransactionResultFactory {
	return TransactionResultFactory{
		fac: f,
	}
}

// ResultOf returns the transaction result decoded from the data, or an error
// when the message or the embedded transaction is malformed.
func (f TransactionResultFactory) ResultOf(data []byte) (validation.TransactionResult, error) {
	m := txResultJSON{}

	err := json.Unmarshal(data, &m)
	if err != nil {
		return nil, xerrors.Errorf("decoding failed: %v", err)
	}

	tx, err := f.fac.TransactionOf(m.Transaction)
	if err != nil {
		return nil, xerrors.Errorf("invalid transaction: %v", err)
	}

	return TransactionResult{
		tx:       tx,
		accepted: m.Accepted,
		reason:   m.Reason,
	}, nil
}

// Result gathers the results of a batch in the order the service processed
// the transactions.
//
// - implements validation.Result
type Result struct {
	txs []TransactionResult
}

// NewResult creates a result from a list of transaction results.
func NewResult(results []TransactionResult) Result {
	return Result{
		txs: results,
	}
}

// GetTransactionResults implements validation.Result. It returns the results
// of the individual transactions.
func (r Result) GetTransactionResults() []validation.TransactionResult {
	out := make([]validation.TransactionResult, len(r.txs))
	for i, txRes := range r.txs {
		out[i] = txRes
	}

	return out
}

// Fingerprint implements validation.Result. It writes a deterministic binary
// form of the batch, including the status of each transaction so that two
// nodes disagreeing on an outcome produce different digests.
func (r Result) Fingerprint(w io.Writer) error {
	for _, txRes := range r.txs {
		err := txRes.tx.Fingerprint(w)
		if err != nil {
			return xerrors.Errorf("couldn't fingerprint tx: %v", err)
		}

		status := []byte{0}
		if txRes.accepted {
			status[0] = 1
		}

		_, err = w.Write(status)
		if err != nil {
			return xerrors.Errorf("couldn't write accepted: %v", err)
		}
	}

	return nil
}

// resultJSON is the JSON message of a batch result.
type resultJSON struct {
	Transactions []json.RawMessage
}

// Serialize implements validation.Result. It returns the JSON encoding of
// the batch.
func (r Result) Serialize() ([]byte, error) {
	m := resultJSON{
		Transactions: make([]json.RawMessage, len(r.txs)),
	}

	for i, txRes := range r.txs {
		data, err := txRes.Serialize()
		if err != nil {
			return nil, xerrors.Errorf("failed to serialize result: %v", err)
		}

		m.Transactions[i] = data
	}

	data, err := json.Marshal(m)
	if err != nil {
		return nil, xerrors.Errorf("encoding failed: %v", err)
	}

	return data, nil
}

// ResultFactory decodes batch results.
//
// - implements validation.ResultFactory
type ResultFactory struct {
	fac TransactionResultFactory
}

// NewResultFactory creates a factory for batch results.
func NewResultFactory(f txn.Factory) ResultFactory {
	return ResultFactory{
		fac: NewTransactionResultFactory(f),
	}
}

// ResultOf implements validation.ResultFactory. It returns the batch result
// decoded from the data.
func (f ResultFactory) ResultOf(data []byte) (validation.Result, error) {
	m := resultJSON{}

	err := json.Unmarshal(data, &m)
	if err != nil {
		return nil, xerrors.Errorf("decoding failed: %v", err)
	}

	res := Result{
		txs: make([]TransactionResult, len(m.Transactions)),
	}

	for i, raw := range m.Transactions {
		txRes, err := f.fac.ResultOf(raw)
		if err != nil {
			return nil, xerrors.Errorf("invalid result: %v", err)
		}

		res.txs[i] = txRes.(TransactionResult)
	}

	return res, nil
}
