// Package simple implements a validation service that executes the
// transactions of a batch sequentially against a snapshot.
//
// The service keeps one nonce per identity in the snapshot itself, under a
// key derived from the identity. A transaction is executed only when it
// carries the next nonce of its emitter, which protects the ledger against
// replayed ballots.
package simple

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/votela/votela/core/access"
	"github.com/votela/votela/core/execution"
	"github.com/votela/votela/core/store"
	"github.com/votela/votela/core/txn"
	"github.com/votela/votela/core/validation"
	"github.com/votela/votela/crypto"
	"golang.org/x/xerrors"
)

// Service processes batches of transactions and updates the snapshot with
// their writes.
//
// - implements validation.Service
type Service struct {
	execution execution.Service
	fac       validation.ResultFactory
	hashFac   crypto.HashFactory
	clock     func() time.Time
}

// NewService creates a validation service using the given execution service
// and transaction factory.
func NewService(exec execution.Service, f txn.Factory) Service {
	return Service{
		execution: exec,
		fac:       NewResultFactory(f),
		hashFac:   crypto.NewHashFactory(crypto.Sha256),
		clock:     time.Now,
	}
}

// GetFactory implements validation.Service. It returns the result factory.
func (s Service) GetFactory() validation.ResultFactory {
	return s.fac
}

// GetNonce implements validation.Service. It reads the latest nonce in the
// storage for the given identity and returns the next valid nonce.
func (s Service) GetNonce(store store.Readable, ident access.Identity) (uint64, error) {
	if ident == nil {
		return 0, xerrors.New("missing identity in transaction")
	}

	key, err := s.keyFromIdentity(ident)
	if err != nil {
		return 0, xerrors.Errorf("key: %v", err)
	}

	value, err := store.Get(key)
	if err != nil {
		return 0, xerrors.Errorf("store: %v", err)
	}

	if value == nil || len(value) != 8 {
		return 0, nil
	}

	return binary.LittleEndian.Uint64(value) + 1, nil
}

// Validate implements validation.Service. It executes the transactions in
// order against the snapshot and returns one result per transaction. The
// whole batch shares a single timestamp so that time dependent contracts see
// a consistent clock.
func (s Service) Validate(store store.Snapshot, txs []txn.Transaction) (validation.Result, error) {
	results := make([]TransactionResult, len(txs))

	when := s.clock()

	for i, tx := range txs {
		res, err := s.validateTx(store, tx, execution.Step{
			Previous:  txs[:i],
			Current:   tx,
			Timestamp: when,
		})
		if err != nil {
			return nil, xerrors.Errorf("tx %#x: %v", tx.GetID()[:4], err)
		}

		results[i] = res
	}

	res := Result{
		txs: results,
	}

	return res, nil
}

func (s Service) validateTx(store store.Snapshot, tx txn.Transaction, step execution.Step) (TransactionResult, error) {
	expectedNonce, err := s.GetNonce(store, tx.GetIdentity())
	if err != nil {
		return TransactionResult{}, xerrors.Errorf("nonce: %v", err)
	}

	if expectedNonce != tx.GetNonce() {
		res := TransactionResult{
			tx:       tx,
			accepted: false,
			reason:   fmt.Sprintf("nonce is invalid, expected %d, got %d", expectedNonce, tx.GetNonce()),
		}

		return res, nil
	}

	exec, err := s.execution.Execute(store, step)
	if err != nil {
		return TransactionResult{}, xerrors.Errorf("failed to execute tx: %v", err)
	}

	// The nonce is updated even if the transaction is refused as it has been
	// consumed by the batch.
	err = s.set(store, tx.GetIdentity(), tx.GetNonce())
	if err != nil {
		return TransactionResult{}, xerrors.Errorf("failed to set nonce: %v", err)
	}

	res := TransactionResult{
		tx:       tx,
		accepted: exec.Accepted,
		reason:   exec.Message,
	}

	return res, nil
}

func (s Service) set(store store.Snapshot, ident access.Identity, nonce uint64) error {
	key, err := s.keyFromIdentity(ident)
	if err != nil {
		return xerrors.Errorf("key: %v", err)
	}

	buffer := make([]byte, 8)
	binary.LittleEndian.PutUint64(buffer, nonce)

	err = store.Set(key, buffer)
	if err != nil {
		return xerrors.Errorf("store: %v", err)
	}

	return nil
}

// keyFromIdentity returns the key of the nonce for the given identity.
func (s Service) keyFromIdentity(ident access.Identity) ([]byte, error) {
	data, err := ident.MarshalText()
	if err != nil {
		return nil, xerrors.Errorf("failed to marshal identity: %v", err)
	}

	h := s.hashFac.New()
	_, err = h.Write(data)
	if err != nil {
		return nil, xerrors.Errorf("failed to write identity: %v", err)
	}

	return h.Sum(nil), nil
}
