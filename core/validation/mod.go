// Package validation defines a validation service that will apply a batch of
// transactions to a store snapshot.
//
// Documentation Last Review: 03.04.2026
//
package validation

import (
	"io"

	"github.com/votela/votela/core/access"
	"github.com/votela/votela/core/store"
	"github.com/votela/votela/core/txn"
)

// TransactionResult is the result of a transaction execution.
type TransactionResult interface {
	// Serialize returns the wire representation of the result.
	Serialize() ([]byte, error)

	// GetTransaction returns the transaction associated to the result.
	GetTransaction() txn.Transaction

	// GetStatus returns the status of the execution. It returns true if the
	// transaction has been accepted, otherwise false with a message to explain
	// the reason.
	GetStatus() (bool, string)
}

// Result is the result of a validation.
type Result interface {
	// Serialize returns the wire representation of the result.
	Serialize() ([]byte, error)

	// Fingerprint writes a deterministic binary representation of the result
	// into the writer.
	Fingerprint(io.Writer) error

	// GetTransactionResults returns the results.
	GetTransactionResults() []TransactionResult
}

// ResultFactory is the factory to deserialize results.
type ResultFactory interface {
	ResultOf(data []byte) (Result, error)
}

// Service is the validation service that will process a batch of transactions
// into a result that can be used as a payload of a block.
type Service interface {
	// GetFactory returns the result factory.
	GetFactory() ResultFactory

	// GetNonce returns the nonce to use for the next transaction of the given
	// identity. The value is specific to the snapshot, which means it can
	// become invalid if the snapshot is not up to date.
	GetNonce(store.Readable, access.Identity) (uint64, error)

	// Validate processes a batch of transactions and returns the result.
	Validate(store.Snapshot, []txn.Transaction) (Result, error)
}
