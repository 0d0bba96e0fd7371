// Package txn defines the abstraction of transactions.
//
// A transaction is the input of a contract execution. It is uniquely
// identified by a digest and carries the identity of its emitter, which the
// contracts use for access control. The nonce orders the transactions of one
// identity.
//
// The manager tracks the nonce so that the clients do not have to.
package txn

import (
	"io"

	"github.com/votela/votela/core/access"
)

// Transaction is what triggers a contract execution when it is passed as the
// input.
type Transaction interface {
	// Serialize returns the wire representation of the transaction.
	Serialize() ([]byte, error)

	// Fingerprint writes a deterministic binary representation of the
	// transaction into the writer.
	Fingerprint(w io.Writer) error

	// GetID returns the unique identifier for the transaction.
	GetID() []byte

	// GetNonce returns the sequence number of the transaction for the
	// identity that created it.
	GetNonce() uint64

	// GetIdentity returns the identity that created the transaction.
	GetIdentity() access.Identity

	// GetArg is a getter for the arguments of the transaction.
	GetArg(key string) []byte

	// GetArgs returns the list of the argument keys.
	GetArgs() []string
}

// Factory is the definition of a factory to deserialize transactions.
type Factory interface {
	TransactionOf(data []byte) (Transaction, error)
}

// Arg is a generic argument that can be stored in a transaction.
type Arg struct {
	Key   string
	Value []byte
}

// Manager creates transactions on behalf of a signer and keeps their nonce
// sequence valid.
type Manager interface {
	Make(args ...Arg) (Transaction, error)

	Sync() error
}
