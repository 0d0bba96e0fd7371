// Package ordering defines the interface of the ordering service. The
// high-level purpose of this service is to order the transactions from the
// pool and deliver the resulting state to the observers.
//
// Documentation Last Review: 03.04.2026
//
package ordering

import (
	"context"

	"github.com/votela/votela/core/store"
	"github.com/votela/votela/core/validation"
)

// Proof is the combination of a key and its value as stored by the service at
// the time the proof is created.
type Proof interface {
	// GetKey returns the key of the proof.
	GetKey() []byte

	// GetValue returns the value of the key, or nil if it is not set.
	GetValue() []byte
}

// Event is the type of event sent to the observers when a new batch of
// transactions has been processed.
type Event struct {
	Index        uint64
	Transactions []validation.TransactionResult
}

// Service is the interface of an ordering service. It provides the primitives
// to order transactions from a pool and access the resulting state.
type Service interface {
	// GetProof returns a proof of the value of the given key.
	GetProof(key []byte) (Proof, error)

	// GetStore returns the read-only store of the service.
	GetStore() store.Readable

	// Watch returns a channel populated with the events of the service. The
	// channel is closed when the context ends.
	Watch(ctx context.Context) <-chan Event

	// Close closes the service and cleans the resources.
	Close() error
}
