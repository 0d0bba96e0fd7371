// Package execution defines the service to execute a step in a validation
// batch.
package execution

import (
	"time"

	"github.com/votela/votela/core/store"
	"github.com/votela/votela/core/txn"
)

// Step is a context of execution. It allows a contract to read the
// transactions of the same batch that have been executed before the current
// one, alongside the time the sequencer assigned to the batch. The sequencer
// time is the reference clock of the contracts, so that the outcome of a
// command does not depend on the wall clock of the node replaying it.
type Step struct {
	Previous []txn.Transaction

	Current txn.Transaction

	Timestamp time.Time
}

// Result is the result of a transaction execution.
type Result struct {
	// Accepted is the success state of the transaction.
	Accepted bool

	// Message gives a chance to the execution to explain why a transaction
	// has failed.
	Message string
}

// Service is the execution service that defines the primitives to execute a
// transaction.
type Service interface {
	// Execute must apply the transaction to the snapshot and return the
	// result of it.
	Execute(snap store.Snapshot, step Step) (Result, error)
}
