// Package pool defines the interface for a transaction pool. It will hold the
// transactions of the clients until an ordering service reads them.
//
// Documentation Last Review: 03.04.2026
//
package pool

import (
	"context"

	"github.com/votela/votela/core/txn"
)

// Config is the set of parameters that allows one to change the behavior of
// the gathering process.
type Config struct {
	// Min indicates what is minimum number of transactions that is required
	// before returning.
	Min int

	// Callback is a function called when the gathering process is done.
	Callback func()
}

// Pool is the maintainer of the list of transactions.
type Pool interface {
	// Len returns the length of the pool.
	Len() int

	// Add adds the transaction to the pool.
	Add(txn.Transaction) error

	// Remove removes the transaction from the pool.
	Remove(txn.Transaction) error

	// Gather waits for the pool to have at least the minimum amount of
	// transactions before returning the list, or the context ends.
	Gather(ctx context.Context, cfg Config) []txn.Transaction

	// Close closes the pool and cleans the resources.
	Close() error
}
