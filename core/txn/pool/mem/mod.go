// Package mem implements a transaction pool that lives in memory. A node
// fills it with the transactions of its local clients only, nothing is
// shared with other participants.
package mem

import (
	"context"

	"github.com/votela/votela/core/txn"
	"github.com/votela/votela/core/txn/pool"
	"golang.org/x/xerrors"
)

// Pool is an in-memory transaction pool.
//
// - implements pool.Pool
type Pool struct {
	gatherer pool.Gatherer
}

// NewPool creates an empty pool.
func NewPool() *Pool {
	return &Pool{
		gatherer: pool.NewSimpleGatherer(),
	}
}

// Len implements pool.Pool. It returns the number of pending transactions.
func (p *Pool) Len() int {
	return p.gatherer.Len()
}

// Add implements pool.Pool. It appends the transaction to the pending ones.
// A transaction already seen by the pool is refused, even after a removal.
func (p *Pool) Add(tx txn.Transaction) error {
	err := p.gatherer.Add(tx)
	if err != nil {
		return xerrors.Errorf("store failed: %v", err)
	}

	return nil
}

// Remove implements pool.Pool. It removes the transaction from the pending
// ones, which a leader does once the transaction made it into a block.
func (p *Pool) Remove(tx txn.Transaction) error {
	err := p.gatherer.Remove(tx)
	if err != nil {
		return xerrors.Errorf("store failed: %v", err)
	}

	return nil
}

// Gather implements pool.Pool. It blocks until the pool contains enough
// transactions, then returns them in arrival order.
func (p *Pool) Gather(ctx context.Context, cfg pool.Config) []txn.Transaction {
	return p.gatherer.Wait(ctx, cfg)
}

// Close implements pool.Pool. It releases the resources of the gatherer.
func (p *Pool) Close() error {
	p.gatherer.Close()

	return nil
}
