package pool

import (
	"context"
	"fmt"
	"sync"

	"github.com/votela/votela/core/txn"
	"golang.org/x/xerrors"
)

// KeyMaxLength is the maximum length of a transaction identifier.
const KeyMaxLength = 32

// DefaultCapacity is the maximum number of pending transactions a gatherer
// accepts before refusing new ones.
const DefaultCapacity = 1000

// Key indexes a transaction by its identifier. Identifiers longer than
// KeyMaxLength are refused by the gatherer.
type Key [KeyMaxLength]byte

// String implements fmt.Stringer. It returns a short string representation of
// the key.
func (k Key) String() string {
	return fmt.Sprintf("%#x", k[:4])
}

// Gatherer is the tool shared by the pool implementations to accumulate
// transactions and distribute them to the callers waiting for a batch.
type Gatherer interface {
	// Len returns the number of transactions waiting to be gathered.
	Len() int

	// Add appends the transaction, unless its identifier has already been
	// seen by the gatherer or the gatherer is at capacity.
	Add(tx txn.Transaction) error

	// Remove takes the transaction out and remembers its identifier so
	// that it cannot come back.
	Remove(tx txn.Transaction) error

	// Wait blocks until enough transactions are available and returns
	// them, or returns nil if the context ends.
	Wait(ctx context.Context, cfg Config) []txn.Transaction

	// Close releases the callers currently blocked in Wait.
	Close()
}

// waiter is a pending Wait call: cfg.Min transactions release the channel.
type waiter struct {
	cfg Config
	ch  chan []txn.Transaction
}

// simpleGatherer keeps the pending transactions in arrival order, so that a
// batch executes the transactions of one signer in the order the signer sent
// them, which keeps their nonce sequence valid.
type simpleGatherer struct {
	mu       sync.Mutex
	capacity int
	queue    []waiter
	order    []Key
	set      map[Key]txn.Transaction
	history  map[Key]struct{}
}

// NewSimpleGatherer creates a new gatherer with the default capacity.
func NewSimpleGatherer() Gatherer {
	return &simpleGatherer{
		capacity: DefaultCapacity,
		set:      make(map[Key]txn.Transaction),
		history:  make(map[Key]struct{}),
	}
}

// Len implements pool.Gatherer. It returns the number of transactions
// available in the pool.
func (g *simpleGatherer) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return len(g.set)
}

// Add implements pool.Gatherer. It adds the transaction to the set of
// available transactions and notifies the queue of the new length.
func (g *simpleGatherer) Add(tx txn.Transaction) error {
	key, err := makeKey(tx.GetID())
	if err != nil {
		return err
	}

	g.mu.Lock()

	if g.known(key) {
		g.mu.Unlock()
		return xerrors.Errorf("tx %v already exists", key)
	}

	if len(g.set) >= g.capacity {
		g.mu.Unlock()
		return xerrors.Errorf("pool is full (%d txs)", g.capacity)
	}

	g.set[key] = tx
	g.order = append(g.order, key)

	g.notify(len(g.set))

	g.mu.Unlock()

	return nil
}

// Remove implements pool.Gatherer. It removes the transaction from the set of
// available transactions and adds the key to the history to prevent the
// transaction from coming back.
func (g *simpleGatherer) Remove(tx txn.Transaction) error {
	key, err := makeKey(tx.GetID())
	if err != nil {
		return err
	}

	g.mu.Lock()

	_, found := g.set[key]
	if !found {
		g.mu.Unlock()
		return xerrors.Errorf("transaction %v not found", key)
	}

	delete(g.set, key)

	for i, other := range g.order {
		if other == key {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}

	// Keep an history of transactions to prevent duplicates to be
	// indefinitely added to the pool.
	g.history[key] = struct{}{}

	g.mu.Unlock()

	return nil
}

// Wait implements pool.Gatherer. It waits for enough transactions before
// returning the list, or it returns nil if the context ends.
func (g *simpleGatherer) Wait(ctx context.Context, cfg Config) []txn.Transaction {
	g.mu.Lock()

	if len(g.set) >= cfg.Min {
		txs := g.snapshot()
		g.mu.Unlock()

		return txs
	}

	ch := make(chan []txn.Transaction, 1)

	g.queue = append(g.queue, waiter{cfg: cfg, ch: ch})

	g.mu.Unlock()

	if cfg.Callback != nil {
		cfg.Callback()
	}

	select {
	case txs := <-ch:
		return txs
	case <-ctx.Done():
		g.drop(ch)
		return nil
	}
}

// drop removes the waiter of the given channel, so that a wait bounded by a
// deadline does not leave a stale entry in the queue.
func (g *simpleGatherer) drop(ch chan []txn.Transaction) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for i, w := range g.queue {
		if w.ch == ch {
			g.queue = append(g.queue[:i], g.queue[i+1:]...)
			return
		}
	}
}

// Close implements pool.Gatherer. It closes the operations and cleans the
// resources.
func (g *simpleGatherer) Close() {
	g.mu.Lock()

	for _, w := range g.queue {
		close(w.ch)
	}

	g.queue = nil
	g.order = nil
	g.set = make(map[Key]txn.Transaction)
	g.history = make(map[Key]struct{})

	g.mu.Unlock()
}

// notify releases the waiters that are waiting for at most the given number
// of transactions and removes them from the queue. It must be called with the
// mutex held.
func (g *simpleGatherer) notify(length int) {
	// The loop goes backwards so that a served waiter can be removed in
	// place.
	for i := len(g.queue) - 1; i >= 0; i-- {
		w := g.queue[i]

		if w.cfg.Min <= length {
			w.ch <- g.snapshot()
			g.queue = append(g.queue[:i], g.queue[i+1:]...)
		}
	}
}

// known must be called with the mutex held.
func (g *simpleGatherer) known(key Key) bool {
	_, replayed := g.history[key]
	_, pending := g.set[key]

	return replayed || pending
}

// makeKey maps a transaction identifier to its key in the gatherer.
func makeKey(id []byte) (Key, error) {
	key := Key{}

	if len(id) > KeyMaxLength {
		return key, xerrors.Errorf("tx identifier is too long: %d > %d", len(id), KeyMaxLength)
	}

	copy(key[:], id)

	return key, nil
}

// snapshot returns the pending transactions in arrival order. It must be
// called with the mutex held.
func (g *simpleGatherer) snapshot() []txn.Transaction {
	txs := make([]txn.Transaction, 0, len(g.set))
	for _, key := range g.order {
		txs = append(txs, g.set[key])
	}

	return txs
}
