package pool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/votela/votela/core/txn"
)

func TestSimpleGatherer_Add(t *testing.T) {
	gatherer := NewSimpleGatherer().(*simpleGatherer)

	err := gatherer.Add(fakeTx{})
	require.NoError(t, err)

	err = gatherer.Add(fakeTx{id: make([]byte, 33)})
	require.EqualError(t, err, "tx identifier is too long: 33 > 32")

	err = gatherer.Add(fakeTx{})
	require.EqualError(t, err, "tx 0x00000000 already exists")

	// A transaction that went through the pool once does not come back.
	require.NoError(t, gatherer.Remove(fakeTx{}))
	err = gatherer.Add(fakeTx{})
	require.EqualError(t, err, "tx 0x00000000 already exists")
}

func TestSimpleGatherer_Add_Capacity(t *testing.T) {
	gatherer := &simpleGatherer{
		capacity: 2,
		set:      make(map[Key]txn.Transaction),
		history:  make(map[Key]struct{}),
	}

	require.NoError(t, gatherer.Add(fakeTx{id: []byte{1}}))
	require.NoError(t, gatherer.Add(fakeTx{id: []byte{2}}))

	err := gatherer.Add(fakeTx{id: []byte{3}})
	require.EqualError(t, err, "pool is full (2 txs)")

	// A removal frees a slot but the freed identifier stays burnt.
	require.NoError(t, gatherer.Remove(fakeTx{id: []byte{1}}))
	require.NoError(t, gatherer.Add(fakeTx{id: []byte{3}}))
}

func TestSimpleGatherer_Remove(t *testing.T) {
	gatherer := NewSimpleGatherer().(*simpleGatherer)

	require.NoError(t, gatherer.Add(fakeTx{}))

	err := gatherer.Remove(fakeTx{})
	require.NoError(t, err)
	require.Empty(t, gatherer.order)

	err = gatherer.Remove(fakeTx{})
	require.EqualError(t, err, "transaction 0x00000000 not found")

	err = gatherer.Remove(fakeTx{id: make([]byte, 33)})
	require.EqualError(t, err, "tx identifier is too long: 33 > 32")
}

func TestSimpleGatherer_Wait(t *testing.T) {
	gatherer := NewSimpleGatherer().(*simpleGatherer)

	ctx := context.Background()

	cb := func() {
		gatherer.mu.Lock()
		require.Len(t, gatherer.queue, 1)
		gatherer.mu.Unlock()

		require.NoError(t, gatherer.Add(fakeTx{}))
	}

	txs := gatherer.Wait(ctx, Config{Min: 1, Callback: cb})
	require.Len(t, txs, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	txs = gatherer.Wait(ctx, Config{Min: 1})
	require.Len(t, txs, 1)

	txs = gatherer.Wait(ctx, Config{Min: 2})
	require.Nil(t, txs)

	// The aborted wait left no stale waiter behind.
	gatherer.mu.Lock()
	require.Empty(t, gatherer.queue)
	gatherer.mu.Unlock()
}

func TestSimpleGatherer_ArrivalOrder_Wait(t *testing.T) {
	gatherer := NewSimpleGatherer().(*simpleGatherer)

	first := fakeTx{id: []byte{3}}
	second := fakeTx{id: []byte{1}}
	third := fakeTx{id: []byte{2}}

	require.NoError(t, gatherer.Add(first))
	require.NoError(t, gatherer.Add(second))
	require.NoError(t, gatherer.Add(third))

	txs := gatherer.Wait(context.Background(), Config{Min: 3})
	require.Equal(t, []txn.Transaction{first, second, third}, txs)

	// The order survives a removal in the middle.
	require.NoError(t, gatherer.Remove(second))

	txs = gatherer.Wait(context.Background(), Config{Min: 2})
	require.Equal(t, []txn.Transaction{first, third}, txs)
}

func TestSimpleGatherer_Close(t *testing.T) {
	gatherer := NewSimpleGatherer().(*simpleGatherer)

	require.NoError(t, gatherer.Add(fakeTx{}))
	gatherer.queue = append(gatherer.queue, waiter{ch: make(chan []txn.Transaction)})

	gatherer.Close()

	require.Zero(t, gatherer.Len())
	require.Empty(t, gatherer.order)
	require.Nil(t, gatherer.queue)
}

// Utility functions -----------------------------------------------------------

type fakeTx struct {
	txn.Transaction

	id []byte
}

func (tx fakeTx) GetID() []byte {
	return tx.id
}
