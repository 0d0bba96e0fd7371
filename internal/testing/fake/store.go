package fake

import "github.com/votela/votela/core/store"

// InMemorySnapshot is a fake implementation of a store snapshot on top of a
// map. The Err fields force the outcome of the operations, so that a test can
// observe how a component reacts to a failing store.
//
// - implements store.Snapshot
type InMemorySnapshot struct {
	store.Snapshot

	values    map[string][]byte
	ErrRead   error
	ErrWrite  error
	ErrDelete error
}

// NewSnapshot creates a new empty snapshot.
func NewSnapshot() *InMemorySnapshot {
	return &InMemorySnapshot{
		values: make(map[string][]byte),
	}
}

// NewBadSnapshot creates a new empty snapshot that will always return an
// error.
func NewBadSnapshot() *InMemorySnapshot {
	snap := NewSnapshot()
	snap.ErrRead = fakeErr
	snap.ErrWrite = fakeErr
	snap.ErrDelete = fakeErr

	return snap
}

// Get implements store.Readable. It returns the value stored for the key,
// alongside ErrRead.
func (snap *InMemorySnapshot) Get(key []byte) ([]byte, error) {
	return snap.values[string(key)], snap.ErrRead
}

// Set implements store.Writable. It stores the value even when ErrWrite is
// set, so that a test can assert what would have been written.
func (snap *InMemorySnapshot) Set(key, value []byte) error {
	snap.values[string(key)] = value

	return snap.ErrWrite
}

// Delete implements store.Writable. It removes the key and returns ErrDelete.
func (snap *InMemorySnapshot) Delete(key []byte) error {
	delete(snap.values, string(key))

	return snap.ErrDelete
}
