package single

import (
	"github.com/votela/votela/core/store"
	"github.com/votela/votela/core/store/kv"
	"golang.org/x/xerrors"
)

// bucketSnapshot gives a snapshot access to a database bucket. The writes are
// staged by the enclosing transaction until it commits.
//
// - implements store.Snapshot
type bucketSnapshot struct {
	bucket kv.Bucket
}

func newSnapshot(bucket kv.Bucket) store.Snapshot {
	return bucketSnapshot{bucket: bucket}
}

// Get implements store.Readable. It returns a copy of the value associated to
// the key, or nil if it is not set.
func (s bucketSnapshot) Get(key []byte) ([]byte, error) {
	value := s.bucket.Get(key)
	if value == nil {
		return nil, nil
	}

	return append([]byte{}, value...), nil
}

// Set implements store.Writable. It sets the value for the key.
func (s bucketSnapshot) Set(key, value []byte) error {
	return s.bucket.Set(key, value)
}

// Delete implements store.Writable. It deletes the key from the snapshot.
func (s bucketSnapshot) Delete(key []byte) error {
	return s.bucket.Delete(key)
}

// storeReader reads the latest committed state, using a read-only transaction
// for each call.
//
// - implements store.Readable
type storeReader struct {
	db kv.DB
}

// Get implements store.Readable. It returns a copy of the value associated to
// the key, or nil if it is not set.
func (r storeReader) Get(key []byte) ([]byte, error) {
	var value []byte

	err := r.db.View(func(tx kv.ReadableTx) error {
		bucket := tx.GetBucket(stateBucket)
		if bucket == nil {
			return nil
		}

		v := bucket.Get(key)
		if v != nil {
			value = append([]byte{}, v...)
		}

		return nil
	})
	if err != nil {
		return nil, xerrors.Errorf("failed to read key: %v", err)
	}

	return value, nil
}
