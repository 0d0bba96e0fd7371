package single

import "golang.org/x/xerrors"

// Proof is a proof of the value stored under a key at the time it was read.
//
// - implements ordering.Proof
type Proof struct {
	key   []byte
	value []byte
}

// NewProof creates a new proof for the key and its value.
func NewProof(key, value []byte) Proof {
	return Proof{
		key:   key,
		value: value,
	}
}

// GetKey implements ordering.Proof. It returns the key of the proof.
func (p Proof) GetKey() []byte {
	return p.key
}

// GetValue implements ordering.Proof. It returns the value of the key, or nil
// if it is not set.
func (p Proof) GetValue() []byte {
	return p.value
}

// Verify returns an error when the proof does not hold a value, which means
// the key does not exist in the state.
func (p Proof) Verify() error {
	if p.value == nil {
		return xerrors.Errorf("key %#x does not exist", p.key)
	}

	return nil
}
