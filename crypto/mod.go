// Package crypto defines the cryptographic primitives shared by the ledger:
// hash factories, signers for the transaction identities and the matching
// public keys.
//
// A transaction identity is a public key. The voting contract stores the
// textual form of public keys in its on-ledger role records, so public keys
// must marshal deterministically.
package crypto

import (
	"encoding"
	"hash"
)

// HashFactory is an interface to produce a hash digest.
type HashFactory interface {
	New() hash.Hash
}

// RandGenerator is an interface to generate cryptographically secure random
// bytes.
type RandGenerator interface {
	Read(buffer []byte) (int, error)
}

// PublicKey is a public identity that can be used to verify a signature.
type PublicKey interface {
	encoding.BinaryMarshaler
	encoding.TextMarshaler

	// Verify returns nil if the signature matches the message for this public
	// key.
	Verify(msg []byte, signature Signature) error

	// Equal returns true when the other object is the same identity.
	Equal(other interface{}) bool

	String() string
}

// PublicKeyFactory is a factory to decode public keys from their binary form.
type PublicKeyFactory interface {
	// FromBytes returns the public key deserialized from the bytes.
	FromBytes(data []byte) (PublicKey, error)
}

// Signature is a verifiable element for a unique message.
type Signature interface {
	encoding.BinaryMarshaler

	// Equal returns true when the other signature is the same.
	Equal(other Signature) bool
}

// SignatureFactory is a factory to decode signatures from their binary form.
type SignatureFactory interface {
	// FromBytes returns the signature deserialized from the bytes.
	FromBytes(data []byte) (Signature, error)
}

// Signer provides the primitives to sign and verify messages. It can be
// marshaled so that a node keeps the same identity across restarts.
type Signer interface {
	encoding.BinaryMarshaler

	// GetPublicKeyFactory returns a factory that can deserialize public keys
	// of the same scheme as the signer.
	GetPublicKeyFactory() PublicKeyFactory

	// GetSignatureFactory returns a factory that can deserialize signatures
	// of the same scheme as the signer.
	GetSignatureFactory() SignatureFactory

	// GetPublicKey returns the public key of the signer.
	GetPublicKey() PublicKey

	// Sign signs the message and returns the signature, or an error if it
	// cannot sign.
	Sign(msg []byte) (Signature, error)
}
