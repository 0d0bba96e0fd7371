package fake

import (
	"github.com/votela/votela/crypto"
)

// PublicKey is a fake implementation of a public key.
//
// - implements crypto.PublicKey
type PublicKey struct {
	err       error
	verifyErr error
}

// NewBadPublicKey returns a new fake public key that returns an error when
// appropriate.
func NewBadPublicKey() PublicKey {
	return PublicKey{err: fakeErr, verifyErr: fakeErr}
}

// NewInvalidPublicKey returns a fake public key that refuses signatures.
func NewInvalidPublicKey() PublicKey {
	return PublicKey{verifyErr: fakeErr}
}

// Verify implements crypto.PublicKey.
func (pk PublicKey) Verify([]byte, crypto.Signature) error {
	return pk.verifyErr
}

// Equal implements crypto.PublicKey.
func (pk PublicKey) Equal(other interface{}) bool {
	_, ok := other.(PublicKey)
	return ok
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (pk PublicKey) MarshalBinary() ([]byte, error) {
	return []byte("PK"), pk.err
}

// MarshalText implements encoding.TextMarshaler.
func (pk PublicKey) MarshalText() ([]byte, error) {
	return []byte("fake:PK"), pk.err
}

// String implements fmt.Stringer.
func (pk PublicKey) String() string {
	return "fake.PublicKey"
}

// PublicKeyFactory is a fake implementation of a public key factory.
//
// - implements crypto.PublicKeyFactory
type PublicKeyFactory struct {
	pubkey PublicKey
	err    error
}

// NewPublicKeyFactory returns a fake public key factory that returns the given
// public key.
func NewPublicKeyFactory(pubkey PublicKey) PublicKeyFactory {
	return PublicKeyFactory{pubkey: pubkey}
}

// NewBadPublicKeyFactory returns a fake public key factory that returns an
// error when appropriate.
func NewBadPublicKeyFactory() PublicKeyFactory {
	return PublicKeyFactory{err: fakeErr}
}

// FromBytes implements crypto.PublicKeyFactory.
func (f PublicKeyFactory) FromBytes([]byte) (crypto.PublicKey, error) {
	return f.pubkey, f.err
}

// Signature is a fake implementation of a signature.
//
// - implements crypto.Signature
type Signature struct {
	err error
}

// NewBadSignature returns a signature that returns an error when appropriate.
func NewBadSignature() Signature {
	return Signature{err: fakeErr}
}

// Equal implements crypto.Signature.
func (s Signature) Equal(other crypto.Signature) bool {
	_, ok := other.(Signature)
	return ok
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (s Signature) MarshalBinary() ([]byte, error) {
	return []byte("SIG"), s.err
}

// SignatureFactory is a fake implementation of a signature factory.
//
// - implements crypto.SignatureFactory
type SignatureFactory struct {
	signature Signature
	err       error
}

// NewSignatureFactory returns a fake signature factory that returns the given
// signature.
func NewSignatureFactory(signature Signature) SignatureFactory {
	return SignatureFactory{signature: signature}
}

// NewBadSignatureFactory returns a fake signature factory that returns an
// error when appropriate.
func NewBadSignatureFactory() SignatureFactory {
	return SignatureFactory{err: fakeErr}
}

// FromBytes implements crypto.SignatureFactory.
func (f SignatureFactory) FromBytes([]byte) (crypto.Signature, error) {
	return f.signature, f.err
}

// Signer is a fake implementation of a signer.
//
// - implements crypto.Signer
type Signer struct {
	pubkey           PublicKey
	signatureFactory SignatureFactory
	err              error
}

// NewSigner returns a new fake signer.
func NewSigner() crypto.Signer {
	return Signer{}
}

// NewSignerWithPublicKey returns a new fake signer with the given public key.
func NewSignerWithPublicKey(pk PublicKey) Signer {
	return Signer{pubkey: pk}
}

// NewBadSigner returns a fake signer that returns an error when appropriate.
func NewBadSigner() Signer {
	return Signer{err: fakeErr}
}

// GetPublicKeyFactory implements crypto.Signer.
func (s Signer) GetPublicKeyFactory() crypto.PublicKeyFactory {
	return PublicKeyFactory{pubkey: s.pubkey}
}

// GetSignatureFactory implements crypto.Signer.
func (s Signer) GetSignatureFactory() crypto.SignatureFactory {
	return s.signatureFactory
}

// GetPublicKey implements crypto.Signer.
func (s Signer) GetPublicKey() crypto.PublicKey {
	return s.pubkey
}

// Sign implements crypto.Signer.
func (s Signer) Sign([]byte) (crypto.Signature, error) {
	return Signature{}, s.err
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (s Signer) MarshalBinary() ([]byte, error) {
	return []byte("SIGNER"), s.err
}
