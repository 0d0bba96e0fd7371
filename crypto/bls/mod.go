// Package bls implements the signer abstraction with the BLS signature
// scheme over the BN256 curve.
//
// The node identity and every admin identity is a BLS key pair. The textual
// form of a public key, as stored in the on-ledger role records, is
// "bls:" followed by the hexadecimal point.
package bls

import (
	"bytes"
	"fmt"

	"github.com/votela/votela/crypto"
	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/pairing"
	"go.dedis.ch/kyber/v3/sign/bls"
	"go.dedis.ch/kyber/v3/util/key"
	"golang.org/x/xerrors"
)

// Algorithm is the name of the curve used for the BLS signature.
const Algorithm = "CURVE-BN256"

var suite = pairing.NewSuiteBn256()

// publicKey is a point on the curve.
//
// - implements crypto.PublicKey
type publicKey struct {
	point kyber.Point
}

// MarshalBinary implements encoding.BinaryMarshaler. It returns the
// marshaled point.
func (pk publicKey) MarshalBinary() ([]byte, error) {
	return pk.point.MarshalBinary()
}

// MarshalText implements encoding.TextMarshaler. It returns the scheme name
// followed by the point in hexadecimal.
func (pk publicKey) MarshalText() ([]byte, error) {
	data, err := pk.MarshalBinary()
	if err != nil {
		return nil, xerrors.Errorf("couldn't marshal: %v", err)
	}

	return []byte(fmt.Sprintf("bls:%x", data)), nil
}

// Verify implements crypto.PublicKey. It returns nil when the signature is
// valid for the message under this key.
func (pk publicKey) Verify(msg []byte, sig crypto.Signature) error {
	signature, ok := sig.(signature)
	if !ok {
		return xerrors.Errorf("invalid signature type '%T'", sig)
	}

	err := bls.Verify(suite, pk.point, msg, signature.data)
	if err != nil {
		return xerrors.Errorf("bls verify failed: %v", err)
	}

	return nil
}

// Equal implements crypto.PublicKey. It returns true when the other value
// wraps the same point.
func (pk publicKey) Equal(other interface{}) bool {
	pubkey, ok := other.(publicKey)
	if !ok {
		return false
	}

	return pubkey.point.Equal(pk.point)
}

// String implements fmt.Stringer. It returns a shortened form of the textual
// representation, enough to tell identities apart in the logs.
func (pk publicKey) String() string {
	text, err := pk.MarshalText()
	if err != nil {
		return "bls:malformed_point"
	}

	// The prefix and the first 8 bytes of the point.
	return string(text[:4+16])
}

// signature is a BLS signature over a single message.
//
// - implements crypto.Signature
type signature struct {
	data []byte
}

// MarshalBinary implements encoding.BinaryMarshaler. It returns the raw
// signature.
func (sig signature) MarshalBinary() ([]byte, error) {
	return sig.data, nil
}

// Equal implements crypto.Signature. It compares the raw form of both
// signatures.
func (sig signature) Equal(other crypto.Signature) bool {
	otherSig, ok := other.(signature)
	if !ok {
		return false
	}

	return bytes.Equal(sig.data, otherSig.data)
}

// NewPublicKey creates a public key from its binary form.
func NewPublicKey(data []byte) (crypto.PublicKey, error) {
	point := suite.Point()

	err := point.UnmarshalBinary(data)
	if err != nil {
		return nil, err
	}

	return publicKey{point: point}, nil
}

// publicKeyFactory decodes BLS public keys.
//
// - implements crypto.PublicKeyFactory
type publicKeyFactory struct{}

// NewPublicKeyFactory returns a factory for BLS public keys.
func NewPublicKeyFactory() crypto.PublicKeyFactory {
	return publicKeyFactory{}
}

// FromBytes implements crypto.PublicKeyFactory. It returns the public key
// decoded from the bytes.
func (f publicKeyFactory) FromBytes(data []byte) (crypto.PublicKey, error) {
	pubkey, err := NewPublicKey(data)
	if err != nil {
		return nil, xerrors.Errorf("couldn't unmarshal point: %v", err)
	}

	return pubkey, nil
}

// signatureFactory decodes BLS signatures.
//
// - implements crypto.SignatureFactory
type signatureFactory struct{}

// NewSignatureFactory returns a factory for BLS signatures.
func NewSignatureFactory() crypto.SignatureFactory {
	return signatureFactory{}
}

// FromBytes implements crypto.SignatureFactory. It returns the signature
// decoded from the bytes.
func (f signatureFactory) FromBytes(data []byte) (crypto.Signature, error) {
	if len(data) == 0 {
		return nil, xerrors.New("empty signature")
	}

	return signature{data: data}, nil
}

// Signer signs and verifies messages with a BN256 key pair.
//
// - implements crypto.Signer
type Signer struct {
	keyPair *key.Pair
}

// NewSigner returns a signer with a fresh random key pair.
func NewSigner() crypto.Signer {
	return Signer{
		keyPair: key.NewKeyPair(suite),
	}
}

// NewSignerFromBytes restores a signer from its marshaled private key, so
// that a node keeps the same identity across restarts.
func NewSignerFromBytes(data []byte) (crypto.Signer, error) {
	scalar := suite.Scalar()

	err := scalar.UnmarshalBinary(data)
	if err != nil {
		return nil, xerrors.Errorf("while unmarshaling scalar: %v", err)
	}

	kp := key.Pair{
		Private: scalar,
		Public:  suite.Point().Mul(scalar, nil),
	}

	return Signer{keyPair: &kp}, nil
}

// MarshalBinary implements encoding.BinaryMarshaler. It returns the private
// key of the signer.
func (s Signer) MarshalBinary() ([]byte, error) {
	data, err := s.keyPair.Private.MarshalBinary()
	if err != nil {
		return nil, xerrors.Errorf("while marshaling scalar: %v", err)
	}

	return data, nil
}

// GetPublicKeyFactory implements crypto.Signer. It returns a factory for BLS
// public keys.
func (s Signer) GetPublicKeyFactory() crypto.PublicKeyFactory {
	return publicKeyFactory{}
}

// GetSignatureFactory implements crypto.Signer. It returns a factory for BLS
// signatures.
func (s Signer) GetSignatureFactory() crypto.SignatureFactory {
	return signatureFactory{}
}

// GetPublicKey implements crypto.Signer. It returns the public key of the
// signer.
func (s Signer) GetPublicKey() crypto.PublicKey {
	return publicKey{point: s.keyPair.Public}
}

// Sign implements crypto.Signer. It returns the signature of the message, or
// an error when the underlying scheme fails.
func (s Signer) Sign(msg []byte) (crypto.Signature, error) {
	sig, err := bls.Sign(suite, s.keyPair.Private, msg)
	if err != nil {
		return nil, xerrors.Errorf("couldn't make bls signature: %v", err)
	}

	return signature{data: sig}, nil
}
