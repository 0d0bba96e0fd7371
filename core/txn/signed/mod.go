// Package signed is the implementation of the transaction abstraction used by
// the ledger.
//
// A transaction carries the public key of its signer and a signature over its
// digest. The nonce is a monotonically increasing number so that an accepted
// transaction cannot be replayed.
package signed

import (
	"encoding/binary"
	"encoding/json"
	"io"
	"sort"

	"github.com/votela/votela"
	"github.com/votela/votela/core/access"
	"github.com/votela/votela/core/txn"
	"github.com/votela/votela/crypto"
	"github.com/votela/votela/crypto/bls"
	"golang.org/x/xerrors"
)

// Transaction is a transaction signed by its emitter and protected against
// replay by a nonce.
//
// - implements txn.Transaction
type Transaction struct {
	nonce  uint64
	pubkey crypto.PublicKey
	args   map[string][]byte
	sig    crypto.Signature
	hash   []byte
}

type template struct {
	Transaction

	hashFactory crypto.HashFactory
}

// TransactionOption is the type of options to create a transaction.
type TransactionOption func(*template)

// WithArg is an option to set an argument of the transaction. Setting the
// same key twice keeps the last value.
func WithArg(key string, value []byte) TransactionOption {
	return func(t *template) {
		t.args[key] = value
	}
}

// WithSignature is an option to set a signature. The signature is verified
// against the identity when the transaction is created.
func WithSignature(sig crypto.Signature) TransactionOption {
	return func(t *template) {
		t.sig = sig
	}
}

// WithHashFactory is an option to set a different hash factory when creating
// a transaction.
func WithHashFactory(f crypto.HashFactory) TransactionOption {
	return func(t *template) {
		t.hashFactory = f
	}
}

// NewTransaction creates a transaction with the provided nonce and identity,
// and computes its digest.
func NewTransaction(nonce uint64, pk crypto.PublicKey, opts ...TransactionOption) (*Transaction, error) {
	tmpl := template{
		Transaction: Transaction{
			nonce:  nonce,
			pubkey: pk,
			args:   map[string][]byte{},
		},
		hashFactory: crypto.NewHashFactory(crypto.Sha256),
	}

	for _, opt := range opts {
		opt(&tmpl)
	}

	tx := tmpl.Transaction

	digest, err := tx.computeDigest(tmpl.hashFactory)
	if err != nil {
		return nil, xerrors.Errorf("couldn't fingerprint tx: %v", err)
	}

	tx.hash = digest

	if tx.sig != nil {
		err := tx.pubkey.Verify(tx.hash, tx.sig)
		if err != nil {
			return nil, xerrors.Errorf("invalid signature: %v", err)
		}
	}

	return &tx, nil
}

func (t *Transaction) computeDigest(fac crypto.HashFactory) ([]byte, error) {
	h := fac.New()

	err := t.Fingerprint(h)
	if err != nil {
		return nil, err
	}

	return h.Sum(nil), nil
}

// GetID implements txn.Transaction. It returns the digest of the transaction.
func (t *Transaction) GetID() []byte {
	return t.hash
}

// GetNonce implements txn.Transaction. It returns the nonce of the
// transaction.
func (t *Transaction) GetNonce() uint64 {
	return t.nonce
}

// GetIdentity implements txn.Transaction. It returns the identity that
// created the transaction.
func (t *Transaction) GetIdentity() access.Identity {
	return t.pubkey
}

// GetSignature returns the signature of the transaction.
func (t *Transaction) GetSignature() crypto.Signature {
	return t.sig
}

// GetArgs returns the keys of the arguments in lexicographic order.
func (t *Transaction) GetArgs() []string {
	keys := make([]string, 0, len(t.args))
	for key := range t.args {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}

// GetArg implements txn.Transaction. It returns the value of the argument if
// it is set, otherwise nil.
func (t *Transaction) GetArg(key string) []byte {
	return t.args[key]
}

// Sign signs the transaction and stores the signature. The signer must match
// the identity the transaction was created with.
func (t *Transaction) Sign(signer crypto.Signer) error {
	if len(t.hash) == 0 {
		return xerrors.New("missing digest in transaction")
	}

	if !signer.GetPublicKey().Equal(t.pubkey) {
		return xerrors.New("mismatch signer and identity")
	}

	sig, err := signer.Sign(t.hash)
	if err != nil {
		return xerrors.Errorf("signer: %v", err)
	}

	t.sig = sig

	return nil
}

// Fingerprint implements txn.Transaction. It writes a deterministic binary
// representation of the transaction. The arguments are written in their
// sorted order so that the digest does not depend on the map iteration.
func (t *Transaction) Fingerprint(w io.Writer) error {
	nonce := make([]byte, 8)
	binary.LittleEndian.PutUint64(nonce, t.nonce)

	_, err := w.Write(nonce)
	if err != nil {
		return xerrors.Errorf("couldn't write nonce: %v", err)
	}

	for _, key := range t.GetArgs() {
		_, err = w.Write(append([]byte(key), t.args[key]...))
		if err != nil {
			return xerrors.Errorf("couldn't write arg: %v", err)
		}
	}

	pubkey, err := t.pubkey.MarshalBinary()
	if err != nil {
		return xerrors.Errorf("failed to marshal public key: %v", err)
	}

	_, err = w.Write(pubkey)
	if err != nil {
		return xerrors.Errorf("couldn't write public key: %v", err)
	}

	return nil
}

// txJSON is the JSON message of a signed transaction.
type txJSON struct {
	Nonce     uint64
	Args      map[string][]byte
	PublicKey []byte
	Signature []byte `json:",omitempty"`
}

// Serialize implements txn.Transaction. It returns the transaction encoded in
// JSON, with the binary fields encoded in base 64.
func (t *Transaction) Serialize() ([]byte, error) {
	pubkey, err := t.pubkey.MarshalBinary()
	if err != nil {
		return nil, xerrors.Errorf("failed to marshal public key: %v", err)
	}

	m := txJSON{
		Nonce:     t.nonce,
		Args:      t.args,
		PublicKey: pubkey,
	}

	if t.sig != nil {
		sig, err := t.sig.MarshalBinary()
		if err != nil {
			return nil, xerrors.Errorf("failed to marshal signature: %v", err)
		}

		m.Signature = sig
	}

	data, err := json.Marshal(m)
	if err != nil {
		return nil, xerrors.Errorf("failed to encode: %v", err)
	}

	return data, nil
}

// TransactionFactory is a factory to deserialize transactions. The signature,
// when present, is verified against the identity.
//
// - implements txn.Factory
type TransactionFactory struct {
	pubkeyFac crypto.PublicKeyFactory
	sigFac    crypto.SignatureFactory
}

// NewTransactionFactory returns a new factory.
func NewTransactionFactory() TransactionFactory {
	return TransactionFactory{
		pubkeyFac: bls.NewPublicKeyFactory(),
		sigFac:    bls.NewSignatureFactory(),
	}
}

// TransactionOf implements txn.Factory. It populates the transaction from the
// data if appropriate, otherwise it returns an error.
func (f TransactionFactory) TransactionOf(data []byte) (txn.Transaction, error) {
	m := txJSON{}
	err := json.Unmarshal(data, &m)
	if err != nil {
		return nil, xerrors.Errorf("failed to decode: %v", err)
	}

	pubkey, err := f.pubkeyFac.FromBytes(m.PublicKey)
	if err != nil {
		return nil, xerrors.Errorf("invalid public key: %v", err)
	}

	opts := make([]TransactionOption, 0, len(m.Args)+1)
	for key, value := range m.Args {
		opts = append(opts, WithArg(key, value))
	}

	if len(m.Signature) > 0 {
		sig, err := f.sigFac.FromBytes(m.Signature)
		if err != nil {
			return nil, xerrors.Errorf("invalid signature: %v", err)
		}

		opts = append(opts, WithSignature(sig))
	}

	tx, err := NewTransaction(m.Nonce, pubkey, opts...)
	if err != nil {
		return nil, xerrors.Errorf("failed to create tx: %v", err)
	}

	return tx, nil
}

// Client is the interface the manager uses to fetch the nonce of an identity,
// either locally or over the network.
type Client interface {
	GetNonce(access.Identity) (uint64, error)
}

// TransactionManager creates signed transactions. It tracks the nonce by
// itself, except when the ledger refuses a transaction. In that case the
// manager must be synchronized before creating a new one.
//
// - implements txn.Manager
type TransactionManager struct {
	client  Client
	signer  crypto.Signer
	nonce   uint64
	hashFac crypto.HashFactory
}

// NewManager creates a new transaction manager using the signer for the
// identity, and the client to synchronize the nonce.
func NewManager(signer crypto.Signer, client Client) *TransactionManager {
	return &TransactionManager{
		client:  client,
		signer:  signer,
		nonce:   0,
		hashFac: crypto.NewHashFactory(crypto.Sha256),
	}
}

// Make implements txn.Manager. It creates a transaction populated with the
// arguments, signed with the next nonce.
func (mgr *TransactionManager) Make(args ...txn.Arg) (txn.Transaction, error) {
	opts := []TransactionOption{WithHashFactory(mgr.hashFac)}
	for _, arg := range args {
		opts = append(opts, WithArg(arg.Key, arg.Value))
	}

	tx, err := NewTransaction(mgr.nonce, mgr.signer.GetPublicKey(), opts...)
	if err != nil {
		return nil, xerrors.Errorf("failed to create tx: %v", err)
	}

	err = tx.Sign(mgr.signer)
	if err != nil {
		return nil, xerrors.Errorf("failed to sign: %v", err)
	}

	mgr.nonce++

	return tx, nil
}

// Sync implements txn.Manager. It fetches the latest nonce of the signer so
// that the next transactions are valid.
func (mgr *TransactionManager) Sync() error {
	latest, err := mgr.client.GetNonce(mgr.signer.GetPublicKey())
	if err != nil {
		return xerrors.Errorf("client: %v", err)
	}

	mgr.nonce = latest

	votela.Logger.Debug().Uint64("nonce", latest).Msg("transaction manager synchronized")

	return nil
}
