// Package access defines the interfaces for the access rights control of the
// ledger.
//
// The election service uses it to gate who can invoke the commands of the
// native contracts: a command of the voting contract is only executed when the
// transaction identity holds a grant for the matching rule.
package access

import (
	"encoding"
	"strings"

	"github.com/votela/votela/core/store"
)

// Identity is an abstraction to uniquely identify a signer.
type Identity interface {
	encoding.TextMarshaler

	// Equal returns true when the other object is the same identity.
	Equal(other interface{}) bool
}

// Credential is an abstraction of an access control for a specific rule.
type Credential interface {
	// GetID returns the identifier of the credential.
	GetID() []byte

	// GetRule returns the rule the credential is targeting.
	GetRule() string
}

// Service is an access control service that can verify the authorization of
// identities for a given credential, or grant new ones.
type Service interface {
	// Match returns nil when all the identities are allowed for the
	// credential.
	Match(store store.Readable, creds Credential, idents ...Identity) error

	// Grant updates the store so that the identities will be allowed for the
	// credential.
	Grant(store store.Snapshot, creds Credential, idents ...Identity) error
}

// Compile returns a compacted rule from the string segments.
func Compile(segments ...string) string {
	return strings.Join(segments, ":")
}
