// Package types defines the records the voting contract keeps on the ledger,
// alongside the voter hash that keys the write-once vote set.
//
// All records are stored as JSON so that an operator can inspect the state of
// the ledger with standard tools.
package types

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"golang.org/x/xerrors"
)

// HashSize is the size in bytes of a voter hash.
const HashSize = 32

// hashPrefix is the textual prefix of a voter hash.
const hashPrefix = "0x"

// VoterHash is the derived identifier that keys the vote set. It is never the
// raw national identifier of the voter.
type VoterHash [HashSize]byte

// DeriveVoterHash builds the voter hash from the voter's identifiers and the
// service salt.
func DeriveVoterHash(email, nationalID, voterID, salt string) VoterHash {
	return VoterHash(sha256.Sum256([]byte(email + nationalID + voterID + salt)))
}

// ParseVoterHash reads the textual form of a voter hash, which is "0x"
// followed by 64 lowercase hexadecimal characters.
func ParseVoterHash(text string) (VoterHash, error) {
	h := VoterHash{}

	if !strings.HasPrefix(text, hashPrefix) {
		return h, xerrors.Errorf("voter hash '%s' is missing the 0x prefix", text)
	}

	data, err := hex.DecodeString(text[len(hashPrefix):])
	if err != nil {
		return h, xerrors.Errorf("couldn't decode voter hash: %v", err)
	}

	if len(data) != HashSize {
		return h, xerrors.Errorf("voter hash is %d bytes, expected %d", len(data), HashSize)
	}

	copy(h[:], data)

	return h, nil
}

// String implements fmt.Stringer. It returns the textual form of the hash.
func (h VoterHash) String() string {
	return hashPrefix + hex.EncodeToString(h[:])
}

// Bytes returns the hash as a slice.
func (h VoterHash) Bytes() []byte {
	return h[:]
}

// IsZero reports whether the hash is the all-zero value, which is invalid
// everywhere.
func (h VoterHash) IsZero() bool {
	return h == VoterHash{}
}

// Roles holds the identities allowed to administrate the electoral ledger.
// The owner is singular, transferable and strictly above the admins.
type Roles struct {
	Owner  string   `json:"owner"`
	Admins []string `json:"admins"`
}

// IsOwner reports whether the identity is the owner.
func (r Roles) IsOwner(ident string) bool {
	return ident != "" && ident == r.Owner
}

// CanAdministrate reports whether the identity is the owner or one of the
// admins.
func (r Roles) CanAdministrate(ident string) bool {
	if r.IsOwner(ident) {
		return true
	}

	for _, admin := range r.Admins {
		if admin == ident {
			return true
		}
	}

	return false
}

// Grant adds the identity to the admin set. It does nothing if the identity
// is already an admin.
func (r *Roles) Grant(ident string) {
	for _, admin := range r.Admins {
		if admin == ident {
			return
		}
	}

	r.Admins = append(r.Admins, ident)
}

// Revoke removes the identity from the admin set and reports whether it was
// present.
func (r *Roles) Revoke(ident string) bool {
	for i, admin := range r.Admins {
		if admin == ident {
			r.Admins = append(r.Admins[:i], r.Admins[i+1:]...)
			return true
		}
	}

	return false
}

// Party describes a political party registered on the ledger. The index
// records the order of registration and drives the tie-break of the winner
// computation.
type Party struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Active      bool   `json:"active"`
	Index       uint64 `json:"index"`
	Votes       uint64 `json:"votes"`
}

// PartyList keeps the party identifiers in registration order.
type PartyList struct {
	IDs []string `json:"ids"`
}

// SessionStatus tells where a voting session stands in its lifecycle.
type SessionStatus string

const (
	// SessionNone is the status before any session has been opened.
	SessionNone SessionStatus = "none"

	// SessionActive is the status of the session accepting votes.
	SessionActive SessionStatus = "active"

	// SessionEnded is the status of a closed session.
	SessionEnded SessionStatus = "ended"
)

// Session is the admin-defined window during which votes are accepted. At
// most one session is active at a time.
type Session struct {
	Index  uint64        `json:"index"`
	Name   string        `json:"name"`
	Start  time.Time     `json:"start"`
	End    time.Time     `json:"end"`
	Status SessionStatus `json:"status"`
	Votes  uint64        `json:"votes"`
}

// IsOpenAt reports whether the session accepts votes at the given time. The
// window is half-open: the start belongs to it, the end does not.
func (s Session) IsOpenAt(when time.Time) bool {
	return s.Status == SessionActive && !when.Before(s.Start) && when.Before(s.End)
}

// Remaining returns how long the session still accepts votes at the given
// time, and zero once it does not.
func (s Session) Remaining(when time.Time) time.Duration {
	if s.Status != SessionActive || !when.Before(s.End) {
		return 0
	}

	return s.End.Sub(when)
}

// Vote is the record written exactly once per voter hash. The timestamp is
// the one the sequencer assigned to the batch carrying the cast.
type Vote struct {
	Party     string    `json:"party"`
	Timestamp time.Time `json:"timestamp"`
}

// Tally carries the number of votes accepted over the lifetime of the
// ledger.
type Tally struct {
	Total uint64 `json:"total"`
}
