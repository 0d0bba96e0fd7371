package registry

import (
	"net/mail"
	"strings"
	"time"

	"github.com/votela/votela/contracts/voting/types"
	"golang.org/x/xerrors"
)

// VerificationStatus is the registry-side verification state of a voter.
type VerificationStatus string

// A voter registers as pending, becomes verified after a successful
// one-time-password check and is rejected only by an operator decision.
const (
	StatusPending  VerificationStatus = "pending"
	StatusVerified VerificationStatus = "verified"
	StatusRejected VerificationStatus = "rejected"
)

// NationalIDLength is the exact number of digits of a national ID.
const NationalIDLength = 12

// Voter is one registered voter. Records are created by self-registration or
// by import and are never deleted. The verification status and the voted
// cache are the only fields that change afterwards.
type Voter struct {
	UUID         string             `json:"uuid"`
	NationalID   string             `json:"national_id"`
	Email        string             `json:"email"`
	FullName     string             `json:"full_name"`
	Phone        string             `json:"phone,omitempty"`
	Constituency string             `json:"constituency"`
	Region       string             `json:"region,omitempty"`
	Gender       string             `json:"gender,omitempty"`
	BirthDate    string             `json:"birth_date,omitempty"`
	Status       VerificationStatus `json:"status"`
	HasVoted     bool               `json:"has_voted"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// Validate returns an error when a required field is missing or malformed.
func (v Voter) Validate() error {
	err := ValidateNationalID(v.NationalID)
	if err != nil {
		return err
	}

	_, err = mail.ParseAddress(v.Email)
	if err != nil {
		return xerrors.Errorf("invalid email '%s': %v", v.Email, err)
	}

	if strings.TrimSpace(v.FullName) == "" {
		return xerrors.New("full name is required")
	}

	return nil
}

// Hash derives the ledger key of the voter.
func (v Voter) Hash(salt string) types.VoterHash {
	return types.DeriveVoterHash(v.Email, v.NationalID, v.UUID, salt)
}

// matches tells if the voter matches the lowercase search term.
func (v Voter) matches(q string) bool {
	if q == "" {
		return true
	}

	return strings.HasPrefix(v.NationalID, q) ||
		strings.Contains(strings.ToLower(v.Email), q) ||
		strings.Contains(strings.ToLower(v.FullName), q)
}

// ValidateNationalID checks that the id is made of exactly twelve digits.
func ValidateNationalID(id string) error {
	if len(id) != NationalIDLength {
		return xerrors.Errorf("national id must be %d digits, got %d characters",
			NationalIDLength, len(id))
	}

	for _, r := range id {
		if r < '0' || r > '9' {
			return xerrors.New("national id must contain only digits")
		}
	}

	return nil
}
