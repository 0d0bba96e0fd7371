package registry

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/votela/votela/contracts/voting/types"
	"github.com/votela/votela/core/store/kv"
)

func TestRegistry_Register(t *testing.T) {
	reg := makeRegistry(t)

	voter, err := reg.Register("self", makeVoter(1))
	require.NoError(t, err)
	require.NotEmpty(t, voter.UUID)
	require.Equal(t, StatusPending, voter.Status)
	require.False(t, voter.HasVoted)
	require.False(t, voter.CreatedAt.IsZero())
	require.Equal(t, voter.CreatedAt, voter.UpdatedAt)

	_, err = reg.Register("self", makeVoter(1))
	require.EqualError(t, err, "voter '000000000001' already exists")

	other := makeVoter(2)
	other.Email = "Voter1@example.com"
	_, err = reg.Register("self", other)
	require.EqualError(t, err, "email 'voter1@example.com' is already registered")

	bad := makeVoter(3)
	bad.NationalID = "123"
	_, err = reg.Register("self", bad)
	require.EqualError(t, err,
		"invalid voter: national id must be 12 digits, got 3 characters")

	bad = makeVoter(3)
	bad.Email = "not-an-email"
	_, err = reg.Register("self", bad)
	require.Error(t, err)
	require.Regexp(t, "^invalid voter: invalid email 'not-an-email'", err.Error())

	bad = makeVoter(3)
	bad.FullName = "  "
	_, err = reg.Register("self", bad)
	require.EqualError(t, err, "invalid voter: full name is required")

	entries, err := reg.AuditTrail(0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, ActionVoterRegistered, entries[0].Action)
	require.Equal(t, "self", entries[0].Actor)
	require.Equal(t, "000000000001", entries[0].Subject)
}

func TestRegistry_Voter(t *testing.T) {
	reg := makeRegistry(t)

	_, err := reg.Voter("000000000001")
	require.EqualError(t, err, "unknown voter '000000000001'")

	expected, err := reg.Register("self", makeVoter(1))
	require.NoError(t, err)

	voter, err := reg.Voter("000000000001")
	require.NoError(t, err)
	require.Equal(t, expected.UUID, voter.UUID)
	require.Equal(t, expected.Email, voter.Email)
}

func TestRegistry_VoterByEmail(t *testing.T) {
	reg := makeRegistry(t)

	_, err := reg.VoterByEmail("voter1@example.com")
	require.EqualError(t, err, "no voter with email 'voter1@example.com'")

	_, err = reg.Register("self", makeVoter(1))
	require.NoError(t, err)

	voter, err := reg.VoterByEmail("  Voter1@EXAMPLE.com ")
	require.NoError(t, err)
	require.Equal(t, "000000000001", voter.NationalID)
}

func TestRegistry_VoterByHash(t *testing.T) {
	reg := makeRegistry(t)

	_, err := reg.VoterByHash(types.VoterHash{})
	require.Error(t, err)

	_, err = reg.Register("self", makeVoter(1))
	require.NoError(t, err)

	hash, err := reg.VoterHash("000000000001")
	require.NoError(t, err)
	require.False(t, hash.IsZero())

	voter, err := reg.VoterByHash(hash)
	require.NoError(t, err)
	require.Equal(t, "000000000001", voter.NationalID)

	_, err = reg.VoterHash("000000000099")
	require.EqualError(t, err, "unknown voter '000000000099'")
}

func TestRegistry_Search(t *testing.T) {
	reg := makeRegistry(t)

	for i := 1; i <= 3; i++ {
		_, err := reg.Register("self", makeVoter(i))
		require.NoError(t, err)
	}

	voters, err := reg.Search("", 0)
	require.NoError(t, err)
	require.Len(t, voters, 3)
	require.Equal(t, "000000000001", voters[0].NationalID)
	require.Equal(t, "000000000003", voters[2].NationalID)

	voters, err = reg.Search("voter2@", 0)
	require.NoError(t, err)
	require.Len(t, voters, 1)
	require.Equal(t, "000000000002", voters[0].NationalID)

	voters, err = reg.Search("Voter 3", 0)
	require.NoError(t, err)
	require.Len(t, voters, 1)

	voters, err = reg.Search("00000000000", 2)
	require.NoError(t, err)
	require.Len(t, voters, 2)

	voters, err = reg.Search("nobody", 0)
	require.NoError(t, err)
	require.Len(t, voters, 0)
}

func TestRegistry_Search_Limit(t *testing.T) {
	reg := makeRegistry(t)

	voters := make([]Voter, SearchLimit+5)
	for i := range voters {
		voters[i] = makeVoter(i + 1)
	}

	added, err := reg.Import("import", voters)
	require.NoError(t, err)
	require.Equal(t, SearchLimit+5, added)

	found, err := reg.Search("", 0)
	require.NoError(t, err)
	require.Len(t, found, SearchLimit)
}

func TestRegistry_Import(t *testing.T) {
	reg := makeRegistry(t)

	_, err := reg.Register("self", makeVoter(1))
	require.NoError(t, err)

	added, err := reg.Import("import", []Voter{makeVoter(1), makeVoter(2), makeVoter(3)})
	require.NoError(t, err)
	require.Equal(t, 2, added)

	added, err = reg.Import("import", []Voter{makeVoter(2), makeVoter(3)})
	require.NoError(t, err)
	require.Equal(t, 0, added)

	bad := makeVoter(4)
	bad.NationalID = "oops"

	_, err = reg.Import("import", []Voter{makeVoter(5), bad})
	require.EqualError(t, err,
		"invalid voter 'oops': national id must be 12 digits, got 4 characters")

	// The batch is atomic so the valid entry was rolled back with it.
	_, err = reg.Voter(makeVoter(5).NationalID)
	require.Error(t, err)
}

func TestRegistry_MarkVoted(t *testing.T) {
	reg := makeRegistry(t)

	err := reg.MarkVoted(types.VoterHash{}, "orange")
	require.Error(t, err)

	_, err = reg.Register("self", makeVoter(1))
	require.NoError(t, err)

	hash, err := reg.VoterHash("000000000001")
	require.NoError(t, err)

	err = reg.MarkVoted(hash, "orange")
	require.NoError(t, err)

	voter, err := reg.Voter("000000000001")
	require.NoError(t, err)
	require.True(t, voter.HasVoted)

	// Marking twice is harmless and keeps a single audit entry.
	err = reg.MarkVoted(hash, "orange")
	require.NoError(t, err)

	entries, err := reg.AuditTrail(0)
	require.NoError(t, err)

	casts := 0
	for _, entry := range entries {
		if entry.Action == ActionVoteCast {
			casts++
			require.Equal(t, "ledger", entry.Actor)
			require.Equal(t, "000000000001", entry.Subject)
			require.Equal(t, "orange", entry.Detail)
		}
	}

	require.Equal(t, 1, casts)
}

func TestValidateNationalID(t *testing.T) {
	require.NoError(t, ValidateNationalID("123456789012"))

	err := ValidateNationalID("12345678901")
	require.EqualError(t, err, "national id must be 12 digits, got 11 characters")

	err = ValidateNationalID("12345678901x")
	require.EqualError(t, err, "national id must contain only digits")
}

// -----------------------------------------------------------------------------
// Utility functions

func makeRegistry(t *testing.T, opts ...Option) *Registry {
	db, err := kv.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return NewRegistry(db, "salt", opts...)
}

func makeVoter(i int) Voter {
	return Voter{
		NationalID:   fmt.Sprintf("%012d", i),
		Email:        fmt.Sprintf("voter%d@example.com", i),
		FullName:     fmt.Sprintf("Voter %d", i),
		Constituency: "North",
	}
}

func makeClock(start time.Time) (func() time.Time, func(time.Duration)) {
	now := start

	clock := func() time.Time {
		return now
	}

	advance := func(d time.Duration) {
		now = now.Add(d)
	}

	return clock, advance
}
