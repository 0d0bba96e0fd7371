package registry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleRoster = `
voters:
  - national_id: "000000000001"
    email: voter1@example.com
    full_name: Voter 1
    constituency: North
    region: Upper
  - national_id: "000000000002"
    email: voter2@example.com
    full_name: Voter 2
    phone: "+1555000002"
    constituency: South
`

func TestDecodeRoster(t *testing.T) {
	voters, err := DecodeRoster(strings.NewReader(sampleRoster))
	require.NoError(t, err)
	require.Len(t, voters, 2)
	require.Equal(t, "000000000001", voters[0].NationalID)
	require.Equal(t, "Upper", voters[0].Region)
	require.Equal(t, "+1555000002", voters[1].Phone)

	_, err = DecodeRoster(strings.NewReader(":\n:"))
	require.Error(t, err)
	require.Regexp(t, "^failed to decode roster:", err.Error())
}

func TestLoadRoster(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster.yml")

	err := os.WriteFile(path, []byte(sampleRoster), 0o644)
	require.NoError(t, err)

	voters, err := LoadRoster(path)
	require.NoError(t, err)
	require.Len(t, voters, 2)

	_, err = LoadRoster(filepath.Join(t.TempDir(), "missing.yml"))
	require.Error(t, err)
	require.Regexp(t, "^couldn't open roster:", err.Error())
}

func TestRegistry_ImportRoster(t *testing.T) {
	reg := makeRegistry(t)

	voters, err := DecodeRoster(strings.NewReader(sampleRoster))
	require.NoError(t, err)

	added, err := reg.Import("import", voters)
	require.NoError(t, err)
	require.Equal(t, 2, added)

	voter, err := reg.Voter("000000000002")
	require.NoError(t, err)
	require.Equal(t, "South", voter.Constituency)
	require.Equal(t, StatusPending, voter.Status)
}
