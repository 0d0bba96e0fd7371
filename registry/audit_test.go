package registry

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistry_Audit(t *testing.T) {
	reg := makeRegistry(t)

	entries, err := reg.AuditTrail(0)
	require.NoError(t, err)
	require.Len(t, entries, 0)

	err = reg.Audit(ActionSessionOpened, "admin", "1", "general")
	require.NoError(t, err)

	err = reg.Audit(ActionSessionClosed, "admin", "1", "")
	require.NoError(t, err)

	err = reg.Audit(ActionVoteRejected, "web", "000000000001", "no session open")
	require.NoError(t, err)

	entries, err = reg.AuditTrail(0)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	// Newest first.
	require.Equal(t, ActionVoteRejected, entries[0].Action)
	require.Equal(t, ActionSessionClosed, entries[1].Action)
	require.Equal(t, ActionSessionOpened, entries[2].Action)

	require.Equal(t, uint64(3), entries[0].Seq)
	require.Equal(t, "web", entries[0].Actor)
	require.Equal(t, "no session open", entries[0].Detail)
	require.False(t, entries[0].Timestamp.IsZero())

	entries, err = reg.AuditTrail(2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, uint64(3), entries[0].Seq)
	require.Equal(t, uint64(2), entries[1].Seq)
}
