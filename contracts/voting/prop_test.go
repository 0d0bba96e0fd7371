package voting

import (
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/votela/votela/contracts/voting/types"
	"github.com/votela/votela/core/execution"
	"github.com/votela/votela/core/txn"
	"github.com/votela/votela/core/txn/signed"
	"github.com/votela/votela/internal/testing/fake"
	"pgregory.net/rapid"
)

// TestVotingInvariants replays random command sequences against the contract
// and a plain map model of it. Whatever the interleaving of sessions, status
// flips and casts, a voter hash is recorded at most once and the per-party
// counters always add up to the global tally.
func TestVotingInvariants(t *testing.T) {
	start := time.Date(2024, time.April, 14, 8, 0, 0, 0, time.UTC)
	end := start.Add(12 * time.Hour)

	voters := []string{"v0", "v1", "v2", "v3", "v4", "v5", "v6", "v7"}

	rapid.Check(t, func(rt *rapid.T) {
		contract := NewContract([]byte{}, fakeAccess{})

		cmd := votingCommand{
			Contract: &contract,
		}

		snap := fake.NewSnapshot()

		err := cmd.init(snap, propStep(rt))
		require.NoError(rt, err)

		numParties := rapid.IntRange(2, 4).Draw(rt, "parties")

		ids := make([]string, numParties)
		for i := range ids {
			ids[i] = fmt.Sprintf("party-%d", i)

			err := cmd.registerParty(snap, propStep(rt, PartyArg, ids[i], NameArg, ids[i]))
			require.NoError(rt, err)
		}

		active := map[string]bool{}
		for _, id := range ids {
			active[id] = true
		}

		voted := map[types.VoterHash]string{}
		counts := map[string]uint64{}
		total := uint64(0)
		open := false

		numActions := rapid.IntRange(1, 50).Draw(rt, "actions")

		for i := 0; i < numActions; i++ {
			switch rapid.SampledFrom([]string{"cast", "open", "close", "toggle"}).Draw(rt, "action") {
			case "open":
				err := cmd.openSession(snap, propStep(rt,
					NameArg, "general",
					StartArg, start.Format(time.RFC3339),
					EndArg, end.Format(time.RFC3339)))

				if open {
					require.EqualError(rt, err, "a session is already active")
				} else {
					require.NoError(rt, err)
					open = true
				}
			case "close":
				err := cmd.closeSession(snap, propStep(rt))

				if open {
					require.NoError(rt, err)
					open = false
				} else {
					require.EqualError(rt, err, "no session is active")
				}
			case "toggle":
				id := rapid.SampledFrom(ids).Draw(rt, "party")
				flag := rapid.Bool().Draw(rt, "flag")

				err := cmd.setPartyStatus(snap, propStep(rt,
					PartyArg, id, ActiveArg, strconv.FormatBool(flag)))
				require.NoError(rt, err)

				active[id] = flag
			case "cast":
				hash := makeHash(rapid.SampledFrom(voters).Draw(rt, "voter"))
				id := rapid.SampledFrom(ids).Draw(rt, "party")
				offset := rapid.IntRange(-60, 13*60).Draw(rt, "offset")
				when := start.Add(time.Duration(offset) * time.Minute)

				err := cmd.cast(snap, propStepAt(rt, when,
					HashArg, hash.String(), PartyArg, id))

				inWindow := open && !when.Before(start) && when.Before(end)
				_, done := voted[hash]

				switch {
				case !inWindow:
					require.Error(rt, err)
				case !active[id]:
					require.EqualError(rt, err, fmt.Sprintf("party '%s' is inactive", id))
				case done:
					require.EqualError(rt, err, fmt.Sprintf("voter %s has already voted", hash))
				default:
					require.NoError(rt, err)

					voted[hash] = id
					counts[id]++
					total++
				}
			}
		}

		tally, err := GetTally(snap)
		require.NoError(rt, err)
		require.Equal(rt, total, tally.Total)

		parties, err := GetParties(snap)
		require.NoError(rt, err)

		sum := uint64(0)
		for _, party := range parties {
			require.Equal(rt, counts[party.ID], party.Votes)
			sum += party.Votes
		}

		require.Equal(rt, tally.Total, sum)

		for hash, id := range voted {
			vote, found, err := GetVote(snap, hash)
			require.NoError(rt, err)
			require.True(rt, found)
			require.Equal(rt, id, vote.Party)
		}
	})
}

func propStep(t require.TestingT, args ...string) execution.Step {
	return execution.Step{Current: propTx(t, args...)}
}

func propStepAt(t require.TestingT, when time.Time, args ...string) execution.Step {
	return execution.Step{Current: propTx(t, args...), Timestamp: when}
}

func propTx(t require.TestingT, args ...string) txn.Transaction {
	options := []signed.TransactionOption{}
	for i := 0; i < len(args)-1; i += 2 {
		options = append(options, signed.WithArg(args[i], []byte(args[i+1])))
	}

	tx, err := signed.NewTransaction(0, fake.PublicKey{}, options...)
	require.NoError(t, err)

	return tx
}
