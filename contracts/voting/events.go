package voting

import (
	"github.com/votela/votela/contracts/voting/types"
	"github.com/votela/votela/core/execution/native"
	"github.com/votela/votela/core/ordering"
)

// CastEvent describes a vote accepted by the ordering service. The mirror
// and the registry consume it from the watch channel.
type CastEvent struct {
	VoterHash types.VoterHash
	Party     string
}

// AcceptedCasts extracts from an ordering event the casts that have been
// accepted.
func AcceptedCasts(evt ordering.Event) []CastEvent {
	casts := []CastEvent{}

	for _, res := range evt.Transactions {
		accepted, _ := res.GetStatus()
		if !accepted {
			continue
		}

		tx := res.GetTransaction()

		if string(tx.GetArg(native.ContractArg)) != ContractName {
			continue
		}

		if Command(tx.GetArg(CmdArg)) != CmdCast {
			continue
		}

		hash, err := types.ParseVoterHash(string(tx.GetArg(HashArg)))
		if err != nil {
			continue
		}

		casts = append(casts, CastEvent{
			VoterHash: hash,
			Party:     string(tx.GetArg(PartyArg)),
		})
	}

	return casts
}
