package voting

import (
	"encoding/json"
	"time"

	"github.com/votela/votela/contracts/voting/types"
	"github.com/votela/votela/core/store"
	"golang.org/x/xerrors"
)

// Keys of the singleton records the contract keeps on the ledger.
var (
	// RolesKey is the key of the roles record.
	RolesKey = []byte("voting:roles")

	// SessionKey is the key of the session record.
	SessionKey = []byte("voting:session")

	// PartiesKey is the key of the list of party identifiers in registration
	// order.
	PartiesKey = []byte("voting:parties")

	// TallyKey is the key of the global tally record.
	TallyKey = []byte("voting:tally")
)

const (
	partyPrefix = "voting:party:"
	votePrefix  = "voting:cast:"
)

// PartyKey returns the ledger key of the party record.
func PartyKey(id string) []byte {
	return []byte(partyPrefix + id)
}

// VoteKey returns the ledger key of the vote record of the voter hash.
func VoteKey(hash types.VoterHash) []byte {
	return append([]byte(votePrefix), hash.Bytes()...)
}

// GetRoles returns the roles committed on the ledger. It fails when the
// ledger has not been initialized.
func GetRoles(r store.Readable) (types.Roles, error) {
	raw, err := r.Get(RolesKey)
	if err != nil {
		return types.Roles{}, xerrors.Errorf("failed to read roles: %v", err)
	}

	if len(raw) == 0 {
		return types.Roles{}, xerrors.New("roles are not set")
	}

	roles := types.Roles{}

	err = json.Unmarshal(raw, &roles)
	if err != nil {
		return types.Roles{}, xerrors.Errorf("failed to unmarshal roles: %v", err)
	}

	return roles, nil
}

// GetSession returns the session record. Before any session has been opened
// it returns a record with the none status.
func GetSession(r store.Readable) (types.Session, error) {
	raw, err := r.Get(SessionKey)
	if err != nil {
		return types.Session{}, xerrors.Errorf("failed to read session: %v", err)
	}

	if len(raw) == 0 {
		return types.Session{Status: types.SessionNone}, nil
	}

	session := types.Session{}

	err = json.Unmarshal(raw, &session)
	if err != nil {
		return types.Session{}, xerrors.Errorf("failed to unmarshal session: %v", err)
	}

	return session, nil
}

// GetParty returns the party record of the identifier.
func GetParty(r store.Readable, id string) (types.Party, error) {
	raw, err := r.Get(PartyKey(id))
	if err != nil {
		return types.Party{}, xerrors.Errorf("failed to read party: %v", err)
	}

	if len(raw) == 0 {
		return types.Party{}, xerrors.Errorf("unknown party '%s'", id)
	}

	party := types.Party{}

	err = json.Unmarshal(raw, &party)
	if err != nil {
		return types.Party{}, xerrors.Errorf("failed to unmarshal party: %v", err)
	}

	return party, nil
}

// GetParties returns the party records in registration order.
func GetParties(r store.Readable) ([]types.Party, error) {
	list, err := getPartyList(r)
	if err != nil {
		return nil, err
	}

	parties := make([]types.Party, 0, len(list.IDs))

	for _, id := range list.IDs {
		party, err := GetParty(r, id)
		if err != nil {
			return nil, err
		}

		parties = append(parties, party)
	}

	return parties, nil
}

// GetTally returns the global tally of the ledger.
func GetTally(r store.Readable) (types.Tally, error) {
	raw, err := r.Get(TallyKey)
	if err != nil {
		return types.Tally{}, xerrors.Errorf("failed to read tally: %v", err)
	}

	if len(raw) == 0 {
		return types.Tally{}, nil
	}

	tally := types.Tally{}

	err = json.Unmarshal(raw, &tally)
	if err != nil {
		return types.Tally{}, xerrors.Errorf("failed to unmarshal tally: %v", err)
	}

	return tally, nil
}

// HasVoted reports whether the voter hash has already been recorded.
func HasVoted(r store.Readable, hash types.VoterHash) (bool, error) {
	raw, err := r.Get(VoteKey(hash))
	if err != nil {
		return false, xerrors.Errorf("failed to read vote: %v", err)
	}

	return len(raw) != 0, nil
}

// GetVote returns the vote record of the voter hash and whether it exists.
func GetVote(r store.Readable, hash types.VoterHash) (types.Vote, bool, error) {
	raw, err := r.Get(VoteKey(hash))
	if err != nil {
		return types.Vote{}, false, xerrors.Errorf("failed to read vote: %v", err)
	}

	if len(raw) == 0 {
		return types.Vote{}, false, nil
	}

	vote := types.Vote{}

	err = json.Unmarshal(raw, &vote)
	if err != nil {
		return types.Vote{}, false, xerrors.Errorf("failed to unmarshal vote: %v", err)
	}

	return vote, true, nil
}

// GetWinner returns the party with the most votes. Ties go to the party
// registered first. It reports no winner as long as no vote has been
// recorded.
func GetWinner(r store.Readable) (types.Party, bool, error) {
	parties, err := GetParties(r)
	if err != nil {
		return types.Party{}, false, err
	}

	winner := types.Party{}
	found := false
	total := uint64(0)

	for _, party := range parties {
		total += party.Votes

		if !found || party.Votes > winner.Votes {
			winner = party
			found = true
		}
	}

	if total == 0 {
		return types.Party{}, false, nil
	}

	return winner, true, nil
}

// TimeRemaining returns how long the current session still accepts votes at
// the given time.
func TimeRemaining(r store.Readable, now time.Time) (time.Duration, error) {
	session, err := GetSession(r)
	if err != nil {
		return 0, err
	}

	return session.Remaining(now), nil
}

func getPartyList(r store.Readable) (types.PartyList, error) {
	raw, err := r.Get(PartiesKey)
	if err != nil {
		return types.PartyList{}, xerrors.Errorf("failed to read parties: %v", err)
	}

	if len(raw) == 0 {
		return types.PartyList{}, nil
	}

	list := types.PartyList{}

	err = json.Unmarshal(raw, &list)
	if err != nil {
		return types.PartyList{}, xerrors.Errorf("failed to unmarshal parties: %v", err)
	}

	return list, nil
}

func storeRoles(snap store.Snapshot, roles types.Roles) error {
	buffer, err := json.Marshal(roles)
	if err != nil {
		return xerrors.Errorf("failed to marshal roles: %v", err)
	}

	err = snap.Set(RolesKey, buffer)
	if err != nil {
		return xerrors.Errorf("failed to store roles: %v", err)
	}

	return nil
}

func storeSession(snap store.Snapshot, session types.Session) error {
	buffer, err := json.Marshal(session)
	if err != nil {
		return xerrors.Errorf("failed to marshal session: %v", err)
	}

	err = snap.Set(SessionKey, buffer)
	if err != nil {
		return xerrors.Errorf("failed to store session: %v", err)
	}

	return nil
}

func storeParty(snap store.Snapshot, party types.Party) error {
	buffer, err := json.Marshal(party)
	if err != nil {
		return xerrors.Errorf("failed to marshal party: %v", err)
	}

	err = snap.Set(PartyKey(party.ID), buffer)
	if err != nil {
		return xerrors.Errorf("failed to store party: %v", err)
	}

	return nil
}

func storePartyList(snap store.Snapshot, list types.PartyList) error {
	buffer, err := json.Marshal(list)
	if err != nil {
		return xerrors.Errorf("failed to marshal parties: %v", err)
	}

	err = snap.Set(PartiesKey, buffer)
	if err != nil {
		return xerrors.Errorf("failed to store parties: %v", err)
	}

	return nil
}

func storeTally(snap store.Snapshot, tally types.Tally) error {
	buffer, err := json.Marshal(tally)
	if err != nil {
		return xerrors.Errorf("failed to marshal tally: %v", err)
	}

	err = snap.Set(TallyKey, buffer)
	if err != nil {
		return xerrors.Errorf("failed to store tally: %v", err)
	}

	return nil
}

func storeVote(snap store.Snapshot, hash types.VoterHash, vote types.Vote) error {
	buffer, err := json.Marshal(vote)
	if err != nil {
		return xerrors.Errorf("failed to marshal vote: %v", err)
	}

	err = snap.Set(VoteKey(hash), buffer)
	if err != nil {
		return xerrors.Errorf("failed to store vote: %v", err)
	}

	return nil
}
