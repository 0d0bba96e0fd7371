// Package voting implements the native contract that holds the electoral
// state machine: the roles of the owner and the admins, the registered
// parties, the single voting session and the write-once vote set keyed by
// voter hash.
//
// Every command is checked against the access service of the node, then
// against the roles committed on the ledger. The CAST command is the only one
// that requires no role, so that the service identity can submit votes on
// behalf of verified voters.
package voting

import (
	"strconv"
	"time"

	"github.com/votela/votela"
	"github.com/votela/votela/contracts/voting/types"
	"github.com/votela/votela/core/access"
	"github.com/votela/votela/core/execution"
	"github.com/votela/votela/core/execution/native"
	"github.com/votela/votela/core/store"
	"golang.org/x/xerrors"
)

// commands defines the commands of the voting contract. This interface helps
// in testing the contract.
type commands interface {
	init(snap store.Snapshot, step execution.Step) error
	registerParty(snap store.Snapshot, step execution.Step) error
	setPartyStatus(snap store.Snapshot, step execution.Step) error
	openSession(snap store.Snapshot, step execution.Step) error
	closeSession(snap store.Snapshot, step execution.Step) error
	cast(snap store.Snapshot, step execution.Step) error
	transferOwner(snap store.Snapshot, step execution.Step) error
	grantAdmin(snap store.Snapshot, step execution.Step) error
	revokeAdmin(snap store.Snapshot, step execution.Step) error
}

const (
	// ContractName is the name of the contract.
	ContractName = "github.com/votela/votela.Voting"

	// CmdArg is the argument's name to indicate the kind of command we want
	// to run on the contract. Should be one of the Command type.
	CmdArg = "voting:command"

	// HashArg is the argument's name in the transaction that contains the
	// textual voter hash of a cast.
	HashArg = "voting:hash"

	// PartyArg is the argument's name in the transaction that contains a
	// party identifier.
	PartyArg = "voting:party"

	// NameArg is the argument's name in the transaction that contains the
	// display name of a party or a session.
	NameArg = "voting:name"

	// DescriptionArg is the argument's name in the transaction that contains
	// the description of a party. It is optional.
	DescriptionArg = "voting:description"

	// ActiveArg is the argument's name in the transaction that contains the
	// active flag of a party.
	ActiveArg = "voting:active"

	// StartArg is the argument's name in the transaction that contains the
	// RFC 3339 start time of a session.
	StartArg = "voting:start"

	// EndArg is the argument's name in the transaction that contains the
	// RFC 3339 end time of a session.
	EndArg = "voting:end"

	// IdentityArg is the argument's name in the transaction that contains the
	// identity targeted by a role command.
	IdentityArg = "voting:identity"

	// credentialAllCommand defines the credential command that is allowed to
	// perform all commands.
	credentialAllCommand = "all"
)

// Command defines a type of command for the voting contract.
type Command string

const (
	// CmdInit defines the command to seed the roles. It can run only once.
	CmdInit Command = "INIT"

	// CmdRegisterParty defines the command to register a party.
	CmdRegisterParty Command = "REGISTER_PARTY"

	// CmdSetPartyStatus defines the command to flip the active flag of a
	// party.
	CmdSetPartyStatus Command = "SET_PARTY_STATUS"

	// CmdOpenSession defines the command to open a voting session.
	CmdOpenSession Command = "OPEN_SESSION"

	// CmdCloseSession defines the command to close the active session.
	CmdCloseSession Command = "CLOSE_SESSION"

	// CmdCast defines the command to record a vote.
	CmdCast Command = "CAST"

	// CmdTransferOwner defines the command to replace the owner.
	CmdTransferOwner Command = "TRANSFER_OWNER"

	// CmdGrantAdmin defines the command to add an admin.
	CmdGrantAdmin Command = "GRANT_ADMIN"

	// CmdRevokeAdmin defines the command to remove an admin.
	CmdRevokeAdmin Command = "REVOKE_ADMIN"
)

// NewCreds creates new credentials for a voting contract execution.
func NewCreds(id []byte) access.Credential {
	return access.NewContractCreds(id, ContractName, credentialAllCommand)
}

// RegisterContract registers the voting contract to the given execution
// service.
func RegisterContract(exec *native.Service, c Contract) {
	exec.Set(ContractName, c)
}

// Contract is the smart contract at the heart of the election. It keeps the
// parties, the session and the votes on the ledger, and enforces that a voter
// hash is recorded at most once.
//
// - implements native.Contract
type Contract struct {
	// access is the access control service managing this smart contract
	access access.Service

	// accessKey is the access identifier allowed to use this smart contract
	accessKey []byte

	// cmd provides the commands that can be executed by this smart contract
	cmd commands
}

// NewContract creates a new voting contract.
func NewContract(aKey []byte, srvc access.Service) Contract {
	contract := Contract{
		access:    srvc,
		accessKey: aKey,
	}

	contract.cmd = votingCommand{Contract: &contract}

	return contract
}

// Execute implements native.Contract. It runs the appropriate command.
func (c Contract) Execute(snap store.Snapshot, step execution.Step) error {
	creds := NewCreds(c.accessKey)

	err := c.access.Match(snap, creds, step.Current.GetIdentity())
	if err != nil {
		return xerrors.Errorf("identity not authorized: %v (%v)",
			step.Current.GetIdentity(), err)
	}

	cmd := step.Current.GetArg(CmdArg)
	if len(cmd) == 0 {
		return xerrors.Errorf("'%s' not found in tx arg", CmdArg)
	}

	switch Command(cmd) {
	case CmdInit:
		err := c.cmd.init(snap, step)
		if err != nil {
			return xerrors.Errorf("failed to INIT: %v", err)
		}
	case CmdRegisterParty:
		err := c.cmd.registerParty(snap, step)
		if err != nil {
			return xerrors.Errorf("failed to REGISTER_PARTY: %v", err)
		}
	case CmdSetPartyStatus:
		err := c.cmd.setPartyStatus(snap, step)
		if err != nil {
			return xerrors.Errorf("failed to SET_PARTY_STATUS: %v", err)
		}
	case CmdOpenSession:
		err := c.cmd.openSession(snap, step)
		if err != nil {
			return xerrors.Errorf("failed to OPEN_SESSION: %v", err)
		}
	case CmdCloseSession:
		err := c.cmd.closeSession(snap, step)
		if err != nil {
			return xerrors.Errorf("failed to CLOSE_SESSION: %v", err)
		}
	case CmdCast:
		err := c.cmd.cast(snap, step)
		if err != nil {
			return xerrors.Errorf("failed to CAST: %v", err)
		}
	case CmdTransferOwner:
		err := c.cmd.transferOwner(snap, step)
		if err != nil {
			return xerrors.Errorf("failed to TRANSFER_OWNER: %v", err)
		}
	case CmdGrantAdmin:
		err := c.cmd.grantAdmin(snap, step)
		if err != nil {
			return xerrors.Errorf("failed to GRANT_ADMIN: %v", err)
		}
	case CmdRevokeAdmin:
		err := c.cmd.revokeAdmin(snap, step)
		if err != nil {
			return xerrors.Errorf("failed to REVOKE_ADMIN: %v", err)
		}
	default:
		return xerrors.Errorf("unknown command: %s", cmd)
	}

	return nil
}

// votingCommand implements the commands of the voting contract.
//
// - implements commands
type votingCommand struct {
	*Contract
}

// init implements commands. It seeds the roles with the identity that signed
// the transaction and writes the empty party list and the zero tally. It
// fails if the roles are already set.
func (c votingCommand) init(snap store.Snapshot, step execution.Step) error {
	raw, err := snap.Get(RolesKey)
	if err != nil {
		return xerrors.Errorf("failed to read roles: %v", err)
	}

	if len(raw) != 0 {
		return xerrors.New("roles are already set")
	}

	ident, err := identityOf(step)
	if err != nil {
		return err
	}

	err = storeRoles(snap, types.Roles{Owner: ident})
	if err != nil {
		return err
	}

	err = storePartyList(snap, types.PartyList{})
	if err != nil {
		return err
	}

	err = storeTally(snap, types.Tally{})
	if err != nil {
		return err
	}

	votela.Logger.Info().Str("contract", ContractName).
		Msgf("ledger initialized with owner %s", ident)

	return nil
}

// registerParty implements commands. It appends a new party to the list,
// active and with the next registration index.
func (c votingCommand) registerParty(snap store.Snapshot, step execution.Step) error {
	err := c.requireAdmin(snap, step)
	if err != nil {
		return err
	}

	id := string(step.Current.GetArg(PartyArg))
	if id == "" {
		return xerrors.Errorf("'%s' not found in tx arg", PartyArg)
	}

	name := string(step.Current.GetArg(NameArg))
	if name == "" {
		return xerrors.Errorf("'%s' not found in tx arg", NameArg)
	}

	raw, err := snap.Get(PartyKey(id))
	if err != nil {
		return xerrors.Errorf("failed to read party: %v", err)
	}

	if len(raw) != 0 {
		return xerrors.Errorf("party '%s' already exists", id)
	}

	list, err := getPartyList(snap)
	if err != nil {
		return err
	}

	party := types.Party{
		ID:          id,
		Name:        name,
		Description: string(step.Current.GetArg(DescriptionArg)),
		Active:      true,
		Index:       uint64(len(list.IDs) + 1),
	}

	err = storeParty(snap, party)
	if err != nil {
		return err
	}

	list.IDs = append(list.IDs, id)

	err = storePartyList(snap, list)
	if err != nil {
		return err
	}

	votela.Logger.Info().Str("contract", ContractName).
		Msgf("party '%s' registered at index %d", id, party.Index)

	return nil
}

// setPartyStatus implements commands. It flips the active flag of a party
// and leaves its count untouched.
func (c votingCommand) setPartyStatus(snap store.Snapshot, step execution.Step) error {
	err := c.requireAdmin(snap, step)
	if err != nil {
		return err
	}

	id := string(step.Current.GetArg(PartyArg))
	if id == "" {
		return xerrors.Errorf("'%s' not found in tx arg", PartyArg)
	}

	raw := step.Current.GetArg(ActiveArg)
	if len(raw) == 0 {
		return xerrors.Errorf("'%s' not found in tx arg", ActiveArg)
	}

	active, err := strconv.ParseBool(string(raw))
	if err != nil {
		return xerrors.Errorf("couldn't parse active flag: %v", err)
	}

	party, err := GetParty(snap, id)
	if err != nil {
		return err
	}

	party.Active = active

	return storeParty(snap, party)
}

// openSession implements commands. It opens a new session when none is
// active, with a half-open [start, end) window.
func (c votingCommand) openSession(snap store.Snapshot, step execution.Step) error {
	err := c.requireAdmin(snap, step)
	if err != nil {
		return err
	}

	name := string(step.Current.GetArg(NameArg))
	if name == "" {
		return xerrors.Errorf("'%s' not found in tx arg", NameArg)
	}

	start, err := parseTimeArg(step, StartArg)
	if err != nil {
		return err
	}

	end, err := parseTimeArg(step, EndArg)
	if err != nil {
		return err
	}

	if !end.After(start) {
		return xerrors.New("session end must be after its start")
	}

	current, err := GetSession(snap)
	if err != nil {
		return err
	}

	if current.Status == types.SessionActive {
		return xerrors.New("a session is already active")
	}

	session := types.Session{
		Index:  current.Index + 1,
		Name:   name,
		Start:  start,
		End:    end,
		Status: types.SessionActive,
	}

	err = storeSession(snap, session)
	if err != nil {
		return err
	}

	votela.Logger.Info().Str("contract", ContractName).
		Msgf("session %d '%s' opened until %s", session.Index, name,
			end.Format(time.RFC3339))

	return nil
}

// closeSession implements commands. It moves the active session to ended,
// even before its end time.
func (c votingCommand) closeSession(snap store.Snapshot, step execution.Step) error {
	err := c.requireAdmin(snap, step)
	if err != nil {
		return err
	}

	session, err := GetSession(snap)
	if err != nil {
		return err
	}

	if session.Status != types.SessionActive {
		return xerrors.New("no session is active")
	}

	session.Status = types.SessionEnded

	err = storeSession(snap, session)
	if err != nil {
		return err
	}

	votela.Logger.Info().Str("contract", ContractName).
		Msgf("session %d closed with %d votes", session.Index, session.Votes)

	return nil
}

// cast implements commands. It records the vote of a voter hash for a party
// and bumps the party, session and global counters. The hash can be recorded
// at most once over the lifetime of the ledger, whatever later sessions do.
func (c votingCommand) cast(snap store.Snapshot, step execution.Step) error {
	raw := step.Current.GetArg(HashArg)
	if len(raw) == 0 {
		return xerrors.Errorf("'%s' not found in tx arg", HashArg)
	}

	hash, err := types.ParseVoterHash(string(raw))
	if err != nil {
		return xerrors.Errorf("couldn't parse voter hash: %v", err)
	}

	if hash.IsZero() {
		return xerrors.New("voter hash is zero")
	}

	id := string(step.Current.GetArg(PartyArg))
	if id == "" {
		return xerrors.Errorf("'%s' not found in tx arg", PartyArg)
	}

	session, err := GetSession(snap)
	if err != nil {
		return err
	}

	if !session.IsOpenAt(step.Timestamp) {
		return xerrors.Errorf("no session open at %s",
			step.Timestamp.Format(time.RFC3339))
	}

	party, err := GetParty(snap, id)
	if err != nil {
		return err
	}

	if !party.Active {
		return xerrors.Errorf("party '%s' is inactive", id)
	}

	voted, err := HasVoted(snap, hash)
	if err != nil {
		return err
	}

	if voted {
		return xerrors.Errorf("voter %s has already voted", hash)
	}

	err = storeVote(snap, hash, types.Vote{Party: id, Timestamp: step.Timestamp})
	if err != nil {
		return err
	}

	party.Votes++

	err = storeParty(snap, party)
	if err != nil {
		return err
	}

	session.Votes++

	err = storeSession(snap, session)
	if err != nil {
		return err
	}

	tally, err := GetTally(snap)
	if err != nil {
		return err
	}

	tally.Total++

	err = storeTally(snap, tally)
	if err != nil {
		return err
	}

	votela.Logger.Info().Str("contract", ContractName).
		Msgf("vote %s recorded for party '%s'", hash, id)

	return nil
}

// transferOwner implements commands. It replaces the singular owner.
func (c votingCommand) transferOwner(snap store.Snapshot, step execution.Step) error {
	roles, err := c.requireOwner(snap, step)
	if err != nil {
		return err
	}

	target := string(step.Current.GetArg(IdentityArg))
	if target == "" {
		return xerrors.Errorf("'%s' not found in tx arg", IdentityArg)
	}

	previous := roles.Owner
	roles.Owner = target

	err = storeRoles(snap, roles)
	if err != nil {
		return err
	}

	votela.Logger.Info().Str("contract", ContractName).
		Msgf("ownership transferred from %s to %s", previous, target)

	return nil
}

// grantAdmin implements commands. It adds an identity to the admin set.
func (c votingCommand) grantAdmin(snap store.Snapshot, step execution.Step) error {
	roles, err := c.requireOwner(snap, step)
	if err != nil {
		return err
	}

	target := string(step.Current.GetArg(IdentityArg))
	if target == "" {
		return xerrors.Errorf("'%s' not found in tx arg", IdentityArg)
	}

	roles.Grant(target)

	return storeRoles(snap, roles)
}

// revokeAdmin implements commands. It removes an identity from the admin
// set.
func (c votingCommand) revokeAdmin(snap store.Snapshot, step execution.Step) error {
	roles, err := c.requireOwner(snap, step)
	if err != nil {
		return err
	}

	target := string(step.Current.GetArg(IdentityArg))
	if target == "" {
		return xerrors.Errorf("'%s' not found in tx arg", IdentityArg)
	}

	if !roles.Revoke(target) {
		return xerrors.Errorf("'%s' is not an admin", target)
	}

	return storeRoles(snap, roles)
}

// requireAdmin returns an error unless the transaction identity is the owner
// or one of the admins committed on the ledger.
func (c votingCommand) requireAdmin(snap store.Snapshot, step execution.Step) error {
	ident, err := identityOf(step)
	if err != nil {
		return err
	}

	roles, err := GetRoles(snap)
	if err != nil {
		return err
	}

	if !roles.CanAdministrate(ident) {
		return xerrors.Errorf("'%s' is neither owner nor admin", ident)
	}

	return nil
}

// requireOwner returns the roles when the transaction identity is the owner,
// an error otherwise.
func (c votingCommand) requireOwner(snap store.Snapshot, step execution.Step) (types.Roles, error) {
	ident, err := identityOf(step)
	if err != nil {
		return types.Roles{}, err
	}

	roles, err := GetRoles(snap)
	if err != nil {
		return types.Roles{}, err
	}

	if !roles.IsOwner(ident) {
		return types.Roles{}, xerrors.Errorf("'%s' is not the owner", ident)
	}

	return roles, nil
}

// identityOf returns the textual form of the identity that signed the
// current transaction.
func identityOf(step execution.Step) (string, error) {
	ident := step.Current.GetIdentity()
	if ident == nil {
		return "", xerrors.New("transaction has no identity")
	}

	text, err := ident.MarshalText()
	if err != nil {
		return "", xerrors.Errorf("couldn't marshal identity: %v", err)
	}

	return string(text), nil
}

// parseTimeArg reads an RFC 3339 time from the transaction arguments.
func parseTimeArg(step execution.Step, arg string) (time.Time, error) {
	raw := step.Current.GetArg(arg)
	if len(raw) == 0 {
		return time.Time{}, xerrors.Errorf("'%s' not found in tx arg", arg)
	}

	when, err := time.Parse(time.RFC3339, string(raw))
	if err != nil {
		return time.Time{}, xerrors.Errorf("couldn't parse '%s': %v", arg, err)
	}

	return when, nil
}
