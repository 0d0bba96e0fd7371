// Package access implements the native contract that manages the grants of
// the other contracts.
//
// A grant is a quadruplet {ID, CONTRACT, COMMAND, IDENTITIES}:
//
//	ID is the credential identifier, defined when the target contract is
//	created.
//	CONTRACT is the name of the target contract.
//	COMMAND is the command of the target contract the grant applies to.
//	IDENTITIES is a comma separated list of standard base64 encoded bls
//	public keys.
//
// The election deployment uses it once at bootstrap to hand the voting
// contract over to the owner of the election.
package access

import (
	"encoding/base64"
	"encoding/hex"
	"strings"

	"github.com/votela/votela"
	"github.com/votela/votela/core/access"
	"github.com/votela/votela/core/execution"
	"github.com/votela/votela/core/execution/native"
	"github.com/votela/votela/core/store"
	"github.com/votela/votela/crypto/bls"
	"golang.org/x/xerrors"
)

const (
	// ContractName is the name of the access contract.
	ContractName = "github.com/votela/votela.Access"

	// GrantIDArg is the argument that carries the hex encoded identifier of
	// the credential to grant.
	GrantIDArg = "access:grant_id"

	// GrantContractArg is the argument that carries the name of the
	// contract to grant the access to.
	GrantContractArg = "access:grant_contract"

	// GrantCommandArg is the argument that carries the command to grant
	// access to.
	GrantCommandArg = "access:grant_command"

	// IdentityArg is the argument that carries the identities to grant
	// access to.
	IdentityArg = "access:identity"

	// CmdArg is the argument that carries the command to run on the
	// contract. It must be one of the Command type.
	CmdArg = "access:command"

	// credentialAllCommand is the command of the credential that allows
	// every command of a contract.
	credentialAllCommand = "all"
)

// Command defines a command of the access contract.
type Command string

const (
	// CmdSet defines the command to grant access.
	CmdSet Command = "GRANT"
)

// NewCreds creates the credential of the access contract itself.
func NewCreds(id []byte) access.Credential {
	return access.NewContractCreds(id, ContractName, credentialAllCommand)
}

// RegisterContract registers the access contract to the given execution
// service.
func RegisterContract(exec *native.Service, c Contract) {
	exec.Set(ContractName, c)
}

// Contract manages the grants of the contracts of the ledger.
//
// - implements native.Contract
type Contract struct {
	// access is the access service the grants are written to.
	access access.Service

	// accessKey is the credential's ID allowed to use this contract.
	accessKey []byte

	store store.Readable
}

// NewContract creates a new access contract.
func NewContract(aKey []byte, srvc access.Service, store store.Readable) Contract {
	return Contract{
		access:    srvc,
		accessKey: aKey,
		store:     store,
	}
}

// Execute implements native.Contract. It checks that the transaction identity
// holds the credential of the contract before running the command.
func (c Contract) Execute(snap store.Snapshot, step execution.Step) error {
	creds := NewCreds(c.accessKey)

	err := c.access.Match(c.store, creds, step.Current.GetIdentity())
	if err != nil {
		return xerrors.Errorf("identity not authorized: %v (%v)", step.Current.GetIdentity(), err)
	}

	cmd := step.Current.GetArg(CmdArg)
	if len(cmd) == 0 {
		return xerrors.Errorf("'%s' not found in tx arg", CmdArg)
	}

	switch Command(cmd) {
	case CmdSet:
		err := c.grant(snap, step)
		if err != nil {
			return xerrors.Errorf("failed to SET: %v", err)
		}
	default:
		return xerrors.Errorf("access, unknown command: %s", cmd)
	}

	return nil
}

// grant performs the GRANT command. It writes the credential for every
// identity of the transaction.
func (c Contract) grant(snap store.Snapshot, step execution.Step) error {
	req, err := requestFromStep(step)
	if err != nil {
		return err
	}

	credential := access.NewContractCreds(req.id, req.contract, req.command)

	err = c.access.Grant(snap, credential, req.grantees...)
	if err != nil {
		return xerrors.Errorf("failed to grant: %v", err)
	}

	votela.Logger.Info().Str("contract", "access").Msgf("granted %x-%s-%s to %s",
		req.id, req.contract, req.command, req.grantees)

	return nil
}

// grantRequest is the decoded content of a GRANT transaction.
type grantRequest struct {
	id       []byte
	contract string
	command  string
	grantees []access.Identity
}

func requestFromStep(step execution.Step) (grantRequest, error) {
	req := grantRequest{}

	idHex := step.Current.GetArg(GrantIDArg)
	if len(idHex) == 0 {
		return req, xerrors.Errorf("'%s' not found in tx arg", GrantIDArg)
	}

	id, err := hex.DecodeString(string(idHex))
	if err != nil {
		return req, xerrors.Errorf("failed to decode id from tx arg: %v", err)
	}

	req.id = id

	contract := step.Current.GetArg(GrantContractArg)
	if len(contract) == 0 {
		return req, xerrors.Errorf("'%s' not found in tx arg", GrantContractArg)
	}

	req.contract = string(contract)

	command := step.Current.GetArg(GrantCommandArg)
	if len(command) == 0 {
		return req, xerrors.Errorf("'%s' not found in tx arg", GrantCommandArg)
	}

	req.command = string(command)

	grantees, err := parseIdentities(step.Current.GetArg(IdentityArg))
	if err != nil {
		if xerrors.Is(err, errMissing) {
			return req, xerrors.Errorf("'%s' not found in tx arg", IdentityArg)
		}

		return req, err
	}

	req.grantees = grantees

	return req, nil
}

var errMissing = xerrors.New("empty identity list")

// parseIdentities decodes a comma separated list of standard base64 encoded
// bls public keys.
func parseIdentities(arg []byte) ([]access.Identity, error) {
	base64IDs := strings.Split(string(arg), ",")
	if len(base64IDs) == 0 || len(base64IDs[0]) == 0 {
		return nil, errMissing
	}

	identities := make([]access.Identity, len(base64IDs))
	for i, base64ID := range base64IDs {
		identity, err := base64.StdEncoding.DecodeString(base64ID)
		if err != nil {
			return nil, xerrors.Errorf("failed to decode base64ID: %v", err)
		}

		pubKey, err := bls.NewPublicKey(identity)
		if err != nil {
			return nil, xerrors.Errorf("failed to get public key: %v", err)
		}

		identities[i] = pubKey
	}

	return identities, nil
}
