package access

// ContractCredential is the credential attached to a command of a contract.
// The rule is derived from the contract name and the command, so that a grant
// targets one command and not the whole contract.
type ContractCredential struct {
	id       []byte
	contract string
	command  string
}

// NewContractCreds creates a credential for the command of the contract,
// stored under the given identifier.
func NewContractCreds(id []byte, contract, command string) ContractCredential {
	return ContractCredential{
		id:       id,
		contract: contract,
		command:  command,
	}
}

// GetID implements access.Credential. It returns a copy of the identifier of
// the credential.
func (cc ContractCredential) GetID() []byte {
	return append([]byte{}, cc.id...)
}

// GetRule implements access.Credential. It returns the rule compiled from the
// contract name and the command.
func (cc ContractCredential) GetRule() string {
	return Compile(cc.contract, cc.command)
}
