// Package native implements the execution service for the contracts compiled
// with the node.
//
// The ledger runs a closed set of contracts. Each of them registers under a
// unique name and a transaction picks one with its contract argument.
package native

import (
	"github.com/votela/votela/core/execution"
	"github.com/votela/votela/core/store"
	"golang.org/x/xerrors"
)

const (
	// ContractArg is the argument key in the transaction to look up a contract.
	ContractArg = "github.com/votela/votela.ContractArg"
)

// Contract is the interface to implement to register a contract executed
// natively by the node.
type Contract interface {
	Execute(store.Snapshot, execution.Step) error
}

// Service looks up and runs the registered contracts. A contract has complete
// access to the snapshot and updates it directly.
//
// - implements execution.Service
type Service struct {
	contracts map[string]Contract
}

// NewExecution returns an execution service with no contract registered yet.
func NewExecution() *Service {
	return &Service{
		contracts: map[string]Contract{},
	}
}

// Set registers the contract under the given name. A transaction triggers it
// by carrying the name in its contract argument.
func (ns *Service) Set(name string, contract Contract) {
	ns.contracts[name] = contract
}

// Execute implements execution.Service. It runs the contract named by the
// transaction on the snapshot. A contract failure rejects the transaction but
// does not abort the batch.
func (ns *Service) Execute(snap store.Snapshot, step execution.Step) (execution.Result, error) {
	name := string(step.Current.GetArg(ContractArg))

	contract := ns.contracts[name]
	if contract == nil {
		return execution.Result{}, xerrors.Errorf("unknown contract '%s'", name)
	}

	res := execution.Result{
		Accepted: true,
	}

	err := contract.Execute(snap, step)
	if err != nil {
		res.Accepted = false
		res.Message = err.Error()
	}

	return res, nil
}
