package controller

import (
	"sync"

	"github.com/votela/votela/cli/node"
	"github.com/votela/votela/core/txn"
	"github.com/votela/votela/core/txn/pool"
	"github.com/votela/votela/core/txn/signed"
	"github.com/votela/votela/crypto"
	"github.com/votela/votela/crypto/bls"
	"github.com/votela/votela/crypto/loader"
	"golang.org/x/xerrors"
)

// getManager builds the transaction manager of the action. The tests replace
// it to inject a failing manager.
var getManager = func(signer crypto.Signer, s signed.Client) txn.Manager {
	return signed.NewManager(signer, s)
}

// addAction submits a transaction built from the command line to the pool.
//
// - implements node.ActionTemplate
type addAction struct {
	mu sync.Mutex

	client *localClient
}

// Execute implements node.ActionTemplate. It creates a signed transaction
// from the flags and adds it to the pool.
func (a *addAction) Execute(ctx node.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var p pool.Pool
	err := ctx.Injector.Resolve(&p)
	if err != nil {
		return xerrors.Errorf("injector: %v", err)
	}

	tx, err := a.makeTx(ctx)
	if err != nil {
		return err
	}

	err = p.Add(tx)
	if err != nil {
		return xerrors.Errorf("failed to include tx: %v", err)
	}

	return nil
}

// makeTx builds and signs the transaction described by the flags.
func (a *addAction) makeTx(ctx node.Context) (txn.Transaction, error) {
	args, err := getArgs(ctx)
	if err != nil {
		return nil, xerrors.Errorf("failed to get args: %v", err)
	}

	signer, err := getSigner(ctx)
	if err != nil {
		return nil, xerrors.Errorf("failed to get signer: %v", err)
	}

	nonce := ctx.Flags.Int(nonceFlag)
	if nonce >= 0 {
		a.client.nonce = uint64(nonce)
	}

	manager := getManager(signer, a.client)

	err = manager.Sync()
	if err != nil {
		return nil, xerrors.Errorf("failed to sync manager: %v", err)
	}

	tx, err := manager.Make(args...)
	if err != nil {
		return nil, xerrors.Errorf("creating transaction: %v", err)
	}

	return tx, nil
}

// getArgs reads the transaction arguments from the flags. The values arrive
// as a flat list alternating keys and values.
func getArgs(ctx node.Context) ([]txn.Arg, error) {
	raw := ctx.Flags.StringSlice("args")
	if len(raw)%2 != 0 {
		return nil, xerrors.New("number of args should be even")
	}

	args := make([]txn.Arg, 0, len(raw)/2)
	for i := 0; i < len(raw); i += 2 {
		args = append(args, txn.Arg{Key: raw[i], Value: []byte(raw[i+1])})
	}

	return args, nil
}

// getSigner loads the signer of the transaction from the keyfile named by the
// flags.
func getSigner(ctx node.Context) (crypto.Signer, error) {
	data, err := loader.NewFileLoader(ctx.Flags.Path(signerFlag)).Load()
	if err != nil {
		return nil, xerrors.Errorf("failed to load signer: %v", err)
	}

	signer, err := bls.NewSignerFromBytes(data)
	if err != nil {
		return nil, xerrors.Errorf("failed to unmarshal signer: %v", err)
	}

	return signer, nil
}
