package controller

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/votela/votela/cli/node"
	"github.com/votela/votela/core/txn"
	"github.com/votela/votela/core/txn/pool"
	"github.com/votela/votela/core/txn/pool/mem"
	"github.com/votela/votela/core/txn/signed"
	"github.com/votela/votela/crypto"
	"github.com/votela/votela/crypto/bls"
	"github.com/votela/votela/internal/testing/fake"
)

func TestAddAction_Execute(t *testing.T) {
	action := addAction{client: &localClient{}}

	ctx := node.Context{
		Injector: node.NewInjector(),
		Flags:    make(node.FlagSet),
		Out:      io.Discard,
	}

	fset := ctx.Flags.(node.FlagSet)
	fset["args"] = []interface{}{"voting:party", "azure"}

	ctx.Injector.Inject(mem.NewPool())

	data, err := bls.NewSigner().MarshalBinary()
	require.NoError(t, err)

	keyFile := filepath.Join(t.TempDir(), "node.key")
	require.NoError(t, os.WriteFile(keyFile, data, 0600))

	fset[signerFlag] = keyFile

	err = action.Execute(ctx)
	require.NoError(t, err)

	p := mem.NewPool()
	ctx.Injector.Inject(p)

	fset[nonceFlag] = float64(42)

	err = action.Execute(ctx)
	require.NoError(t, err)

	txs := p.Gather(context.Background(), pool.Config{Min: 1})
	require.Len(t, txs, 1)
	require.Equal(t, uint64(42), txs[0].GetNonce())
	require.Equal(t, []byte("azure"), txs[0].GetArg("voting:party"))
}

func TestAddAction_Execute_Failures(t *testing.T) {
	action := addAction{client: &localClient{}}

	ctx := node.Context{
		Injector: node.NewInjector(),
		Flags:    make(node.FlagSet),
		Out:      io.Discard,
	}

	fset := ctx.Flags.(node.FlagSet)
	fset["args"] = []interface{}{"voting:party", "azure"}

	ctx.Injector.Inject(&badPool{})

	data, err := bls.NewSigner().MarshalBinary()
	require.NoError(t, err)

	keyFile := filepath.Join(t.TempDir(), "node.key")
	require.NoError(t, os.WriteFile(keyFile, data, 0600))

	fset[signerFlag] = keyFile

	err = action.Execute(ctx)
	require.EqualError(t, err, "failed to include tx: "+fake.Err("failed to add"))

	oldManager := getManager
	defer func() { getManager = oldManager }()

	getManager = func(c crypto.Signer, s signed.Client) txn.Manager {
		return badManager{}
	}

	err = action.Execute(ctx)
	require.EqualError(t, err, "creating transaction: "+fake.Err("make fail"))

	getManager = func(c crypto.Signer, s signed.Client) txn.Manager {
		return badManager{failSync: true}
	}

	err = action.Execute(ctx)
	require.EqualError(t, err, "failed to sync manager: "+fake.Err("sync fail"))

	require.NoError(t, os.WriteFile(keyFile, []byte("bad signer"), 0600))

	err = action.Execute(ctx)
	require.EqualError(t, err, "failed to get signer: failed to unmarshal signer: "+
		"while unmarshaling scalar: UnmarshalBinary: wrong size buffer")

	fset[signerFlag] = "/not/exist"

	err = action.Execute(ctx)
	// The exact message depends on the platform.
	require.Regexp(t,
		"^failed to get signer: failed to load signer: while opening file: open /not/exist:",
		err.Error())

	fset["args"] = []interface{}{"voting:party"}

	err = action.Execute(ctx)
	require.EqualError(t, err, "failed to get args: number of args should be even")

	ctx.Injector = node.NewInjector()
	err = action.Execute(ctx)
	require.EqualError(t, err, "injector: couldn't find dependency for 'pool.Pool'")
}

// -----------------------------------------------------------------------------
// Utility functions

type badPool struct {
	pool.Pool
}

func (p *badPool) Add(txn.Transaction) error {
	return errors.New(fake.Err("failed to add"))
}

type badManager struct {
	txn.Manager

	failSync bool
}

func (m badManager) Sync() error {
	if m.failSync {
		return errors.New(fake.Err("sync fail"))
	}

	return nil
}

func (m badManager) Make(args ...txn.Arg) (txn.Transaction, error) {
	return nil, errors.New(fake.Err("make fail"))
}
