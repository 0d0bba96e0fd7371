package controller

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/votela/votela/cli"
	"github.com/votela/votela/cli/node"
	"github.com/votela/votela/core/ordering"
	"github.com/votela/votela/core/store"
	"github.com/votela/votela/core/store/kv"
	"github.com/votela/votela/evm"
	"github.com/votela/votela/internal/testing/fake"
	"github.com/votela/votela/registry"
)

// Well-known development key.
const testKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

const testContract = "0x5FbDB2315678afecb367f032d93F642f64180aa3"

func TestSetCommands(t *testing.T) {
	ctrl := NewController()

	call := &fake.Call{}
	ctrl.SetCommands(fakeBuilder{call: call})

	require.Equal(t, 11, call.Len())
}

func TestOnStart_Disabled(t *testing.T) {
	injector := node.NewInjector()

	ctrl := NewController()
	err := ctrl.OnStart(node.FlagSet{}, injector)
	require.NoError(t, err)

	var client *evm.Client
	err = injector.Resolve(&client)
	require.Error(t, err)

	require.NoError(t, ctrl.OnStop(nil))
}

func TestOnStart(t *testing.T) {
	t.Setenv("VOTELA_CHAIN_RPC", "http://localhost:8545")
	t.Setenv("VOTELA_CHAIN_CONTRACT", testContract)
	t.Setenv("VOTELA_CHAIN_KEY", testKey)

	injector := node.NewInjector()

	ctrl := NewController()
	err := ctrl.OnStart(node.FlagSet{}, injector)
	require.EqualError(t, err,
		"injector: couldn't find dependency for '*registry.Registry'")

	db, err := kv.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	defer db.Close()

	injector.Inject(registry.NewRegistry(db, "salt"))

	err = ctrl.OnStart(node.FlagSet{}, injector)
	require.EqualError(t, err,
		"injector: couldn't find dependency for 'ordering.Service'")

	injector.Inject(fakeOrdering{})

	err = ctrl.OnStart(node.FlagSet{}, injector)
	require.NoError(t, err)

	var client *evm.Client
	require.NoError(t, injector.Resolve(&client))

	require.NoError(t, ctrl.OnStop(nil))
}

func TestOnStart_BadSettings(t *testing.T) {
	t.Setenv("VOTELA_CHAIN_RPC", "http://localhost:8545")
	t.Setenv("VOTELA_CHAIN_CONTRACT", "oops")

	err := NewController().OnStart(node.FlagSet{}, node.NewInjector())
	require.EqualError(t, err,
		"failed to create client: invalid contract address 'oops'")
}

func TestOnStop(t *testing.T) {
	ctrl := NewController()

	err := ctrl.OnStop(nil)
	require.NoError(t, err)
}

// -----------------------------------------------------------------------------
// Utility functions

type fakeCommandBuilder struct {
	call *fake.Call
}

func (b fakeCommandBuilder) SetSubCommand(name string) cli.CommandBuilder {
	b.call.Add(name)
	return b
}

func (b fakeCommandBuilder) SetDescription(value string) {
	b.call.Add(value)
}

func (b fakeCommandBuilder) SetFlags(flags ...cli.Flag) {
	b.call.Add(flags)
}

func (b fakeCommandBuilder) SetAction(a cli.Action) {
	b.call.Add(a)
}

type fakeBuilder struct {
	call *fake.Call
}

func (b fakeBuilder) SetCommand(name string) cli.CommandBuilder {
	b.call.Add(name)
	return fakeCommandBuilder(b)
}

func (b fakeBuilder) SetStartFlags(flags ...cli.Flag) {
	b.call.Add(flags)
}

func (b fakeBuilder) MakeAction(tmpl node.ActionTemplate) cli.Action {
	b.call.Add(tmpl)
	return nil
}

type fakeOrdering struct {
	ordering.Service

	store store.Readable
}

func (f fakeOrdering) GetStore() store.Readable {
	return f.store
}

func (f fakeOrdering) Watch(ctx context.Context) <-chan ordering.Event {
	events := make(chan ordering.Event)

	go func() {
		<-ctx.Done()
		close(events)
	}()

	return events
}
