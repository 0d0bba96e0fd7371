package controller

import (
	"net"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/votela/votela/cli"
	"github.com/votela/votela/cli/node"
	"github.com/votela/votela/core/ordering"
	"github.com/votela/votela/core/store"
	"github.com/votela/votela/core/store/kv"
	"github.com/votela/votela/core/txn"
	"github.com/votela/votela/core/txn/pool"
	"github.com/votela/votela/internal/testing/fake"
	"github.com/votela/votela/registry"
	"github.com/votela/votela/web"
)

func TestMiniController_SetCommands(t *testing.T) {
	ctrl := NewController()

	call := &fake.Call{}
	ctrl.SetCommands(fakeBuilder{call: call})

	require.Equal(t, 7, call.Len())
}

func TestMiniController_OnStart(t *testing.T) {
	ctrl := NewController()

	inj := node.NewInjector()

	err := ctrl.OnStart(node.FlagSet{}, inj)
	require.EqualError(t, err,
		"injector: couldn't find dependency for 'proxy.Proxy'")

	p := &fakeProxy{}
	inj.Inject(p)

	err = ctrl.OnStart(node.FlagSet{}, inj)
	require.EqualError(t, err,
		"injector: couldn't find dependency for '*registry.Registry'")

	inj.Inject(makeTestRegistry(t))

	err = ctrl.OnStart(node.FlagSet{}, inj)
	require.EqualError(t, err,
		"injector: couldn't find dependency for 'ordering.Service'")

	inj.Inject(fakeOrdering{store: fake.NewSnapshot()})

	err = ctrl.OnStart(node.FlagSet{}, inj)
	require.EqualError(t, err,
		"injector: couldn't find dependency for 'txn.Manager'")

	inj.Inject(fakeManager{})

	err = ctrl.OnStart(node.FlagSet{}, inj)
	require.EqualError(t, err,
		"injector: couldn't find dependency for 'pool.Pool'")

	inj.Inject(fakePool{})

	err = ctrl.OnStart(node.FlagSet{}, inj)
	require.NoError(t, err)

	require.Equal(t, []string{"/evoting/api/", "/health"}, p.paths)

	var srv *web.Service
	require.NoError(t, inj.Resolve(&srv))

	var tokens *web.TokenIssuer
	require.NoError(t, inj.Resolve(&tokens))
}

func TestMiniController_OnStop(t *testing.T) {
	ctrl := NewController()

	require.NoError(t, ctrl.OnStop(node.NewInjector()))
}

// -----------------------------------------------------------------------------
// Utility functions

func makeTestRegistry(t *testing.T) *registry.Registry {
	t.Helper()

	db, err := kv.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })

	return registry.NewRegistry(db, "salt")
}

type fakeProxy struct {
	paths []string
}

func (p *fakeProxy) Listen() {}

func (p *fakeProxy) Stop() {}

func (p *fakeProxy) GetAddr() net.Addr {
	return nil
}

func (p *fakeProxy) RegisterHandler(path string,
	handler func(http.ResponseWriter, *http.Request)) {

	p.paths = append(p.paths, path)
}

type fakeOrdering struct {
	ordering.Service

	store store.Readable
}

func (f fakeOrdering) GetStore() store.Readable {
	return f.store
}

type fakeManager struct {
	txn.Manager
}

type fakePool struct {
	pool.Pool
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
