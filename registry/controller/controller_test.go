package controller

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/votela/votela/cli"
	"github.com/votela/votela/cli/node"
	"github.com/votela/votela/core/ordering"
	"github.com/votela/votela/core/store/kv"
	"github.com/votela/votela/internal/testing/fake"
	"github.com/votela/votela/registry"
)

func TestSetCommands(t *testing.T) {
	ctrl := NewController()

	call := &fake.Call{}
	ctrl.SetCommands(fakeBuilder{call: call})

	require.Equal(t, 12, call.Len())
}

func TestOnStart(t *testing.T) {
	injector := node.NewInjector()

	ctrl := NewController()
	err := ctrl.OnStart(node.FlagSet{}, injector)
	require.EqualError(t, err, "injector: couldn't find dependency for 'kv.DB'")

	db, err := kv.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	defer db.Close()

	injector.Inject(db)

	err = ctrl.OnStart(node.FlagSet{}, injector)
	require.EqualError(t, err, "injector: couldn't find dependency for 'ordering.Service'")

	injector.Inject(fakeOrdering{})

	err = ctrl.OnStart(node.FlagSet{}, injector)
	require.NoError(t, err)

	var reg *registry.Registry
	require.NoError(t, injector.Resolve(&reg))

	require.NoError(t, ctrl.OnStop(nil))
}

func TestOnStart_Mailers(t *testing.T) {
	injector := node.NewInjector()

	db, err := kv.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	defer db.Close()

	injector.Inject(db)
	injector.Inject(fakeOrdering{})

	t.Setenv("VOTELA_MAILER", "webhook")

	err = NewController().OnStart(node.FlagSet{}, injector)
	require.EqualError(t, err, "mailer url is required for the webhook mailer")

	t.Setenv("VOTELA_MAILER_URL", "http://localhost:7357/otp")

	ctrl := NewController()
	err = ctrl.OnStart(node.FlagSet{}, injector)
	require.NoError(t, err)
	require.NoError(t, ctrl.OnStop(nil))

	t.Setenv("VOTELA_MAILER", "pigeon")

	err = NewController().OnStart(node.FlagSet{}, injector)
	require.EqualError(t, err, "unknown mailer 'pigeon'")
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
}

func (f fakeOrdering) Watch(ctx context.Context) <-chan ordering.Event {
	events := make(chan ordering.Event)

	go func() {
		<-ctx.Done()
		close(events)
	}()

	return events
}
