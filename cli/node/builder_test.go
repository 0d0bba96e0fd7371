package node

import (
	"bytes"
	"flag"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/stretchr/testify/require"
	ucli "github.com/urfave/cli/v2"
	"github.com/votela/votela/cli"
	"github.com/votela/votela/internal/testing/fake"
	"golang.org/x/xerrors"
)

func TestCLIBuilder_SetCommand(t *testing.T) {
	builder := NewBuilder()

	cmd := builder.SetCommand("roles")
	require.NotNil(t, cmd)
}

func TestCLIBuilder_SetStartFlags(t *testing.T) {
	builder := NewBuilder()

	builder.SetStartFlags(cli.StringFlag{}, cli.IntFlag{})
	require.Len(t, builder.startFlags, 2)
}

func TestCLIBuilder_Start(t *testing.T) {
	builder := NewBuilder(fakeInitializer{})
	builder.sigs <- syscall.SIGTERM

	fset := make(FlagSet)
	fset["config"] = t.TempDir()

	err := builder.start(fset)
	require.NoError(t, err)

	// A file in place of the config directory makes the mkdir fail.
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, []byte{}, 0600))

	fset["config"] = filepath.Join(file, "sub")
	err = builder.start(fset)
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to create config folder: mkdir ")

	fset["config"] = ""

	builder.daemonFactory = fakeFactory{err: xerrors.New("oops")}
	err = builder.start(fset)
	require.EqualError(t, err, "failed to create daemon: oops")

	builder.daemonFactory = fakeFactory{errDaemon: xerrors.New("oops")}
	err = builder.start(fset)
	require.EqualError(t, err, "failed to start daemon: oops")

	builder = NewBuilder(fakeInitializer{err: xerrors.New("oops")})
	builder.daemonFactory = fakeFactory{}
	builder.sigs <- syscall.SIGTERM

	err = builder.start(fset)
	require.EqualError(t, err, "failed to start controller: oops")

	builder = NewBuilder(fakeInitializer{errStop: xerrors.New("oops")})
	builder.daemonFactory = fakeFactory{}
	builder.sigs <- syscall.SIGTERM

	err = builder.start(fset)
	require.EqualError(t, err, "failed to stop controller: oops")
}

func TestCLIBuilder_Start_StopOrder(t *testing.T) {
	calls := &fake.Call{}

	sigs := make(chan os.Signal, 1)
	sigs <- syscall.SIGTERM

	builder := NewBuilderWithCfg(sigs, new(bytes.Buffer),
		orderedInit{name: "db", calls: calls},
		orderedInit{name: "service", calls: calls},
	)
	builder.daemonFactory = fakeFactory{}

	err := builder.start(make(FlagSet))
	require.NoError(t, err)

	// Controllers start in order and stop in reverse order.
	require.Equal(t, 4, calls.Len())
	require.Equal(t, "start db", calls.Get(0, 0))
	require.Equal(t, "start service", calls.Get(1, 0))
	require.Equal(t, "stop service", calls.Get(2, 0))
	require.Equal(t, "stop db", calls.Get(3, 0))
}

func TestCLIBuilder_MakeAction(t *testing.T) {
	calls := &fake.Call{}

	builder := NewBuilder()
	builder.daemonFactory = fakeFactory{calls: calls}

	fset := flag.NewFlagSet("", 0)
	fset.Var(ucli.NewStringSlice("item 1", "item 2"), "flag-1", "")
	fset.Int("flag-2", 20, "")

	ctx := ucli.NewContext(makeApp(), fset, nil)

	err := builder.MakeAction(fakeAction{})(ctx)
	require.NoError(t, err)

	// The first two bytes are the action identifier, the rest is the flag
	// set of the invocation.
	data := string(calls.Get(0, 0).([]byte))
	require.Equal(t, "\x00\x00"+`{"flag-1":["item 1","item 2"],"flag-2":20}`, data)

	// The identifier follows the registration order.
	err = builder.MakeAction(fakeAction{})(ctx)
	require.NoError(t, err)

	data = string(calls.Get(1, 0).([]byte))
	require.Equal(t, "\x01\x00", data[:2])

	builder.daemonFactory = fakeFactory{err: xerrors.New("oops")}
	err = builder.MakeAction(fakeAction{})(ctx)
	require.EqualError(t, err, "failed to create client: oops")

	builder.daemonFactory = fakeFactory{errClient: xerrors.New("oops")}
	err = builder.MakeAction(fakeAction{})(ctx)
	require.EqualError(t, err, "failed to send the command: oops")
}

func TestCLIBuilder_Build(t *testing.T) {
	builder := NewBuilder(fakeInitializer{})
	builder.daemonFactory = fakeFactory{}

	cb := builder.SetCommand("roles")
	cb.SetDescription("list the roles of the node")
	cb.SetAction(builder.MakeAction(fakeAction{}))
	cb.SetFlags(cli.StringFlag{Name: "identity"})

	sub := cb.SetSubCommand("grant")
	sub.SetDescription("grant a role")
	sub.SetFlags(cli.DurationFlag{}, cli.IntFlag{}, cli.StringSliceFlag{}, cli.BoolFlag{})

	cb = builder.SetCommand("version")
	cb.SetAction(func(cli.Flags) error {
		return nil
	})

	app := builder.Build().(*ucli.App)

	// The two commands declared above, plus the start command.
	require.Len(t, app.Commands, 3)

	err := app.Commands[1].Action(nil)
	require.NoError(t, err)
}

// -----------------------------------------------------------------------------
// Utility functions

func makeApp() *ucli.App {
	return &ucli.App{
		Flags: []ucli.Flag{
			&ucli.StringSliceFlag{Name: "flag-1"},
			&ucli.IntFlag{Name: "flag-2"},
		},
	}
}

type orderedInit struct {
	name  string
	calls *fake.Call
}

func (c orderedInit) SetCommands(Builder) {}

func (c orderedInit) OnStart(cli.Flags, Injector) error {
	c.calls.Add("start " + c.name)
	return nil
}

func (c orderedInit) OnStop(Injector) error {
	c.calls.Add("stop " + c.name)
	return nil
}
