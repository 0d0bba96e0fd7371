// This file contains the builder that assembles the CLI application of a
// node out of the initializers.
//
// Documentation Last Review: 11.06.2026
//

package node

import (
	"encoding/binary"
	"encoding/json"
	"io"
	"os"
	"os/signal"
	"syscall"

	urfave "github.com/urfave/cli/v2"
	"github.com/votela/votela"
	"github.com/votela/votela/cli"
	"github.com/votela/votela/cli/ucli"
	"golang.org/x/xerrors"
)

// CLIBuilder builds the CLI application of a node. The application always has
// a start command, and every command declared through an initializer runs on
// the daemon.
//
// - implements node.Builder
// - implements cli.Builder
type CLIBuilder struct {
	cli.Builder

	daemonFactory DaemonFactory
	injector      Injector
	actions       *actionRegistry
	startFlags    []cli.Flag
	inits         []Initializer
	writer        io.Writer

	// In production, the daemon is stopped via SIGTERM. In case of testing,
	// the channel will be closed instead, because of instability.
	enableSignal bool
	sigs         chan os.Signal
}

// NewBuilder returns a new empty builder.
func NewBuilder(inits ...Initializer) *CLIBuilder {
	return NewBuilderWithCfg(nil, nil, inits...)
}

// NewBuilderWithCfg returns a new empty builder with a specific signal
// channel and output writer, both of which may be nil.
func NewBuilderWithCfg(sigs chan os.Signal, out io.Writer, inits ...Initializer) *CLIBuilder {
	if out == nil {
		out = os.Stdout
	}

	enabled := false

	if sigs == nil {
		sigs = make(chan os.Signal, 1)
		enabled = true
	}

	injector := NewInjector()
	actions := &actionRegistry{}

	return &CLIBuilder{
		Builder: ucli.NewBuilder("votela", nil, cli.StringFlag{
			Name:  "config",
			Usage: "path to the config folder",
			Value: ".votela",
		}),
		injector: injector,
		actions:  actions,
		daemonFactory: socketFactory{
			injector: injector,
			actions:  actions,
			out:      out,
		},
		enableSignal: enabled,
		sigs:         sigs,
		inits:        inits,
		writer:       out,
	}
}

// SetStartFlags implements node.Builder. It appends the given flags to the
// list of flags that will be used to create the start command.
func (b *CLIBuilder) SetStartFlags(flags ...cli.Flag) {
	b.startFlags = append(b.startFlags, flags...)
}

// MakeAction implements node.Builder. It registers the template and returns a
// CLI action that packs the invocation and ships it to the daemon.
func (b *CLIBuilder) MakeAction(tmpl ActionTemplate) cli.Action {
	index := b.actions.Add(tmpl)

	return func(c cli.Flags) error {
		client, err := b.daemonFactory.ClientFromContext(c)
		if err != nil {
			return xerrors.Errorf("failed to create client: %v", err)
		}

		fset := make(FlagSet)
		collectFlags(fset, c.(*urfave.Context))

		cmd, err := packCommand(index, fset)
		if err != nil {
			return err
		}

		err = client.Send(cmd)
		if err != nil {
			return xerrors.Errorf("failed to send the command: %v", err)
		}

		return nil
	}
}

// packCommand encodes the action identifier over 2 bytes, followed by the
// flags of the whole command lineage so that the daemon sees the same values
// the client was invoked with.
func packCommand(index uint16, fset FlagSet) ([]byte, error) {
	buf, err := json.Marshal(fset)
	if err != nil {
		return nil, xerrors.Errorf("failed to marshal flag set: %v", err)
	}

	cmd := make([]byte, 2, 2+len(buf))
	binary.LittleEndian.PutUint16(cmd, index)

	return append(cmd, buf...), nil
}

// collectFlags gathers the flag values declared anywhere in the lineage of
// the invoked command, so that a subcommand sees the global flags too.
func collectFlags(fset FlagSet, ctx *urfave.Context) {
	for _, ancestor := range ctx.Lineage() {
		if ancestor.Command != nil {
			fillFlagSet(fset, ancestor.Command.Flags, ancestor)
		}

		if ancestor.App != nil {
			fillFlagSet(fset, ancestor.App.Flags, ancestor)
		}
	}
}

func fillFlagSet(fset FlagSet, flags []urfave.Flag, ctx *urfave.Context) {
	for _, flag := range flags {
		names := flag.Names()
		if len(names) > 0 {
			fset[names[0]] = normalizeFlag(ctx.Value(names[0]))
		}
	}
}

// normalizeFlag converts flag values that do not survive a JSON round trip.
func normalizeFlag(v interface{}) interface{} {
	switch value := v.(type) {
	case urfave.StringSlice:
		return value.Value()
	default:
		return v
	}
}

// Build implements node.Builder. It returns the application.
func (b *CLIBuilder) Build() cli.Application {
	for _, controller := range b.inits {
		controller.SetCommands(b)
	}

	cmd := b.SetCommand("start")
	cmd.SetDescription("start the daemon")
	cmd.SetFlags(b.startFlags...)
	cmd.SetAction(b.start)

	return b.Builder.Build()
}

func (b *CLIBuilder) start(flags cli.Flags) error {
	if b.enableSignal {
		signal.Notify(b.sigs, syscall.SIGINT, syscall.SIGTERM)

		defer signal.Stop(b.sigs)
	}

	dir := flags.Path("config")
	if dir != "" {
		err := os.MkdirAll(dir, 0700)
		if err != nil {
			return xerrors.Errorf("failed to create config folder: %v", err)
		}
	}

	daemon, err := b.daemonFactory.DaemonFromContext(flags)
	if err != nil {
		return xerrors.Errorf("failed to create daemon: %v", err)
	}

	for _, controller := range b.inits {
		err = controller.OnStart(flags, b.injector)
		if err != nil {
			return xerrors.Errorf("failed to start controller: %v", err)
		}
	}

	// The daemon listens only once every controller has started, so that a
	// command never reaches a half-initialized node.
	err = daemon.Listen()
	if err != nil {
		return xerrors.Errorf("failed to start daemon: %v", err)
	}

	defer daemon.Close()

	<-b.sigs
	signal.Stop(b.sigs)

	return b.stop()
}

// stop winds the controllers down in the reverse order of their start, so
// that a service never outlives the database it writes to.
func (b *CLIBuilder) stop() error {
	for i := len(b.inits) - 1; i >= 0; i-- {
		err := b.inits[i].OnStop(b.injector)
		if err != nil {
			return xerrors.Errorf("failed to stop controller: %v", err)
		}
	}

	votela.Logger.Trace().Msg("daemon has been stopped")

	return nil
}

// actionRegistry assigns a sequential identifier to each action template, in
// registration order. The client sends the identifier and the daemon looks
// the template up, so both sides must be built from the same initializers.
type actionRegistry struct {
	list []ActionTemplate
}

func (reg *actionRegistry) Add(a ActionTemplate) uint16 {
	reg.list = append(reg.list, a)
	return uint16(len(reg.list) - 1)
}

func (reg *actionRegistry) Get(index uint16) ActionTemplate {
	if int(index) >= len(reg.list) {
		return nil
	}

	return reg.list[index]
}
