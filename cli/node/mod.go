// Package node defines the builder of the daemon application. The application
// serves two purposes depending on how it is invoked: it either starts the
// node, or it connects to a running node to execute a command on it.
//
// The start command is always present. Every other command is declared by an
// initializer, and its action runs inside the daemon process with access to
// the dependencies injected at startup. See the example.
//
// Document Last Review: 13.10.2020
//
package node

import (
	"io"

	"github.com/votela/votela/cli"
)

// Builder is provided to the initializers so that they can declare their
// commands and the flags of the start command.
type Builder interface {
	// SetCommand creates a new command and returns its builder.
	SetCommand(name string) cli.CommandBuilder

	// SetStartFlags appends flags to the start command.
	SetStartFlags(...cli.Flag)

	// MakeAction wraps an action template into a CLI action that forwards the
	// invocation to the daemon.
	MakeAction(ActionTemplate) cli.Action
}

// ActionTemplate is the daemon side of a command. Execute runs on the running
// node with the flags the client sent.
type ActionTemplate interface {
	// Execute processes a command received from the CLI on the daemon.
	Execute(Context) error
}

// Context is what an action receives when it is invoked: the dependency
// injector of the node, the flags of the invocation and the writer that
// streams back to the client.
type Context struct {
	Injector Injector
	Flags    cli.Flags
	Out      io.Writer
}

// Injector is a dependency injection abstraction.
type Injector interface {
	// Resolve populates the input with the dependency if any compatible exists.
	Resolve(interface{}) error

	// Inject stores the dependency to be resolved later on.
	Inject(interface{})
}

// Initializer is implemented by every module that participates in the daemon:
// it declares its commands, starts its components and releases them on
// shutdown.
type Initializer interface {
	// Build populates the builder with the commands of the controller.
	SetCommands(Builder)

	// OnStart starts the components of the initializer and populates the
	// injector.
	OnStart(cli.Flags, Injector) error

	// OnStop stops the components and cleans the resources.
	OnStop(Injector) error
}

// Client sends a packed command to a running daemon.
type Client interface {
	Send([]byte) error
}

// Daemon listens for commands from clients and executes them on the node.
type Daemon interface {
	Listen() error
	Close() error
}

// DaemonFactory creates the daemon and the clients that talk to it.
type DaemonFactory interface {
	ClientFromContext(cli.Flags) (Client, error)
	DaemonFromContext(cli.Flags) (Daemon, error)
}
