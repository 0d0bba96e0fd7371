// Package ucli provides a cli builder implementation based on the urfave/cli
// library.
package ucli

import (
	"fmt"

	urfave "github.com/urfave/cli/v2"
	"github.com/votela/votela/cli"
)

// Builder builds an urfave/cli application out of the modular command
// declarations.
//
// - implements cli.Builder
type Builder struct {
	commands []*commandBuilder
	name     string
	action   cli.Action
	flags    []cli.Flag
}

// NewBuilder returns a new initialized builder. The action is the primary one
// of the application and may be nil when only commands are defined. The flags
// are global, thus available to all the commands and subcommands.
func NewBuilder(name string, action cli.Action, flags ...cli.Flag) cli.Builder {
	return &Builder{
		name:   name,
		action: action,
		flags:  flags,
	}
}

// Build implements cli.Builder. It creates the application.
func (b Builder) Build() cli.Application {
	app := &urfave.App{
		Name:     b.name,
		Commands: buildCommands(b.commands),
		Action:   wrapAction(b.action),
		Flags:    buildFlags(b.flags),
	}

	app.Setup()

	return app
}

// SetCommand implements cli.Builder. It creates a command and returns its
// builder.
func (b *Builder) SetCommand(name string) cli.CommandBuilder {
	cmd := &commandBuilder{
		name: name,
	}
	b.commands = append(b.commands, cmd)

	return cmd
}

// commandBuilder collects the properties of a single command before the
// application is built.
//
// - implements cli.CommandBuilder
type commandBuilder struct {
	name        string
	description string
	action      cli.Action
	flags       []urfave.Flag
	subcommands []*commandBuilder
}

// SetDescription implements cli.CommandBuilder.
func (b *commandBuilder) SetDescription(value string) {
	b.description = value
}

// SetFlags implements cli.CommandBuilder.
func (b *commandBuilder) SetFlags(flags ...cli.Flag) {
	b.flags = buildFlags(flags)
}

// SetAction implements cli.CommandBuilder.
func (b *commandBuilder) SetAction(action cli.Action) {
	b.action = action
}

// SetSubCommand implements cli.CommandBuilder.
func (b *commandBuilder) SetSubCommand(name string) cli.CommandBuilder {
	sub := &commandBuilder{
		name: name,
	}
	b.subcommands = append(b.subcommands, sub)

	return sub
}

// buildCommands recursively converts the command builders to urfave/cli
// commands.
func buildCommands(builders []*commandBuilder) []*urfave.Command {
	out := make([]*urfave.Command, len(builders))

	for i, cmd := range builders {
		out[i] = &urfave.Command{
			Name:        cmd.name,
			Usage:       cmd.description,
			Action:      wrapAction(cmd.action),
			Flags:       cmd.flags,
			Subcommands: buildCommands(cmd.subcommands),
		}
	}

	return out
}

// wrapAction transforms a cli.Action to its urfave form. The urfave context
// implements cli.Flags so it is handed over as is.
func wrapAction(action cli.Action) urfave.ActionFunc {
	if action != nil {
		return func(ctx *urfave.Context) error {
			return action(ctx)
		}
	}
	return nil
}

// buildFlags converts the flag definitions to their urfave/cli counterparts.
func buildFlags(flags []cli.Flag) []urfave.Flag {
	out := make([]urfave.Flag, len(flags))

	for i, f := range flags {
		out[i] = convertFlag(f)
	}

	return out
}

// convertFlag maps one flag definition. It panics on an unknown flag type,
// as that is a programming error that no input can trigger.
func convertFlag(f cli.Flag) urfave.Flag {
	switch def := f.(type) {
	case cli.StringFlag:
		return &urfave.StringFlag{
			Name:     def.Name,
			Usage:    def.Usage,
			Required: def.Required,
			Value:    def.Value,
		}
	case cli.StringSliceFlag:
		return &urfave.StringSliceFlag{
			Name:     def.Name,
			Usage:    def.Usage,
			Required: def.Required,
			Value:    urfave.NewStringSlice(def.Value...),
		}
	case cli.DurationFlag:
		return &urfave.DurationFlag{
			Name:     def.Name,
			Usage:    def.Usage,
			Required: def.Required,
			Value:    def.Value,
		}
	case cli.IntFlag:
		return &urfave.IntFlag{
			Name:     def.Name,
			Usage:    def.Usage,
			Required: def.Required,
			Value:    def.Value,
		}
	case cli.BoolFlag:
		return &urfave.BoolFlag{
			Name:     def.Name,
			Usage:    def.Usage,
			Required: def.Required,
			Value:    def.Value,
		}
	default:
		panic(fmt.Sprintf("flag type '%T' not supported", f))
	}
}
