package node

import (
	"fmt"
	"os"

	"github.com/votela/votela/cli"
)

func ExampleCLIBuilder_Build() {
	builder := NewBuilder(exampleController{})

	cmd := builder.SetCommand("motd")

	cmd.SetFlags(cli.StringFlag{
		Name:  "station",
		Usage: "set the polling station",
		Value: "Central",
	})

	// This action is only executed on the CLI process. It is also possible to
	// call commands on the daemon after it has been started with "start".
	cmd.SetAction(func(flags cli.Flags) error {
		fmt.Printf("Polls are open at %s!", flags.String("station"))
		return nil
	})

	app := builder.Build()

	err := app.Run([]string{os.Args[0], "motd", "--station", "Northside"})
	if err != nil {
		panic("app failed: " + err.Error())
	}

	// Output: Polls are open at Northside!
}

// Board is an example of a component that can be injected when the daemon
// starts and resolved by the actions running on it.
type Board interface {
	Publish(station string)
}

type printBoard struct{}

func (printBoard) Publish(station string) {
	fmt.Printf("Turnout at %s is rising!", station)
}

// publishAction is an example of an action template to be executed on the
// daemon.
//
// - implements node.ActionTemplate
type publishAction struct{}

// Execute implements node.ActionTemplate. It resolves the board and publishes
// the station given by the flag.
func (tmpl publishAction) Execute(ctx Context) error {
	var board Board
	err := ctx.Injector.Resolve(&board)
	if err != nil {
		return err
	}

	board.Publish(ctx.Flags.String("station"))

	return nil
}

// exampleController is an example of a controller passed to the builder. It
// declares the publish command and injects the board it needs when the daemon
// is started.
//
// - implements node.Initializer
type exampleController struct{}

// SetCommands implements node.Initializer. It defines the publish command.
func (exampleController) SetCommands(builder Builder) {
	cmd := builder.SetCommand("publish")

	// Set an action that will be executed on the daemon.
	cmd.SetAction(builder.MakeAction(publishAction{}))

	cmd.SetDescription("Publish the turnout of a station")
	cmd.SetFlags(cli.StringFlag{
		Name:  "station",
		Usage: "set the polling station",
		Value: "Central",
	})
}

// OnStart implements node.Initializer. It injects the board.
func (exampleController) OnStart(flags cli.Flags, inj Injector) error {
	inj.Inject(printBoard{})

	return nil
}

// OnStop implements node.Initializer.
func (exampleController) OnStop(Injector) error {
	return nil
}
