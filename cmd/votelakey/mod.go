// Package main implements the key tool, which manages the bls keys of the
// nodes and the election officials.
//
//	votelakey key new --save node.key
//	votelakey key show --path node.key --format PUBKEY
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/votela/votela/cli"
	"github.com/votela/votela/cli/ucli"
	"github.com/votela/votela/crypto/bls/command"
)

var builder cli.Builder = ucli.NewBuilder("votelakey", nil)
var printer io.Writer = os.Stderr

func main() {
	err := run(os.Args, command.Initializer{})
	if err != nil {
		fmt.Fprintf(printer, "%+v\n", err)
	}
}

func run(args []string, inits ...cli.Initializer) error {
	for _, init := range inits {
		init.SetCommands(builder)
	}

	return builder.Build().Run(args)
}
