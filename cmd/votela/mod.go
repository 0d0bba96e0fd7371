// Package main implements the votela node and the CLI that drives it.
//
//  go run mod.go --config /tmp/votela start --proxyaddr 127.0.0.1:8080
//  go run mod.go --config /tmp/votela voting init
//  go run mod.go --config /tmp/votela voting parties add --id orange --name Orange
//  go run mod.go --config /tmp/votela voting session open --name General \
//    --start 2026-05-01T08:00:00Z --end 2026-05-01T20:00:00Z
//  go run mod.go --config /tmp/votela registry import --file roster.yaml
//  go run mod.go --config /tmp/votela voting results
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/votela/votela/cli/node"

	access "github.com/votela/votela/contracts/access/controller"
	voting "github.com/votela/votela/contracts/voting/controller"
	ordering "github.com/votela/votela/core/ordering/single/controller"
	db "github.com/votela/votela/core/store/kv/controller"
	pool "github.com/votela/votela/core/txn/pool/controller"
	signed "github.com/votela/votela/core/txn/signed/controller"
	chain "github.com/votela/votela/evm/controller"
	proxy "github.com/votela/votela/proxy/http/controller"
	registry "github.com/votela/votela/registry/controller"
	web "github.com/votela/votela/web/controller"
)

func main() {
	err := run(os.Args)
	if err != nil {
		fmt.Printf("%+v\n", err)
	}
}

func run(args []string) error {
	return runWithCfg(args, config{Writer: os.Stdout})
}

type config struct {
	Channel chan os.Signal
	Writer  io.Writer
}

func runWithCfg(args []string, cfg config) error {
	builder := node.NewBuilderWithCfg(
		cfg.Channel,
		cfg.Writer,
		db.NewController(),
		ordering.NewController(),
		signed.NewManagerController(),
		pool.NewController(),
		access.NewController(),
		voting.NewController(),
		registry.NewController(),
		chain.NewController(),
		proxy.NewController(),
		web.NewController(),
	)

	app := builder.Build()

	err := app.Run(args)
	if err != nil {
		return err
	}

	return nil
}
