// Package controller implements a controller to start the proxy server of
// the node and to mount the Prometheus handler on it.
package controller

import (
	"time"

	"github.com/votela/votela/cli"
	"github.com/votela/votela/cli/node"
	"github.com/votela/votela/proxy"
	"github.com/votela/votela/proxy/http"
	"golang.org/x/xerrors"
)

const defaultAddr = "127.0.0.1:8080"

const defaultProm = "/metrics"

// startRetries bounds the wait for the listener to bind.
var startRetries = 50

var proxyFac func(string) proxy.Proxy = func(addr string) proxy.Proxy {
	return http.NewHTTP(addr)
}

// NewController returns a controller for the proxy server.
func NewController() node.Initializer {
	return minimal{}
}

// minimal is an initializer to start the proxy server with the daemon and to
// register the Prometheus handler on demand.
//
// - implements node.Initializer
type minimal struct{}

// SetCommands implements node.Initializer. It sets the proxy commands.
func (m minimal) SetCommands(builder node.Builder) {
	builder.SetStartFlags(cli.StringFlag{
		Name:     "proxyaddr",
		Usage:    "the address of the http proxy",
		Required: false,
		Value:    defaultAddr,
	})

	cmd := builder.SetCommand("proxy")
	cmd.SetDescription("Handles the proxy server")

	sub := cmd.SetSubCommand("prometheus")
	sub.SetDescription("registers the collectors and mounts the metrics handler")
	sub.SetFlags(cli.StringFlag{
		Name:     "path",
		Required: false,
		Usage:    "the handler path",
		Value:    defaultProm,
	})
	sub.SetAction(builder.MakeAction(promAction{}))
}

// OnStart implements node.Initializer. It starts the proxy server and
// injects it once its listener is bound.
func (m minimal) OnStart(flags cli.Flags, inj node.Injector) error {
	proxyhttp := proxyFac(flags.String("proxyaddr"))

	go proxyhttp.Listen()

	for i := 0; i < startRetries && proxyhttp.GetAddr() == nil; i++ {
		time.Sleep(100 * time.Millisecond)
	}

	if proxyhttp.GetAddr() == nil {
		return xerrors.New("failed to start the proxy server")
	}

	inj.Inject(proxyhttp)

	return nil
}

// OnStop implements node.Initializer. It stops the proxy server.
func (m minimal) OnStop(inj node.Injector) error {
	var proxyhttp proxy.Proxy

	err := inj.Resolve(&proxyhttp)
	if err == nil {
		proxyhttp.Stop()
	}

	return nil
}
