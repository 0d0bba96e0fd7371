package controller

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/votela/votela"
	"github.com/votela/votela/cli/node"
	"github.com/votela/votela/proxy"
	"golang.org/x/xerrors"
)

// promAction mounts the Prometheus handler on the proxy.
//
// - implements node.ActionTemplate
type promAction struct{}

// Execute implements node.ActionTemplate. It registers the collectors of the
// modules and mounts the metrics handler. Mounting the same path twice
// panics.
func (a promAction) Execute(ctx node.Context) error {
	var proxyhttp proxy.Proxy

	err := ctx.Injector.Resolve(&proxyhttp)
	if err != nil {
		return xerrors.Errorf("failed to resolve the proxy: %v", err)
	}

	path := ctx.Flags.String("path")

	for _, c := range votela.PromCollectors {
		err = prometheus.DefaultRegisterer.Register(c)
		if err != nil {
			fmt.Fprintf(ctx.Out, "ERROR: failed to register: %v\n", err)
		}
	}

	proxyhttp.RegisterHandler(path, promhttp.Handler().ServeHTTP)

	fmt.Fprintf(ctx.Out, "registered prometheus service on %q\n", path)

	return nil
}
