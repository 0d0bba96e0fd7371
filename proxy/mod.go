package proxy

import (
	"net"
	"net/http"
)

// Proxy defines the primitives of the instrumented http server the node
// exposes to browsers and operators.
type Proxy interface {
	// Listen starts the server. The call is blocking.
	Listen()

	// Stop stops the server.
	Stop()

	// GetAddr returns the address of the listener, or nil before Listen has
	// bound it.
	GetAddr() net.Addr

	// RegisterHandler registers a new handler at the given path.
	RegisterHandler(path string, handler func(http.ResponseWriter, *http.Request))
}
