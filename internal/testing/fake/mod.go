// Package fake provides fake implementations of the abstractions of the
// repository, so that unit tests can drive error paths without standing up
// real components.
//
// The fakes are configured to return an error where the test needs one, and
// some of them record the calls they receive so that the test can assert on
// them afterwards.
package fake

import (
	"bytes"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"
)

var fakeErr = xerrors.New("fake error")

// GetError returns the error of a fake component.
func GetError() error {
	return fakeErr
}

// Err returns the expected format of an error returned by a fake component
// when wrapped with the given message.
func Err(msg string) string {
	return msg + ": fake error"
}

// Call is a tool to keep track of a function calls.
type Call struct {
	sync.Mutex
	calls [][]interface{}
}

// NewCall returns a new empty call monitor.
func NewCall() *Call {
	return &Call{}
}

// Get returns the nth call ith parameter.
func (c *Call) Get(n, i int) interface{} {
	c.Lock()
	defer c.Unlock()

	return c.calls[n][i]
}

// Len returns the number of calls.
func (c *Call) Len() int {
	c.Lock()
	defer c.Unlock()

	return len(c.calls)
}

// Add adds a call to the list.
func (c *Call) Add(args ...interface{}) {
	if c == nil {
		return
	}

	c.Lock()
	defer c.Unlock()

	c.calls = append(c.calls, args)
}

// Clear clears the array of calls.
func (c *Call) Clear() {
	if c != nil {
		c.Lock()
		c.calls = nil
		c.Unlock()
	}
}

// Counter is a helper to delay errors or actions. It can be nil without
// panicking.
type Counter struct {
	Value int
}

// NewCounter returns a new counter set to the given value.
func NewCounter(value int) *Counter {
	return &Counter{
		Value: value,
	}
}

// Done returns true when the counter reached zero.
func (c *Counter) Done() bool {
	return c == nil || c.Value <= 0
}

// Decrease decrements the counter value.
func (c *Counter) Decrease() {
	if c == nil {
		return
	}

	c.Value--
}

// CheckLog returns a logger and a function that will verify that the given
// message has been logged when called.
func CheckLog(msg string) (zerolog.Logger, func(t *testing.T)) {
	buffer := new(bytes.Buffer)
	logger := zerolog.New(buffer)

	check := func(t *testing.T) {
		require.Contains(t, buffer.String(), msg)
	}

	return logger, check
}
