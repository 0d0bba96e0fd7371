package controller

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/votela/votela/cli"
	"github.com/votela/votela/cli/node"
	"github.com/votela/votela/web"
)

func TestTokenAction_Execute(t *testing.T) {
	action := tokenAction{}

	out := &bytes.Buffer{}

	ctx := node.Context{
		Injector: node.NewInjector(),
		Flags: fakeFlags{
			strings:   map[string]string{"subject": "clerk"},
			durations: map[string]time.Duration{"ttl": time.Hour},
		},
		Out: out,
	}

	err := action.Execute(ctx)
	require.EqualError(t, err,
		"injector: couldn't find dependency for '*web.TokenIssuer'")

	tokens, err := web.NewTokenIssuer("secret")
	require.NoError(t, err)

	ctx.Injector.Inject(tokens)

	err = action.Execute(ctx)
	require.NoError(t, err)

	subject, err := tokens.VerifyAdmin(strings.TrimSpace(out.String()))
	require.NoError(t, err)
	require.Equal(t, "clerk", subject)
}

type fakeFlags struct {
	cli.Flags

	strings   map[string]string
	durations map[string]time.Duration
}

func (f fakeFlags) String(name string) string {
	return f.strings[name]
}

func (f fakeFlags) Duration(name string) time.Duration {
	return f.durations[name]
}
