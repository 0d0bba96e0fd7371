package controller

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/votela/votela/cli"
	"github.com/votela/votela/cli/node"
	"github.com/votela/votela/core/store/kv"
	"github.com/votela/votela/registry"
)

const testRoster = `
voters:
  - national_id: "000000000001"
    email: voter1@example.com
    full_name: Voter 1
    constituency: North
  - national_id: "000000000002"
    email: voter2@example.com
    full_name: Voter 2
    constituency: South
`

func TestImportAction_Execute(t *testing.T) {
	action := importAction{}

	out := new(bytes.Buffer)
	ctx := node.Context{
		Injector: node.NewInjector(),
		Flags:    fakeFlags{},
		Out:      out,
	}

	err := action.Execute(ctx)
	require.EqualError(t, err,
		"injector: couldn't find dependency for '*registry.Registry'")

	ctx.Injector.Inject(makeTestRegistry(t))

	ctx.Flags = fakeFlags{strings: map[string]string{
		"file": filepath.Join(t.TempDir(), "missing.yml"),
	}}

	err = action.Execute(ctx)
	require.Error(t, err)
	require.Regexp(t, "^failed to load roster:", err.Error())

	path := filepath.Join(t.TempDir(), "roster.yml")
	require.NoError(t, os.WriteFile(path, []byte(testRoster), 0o644))

	ctx.Flags = fakeFlags{strings: map[string]string{"file": path}}

	err = action.Execute(ctx)
	require.NoError(t, err)
	require.Equal(t, "imported 2 voters out of 2\n", out.String())

	bad := filepath.Join(t.TempDir(), "bad.yml")
	require.NoError(t, os.WriteFile(bad,
		[]byte("voters:\n  - national_id: oops\n"), 0o644))

	ctx.Flags = fakeFlags{strings: map[string]string{"file": bad}}

	err = action.Execute(ctx)
	require.Error(t, err)
	require.Regexp(t, "^failed to import:", err.Error())
}

func TestSearchAction_Execute(t *testing.T) {
	action := searchAction{}

	out := new(bytes.Buffer)
	ctx := node.Context{
		Injector: node.NewInjector(),
		Flags:    fakeFlags{},
		Out:      out,
	}

	err := action.Execute(ctx)
	require.EqualError(t, err,
		"injector: couldn't find dependency for '*registry.Registry'")

	reg := makeTestRegistry(t)

	_, err = reg.Register("self", registry.Voter{
		NationalID:   "000000000001",
		Email:        "voter1@example.com",
		FullName:     "Voter 1",
		Constituency: "North",
	})
	require.NoError(t, err)

	_, err = reg.Register("self", registry.Voter{
		NationalID:   "000000000002",
		Email:        "voter2@example.com",
		FullName:     "Voter 2",
		Constituency: "South",
	})
	require.NoError(t, err)

	ctx.Injector.Inject(reg)

	err = action.Execute(ctx)
	require.NoError(t, err)
	require.Equal(t,
		"000000000001\tvoter1@example.com\tVoter 1\tpending\thas_voted=false\n"+
			"000000000002\tvoter2@example.com\tVoter 2\tpending\thas_voted=false\n",
		out.String())

	out.Reset()

	ctx.Flags = fakeFlags{strings: map[string]string{"query": "voter2@"}}

	err = action.Execute(ctx)
	require.NoError(t, err)
	require.Equal(t,
		"000000000002\tvoter2@example.com\tVoter 2\tpending\thas_voted=false\n",
		out.String())
}

// -----------------------------------------------------------------------------
// Utility functions

func makeTestRegistry(t *testing.T) *registry.Registry {
	db, err := kv.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return registry.NewRegistry(db, "salt")
}

type fakeFlags struct {
	cli.Flags

	strings map[string]string
	ints    map[string]int
}

func (f fakeFlags) String(name string) string {
	return f.strings[name]
}

func (f fakeFlags) Int(name string) int {
	return f.ints[name]
}
