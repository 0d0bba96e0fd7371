// Package controller implements an initializer that opens the node database
// and shares it with the other controllers through the injector.
//
// The ledger state, the record log, the voter registry and the mirror journal
// all live in this single database.
package controller

import (
	"path/filepath"

	"github.com/votela/votela/cli"
	"github.com/votela/votela/cli/node"
	"github.com/votela/votela/core/store/kv"
	"golang.org/x/xerrors"
)

// DBFile is the name of the database file inside the configuration folder.
const DBFile = "votela.db"

// minimal is an initializer that opens the key/value database when the daemon
// starts, and closes it last when it stops.
//
// - implements node.Initializer
type minimal struct{}

// NewController returns the database controller.
func NewController() node.Initializer {
	return minimal{}
}

// SetCommands implements node.Initializer. The database has no commands of
// its own.
func (m minimal) SetCommands(builder node.Builder) {}

// OnStart implements node.Initializer. It opens the database file inside the
// configuration folder and injects the handle.
func (m minimal) OnStart(flags cli.Flags, inj node.Injector) error {
	db, err := kv.New(filepath.Join(flags.Path("config"), DBFile))
	if err != nil {
		return xerrors.Errorf("db: %v", err)
	}

	inj.Inject(db)

	return nil
}

// OnStop implements node.Initializer. It closes the database.
func (m minimal) OnStop(inj node.Injector) error {
	var db kv.DB
	err := inj.Resolve(&db)
	if err != nil {
		return xerrors.Errorf("injector: %v", err)
	}

	err = db.Close()
	if err != nil {
		return xerrors.Errorf("while closing db: %v", err)
	}

	return nil
}
