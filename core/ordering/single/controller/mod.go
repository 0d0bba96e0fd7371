// Package controller implements a controller for the single-node ordering
// service. It builds the whole transaction pipeline so that a node started
// with this controller is ready to process transactions: execution
// environment, transaction factory, pool, validation and the ordering
// service itself.
//
// Documentation Last Review: 22.08.2026
package controller

import (
	"path/filepath"
	"time"

	"github.com/votela/votela/cli"
	"github.com/votela/votela/cli/node"
	"github.com/votela/votela/core/access/darc"
	"github.com/votela/votela/core/execution/native"
	"github.com/votela/votela/core/ordering/single"
	"github.com/votela/votela/core/store/kv"
	"github.com/votela/votela/core/txn/pool"
	"github.com/votela/votela/core/txn/pool/mem"
	"github.com/votela/votela/core/txn/signed"
	"github.com/votela/votela/core/validation/simple"
	"github.com/votela/votela/crypto"
	"github.com/votela/votela/crypto/bls"
	"github.com/votela/votela/crypto/loader"
	"golang.org/x/xerrors"
)

const privateKeyFile = "private.key"

// NewController returns a new controller initializer.
func NewController() node.Initializer {
	return minimal{}
}

// minimal is an initializer to start the ordering service.
//
// - implements node.Initializer
type minimal struct{}

// SetCommands implements node.Initializer. The service runs on its own and
// only exposes the flag to tune the gathering interval.
func (minimal) SetCommands(builder node.Builder) {
	builder.SetStartFlags(cli.DurationFlag{
		Name:     "interval",
		Usage:    "how long a round waits for transactions",
		Required: false,
		Value:    time.Second,
	})
}

// OnStart implements node.Initializer. It starts the ordering service and
// injects the components of the transaction pipeline.
func (minimal) OnStart(flags cli.Flags, inj node.Injector) error {
	var db kv.DB
	err := inj.Resolve(&db)
	if err != nil {
		return xerrors.Errorf("injector: %v", err)
	}

	signer, err := getSigner(filepath.Join(flags.Path("config"), privateKeyFile))
	if err != nil {
		return xerrors.Errorf("signer: %v", err)
	}

	exec := native.NewExecution()
	asrvc := darc.NewService()
	vs := simple.NewService(exec, signed.NewTransactionFactory())
	p := mem.NewPool()

	srvc, err := single.NewService(db, p, vs,
		single.WithInterval(flags.Duration("interval")))
	if err != nil {
		return xerrors.Errorf("failed to create service: %v", err)
	}

	err = srvc.Listen()
	if err != nil {
		return xerrors.Errorf("failed to listen: %v", err)
	}

	inj.Inject(srvc)
	inj.Inject(exec)
	inj.Inject(asrvc)
	inj.Inject(vs)
	inj.Inject(p)
	inj.Inject(signer)

	return nil
}

// OnStop implements node.Initializer. It stops the ordering service and
// closes the transaction pool.
func (minimal) OnStop(inj node.Injector) error {
	var srvc *single.Service
	err := inj.Resolve(&srvc)
	if err != nil {
		return xerrors.Errorf("injector: %v", err)
	}

	err = srvc.Close()
	if err != nil {
		return xerrors.Errorf("while closing service: %v", err)
	}

	var p pool.Pool
	err = inj.Resolve(&p)
	if err != nil {
		return xerrors.Errorf("injector: %v", err)
	}

	err = p.Close()
	if err != nil {
		return xerrors.Errorf("while closing pool: %v", err)
	}

	return nil
}

// getSigner loads the signer from the file if it exists, otherwise it
// generates a new one and stores it so that the node identity survives
// restarts.
func getSigner(path string) (crypto.Signer, error) {
	l := loader.NewFileLoader(path)

	data, err := l.LoadOrCreate(generator{})
	if err != nil {
		return nil, xerrors.Errorf("while loading: %v", err)
	}

	signer, err := bls.NewSignerFromBytes(data)
	if err != nil {
		return nil, xerrors.Errorf("while unmarshaling: %v", err)
	}

	return signer, nil
}

// generator creates a random BLS private key.
//
// - implements loader.Generator
type generator struct{}

// Generate implements loader.Generator.
func (generator) Generate() ([]byte, error) {
	data, err := bls.NewSigner().MarshalBinary()
	if err != nil {
		return nil, xerrors.Errorf("while marshaling signer: %v", err)
	}

	return data, nil
}
