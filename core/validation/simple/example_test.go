package simple

import (
	"fmt"
	"sync"

	"github.com/votela/votela/core/execution"
	"github.com/votela/votela/core/execution/native"
	"github.com/votela/votela/core/store"
	"github.com/votela/votela/core/txn"
	"github.com/votela/votela/core/txn/signed"
	"github.com/votela/votela/crypto/bls"
)

func ExampleService_GetNonce() {
	srvc := NewService(native.NewExecution(), signed.NewTransactionFactory())

	voter := bls.NewSigner()

	// A fresh ledger has no transaction from this voter yet.
	nonce, err := srvc.GetNonce(newSnapshot(), voter.GetPublicKey())
	if err != nil {
		panic("reading the nonce failed: " + err.Error())
	}

	fmt.Println(nonce)

	// Output: 0
}

func ExampleService_Validate() {
	exec := native.NewExecution()
	exec.Set("ballot", ballotContract{})

	srvc := NewService(exec, signed.NewTransactionFactory())

	voter := bls.NewSigner()
	arg := signed.WithArg(native.ContractArg, []byte("ballot"))

	// The third transaction skips nonce 2, so the batch must refuse it.
	txs := make([]txn.Transaction, 0, 3)
	for _, nonce := range []uint64{0, 1, 3} {
		tx, err := signed.NewTransaction(nonce, voter.GetPublicKey(), arg)
		if err != nil {
			panic("creating a transaction failed: " + err.Error())
		}

		txs = append(txs, tx)
	}

	res, err := srvc.Validate(newSnapshot(), txs)
	if err != nil {
		panic("validation failed: " + err.Error())
	}

	for _, txRes := range res.GetTransactionResults() {
		accepted, reason := txRes.GetStatus()
		if accepted {
			fmt.Println("accepted")
		} else {
			fmt.Println("refused:", reason)
		}
	}

	// Output: accepted
	// accepted
	// refused: nonce is invalid, expected 2, got 3
}

// ballotContract records nothing and accepts every transaction, which is
// enough to exercise the nonce bookkeeping of the service.
//
// - implements native.Contract
type ballotContract struct{}

// Execute implements native.Contract.
func (ballotContract) Execute(store.Snapshot, execution.Step) error {
	return nil
}

// snapshot is a volatile key/value store for the examples.
//
// - implements store.Snapshot
type snapshot struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newSnapshot() *snapshot {
	return &snapshot{
		entries: make(map[string][]byte),
	}
}

// Get implements store.Readable.
func (s *snapshot) Get(key []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.entries[string(key)], nil
}

// Set implements store.Writable.
func (s *snapshot) Set(key, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[string(key)] = value

	return nil
}

// Delete implements store.Writable.
func (s *snapshot) Delete(key []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, string(key))

	return nil
}
