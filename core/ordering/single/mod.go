// Package single implements an ordering service with a single sequencer. The
// service gathers the transactions of the pool, validates the batch against
// the current state and appends a record of the results to the log, all of it
// inside one atomic database transaction.
//
// Contrary to a consensus-based ordering, the sequencer makes progress on its
// own, which makes it suitable for a deployment where a unique operator owns
// the ledger.
package single

import (
	"context"
	"encoding/binary"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/votela/votela"
	"github.com/votela/votela/core"
	"github.com/votela/votela/core/ordering"
	"github.com/votela/votela/core/store"
	"github.com/votela/votela/core/store/kv"
	"github.com/votela/votela/core/txn"
	"github.com/votela/votela/core/txn/pool"
	"github.com/votela/votela/core/validation"
	"github.com/votela/votela/crypto"
	"golang.org/x/xerrors"
)

// eventBuffer is the size of the buffer of the observer channels.
const eventBuffer = 100

// defaultInterval is how long a round waits for transactions before giving
// the hand back to the loop.
const defaultInterval = time.Second

// defaultBatchLimit is the maximum number of transactions executed in one
// round. The surplus stays in the pool for the next one.
const defaultBatchLimit = 100

var (
	stateBucket = []byte("state")
	blockBucket = []byte("blocks")
)

var (
	promRounds = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "votela",
		Subsystem: "ordering",
		Name:      "rounds_total",
		Help:      "total number of batches processed",
	})

	promTxs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "votela",
		Subsystem: "ordering",
		Name:      "transactions_total",
		Help:      "total number of transactions processed by status",
	}, []string{"status"})
)

func init() {
	votela.PromCollectors = append(votela.PromCollectors, promRounds, promTxs)
}

// Service is an ordering service that processes the transactions of the pool
// with a single sequencer.
//
// - implements ordering.Service
type Service struct {
	sync.Mutex

	logger     zerolog.Logger
	db         kv.DB
	pool       pool.Pool
	validation validation.Service
	blockFac   BlockFactory
	hashFac    crypto.HashFactory
	watcher    core.Observable
	clock      func() time.Time
	interval   time.Duration
	batchLimit int

	// index is the index of the next block and from the digest of the latest
	// one. Both belong to the sequencer loop after the chain is loaded.
	index uint64
	from  []byte

	cancel  context.CancelFunc
	closed  sync.WaitGroup
	running bool
}

// ServiceOption updates the service template before it is created.
type ServiceOption func(*Service)

// WithInterval sets how long a round waits for transactions.
func WithInterval(interval time.Duration) ServiceOption {
	return func(s *Service) {
		if interval > 0 {
			s.interval = interval
		}
	}
}

// WithBatchLimit sets the maximum number of transactions per round.
func WithBatchLimit(limit int) ServiceOption {
	return func(s *Service) {
		if limit > 0 {
			s.batchLimit = limit
		}
	}
}

// NewService creates a new service. It reads the existing log to resume the
// chain where it stopped.
func NewService(db kv.DB, p pool.Pool, val validation.Service,
	opts ...ServiceOption) (*Service, error) {

	s := &Service{
		logger:     votela.Logger.With().Str("service", "ordering").Logger(),
		db:         db,
		pool:       p,
		validation: val,
		blockFac:   NewBlockFactory(val.GetFactory()),
		hashFac:    crypto.NewHashFactory(crypto.Sha256),
		watcher:    core.NewWatcher(),
		clock:      time.Now,
		interval:   defaultInterval,
		batchLimit: defaultBatchLimit,
	}

	for _, opt := range opts {
		opt(s)
	}

	err := s.load()
	if err != nil {
		return nil, xerrors.Errorf("failed to load chain: %v", err)
	}

	return s, nil
}

// Listen starts the sequencer loop. It returns an error if the service is
// already started.
func (s *Service) Listen() error {
	s.Lock()
	defer s.Unlock()

	if s.running {
		return xerrors.New("service already started")
	}

	ctx, cancel := context.WithCancel(context.Background())

	s.cancel = cancel
	s.running = true
	s.closed.Add(1)

	go s.run(ctx)

	return nil
}

// Close implements ordering.Service. It stops the sequencer loop and waits
// for the current round to be done.
func (s *Service) Close() error {
	s.Lock()
	defer s.Unlock()

	if !s.running {
		return xerrors.New("service not started")
	}

	s.cancel()
	s.closed.Wait()
	s.running = false

	return nil
}

// GetProof implements ordering.Service. It returns a proof of the value of
// the given key.
func (s *Service) GetProof(key []byte) (ordering.Proof, error) {
	reader := storeReader{db: s.db}

	value, err := reader.Get(key)
	if err != nil {
		return nil, xerrors.Errorf("while reading key: %v", err)
	}

	return NewProof(key, value), nil
}

// GetStore implements ordering.Service. It returns a read-only access to the
// latest state.
func (s *Service) GetStore() store.Readable {
	return storeReader{db: s.db}
}

// GetBlock returns the block of the log at the given index.
func (s *Service) GetBlock(index uint64) (Block, error) {
	var block Block

	err := s.db.View(func(tx kv.ReadableTx) error {
		bucket := tx.GetBucket(blockBucket)
		if bucket == nil {
			return xerrors.Errorf("unknown block at index %d", index)
		}

		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, index)

		data := bucket.Get(key)
		if data == nil {
			return xerrors.Errorf("unknown block at index %d", index)
		}

		var err error
		block, err = s.blockFac.BlockOf(data)
		if err != nil {
			return xerrors.Errorf("failed to decode block: %v", err)
		}

		return nil
	})

	return block, err
}

// Watch implements ordering.Service. It returns a channel populated with the
// events of the service until the context ends.
func (s *Service) Watch(ctx context.Context) <-chan ordering.Event {
	obs := observer{events: make(chan ordering.Event, eventBuffer)}

	s.watcher.Add(obs)

	go func() {
		<-ctx.Done()
		s.watcher.Remove(obs)
		close(obs.events)
	}()

	return obs.events
}

// load reads the log from the database to restore the tail of the chain.
func (s *Service) load() error {
	return s.db.View(func(tx kv.ReadableTx) error {
		bucket := tx.GetBucket(blockBucket)
		if bucket == nil {
			return nil
		}

		return bucket.ForEach(func(key, value []byte) error {
			block, err := s.blockFac.BlockOf(value)
			if err != nil {
				return xerrors.Errorf("block %#x: %v", key, err)
			}

			s.index = block.GetIndex() + 1
			s.from = block.GetHash()

			return nil
		})
	})
}

// run is the sequencer loop. It gathers transactions and processes them in
// rounds until the context ends. A round that fails stops the service as the
// state of the batch is then unknown.
func (s *Service) run(ctx context.Context) {
	defer s.closed.Done()

	for {
		txs := s.gather(ctx)

		if ctx.Err() != nil {
			return
		}

		if len(txs) == 0 {
			continue
		}

		err := s.doRound(txs)
		if err != nil {
			s.logger.Err(err).Msg("round failed")
			return
		}

		promRounds.Inc()
	}
}

// gather waits at most the interval for transactions and caps the batch at
// the limit. The transactions above the limit stay in the pool.
func (s *Service) gather(ctx context.Context) []txn.Transaction {
	ctx, cancel := context.WithTimeout(ctx, s.interval)
	defer cancel()

	txs := s.pool.Gather(ctx, pool.Config{Min: 1})

	if len(txs) > s.batchLimit {
		txs = txs[:s.batchLimit]
	}

	return txs
}

// doRound validates the batch on top of the current state and appends the
// record of the results, both written atomically.
func (s *Service) doRound(txs []txn.Transaction) error {
	var evt ordering.Event

	err := s.db.Update(func(tx kv.WritableTx) error {
		state, err := tx.GetBucketOrCreate(stateBucket)
		if err != nil {
			return xerrors.Errorf("state bucket: %v", err)
		}

		res, err := s.validation.Validate(newSnapshot(state), txs)
		if err != nil {
			return xerrors.Errorf("validation failed: %v", err)
		}

		block, err := NewBlock(res,
			WithIndex(s.index),
			WithFrom(s.from),
			WithTimestamp(s.clock()),
			WithHashFactory(s.hashFac))
		if err != nil {
			return xerrors.Errorf("failed to create block: %v", err)
		}

		data, err := block.Serialize()
		if err != nil {
			return xerrors.Errorf("failed to serialize block: %v", err)
		}

		blocks, err := tx.GetBucketOrCreate(blockBucket)
		if err != nil {
			return xerrors.Errorf("block bucket: %v", err)
		}

		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, block.GetIndex())

		err = blocks.Set(key, data)
		if err != nil {
			return xerrors.Errorf("failed to store block: %v", err)
		}

		evt = ordering.Event{
			Index:        block.GetIndex(),
			Transactions: res.GetTransactionResults(),
		}

		tx.OnCommit(func() {
			s.index = block.GetIndex() + 1
			s.from = block.GetHash()
		})

		return nil
	})
	if err != nil {
		return err
	}

	for _, tx := range txs {
		err = s.pool.Remove(tx)
		if err != nil {
			s.logger.Warn().Err(err).Msg("failed to remove transaction")
		}
	}

	for _, txRes := range evt.Transactions {
		accepted, _ := txRes.GetStatus()
		if accepted {
			promTxs.WithLabelValues("accepted").Inc()
		} else {
			promTxs.WithLabelValues("refused").Inc()
		}
	}

	s.watcher.Notify(evt)

	s.logger.Debug().
		Uint64("index", evt.Index).
		Int("transactions", len(txs)).
		Msg("batch processed")

	return nil
}
