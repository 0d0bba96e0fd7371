// Package registry implements the off-ledger voter registry.
//
// The registry keeps the records that do not belong on the ledger: voter
// identities, their one-time-password verification state, the append-only
// audit log and the journal of mirror submissions. Everything lives in
// buckets of the node's key/value database so that related writes commit in
// one transaction.
//
// The ledger stays the sole authority for "has voted". The registry caches
// the flag so the web tier can answer status queries without scanning the
// record log, and the chain audit command reports any disagreement between
// the two instead of hiding it.
package registry

import (
	"encoding/binary"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/votela/votela"
	"github.com/votela/votela/contracts/voting/types"
	"github.com/votela/votela/core/store/kv"
	"golang.org/x/xerrors"
)

// SearchLimit is the maximum number of voters a search returns.
const SearchLimit = 20

var (
	voterBucket  = []byte("registry:voters")
	emailBucket  = []byte("registry:emails")
	hashBucket   = []byte("registry:hashes")
	otpBucket    = []byte("registry:otp")
	auditBucket  = []byte("registry:audit")
	mirrorBucket = []byte("registry:mirror")
	metaBucket   = []byte("registry:meta")
)

var (
	auditSeqKey  = []byte("audit")
	mirrorSeqKey = []byte("mirror")
)

// Registry gives access to the voter records of a node.
type Registry struct {
	db     kv.DB
	salt   string
	mailer Mailer
	logger zerolog.Logger
	clock  func() time.Time
}

// Option configures a registry.
type Option func(*Registry)

// WithMailer makes the registry deliver one-time passwords through the given
// mailer.
func WithMailer(m Mailer) Option {
	return func(r *Registry) {
		r.mailer = m
	}
}

// WithClock makes the registry read the time from the given function.
func WithClock(fn func() time.Time) Option {
	return func(r *Registry) {
		r.clock = fn
	}
}

// NewRegistry creates a registry over the given database. The salt is mixed
// into every voter hash derivation and must stay stable for the lifetime of
// the deployment.
func NewRegistry(db kv.DB, salt string, opts ...Option) *Registry {
	r := &Registry{
		db:     db,
		salt:   salt,
		logger: votela.Logger.With().Str("service", "registry").Logger(),
		clock:  time.Now,
	}

	r.mailer = NewLogMailer(r.logger)

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Register validates and stores a new voter under the given actor. The
// national id and the email must be unused. The voter starts pending with a
// fresh UUID.
func (r *Registry) Register(actor string, input Voter) (Voter, error) {
	voter := input
	voter.Email = strings.ToLower(strings.TrimSpace(input.Email))

	err := voter.Validate()
	if err != nil {
		return Voter{}, xerrors.Errorf("invalid voter: %v", err)
	}

	voter.UUID = uuid.NewString()
	voter.Status = StatusPending
	voter.HasVoted = false

	now := r.clock()
	voter.CreatedAt = now
	voter.UpdatedAt = now

	err = r.db.Update(func(tx kv.WritableTx) error {
		err := r.createVoter(tx, voter)
		if err != nil {
			return err
		}

		return r.appendAudit(tx, AuditEntry{
			Action:  ActionVoterRegistered,
			Actor:   actor,
			Subject: voter.NationalID,
			Detail:  voter.FullName,
		})
	})
	if err != nil {
		return Voter{}, err
	}

	r.logger.Info().
		Str("voter", voter.NationalID).
		Str("actor", actor).
		Msg("voter registered")

	return voter, nil
}

// Import stores every unknown voter of the list and returns how many were
// added. Voters already registered are left untouched. The batch is atomic,
// so one invalid entry fails the whole import.
func (r *Registry) Import(actor string, voters []Voter) (int, error) {
	added := 0

	err := r.db.Update(func(tx kv.WritableTx) error {
		for _, input := range voters {
			voter := input
			voter.Email = strings.ToLower(strings.TrimSpace(input.Email))

			err := voter.Validate()
			if err != nil {
				return xerrors.Errorf("invalid voter '%s': %v", input.NationalID, err)
			}

			if exists(tx, voterBucket, []byte(voter.NationalID)) {
				continue
			}

			voter.UUID = uuid.NewString()
			voter.Status = StatusPending
			voter.HasVoted = false

			now := r.clock()
			voter.CreatedAt = now
			voter.UpdatedAt = now

			err = r.createVoter(tx, voter)
			if err != nil {
				return err
			}

			err = r.appendAudit(tx, AuditEntry{
				Action:  ActionVoterRegistered,
				Actor:   actor,
				Subject: voter.NationalID,
				Detail:  voter.FullName,
			})
			if err != nil {
				return err
			}

			added++
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	r.logger.Info().Int("added", added).Msg("roster imported")

	return added, nil
}

// Voter returns the voter with the given national id.
func (r *Registry) Voter(nationalID string) (Voter, error) {
	var voter Voter

	err := r.db.View(func(tx kv.ReadableTx) error {
		var err error
		voter, err = readVoter(tx, nationalID)

		return err
	})
	if err != nil {
		return Voter{}, err
	}

	return voter, nil
}

// VoterByEmail returns the voter registered with the given email.
func (r *Registry) VoterByEmail(email string) (Voter, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var voter Voter

	err := r.db.View(func(tx kv.ReadableTx) error {
		bucket := tx.GetBucket(emailBucket)
		if bucket == nil {
			return xerrors.Errorf("no voter with email '%s'", email)
		}

		id := bucket.Get([]byte(email))
		if id == nil {
			return xerrors.Errorf("no voter with email '%s'", email)
		}

		var err error
		voter, err = readVoter(tx, string(id))

		return err
	})
	if err != nil {
		return Voter{}, err
	}

	return voter, nil
}

// VoterByHash returns the voter whose derived hash matches.
func (r *Registry) VoterByHash(hash types.VoterHash) (Voter, error) {
	var voter Voter

	err := r.db.View(func(tx kv.ReadableTx) error {
		bucket := tx.GetBucket(hashBucket)
		if bucket == nil {
			return xerrors.Errorf("no voter with hash %s", hash)
		}

		id := bucket.Get(hash.Bytes())
		if id == nil {
			return xerrors.Errorf("no voter with hash %s", hash)
		}

		var err error
		voter, err = readVoter(tx, string(id))

		return err
	})
	if err != nil {
		return Voter{}, err
	}

	return voter, nil
}

// VoterHash derives the ledger key of the voter.
func (r *Registry) VoterHash(nationalID string) (types.VoterHash, error) {
	voter, err := r.Voter(nationalID)
	if err != nil {
		return types.VoterHash{}, err
	}

	return voter.Hash(r.salt), nil
}

// Search returns the voters matching the term, by national id prefix or by a
// case-insensitive part of the email or the full name. At most limit voters
// are returned, capped at SearchLimit.
func (r *Registry) Search(q string, limit int) ([]Voter, error) {
	if limit <= 0 || limit > SearchLimit {
		limit = SearchLimit
	}

	q = strings.ToLower(strings.TrimSpace(q))

	voters := []Voter{}

	err := r.ForEachVoter(func(voter Voter) error {
		if voter.matches(q) {
			voters = append(voters, voter)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(voters, func(i, j int) bool {
		return voters[i].NationalID < voters[j].NationalID
	})

	if len(voters) > limit {
		voters = voters[:limit]
	}

	return voters, nil
}

// ForEachVoter calls fn with every registered voter, in no particular order.
func (r *Registry) ForEachVoter(fn func(Voter) error) error {
	return r.db.View(func(tx kv.ReadableTx) error {
		bucket := tx.GetBucket(voterBucket)
		if bucket == nil {
			return nil
		}

		return bucket.ForEach(func(key, value []byte) error {
			voter := Voter{}

			err := json.Unmarshal(value, &voter)
			if err != nil {
				return xerrors.Errorf("voter '%s': %v", key, err)
			}

			return fn(voter)
		})
	})
}

// MarkVoted flips the voted cache of the voter owning the hash and appends
// the audit entry. The call is idempotent so that replayed events are
// harmless.
func (r *Registry) MarkVoted(hash types.VoterHash, party string) error {
	return r.db.Update(func(tx kv.WritableTx) error {
		bucket := tx.GetBucket(hashBucket)
		if bucket == nil {
			return xerrors.Errorf("no voter with hash %s", hash)
		}

		id := bucket.Get(hash.Bytes())
		if id == nil {
			return xerrors.Errorf("no voter with hash %s", hash)
		}

		voter, err := readVoter(tx, string(id))
		if err != nil {
			return err
		}

		if voter.HasVoted {
			return nil
		}

		voter.HasVoted = true
		voter.UpdatedAt = r.clock()

		err = writeVoter(tx, voter)
		if err != nil {
			return err
		}

		return r.appendAudit(tx, AuditEntry{
			Action:  ActionVoteCast,
			Actor:   "ledger",
			Subject: voter.NationalID,
			Detail:  party,
		})
	})
}

// createVoter writes the voter and its indices inside the transaction. It
// fails when the national id or the email is already taken.
func (r *Registry) createVoter(tx kv.WritableTx, voter Voter) error {
	voters, err := tx.GetBucketOrCreate(voterBucket)
	if err != nil {
		return xerrors.Errorf("voter bucket: %v", err)
	}

	if voters.Get([]byte(voter.NationalID)) != nil {
		return xerrors.Errorf("voter '%s' already exists", voter.NationalID)
	}

	emails, err := tx.GetBucketOrCreate(emailBucket)
	if err != nil {
		return xerrors.Errorf("email bucket: %v", err)
	}

	if emails.Get([]byte(voter.Email)) != nil {
		return xerrors.Errorf("email '%s' is already registered", voter.Email)
	}

	err = emails.Set([]byte(voter.Email), []byte(voter.NationalID))
	if err != nil {
		return xerrors.Errorf("failed to index email: %v", err)
	}

	hashes, err := tx.GetBucketOrCreate(hashBucket)
	if err != nil {
		return xerrors.Errorf("hash bucket: %v", err)
	}

	err = hashes.Set(voter.Hash(r.salt).Bytes(), []byte(voter.NationalID))
	if err != nil {
		return xerrors.Errorf("failed to index hash: %v", err)
	}

	return writeVoter(tx, voter)
}

// writeVoter stores the voter record inside the transaction.
func writeVoter(tx kv.WritableTx, voter Voter) error {
	data, err := json.Marshal(voter)
	if err != nil {
		return xerrors.Errorf("failed to marshal voter: %v", err)
	}

	bucket, err := tx.GetBucketOrCreate(voterBucket)
	if err != nil {
		return xerrors.Errorf("voter bucket: %v", err)
	}

	err = bucket.Set([]byte(voter.NationalID), data)
	if err != nil {
		return xerrors.Errorf("failed to store voter: %v", err)
	}

	return nil
}

// readVoter returns the voter stored under the national id.
func readVoter(tx kv.ReadableTx, nationalID string) (Voter, error) {
	bucket := tx.GetBucket(voterBucket)
	if bucket == nil {
		return Voter{}, xerrors.Errorf("unknown voter '%s'", nationalID)
	}

	data := bucket.Get([]byte(nationalID))
	if data == nil {
		return Voter{}, xerrors.Errorf("unknown voter '%s'", nationalID)
	}

	voter := Voter{}

	err := json.Unmarshal(data, &voter)
	if err != nil {
		return Voter{}, xerrors.Errorf("failed to unmarshal voter: %v", err)
	}

	return voter, nil
}

// exists tells if the key is set in the bucket, which may not exist yet.
func exists(tx kv.ReadableTx, name, key []byte) bool {
	bucket := tx.GetBucket(name)
	if bucket == nil {
		return false
	}

	return bucket.Get(key) != nil
}

// nextSequence increments and returns the named counter of the meta bucket.
// The counter commits with the transaction, so a rolled back append leaves
// no gap.
func nextSequence(tx kv.WritableTx, name []byte) (uint64, error) {
	meta, err := tx.GetBucketOrCreate(metaBucket)
	if err != nil {
		return 0, xerrors.Errorf("meta bucket: %v", err)
	}

	seq := uint64(1)

	data := meta.Get(name)
	if data != nil {
		seq = binary.BigEndian.Uint64(data) + 1
	}

	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, seq)

	err = meta.Set(name, buf)
	if err != nil {
		return 0, xerrors.Errorf("failed to store sequence: %v", err)
	}

	return seq, nil
}

// currentSequence returns the named counter, or zero if nothing was appended
// yet.
func currentSequence(tx kv.ReadableTx, name []byte) uint64 {
	meta := tx.GetBucket(metaBucket)
	if meta == nil {
		return 0
	}

	data := meta.Get(name)
	if data == nil {
		return 0
	}

	return binary.BigEndian.Uint64(data)
}

// sequenceKey returns the big-endian key of a sequence number.
func sequenceKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)

	return key
}
