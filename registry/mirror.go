package registry

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/votela/votela/core/store/kv"
	"golang.org/x/xerrors"
)

// MirrorStatus is the chain-side lifecycle of a mirrored cast.
type MirrorStatus string

// A record is pending from its creation until the chain receipt settles it
// as confirmed, or until the submission gives up and fails it.
const (
	MirrorPending   MirrorStatus = "pending"
	MirrorConfirmed MirrorStatus = "confirmed"
	MirrorFailed    MirrorStatus = "failed"
)

// MirrorRecord journals one accepted cast forwarded to the mirror contract.
// A failed submission keeps its record with the error. The ledger vote it
// mirrors is never touched.
type MirrorRecord struct {
	Seq       uint64       `json:"seq"`
	VoterHash string       `json:"voter_hash"`
	Party     string       `json:"party"`
	TxHash    string       `json:"tx_hash,omitempty"`
	Status    MirrorStatus `json:"status"`
	GasUsed   uint64       `json:"gas_used,omitempty"`
	Error     string       `json:"error,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// AppendMirror journals a new pending submission and returns it with its
// sequence number.
func (r *Registry) AppendMirror(voterHash, party string) (MirrorRecord, error) {
	rec := MirrorRecord{
		VoterHash: voterHash,
		Party:     party,
		Status:    MirrorPending,
	}

	err := r.db.Update(func(tx kv.WritableTx) error {
		seq, err := nextSequence(tx, mirrorSeqKey)
		if err != nil {
			return err
		}

		rec.Seq = seq

		now := r.clock()
		rec.CreatedAt = now
		rec.UpdatedAt = now

		err = writeMirror(tx, rec)
		if err != nil {
			return err
		}

		return r.appendAudit(tx, AuditEntry{
			Action:  ActionMirrorSubmitted,
			Actor:   "mirror",
			Subject: voterHash,
			Detail:  party,
		})
	})
	if err != nil {
		return MirrorRecord{}, err
	}

	return rec, nil
}

// UpdateMirror applies fn to the record and stores the result. A record
// moving to the failed status appends the matching audit entry.
func (r *Registry) UpdateMirror(seq uint64, fn func(*MirrorRecord)) (MirrorRecord, error) {
	rec := MirrorRecord{}

	err := r.db.Update(func(tx kv.WritableTx) error {
		bucket := tx.GetBucket(mirrorBucket)
		if bucket == nil {
			return xerrors.Errorf("unknown mirror record %d", seq)
		}

		data := bucket.Get(sequenceKey(seq))
		if data == nil {
			return xerrors.Errorf("unknown mirror record %d", seq)
		}

		err := json.Unmarshal(data, &rec)
		if err != nil {
			return xerrors.Errorf("failed to unmarshal record: %v", err)
		}

		before := rec.Status

		fn(&rec)

		rec.Seq = seq
		rec.UpdatedAt = r.clock()

		err = writeMirror(tx, rec)
		if err != nil {
			return err
		}

		if rec.Status == MirrorFailed && before != MirrorFailed {
			return r.appendAudit(tx, AuditEntry{
				Action:  ActionMirrorFailed,
				Actor:   "mirror",
				Subject: rec.VoterHash,
				Detail:  rec.Error,
			})
		}

		return nil
	})
	if err != nil {
		return MirrorRecord{}, err
	}

	return rec, nil
}

// MirrorRecords returns up to limit records of the journal, newest first. A
// limit of zero returns everything.
func (r *Registry) MirrorRecords(limit int) ([]MirrorRecord, error) {
	records := []MirrorRecord{}

	err := r.db.View(func(tx kv.ReadableTx) error {
		bucket := tx.GetBucket(mirrorBucket)
		if bucket == nil {
			return nil
		}

		last := currentSequence(tx, mirrorSeqKey)

		for seq := last; seq > 0; seq-- {
			if limit > 0 && len(records) >= limit {
				return nil
			}

			data := bucket.Get(sequenceKey(seq))
			if data == nil {
				return xerrors.Errorf("missing mirror record %d", seq)
			}

			rec := MirrorRecord{}

			err := json.Unmarshal(data, &rec)
			if err != nil {
				return xerrors.Errorf("mirror record %d: %v", seq, err)
			}

			records = append(records, rec)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return records, nil
}

// MirrorByHash returns the newest record journaled for the voter hash.
func (r *Registry) MirrorByHash(voterHash string) (MirrorRecord, bool, error) {
	records, err := r.MirrorRecords(0)
	if err != nil {
		return MirrorRecord{}, false, err
	}

	for _, rec := range records {
		if rec.VoterHash == voterHash {
			return rec, true, nil
		}
	}

	return MirrorRecord{}, false, nil
}

// PendingMirrors returns the records still waiting for a submission, oldest
// first.
func (r *Registry) PendingMirrors() ([]MirrorRecord, error) {
	records := []MirrorRecord{}

	err := r.db.View(func(tx kv.ReadableTx) error {
		bucket := tx.GetBucket(mirrorBucket)
		if bucket == nil {
			return nil
		}

		return bucket.ForEach(func(key, value []byte) error {
			rec := MirrorRecord{}

			err := json.Unmarshal(value, &rec)
			if err != nil {
				return xerrors.Errorf("mirror record %#x: %v", key, err)
			}

			if rec.Status == MirrorPending {
				records = append(records, rec)
			}

			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Seq < records[j].Seq
	})

	return records, nil
}

// writeMirror stores the record inside the transaction.
func writeMirror(tx kv.WritableTx, rec MirrorRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return xerrors.Errorf("failed to marshal record: %v", err)
	}

	bucket, err := tx.GetBucketOrCreate(mirrorBucket)
	if err != nil {
		return xerrors.Errorf("mirror bucket: %v", err)
	}

	err = bucket.Set(sequenceKey(rec.Seq), data)
	if err != nil {
		return xerrors.Errorf("failed to store record: %v", err)
	}

	return nil
}
