package registry

import (
	"encoding/json"
	"time"

	"github.com/votela/votela/core/store/kv"
	"golang.org/x/xerrors"
)

// Action is the type of an audit entry.
type Action string

// Actions recorded in the audit log.
const (
	ActionVoterRegistered    Action = "voter_registered"
	ActionOTPSent            Action = "otp_sent"
	ActionOTPVerified        Action = "otp_verified"
	ActionVoteCast           Action = "vote_cast"
	ActionVoteRejected       Action = "vote_rejected"
	ActionSessionOpened      Action = "session_opened"
	ActionSessionClosed      Action = "session_closed"
	ActionPartyRegistered    Action = "party_registered"
	ActionPartyStatusChanged Action = "party_status_changed"
	ActionOwnerTransferred   Action = "owner_transferred"
	ActionAdminGranted       Action = "admin_granted"
	ActionAdminRevoked       Action = "admin_revoked"
	ActionMirrorSubmitted    Action = "mirror_submitted"
	ActionMirrorFailed       Action = "mirror_failed"
)

// AuditEntry is one entry of the append-only audit log.
type AuditEntry struct {
	Seq       uint64    `json:"seq"`
	Action    Action    `json:"action"`
	Actor     string    `json:"actor"`
	Subject   string    `json:"subject"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Audit appends an entry to the audit log.
func (r *Registry) Audit(action Action, actor, subject, detail string) error {
	return r.db.Update(func(tx kv.WritableTx) error {
		return r.appendAudit(tx, AuditEntry{
			Action:  action,
			Actor:   actor,
			Subject: subject,
			Detail:  detail,
		})
	})
}

// AuditTrail returns up to limit entries of the audit log, newest first. A
// limit of zero returns everything.
func (r *Registry) AuditTrail(limit int) ([]AuditEntry, error) {
	entries := []AuditEntry{}

	err := r.db.View(func(tx kv.ReadableTx) error {
		bucket := tx.GetBucket(auditBucket)
		if bucket == nil {
			return nil
		}

		last := currentSequence(tx, auditSeqKey)

		for seq := last; seq > 0; seq-- {
			if limit > 0 && len(entries) >= limit {
				return nil
			}

			data := bucket.Get(sequenceKey(seq))
			if data == nil {
				return xerrors.Errorf("missing audit entry %d", seq)
			}

			entry := AuditEntry{}

			err := json.Unmarshal(data, &entry)
			if err != nil {
				return xerrors.Errorf("audit entry %d: %v", seq, err)
			}

			entries = append(entries, entry)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return entries, nil
}

// appendAudit stamps the entry with its sequence number and the current time
// and stores it inside the transaction.
func (r *Registry) appendAudit(tx kv.WritableTx, entry AuditEntry) error {
	seq, err := nextSequence(tx, auditSeqKey)
	if err != nil {
		return err
	}

	entry.Seq = seq
	entry.Timestamp = r.clock()

	data, err := json.Marshal(entry)
	if err != nil {
		return xerrors.Errorf("failed to marshal entry: %v", err)
	}

	bucket, err := tx.GetBucketOrCreate(auditBucket)
	if err != nil {
		return xerrors.Errorf("audit bucket: %v", err)
	}

	err = bucket.Set(sequenceKey(seq), data)
	if err != nil {
		return xerrors.Errorf("failed to store entry: %v", err)
	}

	return nil
}
