package registry

import (
	"github.com/votela/votela/core/store/kv"
)

// Stats aggregates the registry counters for the operator dashboard.
type Stats struct {
	Voters          int    `json:"voters"`
	Pending         int    `json:"pending"`
	Verified        int    `json:"verified"`
	Rejected        int    `json:"rejected"`
	Voted           int    `json:"voted"`
	AuditEntries    uint64 `json:"audit_entries"`
	MirrorPending   int    `json:"mirror_pending"`
	MirrorConfirmed int    `json:"mirror_confirmed"`
	MirrorFailed    int    `json:"mirror_failed"`
}

// Stats walks the registry and returns its counters.
func (r *Registry) Stats() (Stats, error) {
	stats := Stats{}

	err := r.ForEachVoter(func(voter Voter) error {
		stats.Voters++

		switch voter.Status {
		case StatusPending:
			stats.Pending++
		case StatusVerified:
			stats.Verified++
		case StatusRejected:
			stats.Rejected++
		}

		if voter.HasVoted {
			stats.Voted++
		}

		return nil
	})
	if err != nil {
		return Stats{}, err
	}

	err = r.db.View(func(tx kv.ReadableTx) error {
		stats.AuditEntries = currentSequence(tx, auditSeqKey)

		return nil
	})
	if err != nil {
		return Stats{}, err
	}

	records, err := r.MirrorRecords(0)
	if err != nil {
		return Stats{}, err
	}

	for _, rec := range records {
		switch rec.Status {
		case MirrorPending:
			stats.MirrorPending++
		case MirrorConfirmed:
			stats.MirrorConfirmed++
		case MirrorFailed:
			stats.MirrorFailed++
		}
	}

	return stats, nil
}
