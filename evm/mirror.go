package evm

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
	"github.com/votela/votela"
	"github.com/votela/votela/contracts/voting"
	"github.com/votela/votela/contracts/voting/types"
	"github.com/votela/votela/core/ordering"
	"github.com/votela/votela/registry"
	"golang.org/x/xerrors"
)

// Submission retry policy. A record still failing after the last attempt is
// journaled as failed with its error.
const (
	defaultRetryBase = 2 * time.Second
	defaultRetryCap  = 30 * time.Second
	defaultRetryMax  = 5
)

// Mirror forwards the casts accepted by the ledger to the contract. Every
// submission is journaled in the registry before it runs, so a chain outage
// loses nothing: pending records are drained again at startup.
type Mirror struct {
	registry *registry.Registry
	client   *Client
	ordering ordering.Service
	logger   zerolog.Logger

	retryBase time.Duration
	retryCap  time.Duration
	retryMax  uint64
}

// NewMirror creates a mirror fed by the ordering service.
func NewMirror(reg *registry.Registry, client *Client, srvc ordering.Service) *Mirror {
	return &Mirror{
		registry:  reg,
		client:    client,
		ordering:  srvc,
		logger:    votela.Logger.With().Str("service", "mirror").Logger(),
		retryBase: defaultRetryBase,
		retryCap:  defaultRetryCap,
		retryMax:  defaultRetryMax,
	}
}

// Listen drains the pending journal and then forwards the new casts until
// the context is done.
func (m *Mirror) Listen(ctx context.Context) {
	err := m.catchUp(ctx)
	if err != nil {
		m.logger.Err(err).Msg("failed to drain the journal")
	}

	for evt := range m.ordering.Watch(ctx) {
		for _, cast := range voting.AcceptedCasts(evt) {
			rec, err := m.registry.AppendMirror(cast.VoterHash.String(), cast.Party)
			if err != nil {
				m.logger.Err(err).Msg("failed to journal the cast")
				continue
			}

			m.submit(ctx, rec)
		}
	}
}

func (m *Mirror) catchUp(ctx context.Context) error {
	pending, err := m.registry.PendingMirrors()
	if err != nil {
		return xerrors.Errorf("failed to read pending records: %v", err)
	}

	for _, rec := range pending {
		if ctx.Err() != nil {
			return nil
		}

		m.submit(ctx, rec)
	}

	return nil
}

// submit pushes one record to the contract and settles its journal entry
// with the outcome.
func (m *Mirror) submit(ctx context.Context, rec registry.MirrorRecord) {
	hash, err := types.ParseVoterHash(rec.VoterHash)
	if err != nil {
		m.fail(rec, xerrors.Errorf("malformed record: %v", err))
		return
	}

	backoff, err := retry.NewExponential(m.retryBase)
	if err != nil {
		m.fail(rec, xerrors.Errorf("failed to create backoff: %v", err))
		return
	}

	backoff = retry.WithCappedDuration(m.retryCap, backoff)
	backoff = retry.WithMaxRetries(m.retryMax, backoff)

	var receipt Receipt

	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		// The cast may have settled in a previous run, or through another
		// operator. The contract is the reference, not the journal.
		voted, err := m.client.HasVoted(ctx, hash)
		if err != nil {
			return retry.RetryableError(xerrors.Errorf("failed to query the contract: %v", err))
		}

		if voted {
			return nil
		}

		receipt, err = m.client.CastVote(ctx, hash, rec.Party)
		if err != nil {
			return retry.RetryableError(err)
		}

		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			// The record stays pending and will be drained at the next
			// startup.
			m.logger.Warn().Uint64("seq", rec.Seq).Msg("submission interrupted")
			return
		}

		m.fail(rec, err)
		return
	}

	_, err = m.registry.UpdateMirror(rec.Seq, func(r *registry.MirrorRecord) {
		r.Status = registry.MirrorConfirmed
		r.TxHash = receipt.TxHash
		r.GasUsed = receipt.GasUsed
	})
	if err != nil {
		m.logger.Err(err).Uint64("seq", rec.Seq).Msg("failed to update the journal")
		return
	}

	m.logger.Info().
		Uint64("seq", rec.Seq).
		Str("tx", receipt.TxHash).
		Msg("cast mirrored")
}

func (m *Mirror) fail(rec registry.MirrorRecord, err error) {
	m.logger.Err(err).Uint64("seq", rec.Seq).Msg("failed to mirror the cast")

	_, uerr := m.registry.UpdateMirror(rec.Seq, func(r *registry.MirrorRecord) {
		r.Status = registry.MirrorFailed
		r.Error = err.Error()
	})
	if uerr != nil {
		m.logger.Err(uerr).Uint64("seq", rec.Seq).Msg("failed to update the journal")
	}
}
