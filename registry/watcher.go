package registry

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/votela/votela"
	"github.com/votela/votela/contracts/voting"
	"github.com/votela/votela/core/ordering"
)

// Watcher follows the ordering service and folds the accepted casts back
// into the registry, as a voted mark and an audit entry per cast.
type Watcher struct {
	registry *Registry
	ordering ordering.Service
	logger   zerolog.Logger
}

// NewWatcher creates a watcher for the given services.
func NewWatcher(reg *Registry, srvc ordering.Service) *Watcher {
	return &Watcher{
		registry: reg,
		ordering: srvc,
		logger:   votela.Logger.With().Str("service", "registry").Logger(),
	}
}

// Listen consumes the events of the ordering service until the context ends.
// A cast whose hash is unknown to the registry is logged and skipped, as the
// ledger accepts casts submitted outside the web tier.
func (w *Watcher) Listen(ctx context.Context) {
	events := w.ordering.Watch(ctx)

	for evt := range events {
		for _, cast := range voting.AcceptedCasts(evt) {
			err := w.registry.MarkVoted(cast.VoterHash, cast.Party)
			if err != nil {
				w.logger.Warn().
					Str("hash", cast.VoterHash.String()).
					Err(err).
					Msg("vote not marked")
			}
		}
	}
}
