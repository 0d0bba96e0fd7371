package web

import (
	"context"
	"net/http"

	"github.com/votela/votela/contracts/voting"
	"github.com/votela/votela/registry"
)

type ctxKey int

const subjectKey ctxKey = iota

type votersResponse struct {
	Voters []registry.Voter `json:"voters"`
}

type importResponse struct {
	Imported int `json:"imported"`
	Total    int `json:"total"`
}

type ledgerStats struct {
	Session      string `json:"session"`
	SessionVotes uint64 `json:"session_votes"`
	Total        uint64 `json:"total"`
}

type statsResponse struct {
	Registry registry.Stats `json:"registry"`
	Ledger   ledgerStats    `json:"ledger"`
}

type auditResponse struct {
	Entries []registry.AuditEntry `json:"entries"`
}

type chainHealth struct {
	Configured bool   `json:"configured"`
	Address    string `json:"address,omitempty"`
	Reachable  bool   `json:"reachable"`
	Active     bool   `json:"active"`
}

type mirrorResponse struct {
	Records []registry.MirrorRecord `json:"records"`
	Chain   chainHealth             `json:"chain"`
}

// requireAdmin guards the operator endpoints with a bearer token.
func (s *Service) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			s.writeError(w, http.StatusUnauthorized, codeUnauthorized,
				"a bearer token is required")
			return
		}

		subject, err := s.tokens.VerifyAdmin(token)
		if err != nil {
			s.writeError(w, http.StatusUnauthorized, codeUnauthorized, err.Error())
			return
		}

		ctx := context.WithValue(r.Context(), subjectKey, subject)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Service) adminVoters(w http.ResponseWriter, r *http.Request) {
	limit, err := limitParam(r, 50)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, codeInvalid, err.Error())
		return
	}

	voters, err := s.registry.Search(r.URL.Query().Get("q"), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, codeInternal, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, votersResponse{Voters: voters})
}

func (s *Service) adminImport(w http.ResponseWriter, r *http.Request) {
	voters, err := registry.DecodeRoster(r.Body)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, codeInvalid, err.Error())
		return
	}

	actor, _ := r.Context().Value(subjectKey).(string)
	if actor == "" {
		actor = "admin"
	}

	added, err := s.registry.Import(actor, voters)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, codeInvalid, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, importResponse{
		Imported: added,
		Total:    len(voters),
	})
}

func (s *Service) adminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.registry.Stats()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, codeInternal, err.Error())
		return
	}

	store := s.ordering.GetStore()

	session, err := voting.GetSession(store)
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, codeUnavailable,
			"the ledger cannot be consulted")
		return
	}

	tally, err := voting.GetTally(store)
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, codeUnavailable,
			"the ledger cannot be consulted")
		return
	}

	s.writeJSON(w, http.StatusOK, statsResponse{
		Registry: stats,
		Ledger: ledgerStats{
			Session:      string(session.Status),
			SessionVotes: session.Votes,
			Total:        tally.Total,
		},
	})
}

func (s *Service) adminAudit(w http.ResponseWriter, r *http.Request) {
	limit, err := limitParam(r, 50)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, codeInvalid, err.Error())
		return
	}

	entries, err := s.registry.AuditTrail(limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, codeInternal, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, auditResponse{Entries: entries})
}

func (s *Service) adminMirror(w http.ResponseWriter, r *http.Request) {
	limit, err := limitParam(r, 50)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, codeInvalid, err.Error())
		return
	}

	records, err := s.registry.MirrorRecords(limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, codeInternal, err.Error())
		return
	}

	health := chainHealth{}

	if s.chain != nil {
		health.Configured = true
		health.Address = s.chain.Address()

		ctx, cancel := context.WithTimeout(r.Context(), chainTimeout)
		defer cancel()

		active, err := s.chain.IsVotingActive(ctx)
		if err != nil {
			s.logger.Warn().Err(err).Msg("mirror contract is not reachable")
		} else {
			health.Reachable = true
			health.Active = active
		}
	}

	s.writeJSON(w, http.StatusOK, mirrorResponse{
		Records: records,
		Chain:   health,
	})
}
