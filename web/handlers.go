package web

import (
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/votela/votela/contracts/voting"
	"github.com/votela/votela/contracts/voting/types"
	"github.com/votela/votela/registry"
)

type registerRequest struct {
	NationalID   string `json:"national_id"`
	Email        string `json:"email"`
	FullName     string `json:"full_name"`
	Phone        string `json:"phone"`
	Constituency string `json:"constituency"`
	Region       string `json:"region"`
	Gender       string `json:"gender"`
	BirthDate    string `json:"birth_date"`
}

type registerResponse struct {
	NationalID string `json:"national_id"`
	Status     string `json:"status"`
	OTPSent    bool   `json:"otp_sent"`
}

type otpRequest struct {
	NationalID string `json:"national_id"`
}

type otpResponse struct {
	Sent      bool      `json:"sent"`
	ExpiresAt time.Time `json:"expires_at"`
}

type verifyRequest struct {
	NationalID string `json:"national_id"`
	Code       string `json:"code"`
}

type verifyResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type castRequest struct {
	Party string `json:"party"`
}

type castResponse struct {
	Index     uint64 `json:"index"`
	Party     string `json:"party"`
	VoterHash string `json:"voter_hash"`
}

type voteStatusResponse struct {
	NationalID  string `json:"national_id"`
	Status      string `json:"status"`
	HasVoted    bool   `json:"has_voted"`
	LedgerVoted bool   `json:"ledger_voted"`
	VoterHash   string `json:"voter_hash"`
	Mirror      string `json:"mirror,omitempty"`
	ChainTx     string `json:"chain_tx,omitempty"`
}

type partyResult struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Active     bool    `json:"active"`
	Votes      uint64  `json:"votes"`
	Percentage float64 `json:"percentage"`
}

type resultsResponse struct {
	Total   uint64        `json:"total"`
	Turnout float64       `json:"turnout"`
	Parties []partyResult `json:"parties"`
}

type winnerResponse struct {
	Winner *partyResult `json:"winner"`
}

type sessionResponse struct {
	Status           string     `json:"status"`
	Name             string     `json:"name,omitempty"`
	Start            *time.Time `json:"start,omitempty"`
	End              *time.Time `json:"end,omitempty"`
	Votes            uint64     `json:"votes"`
	RemainingSeconds int64      `json:"remaining_seconds"`
}

type partyView struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Votes       uint64 `json:"votes"`
}

type partiesResponse struct {
	Parties []partyView `json:"parties"`
}

type contractResponse struct {
	Address string `json:"address"`
}

func (s *Service) registerVoter(w http.ResponseWriter, r *http.Request) {
	req := registerRequest{}

	err := decode(r, &req)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, codeInvalid, err.Error())
		return
	}

	_, err = s.registry.Voter(req.NationalID)
	if err == nil {
		s.writeError(w, http.StatusConflict, codeConflict, "voter already exists")
		return
	}

	_, err = s.registry.VoterByEmail(req.Email)
	if err == nil {
		s.writeError(w, http.StatusConflict, codeConflict, "email is already registered")
		return
	}

	voter, err := s.registry.Register("web", registry.Voter{
		NationalID:   req.NationalID,
		Email:        req.Email,
		FullName:     req.FullName,
		Phone:        req.Phone,
		Constituency: req.Constituency,
		Region:       req.Region,
		Gender:       req.Gender,
		BirthDate:    req.BirthDate,
	})
	if err != nil {
		s.writeError(w, http.StatusBadRequest, codeInvalid, err.Error())
		return
	}

	sent := true

	_, err = s.registry.IssueOTP(voter.NationalID)
	if err != nil {
		s.logger.Warn().Err(err).Str("voter", voter.NationalID).
			Msg("failed to send the code")

		sent = false
	}

	s.writeJSON(w, http.StatusCreated, registerResponse{
		NationalID: voter.NationalID,
		Status:     string(voter.Status),
		OTPSent:    sent,
	})
}

func (s *Service) requestOTP(w http.ResponseWriter, r *http.Request) {
	req := otpRequest{}

	err := decode(r, &req)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, codeInvalid, err.Error())
		return
	}

	_, err = s.registry.Voter(req.NationalID)
	if err != nil {
		s.writeError(w, http.StatusNotFound, codeNotFound, err.Error())
		return
	}

	verif, err := s.registry.IssueOTP(req.NationalID)
	if err != nil {
		s.writeError(w, http.StatusBadGateway, codeUnavailable,
			"the code could not be sent")
		return
	}

	s.writeJSON(w, http.StatusOK, otpResponse{
		Sent:      true,
		ExpiresAt: verif.ExpiresAt,
	})
}

func (s *Service) verifyOTP(w http.ResponseWriter, r *http.Request) {
	req := verifyRequest{}

	err := decode(r, &req)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, codeInvalid, err.Error())
		return
	}

	err = s.registry.VerifyOTP(req.NationalID, req.Code)
	if err != nil {
		s.writeError(w, http.StatusUnauthorized, codeUnauthorized, err.Error())
		return
	}

	hash, err := s.registry.VoterHash(req.NationalID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, codeInternal, err.Error())
		return
	}

	grant, err := s.tokens.CastGrant(hash)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, codeInternal, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, verifyResponse{
		Token:     grant,
		ExpiresAt: s.clock().Add(GrantValidity),
	})
}

// castVote records a ballot on the ledger. The caller authenticates with the
// grant of the code verification, and the sequencer has the last word on the
// write-once rule, so a double ballot loses even when two requests race.
func (s *Service) castVote(w http.ResponseWriter, r *http.Request) {
	grant := bearerToken(r)
	if grant == "" {
		s.writeError(w, http.StatusUnauthorized, codeUnauthorized,
			"a cast grant is required")
		return
	}

	hash, err := s.tokens.VerifyCastGrant(grant)
	if err != nil {
		s.writeError(w, http.StatusUnauthorized, codeUnauthorized, err.Error())
		return
	}

	req := castRequest{}

	err = decode(r, &req)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, codeInvalid, err.Error())
		return
	}

	if req.Party == "" {
		s.writeError(w, http.StatusBadRequest, codeInvalid, "a party is required")
		return
	}

	voter, err := s.registry.VoterByHash(hash)
	if err != nil {
		s.writeError(w, http.StatusForbidden, codeForbidden, "unknown voter")
		return
	}

	if voter.Status != registry.StatusVerified {
		s.writeError(w, http.StatusForbidden, codeForbidden, "voter is not verified")
		return
	}

	if voter.HasVoted {
		s.writeError(w, http.StatusConflict, codeConflict,
			"voter has already cast a ballot")
		return
	}

	voted, err := voting.HasVoted(s.ordering.GetStore(), hash)
	if err != nil {
		s.reject(hash, "ledger unreachable")
		s.writeError(w, http.StatusServiceUnavailable, codeUnavailable,
			"the ledger cannot be consulted")
		return
	}

	if voted {
		s.writeError(w, http.StatusConflict, codeConflict,
			"voter has already cast a ballot")
		return
	}

	index, err := s.submitCast(r.Context(), hash, req.Party)

	rejected := rejectionError{}

	switch {
	case errors.As(err, &rejected):
		s.reject(hash, rejected.reason)
		s.writeError(w, http.StatusUnprocessableEntity, codeRejected, rejected.reason)
	case errors.Is(err, errTxTimeout):
		s.reject(hash, "ledger timeout")
		s.writeError(w, http.StatusGatewayTimeout, codeUnavailable,
			"the ledger did not answer in time")
	case err != nil:
		s.reject(hash, err.Error())
		s.writeError(w, http.StatusServiceUnavailable, codeUnavailable,
			"the cast could not be submitted")
	default:
		s.logger.Info().
			Str("hash", hash.String()).
			Str("party", req.Party).
			Uint64("index", index).
			Msg("ballot recorded")

		s.writeJSON(w, http.StatusOK, castResponse{
			Index:     index,
			Party:     req.Party,
			VoterHash: hash.String(),
		})
	}
}

func (s *Service) voteStatus(w http.ResponseWriter, r *http.Request) {
	nationalID := r.URL.Query().Get("nationalId")
	if nationalID == "" {
		s.writeError(w, http.StatusBadRequest, codeInvalid,
			"the nationalId parameter is required")
		return
	}

	voter, err := s.registry.Voter(nationalID)
	if err != nil {
		s.writeError(w, http.StatusNotFound, codeNotFound, err.Error())
		return
	}

	hash, err := s.registry.VoterHash(nationalID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, codeInternal, err.Error())
		return
	}

	voted, err := voting.HasVoted(s.ordering.GetStore(), hash)
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, codeUnavailable,
			"the ledger cannot be consulted")
		return
	}

	resp := voteStatusResponse{
		NationalID:  voter.NationalID,
		Status:      string(voter.Status),
		HasVoted:    voter.HasVoted,
		LedgerVoted: voted,
		VoterHash:   hash.String(),
	}

	rec, found, err := s.registry.MirrorByHash(hash.String())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, codeInternal, err.Error())
		return
	}

	if found {
		resp.Mirror = string(rec.Status)
		resp.ChainTx = rec.TxHash
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Service) results(w http.ResponseWriter, r *http.Request) {
	store := s.ordering.GetStore()

	parties, err := voting.GetParties(store)
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

	stats, err := s.registry.Stats()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, codeInternal, err.Error())
		return
	}

	views := make([]partyResult, 0, len(parties))

	for _, party := range parties {
		views = append(views, partyResult{
			ID:         party.ID,
			Name:       party.Name,
			Active:     party.Active,
			Votes:      party.Votes,
			Percentage: percentage(party.Votes, tally.Total),
		})
	}

	s.writeJSON(w, http.StatusOK, resultsResponse{
		Total:   tally.Total,
		Turnout: percentage(tally.Total, uint64(stats.Voters)),
		Parties: views,
	})
}

func (s *Service) winner(w http.ResponseWriter, r *http.Request) {
	store := s.ordering.GetStore()

	party, found, err := voting.GetWinner(store)
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, codeUnavailable,
			"the ledger cannot be consulted")
		return
	}

	resp := winnerResponse{}

	if found {
		tally, err := voting.GetTally(store)
		if err != nil {
			s.writeError(w, http.StatusServiceUnavailable, codeUnavailable,
				"the ledger cannot be consulted")
			return
		}

		resp.Winner = &partyResult{
			ID:         party.ID,
			Name:       party.Name,
			Active:     party.Active,
			Votes:      party.Votes,
			Percentage: percentage(party.Votes, tally.Total),
		}
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Service) session(w http.ResponseWriter, r *http.Request) {
	session, err := voting.GetSession(s.ordering.GetStore())
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, codeUnavailable,
			"the ledger cannot be consulted")
		return
	}

	resp := sessionResponse{
		Status: string(session.Status),
		Votes:  session.Votes,
	}

	if session.Status != types.SessionNone {
		resp.Name = session.Name
		resp.Start = &session.Start
		resp.End = &session.End
	}

	if session.Status == types.SessionActive {
		resp.RemainingSeconds = int64(session.Remaining(s.clock()).Seconds())
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Service) parties(w http.ResponseWriter, r *http.Request) {
	parties, err := voting.GetParties(s.ordering.GetStore())
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, codeUnavailable,
			"the ledger cannot be consulted")
		return
	}

	views := make([]partyView, 0, len(parties))

	for _, party := range parties {
		if !party.Active {
			continue
		}

		views = append(views, partyView{
			ID:          party.ID,
			Name:        party.Name,
			Description: party.Description,
			Votes:       party.Votes,
		})
	}

	s.writeJSON(w, http.StatusOK, partiesResponse{Parties: views})
}

func (s *Service) chainContract(w http.ResponseWriter, r *http.Request) {
	if s.chain == nil {
		s.writeError(w, http.StatusNotFound, codeNotFound,
			"no mirror contract is configured")
		return
	}

	s.writeJSON(w, http.StatusOK, contractResponse{Address: s.chain.Address()})
}

func percentage(part, total uint64) float64 {
	if total == 0 {
		return 0
	}

	return math.Round(float64(part)/float64(total)*10000) / 100
}
