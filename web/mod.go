// Package web implements the JSON API of the node. It exposes the voter
// journey over HTTP: registration, code verification, the ballot itself and
// the public results, plus a token-protected operator surface.
//
// Every consultation of the ledger goes through the ordering service of the
// node. When the ledger cannot be read, the API answers with an error rather
// than guessing, so a broken node never lets a ballot through.
package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/votela/votela"
	"github.com/votela/votela/contracts/voting"
	"github.com/votela/votela/contracts/voting/types"
	"github.com/votela/votela/core/execution/native"
	"github.com/votela/votela/core/ordering"
	"github.com/votela/votela/core/txn"
	"github.com/votela/votela/core/txn/pool"
	"github.com/votela/votela/evm"
	"github.com/votela/votela/proxy"
	"github.com/votela/votela/registry"
	"golang.org/x/xerrors"
)

// apiPrefix is where the API lives on the proxy.
const apiPrefix = "/evoting/api"

const (
	defaultTxTimeout = 10 * time.Second
	chainTimeout     = 5 * time.Second
)

const (
	codeInvalid      = "invalid_request"
	codeUnauthorized = "unauthorized"
	codeForbidden    = "forbidden"
	codeNotFound     = "not_found"
	codeConflict     = "conflict"
	codeRejected     = "rejected"
	codeUnavailable  = "unavailable"
	codeInternal     = "internal"
)

var errTxTimeout = xerrors.New("transaction not included in time")

// rejectionError carries the reason of the sequencer when it refuses a cast.
type rejectionError struct {
	reason string
}

func (e rejectionError) Error() string {
	return e.reason
}

// Service exposes the registry and the ledger of the node over HTTP.
type Service struct {
	registry *registry.Registry
	ordering ordering.Service
	mgr      txn.Manager
	pool     pool.Pool
	chain    *evm.Client
	tokens   *TokenIssuer
	origins  []string
	logger   zerolog.Logger
	clock    func() time.Time
	timeout  time.Duration

	txLock sync.Mutex
}

// Option updates the service template before it is created.
type Option func(*Service)

// WithChain sets the mirror contract client so that the API can report the
// mirror health.
func WithChain(client *evm.Client) Option {
	return func(s *Service) {
		s.chain = client
	}
}

// WithOrigins restricts the origins allowed by CORS.
func WithOrigins(origins []string) Option {
	return func(s *Service) {
		s.origins = origins
	}
}

// WithClock sets the time source of the service.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

// WithTxTimeout sets how long a cast may wait for the sequencer.
func WithTxTimeout(timeout time.Duration) Option {
	return func(s *Service) {
		s.timeout = timeout
	}
}

// NewService creates the API service around the registry and the ledger.
func NewService(reg *registry.Registry, srvc ordering.Service, mgr txn.Manager,
	p pool.Pool, tokens *TokenIssuer, opts ...Option) *Service {

	s := &Service{
		registry: reg,
		ordering: srvc,
		mgr:      mgr,
		pool:     p,
		tokens:   tokens,
		origins:  []string{"*"},
		logger:   votela.Logger.With().Str("service", "web").Logger(),
		clock:    time.Now,
		timeout:  defaultTxTimeout,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Handler returns the HTTP handler of the API, CORS included.
func (s *Service) Handler() http.Handler {
	router := mux.NewRouter().StrictSlash(true)

	router.NotFoundHandler = http.HandlerFunc(s.notFound)
	router.MethodNotAllowedHandler = http.HandlerFunc(s.methodNotAllowed)

	api := router.PathPrefix(apiPrefix).Subrouter()

	api.Methods(http.MethodPost).Path("/voters").HandlerFunc(s.registerVoter)
	api.Methods(http.MethodPost).Path("/voters/otp").HandlerFunc(s.requestOTP)
	api.Methods(http.MethodPost).Path("/voters/verify").HandlerFunc(s.verifyOTP)
	api.Methods(http.MethodPost).Path("/votes").HandlerFunc(s.castVote)
	api.Methods(http.MethodGet).Path("/votes/status").HandlerFunc(s.voteStatus)
	api.Methods(http.MethodGet).Path("/results").HandlerFunc(s.results)
	api.Methods(http.MethodGet).Path("/results/winner").HandlerFunc(s.winner)
	api.Methods(http.MethodGet).Path("/session").HandlerFunc(s.session)
	api.Methods(http.MethodGet).Path("/parties").HandlerFunc(s.parties)
	api.Methods(http.MethodGet).Path("/chain/contract").HandlerFunc(s.chainContract)

	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(s.requireAdmin)

	admin.Methods(http.MethodGet).Path("/voters").HandlerFunc(s.adminVoters)
	admin.Methods(http.MethodPost).Path("/voters/import").HandlerFunc(s.adminImport)
	admin.Methods(http.MethodGet).Path("/stats").HandlerFunc(s.adminStats)
	admin.Methods(http.MethodGet).Path("/audit").HandlerFunc(s.adminAudit)
	admin.Methods(http.MethodGet).Path("/mirror").HandlerFunc(s.adminMirror)

	c := cors.New(cors.Options{
		AllowedOrigins: s.origins,
		AllowedHeaders: []string{"*"},
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodOptions,
			http.MethodHead,
		},
	})

	return c.Handler(router)
}

// Register mounts the API and the health probe on the proxy.
func (s *Service) Register(p proxy.Proxy) {
	handler := s.Handler()

	p.RegisterHandler(apiPrefix+"/", handler.ServeHTTP)
	p.RegisterHandler("/health", s.health)
}

func (s *Service) health(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Service) notFound(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, http.StatusNotFound, codeNotFound, "no such resource")
}

func (s *Service) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, http.StatusMethodNotAllowed, codeInvalid, "method not allowed")
}

// submitCast sends the cast transaction to the pool and waits for the
// sequencer to settle it. It returns the index of the batch that carries the
// vote, or the reason of the sequencer when the cast is refused.
func (s *Service) submitCast(ctx context.Context, hash types.VoterHash,
	party string) (uint64, error) {

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	tx, events, err := s.enqueueCast(ctx, hash, party)
	if err != nil {
		return 0, err
	}

	for evt := range events {
		for _, res := range evt.Transactions {
			if !bytes.Equal(res.GetTransaction().GetID(), tx.GetID()) {
				continue
			}

			accepted, reason := res.GetStatus()
			if !accepted {
				return 0, rejectionError{reason: reason}
			}

			return evt.Index, nil
		}
	}

	return 0, errTxTimeout
}

// enqueueCast makes the transaction and adds it to the pool under the lock,
// so that concurrent casts do not race on the manager nonce. The watcher is
// opened before the add, otherwise the result could settle unseen.
func (s *Service) enqueueCast(ctx context.Context, hash types.VoterHash,
	party string) (txn.Transaction, <-chan ordering.Event, error) {

	s.txLock.Lock()
	defer s.txLock.Unlock()

	err := s.mgr.Sync()
	if err != nil {
		return nil, nil, xerrors.Errorf("failed to sync manager: %v", err)
	}

	tx, err := s.mgr.Make(
		txn.Arg{Key: native.ContractArg, Value: []byte(voting.ContractName)},
		txn.Arg{Key: voting.CmdArg, Value: []byte(voting.CmdCast)},
		txn.Arg{Key: voting.HashArg, Value: []byte(hash.String())},
		txn.Arg{Key: voting.PartyArg, Value: []byte(party)})
	if err != nil {
		return nil, nil, xerrors.Errorf("creating transaction: %v", err)
	}

	events := s.ordering.Watch(ctx)

	err = s.pool.Add(tx)
	if err != nil {
		return nil, nil, xerrors.Errorf("failed to include tx: %v", err)
	}

	return tx, events, nil
}

// reject leaves an audit trace for a ballot the node refused.
func (s *Service) reject(hash types.VoterHash, reason string) {
	err := s.registry.Audit(registry.ActionVoteRejected, "web", hash.String(), reason)
	if err != nil {
		s.logger.Err(err).Msg("failed to audit the rejection")
	}
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Service) writeJSON(w http.ResponseWriter, status int, value interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(value)
	if err != nil {
		s.logger.Err(err).Msg("failed to write response")
	}
}

func (s *Service) writeError(w http.ResponseWriter, status int, code, message string) {
	s.writeJSON(w, status, errorEnvelope{
		Error: errorBody{
			Code:    code,
			Message: message,
		},
	})
}

func decode(r *http.Request, value interface{}) error {
	err := json.NewDecoder(r.Body).Decode(value)
	if err != nil {
		return xerrors.Errorf("failed to decode request: %v", err)
	}

	return nil
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "

	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, prefix) {
		return ""
	}

	return strings.TrimSpace(auth[len(prefix):])
}

func limitParam(r *http.Request, fallback int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback, nil
	}

	limit, err := strconv.Atoi(raw)
	if err != nil {
		return 0, xerrors.Errorf("invalid limit '%s'", raw)
	}

	return limit, nil
}
