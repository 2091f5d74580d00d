// internal/api/server.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	commonerrors "ai-council/internal/common/errors"
	"ai-council/internal/common/observability"
	"ai-council/internal/common/validation"
	"ai-council/internal/council/orchestrator"
	"ai-council/internal/models"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

const maxBodyBytes = 1 << 20

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

type Orchestrator interface {
	Chat(ctx context.Context, memberID, message string, useSearch bool) (models.MemberResponse, error)
	Council(ctx context.Context, message string, useSearch, synthesize bool) models.CouncilResult
	Consensus(ctx context.Context, message string, useSearch bool) (models.ConsensusResult, error)
	MemberCount() int
}

type HealthChecker interface {
	Check(ctx context.Context) models.HealthSnapshot
}

type Options struct {
	Orchestrator  Orchestrator
	Health        HealthChecker
	Observability *observability.Observability
	AllowOrigins  []string
	Logger        Logger
}

// Server exposes the council over HTTP.
type Server struct {
	orchestrator Orchestrator
	health       HealthChecker
	obs          *observability.Observability
	errors       *commonerrors.ErrorHandler
	allowOrigins []string
	logger       Logger
}

func NewServer(opts Options) *Server {
	origins := opts.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return &Server{
		orchestrator: opts.Orchestrator,
		health:       opts.Health,
		obs:          opts.Observability,
		errors:       commonerrors.NewErrorHandler(opts.Logger),
		allowOrigins: origins,
		logger:       opts.Logger,
	}
}

// Handler returns the routed, instrumented and CORS-wrapped handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /chat/{memberId}", s.handleChat)
	mux.HandleFunc("POST /council", s.handleCouncil)
	mux.HandleFunc("POST /council/consensus", s.handleConsensus)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

	c := cors.New(cors.Options{
		AllowedOrigins: s.allowOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{requestIDHeader},
	})
	return c.Handler(s.instrument(mux))
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := decodeBody(w, r, chatSchema, &req); err != nil {
		s.errors.WriteError(w, r, err)
		return
	}

	memberID := r.PathValue("memberId")
	resp, err := s.orchestrator.Chat(r.Context(), memberID, req.Message, req.UseSearch)
	if err != nil {
		s.errors.WriteError(w, r, chatError(memberID, resp, err))
		return
	}

	commonerrors.WriteJSON(w, http.StatusOK, toMemberResponse(resp))
}

func (s *Server) handleCouncil(w http.ResponseWriter, r *http.Request) {
	var req CouncilRequest
	if err := decodeBody(w, r, councilSchema, &req); err != nil {
		s.errors.WriteError(w, r, err)
		return
	}

	result := s.orchestrator.Council(r.Context(), req.Message, req.UseSearch, req.Synthesize)
	commonerrors.WriteJSON(w, http.StatusOK, toCouncilResponse(result))
}

func (s *Server) handleConsensus(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := decodeBody(w, r, chatSchema, &req); err != nil {
		s.errors.WriteError(w, r, err)
		return
	}

	result, err := s.orchestrator.Consensus(r.Context(), req.Message, req.UseSearch)
	if err != nil {
		if errors.Is(err, orchestrator.ErrAllMembersFailed) {
			s.errors.WriteError(w, r, commonerrors.NewAllMembersFailedError(s.orchestrator.MemberCount()))
			return
		}
		s.errors.WriteError(w, r, commonerrors.NewInternalError(err))
		return
	}

	commonerrors.WriteJSON(w, http.StatusOK, toConsensusResponse(result))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	commonerrors.WriteJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Council: s.health.Check(r.Context()),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	commonerrors.WriteJSON(w, http.StatusOK, ReadyResponse{
		Status: "ready",
		Time:   time.Now().UTC(),
	})
}

func chatError(memberID string, resp models.MemberResponse, err error) error {
	switch {
	case errors.Is(err, orchestrator.ErrUnknownMember):
		return commonerrors.NewUnknownMemberError(memberID)
	case errors.Is(err, orchestrator.ErrMemberFailed) && resp.Failure != nil:
		return commonerrors.NewMemberFailedError(failureCode(resp.Failure.Kind), memberID, resp.Failure.Detail)
	default:
		return commonerrors.NewInternalError(err)
	}
}

func failureCode(kind models.FailureKind) commonerrors.ErrorCode {
	switch kind {
	case models.FailureUnreachable:
		return commonerrors.ErrCodeMemberUnreachable
	case models.FailureEmptyCompletion:
		return commonerrors.ErrCodeMemberEmptyCompletion
	default:
		return commonerrors.ErrCodeMemberProtocolError
	}
}

// decodeBody validates the raw body against schema before unmarshalling it
// into dst.
func decodeBody(w http.ResponseWriter, r *http.Request, schema *validation.Validator, dst interface{}) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return commonerrors.NewInvalidRequestError(err.Error())
	}

	result := schema.ValidateJSON(body)
	if !result.Valid {
		return commonerrors.NewInvalidRequestError(result.Summary())
	}

	if err := json.Unmarshal(body, dst); err != nil {
		return commonerrors.NewInvalidRequestError(err.Error())
	}
	return nil
}
