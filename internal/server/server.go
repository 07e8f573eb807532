package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"musicbuddy-backend/internal/config"
	"musicbuddy-backend/internal/gateway"
	"musicbuddy-backend/internal/types"
)

// Recommender produces a music recommendation for a chat message.
// *gateway.Gateway satisfies it.
type Recommender interface {
	Recommend(ctx context.Context, message string) (string, error)
}

type Server struct {
	router      *chi.Mux
	recommender Recommender
	cfg         config.Config
	logger      *slog.Logger
}

func NewServer(cfg config.Config, recommender Recommender, logger *slog.Logger) (*Server, error) {
	if recommender == nil {
		return nil, errors.New("server: recommender must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{cfg.AllowedOrigin},
		AllowedMethods: []string{
			http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{CorrelationHeader},
		AllowCredentials: true,
		MaxAge:           600,
	}))
	r.Use(middleware.RealIP)
	r.Use(correlationID)
	r.Use(requestLogger(logger))

	s := &Server{
		router:      r,
		recommender: recommender,
		cfg:         cfg,
		logger:      logger,
	}
	r.Use(s.recoverer)
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.router.Get("/api/health", s.handleHealth)
	s.router.Post("/api/chat", s.handleChat)
	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, http.StatusNotFound, "Not Found")
	})
	s.router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})
}

func (s *Server) Router() http.Handler { return s.router }

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, types.HealthResponse{Status: "ok"})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	req, err := decodeChatRequest(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
			return
		}
		s.logger.InfoContext(r.Context(), "rejected chat request", "err", err, "correlation_id", CorrelationIDFrom(r.Context()))
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.GeminiTimeout)
	defer cancel()
	reply, err := s.recommender.Recommend(ctx, req.Message)
	if err != nil {
		if gateway.KindOf(err) == gateway.KindEmptyResponse {
			s.writeError(w, http.StatusBadRequest, gateway.EmptyResponseMessage)
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, types.ChatResponse{Response: reply})
}

var (
	errInvalidJSON       = errors.New("request body must be a JSON object")
	errMissingMessage    = errors.New("field required: message")
	errMessageNotAString = errors.New("message must be a string")
)

// decodeChatRequest enforces the request schema: a JSON object whose
// "message" field is present and a string. Empty strings are accepted.
func decodeChatRequest(body io.Reader) (types.ChatRequest, error) {
	var raw struct {
		Message json.RawMessage `json:"message"`
	}
	dec := json.NewDecoder(body)
	if err := dec.Decode(&raw); err != nil {
		return types.ChatRequest{}, decodeError(err)
	}
	// The body must hold exactly one JSON value.
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err != nil {
			return types.ChatRequest{}, decodeError(err)
		}
		return types.ChatRequest{}, errInvalidJSON
	}
	if len(raw.Message) == 0 {
		return types.ChatRequest{}, errMissingMessage
	}
	if bytes.Equal(bytes.TrimSpace(raw.Message), []byte("null")) {
		return types.ChatRequest{}, errMessageNotAString
	}
	var msg string
	if err := json.Unmarshal(raw.Message, &msg); err != nil {
		return types.ChatRequest{}, errMessageNotAString
	}
	return types.ChatRequest{Message: msg}, nil
}

func decodeError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return err
	}
	return errInvalidJSON
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, code int, msg string) {
	s.writeJSON(w, code, types.ErrorResponse{Detail: msg})
}
