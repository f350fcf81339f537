// Package server exposes the simulation control surface over HTTP: status
// and lifecycle endpoints, trade history, Prometheus metrics, and a
// WebSocket stream of closed-trade analytics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"futsim/adaptive"
	"futsim/metrics"
	"futsim/sim"
)

// Server wires the session to its HTTP control surface and drives batches
// on a fixed interval while the session is running.
type Server struct {
	session       *sim.Session
	hub           *Hub
	batchInterval time.Duration
}

func New(session *sim.Session, batchInterval time.Duration) *Server {
	if batchInterval <= 0 {
		batchInterval = 250 * time.Millisecond
	}
	s := &Server{
		session:       session,
		hub:           NewHub(),
		batchInterval: batchInterval,
	}
	session.SetTradeClosedListener(s.hub)
	return s
}

// Router builds the chi router with the standard middleware stack.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"futsim"}`))
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/ws", s.hub.HandleWS)

		r.Get("/status", s.handleStatus)
		r.Post("/start", s.handleStart)
		r.Post("/stop", s.handleStop)
		r.Post("/reset", s.handleReset)
		r.Put("/batch-size", s.handleBatchSize)
		r.Put("/configure", s.handleConfigure)
		r.Get("/trades", s.handleTrades)
	})
	return r
}

// Run drives batches until ctx is cancelled. The hub event loop is started
// here too.
func (s *Server) Run(ctx context.Context) {
	go s.hub.Run()

	ticker := time.NewTicker(s.batchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, err := s.session.RunBatch(ctx)
			switch {
			case err == nil, errors.Is(err, sim.ErrNotRunning):
			case errors.Is(err, sim.ErrAccountViolated):
				// Session halted itself; stays that way until a reset
				// arrives over the API.
				slog.Warn("account violated, session halted")
			default:
				slog.Error("batch failed", "err", err)
			}
		}
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Snapshot())
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Seed int64 `json:"seed"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	writeJSON(w, http.StatusOK, s.session.Start(body.Seed))
}

func (s *Server) handleStop(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Stop())
}

func (s *Server) handleReset(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Reset())
}

func (s *Server) handleBatchSize(w http.ResponseWriter, r *http.Request) {
	var body struct {
		BatchSize int `json:"batch_size"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.BatchSize < 1 {
		writeError(w, http.StatusBadRequest, "batch_size must be positive")
		return
	}
	writeJSON(w, http.StatusOK, s.session.SetBatchSize(body.BatchSize))
}

func (s *Server) handleConfigure(w http.ResponseWriter, r *http.Request) {
	var body adaptive.Config
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	writeJSON(w, http.StatusOK, s.session.Configure(body))
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	trades := s.session.Trades()

	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		if limit < len(trades) {
			trades = trades[len(trades)-limit:]
		}
	}
	writeJSON(w, http.StatusOK, trades)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
