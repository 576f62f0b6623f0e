// Copyright 2024-2026 Aiku AI

package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
)

// HealthCheck reports an error when a dependency of the bot is unavailable.
type HealthCheck func(ctx context.Context) error

// WebhookInvalidator forgets the cached webhook of a channel.
type WebhookInvalidator interface {
	Invalidate(ctx context.Context, channelID string) error
}

// Server is the admin HTTP server exposing metrics, health and webhook
// cache maintenance.
type Server struct {
	http *http.Server
	log  zerolog.Logger
}

func NewServer(addr string, gatherer prometheus.Gatherer, health HealthCheck, hooks WebhookInvalidator, log zerolog.Logger) *Server {
	log = log.With().Str("component", "admin_api").Logger()
	return &Server{
		http: &http.Server{
			Addr:              addr,
			Handler:           NewRouter(gatherer, health, hooks, log),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		log: log,
	}
}

func NewRouter(gatherer prometheus.Gatherer, health HealthCheck, hooks WebhookInvalidator, log zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(hlog.NewHandler(log))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Debug().
			Str("method", r.Method).
			Stringer("url", r.URL).
			Int("status", status).
			Dur("duration", duration).
			Msg("Admin API request")
	}))

	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := health(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Post("/api/webhooks/{channelID}/invalidate", func(w http.ResponseWriter, r *http.Request) {
		channelID := chi.URLParam(r, "channelID")
		if err := hooks.Invalidate(r.Context(), channelID); err != nil {
			hlog.FromRequest(r).Err(err).Str("channel_id", channelID).Msg("Failed to invalidate webhook")
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to invalidate webhook"})
			return
		}
		hlog.FromRequest(r).Info().Str("channel_id", channelID).Msg("Invalidated cached webhook")
		writeJSON(w, http.StatusOK, map[string]string{"channel_id": channelID, "status": "invalidated"})
	})
	return r
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.http.Addr).Msg("Starting admin API")
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
