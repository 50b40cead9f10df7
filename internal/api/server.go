package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"racebot/internal/domain"
	"racebot/internal/infra"
	"racebot/internal/infra/storage"
	"racebot/internal/service"
)

// cachePushInterval paces websocket snapshots so a burst of ticks does
// not flood slow clients.
const cachePushInterval = time.Second

// Server exposes the cache, metrics and strategy store over HTTP.
type Server struct {
	cache        *service.Cache
	store        *storage.Storage
	metrics      *infra.Metrics
	defaultStake decimal.Decimal
	upgrader     websocket.Upgrader
	logger       *slog.Logger
}

// NewServer creates the HTTP API server.
func NewServer(cache *service.Cache, store *storage.Storage, metrics *infra.Metrics, defaultStake decimal.Decimal) *Server {
	return &Server{
		cache:        cache,
		store:        store,
		metrics:      metrics,
		defaultStake: defaultStake,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: slog.With(slog.String("module", "api")),
	}
}

// Handler builds the route tree.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/races", s.handleRaces)
	r.Get("/cache", s.handleCache)
	r.Get("/cache/{marketID}", s.handleMarket)
	r.Get("/metrics", s.handleMetrics)

	r.Route("/strategies", func(r chi.Router) {
		r.Get("/", s.handleListStrategies)
		r.Post("/", s.handleSaveStrategy)
		r.Get("/{name}", s.handleGetStrategy)
		r.Delete("/{name}", s.handleDeleteStrategy)
	})

	r.Get("/ws/cache", s.handleCacheStream)

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.logger.Info("api listening", slog.String("addr", addr))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handleRaces(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"race_ids": s.cache.CurrentRaceIDs()})
}

func (s *Server) handleCache(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.cache.ExportMarkets())
}

func (s *Server) handleMarket(w http.ResponseWriter, r *http.Request) {
	mb := s.cache.ExportMarket(chi.URLParam(r, "marketID"))
	if mb == nil {
		writeError(w, http.StatusNotFound, "market not tracked")
		return
	}
	writeJSON(w, http.StatusOK, mb)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.metrics.Snapshot())
}

func (s *Server) handleListStrategies(w http.ResponseWriter, r *http.Request) {
	names, err := s.store.ListStrategyNames()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"strategies": names})
}

func (s *Server) handleSaveStrategy(w http.ResponseWriter, r *http.Request) {
	var strat domain.Strategy
	if err := json.NewDecoder(r.Body).Decode(&strat); err != nil {
		writeError(w, http.StatusBadRequest, "malformed strategy document")
		return
	}
	if strat.Name == "" {
		writeError(w, http.StatusBadRequest, "strategy name is required")
		return
	}
	if strat.Size.IsZero() {
		strat.Size = s.defaultStake
	}
	if strat.MaxRunners < 1 {
		strat.MaxRunners = 1
	}
	if err := s.store.SaveStrategy(&strat); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.logger.Info("strategy saved",
		slog.String("strategy", strat.Name),
		slog.String("active", strat.Active),
	)
	writeJSON(w, http.StatusOK, &strat)
}

func (s *Server) handleGetStrategy(w http.ResponseWriter, r *http.Request) {
	strat, err := s.store.GetStrategy(chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if strat == nil {
		writeError(w, http.StatusNotFound, "strategy not found")
		return
	}
	writeJSON(w, http.StatusOK, strat)
}

func (s *Server) handleDeleteStrategy(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := s.store.DeleteStrategy(name); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.logger.Info("strategy deleted", slog.String("strategy", name))
	w.WriteHeader(http.StatusNoContent)
}

// handleCacheStream upgrades to websocket and pushes a market snapshot
// whenever fresh data lands, at most once per push interval.
func (s *Server) handleCacheStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}
	defer conn.Close()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.cache.Ready():
		}

		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteJSON(s.cache.ExportMarkets()); err != nil {
			s.logger.Debug("cache stream closed", slog.Any("error", err))
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(cachePushInterval):
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("response encode failed", slog.Any("error", err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
