/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package backend serves a venue's floor plan over a JSON HTTP API and
// provides a Client that implements floorplan.Gateway against it.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"chatters/internal/domain"
	"chatters/internal/floorplan"
	applog "chatters/internal/log"
	"chatters/internal/version"
)

// maxBodyBytes bounds request bodies; a full venue layout is far smaller.
const maxBodyBytes = 1 << 20

// Backend is the storage the server exposes. Both storage/postgres and
// storage/sqlite satisfy it.
type Backend interface {
	floorplan.Gateway
	EnsureVenue(ctx context.Context, v domain.Venue) (domain.Venue, error)
	GetVenue(ctx context.Context, id string) (domain.Venue, error)
	Ping(ctx context.Context) error
}

var _ floorplan.Gateway = (*Client)(nil)

// ServerOptions configures a Server. Zero values fall back to defaults.
type ServerOptions struct {
	Logger          *slog.Logger
	ReadTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type Server struct {
	b      Backend
	log    *slog.Logger
	opts   ServerOptions
	router chi.Router
}

// NewServer wires the routes over b.
func NewServer(b Backend, opts ServerOptions) *Server {
	if opts.Logger == nil {
		opts.Logger = applog.WithComponent("backend")
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 10 * time.Second
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 5 * time.Second
	}
	s := &Server{b: b, log: opts.Logger, opts: opts}
	s.router = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeText(w, http.StatusOK, "ok")
	})
	r.Get("/readyz", s.handleReady)
	r.Get("/version", func(w http.ResponseWriter, r *http.Request) {
		writeText(w, http.StatusOK, "chatters "+version.String())
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/venues/{venueID}", func(r chi.Router) {
			r.Use(withVenue)
			r.Get("/", s.handleGetVenue)
			r.Put("/", s.handlePutVenue)
			r.Get("/zones", s.handleListZones)
			r.Post("/zones", s.handleCreateZone)
			r.Get("/tables", s.handleListTables)
			r.Put("/tables", s.handleUpsertTables)
		})
		r.Patch("/zones/{zoneID}", s.handleUpdateZone)
		r.Delete("/zones/{zoneID}", s.handleDeleteZone)
		r.Delete("/zones/{zoneID}/tables", s.handleDeleteZoneTables)
		r.Post("/tables/delete", s.handleDeleteTables)
	})
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe over an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: s.opts.ReadTimeout,
		ReadTimeout:       s.opts.ReadTimeout,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	s.log.Info("listening", slog.String("addr", ln.Addr().String()))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.log.Info("server stopped")
	return nil
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := applog.ContextWithRequestID(r.Context(), middleware.GetReqID(r.Context()))
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))
		level := slog.LevelDebug
		if ww.Status() >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		s.log.Log(ctx, level, "request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("took", time.Since(start)),
		)
	})
}

func withVenue(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(chi.URLParam(r, "venueID"))
		if id == "" {
			writeError(w, domain.ErrVenueRequired)
			return
		}
		next.ServeHTTP(w, r.WithContext(applog.ContextWithVenue(r.Context(), id)))
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.b.Ping(ctx); err != nil {
		s.log.WarnContext(ctx, "readiness check failed", slog.Any("err", err))
		writeText(w, http.StatusServiceUnavailable, "db not ready")
		return
	}
	writeText(w, http.StatusOK, "ready")
}

func (s *Server) handleGetVenue(w http.ResponseWriter, r *http.Request) {
	v, err := s.b.GetVenue(r.Context(), applog.VenueFromContext(r.Context()))
	if err != nil {
		s.fail(w, r, "get_venue", err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handlePutVenue(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	v, err := s.b.EnsureVenue(r.Context(), domain.Venue{ID: applog.VenueFromContext(r.Context()), Name: body.Name})
	if err != nil {
		s.fail(w, r, "ensure_venue", err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleListZones(w http.ResponseWriter, r *http.Request) {
	zones, err := s.b.ListZones(r.Context(), applog.VenueFromContext(r.Context()))
	if err != nil {
		s.fail(w, r, "list_zones", err)
		return
	}
	if zones == nil {
		zones = []domain.Zone{}
	}
	writeJSON(w, http.StatusOK, zones)
}

func (s *Server) handleCreateZone(w http.ResponseWriter, r *http.Request) {
	var z domain.Zone
	if !s.decode(w, r, &z) {
		return
	}
	z.ID = ""
	z.VenueID = applog.VenueFromContext(r.Context())
	created, err := s.b.CreateZone(r.Context(), z)
	if err != nil {
		s.fail(w, r, "create_zone", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateZone(w http.ResponseWriter, r *http.Request) {
	var upd domain.ZoneUpdate
	if !s.decode(w, r, &upd) {
		return
	}
	if err := s.b.UpdateZone(r.Context(), chi.URLParam(r, "zoneID"), upd); err != nil {
		s.fail(w, r, "update_zone", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteZone(w http.ResponseWriter, r *http.Request) {
	if err := s.b.DeleteZone(r.Context(), chi.URLParam(r, "zoneID")); err != nil {
		s.fail(w, r, "delete_zone", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteZoneTables(w http.ResponseWriter, r *http.Request) {
	if err := s.b.DeleteTablesByZone(r.Context(), chi.URLParam(r, "zoneID")); err != nil {
		s.fail(w, r, "delete_zone_tables", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListTables(w http.ResponseWriter, r *http.Request) {
	tables, err := s.b.ListTables(r.Context(), applog.VenueFromContext(r.Context()))
	if err != nil {
		s.fail(w, r, "list_tables", err)
		return
	}
	if tables == nil {
		tables = []domain.Table{}
	}
	writeJSON(w, http.StatusOK, tables)
}

// handleUpsertTables writes a batch for one venue. Rows without a venue id
// inherit the path's; rows naming another venue are rejected.
func (s *Server) handleUpsertTables(w http.ResponseWriter, r *http.Request) {
	var rows []domain.Table
	if !s.decode(w, r, &rows) {
		return
	}
	venueID := applog.VenueFromContext(r.Context())
	for i := range rows {
		switch rows[i].VenueID {
		case "":
			rows[i].VenueID = venueID
		case venueID:
		default:
			writeError(w, fmt.Errorf("row %d belongs to another venue: %w", i, domain.ErrInvalidID))
			return
		}
	}
	if err := s.b.UpsertTables(r.Context(), rows); err != nil {
		s.fail(w, r, "upsert_tables", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type deleteTablesRequest struct {
	IDs []string `json:"ids"`
}

func (s *Server) handleDeleteTables(w http.ResponseWriter, r *http.Request) {
	var req deleteTablesRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.b.DeleteTablesByIDs(r.Context(), req.IDs); err != nil {
		s.fail(w, r, "delete_tables", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decode reads a JSON body into dst, writing a 400 on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeError(w, err)
			return false
		}
		// Shape values fail inside UnmarshalText.
		if errors.Is(err, domain.ErrInvalidShape) {
			writeError(w, err)
			return false
		}
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid json: " + err.Error(), Code: "invalid_json"})
		return false
	}
	return true
}

// fail logs server side failures and writes the error envelope.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, _ := statusFor(err)
	l := applog.WithOperation(s.log, op)
	if status >= http.StatusInternalServerError {
		l.ErrorContext(r.Context(), "request failed", slog.Any("err", err))
	} else {
		l.DebugContext(r.Context(), "request rejected", slog.Any("err", err))
	}
	writeError(w, err)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		msg = "internal error"
	}
	writeJSON(w, status, errorBody{Error: msg, Code: code})
}

func writeText(w http.ResponseWriter, status int, s string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(s))
}
