// Claire Driver
// Copyright (c) 2026 The Claire Driver Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Claire Driver.
//
// Claire Driver is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Claire Driver is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Claire Driver.  If not, see <http://www.gnu.org/licenses/>.

// Package api serves a read-only HTTP view of a running session: Prometheus
// metrics, the cached rig status and a websocket stream of session events.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/claire-rig/claire-driver/pkg/device"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const (
	RequestTimeout  = 10 * time.Second
	shutdownTimeout = 2 * time.Second
)

// StatusSource is what the status endpoint reads from; *device.Session
// satisfies it.
type StatusSource interface {
	CachedState() (device.DeviceState, bool)
	IsAlive() bool
	IsBusy() bool
	ID() string
}

type Status struct {
	State   *device.DeviceState `json:"state,omitempty"`
	Session string              `json:"session"`
	Alive   bool                `json:"alive"`
	Busy    bool                `json:"busy"`
}

// NewRouter builds the status server. hub may be nil, in which case no
// /events endpoint is mounted.
func NewRouter(src StatusSource, gatherer prometheus.Gatherer, hub *EventHub) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.NoCache)
	r.Use(RateLimit(NewIPRateLimiter()))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"https://*", "http://*"},
		AllowedMethods: []string{"GET"},
		AllowedHeaders: []string{"Accept"},
	}))

	if hub != nil {
		r.Get("/events", hub.handle)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(RequestTimeout))

		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

		r.Get("/status", func(w http.ResponseWriter, _ *http.Request) {
			status := Status{
				Session: src.ID(),
				Alive:   src.IsAlive(),
				Busy:    src.IsBusy(),
			}
			if state, ok := src.CachedState(); ok {
				status.State = &state
			}
			writeJSON(w, http.StatusOK, status)
		})

		r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			if !src.IsAlive() {
				http.Error(w, "device silent", http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to write response")
	}
}

// Serve listens on addr in the background and returns a func that shuts the
// server down.
func Serve(addr string, handler http.Handler) func() {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("listen", addr).Msg("status server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("status server failed")
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Warn().Err(err).Msg("status server shutdown")
		}
	}
}
