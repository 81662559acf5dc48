/*
Copyright 2026 The Flux authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package server exposes the credential state and authorized calls over
// HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Wjiuwa/KeyGenOverApi/credentials"
	"github.com/Wjiuwa/KeyGenOverApi/runtime/logger"
	"github.com/Wjiuwa/KeyGenOverApi/runtime/pprof"
	"github.com/Wjiuwa/KeyGenOverApi/runtime/probes"
)

// Credentials is the credential manager served by the handler.
type Credentials interface {
	Identity() credentials.Identity
	States() map[string]credentials.State
	CallAuthorized(ctx context.Context, endpoint, path string) (json.RawMessage, error)
}

// KeyView is the listing of one endpoint returned by GET /keys. Absent
// values are null.
type KeyView struct {
	AuthorizationKey *string `json:"Authorization-key"`
	ClientKey        string  `json:"Client-key"`
	PrivateKey       string  `json:"Private-key"`
	PublicKey        *string `json:"Public-key"`
	GeneratedAt      *string `json:"Generated-at"`
}

type options struct {
	log      logr.Logger
	gatherer prometheus.Gatherer
	checks   []probes.Check
	pprof    bool
}

// Option configures the handler.
type Option func(*options)

// WithLogger sets the logger of the handler.
func WithLogger(log logr.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}

// WithGatherer serves the metrics of g on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(o *options) {
		o.gatherer = g
	}
}

// WithPprof serves the pprof endpoints under /debug/pprof.
func WithPprof(enabled bool) Option {
	return func(o *options) {
		o.pprof = enabled
	}
}

// WithReadyCheck adds a check to the /readyz probe.
func WithReadyCheck(c probes.Check) Option {
	return func(o *options) {
		o.checks = append(o.checks, c)
	}
}

type server struct {
	creds Credentials
	log   logr.Logger
}

// NewHandler returns the HTTP handler serving:
//
//	GET /keys                    credential state of every endpoint
//	GET /call/{endpoint}/{path}  authorized call to the endpoint
//	GET /metrics                 Prometheus metrics, if a gatherer is set
//	GET /healthz, GET /readyz    probes
//	GET /debug/pprof/...         profiles, if enabled
func NewHandler(creds Credentials, opts ...Option) http.Handler {
	o := options{log: logr.Discard()}
	for _, opt := range opts {
		opt(&o)
	}
	s := &server{creds: creds, log: o.log}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(o.log))

	r.Get("/keys", s.listKeys)
	r.Get("/call/{endpoint}/*", s.call)
	if o.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(o.gatherer, promhttp.HandlerOpts{}))
	}
	probes.SetupChecks(r, o.log, o.checks...)
	if o.pprof {
		pprof.SetupHandlers(r, o.log)
	}
	return r
}

func (s *server) listKeys(w http.ResponseWriter, _ *http.Request) {
	identity := s.creds.Identity()
	keys := make(map[string]KeyView)
	for endpoint, state := range s.creds.States() {
		view := KeyView{
			ClientKey:        identity.ClientKey,
			PrivateKey:       identity.PrivateKey,
			AuthorizationKey: optional(state.AuthorizationKey),
			PublicKey:        optional(state.PublicKey),
		}
		if !state.GeneratedAt.IsZero() {
			view.GeneratedAt = optional(state.GeneratedAt.UTC().Format(time.RFC3339))
		}
		keys[endpoint] = view
	}
	writeJSON(w, http.StatusOK, keys)
}

func (s *server) call(w http.ResponseWriter, r *http.Request) {
	endpoint := chi.URLParam(r, "endpoint")
	path := chi.URLParam(r, "*")
	if r.URL.RawQuery != "" {
		path = fmt.Sprintf("%s?%s", path, r.URL.RawQuery)
	}

	body, err := s.creds.CallAuthorized(r.Context(), endpoint, path)
	switch {
	case err == nil:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
	case errors.Is(err, credentials.ErrUnknownEndpoint):
		writeError(w, http.StatusNotFound, fmt.Sprintf("Unknown endpoint %s", endpoint))
	case errors.Is(err, credentials.ErrCredentialUnavailable):
		writeError(w, http.StatusServiceUnavailable, fmt.Sprintf("Failed to generate auth key for %s", endpoint))
	case errors.Is(err, credentials.ErrRequestFailed):
		writeError(w, http.StatusBadGateway, fmt.Sprintf("Request to %s failed", endpoint))
	default:
		s.log.Error(err, "unexpected authorized call failure", "endpoint", endpoint)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// requestLogger logs every served request at debug level.
func requestLogger(log logr.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.V(logger.DebugLevel).Info("request served",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start).String(),
				"requestID", middleware.GetReqID(r.Context()))
		})
	}
}
