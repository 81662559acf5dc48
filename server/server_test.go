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

package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Wjiuwa/KeyGenOverApi/credentials"
	"github.com/Wjiuwa/KeyGenOverApi/runtime/probes"
	"github.com/Wjiuwa/KeyGenOverApi/testserver"
)

const pub123Token = "cfd1ded59a144d325fe1099ac9db2171512e954930d5e4fb3ff327498924d87b"

func serve(h http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func newManager(t *testing.T, registry map[string]string, opts ...credentials.Option) *credentials.Manager {
	t.Helper()
	m, err := credentials.NewManager(registry, credentials.Identity{ClientKey: "ck", PrivateKey: "pk"}, opts...)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestHandler_ListKeys(t *testing.T) {
	g := NewWithT(t)

	srv := testserver.NewKeyServer("pub123")
	srv.Start()
	defer srv.Stop()

	generatedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := newManager(t, map[string]string{"A": srv.URL(), "B": ""},
		credentials.WithClock(func() time.Time { return generatedAt }))
	_, ok := m.DeriveAuthToken(context.TODO(), "A")
	g.Expect(ok).To(BeTrue())
	requests := srv.KeyRequests()

	rec := serve(NewHandler(m), "/keys")
	g.Expect(rec.Code).To(Equal(http.StatusOK))
	g.Expect(rec.Header().Get("Content-Type")).To(Equal("application/json"))
	g.Expect(rec.Body.String()).To(MatchJSON(`{
		"A": {
			"Authorization-key": "` + pub123Token + `",
			"Client-key": "ck",
			"Private-key": "pk",
			"Public-key": "pub123",
			"Generated-at": "2026-03-01T12:00:00Z"
		},
		"B": {
			"Authorization-key": null,
			"Client-key": "ck",
			"Private-key": "pk",
			"Public-key": null,
			"Generated-at": null
		}
	}`))

	// listing never calls the endpoints
	g.Expect(srv.KeyRequests()).To(Equal(requests))
}

func TestHandler_Call(t *testing.T) {
	srv := testserver.NewKeyServer("pub123")
	srv.HandleJSON("/status", http.StatusOK, `{"ok":true}`)
	srv.HandleJSON("/v1/items", http.StatusOK, `[1,2]`)
	srv.HandleJSON("/broken", http.StatusInternalServerError, `{}`)
	srv.Start()
	defer srv.Stop()

	m := newManager(t, map[string]string{"A": srv.URL(), "B": ""})
	h := NewHandler(m)

	tests := []struct {
		name     string
		path     string
		wantCode int
		wantBody string
	}{
		{name: "authorized call", path: "/call/A/status", wantCode: http.StatusOK, wantBody: `{"ok":true}`},
		{name: "nested path", path: "/call/A/v1/items", wantCode: http.StatusOK, wantBody: `[1,2]`},
		{name: "upstream failure", path: "/call/A/broken", wantCode: http.StatusBadGateway, wantBody: `{"error":"Request to A failed"}`},
		{name: "credential unavailable", path: "/call/B/status", wantCode: http.StatusServiceUnavailable, wantBody: `{"error":"Failed to generate auth key for B"}`},
		{name: "unknown endpoint", path: "/call/Z/status", wantCode: http.StatusNotFound, wantBody: `{"error":"Unknown endpoint Z"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewWithT(t)

			rec := serve(h, tt.path)
			g.Expect(rec.Code).To(Equal(tt.wantCode))
			g.Expect(rec.Body.String()).To(MatchJSON(tt.wantBody))
		})
	}

	g := NewWithT(t)
	g.Expect(srv.LastHeader("/status").Get(credentials.HeaderAuthorizationKey)).To(Equal(pub123Token))
}

func TestHandler_CallForwardsQuery(t *testing.T) {
	g := NewWithT(t)

	srv := testserver.NewKeyServer("pub123")
	var query string
	srv.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		_, _ = w.Write([]byte(`{}`))
	})
	srv.Start()
	defer srv.Stop()

	rec := serve(NewHandler(newManager(t, map[string]string{"A": srv.URL()})), "/call/A/search?q=1&page=2")
	g.Expect(rec.Code).To(Equal(http.StatusOK))
	g.Expect(query).To(Equal("q=1&page=2"))
}

type failingCredentials struct{}

func (failingCredentials) Identity() credentials.Identity { return credentials.Identity{} }

func (failingCredentials) States() map[string]credentials.State { return nil }

func (failingCredentials) CallAuthorized(context.Context, string, string) (json.RawMessage, error) {
	return nil, errors.New("unexpected")
}

func TestHandler_CallUnexpectedError(t *testing.T) {
	g := NewWithT(t)

	rec := serve(NewHandler(failingCredentials{}), "/call/A/status")
	g.Expect(rec.Code).To(Equal(http.StatusInternalServerError))

	rec = serve(NewHandler(failingCredentials{}), "/keys")
	g.Expect(rec.Code).To(Equal(http.StatusOK))
	g.Expect(rec.Body.String()).To(MatchJSON(`{}`))
}

func TestHandler_MetricsAndProbes(t *testing.T) {
	g := NewWithT(t)

	reg := prometheus.NewRegistry()
	m := newManager(t, map[string]string{"B": ""}, credentials.WithMetricsRegisterer(reg))
	refresher := credentials.NewRefresher(m)

	h := NewHandler(m, WithGatherer(reg), WithReadyCheck(probes.Check{
		Name: "refresh",
		Checker: func(*http.Request) error {
			if !refresher.Ready() {
				return errors.New("no refresh round completed")
			}
			return nil
		},
	}))

	g.Expect(serve(h, "/healthz").Code).To(Equal(http.StatusOK))
	g.Expect(serve(h, "/readyz").Code).To(Equal(http.StatusServiceUnavailable))

	refresher.Round(context.TODO())
	g.Expect(serve(h, "/readyz").Code).To(Equal(http.StatusOK))

	_ = serve(h, "/call/B/status")
	rec := serve(h, "/metrics")
	g.Expect(rec.Code).To(Equal(http.StatusOK))
	g.Expect(rec.Body.String()).To(ContainSubstring(`keygen_authorized_calls_total{endpoint="B",result="unavailable"} 1`))

	g.Expect(serve(NewHandler(m), "/metrics").Code).To(Equal(http.StatusNotFound))
}

func TestHandler_Pprof(t *testing.T) {
	g := NewWithT(t)

	m := newManager(t, map[string]string{"A": ""})
	g.Expect(serve(NewHandler(m), "/debug/pprof/").Code).To(Equal(http.StatusNotFound))
	g.Expect(serve(NewHandler(m, WithPprof(true)), "/debug/pprof/").Code).To(Equal(http.StatusOK))
}
