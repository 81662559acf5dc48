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

// Package testserver provides an in-process imitation of a remote
// key-issuing service, for testing credential management against a real
// HTTP round trip.
package testserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

const keyPathPrefix = "/GetKey/"

// KeyServer is an HTTP server for testing purposes. It answers
// GET /GetKey/{client_key}/ with a public key response and serves any
// other path from the handlers registered with HandleFunc or HandleJSON.
// Every request is counted per path, and the headers of the last request
// for each path are kept for inspection.
type KeyServer struct {
	publicKey  string
	keyStatus  int
	keyBody    string
	keyDelay   time.Duration
	handlers   map[string]http.HandlerFunc
	requests   map[string]int
	headers    map[string]http.Header
	clientKeys []string
	middleware func(http.Handler) http.Handler
	server     *httptest.Server

	mu sync.Mutex
}

// NewKeyServer returns a KeyServer that issues the given public key.
func NewKeyServer(publicKey string) *KeyServer {
	return &KeyServer{
		publicKey: publicKey,
		keyStatus: http.StatusOK,
		handlers:  make(map[string]http.HandlerFunc),
		requests:  make(map[string]int),
		headers:   make(map[string]http.Header),
	}
}

// KeyResponse returns a well-formed successful GetKey response body carrying
// the given public key.
func KeyResponse(publicKey string) string {
	body := map[string]any{
		"status": "success",
		"result": []any{
			map[string]any{
				"Security": []any{
					map[string]any{"PublicKey": publicKey},
				},
			},
		},
	}
	b, _ := json.Marshal(body)
	return string(b)
}

// WithMiddleware configures the middleware of the KeyServer, this can for
// example be used to fail requests selectively. It should be called
// before starting the server, or requires a stop/start cycle.
func (s *KeyServer) WithMiddleware(m func(handler http.Handler) http.Handler) *KeyServer {
	s.middleware = m
	return s
}

// SetPublicKey changes the public key issued by the server and restores the
// well-formed successful response.
func (s *KeyServer) SetPublicKey(publicKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publicKey = publicKey
	s.keyStatus = http.StatusOK
	s.keyBody = ""
}

// SetKeyResponse makes the server answer GetKey requests with the given
// status code and raw body.
func (s *KeyServer) SetKeyResponse(status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keyStatus = status
	s.keyBody = body
}

// SetKeyDelay delays every GetKey response by d, or until the client gives
// up on the request.
func (s *KeyServer) SetKeyDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keyDelay = d
}

// HandleFunc registers h for requests to the given path.
func (s *KeyServer) HandleFunc(path string, h http.HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[path] = h
}

// HandleJSON registers a handler answering requests to the given path with
// the status code and JSON body.
func (s *KeyServer) HandleJSON(path string, status int, body string) {
	s.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	})
}

// Start starts the KeyServer.
func (s *KeyServer) Start() {
	var handler http.Handler = http.HandlerFunc(s.serveHTTP)
	if s.middleware != nil {
		handler = s.middleware(handler)
	}
	s.server = httptest.NewServer(handler)
}

// Stop stops the KeyServer, if started.
func (s *KeyServer) Stop() {
	if s.server != nil {
		s.server.Close()
	}
}

// URL returns the address the KeyServer is listening at,
// if started.
func (s *KeyServer) URL() string {
	if s.server != nil {
		return s.server.URL
	}
	return ""
}

// Requests returns the number of requests received for the given path.
func (s *KeyServer) Requests(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[path]
}

// KeyRequests returns the number of GetKey requests received, whatever the
// client key.
func (s *KeyServer) KeyRequests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clientKeys)
}

// ClientKeys returns the client keys of all GetKey requests, in order.
func (s *KeyServer) ClientKeys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.clientKeys...)
}

// LastHeader returns the headers of the last request for the given path,
// or nil if none was received.
func (s *KeyServer) LastHeader(path string) http.Header {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.headers[path]
}

func (s *KeyServer) serveHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.requests[r.URL.Path]++
	s.headers[r.URL.Path] = r.Header.Clone()
	handler, found := s.handlers[r.URL.Path]
	s.mu.Unlock()

	if strings.HasPrefix(r.URL.Path, keyPathPrefix) {
		s.serveKey(w, r)
		return
	}
	if !found {
		http.NotFound(w, r)
		return
	}
	handler(w, r)
}

func (s *KeyServer) serveKey(w http.ResponseWriter, r *http.Request) {
	clientKey := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, keyPathPrefix), "/")

	s.mu.Lock()
	s.clientKeys = append(s.clientKeys, clientKey)
	status, body, delay := s.keyStatus, s.keyBody, s.keyDelay
	if body == "" && status == http.StatusOK {
		body = KeyResponse(s.publicKey)
	}
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
