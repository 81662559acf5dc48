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

package credentials

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/Wjiuwa/KeyGenOverApi/cache"
	"github.com/Wjiuwa/KeyGenOverApi/masktoken"
	"github.com/Wjiuwa/KeyGenOverApi/runtime/logger"
	"github.com/Wjiuwa/KeyGenOverApi/snapshot"
)

// Manager owns the credential state of every endpoint of a registry.
// It is safe for concurrent use: operations on one endpoint are serialized,
// operations on different endpoints run in parallel.
type Manager struct {
	registry map[string]string
	identity Identity
	states   *cache.Keyed[State]

	keyClient  *retryablehttp.Client
	callClient *retryablehttp.Client

	log             logr.Logger
	now             func() time.Time
	notifier        Notifier
	metrics         *credentialMetrics
	window          time.Duration
	fetchTimeout    time.Duration
	callTimeout     time.Duration
	maxResponseSize int64
}

// NewManager returns a Manager for the given registry, which maps endpoint
// identifiers to base URLs. An endpoint with an empty base URL is kept and
// never yields a credential. The registry is copied.
func NewManager(registry map[string]string, identity Identity, opts ...Option) (*Manager, error) {
	if err := identity.Validate(); err != nil {
		return nil, err
	}

	reg := make(map[string]string, len(registry))
	for endpoint, base := range registry {
		if endpoint == "" {
			return nil, errors.New("endpoint identifier must not be empty")
		}
		reg[endpoint] = strings.TrimSuffix(base, "/")
	}

	o := makeOptions(opts...)

	var storeOpts []cache.Options
	if o.registerer != nil {
		storeOpts = append(storeOpts, cache.WithMetricsRegisterer(o.registerer))
	}
	states, err := cache.NewKeyed[State](storeOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create state store: %w", err)
	}

	m := &Manager{
		registry:        reg,
		identity:        identity,
		states:          states,
		log:             o.log,
		now:             o.now,
		notifier:        o.notifier,
		window:          o.window,
		fetchTimeout:    o.fetchTimeout,
		callTimeout:     o.callTimeout,
		maxResponseSize: o.maxResponseSize,
	}
	if o.registerer != nil {
		m.metrics = newCredentialMetrics(o.registerer)
	}
	m.keyClient = m.newHTTPClient(o.retries)
	m.callClient = m.newHTTPClient(0)
	return m, nil
}

// newHTTPClient returns a client that retries failed requests up to retries
// times and hands the last response or error back to the caller.
func (m *Manager) newHTTPClient(retries int) *retryablehttp.Client {
	c := retryablehttp.NewClient()
	c.RetryWaitMin = 1 * time.Second
	c.RetryWaitMax = 5 * time.Second
	c.RetryMax = retries
	c.ErrorHandler = retryablehttp.PassthroughErrorHandler
	c.Logger = newErrorLogger(m.log.WithName("http"), m.identity.secrets()...)
	return c
}

// Endpoints returns the sorted identifiers of the registry.
func (m *Manager) Endpoints() []string {
	endpoints := make([]string, 0, len(m.registry))
	for endpoint := range m.registry {
		endpoints = append(endpoints, endpoint)
	}
	sort.Strings(endpoints)
	return endpoints
}

// Identity returns the identity the Manager derives tokens with.
func (m *Manager) Identity() Identity {
	return m.identity
}

// States returns a copy of the state of every endpoint of the registry.
// Endpoints for which nothing was obtained yet have a zero State. No
// network call is made.
func (m *Manager) States() map[string]State {
	states := make(map[string]State, len(m.registry))
	for endpoint := range m.registry {
		s, _, err := m.states.Get(endpoint)
		if err != nil {
			m.log.Error(err, "failed to read credential state", "endpoint", endpoint)
		}
		states[endpoint] = s
	}
	return states
}

// Snapshot returns the Document persisted by the snapshot writer.
func (m *Manager) Snapshot() snapshot.Document {
	doc := make(snapshot.Document, len(m.registry))
	for endpoint, s := range m.States() {
		doc[endpoint] = snapshot.NewRecord(m.identity.ClientKey, s.AuthorizationKey, m.identity.PrivateKey, s.PublicKey)
	}
	return doc
}

// FetchPublicKey requests the public key of endpoint and stores it. It
// returns false if no key was obtained, in which case the cached state of
// the endpoint is left untouched.
func (m *Manager) FetchPublicKey(ctx context.Context, endpoint string) (string, bool) {
	key, err := m.fetchPublicKey(ctx, endpoint)
	if err != nil {
		m.logFetchFailure(endpoint, err)
		return "", false
	}

	if err := m.states.Update(endpoint, func(s *State) error {
		s.PublicKey = key
		return nil
	}); err != nil {
		m.log.Error(err, "failed to store public key", "endpoint", endpoint)
		return "", false
	}
	m.notifier.Notify()
	return key, true
}

// DeriveAuthToken derives a new token for endpoint from its cached public
// key, fetching the key first if none is cached. It returns false if no
// public key is available.
func (m *Manager) DeriveAuthToken(ctx context.Context, endpoint string) (string, bool) {
	token, err := m.update(ctx, endpoint, m.derive)
	if err != nil {
		m.logFetchFailure(endpoint, err)
		return "", false
	}
	return token, true
}

// EnsureFreshToken returns the cached token of endpoint if it is younger
// than the staleness window. Otherwise it fetches the public key again and
// derives a new token, falling back to the cached key if the fetch fails.
// It returns false if no token is available.
func (m *Manager) EnsureFreshToken(ctx context.Context, endpoint string) (string, bool) {
	token, err := m.ensureFreshToken(ctx, endpoint)
	if err != nil {
		m.logFetchFailure(endpoint, err)
		return "", false
	}
	return token, true
}

func (m *Manager) ensureFreshToken(ctx context.Context, endpoint string) (string, error) {
	return m.update(ctx, endpoint, func(ctx context.Context, endpoint string, s *State) error {
		if !s.Stale(m.now(), m.window) {
			return nil
		}
		return m.refresh(ctx, endpoint, s)
	})
}

// update runs fn with the lock of endpoint held and returns the token of
// the endpoint once fn is done. Readers keep seeing the previous state until
// fn returns, and the notifier is called once the new state is visible.
func (m *Manager) update(ctx context.Context, endpoint string,
	fn func(ctx context.Context, endpoint string, s *State) error) (string, error) {
	if _, found := m.registry[endpoint]; !found {
		return "", &FetchError{Endpoint: endpoint, Err: ErrUnknownEndpoint}
	}

	var token string
	var changed bool
	err := m.states.Update(endpoint, func(s *State) error {
		before := *s
		err := fn(ctx, endpoint, s)
		changed = *s != before
		if err != nil {
			return err
		}
		token = s.AuthorizationKey
		return nil
	})
	if changed {
		m.notifier.Notify()
	}
	return token, err
}

// derive fetches the public key if none is cached, then derives the token.
// The endpoint lock must be held.
func (m *Manager) derive(ctx context.Context, endpoint string, s *State) error {
	if s.PublicKey == "" {
		key, err := m.fetchPublicKey(ctx, endpoint)
		if err != nil {
			return err
		}
		s.PublicKey = key
	}
	m.setToken(endpoint, s)
	return nil
}

// refresh fetches the public key, then derives the token from the latest
// key available. A failed fetch is only an error when no key was cached
// before. The endpoint lock must be held.
func (m *Manager) refresh(ctx context.Context, endpoint string, s *State) error {
	key, err := m.fetchPublicKey(ctx, endpoint)
	switch {
	case err == nil:
		s.PublicKey = key
	case s.PublicKey == "":
		return err
	default:
		m.logFetchFailure(endpoint, err)
		m.log.V(logger.DebugLevel).Info("deriving token from cached public key", "endpoint", endpoint)
	}
	m.setToken(endpoint, s)
	return nil
}

func (m *Manager) setToken(endpoint string, s *State) {
	s.AuthorizationKey = DeriveToken(s.PublicKey, m.identity.ClientKey, m.identity.PrivateKey)
	s.GeneratedAt = m.now()
	m.metrics.recordDerivation(endpoint)
	m.log.V(logger.DebugLevel).Info("authorization token derived", "endpoint", endpoint)
}

// baseURL returns the base URL of endpoint.
func (m *Manager) baseURL(endpoint string) (string, error) {
	base, found := m.registry[endpoint]
	if !found {
		return "", ErrUnknownEndpoint
	}
	if base == "" {
		return "", ErrEndpointUnreachable
	}
	return base, nil
}

func (m *Manager) logFetchFailure(endpoint string, err error) {
	if errors.Is(err, ErrEndpointUnreachable) {
		m.log.V(logger.DebugLevel).Info("skipping endpoint without base URL", "endpoint", endpoint)
		return
	}
	m.logError(err, "failed to obtain public key", "endpoint", endpoint)
}

// logError logs err with the identity secrets masked.
func (m *Manager) logError(err error, msg string, keysAndValues ...interface{}) {
	m.log.Error(errors.New(masktoken.MaskError(err, m.identity.secrets()...)), msg, keysAndValues...)
}
