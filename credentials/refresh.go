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
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"

	"github.com/Wjiuwa/KeyGenOverApi/runtime/jitter"
	"github.com/Wjiuwa/KeyGenOverApi/runtime/metrics"
)

// DefaultRefreshInterval is the wait between two refresh rounds.
const DefaultRefreshInterval = DefaultStalenessWindow

// RefreshAll fetches the public key and derives a new token for every
// endpoint of the registry, each endpoint in its own goroutine. It returns
// once all endpoints are done, with the failure of every endpoint for which
// no token could be obtained. An endpoint that panics does not affect the
// others.
func (m *Manager) RefreshAll(ctx context.Context) map[string]error {
	var (
		mu   sync.Mutex
		errs = make(map[string]error)
		g    errgroup.Group
	)
	for _, endpoint := range m.Endpoints() {
		endpoint := endpoint
		g.Go(func() error {
			if err := m.refreshEndpoint(ctx, endpoint); err != nil {
				m.logFetchFailure(endpoint, err)
				mu.Lock()
				errs[endpoint] = err
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errs
}

func (m *Manager) refreshEndpoint(ctx context.Context, endpoint string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("refresh of endpoint '%s' panicked: %v", endpoint, r)
		}
	}()
	_, err = m.update(ctx, endpoint, m.refresh)
	return err
}

// Refresher runs refresh rounds until its context is done.
type Refresher struct {
	manager  *Manager
	interval time.Duration
	jitter   jitter.Duration
	recorder *metrics.Recorder
	log      logr.Logger
	rounds   atomic.Int64
}

// RefresherOption configures a Refresher.
type RefresherOption func(*Refresher)

// WithInterval sets the wait between two rounds.
func WithInterval(d time.Duration) RefresherOption {
	return func(r *Refresher) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithJitter sets the function applied to the interval before every wait.
func WithJitter(j jitter.Duration) RefresherOption {
	return func(r *Refresher) {
		if j != nil {
			r.jitter = j
		}
	}
}

// WithRecorder sets the recorder of round durations and endpoint readiness.
func WithRecorder(rec *metrics.Recorder) RefresherOption {
	return func(r *Refresher) {
		r.recorder = rec
	}
}

// NewRefresher returns a Refresher for the endpoints of m.
func NewRefresher(m *Manager, opts ...RefresherOption) *Refresher {
	r := &Refresher{
		manager:  m,
		interval: DefaultRefreshInterval,
		jitter:   jitter.NoJitter,
		log:      m.log.WithName("refresher"),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Run runs a first round immediately and then one round per interval, until
// ctx is done.
func (r *Refresher) Run(ctx context.Context) error {
	for {
		r.Round(ctx)

		timer := time.NewTimer(r.jitter(r.interval))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

// Round runs a single refresh round and returns the failures per endpoint.
func (r *Refresher) Round(ctx context.Context) map[string]error {
	start := time.Now()
	errs := r.manager.RefreshAll(ctx)
	r.rounds.Add(1)

	if r.recorder != nil {
		for endpoint, s := range r.manager.States() {
			r.recorder.RecordReady(endpoint, s.AuthorizationKey != "")
		}
		r.recorder.RecordDuration(start)
	}
	r.log.Info("refresh round completed",
		"endpoints", len(r.manager.registry), "failed", len(errs), "duration", time.Since(start).String())
	return errs
}

// Ready reports whether at least one round has completed.
func (r *Refresher) Ready() bool {
	return r.rounds.Load() > 0
}
