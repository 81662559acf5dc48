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
	"time"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	// DefaultFetchTimeout bounds a public key request.
	DefaultFetchTimeout = 30 * time.Second
	// DefaultCallTimeout bounds an authorized call.
	DefaultCallTimeout = 30 * time.Second
	// DefaultMaxResponseSize is the largest response body read from an
	// endpoint, in bytes.
	DefaultMaxResponseSize = 10 << 20
)

// Notifier is told every time the credential state of an endpoint changes.
// Notify must not block.
type Notifier interface {
	Notify()
}

type nopNotifier struct{}

func (nopNotifier) Notify() {}

type options struct {
	log             logr.Logger
	now             func() time.Time
	notifier        Notifier
	registerer      prometheus.Registerer
	retries         int
	fetchTimeout    time.Duration
	callTimeout     time.Duration
	window          time.Duration
	maxResponseSize int64
}

// Option configures a Manager.
type Option func(*options)

// WithLogger sets the logger of the Manager.
func WithLogger(log logr.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}

// WithClock sets the function used to read the current time.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithNotifier sets the Notifier told about state changes, usually the
// snapshot writer.
func WithNotifier(n Notifier) Option {
	return func(o *options) {
		o.notifier = n
	}
}

// WithMetricsRegisterer registers the Manager and state store metrics with r.
func WithMetricsRegisterer(r prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = r
	}
}

// WithHTTPRetries sets how many times a failed public key request is
// retried before giving up. Authorized calls are never retried.
func WithHTTPRetries(retries int) Option {
	return func(o *options) {
		if retries > 0 {
			o.retries = retries
		}
	}
}

// WithFetchTimeout bounds every public key request, retries included.
func WithFetchTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.fetchTimeout = d
		}
	}
}

// WithCallTimeout bounds every authorized call.
func WithCallTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.callTimeout = d
		}
	}
}

// WithStalenessWindow sets the age after which a token is derived again.
func WithStalenessWindow(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.window = d
		}
	}
}

func makeOptions(opts ...Option) options {
	o := options{
		log:             logr.Discard(),
		now:             time.Now,
		notifier:        nopNotifier{},
		fetchTimeout:    DefaultFetchTimeout,
		callTimeout:     DefaultCallTimeout,
		window:          DefaultStalenessWindow,
		maxResponseSize: DefaultMaxResponseSize,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.notifier == nil {
		o.notifier = nopNotifier{}
	}
	return o
}
