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

package cache

import (
	"github.com/prometheus/client_golang/prometheus"
)

// defaultMetricsPrefix is prepended to the name of every metric exported by
// the store when no prefix is configured.
const defaultMetricsPrefix = "keygen_"

type storeOptions struct {
	registerer    prometheus.Registerer
	metricsPrefix string
}

// Options is a function that sets the store options.
type Options func(*storeOptions) error

// WithMetricsRegisterer sets the Prometheus registerer for the cache metrics.
func WithMetricsRegisterer(r prometheus.Registerer) Options {
	return func(o *storeOptions) error {
		o.registerer = r
		return nil
	}
}

// WithMetricsPrefix sets the metrics prefix for the cache metrics.
func WithMetricsPrefix(prefix string) Options {
	return func(o *storeOptions) error {
		o.metricsPrefix = prefix
		return nil
	}
}

func makeOptions(opts ...Options) (*storeOptions, error) {
	opt := storeOptions{metricsPrefix: defaultMetricsPrefix}
	for _, o := range opts {
		if err := o(&opt); err != nil {
			return nil, err
		}
	}
	return &opt, nil
}
