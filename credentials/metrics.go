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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	resultSuccess     = "success"
	resultFailure     = "failure"
	resultUnavailable = "unavailable"
)

type credentialMetrics struct {
	fetchCounter      *prometheus.CounterVec
	derivationCounter *prometheus.CounterVec
	callCounter       *prometheus.CounterVec
}

func newCredentialMetrics(reg prometheus.Registerer) *credentialMetrics {
	return &credentialMetrics{
		fetchCounter: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "keygen_public_key_fetches_total",
				Help: "Total number of public key requests per endpoint, partitioned by result.",
			},
			[]string{"endpoint", "result"},
		),
		derivationCounter: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "keygen_token_derivations_total",
				Help: "Total number of authorization tokens derived per endpoint.",
			},
			[]string{"endpoint"},
		),
		callCounter: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "keygen_authorized_calls_total",
				Help: "Total number of authorized calls per endpoint, partitioned by result.",
			},
			[]string{"endpoint", "result"},
		),
	}
}

func (m *credentialMetrics) recordFetch(endpoint string, err error) {
	if m == nil {
		return
	}
	result := resultSuccess
	if err != nil {
		result = resultFailure
	}
	m.fetchCounter.WithLabelValues(endpoint, result).Inc()
}

func (m *credentialMetrics) recordDerivation(endpoint string) {
	if m == nil {
		return
	}
	m.derivationCounter.WithLabelValues(endpoint).Inc()
}

func (m *credentialMetrics) recordCall(endpoint, result string) {
	if m == nil {
		return
	}
	m.callCounter.WithLabelValues(endpoint, result).Inc()
}
