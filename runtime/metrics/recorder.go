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

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder holds the metrics of the periodic credential refresh.
type Recorder struct {
	readyGauge        *prometheus.GaugeVec
	lastRefreshGauge  prometheus.Gauge
	durationHistogram prometheus.Histogram
}

// NewRecorder returns a Recorder whose collectors still have to be
// registered, see Collectors.
func NewRecorder() *Recorder {
	return &Recorder{
		readyGauge: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "keygen_credential_ready",
				Help: "Whether an authorization token is available for the endpoint after the last refresh round.",
			},
			[]string{"endpoint"},
		),
		lastRefreshGauge: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "keygen_last_refresh_timestamp_seconds",
				Help: "The Unix time at which the last refresh round completed.",
			},
		),
		durationHistogram: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "keygen_refresh_duration_seconds",
				Help:    "The duration in seconds of a credential refresh round over all endpoints.",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
			},
		),
	}
}

// Collectors returns the collectors to register with a Prometheus registry.
func (r *Recorder) Collectors() []prometheus.Collector {
	return []prometheus.Collector{r.readyGauge, r.lastRefreshGauge, r.durationHistogram}
}

// RecordReady sets the readiness of the endpoint.
func (r *Recorder) RecordReady(endpoint string, ready bool) {
	var value float64
	if ready {
		value = 1
	}
	r.readyGauge.WithLabelValues(endpoint).Set(value)
}

// RecordDuration observes the time elapsed since start and marks the end of
// a refresh round.
func (r *Recorder) RecordDuration(start time.Time) {
	end := time.Now()
	r.durationHistogram.Observe(end.Sub(start).Seconds())
	r.lastRefreshGauge.Set(float64(end.Unix()))
}
