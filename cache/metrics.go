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
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// CacheEventTypeMiss is the event type for cache misses.
	CacheEventTypeMiss = "cache_miss"
	// CacheEventTypeHit is the event type for cache hits.
	CacheEventTypeHit = "cache_hit"
	// StatusSuccess is the status for successful cache requests.
	StatusSuccess = "success"
	// StatusFailure is the status for failed cache requests.
	StatusFailure = "failure"
)

type cacheMetrics struct {
	// cacheEventsCounter is a counter for cache events.
	cacheEventsCounter   *prometheus.CounterVec
	cacheItemsGauge      prometheus.Gauge
	cacheRequestsCounter *prometheus.CounterVec
}

// newCacheMetrics returns a new cacheMetrics registered with reg.
func newCacheMetrics(prefix string, reg prometheus.Registerer) *cacheMetrics {
	return &cacheMetrics{
		cacheEventsCounter: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: fmt.Sprintf("%scache_events_total", prefix),
				Help: "Total number of credential cache retrieval events per key.",
			},
			[]string{"event_type", "key"},
		),
		cacheItemsGauge: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: fmt.Sprintf("%scached_items", prefix),
				Help: "Total number of items in the cache.",
			},
		),
		cacheRequestsCounter: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: fmt.Sprintf("%scache_requests_total", prefix),
				Help: "Total number of cache requests partioned by success or failure.",
			},
			[]string{"status"},
		),
	}
}

// incCacheEvents increments by 1 the cache event count for the given event type and key.
func (m *cacheMetrics) incCacheEvents(event, key string) {
	m.cacheEventsCounter.WithLabelValues(event, key).Inc()
}

// incCacheItems increments the number of cached items by 1.
func (m *cacheMetrics) incCacheItems() {
	m.cacheItemsGauge.Inc()
}

// incCacheRequests increments the cache request count for the given status.
func (m *cacheMetrics) incCacheRequests(status string) {
	m.cacheRequestsCounter.WithLabelValues(status).Inc()
}

func recordRequest(metrics *cacheMetrics, status string) {
	if metrics != nil {
		metrics.incCacheRequests(status)
	}
}

func recordItemIncrement(metrics *cacheMetrics) {
	if metrics != nil {
		metrics.incCacheItems()
	}
}

func recordCacheEvent(metrics *cacheMetrics, event, key string) {
	if metrics != nil {
		metrics.incCacheEvents(event, key)
	}
}
