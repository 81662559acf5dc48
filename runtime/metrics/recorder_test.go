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
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestRecorder_RecordReady(t *testing.T) {
	rec := NewRecorder()
	reg := prometheus.NewRegistry()
	reg.MustRegister(rec.readyGauge)

	rec.RecordReady("External_AM", true)
	rec.RecordReady("Internal_AM", false)

	metricFamilies, err := reg.Gather()
	require.NoError(t, err)

	require.Equal(t, 1, len(metricFamilies))
	require.Equal(t, 2, len(metricFamilies[0].Metric))

	values := map[string]float64{}
	for _, m := range metricFamilies[0].Metric {
		for _, pair := range m.GetLabel() {
			if pair.GetName() == "endpoint" {
				values[pair.GetValue()] = m.GetGauge().GetValue()
			}
		}
	}
	require.Equal(t, map[string]float64{"External_AM": 1, "Internal_AM": 0}, values)

	rec.RecordReady("Internal_AM", true)
	metricFamilies, err = reg.Gather()
	require.NoError(t, err)
	for _, m := range metricFamilies[0].Metric {
		require.Equal(t, float64(1), m.GetGauge().GetValue())
	}
}

func TestRecorder_RecordDuration(t *testing.T) {
	rec := NewRecorder()
	reg := prometheus.NewRegistry()
	reg.MustRegister(rec.Collectors()...)

	start := time.Now().Add(-time.Second)
	rec.RecordDuration(start)

	metricFamilies, err := reg.Gather()
	require.NoError(t, err)

	var found int
	for _, mf := range metricFamilies {
		switch mf.GetName() {
		case "keygen_refresh_duration_seconds":
			found++
			require.Equal(t, uint64(1), mf.Metric[0].GetHistogram().GetSampleCount())
			require.GreaterOrEqual(t, mf.Metric[0].GetHistogram().GetSampleSum(), float64(1))
		case "keygen_last_refresh_timestamp_seconds":
			found++
			require.GreaterOrEqual(t, mf.Metric[0].GetGauge().GetValue(), float64(start.Unix()))
		}
	}
	require.Equal(t, 2, found)
}
