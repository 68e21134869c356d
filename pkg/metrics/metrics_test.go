// Copyright 2023 Intel Corporation. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestNewMetricGatherer(t *testing.T) {
	collectors = newRegistry()

	inits := 0
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{Name: "test_gauge", Help: "Test gauge."})
	gauge.Set(3)

	require.NoError(t, RegisterCollector("gauge", func() (prometheus.Collector, error) {
		inits++
		return gauge, nil
	}))
	require.Error(t, RegisterCollector("gauge", nil))
	require.NoError(t, RegisterCollector("broken", func() (prometheus.Collector, error) {
		return nil, errors.New("failed")
	}))
	require.Equal(t, []string{"broken", "gauge"}, Collectors())

	for i := 0; i < 2; i++ {
		g, err := NewMetricGatherer()
		require.NoError(t, err)

		families, err := g.Gather()
		require.NoError(t, err)
		require.Len(t, families, 1)
		require.Equal(t, "test_gauge", families[0].GetName())
		require.Equal(t, 3.0, families[0].GetMetric()[0].GetGauge().GetValue())
	}
	require.Equal(t, 1, inits)
}
