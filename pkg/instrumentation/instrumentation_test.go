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

package instrumentation

import (
	"io"
	"net/http"
	"testing"

	pclient "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestPrometheusConfiguration(t *testing.T) {
	saved := *opt
	defer func() { *opt = saved }()

	reg := pclient.NewRegistry()
	gauge := pclient.NewGauge(pclient.GaugeOpts{
		Name: "instrumentation_test_gauge",
		Help: "A gauge for testing.",
	})
	gauge.Set(42)
	reg.MustRegister(gauge)
	RegisterGatherer(reg)

	opt.HTTPEndpoint = "127.0.0.1:0"
	opt.PrometheusExport = true

	s := newService()
	require.NoError(t, s.Start())
	defer s.Stop()

	address := s.http.GetAddress()
	opt.HTTPEndpoint = address

	body := checkPrometheus(t, address, true)
	require.Contains(t, body, "instrumentation_test_gauge 42")

	opt.PrometheusExport = false
	require.NoError(t, s.reconfigure())
	checkPrometheus(t, address, false)

	opt.PrometheusExport = true
	require.NoError(t, s.reconfigure())
	checkPrometheus(t, address, true)

	// reconfiguring with the same settings is a no-op
	require.NoError(t, s.reconfigure())
	require.Equal(t, address, s.http.GetAddress())
	checkPrometheus(t, address, true)
}

func TestReconfigureStopped(t *testing.T) {
	s := newService()
	require.NoError(t, s.reconfigure())
	require.Empty(t, s.http.GetAddress())
}

func checkPrometheus(t *testing.T, server string, exported bool) string {
	rpl, err := http.Get("http://" + server + PrometheusMetricsPath)
	require.NoError(t, err)
	defer rpl.Body.Close()

	if !exported {
		require.Equal(t, http.StatusNotFound, rpl.StatusCode)
		return ""
	}

	require.Equal(t, http.StatusOK, rpl.StatusCode)
	body, err := io.ReadAll(rpl.Body)
	require.NoError(t, err)

	return string(body)
}
