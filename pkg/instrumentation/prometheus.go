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
	"sync"

	pclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	model "github.com/prometheus/client_model/go"

	"github.com/intel/hwp-manager/pkg/instrumentation/http"
)

const (
	// PrometheusMetricsPath is the URL path for exposing metrics to Prometheus.
	PrometheusMetricsPath = "/metrics"
)

// dynamically registered prometheus gatherers
var dynamicGatherers = &gatherers{gatherers: pclient.Gatherers{}}

// metrics is the state of our Prometheus exporter.
type metrics struct {
	exported bool
}

// start registers the Prometheus /metrics handler if export is enabled.
func (m *metrics) start(mux *http.ServeMux, export bool) error {
	if !export || m.exported {
		return nil
	}

	log.Debug("exporting Prometheus metrics at %s...", PrometheusMetricsPath)

	handler := promhttp.HandlerFor(dynamicGatherers, promhttp.HandlerOpts{
		ErrorLog:      promLogger{},
		ErrorHandling: promhttp.ContinueOnError,
	})
	if err := mux.Handle(PrometheusMetricsPath, handler); err != nil {
		return err
	}
	m.exported = true

	return nil
}

// stop unregisters the Prometheus /metrics handler.
func (m *metrics) stop(mux *http.ServeMux) {
	if !m.exported {
		return
	}
	mux.Unregister(PrometheusMetricsPath)
	m.exported = false
}

// reconfigure starts or stops exporting according to export.
func (m *metrics) reconfigure(mux *http.ServeMux, export bool) error {
	if !export {
		m.stop(mux)
		return nil
	}
	return m.start(mux, export)
}

// promLogger passes promhttp errors to our logger.
type promLogger struct{}

func (promLogger) Println(v ...interface{}) {
	log.Error("%s", sprintln(v...))
}

// gatherers is a trivial wrapper around prometheus Gatherers.
type gatherers struct {
	sync.RWMutex
	gatherers pclient.Gatherers
}

// Register registers a new gatherer.
func (g *gatherers) Register(gatherer pclient.Gatherer) {
	g.Lock()
	defer g.Unlock()
	g.gatherers = append(g.gatherers, gatherer)
}

// Gather implements the pclient.Gatherer interface.
func (g *gatherers) Gather() ([]*model.MetricFamily, error) {
	g.RLock()
	defer g.RUnlock()
	return g.gatherers.Gather()
}

// RegisterGatherer registers a new prometheus Gatherer.
func RegisterGatherer(g pclient.Gatherer) {
	dynamicGatherers.Register(g)
}
