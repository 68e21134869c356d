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
	"os"

	"github.com/intel/hwp-manager/pkg/config"
	"github.com/intel/hwp-manager/pkg/utils"
)

const (
	// defaultHTTPEndpoint is the default HTTP endpoint serving hwp and /metrics.
	defaultHTTPEndpoint = "127.0.0.1:8891"
	// defaultPrometheusExport is the default state for Prometheus exporting.
	defaultPrometheusExport = "true"
)

const configHelp = `
Instrumentation configuration.

  httpEndpoint:     address of the HTTP server, empty to disable it
  prometheusExport: whether to export Prometheus /metrics

Defaults can be overridden with the HTTP_ENDPOINT and PROMETHEUS_EXPORT
environment variables.
`

// options encapsulates our configurable instrumentation parameters.
type options struct {
	// HTTPEndpoint is our HTTP endpoint, serving hwp control and Prometheus /metrics.
	HTTPEndpoint string `json:"httpEndpoint"`
	// PrometheusExport defines whether we export /metrics to/for Prometheus.
	PrometheusExport bool `json:"prometheusExport"`
}

// Our instrumentation options.
var opt = defaultOptions().(*options)

// parseEnv parses the environment for default values.
func parseEnv(name, defval string, parsefn func(string) error) {
	if envval := os.Getenv(name); envval != "" {
		err := parsefn(envval)
		if err == nil {
			return
		}
		log.Error("invalid environment %s=%q: %v, using default %q", name, envval, err, defval)
	}
	if err := parsefn(defval); err != nil {
		log.Error("invalid default %s=%q: %v", name, defval, err)
	}
}

// defaultOptions returns a new options instance, all initialized to defaults.
func defaultOptions() interface{} {
	o := &options{}

	parseEnv("HTTP_ENDPOINT", defaultHTTPEndpoint,
		func(v string) error { o.HTTPEndpoint = v; return nil })
	parseEnv("PROMETHEUS_EXPORT", defaultPrometheusExport,
		func(v string) error {
			enabled, err := utils.ParseEnabled(v)
			if err != nil {
				return err
			}
			o.PrometheusExport = enabled
			return nil
		})

	return o
}

// configNotify is our configuration update notification handler.
func configNotify(event config.Event, _ config.Source) error {
	log.Info("instrumentation configuration %v: endpoint %q, Prometheus export %v",
		event, opt.HTTPEndpoint, opt.PrometheusExport)

	if err := svc.reconfigure(); err != nil {
		log.Error("failed to reconfigure instrumentation: %v", err)
	}

	return nil
}

// Register us for configuration handling.
func init() {
	config.Register("instrumentation", configHelp, opt, defaultOptions,
		config.WithNotify(configNotify))
}
