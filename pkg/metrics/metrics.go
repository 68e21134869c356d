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

// Package metrics collects the Prometheus collectors of our components
// into a single gatherer.
package metrics

import (
	"fmt"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	logger "github.com/intel/hwp-manager/pkg/log"
)

// InitCollector is the type for functions that initialize collectors.
type InitCollector func() (prometheus.Collector, error)

// collectors registered for gathering
type registry struct {
	sync.Mutex
	init        map[string]InitCollector
	initialized map[string]prometheus.Collector
}

var (
	collectors = newRegistry()
	log        = logger.NewLogger("metrics")
)

func newRegistry() *registry {
	return &registry{
		init:        make(map[string]InitCollector),
		initialized: make(map[string]prometheus.Collector),
	}
}

// RegisterCollector registers the named prometheus.Collector for metrics collection.
func RegisterCollector(name string, init InitCollector) error {
	collectors.Lock()
	defer collectors.Unlock()

	if _, found := collectors.init[name]; found {
		return metricsError("collector %s already registered", name)
	}

	log.Info("registering collector %s...", name)
	collectors.init[name] = init

	return nil
}

// Collectors returns the sorted names of all registered collectors.
func Collectors() []string {
	collectors.Lock()
	defer collectors.Unlock()

	names := make([]string, 0, len(collectors.init))
	for name := range collectors.init {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// NewMetricGatherer creates a new prometheus.Gatherer with all registered
// collectors. Each collector is initialized once, collectors that fail to
// initialize are skipped.
func NewMetricGatherer() (prometheus.Gatherer, error) {
	collectors.Lock()
	defer collectors.Unlock()

	reg := prometheus.NewPedanticRegistry()

	for name, init := range collectors.init {
		c, ok := collectors.initialized[name]
		if !ok {
			var err error
			if c, err = init(); err != nil {
				log.Error("failed to initialize collector %s: %v, skipping it", name, err)
				continue
			}
			collectors.initialized[name] = c
		}
		if err := reg.Register(c); err != nil {
			return nil, metricsError("failed to register collector %s: %v", name, err)
		}
	}

	return reg, nil
}

func metricsError(format string, args ...interface{}) error {
	return fmt.Errorf("metrics: "+format, args...)
}
