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

package hwp

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	logger "github.com/intel/hwp-manager/pkg/log"
)

// Prometheus Metric descriptor indices and descriptor table
const (
	enabledDesc = iota
	stateDesc
	eppDesc
	levelDesc
	requestedDesc
	clockRateDesc
	numDescriptors
)

var descriptors = [numDescriptors]*prometheus.Desc{
	enabledDesc: prometheus.NewDesc(
		"hwp_enabled",
		"Whether HWP is enabled on a CPU.",
		[]string{"cpu"}, nil,
	),
	stateDesc: prometheus.NewDesc(
		"hwp_core_state",
		"HWP configuration state of a CPU, 1 for the current state.",
		[]string{"cpu", "state"}, nil,
	),
	eppDesc: prometheus.NewDesc(
		"hwp_epp_percent",
		"Effective energy/performance preference of a CPU, 0 for performance, 100 for efficiency.",
		[]string{"cpu"}, nil,
	),
	levelDesc: prometheus.NewDesc(
		"hwp_performance_level",
		"HWP performance capabilities of a CPU.",
		[]string{"cpu", "level"}, nil,
	),
	requestedDesc: prometheus.NewDesc(
		"hwp_requested_performance",
		"Effective HWP request of a CPU.",
		[]string{"cpu", "field"}, nil,
	),
	clockRateDesc: prometheus.NewDesc(
		"hwp_clockrate_mhz",
		"Estimated clock rate of a CPU in MHz.",
		[]string{"cpu"}, nil,
	),
}

// collector exports the live HWP state of all attached CPUs.
type collector struct {
	m   *Manager
	log logger.Logger
}

// NewCollector creates a Prometheus collector for the CPUs of a manager.
func NewCollector(m *Manager) prometheus.Collector {
	return &collector{
		m:   m,
		log: logger.RateLimit(log, logger.Interval(time.Minute)),
	}
}

// Describe implements prometheus.Collector interface.
func (c *collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range descriptors {
		ch <- d
	}
}

// Collect implements prometheus.Collector interface.
func (c *collector) Collect(ch chan<- prometheus.Metric) {
	for _, cpu := range c.m.Cores() {
		core := c.m.Core(cpu)
		if core == nil {
			continue
		}
		id := strconv.Itoa(cpu)

		state := core.State()
		for s, name := range stateNames {
			ch <- gauge(stateDesc, boolValue(s == state), id, name)
		}

		s, err := c.m.Snapshot(cpu)
		if err != nil {
			c.log.Warn("CPU #%d: failed to collect HWP metrics: %v", cpu, err)
			continue
		}

		ch <- gauge(enabledDesc, boolValue(s.Enabled), id)
		if !s.Enabled {
			continue
		}

		ch <- gauge(eppDesc, float64(RawToPercent(uint8(s.Requested(FieldEPP)))), id)
		ch <- gauge(levelDesc, float64(s.Levels.Highest), id, "highest")
		ch <- gauge(levelDesc, float64(s.Levels.Guaranteed), id, "guaranteed")
		ch <- gauge(levelDesc, float64(s.Levels.Efficient), id, "efficient")
		ch <- gauge(levelDesc, float64(s.Levels.Lowest), id, "lowest")
		for _, f := range RequestFields {
			ch <- gauge(requestedDesc, float64(s.Requested(f)), id, f.String())
		}
		ch <- gauge(clockRateDesc, float64(s.ClockMHz), id)
	}
}

func gauge(idx int, value float64, labels ...string) prometheus.Metric {
	return prometheus.MustNewConstMetric(descriptors[idx], prometheus.GaugeValue, value, labels...)
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
