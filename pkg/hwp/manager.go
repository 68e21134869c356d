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
	"sort"
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/intel/hwp-manager/pkg/affinity"
	pkgcfg "github.com/intel/hwp-manager/pkg/config"
	logger "github.com/intel/hwp-manager/pkg/log"
)

// our logger instance
var log = logger.NewLogger("hwp")

// Manager controls HWP of the attached CPUs.
type Manager struct {
	sync.RWMutex
	disc  *Discovery
	guard guard
	clock ClockRate
	cores map[int]*Core
}

// Option is an option for NewManager.
type Option func(*Manager)

// WithPinner sets the affinity Pinner to use.
func WithPinner(p affinity.Pinner) Option {
	return func(m *Manager) {
		m.guard.pinner = p
	}
}

// WithRegisters sets the function to open the registers of a CPU with.
func WithRegisters(open OpenFn) Option {
	return func(m *Manager) {
		m.guard.open = open
	}
}

// WithClockRate sets the clock rate estimator for reports.
func WithClockRate(c ClockRate) Option {
	return func(m *Manager) {
		m.clock = c
	}
}

// NewManager creates a manager for a successful HWP discovery.
func NewManager(d *Discovery, options ...Option) (*Manager, error) {
	if d == nil {
		return nil, hwpError("no discovery: %w", ErrUnsupported)
	}
	if !d.Supported() {
		return nil, d.Err()
	}

	m := &Manager{
		disc: d,
		guard: guard{
			pinner: affinity.NewPinner(),
			open:   msrOpener(opt.MsrDevice),
		},
		cores: make(map[int]*Core),
	}
	for _, o := range options {
		o(m)
	}

	return m, nil
}

// Discovery returns the discovery the manager was created for.
func (m *Manager) Discovery() *Discovery {
	return m.disc
}

// Attach attaches and configures the given CPUs. Cores are configured
// concurrently and independently. A core that fails to configure stays
// attached in a failed or partial state. The returned error collects all
// per-core failures.
func (m *Manager) Attach(cpus ...int) error {
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		result *multierror.Error
	)

	for _, cpu := range m.register(cpus) {
		wg.Add(1)
		go func(cpu int) {
			defer wg.Done()
			err := m.Configure(cpu)
			if err == nil && opt.InitialEPP != NoEPP {
				err = m.SetEPP(cpu, opt.InitialEPP)
			}
			if err != nil {
				mu.Lock()
				result = multierror.Append(result, err)
				mu.Unlock()
			}
		}(cpu)
	}
	wg.Wait()

	return result.ErrorOrNil()
}

// register creates cores for the given CPUs, returning the newly created ones.
func (m *Manager) register(cpus []int) []int {
	m.Lock()
	defer m.Unlock()

	created := make([]int, 0, len(cpus))
	for _, cpu := range cpus {
		if _, ok := m.cores[cpu]; ok {
			log.Warn("CPU #%d: already attached", cpu)
			continue
		}
		m.cores[cpu] = newCore(cpu, m.disc.features)
		created = append(created, cpu)
	}

	return created
}

// Detach forgets the given CPUs. The hardware state is left as it is.
func (m *Manager) Detach(cpus ...int) {
	m.Lock()
	defer m.Unlock()

	for _, cpu := range cpus {
		if _, ok := m.cores[cpu]; !ok {
			continue
		}
		delete(m.cores, cpu)
		log.Info("CPU #%d: detached", cpu)
	}
}

// Cores returns the sorted ids of the attached CPUs.
func (m *Manager) Cores() []int {
	m.RLock()
	defer m.RUnlock()

	cpus := make([]int, 0, len(m.cores))
	for cpu := range m.cores {
		cpus = append(cpus, cpu)
	}
	sort.Ints(cpus)

	return cpus
}

// Core returns the given attached CPU, or nil if it is not attached.
func (m *Manager) Core(cpu int) *Core {
	m.RLock()
	defer m.RUnlock()
	return m.cores[cpu]
}

// lookup returns the given attached CPU, or an error if it is not attached.
func (m *Manager) lookup(cpu int) (*Core, error) {
	if c := m.Core(cpu); c != nil {
		return c, nil
	}
	return nil, hwpError("CPU #%d: %w", cpu, ErrNotAttached)
}

// ConfigNotify applies a changed initial EPP to all configured cores. It can be
// registered as a notifier for the hwp configuration module. Register access
// failures are logged, they never cause the configuration to be rejected.
func (m *Manager) ConfigNotify(event pkgcfg.Event, _ pkgcfg.Source) error {
	if event != pkgcfg.UpdateEvent && event != pkgcfg.RevertEvent {
		return nil
	}
	if opt.InitialEPP == NoEPP {
		return nil
	}

	for _, cpu := range m.Cores() {
		if c := m.Core(cpu); c == nil || c.State() != StateConfigured {
			continue
		}
		if err := m.SetEPP(cpu, opt.InitialEPP); err != nil {
			log.Error("CPU #%d: failed to update EPP: %v", cpu, err)
		}
	}

	return nil
}
