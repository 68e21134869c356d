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
	"fmt"
	"sync"

	"github.com/intel/hwp-manager/pkg/affinity"
)

// fakePinner pins nothing but tracks pins and releases.
type fakePinner struct {
	sync.Mutex
	offline    map[int]bool
	failUnpin  bool
	pinned     map[int]int
	pins       int
	releases   int
	pinHistory []int
	overlap    bool
}

func newFakePinner(offline ...int) *fakePinner {
	p := &fakePinner{
		offline: make(map[int]bool),
		pinned:  make(map[int]int),
	}
	for _, cpu := range offline {
		p.offline[cpu] = true
	}
	return p
}

func (p *fakePinner) Pin(cpu int) (affinity.Release, error) {
	p.Lock()
	defer p.Unlock()

	if p.offline[cpu] {
		return nil, fmt.Errorf("CPU #%d: %w", cpu, affinity.ErrCoreUnavailable)
	}
	p.pins++
	p.pinned[cpu]++
	if p.pinned[cpu] > 1 {
		p.overlap = true
	}
	p.pinHistory = append(p.pinHistory, cpu)

	return func() error {
		p.Lock()
		defer p.Unlock()
		p.releases++
		p.pinned[cpu]--
		if p.failUnpin {
			return fmt.Errorf("failed to restore affinity")
		}
		return nil
	}, nil
}

// balanced checks that every pin has been released.
func (p *fakePinner) balanced() bool {
	p.Lock()
	defer p.Unlock()
	return p.pins == p.releases
}

// regKey identifies a register of a CPU.
type regKey struct {
	cpu int
	reg uint32
}

// fakeMSRs is a fake register file for a set of CPUs.
type fakeMSRs struct {
	sync.Mutex
	values    map[regKey]uint64
	failRead  map[regKey]bool
	failWrite map[regKey]bool
	failOpen  map[int]bool
	writes    []regKey
	open      int
	closed    int
}

func newFakeMSRs() *fakeMSRs {
	return &fakeMSRs{
		values:    make(map[regKey]uint64),
		failRead:  make(map[regKey]bool),
		failWrite: make(map[regKey]bool),
		failOpen:  make(map[int]bool),
	}
}

func (f *fakeMSRs) set(cpu int, reg uint32, value uint64) *fakeMSRs {
	f.Lock()
	defer f.Unlock()
	f.values[regKey{cpu, reg}] = value
	return f
}

func (f *fakeMSRs) get(cpu int, reg uint32) uint64 {
	f.Lock()
	defer f.Unlock()
	return f.values[regKey{cpu, reg}]
}

func (f *fakeMSRs) opener() OpenFn {
	return func(cpu int) (RegisterFile, error) {
		f.Lock()
		defer f.Unlock()
		if f.failOpen[cpu] {
			return nil, fmt.Errorf("no msr device for CPU #%d", cpu)
		}
		f.open++
		return &fakeFile{cpu: cpu, f: f}, nil
	}
}

// fakeFile is an open fakeMSRs register file of a CPU.
type fakeFile struct {
	cpu int
	f   *fakeMSRs
}

func (ff *fakeFile) Read(reg uint32) (uint64, error) {
	ff.f.Lock()
	defer ff.f.Unlock()
	key := regKey{ff.cpu, reg}
	if ff.f.failRead[key] {
		return 0, fmt.Errorf("EIO")
	}
	return ff.f.values[key], nil
}

func (ff *fakeFile) Write(reg uint32, value uint64) error {
	ff.f.Lock()
	defer ff.f.Unlock()
	key := regKey{ff.cpu, reg}
	if ff.f.failWrite[key] {
		return fmt.Errorf("EIO")
	}
	ff.f.values[key] = value
	ff.f.writes = append(ff.f.writes, key)
	return nil
}

func (ff *fakeFile) Close() error {
	ff.f.Lock()
	defer ff.f.Unlock()
	ff.f.closed++
	return nil
}

// fakeQuery is a fake CPUID query.
type fakeQuery struct {
	vendor  string
	maxLeaf uint32
	eax6    uint32
}

func (q *fakeQuery) MaxLeaf() uint32 { return q.maxLeaf }
func (q *fakeQuery) Vendor() string  { return q.vendor }
func (q *fakeQuery) Leaf(eax, ecx uint32) (a, b, c, d uint32) {
	if eax == cpuidLeafPM {
		return q.eax6, 0, 0, 0
	}
	return 0, 0, 0, 0
}

// fakeClock is a fake clock rate estimator.
type fakeClock map[int]uint64

func (c fakeClock) ClockRate(cpu int) (uint64, error) {
	if mhz, ok := c[cpu]; ok {
		return mhz, nil
	}
	return 0, fmt.Errorf("no clock rate for CPU #%d", cpu)
}

// intelHWP is a fake Intel CPU with HWP and all optional features.
func intelHWP() *fakeQuery {
	return &fakeQuery{
		vendor:  "GenuineIntel",
		maxLeaf: 0x16,
		eax6:    featHWP | featNotifications | featActivityWindow | featPreference | featPackageControl,
	}
}

// newTestManager creates a manager with fakes for the given CPUID query.
func newTestManager(q *fakeQuery, p *fakePinner, f *fakeMSRs, c ClockRate) (*Manager, error) {
	d := Discover(WithEnabled(true), WithCPUID(q))
	return NewManager(d, WithPinner(p), WithRegisters(f.opener()), WithClockRate(c))
}
