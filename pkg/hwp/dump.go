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
	"strings"
)

// ClockRate estimates the current clock rate of CPUs.
type ClockRate interface {
	// ClockRate returns the estimated clock rate of the given CPU in MHz.
	ClockRate(cpu int) (uint64, error)
}

// Snapshot is the live HWP state of a core, read from the hardware.
type Snapshot struct {
	CPU            int     `json:"cpu"`
	Enabled        bool    `json:"enabled"`
	Levels         Levels  `json:"levels"`
	Request        Request `json:"request"`
	PkgRequest     Request `json:"pkgRequest"`
	PackageControl bool    `json:"packageControl"`
	ClockMHz       uint64  `json:"clockMHz"`
}

var (
	levelLabels = []string{
		"Highest Performance",
		"Guaranteed Performance",
		"Efficient Performance",
		"Lowest Performance",
	}
	requestLabels = map[Field]string{
		FieldEPP:     "Requested Efficiency Performance Preference",
		FieldDesired: "Requested Desired Performance",
		FieldMax:     "Requested Maximum Performance",
		FieldMin:     "Requested Minimum Performance",
	}
)

// Snapshot reads the live HWP state of an attached CPU.
func (m *Manager) Snapshot(cpu int) (*Snapshot, error) {
	c, err := m.lookup(cpu)
	if err != nil {
		return nil, err
	}

	c.Lock()
	defer c.Unlock()

	s := &Snapshot{CPU: cpu}
	err = m.guard.withCorePinned(cpu, func(regs Registers) error {
		if err := s.read(regs, c.features); err != nil {
			return err
		}
		if s.Enabled {
			s.ClockMHz = m.clockRate(cpu)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s, nil
}

// read fills in a snapshot from the registers of a pinned core. The package
// request is only read if package control is both supported and active.
func (s *Snapshot) read(regs Registers, features Features) error {
	enable, err := regs.Read(MSRPMEnable)
	if err != nil {
		return err
	}
	if enable&pmEnable == 0 {
		return nil
	}
	s.Enabled = true

	caps, err := regs.Read(MSRCapabilities)
	if err != nil {
		return err
	}
	s.Levels = DecodeCapabilities(caps)

	req, err := regs.Read(MSRRequest)
	if err != nil {
		return err
	}
	s.Request = Request(req)

	if features.PackageControl && s.Request.PackageControl() {
		pkg, err := regs.Read(MSRRequestPkg)
		if err != nil {
			return err
		}
		s.PkgRequest = Request(pkg)
		s.PackageControl = true
	}

	return nil
}

// Requested returns the effective value of a request field. This is the
// per-core value unless package control is in effect and the per-core
// valid bit of the field is clear, in which case it is the package value.
func (s *Snapshot) Requested(f Field) uint64 {
	if !s.PackageControl || s.Request.Valid(f) {
		return s.Request.Get(f)
	}
	return s.PkgRequest.Get(f)
}

// String formats the snapshot as a human-readable report.
func (s *Snapshot) String() string {
	var sb strings.Builder

	sb.WriteByte('\n')
	if !s.Enabled {
		fmt.Fprintf(&sb, "CPU%d: HWP Disabled\n", s.CPU)
		return sb.String()
	}
	fmt.Fprintf(&sb, "CPU%d: HWP Enabled\n", s.CPU)

	levels := []uint8{s.Levels.Highest, s.Levels.Guaranteed, s.Levels.Efficient, s.Levels.Lowest}
	for i, label := range levelLabels {
		fmt.Fprintf(&sb, "\t%s: %03d\n", label, levels[i])
	}

	sb.WriteByte('\n')
	for _, f := range RequestFields {
		fmt.Fprintf(&sb, "\t%s: %03d\n", requestLabels[f], s.Requested(f))
	}

	sb.WriteByte('\n')
	fmt.Fprintf(&sb, "\tClockrate: %d mhz\n", s.ClockMHz)
	sb.WriteByte('\n')

	return sb.String()
}

// Dump returns a human-readable report of the live HWP state of a CPU.
func (m *Manager) Dump(cpu int) (string, error) {
	s, err := m.Snapshot(cpu)
	if err != nil {
		return "", err
	}
	return s.String(), nil
}

// clockRate returns the estimated clock rate of a CPU, or 0 if it is unknown.
func (m *Manager) clockRate(cpu int) uint64 {
	if m.clock == nil {
		return 0
	}
	mhz, err := m.clock.ClockRate(cpu)
	if err != nil {
		log.Debug("CPU #%d: failed to estimate clock rate: %v", cpu, err)
		return 0
	}
	return mhz
}
