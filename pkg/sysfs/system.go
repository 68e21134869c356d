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

package sysfs

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	idset "github.com/intel/goresctrl/pkg/utils"

	logger "github.com/intel/hwp-manager/pkg/log"
)

const (
	// SysfsRootPath is the mount path of sysfs.
	SysfsRootPath = "/sys"
	// ProcfsRootPath is the mount path of procfs.
	ProcfsRootPath = "/proc"
	// sysfs devices/cpu subdirectory path
	sysfsCPUPath = "devices/system/cpu"
	// intel_pstate status relative to sysfsCPUPath
	intelPstateStatus = "intel_pstate/status"
)

// System is the sysfs view of the CPUs of the running system.
type System struct {
	logger.Logger
	path    string            // sysfs mount point
	procfs  string            // procfs mount point
	cpus    map[idset.ID]*CPU // present CPUs by id
	present idset.IDSet       // present CPUs
}

// CPU is a single logical CPU.
type CPU struct {
	path string   // sysfs path
	id   idset.ID // CPU id
}

// Option is an option for DiscoverSystem.
type Option func(*System)

// WithSysfsRoot sets the sysfs mount point to use.
func WithSysfsRoot(path string) Option {
	return func(s *System) {
		s.path = path
	}
}

// WithProcfsRoot sets the procfs mount point to use.
func WithProcfsRoot(path string) Option {
	return func(s *System) {
		s.procfs = path
	}
}

// DiscoverSystem discovers the CPUs of the running system.
func DiscoverSystem(options ...Option) (*System, error) {
	sys := &System{
		Logger: logger.NewLogger("sysfs"),
		path:   SysfsRootPath,
		procfs: ProcfsRootPath,
		cpus:   make(map[idset.ID]*CPU),
	}
	for _, o := range options {
		o(sys)
	}

	if err := sys.discoverCPUs(); err != nil {
		return nil, err
	}

	return sys, nil
}

// discoverCPUs enumerates present CPUs, falling back to globbing for cpu directories.
func (sys *System) discoverCPUs() error {
	base := filepath.Join(sys.path, sysfsCPUPath)

	present := idset.NewIDSet()
	if _, err := readSysfsEntry(base, "present", &present, ","); err != nil {
		sys.Warn("%v, falling back to enumerating CPU directories", err)

		entries, err := filepath.Glob(filepath.Join(base, "cpu[0-9]*"))
		if err != nil {
			return sysfsError(base, "failed to enumerate CPUs: %v", err)
		}
		for _, entry := range entries {
			if id := getEnumeratedID(filepath.Base(entry)); id != Unknown {
				present.Add(id)
			}
		}
	}

	if present.Size() == 0 {
		return sysfsError(base, "no CPUs found")
	}

	for _, id := range present.SortedMembers() {
		sys.cpus[id] = &CPU{
			path: filepath.Join(base, "cpu"+strconv.Itoa(int(id))),
			id:   id,
		}
	}
	sys.present = present
	sys.Debug("present CPUs: %s", present.String())

	return nil
}

// CPUSet returns the set of present CPUs.
func (sys *System) CPUSet() idset.IDSet {
	return sys.present.Clone()
}

// CPU returns the given CPU, or nil if it is not present.
func (sys *System) CPU(id idset.ID) *CPU {
	return sys.cpus[id]
}

// OnlineCPUs returns the set of currently online CPUs.
func (sys *System) OnlineCPUs() idset.IDSet {
	base := filepath.Join(sys.path, sysfsCPUPath)
	online := idset.NewIDSet()
	if _, err := readSysfsEntry(base, "online", &online, ","); err != nil {
		sys.Warn("%v, checking present CPUs one by one", err)
		for _, id := range sys.present.SortedMembers() {
			if sys.cpus[id].Online() {
				online.Add(id)
			}
		}
	}
	return online
}

// IntelPstateStatus returns the status of the intel_pstate driver or "" if it is not loaded.
func (sys *System) IntelPstateStatus() string {
	var status string
	base := filepath.Join(sys.path, sysfsCPUPath)
	if _, err := readSysfsEntry(base, intelPstateStatus, &status); err != nil {
		return ""
	}
	return status
}

// ScalingDrivers returns the names of the cpufreq scaling drivers in use.
func (sys *System) ScalingDrivers() []string {
	drivers := map[string]struct{}{}
	for _, cpu := range sys.cpus {
		if driver := cpu.ScalingDriver(); driver != "" {
			drivers[driver] = struct{}{}
		}
	}

	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CompetingDriver returns the name of an active kernel driver controlling
// CPU performance states, or "" if there is none.
func (sys *System) CompetingDriver() string {
	switch status := sys.IntelPstateStatus(); status {
	case "active":
		return "intel_pstate"
	case "passive":
		return "intel_cpufreq"
	case "", "off":
	default:
		return "intel_pstate (" + status + ")"
	}

	if drivers := sys.ScalingDrivers(); len(drivers) > 0 {
		return strings.Join(drivers, ",")
	}

	return ""
}

// ClockRate returns the estimated current clock rate of the given CPU in MHz.
func (sys *System) ClockRate(id int) (uint64, error) {
	cpu, ok := sys.cpus[idset.ID(id)]
	if !ok {
		return 0, sysfsError(filepath.Join(sys.path, sysfsCPUPath), "CPU #%d not present", id)
	}

	if khz, err := cpu.CurrentFrequency(); err == nil {
		return khz / 1000, nil
	}

	mhz, err := readCPUInfoMHz(filepath.Join(sys.procfs, "cpuinfo"), id)
	if err != nil {
		return 0, err
	}
	return uint64(mhz), nil
}

// ID returns the id of this CPU.
func (c *CPU) ID() idset.ID {
	return c.id
}

// Online checks if this CPU is online.
func (c *CPU) Online() bool {
	var online int
	if _, err := readSysfsEntry(c.path, "online", &online); err != nil {
		// CPUs which can't be offlined have no online entry
		_, statErr := os.Stat(c.path)
		return statErr == nil
	}
	return online == 1
}

// ScalingDriver returns the cpufreq scaling driver of this CPU, or "" if there is none.
func (c *CPU) ScalingDriver() string {
	var driver string
	if _, err := readSysfsEntry(c.path, "cpufreq/scaling_driver", &driver); err != nil {
		return ""
	}
	return driver
}

// CurrentFrequency returns the current frequency of this CPU in kHz.
func (c *CPU) CurrentFrequency() (uint64, error) {
	var khz uint64
	if _, err := readSysfsEntry(c.path, "cpufreq/scaling_cur_freq", &khz); err != nil {
		return 0, err
	}
	return khz, nil
}
