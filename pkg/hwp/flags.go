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
	idset "github.com/intel/goresctrl/pkg/utils"

	pkgcfg "github.com/intel/hwp-manager/pkg/config"
	"github.com/intel/hwp-manager/pkg/msr"
	"github.com/intel/hwp-manager/pkg/sysfs"
)

const (
	// configModule is our configuration module name.
	configModule = "hwp"
	// NoEPP leaves the energy/performance preference as the hardware has it.
	NoEPP = -1
)

const configHelp = `
HWP (Intel Speed Shift) configuration.

  enabled:    use HWP if the system supports it (default true)
  cpus:       CPUs to attach, as a list like '0-3,8', all online CPUs if empty
  initialEPP: energy/performance preference (0-100) to set on attached CPUs,
              -1 to leave it as it is
  msrDevice:  msr device path format, indexed by CPU
`

// options captures our configurable parameters.
type options struct {
	// Enabled is the administrative switch for using HWP.
	Enabled bool `json:"enabled"`
	// CPUs is the list of CPUs to attach.
	CPUs string `json:"cpus,omitempty"`
	// InitialEPP is the preference to set on attach and on reconfiguration.
	InitialEPP int `json:"initialEPP"`
	// MsrDevice is the path format of msr devices.
	MsrDevice string `json:"msrDevice"`
}

// our runtime configuration
var opt = defaultOptions().(*options)

// defaultOptions returns a new options instance, all initialized to defaults.
func defaultOptions() interface{} {
	return &options{
		Enabled:    true,
		InitialEPP: NoEPP,
		MsrDevice:  msr.DefaultDevicePath,
	}
}

// configNotify validates configuration changes.
func (o *options) configNotify(event pkgcfg.Event, source pkgcfg.Source) error {
	if o.InitialEPP != NoEPP && (o.InitialEPP < 0 || o.InitialEPP > 100) {
		return hwpError("invalid initialEPP %d, expecting 0-100 or %d", o.InitialEPP, NoEPP)
	}
	if _, err := sysfs.ParseCPUList(o.CPUs); err != nil {
		return hwpError("invalid cpus %q: %v", o.CPUs, err)
	}

	log.Info("configuration %v from %v: enabled=%v, cpus=%q, initialEPP=%d",
		event, source, o.Enabled, o.CPUs, o.InitialEPP)

	return nil
}

// SelectCPUs returns the sorted configured CPUs which are online, or all
// online CPUs if none are configured.
func SelectCPUs(online idset.IDSet) ([]int, error) {
	if opt.CPUs == "" {
		return toInts(online.SortedMembers()), nil
	}

	configured, err := sysfs.ParseCPUList(opt.CPUs)
	if err != nil {
		return nil, hwpError("invalid cpus %q: %v", opt.CPUs, err)
	}

	var cpus []idset.ID
	for _, id := range configured.SortedMembers() {
		if !online.Has(id) {
			log.Warn("CPU #%d: configured but offline, skipping", id)
			continue
		}
		cpus = append(cpus, id)
	}

	return toInts(cpus), nil
}

func toInts(ids []idset.ID) []int {
	ints := make([]int, 0, len(ids))
	for _, id := range ids {
		ints = append(ints, int(id))
	}
	return ints
}

func init() {
	pkgcfg.Register(configModule, configHelp, opt, defaultOptions,
		pkgcfg.WithNotify(opt.configNotify))
}
