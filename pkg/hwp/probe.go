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
	"os"

	"github.com/pkg/errors"

	"github.com/intel/hwp-manager/pkg/cpuid"
)

const (
	// cpuidLeafPM is the thermal and power management CPUID leaf.
	cpuidLeafPM = 0x6

	// CPUID.06H:EAX feature bits
	featHWP            uint32 = 1 << 7
	featNotifications  uint32 = 1 << 8
	featActivityWindow uint32 = 1 << 9
	featPreference     uint32 = 1 << 10
	featPackageControl uint32 = 1 << 11

	// DefaultFallback is the mechanism we expect to take over without HWP.
	DefaultFallback = "acpi-cpufreq"
)

// Features are the optional HWP capabilities of the processor.
type Features struct {
	Notifications     bool `json:"notifications"`
	ActivityWindow    bool `json:"activityWindow"`
	PreferenceControl bool `json:"preferenceControl"`
	PackageControl    bool `json:"packageControl"`
}

// DecodeFeatures decodes HWP support and the optional features from CPUID.06H:EAX.
func DecodeFeatures(eax uint32) (bool, Features) {
	return eax&featHWP != 0, Features{
		Notifications:     eax&featNotifications != 0,
		ActivityWindow:    eax&featActivityWindow != 0,
		PreferenceControl: eax&featPreference != 0,
		PackageControl:    eax&featPackageControl != 0,
	}
}

// DriverProbe detects kernel drivers competing for CPU performance control.
type DriverProbe interface {
	// CompetingDriver returns the name of an active competing driver, or "".
	CompetingDriver() string
}

// InstanceCheckFn returns the pid of a process owning HWP control, or 0.
type InstanceCheckFn func() (int, error)

// Discovery is the result of HWP discovery. It is created once, before any
// per-core work, and is read-only afterwards.
type Discovery struct {
	err      error
	fallback string
	features Features
	cpu      cpuid.Info
}

// Status is the externally visible summary of a Discovery.
type Status struct {
	Supported bool       `json:"supported"`
	Reason    string     `json:"reason,omitempty"`
	Fallback  string     `json:"fallback,omitempty"`
	Features  Features   `json:"features"`
	CPU       cpuid.Info `json:"cpu"`
}

// DiscoveryOption is an option for Discover.
type DiscoveryOption func(*discoverer)

type discoverer struct {
	enabled  bool
	query    cpuid.Query
	drivers  DriverProbe
	instance InstanceCheckFn
}

// WithEnabled overrides the administrative enable switch.
func WithEnabled(enabled bool) DiscoveryOption {
	return func(d *discoverer) {
		d.enabled = enabled
	}
}

// WithCPUID sets the CPUID query to use.
func WithCPUID(q cpuid.Query) DiscoveryOption {
	return func(d *discoverer) {
		d.query = q
	}
}

// WithDriverProbe sets the detector for competing kernel drivers.
func WithDriverProbe(p DriverProbe) DiscoveryOption {
	return func(d *discoverer) {
		d.drivers = p
	}
}

// WithInstanceCheck sets the detector for competing instances of ourselves.
func WithInstanceCheck(fn InstanceCheckFn) DiscoveryOption {
	return func(d *discoverer) {
		d.instance = fn
	}
}

// Discover checks whether HWP can be used on this system. The checks are, in
// order: the administrative enable switch, a competing instance, a competing
// kernel driver, the processor vendor, the highest CPUID leaf and finally the
// HWP feature bit itself.
func Discover(options ...DiscoveryOption) *Discovery {
	d := &discoverer{
		enabled: opt.Enabled,
		query:   cpuid.Native(),
	}
	for _, o := range options {
		o(d)
	}

	disc := &Discovery{
		fallback: DefaultFallback,
		cpu:      cpuid.Describe(d.query),
	}

	if err := d.check(disc); err != nil {
		disc.err = fmt.Errorf("%w: %v", ErrUnsupported, err)
		log.Info("Speed Shift unavailable, falling back to %s: %v", disc.fallback, err)
		return disc
	}

	log.Info("Speed Shift available (%s %s)", disc.cpu.Vendor, disc.cpu.Brand)
	log.Info("  notifications: %v, activity window: %v, EPP: %v, package control: %v",
		disc.features.Notifications, disc.features.ActivityWindow,
		disc.features.PreferenceControl, disc.features.PackageControl)

	return disc
}

func (d *discoverer) check(disc *Discovery) error {
	if !d.enabled {
		return errors.New("administratively disabled")
	}

	if d.instance != nil {
		pid, err := d.instance()
		if err != nil {
			return errors.Wrap(err, "failed to check for other instances")
		}
		if pid > 0 && pid != os.Getpid() {
			disc.fallback = fmt.Sprintf("process %d", pid)
			return errors.Errorf("already controlled by process %d", pid)
		}
	}

	if d.drivers != nil {
		if driver := d.drivers.CompetingDriver(); driver != "" {
			disc.fallback = driver
			return errors.Errorf("competing driver %s active", driver)
		}
	}

	if vendor := d.query.Vendor(); vendor != cpuid.VendorIntel {
		return errors.Errorf("unsupported vendor %q", vendor)
	}

	if max := d.query.MaxLeaf(); max < cpuidLeafPM {
		return errors.Errorf("CPUID leaf %#x not available (max %#x)", cpuidLeafPM, max)
	}

	eax, _, _, _ := d.query.Leaf(cpuidLeafPM, 0)
	supported, features := DecodeFeatures(eax)
	if !supported {
		return errors.New("not supported by the processor")
	}
	disc.features = features

	return nil
}

// Supported checks if HWP can be used.
func (d *Discovery) Supported() bool {
	return d.err == nil
}

// Err returns the reason HWP can't be used, wrapping ErrUnsupported, or nil.
func (d *Discovery) Err() error {
	return d.err
}

// Fallback returns the mechanism expected to control performance without HWP.
func (d *Discovery) Fallback() string {
	if d.Supported() {
		return ""
	}
	return d.fallback
}

// Features returns the optional HWP features.
func (d *Discovery) Features() Features {
	return d.features
}

// CPU returns the identity of the processor.
func (d *Discovery) CPU() cpuid.Info {
	return d.cpu
}

// Status returns a summary of the discovery.
func (d *Discovery) Status() Status {
	s := Status{
		Supported: d.Supported(),
		Fallback:  d.Fallback(),
		Features:  d.features,
		CPU:       d.cpu,
	}
	if d.err != nil {
		s.Reason = d.err.Error()
	}
	return s
}
