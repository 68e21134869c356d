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
	"strings"
)

// Type describes the kind of control a frequency driver offers.
type Type int

const (
	// TypeRelative drivers set frequencies relative to others.
	TypeRelative Type = 1 << 0
	// TypeAbsolute drivers report absolute frequencies.
	TypeAbsolute Type = 1 << 1
	// FlagInfoOnly drivers only report frequencies, they can't set them.
	FlagInfoOnly Type = 1 << 16
	// FlagUncached drivers must be queried for every read.
	FlagUncached Type = 1 << 17

	// Unknown is the value of setting fields we can't tell.
	Unknown = -1
)

var typeNames = []struct {
	bit  Type
	name string
}{
	{TypeRelative, "relative"},
	{TypeAbsolute, "absolute"},
	{FlagInfoOnly, "info-only"},
	{FlagUncached, "uncached"},
}

// String returns the type as '|'-separated names.
func (t Type) String() string {
	var names []string
	for _, n := range typeNames {
		if t&n.bit != 0 {
			names = append(names, n.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// MarshalText implements encoding.TextMarshaler.
func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Type) UnmarshalText(text []byte) error {
	var typ Type
	if str := string(text); str != "none" {
	next:
		for _, name := range strings.Split(str, "|") {
			for _, n := range typeNames {
				if n.name == name {
					typ |= n.bit
					continue next
				}
			}
			return hwpError("invalid type %q", str)
		}
	}
	*t = typ
	return nil
}

// Setting is the current frequency setting of a CPU.
type Setting struct {
	CPU          int `json:"cpu"`
	FrequencyMHz int `json:"frequencyMHz"`
	Volts        int `json:"volts"`
	Power        int `json:"power"`
	Latency      int `json:"latency"`
}

// Get returns the current frequency setting of a CPU. Only the frequency is
// known, estimated from the current clock rate.
func (m *Manager) Get(cpu int) (Setting, error) {
	if _, err := m.lookup(cpu); err != nil {
		return Setting{}, err
	}

	s := Setting{
		CPU:          cpu,
		FrequencyMHz: Unknown,
		Volts:        Unknown,
		Power:        Unknown,
		Latency:      Unknown,
	}
	if m.clock != nil {
		if mhz, err := m.clock.ClockRate(cpu); err == nil {
			s.FrequencyMHz = int(mhz)
		} else {
			log.Debug("CPU #%d: failed to estimate clock rate: %v", cpu, err)
		}
	}

	return s, nil
}

// Type returns the kind of frequency control we offer: absolute frequencies,
// for information only, with the hardware picking the actual frequency.
func (m *Manager) Type() Type {
	return TypeAbsolute | FlagInfoOnly
}
