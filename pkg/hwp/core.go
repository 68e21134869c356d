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
	"sync"
)

// State is the configuration state of a core.
type State int

const (
	// StateNew is a core that has not been configured yet.
	StateNew State = iota
	// StateEnabled is a core with HWP enabled but autonomous mode not yet set up.
	StateEnabled
	// StateConfigured is a core in autonomous selection mode.
	StateConfigured
	// StatePartial is a core left enabled with an indeterminate request.
	StatePartial
	// StateFailed is a core where HWP could not be enabled.
	StateFailed
)

var stateNames = map[State]string{
	StateNew:        "new",
	StateEnabled:    "enabled",
	StateConfigured: "configured",
	StatePartial:    "partial",
	StateFailed:     "failed",
}

// String returns the name of the state.
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(text []byte) error {
	for state, name := range stateNames {
		if name == string(text) {
			*s = state
			return nil
		}
	}
	return hwpError("invalid core state %q", string(text))
}

// Core is the HWP state of a single attached CPU. All register access of
// a core is serialized by its lock.
type Core struct {
	sync.Mutex
	cpu      int
	features Features
	levels   Levels
	request  Request
	state    State
	err      error
}

// CoreStatus is a snapshot of the cached state of a core.
type CoreStatus struct {
	CPU     int     `json:"cpu"`
	State   State   `json:"state"`
	Levels  Levels  `json:"levels"`
	Request Request `json:"request"`
	Error   string  `json:"error,omitempty"`
}

func newCore(cpu int, features Features) *Core {
	return &Core{
		cpu:      cpu,
		features: features,
		state:    StateNew,
	}
}

// CPU returns the id of the CPU of this core.
func (c *Core) CPU() int {
	return c.cpu
}

// Features returns the HWP features shared by all cores.
func (c *Core) Features() Features {
	return c.features
}

// State returns the configuration state of the core.
func (c *Core) State() State {
	c.Lock()
	defer c.Unlock()
	return c.state
}

// Status returns the cached state of the core.
func (c *Core) Status() CoreStatus {
	c.Lock()
	defer c.Unlock()
	s := CoreStatus{
		CPU:     c.cpu,
		State:   c.state,
		Levels:  c.levels,
		Request: c.request,
	}
	if c.err != nil {
		s.Error = c.err.Error()
	}
	return s
}

// fail records an error together with the state it left the core in.
func (c *Core) fail(state State, err error) error {
	c.state = state
	c.err = err
	return err
}
