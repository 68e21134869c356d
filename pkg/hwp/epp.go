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
	"strings"

	"github.com/pkg/errors"
)

// ParseEPP parses a decimal preference. Integers too large for an int
// saturate in the direction of their sign, leaving clamping to SetEPP.
func ParseEPP(str string) (int, error) {
	str = strings.TrimSpace(str)
	value, err := strconv.Atoi(str)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return value, nil
		}
		return 0, hwpError("invalid EPP %q", str)
	}
	return value, nil
}

// EPP returns the energy/performance preference of a CPU as a percentage,
// 0 being the strongest performance bias and 100 the strongest efficiency
// bias. The value is read from the hardware, not from the cached request.
func (m *Manager) EPP(cpu int) (int, error) {
	c, err := m.lookup(cpu)
	if err != nil {
		return 0, err
	}

	c.Lock()
	defer c.Unlock()

	var req Request
	err = m.guard.withCorePinned(cpu, func(regs Registers) error {
		raw, err := regs.Read(MSRRequest)
		if err != nil {
			return err
		}
		req = Request(raw)
		return nil
	})
	if err != nil {
		return 0, err
	}

	return RawToPercent(req.EPP()), nil
}

// SetEPP sets the energy/performance preference of a CPU. Values outside
// [0, 100] are clamped. All other fields of the live request are preserved.
func (m *Manager) SetEPP(cpu, value int) error {
	c, err := m.lookup(cpu)
	if err != nil {
		return err
	}

	if clamped := clampPercent(value); clamped != value {
		log.Debug("CPU #%d: EPP %d clamped to %d", cpu, value, clamped)
		value = clamped
	}

	c.Lock()
	defer c.Unlock()

	return m.guard.withCorePinned(cpu, func(regs Registers) error {
		return c.setEPP(regs, value)
	})
}

// setEPP updates the preference in the live request of a locked and pinned core.
func (c *Core) setEPP(regs Registers, percent int) error {
	raw, err := regs.Read(MSRRequest)
	if err != nil {
		return err
	}

	req := Request(raw).Set(FieldEPP, uint64(PercentToRaw(percent)))
	if err := regs.Write(MSRRequest, uint64(req)); err != nil {
		return err
	}
	c.request = req

	log.Debug("CPU #%d: EPP set to %d%% (raw %d)", c.cpu, percent, req.EPP())

	return nil
}
