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

// configure switches a core from hardware default mode to autonomous
// selection mode. It must be called with the core locked and pinned.
// Steps already taken are not undone on failure: a core that fails after
// enabling HWP is left enabled and marked StatePartial.
func (c *Core) configure(regs Registers) error {
	if err := regs.Write(MSRPMEnable, pmEnable); err != nil {
		return c.fail(StateFailed, err)
	}
	c.state = StateEnabled

	// many registers are not readable until HWP is enabled
	raw, err := regs.Read(MSRRequest)
	if err != nil {
		return c.fail(StatePartial, err)
	}
	c.request = Request(raw)

	caps, err := regs.Read(MSRCapabilities)
	if err != nil {
		return c.fail(StatePartial, err)
	}
	c.levels = DecodeCapabilities(caps)

	req := autonomousRequest(c.request, c.levels)
	if err := regs.Write(MSRRequest, uint64(req)); err != nil {
		return c.fail(StatePartial, hwpError("failed to set up autonomous mode (file a bug): %w", err))
	}
	c.request = req
	c.state = StateConfigured
	c.err = nil

	return nil
}

// autonomousRequest returns a request handing performance selection over to
// the hardware within the full capability range of the core. Fields other
// than desired, activity window, minimum and maximum are preserved.
func autonomousRequest(req Request, levels Levels) Request {
	return req.
		Set(FieldDesired, 0).
		Set(FieldActivityWindow, 0).
		Set(FieldMin, uint64(levels.Lowest)).
		Set(FieldMax, uint64(levels.Highest))
}

// Configure enables HWP on an attached CPU and puts it into autonomous mode.
func (m *Manager) Configure(cpu int) error {
	c, err := m.lookup(cpu)
	if err != nil {
		return err
	}

	c.Lock()
	defer c.Unlock()

	err = m.guard.withCorePinned(cpu, c.configure)
	if err != nil {
		if c.state == StateNew {
			c.fail(StateFailed, err)
		}
		log.Error("CPU #%d: failed to configure HWP (%s): %v", cpu, c.state, err)
		return err
	}

	log.Info("CPU #%d: autonomous HWP configured, performance range %d-%d, EPP %d%%",
		cpu, c.levels.Lowest, c.levels.Highest, RawToPercent(c.request.EPP()))

	return nil
}
