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
	"github.com/intel/hwp-manager/pkg/affinity"
	"github.com/intel/hwp-manager/pkg/msr"
)

// Registers gives access to the model-specific registers of a core.
type Registers interface {
	// Read reads the given register.
	Read(reg uint32) (uint64, error)
	// Write writes the given register.
	Write(reg uint32, value uint64) error
}

// RegisterFile is an open set of registers of a single CPU.
type RegisterFile interface {
	Registers
	Close() error
}

// OpenFn opens the registers of the given CPU.
type OpenFn func(cpu int) (RegisterFile, error)

// msrOpener opens registers using the msr driver with the given device path format.
func msrOpener(pathFmt string) OpenFn {
	return func(cpu int) (RegisterFile, error) {
		dev, err := msr.Open(cpu, pathFmt)
		if err != nil {
			return nil, err
		}
		return dev, nil
	}
}

// guard runs register accesses with the caller pinned to the target core.
type guard struct {
	pinner affinity.Pinner
	open   OpenFn
}

// coreRegisters annotates register access errors with the core and register.
type coreRegisters struct {
	cpu int
	f   RegisterFile
}

func (r *coreRegisters) Read(reg uint32) (uint64, error) {
	value, err := r.f.Read(reg)
	if err != nil {
		return 0, registerError(r.cpu, reg, "read", err)
	}
	return value, nil
}

func (r *coreRegisters) Write(reg uint32, value uint64) error {
	if err := r.f.Write(reg, value); err != nil {
		return registerError(r.cpu, reg, "write", err)
	}
	return nil
}

// withCorePinned pins the caller to cpu, runs body with the registers of cpu
// and restores the original affinity on every exit path, including a panic
// in body. A failure to restore affinity is returned if body succeeded.
func (g *guard) withCorePinned(cpu int, body func(Registers) error) (retErr error) {
	release, err := g.pinner.Pin(cpu)
	if err != nil {
		return hwpError("CPU #%d: failed to pin: %w", cpu, err)
	}
	defer func() {
		if err := release(); err != nil && retErr == nil {
			retErr = hwpError("CPU #%d: failed to restore affinity: %w", cpu, err)
		}
	}()

	f, err := g.open(cpu)
	if err != nil {
		return hwpError("CPU #%d: failed to open registers: %w", cpu, err)
	}
	defer f.Close()

	return body(&coreRegisters{cpu: cpu, f: f})
}
