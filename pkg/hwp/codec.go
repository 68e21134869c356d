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
)

// Model-specific registers of the HWP programming interface.
const (
	// MSRPMEnable enables HWP for the package (IA32_PM_ENABLE).
	MSRPMEnable uint32 = 0x770
	// MSRCapabilities holds the performance range of a core (IA32_HWP_CAPABILITIES).
	MSRCapabilities uint32 = 0x771
	// MSRRequestPkg is the package-wide request (IA32_HWP_REQUEST_PKG).
	MSRRequestPkg uint32 = 0x772
	// MSRRequest is the per-core request (IA32_HWP_REQUEST).
	MSRRequest uint32 = 0x774
)

// registerNames are human-readable names for error messages.
var registerNames = map[uint32]string{
	MSRPMEnable:     "IA32_PM_ENABLE",
	MSRCapabilities: "IA32_HWP_CAPABILITIES",
	MSRRequestPkg:   "IA32_HWP_REQUEST_PKG",
	MSRRequest:      "IA32_HWP_REQUEST",
}

// RegisterName returns the architectural name of a register.
func RegisterName(reg uint32) string {
	if name, ok := registerNames[reg]; ok {
		return name
	}
	return fmt.Sprintf("MSR %#x", reg)
}

const (
	// pmEnable is the value written to IA32_PM_ENABLE to turn HWP on.
	pmEnable uint64 = 1

	// IA32_HWP_CAPABILITIES fields
	capHighestShift    = 0
	capGuaranteedShift = 8
	capEfficientShift  = 16
	capLowestShift     = 24

	// IA32_HWP_REQUEST{,_PKG} fields
	reqMinShift     = 0
	reqMaxShift     = 8
	reqDesiredShift = 16
	reqEPPShift     = 24
	reqWindowShift  = 32

	reqMinMask     uint64 = 0xff << reqMinShift
	reqMaxMask     uint64 = 0xff << reqMaxShift
	reqDesiredMask uint64 = 0xff << reqDesiredShift
	reqEPPMask     uint64 = 0xff << reqEPPShift
	reqWindowMask  uint64 = 0x3ff << reqWindowShift

	reqPackageControl uint64 = 1 << 42

	// Per-field valid bits, in the architectural IA32_HWP_REQUEST layout
	// (Intel SDM, FreeBSD specialreg.h): minimum is the highest bit and
	// activity window the lowest.
	reqMinValid     uint64 = 1 << 63
	reqMaxValid     uint64 = 1 << 62
	reqDesiredValid uint64 = 1 << 61
	reqEPPValid     uint64 = 1 << 60
	reqWindowValid  uint64 = 1 << 59
)

// Levels is the performance range of a core, as reported by IA32_HWP_CAPABILITIES.
// The ordering lowest <= efficient <= guaranteed <= highest is not enforced.
type Levels struct {
	Highest    uint8 `json:"highest"`
	Guaranteed uint8 `json:"guaranteed"`
	Efficient  uint8 `json:"efficient"`
	Lowest     uint8 `json:"lowest"`
}

// DecodeCapabilities extracts the performance levels from a raw IA32_HWP_CAPABILITIES value.
func DecodeCapabilities(raw uint64) Levels {
	return Levels{
		Highest:    uint8(raw >> capHighestShift),
		Guaranteed: uint8(raw >> capGuaranteedShift),
		Efficient:  uint8(raw >> capEfficientShift),
		Lowest:     uint8(raw >> capLowestShift),
	}
}

// Field is a tunable field of an HWP request.
type Field int

const (
	// FieldEPP is the energy/performance preference.
	FieldEPP Field = iota
	// FieldDesired is the desired performance, 0 for autonomous selection.
	FieldDesired
	// FieldMax is the maximum performance.
	FieldMax
	// FieldMin is the minimum performance.
	FieldMin
	// FieldActivityWindow is the activity window, 0 for dynamic selection.
	FieldActivityWindow
)

// field layout: mask, shift and valid bit
type fieldLayout struct {
	name  string
	mask  uint64
	shift uint
	valid uint64
}

var fields = map[Field]fieldLayout{
	FieldEPP:            {"epp", reqEPPMask, reqEPPShift, reqEPPValid},
	FieldDesired:        {"desired", reqDesiredMask, reqDesiredShift, reqDesiredValid},
	FieldMax:            {"maximum", reqMaxMask, reqMaxShift, reqMaxValid},
	FieldMin:            {"minimum", reqMinMask, reqMinShift, reqMinValid},
	FieldActivityWindow: {"window", reqWindowMask, reqWindowShift, reqWindowValid},
}

// RequestFields lists the performance fields of a request in reporting order.
var RequestFields = []Field{FieldEPP, FieldDesired, FieldMax, FieldMin}

// String returns the name of the field.
func (f Field) String() string {
	if l, ok := fields[f]; ok {
		return l.name
	}
	return fmt.Sprintf("<field %d>", int(f))
}

// Request is a raw IA32_HWP_REQUEST or IA32_HWP_REQUEST_PKG value.
type Request uint64

// Get returns the value of the given field.
func (r Request) Get(f Field) uint64 {
	l := fields[f]
	return (uint64(r) & l.mask) >> l.shift
}

// Set returns the request with the given field replaced.
func (r Request) Set(f Field, value uint64) Request {
	l := fields[f]
	return Request(MergeField(uint64(r), l.mask, l.shift, value))
}

// Valid checks if the per-core valid bit of the given field is set.
func (r Request) Valid(f Field) bool {
	return uint64(r)&fields[f].valid != 0
}

// Min returns the minimum performance field.
func (r Request) Min() uint8 {
	return uint8(r.Get(FieldMin))
}

// Max returns the maximum performance field.
func (r Request) Max() uint8 {
	return uint8(r.Get(FieldMax))
}

// Desired returns the desired performance field.
func (r Request) Desired() uint8 {
	return uint8(r.Get(FieldDesired))
}

// EPP returns the raw energy/performance preference field.
func (r Request) EPP() uint8 {
	return uint8(r.Get(FieldEPP))
}

// ActivityWindow returns the activity window field.
func (r Request) ActivityWindow() uint16 {
	return uint16(r.Get(FieldActivityWindow))
}

// PackageControl checks if the core defers to IA32_HWP_REQUEST_PKG.
func (r Request) PackageControl() bool {
	return uint64(r)&reqPackageControl != 0
}

// String returns the request in hex.
func (r Request) String() string {
	return fmt.Sprintf("%#016x", uint64(r))
}

// MergeField clears mask in reg and ORs in value shifted into place.
// Bits of the shifted value outside mask are dropped.
func MergeField(reg, mask uint64, shift uint, value uint64) uint64 {
	return (reg &^ mask) | ((value << shift) & mask)
}

// PercentToRaw converts a percentage in [0, 100] to the raw [0, 255] scale.
// It panics if p is out of range. The conversion truncates.
func PercentToRaw(p int) uint8 {
	if p < 0 || p > 100 {
		panic(fmt.Sprintf("hwp: percentage %d out of range [0, 100]", p))
	}
	return uint8(0xff * p / 100)
}

// RawToPercent converts a raw [0, 255] value to a percentage. The conversion truncates.
func RawToPercent(r uint8) int {
	return int(r) * 100 / 0xff
}

// clampPercent clamps p into [0, 100].
func clampPercent(p int) int {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}
