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

// Package cpuid queries processor identification and feature leaves.
package cpuid

import (
	kcpuid "github.com/klauspost/cpuid/v2"
)

// VendorIntel is the vendor string of Intel processors.
const VendorIntel = "GenuineIntel"

// Query executes CPUID queries.
type Query interface {
	// MaxLeaf returns the highest supported basic leaf.
	MaxLeaf() uint32
	// Vendor returns the processor vendor string.
	Vendor() string
	// Leaf returns EAX, EBX, ECX and EDX for the given leaf and subleaf.
	Leaf(eax, ecx uint32) (a, b, c, d uint32)
}

// Info is a summary of the processor identity.
type Info struct {
	Vendor  string `json:"vendor"`
	Brand   string `json:"brand"`
	Family  int    `json:"family"`
	Model   int    `json:"model"`
	MaxLeaf uint32 `json:"maxLeaf"`
}

// native executes CPUID on the current processor.
type native struct{}

// Native returns a Query executing CPUID on the processor we run on.
func Native() Query {
	return native{}
}

func (native) MaxLeaf() uint32 {
	a, _, _, _ := cpuid(0, 0)
	return a
}

func (native) Vendor() string {
	return kcpuid.CPU.VendorString
}

func (native) Leaf(eax, ecx uint32) (a, b, c, d uint32) {
	return cpuid(eax, ecx)
}

// Describe returns a summary of the processor identity.
func Describe(q Query) Info {
	info := Info{
		Vendor:  q.Vendor(),
		MaxLeaf: q.MaxLeaf(),
	}
	if _, ok := q.(native); ok {
		info.Brand = kcpuid.CPU.BrandName
		info.Family = kcpuid.CPU.Family
		info.Model = kcpuid.CPU.Model
	}
	return info
}
