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

//go:build amd64
// +build amd64

package cpuid

import (
	"testing"

	kcpuid "github.com/klauspost/cpuid/v2"
	"github.com/stretchr/testify/require"
)

func vendorFromRegs(b, c, d uint32) string {
	raw := make([]byte, 0, 12)
	for _, r := range []uint32{b, d, c} {
		raw = append(raw, byte(r), byte(r>>8), byte(r>>16), byte(r>>24))
	}
	return string(raw)
}

func TestNativeQuery(t *testing.T) {
	q := Native()

	_, b, c, d := q.Leaf(0, 0)
	require.Equal(t, kcpuid.CPU.VendorString, vendorFromRegs(b, c, d))
	require.Equal(t, kcpuid.CPU.VendorString, q.Vendor())
	require.NotZero(t, q.MaxLeaf())

	info := Describe(q)
	require.Equal(t, q.Vendor(), info.Vendor)
	require.Equal(t, q.MaxLeaf(), info.MaxLeaf)
	require.Equal(t, kcpuid.CPU.BrandName, info.Brand)
}
