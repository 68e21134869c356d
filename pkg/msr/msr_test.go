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

package msr

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// a regular file stands in for the device, offsets are register numbers
func mockDevice(t *testing.T, cpu int) string {
	dir := filepath.Join(t.TempDir(), "cpu")
	require.NoError(t, os.MkdirAll(dir, 0755))
	path := filepath.Join(dir, "msr%d")
	require.NoError(t, os.WriteFile(fmt.Sprintf(path, cpu), nil, 0644))
	return path
}

func TestReadWrite(t *testing.T) {
	pathFmt := mockDevice(t, 1)

	require.True(t, Available(1, pathFmt))
	require.False(t, Available(2, pathFmt))

	d, err := Open(1, pathFmt)
	require.NoError(t, err)

	// a regular file is byte addressed, keep the 8-byte values apart
	require.NoError(t, d.Write(0x778, 0x8000ff00))
	require.NoError(t, d.Write(0x770, 1))

	value, err := d.Read(0x778)
	require.NoError(t, err)
	require.Equal(t, uint64(0x8000ff00), value)

	value, err = d.Read(0x770)
	require.NoError(t, err)
	require.Equal(t, uint64(1), value)

	raw, err := os.ReadFile(filepath.Join(filepath.Dir(pathFmt), "msr1"))
	require.NoError(t, err)
	require.Equal(t, uint64(0x8000ff00), binary.LittleEndian.Uint64(raw[0x778:0x778+8]))
	require.Equal(t, uint64(1), binary.LittleEndian.Uint64(raw[0x770:0x770+8]))

	// beyond the end of the mock file
	_, err = d.Read(0x10000)
	require.Error(t, err)
	require.Contains(t, err.Error(), "CPU #1")

	require.NoError(t, d.Close())
	require.NoError(t, d.Close())
}

func TestOpenMissingDevice(t *testing.T) {
	_, err := Open(3, filepath.Join(t.TempDir(), "msr%d"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "msr kernel module")
}
