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

package sysfs

import (
	"os"
	"path/filepath"
	"testing"

	idset "github.com/intel/goresctrl/pkg/utils"
	"github.com/stretchr/testify/require"
)

// mockFS creates a mock file tree with the given file content under a temporary directory.
func mockFS(t *testing.T, files map[string]string) string {
	root := t.TempDir()
	for path, content := range files {
		path = filepath.Join(root, path)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content+"\n"), 0644))
	}
	return root
}

const cpuinfo = `processor	: 0
vendor_id	: GenuineIntel
cpu MHz		: 2400.000

processor	: 1
vendor_id	: GenuineIntel
cpu MHz		: 3199.998
`

func TestDiscoverSystem(t *testing.T) {
	root := mockFS(t, map[string]string{
		"sys/devices/system/cpu/present":                       "0-3",
		"sys/devices/system/cpu/online":                        "0,2-3",
		"sys/devices/system/cpu/cpu0/topology/core_id":         "0",
		"sys/devices/system/cpu/cpu1/online":                   "0",
		"sys/devices/system/cpu/cpu2/online":                   "1",
		"sys/devices/system/cpu/cpu3/online":                   "1",
		"sys/devices/system/cpu/cpu2/cpufreq/scaling_cur_freq": "1800000",
	})

	sys, err := DiscoverSystem(WithSysfsRoot(filepath.Join(root, "sys")))
	require.NoError(t, err)

	require.Equal(t, []idset.ID{0, 1, 2, 3}, sys.CPUSet().SortedMembers())
	require.ElementsMatch(t, []idset.ID{0, 2, 3}, sys.OnlineCPUs().SortedMembers())
	require.True(t, sys.CPU(0).Online(), "CPU without online entry")
	require.False(t, sys.CPU(1).Online())
	require.True(t, sys.CPU(2).Online())
	require.Nil(t, sys.CPU(4))
	require.Equal(t, "", sys.CompetingDriver())

	mhz, err := sys.ClockRate(2)
	require.NoError(t, err)
	require.Equal(t, uint64(1800), mhz)

	_, err = sys.ClockRate(7)
	require.Error(t, err)
}

func TestDiscoverSystemWithoutPresentList(t *testing.T) {
	root := mockFS(t, map[string]string{
		"devices/system/cpu/cpu0/online":  "1",
		"devices/system/cpu/cpu3/online":  "0",
		"devices/system/cpu/cpu12/online": "1",
		"devices/system/cpu/cpufreq/x":    "",
	})

	sys, err := DiscoverSystem(WithSysfsRoot(root))
	require.NoError(t, err)
	require.Equal(t, []idset.ID{0, 3, 12}, sys.CPUSet().SortedMembers())
	// no online list, per-CPU online entries decide
	require.Equal(t, []idset.ID{0, 12}, sys.OnlineCPUs().SortedMembers())

	_, err = DiscoverSystem(WithSysfsRoot(t.TempDir()))
	require.Error(t, err)
}

func TestCompetingDriver(t *testing.T) {
	tcases := []struct {
		name     string
		files    map[string]string
		expected string
	}{
		{
			name: "no driver",
		},
		{
			name: "intel_pstate active",
			files: map[string]string{
				"devices/system/cpu/intel_pstate/status":         "active",
				"devices/system/cpu/cpu0/cpufreq/scaling_driver": "intel_pstate",
			},
			expected: "intel_pstate",
		},
		{
			name: "intel_pstate passive",
			files: map[string]string{
				"devices/system/cpu/intel_pstate/status": "passive",
			},
			expected: "intel_cpufreq",
		},
		{
			name: "intel_pstate in an unknown mode",
			files: map[string]string{
				"devices/system/cpu/intel_pstate/status": "turbo",
			},
			expected: "intel_pstate (turbo)",
		},
		{
			name: "intel_pstate passive with intel_cpufreq bound",
			files: map[string]string{
				"devices/system/cpu/intel_pstate/status":         "passive",
				"devices/system/cpu/cpu0/cpufreq/scaling_driver": "intel_cpufreq",
			},
			expected: "intel_cpufreq",
		},
		{
			name: "intel_pstate off",
			files: map[string]string{
				"devices/system/cpu/intel_pstate/status": "off",
			},
		},
		{
			name: "acpi-cpufreq",
			files: map[string]string{
				"devices/system/cpu/cpu0/cpufreq/scaling_driver": "acpi-cpufreq",
				"devices/system/cpu/cpu1/cpufreq/scaling_driver": "acpi-cpufreq",
			},
			expected: "acpi-cpufreq",
		},
	}
	for _, tc := range tcases {
		test := tc
		t.Run(test.name, func(t *testing.T) {
			files := map[string]string{
				"devices/system/cpu/present": "0-1",
			}
			for path, content := range test.files {
				files[path] = content
			}
			sys, err := DiscoverSystem(WithSysfsRoot(mockFS(t, files)))
			require.NoError(t, err)
			require.Equal(t, test.expected, sys.CompetingDriver())
		})
	}
}

func TestClockRateFromCPUInfo(t *testing.T) {
	root := mockFS(t, map[string]string{
		"sys/devices/system/cpu/present": "0-2",
		"proc/cpuinfo":                   cpuinfo,
	})

	sys, err := DiscoverSystem(
		WithSysfsRoot(filepath.Join(root, "sys")),
		WithProcfsRoot(filepath.Join(root, "proc")),
	)
	require.NoError(t, err)

	mhz, err := sys.ClockRate(1)
	require.NoError(t, err)
	require.Equal(t, uint64(3199), mhz)

	_, err = sys.ClockRate(2)
	require.Error(t, err, "CPU #2 missing from cpuinfo")
}

func TestParseCPUList(t *testing.T) {
	tcases := []struct {
		list     string
		expected []idset.ID
		invalid  bool
	}{
		{list: "", expected: []idset.ID{}},
		{list: "0", expected: []idset.ID{0}},
		{list: "0-3", expected: []idset.ID{0, 1, 2, 3}},
		{list: "0,2-3,8", expected: []idset.ID{0, 2, 3, 8}},
		{list: " 1 , 5 ", expected: []idset.ID{1, 5}},
		{list: "3-1", invalid: true},
		{list: "a-b", invalid: true},
		{list: "1,x", invalid: true},
	}
	for _, tc := range tcases {
		test := tc
		t.Run("list "+test.list, func(t *testing.T) {
			ids, err := ParseCPUList(test.list)
			if test.invalid {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.ElementsMatch(t, test.expected, ids.SortedMembers())
		})
	}
}

func TestGetEnumeratedID(t *testing.T) {
	require.Equal(t, idset.ID(0), getEnumeratedID("cpu0"))
	require.Equal(t, idset.ID(127), getEnumeratedID("cpu127"))
	require.Equal(t, Unknown, getEnumeratedID("cpufreq"))
	require.Equal(t, Unknown, getEnumeratedID("cpuidle"))
}
