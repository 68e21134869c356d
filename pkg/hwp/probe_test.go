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
	"errors"
	"os"
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestDecodeFeatures(t *testing.T) {
	tcases := []struct {
		bit       uint
		supported bool
		features  Features
	}{
		{bit: 7, supported: true},
		{bit: 8, features: Features{Notifications: true}},
		{bit: 9, features: Features{ActivityWindow: true}},
		{bit: 10, features: Features{PreferenceControl: true}},
		{bit: 11, features: Features{PackageControl: true}},
		{bit: 6},
		{bit: 12},
	}
	for _, tc := range tcases {
		test := tc
		t.Run("bit "+strconv.Itoa(int(test.bit)), func(t *testing.T) {
			supported, features := DecodeFeatures(1 << test.bit)
			require.Equal(t, test.supported, supported)
			if diff := cmp.Diff(test.features, features); diff != "" {
				t.Errorf("unexpected features (-expected +got):\n%s", diff)
			}
		})
	}

	supported, features := DecodeFeatures(0xf80)
	require.True(t, supported)
	require.Equal(t, Features{true, true, true, true}, features)
}

type fakeDrivers string

func (d fakeDrivers) CompetingDriver() string { return string(d) }

func TestDiscover(t *testing.T) {
	tcases := []struct {
		name      string
		options   []DiscoveryOption
		supported bool
		fallback  string
		features  Features
	}{
		{
			name:      "supported",
			options:   []DiscoveryOption{WithCPUID(intelHWP())},
			supported: true,
			features:  Features{true, true, true, true},
		},
		{
			name: "baseline only",
			options: []DiscoveryOption{
				WithCPUID(&fakeQuery{vendor: "GenuineIntel", maxLeaf: 6, eax6: featHWP}),
			},
			supported: true,
		},
		{
			name:     "administratively disabled",
			options:  []DiscoveryOption{WithCPUID(intelHWP()), WithEnabled(false)},
			fallback: DefaultFallback,
		},
		{
			name: "competing instance",
			options: []DiscoveryOption{
				WithCPUID(intelHWP()),
				WithInstanceCheck(func() (int, error) { return os.Getpid() + 1, nil }),
			},
			fallback: "process " + strconv.Itoa(os.Getpid()+1),
		},
		{
			name: "instance check fails",
			options: []DiscoveryOption{
				WithCPUID(intelHWP()),
				WithInstanceCheck(func() (int, error) { return -1, errors.New("garbled pidfile") }),
			},
			fallback: DefaultFallback,
		},
		{
			name: "our own instance",
			options: []DiscoveryOption{
				WithCPUID(intelHWP()),
				WithInstanceCheck(func() (int, error) { return os.Getpid(), nil }),
			},
			supported: true,
			features:  Features{true, true, true, true},
		},
		{
			name:     "competing driver",
			options:  []DiscoveryOption{WithCPUID(intelHWP()), WithDriverProbe(fakeDrivers("intel_pstate"))},
			fallback: "intel_pstate",
		},
		{
			name:     "wrong vendor",
			options:  []DiscoveryOption{WithCPUID(&fakeQuery{vendor: "AuthenticAMD", maxLeaf: 0x10, eax6: 0xf80})},
			fallback: DefaultFallback,
		},
		{
			name:     "leaf too low",
			options:  []DiscoveryOption{WithCPUID(&fakeQuery{vendor: "GenuineIntel", maxLeaf: 5, eax6: 0xf80})},
			fallback: DefaultFallback,
		},
		{
			name:     "no HWP",
			options:  []DiscoveryOption{WithCPUID(&fakeQuery{vendor: "GenuineIntel", maxLeaf: 6, eax6: 0xf00})},
			fallback: DefaultFallback,
		},
	}
	for _, tc := range tcases {
		test := tc
		t.Run(test.name, func(t *testing.T) {
			d := Discover(append([]DiscoveryOption{WithEnabled(true)}, test.options...)...)
			require.Equal(t, test.supported, d.Supported())
			require.Equal(t, test.fallback, d.Fallback())
			require.Equal(t, test.features, d.Features())

			status := d.Status()
			require.Equal(t, test.supported, status.Supported)
			if test.supported {
				require.NoError(t, d.Err())
				require.Empty(t, status.Reason)
				return
			}
			require.True(t, errors.Is(d.Err(), ErrUnsupported), "%v", d.Err())
			require.NotEmpty(t, status.Reason)

			_, err := NewManager(d)
			require.True(t, errors.Is(err, ErrUnsupported))
		})
	}
}

func TestDiscoverCheckOrder(t *testing.T) {
	// a disabled system is not probed any further
	d := Discover(
		WithEnabled(false),
		WithCPUID(&fakeQuery{vendor: "AuthenticAMD"}),
		WithInstanceCheck(func() (int, error) {
			t.Fatalf("instance check after administrative disable")
			return 0, nil
		}),
	)
	require.False(t, d.Supported())
	require.Contains(t, d.Err().Error(), "administratively disabled")

	// competing drivers are reported before processor support
	d = Discover(
		WithEnabled(true),
		WithCPUID(&fakeQuery{vendor: "AuthenticAMD"}),
		WithDriverProbe(fakeDrivers("acpi-cpufreq")),
	)
	require.Contains(t, d.Err().Error(), "acpi-cpufreq")
	require.Equal(t, "acpi-cpufreq", d.Fallback())
}
