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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

type testOptions struct {
	Enabled bool   `json:"enabled"`
	Period  int    `json:"period,omitempty"`
	Name    string `json:"name,omitempty"`
	CPUs    []int  `json:"cpus,omitempty"`
}

func defaultTestOptions() interface{} {
	return &testOptions{
		Enabled: true,
		Period:  10,
		Name:    "default",
	}
}

type notification struct {
	event  Event
	source Source
}

func resetRegistry() {
	reg = &registry{
		modules: make(map[string]*Module),
		source:  Defaults,
	}
}

func TestRegisterAppliesDefaults(t *testing.T) {
	resetRegistry()

	opt := &testOptions{}
	m := Register("test", "test module", opt, defaultTestOptions)

	require.Equal(t, "test", m.Name())
	require.Equal(t, []string{"test"}, Modules())
	require.Equal(t, m, GetModule("test"))
	require.Nil(t, GetModule("missing"))
	require.Empty(t, cmp.Diff(defaultTestOptions(), opt))
}

func TestInvalidRegistration(t *testing.T) {
	resetRegistry()

	i := 0
	tcases := []struct {
		name     string
		ptr      interface{}
		defaults GetConfigFn
	}{
		{
			name:     "non-pointer",
			ptr:      testOptions{},
			defaults: defaultTestOptions,
		},
		{
			name:     "pointer to non-struct",
			ptr:      &i,
			defaults: func() interface{} { return &i },
		},
		{
			name:     "mismatching defaults",
			ptr:      &testOptions{},
			defaults: func() interface{} { return &struct{}{} },
		},
		{
			name: "nil defaults",
			ptr:  &testOptions{},
		},
	}
	for _, tc := range tcases {
		test := tc
		t.Run(test.name, func(t *testing.T) {
			require.Panics(t, func() {
				Register(test.name, "", test.ptr, test.defaults)
			})
		})
	}

	Register("dup", "", &testOptions{}, defaultTestOptions)
	require.Panics(t, func() {
		Register("dup", "", &testOptions{}, defaultTestOptions)
	})
}

func TestSetConfig(t *testing.T) {
	resetRegistry()

	var (
		opt    = &testOptions{}
		other  = &testOptions{}
		events []notification
	)

	Register("test", "", opt, defaultTestOptions,
		WithNotify(func(e Event, s Source) error {
			events = append(events, notification{e, s})
			return nil
		}))
	Register("other", "", other, defaultTestOptions)

	require.NoError(t, SetConfigFromYAML([]byte(`
test:
  enabled: false
  period: 5
  cpus: [0, 2, 4]
other.name: dotted
`), External))

	require.Empty(t, cmp.Diff(&testOptions{Enabled: false, Period: 5, Name: "default", CPUs: []int{0, 2, 4}}, opt))
	require.Empty(t, cmp.Diff(&testOptions{Enabled: true, Period: 10, Name: "dotted"}, other))
	require.Equal(t, []notification{{UpdateEvent, External}}, events)
	require.Equal(t, External, LastSource())

	// modules missing from the new configuration get reset
	require.NoError(t, SetConfigFromYAML([]byte("other:\n  period: 1\n"), External))
	require.Empty(t, cmp.Diff(defaultTestOptions(), opt))
	require.Equal(t, 1, other.Period)

	data, err := GetConfig()
	require.NoError(t, err)
	require.Contains(t, data, "test")
	require.Contains(t, data, "other")
}

func TestSetConfigRejected(t *testing.T) {
	resetRegistry()

	var (
		opt    = &testOptions{}
		reject = false
		events []notification
	)

	Register("test", "", opt, defaultTestOptions,
		WithNotify(func(e Event, s Source) error {
			events = append(events, notification{e, s})
			if reject && e == UpdateEvent {
				return configError("rejected")
			}
			return nil
		}))

	require.NoError(t, SetConfigFromYAML([]byte("test:\n  period: 3\n"), External))
	require.Equal(t, 3, opt.Period)

	tcases := []struct {
		name   string
		yaml   string
		reject bool
		events []notification
	}{
		{
			name: "unknown module",
			yaml: "nonexistent:\n  period: 1\n",
		},
		{
			name: "unknown field",
			yaml: "test:\n  bogus: 1\n",
			events: []notification{
				{RevertEvent, ConfigBackup},
			},
		},
		{
			name: "invalid type",
			yaml: "test:\n  period: many\n",
			events: []notification{
				{RevertEvent, ConfigBackup},
			},
		},
		{
			name:   "rejected by notifier",
			yaml:   "test:\n  period: 7\n",
			reject: true,
			events: []notification{
				{UpdateEvent, External},
				{RevertEvent, ConfigBackup},
			},
		},
	}
	for _, tc := range tcases {
		test := tc
		t.Run(test.name, func(t *testing.T) {
			events = nil
			reject = test.reject
			require.Error(t, SetConfigFromYAML([]byte(test.yaml), External))
			require.Equal(t, 3, opt.Period, "configuration should be restored")
			require.Equal(t, test.events, events)
		})
	}
}

func TestSetConfigFromFile(t *testing.T) {
	resetRegistry()

	opt := &testOptions{}
	Register("test", "", opt, defaultTestOptions)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("test:\n  name: from-file\n"), 0644))
	require.NoError(t, SetConfigFromFile(path))
	require.Equal(t, "from-file", opt.Name)
	require.Equal(t, ConfigFile, LastSource())

	require.Error(t, SetConfigFromFile(filepath.Join(t.TempDir(), "missing.yaml")))
}

func TestDescribe(t *testing.T) {
	resetRegistry()

	Register("test", "First line.\nSecond line.", &testOptions{}, defaultTestOptions)
	Register("undocumented", "", &testOptions{}, defaultTestOptions)

	help := Describe()
	require.Contains(t, help, "- module test:\n    First line.\n    Second line.\n")
	require.Contains(t, help, "- module undocumented:\n    No documentation")
	require.Contains(t, Describe("missing"), "unknown module missing")
}

func TestWatchFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("test: {}\n"), 0644))

	reloads := make(chan string, 16)
	w, err := watchFile(path, func(p string) error {
		reloads <- p
		return nil
	})
	require.NoError(t, err)
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "unrelated"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(path, []byte("test:\n  period: 1\n"), 0644))

	select {
	case p := <-reloads:
		require.Equal(t, path, p)
	case <-time.After(5 * time.Second):
		t.Fatalf("no reload after configuration file update")
	}

	w.Stop()
	w.Stop()
}
