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
	"fmt"
	"reflect"
	"sort"
	"sync"

	"sigs.k8s.io/yaml"
)

// Source describes where configuration data has been acquired from.
type Source string

const (
	// Defaults is the built-in default configuration.
	Defaults Source = "default configuration"
	// ConfigFile is a YAML/JSON file configuration source.
	ConfigFile Source = "configuration file"
	// External is an external configuration source.
	External Source = "external configuration"
	// ConfigBackup is a backup of a previous configuration.
	ConfigBackup Source = "configuration backup"
)

// Event describes the reason why a notification callback has been invoked.
type Event string

const (
	// UpdateEvent is the event type for a configuration update.
	UpdateEvent Event = "updated"
	// RevertEvent is the event type for a configuration rollback.
	RevertEvent Event = "reverted"
)

// NotifyFn is the type of a configuration change notification functions.
type NotifyFn func(Event, Source) error

// GetConfigFn returns a pointer to a freshly allocated default configuration.
type GetConfigFn func() interface{}

// Module is a single named piece of runtime configuration.
type Module struct {
	name        string
	help        string
	ptr         interface{}
	getDefaults GetConfigFn
	notify      []NotifyFn
}

// registry of all configuration modules.
type registry struct {
	sync.Mutex
	modules map[string]*Module
	data    Data
	source  Source
}

var reg = &registry{
	modules: make(map[string]*Module),
	source:  Defaults,
}

// Register registers a configuration module.
//
// ptr must be a pointer to a struct which receives the module configuration
// and getDefaults must return a pointer to a struct of the same type. The
// module configuration is reset to its defaults upon registration.
func Register(name, help string, ptr interface{}, getDefaults GetConfigFn, opts ...Option) *Module {
	reg.Lock()
	defer reg.Unlock()

	if _, ok := reg.modules[name]; ok {
		log.Panicf("module %q already registered", name)
	}
	if err := checkPointers(ptr, getDefaults); err != nil {
		log.Panicf("module %q: %v", name, err)
	}

	m := &Module{
		name:        name,
		help:        help,
		ptr:         ptr,
		getDefaults: getDefaults,
	}
	for _, o := range opts {
		o.apply(m)
	}

	if err := m.reset(); err != nil {
		log.Panicf("module %q: %v", name, err)
	}
	reg.modules[name] = m

	return m
}

// GetModule returns the named configuration module, or nil if no such module exists.
func GetModule(name string) *Module {
	reg.Lock()
	defer reg.Unlock()
	return reg.modules[name]
}

// Modules returns the names of all registered modules.
func Modules() []string {
	reg.Lock()
	defer reg.Unlock()
	return reg.names()
}

// SetConfig updates the configuration of all modules from the given data.
//
// Modules without data are reset to their defaults. If any module fails
// to accept its new configuration, the previous one is restored and all
// modules are notified about the reversal.
func SetConfig(data Data, source Source) error {
	reg.Lock()
	defer reg.Unlock()
	return reg.apply(data, source)
}

// SetConfigFromFile updates the configuration from the given YAML file.
func SetConfigFromFile(path string) error {
	data, err := DataFromFile(path)
	if err != nil {
		return err
	}
	return SetConfig(data, ConfigFile)
}

// SetConfigFromYAML updates the configuration from the given YAML data.
func SetConfigFromYAML(raw []byte, source Source) error {
	data := make(Data)
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return configError("failed to parse YAML data: %v", err)
	}
	return SetConfig(data, source)
}

// GetConfig returns the effective configuration of all modules.
func GetConfig() (Data, error) {
	reg.Lock()
	defer reg.Unlock()

	data := make(Data)
	for name, m := range reg.modules {
		obj, err := DataFromObject(m.ptr)
		if err != nil {
			return nil, err
		}
		data[name] = obj
	}
	return data, nil
}

// LastSource returns the source of the last successfully applied configuration.
func LastSource() Source {
	reg.Lock()
	defer reg.Unlock()
	return reg.source
}

// Describe returns help about the given or all modules.
func Describe(names ...string) string {
	reg.Lock()
	defer reg.Unlock()

	if len(names) == 0 {
		names = reg.names()
	}

	str := ""
	for _, name := range names {
		m, ok := reg.modules[name]
		if !ok {
			str += fmt.Sprintf("- unknown module %s\n\n", name)
			continue
		}
		str += m.describe() + "\n"
	}
	return str
}

// Name returns the name of the module.
func (m *Module) Name() string {
	return m.name
}

// WatchUpdates adds a notifier function to the module.
func (m *Module) WatchUpdates(fn NotifyFn) {
	reg.Lock()
	defer reg.Unlock()
	WithNotify(fn).apply(m)
}

// Notify notifies configuration changes through all registered module notifiers.
func (m *Module) Notify(event Event, source Source) error {
	for _, fn := range m.notify {
		if err := fn(event, source); err != nil {
			return configError("module %s: configuration rejected: %v", m.name, err)
		}
	}
	return nil
}

// reset resets the module configuration to its defaults.
func (m *Module) reset() error {
	defaults := m.getDefaults()
	if err := checkPointers(m.ptr, func() interface{} { return defaults }); err != nil {
		return err
	}
	reflect.ValueOf(m.ptr).Elem().Set(reflect.ValueOf(defaults).Elem())
	return nil
}

// configure resets the module then overlays it with the given data.
func (m *Module) configure(data Data) error {
	if err := m.reset(); err != nil {
		return err
	}
	if data == nil {
		return nil
	}

	raw, err := yaml.Marshal(data)
	if err != nil {
		return configError("module %s: failed to marshal data: %v", m.name, err)
	}
	if err := yaml.UnmarshalStrict(raw, m.ptr); err != nil {
		return configError("module %s: invalid configuration: %v", m.name, err)
	}
	return nil
}

// snapshot returns the current module configuration as data.
func (m *Module) snapshot() (Data, error) {
	return DataFromObject(m.ptr)
}

func (m *Module) describe() string {
	str := fmt.Sprintf("- module %s:\n", m.name)
	if m.help == "" {
		return str + fmt.Sprintf("    No documentation, configuration type %T.\n", m.ptr)
	}
	for _, line := range splitLines(m.help) {
		str += "    " + line + "\n"
	}
	return str
}

// apply applies configuration data to all modules, reverting on failure.
func (r *registry) apply(data Data, source Source) error {
	for key := range data.copy() {
		if _, ok := r.modules[moduleOf(key)]; !ok {
			return configError("configuration for unknown module %q", key)
		}
	}

	backup := make(map[string]Data)
	for name, m := range r.modules {
		snap, err := m.snapshot()
		if err != nil {
			return err
		}
		backup[name] = snap
	}

	names := r.names()
	applied := data.copy()
	data = data.copy()

	var err error
	for _, name := range names {
		var d Data
		if d, err = data.pick(name, true); err != nil {
			break
		}
		if err = r.modules[name].configure(d); err != nil {
			break
		}
	}

	if err == nil {
		for _, name := range names {
			if err = r.modules[name].Notify(UpdateEvent, source); err != nil {
				break
			}
		}
		if err == nil {
			r.data = applied
			r.source = source
			log.Infof("configuration from %s applied", source)
			return nil
		}
	}

	log.Errorf("failed to apply configuration from %s: %v", source, err)
	r.revert(backup)

	return err
}

// revert restores a configuration backup and notifies modules about it.
func (r *registry) revert(backup map[string]Data) {
	for _, name := range r.names() {
		m := r.modules[name]
		if err := m.configure(backup[name]); err != nil {
			log.Errorf("failed to restore configuration of module %s: %v", name, err)
		}
	}
	for _, name := range r.names() {
		if err := r.modules[name].Notify(RevertEvent, ConfigBackup); err != nil {
			log.Errorf("%v", err)
		}
	}
}

// names returns the sorted names of all modules.
func (r *registry) names() []string {
	names := make([]string, 0, len(r.modules))
	for name := range r.modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// checkPointers checks that ptr and the defaults are pointers to the same struct type.
func checkPointers(ptr interface{}, getDefaults GetConfigFn) error {
	if getDefaults == nil {
		return configError("nil defaults function")
	}
	pt := reflect.TypeOf(ptr)
	if pt == nil || pt.Kind() != reflect.Ptr || pt.Elem().Kind() != reflect.Struct {
		return configError("configuration must be a pointer to a struct, got %T", ptr)
	}
	if dt := reflect.TypeOf(getDefaults()); dt != pt {
		return configError("defaults type %v does not match configuration type %v", dt, pt)
	}
	return nil
}

// configError returns a formatted package-specific error.
func configError(format string, args ...interface{}) error {
	return fmt.Errorf("config: "+format, args...)
}
