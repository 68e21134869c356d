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

package log

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// logging is the runtime state shared by all loggers.
type logging struct {
	sync.RWMutex
	level    Level                // lowest severity passed through
	forced   bool                 // forced full debugging (toggled by signal)
	active   Backend              // active backend
	backends map[string]BackendFn // registered backends
	loggers  map[string]*logger   // loggers by source name
	align    int                  // longest enabled source name
}

// our runtime logging state
var log = &logging{
	level:    DefaultLevel,
	backends: make(map[string]BackendFn),
	loggers:  make(map[string]*logger),
}

// NewLogger creates a logger for the given source, or returns the existing one.
func NewLogger(source string) Logger {
	return log.get(source)
}

// Get is an alias for NewLogger.
func Get(source string) Logger {
	return log.get(source)
}

// SetLevel sets the lowest severity level passed through by all loggers.
func SetLevel(level Level) {
	log.Lock()
	defer log.Unlock()
	log.setLevel(level)
}

// SetBackend activates the named backend.
func SetBackend(name string) error {
	log.Lock()
	defer log.Unlock()
	return log.setBackend(name)
}

// Flush flushes any buffered messages of the active backend.
func Flush() {
	log.backend().Flush()
}

// Sync waits until all pending messages of the active backend are emitted.
func Sync() {
	log.backend().Sync()
}

// Sources returns the names of all known log sources.
func Sources() []string {
	log.RLock()
	defer log.RUnlock()

	names := make([]string, 0, len(log.loggers))
	for name := range log.loggers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// get looks up or creates the logger for source.
func (log *logging) get(source string) *logger {
	source = strings.Trim(source, "[] ")

	log.Lock()
	defer log.Unlock()

	if l, ok := log.loggers[source]; ok {
		return l
	}

	l := &logger{source: source}
	l.setState(opt.Enable.isEnabled(source, true), opt.Debug.isEnabled(source, false))
	log.loggers[source] = l
	log.realign()

	return l
}

// backend returns the active backend, creating the default one if necessary.
func (log *logging) backend() Backend {
	log.RLock()
	b := log.active
	log.RUnlock()

	if b != nil {
		return b
	}

	log.Lock()
	defer log.Unlock()
	if log.active == nil {
		log.active = createFmtBackend()
		log.active.SetSourceAlignment(log.align)
	}
	return log.active
}

func (log *logging) setLevel(level Level) {
	log.level = level
}

func (log *logging) setBackend(name string) error {
	fn, ok := log.backends[name]
	if !ok {
		return loggerError("unknown logger backend %q", name)
	}

	if log.active != nil {
		if log.active.Name() == name {
			return nil
		}
		log.active.Stop()
	}

	log.active = fn()
	log.active.SetSourceAlignment(log.align)

	return nil
}

// update reapplies the given source maps to all loggers.
func (log *logging) update(enable, debug srcmap) {
	for source, l := range log.loggers {
		enabled, debugging := l.isLogging(), l.isDebugging()
		if enable != nil {
			enabled = enable.isEnabled(source, true)
		}
		if debug != nil {
			debugging = debug.isEnabled(source, false)
		}
		l.setState(enabled, debugging)
	}
	log.realign()
}

// realign recalculates the source alignment for the active backend.
func (log *logging) realign() {
	log.align = 0
	for source, l := range log.loggers {
		if (l.isLogging() || l.isDebugging()) && len(source) > log.align {
			log.align = len(source)
		}
	}
	if log.active != nil {
		log.active.SetSourceAlignment(log.align)
	}
}

// loggerError returns a formatted package-specific error.
func loggerError(format string, args ...interface{}) error {
	return fmt.Errorf("logger: "+format, args...)
}
