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
	"encoding/json"
	"flag"
	"sort"
	"strings"

	pkgcfg "github.com/intel/hwp-manager/pkg/config"
	"github.com/intel/hwp-manager/pkg/utils"
)

const (
	// DefaultLevel is the default logging severity level.
	DefaultLevel = LevelInfo
	// command-line argument prefix.
	optPrefix = "logger"
	// Flag for enabling/disabling normal non-debug logging for sources.
	optEnable = optPrefix + "-sources"
	// Flag for enabling/disabling debug logging for sources.
	optDebug = optPrefix + "-debug"
	// Flag for selecting logging level.
	optLevel = optPrefix + "-level"
	// Flag for selecting logging backend.
	optLogger = optPrefix
	// configModule is our module name in the runtime configuration.
	configModule = optPrefix
)

// Logger options configurable via the command line or pkg/config.
type options struct {
	// Level is the logging severity/level.
	Level Level `json:"level,omitempty"`
	// Enable is a map for enabling/disabling normal logging for sources.
	Enable srcmap `json:"sources,omitempty"`
	// Debug is a map for enabling/disabling debug logging for sources.
	Debug srcmap `json:"debug,omitempty"`
	// Logger is the name of the logger backend to use.
	Logger backendName `json:"logger,omitempty"`
}

// srcmap tracks logging or debugging settings for sources.
type srcmap map[string]bool

// backendName is a name for a Backend.
type backendName string

// Default configuration given on the command line.
var defaults = &options{
	Logger: FmtBackendName,
	Level:  DefaultLevel,
	Enable: make(srcmap),
	Debug:  make(srcmap),
}

// Runtime configuration, from the configuration file.
var opt = &options{
	Logger: FmtBackendName,
	Level:  DefaultLevel,
	Enable: make(srcmap),
	Debug:  make(srcmap),
}

var levelNames = map[Level]string{
	LevelDebug: "debug",
	LevelInfo:  "info",
	LevelWarn:  "warning",
	LevelError: "error",
	LevelFatal: "fatal",
	LevelPanic: "panic",
}

// parseLevel parses the given level name.
func parseLevel(value string) (Level, error) {
	name := strings.ToLower(value)
	if name == "warn" {
		name = "warning"
	}
	for level, n := range levelNames {
		if n == name {
			return level, nil
		}
	}
	return DefaultLevel, loggerError("invalid logging level %s", value)
}

// Set sets the level from the given name.
func (l *Level) Set(value string) error {
	level, err := parseLevel(value)
	if err != nil {
		return err
	}

	*l = level
	opt.Level = level
	SetLevel(level)

	return nil
}

// String returns the name of the level.
func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return levelNames[LevelInfo]
}

// MarshalJSON is the JSON marshaller for Level.
func (l Level) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

// UnmarshalJSON is the JSON unmarshaller for Level.
func (l *Level) UnmarshalJSON(raw []byte) error {
	var name string
	if err := json.Unmarshal(raw, &name); err != nil {
		return loggerError("invalid logging level %s: %v", string(raw), err)
	}
	level, err := parseLevel(name)
	if err != nil {
		return err
	}
	*l = level
	return nil
}

// Set sets the name of the active Backend.
func (n *backendName) Set(value string) error {
	if err := SetBackend(value); err != nil {
		return err
	}
	*n = backendName(value)
	opt.Logger = *n
	return nil
}

// String returns the name of the active backend.
func (n backendName) String() string {
	return string(n)
}

// Set sets entries of srcmap by parsing the given value.
func (m *srcmap) Set(value string) error {
	log.Lock()
	defer log.Unlock()

	if *m == nil {
		*m = make(srcmap)
	}
	if err := m.parse(value); err != nil {
		return err
	}

	// propagate command-line to runtime defaults, reconfigure loggers
	if m == &defaults.Enable {
		opt.Enable.copy(*m)
		log.update(*m, nil)
	}
	if m == &defaults.Debug {
		opt.Debug.copy(*m)
		log.update(nil, *m)
	}

	return nil
}

// parse parses a comma-separated list of optionally state-prefixed sources.
func (m srcmap) parse(value string) error {
	prev, state, src := "", "", ""
	for _, entry := range strings.Split(value, ",") {
		statesrc := strings.Split(entry, ":")
		switch len(statesrc) {
		case 2:
			state, src = statesrc[0], statesrc[1]
		case 1:
			state, src = "", statesrc[0]
		default:
			return loggerError("invalid state spec '%s' in source map", entry)
		}

		if state != "" {
			prev = state
		} else {
			state = prev
			if state == "" {
				state = "on"
			}
		}
		if src == "all" {
			src = "*"
		}
		if src == "" {
			continue
		}

		enabled, err := utils.ParseEnabled(state)
		if err != nil {
			return loggerError("invalid state '%s' in source map", state)
		}
		m[src] = enabled
	}

	return nil
}

// String returns a string representation of the srcmap.
func (m *srcmap) String() string {
	if m == nil {
		return ""
	}

	var on, off []string
	for src, state := range *m {
		if state {
			on = append(on, src)
		} else {
			off = append(off, src)
		}
	}
	sort.Strings(on)
	sort.Strings(off)

	switch {
	case len(off) == 0:
		return "on:" + strings.Join(on, ",")
	case len(on) == 0:
		return "off:" + strings.Join(off, ",")
	}
	return "on:" + strings.Join(on, ",") + ",off:" + strings.Join(off, ",")
}

// isEnabled checks the state of source, falling back to '*' then to def.
func (m srcmap) isEnabled(source string, def bool) bool {
	if state, ok := m[source]; ok {
		return state
	}
	if state, ok := m["*"]; ok {
		return state
	}
	return def
}

// MarshalJSON is the JSON marshaller for srcmap.
func (m srcmap) MarshalJSON() ([]byte, error) {
	raw := map[string][]string{"on": {}, "off": {}}
	for src, state := range m {
		if state {
			raw["on"] = append(raw["on"], src)
		} else {
			raw["off"] = append(raw["off"], src)
		}
	}
	sort.Strings(raw["on"])
	sort.Strings(raw["off"])

	return json.Marshal(raw)
}

// UnmarshalJSON is the JSON unmarshaller for srcmap.
func (m *srcmap) UnmarshalJSON(raw []byte) error {
	var err error

	*m = make(srcmap)

	rawmap := map[string][]string{}
	if err = json.Unmarshal(raw, &rawmap); err == nil {
		for state, sources := range rawmap {
			enabled, err := utils.ParseEnabled(state)
			if err != nil {
				return loggerError("invalid state '%s' in logger source map", state)
			}
			for _, src := range sources {
				if src == "all" {
					src = "*"
				}
				(*m)[src] = enabled
			}
		}
		return nil
	}

	cfgstr := ""
	if err = json.Unmarshal(raw, &cfgstr); err == nil {
		if err := m.parse(cfgstr); err != nil {
			return loggerError("failed to unmarshal logger source map '%s': %v",
				string(raw), err)
		}
		return nil
	}

	return loggerError("failed to unmarshal logger source map '%s': %v",
		string(raw), err)
}

// copy state from another srcmap.
func (m srcmap) copy(o srcmap) {
	for src, state := range o {
		m[src] = state
	}
}

// configNotify is the configuration change notification callback for options.
func (o *options) configNotify(event pkgcfg.Event, src pkgcfg.Source) error {
	deflog.Info("logger configuration %v from %v", event, src)

	deflog.Info("*  log level: %v", opt.Level)
	deflog.Info("*    logging: %v", opt.Enable.String())
	deflog.Info("*  debugging: %v", opt.Debug.String())

	log.Lock()
	defer log.Unlock()

	if err := log.setBackend(opt.Logger.String()); err != nil {
		return err
	}
	log.setLevel(opt.Level)

	if len(opt.Enable) == 0 {
		opt.Enable.copy(defaults.Enable)
	}
	if len(opt.Debug) == 0 {
		opt.Debug.copy(defaults.Debug)
	}
	log.update(opt.Enable, opt.Debug)

	return nil
}

func defaultOptions() interface{} {
	o := &options{
		Logger: defaults.Logger,
		Level:  defaults.Level,
		Enable: make(srcmap),
		Debug:  make(srcmap),
	}
	o.Enable.copy(defaults.Enable)
	o.Debug.copy(defaults.Debug)

	return o
}

// Register us for command line parsing and configuration handling.
func init() {
	cfglog := log.get("config")
	pkgcfg.SetLogger(pkgcfg.Logger{
		DebugEnabled: cfglog.DebugEnabled,
		Debugf:       cfglog.Debug,
		Infof:        cfglog.Info,
		Warningf:     cfglog.Warn,
		Errorf:       cfglog.Error,
		Fatalf:       cfglog.Fatal,
		Panicf:       cfglog.Panic,
	})

	flag.Var(&defaults.Logger, optLogger,
		"override logger backend to use (fmt, klog, logrus).")
	flag.Var(&defaults.Level, optLevel,
		"lowest severity level to pass through (info, warning, error)")
	flag.Var(&defaults.Enable, optEnable,
		"comma-separated list of source names to enable/disable.\n"+
			"Specify '*' or 'all' to enable all sources, which is also the default.\n"+
			"Prefix a source or list with 'off:' to disable.")
	flag.Var(&defaults.Debug, optDebug,
		"comma-separated list of source names to enable debug messages for.\n"+
			"Specify '*' or 'all' to enable all sources.\n"+
			"Prefix a source or list with 'off:' to disable, which is also the default state.")

	pkgcfg.Register(configModule, configHelp, opt, defaultOptions,
		pkgcfg.WithNotify(opt.configNotify))
}
