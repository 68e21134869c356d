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
	"os"
	"sync/atomic"
)

// Level describes the severity of log messages.
type Level int

const (
	// LevelDebug is the severity for debug messages.
	LevelDebug Level = iota
	// LevelInfo is the severity for informational messages.
	LevelInfo
	// LevelWarn is the severity for warnings.
	LevelWarn
	// LevelError is the severity for errors.
	LevelError
	// LevelPanic is the severity for panic messages.
	LevelPanic
	// LevelFatal is the severity for fatal errors.
	LevelFatal
	// levelHighest is the highest externally visible level
	levelHighest
)

// Logger is the interface for producing log messages for/from a particular source.
type Logger interface {
	// Debug formats and emits a debug message.
	Debug(format string, args ...interface{})
	// Info formats and emits an informational message.
	Info(format string, args ...interface{})
	// Warn formats and emits a warning message.
	Warn(format string, args ...interface{})
	// Error formats and emits an error message.
	Error(format string, args ...interface{})
	// Panic formats and emits an error message then panics with the same.
	Panic(format string, args ...interface{})
	// Fatal formats and emits an error message and os.Exit()'s with status 1.
	Fatal(format string, args ...interface{})

	// DebugBlock formats and emits a multiline debug message.
	DebugBlock(prefix string, format string, args ...interface{})
	// InfoBlock formats and emits a multiline information message.
	InfoBlock(prefix string, format string, args ...interface{})
	// WarnBlock formats and emits a multiline warning message.
	WarnBlock(prefix string, format string, args ...interface{})
	// ErrorBlock formats and emits a multiline error message.
	ErrorBlock(prefix string, format string, args ...interface{})

	// EnableDebug enables debug messages for this Logger.
	EnableDebug(bool) bool
	// DebugEnabled checks if debug messages are enabled for this Logger.
	DebugEnabled() bool

	// Source returns the source name of this Logger.
	Source() string
}

const (
	loggingBit uint32 = 1 << iota
	debuggingBit
)

// logger implements Logger for a single source.
type logger struct {
	source string
	state  uint32
}

func (l *logger) setState(logging, debugging bool) {
	var state uint32
	if logging {
		state |= loggingBit
	}
	if debugging {
		state |= debuggingBit
	}
	atomic.StoreUint32(&l.state, state)
}

func (l *logger) isLogging() bool {
	return atomic.LoadUint32(&l.state)&loggingBit != 0
}

func (l *logger) isDebugging() bool {
	return atomic.LoadUint32(&l.state)&debuggingBit != 0
}

// EnableDebug enables/disables debug logging for this logger.
func (l *logger) EnableDebug(enable bool) bool {
	for {
		old := atomic.LoadUint32(&l.state)
		state := old &^ debuggingBit
		if enable {
			state |= debuggingBit
		}
		if atomic.CompareAndSwapUint32(&l.state, old, state) {
			return old&debuggingBit != 0
		}
	}
}

// DebugEnabled checks debug logging is enabled for this logger.
func (l *logger) DebugEnabled() bool {
	return l.isDebugging()
}

// Source returns the source for the given logger.
func (l *logger) Source() string {
	return l.source
}

func (l *logger) Debug(format string, args ...interface{}) {
	if b, emit := l.emitter(LevelDebug); emit {
		b.Log(LevelDebug, l.source, format, args...)
	}
}

func (l *logger) Info(format string, args ...interface{}) {
	if b, emit := l.emitter(LevelInfo); emit {
		b.Log(LevelInfo, l.source, format, args...)
	}
}

func (l *logger) Warn(format string, args ...interface{}) {
	if b, emit := l.emitter(LevelWarn); emit {
		b.Log(LevelWarn, l.source, format, args...)
	}
}

func (l *logger) Error(format string, args ...interface{}) {
	if b, emit := l.emitter(LevelError); emit {
		b.Log(LevelError, l.source, format, args...)
	}
}

// Fatal logs a fatal error message and os.Exit(1)'s.
func (l *logger) Fatal(format string, args ...interface{}) {
	log.backend().Log(LevelFatal, l.source, format, args...)
	os.Exit(1)
}

// Panic logs a panic message and panic()'s.
func (l *logger) Panic(format string, args ...interface{}) {
	log.backend().Log(LevelPanic, l.source, format, args...)
	panic(fmt.Sprintf("["+l.source+"] "+format, args...))
}

func (l *logger) DebugBlock(prefix string, format string, args ...interface{}) {
	if b, emit := l.emitter(LevelDebug); emit {
		b.Block(LevelDebug, l.source, prefix, format, args...)
	}
}

func (l *logger) InfoBlock(prefix string, format string, args ...interface{}) {
	if b, emit := l.emitter(LevelInfo); emit {
		b.Block(LevelInfo, l.source, prefix, format, args...)
	}
}

func (l *logger) WarnBlock(prefix string, format string, args ...interface{}) {
	if b, emit := l.emitter(LevelWarn); emit {
		b.Block(LevelWarn, l.source, prefix, format, args...)
	}
}

func (l *logger) ErrorBlock(prefix string, format string, args ...interface{}) {
	if b, emit := l.emitter(LevelError); emit {
		b.Block(LevelError, l.source, prefix, format, args...)
	}
}

// emitter returns the active backend and whether a message of level should be emitted.
func (l *logger) emitter(level Level) (Backend, bool) {
	log.RLock()
	lowest, forced := log.level, log.forced
	log.RUnlock()

	switch {
	case level == LevelDebug:
		if !l.isDebugging() && !forced {
			return nil, false
		}
	case level < lowest:
		return nil, false
	case level == LevelInfo && !l.isLogging():
		return nil, false
	}

	return log.backend(), true
}
