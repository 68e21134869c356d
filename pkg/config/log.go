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
	"os"
)

//
// pkg/log registers its own configuration with us, so we cannot import it
// without an import cycle. Instead pkg/log sets our Logger during its init.
//

// Logger is our set of logging functions.
type Logger struct {
	DebugEnabled func() bool
	Debugf       func(string, ...interface{})
	Infof        func(string, ...interface{})
	Warningf     func(string, ...interface{})
	Errorf       func(string, ...interface{})
	Fatalf       func(string, ...interface{})
	Panicf       func(string, ...interface{})
}

// log is our Logger.
var log = defaultLogger()

// SetLogger sets our logger.
func SetLogger(logger Logger) {
	if logger.DebugEnabled != nil {
		log.DebugEnabled = logger.DebugEnabled
	}
	if logger.Debugf != nil {
		log.Debugf = logger.Debugf
	}
	if logger.Infof != nil {
		log.Infof = logger.Infof
	}
	if logger.Warningf != nil {
		log.Warningf = logger.Warningf
	}
	if logger.Errorf != nil {
		log.Errorf = logger.Errorf
	}
	if logger.Panicf != nil {
		log.Panicf = logger.Panicf
	}
	if logger.Fatalf != nil {
		log.Fatalf = logger.Fatalf
	}
}

func defaultLogger() Logger {
	return Logger{
		DebugEnabled: func() bool { return false },
		Debugf:       logfn("D: "),
		Infof:        logfn("I: "),
		Warningf:     logfn("W: "),
		Errorf:       logfn("E: "),
		Fatalf: func(format string, args ...interface{}) {
			logfn("E: fatal error: ")(format, args...)
			os.Exit(1)
		},
		Panicf: func(format string, args ...interface{}) {
			logfn("E: ")(format, args...)
			panic(fmt.Sprintf("[config] "+format, args...))
		},
	}
}

func logfn(tag string) func(string, ...interface{}) {
	return func(format string, args ...interface{}) {
		fmt.Fprintf(os.Stderr, tag+"[config] "+format+"\n", args...)
	}
}
