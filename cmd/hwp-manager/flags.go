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

package main

import (
	"flag"

	"github.com/intel/hwp-manager/pkg/pidfile"
)

// options captures our command line options.
type options struct {
	configFile string // file to read configuration from
	watch      bool   // reload configuration file upon changes
	pidFile    string // PID file for single instance enforcement
}

var opt = options{}

func init() {
	flag.StringVar(&opt.configFile, "config", "",
		"file to read configuration from")
	flag.BoolVar(&opt.watch, "watch-config", true,
		"reload the configuration file when it changes")
	flag.StringVar(&opt.pidFile, "pid-file", pidfile.DefaultPath(),
		"PID file to use for preventing multiple running instances")
}
