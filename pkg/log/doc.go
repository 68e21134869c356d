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

// Package log implements per-source loggers with runtime configurable
// severity filtering, per-source debugging and pluggable backends.
//
// Each package creates its own logger, typically named after itself:
//
//	var log = logger.NewLogger("hwp")
//
// Normal logging and debugging can be toggled per source from the command
// line (-logger-sources, -logger-debug) or from the 'logger' section of the
// configuration file. Messages are emitted by the active backend, which is
// 'fmt' by default, with 'klog' and 'logrus' available as alternatives.
package log

const configHelp = `
Logger configuration.

  level:   lowest severity to pass through (debug, info, warning, error)
  logger:  backend to emit messages with (fmt, klog, logrus)
  sources: sources to enable or disable normal logging for, either as a
           map of 'on'/'off' to a list of sources, or as a string like
           'on:hwp,sysfs,off:http'. Use '*' or 'all' for every source.
  debug:   sources to enable or disable debug logging for, in the same
           format as 'sources'.
`
