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

// Package instrumentation runs our HTTP endpoint, which serves hwp control
// and, optionally, Prometheus metrics.
package instrumentation

import (
	"fmt"
	"strings"

	"github.com/intel/hwp-manager/pkg/instrumentation/http"
	logger "github.com/intel/hwp-manager/pkg/log"
)

// Our logger instance.
var log = logger.NewLogger("instrumentation")

// Our instrumentation service instance.
var svc = newService()

// GetHTTPMux returns the mux of our HTTP server, for registering handlers.
func GetHTTPMux() *http.ServeMux {
	return svc.http.GetMux()
}

// HTTPAddress returns the address our HTTP server listens on, or "".
func HTTPAddress() string {
	return svc.http.GetAddress()
}

// Start our internal instrumentation services.
func Start() error {
	return svc.Start()
}

// Stop stops our internal instrumentation services.
func Stop() {
	svc.Stop()
}

// Restart restarts our internal instrumentation services.
func Restart() error {
	return svc.Restart()
}

// sprintln formats its arguments like fmt.Sprintln, without the trailing newline.
func sprintln(v ...interface{}) string {
	return strings.TrimSuffix(fmt.Sprintln(v...), "\n")
}

// instrumentationError produces a formatted instrumentation-specific error.
func instrumentationError(format string, args ...interface{}) error {
	return fmt.Errorf("instrumentation: "+format, args...)
}
