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

// Package affinity pins the calling goroutine to a single CPU for the
// duration of core-local work.
package affinity

import (
	"errors"
)

// ErrCoreUnavailable is returned when a CPU does not exist or is offline.
var ErrCoreUnavailable = errors.New("core unavailable")

// Release undoes a Pin, restoring the original affinity of the caller.
type Release func() error

// Pinner can restrict the calling goroutine to run on a single CPU.
type Pinner interface {
	// Pin restricts execution of the calling goroutine to the given CPU.
	// Errors for nonexistent or offline CPUs wrap ErrCoreUnavailable.
	Pin(cpu int) (Release, error)
}

// NewPinner returns the native Pinner for this platform.
func NewPinner() Pinner {
	return newPinner()
}
