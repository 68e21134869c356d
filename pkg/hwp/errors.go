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

package hwp

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/intel/hwp-manager/pkg/affinity"
)

var (
	// ErrUnsupported is returned when HWP is absent, disabled or claimed by someone else.
	ErrUnsupported = errors.New("hwp: unsupported")
	// ErrCoreUnavailable is returned for CPUs that can't be pinned to.
	ErrCoreUnavailable = affinity.ErrCoreUnavailable
	// ErrNotAttached is returned for operations on CPUs that are not attached.
	ErrNotAttached = errors.New("not attached")
)

// RegisterError is a failed register access of a core.
type RegisterError struct {
	CPU      int
	Register uint32
	Op       string
	Err      error
}

func registerError(cpu int, reg uint32, op string, err error) *RegisterError {
	return &RegisterError{
		CPU:      cpu,
		Register: reg,
		Op:       op,
		Err:      err,
	}
}

// Error implements the error interface.
func (e *RegisterError) Error() string {
	return fmt.Sprintf("hwp: CPU #%d: failed to %s %s: %v", e.CPU, e.Op, RegisterName(e.Register), e.Err)
}

// Unwrap returns the underlying error.
func (e *RegisterError) Unwrap() error {
	return e.Err
}

// hwpError returns a package-specific formatted error.
func hwpError(format string, args ...interface{}) error {
	return fmt.Errorf("hwp: "+format, args...)
}
