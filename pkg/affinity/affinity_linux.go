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

//go:build linux
// +build linux

package affinity

import (
	"runtime"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// schedPinner pins OS threads using sched_setaffinity(2).
type schedPinner struct{}

func newPinner() Pinner {
	return &schedPinner{}
}

// maxCPUs is the number of CPUs a unix.CPUSet can hold.
var maxCPUs = len(unix.CPUSet{}) * 64

func (*schedPinner) Pin(cpu int) (Release, error) {
	if cpu < 0 || cpu >= maxCPUs {
		return nil, errors.Wrapf(ErrCoreUnavailable, "CPU #%d", cpu)
	}

	runtime.LockOSThread()

	var orig, pinned unix.CPUSet
	if err := unix.SchedGetaffinity(0, &orig); err != nil {
		runtime.UnlockOSThread()
		return nil, errors.Wrap(err, "failed to get CPU affinity")
	}

	pinned.Set(cpu)
	if err := unix.SchedSetaffinity(0, &pinned); err != nil {
		runtime.UnlockOSThread()
		if errors.Is(err, unix.EINVAL) {
			return nil, errors.Wrapf(ErrCoreUnavailable, "CPU #%d", cpu)
		}
		return nil, errors.Wrapf(err, "failed to pin to CPU #%d", cpu)
	}

	return func() error {
		if err := unix.SchedSetaffinity(0, &orig); err != nil {
			// the thread stays locked and gets discarded when the goroutine exits
			return errors.Wrapf(err, "failed to restore CPU affinity after CPU #%d", cpu)
		}
		runtime.UnlockOSThread()
		return nil
	}, nil
}
