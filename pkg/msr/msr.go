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

// Package msr provides access to model-specific registers through the
// Linux msr driver (/dev/cpu/<N>/msr).
package msr

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

const (
	// DefaultDevicePath is the default msr device path format, indexed by CPU.
	DefaultDevicePath = "/dev/cpu/%d/msr"
)

// Device is an open msr device of a single CPU.
type Device struct {
	cpu  int
	path string
	fd   int
}

// Open opens the msr device of the given CPU, with an optional device path format.
func Open(cpu int, pathFmt ...string) (*Device, error) {
	format := DefaultDevicePath
	if len(pathFmt) > 0 && pathFmt[0] != "" {
		format = pathFmt[0]
	}
	path := fmt.Sprintf(format, cpu)

	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		if os.IsNotExist(err) {
			err = errors.Wrap(err, "is the msr kernel module loaded?")
		}
		return nil, errors.Wrapf(err, "msr: failed to open %s", path)
	}

	return &Device{
		cpu:  cpu,
		path: path,
		fd:   fd,
	}, nil
}

// Read reads the given register.
func (d *Device) Read(reg uint32) (uint64, error) {
	buf := make([]byte, 8)
	cnt, err := unix.Pread(d.fd, buf, int64(reg))
	if err != nil {
		return 0, errors.Wrapf(err, "msr: failed to read register %#x of CPU #%d", reg, d.cpu)
	}
	if cnt != len(buf) {
		return 0, errors.Errorf("msr: short read (%d bytes) of register %#x of CPU #%d",
			cnt, reg, d.cpu)
	}
	return binary.LittleEndian.Uint64(buf), nil
}

// Write writes the given register.
func (d *Device) Write(reg uint32, value uint64) error {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, value)
	cnt, err := unix.Pwrite(d.fd, buf, int64(reg))
	if err != nil {
		return errors.Wrapf(err, "msr: failed to write register %#x of CPU #%d", reg, d.cpu)
	}
	if cnt != len(buf) {
		return errors.Errorf("msr: short write (%d bytes) of register %#x of CPU #%d",
			cnt, reg, d.cpu)
	}
	return nil
}

// Close closes the device.
func (d *Device) Close() error {
	if d.fd < 0 {
		return nil
	}
	err := unix.Close(d.fd)
	d.fd = -1
	return errors.Wrapf(err, "msr: failed to close %s", d.path)
}

// Available checks if the msr device of the given CPU exists.
func Available(cpu int, pathFmt ...string) bool {
	format := DefaultDevicePath
	if len(pathFmt) > 0 && pathFmt[0] != "" {
		format = pathFmt[0]
	}
	_, err := os.Stat(fmt.Sprintf(format, cpu))
	return err == nil
}
