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

// Package pidfile tracks the single instance allowed to control HWP.
package pidfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/pkg/errors"
)

// ErrOwned is returned when another live process owns the PID file.
var ErrOwned = errors.New("PID file owned by another process")

// PidFile is a PID file marking the process in control.
type PidFile struct {
	path string
	file *os.File
}

// New returns a PID file at the given path, or at DefaultPath() if path is empty.
func New(path string) *PidFile {
	if path == "" {
		path = DefaultPath()
	}
	return &PidFile{path: path}
}

// Path returns the path of the PID file.
func (p *PidFile) Path() string {
	return p.path
}

// Write creates the PID file with our PID in it. It fails if the file
// already exists. On success the file is kept open until Remove.
func (p *PidFile) Write() error {
	if p.file != nil {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(p.path), 0755); err != nil {
		return errors.Wrap(err, "failed to create PID file")
	}

	f, err := os.OpenFile(p.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return errors.Wrap(err, "failed to create PID file")
	}
	if _, err = f.Write([]byte(fmt.Sprintf("%d\n", os.Getpid()))); err != nil {
		f.Close()
		os.Remove(p.path)
		return errors.Wrap(err, "failed to write PID file")
	}
	p.file = f

	return nil
}

// Read returns the PID in the file, 0 if there is no file, or -1 and an error.
func (p *PidFile) Read() (int, error) {
	buf, err := os.ReadFile(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return -1, errors.Wrap(err, "failed to read PID file")
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(buf)))
	if err != nil {
		return -1, errors.Wrapf(err, "invalid PID (%q) in PID file", string(buf))
	}

	return pid, nil
}

// OwnerPid returns the PID of the live process owning the PID file. 0 is
// returned if no process owns it, -1 and an error if it can't be determined.
func (p *PidFile) OwnerPid() (int, error) {
	pid, err := p.Read()
	if err != nil || pid == 0 {
		return pid, err
	}

	alive, err := processAlive(pid)
	if err != nil {
		return -1, err
	}
	if !alive {
		return 0, nil
	}

	return pid, nil
}

// Claim writes the PID file unless another live process owns it. A stale
// file left behind by a dead process is replaced.
func (p *PidFile) Claim() error {
	owner, err := p.OwnerPid()
	if err != nil {
		return err
	}

	switch {
	case owner == os.Getpid():
		return nil
	case owner > 0:
		return errors.Wrapf(ErrOwned, "%s: PID %d", p.path, owner)
	}

	if err := p.Remove(); err != nil {
		return err
	}
	return p.Write()
}

// Remove closes and removes the PID file, whoever created it.
func (p *PidFile) Remove() error {
	if p.file != nil {
		p.file.Close()
		p.file = nil
	}

	if err := os.Remove(p.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "failed to remove PID file")
	}

	return nil
}

// processAlive checks if a process with the given PID exists.
func processAlive(pid int) (bool, error) {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false, errors.Wrapf(err, "FindProcess() failed for PID %d", pid)
	}

	switch err = proc.Signal(syscall.Signal(0)); {
	case err == nil, errors.Is(err, syscall.EPERM):
		return true, nil
	case errors.Is(err, os.ErrProcessDone), errors.Is(err, syscall.ESRCH):
		return false, nil
	}

	return false, errors.Wrapf(err, "failed to check process %d", pid)
}

// DefaultPath returns the default PID file path for the running binary.
func DefaultPath() string {
	name := "hwp-manager"
	if len(os.Args) > 0 {
		name = filepath.Base(os.Args[0])
	}
	if os.Geteuid() > 0 {
		return filepath.Join(os.TempDir(), name+".pid")
	}
	return filepath.Join("/", "run", name+".pid")
}
