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

package pidfile

import (
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

const (
	testPidFile = "pidfile-test.pid"
)

func prepare(t *testing.T) *PidFile {
	return New(filepath.Join(t.TempDir(), "run", testPidFile))
}

func TestDefaults(t *testing.T) {
	require.NotEmpty(t, New("").Path())
	require.Equal(t, DefaultPath(), New("").Path())
}

func TestReadNonExisting(t *testing.T) {
	p := prepare(t)

	pid, err := p.Read()
	require.NoError(t, err)
	require.Equal(t, 0, pid)

	pid, err = p.OwnerPid()
	require.NoError(t, err)
	require.Equal(t, 0, pid)
}

func TestRemoveNonExisting(t *testing.T) {
	require.NoError(t, prepare(t).Remove())
}

func TestWrite(t *testing.T) {
	p := prepare(t)

	require.NoError(t, p.Write())
	require.NoError(t, p.Write(), "rewrite while open")

	pid, err := p.Read()
	require.NoError(t, err)
	require.Equal(t, os.Getpid(), pid)

	pid, err = p.OwnerPid()
	require.NoError(t, err)
	require.Equal(t, os.Getpid(), pid)

	// a second instance must not overwrite it
	require.Error(t, New(p.Path()).Write())

	require.NoError(t, p.Remove())
	_, err = os.Stat(p.Path())
	require.True(t, os.IsNotExist(err))
}

func TestReadGarbage(t *testing.T) {
	p := prepare(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(p.Path()), 0755))
	require.NoError(t, os.WriteFile(p.Path(), []byte("not-a-pid\n"), 0644))

	pid, err := p.Read()
	require.Error(t, err)
	require.Equal(t, -1, pid)

	require.Error(t, p.Claim())
}

func TestClaim(t *testing.T) {
	p := prepare(t)

	require.NoError(t, p.Claim())
	require.NoError(t, p.Claim(), "reclaim by owner")

	other := New(p.Path())
	require.NoError(t, other.Claim(), "claim by the same process")

	require.NoError(t, p.Remove())
}

func TestClaimStale(t *testing.T) {
	cmd := exec.Command("true")
	require.NoError(t, cmd.Run())
	dead := cmd.Process.Pid

	p := prepare(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(p.Path()), 0755))
	require.NoError(t, os.WriteFile(p.Path(), []byte(strconv.Itoa(dead)+"\n"), 0644))

	pid, err := p.OwnerPid()
	require.NoError(t, err)
	require.Equal(t, 0, pid)

	require.NoError(t, p.Claim())
	pid, err = p.Read()
	require.NoError(t, err)
	require.Equal(t, os.Getpid(), pid)
}

func TestClaimOwned(t *testing.T) {
	cmd := exec.Command("sleep", "30")
	require.NoError(t, cmd.Start())
	defer func() {
		cmd.Process.Kill()
		cmd.Wait()
	}()

	p := prepare(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(p.Path()), 0755))
	require.NoError(t, os.WriteFile(p.Path(), []byte(strconv.Itoa(cmd.Process.Pid)+"\n"), 0644))

	pid, err := p.OwnerPid()
	require.NoError(t, err)
	require.Equal(t, cmd.Process.Pid, pid)

	err = p.Claim()
	require.True(t, errors.Is(err, ErrOwned), "%v", err)
}
