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

package version

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFprint(t *testing.T) {
	Version, Build = "v1.2.3", "0123abcd"
	defer func() { Version, Build = "unknown", "unknown" }()

	buf := &bytes.Buffer{}
	Fprint(buf)
	require.Contains(t, buf.String(), "  - version: v1.2.3\n")
	require.Contains(t, buf.String(), "  - build:   0123abcd\n")

	info := Get()
	require.Equal(t, "v1.2.3", info.Version)
	require.NotEmpty(t, info.GoVersion)
}

func TestVersionFlag(t *testing.T) {
	v := version{}
	require.True(t, v.IsBoolFlag())
	require.Equal(t, "false", v.String())
	require.NoError(t, v.Set("false"))
	require.Error(t, v.Set("maybe"))
}
