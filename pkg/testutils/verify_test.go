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

package testutils

import (
	"errors"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/require"
)

func TestRequireErrors(t *testing.T) {
	require.Nil(t, RequireErrors(t, nil, 0))

	var err error = multierror.Append(nil, errors.New("CPU #1: failed"), errors.New("CPU #3: failed"))
	merr := RequireErrors(t, err, 2, "CPU #1", "CPU #3")
	require.Len(t, merr.Errors, 2)
}
