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
	"strings"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/require"
)

// RequireErrors checks that err is a multierror of count errors and that its
// message contains all the given substrings. A zero count requires no error.
func RequireErrors(t *testing.T, err error, count int, substrings ...string) *multierror.Error {
	t.Helper()

	if count == 0 {
		require.NoError(t, err)
		return nil
	}

	require.Error(t, err)
	var merr *multierror.Error
	require.True(t, errors.As(err, &merr), "expected a multierror, got %#v", err)
	require.Len(t, merr.Errors, count, "%v", merr)

	for _, s := range substrings {
		if !strings.Contains(err.Error(), s) {
			t.Fatalf("expected error with substring %q, got %q", s, err.Error())
		}
	}

	return merr
}
