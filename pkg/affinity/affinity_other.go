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

//go:build !linux
// +build !linux

package affinity

import (
	"github.com/pkg/errors"
)

// unsupportedPinner is used on platforms without thread affinity control.
type unsupportedPinner struct{}

func newPinner() Pinner {
	return &unsupportedPinner{}
}

func (*unsupportedPinner) Pin(cpu int) (Release, error) {
	return nil, errors.Wrapf(ErrCoreUnavailable, "CPU #%d: CPU pinning not supported", cpu)
}
