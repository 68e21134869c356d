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

package config

// Option is the generic interface for any option applicable to a Module.
type Option interface {
	apply(*Module)
}

// funcOption is a generic functional option.
type funcOption struct {
	f func(*Module)
}

// apply applies a functional option to a module.
func (fo *funcOption) apply(m *Module) {
	fo.f(m)
}

// newFuncOption creates a new option instance.
func newFuncOption(f func(*Module)) *funcOption {
	return &funcOption{
		f: f,
	}
}

// WithNotify injects an update notification callback into a module.
func WithNotify(fn NotifyFn) Option {
	return newFuncOption(func(m *Module) {
		m.notify = append(m.notify, fn)
	})
}
