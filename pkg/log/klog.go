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

package log

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"

	"k8s.io/klog/v2"
)

const (
	// KlogBackendName is the name of our klog-based logging backend.
	KlogBackendName = "klog"
	// klogDepth is the stack depth from klog to the caller of a Logger.
	klogDepth = 3
)

// klogBackend emits messages using klog.
type klogBackend struct {
	align int32
}

func createKlogBackend() Backend {
	return &klogBackend{}
}

func (*klogBackend) Name() string {
	return KlogBackendName
}

func (k *klogBackend) Log(level Level, source, format string, args ...interface{}) {
	k.emit(level, k.source(source)+" "+fmt.Sprintf(format, args...))
}

func (k *klogBackend) Block(level Level, source, prefix, format string, args ...interface{}) {
	source = k.source(source)
	for _, line := range strings.Split(fmt.Sprintf(format, args...), "\n") {
		k.emit(level, source+" "+prefix+line)
	}
}

func (*klogBackend) Flush() {
	klog.Flush()
}

func (*klogBackend) Sync() {
	klog.Flush()
}

func (*klogBackend) Stop() {
	klog.Flush()
}

func (k *klogBackend) SetSourceAlignment(align int) {
	atomic.StoreInt32(&k.align, int32(align))
}

func (k *klogBackend) source(source string) string {
	return "[" + fmt.Sprintf("%-*s", int(atomic.LoadInt32(&k.align)), source) + "]"
}

func (*klogBackend) emit(level Level, msg string) {
	switch level {
	case LevelDebug:
		klog.InfoDepth(klogDepth, "D: "+msg)
	case LevelInfo:
		klog.InfoDepth(klogDepth, msg)
	case LevelWarn:
		klog.WarningDepth(klogDepth, msg)
	default:
		// fatal errors and panics are taken care of by the caller
		klog.ErrorDepth(klogDepth, msg)
	}
}

// klogFlags are the klog flags, preset from LOGGER_KLOG_* environment variables.
var klogFlags = flag.NewFlagSet("klog flags", flag.ContinueOnError)

// KlogFlags returns the flags used to control klog.
func KlogFlags() *flag.FlagSet {
	return klogFlags
}

// klogEnv returns the environment variable name for the given klog flag.
func klogEnv(name string) string {
	return "LOGGER_KLOG_" + strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
}

func init() {
	klogFlags.SetOutput(io.Discard)
	klog.InitFlags(klogFlags)
	klogFlags.VisitAll(func(f *flag.Flag) {
		if value, ok := os.LookupEnv(klogEnv(f.Name)); ok {
			if err := f.Value.Set(value); err != nil {
				klog.Errorf("klog flag %q: invalid environment default %s=%q: %v",
					f.Name, klogEnv(f.Name), value, err)
			}
		}
	})

	RegisterBackend(KlogBackendName, createKlogBackend)
}
