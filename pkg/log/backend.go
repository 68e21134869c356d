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
	"fmt"
	"io"
	"os"
	"strings"
)

// BackendFn is a functions that creates a Backend instance.
type BackendFn func() Backend

// Backend can format and emit log messages.
type Backend interface {
	// Name returns the name of this backend.
	Name() string
	// Log emits log messages with the given severity, source, and Printf-like arguments.
	Log(Level, string, string, ...interface{})
	// Block emits a multi-line log messages, with an additional line prefix.
	Block(Level, string, string, string, ...interface{})
	// Flush flushes and stops initial buffering synchronously
	Flush()
	// Sync waits for all messages to get emitted.
	Sync()
	// Stop stops the backend instance.
	Stop()
	// SetSourceAlignment sets the maximum prefix length for optional alignment.
	SetSourceAlignment(int)
}

// RegisterBackend registers a logger backend.
func RegisterBackend(name string, fn BackendFn) {
	log.Lock()
	defer log.Unlock()
	log.backends[name] = fn
}

const (
	// FmtBackendName is the name of our simple fmt-based logging backend.
	FmtBackendName = "fmt"
	// fmtBackendQueueLen is the length of the internal fmt message queue.
	fmtBackendQueueLen = 1024
)

const (
	levelNop Level = iota + levelHighest
	levelStop
	levelAlign
)

// severity tags fmtBackend uses to prefix emitted messages with.
var fmtTags = map[Level]string{
	LevelDebug: "D: ",
	LevelInfo:  "I: ",
	LevelWarn:  "W: ",
	LevelError: "E: ",
	LevelFatal: "FATAL ERROR: ",
	LevelPanic: "PANIC: ",
}

// fmtBackend is our default Backend, emitting from a goroutine to an io.Writer.
// Only the emitter goroutine touches align.
type fmtBackend struct {
	q     chan *fmtReq
	out   io.Writer
	align int
}

// fmtReq is a single request to the emitter goroutine.
type fmtReq struct {
	level  Level
	source string
	prefix string
	msg    string
	sync   chan struct{} // reverse-ack for synchronous requests
	flush  bool          // stop initial buffering
	align  int           // new source alignment, for levelAlign
}

func createFmtBackend() Backend {
	return newFmtBackend(os.Stderr)
}

func newFmtBackend(out io.Writer) *fmtBackend {
	f := &fmtBackend{
		q:   make(chan *fmtReq, fmtBackendQueueLen),
		out: out,
	}
	go f.run()
	return f
}

func (*fmtBackend) Name() string {
	return FmtBackendName
}

func (f *fmtBackend) Log(level Level, source, format string, args ...interface{}) {
	f.log(level, source, "", format, args...)
}

func (f *fmtBackend) Block(level Level, source, prefix, format string, args ...interface{}) {
	f.log(level, source, prefix, format, args...)
}

func (f *fmtBackend) Flush() {
	f.request(&fmtReq{level: levelNop, flush: true})
}

func (f *fmtBackend) Sync() {
	f.request(&fmtReq{level: levelNop})
}

func (f *fmtBackend) Stop() {
	f.request(&fmtReq{level: levelStop, flush: true})
}

func (f *fmtBackend) SetSourceAlignment(len int) {
	f.q <- &fmtReq{level: levelAlign, align: len}
}

// request sends a synchronous request to the emitter and waits for its completion.
func (f *fmtBackend) request(req *fmtReq) {
	req.sync = make(chan struct{})
	f.q <- req
	<-req.sync
}

func (f *fmtBackend) log(level Level, source, prefix, format string, args ...interface{}) {
	req := &fmtReq{
		level:  level,
		source: source,
		prefix: prefix,
		msg:    fmt.Sprintf(format, args...),
		flush:  level >= LevelError,
	}

	// panics and fatal errors are synchronous
	if level > LevelError {
		f.request(req)
		return
	}

	f.q <- req
}

// run emits messages, buffering them until the first flush or a full buffer.
func (f *fmtBackend) run() {
	buf := make([]*fmtReq, 0, fmtBackendQueueLen)

	for req := range f.q {
		switch {
		case buf == nil:
			f.emit(req)
		case req.flush || len(buf) == cap(buf):
			for _, r := range buf {
				f.emit(r)
			}
			f.emit(req)
			buf = nil
		default:
			buf = append(buf, req)
		}

		if req.sync != nil {
			close(req.sync)
		}
		if req.level == levelStop {
			return
		}
	}
}

// emit formats and writes a single message.
func (f *fmtBackend) emit(req *fmtReq) {
	if req.level == levelAlign {
		f.align = req.align
		return
	}
	if req.level >= levelHighest {
		return
	}

	suf := (f.align - len(req.source)) / 2
	pre := f.align - (len(req.source) + suf)
	source := "[" + fmt.Sprintf("%*s", pre, "") + req.source + fmt.Sprintf("%*s", suf, "") + "]"

	for _, line := range strings.Split(req.msg, "\n") {
		if req.prefix == "" {
			fmt.Fprintln(f.out, fmtTags[req.level]+source, line)
		} else {
			fmt.Fprintln(f.out, fmtTags[req.level]+source, req.prefix+line)
		}
	}
}

func init() {
	RegisterBackend(FmtBackendName, createFmtBackend)
}
