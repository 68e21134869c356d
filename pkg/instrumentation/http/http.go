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

// Package http provides the HTTP server of our instrumentation services,
// with handlers that can be registered and removed at runtime.
package http

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sort"
	"sync"
	"time"

	logger "github.com/intel/hwp-manager/pkg/log"
)

const (
	// shutdownTimeout is the time we wait for active requests on Shutdown.
	shutdownTimeout = 5 * time.Second
)

// Our logger instance.
var log = logger.NewLogger("http")

// ServeMux is our HTTP request multiplexer with removable handlers.
type ServeMux struct {
	sync.RWMutex
	handlers map[string]http.Handler
	mux      *http.ServeMux
}

// NewServeMux create a new HTTP request multiplexer.
func NewServeMux() *ServeMux {
	return &ServeMux{
		handlers: make(map[string]http.Handler),
		mux:      http.NewServeMux(),
	}
}

// Handle registers a handler for the given pattern.
func (mux *ServeMux) Handle(pattern string, handler http.Handler) error {
	mux.Lock()
	defer mux.Unlock()

	if _, ok := mux.handlers[pattern]; ok {
		return httpError("duplicate handler for %q", pattern)
	}

	log.Debug("registering handler for %q...", pattern)
	mux.handlers[pattern] = handler
	mux.mux.Handle(pattern, handler)

	return nil
}

// HandleFunc registers a handler function for the given pattern.
func (mux *ServeMux) HandleFunc(pattern string, fn func(http.ResponseWriter, *http.Request)) error {
	return mux.Handle(pattern, http.HandlerFunc(fn))
}

// Unregister removes the handler for the given pattern.
func (mux *ServeMux) Unregister(pattern string) (http.Handler, bool) {
	mux.Lock()
	defer mux.Unlock()

	h, ok := mux.handlers[pattern]
	if !ok {
		return nil, false
	}

	log.Debug("unregistering handler for %q...", pattern)

	// http.ServeMux can't remove patterns, rebuild it without this one
	delete(mux.handlers, pattern)
	mux.mux = http.NewServeMux()
	for p, handler := range mux.handlers {
		mux.mux.Handle(p, handler)
	}

	return h, true
}

// Patterns returns the sorted patterns with a registered handler.
func (mux *ServeMux) Patterns() []string {
	mux.RLock()
	defer mux.RUnlock()

	patterns := make([]string, 0, len(mux.handlers))
	for p := range mux.handlers {
		patterns = append(patterns, p)
	}
	sort.Strings(patterns)

	return patterns
}

// ServeHTTP serves a HTTP request.
func (mux *ServeMux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	mux.RLock()
	m := mux.mux
	mux.RUnlock()

	log.Debug("serving %s %s...", r.Method, r.URL)
	m.ServeHTTP(w, r)
}

// Server is our HTTP server, which can be restarted on a new address
// without losing its registered handlers.
type Server struct {
	sync.RWMutex
	server *http.Server
	mux    *ServeMux
}

// NewServer creates a new server instance.
func NewServer() *Server {
	return &Server{
		mux: NewServeMux(),
	}
}

// GetMux returns the mux for this server.
func (s *Server) GetMux() *ServeMux {
	return s.mux
}

// GetAddress returns the address the server listens on, or "" if it is stopped.
func (s *Server) GetAddress() string {
	s.RLock()
	defer s.RUnlock()

	if s.server == nil {
		return ""
	}
	return s.server.Addr
}

// Start starts the server on the given address. An empty address disables the server.
func (s *Server) Start(addr string) error {
	if addr == "" {
		log.Info("HTTP server is disabled")
		return nil
	}

	s.Lock()
	defer s.Unlock()

	if s.server != nil {
		return httpError("server already running on %s", s.server.Addr)
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return httpError("can't listen on TCP address %q: %v", addr, err)
	}

	// use the real address if the port was autobound
	s.server = &http.Server{
		Addr:              ln.Addr().String(),
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Info("HTTP server listening on %s", s.server.Addr)

	go func(srv *http.Server) {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server on %s failed: %v", srv.Addr, err)
		}
	}(s.server)

	return nil
}

// Stop closes the server immediately.
func (s *Server) Stop() {
	s.Lock()
	defer s.Unlock()

	if s.server == nil {
		return
	}

	log.Info("stopping HTTP server on %s...", s.server.Addr)
	s.server.Close()
	s.server = nil
}

// Shutdown shuts down the server gracefully.
func (s *Server) Shutdown() error {
	s.Lock()
	defer s.Unlock()

	if s.server == nil {
		return nil
	}

	log.Info("shutting down HTTP server on %s...", s.server.Addr)

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := s.server.Shutdown(ctx)
	s.server = nil

	if err != nil {
		return httpError("failed to shut down: %v", err)
	}
	return nil
}

// Reconfigure restarts the server if its address has changed.
func (s *Server) Reconfigure(addr string) error {
	if current := s.GetAddress(); current == addr && addr != "" {
		return nil
	}
	return s.Restart(addr)
}

// Restart restarts the server on the given address.
func (s *Server) Restart(addr string) error {
	s.Stop()
	return s.Start(addr)
}

// httpError returns a formatted instrumentation/http-specific error.
func httpError(format string, args ...interface{}) error {
	return fmt.Errorf("instrumentation/http: "+format, args...)
}
