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

package hwp

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
)

const (
	// HTTPStatusPath serves the discovery result and the state of all cores.
	HTTPStatusPath = "/hwp/status"
	// HTTPCPUPath is the prefix of per-CPU endpoints: /hwp/cpu/<N>/{epp,dump,freq}.
	HTTPCPUPath = "/hwp/cpu/"

	// maxBody is the largest accepted request body.
	maxBody = 64
)

// Mux can register HTTP handler functions.
type Mux interface {
	HandleFunc(pattern string, fn func(http.ResponseWriter, *http.Request)) error
}

// ManagerStatus is the state of a manager and its cores.
type ManagerStatus struct {
	Discovery Status       `json:"discovery"`
	Type      Type         `json:"type"`
	Cores     []CoreStatus `json:"cores"`
}

// FreqStatus is a frequency setting with the type of control.
type FreqStatus struct {
	Setting
	Type Type `json:"type"`
}

// Status returns the state of the manager and its cores.
func (m *Manager) Status() ManagerStatus {
	s := ManagerStatus{
		Discovery: m.disc.Status(),
		Type:      m.Type(),
		Cores:     []CoreStatus{},
	}
	for _, cpu := range m.Cores() {
		if c := m.Core(cpu); c != nil {
			s.Cores = append(s.Cores, c.Status())
		}
	}
	return s
}

// RegisterHandlers registers the HTTP endpoints of the manager.
func (m *Manager) RegisterHandlers(mux Mux) error {
	if err := mux.HandleFunc(HTTPStatusPath, m.serveStatus); err != nil {
		return err
	}
	return mux.HandleFunc(HTTPCPUPath, m.serveCPU)
}

func (m *Manager) serveStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, m.Status())
}

func (m *Manager) serveCPU(w http.ResponseWriter, r *http.Request) {
	split := strings.Split(strings.TrimPrefix(r.URL.Path, HTTPCPUPath), "/")
	if len(split) != 2 {
		http.NotFound(w, r)
		return
	}
	cpu, err := strconv.Atoi(split[0])
	if err != nil {
		http.Error(w, "invalid CPU "+strconv.Quote(split[0]), http.StatusBadRequest)
		return
	}

	switch op := split[1]; {
	case op == "epp" && r.Method == http.MethodGet:
		epp, err := m.EPP(cpu)
		if err != nil {
			httpError(w, err)
			return
		}
		io.WriteString(w, strconv.Itoa(epp)+"\n")

	case op == "epp" && (r.Method == http.MethodPut || r.Method == http.MethodPost):
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		value, err := ParseEPP(string(body))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := m.SetEPP(cpu, value); err != nil {
			httpError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	case op == "dump" && r.Method == http.MethodGet:
		dump, err := m.Dump(cpu)
		if err != nil {
			httpError(w, err)
			return
		}
		io.WriteString(w, dump)

	case op == "freq" && r.Method == http.MethodGet:
		s, err := m.Get(cpu)
		if err != nil {
			httpError(w, err)
			return
		}
		writeJSON(w, FreqStatus{Setting: s, Type: m.Type()})

	case op == "epp" || op == "dump" || op == "freq":
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)

	default:
		http.NotFound(w, r)
	}
}

// httpError replies with an error, picking the status code by its kind.
func httpError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrNotAttached):
		status = http.StatusNotFound
	case errors.Is(err, ErrCoreUnavailable):
		status = http.StatusServiceUnavailable
	}
	http.Error(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, obj interface{}) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(obj); err != nil {
		log.Error("failed to encode HTTP response: %v", err)
	}
}
