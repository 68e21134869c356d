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

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/intel/hwp-manager/pkg/hwp"
)

const (
	// default hwp-manager HTTP endpoint
	defaultEndpoint = "127.0.0.1:8891"
	// timeout for requests to hwp-manager
	requestTimeout = 10 * time.Second
)

// defaultServer returns the HTTP endpoint to talk to, honoring HTTP_ENDPOINT.
func defaultServer() string {
	if addr, ok := os.LookupEnv("HTTP_ENDPOINT"); ok && addr != "" {
		return addr
	}
	return defaultEndpoint
}

// client talks to the HTTP endpoint of a running hwp-manager.
type client struct {
	base string
	http *http.Client
}

func newClient(server string) *client {
	if !strings.Contains(server, "://") {
		server = "http://" + server
	}
	return &client{
		base: strings.TrimSuffix(server, "/"),
		http: &http.Client{Timeout: requestTimeout},
	}
}

// do sends a request and returns the response body, or an error for non-2xx replies.
func (c *client) do(method, path, body string) ([]byte, error) {
	req, err := http.NewRequest(method, c.base+path, strings.NewReader(body))
	if err != nil {
		return nil, err
	}

	rpl, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s failed", method, path)
	}
	defer rpl.Body.Close()

	data, err := io.ReadAll(rpl.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s: failed to read reply", method, path)
	}
	if rpl.StatusCode/100 != 2 {
		return nil, errors.Errorf("%s %s: %s: %s", method, path, rpl.Status,
			strings.TrimSpace(string(data)))
	}

	return data, nil
}

func (c *client) getJSON(path string, obj interface{}) ([]byte, error) {
	data, err := c.do(http.MethodGet, path, "")
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, obj); err != nil {
		return nil, errors.Wrapf(err, "GET %s: invalid reply", path)
	}
	return data, nil
}

// Status fetches the status of the manager and all its cores.
func (c *client) Status() (hwp.ManagerStatus, []byte, error) {
	s := hwp.ManagerStatus{}
	raw, err := c.getJSON(hwp.HTTPStatusPath, &s)
	return s, raw, err
}

// EPP fetches the energy/performance preference of a CPU.
func (c *client) EPP(cpu int) (int, error) {
	data, err := c.do(http.MethodGet, cpuPath(cpu, "epp"), "")
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

// SetEPP sets the energy/performance preference of a CPU.
func (c *client) SetEPP(cpu, value int) error {
	_, err := c.do(http.MethodPut, cpuPath(cpu, "epp"), strconv.Itoa(value))
	return err
}

// Dump fetches the register dump of a CPU.
func (c *client) Dump(cpu int) (string, error) {
	data, err := c.do(http.MethodGet, cpuPath(cpu, "dump"), "")
	return string(data), err
}

// Freq fetches the frequency setting of a CPU.
func (c *client) Freq(cpu int) (hwp.FreqStatus, error) {
	f := hwp.FreqStatus{}
	_, err := c.getJSON(cpuPath(cpu, "freq"), &f)
	return f, err
}

// Metrics fetches the exported metrics in text exposition format.
func (c *client) Metrics() (io.ReadCloser, error) {
	rpl, err := c.http.Get(c.base + "/metrics")
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch metrics")
	}
	if rpl.StatusCode != http.StatusOK {
		rpl.Body.Close()
		return nil, errors.Errorf("failed to fetch metrics: %s", rpl.Status)
	}
	return rpl.Body, nil
}

func cpuPath(cpu int, op string) string {
	return fmt.Sprintf("%s%d/%s", hwp.HTTPCPUPath, cpu, op)
}
