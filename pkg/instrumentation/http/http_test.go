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

package http

import (
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStartStop(t *testing.T) {
	srv := NewServer()

	require.NoError(t, srv.Start(":0"))
	require.NotEmpty(t, srv.GetAddress())
	require.Error(t, srv.Start(":0"), "double start")
	srv.Stop()
	require.Empty(t, srv.GetAddress())

	require.NoError(t, srv.Start(":0"))
	require.NoError(t, srv.Restart(":0"))

	addr := srv.GetAddress()
	require.NoError(t, srv.Reconfigure(addr))
	require.Equal(t, addr, srv.GetAddress())
	require.NoError(t, srv.Reconfigure(":0"))

	require.NoError(t, srv.Shutdown())
	require.Empty(t, srv.GetAddress())

	require.NoError(t, srv.Start(""))
	require.Empty(t, srv.GetAddress())
}

func checkURL(t *testing.T, srv *Server, path, response string, status int) {
	url := "http://" + srv.GetAddress() + path

	res, err := http.Get(url)
	require.NoError(t, err, "GET %s", url)
	defer res.Body.Close()

	require.Equal(t, status, res.StatusCode, "GET %s", url)

	txt, err := io.ReadAll(res.Body)
	require.NoError(t, err, "GET %s", url)
	require.Equal(t, response, string(txt), "GET %s", url)
}

type testHandler struct {
	response string
}

func (h *testHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	_, _ = w.Write([]byte(h.response))
}

func TestPatterns(t *testing.T) {
	srv := NewServer()
	mux := srv.GetMux()

	require.NoError(t, srv.Start("127.0.0.1:0"))
	defer srv.Stop()

	rh := &testHandler{"/"}
	ah := &testHandler{"a"}
	bh := &testHandler{"b"}
	ch := &testHandler{"c"}

	require.NoError(t, mux.Handle("/a", ah))
	checkURL(t, srv, "/a", "a", 200)
	require.Error(t, mux.Handle("/a", bh))

	require.NoError(t, mux.Handle("/b", bh))
	checkURL(t, srv, "/b", "b", 200)

	require.NoError(t, mux.Handle("/", rh))
	checkURL(t, srv, "/b", "b", 200)

	_, ok := mux.Unregister("/b")
	require.True(t, ok)
	checkURL(t, srv, "/b", "/", 200)
	_, ok = mux.Unregister("/b")
	require.False(t, ok)

	require.NoError(t, mux.HandleFunc("/b", ch.ServeHTTP))
	checkURL(t, srv, "/b", "c", 200)

	mux.Unregister("/a")
	checkURL(t, srv, "/a", "/", 200)

	require.Equal(t, []string{"/", "/b"}, mux.Patterns())

	// handlers survive restarts
	require.NoError(t, srv.Restart("127.0.0.1:0"))
	checkURL(t, srv, "/b", "c", 200)
}
