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
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	goxrate "golang.org/x/time/rate"
)

func TestRateLimitWindow(t *testing.T) {
	ratelimit := RateLimit(Default(), Rate{Window: MinimumWindow, Limit: Every(time.Second)})
	rl := ratelimit.(*ratelimited)

	limiters := make(map[string]*goxrate.Limiter)

	// fill message window, store limiters for checking
	messages := make([]string, 0, MinimumWindow)
	for idx := 0; idx < cap(messages); idx++ {
		msg := fmt.Sprintf("message #%d", idx)
		messages = append(messages, msg)
		limiters[msg] = rl.getMessageLimit(msg)
	}

	for msg, limiter := range limiters {
		require.Same(t, limiter, rl.getMessageLimit(msg), "limiter for message %s", msg)
	}

	// create more messages, shifting out the oldest ones
	recent := make([]string, 0, MinimumWindow/5)
	for i := 0; i < cap(recent); i++ {
		msg := fmt.Sprintf("message #%d", len(messages)+i)
		recent = append(recent, msg)
		limiters[msg] = rl.getMessageLimit(msg)
	}
	require.Len(t, rl.window, MinimumWindow)
	require.Len(t, rl.limits, MinimumWindow)

	for _, msg := range recent {
		require.Same(t, limiters[msg], rl.getMessageLimit(msg), "recent message %s", msg)
	}
	for idx := len(recent); idx < len(messages); idx++ {
		msg := messages[idx]
		require.Same(t, limiters[msg], rl.getMessageLimit(msg), "in-window message %s", msg)
	}
	for idx := 0; idx < len(recent); idx++ {
		msg := messages[idx]
		require.NotSame(t, limiters[msg], rl.getMessageLimit(msg), "shifted out message %s", msg)
	}
}

func TestRateLimitFiltering(t *testing.T) {
	tl := setup(t)

	rl := RateLimit(NewLogger("test"), Interval(time.Hour))
	for i := 0; i < 3; i++ {
		rl.Warn("register read failed")
	}
	rl.Warn("another failure")

	require.Equal(t, []string{
		"W: [test] <rate-limited> register read failed",
		"W: [test] <rate-limited> another failure",
	}, tl.messages())

	require.Equal(t, DefaultWindow, RateLimit(Default(), Rate{}).(*ratelimited).rate.Window)
	require.Equal(t, MinimumWindow, RateLimit(Default(), Rate{Window: 1}).(*ratelimited).rate.Window)
}
