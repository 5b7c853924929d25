/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package fleet

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsOnline(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		interval int
		elapsed  time.Duration
		want     bool
	}{
		{name: "just reported", interval: 60, elapsed: 0, want: true},
		{name: "within one interval", interval: 60, elapsed: 59 * time.Second, want: true},
		{name: "one missed heartbeat tolerated", interval: 60, elapsed: 119 * time.Second, want: true},
		{name: "exactly at the grace bound", interval: 60, elapsed: 120 * time.Second, want: false},
		{name: "past the grace bound", interval: 60, elapsed: 121 * time.Second, want: false},
		{name: "short interval online", interval: 5, elapsed: 9 * time.Second, want: true},
		{name: "short interval offline", interval: 5, elapsed: 10 * time.Second, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsOnline(base, tt.interval, base.Add(tt.elapsed))
			assert.Equal(t, tt.want, got)
		})
	}
}
