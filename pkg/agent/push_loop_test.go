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

package agent

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/fleetradar/pkg/logger"
	"github.com/carverauto/fleetradar/pkg/models"
)

func stubHostStats(t *testing.T) {
	t.Helper()

	origCPU := cpuPercentWithContext
	origMem := virtualMemoryWithContext

	cpuPercentWithContext = func(_ context.Context, _ time.Duration, _ bool) ([]float64, error) {
		return []float64{12.5}, nil
	}
	virtualMemoryWithContext = func(_ context.Context) (*mem.VirtualMemoryStat, error) {
		return &mem.VirtualMemoryStat{UsedPercent: 40.0}, nil
	}

	t.Cleanup(func() {
		cpuPercentWithContext = origCPU
		virtualMemoryWithContext = origMem
	})
}

type fakeSender struct {
	mu     sync.Mutex
	pushes []models.DeviceTelemetry
	pushed chan struct{}
	err    error
}

func newFakeSender() *fakeSender {
	return &fakeSender{pushed: make(chan struct{}, 16)}
}

func (f *fakeSender) Push(_ context.Context, telemetry models.DeviceTelemetry) error {
	f.mu.Lock()
	f.pushes = append(f.pushes, telemetry)
	f.mu.Unlock()

	f.pushed <- struct{}{}

	return f.err
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.pushes)
}

func awaitPush(t *testing.T, sender *fakeSender) {
	t.Helper()

	select {
	case <-sender.pushed:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a telemetry push")
	}
}

func newTestPushLoop(t *testing.T, sender TelemetrySender) (*PushLoop, chan time.Time) {
	t.Helper()

	stubHostStats(t)

	collector := NewCollector("abc", "bench-device", 60, &fakeRuntime{
		containers: []models.ContainerSnapshot{{Name: "web", Status: "running"}},
	}, logger.NewTestLogger())

	p := NewPushLoop(collector, sender, time.Minute, logger.NewTestLogger())

	timer := make(chan time.Time)
	p.after = func(time.Duration) <-chan time.Time { return timer }

	return p, timer
}

func TestPushLoopPushesImmediatelyThenOnTimer(t *testing.T) {
	sender := newFakeSender()
	p, timer := newTestPushLoop(t, sender)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- p.Start(ctx) }()

	// First push happens at startup, before any timer fires.
	awaitPush(t, sender)

	timer <- time.Time{}
	awaitPush(t, sender)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	assert.Equal(t, 2, sender.count())
	assert.Equal(t, "abc", sender.pushes[0].DeviceID)
	assert.Equal(t, 60, sender.pushes[0].PushInterval)
	require.Len(t, sender.pushes[0].Containers, 1)
	assert.Equal(t, "web", sender.pushes[0].Containers[0].Name)
}

func TestWakeNowShortCircuitsTheSleep(t *testing.T) {
	sender := newFakeSender()
	p, _ := newTestPushLoop(t, sender)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- p.Start(ctx) }()

	awaitPush(t, sender)

	// The timer never fires in this test, so the second push can only
	// come from the wake signal.
	p.WakeNow()
	awaitPush(t, sender)

	cancel()
	<-done
}

func TestWakeNowNeverBlocks(t *testing.T) {
	sender := newFakeSender()
	p, _ := newTestPushLoop(t, sender)

	// Repeated signals with no running loop collapse into the single
	// buffered slot instead of blocking the caller.
	for i := 0; i < 10; i++ {
		p.WakeNow()
	}
}

func TestPushLoopKeepsRunningAfterSendFailure(t *testing.T) {
	sender := newFakeSender()
	sender.err = errors.New("server unreachable")

	p, timer := newTestPushLoop(t, sender)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- p.Start(ctx) }()

	awaitPush(t, sender)

	// A failed push is dropped and the loop carries on to the next cycle.
	timer <- time.Time{}
	awaitPush(t, sender)

	cancel()
	<-done

	assert.Equal(t, 2, sender.count())
}

func TestCollectorPropagatesRuntimeFailure(t *testing.T) {
	stubHostStats(t)

	collector := NewCollector("abc", "bench-device", 60, &fakeRuntime{
		listErr: errors.New("docker daemon unreachable"),
	}, logger.NewTestLogger())

	_, err := collector.Collect(context.Background())
	require.Error(t, err)
}

func TestCollectorSnapshotsHostStats(t *testing.T) {
	stubHostStats(t)

	collector := NewCollector("abc", "bench-device", 30, &fakeRuntime{}, logger.NewTestLogger())

	telemetry, err := collector.Collect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "abc", telemetry.DeviceID)
	assert.Equal(t, "bench-device", telemetry.Name)
	assert.InDelta(t, 12.5, telemetry.CPULoad, 0.001)
	assert.InDelta(t, 40.0, telemetry.MemoryUsage, 0.001)
	assert.Equal(t, 30, telemetry.PushInterval)
}
