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
	"time"

	"github.com/carverauto/fleetradar/pkg/logger"
)

const defaultPushInterval = 60 * time.Second

// PushLoop manages the periodic pushing of device telemetry to the fleet
// server. One loop runs per device; pushes never overlap because the loop
// is a single goroutine that paces itself with max(0, interval - elapsed).
type PushLoop struct {
	collector *Collector
	sender    TelemetrySender
	interval  time.Duration
	wake      chan struct{}
	logger    logger.Logger

	now   func() time.Time
	after func(time.Duration) <-chan time.Time
}

// NewPushLoop creates a push loop.
func NewPushLoop(collector *Collector, sender TelemetrySender, interval time.Duration, log logger.Logger) *PushLoop {
	if interval <= 0 {
		interval = defaultPushInterval
	}

	return &PushLoop{
		collector: collector,
		sender:    sender,
		interval:  interval,
		wake:      make(chan struct{}, 1),
		logger:    log,
		now:       time.Now,
		after:     time.After,
	}
}

// Start runs the loop until the context is cancelled.
func (p *PushLoop) Start(ctx context.Context) error {
	p.logger.Info().Dur("interval", p.interval).Msg("Starting telemetry push loop")

	for {
		start := p.now()

		p.pushOnce(ctx)

		wait := p.interval - p.now().Sub(start)
		if wait < 0 {
			wait = 0
		}

		select {
		case <-ctx.Done():
			p.logger.Info().Msg("Push loop stopping due to context cancellation")
			return ctx.Err()
		case <-p.wake:
			// Fall through to the next cycle immediately.
		case <-p.after(wait):
		}
	}
}

// WakeNow short-circuits the current sleep so the next push happens
// immediately. A signal arriving while a push is in flight is absorbed by
// the buffered channel and honored after that push completes; it never
// causes overlapping pushes.
func (p *PushLoop) WakeNow() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// pushOnce takes a snapshot and sends it. A failed push is dropped; the
// next cycle retries with fresh data.
func (p *PushLoop) pushOnce(ctx context.Context) {
	telemetry, err := p.collector.Collect(ctx)
	if err != nil {
		p.logger.Warn().Err(err).Msg("Failed to collect telemetry")
		return
	}

	if err := p.sender.Push(ctx, telemetry); err != nil {
		p.logger.Warn().
			Err(err).
			Int("containers", len(telemetry.Containers)).
			Msg("Could not send telemetry to server")

		return
	}

	p.logger.Debug().
		Int("containers", len(telemetry.Containers)).
		Float64("cpu_load", telemetry.CPULoad).
		Msg("Pushed telemetry")
}
