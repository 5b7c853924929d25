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

// Package agent runs on each device: it snapshots host and container
// state, pushes telemetry to the fleet server, and executes incoming
// operator commands.
package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/carverauto/fleetradar/pkg/logger"
	"github.com/carverauto/fleetradar/pkg/models"
)

const cpuSampleWindow = 2 * time.Second

var (
	cpuPercentWithContext    = cpu.PercentWithContext
	virtualMemoryWithContext = mem.VirtualMemoryWithContext
)

// Collector assembles one telemetry document per push cycle.
type Collector struct {
	deviceID     string
	deviceName   string
	pushInterval int
	runtime      ContainerRuntime
	logger       logger.Logger
}

// NewCollector creates a telemetry collector for this device.
func NewCollector(deviceID, deviceName string, pushIntervalSeconds int, runtime ContainerRuntime, log logger.Logger) *Collector {
	return &Collector{
		deviceID:     deviceID,
		deviceName:   deviceName,
		pushInterval: pushIntervalSeconds,
		runtime:      runtime,
		logger:       log,
	}
}

// Collect takes a fresh host and container snapshot.
func (c *Collector) Collect(ctx context.Context) (models.DeviceTelemetry, error) {
	containers, err := c.runtime.Containers(ctx)
	if err != nil {
		return models.DeviceTelemetry{}, fmt.Errorf("failed to inspect containers: %w", err)
	}

	cpuLoad, memUsage := c.hostStats(ctx)

	return models.DeviceTelemetry{
		DeviceID:     c.deviceID,
		Name:         c.deviceName,
		CPULoad:      cpuLoad,
		MemoryUsage:  memUsage,
		PushInterval: c.pushInterval,
		Containers:   containers,
	}, nil
}

// hostStats samples CPU and memory usage. Host stats are best effort;
// a sampling failure zeroes the field rather than dropping the telemetry.
func (c *Collector) hostStats(ctx context.Context) (cpuLoad, memUsage float64) {
	percents, err := cpuPercentWithContext(ctx, cpuSampleWindow, false)
	if err != nil || len(percents) == 0 {
		c.logger.Warn().Err(err).Msg("Failed to sample CPU load")
	} else {
		cpuLoad = percents[0]
	}

	vm, err := virtualMemoryWithContext(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Failed to sample memory usage")
	} else {
		memUsage = vm.UsedPercent
	}

	return cpuLoad, memUsage
}
