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

package models

import (
	"errors"
	"time"
)

var (
	// ErrMissingDeviceID indicates telemetry without a device identifier.
	ErrMissingDeviceID = errors.New("telemetry is missing device id")
	// ErrInvalidPushInterval indicates a non-positive push interval.
	ErrInvalidPushInterval = errors.New("telemetry push interval must be positive")
	// ErrMissingContainerName indicates a container snapshot without a name.
	ErrMissingContainerName = errors.New("container snapshot is missing name")
	// ErrMissingContainerImage indicates a container snapshot without image coordinates.
	ErrMissingContainerImage = errors.New("container snapshot is missing image repo or tag")
)

// ContainerSnapshot is the state of one container as inspected on the
// device. It is produced wholesale by the agent each push cycle and is
// never mutated by the server.
type ContainerSnapshot struct {
	Name        string `json:"name"`
	ShortID     string `json:"id"`
	FullID      string `json:"full_id"`
	ImageRepo   string `json:"image_repo"`
	ImageTag    string `json:"image_tag"`
	ImageDigest string `json:"image_sha"`
	Status      string `json:"status"`
}

// Validate checks the fields the server depends on. The agent fills every
// field, but telemetry arrives over the network and is rejected whole if
// any container entry is unusable.
func (c *ContainerSnapshot) Validate() error {
	if c.Name == "" {
		return ErrMissingContainerName
	}

	if c.ImageRepo == "" || c.ImageTag == "" {
		return ErrMissingContainerImage
	}

	return nil
}

// DeviceTelemetry is the full state report a device pushes each heartbeat.
// Each report replaces the previous one for that device; there is no
// partial merge.
type DeviceTelemetry struct {
	DeviceID     string              `json:"id"`
	Name         string              `json:"name"`
	CPULoad      float64             `json:"cpu_load"`
	MemoryUsage  float64             `json:"memory_usage"`
	PushInterval int                 `json:"push_interval"`
	Containers   []ContainerSnapshot `json:"containers"`
}

// Validate rejects telemetry that cannot be ingested. A failure here means
// the whole document is dropped at the boundary.
func (t *DeviceTelemetry) Validate() error {
	if t.DeviceID == "" {
		return ErrMissingDeviceID
	}

	if t.PushInterval <= 0 {
		return ErrInvalidPushInterval
	}

	for i := range t.Containers {
		if err := t.Containers[i].Validate(); err != nil {
			return err
		}
	}

	return nil
}

// ContainerView is a container snapshot with the derived update flag
// attached. UpdateAvailable is nil when the remote digest could not be
// resolved, which renders distinctly from a confirmed false.
type ContainerView struct {
	Name            string `json:"name"`
	ShortID         string `json:"id"`
	FullID          string `json:"full_id"`
	ImageRepo       string `json:"image_repo"`
	ImageTag        string `json:"image_tag"`
	ImageDigest     string `json:"image_sha"`
	Status          string `json:"status"`
	UpdateAvailable *bool  `json:"update_available"`
}

// DeviceView is the presentable state of one device. Online is derived at
// read time from LastSeen and the declared push interval; it is never
// stored.
type DeviceView struct {
	DeviceID     string          `json:"id"`
	Name         string          `json:"name"`
	CPULoad      float64         `json:"cpu_load"`
	MemoryUsage  float64         `json:"memory_usage"`
	PushInterval int             `json:"push_interval"`
	LastSeen     time.Time       `json:"last_updated"`
	Online       bool            `json:"online"`
	Containers   []ContainerView `json:"containers"`
}

// FleetView maps device IDs to their presentable state. Consumers key
// into it by device ID; on the wire it serializes as a JSON object with
// keys in sorted order.
type FleetView map[string]DeviceView
