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

	"github.com/carverauto/fleetradar/pkg/models"
)

// ContainerRuntime is the local container engine as the agent sees it.
// Inspection and lifecycle operations live behind this interface; the
// agent core treats the runtime as a data source and never parses engine
// output itself.
type ContainerRuntime interface {
	// Containers inspects every container on the host, running or not.
	Containers(ctx context.Context) ([]models.ContainerSnapshot, error)
	// StartContainer starts the named container.
	StartContainer(ctx context.Context, name string) error
	// StopContainer stops the named container.
	StopContainer(ctx context.Context, name string) error
	// UpdateContainer recreates the named container from the latest image.
	UpdateContainer(ctx context.Context, name string) error
}

// TelemetrySender pushes one telemetry document to the fleet server.
type TelemetrySender interface {
	Push(ctx context.Context, telemetry models.DeviceTelemetry) error
}
