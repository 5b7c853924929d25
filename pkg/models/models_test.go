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
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeviceTelemetryValidate(t *testing.T) {
	valid := DeviceTelemetry{
		DeviceID:     "abc",
		Name:         "bench-device",
		PushInterval: 60,
		Containers: []ContainerSnapshot{{
			Name:      "web",
			ImageRepo: "myorg/myrepo",
			ImageTag:  "v1",
		}},
	}

	require.NoError(t, valid.Validate())

	tests := []struct {
		name    string
		mutate  func(*DeviceTelemetry)
		wantErr error
	}{
		{
			name:    "missing device id",
			mutate:  func(d *DeviceTelemetry) { d.DeviceID = "" },
			wantErr: ErrMissingDeviceID,
		},
		{
			name:    "zero push interval",
			mutate:  func(d *DeviceTelemetry) { d.PushInterval = 0 },
			wantErr: ErrInvalidPushInterval,
		},
		{
			name:    "negative push interval",
			mutate:  func(d *DeviceTelemetry) { d.PushInterval = -5 },
			wantErr: ErrInvalidPushInterval,
		},
		{
			name:    "container without name",
			mutate:  func(d *DeviceTelemetry) { d.Containers[0].Name = "" },
			wantErr: ErrMissingContainerName,
		},
		{
			name:    "container without image",
			mutate:  func(d *DeviceTelemetry) { d.Containers[0].ImageTag = "" },
			wantErr: ErrMissingContainerImage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			telemetry := valid
			telemetry.Containers = []ContainerSnapshot{valid.Containers[0]}
			tt.mutate(&telemetry)

			assert.ErrorIs(t, telemetry.Validate(), tt.wantErr)
		})
	}
}

func TestCommandValidate(t *testing.T) {
	tests := []struct {
		name    string
		cmd     Command
		wantErr error
	}{
		{name: "stop with target", cmd: Command{Type: CommandStopContainer, ContainerName: "web"}},
		{name: "start with target", cmd: Command{Type: CommandStartContainer, ContainerName: "web"}},
		{name: "update with target", cmd: Command{Type: CommandUpdateContainer, ContainerName: "web"}},
		{name: "read compose", cmd: Command{Type: CommandReadCompose}},
		{name: "write compose with content", cmd: Command{Type: CommandWriteCompose, Content: "services: {}"}},
		{name: "remove device", cmd: Command{Type: CommandRemoveDevice}},
		{
			name:    "stop without target",
			cmd:     Command{Type: CommandStopContainer},
			wantErr: ErrCommandMissingContainer,
		},
		{
			name:    "write compose without content",
			cmd:     Command{Type: CommandWriteCompose},
			wantErr: ErrCommandMissingContent,
		},
		{
			name:    "unknown type",
			cmd:     Command{Type: CommandType(42)},
			wantErr: ErrUnknownCommandType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cmd.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestCommandTypeWireValues(t *testing.T) {
	// These are wire values shared with deployed agents; renumbering them
	// breaks command delivery across versions.
	assert.Equal(t, 10, int(CommandStopContainer))
	assert.Equal(t, 20, int(CommandStartContainer))
	assert.Equal(t, 100, int(CommandUpdateContainer))
	assert.Equal(t, 110, int(CommandReadCompose))
	assert.Equal(t, 111, int(CommandWriteCompose))
	assert.Equal(t, 120, int(CommandRemoveDevice))
}

func TestDurationUnmarshal(t *testing.T) {
	var d Duration

	require.NoError(t, json.Unmarshal([]byte(`"6h"`), &d))
	assert.Equal(t, Duration(6*time.Hour), d)

	require.NoError(t, json.Unmarshal([]byte(`1000000000`), &d))
	assert.Equal(t, Duration(time.Second), d)

	assert.Error(t, json.Unmarshal([]byte(`"not a duration"`), &d))
	assert.ErrorIs(t, json.Unmarshal([]byte(`true`), &d), ErrInvalidDuration)
}

func TestTelemetryWireFieldNames(t *testing.T) {
	telemetry := DeviceTelemetry{
		DeviceID:     "abc",
		Name:         "bench-device",
		CPULoad:      12.5,
		MemoryUsage:  40.0,
		PushInterval: 60,
		Containers: []ContainerSnapshot{{
			Name:        "web",
			ShortID:     "abc123def0",
			ImageDigest: "sha:AAA",
		}},
	}

	payload, err := json.Marshal(telemetry)
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(payload, &doc))

	assert.Contains(t, doc, "id")
	assert.Contains(t, doc, "cpu_load")
	assert.Contains(t, doc, "memory_usage")
	assert.Contains(t, doc, "push_interval")

	containers, ok := doc["containers"].([]interface{})
	require.True(t, ok)
	require.Len(t, containers, 1)

	container, ok := containers[0].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "abc123def0", container["id"])
	assert.Equal(t, "sha:AAA", container["image_sha"])
}
