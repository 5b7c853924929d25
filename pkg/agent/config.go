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
	"errors"

	"github.com/carverauto/fleetradar/pkg/logger"
)

var (
	// ErrMissingServerURL indicates a config without the fleet server URL.
	ErrMissingServerURL = errors.New("server_url is required")
	// ErrInvalidInterval indicates a non-positive push interval.
	ErrInvalidInterval = errors.New("push_interval_seconds must be positive")
)

// Config is the agent configuration document.
type Config struct {
	ServerURL           string         `json:"server_url"`
	ListenAddr          string         `json:"listen_addr"`
	DeviceName          string         `json:"device_name"`
	DeviceID            string         `json:"device_id,omitempty"`
	PushIntervalSeconds int            `json:"push_interval_seconds"`
	ComposeFile         string         `json:"compose_file"`
	BaseComposeFile     string         `json:"base_compose_file"`
	DockerSocket        string         `json:"docker_socket,omitempty"`
	Logging             *logger.Config `json:"logging,omitempty"`
}

// Validate implements config.Validator.
func (c *Config) Validate() error {
	if c.ServerURL == "" {
		return ErrMissingServerURL
	}

	if c.PushIntervalSeconds <= 0 {
		return ErrInvalidInterval
	}

	return nil
}
