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

// Package core holds the fleet server's service configuration.
package core

import (
	"errors"

	"github.com/carverauto/fleetradar/pkg/dockerhub"
	"github.com/carverauto/fleetradar/pkg/logger"
)

// ErrMissingListenAddr indicates a config without a listen address.
var ErrMissingListenAddr = errors.New("listen_addr is required")

// Config is the fleet server configuration document.
type Config struct {
	ListenAddr string           `json:"listen_addr"`
	APIKey     string           `json:"api_key,omitempty"`
	AgentPort  int              `json:"agent_port,omitempty"`
	DockerHub  dockerhub.Config `json:"docker_hub"`
	Logging    *logger.Config   `json:"logging,omitempty"`
}

// Validate implements config.Validator.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return ErrMissingListenAddr
	}

	return c.DockerHub.Validate()
}
