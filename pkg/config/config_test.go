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

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type hubSection struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type testConfig struct {
	ListenAddr string     `json:"listen_addr"`
	AgentPort  int        `json:"agent_port"`
	Debug      bool       `json:"debug"`
	DockerHub  hubSection `json:"docker_hub"`
}

var errMissingListenAddr = errors.New("listen_addr is required")

func (c *testConfig) Validate() error {
	if c.ListenAddr == "" {
		return errMissingListenAddr
	}

	return nil
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func TestLoadAndValidateFromFile(t *testing.T) {
	path := writeConfigFile(t, `{
		"listen_addr": ":5010",
		"agent_port": 5000,
		"docker_hub": {"username": "tester", "password": "secret"}
	}`)

	var cfg testConfig
	require.NoError(t, NewConfig(nil).LoadAndValidate(context.Background(), path, &cfg))

	assert.Equal(t, ":5010", cfg.ListenAddr)
	assert.Equal(t, 5000, cfg.AgentPort)
	assert.Equal(t, "tester", cfg.DockerHub.Username)
}

func TestLoadAndValidateMissingFile(t *testing.T) {
	var cfg testConfig

	err := NewConfig(nil).LoadAndValidate(context.Background(), "/nonexistent/config.json", &cfg)
	require.Error(t, err)
}

func TestLoadAndValidateRejectsInvalidConfig(t *testing.T) {
	path := writeConfigFile(t, `{"agent_port": 5000}`)

	var cfg testConfig

	err := NewConfig(nil).LoadAndValidate(context.Background(), path, &cfg)
	require.ErrorIs(t, err, errMissingListenAddr)
}

func TestEnvOverridesFileValues(t *testing.T) {
	path := writeConfigFile(t, `{
		"listen_addr": ":5010",
		"agent_port": 5000,
		"docker_hub": {"username": "from-file", "password": "secret"}
	}`)

	t.Setenv("FLEETRADAR_AGENTPORT", "6000")
	t.Setenv("FLEETRADAR_DEBUG", "true")
	t.Setenv("FLEETRADAR_DOCKERHUB_USERNAME", "from-env")

	var cfg testConfig
	require.NoError(t, NewConfig(nil).LoadAndValidate(context.Background(), path, &cfg))

	assert.Equal(t, 6000, cfg.AgentPort)
	assert.True(t, cfg.Debug)
	assert.Equal(t, "from-env", cfg.DockerHub.Username)

	// Fields without a matching variable keep their file values.
	assert.Equal(t, ":5010", cfg.ListenAddr)
	assert.Equal(t, "secret", cfg.DockerHub.Password)
}

func TestEnvRejectsUnparseableOverride(t *testing.T) {
	path := writeConfigFile(t, `{"listen_addr": ":5010"}`)

	t.Setenv("FLEETRADAR_AGENTPORT", "not-a-number")

	var cfg testConfig

	err := NewConfig(nil).LoadAndValidate(context.Background(), path, &cfg)
	require.Error(t, err)
}

func TestConfigJSONEnvWinsWhole(t *testing.T) {
	path := writeConfigFile(t, `{"listen_addr": ":5010", "agent_port": 5000}`)

	t.Setenv("FLEETRADAR_CONFIG_JSON", `{"listen_addr": ":9090", "agent_port": 7000}`)

	var cfg testConfig
	require.NoError(t, NewConfig(nil).LoadAndValidate(context.Background(), path, &cfg))

	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, 7000, cfg.AgentPort)
}
