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
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrInvalidCompose indicates a compose document that is not valid YAML.
var ErrInvalidCompose = errors.New("compose content is not valid YAML")

// ComposeStore owns the device's compose file. Writes are validated as
// YAML before touching disk so a bad operator push cannot brick the
// device's deployment definition.
type ComposeStore struct {
	path string
}

// NewComposeStore creates a store for the compose file at path.
func NewComposeStore(path string) *ComposeStore {
	return &ComposeStore{path: path}
}

// Bootstrap copies the base compose file into place when the device
// compose file does not exist yet.
func (s *ComposeStore) Bootstrap(basePath string) error {
	if _, err := os.Stat(s.path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to stat compose file: %w", err)
	}

	base, err := os.ReadFile(basePath)
	if err != nil {
		return fmt.Errorf("failed to read base compose file: %w", err)
	}

	if err := os.WriteFile(s.path, base, 0o644); err != nil {
		return fmt.Errorf("failed to seed compose file: %w", err)
	}

	return nil
}

// Read returns the current compose document.
func (s *ComposeStore) Read() (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return "", fmt.Errorf("failed to read compose file: %w", err)
	}

	return string(data), nil
}

// Write validates and replaces the compose document.
func (s *ComposeStore) Write(content string) error {
	var doc map[string]interface{}
	if err := yaml.Unmarshal([]byte(content), &doc); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidCompose, err)
	}

	if err := os.WriteFile(s.path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write compose file: %w", err)
	}

	return nil
}
