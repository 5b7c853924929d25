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

package command

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/carverauto/fleetradar/pkg/logger"
	"github.com/carverauto/fleetradar/pkg/models"
)

const (
	defaultAgentPort      = 5000
	defaultDeliverTimeout = 10 * time.Second
)

// HTTPTransport delivers commands by calling the agent's command endpoint
// directly at its last-seen IP (pull-by-IP delivery).
type HTTPTransport struct {
	client    *http.Client
	agentPort int
	logger    logger.Logger
}

// NewHTTPTransport creates the direct-call transport. A zero agentPort
// selects the default agent port.
func NewHTTPTransport(client *http.Client, agentPort int, log logger.Logger) *HTTPTransport {
	if client == nil {
		client = &http.Client{Timeout: defaultDeliverTimeout}
	}

	if agentPort <= 0 {
		agentPort = defaultAgentPort
	}

	return &HTTPTransport{
		client:    client,
		agentPort: agentPort,
		logger:    log,
	}
}

// Deliver posts the command to http://<address>:<port>/command.
func (t *HTTPTransport) Deliver(ctx context.Context, address string, cmd models.Command) error {
	body, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("failed to encode command: %w", err)
	}

	host := address
	if _, _, splitErr := net.SplitHostPort(address); splitErr != nil {
		host = net.JoinHostPort(address, strconv.Itoa(t.agentPort))
	}

	url := fmt.Sprintf("http://%s/command", host)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build command request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("command request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("agent returned status %d", resp.StatusCode)
	}

	return nil
}
