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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/carverauto/fleetradar/pkg/models"
)

const defaultPushTimeout = 10 * time.Second

// HTTPSender posts telemetry documents to the fleet server's telemetry
// endpoint.
type HTTPSender struct {
	client    *http.Client
	serverURL string
}

// NewHTTPSender creates a sender for the given server base URL
// (e.g. http://fleet.local:5010).
func NewHTTPSender(client *http.Client, serverURL string) *HTTPSender {
	if client == nil {
		client = &http.Client{Timeout: defaultPushTimeout}
	}

	return &HTTPSender{
		client:    client,
		serverURL: serverURL,
	}
}

// Push implements TelemetrySender.
func (s *HTTPSender) Push(ctx context.Context, telemetry models.DeviceTelemetry) error {
	body, err := json.Marshal(telemetry)
	if err != nil {
		return fmt.Errorf("failed to encode telemetry: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.serverURL+"/telemetry", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build telemetry request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("telemetry request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	return nil
}
