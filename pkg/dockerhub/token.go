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

package dockerhub

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/carverauto/fleetradar/pkg/logger"
)

// Tokens are treated as expired slightly early so a request issued just
// before expiry cannot hit the registry with a stale bearer.
const tokenExpirySlack = 5 * time.Second

// tokenSource holds the single cached bearer token for the registry
// session. Refresh happens at most once concurrently: a second caller
// arriving during a refresh blocks on the mutex and reuses the fresh
// token via the double-check instead of issuing a duplicate request.
type tokenSource struct {
	mu        sync.Mutex
	value     string
	expiresAt time.Time

	httpClient httpDoer
	authURL    string
	username   string
	password   string
	repository string

	now    func() time.Time
	logger logger.Logger
}

func newTokenSource(cfg Config, client httpDoer, log logger.Logger) *tokenSource {
	return &tokenSource{
		httpClient: client,
		authURL:    cfg.AuthURL,
		username:   cfg.Username,
		password:   cfg.Password,
		repository: cfg.Repository,
		now:        time.Now,
		logger:     log,
	}
}

// bearer returns a valid token, refreshing the cached one if it has
// expired.
func (t *tokenSource) bearer(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.value != "" && t.now().Before(t.expiresAt) {
		return t.value, nil
	}

	if err := t.refreshLocked(ctx); err != nil {
		return "", err
	}

	return t.value, nil
}

func (t *tokenSource) refreshLocked(ctx context.Context) error {
	url := fmt.Sprintf("%s/token?service=registry.docker.io&scope=repository:%s:pull",
		t.authURL, t.repository)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to build token request: %w", err)
	}

	req.SetBasicAuth(t.username, t.password)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("token request returned status %d", resp.StatusCode)
	}

	var body tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("failed to decode token response: %w", err)
	}

	t.value = body.Token
	t.expiresAt = t.now().Add(time.Duration(body.ExpiresIn)*time.Second - tokenExpirySlack)

	t.logger.Debug().
		Time("expires_at", t.expiresAt).
		Msg("Refreshed docker hub token")

	return nil
}
