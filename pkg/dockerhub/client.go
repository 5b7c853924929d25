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

// Package dockerhub resolves container image tags to remote content
// digests against Docker Hub, under the registry's request quota.
package dockerhub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/carverauto/fleetradar/pkg/logger"
)

// Client talks to one Docker Hub repository. Network and parsing failures
// never escape ResolveDigest; they resolve to StatusUnknown so a transient
// registry problem cannot poison the cache or crash a caller.
type Client struct {
	config     Config
	httpClient httpDoer
	token      *tokenSource
	cache      *digestCache
	logger     logger.Logger
}

// New creates a Docker Hub client and eagerly fetches a first token.
// Rejected credentials fail construction outright; any other startup
// failure is logged and retried lazily on first resolution.
func New(ctx context.Context, cfg Config, httpClient *http.Client, log logger.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cfg = cfg.withDefaults()

	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	c := &Client{
		config:     cfg,
		httpClient: httpClient,
		token:      newTokenSource(cfg, httpClient, log),
		cache:      newDigestCache(cfg.QuotaRequests, time.Duration(cfg.QuotaWindow)),
		logger:     log,
	}

	if _, err := c.token.bearer(ctx); err != nil {
		if errors.Is(err, ErrUnauthorized) {
			return nil, err
		}

		log.Warn().Err(err).Msg("Initial docker hub token fetch failed, will retry on demand")
	}

	return c, nil
}

// Repository returns the repository this client is bound to.
func (c *Client) Repository() string {
	return c.config.Repository
}

// ResolveDigest resolves (repo, tag) to the remote content digest. Lookups
// for any repository other than the configured one return StatusUnknown
// without a network call; the system only version-checks images it owns.
func (c *Client) ResolveDigest(ctx context.Context, repo, tag string) Result {
	if repo != c.config.Repository {
		c.logger.Debug().
			Str("repo", repo).
			Str("configured", c.config.Repository).
			Msg("Skipping digest lookup for foreign repository")

		return Result{Status: StatusUnknown}
	}

	if entry, ok := c.cache.get(tag); ok {
		if entry.notFound {
			return Result{Status: StatusNotFound}
		}

		return Result{Status: StatusFound, Digest: entry.digest}
	}

	manifest, err := c.fetchManifest(ctx, tag)
	if err != nil {
		c.logger.Warn().Err(err).Str("tag", tag).Msg("Manifest fetch failed")
		return Result{Status: StatusUnknown}
	}

	if len(manifest.Errors) > 0 {
		if manifest.Errors[0].Code == codeManifestUnknown {
			c.cache.storeNotFound(tag)

			c.logger.Debug().Str("tag", tag).Msg("Manifest unknown, cached not-found sentinel")

			return Result{Status: StatusNotFound}
		}

		c.logger.Warn().
			Str("tag", tag).
			Str("code", manifest.Errors[0].Code).
			Str("message", manifest.Errors[0].Message).
			Msg("Registry reported error for manifest fetch")

		return Result{Status: StatusUnknown}
	}

	if manifest.Config.Digest == "" {
		c.logger.Warn().Str("tag", tag).Msg("Manifest response carried no digest")
		return Result{Status: StatusUnknown}
	}

	c.cache.store(tag, manifest.Config.Digest)

	c.logger.Debug().
		Str("tag", tag).
		Str("digest", manifest.Config.Digest).
		Dur("cache_ttl", c.cache.currentTTL()).
		Msg("Resolved remote digest")

	return Result{Status: StatusFound, Digest: manifest.Config.Digest}
}

// CheckUpdate compares a locally running digest against the remote one.
// The result is nil when the remote digest could not be determined, which
// is distinct from a confirmed false.
func (c *Client) CheckUpdate(ctx context.Context, repo, tag, localDigest string) *bool {
	result := c.ResolveDigest(ctx, repo, tag)
	if result.Status == StatusUnknown {
		return nil
	}

	updateAvailable := result.Status == StatusFound && result.Digest != localDigest

	return &updateAvailable
}

// ListTags lists every tag in the configured repository. It is uncached
// and intended for startup and diagnostics only.
func (c *Client) ListTags(ctx context.Context) ([]string, error) {
	token, err := c.token.bearer(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire token: %w", err)
	}

	url := fmt.Sprintf("%s/v2/%s/tags/list", c.config.RegistryURL, c.config.Repository)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to build tag list request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tag list request failed: %w", err)
	}
	defer resp.Body.Close()

	var body tagListResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode tag list response: %w", err)
	}

	return body.Tags, nil
}

func (c *Client) fetchManifest(ctx context.Context, tag string) (*manifestResponse, error) {
	token, err := c.token.bearer(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire token: %w", err)
	}

	url := fmt.Sprintf("%s/v2/%s/manifests/%s", c.config.RegistryURL, c.config.Repository, tag)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to build manifest request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", manifestV2Accept)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("manifest request failed: %w", err)
	}
	defer resp.Body.Close()

	var body manifestResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode manifest response: %w", err)
	}

	return &body, nil
}
