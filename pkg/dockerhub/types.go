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
	"errors"
	"net/http"
	"time"

	"github.com/carverauto/fleetradar/pkg/models"
)

var (
	// ErrUnauthorized indicates Docker Hub rejected the configured credentials.
	ErrUnauthorized = errors.New("docker hub rejected credentials")
	// ErrMissingCredentials indicates an incomplete Docker Hub configuration.
	ErrMissingCredentials = errors.New("docker hub username, password and repository are required")
)

// Status classifies the outcome of a digest resolution.
type Status int

const (
	// StatusFound means the remote digest was resolved.
	StatusFound Status = iota
	// StatusNotFound means the registry reports no manifest for the tag.
	StatusNotFound
	// StatusUnknown means the digest could not be determined this call.
	// Unknown outcomes are never cached.
	StatusUnknown
)

func (s Status) String() string {
	switch s {
	case StatusFound:
		return "found"
	case StatusNotFound:
		return "not_found"
	case StatusUnknown:
		return "unknown"
	default:
		return "invalid"
	}
}

// Result is the outcome of a digest resolution. Digest is only set when
// Status is StatusFound.
type Result struct {
	Status Status
	Digest string
}

// Config configures the Docker Hub client. AuthURL and RegistryURL default
// to the public Docker Hub endpoints and exist so tests can point the
// client at a local server.
type Config struct {
	Username      string          `json:"username"`
	Password      string          `json:"password"`
	Repository    string          `json:"repository"`
	QuotaRequests int             `json:"quota_requests"`
	QuotaWindow   models.Duration `json:"quota_window"`
	AuthURL       string          `json:"auth_url,omitempty"`
	RegistryURL   string          `json:"registry_url,omitempty"`
}

const (
	defaultAuthURL     = "https://auth.docker.io"
	defaultRegistryURL = "https://index.docker.io"

	// Docker Hub allows 200 manifest pulls per 6 hour rolling window for
	// authenticated free accounts. The digest cache TTL is derived from
	// this budget.
	defaultQuotaRequests = 200
	defaultQuotaWindow   = 6 * time.Hour

	manifestV2Accept = "application/vnd.docker.distribution.manifest.v2+json"

	// The registry error code that distinguishes a missing manifest from
	// every other failure.
	codeManifestUnknown = "MANIFEST_UNKNOWN"
)

func (c *Config) withDefaults() Config {
	out := *c

	if out.QuotaRequests <= 0 {
		out.QuotaRequests = defaultQuotaRequests
	}

	if out.QuotaWindow <= 0 {
		out.QuotaWindow = models.Duration(defaultQuotaWindow)
	}

	if out.AuthURL == "" {
		out.AuthURL = defaultAuthURL
	}

	if out.RegistryURL == "" {
		out.RegistryURL = defaultRegistryURL
	}

	return out
}

// Validate implements config.Validator.
func (c *Config) Validate() error {
	if c.Username == "" || c.Password == "" || c.Repository == "" {
		return ErrMissingCredentials
	}

	return nil
}

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type tokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
}

type manifestResponse struct {
	Config struct {
		Digest string `json:"digest"`
	} `json:"config"`
	Errors []registryError `json:"errors"`
}

type registryError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type tagListResponse struct {
	Name string   `json:"name"`
	Tags []string `json:"tags"`
}
