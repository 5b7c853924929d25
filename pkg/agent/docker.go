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
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/carverauto/fleetradar/pkg/logger"
	"github.com/carverauto/fleetradar/pkg/models"
)

const (
	defaultDockerSocket = "/var/run/docker.sock"
	dockerAPITimeout    = 30 * time.Second
	shortIDLength       = 10
)

// errPullFailed indicates the engine reported an error record in the
// image pull progress stream.
var errPullFailed = errors.New("image pull reported error")

// DockerRuntime implements ContainerRuntime against the Docker Engine API
// over the local unix socket.
type DockerRuntime struct {
	client *http.Client
	// pullClient carries no overall timeout: image pulls stream progress
	// for as long as the download takes and are bounded by the caller's
	// context instead.
	pullClient *http.Client
	logger     logger.Logger
}

// NewDockerRuntime creates a runtime bound to the engine socket at
// socketPath (empty selects the default socket).
func NewDockerRuntime(socketPath string, log logger.Logger) *DockerRuntime {
	if socketPath == "" {
		socketPath = defaultDockerSocket
	}

	transport := &http.Transport{
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "unix", socketPath)
		},
	}

	return &DockerRuntime{
		client: &http.Client{
			Timeout:   dockerAPITimeout,
			Transport: transport,
		},
		pullClient: &http.Client{Transport: transport},
		logger:     log,
	}
}

type engineContainer struct {
	ID      string   `json:"Id"`
	Names   []string `json:"Names"`
	Image   string   `json:"Image"`
	ImageID string   `json:"ImageID"`
	State   string   `json:"State"`
}

// Containers implements ContainerRuntime by listing every container on
// the host, running or not.
func (d *DockerRuntime) Containers(ctx context.Context) ([]models.ContainerSnapshot, error) {
	var listed []engineContainer
	if err := d.get(ctx, "/containers/json?all=true", &listed); err != nil {
		return nil, err
	}

	snapshots := make([]models.ContainerSnapshot, 0, len(listed))

	for _, c := range listed {
		name := ""
		if len(c.Names) > 0 {
			name = strings.TrimPrefix(c.Names[0], "/")
		}

		repo, tag := splitImageName(c.Image)

		shortID := c.ID
		if len(shortID) > shortIDLength {
			shortID = shortID[:shortIDLength]
		}

		snapshots = append(snapshots, models.ContainerSnapshot{
			Name:        name,
			ShortID:     shortID,
			FullID:      c.ID,
			ImageRepo:   repo,
			ImageTag:    tag,
			ImageDigest: c.ImageID,
			Status:      c.State,
		})
	}

	return snapshots, nil
}

// StartContainer implements ContainerRuntime.
func (d *DockerRuntime) StartContainer(ctx context.Context, name string) error {
	d.logger.Info().Str("container", name).Msg("Starting container")
	return d.post(ctx, "/containers/"+url.PathEscape(name)+"/start", nil)
}

// StopContainer implements ContainerRuntime.
func (d *DockerRuntime) StopContainer(ctx context.Context, name string) error {
	d.logger.Info().Str("container", name).Msg("Stopping container")
	return d.post(ctx, "/containers/"+url.PathEscape(name)+"/stop", nil)
}

// UpdateContainer pulls the latest image for the named container and
// recreates it with its existing configuration.
func (d *DockerRuntime) UpdateContainer(ctx context.Context, name string) error {
	var inspected struct {
		Config     map[string]interface{} `json:"Config"`
		HostConfig map[string]interface{} `json:"HostConfig"`
	}

	if err := d.get(ctx, "/containers/"+url.PathEscape(name)+"/json", &inspected); err != nil {
		return err
	}

	image, _ := inspected.Config["Image"].(string)
	if image == "" {
		return fmt.Errorf("container %s has no image reference", name)
	}

	d.logger.Info().Str("container", name).Str("image", image).Msg("Updating container")

	if err := d.pullImage(ctx, image); err != nil {
		return fmt.Errorf("failed to pull image %s: %w", image, err)
	}

	if err := d.post(ctx, "/containers/"+url.PathEscape(name)+"/stop", nil); err != nil {
		return err
	}

	if err := d.delete(ctx, "/containers/"+url.PathEscape(name)); err != nil {
		return err
	}

	createBody := inspected.Config
	createBody["HostConfig"] = inspected.HostConfig

	if err := d.post(ctx, "/containers/create?name="+url.QueryEscape(name), createBody); err != nil {
		return fmt.Errorf("failed to recreate container %s: %w", name, err)
	}

	return d.post(ctx, "/containers/"+url.PathEscape(name)+"/start", nil)
}

// pullImage pulls image via /images/create. The daemon returns the status
// as soon as the pull starts, ties the pull to this request, and streams
// progress records in the body; the pull is only complete (or failed) once
// the stream ends, so the records are consumed here rather than the body
// being closed early.
func (d *DockerRuntime) pullImage(ctx context.Context, image string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		"http://docker/images/create?fromImage="+url.QueryEscape(image), http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to build engine request: %w", err)
	}

	resp, err := d.pullClient.Do(req)
	if err != nil {
		return fmt.Errorf("engine request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("engine returned status %d for image pull", resp.StatusCode)
	}

	decoder := json.NewDecoder(resp.Body)

	for {
		var progress struct {
			Status string `json:"status"`
			Error  string `json:"error"`
		}

		if err := decoder.Decode(&progress); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}

			return fmt.Errorf("failed to read pull progress: %w", err)
		}

		if progress.Error != "" {
			return fmt.Errorf("%w: %s", errPullFailed, progress.Error)
		}
	}
}

func splitImageName(image string) (repo, tag string) {
	if idx := strings.LastIndex(image, ":"); idx > 0 && !strings.Contains(image[idx:], "/") {
		return image[:idx], image[idx+1:]
	}

	return image, "latest"
}

func (d *DockerRuntime) get(ctx context.Context, path string, dst interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://docker"+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to build engine request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("engine request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("engine returned status %d for %s", resp.StatusCode, path)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("failed to decode engine response: %w", err)
	}

	return nil
}

func (d *DockerRuntime) post(ctx context.Context, path string, body interface{}) error {
	return d.send(ctx, http.MethodPost, path, body)
}

func (d *DockerRuntime) delete(ctx context.Context, path string) error {
	return d.send(ctx, http.MethodDelete, path, nil)
}

func (d *DockerRuntime) send(ctx context.Context, method, path string, body interface{}) error {
	var reader io.Reader = http.NoBody

	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode engine request: %w", err)
		}

		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, "http://docker"+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build engine request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("engine request failed: %w", err)
	}
	defer resp.Body.Close()

	// 304 comes back for start/stop of a container already in that state.
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("engine returned status %d for %s %s", resp.StatusCode, method, path)
	}

	return nil
}
