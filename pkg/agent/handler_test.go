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
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/fleetradar/pkg/logger"
	"github.com/carverauto/fleetradar/pkg/models"
)

type fakeRuntime struct {
	containers []models.ContainerSnapshot
	listErr    error

	started []string
	stopped []string
	updated []string
	opErr   error
}

func (f *fakeRuntime) Containers(_ context.Context) ([]models.ContainerSnapshot, error) {
	return f.containers, f.listErr
}

func (f *fakeRuntime) StartContainer(_ context.Context, name string) error {
	f.started = append(f.started, name)
	return f.opErr
}

func (f *fakeRuntime) StopContainer(_ context.Context, name string) error {
	f.stopped = append(f.stopped, name)
	return f.opErr
}

func (f *fakeRuntime) UpdateContainer(_ context.Context, name string) error {
	f.updated = append(f.updated, name)
	return f.opErr
}

func newTestComposeStore(t *testing.T, content string) *ComposeStore {
	t.Helper()

	path := filepath.Join(t.TempDir(), "docker-compose.yml")
	if content != "" {
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	return NewComposeStore(path)
}

func TestHandleContainerCommands(t *testing.T) {
	runtime := &fakeRuntime{}
	woken := 0

	h := NewCommandHandler(runtime, newTestComposeStore(t, "services: {}\n"),
		func() { woken++ }, logger.NewTestLogger())

	tests := []struct {
		cmdType models.CommandType
		calls   *[]string
	}{
		{models.CommandStartContainer, &runtime.started},
		{models.CommandStopContainer, &runtime.stopped},
		{models.CommandUpdateContainer, &runtime.updated},
	}

	for _, tt := range tests {
		response, err := h.Handle(context.Background(), models.Command{
			Type:          tt.cmdType,
			ContainerName: "web",
		})
		require.NoError(t, err)
		assert.Empty(t, response)
		assert.Equal(t, []string{"web"}, *tt.calls)
	}

	// Each state change wakes the push loop.
	assert.Equal(t, 3, woken)
}

func TestHandleReadComposeDoesNotWake(t *testing.T) {
	woken := 0

	h := NewCommandHandler(&fakeRuntime{}, newTestComposeStore(t, "services: {}\n"),
		func() { woken++ }, logger.NewTestLogger())

	response, err := h.Handle(context.Background(), models.Command{Type: models.CommandReadCompose})
	require.NoError(t, err)
	assert.Equal(t, "services: {}\n", response)
	assert.Zero(t, woken)
}

func TestHandleWriteCompose(t *testing.T) {
	store := newTestComposeStore(t, "services: {}\n")
	woken := 0

	h := NewCommandHandler(&fakeRuntime{}, store, func() { woken++ }, logger.NewTestLogger())

	_, err := h.Handle(context.Background(), models.Command{
		Type:    models.CommandWriteCompose,
		Content: "services:\n  web:\n    image: myorg/myrepo:v2\n",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, woken)

	current, err := store.Read()
	require.NoError(t, err)
	assert.Contains(t, current, "myorg/myrepo:v2")
}

func TestHandleWriteComposeRejectsInvalidYAML(t *testing.T) {
	store := newTestComposeStore(t, "services: {}\n")

	h := NewCommandHandler(&fakeRuntime{}, store, nil, logger.NewTestLogger())

	_, err := h.Handle(context.Background(), models.Command{
		Type:    models.CommandWriteCompose,
		Content: "services:\n\tnot: [valid",
	})
	require.ErrorIs(t, err, ErrInvalidCompose)

	// The file on disk is untouched after a rejected write.
	current, readErr := store.Read()
	require.NoError(t, readErr)
	assert.Equal(t, "services: {}\n", current)
}

func TestHandleRemoveDeviceIsNoOp(t *testing.T) {
	runtime := &fakeRuntime{}
	woken := 0

	h := NewCommandHandler(runtime, newTestComposeStore(t, ""), func() { woken++ }, logger.NewTestLogger())

	response, err := h.Handle(context.Background(), models.Command{Type: models.CommandRemoveDevice})
	require.NoError(t, err)
	assert.Empty(t, response)
	assert.Zero(t, woken)
	assert.Empty(t, runtime.started)
	assert.Empty(t, runtime.stopped)
}

func TestHandleUnknownCommandType(t *testing.T) {
	h := NewCommandHandler(&fakeRuntime{}, newTestComposeStore(t, ""), nil, logger.NewTestLogger())

	_, err := h.Handle(context.Background(), models.Command{Type: models.CommandType(999)})
	require.ErrorIs(t, err, models.ErrUnknownCommandType)
}

func TestHandleRuntimeFailureDoesNotWake(t *testing.T) {
	runtime := &fakeRuntime{opErr: errors.New("no such container")}
	woken := 0

	h := NewCommandHandler(runtime, newTestComposeStore(t, ""), func() { woken++ }, logger.NewTestLogger())

	_, err := h.Handle(context.Background(), models.Command{
		Type:          models.CommandStartContainer,
		ContainerName: "ghost",
	})
	require.Error(t, err)
	assert.Zero(t, woken)
}

func TestComposeBootstrap(t *testing.T) {
	dir := t.TempDir()
	basePath := filepath.Join(dir, "base-compose.yml")
	require.NoError(t, os.WriteFile(basePath, []byte("services:\n  web: {}\n"), 0o644))

	store := NewComposeStore(filepath.Join(dir, "docker-compose.yml"))

	require.NoError(t, store.Bootstrap(basePath))

	content, err := store.Read()
	require.NoError(t, err)
	assert.Equal(t, "services:\n  web: {}\n", content)

	// A second bootstrap must not clobber a file the operator has edited.
	require.NoError(t, store.Write("services:\n  db: {}\n"))
	require.NoError(t, store.Bootstrap(basePath))

	content, err = store.Read()
	require.NoError(t, err)
	assert.Equal(t, "services:\n  db: {}\n", content)
}
