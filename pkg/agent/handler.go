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
	"fmt"

	"github.com/carverauto/fleetradar/pkg/logger"
	"github.com/carverauto/fleetradar/pkg/models"
)

// CommandHandler executes operator commands against the local runtime.
// After every state-changing command it wakes the push loop so the server
// sees the new state without waiting a full interval.
type CommandHandler struct {
	runtime ContainerRuntime
	compose *ComposeStore
	wake    func()
	logger  logger.Logger
}

// NewCommandHandler creates a command handler. wake is called after each
// successfully handled state-changing command.
func NewCommandHandler(runtime ContainerRuntime, compose *ComposeStore, wake func(), log logger.Logger) *CommandHandler {
	return &CommandHandler{
		runtime: runtime,
		compose: compose,
		wake:    wake,
		logger:  log,
	}
}

// Handle executes cmd. The returned string is the command's response body
// and is only non-empty for ReadCompose.
func (h *CommandHandler) Handle(ctx context.Context, cmd models.Command) (string, error) {
	h.logger.Info().
		Str("command", cmd.Type.String()).
		Str("container", cmd.ContainerName).
		Msg("Command received")

	var (
		response string
		err      error
	)

	switch cmd.Type {
	case models.CommandStopContainer:
		err = h.runtime.StopContainer(ctx, cmd.ContainerName)
	case models.CommandStartContainer:
		err = h.runtime.StartContainer(ctx, cmd.ContainerName)
	case models.CommandUpdateContainer:
		err = h.runtime.UpdateContainer(ctx, cmd.ContainerName)
	case models.CommandReadCompose:
		response, err = h.compose.Read()
	case models.CommandWriteCompose:
		err = h.compose.Write(cmd.Content)
	case models.CommandRemoveDevice:
		// Server-side only; an agent receiving it has nothing to do.
		return "", nil
	default:
		return "", fmt.Errorf("%w: %d", models.ErrUnknownCommandType, int(cmd.Type))
	}

	if err != nil {
		return "", fmt.Errorf("command %s failed: %w", cmd.Type, err)
	}

	if cmd.Type != models.CommandReadCompose && h.wake != nil {
		h.wake()
	}

	return response, nil
}
