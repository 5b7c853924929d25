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

package models

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// CommandType identifies an operator command. The numeric values are wire
// values and must stay stable across releases.
type CommandType int

const (
	CommandStopContainer   CommandType = 10
	CommandStartContainer  CommandType = 20
	CommandUpdateContainer CommandType = 100
	CommandReadCompose     CommandType = 110
	CommandWriteCompose    CommandType = 111
	CommandRemoveDevice    CommandType = 120
)

var (
	// ErrUnknownCommandType indicates a command type outside the defined set.
	ErrUnknownCommandType = errors.New("unknown command type")
	// ErrCommandMissingContainer indicates a container command without a target.
	ErrCommandMissingContainer = errors.New("command requires a container name")
	// ErrCommandMissingContent indicates a compose write without content.
	ErrCommandMissingContent = errors.New("write compose command requires content")
)

func (t CommandType) String() string {
	switch t {
	case CommandStopContainer:
		return "stop_container"
	case CommandStartContainer:
		return "start_container"
	case CommandUpdateContainer:
		return "update_container"
	case CommandReadCompose:
		return "read_compose"
	case CommandWriteCompose:
		return "write_compose"
	case CommandRemoveDevice:
		return "remove_device"
	default:
		return fmt.Sprintf("command(%d)", int(t))
	}
}

// Command is an operator instruction for a single device. Payload fields
// are typed per command rather than a loose map, so a malformed command is
// rejected at the boundary instead of deep inside a handler.
type Command struct {
	ID            uuid.UUID   `json:"command_id"`
	Type          CommandType `json:"type"`
	ContainerName string      `json:"container_name,omitempty"`
	Content       string      `json:"content,omitempty"`
}

// Validate checks that the command carries the payload its type needs.
func (c *Command) Validate() error {
	switch c.Type {
	case CommandStopContainer, CommandStartContainer, CommandUpdateContainer:
		if c.ContainerName == "" {
			return ErrCommandMissingContainer
		}
	case CommandWriteCompose:
		if c.Content == "" {
			return ErrCommandMissingContent
		}
	case CommandReadCompose, CommandRemoveDevice:
		// No payload.
	default:
		return ErrUnknownCommandType
	}

	return nil
}
