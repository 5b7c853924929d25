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

// Package command routes operator commands to the agent that owns the
// target device, independent of the delivery transport.
package command

import (
	"context"

	"github.com/carverauto/fleetradar/pkg/logger"
	"github.com/carverauto/fleetradar/pkg/models"
)

// Outcome is the domain-level result of a dispatch. Transport errors stay
// below this boundary.
type Outcome int

const (
	// OutcomeDelivered means the transport accepted the command.
	OutcomeDelivered Outcome = iota
	// OutcomeDeviceUnknown means no record exists for the device ID.
	OutcomeDeviceUnknown
	// OutcomeDeliveryFailed means the transport could not reach the agent.
	// Commands are fire-and-forget here; retry policy belongs to the caller.
	OutcomeDeliveryFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDelivered:
		return "delivered"
	case OutcomeDeviceUnknown:
		return "device_unknown"
	case OutcomeDeliveryFailed:
		return "delivery_failed"
	default:
		return "invalid"
	}
}

// Transport puts a command on the wire to an agent address.
type Transport interface {
	Deliver(ctx context.Context, address string, cmd models.Command) error
}

// AddressBook is the slice of the fleet registry the router needs.
type AddressBook interface {
	DeviceAddress(id string) (string, bool)
	RemoveDevice(id string)
}

// Router dispatches commands to devices.
type Router struct {
	fleet     AddressBook
	transport Transport
	logger    logger.Logger
}

// NewRouter creates a command router over the given registry and transport.
func NewRouter(fleet AddressBook, transport Transport, log logger.Logger) *Router {
	return &Router{
		fleet:     fleet,
		transport: transport,
		logger:    log,
	}
}

// Dispatch delivers cmd to the device's current address. RemoveDevice
// mutates the registry directly and needs no network delivery; it is a
// no-op for an absent device.
func (r *Router) Dispatch(ctx context.Context, deviceID string, cmd models.Command) Outcome {
	if cmd.Type == models.CommandRemoveDevice {
		r.fleet.RemoveDevice(deviceID)
		return OutcomeDelivered
	}

	address, ok := r.fleet.DeviceAddress(deviceID)
	if !ok {
		r.logger.Warn().
			Str("device_id", deviceID).
			Str("command", cmd.Type.String()).
			Msg("Dispatch to unknown device")

		return OutcomeDeviceUnknown
	}

	if err := r.transport.Deliver(ctx, address, cmd); err != nil {
		r.logger.Error().
			Err(err).
			Str("device_id", deviceID).
			Str("address", address).
			Str("command", cmd.Type.String()).
			Msg("Command delivery failed")

		return OutcomeDeliveryFailed
	}

	r.logger.Info().
		Str("device_id", deviceID).
		Str("command", cmd.Type.String()).
		Str("command_id", cmd.ID.String()).
		Msg("Command delivered")

	return OutcomeDelivered
}
