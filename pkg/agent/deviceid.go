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
	"encoding/hex"
	"errors"
	"net"
)

// ErrNoHardwareAddress indicates no usable interface MAC was found.
var ErrNoHardwareAddress = errors.New("no hardware address available for device id")

// DeviceID derives the stable device identifier from the first
// non-loopback interface's hardware address. The ID must survive restarts
// so the server keys this device consistently.
func DeviceID() (string, error) {
	interfaces, err := net.Interfaces()
	if err != nil {
		return "", err
	}

	for _, iface := range interfaces {
		if iface.Flags&net.FlagLoopback != 0 || len(iface.HardwareAddr) == 0 {
			continue
		}

		return hex.EncodeToString(iface.HardwareAddr), nil
	}

	return "", ErrNoHardwareAddress
}
