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

package fleet

import "time"

// offlineGraceFactor tolerates one missed heartbeat before a device is
// declared offline.
const offlineGraceFactor = 2

// IsOnline reports whether a device that last reported at lastSeen with
// the given push interval (seconds) counts as online at now. The bound is
// strict: a device exactly at lastSeen + 2*interval is offline.
func IsOnline(lastSeen time.Time, pushIntervalSeconds int, now time.Time) bool {
	deadline := lastSeen.Add(offlineGraceFactor * time.Duration(pushIntervalSeconds) * time.Second)
	return now.Before(deadline)
}
