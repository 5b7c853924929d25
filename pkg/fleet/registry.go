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

// Package fleet is the in-memory source of truth for device state. The
// registry is ephemeral; a restart implies full rediscovery via fresh
// heartbeats.
package fleet

import (
	"context"
	"sync"
	"time"

	"github.com/carverauto/fleetradar/pkg/logger"
	"github.com/carverauto/fleetradar/pkg/models"
)

// UpdateCheckFunc resolves whether a newer image exists for a running
// container. A nil result means the remote digest could not be determined.
type UpdateCheckFunc func(ctx context.Context, repo, tag, localDigest string) *bool

// record is the registry-owned state for one device. Telemetry and
// lastSeen are overwritten whole on every heartbeat; derived fields
// (online, update flags) are computed at read time and never stored.
type record struct {
	telemetry  models.DeviceTelemetry
	sourceAddr string
	lastSeen   time.Time
}

const notifyTimeout = 30 * time.Second

// Registry tracks the fleet. All access to the device map is serialized
// under one mutex; update checks and subscriber notification happen
// outside it so a slow registry lookup can never stall telemetry
// ingestion.
type Registry struct {
	mu      sync.RWMutex
	devices map[string]record
	seq     uint64

	subMu       sync.Mutex
	subs        map[int]chan models.FleetView
	nextID      int
	notifiedSeq uint64

	resolve UpdateCheckFunc
	now     func() time.Time
	logger  logger.Logger
}

// NewRegistry creates an empty registry. The resolve function backs the
// update flags in snapshots pushed to subscribers; it is injected so the
// registry stays a bookkeeping component with no registry-client coupling.
func NewRegistry(resolve UpdateCheckFunc, log logger.Logger) *Registry {
	return &Registry{
		devices: make(map[string]record),
		subs:    make(map[int]chan models.FleetView),
		resolve: resolve,
		now:     time.Now,
		logger:  log,
	}
}

// IngestTelemetry upserts the device record keyed by the telemetry's
// device ID. The telemetry replaces the previous payload whole; a
// container absent from the new snapshot is gone, not stale. If anyone is
// subscribed, a fleet-wide notification reflecting at least this mutation
// is delivered afterwards.
func (r *Registry) IngestTelemetry(telemetry models.DeviceTelemetry, sourceAddr string) {
	r.mu.Lock()
	r.devices[telemetry.DeviceID] = record{
		telemetry:  telemetry,
		sourceAddr: sourceAddr,
		lastSeen:   r.now(),
	}
	r.seq++
	seq := r.seq
	records := r.copyRecordsLocked()
	r.mu.Unlock()

	r.logger.Debug().
		Str("device_id", telemetry.DeviceID).
		Str("source", sourceAddr).
		Int("containers", len(telemetry.Containers)).
		Msg("Ingested telemetry")

	if r.hasSubscribers() {
		go r.notify(seq, records)
	}
}

// RemoveDevice deletes the record for id. Removing an absent device is a
// no-op so operator retries cannot fail.
func (r *Registry) RemoveDevice(id string) {
	r.mu.Lock()
	_, existed := r.devices[id]
	delete(r.devices, id)
	r.seq++
	seq := r.seq
	records := r.copyRecordsLocked()
	r.mu.Unlock()

	if !existed {
		return
	}

	r.logger.Info().Str("device_id", id).Msg("Removed device from fleet")

	if r.hasSubscribers() {
		go r.notify(seq, records)
	}
}

// IsEmpty reports whether any device is registered.
func (r *Registry) IsEmpty() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.devices) == 0
}

// DeviceAddress returns the most recent source address for id. Devices
// may roam IPs between heartbeats, so callers must not cache the result.
func (r *Registry) DeviceAddress(id string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.devices[id]
	if !ok {
		return "", false
	}

	return rec.sourceAddr, true
}

// Snapshot builds the presentable fleet view, attaching liveness and the
// per-container update flag via the provided resolve function. Resolve
// calls happen without any registry lock held.
func (r *Registry) Snapshot(ctx context.Context, resolve UpdateCheckFunc) models.FleetView {
	r.mu.RLock()
	records := r.copyRecordsLocked()
	r.mu.RUnlock()

	return r.buildView(ctx, records, resolve)
}

// Subscribe registers a fleet-change consumer. The returned cancel
// function must be called to release the subscription. Notifications are
// conflated: a subscriber that falls behind sees the newest view, not
// every intermediate one.
func (r *Registry) Subscribe() (<-chan models.FleetView, func()) {
	r.subMu.Lock()
	defer r.subMu.Unlock()

	id := r.nextID
	r.nextID++

	ch := make(chan models.FleetView, 1)
	r.subs[id] = ch

	cancel := func() {
		r.subMu.Lock()
		defer r.subMu.Unlock()

		if _, ok := r.subs[id]; ok {
			delete(r.subs, id)
			close(ch)
		}
	}

	return ch, cancel
}

func (r *Registry) hasSubscribers() bool {
	r.subMu.Lock()
	defer r.subMu.Unlock()

	return len(r.subs) > 0
}

// copyRecordsLocked snapshots the device map under the caller's lock so
// notification content is at least as new as the mutation that triggered
// it.
func (r *Registry) copyRecordsLocked() map[string]record {
	records := make(map[string]record, len(r.devices))
	for id, rec := range r.devices {
		records[id] = rec
	}

	return records
}

// notify fans the view for mutation seq out to every subscriber.
// Mutations spawn notify goroutines that may run out of order; the
// sequence check below makes delivery monotonic, so a view built from an
// older registry state can never displace a newer one a subscriber has
// not consumed yet.
func (r *Registry) notify(seq uint64, records map[string]record) {
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	view := r.buildView(ctx, records, r.resolve)

	r.subMu.Lock()
	defer r.subMu.Unlock()

	if seq <= r.notifiedSeq {
		return
	}

	r.notifiedSeq = seq

	for _, ch := range r.subs {
		// Replace a pending stale view rather than blocking ingestion.
		select {
		case ch <- view:
		default:
			select {
			case <-ch:
			default:
			}

			select {
			case ch <- view:
			default:
			}
		}
	}
}

func (r *Registry) buildView(ctx context.Context, records map[string]record, resolve UpdateCheckFunc) models.FleetView {
	now := r.now()
	view := make(models.FleetView, len(records))

	for id, rec := range records {
		containers := make([]models.ContainerView, 0, len(rec.telemetry.Containers))

		for _, c := range rec.telemetry.Containers {
			var updateAvailable *bool
			if resolve != nil {
				updateAvailable = resolve(ctx, c.ImageRepo, c.ImageTag, c.ImageDigest)
			}

			containers = append(containers, models.ContainerView{
				Name:            c.Name,
				ShortID:         c.ShortID,
				FullID:          c.FullID,
				ImageRepo:       c.ImageRepo,
				ImageTag:        c.ImageTag,
				ImageDigest:     c.ImageDigest,
				Status:          c.Status,
				UpdateAvailable: updateAvailable,
			})
		}

		view[id] = models.DeviceView{
			DeviceID:     rec.telemetry.DeviceID,
			Name:         rec.telemetry.Name,
			CPULoad:      rec.telemetry.CPULoad,
			MemoryUsage:  rec.telemetry.MemoryUsage,
			PushInterval: rec.telemetry.PushInterval,
			LastSeen:     rec.lastSeen,
			Online:       IsOnline(rec.lastSeen, rec.telemetry.PushInterval, now),
			Containers:   containers,
		}
	}

	return view
}
