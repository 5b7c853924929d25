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
	"sync"
	"time"
)

type cacheEntry struct {
	digest     string
	notFound   bool
	insertedAt time.Time
}

// digestCache holds resolved digests with an adaptive TTL. The TTL is
// recomputed on every store as window * distinctTags / quota, so as more
// distinct tags are tracked each one is re-checked less often and the
// aggregate request rate stays under the registry's quota regardless of
// fleet size. For a fixed quota and window the TTL is monotonically
// non-decreasing in cache size.
//
// The TTL is derived from the current cache size only; if the set of
// distinct tags shrinks, entries keep the longer TTL until their next
// successful resolution.
type digestCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	ttl     time.Duration

	quota  int
	window time.Duration
	now    func() time.Time
}

func newDigestCache(quota int, window time.Duration) *digestCache {
	return &digestCache{
		entries: make(map[string]cacheEntry),
		quota:   quota,
		window:  window,
		now:     time.Now,
	}
}

// get returns the cached entry for tag if it is still within TTL.
func (c *digestCache) get(tag string) (cacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[tag]
	if !ok {
		return cacheEntry{}, false
	}

	if c.now().After(entry.insertedAt.Add(c.ttl)) {
		return cacheEntry{}, false
	}

	return entry, true
}

// store records a resolved digest for tag and recomputes the TTL from the
// new cache size.
func (c *digestCache) store(tag, digest string) {
	c.put(tag, cacheEntry{digest: digest, insertedAt: c.now()})
}

// storeNotFound records the not-found sentinel so repeated checks for a
// deleted or renamed tag do not retry every call.
func (c *digestCache) storeNotFound(tag string) {
	c.put(tag, cacheEntry{notFound: true, insertedAt: c.now()})
}

func (c *digestCache) put(tag string, entry cacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[tag] = entry
	c.ttl = c.window * time.Duration(len(c.entries)) / time.Duration(c.quota)
}

// currentTTL is exposed for diagnostics and tests.
func (c *digestCache) currentTTL() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.ttl
}
