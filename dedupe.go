// Copyright 2026 The go-cf591 Contributors.
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cf591

import (
	"time"

	"github.com/openrfid/go-cf591/internal/syncutil"
)

// maxDebounceEntries caps the debounce map for long-running sessions. When
// the cap is hit the oldest entries are evicted.
const maxDebounceEntries = 4096

// Deduplicator suppresses repeat reports of the same tag inside a debounce
// window. A reader in continuous inventory reports a tag sitting in the
// field dozens of times per second; callers almost always want the first
// sighting per window.
//
// Pure time arithmetic over injected timestamps, so it tests without clocks.
type Deduplicator struct {
	lastAccepted map[string]time.Time
	window       time.Duration
	mu           syncutil.Mutex
}

// NewDeduplicator creates a Deduplicator with the given debounce window.
// A zero window accepts everything.
func NewDeduplicator(window time.Duration) *Deduplicator {
	return &Deduplicator{
		window:       window,
		lastAccepted: make(map[string]time.Time),
	}
}

// Accept reports whether a detection of id at time now passes the debounce
// window, recording it if so. The first detection of an id is always
// accepted; later ones only once the window has fully elapsed.
func (d *Deduplicator) Accept(id string, now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if last, seen := d.lastAccepted[id]; seen && now.Sub(last) < d.window {
		return false
	}

	if len(d.lastAccepted) >= maxDebounceEntries {
		d.evictOldest()
	}
	d.lastAccepted[id] = now
	return true
}

// Reset clears all debounce history. Called when a new inventory session
// starts so tags from the previous session register again.
func (d *Deduplicator) Reset() {
	d.mu.Lock()
	d.lastAccepted = make(map[string]time.Time)
	d.mu.Unlock()
}

// Window returns the configured debounce window.
func (d *Deduplicator) Window() time.Duration {
	return d.window
}

// evictOldest drops entries that have aged out of the window, falling back
// to arbitrary eviction when everything is still fresh. Rough LRU is plenty
// here. Caller holds d.mu.
func (d *Deduplicator) evictOldest() {
	cutoff := time.Now().Add(-d.window)
	for id, last := range d.lastAccepted {
		if last.Before(cutoff) {
			delete(d.lastAccepted, id)
		}
	}
	if len(d.lastAccepted) < maxDebounceEntries {
		return
	}
	// Everything is inside the window; drop arbitrary entries to make room.
	excess := len(d.lastAccepted) - maxDebounceEntries*3/4
	for id := range d.lastAccepted {
		if excess <= 0 {
			break
		}
		delete(d.lastAccepted, id)
		excess--
	}
}
