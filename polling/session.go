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

// Package polling provides continuous background tag monitoring with
// callback delivery, built on top of a cf591.Reader.
package polling

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	cf591 "github.com/openrfid/go-cf591"
	"github.com/openrfid/go-cf591/internal/syncutil"
)

// Session errors.
var (
	ErrAlreadyStarted = errors.New("session already started")
	ErrJoinTimeout    = errors.New("poll loop did not stop in time")
)

// pauseAckTimeout bounds the wait for the poll loop to acknowledge a pause.
const pauseAckTimeout = 100 * time.Millisecond

// Session continuously monitors for tags on a dedicated goroutine and
// delivers debounced detections to callbacks. Set callbacks before Start;
// they run on the polling goroutine, so a slow callback slows polling.
type Session struct {
	// OnTagDetected fires for each debounce-accepted detection. A non-nil
	// return stops the session.
	OnTagDetected func(*cf591.TagDetection) error
	// OnTagRemoved fires once the field has been empty for the removal
	// timeout after at least one detection.
	OnTagRemoved func()
	// OnError fires for device faults seen by the loop. The session stops
	// after delivering a fatal error, keeps going otherwise.
	OnError func(error)

	reader *cf591.Reader
	config *Config
	dedupe *cf591.Deduplicator

	pauseChan  chan struct{}
	resumeChan chan struct{}
	ackChan    chan struct{}
	done       chan struct{}
	cancel     context.CancelFunc

	stateMu  syncutil.Mutex
	lastSeen time.Time
	present  bool

	started  atomic.Bool
	closed   atomic.Bool
	isPaused atomic.Bool
}

// NewSession creates a monitoring session over reader. A nil config uses
// DefaultConfig.
func NewSession(reader *cf591.Reader, config *Config) *Session {
	if config == nil {
		config = DefaultConfig()
	}
	return &Session{
		reader:     reader,
		config:     config,
		dedupe:     cf591.NewDeduplicator(config.DebounceWindow),
		pauseChan:  make(chan struct{}, 1),
		resumeChan: make(chan struct{}, 1),
		ackChan:    make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
}

// Start begins inventory and launches the poll loop. It returns once the
// loop is running; detections arrive via the callbacks.
func (s *Session) Start(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	if err := s.reader.StartInventory(ctx); err != nil {
		s.started.Store(false)
		return fmt.Errorf("start monitoring: %w", err)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	go s.loop(loopCtx)
	return nil
}

// Close stops the poll loop, waits for it with a bounded join, and stops
// inventory.
func (s *Session) Close() error {
	if !s.started.Load() {
		return nil
	}
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	s.cancel()
	// Unblock a paused loop.
	s.isPaused.Store(false)
	select {
	case s.resumeChan <- struct{}{}:
	default:
	}

	select {
	case <-s.done:
	case <-time.After(s.config.StopJoinTimeout):
		return ErrJoinTimeout
	}

	return s.reader.StopInventory(context.Background())
}

// Pause suspends polling so another operation can use the device. Returns
// once the loop has acknowledged or the ack wait times out; either way the
// loop will not poll again until Resume.
func (s *Session) Pause(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !s.isPaused.CompareAndSwap(false, true) {
		return nil
	}

	select {
	case s.pauseChan <- struct{}{}:
	default:
	}

	ackTimer := time.NewTimer(pauseAckTimeout)
	defer ackTimer.Stop()
	select {
	case <-s.ackChan:
		return nil
	case <-ackTimer.C:
		// Loop is mid-poll; the isPaused flag stops it before the next one.
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Resume restarts polling after a Pause.
func (s *Session) Resume() {
	if s.isPaused.CompareAndSwap(true, false) {
		select {
		case s.resumeChan <- struct{}{}:
		default:
		}
	}
}

// WithPaused runs op with polling suspended, resuming afterwards. Combine
// with the reader's paused-operation helper for memory access during
// monitoring.
func (s *Session) WithPaused(ctx context.Context, op func(ctx context.Context) error) error {
	if err := s.Pause(ctx); err != nil {
		return err
	}
	defer s.Resume()
	return op(ctx)
}

// TagPresent reports whether a tag is currently believed in the field.
func (s *Session) TagPresent() bool {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.present
}

func (s *Session) loop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	for {
		if ctx.Err() != nil || s.closed.Load() {
			return
		}
		if s.waitIfPaused(ctx) {
			return
		}

		det, err := s.reader.Poll(ctx, s.config.PollTimeout)
		switch {
		case err != nil:
			if s.OnError != nil {
				s.OnError(err)
			}
			if cf591.IsFatal(err) {
				return
			}
		case det != nil:
			s.markSeen(det.DetectedAt)
			if s.dedupe.Accept(det.EPCHex(), det.DetectedAt) {
				if s.OnTagDetected != nil {
					if cbErr := s.OnTagDetected(det); cbErr != nil {
						return
					}
				}
			}
			continue // keep draining while tags are flowing
		default:
			s.checkRemoval(time.Now())
		}

		select {
		case <-ctx.Done():
			return
		case <-s.pauseChan:
			s.ackAndWait(ctx)
		case <-ticker.C:
		}
	}
}

// waitIfPaused parks the loop while paused. Returns true if the session
// should exit.
func (s *Session) waitIfPaused(ctx context.Context) bool {
	if !s.isPaused.Load() {
		return false
	}
	s.ackAndWait(ctx)
	return ctx.Err() != nil || s.closed.Load()
}

func (s *Session) ackAndWait(ctx context.Context) {
	select {
	case s.ackChan <- struct{}{}:
	default:
	}
	for s.isPaused.Load() {
		select {
		case <-ctx.Done():
			return
		case <-s.resumeChan:
		}
	}
}

func (s *Session) markSeen(at time.Time) {
	s.stateMu.Lock()
	s.lastSeen = at
	s.present = true
	s.stateMu.Unlock()
}

func (s *Session) checkRemoval(now time.Time) {
	s.stateMu.Lock()
	removed := s.present && now.Sub(s.lastSeen) > s.config.TagRemovalTimeout
	if removed {
		s.present = false
	}
	s.stateMu.Unlock()

	if removed && s.OnTagRemoved != nil {
		s.OnTagRemoved()
	}
}
