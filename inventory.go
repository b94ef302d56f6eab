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
	"context"
	"encoding/binary"
	"iter"
	"time"
)

// InventoryState is the controller's view of the device inventory mode.
// Only the inventory operations below mutate it; nothing else touches it.
type InventoryState int

// Inventory states.
const (
	StateIdle InventoryState = iota
	StateRunning
	StateStopping
)

// String returns the state name for logging.
func (s InventoryState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// ControllerConfig holds the timing knobs of the inventory controller. The
// trigger-read, conveyor and sweep behaviors are all this one controller
// with different numbers, selected via the presets below.
type ControllerConfig struct {
	// PollTimeout bounds each single tag poll.
	PollTimeout time.Duration
	// FlushPollTimeout bounds each poll during a buffer flush. Shorter
	// than PollTimeout; stale reports are already buffered host-side.
	FlushPollTimeout time.Duration
	// FlushWindow bounds the whole flush phase.
	FlushWindow time.Duration
	// FlushMaxTags stops the flush after this many drained reports.
	FlushMaxTags int
	// FlushEmptyThreshold: this many consecutive empty polls means the
	// buffer is drained.
	FlushEmptyThreshold int
	// MaxConsecutiveEmpty ends a ReadMany once this many empty polls
	// arrive in a row: the field is empty, no point waiting out the
	// window. Zero or negative disables the empty-based exit.
	MaxConsecutiveEmpty int
	// DebounceWindow suppresses repeat reports of one tag.
	DebounceWindow time.Duration
	// LeaveRunning keeps inventory active after ReadSingle/ReadMany
	// instead of stopping it.
	LeaveRunning bool
}

// DefaultControllerConfig returns the trigger-read timing profile.
func DefaultControllerConfig() ControllerConfig {
	return PresetTriggerRead()
}

// PresetTriggerRead tunes the controller for one-shot reads on an external
// trigger: aggressive flush, short polls, inventory stopped between reads.
func PresetTriggerRead() ControllerConfig {
	return ControllerConfig{
		PollTimeout:         50 * time.Millisecond,
		FlushPollTimeout:    20 * time.Millisecond,
		FlushWindow:         200 * time.Millisecond,
		FlushMaxTags:        50,
		FlushEmptyThreshold: 2,
		MaxConsecutiveEmpty: 3,
		DebounceWindow:      time.Second,
		LeaveRunning:        false,
	}
}

// PresetConveyor tunes the controller for a stream of tags passing the
// antenna: inventory stays running, short debounce so the same tag can
// re-register between items.
func PresetConveyor() ControllerConfig {
	return ControllerConfig{
		PollTimeout:         50 * time.Millisecond,
		FlushPollTimeout:    20 * time.Millisecond,
		FlushWindow:         100 * time.Millisecond,
		FlushMaxTags:        100,
		FlushEmptyThreshold: 2,
		MaxConsecutiveEmpty: 20, // tolerate gaps between items on the belt
		DebounceWindow:      300 * time.Millisecond,
		LeaveRunning:        true,
	}
}

// PresetInventorySweep tunes the controller for counting a static
// population: long polls, long debounce so every tag registers once.
func PresetInventorySweep() ControllerConfig {
	return ControllerConfig{
		PollTimeout:         100 * time.Millisecond,
		FlushPollTimeout:    20 * time.Millisecond,
		FlushWindow:         200 * time.Millisecond,
		FlushMaxTags:        50,
		FlushEmptyThreshold: 2,
		MaxConsecutiveEmpty: 3,
		DebounceWindow:      time.Hour,
		LeaveRunning:        false,
	}
}

// State returns the current inventory state.
func (r *Reader) State() InventoryState {
	r.stateMu.Lock()
	defer r.stateMu.Unlock()
	return r.invState
}

func (r *Reader) setState(s InventoryState) {
	r.stateMu.Lock()
	r.invState = s
	r.stateMu.Unlock()
}

// stopInventoryTimeout is the device-side stop timeout carried in the
// stop command, matching the vendor driver's default.
const stopInventoryTimeout = 5 * time.Second

// StartInventory puts the device into continuous tag discovery. If the
// controller believes inventory is already running it stops first, so a
// double start collapses to exactly one logical running session. Starts
// fail transiently after power-up and go through the retry policy.
func (r *Reader) StartInventory(ctx context.Context) error {
	return r.startInventory(ctx, 0, 0)
}

// StartBoundedInventory starts discovery that the device self-terminates
// after countLimit tags. The controller still considers inventory Running
// until StopInventory; polls after self-termination return empty, which
// is not an error.
func (r *Reader) StartBoundedInventory(ctx context.Context, countLimit uint8) error {
	return r.startInventory(ctx, countLimit, 0)
}

// startInventory carries the wire form shared by the start variants:
// countLimit (0 = continuous) and the raw inventory parameter word.
func (r *Reader) startInventory(ctx context.Context, countLimit uint8, param uint32) error {
	if r.State() == StateRunning {
		if err := r.StopInventory(ctx); err != nil {
			return err
		}
		// A restart must begin from a clean Q-algorithm state; stale
		// select-mask filters would silently skew the new session.
		r.clearFilterBestEffort(ctx)
	}

	args := make([]byte, 5)
	args[0] = countLimit
	binary.LittleEndian.PutUint32(args[1:], param)

	err := RetryWithConfig(ctx, r.retry, func() error {
		_, cmdErr := r.command(ctx, CmdInventoryStart, args)
		return cmdErr
	})
	if err != nil {
		return err
	}

	r.setState(StateRunning)
	r.dedupe.Reset()
	r.logger.Debug().Msg("inventory started")
	return nil
}

// StopInventory takes the device out of discovery mode. Calling it while
// idle is a no-op. The device answers a stop with "inventory stopped" or
// even a comm timeout when it was already quiet; both count as success.
func (r *Reader) StopInventory(ctx context.Context) error {
	if r.State() == StateIdle {
		return nil
	}
	r.setState(StateStopping)

	args := make([]byte, 2)
	binary.LittleEndian.PutUint16(args, pollTimeoutMillis(stopInventoryTimeout))

	status, _, err := r.invoke(ctx, CmdInventoryStop, args)
	if err != nil {
		r.setState(StateRunning)
		return err
	}
	if outcome := ClassifyStatus(status); outcome == OutcomeFault {
		r.setState(StateRunning)
		return newCommandError(CmdInventoryStop.String(), status)
	}

	r.setState(StateIdle)
	r.logger.Debug().Msg("inventory stopped")
	return nil
}

// Poll asks the device for one buffered tag report, waiting at most timeout.
// Absence of a tag is not an error: an empty or timed-out poll returns
// (nil, nil). Only genuine faults return an error.
func (r *Reader) Poll(ctx context.Context, timeout time.Duration) (*TagDetection, error) {
	args := make([]byte, 2)
	binary.LittleEndian.PutUint16(args, pollTimeoutMillis(timeout))

	status, payload, err := r.invoke(ctx, CmdInventoryPoll, args)
	if err != nil {
		return nil, err
	}

	switch ClassifyStatus(status) {
	case OutcomeSuccess:
		return decodeTagDetection(payload, time.Now())
	case OutcomeEmptyOrStopped, OutcomeTimeout:
		return nil, nil
	default:
		return nil, newCommandError(CmdInventoryPoll.String(), status)
	}
}

func pollTimeoutMillis(timeout time.Duration) uint16 {
	ms := timeout.Milliseconds()
	if ms < 0 {
		ms = 0
	}
	if ms > 0xFFFF {
		ms = 0xFFFF
	}
	return uint16(ms)
}

// ReadSingle starts inventory, drains stale buffered reports, then polls
// until one debounce-accepted detection arrives or timeout elapses. A
// timeout is a valid nil result, not an error. Inventory is stopped on the
// way out (including the error path) unless the controller is configured
// to leave it running.
func (r *Reader) ReadSingle(ctx context.Context, timeout time.Duration) (det *TagDetection, err error) {
	if err := r.StartInventory(ctx); err != nil {
		return nil, err
	}
	defer func() {
		if r.ctrl.LeaveRunning {
			return
		}
		if stopErr := r.StopInventory(ctx); stopErr != nil {
			r.logger.Warn().Err(stopErr).Msg("stop inventory after read failed")
			if err == nil {
				err = stopErr
			}
		}
	}()

	r.flushBuffer(ctx)

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		candidate, pollErr := r.Poll(ctx, r.ctrl.PollTimeout)
		if pollErr != nil {
			return nil, pollErr
		}
		if candidate == nil {
			continue
		}
		if r.dedupe.Accept(candidate.EPCHex(), candidate.DetectedAt) {
			return candidate, nil
		}
	}
	return nil, nil
}

// ReadMany collects debounce-accepted detections until one of three
// things happens: maxTags detections arrive (maxTags <= 0 means
// unbounded), window elapses, or MaxConsecutiveEmpty polls in a row come
// back empty (the field has drained; waiting out the window buys
// nothing). Inventory is stopped on the way out unless configured to
// stay running.
func (r *Reader) ReadMany(ctx context.Context, window time.Duration, maxTags int) (dets []*TagDetection, err error) {
	if err := r.StartInventory(ctx); err != nil {
		return nil, err
	}
	defer func() {
		if r.ctrl.LeaveRunning {
			return
		}
		if stopErr := r.StopInventory(ctx); stopErr != nil {
			r.logger.Warn().Err(stopErr).Msg("stop inventory after read failed")
			if err == nil {
				err = stopErr
			}
		}
	}()

	r.flushBuffer(ctx)

	var consecutiveEmpty int
	deadline := time.Now().Add(window)
	for time.Now().Before(deadline) {
		if ctx.Err() != nil {
			return dets, ctx.Err()
		}
		candidate, pollErr := r.Poll(ctx, r.ctrl.PollTimeout)
		if pollErr != nil {
			return dets, pollErr
		}
		if candidate == nil {
			consecutiveEmpty++
			if r.ctrl.MaxConsecutiveEmpty > 0 && consecutiveEmpty >= r.ctrl.MaxConsecutiveEmpty {
				return dets, nil
			}
			continue
		}
		// Any sighting proves the field is not empty, debounced or not.
		consecutiveEmpty = 0
		if !r.dedupe.Accept(candidate.EPCHex(), candidate.DetectedAt) {
			continue
		}
		dets = append(dets, candidate)
		if maxTags > 0 && len(dets) >= maxTags {
			return dets, nil
		}
	}
	return dets, nil
}

// Stream returns an iterator of debounce-accepted detections. Iteration
// starts inventory if it is not already running, then polls lazily; each
// pull is one poll boundary. Unlike ReadSingle and ReadMany, Stream never
// stops inventory: breaking out of the range just stops pulling, so the
// device keeps discovering tags across consecutive stream consumers. The
// caller owns the matching StopInventory. A yielded non-nil error ends
// the stream.
func (r *Reader) Stream(ctx context.Context) iter.Seq2[*TagDetection, error] {
	return func(yield func(*TagDetection, error) bool) {
		if r.State() != StateRunning {
			if err := r.StartInventory(ctx); err != nil {
				yield(nil, err)
				return
			}
		}

		for {
			if ctx.Err() != nil {
				return
			}
			det, err := r.Poll(ctx, r.ctrl.PollTimeout)
			if err != nil {
				yield(nil, err)
				return
			}
			if det == nil {
				continue
			}
			if !r.dedupe.Accept(det.EPCHex(), det.DetectedAt) {
				continue
			}
			if !yield(det, nil) {
				return
			}
		}
	}
}

// flushBuffer drains stale tag reports left over from a previous inventory
// run. It drains while inventory is running rather than stopping and
// restarting around the flush; restart churn costs more than a few short
// polls. The flush is best-effort: errors end it silently and the read
// proceeds.
func (r *Reader) flushBuffer(ctx context.Context) {
	var flushed, consecutiveEmpty int
	flushDeadline := time.Now().Add(r.ctrl.FlushWindow)

	for time.Now().Before(flushDeadline) {
		if ctx.Err() != nil {
			return
		}
		det, err := r.Poll(ctx, r.ctrl.FlushPollTimeout)
		if err != nil {
			r.logger.Debug().Err(err).Msg("buffer flush poll failed")
			return
		}
		if det == nil {
			consecutiveEmpty++
			if consecutiveEmpty >= r.ctrl.FlushEmptyThreshold {
				break
			}
			continue
		}
		consecutiveEmpty = 0
		flushed++
		if flushed >= r.ctrl.FlushMaxTags {
			break
		}
	}
	if flushed > 0 {
		r.logger.Debug().Int("flushed", flushed).Msg("drained stale tag reports")
	}
}
