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
	"fmt"
	"sync/atomic"

	"github.com/openrfid/go-cf591/internal/syncutil"
	"github.com/rs/zerolog"
)

// Reader is one session with a CF591-class UHF reader. It owns the driver
// link, the inventory state machine and the deduplicator; all driver calls
// funnel through invoke so the device only ever sees one command at a time.
//
// Reader methods are safe for concurrent use, but only one inventory
// start/stop/poll sequence is meaningful at a time per device. The state
// lock is held only across state checks and transitions, never across a
// blocking driver call, so a poll in flight does not wedge a concurrent
// stop request.
type Reader struct {
	driver   Driver
	logger   zerolog.Logger
	retry    *RetryConfig
	ctrl     ControllerConfig
	dedupe   *Deduplicator
	endpoint string
	maxPower int

	// ioMu serializes driver Invoke calls.
	ioMu syncutil.Mutex
	// stateMu guards invState only.
	stateMu  syncutil.Mutex
	invState InventoryState

	// filterSet tracks whether a select mask is active on the device, so
	// inventory restarts know to wipe it.
	filterSet atomic.Bool
}

// New creates a Reader over the given driver. The reader starts
// disconnected; call Connect before issuing commands.
func New(driver Driver, opts ...Option) (*Reader, error) {
	if driver == nil {
		return nil, fmt.Errorf("%w: nil driver", ErrInvalidParameter)
	}

	r := &Reader{
		driver:   driver,
		logger:   zerolog.Nop(),
		retry:    DefaultRetryConfig(),
		ctrl:     DefaultControllerConfig(),
		maxPower: MaxPower,
		invState: StateIdle,
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	r.dedupe = NewDeduplicator(r.ctrl.DebounceWindow)
	return r, nil
}

// Connect opens the device link. Opens fail transiently right after device
// power-up, so the open goes through the retry policy. Calling Connect on
// an already-open reader returns ErrAlreadyOpen.
func (r *Reader) Connect(ctx context.Context, endpoint string) error {
	if r.driver.Connected() {
		return ErrAlreadyOpen
	}

	err := RetryWithConfig(ctx, r.retry, func() error {
		if err := r.driver.Open(endpoint); err != nil {
			return fmt.Errorf("%w: %w", ErrConnectFailed, err)
		}
		return nil
	})
	if err != nil {
		return &ConnectionError{Err: err, Endpoint: endpoint}
	}

	r.endpoint = endpoint
	r.logger.Info().Str("endpoint", endpoint).Str("driver", string(r.driver.Type())).
		Msg("connected to reader")
	return nil
}

// Disconnect stops any running inventory and closes the link. The implicit
// stop is best-effort: its errors are logged and suppressed so the hardware
// is left as clean as we can manage for the next session. Disconnecting an
// already-closed reader is a no-op, so callers tearing down may safely
// ignore the returned error; it only reports a failed link close.
func (r *Reader) Disconnect() error {
	if !r.driver.Connected() {
		return nil
	}

	if r.State() == StateRunning {
		if err := r.StopInventory(context.Background()); err != nil {
			r.logger.Warn().Err(err).Msg("stop inventory during disconnect failed")
		}
	}

	if err := r.driver.Close(); err != nil {
		return fmt.Errorf("close driver: %w", err)
	}
	r.logger.Info().Str("endpoint", r.endpoint).Msg("disconnected")
	return nil
}

// Connected reports whether the device link is open.
func (r *Reader) Connected() bool {
	return r.driver.Connected()
}

// Endpoint returns the endpoint passed to Connect, or "" if never connected.
func (r *Reader) Endpoint() string {
	return r.endpoint
}

// invoke is the single funnel for driver commands. It serializes access to
// the driver and logs each exchange at trace level. The returned status is
// raw; callers classify it.
func (r *Reader) invoke(ctx context.Context, cmd Command, args []byte) (StatusCode, []byte, error) {
	if !r.driver.Connected() {
		return 0, nil, ErrNotConnected
	}

	r.ioMu.Lock()
	status, payload, err := r.driver.Invoke(ctx, cmd, args)
	r.ioMu.Unlock()

	if err != nil {
		r.logger.Trace().Str("cmd", cmd.String()).Err(err).Msg("invoke transport error")
		return 0, nil, fmt.Errorf("%s: %w", cmd, err)
	}
	r.logger.Trace().Str("cmd", cmd.String()).
		Uint32("status", uint32(status)).
		Int("payload_len", len(payload)).
		Msg("invoke")
	return status, payload, nil
}

// command runs cmd and requires a success status. Anything else comes back
// as a CommandError carrying the raw code. Used by every operation where
// "empty" is not a valid answer.
func (r *Reader) command(ctx context.Context, cmd Command, args []byte) ([]byte, error) {
	status, payload, err := r.invoke(ctx, cmd, args)
	if err != nil {
		return nil, err
	}
	if ClassifyStatus(status) != OutcomeSuccess {
		return nil, newCommandError(cmd.String(), status)
	}
	return payload, nil
}
