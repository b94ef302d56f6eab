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
	"sync"
	"time"
)

// MockResponse is one scripted driver response.
type MockResponse struct {
	Payload []byte
	Status  StatusCode
}

// MockDriver is a scriptable in-memory Driver for tests. Responses can be
// set per command (static) or queued (consumed in order, ahead of the
// static response); errors and artificial delays are injectable. Every
// Invoke is recorded, so tests can assert call counts and ordering.
type MockDriver struct {
	responses map[Command]MockResponse
	queues    map[Command][]MockResponse
	errorMap  map[Command]error
	callCount map[Command]int
	lastArgs  map[Command][]byte
	calls     []Command
	endpoint  string
	openErr   error
	delay     time.Duration
	mu        sync.Mutex
	connected bool
}

// NewMockDriver creates a disconnected MockDriver; Open connects it.
func NewMockDriver() *MockDriver {
	return &MockDriver{
		responses: make(map[Command]MockResponse),
		queues:    make(map[Command][]MockResponse),
		errorMap:  make(map[Command]error),
		callCount: make(map[Command]int),
		lastArgs:  make(map[Command][]byte),
	}
}

// Open implements Driver.
func (m *MockDriver) Open(endpoint string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.openErr != nil {
		return m.openErr
	}
	m.connected = true
	m.endpoint = endpoint
	return nil
}

// Close implements Driver.
func (m *MockDriver) Close() error {
	m.mu.Lock()
	m.connected = false
	m.mu.Unlock()
	return nil
}

// Connected implements Driver.
func (m *MockDriver) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// Type implements Driver.
func (*MockDriver) Type() DriverType {
	return DriverTypeMock
}

// Invoke implements Driver. Commands without a scripted response default
// to success with an empty payload, except polls, which default to "no
// tag" so an unscripted mock behaves like an empty field.
func (m *MockDriver) Invoke(ctx context.Context, cmd Command, args []byte) (StatusCode, []byte, error) {
	select {
	case <-ctx.Done():
		return 0, nil, ctx.Err()
	default:
	}

	m.mu.Lock()
	delay := m.delay
	connected := m.connected
	m.mu.Unlock()

	if !connected {
		return 0, nil, ErrDriverClosed
	}

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return 0, nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.callCount[cmd]++
	m.calls = append(m.calls, cmd)
	m.lastArgs[cmd] = append([]byte(nil), args...)

	if err, exists := m.errorMap[cmd]; exists {
		return 0, nil, err
	}

	if queue := m.queues[cmd]; len(queue) > 0 {
		resp := queue[0]
		m.queues[cmd] = queue[1:]
		return resp.Status, resp.Payload, nil
	}

	if resp, exists := m.responses[cmd]; exists {
		return resp.Status, resp.Payload, nil
	}

	if cmd == CmdInventoryPoll {
		return StatusInventoryStop, nil, nil
	}
	return StatusOK, nil, nil
}

// Test helper methods

// SetResponse configures the static response for a command.
func (m *MockDriver) SetResponse(cmd Command, status StatusCode, payload []byte) {
	m.mu.Lock()
	m.responses[cmd] = MockResponse{Status: status, Payload: payload}
	m.mu.Unlock()
}

// QueueResponses appends scripted responses consumed in order, before any
// static response applies.
func (m *MockDriver) QueueResponses(cmd Command, responses ...MockResponse) {
	m.mu.Lock()
	m.queues[cmd] = append(m.queues[cmd], responses...)
	m.mu.Unlock()
}

// SetError injects a transport-level error for a command.
func (m *MockDriver) SetError(cmd Command, err error) {
	m.mu.Lock()
	m.errorMap[cmd] = err
	m.mu.Unlock()
}

// ClearError removes error injection for a command.
func (m *MockDriver) ClearError(cmd Command) {
	m.mu.Lock()
	delete(m.errorMap, cmd)
	m.mu.Unlock()
}

// SetOpenError makes subsequent Open calls fail with err.
func (m *MockDriver) SetOpenError(err error) {
	m.mu.Lock()
	m.openErr = err
	m.mu.Unlock()
}

// SetDelay adds an artificial per-Invoke delay simulating hardware
// response time.
func (m *MockDriver) SetDelay(delay time.Duration) {
	m.mu.Lock()
	m.delay = delay
	m.mu.Unlock()
}

// CallCount returns how many times cmd was invoked.
func (m *MockDriver) CallCount(cmd Command) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount[cmd]
}

// Calls returns the ordered log of invoked commands.
func (m *MockDriver) Calls() []Command {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Command, len(m.calls))
	copy(out, m.calls)
	return out
}

// LastArgs returns the args of the most recent invocation of cmd, nil if
// it was never invoked.
func (m *MockDriver) LastArgs(cmd Command) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastArgs[cmd]
}

// Endpoint returns the endpoint passed to the last successful Open.
func (m *MockDriver) Endpoint() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.endpoint
}

// ResetCalls clears the call log and counters, keeping scripted responses.
func (m *MockDriver) ResetCalls() {
	m.mu.Lock()
	m.callCount = make(map[Command]int)
	m.lastArgs = make(map[Command][]byte)
	m.calls = nil
	m.mu.Unlock()
}
