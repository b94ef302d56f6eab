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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fastRetry keeps test retries quick and deterministic.
func fastRetry() *RetryConfig {
	return &RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		MaxDelay:    10 * time.Millisecond,
		Multiplier:  2.0,
	}
}

// newTestReader returns a connected reader over a fresh mock driver.
func newTestReader(t *testing.T, opts ...Option) (*Reader, *MockDriver) {
	t.Helper()

	drv := NewMockDriver()
	opts = append([]Option{WithRetryConfig(fastRetry())}, opts...)
	r, err := New(drv, opts...)
	require.NoError(t, err)
	require.NoError(t, r.Connect(context.Background(), "mock:0"))
	// A real device blocks for the poll timeout; pace the mock so empty
	// poll loops do not spin.
	drv.SetDelay(time.Millisecond)
	drv.ResetCalls()
	return r, drv
}

func TestStopInventory_IdleIsNoOp(t *testing.T) {
	t.Parallel()

	r, drv := newTestReader(t)

	require.NoError(t, r.StopInventory(context.Background()))
	assert.Equal(t, 0, drv.CallCount(CmdInventoryStop), "idle stop must not touch the device")
	assert.Equal(t, StateIdle, r.State())
}

func TestStartInventory(t *testing.T) {
	t.Parallel()

	r, drv := newTestReader(t)

	require.NoError(t, r.StartInventory(context.Background()))
	assert.Equal(t, StateRunning, r.State())
	assert.Equal(t, 1, drv.CallCount(CmdInventoryStart))
}

func TestStartInventory_WireArgs(t *testing.T) {
	t.Parallel()

	r, drv := newTestReader(t)

	require.NoError(t, r.StartInventory(context.Background()))
	assert.Equal(t, []byte{0, 0, 0, 0, 0}, drv.LastArgs(CmdInventoryStart),
		"continuous start: zero count limit, zero parameter word")
}

func TestStartBoundedInventory_WireArgs(t *testing.T) {
	t.Parallel()

	r, drv := newTestReader(t)

	require.NoError(t, r.StartBoundedInventory(context.Background(), 50))
	assert.Equal(t, StateRunning, r.State())
	assert.Equal(t, []byte{50, 0, 0, 0, 0}, drv.LastArgs(CmdInventoryStart))
}

func TestStopInventory_WireArgs(t *testing.T) {
	t.Parallel()

	r, drv := newTestReader(t)
	ctx := context.Background()

	require.NoError(t, r.StartInventory(ctx))
	require.NoError(t, r.StopInventory(ctx))
	assert.Equal(t, []byte{0x88, 0x13}, drv.LastArgs(CmdInventoryStop),
		"5000 ms stop timeout, little endian")
}

func TestStartInventory_DoubleStartStopsFirst(t *testing.T) {
	t.Parallel()

	r, drv := newTestReader(t)
	ctx := context.Background()

	require.NoError(t, r.StartInventory(ctx))
	require.NoError(t, r.StartInventory(ctx))

	assert.Equal(t, StateRunning, r.State(), "exactly one logical running session")
	assert.Equal(t, 2, drv.CallCount(CmdInventoryStart))
	assert.Equal(t, 1, drv.CallCount(CmdInventoryStop))
	assert.Equal(t, []Command{CmdInventoryStart, CmdInventoryStop, CmdInventoryStart}, drv.Calls())
}

func TestStartInventory_RetriesTransientFailure(t *testing.T) {
	t.Parallel()

	r, drv := newTestReader(t)
	drv.QueueResponses(CmdInventoryStart,
		MockResponse{Status: StatusCommTimeout},
		MockResponse{Status: StatusCommTimeout},
		MockResponse{Status: StatusOK},
	)

	require.NoError(t, r.StartInventory(context.Background()))
	assert.Equal(t, 3, drv.CallCount(CmdInventoryStart))
	assert.Equal(t, StateRunning, r.State())
}

func TestStopInventory_ToleratesStoppedAndTimeoutCodes(t *testing.T) {
	t.Parallel()

	for _, status := range []StatusCode{StatusInventoryStop, StatusCommTimeout} {
		r, drv := newTestReader(t)
		ctx := context.Background()

		require.NoError(t, r.StartInventory(ctx))
		drv.SetResponse(CmdInventoryStop, status, nil)

		require.NoError(t, r.StopInventory(ctx), "status 0x%08X", uint32(status))
		assert.Equal(t, StateIdle, r.State())
	}
}

func TestStopInventory_FaultSurfaces(t *testing.T) {
	t.Parallel()

	r, drv := newTestReader(t)
	ctx := context.Background()

	require.NoError(t, r.StartInventory(ctx))
	drv.SetResponse(CmdInventoryStop, StatusInternalErr, nil)

	err := r.StopInventory(ctx)
	require.Error(t, err)

	var ce *CommandError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, StatusInternalErr, ce.Status)
	assert.Equal(t, StateRunning, r.State(), "failed stop leaves the session running")
}

func TestPoll_EmptyAndTimeoutAreNotErrors(t *testing.T) {
	t.Parallel()

	for _, status := range []StatusCode{StatusInventoryStop, StatusCommTimeout, StatusTagNoResponse} {
		r, drv := newTestReader(t)
		drv.SetResponse(CmdInventoryPoll, status, nil)

		det, err := r.Poll(context.Background(), 50*time.Millisecond)
		require.NoError(t, err, "status 0x%08X", uint32(status))
		assert.Nil(t, det)
	}
}

func TestPoll_FaultSurfaces(t *testing.T) {
	t.Parallel()

	r, drv := newTestReader(t)
	drv.SetResponse(CmdInventoryPoll, StatusBufferOverflow, nil)

	_, err := r.Poll(context.Background(), 50*time.Millisecond)
	var ce *CommandError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, StatusBufferOverflow, ce.Status)
}

func TestPoll_DecodesTag(t *testing.T) {
	t.Parallel()

	r, drv := newTestReader(t)
	drv.SetResponse(CmdInventoryPoll, StatusOK, makeTagRecord(3, -512, 2, 7, []byte{0xAB, 0xCD}))

	det, err := r.Poll(context.Background(), 50*time.Millisecond)
	require.NoError(t, err)
	require.NotNil(t, det)
	assert.Equal(t, "ABCD", det.EPCHex())
	assert.InDelta(t, -51.2, det.RSSI, 0.001)
}

func TestReadSingle_TimeoutReturnsNilAndCleansUp(t *testing.T) {
	t.Parallel()

	r, drv := newTestReader(t)

	timeout := 300 * time.Millisecond
	start := time.Now()
	det, err := r.ReadSingle(context.Background(), timeout)
	elapsed := time.Since(start)

	require.NoError(t, err, "a read timeout is not an error")
	assert.Nil(t, det)
	assert.Less(t, elapsed, timeout+200*time.Millisecond)

	calls := drv.Calls()
	require.NotEmpty(t, calls)
	assert.Equal(t, CmdInventoryStart, calls[0])
	assert.Equal(t, CmdInventoryStop, calls[len(calls)-1], "cleanup stop ran")
	assert.Equal(t, StateIdle, r.State())
}

func TestReadSingle_CleansUpOnPollFault(t *testing.T) {
	t.Parallel()

	r, drv := newTestReader(t)
	drv.SetResponse(CmdInventoryPoll, StatusBufferOverflow, nil)

	_, err := r.ReadSingle(context.Background(), time.Second)
	require.Error(t, err)
	assert.Equal(t, 1, drv.CallCount(CmdInventoryStop), "cleanup stop ran on the error path")
	assert.Equal(t, StateIdle, r.State())
}

func TestReadSingle_TimeoutScenario(t *testing.T) {
	t.Parallel()

	r, drv := newTestReader(t)

	// Two quiet polls, then a tag at -45.0 dBm. The flush phase consumes
	// the quiet polls; the read loop gets the detection.
	drv.QueueResponses(CmdInventoryPoll,
		MockResponse{Status: StatusCommTimeout},
		MockResponse{Status: StatusCommTimeout},
		MockResponse{Status: StatusOK, Payload: makeTagRecord(1, -450, 1, 3, []byte{0xAB, 0xCD})},
	)

	start := time.Now()
	det, err := r.ReadSingle(context.Background(), 5*time.Second)
	elapsed := time.Since(start)

	require.NoError(t, err)
	require.NotNil(t, det)
	assert.Equal(t, "ABCD", det.EPCHex())
	assert.InDelta(t, -45.0, det.RSSI, 0.001)
	assert.Less(t, elapsed, time.Second, "three poll cycles, nowhere near the 5s deadline")
}

func TestReadSingle_NewSessionReadsSameTagAgain(t *testing.T) {
	t.Parallel()

	r, drv := newTestReader(t, WithDebounceWindow(time.Hour))
	ctx := context.Background()

	record := makeTagRecord(1, -400, 1, 1, []byte{0xAB, 0xCD})
	drv.SetResponse(CmdInventoryPoll, StatusOK, record)

	first, err := r.ReadSingle(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, first)

	// Each one-shot read is its own inventory session: debounce history
	// resets on start, so pressing the trigger again reads the same tag.
	second, err := r.ReadSingle(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, first.EPCHex(), second.EPCHex())
}

func TestReadMany_CollectsDistinctTags(t *testing.T) {
	t.Parallel()

	r, drv := newTestReader(t)

	drv.QueueResponses(CmdInventoryPoll,
		MockResponse{Status: StatusInventoryStop},
		MockResponse{Status: StatusInventoryStop},
		MockResponse{Status: StatusOK, Payload: makeTagRecord(1, -400, 1, 1, []byte{0xAA, 0x01})},
		MockResponse{Status: StatusOK, Payload: makeTagRecord(2, -410, 1, 1, []byte{0xAA, 0x01})},
		MockResponse{Status: StatusOK, Payload: makeTagRecord(3, -420, 1, 1, []byte{0xBB, 0x02})},
	)

	dets, err := r.ReadMany(context.Background(), 400*time.Millisecond, 0)
	require.NoError(t, err)
	require.Len(t, dets, 2, "repeat of AA01 debounced away")
	assert.Equal(t, "AA01", dets[0].EPCHex())
	assert.Equal(t, "BB02", dets[1].EPCHex())
	assert.Equal(t, StateIdle, r.State())
}

func TestReadMany_MaxTagsStopsEarly(t *testing.T) {
	t.Parallel()

	r, drv := newTestReader(t)

	drv.QueueResponses(CmdInventoryPoll,
		MockResponse{Status: StatusInventoryStop},
		MockResponse{Status: StatusInventoryStop},
		MockResponse{Status: StatusOK, Payload: makeTagRecord(1, -400, 1, 1, []byte{0xAA, 0x01})},
	)

	start := time.Now()
	dets, err := r.ReadMany(context.Background(), 10*time.Second, 1)
	require.NoError(t, err)
	assert.Len(t, dets, 1)
	assert.Less(t, time.Since(start), time.Second)
}

func TestReadMany_EmptyFieldEndsEarly(t *testing.T) {
	t.Parallel()

	r, drv := newTestReader(t)

	// Nothing in the field at all: the read ends after the consecutive
	// empty limit instead of waiting out the whole window.
	start := time.Now()
	dets, err := r.ReadMany(context.Background(), 3*time.Second, 0)
	require.NoError(t, err)
	assert.Empty(t, dets)
	assert.Less(t, time.Since(start), time.Second)

	// Flush drains its own threshold of empties first, then the read
	// loop polls exactly MaxConsecutiveEmpty times.
	expected := r.ctrl.FlushEmptyThreshold + r.ctrl.MaxConsecutiveEmpty
	assert.Equal(t, expected, drv.CallCount(CmdInventoryPoll))
	assert.Equal(t, StateIdle, r.State())
}

func TestReadMany_EmptyRunResetByTag(t *testing.T) {
	t.Parallel()

	r, drv := newTestReader(t)

	drv.QueueResponses(CmdInventoryPoll,
		MockResponse{Status: StatusInventoryStop}, // flush
		MockResponse{Status: StatusInventoryStop}, // flush
		MockResponse{Status: StatusInventoryStop},
		MockResponse{Status: StatusInventoryStop},
		MockResponse{Status: StatusOK, Payload: makeTagRecord(1, -400, 1, 1, []byte{0xAA, 0x01})},
		MockResponse{Status: StatusInventoryStop},
		MockResponse{Status: StatusInventoryStop},
		MockResponse{Status: StatusOK, Payload: makeTagRecord(2, -410, 1, 1, []byte{0xBB, 0x02})},
	)

	dets, err := r.ReadMany(context.Background(), 3*time.Second, 0)
	require.NoError(t, err)
	require.Len(t, dets, 2, "a sighting resets the empty run")
	assert.Equal(t, "AA01", dets[0].EPCHex())
	assert.Equal(t, "BB02", dets[1].EPCHex())
}

func TestStream_BreakLeavesInventoryRunning(t *testing.T) {
	t.Parallel()

	r, drv := newTestReader(t)

	drv.QueueResponses(CmdInventoryPoll,
		MockResponse{Status: StatusOK, Payload: makeTagRecord(1, -400, 1, 1, []byte{0xAA, 0x01})},
		MockResponse{Status: StatusOK, Payload: makeTagRecord(2, -410, 1, 1, []byte{0xBB, 0x02})},
	)

	var seen []string
	for det, err := range r.Stream(context.Background()) {
		require.NoError(t, err)
		seen = append(seen, det.EPCHex())
		if len(seen) == 2 {
			break
		}
	}

	assert.Equal(t, []string{"AA01", "BB02"}, seen)
	// Breaking out just stops pulling; the caller owns StopInventory.
	assert.Equal(t, StateRunning, r.State())
	assert.Equal(t, 0, drv.CallCount(CmdInventoryStop))

	require.NoError(t, r.StopInventory(context.Background()))
	assert.Equal(t, StateIdle, r.State())
}

func TestStream_PersistsAcrossConsumers(t *testing.T) {
	t.Parallel()

	r, drv := newTestReader(t)

	drv.QueueResponses(CmdInventoryPoll,
		MockResponse{Status: StatusOK, Payload: makeTagRecord(1, -400, 1, 1, []byte{0xAA, 0x01})},
		MockResponse{Status: StatusOK, Payload: makeTagRecord(2, -410, 1, 1, []byte{0xBB, 0x02})},
	)

	for range r.Stream(context.Background()) {
		break
	}
	for range r.Stream(context.Background()) {
		break
	}

	// The second consumer reuses the running inventory; no restart churn.
	assert.Equal(t, 1, drv.CallCount(CmdInventoryStart))
	assert.Equal(t, 0, drv.CallCount(CmdInventoryStop))
}

func TestStream_YieldsFaults(t *testing.T) {
	t.Parallel()

	r, drv := newTestReader(t)
	drv.SetResponse(CmdInventoryPoll, StatusBufferOverflow, nil)

	var streamErr error
	for _, err := range r.Stream(context.Background()) {
		streamErr = err
		break
	}

	var ce *CommandError
	require.ErrorAs(t, streamErr, &ce)
	// A fault ends the stream; inventory stays under caller control.
	assert.Equal(t, StateRunning, r.State())
}

func TestDisconnect_StopsRunningInventory(t *testing.T) {
	t.Parallel()

	r, drv := newTestReader(t)
	ctx := context.Background()

	require.NoError(t, r.StartInventory(ctx))
	require.NoError(t, r.Disconnect())

	assert.Equal(t, 1, drv.CallCount(CmdInventoryStop))
	assert.False(t, r.Connected())
}

func TestDisconnect_SuppressesStopFailure(t *testing.T) {
	t.Parallel()

	r, drv := newTestReader(t)
	ctx := context.Background()

	require.NoError(t, r.StartInventory(ctx))
	drv.SetResponse(CmdInventoryStop, StatusInternalErr, nil)

	// Best-effort cleanup: the failed stop must not block the disconnect.
	require.NoError(t, r.Disconnect())
	assert.False(t, r.Connected())
}

func TestDisconnect_Idempotent(t *testing.T) {
	t.Parallel()

	r, _ := newTestReader(t)

	require.NoError(t, r.Disconnect())
	require.NoError(t, r.Disconnect())
	assert.False(t, r.Connected())
}

func TestConnect_AlreadyOpen(t *testing.T) {
	t.Parallel()

	r, _ := newTestReader(t)
	err := r.Connect(context.Background(), "mock:1")
	require.ErrorIs(t, err, ErrAlreadyOpen)
}

func TestConnect_FailureWrapsConnectionError(t *testing.T) {
	t.Parallel()

	drv := NewMockDriver()
	drv.SetOpenError(ErrConnectFailed)

	r, err := New(drv, WithRetryConfig(&RetryConfig{MaxAttempts: 2, BaseDelay: time.Millisecond, Multiplier: 2.0}))
	require.NoError(t, err)

	err = r.Connect(context.Background(), "mock:0")
	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, "mock:0", connErr.Endpoint)
	assert.True(t, IsFatal(err))
}
