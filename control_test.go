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

func TestGetDeviceInfo(t *testing.T) {
	t.Parallel()

	r, drv := newTestReader(t)
	drv.SetResponse(CmdDeviceInfo, StatusOK,
		[]byte{3, 12, 1, 0, 4, 0xCF, 0x59, 0x10, 0x42})

	info, err := r.GetDeviceInfo(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "3.12", info.FirmwareVersion)
	assert.Equal(t, "1.0", info.HardwareVersion)
	assert.Equal(t, "CF591042", info.SerialNumber)
}

func TestGetDeviceInfo_Truncated(t *testing.T) {
	t.Parallel()

	r, drv := newTestReader(t)

	drv.SetResponse(CmdDeviceInfo, StatusOK, []byte{3, 12})
	_, err := r.GetDeviceInfo(context.Background())
	require.ErrorIs(t, err, ErrFrameCorrupted)

	// Serial length claims more bytes than the payload carries.
	drv.SetResponse(CmdDeviceInfo, StatusOK, []byte{3, 12, 1, 0, 8, 0xCF})
	_, err = r.GetDeviceInfo(context.Background())
	require.ErrorIs(t, err, ErrFrameCorrupted)
}

func TestDurationUnits(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		d    time.Duration
		want uint8
	}{
		{"zero", 0, 0},
		{"negative", -time.Second, 0},
		{"exact unit", 100 * time.Millisecond, 1},
		{"rounds up", 101 * time.Millisecond, 2},
		{"sub unit rounds up", time.Millisecond, 1},
		{"one second", time.Second, 10},
		{"saturates", time.Hour, 255},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, durationUnits(tt.d))
		})
	}
}

func TestBuzzerAndRelay(t *testing.T) {
	t.Parallel()

	r, drv := newTestReader(t)
	ctx := context.Background()

	require.NoError(t, r.EnableBuzzer(ctx, 300*time.Millisecond))
	assert.Equal(t, []byte{3}, drv.LastArgs(CmdBuzzerOn))

	require.NoError(t, r.DisableBuzzer(ctx))
	assert.Equal(t, 1, drv.CallCount(CmdBuzzerOff))

	require.NoError(t, r.ActivateRelay(ctx, 0))
	assert.Equal(t, []byte{0}, drv.LastArgs(CmdRelayOn))

	require.NoError(t, r.DeactivateRelay(ctx))
	assert.Equal(t, 1, drv.CallCount(CmdRelayOff))
}

func TestBuzzer_DoesNotPauseInventory(t *testing.T) {
	t.Parallel()

	r, drv := newTestReader(t)
	ctx := context.Background()
	require.NoError(t, r.StartInventory(ctx))
	drv.ResetCalls()

	require.NoError(t, r.EnableBuzzer(ctx, 100*time.Millisecond))

	// Hot path: a feedback beep must not interrupt the read burst.
	assert.Equal(t, []Command{CmdBuzzerOn}, drv.Calls())
	assert.Equal(t, StateRunning, r.State())
}

func TestAntennaMask(t *testing.T) {
	t.Parallel()

	r, drv := newTestReader(t)
	ctx := context.Background()

	require.ErrorIs(t, r.SetAntennaMask(ctx, 0), ErrInvalidParameter)
	assert.Equal(t, 0, drv.CallCount(CmdSetAntenna))

	require.NoError(t, r.SetAntennaMask(ctx, 0b0101))
	assert.Equal(t, []byte{0b0101}, drv.LastArgs(CmdSetAntenna))

	drv.SetResponse(CmdGetAntenna, StatusOK, []byte{0b0101})
	mask, err := r.GetAntennaMask(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint8(0b0101), mask)
}

func TestReboot_LeavesReaderDisconnected(t *testing.T) {
	t.Parallel()

	r, drv := newTestReader(t)
	ctx := context.Background()
	require.NoError(t, r.StartInventory(ctx))

	require.NoError(t, r.Reboot(ctx))

	assert.Equal(t, StateIdle, r.State())
	assert.False(t, drv.Connected())
}

func TestReboot_IgnoresMissingResponse(t *testing.T) {
	t.Parallel()

	r, drv := newTestReader(t)
	// The link drops mid-reset; the reboot command sees a read failure.
	drv.SetResponse(CmdReboot, StatusCommReadFailed, nil)

	require.NoError(t, r.Reboot(context.Background()))
	assert.False(t, drv.Connected())
}
