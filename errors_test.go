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
	"errors"
	"fmt"
	"io"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandError_Message(t *testing.T) {
	t.Parallel()

	err := newCommandError("set_power", StatusCommTimeout)
	assert.Contains(t, err.Error(), "set_power")
	assert.Contains(t, err.Error(), "0xFFFFFF12")
	assert.Contains(t, err.Error(), "communication timeout")
}

func TestConnectionError_Unwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("permission denied")
	err := &ConnectionError{Err: cause, Endpoint: "/dev/ttyUSB0"}

	assert.Contains(t, err.Error(), "/dev/ttyUSB0")
	require.ErrorIs(t, err, cause)
}

func TestIsRetryable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		name string
		want bool
	}{
		{nil, "nil", false},
		{newCommandError("poll", StatusCommTimeout), "comm timeout", true},
		{newCommandError("poll", StatusCommWriteFailed), "write failed", true},
		{newCommandError("poll", StatusRespCRCErr), "crc", true},
		{newCommandError("poll", StatusInternalErr), "internal", true},
		{newCommandError("set_power", StatusParamErr), "parameter", false},
		{newCommandError("read", StatusAuthFailed), "auth", false},
		{newCommandError("read", StatusPasswordErr), "password", false},
		{fmt.Errorf("wrapped: %w", ErrTransportTimeout), "transport timeout", true},
		{fmt.Errorf("wrapped: %w", ErrFrameCorrupted), "frame corrupted", true},
		{ErrInvalidParameter, "validation", false},
		{errors.New("random"), "unknown", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestIsFatal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		name string
		want bool
	}{
		{nil, "nil", false},
		{&ConnectionError{Err: errors.New("no such device"), Endpoint: "/dev/ttyUSB0"}, "connection", true},
		{newCommandError("open", StatusPortHandleErr), "port handle", true},
		{newCommandError("open", StatusNetDisconnected), "net disconnected", true},
		{newCommandError("poll", StatusCommTimeout), "comm timeout", false},
		{fmt.Errorf("read: %w", ErrDriverClosed), "driver closed", true},
		{fmt.Errorf("read: %w", io.EOF), "eof", true},
		{ErrNotConnected, "not connected", true},
		{errors.New("random"), "unknown", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsFatal(tt.err))
		})
	}
}

func TestIsFatal_DeviceGone(t *testing.T) {
	t.Parallel()

	// A USB adapter unplug surfaces as EIO from the port layer.
	err := fmt.Errorf("read /dev/ttyUSB0: %w", syscall.EIO)
	assert.True(t, IsFatal(err))
}
