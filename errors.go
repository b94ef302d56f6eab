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
)

// Error categories for classification and retry logic.
var (
	// Connection errors - fatal to the session
	ErrNotConnected  = errors.New("reader is not connected")
	ErrAlreadyOpen   = errors.New("reader is already connected")
	ErrConnectFailed = errors.New("failed to open device")
	ErrDriverClosed  = errors.New("driver is closed")

	// Transport errors - potentially retryable
	ErrTransportWrite   = errors.New("transport write failed")
	ErrTransportRead    = errors.New("transport read failed")
	ErrTransportTimeout = errors.New("transport timeout")
	ErrFrameCorrupted   = errors.New("response frame corrupted")

	// Validation errors - rejected before any device I/O
	ErrInvalidParameter = errors.New("invalid parameter")

	// Tag errors
	ErrNoTagDetected = errors.New("no tag detected")
)

// ConnectionError wraps failures to open or keep the device link. These are
// fatal to the session; the caller has to reconnect.
type ConnectionError struct {
	Err      error
	Endpoint string
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect %s: %v", e.Endpoint, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// CommandError means the device rejected a command with a real fault code.
// It carries the raw status for diagnostics; the code is always stored
// normalized to unsigned 32 bits.
type CommandError struct {
	Op     string
	Status StatusCode
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s failed: status 0x%08X (%s)", e.Op, uint32(e.Status), statusMeaning(e.Status))
}

func newCommandError(op string, status StatusCode) *CommandError {
	return &CommandError{Op: op, Status: status}
}

// IsRetryable reports whether an operation that returned err is worth
// retrying. Command faults caused by transient comm conditions (timeouts,
// write/read failures, CRC noise) retry; parameter and auth faults do not.
// Recoverable outcomes never reach this function - they are not errors.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var ce *CommandError
	if errors.As(err, &ce) {
		switch ce.Status {
		case StatusCommTimeout, StatusCommWriteFailed, StatusCommReadFailed,
			StatusRespCRCErr, StatusRespFormatErr, StatusInternalErr,
			StatusDriverInternal:
			return true
		default:
			return false
		}
	}

	switch {
	case errors.Is(err, ErrTransportTimeout),
		errors.Is(err, ErrTransportRead),
		errors.Is(err, ErrTransportWrite),
		errors.Is(err, ErrFrameCorrupted):
		return true
	default:
		return false
	}
}

// IsFatal reports whether err means the device or connection is gone and the
// session should be abandoned. Distinct from IsRetryable: a retryable error
// can recover in place, a fatal one cannot.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}

	var conn *ConnectionError
	if errors.As(err, &conn) {
		return true
	}

	var ce *CommandError
	if errors.As(err, &ce) {
		switch ce.Status {
		case StatusPortHandleErr, StatusPortOpenFailed,
			StatusNetUnconnected, StatusNetDisconnected:
			return true
		}
	}

	if isDeviceGoneError(err) {
		return true
	}

	switch {
	case errors.Is(err, ErrDriverClosed),
		errors.Is(err, ErrNotConnected),
		errors.Is(err, ErrTransportWrite),
		errors.Is(err, ErrTransportRead),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrClosedPipe):
		return true
	default:
		return false
	}
}

// isDeviceGoneError checks for OS-level errors indicating the device
// disappeared, typically a USB serial adapter unplugged mid-operation.
func isDeviceGoneError(err error) bool {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		//nolint:exhaustive // only the device-gone errno values matter here
		switch errno {
		case syscall.EIO, syscall.ENXIO, syscall.ENODEV:
			return true
		}
	}
	return false
}
