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
	"time"
)

// relayUnit is the device's relay timing granularity.
const relayUnit = 100 * time.Millisecond

// DeviceInfo describes the connected reader.
type DeviceInfo struct {
	FirmwareVersion string
	HardwareVersion string
	SerialNumber    string
}

// GetDeviceInfo queries firmware and hardware versions and the device
// serial number.
func (r *Reader) GetDeviceInfo(ctx context.Context) (*DeviceInfo, error) {
	payload, err := r.command(ctx, CmdDeviceInfo, nil)
	if err != nil {
		return nil, err
	}
	// Payload: fwMajor fwMinor hwMajor hwMinor serialLen serial...
	if len(payload) < 5 {
		return nil, fmt.Errorf("%w: device info response too short", ErrFrameCorrupted)
	}
	serialLen := int(payload[4])
	if len(payload) < 5+serialLen {
		return nil, fmt.Errorf("%w: device info serial truncated", ErrFrameCorrupted)
	}
	return &DeviceInfo{
		FirmwareVersion: fmt.Sprintf("%d.%d", payload[0], payload[1]),
		HardwareVersion: fmt.Sprintf("%d.%d", payload[2], payload[3]),
		SerialNumber:    fmt.Sprintf("%X", payload[5:5+serialLen]),
	}, nil
}

// EnableBuzzer sounds the buzzer for the given duration. The device counts
// in 100 ms units; durations round up, zero means a single short beep.
// Used on the trigger-read hot path, so no pause, no retry.
func (r *Reader) EnableBuzzer(ctx context.Context, duration time.Duration) error {
	units := durationUnits(duration)
	_, err := r.command(ctx, CmdBuzzerOn, []byte{units})
	return err
}

// DisableBuzzer silences the buzzer.
func (r *Reader) DisableBuzzer(ctx context.Context) error {
	_, err := r.command(ctx, CmdBuzzerOff, nil)
	return err
}

// ActivateRelay closes the relay for the given duration (100 ms units,
// rounded up; zero holds the relay until DeactivateRelay).
func (r *Reader) ActivateRelay(ctx context.Context, duration time.Duration) error {
	units := durationUnits(duration)
	_, err := r.command(ctx, CmdRelayOn, []byte{units})
	return err
}

// DeactivateRelay opens the relay.
func (r *Reader) DeactivateRelay(ctx context.Context) error {
	_, err := r.command(ctx, CmdRelayOff, nil)
	return err
}

// durationUnits converts a duration to the device's 100 ms units, rounding
// up and saturating at 255.
func durationUnits(d time.Duration) uint8 {
	if d <= 0 {
		return 0
	}
	units := (d + relayUnit - 1) / relayUnit
	if units > 255 {
		return 255
	}
	return uint8(units)
}

// GetAntennaMask reads the enabled-antenna bitmask.
func (r *Reader) GetAntennaMask(ctx context.Context) (uint8, error) {
	var mask uint8
	err := r.WithInventoryPaused(ctx, func(ctx context.Context) error {
		payload, cmdErr := r.command(ctx, CmdGetAntenna, nil)
		if cmdErr != nil {
			return cmdErr
		}
		if len(payload) < 1 {
			return fmt.Errorf("%w: empty antenna response", ErrFrameCorrupted)
		}
		mask = payload[0]
		return nil
	})
	return mask, err
}

// SetAntennaMask sets the enabled-antenna bitmask. At least one antenna
// must stay enabled.
func (r *Reader) SetAntennaMask(ctx context.Context, mask uint8) error {
	if mask == 0 {
		return fmt.Errorf("%w: antenna mask must enable at least one antenna", ErrInvalidParameter)
	}
	return r.WithInventoryPaused(ctx, func(ctx context.Context) error {
		_, cmdErr := r.command(ctx, CmdSetAntenna, []byte{mask})
		return cmdErr
	})
}

// Reboot restarts the device. Fire and forget: the link drops as the
// device resets, so any response (or the lack of one) is ignored and the
// reader is left disconnected.
func (r *Reader) Reboot(ctx context.Context) error {
	//nolint:errcheck // the device resets mid-response
	_, _, _ = r.invoke(ctx, CmdReboot, nil)
	r.setState(StateIdle)
	if err := r.driver.Close(); err != nil {
		return fmt.Errorf("close driver after reboot: %w", err)
	}
	return nil
}
