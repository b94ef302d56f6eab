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

import "context"

// DriverType identifies the transport a driver runs over.
type DriverType string

// Driver types.
const (
	DriverTypeSerial DriverType = "serial"
	DriverTypeTCP    DriverType = "tcp"
	DriverTypeMock   DriverType = "mock"
)

// Command identifies a reader operation at the driver boundary. Drivers map
// commands to the vendor wire protocol; the rest of the module never sees
// raw frames.
type Command uint8

// Reader command set.
const (
	CmdInventoryStart Command = iota + 1
	CmdInventoryPoll
	CmdInventoryStop
	CmdGetPower
	CmdSetPower
	CmdGetParams
	CmdSetParams
	CmdReadTagMemory
	CmdWriteTagMemory
	CmdLockTag
	CmdKillTag
	CmdGetAntenna
	CmdSetAntenna
	CmdGetQValue
	CmdSetQValue
	CmdSetSelectMask
	CmdGetFrequency
	CmdSetFrequency
	CmdDeviceInfo
	CmdBuzzerOn
	CmdBuzzerOff
	CmdRelayOn
	CmdRelayOff
	CmdReboot
)

// String returns the command name for logging.
func (c Command) String() string {
	switch c {
	case CmdInventoryStart:
		return "inventory_start"
	case CmdInventoryPoll:
		return "inventory_poll"
	case CmdInventoryStop:
		return "inventory_stop"
	case CmdGetPower:
		return "get_power"
	case CmdSetPower:
		return "set_power"
	case CmdGetParams:
		return "get_params"
	case CmdSetParams:
		return "set_params"
	case CmdReadTagMemory:
		return "read_tag_memory"
	case CmdWriteTagMemory:
		return "write_tag_memory"
	case CmdLockTag:
		return "lock_tag"
	case CmdKillTag:
		return "kill_tag"
	case CmdGetAntenna:
		return "get_antenna"
	case CmdSetAntenna:
		return "set_antenna"
	case CmdGetQValue:
		return "get_q_value"
	case CmdSetQValue:
		return "set_q_value"
	case CmdSetSelectMask:
		return "set_select_mask"
	case CmdGetFrequency:
		return "get_frequency"
	case CmdSetFrequency:
		return "set_frequency"
	case CmdDeviceInfo:
		return "device_info"
	case CmdBuzzerOn:
		return "buzzer_on"
	case CmdBuzzerOff:
		return "buzzer_off"
	case CmdRelayOn:
		return "relay_on"
	case CmdRelayOff:
		return "relay_off"
	case CmdReboot:
		return "reboot"
	default:
		return "unknown"
	}
}

// Driver is the transport-level contract every backend implements. Invoke
// sends one command and returns the device status plus response payload.
// A non-nil error means the transport itself failed; device-level refusals
// come back as status codes with a nil error, so callers always classify
// the status before touching the payload.
//
// Implementations must be safe for sequential use from one goroutine; the
// Reader serializes all Invoke calls behind its own lock.
type Driver interface {
	// Open establishes the link to the device at endpoint. The endpoint
	// format is driver-specific: a device path for serial, host:port for
	// TCP.
	Open(endpoint string) error

	// Close tears the link down. Safe to call more than once.
	Close() error

	// Invoke sends cmd with args and returns the device status and
	// response payload. The status is already masked to unsigned 32 bits.
	Invoke(ctx context.Context, cmd Command, args []byte) (StatusCode, []byte, error)

	// Connected reports whether the link is currently open.
	Connected() bool

	// Type returns the driver's transport type.
	Type() DriverType
}
