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

package frame

import (
	"fmt"

	cf591 "github.com/openrfid/go-cf591"
)

// Wire command bytes. The device speaks the UHFReader18-family protocol;
// peripheral toggles (buzzer, relay) share one wire command with an on/off
// selector prefixed to the data.
const (
	wireInventoryStart = 0x01
	wireReadMemory     = 0x02
	wireWriteMemory    = 0x03
	wireKillTag        = 0x05
	wireLockTag        = 0x06
	wireInventoryPoll  = 0x0F
	wireInventoryStop  = 0x10
	wireSetSelectMask  = 0x12
	wireDeviceInfo     = 0x21
	wireGetFrequency   = 0x22
	wireSetFrequency   = 0x23
	wireSetPower       = 0x2F
	wireGetPower       = 0x30
	wireBuzzer         = 0x33
	wireRelay          = 0x34
	wireSetParams      = 0x35
	wireGetParams      = 0x36
	wireSetQValue      = 0x37
	wireGetQValue      = 0x38
	wireSetAntenna     = 0x3E
	wireGetAntenna     = 0x3F
	wireReboot         = 0x68
)

// Peripheral on/off selector values.
const (
	selectorOff = 0x00
	selectorOn  = 0x01
)

// EncodeCommand builds the wire packet for a driver-level command. Most
// commands pass their args through as frame data; on/off peripheral pairs
// collapse onto one wire command with a selector byte.
func EncodeCommand(addr byte, cmd cf591.Command, args []byte) ([]byte, error) {
	wireCmd, data, err := wireForm(cmd, args)
	if err != nil {
		return nil, err
	}
	return Build(addr, wireCmd, data)
}

func wireForm(cmd cf591.Command, args []byte) (byte, []byte, error) {
	switch cmd {
	case cf591.CmdInventoryStart:
		return wireInventoryStart, args, nil
	case cf591.CmdInventoryPoll:
		return wireInventoryPoll, args, nil
	case cf591.CmdInventoryStop:
		return wireInventoryStop, args, nil
	case cf591.CmdGetPower:
		return wireGetPower, args, nil
	case cf591.CmdSetPower:
		return wireSetPower, args, nil
	case cf591.CmdGetParams:
		return wireGetParams, args, nil
	case cf591.CmdSetParams:
		return wireSetParams, args, nil
	case cf591.CmdReadTagMemory:
		return wireReadMemory, args, nil
	case cf591.CmdWriteTagMemory:
		return wireWriteMemory, args, nil
	case cf591.CmdLockTag:
		return wireLockTag, args, nil
	case cf591.CmdKillTag:
		return wireKillTag, args, nil
	case cf591.CmdGetAntenna:
		return wireGetAntenna, args, nil
	case cf591.CmdSetAntenna:
		return wireSetAntenna, args, nil
	case cf591.CmdGetQValue:
		return wireGetQValue, args, nil
	case cf591.CmdSetQValue:
		return wireSetQValue, args, nil
	case cf591.CmdSetSelectMask:
		return wireSetSelectMask, args, nil
	case cf591.CmdGetFrequency:
		return wireGetFrequency, args, nil
	case cf591.CmdSetFrequency:
		return wireSetFrequency, args, nil
	case cf591.CmdDeviceInfo:
		return wireDeviceInfo, args, nil
	case cf591.CmdBuzzerOn:
		return wireBuzzer, withSelector(selectorOn, args), nil
	case cf591.CmdBuzzerOff:
		return wireBuzzer, withSelector(selectorOff, args), nil
	case cf591.CmdRelayOn:
		return wireRelay, withSelector(selectorOn, args), nil
	case cf591.CmdRelayOff:
		return wireRelay, withSelector(selectorOff, args), nil
	case cf591.CmdReboot:
		return wireReboot, args, nil
	default:
		return 0, nil, fmt.Errorf("%w: no wire form for command %s", ErrMalformed, cmd)
	}
}

func withSelector(selector byte, args []byte) []byte {
	data := make([]byte, 0, 1+len(args))
	data = append(data, selector)
	return append(data, args...)
}

// Device status bytes carried in response frames.
const (
	wireStatusOK         = 0x00
	wireStatusNoTag      = 0x01
	wireStatusNoMoreData = 0x02
	wireStatusPassword   = 0x05
	wireStatusAntenna    = 0xF8
	wireStatusTagTimeout = 0xFB
	wireStatusCmdError   = 0xFE
	wireStatusCRCError   = 0xFF
)

// statusTable maps frame status bytes into the 32-bit status space the
// rest of the module classifies on.
var statusTable = map[byte]cf591.StatusCode{
	wireStatusOK:         cf591.StatusOK,
	wireStatusNoTag:      cf591.StatusInventoryStop,
	wireStatusNoMoreData: cf591.StatusNoMoreData,
	wireStatusPassword:   cf591.StatusPasswordErr,
	wireStatusAntenna:    cf591.StatusInternalErr,
	wireStatusTagTimeout: cf591.StatusTagNoResponse,
	wireStatusCmdError:   cf591.StatusRespFormatErr,
	wireStatusCRCError:   cf591.StatusRespCRCErr,
}

// TranslateStatus maps a response frame's status byte into the vendor
// 32-bit status space. Unknown bytes map to a driver-internal fault so
// they classify as faults, never as silent success.
func TranslateStatus(status byte) cf591.StatusCode {
	if code, ok := statusTable[status]; ok {
		return code
	}
	return cf591.StatusDriverInternal
}
