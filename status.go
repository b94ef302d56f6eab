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

import "fmt"

// StatusCode is a raw 32-bit status value from the reader command set.
// Success is 0; every error, empty and timeout condition occupies the
// 0xFFFFFF01-0xFFFFFF18 range. Some driver bindings surface these values
// signed, so always go through Normalize before comparing.
type StatusCode uint32

// Status codes from the CFApi command set.
const (
	StatusOK               StatusCode = 0x00000000
	StatusPortHandleErr    StatusCode = 0xFFFFFF01 // handle or serial parameter error
	StatusPortOpenFailed   StatusCode = 0xFFFFFF02
	StatusDriverInternal   StatusCode = 0xFFFFFF03
	StatusParamErr         StatusCode = 0xFFFFFF04 // parameter out of range
	StatusSerialNumExists  StatusCode = 0xFFFFFF05
	StatusInternalErr      StatusCode = 0xFFFFFF06
	StatusInventoryStop    StatusCode = 0xFFFFFF07 // no tag found or inventory completed
	StatusTagNoResponse    StatusCode = 0xFFFFFF08 // tag response timeout
	StatusDecodeTagFailed  StatusCode = 0xFFFFFF09
	StatusCodeOverflow     StatusCode = 0xFFFFFF0A
	StatusAuthFailed       StatusCode = 0xFFFFFF0B
	StatusPasswordErr      StatusCode = 0xFFFFFF0C
	StatusSAMNoResponse    StatusCode = 0xFFFFFF0D
	StatusSAMCommandFailed StatusCode = 0xFFFFFF0E
	StatusRespFormatErr    StatusCode = 0xFFFFFF0F
	StatusHasMoreData      StatusCode = 0xFFFFFF10
	StatusBufferOverflow   StatusCode = 0xFFFFFF11
	StatusCommTimeout      StatusCode = 0xFFFFFF12 // communication timeout
	StatusCommWriteFailed  StatusCode = 0xFFFFFF13
	StatusCommReadFailed   StatusCode = 0xFFFFFF14
	StatusNoMoreData       StatusCode = 0xFFFFFF15
	StatusNetUnconnected   StatusCode = 0xFFFFFF16
	StatusNetDisconnected  StatusCode = 0xFFFFFF17
	StatusRespCRCErr       StatusCode = 0xFFFFFF18
)

// Normalize masks a raw driver status to its unsigned 32-bit value. Driver
// bindings return status codes as signed or unsigned depending on call path,
// so every comparison has to go through this first.
func Normalize(raw int64) StatusCode {
	return StatusCode(uint64(raw) & 0xFFFFFFFF)
}

// Outcome is the closed taxonomy every raw status collapses into. Higher
// layers only ever branch on Outcome, never on raw codes.
type Outcome int

const (
	// OutcomeSuccess indicates the command completed and produced data.
	OutcomeSuccess Outcome = iota
	// OutcomeEmptyOrStopped indicates inventory exhausted itself or had
	// nothing to report. Not an error.
	OutcomeEmptyOrStopped
	// OutcomeTimeout indicates no data arrived inside the wait window.
	// Recoverable; the next poll may succeed.
	OutcomeTimeout
	// OutcomeFault indicates the device rejected the command or the link
	// failed in a way that needs caller attention.
	OutcomeFault
)

// String returns the outcome name for logging.
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeEmptyOrStopped:
		return "empty"
	case OutcomeTimeout:
		return "timeout"
	case OutcomeFault:
		return "fault"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Recoverable reports whether the outcome means "no tag yet" rather than a
// failure. The inventory controller treats these as empty polls, never as
// errors. This is the single most load-bearing distinction in the module:
// absence of a tag is not an error.
func (o Outcome) Recoverable() bool {
	return o == OutcomeEmptyOrStopped || o == OutcomeTimeout
}

// outcomeTable maps the status codes that do not classify as faults. The
// mapping is protocol, not business logic: keep it data, not conditionals.
var outcomeTable = map[StatusCode]Outcome{
	StatusOK:            OutcomeSuccess,
	StatusInventoryStop: OutcomeEmptyOrStopped,
	StatusNoMoreData:    OutcomeEmptyOrStopped,
	StatusCommTimeout:   OutcomeTimeout,
	StatusTagNoResponse: OutcomeTimeout,
}

// Classify normalizes a raw status code and maps it into the Outcome
// taxonomy. Unknown codes classify as OutcomeFault.
func Classify(raw int64) Outcome {
	return ClassifyStatus(Normalize(raw))
}

// ClassifyStatus maps an already-normalized status code.
func ClassifyStatus(code StatusCode) Outcome {
	if outcome, ok := outcomeTable[code]; ok {
		return outcome
	}
	return OutcomeFault
}

// statusMeaning returns a human-readable meaning for a status code, used in
// error messages.
func statusMeaning(code StatusCode) string {
	meanings := map[StatusCode]string{
		StatusOK:               "success",
		StatusPortHandleErr:    "handle or port parameter error",
		StatusPortOpenFailed:   "failed to open port",
		StatusDriverInternal:   "driver internal error",
		StatusParamErr:         "parameter out of range",
		StatusSerialNumExists:  "serial number already exists",
		StatusInternalErr:      "device internal error",
		StatusInventoryStop:    "inventory stopped or no tag",
		StatusTagNoResponse:    "tag response timeout",
		StatusDecodeTagFailed:  "tag data demodulation failed",
		StatusCodeOverflow:     "tag data exceeds maximum length",
		StatusAuthFailed:       "authentication failed",
		StatusPasswordErr:      "password error",
		StatusSAMNoResponse:    "SAM card not responding",
		StatusSAMCommandFailed: "SAM command failed",
		StatusRespFormatErr:    "response format error",
		StatusHasMoreData:      "more data pending",
		StatusBufferOverflow:   "buffer overflow",
		StatusCommTimeout:      "communication timeout",
		StatusCommWriteFailed:  "port write failed",
		StatusCommReadFailed:   "port read failed",
		StatusNoMoreData:       "no more data",
		StatusNetUnconnected:   "network connection not established",
		StatusNetDisconnected:  "network disconnected",
		StatusRespCRCErr:       "response CRC error",
	}
	if m, ok := meanings[code]; ok {
		return m
	}
	return "unknown status"
}
