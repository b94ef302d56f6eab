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
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"time"
)

// Maximum EPC length the reader reports, in bytes.
const maxEPCLength = 255

// TagDetection is one decoded tag report from an inventory poll. Values are
// immutable once decoded; the EPC slice is never shared with driver buffers.
type TagDetection struct {
	// DetectedAt is the host time the poll returned this tag.
	DetectedAt time.Time
	// EPC is the tag's Electronic Product Code.
	EPC []byte
	// RSSI is the received signal strength in dBm. The wire carries tenths
	// of a dBm; the conversion happens once, here.
	RSSI float64
	// Seq is the reader-assigned report sequence number.
	Seq uint16
	// PC is the Gen2 protocol control word as reported.
	PC [2]byte
	// CRC is the tag CRC as reported.
	CRC [2]byte
	// Antenna is the antenna number that heard the tag.
	Antenna uint8
	// Channel is the RF channel index the tag answered on.
	Channel uint8
}

// EPCHex returns the EPC as an uppercase hex string, the form used for
// dedup keys and logging.
func (t *TagDetection) EPCHex() string {
	return fmt.Sprintf("%X", t.EPC)
}

// String implements fmt.Stringer for log output.
func (t *TagDetection) String() string {
	return fmt.Sprintf("tag %X rssi=%.1fdBm ant=%d ch=%d", t.EPC, t.RSSI, t.Antenna, t.Channel)
}

// tagRecordHeaderLen is the fixed prefix of a poll record before the EPC:
// seq(2) rssi(2) antenna(1) channel(1) crc(2) pc(2) epcLen(1).
const tagRecordHeaderLen = 11

// decodeTagDetection decodes one poll response payload into a TagDetection.
// The record layout is little-endian: seq, rssi (signed, 0.1 dBm), antenna,
// channel, crc, pc, epcLen, epc. This is the only place raw tag bytes are
// interpreted; everything above works with the decoded struct.
func decodeTagDetection(payload []byte, now time.Time) (*TagDetection, error) {
	if len(payload) < tagRecordHeaderLen {
		return nil, fmt.Errorf("%w: tag record too short (%d bytes)", ErrFrameCorrupted, len(payload))
	}

	epcLen := int(payload[10])
	if epcLen > maxEPCLength {
		return nil, fmt.Errorf("%w: EPC length %d exceeds maximum", ErrFrameCorrupted, epcLen)
	}
	if len(payload) < tagRecordHeaderLen+epcLen {
		return nil, fmt.Errorf("%w: tag record truncated (want %d bytes, have %d)",
			ErrFrameCorrupted, tagRecordHeaderLen+epcLen, len(payload))
	}

	det := &TagDetection{
		DetectedAt: now,
		Seq:        binary.LittleEndian.Uint16(payload[0:2]),
		RSSI:       float64(int16(binary.LittleEndian.Uint16(payload[2:4]))) / 10.0,
		Antenna:    payload[4],
		Channel:    payload[5],
		EPC:        make([]byte, epcLen),
	}
	copy(det.CRC[:], payload[6:8])
	copy(det.PC[:], payload[8:10])
	copy(det.EPC, payload[tagRecordHeaderLen:tagRecordHeaderLen+epcLen])
	return det, nil
}

// ParseEPC converts a hex EPC string into bytes, accepting upper or lower
// case. Convenience for callers that carry EPCs as strings.
func ParseEPC(s string) ([]byte, error) {
	epc, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid EPC hex: %v", ErrInvalidParameter, err)
	}
	if len(epc) > maxEPCLength {
		return nil, fmt.Errorf("%w: EPC length %d exceeds maximum", ErrInvalidParameter, len(epc))
	}
	return epc, nil
}
