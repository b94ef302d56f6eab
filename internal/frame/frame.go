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

// Package frame implements the CF591 wire framing: length-prefixed packets
// with a trailing CRC16-MCRF4XX.
//
// Packet layout, both directions:
//
//	Len(1) Addr(1) Cmd(1) [Status(1)] Data(n) CRC_L(1) CRC_H(1)
//
// Len counts every byte after itself, so the full packet is Len+1 bytes.
// The status byte exists only in responses.
package frame

import (
	"errors"
	"fmt"
)

// Framing errors.
var (
	// ErrIncomplete means the buffer does not yet hold a full packet.
	ErrIncomplete = errors.New("incomplete frame")
	// ErrCRC means the packet checksum did not match.
	ErrCRC = errors.New("frame CRC mismatch")
	// ErrMalformed means the length prefix cannot describe a valid packet.
	ErrMalformed = errors.New("malformed frame")
)

// minPacketLen is the smallest valid response packet:
// len + addr + cmd + status + 2 CRC bytes.
const minPacketLen = 6

// maxDataLen keeps the length prefix representable in one byte.
const maxDataLen = 250

// Frame is one decoded response packet.
type Frame struct {
	Data    []byte
	Address byte
	Command byte
	Status  byte
}

// Build encodes a command packet for the device at addr.
func Build(addr, cmd byte, data []byte) ([]byte, error) {
	if len(data) > maxDataLen {
		return nil, fmt.Errorf("%w: data length %d exceeds %d", ErrMalformed, len(data), maxDataLen)
	}

	// Len counts addr, cmd, data and both CRC bytes.
	length := byte(len(data) + 4)
	packet := make([]byte, 0, int(length)+1)
	packet = append(packet, length, addr, cmd)
	packet = append(packet, data...)

	crc := CRC16(packet)
	packet = append(packet, byte(crc&0xFF), byte(crc>>8))
	return packet, nil
}

// Parse decodes one response packet from the front of buf, returning the
// frame and the number of bytes consumed. ErrIncomplete means call again
// with more bytes; ErrMalformed and ErrCRC consume one byte so the caller
// can resynchronize on a noisy line.
func Parse(buf []byte) (*Frame, int, error) {
	if len(buf) == 0 {
		return nil, 0, ErrIncomplete
	}

	total := int(buf[0]) + 1
	if total < minPacketLen {
		return nil, 1, fmt.Errorf("%w: length prefix %d", ErrMalformed, buf[0])
	}
	if len(buf) < total {
		return nil, 0, ErrIncomplete
	}

	packet := buf[:total]
	crc := CRC16(packet[:total-2])
	if byte(crc&0xFF) != packet[total-2] || byte(crc>>8) != packet[total-1] {
		return nil, 1, ErrCRC
	}

	data := make([]byte, total-minPacketLen)
	copy(data, packet[4:total-2])
	return &Frame{
		Address: packet[1],
		Command: packet[2],
		Status:  packet[3],
		Data:    data,
	}, total, nil
}

// CRC16 computes the MCRF4XX variant of CRC16 (poly 0x8408, init 0xFFFF)
// used by the reader protocol.
func CRC16(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc ^= uint16(b)
		for range 8 {
			if crc&0x0001 != 0 {
				crc = (crc >> 1) ^ 0x8408
			} else {
				crc >>= 1
			}
		}
	}
	return crc
}
