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
)

// MemoryBank selects a Gen2 tag memory bank.
type MemoryBank uint8

// Tag memory banks.
const (
	BankReserved MemoryBank = 0 // kill and access passwords
	BankEPC      MemoryBank = 1
	BankTID      MemoryBank = 2
	BankUser     MemoryBank = 3
)

// String returns the bank name for logging.
func (b MemoryBank) String() string {
	switch b {
	case BankReserved:
		return "reserved"
	case BankEPC:
		return "epc"
	case BankTID:
		return "tid"
	case BankUser:
		return "user"
	default:
		return "unknown"
	}
}

// LockArea selects which tag memory area a lock operation targets.
type LockArea uint8

// Lockable areas.
const (
	LockKillPassword   LockArea = 0
	LockAccessPassword LockArea = 1
	LockEPCBank        LockArea = 2
	LockTIDBank        LockArea = 3
	LockUserBank       LockArea = 4
)

// LockAction selects what a lock operation does to the area.
type LockAction uint8

// Lock actions.
const (
	LockActionOpen     LockAction = 0 // writable without password
	LockActionLock     LockAction = 1 // writable with access password
	LockActionPermOpen LockAction = 2 // permanently writable
	LockActionPermLock LockAction = 3 // permanently locked
)

// accessPasswordLen is the length of Gen2 access and kill passwords.
const accessPasswordLen = 4

// epcWordOffset is the word address where EPC data starts in the EPC bank,
// after the CRC and PC words.
const epcWordOffset = 2

// normalizePassword validates an optional access password. nil means
// "no password" and becomes four zero bytes.
func normalizePassword(password []byte) ([]byte, error) {
	if password == nil {
		return make([]byte, accessPasswordLen), nil
	}
	if len(password) != accessPasswordLen {
		return nil, fmt.Errorf("%w: password must be %d bytes, got %d",
			ErrInvalidParameter, accessPasswordLen, len(password))
	}
	return password, nil
}

// ReadTagMemory reads wordCount 16-bit words from the given bank, starting
// at wordAddr, from the tag currently in the field. Inventory pauses for
// the duration; memory access is not possible while the device streams
// inventory reports.
func (r *Reader) ReadTagMemory(ctx context.Context, bank MemoryBank, wordAddr, wordCount uint8, password []byte) ([]byte, error) {
	pwd, err := normalizePassword(password)
	if err != nil {
		return nil, err
	}
	if wordCount == 0 {
		return nil, fmt.Errorf("%w: word count must be positive", ErrInvalidParameter)
	}

	args := make([]byte, 0, 3+accessPasswordLen)
	args = append(args, byte(bank), wordAddr, wordCount)
	args = append(args, pwd...)

	var data []byte
	err = r.WithInventoryPaused(ctx, func(ctx context.Context) error {
		payload, cmdErr := r.command(ctx, CmdReadTagMemory, args)
		if cmdErr != nil {
			return cmdErr
		}
		data = payload
		return nil
	})
	return data, err
}

// WriteTagMemory writes data to the given bank starting at wordAddr. The
// tag stores 16-bit words, so data must have even length.
func (r *Reader) WriteTagMemory(ctx context.Context, bank MemoryBank, wordAddr uint8, data, password []byte) error {
	pwd, err := normalizePassword(password)
	if err != nil {
		return err
	}
	if len(data) == 0 || len(data)%2 != 0 {
		return fmt.Errorf("%w: data length %d is not a positive even number of bytes",
			ErrInvalidParameter, len(data))
	}
	wordCount := len(data) / 2
	if wordCount > 0xFF {
		return fmt.Errorf("%w: data exceeds %d words", ErrInvalidParameter, 0xFF)
	}

	args := make([]byte, 0, 3+accessPasswordLen+len(data))
	args = append(args, byte(bank), wordAddr, byte(wordCount))
	args = append(args, pwd...)
	args = append(args, data...)

	return r.WithInventoryPaused(ctx, func(ctx context.Context) error {
		_, cmdErr := r.command(ctx, CmdWriteTagMemory, args)
		return cmdErr
	})
}

// WriteEPC writes a new EPC to the tag in the field. Convenience over
// WriteTagMemory: EPC data lives in the EPC bank after the CRC and PC
// words.
func (r *Reader) WriteEPC(ctx context.Context, epc, password []byte) error {
	if len(epc) == 0 || len(epc)%2 != 0 {
		return fmt.Errorf("%w: EPC length %d is not a positive even number of bytes",
			ErrInvalidParameter, len(epc))
	}
	return r.WriteTagMemory(ctx, BankEPC, epcWordOffset, epc, password)
}

// LockTag applies a lock action to a tag memory area. Permanent actions
// are irreversible on the tag.
func (r *Reader) LockTag(ctx context.Context, area LockArea, action LockAction, password []byte) error {
	pwd, err := normalizePassword(password)
	if err != nil {
		return err
	}
	if area > LockUserBank {
		return fmt.Errorf("%w: invalid lock area %d", ErrInvalidParameter, area)
	}
	if action > LockActionPermLock {
		return fmt.Errorf("%w: invalid lock action %d", ErrInvalidParameter, action)
	}

	args := make([]byte, 0, 2+accessPasswordLen)
	args = append(args, byte(area), byte(action))
	args = append(args, pwd...)

	return r.WithInventoryPaused(ctx, func(ctx context.Context) error {
		_, cmdErr := r.command(ctx, CmdLockTag, args)
		return cmdErr
	})
}

// KillTag permanently disables the tag in the field. Requires the tag's
// non-zero kill password; there is no undo.
func (r *Reader) KillTag(ctx context.Context, killPassword []byte) error {
	if len(killPassword) != accessPasswordLen {
		return fmt.Errorf("%w: kill password must be %d bytes", ErrInvalidParameter, accessPasswordLen)
	}
	allZero := true
	for _, b := range killPassword {
		if b != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		return fmt.Errorf("%w: kill password must be non-zero", ErrInvalidParameter)
	}

	return r.WithInventoryPaused(ctx, func(ctx context.Context) error {
		_, cmdErr := r.command(ctx, CmdKillTag, killPassword)
		return cmdErr
	})
}
