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
	"encoding/binary"
	"fmt"
)

// epcMaskStartBit is the bit offset of EPC data in the EPC bank: the CRC
// and PC words come first.
const epcMaskStartBit = 32

// SetSelectMask installs a Gen2 select filter: only tags whose memory
// matches mask at bit offset maskPtr answer inventory. maskBits counts
// the significant bits; mask must carry at least that many. A zero-bit
// mask clears the filter.
//
// The filter is session state on the device. An inventory restart (the
// stop-first path of a double start) wipes it to guarantee a clean
// Q-algorithm restart, so set it again per session if needed.
func (r *Reader) SetSelectMask(ctx context.Context, maskPtr uint16, maskBits uint8, mask []byte) error {
	if need := (int(maskBits) + 7) / 8; len(mask) < need {
		return fmt.Errorf("%w: mask carries %d bytes, %d bits need %d",
			ErrInvalidParameter, len(mask), maskBits, need)
	}

	args := make([]byte, 0, 3+len(mask))
	args = binary.LittleEndian.AppendUint16(args, maskPtr)
	args = append(args, maskBits)
	args = append(args, mask...)

	err := r.WithInventoryPaused(ctx, func(ctx context.Context) error {
		_, cmdErr := r.command(ctx, CmdSetSelectMask, args)
		return cmdErr
	})
	if err == nil {
		r.filterSet.Store(maskBits != 0)
	}
	return err
}

// FilterByEPCPrefix restricts inventory to tags whose EPC starts with
// prefix. Convenience over SetSelectMask anchored at the start of EPC
// data.
func (r *Reader) FilterByEPCPrefix(ctx context.Context, prefix []byte) error {
	if len(prefix) == 0 {
		return fmt.Errorf("%w: empty EPC prefix", ErrInvalidParameter)
	}
	if len(prefix)*8 > 0xFF {
		return fmt.Errorf("%w: EPC prefix %d bytes exceeds the %d-bit mask limit",
			ErrInvalidParameter, len(prefix), 0xFF)
	}
	return r.SetSelectMask(ctx, epcMaskStartBit, uint8(len(prefix)*8), prefix)
}

// ClearFilter removes any select filter so all tags answer inventory.
func (r *Reader) ClearFilter(ctx context.Context) error {
	return r.SetSelectMask(ctx, 0, 0, nil)
}

// clearFilterBestEffort wipes the device-side select mask during an
// inventory restart. Best-effort: a failure is logged, not surfaced; the
// restart itself matters more.
func (r *Reader) clearFilterBestEffort(ctx context.Context) {
	if !r.filterSet.Load() {
		return
	}
	args := []byte{0, 0, 0}
	if _, err := r.command(ctx, CmdSetSelectMask, args); err != nil {
		r.logger.Warn().Err(err).Msg("clear select mask on inventory restart failed")
		return
	}
	r.filterSet.Store(false)
}
