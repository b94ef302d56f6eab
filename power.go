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

// RF power limits in dBm. Most firmware accepts up to 30; some variants cap
// at 26, configurable via WithMaxPower.
const (
	MinPower = 0
	MaxPower = 30
)

// RangeBucket is a semantic read-distance request. Buckets are ordinal:
// a larger bucket never maps to less power.
type RangeBucket int

// Range buckets, nearest to farthest.
const (
	RangeProximity RangeBucket = iota // tag touching the antenna
	RangeNear
	RangeMedium
	RangeFar
	RangeMaximum
)

// rangePowerTable maps buckets to power levels. Monotonic non-decreasing;
// the table is the contract, tweak values here, not in code.
var rangePowerTable = []int{
	RangeProximity: 5,
	RangeNear:      12,
	RangeMedium:    18,
	RangeFar:       24,
	RangeMaximum:   30,
}

// RangeToPower translates a distance bucket into a device power level.
// Out-of-range buckets clamp to the table ends; the result always falls
// inside [MinPower, MaxPower]. Pure lookup, no I/O.
func RangeToPower(bucket RangeBucket) int {
	if bucket < 0 {
		bucket = 0
	}
	if int(bucket) >= len(rangePowerTable) {
		bucket = RangeBucket(len(rangePowerTable) - 1)
	}
	power := rangePowerTable[bucket]
	if power < MinPower {
		return MinPower
	}
	if power > MaxPower {
		return MaxPower
	}
	return power
}

// SetPower sets the RF output power in dBm. Validated against the device's
// range before any I/O. Power sets fail transiently right after power-up,
// so the write goes through the retry policy; inventory is paused around it
// because the device ignores configuration writes while streaming.
func (r *Reader) SetPower(ctx context.Context, level int) error {
	if level < MinPower || level > r.maxPower {
		return fmt.Errorf("%w: power %d outside [%d, %d]",
			ErrInvalidParameter, level, MinPower, r.maxPower)
	}

	return r.WithInventoryPaused(ctx, func(ctx context.Context) error {
		return RetryWithConfig(ctx, r.retry, func() error {
			_, err := r.command(ctx, CmdSetPower, []byte{byte(level)})
			return err
		})
	})
}

// GetPower reads the current RF output power in dBm.
func (r *Reader) GetPower(ctx context.Context) (int, error) {
	var level int
	err := r.WithInventoryPaused(ctx, func(ctx context.Context) error {
		payload, err := r.command(ctx, CmdGetPower, nil)
		if err != nil {
			return err
		}
		if len(payload) < 1 {
			return fmt.Errorf("%w: empty power response", ErrFrameCorrupted)
		}
		level = int(payload[0])
		return nil
	})
	return level, err
}

// SetRange sets RF power from a semantic distance bucket. Equivalent to
// SetPower(RangeToPower(bucket)) with the result clamped to the device's
// configured maximum.
func (r *Reader) SetRange(ctx context.Context, bucket RangeBucket) error {
	power := RangeToPower(bucket)
	if power > r.maxPower {
		power = r.maxPower
	}
	return r.SetPower(ctx, power)
}
