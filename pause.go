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

// WithInventoryPaused runs op with inventory guaranteed idle, restoring the
// previous inventory state afterwards. Memory operations and parameter
// writes fail or corrupt responses while the device is streaming inventory
// reports, so every such operation routes through here.
//
// The pause delegates to StartInventory/StopInventory rather than touching
// hardware state directly. op runs exactly once, and only while the state
// is observed Idle. The resume is best-effort cleanup: a failed restart is
// logged and suppressed, never surfaced, so it cannot mask op's result.
func (r *Reader) WithInventoryPaused(ctx context.Context, op func(ctx context.Context) error) error {
	wasRunning := r.State() == StateRunning
	if wasRunning {
		if err := r.StopInventory(ctx); err != nil {
			return err
		}
	}

	opErr := op(ctx)

	if wasRunning {
		if err := r.StartInventory(ctx); err != nil {
			r.logger.Warn().Err(err).Msg("resume inventory after paused operation failed")
		}
	}
	return opErr
}
