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

package polling

import "time"

// Config holds monitor timing options.
type Config struct {
	// PollTimeout bounds each device poll.
	PollTimeout time.Duration
	// PollInterval is the idle delay between empty polls. Keeps an empty
	// field from busy-looping the serial line.
	PollInterval time.Duration
	// DebounceWindow suppresses repeat detections of one tag.
	DebounceWindow time.Duration
	// TagRemovalTimeout is how long a tag must stay unseen before
	// OnTagRemoved fires.
	TagRemovalTimeout time.Duration
	// StopJoinTimeout bounds the wait for the poll loop to exit on Close.
	StopJoinTimeout time.Duration
}

// DefaultConfig returns the default monitor configuration.
func DefaultConfig() *Config {
	return &Config{
		PollTimeout:       50 * time.Millisecond,
		PollInterval:      100 * time.Millisecond,
		DebounceWindow:    500 * time.Millisecond,
		TagRemovalTimeout: 600 * time.Millisecond,
		StopJoinTimeout:   2 * time.Second,
	}
}
