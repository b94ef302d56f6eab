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
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Option configures a Reader at construction time.
type Option func(*Reader) error

// WithLogger injects a logger. The default is zerolog.Nop(), so a reader
// is silent unless one is provided.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Reader) error {
		r.logger = logger
		return nil
	}
}

// WithRetryConfig replaces the retry schedule used for connect, power set
// and inventory start.
func WithRetryConfig(config *RetryConfig) Option {
	return func(r *Reader) error {
		if config == nil {
			return fmt.Errorf("%w: nil retry config", ErrInvalidParameter)
		}
		r.retry = config
		return nil
	}
}

// WithControllerConfig replaces the inventory controller's timing profile.
// Use one of the presets or build a ControllerConfig by hand.
func WithControllerConfig(config ControllerConfig) Option {
	return func(r *Reader) error {
		if config.PollTimeout <= 0 {
			return fmt.Errorf("%w: poll timeout must be positive", ErrInvalidParameter)
		}
		if config.FlushEmptyThreshold <= 0 {
			return fmt.Errorf("%w: flush empty threshold must be positive", ErrInvalidParameter)
		}
		r.ctrl = config
		return nil
	}
}

// WithDebounceWindow overrides just the debounce window of the controller
// profile.
func WithDebounceWindow(window time.Duration) Option {
	return func(r *Reader) error {
		if window < 0 {
			return fmt.Errorf("%w: debounce window must not be negative", ErrInvalidParameter)
		}
		r.ctrl.DebounceWindow = window
		return nil
	}
}

// WithMaxPower lowers the accepted power ceiling for firmware variants
// capped below 30 dBm.
func WithMaxPower(maxPower int) Option {
	return func(r *Reader) error {
		if maxPower < MinPower || maxPower > MaxPower {
			return fmt.Errorf("%w: max power %d outside [%d, %d]",
				ErrInvalidParameter, maxPower, MinPower, MaxPower)
		}
		r.maxPower = maxPower
		return nil
	}
}
