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
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"time"
)

// RetryConfig configures the backoff schedule for operations known to fail
// transiently right after device power-up or USB re-enumeration: open,
// RF power set, inventory start. The delay before retry attempt n is
// BaseDelay * Multiplier^n, capped at MaxDelay.
//
// Recoverable poll outcomes (no tag, timeout) never enter this policy -
// they are not failures.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (0 = no retry)
	MaxAttempts int
	// BaseDelay is the delay before the first retry
	BaseDelay time.Duration
	// MaxDelay caps the per-attempt delay
	MaxDelay time.Duration
	// Multiplier is the factor by which the delay grows each attempt
	Multiplier float64
	// Jitter adds randomness to the delay to avoid lockstep retries
	Jitter float64
	// OverallTimeout bounds all attempts together (0 = no bound)
	OverallTimeout time.Duration
}

// DefaultRetryConfig returns the retry schedule used when none is supplied.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:    3,
		BaseDelay:      50 * time.Millisecond,
		MaxDelay:       2 * time.Second,
		Multiplier:     2.0,
		Jitter:         0.1,
		OverallTimeout: 10 * time.Second,
	}
}

// RetryableFunc is an operation that can be retried.
type RetryableFunc func() error

// RetryWithConfig runs retryFunc up to config.MaxAttempts times, backing
// off between attempts. It returns nil on the first success, stops early
// on non-retryable errors, and returns the last error once attempts are
// exhausted or the context expires.
func RetryWithConfig(ctx context.Context, config *RetryConfig, retryFunc RetryableFunc) error {
	if config == nil {
		config = DefaultRetryConfig()
	}

	if config.MaxAttempts <= 0 {
		return retryFunc()
	}

	retryCtx := ctx
	if config.OverallTimeout > 0 {
		var cancel context.CancelFunc
		retryCtx, cancel = context.WithTimeout(ctx, config.OverallTimeout)
		defer cancel()
	}

	var lastErr error
	delay := config.BaseDelay

	for attempt := range config.MaxAttempts {
		if err := checkRetryCancelled(retryCtx, lastErr); err != nil {
			return err
		}

		err := retryFunc()
		if err == nil {
			return nil
		}
		if !IsRetryable(err) {
			return err
		}
		lastErr = err

		if attempt < config.MaxAttempts-1 {
			if err := sleepWithContext(retryCtx, jitteredDelay(delay, config.Jitter), lastErr); err != nil {
				return err
			}
			delay = nextDelay(delay, config)
		}
	}

	return lastErr
}

func checkRetryCancelled(ctx context.Context, lastErr error) error {
	select {
	case <-ctx.Done():
		if lastErr != nil {
			return lastErr
		}
		return fmt.Errorf("retry cancelled: %w", ctx.Err())
	default:
		return nil
	}
}

func sleepWithContext(ctx context.Context, sleep time.Duration, lastErr error) error {
	timer := time.NewTimer(sleep)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return lastErr
	case <-timer.C:
		return nil
	}
}

func nextDelay(delay time.Duration, config *RetryConfig) time.Duration {
	next := time.Duration(float64(delay) * config.Multiplier)
	if config.MaxDelay > 0 && next > config.MaxDelay {
		return config.MaxDelay
	}
	return next
}

func jitteredDelay(base time.Duration, jitterFactor float64) time.Duration {
	sleep := base
	if jitterFactor > 0 {
		var randBytes [8]byte
		if _, err := rand.Read(randBytes[:]); err == nil {
			randUint := binary.LittleEndian.Uint64(randBytes[:])
			randFloat := float64(randUint) / float64(1<<64)
			sleep += time.Duration(randFloat * float64(sleep) * jitterFactor)
		}
	}
	return sleep
}
