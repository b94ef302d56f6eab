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

// Package trigger fires tag reads from a hardware GPIO input, such as a
// pushbutton or light barrier wired to a Raspberry Pi-class host.
package trigger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// ErrPinNotFound means the named GPIO pin does not exist on this host.
var ErrPinNotFound = errors.New("gpio pin not found")

// edgeWaitSlice keeps WaitForEdge from blocking past context cancellation.
const edgeWaitSlice = 500 * time.Millisecond

// Watcher watches a GPIO pin and fires a callback once per press. The pin
// is configured active-low with the internal pull-up, the usual wiring for
// a button to ground.
type Watcher struct {
	// OnTrigger fires on each debounced press. A non-nil return stops
	// Run and propagates the error.
	OnTrigger func(ctx context.Context) error

	pin      gpio.PinIO
	pinName  string
	debounce time.Duration
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce overrides the default 200 ms press debounce.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// New initializes the host GPIO subsystem and claims the named pin.
func New(pinName string, opts ...Option) (*Watcher, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init gpio host: %w", err)
	}

	pin := gpioreg.ByName(pinName)
	if pin == nil {
		return nil, fmt.Errorf("%w: %q", ErrPinNotFound, pinName)
	}
	if err := pin.In(gpio.PullUp, gpio.FallingEdge); err != nil {
		return nil, fmt.Errorf("configure pin %s: %w", pinName, err)
	}

	w := &Watcher{
		pin:      pin,
		pinName:  pinName,
		debounce: 200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// PinName returns the watched pin's name.
func (w *Watcher) PinName() string {
	return w.pinName
}

// Run blocks watching for presses until ctx is cancelled or OnTrigger
// returns an error. Edge waits are sliced so cancellation is honored
// within half a second.
func (w *Watcher) Run(ctx context.Context) error {
	if w.OnTrigger == nil {
		return errors.New("no trigger callback set")
	}

	var lastFire time.Time
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !w.pin.WaitForEdge(edgeWaitSlice) {
			continue
		}
		// Edge noise: require the pin to actually read active.
		if w.pin.Read() != gpio.Low {
			continue
		}
		if time.Since(lastFire) < w.debounce {
			continue
		}
		lastFire = time.Now()

		if err := w.OnTrigger(ctx); err != nil {
			return err
		}
	}
}
