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

// Package serial implements the cf591.Driver interface over a serial line.
package serial

import (
	"context"
	"fmt"
	"sync"
	"time"

	cf591 "github.com/openrfid/go-cf591"
	"github.com/openrfid/go-cf591/internal/frame"
	"go.bug.st/serial"
)

// Defaults for CF591 serial links.
const (
	DefaultBaudRate = 115200
	// defaultExchangeTimeout bounds one full command/response exchange.
	defaultExchangeTimeout = 500 * time.Millisecond
	// chunkReadTimeout is the per-Read timeout on the port. Short, so the
	// exchange deadline and context cancellation stay responsive.
	chunkReadTimeout = 50 * time.Millisecond
)

// Driver implements cf591.Driver over a serial port via go.bug.st/serial.
// Endpoints are device paths, e.g. /dev/ttyUSB0 or COM3.
type Driver struct {
	port     serial.Port
	portName string
	buf      []byte
	baud     int
	timeout  time.Duration
	addr     byte
	mu       sync.Mutex
}

// Option configures the serial Driver.
type Option func(*Driver)

// WithBaudRate overrides the default 115200 line rate.
func WithBaudRate(baud int) Option {
	return func(d *Driver) { d.baud = baud }
}

// WithAddress targets a device address other than 0 on a shared bus.
func WithAddress(addr byte) Option {
	return func(d *Driver) { d.addr = addr }
}

// WithExchangeTimeout overrides the per-command exchange timeout.
func WithExchangeTimeout(timeout time.Duration) Option {
	return func(d *Driver) { d.timeout = timeout }
}

// New creates a serial Driver. The port opens on Open, not here.
func New(opts ...Option) *Driver {
	d := &Driver{
		baud:    DefaultBaudRate,
		timeout: defaultExchangeTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Open implements cf591.Driver. 8N1 framing; the baud rate comes from the
// options.
func (d *Driver) Open(endpoint string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.port != nil {
		return cf591.ErrAlreadyOpen
	}

	port, err := serial.Open(endpoint, &serial.Mode{
		BaudRate: d.baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return fmt.Errorf("open serial port %s: %w", endpoint, err)
	}
	if err := port.SetReadTimeout(chunkReadTimeout); err != nil {
		_ = port.Close()
		return fmt.Errorf("set read timeout on %s: %w", endpoint, err)
	}

	d.port = port
	d.portName = endpoint
	return nil
}

// Close implements cf591.Driver.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.port == nil {
		return nil
	}
	err := d.port.Close()
	d.port = nil
	d.buf = nil
	if err != nil {
		return fmt.Errorf("close serial port %s: %w", d.portName, err)
	}
	return nil
}

// Connected implements cf591.Driver.
func (d *Driver) Connected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.port != nil
}

// Type implements cf591.Driver.
func (*Driver) Type() cf591.DriverType {
	return cf591.DriverTypeSerial
}

// Invoke implements cf591.Driver. Line-level conditions translate into the
// vendor status space rather than Go errors: a write failure reports
// StatusCommWriteFailed, an exchange that produces no complete frame
// before the deadline reports StatusCommTimeout, a checksum failure
// StatusRespCRCErr. Go errors are reserved for a closed driver, a broken
// command encoding and context cancellation.
func (d *Driver) Invoke(ctx context.Context, cmd cf591.Command, args []byte) (cf591.StatusCode, []byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.port == nil {
		return 0, nil, cf591.ErrNotConnected
	}

	packet, err := frame.EncodeCommand(d.addr, cmd, args)
	if err != nil {
		return 0, nil, err
	}

	// Request/response protocol: stale bytes from an aborted exchange
	// would desync every later parse.
	d.buf = d.buf[:0]
	_ = d.port.ResetInputBuffer()

	if _, err := d.port.Write(packet); err != nil {
		return cf591.StatusCommWriteFailed, nil, nil
	}

	return d.readResponse(ctx)
}

func (d *Driver) readResponse(ctx context.Context) (cf591.StatusCode, []byte, error) {
	deadline := time.Now().Add(d.timeout)
	chunk := make([]byte, 256)

	for {
		if err := ctx.Err(); err != nil {
			return 0, nil, err
		}
		if !time.Now().Before(deadline) {
			return cf591.StatusCommTimeout, nil, nil
		}

		n, err := d.port.Read(chunk)
		if err != nil {
			return cf591.StatusCommReadFailed, nil, nil
		}
		if n == 0 {
			// Per-read timeout elapsed with nothing on the line.
			continue
		}
		d.buf = append(d.buf, chunk[:n]...)

		status, data, done := d.parseBuffered()
		if done {
			return status, data, nil
		}
	}
}

// parseBuffered tries to extract one complete frame from the accumulated
// bytes, resynchronizing past garbage. done is false while more bytes are
// needed.
func (d *Driver) parseBuffered() (cf591.StatusCode, []byte, bool) {
	for {
		f, consumed, err := frame.Parse(d.buf)
		switch {
		case err == nil:
			d.buf = d.buf[consumed:]
			return frame.TranslateStatus(f.Status), f.Data, true
		case consumed > 0:
			// Malformed prefix or CRC failure: skip and resync. A CRC
			// failure still counts as this exchange's answer when the
			// buffer holds nothing else.
			d.buf = d.buf[consumed:]
			if len(d.buf) == 0 {
				return cf591.StatusRespCRCErr, nil, true
			}
		default:
			return 0, nil, false
		}
	}
}
