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

// Package tcp implements the cf591.Driver interface for network-attached
// readers.
package tcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	cf591 "github.com/openrfid/go-cf591"
	"github.com/openrfid/go-cf591/internal/frame"
)

// Defaults for network-attached CF591 readers.
const (
	// DefaultPort is the factory port of the reader's serial-over-TCP
	// bridge.
	DefaultPort = "4001"

	defaultDialTimeout     = 3 * time.Second
	defaultExchangeTimeout = 500 * time.Millisecond
)

// Driver implements cf591.Driver over a TCP connection. Endpoints are
// host:port; a bare host gets the factory default port.
type Driver struct {
	conn     net.Conn
	endpoint string
	buf      []byte
	dial     time.Duration
	timeout  time.Duration
	addr     byte
	mu       sync.Mutex
}

// Option configures the TCP Driver.
type Option func(*Driver)

// WithAddress targets a device address other than 0.
func WithAddress(addr byte) Option {
	return func(d *Driver) { d.addr = addr }
}

// WithDialTimeout overrides the connect timeout.
func WithDialTimeout(timeout time.Duration) Option {
	return func(d *Driver) { d.dial = timeout }
}

// WithExchangeTimeout overrides the per-command exchange timeout.
func WithExchangeTimeout(timeout time.Duration) Option {
	return func(d *Driver) { d.timeout = timeout }
}

// New creates a TCP Driver. The connection opens on Open, not here.
func New(opts ...Option) *Driver {
	d := &Driver{
		dial:    defaultDialTimeout,
		timeout: defaultExchangeTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Open implements cf591.Driver.
func (d *Driver) Open(endpoint string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.conn != nil {
		return cf591.ErrAlreadyOpen
	}

	if !strings.Contains(endpoint, ":") {
		endpoint = net.JoinHostPort(endpoint, DefaultPort)
	}

	conn, err := net.DialTimeout("tcp", endpoint, d.dial)
	if err != nil {
		return fmt.Errorf("dial %s: %w", endpoint, err)
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		// Frames are tiny; latency matters more than throughput.
		_ = tc.SetNoDelay(true)
	}

	d.conn = conn
	d.endpoint = endpoint
	return nil
}

// Close implements cf591.Driver.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.conn == nil {
		return nil
	}
	err := d.conn.Close()
	d.conn = nil
	d.buf = nil
	if err != nil {
		return fmt.Errorf("close connection to %s: %w", d.endpoint, err)
	}
	return nil
}

// Connected implements cf591.Driver.
func (d *Driver) Connected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conn != nil
}

// Type implements cf591.Driver.
func (*Driver) Type() cf591.DriverType {
	return cf591.DriverTypeTCP
}

// Invoke implements cf591.Driver. Same status translation contract as the
// serial driver: write failures, exchange timeouts and checksum failures
// come back as vendor status codes; Go errors mean the driver is closed,
// the connection is gone or the context was cancelled.
func (d *Driver) Invoke(ctx context.Context, cmd cf591.Command, args []byte) (cf591.StatusCode, []byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.conn == nil {
		return 0, nil, cf591.ErrNotConnected
	}

	packet, err := frame.EncodeCommand(d.addr, cmd, args)
	if err != nil {
		return 0, nil, err
	}

	d.buf = d.buf[:0]

	deadline := time.Now().Add(d.timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}

	if err := d.conn.SetWriteDeadline(deadline); err != nil {
		return 0, nil, fmt.Errorf("set write deadline: %w", err)
	}
	if _, err := d.conn.Write(packet); err != nil {
		if isConnGone(err) {
			return 0, nil, fmt.Errorf("%w: %w", cf591.ErrTransportWrite, err)
		}
		return cf591.StatusCommWriteFailed, nil, nil
	}

	return d.readResponse(ctx, deadline)
}

func (d *Driver) readResponse(ctx context.Context, deadline time.Time) (cf591.StatusCode, []byte, error) {
	chunk := make([]byte, 512)

	for {
		if err := ctx.Err(); err != nil {
			return 0, nil, err
		}

		if err := d.conn.SetReadDeadline(deadline); err != nil {
			return 0, nil, fmt.Errorf("set read deadline: %w", err)
		}
		n, err := d.conn.Read(chunk)
		if n > 0 {
			d.buf = append(d.buf, chunk[:n]...)
			if status, data, done := d.parseBuffered(); done {
				return status, data, nil
			}
		}
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				return cf591.StatusCommTimeout, nil, nil
			}
			if isConnGone(err) {
				return 0, nil, fmt.Errorf("%w: %w", cf591.ErrTransportRead, err)
			}
			return cf591.StatusCommReadFailed, nil, nil
		}
	}
}

func (d *Driver) parseBuffered() (cf591.StatusCode, []byte, bool) {
	for {
		f, consumed, err := frame.Parse(d.buf)
		switch {
		case err == nil:
			d.buf = d.buf[consumed:]
			return frame.TranslateStatus(f.Status), f.Data, true
		case consumed > 0:
			d.buf = d.buf[consumed:]
			if len(d.buf) == 0 {
				return cf591.StatusRespCRCErr, nil, true
			}
		default:
			return 0, nil, false
		}
	}
}

// isConnGone reports whether err means the peer or the network is gone,
// as opposed to a transient I/O hiccup.
func isConnGone(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, os.ErrClosed) ||
		strings.Contains(err.Error(), "connection reset") ||
		strings.Contains(err.Error(), "broken pipe")
}
