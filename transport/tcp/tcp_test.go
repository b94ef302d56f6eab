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

package tcp

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cf591 "github.com/openrfid/go-cf591"
	"github.com/openrfid/go-cf591/internal/frame"
)

// fakeReader runs a one-connection device stub on a loopback listener.
// handle receives each request frame and returns the raw bytes to send
// back; returning nil closes the connection.
func fakeReader(t *testing.T, handle func(req *frame.Frame) []byte) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		buf := make([]byte, 0, 512)
		chunk := make([]byte, 512)
		for {
			n, err := conn.Read(chunk)
			if err != nil {
				return
			}
			buf = append(buf, chunk[:n]...)
			for {
				req, consumed, err := frame.Parse(buf)
				if err != nil {
					break
				}
				buf = buf[consumed:]
				resp := handle(req)
				if resp == nil {
					return
				}
				if _, err := conn.Write(resp); err != nil {
					return
				}
			}
		}
	}()

	return ln.Addr().String()
}

// respond builds a device response frame for a request.
func respond(t *testing.T, req *frame.Frame, status byte, data []byte) []byte {
	t.Helper()
	packet, err := frame.Build(req.Address, req.Command, append([]byte{status}, data...))
	require.NoError(t, err)
	return packet
}

func TestInvoke_Exchange(t *testing.T) {
	t.Parallel()

	addr := fakeReader(t, func(req *frame.Frame) []byte {
		return respond(t, req, 0x00, []byte{26})
	})

	d := New()
	require.NoError(t, d.Open(addr))
	t.Cleanup(func() { _ = d.Close() })
	assert.True(t, d.Connected())

	status, data, err := d.Invoke(context.Background(), cf591.CmdGetPower, nil)
	require.NoError(t, err)
	assert.Equal(t, cf591.StatusOK, status)
	assert.Equal(t, []byte{26}, data)
}

func TestInvoke_SplitResponse(t *testing.T) {
	t.Parallel()

	// The serial-over-TCP bridge fragments frames arbitrarily; the
	// driver must reassemble across reads.
	resp, err := frame.Build(0x00, 0x0F, []byte{0x00, 1, 2, 3, 4})
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		chunk := make([]byte, 64)
		if _, err := conn.Read(chunk); err != nil {
			return
		}
		_, _ = conn.Write(resp[:3])
		time.Sleep(20 * time.Millisecond)
		_, _ = conn.Write(resp[3:])
	}()

	d := New()
	require.NoError(t, d.Open(ln.Addr().String()))
	t.Cleanup(func() { _ = d.Close() })

	status, data, err := d.Invoke(context.Background(), cf591.CmdInventoryPoll, []byte{0x32, 0x00})
	require.NoError(t, err)
	assert.Equal(t, cf591.StatusOK, status)
	assert.Equal(t, []byte{1, 2, 3, 4}, data)
}

func TestInvoke_NoResponseTimesOut(t *testing.T) {
	t.Parallel()

	addr := fakeReader(t, func(req *frame.Frame) []byte {
		// Swallow the request; never answer. Keep the connection open so
		// the exchange deadline, not a peer close, ends the read.
		return []byte{}
	})

	d := New(WithExchangeTimeout(100 * time.Millisecond))
	require.NoError(t, d.Open(addr))
	t.Cleanup(func() { _ = d.Close() })

	start := time.Now()
	status, _, err := d.Invoke(context.Background(), cf591.CmdGetPower, nil)
	require.NoError(t, err)
	assert.Equal(t, cf591.StatusCommTimeout, status)
	assert.Less(t, time.Since(start), time.Second)
}

func TestInvoke_PeerCloseIsFatal(t *testing.T) {
	t.Parallel()

	addr := fakeReader(t, func(req *frame.Frame) []byte {
		return nil // close without answering
	})

	d := New()
	require.NoError(t, d.Open(addr))
	t.Cleanup(func() { _ = d.Close() })

	_, _, err := d.Invoke(context.Background(), cf591.CmdGetPower, nil)
	require.ErrorIs(t, err, cf591.ErrTransportRead)
	assert.True(t, cf591.IsFatal(err))
}

func TestInvoke_ContextDeadlineWins(t *testing.T) {
	t.Parallel()

	addr := fakeReader(t, func(req *frame.Frame) []byte {
		return []byte{}
	})

	d := New(WithExchangeTimeout(10 * time.Second))
	require.NoError(t, d.Open(addr))
	t.Cleanup(func() { _ = d.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	status, _, err := d.Invoke(ctx, cf591.CmdGetPower, nil)
	require.NoError(t, err)
	assert.Equal(t, cf591.StatusCommTimeout, status)
	assert.Less(t, time.Since(start), time.Second)
}

func TestOpen_DefaultPort(t *testing.T) {
	t.Parallel()

	d := New(WithDialTimeout(100 * time.Millisecond))
	err := d.Open("127.0.0.1")
	// Nothing listens on the factory port here; the point is that the
	// endpoint gained one before the dial.
	require.Error(t, err)
	assert.Contains(t, err.Error(), ":"+DefaultPort)
}

func TestOpen_Twice(t *testing.T) {
	t.Parallel()

	addr := fakeReader(t, func(req *frame.Frame) []byte {
		return respond(t, req, 0x00, nil)
	})

	d := New()
	require.NoError(t, d.Open(addr))
	t.Cleanup(func() { _ = d.Close() })
	require.ErrorIs(t, d.Open(addr), cf591.ErrAlreadyOpen)
}

func TestInvoke_NotConnected(t *testing.T) {
	t.Parallel()

	d := New()
	_, _, err := d.Invoke(context.Background(), cf591.CmdGetPower, nil)
	require.ErrorIs(t, err, cf591.ErrNotConnected)
	assert.Equal(t, cf591.DriverTypeTCP, d.Type())
}
