/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package sockio implements the length-complete send and length-complete
// receive primitives over a single TCP stream, per spec.md §4.2: send_all
// writes all bytes or fails, recv_exact loops until n bytes accumulate or
// fails with ConnectionClosed on a zero-length chunk. Any I/O failure is
// surfaced classified, so the pool and connector can decide whether to
// tear down the connection without string-matching errors.
package sockio

import (
	"errors"
	"io"
	"net"
	"time"

	liberr "github.com/sabouaram/mongocore/internal/errors"
)

// Conn owns one TCP socket with TCP_NODELAY set, and exposes the
// length-complete send/receive primitives the wire framer is built on.
type Conn struct {
	nc net.Conn
}

// Dial opens a TCP connection to addr and sets TCP_NODELAY, per spec.md §3
// ("Socket — an owned TCP stream with TCP_NODELAY set").
func Dial(network, addr string, timeout time.Duration) (*Conn, liberr.Error) {
	d := net.Dialer{Timeout: timeout}
	nc, err := d.Dial(network, addr)
	if err != nil {
		return nil, liberr.New(liberr.ConnectionFailure, "dial "+addr, err)
	}
	if tc, ok := nc.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
	}
	return &Conn{nc: nc}, nil
}

// Wrap adopts an already-established net.Conn, setting TCP_NODELAY if it is
// a *net.TCPConn.
func Wrap(nc net.Conn) *Conn {
	if tc, ok := nc.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
	}
	return &Conn{nc: nc}
}

// Raw returns the underlying net.Conn, for callers that need the socket
// itself rather than the SendAll/RecvExact primitives.
func (c *Conn) Raw() net.Conn {
	return c.nc
}

// Close closes the underlying socket. Safe to call more than once.
func (c *Conn) Close() error {
	return c.nc.Close()
}

// SendAll writes every byte of data or fails. Any write error is classified
// ConnectionFailure and the caller is expected to tear down the whole
// connection, per spec.md §4.2.
func (c *Conn) SendAll(data []byte) liberr.Error {
	written := 0
	for written < len(data) {
		n, err := c.nc.Write(data[written:])
		if err != nil {
			return liberr.New(liberr.ConnectionFailure, "send_all", err)
		}
		if n == 0 {
			return liberr.New(liberr.ConnectionFailure, "send_all: zero-length write")
		}
		written += n
	}
	return nil
}

// RecvExact loops Read until exactly n bytes accumulate. A peer that
// closes the stream before n bytes arrive (io.EOF / io.ErrUnexpectedEOF)
// is reported as ConnectionClosed; any other I/O error is ConnectionFailure.
func (c *Conn) RecvExact(n int) ([]byte, error) {
	if n == 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	_, err := io.ReadFull(c.nc, buf)
	if err == nil {
		return buf, nil
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, liberr.New(liberr.ConnectionClosed, "recv_exact: peer closed connection", err)
	}
	return nil, liberr.New(liberr.ConnectionFailure, "recv_exact", err)
}
