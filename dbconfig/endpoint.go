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

// Package dbconfig parses connection URIs and endpoint-pair specs into a
// node set plus optional saved authentications, per spec.md §3, §4.6, §6.
package dbconfig

import (
	"fmt"

	"github.com/sabouaram/mongocore/internal/netproto"

	liberr "github.com/sabouaram/mongocore/internal/errors"
)

const (
	// DefaultHost is used whenever an endpoint spec omits the host.
	DefaultHost = "localhost"

	// DefaultPort is used whenever an endpoint spec omits the port.
	DefaultPort uint16 = 27017
)

// Endpoint is a single (host, port) the connector can dial.
type Endpoint struct {
	Host string
	Port uint16
}

// Address returns the host:port string suitable for net.Dial.
func (e Endpoint) Address() string {
	return fmt.Sprintf("%s:%d", e.Host, e.Port)
}

// Network is always TCP for this core (spec.md §1, §4.2).
func (e Endpoint) Network() netproto.NetworkProtocol {
	return netproto.NetworkTCP
}

// Validate reports whether e has a usable host and a non-zero port.
func (e Endpoint) Validate() liberr.Error {
	if e.Host == "" {
		return liberr.New(liberr.ArgumentError, "endpoint: empty host")
	}
	if e.Port == 0 {
		return liberr.New(liberr.ArgumentError, "endpoint: zero port")
	}
	return nil
}

// NewEndpoint fills in host/port defaults, per spec.md §3.
func NewEndpoint(host string, port uint16) Endpoint {
	if host == "" {
		host = DefaultHost
	}
	if port == 0 {
		port = DefaultPort
	}
	return Endpoint{Host: host, Port: port}
}
