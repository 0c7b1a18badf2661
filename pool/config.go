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

// Package pool implements the bounded socket pool described in spec.md
// §4.3: a mutex-and-condvar guarded set of live sockets, with a blocking
// checkout/checkin discipline and a timeout on the wait.
package pool

import "time"

const (
	// DefaultSize is the default pool_size, per spec.md §4.3.
	DefaultSize = 1

	// DefaultTimeout is the default checkout wait timeout, per spec.md §4.3.
	DefaultTimeout = 5 * time.Second
)

// Config holds the pool's tunables.
type Config struct {
	// Size is the maximum number of live sockets the pool will hold.
	Size int

	// Timeout bounds how long Checkout waits for a socket to free up.
	Timeout time.Duration
}

// Normalize applies the spec's defaults to zero-value fields.
func (c Config) Normalize() Config {
	if c.Size < 1 {
		c.Size = DefaultSize
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}
