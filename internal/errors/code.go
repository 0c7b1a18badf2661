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

// Package errors classifies the failure kinds the connection core and the
// chunked-file engine can raise, so callers can branch on a code instead of
// matching error strings.
package errors

// CodeError is a small numeric classification of a failure, analogous to an
// HTTP status family. It never carries a value on its own: use
// New(code, message, parent...) to attach the underlying cause, if any.
type CodeError uint16

const (
	UnknownError CodeError = iota

	// ArgumentError marks malformed input: a bad URI, an endpoint-pair of
	// the wrong arity, an invalid port, or an unknown safe-check option.
	// Never triggers connection teardown.
	ArgumentError

	// ConfigurationError marks an attempt to connect directly to a slave
	// endpoint without explicit slave_ok consent.
	ConfigurationError

	// ConnectionFailure marks a socket-level I/O error, a short read, or a
	// peer closing the stream. Always triggers full connection teardown.
	ConnectionFailure

	// ConnectionTimeout marks a pool checkout that exceeded its deadline.
	// Does not trigger teardown; the caller may retry.
	ConnectionTimeout

	// AuthenticationError marks a failure replaying a saved authentication
	// against the freshly elected master.
	AuthenticationError

	// OperationFailure marks a server-reported err/errmsg in a safe-check
	// reply. Does not trigger teardown.
	OperationFailure

	// GridError marks chunked-file mode misuse: write on a read-mode file,
	// seek on a write-mode file, or an unrecognized mode string.
	GridError

	// ShortRead marks a response frame that ended before the declared
	// length was satisfied.
	ShortRead

	// ConnectionClosed marks a zero-length read from a peer that has
	// closed its end of the socket.
	ConnectionClosed
)

func (c CodeError) String() string {
	switch c {
	case ArgumentError:
		return "ArgumentError"
	case ConfigurationError:
		return "ConfigurationError"
	case ConnectionFailure:
		return "ConnectionFailure"
	case ConnectionTimeout:
		return "ConnectionTimeout"
	case AuthenticationError:
		return "AuthenticationError"
	case OperationFailure:
		return "OperationFailure"
	case GridError:
		return "GridError"
	case ShortRead:
		return "ShortRead"
	case ConnectionClosed:
		return "ConnectionClosed"
	default:
		return "UnknownError"
	}
}

// Teardown reports whether this code always triggers full connection
// teardown, per spec.md §7.
func (c CodeError) Teardown() bool {
	switch c {
	case ConnectionFailure, ShortRead, ConnectionClosed:
		return true
	default:
		return false
	}
}
