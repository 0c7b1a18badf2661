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

// Package wire packs and unpacks the binary frames exchanged with the
// server: the 16-byte standard header (spec.md §4.1), the 20-byte response
// header, and the length-prefixed document stream that follows it.
package wire

import (
	"encoding/binary"

	liberr "github.com/sabouaram/mongocore/internal/errors"
)

const (
	// HeaderSize is the length in bytes of the standard message header.
	HeaderSize = 16

	// ResponseHeaderSize is the length in bytes of the response header
	// that follows the standard header on OP_REPLY frames.
	ResponseHeaderSize = 20

	// DefaultPort is the server's default listening port.
	DefaultPort = 27017

	// DefaultChunkSize is the default size, in bytes, of a chunked-file
	// chunk (spec.md §4.7).
	DefaultChunkSize = 262144
)

// Opcode identifies the kind of message carried by a frame. It is a closed
// variant (spec.md §9 design note: represent as a tagged enum, not a bare
// integer).
type Opcode int32

const (
	OpReply   Opcode = 1
	OpQuery   Opcode = 2004
	OpGetMore Opcode = 2005
)

// Header is the 16-byte standard header prefixed to every frame.
type Header struct {
	TotalLength int32
	RequestID   int32
	ResponseTo  int32
	Opcode      Opcode
}

// EncodeHeader writes h into a freshly allocated 16-byte little-endian
// buffer.
func EncodeHeader(h Header) []byte {
	buf := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(h.TotalLength))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(h.RequestID))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(h.ResponseTo))
	binary.LittleEndian.PutUint32(buf[12:16], uint32(h.Opcode))
	return buf
}

// DecodeHeader parses a 16-byte little-endian buffer into a Header. It
// returns ShortRead if buf is not exactly HeaderSize bytes.
func DecodeHeader(buf []byte) (Header, liberr.Error) {
	if len(buf) != HeaderSize {
		return Header{}, liberr.Newf(liberr.ShortRead, "standard header: expected %d bytes, got %d", HeaderSize, len(buf))
	}
	return Header{
		TotalLength: int32(binary.LittleEndian.Uint32(buf[0:4])),
		RequestID:   int32(binary.LittleEndian.Uint32(buf[4:8])),
		ResponseTo:  int32(binary.LittleEndian.Uint32(buf[8:12])),
		Opcode:      Opcode(int32(binary.LittleEndian.Uint32(buf[12:16]))),
	}, nil
}
