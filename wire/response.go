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

package wire

import (
	"encoding/binary"

	liberr "github.com/sabouaram/mongocore/internal/errors"
)

// ExactReader reads exactly n bytes or fails, the contract sockio.Conn
// implements over a live TCP stream (spec.md §4.2).
type ExactReader interface {
	RecvExact(n int) ([]byte, error)
}

// Response is the decoded standard + response header pair plus the raw
// (still-BSON-encoded) document bytes that followed, per spec.md §3.
type Response struct {
	Header         Header
	Flags          int32
	CursorID       int64
	StartingFrom   int32
	NumberReturned int32
	Docs           [][]byte
}

// ReadResponse reads one full reply frame from r: the 16-byte standard
// header, the 20-byte response header, then NumberReturned length-prefixed
// documents, per spec.md §4.1.
func ReadResponse(r ExactReader) (*Response, liberr.Error) {
	hb, err := r.RecvExact(HeaderSize)
	if err != nil {
		return nil, asConnFailure(err)
	}
	h, derr := DecodeHeader(hb)
	if derr != nil {
		return nil, derr
	}

	rb, err := r.RecvExact(ResponseHeaderSize)
	if err != nil {
		return nil, asConnFailure(err)
	}
	if len(rb) != ResponseHeaderSize {
		return nil, liberr.Newf(liberr.ShortRead, "response header: expected %d bytes, got %d", ResponseHeaderSize, len(rb))
	}

	resp := &Response{
		Header:         h,
		Flags:          int32(binary.LittleEndian.Uint32(rb[0:4])),
		CursorID:       int64(binary.LittleEndian.Uint64(rb[4:12])),
		StartingFrom:   int32(binary.LittleEndian.Uint32(rb[12:16])),
		NumberReturned: int32(binary.LittleEndian.Uint32(rb[16:20])),
	}

	if resp.NumberReturned < 0 {
		return nil, liberr.Newf(liberr.ShortRead, "response header: negative number_returned %d", resp.NumberReturned)
	}

	resp.Docs = make([][]byte, 0, resp.NumberReturned)
	for i := int32(0); i < resp.NumberReturned; i++ {
		lb, err := r.RecvExact(4)
		if err != nil {
			return nil, asConnFailure(err)
		}
		if len(lb) != 4 {
			return nil, liberr.Newf(liberr.ShortRead, "document %d: length prefix truncated", i)
		}
		l := int32(binary.LittleEndian.Uint32(lb))
		if l < 4 {
			return nil, liberr.Newf(liberr.ShortRead, "document %d: invalid length %d", i, l)
		}
		rest, err := r.RecvExact(int(l) - 4)
		if err != nil {
			return nil, asConnFailure(err)
		}
		if int32(len(rest)) != l-4 {
			return nil, liberr.Newf(liberr.ShortRead, "document %d: expected %d bytes, got %d", i, l-4, len(rest))
		}
		doc := make([]byte, 0, l)
		doc = append(doc, lb...)
		doc = append(doc, rest...)
		resp.Docs = append(resp.Docs, doc)
	}

	return resp, nil
}

func asConnFailure(err error) liberr.Error {
	if ee, ok := err.(liberr.Error); ok {
		return ee
	}
	return liberr.New(liberr.ConnectionFailure, "reading response frame", err)
}
