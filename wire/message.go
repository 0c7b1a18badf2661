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

// Message is the logical (opcode, request_id, body) triple described in
// spec.md §3. Pack frames it for the wire.
type Message struct {
	Opcode    Opcode
	RequestID int32
	Body      []byte
}

// Pack prepends the 16-byte standard header to m.Body, computing
// total_length = 16 + len(body). response_to is always zero on requests,
// per spec.md §4.1.
func Pack(m Message) []byte {
	h := Header{
		TotalLength: int32(HeaderSize + len(m.Body)),
		RequestID:   m.RequestID,
		ResponseTo:  0,
		Opcode:      m.Opcode,
	}
	return append(EncodeHeader(h), m.Body...)
}
