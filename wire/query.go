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
)

// BuildQueryBody assembles an OP_QUERY body: flags, the full collection
// name as a NUL-terminated string, numberToSkip, numberToReturn, and the
// already-serialized query document, per spec.md §6 ("getLastError is
// encoded as an OP_QUERY ... flags=0, skip=0, n_return=-1").
func BuildQueryBody(flags int32, fullCollectionName string, numberToSkip, numberToReturn int32, queryDoc []byte) []byte {
	body := make([]byte, 0, 4+len(fullCollectionName)+1+4+4+len(queryDoc))

	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], uint32(flags))
	body = append(body, tmp[:]...)

	body = append(body, fullCollectionName...)
	body = append(body, 0x00)

	binary.LittleEndian.PutUint32(tmp[:], uint32(numberToSkip))
	body = append(body, tmp[:]...)

	binary.LittleEndian.PutUint32(tmp[:], uint32(numberToReturn))
	body = append(body, tmp[:]...)

	body = append(body, queryDoc...)
	return body
}
