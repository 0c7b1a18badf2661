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

// Package gridfs implements the chunked-file engine of spec.md §3 and §4.7:
// a seekable, position-tracked read/write abstraction over an ordered
// sequence of chunk documents. It is a client of the database façade, not
// of the socket layer, so it never imports wire/sockio/pool; the façade
// (find, insert, remove, ensure_index, command) is an external collaborator
// per spec.md §1.
package gridfs

import (
	"github.com/sabouaram/mongocore/bsonutil"
	liberr "github.com/sabouaram/mongocore/internal/errors"
)

// Collection is the narrow slice of a database collection the chunked-file
// engine drives directly: single-document lookup, insert, bulk delete, and
// index creation.
type Collection interface {
	FindOne(selector bsonutil.Document) (bsonutil.Document, bool, liberr.Error)
	Insert(doc bsonutil.Document) liberr.Error
	DeleteMany(selector bsonutil.Document) liberr.Error
	EnsureIndex(keys bsonutil.Document) liberr.Error
}

// Commander runs a database command against a given database name, the
// collaborator close() uses to obtain a filemd5 digest (spec.md §4.7).
type Commander interface {
	RunCommand(dbName string, cmd bsonutil.Document) (bsonutil.Document, liberr.Error)
}

// Bucket names the files/chunks collection pair a set of chunked files is
// stored in, per spec.md §6's persisted state layout.
type Bucket struct {
	Files  Collection
	Chunks Collection
	Cmd    Commander
	DBName string
}
