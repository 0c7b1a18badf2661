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

package gridfs

import (
	"time"

	"github.com/sabouaram/mongocore/bsonutil"
)

// DefaultChunkSize and DefaultContentType mirror wire.DefaultChunkSize and
// spec.md §4.7's default content type. Kept as independent constants,
// rather than importing wire, so this package stays a pure database-façade
// client (see package doc).
const (
	DefaultChunkSize   = 262144
	DefaultContentType = "text/plain"
)

// Mode is the file's open mode, per spec.md §4.7.
type Mode string

const (
	ModeRead   Mode = "r"
	ModeWrite  Mode = "w"
	ModeAppend Mode = "w+"
)

func (m Mode) writable() bool {
	return m == ModeWrite || m == ModeAppend
}

func (m Mode) valid() bool {
	return m == ModeRead || m == ModeWrite || m == ModeAppend
}

// FileInfo is the decoded files document, per spec.md §3.
type FileInfo struct {
	ID          interface{}       `mapstructure:"_id"`
	Filename    string            `mapstructure:"filename"`
	ContentType string            `mapstructure:"contentType"`
	Length      int64             `mapstructure:"length"`
	ChunkSize   int32             `mapstructure:"chunkSize"`
	UploadDate  time.Time         `mapstructure:"uploadDate"`
	Aliases     []string          `mapstructure:"aliases"`
	Metadata    bsonutil.Document `mapstructure:"metadata"`

	// MD5 is populated by close() from the server's filemd5 reply. A
	// SPEC_FULL.md addition to spec.md §4.7's finalization step, so callers
	// can verify integrity without a second round-trip.
	MD5 string `mapstructure:"md5"`
}

func (fi FileInfo) toDocument() bsonutil.Document {
	return bsonutil.Document{
		"_id":         fi.ID,
		"filename":    fi.Filename,
		"contentType": fi.ContentType,
		"length":      fi.Length,
		"chunkSize":   fi.ChunkSize,
		"uploadDate":  fi.UploadDate,
		"aliases":     fi.Aliases,
		"metadata":    fi.Metadata,
		"md5":         fi.MD5,
	}
}

func lastChunkNumber(info FileInfo) int32 {
	if info.Length == 0 || info.ChunkSize == 0 {
		return 0
	}
	return int32((info.Length - 1) / int64(info.ChunkSize))
}

// OpenOptions carries the per-open options of spec.md §4.7.
type OpenOptions struct {
	ChunkSize   int32
	ContentType string
	FilesID     interface{}
	Metadata    bsonutil.Document
	Criteria    bsonutil.Document
}

// chunkDoc is one physical chunk document, per spec.md §3.
type chunkDoc struct {
	ID      interface{} `mapstructure:"_id"`
	FilesID interface{} `mapstructure:"files_id"`
	N       int32       `mapstructure:"n"`
	Data    []byte      `mapstructure:"data"`
}

func (c chunkDoc) toDocument() bsonutil.Document {
	return bsonutil.Document{
		"_id":      c.ID,
		"files_id": c.FilesID,
		"n":        c.N,
		"data":     c.Data,
	}
}
