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
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"

	"github.com/sabouaram/mongocore/bsonutil"
	liberr "github.com/sabouaram/mongocore/internal/errors"
)

// File is the cursor state of spec.md §3: file_position, current_chunk,
// and chunk_position, plus the open mode and decoded files document.
type File struct {
	bucket *Bucket
	info   FileInfo
	mode   Mode

	currentChunk  chunkDoc
	filePosition  int64
	chunkPosition int32

	closed bool
}

// Open implements spec.md §4.7's open(): look up {filename} ∪ criteria in
// files, then run the mode-specific setup.
func Open(bucket *Bucket, filename string, mode Mode, opts OpenOptions) (*File, liberr.Error) {
	if !mode.valid() {
		return nil, liberr.Newf(liberr.GridError, "open: unrecognized mode %q", mode)
	}

	chunkSize := opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	contentType := opts.ContentType
	if contentType == "" {
		contentType = DefaultContentType
	}

	selector := bsonutil.Document{"filename": filename}
	for k, v := range opts.Criteria {
		selector[k] = v
	}

	doc, found, err := bucket.Files.FindOne(selector)
	if err != nil {
		return nil, err
	}

	var info FileInfo
	if found {
		if derr := mapstructure.Decode(doc, &info); derr != nil {
			return nil, liberr.New(liberr.ArgumentError, "open: decoding files document", derr)
		}
	} else {
		if mode == ModeRead {
			return nil, liberr.New(liberr.GridError, "open: file not found")
		}
		id := opts.FilesID
		if id == nil {
			id = uuid.NewString()
		}
		info = FileInfo{
			ID:          id,
			Filename:    filename,
			ContentType: contentType,
			ChunkSize:   chunkSize,
			Metadata:    opts.Metadata,
		}
	}

	f := &File{bucket: bucket, info: info, mode: mode}

	switch mode {
	case ModeRead:
		c, ok, gerr := f.getChunk(0)
		if gerr != nil {
			return nil, gerr
		}
		if !ok {
			return nil, liberr.New(liberr.GridError, "open: no chunks for existing file")
		}
		f.currentChunk = c
		f.filePosition = 0
		f.chunkPosition = 0

	case ModeWrite:
		if derr := bucket.Chunks.DeleteMany(bsonutil.Document{"files_id": info.ID}); derr != nil {
			return nil, derr
		}
		if derr := bucket.Chunks.EnsureIndex(bsonutil.Document{"files_id": 1, "n": 1}); derr != nil {
			return nil, derr
		}
		f.currentChunk = chunkDoc{ID: uuid.NewString(), FilesID: info.ID, N: 0}
		f.filePosition = 0
		f.chunkPosition = 0

	case ModeAppend:
		if derr := bucket.Chunks.EnsureIndex(bsonutil.Document{"files_id": 1, "n": 1}); derr != nil {
			return nil, derr
		}
		lastN := lastChunkNumber(info)
		c, ok, gerr := f.getChunk(lastN)
		if gerr != nil {
			return nil, gerr
		}
		if !ok {
			c = chunkDoc{ID: uuid.NewString(), FilesID: info.ID, N: 0}
		}
		f.currentChunk = c
		f.chunkPosition = int32(len(c.Data))
		f.filePosition = info.Length
	}

	return f, nil
}

func (f *File) getChunk(n int32) (chunkDoc, bool, liberr.Error) {
	doc, found, err := f.bucket.Chunks.FindOne(bsonutil.Document{"files_id": f.info.ID, "n": n})
	if err != nil {
		return chunkDoc{}, false, err
	}
	if !found {
		return chunkDoc{}, false, nil
	}
	var c chunkDoc
	if derr := mapstructure.Decode(doc, &c); derr != nil {
		return chunkDoc{}, false, liberr.New(liberr.ArgumentError, "getChunk: decoding chunk document", derr)
	}
	return c, true, nil
}

// persistChunk writes the current chunk with delete-then-insert on _id, an
// effective upsert, per spec.md §4.7.
func (f *File) persistChunk() liberr.Error {
	if err := f.bucket.Chunks.DeleteMany(bsonutil.Document{"_id": f.currentChunk.ID}); err != nil {
		return err
	}
	return f.bucket.Chunks.Insert(f.currentChunk.toDocument())
}

// Read implements spec.md §4.7's read(length): nil means the whole-file
// fast path when positioned at the start, or "to EOF" otherwise.
func (f *File) Read(length *int64) ([]byte, liberr.Error) {
	if f.mode == ModeWrite {
		return nil, liberr.New(liberr.GridError, "read: file opened write-only")
	}
	if length != nil && *length == 0 {
		return []byte{}, nil
	}

	if length == nil && f.filePosition == 0 {
		out := append([]byte{}, f.currentChunk.Data...)
		n := f.currentChunk.N
		lastN := lastChunkNumber(f.info)
		for n < lastN {
			n++
			c, ok, err := f.getChunk(n)
			if err != nil {
				return nil, err
			}
			if !ok {
				break
			}
			out = append(out, c.Data...)
			f.currentChunk = c
		}
		f.filePosition = f.info.Length
		f.chunkPosition = int32(len(f.currentChunk.Data))
		return out, nil
	}

	want := f.info.Length - f.filePosition
	if length != nil {
		want = *length
	}
	if want < 0 {
		want = 0
	}

	out := make([]byte, 0, want)
	for int64(len(out)) < want {
		avail := f.currentChunk.Data[f.chunkPosition:]
		if len(avail) == 0 {
			c, ok, err := f.getChunk(f.currentChunk.N + 1)
			if err != nil {
				return nil, err
			}
			if !ok {
				break
			}
			f.currentChunk = c
			f.chunkPosition = 0
			continue
		}
		need := want - int64(len(out))
		take := int64(len(avail))
		if take > need {
			take = need
		}
		out = append(out, avail[:take]...)
		f.chunkPosition += int32(take)
		f.filePosition += take
	}
	return out, nil
}

// Write implements spec.md §4.7's write(bytes).
func (f *File) Write(data []byte) (int, liberr.Error) {
	if !f.mode.writable() {
		return 0, liberr.New(liberr.GridError, "write: file not opened for writing")
	}

	written := 0
	remaining := data
	for len(remaining) > 0 {
		if f.chunkPosition == f.info.ChunkSize {
			if err := f.persistChunk(); err != nil {
				return written, err
			}
			f.currentChunk = chunkDoc{ID: uuid.NewString(), FilesID: f.info.ID, N: f.currentChunk.N + 1}
			f.chunkPosition = 0
		}

		space := f.info.ChunkSize - f.chunkPosition
		n := int32(len(remaining))
		if n > space {
			n = space
		}

		f.currentChunk.Data = append(f.currentChunk.Data, remaining[:n]...)
		f.chunkPosition += n
		f.filePosition += int64(n)
		remaining = remaining[n:]
		written += int(n)

		if err := f.persistChunk(); err != nil {
			return written, err
		}
	}
	return written, nil
}

// Seek implements spec.md §4.7's seek(pos, whence): read-mode only.
func (f *File) Seek(pos int64, whence int) (int64, liberr.Error) {
	if f.mode.writable() {
		return 0, liberr.New(liberr.GridError, "seek: not permitted in write mode")
	}

	var target int64
	switch whence {
	case io.SeekStart:
		target = pos
	case io.SeekCurrent:
		target = f.filePosition + pos
	case io.SeekEnd:
		target = f.info.Length + pos
	default:
		return 0, liberr.New(liberr.ArgumentError, "seek: invalid whence")
	}
	if target < 0 {
		return 0, liberr.New(liberr.ArgumentError, "seek: negative position")
	}

	targetN := int32(target / int64(f.info.ChunkSize))
	if targetN != f.currentChunk.N {
		c, ok, err := f.getChunk(targetN)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, liberr.New(liberr.GridError, "seek: target chunk not found")
		}
		f.currentChunk = c
	}

	f.filePosition = target
	f.chunkPosition = int32(target % int64(f.info.ChunkSize))
	return f.filePosition, nil
}

// Tell implements spec.md §4.7's tell().
func (f *File) Tell() int64 {
	return f.filePosition
}

// Info returns the file's current (possibly not yet finalized) metadata.
func (f *File) Info() FileInfo {
	return f.info
}

// Close implements spec.md §4.7's close(): in write modes, finalizes
// length, uploadDate (first close only), the filemd5 digest, and the
// files document. Read-mode close is a no-op.
func (f *File) Close() liberr.Error {
	if f.closed {
		return nil
	}
	if !f.mode.writable() {
		f.closed = true
		return nil
	}

	if err := f.persistChunk(); err != nil {
		return err
	}

	f.info.Length = int64(f.currentChunk.N)*int64(f.info.ChunkSize) + int64(f.chunkPosition)
	if f.info.UploadDate.IsZero() {
		f.info.UploadDate = time.Now().UTC()
	}

	if f.bucket.Cmd != nil {
		reply, err := f.bucket.Cmd.RunCommand(f.bucket.DBName, bsonutil.Document{"filemd5": f.info.ID, "root": "fs"})
		if err != nil {
			return err
		}
		if md5, ok := reply["md5"].(string); ok {
			f.info.MD5 = md5
		}
	}

	if err := f.bucket.Files.DeleteMany(bsonutil.Document{"_id": f.info.ID}); err != nil {
		return err
	}
	if err := f.bucket.Files.Insert(f.info.toDocument()); err != nil {
		return err
	}

	f.closed = true
	return nil
}

// Abort releases a partially-written file's chunks and skips files-document
// finalization. A SPEC_FULL.md addition (spec.md §4.7 defines no such
// operation): it deletes every chunk keyed by this file's files_id through
// the same Chunks.DeleteMany collaborator write() already depends on, for
// callers that cannot complete a write (e.g. their context is cancelled).
func (f *File) Abort() liberr.Error {
	if !f.mode.writable() {
		return liberr.New(liberr.GridError, "abort: not permitted in read mode")
	}
	if f.closed {
		return nil
	}
	if err := f.bucket.Chunks.DeleteMany(bsonutil.Document{"files_id": f.info.ID}); err != nil {
		return err
	}
	f.closed = true
	return nil
}
