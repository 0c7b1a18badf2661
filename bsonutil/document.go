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

// Package bsonutil defines the narrow surface this module expects from a
// BSON encoder/decoder. Per spec.md §1, the codec itself is an external
// collaborator out of scope for this core: callers inject a Serializer and
// a Deserializer (e.g. backed by go.mongodb.org/mongo-driver/bson, or any
// other BSON library) at construction time.
package bsonutil

// Document is a decoded BSON document, keyed by field name.
type Document map[string]interface{}

// Serializer encodes a Document to wire-format bytes.
type Serializer func(Document) ([]byte, error)

// Deserializer decodes wire-format bytes into a Document.
type Deserializer func([]byte) (Document, error)

// Codec bundles the pair of collaborators a Connection needs.
type Codec struct {
	Serialize   Serializer
	Deserialize Deserializer
}
