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

package dbconfig

import (
	liberr "github.com/sabouaram/mongocore/internal/errors"
)

// NodeSet is the non-empty ordered sequence of endpoints described in
// spec.md §3: length 1 (single node) or 2 (a pair, at most one master).
type NodeSet []Endpoint

// IsPair reports whether this node set is a two-member pair.
func (n NodeSet) IsPair() bool {
	return len(n) == 2
}

// Validate checks the length invariant and that every member endpoint is
// itself valid.
func (n NodeSet) Validate() liberr.Error {
	if len(n) != 1 && len(n) != 2 {
		return liberr.Newf(liberr.ArgumentError, "node set: expected 1 or 2 endpoints, got %d", len(n))
	}
	for _, e := range n {
		if err := e.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// PairSpec is one element of the two-element array accepted by
// open_paired (spec.md §4.6). A zero-value Host/Port means "use the
// default", mirroring the dynamic-language tuple forms [host,port],
// [host], [port], and the fully-absent tuple.
type PairSpec struct {
	Host string
	Port uint16
}

// NewPaired builds a NodeSet from exactly two PairSpecs. Any other arity
// is an ArgumentError, per spec.md §4.6.
func NewPaired(specs []PairSpec) (NodeSet, liberr.Error) {
	if len(specs) != 2 {
		return nil, liberr.Newf(liberr.ArgumentError, "open_paired: expected exactly 2 endpoints, got %d", len(specs))
	}
	return NodeSet{
		NewEndpoint(specs[0].Host, specs[0].Port),
		NewEndpoint(specs[1].Host, specs[1].Port),
	}, nil
}

// NewSingle builds a single-member NodeSet, filling in defaults.
func NewSingle(host string, port uint16) NodeSet {
	return NodeSet{NewEndpoint(host, port)}
}
