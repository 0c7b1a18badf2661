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

package errors

import (
	"fmt"
	"runtime"
)

// Error extends the standard error with a CodeError classification and an
// optional parent chain, so a caller can use errors.As to recover the code
// without string-matching the message.
type Error interface {
	error

	// Code returns the classification of this error.
	Code() CodeError

	// HasCode reports whether this error or any of its parents carries the
	// given code.
	HasCode(code CodeError) bool

	// Parent returns the chain of wrapped errors, outermost first.
	Parent() []error

	// Unwrap gives compatibility with errors.Is / errors.As.
	Unwrap() []error

	// Trace returns "file:line" of the call site that created this error.
	Trace() string
}

type ers struct {
	code    CodeError
	message string
	parent  []error
	file    string
	line    int
}

func (e *ers) Error() string {
	if len(e.parent) == 0 {
		return fmt.Sprintf("%s: %s", e.code, e.message)
	}
	return fmt.Sprintf("%s: %s (%s)", e.code, e.message, e.parent[0].Error())
}

func (e *ers) Code() CodeError {
	return e.code
}

func (e *ers) HasCode(code CodeError) bool {
	if e.code == code {
		return true
	}
	for _, p := range e.parent {
		var pe *ers
		if As(p, &pe) && pe.HasCode(code) {
			return true
		}
	}
	return false
}

func (e *ers) Parent() []error {
	return e.parent
}

func (e *ers) Unwrap() []error {
	return e.parent
}

func (e *ers) Trace() string {
	if e.file == "" {
		return ""
	}
	return fmt.Sprintf("%s:%d", e.file, e.line)
}

// New creates an Error carrying the given code, message, and optional
// parent errors, capturing the caller's file/line.
func New(code CodeError, message string, parent ...error) Error {
	file, line := frame()
	return &ers{code: code, message: message, parent: parent, file: file, line: line}
}

// Newf is New with fmt.Sprintf-formatted message.
func Newf(code CodeError, pattern string, args ...any) Error {
	file, line := frame()
	return &ers{code: code, message: fmt.Sprintf(pattern, args...), file: file, line: line}
}

func frame() (file string, line int) {
	_, file, line, ok := runtime.Caller(2)
	if !ok {
		return "", 0
	}
	return file, line
}

// As walks err and its Unwrap() []error chain, depth first, and stores the
// first local *ers it finds in target, like the standard errors.As but
// without importing it. HasCode and Is use it.
func As(err error, target **ers) bool {
	for err != nil {
		if e, ok := err.(*ers); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() []error })
		if !ok {
			return false
		}
		for _, p := range u.Unwrap() {
			if As(p, target) {
				return true
			}
		}
		return false
	}
	return false
}

// Is reports whether err, or any error in its parent chain, is an Error
// with the given code.
func Is(err error, code CodeError) bool {
	var e *ers
	if As(err, &e) {
		return e.HasCode(code)
	}
	return false
}
