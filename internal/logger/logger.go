/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
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

// Package logger provides the small structured-logging surface the
// connection core needs: a Debug line before every wire transmission and
// for each connector probe failure, plus Info/Warning/Error levels that no
// package of this module calls. It is backed
// by logrus, the same library the teacher's own logger package documents
// itself against.
package logger

import (
	"github.com/sirupsen/logrus"
)

// Logger is the logging surface consumed by the router and the connector. A nil Logger is valid everywhere it is accepted: callers
// check for nil before calling, matching spec.md §4.5 ("when a logger is
// configured").
type Logger interface {
	Debug(message string, fields map[string]any)
	Info(message string, fields map[string]any)
	Warning(message string, fields map[string]any)
	Error(message string, fields map[string]any)
}

type logger struct {
	l *logrus.Logger
}

// New returns a Logger writing through a freshly configured logrus.Logger.
func New() Logger {
	l := logrus.New()
	l.SetLevel(logrus.DebugLevel)
	return &logger{l: l}
}

// NewFrom wraps an already-configured *logrus.Logger, for applications
// that want a shared logging pipeline across components.
func NewFrom(l *logrus.Logger) Logger {
	if l == nil {
		return New()
	}
	return &logger{l: l}
}

func (o *logger) entry(fields map[string]any) *logrus.Entry {
	if len(fields) == 0 {
		return logrus.NewEntry(o.l)
	}
	return o.l.WithFields(logrus.Fields(fields))
}

func (o *logger) Debug(message string, fields map[string]any) {
	o.entry(fields).Debug(message)
}

func (o *logger) Info(message string, fields map[string]any) {
	o.entry(fields).Info(message)
}

func (o *logger) Warning(message string, fields map[string]any) {
	o.entry(fields).Warning(message)
}

func (o *logger) Error(message string, fields map[string]any) {
	o.entry(fields).Error(message)
}

// MongoDBDebug emits the "  MONGODB <msg>" debug line spec.md §4.5 requires
// before transmitting a message, when log is non-nil.
func MongoDBDebug(log Logger, msg string, fields map[string]any) {
	if log == nil {
		return
	}
	log.Debug("  MONGODB "+msg, fields)
}
