// Copyright (c) 2024 LevelGraph Go Contributors
//
// Permission is hereby granted, free of charge, to any person
// obtaining a copy of this software and associated documentation
// files (the "Software"), to deal in the Software without
// restriction, including without limitation the rights to use,
// copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the
// Software is furnished to do so, subject to the following
// conditions:
//
// The above copyright notice and this permission notice shall be
// included in all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
// EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES
// OF MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND
// NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT
// HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY,
// WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING
// FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR
// OTHER DEALINGS IN THE SOFTWARE.

// Package annerr defines the error taxonomy shared by every annidx
// component: argument-invalid, state-invalid, lookup, resource, I/O, and
// unsupported errors, plus a strerror-style translator.
package annerr

import (
	"errors"
	"fmt"
)

// Code identifies a class of failure across the facade and its backends.
type Code int

const (
	// Success is never returned as an error; it exists so Code's zero
	// value is self-describing in logs.
	Success Code = iota
	InvalidDimensions
	InvalidMethod
	InvalidID
	InvalidVector
	DuplicatedEntry
	NotFoundID
	IndexEmpty
	IndexUninitialized
	AllocationFailure
	ThreadCreateFailure
	FileIOError
	InvalidFile
	NotImplemented
	SystemError
)

var messages = map[Code]string{
	Success:             "success",
	InvalidDimensions:   "invalid dimensions",
	InvalidMethod:       "invalid or unknown metric",
	InvalidID:           "invalid id (zero is reserved for null)",
	InvalidVector:       "invalid vector (nil, empty, or wrong length)",
	DuplicatedEntry:     "id already present in index",
	NotFoundID:          "id not found",
	IndexEmpty:          "index has no elements",
	IndexUninitialized:  "index has not been allocated",
	AllocationFailure:   "allocation failure",
	ThreadCreateFailure: "failed to start worker thread",
	FileIOError:         "file open/read/write error",
	InvalidFile:         "malformed or incompatible file",
	NotImplemented:      "operation not implemented",
	SystemError:         "internal system error",
}

// Strerror translates a Code into a human-readable message, the Go
// analogue of the C surface's strerror-style helper named in spec.md §7.
func Strerror(c Code) string {
	if msg, ok := messages[c]; ok {
		return msg
	}
	return "unknown error"
}

// Error is the typed error value returned by every public annidx
// operation. It wraps an optional underlying cause so callers can still
// errors.Is/errors.As through to e.g. an *os.PathError from a failed
// export.
type Error struct {
	Code  Code
	Op    string // operation that failed, e.g. "insert", "search_n"
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("annidx: %s: %s: %v", e.Op, Strerror(e.Code), e.Cause)
	}
	return fmt.Sprintf("annidx: %s: %s", e.Op, Strerror(e.Code))
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an *Error with no wrapped cause.
func New(op string, code Code) *Error {
	return &Error{Op: op, Code: code}
}

// Wrap builds an *Error around an underlying cause.
func Wrap(op string, code Code, cause error) *Error {
	return &Error{Op: op, Code: code, Cause: cause}
}

// Is reports whether err is an *Error carrying the given code. It lets
// callers write `annerr.Is(err, annerr.NotFoundID)` instead of
// unwrapping by hand.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}
