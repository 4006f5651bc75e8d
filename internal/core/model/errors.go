// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package model defines the core data structures for the application.
// This file holds the error taxonomy shared by the pipeline, the task
// service, and the API layer. Every failure that crosses a component
// boundary is wrapped in an *Error carrying one of the Kind constants, so
// the API layer can map it to an HTTP status without inspecting message
// text, and a task can expose the first failing stage's error verbatim.
package model

import (
	"errors"
	"fmt"
)

// Kind classifies an error for boundary mapping.
type Kind string

const (
	// KindNotFound: the metadata provider has no match for the title.
	KindNotFound Kind = "not_found"
	// KindUpstream: a dependency was unreachable, timed out, or answered non-2xx.
	KindUpstream Kind = "upstream_error"
	// KindParse: a dependency answered but the payload did not match the expected schema.
	KindParse Kind = "parse_error"
	// KindValidation: the caller's request was malformed.
	KindValidation Kind = "validation_error"
	// KindNotReady: a result was requested before the task reached a terminal state.
	KindNotReady Kind = "not_ready"
	// KindTaskNotFound: the task id is unknown to the task table.
	KindTaskNotFound Kind = "task_not_found"
)

// Error is the single error type crossing component boundaries. Op names the
// operation that failed (e.g. "tmdb.search", "kimi.chat"); Timeout is set
// when an upstream call exceeded its deadline so the API layer can answer
// 504 instead of 502.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Timeout bool
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// NotFound reports that op found no matching record.
func NotFound(op, message string) *Error {
	return &Error{Kind: KindNotFound, Op: op, Message: message}
}

// Upstream wraps a transport or non-2xx failure from a dependency.
func Upstream(op string, err error, timeout bool) *Error {
	return &Error{Kind: KindUpstream, Op: op, Message: "upstream request failed", Timeout: timeout, Err: err}
}

// Parse reports that a dependency's payload could not be mapped to the
// expected schema.
func Parse(op, message string, err error) *Error {
	return &Error{Kind: KindParse, Op: op, Message: message, Err: err}
}

// Validation reports a malformed caller request.
func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

// NotReady reports that the task exists but has not reached a terminal state.
func NotReady(taskID string) *Error {
	return &Error{Kind: KindNotReady, Message: fmt.Sprintf("task %s is not finished", taskID)}
}

// TaskNotFound reports an unknown task id.
func TaskNotFound(taskID string) *Error {
	return &Error{Kind: KindTaskNotFound, Message: fmt.Sprintf("no task with id %s", taskID)}
}

// KindOf extracts the taxonomy kind from err. Unclassified errors report
// KindUpstream since they can only originate from a dependency boundary.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUpstream
}

// IsTimeout reports whether err is an upstream failure caused by a deadline.
func IsTimeout(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Timeout
}
