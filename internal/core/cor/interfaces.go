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

// Package cor (Chain of Responsibility) provides the building blocks for
// the review-generation pipeline. A workflow is a Chain of Commands sharing
// one Context; each command reads its input from the context, does one unit
// of work, and writes its output back for the next command. The chain stops
// at the first recorded error, which is how a failing pipeline stage skips
// the remaining stages.
package cor

import (
	"context"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// CtxIn and CtxOut are the keys the BaseChain uses to pipe one command's
// primary output into the next command's primary input.
const (
	CtxIn  = "__IN__"
	CtxOut = "__OUT__"
)

// Context is the shared state for one workflow execution. It carries the
// Go context (cancellation, deadlines, trace spans), a property bag for
// inter-command data, and the errors recorded by failing commands.
type Context interface {
	// SetContext replaces the embedded Go context. The BaseChain uses this
	// to scope each command under its own trace span.
	SetContext(ctx context.Context)

	// GetContext returns the embedded Go context.
	GetContext() context.Context

	// Add stores a key-value pair, returning the Context for chaining.
	Add(key string, value interface{}) Context

	// Get returns the value stored under key, or nil.
	Get(key string) interface{}

	// Remove deletes the value stored under key.
	Remove(key string)

	// AddError records an error under the name of the command that produced
	// it. The first error recorded is also retained in submission order.
	AddError(key string, err error)

	// GetErrors returns all recorded errors keyed by command name.
	GetErrors() map[string]error

	// FirstError returns the earliest recorded error, or nil. This is the
	// error a failed task exposes to its caller.
	FirstError() error

	// HasErrors reports whether any command recorded an error.
	HasErrors() bool
}

// Executable is anything with core execution logic driven by a Context.
type Executable interface {
	Execute(context Context)
}

// Command is an atomic, reusable unit of pipeline work.
type Command interface {
	Executable

	// GetName returns the command's unique name for logs and telemetry.
	GetName() string

	// GetInputParam returns the context key the command reads its primary
	// input from (defaults to CtxIn).
	GetInputParam() string

	// GetOutputParam returns the context key the command writes its primary
	// output to (defaults to CtxOut).
	GetOutputParam() string

	// IsExecutable reports whether the command's preconditions hold.
	IsExecutable(context Context) bool

	// GetTracer returns the command's OpenTelemetry tracer.
	GetTracer() trace.Tracer

	// GetMeter returns the command's OpenTelemetry meter.
	GetMeter() metric.Meter

	// GetSuccessCounter counts successful executions.
	GetSuccessCounter() metric.Int64Counter

	// GetErrorCounter counts failed executions.
	GetErrorCounter() metric.Int64Counter
}

// Chain is a Command composed of other Commands, executed in order. Chains
// nest, so a whole workflow can be attached wherever a Command fits.
type Chain interface {
	Command

	// ContinueOnFailure configures whether later commands still run after
	// an earlier one records an error. The pipeline default is false.
	ContinueOnFailure(bool) Chain

	// AddCommand appends a command to the execution sequence.
	AddCommand(command Command) Chain
}
