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
// the review-generation pipeline. This file defines BaseContext, the
// default Context implementation: a property bag plus error collection for
// one workflow execution. A context belongs to exactly one task run and is
// never shared between tasks.
package cor

import (
	"context"
)

// BaseContext is the default Context implementation.
type BaseContext struct {
	data     map[string]interface{}
	errors   map[string]error
	firstErr error
	context  context.Context
}

// NewBaseContext returns an empty, ready-to-use context.
func NewBaseContext() Context {
	return &BaseContext{
		data:   make(map[string]interface{}),
		errors: make(map[string]error),
	}
}

// SetContext replaces the embedded Go context.
func (c *BaseContext) SetContext(ctx context.Context) {
	c.context = ctx
}

// GetContext returns the embedded Go context.
func (c *BaseContext) GetContext() context.Context {
	return c.context
}

// Add stores a key-value pair.
func (c *BaseContext) Add(key string, value interface{}) Context {
	c.data[key] = value
	return c
}

// Get returns the value stored under key, or nil.
func (c *BaseContext) Get(key string) interface{} {
	return c.data[key]
}

// Remove deletes the value stored under key.
func (c *BaseContext) Remove(key string) {
	delete(c.data, key)
}

// AddError records an error under the producing command's name. The first
// error recorded is retained separately so a failed task can expose the
// originating stage's error rather than an arbitrary map entry.
func (c *BaseContext) AddError(key string, err error) {
	if c.firstErr == nil {
		c.firstErr = err
	}
	c.errors[key] = err
}

// GetErrors returns all recorded errors keyed by command name.
func (c *BaseContext) GetErrors() map[string]error {
	return c.errors
}

// FirstError returns the earliest recorded error, or nil.
func (c *BaseContext) FirstError() error {
	return c.firstErr
}

// HasErrors reports whether any command recorded an error.
func (c *BaseContext) HasErrors() bool {
	return len(c.errors) > 0
}
