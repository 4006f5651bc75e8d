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

package model

import "time"

// TaskState is the lifecycle state of one asynchronous review-generation
// request. Transitions move strictly forward: Pending -> Running ->
// {Done | Failed}. A terminal task is never mutated again.
type TaskState string

const (
	TaskPending TaskState = "pending"
	TaskRunning TaskState = "running"
	TaskDone    TaskState = "done"
	TaskFailed  TaskState = "failed"
)

// Terminal reports whether s is Done or Failed.
func (s TaskState) Terminal() bool {
	return s == TaskDone || s == TaskFailed
}

// Task tracks one review-generation request through the pipeline. Tasks are
// owned exclusively by the task service: created on submission, mutated only
// by the worker executing them, and frozen once terminal. Result is present
// only in state Done; Err only in state Failed.
type Task struct {
	ID          string
	State       TaskState
	Request     ReviewRequest
	Result      *ReviewResult
	Err         error
	SubmittedAt time.Time
	FinishedAt  time.Time
}
