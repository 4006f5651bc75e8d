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

// Package services provides the long-lived application services sitting
// between the HTTP API and the pipeline. This file implements the task
// service, the owner of the asynchronous task lifecycle.
//
// Lifecycle rules enforced here:
//   - States move strictly forward: Pending -> Running -> {Done | Failed}.
//     Terminal tasks are frozen; nothing mutates them afterwards.
//   - Submission is non-blocking. A full worker queue parks the handoff on
//     a goroutine instead of stalling the submitting HTTP handler.
//   - Each task is executed by exactly one pool worker, which is the sole
//     mutator of that task after submission.
//   - Polling any task id is idempotent and never changes state.
package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/jaycherian/go-movie-review-agent/internal/core/cor"
	"github.com/jaycherian/go-movie-review-agent/internal/core/model"
)

// Runner executes the review pipeline for one request. The task service
// depends on this interface rather than the workflow type so tests can
// substitute a stub pipeline.
type Runner interface {
	GenerateReview(ctx context.Context, request *model.ReviewRequest) (*model.ReviewResult, error)
}

// RunnerFunc adapts a plain function to the Runner interface.
type RunnerFunc func(ctx context.Context, request *model.ReviewRequest) (*model.ReviewResult, error)

// GenerateReview calls f.
func (f RunnerFunc) GenerateReview(ctx context.Context, request *model.ReviewRequest) (*model.ReviewResult, error) {
	return f(ctx, request)
}

// TaskStats is a point-in-time census of the task table.
type TaskStats struct {
	Pending int `json:"pending"`
	Running int `json:"running"`
	Done    int `json:"done"`
	Failed  int `json:"failed"`
}

// TaskService owns the task table and the worker pool that drains it.
type TaskService struct {
	runner  Runner
	history *HistoryService // Optional archive for completed reviews; nil disables it.
	workers int
	jobs    chan string

	mu    sync.RWMutex
	tasks map[string]*model.Task

	rootCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	submitCounter metric.Int64Counter
	doneCounter   metric.Int64Counter
	failedCounter metric.Int64Counter
}

// NewTaskService builds a task service with the given pool size and queue
// capacity. Start must be called before submissions are accepted.
func NewTaskService(runner Runner, history *HistoryService, workers int, backlog int) *TaskService {
	if workers < 1 {
		workers = 1
	}
	if backlog < 1 {
		backlog = 16
	}

	meter := otel.Meter(cor.MeterNamespace)
	submitCounter, _ := meter.Int64Counter("tasks.counter.submitted")
	doneCounter, _ := meter.Int64Counter("tasks.counter.done")
	failedCounter, _ := meter.Int64Counter("tasks.counter.failed")

	return &TaskService{
		runner:        runner,
		history:       history,
		workers:       workers,
		jobs:          make(chan string, backlog),
		tasks:         make(map[string]*model.Task),
		submitCounter: submitCounter,
		doneCounter:   doneCounter,
		failedCounter: failedCounter,
	}
}

// Start launches the worker pool. The pool lives until Close is called or
// ctx is cancelled.
func (s *TaskService) Start(ctx context.Context) {
	s.rootCtx, s.cancel = context.WithCancel(ctx)
	for w := 1; w <= s.workers; w++ {
		s.wg.Add(1)
		go s.worker(w)
	}
}

// Close stops accepting work, cancels in-flight pipelines, and waits for
// the workers to exit.
func (s *TaskService) Close() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

// Submit validates the request, registers a pending task, and queues it for
// execution. It returns the task id immediately; a validation failure is
// the only synchronous error. Start must have been called first.
func (s *TaskService) Submit(request model.ReviewRequest) (string, error) {
	if s.rootCtx == nil {
		panic("TaskService.Submit called before Start")
	}
	normalized := request.Normalize()
	if err := normalized.Validate(); err != nil {
		return "", err
	}

	task := &model.Task{
		ID:          uuid.New().String(),
		State:       model.TaskPending,
		Request:     normalized,
		SubmittedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.tasks[task.ID] = task
	s.mu.Unlock()

	s.submitCounter.Add(s.rootCtx, 1)

	// Hand off without blocking the caller: when the queue is full the send
	// parks on a goroutine and the task simply stays pending longer.
	select {
	case s.jobs <- task.ID:
	default:
		go func() {
			select {
			case s.jobs <- task.ID:
			case <-s.rootCtx.Done():
			}
		}()
	}

	return task.ID, nil
}

// Status returns the current lifecycle state of a task.
func (s *TaskService) Status(taskID string) (model.TaskState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.tasks[taskID]
	if !ok {
		return "", model.TaskNotFound(taskID)
	}
	return task.State, nil
}

// Result returns the terminal outcome of a task: the review for a done
// task, the originating pipeline error for a failed one, a not-ready error
// while the task is still pending or running.
func (s *TaskService) Result(taskID string) (*model.ReviewResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.tasks[taskID]
	if !ok {
		return nil, model.TaskNotFound(taskID)
	}
	switch task.State {
	case model.TaskDone:
		return task.Result, nil
	case model.TaskFailed:
		return nil, task.Err
	default:
		return nil, model.NotReady(taskID)
	}
}

// Stats counts the tasks in each lifecycle state.
func (s *TaskService) Stats() TaskStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stats TaskStats
	for _, task := range s.tasks {
		switch task.State {
		case model.TaskPending:
			stats.Pending++
		case model.TaskRunning:
			stats.Running++
		case model.TaskDone:
			stats.Done++
		case model.TaskFailed:
			stats.Failed++
		}
	}
	return stats
}

// worker drains the queue until shutdown. The worker that dequeues a task
// is its sole mutator from that point on.
func (s *TaskService) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case <-s.rootCtx.Done():
			return
		case taskID := <-s.jobs:
			s.run(id, taskID)
		}
	}
}

// run executes one task through the pipeline and records its terminal
// state.
func (s *TaskService) run(workerID int, taskID string) {
	s.mu.Lock()
	task, ok := s.tasks[taskID]
	if !ok || task.State != model.TaskPending {
		s.mu.Unlock()
		return
	}
	task.State = model.TaskRunning
	request := task.Request
	s.mu.Unlock()

	slog.Info("task started", "task_id", taskID, "worker", workerID, "title", request.Title)

	result, err := s.runner.GenerateReview(s.rootCtx, &request)

	s.mu.Lock()
	finished := time.Now().UTC()
	if err != nil {
		task.State = model.TaskFailed
		task.Err = err
	} else {
		task.State = model.TaskDone
		task.Result = result
	}
	task.FinishedAt = finished
	s.mu.Unlock()

	if err != nil {
		s.failedCounter.Add(s.rootCtx, 1)
		slog.Warn("task failed", "task_id", taskID, "error", err.Error())
		return
	}

	s.doneCounter.Add(s.rootCtx, 1)
	slog.Info("task done", "task_id", taskID, "score", result.CompositeScore, "words", result.WordCount)

	// Archiving is best-effort; losing a history row never fails the task.
	if s.history != nil {
		if err := s.history.Save(s.rootCtx, taskID, result); err != nil {
			slog.Warn("failed to archive review", "task_id", taskID, "error", err.Error())
		}
	}
}
