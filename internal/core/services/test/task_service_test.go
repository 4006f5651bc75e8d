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

// Package services_test verifies the task lifecycle rules with a stub
// pipeline standing in for the real workflow: forward-only state
// transitions, idempotent polling, non-blocking submission, and the
// taxonomy errors for unknown and unfinished tasks.
package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaycherian/go-movie-review-agent/internal/core/model"
	"github.com/jaycherian/go-movie-review-agent/internal/core/services"
)

// stubRunner is a controllable pipeline: it blocks until released so tests
// can observe intermediate task states.
type stubRunner struct {
	mu      sync.Mutex
	release chan struct{}
	result  *model.ReviewResult
	err     error
	runs    int
}

func newStubRunner() *stubRunner {
	return &stubRunner{
		release: make(chan struct{}),
		result: &model.ReviewResult{
			Title:          "The Shawshank Redemption",
			Text:           "A stirring meditation on hope.",
			CompositeScore: 9.2,
			WordCount:      6,
			Polarity:       model.PolarityPositive,
		},
	}
}

func (s *stubRunner) GenerateReview(ctx context.Context, _ *model.ReviewRequest) (*model.ReviewResult, error) {
	s.mu.Lock()
	s.runs++
	s.mu.Unlock()

	select {
	case <-s.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

// waitForState polls until the task reaches want or the deadline expires.
// Polling is the lifecycle's read path, so the test drives it the same way
// a client would.
func waitForState(t *testing.T, svc *services.TaskService, taskID string, want model.TaskState) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		state, err := svc.Status(taskID)
		require.NoError(t, err)
		if state == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("task %s never reached state %s", taskID, want)
}

func TestTaskLifecycleDone(t *testing.T) {
	runner := newStubRunner()
	svc := services.NewTaskService(runner, nil, 2, 8)
	svc.Start(context.Background())
	defer svc.Close()

	taskID, err := svc.Submit(model.ReviewRequest{Title: "The Shawshank Redemption"})
	require.NoError(t, err)
	require.NotEmpty(t, taskID)

	waitForState(t, svc, taskID, model.TaskRunning)

	// Not terminal yet: the result endpoint must say so, and must not
	// change the state by being asked.
	_, err = svc.Result(taskID)
	assert.Equal(t, model.KindNotReady, model.KindOf(err))
	state, err := svc.Status(taskID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskRunning, state)

	close(runner.release)
	waitForState(t, svc, taskID, model.TaskDone)

	result, err := svc.Result(taskID)
	require.NoError(t, err)
	assert.Equal(t, "The Shawshank Redemption", result.Title)

	// Terminal state is frozen; repeated reads answer identically.
	for i := 0; i < 3; i++ {
		state, err := svc.Status(taskID)
		require.NoError(t, err)
		assert.Equal(t, model.TaskDone, state)
	}
}

func TestTaskLifecycleFailed(t *testing.T) {
	runner := newStubRunner()
	runner.err = model.NotFound("tmdb.search_movie", "no movie found for \"Zzyzx\"")
	close(runner.release)

	svc := services.NewTaskService(runner, nil, 1, 4)
	svc.Start(context.Background())
	defer svc.Close()

	taskID, err := svc.Submit(model.ReviewRequest{Title: "Zzyzx"})
	require.NoError(t, err)

	waitForState(t, svc, taskID, model.TaskFailed)

	// The failed task surfaces the originating pipeline error, preserving
	// its taxonomy kind.
	_, err = svc.Result(taskID)
	require.Error(t, err)
	assert.Equal(t, model.KindNotFound, model.KindOf(err))
}

func TestSubmitRejectsInvalidRequest(t *testing.T) {
	runner := newStubRunner()
	svc := services.NewTaskService(runner, nil, 1, 4)
	svc.Start(context.Background())
	defer svc.Close()

	_, err := svc.Submit(model.ReviewRequest{})
	require.Error(t, err)
	assert.Equal(t, model.KindValidation, model.KindOf(err))

	// A rejected request never creates a task.
	assert.Equal(t, services.TaskStats{}, svc.Stats())
}

func TestUnknownTaskID(t *testing.T) {
	svc := services.NewTaskService(newStubRunner(), nil, 1, 4)
	svc.Start(context.Background())
	defer svc.Close()

	_, err := svc.Status("no-such-task")
	assert.Equal(t, model.KindTaskNotFound, model.KindOf(err))

	_, err = svc.Result("no-such-task")
	assert.Equal(t, model.KindTaskNotFound, model.KindOf(err))
}

func TestSubmitIsNonBlockingWithUniqueIDs(t *testing.T) {
	runner := newStubRunner() // Never released until the end: workers stay busy.
	svc := services.NewTaskService(runner, nil, 1, 2)
	svc.Start(context.Background())
	defer svc.Close()

	// Far more submissions than worker slots plus queue capacity. Every
	// Submit must still return promptly with a distinct id.
	seen := make(map[string]bool)
	start := time.Now()
	for i := 0; i < 20; i++ {
		taskID, err := svc.Submit(model.ReviewRequest{Title: "Heat"})
		require.NoError(t, err)
		require.False(t, seen[taskID], "duplicate task id %s", taskID)
		seen[taskID] = true
	}
	assert.Less(t, time.Since(start), 2*time.Second)

	stats := svc.Stats()
	assert.Equal(t, 20, stats.Pending+stats.Running+stats.Done+stats.Failed)

	close(runner.release)
	for taskID := range seen {
		waitForState(t, svc, taskID, model.TaskDone)
	}
}
