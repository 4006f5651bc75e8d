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
// between the HTTP API and the pipeline. This file implements batch review
// submission: a batch fans its movies out as ordinary tasks through the
// task service, and its result aggregates the per-movie reviews plus an
// optional cross-movie comparison.
//
// A batch adds no second lifecycle. Each movie is a regular task subject to
// the same worker pool, states, and polling; the batch record only remembers
// which task ids belong together and in what order.
package services

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jaycherian/go-movie-review-agent/internal/core/model"
)

// comparisonExcerptLen bounds how much of each review's prose the
// comparison quotes.
const comparisonExcerptLen = 200

// batchRecord ties the member task ids to the submission, in order.
type batchRecord struct {
	taskIDs    []string
	comparison bool
}

// BatchService registers batches of review tasks and assembles their
// combined results.
type BatchService struct {
	tasks *TaskService

	mu      sync.RWMutex
	batches map[string]*batchRecord
}

// NewBatchService builds a batch service on top of the task service.
func NewBatchService(tasks *TaskService) *BatchService {
	return &BatchService{
		tasks:   tasks,
		batches: make(map[string]*batchRecord),
	}
}

// Submit validates the whole batch, submits one task per movie, and returns
// the batch id with the member task ids in submission order. Validation
// covers every movie before any task is created, so a rejected batch leaves
// no tasks behind.
func (b *BatchService) Submit(request model.BatchReviewRequest) (string, []string, error) {
	if err := request.Validate(); err != nil {
		return "", nil, err
	}

	taskIDs := make([]string, 0, len(request.Movies))
	for _, movie := range request.Movies {
		taskID, err := b.tasks.Submit(movie)
		if err != nil {
			return "", nil, err
		}
		taskIDs = append(taskIDs, taskID)
	}

	record := &batchRecord{taskIDs: taskIDs, comparison: request.ComparisonMode}
	batchID := uuid.New().String()

	b.mu.Lock()
	b.batches[batchID] = record
	b.mu.Unlock()

	return batchID, taskIDs, nil
}

// Status reports the aggregate state of a batch: Failed as soon as any
// member task failed, Done when every member is done, Running while any
// member is in flight, Pending otherwise.
func (b *BatchService) Status(batchID string) (model.TaskState, error) {
	record, err := b.lookup(batchID)
	if err != nil {
		return "", err
	}

	done := 0
	running := false
	for _, taskID := range record.taskIDs {
		state, err := b.tasks.Status(taskID)
		if err != nil {
			return "", err
		}
		switch state {
		case model.TaskFailed:
			return model.TaskFailed, nil
		case model.TaskDone:
			done++
		case model.TaskRunning:
			running = true
		}
	}
	switch {
	case done == len(record.taskIDs):
		return model.TaskDone, nil
	case running || done > 0:
		return model.TaskRunning, nil
	}
	return model.TaskPending, nil
}

// Result assembles the batch outcome once every member task is terminal.
// Any member still pending or running answers not-ready; the first failed
// member surfaces its captured pipeline error, failing the batch the way a
// single bad stage fails a task. Reviews keep submission order.
func (b *BatchService) Result(batchID string) (*model.BatchReviewResult, error) {
	record, err := b.lookup(batchID)
	if err != nil {
		return nil, err
	}

	reviews := make([]*model.ReviewResult, 0, len(record.taskIDs))
	for _, taskID := range record.taskIDs {
		result, err := b.tasks.Result(taskID)
		if err != nil {
			return nil, err
		}
		reviews = append(reviews, result)
	}

	batch := &model.BatchReviewResult{
		Reviews:     reviews,
		GeneratedAt: time.Now().UTC(),
		TotalMovies: len(reviews),
	}
	if record.comparison && len(reviews) > 1 {
		batch.ComparisonAnalysis = comparisonAnalysis(reviews)
	}
	return batch, nil
}

func (b *BatchService) lookup(batchID string) (*batchRecord, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	record, ok := b.batches[batchID]
	if !ok {
		return nil, model.TaskNotFound(batchID)
	}
	return record, nil
}

// comparisonAnalysis renders the cross-movie comparison: the average
// composite score, the strongest and weakest titles with a short excerpt of
// each review, the score gap, and an overall quality tier.
func comparisonAnalysis(reviews []*model.ReviewResult) string {
	if len(reviews) == 0 {
		return ""
	}

	sum := 0.0
	best, worst := reviews[0], reviews[0]
	for _, review := range reviews {
		sum += review.CompositeScore
		if review.CompositeScore > best.CompositeScore {
			best = review
		}
		if review.CompositeScore < worst.CompositeScore {
			worst = review
		}
	}
	average := sum / float64(len(reviews))

	tier := "low"
	switch {
	case average >= 7:
		tier = "high"
	case average >= 5:
		tier = "moderate"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Compared %d movies with an average composite score of %.1f/10.\n\n", len(reviews), average)
	fmt.Fprintf(&sb, "Top pick: %q (%.1f/10). %s\n\n", best.Title, best.CompositeScore, excerpt(best.Text))
	fmt.Fprintf(&sb, "Weakest of the set: %q (%.1f/10). %s\n\n", worst.Title, worst.CompositeScore, excerpt(worst.Text))
	fmt.Fprintf(&sb, "The top pick scores %.1f points above the weakest; overall quality of the set is %s.", best.CompositeScore-worst.CompositeScore, tier)
	return sb.String()
}

// excerpt truncates review prose for the comparison text.
func excerpt(text string) string {
	text = strings.TrimSpace(text)
	if len(text) <= comparisonExcerptLen {
		return text
	}
	return text[:comparisonExcerptLen] + "..."
}
