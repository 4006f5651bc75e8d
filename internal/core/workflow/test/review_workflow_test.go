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

package workflow_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaycherian/go-movie-review-agent/internal/core/model"
	"github.com/jaycherian/go-movie-review-agent/internal/core/services"
	"github.com/jaycherian/go-movie-review-agent/internal/core/workflow"
	test "github.com/jaycherian/go-movie-review-agent/internal/testutil"
)

func newWorkflow() *workflow.ReviewWorkflow {
	return workflow.NewReviewWorkflow(config, cloudClients, "analyst", "reviewer")
}

// TestGenerateReviewEndToEnd drives the whole pipeline against the fakes:
// metadata lookup, snippet harvesting, parallel sentiment classification,
// the merge, prose composition, and result assembly.
func TestGenerateReviewEndToEnd(t *testing.T) {
	request := model.ReviewRequest{
		Title: "The Shawshank Redemption",
		Year:  1994,
	}.Normalize()

	result, err := newWorkflow().GenerateReview(ctx, &request)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, "The Shawshank Redemption", result.Title)
	assert.Equal(t, 1994, result.Year)
	assert.Equal(t, model.StyleProfessional, result.ReviewStyle)

	// The fake classifies every snippet as positive with hope/friendship
	// themes, so the merge is fully predictable.
	assert.Equal(t, model.PolarityPositive, result.Polarity)
	assert.Contains(t, result.ThemeList, "hope")
	assert.Contains(t, result.ThemeList, "friendship")

	// 0.6*8.7 (rating) + 0.2*10 (positive) + 0.2*10 (popularity clamped).
	assert.InDelta(t, 9.22, result.CompositeScore, 1e-9)

	assert.NotEmpty(t, result.Text)
	assert.Equal(t, model.CountWords(result.Text), result.WordCount)
	assert.Greater(t, result.WordCount, 0)
	assert.LessOrEqual(t, result.WordCount, request.MaxLength)

	// Two published snippets were harvested; the synopsis fallback must not
	// have inflated the count.
	assert.Equal(t, 2, result.ReviewCount)
	assert.Equal(t, []string{"tmdb", "kimi"}, result.Sources)
	assert.WithinDuration(t, time.Now().UTC(), result.GeneratedAt, time.Minute)
}

// TestGenerateReviewUnknownTitle verifies the short-circuit: when the
// metadata lookup misses, the pipeline stops with a not-found error before
// spending a single model call.
func TestGenerateReviewUnknownTitle(t *testing.T) {
	// Fresh fakes so the call count belongs to this test alone.
	localTMDB := test.NewFakeTMDB()
	defer localTMDB.Close()
	localKimi := test.NewFakeKimi()
	defer localKimi.Close()
	localClients := test.NewTestClients(config, localTMDB, localKimi)

	request := model.ReviewRequest{Title: "Zzyzx Road to Nowhere"}.Normalize()
	pipeline := workflow.NewReviewWorkflow(config, localClients, "analyst", "reviewer")

	result, err := pipeline.GenerateReview(ctx, &request)
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Equal(t, model.KindNotFound, model.KindOf(err))
	assert.Equal(t, int64(0), localKimi.Calls())
}

// TestWorkflowThroughTaskService runs the real pipeline under the task
// lifecycle: concurrent submissions for two different movies, polling to
// the terminal state, and results retrieved by id. Each task's result must
// correspond only to its own submitted title, so any state bleeding between
// concurrently running pipelines surfaces here.
func TestWorkflowThroughTaskService(t *testing.T) {
	svc := services.NewTaskService(newWorkflow(), nil, config.Application.ThreadPoolSize, config.Application.TaskBacklog)
	svc.Start(ctx)
	defer svc.Close()

	movies := []struct {
		title string
		year  int
	}{
		{"The Shawshank Redemption", 1994},
		{"The Godfather", 1972},
		{"The Shawshank Redemption", 1994},
		{"The Godfather", 1972},
	}
	expected := make(map[string]int, len(movies)) // task id -> movies index
	for i, movie := range movies {
		taskID, err := svc.Submit(model.ReviewRequest{Title: movie.title, Year: movie.year, ReviewStyle: model.StyleCasual})
		require.NoError(t, err)
		expected[taskID] = i
	}

	deadline := time.Now().Add(10 * time.Second)
	for taskID, i := range expected {
		for {
			state, err := svc.Status(taskID)
			require.NoError(t, err)
			if state == model.TaskDone {
				break
			}
			require.NotEqual(t, model.TaskFailed, state)
			require.True(t, time.Now().Before(deadline), "task %s did not finish in time", taskID)
			time.Sleep(5 * time.Millisecond)
		}

		result, err := svc.Result(taskID)
		require.NoError(t, err)
		assert.Equal(t, movies[i].title, result.Title)
		assert.Equal(t, movies[i].year, result.Year)
		assert.Equal(t, model.StyleCasual, result.ReviewStyle)
	}

	stats := svc.Stats()
	assert.Equal(t, len(movies), stats.Done)
}
