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

package services_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaycherian/go-movie-review-agent/internal/core/model"
	"github.com/jaycherian/go-movie-review-agent/internal/core/services"
)

func newResult(title string, generatedAt time.Time) *model.ReviewResult {
	return &model.ReviewResult{
		Title:          title,
		Year:           1994,
		Text:           "A stirring meditation on hope and friendship.",
		CompositeScore: 9.2,
		WordCount:      7,
		ReviewStyle:    model.StyleProfessional,
		GeneratedAt:    generatedAt,
		Polarity:       model.PolarityPositive,
		ThemeList:      []string{"hope", "friendship"},
		ReviewCount:    2,
	}
}

func TestHistoryRoundTrip(t *testing.T) {
	history, err := services.NewHistoryService(":memory:")
	require.NoError(t, err)
	defer func() { _ = history.Close() }()

	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, history.Save(ctx, "task-1", newResult("The Shawshank Redemption", now)))

	entries, err := history.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	entry := entries[0]
	assert.Equal(t, "task-1", entry.TaskID)
	assert.Equal(t, "The Shawshank Redemption", entry.Title)
	assert.Equal(t, 1994, entry.Year)
	assert.Equal(t, model.StyleProfessional, entry.ReviewStyle)
	assert.Equal(t, model.PolarityPositive, entry.Polarity)
	assert.InDelta(t, 9.2, entry.CompositeScore, 1e-9)
	assert.Equal(t, []string{"hope", "friendship"}, entry.Themes)
	assert.Equal(t, 2, entry.ReviewCount)
	assert.WithinDuration(t, now, entry.GeneratedAt, time.Second)
}

func TestHistoryRecentOrderAndLimit(t *testing.T) {
	history, err := services.NewHistoryService(":memory:")
	require.NoError(t, err)
	defer func() { _ = history.Close() }()

	ctx := context.Background()
	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		title := fmt.Sprintf("Movie %d", i)
		require.NoError(t, history.Save(ctx, fmt.Sprintf("task-%d", i), newResult(title, base.Add(time.Duration(i)*time.Minute))))
	}

	entries, err := history.Recent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	// Most recent first.
	assert.Equal(t, "Movie 4", entries[0].Title)
	assert.Equal(t, "Movie 3", entries[1].Title)
	assert.Equal(t, "Movie 2", entries[2].Title)
}

func TestHistoryRecentOrdersSubSecondTimestamps(t *testing.T) {
	history, err := services.NewHistoryService(":memory:")
	require.NoError(t, err)
	defer func() { _ = history.Close() }()

	ctx := context.Background()
	// A whole-second timestamp and a fractionally later one. Lexicographic
	// text ordering would put the whole-second row first; numeric ordering
	// must not.
	older := time.Date(2024, 6, 1, 12, 0, 5, 0, time.UTC)
	newer := older.Add(500 * time.Millisecond)

	require.NoError(t, history.Save(ctx, "task-older", newResult("Older Review", older)))
	require.NoError(t, history.Save(ctx, "task-newer", newResult("Newer Review", newer)))

	entries, err := history.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "Newer Review", entries[0].Title)
	assert.Equal(t, "Older Review", entries[1].Title)
	assert.Equal(t, newer, entries[0].GeneratedAt)
	assert.Equal(t, older, entries[1].GeneratedAt)
}

func TestHistoryEmpty(t *testing.T) {
	history, err := services.NewHistoryService(":memory:")
	require.NoError(t, err)
	defer func() { _ = history.Close() }()

	entries, err := history.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
