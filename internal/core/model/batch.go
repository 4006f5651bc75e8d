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
// This file holds the batch-review objects: a request carrying several
// movies at once and the combined result with an optional cross-movie
// comparison.
package model

import (
	"errors"
	"fmt"
	"time"
)

// MaxBatchMovies caps how many movies one batch may carry, bounding the
// outbound quota a single request can consume.
const MaxBatchMovies = 10

// BatchReviewRequest asks for reviews of several movies in one submission.
// Every movie runs as its own independent task; ComparisonMode additionally
// requests a cross-movie comparison once all of them finish.
type BatchReviewRequest struct {
	Movies         []ReviewRequest `json:"movies"`
	ComparisonMode bool            `json:"comparison_mode,omitempty"`
}

// Validate checks the batch bounds and every contained movie request. All
// movies are validated up front so a batch is accepted or rejected as a
// whole, never partially submitted.
func (b BatchReviewRequest) Validate() error {
	if len(b.Movies) == 0 {
		return Validation("movies must contain at least one entry")
	}
	if len(b.Movies) > MaxBatchMovies {
		return Validation(fmt.Sprintf("movies must contain at most %d entries", MaxBatchMovies))
	}
	for i, movie := range b.Movies {
		if err := movie.Normalize().Validate(); err != nil {
			var appErr *Error
			if errors.As(err, &appErr) {
				return Validation(fmt.Sprintf("movies[%d]: %s", i, appErr.Message))
			}
			return Validation(fmt.Sprintf("movies[%d] is invalid", i))
		}
	}
	return nil
}

// BatchReviewResult is the terminal artifact of a completed batch: one
// review per movie in submission order, plus the comparison text when it
// was requested and the batch holds more than one movie.
type BatchReviewResult struct {
	Reviews            []*ReviewResult `json:"reviews"`
	ComparisonAnalysis string          `json:"comparison_analysis,omitempty"`
	GeneratedAt        time.Time       `json:"generated_at"`
	TotalMovies        int             `json:"total_movies"`
}
