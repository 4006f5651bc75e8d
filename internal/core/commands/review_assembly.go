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

// Package commands provides the concrete implementations of the Chain of
// Responsibility (COR) pattern's Command interface. This file defines the
// final pipeline stage, which packages the generated prose into the
// ReviewResult artifact.
//
// Everything here is deterministic: the composite score is a pure function
// of the metadata and the merged sentiment, never a number asked of the
// model. The same inputs always produce the same score regardless of what
// prose the model generated.
package commands

import (
	"time"

	"github.com/jaycherian/go-movie-review-agent/internal/core/cor"
	"github.com/jaycherian/go-movie-review-agent/internal/core/model"
)

// GetReviewResultParameterName returns the context key for the terminal
// review result.
func GetReviewResultParameterName() string {
	return "__REVIEW_RESULT__"
}

// ReviewAssembly builds the ReviewResult from the upstream stage outputs.
type ReviewAssembly struct {
	cor.BaseCommand
	weights model.ScoreWeights
	sources []string
}

// NewReviewAssembly is the constructor for the ReviewAssembly command.
// sources names the upstream services that contributed to the result.
func NewReviewAssembly(name string, weights model.ScoreWeights, sources []string) *ReviewAssembly {
	if weights == (model.ScoreWeights{}) {
		weights = model.DefaultScoreWeights
	}
	return &ReviewAssembly{
		BaseCommand: *cor.NewBaseCommand(name),
		weights:     weights,
		sources:     sources,
	}
}

// IsExecutable holds when the prose, metadata, sentiment, and request are
// all present.
func (c *ReviewAssembly) IsExecutable(context cor.Context) bool {
	return context != nil &&
		context.GetContext() != nil &&
		context.Get(c.GetInputParam()) != nil &&
		context.Get(GetMovieMetadataParameterName()) != nil &&
		context.Get(GetSentimentParameterName()) != nil &&
		context.Get(GetReviewRequestParameterName()) != nil
}

// Execute assembles and publishes the terminal result.
func (c *ReviewAssembly) Execute(context cor.Context) {
	reviewText := context.Get(c.GetInputParam()).(string)
	metadata := context.Get(GetMovieMetadataParameterName()).(*model.MovieMetadata)
	sentiment := context.Get(GetSentimentParameterName()).(*model.SentimentResult)
	request := context.Get(GetReviewRequestParameterName()).(*model.ReviewRequest)

	reviewCount := 0
	if count, ok := context.Get(GetSnippetCountParameterName()).(int); ok {
		reviewCount = count
	}

	result := &model.ReviewResult{
		Title:          metadata.Title,
		Year:           metadata.Year,
		Text:           reviewText,
		CompositeScore: model.CompositeScore(c.weights, metadata, sentiment),
		WordCount:      model.CountWords(reviewText),
		Sources:        c.sources,
		ReviewStyle:    request.ReviewStyle,
		GeneratedAt:    time.Now().UTC(),
		Polarity:       sentiment.Polarity,
		ThemeList:      sentiment.Themes,
		ReviewCount:    reviewCount,
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(GetReviewResultParameterName(), result)
	context.Add(c.GetOutputParam(), result)
}
