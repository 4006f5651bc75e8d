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
// stage that harvests published review snippets for the resolved movie.
//
// Harvesting is best-effort: snippets enrich the sentiment analysis but the
// pipeline can produce a review without them (the sentiment stage falls
// back to the synopsis). A provider failure here is therefore logged and
// swallowed rather than recorded on the context, which would abort the
// chain.
package commands

import (
	"log/slog"

	"github.com/jaycherian/go-movie-review-agent/internal/cloud"
	"github.com/jaycherian/go-movie-review-agent/internal/core/cor"
	"github.com/jaycherian/go-movie-review-agent/internal/core/model"
)

// GetReviewSnippetsParameterName returns the context key for the harvested
// snippet slice.
func GetReviewSnippetsParameterName() string {
	return "__REVIEW_SNIPPETS__"
}

// ReviewHarvester fetches published review snippets for a movie, capped at
// a configured maximum.
type ReviewHarvester struct {
	cor.BaseCommand
	tmdbClient  *cloud.TMDBClient
	maxSnippets int
}

// NewReviewHarvester is the constructor for the ReviewHarvester command.
// maxSnippets bounds how many snippets proceed to sentiment extraction;
// values below one fall back to a default of eight.
func NewReviewHarvester(name string, tmdbClient *cloud.TMDBClient, maxSnippets int) *ReviewHarvester {
	if maxSnippets < 1 {
		maxSnippets = 8
	}
	return &ReviewHarvester{
		BaseCommand: *cor.NewBaseCommand(name),
		tmdbClient:  tmdbClient,
		maxSnippets: maxSnippets,
	}
}

// Execute fetches the snippets and passes them to the sentiment stage. The
// metadata record stays reachable via its named key.
func (c *ReviewHarvester) Execute(context cor.Context) {
	metadata := context.Get(c.GetInputParam()).(*model.MovieMetadata)

	snippets, err := c.tmdbClient.MovieReviews(context.GetContext(), metadata.ID)
	if err != nil {
		// Best-effort stage: continue with no snippets.
		c.GetErrorCounter().Add(context.GetContext(), 1)
		slog.Warn("review harvest failed, continuing with synopsis only",
			"movie_id", metadata.ID,
			"error", err.Error())
		snippets = nil
	} else {
		c.GetSuccessCounter().Add(context.GetContext(), 1)
	}

	if len(snippets) > c.maxSnippets {
		snippets = snippets[:c.maxSnippets]
	}

	context.Add(GetReviewSnippetsParameterName(), snippets)
	context.Add(c.GetOutputParam(), snippets)
}
