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
// first pipeline stage: resolving the caller's title (and optional year) to
// a full metadata record via the metadata provider.
//
// A title that matches nothing is a terminal condition. The not-found error
// recorded here short-circuits the chain, so no LLM call is ever made for
// an unknown movie.
package commands

import (
	"github.com/jaycherian/go-movie-review-agent/internal/cloud"
	"github.com/jaycherian/go-movie-review-agent/internal/core/cor"
	"github.com/jaycherian/go-movie-review-agent/internal/core/model"
)

// GetReviewRequestParameterName returns the context key under which the
// workflow seeds the caller's request, so later stages can reach it without
// relying on the chain's input/output piping.
func GetReviewRequestParameterName() string {
	return "__REVIEW_REQUEST__"
}

// GetMovieMetadataParameterName returns the context key for the resolved
// metadata record.
func GetMovieMetadataParameterName() string {
	return "__MOVIE_METADATA__"
}

// MetadataLookup resolves a review request to a movie metadata record.
type MetadataLookup struct {
	cor.BaseCommand
	tmdbClient *cloud.TMDBClient
}

// NewMetadataLookup is the constructor for the MetadataLookup command.
func NewMetadataLookup(name string, tmdbClient *cloud.TMDBClient) *MetadataLookup {
	return &MetadataLookup{
		BaseCommand: *cor.NewBaseCommand(name),
		tmdbClient:  tmdbClient,
	}
}

// Execute performs the title lookup and stores the resulting metadata both
// under its named key and as the chain output for the next stage.
func (c *MetadataLookup) Execute(context cor.Context) {
	request := context.Get(c.GetInputParam()).(*model.ReviewRequest)

	metadata, err := c.tmdbClient.SearchMovie(context.GetContext(), request.Title, request.Year)
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), err)
		return
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(GetMovieMetadataParameterName(), metadata)
	context.Add(c.GetOutputParam(), metadata)
}
