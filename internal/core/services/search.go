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
// between the HTTP API and the pipeline. This file implements the search
// service, the synchronous metadata surface: title lookup and the current
// popularity chart, both answered directly from the metadata provider with
// no task involved.
package services

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/jaycherian/go-movie-review-agent/internal/cloud"
	"github.com/jaycherian/go-movie-review-agent/internal/core/model"
)

// SearchService answers synchronous metadata queries.
type SearchService struct {
	tmdbClient *cloud.TMDBClient
	tracer     trace.Tracer
}

// NewSearchService is the constructor for the SearchService.
func NewSearchService(tmdbClient *cloud.TMDBClient) *SearchService {
	return &SearchService{
		tmdbClient: tmdbClient,
		tracer:     otel.Tracer("search-service"),
	}
}

// Search resolves a title (optionally disambiguated by year) to its full
// metadata record.
func (s *SearchService) Search(ctx context.Context, title string, year int) (*model.MovieMetadata, error) {
	spanCtx, span := s.tracer.Start(ctx, "search_movie")
	defer span.End()
	return s.tmdbClient.SearchMovie(spanCtx, title, year)
}

// Popular returns one page of the provider's popularity chart.
func (s *SearchService) Popular(ctx context.Context, page int) ([]*model.MovieMetadata, error) {
	spanCtx, span := s.tracer.Start(ctx, "popular_movies")
	defer span.End()
	return s.tmdbClient.PopularMovies(spanCtx, page)
}
