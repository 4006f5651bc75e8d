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

package cloud_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaycherian/go-movie-review-agent/internal/cloud"
	"github.com/jaycherian/go-movie-review-agent/internal/core/model"
)

func TestSearchMovieFieldMapping(t *testing.T) {
	meta, err := cloudClients.TMDBClient.SearchMovie(ctx, "The Shawshank Redemption", 1994)
	require.NoError(t, err)

	assert.Equal(t, 278, meta.ID)
	assert.Equal(t, "The Shawshank Redemption", meta.Title)
	assert.Equal(t, 1994, meta.Year)
	assert.NotEmpty(t, meta.Synopsis)
	assert.InDelta(t, 8.7, meta.ExternalRating, 1e-9)
	assert.Equal(t, 26000, meta.VoteCount)
	assert.InDelta(t, 88.5, meta.Popularity, 1e-9)
	assert.Equal(t, 142, meta.RuntimeMinutes)
	assert.Equal(t, []string{"Drama", "Crime"}, meta.Genres)
	assert.Equal(t, []string{"prison", "friendship", "hope"}, meta.Keywords)

	// Cast carries both halves of the credit; crew is reduced to directors.
	require.Len(t, meta.Cast, 2)
	assert.Equal(t, "Tim Robbins", meta.Cast[0].ActorName)
	assert.Equal(t, "Andy Dufresne", meta.Cast[0].CharacterName)
	assert.Equal(t, []string{"Frank Darabont"}, meta.Directors)

	// Poster paths are resolved against the configured image base URL.
	assert.True(t, strings.HasPrefix(meta.PosterURL, "https://image.tmdb.org/t/p/w500/"))
}

func TestSearchMovieNotFound(t *testing.T) {
	_, err := cloudClients.TMDBClient.SearchMovie(ctx, "Zzyzx Road to Nowhere", 0)
	require.Error(t, err)
	assert.Equal(t, model.KindNotFound, model.KindOf(err))
}

func TestMovieReviews(t *testing.T) {
	snippets, err := cloudClients.TMDBClient.MovieReviews(ctx, 278)
	require.NoError(t, err)
	require.Len(t, snippets, 2)
	assert.Equal(t, "critic-one", snippets[0].Author)
	assert.NotEmpty(t, snippets[0].Content)
}

func TestPopularMovies(t *testing.T) {
	movies, err := cloudClients.TMDBClient.PopularMovies(ctx, 1)
	require.NoError(t, err)
	require.Len(t, movies, 2)
	assert.Equal(t, "The Shawshank Redemption", movies[0].Title)
	assert.Equal(t, 1994, movies[0].Year)
	assert.Equal(t, "The Godfather", movies[1].Title)
	assert.Equal(t, 1972, movies[1].Year)
}

func TestTMDBErrorTranslation(t *testing.T) {
	// A provider outage must surface as an upstream error, and the provider's
	// response body must never be echoed into the error text.
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"status_message": "internal provider detail"}`))
	}))
	defer broken.Close()

	tmdbConfig := config.TMDB
	tmdbConfig.BaseURL = broken.URL
	client := cloud.NewTMDBClient("test-key", tmdbConfig)

	_, err := client.SearchMovie(ctx, "Heat", 0)
	require.Error(t, err)
	assert.Equal(t, model.KindUpstream, model.KindOf(err))
	assert.False(t, model.IsTimeout(err))
	assert.NotContains(t, err.Error(), "internal provider detail")
	assert.NotContains(t, err.Error(), "test-key")
}

func TestTMDBGatewayTimeoutSetsTimeoutFlag(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGatewayTimeout)
	}))
	defer slow.Close()

	tmdbConfig := config.TMDB
	tmdbConfig.BaseURL = slow.URL
	client := cloud.NewTMDBClient("test-key", tmdbConfig)

	_, err := client.SearchMovie(ctx, "Heat", 0)
	require.Error(t, err)
	assert.Equal(t, model.KindUpstream, model.KindOf(err))
	assert.True(t, model.IsTimeout(err))
}

func TestTMDBUndecodableBodyIsParseError(t *testing.T) {
	garbled := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>not json</html>"))
	}))
	defer garbled.Close()

	tmdbConfig := config.TMDB
	tmdbConfig.BaseURL = garbled.URL
	client := cloud.NewTMDBClient("test-key", tmdbConfig)

	_, err := client.SearchMovie(ctx, "Heat", 0)
	require.Error(t, err)
	assert.Equal(t, model.KindParse, model.KindOf(err))
}
