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

// Package cloud provides the configuration loader and the clients for the
// external services. This file implements TMDBClient, the client for The
// Movie Database REST API, which supplies movie metadata and published
// review snippets to the pipeline.
//
// The client normalizes the provider's wire format into the model types the
// rest of the service consumes, so no TMDB payload shape ever leaves this
// file. Lookups that match nothing return a not-found error rather than an
// empty record; the pipeline treats that as a terminal condition.
package cloud

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jaycherian/go-movie-review-agent/internal/core/model"
)

// TMDBClient calls The Movie Database API with one key and one language
// across all requests.
type TMDBClient struct {
	apiKey         string
	baseURL        string
	imageBaseURL   string
	language       string
	maxReviewPages int
	maxCastMembers int
	httpClient     *http.Client
}

// NewTMDBClient builds a client from the metadata-provider configuration.
func NewTMDBClient(apiKey string, cfg TMDBConfig) *TMDBClient {
	timeout := time.Duration(cfg.TimeoutInSeconds) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	maxReviewPages := cfg.MaxReviewPages
	if maxReviewPages < 1 {
		maxReviewPages = 1
	}
	maxCastMembers := cfg.MaxCastMembers
	if maxCastMembers < 1 {
		maxCastMembers = 10
	}
	return &TMDBClient{
		apiKey:         apiKey,
		baseURL:        strings.TrimSuffix(cfg.BaseURL, "/"),
		imageBaseURL:   strings.TrimSuffix(cfg.ImageBaseURL, "/"),
		language:       cfg.Language,
		maxReviewPages: maxReviewPages,
		maxCastMembers: maxCastMembers,
		httpClient:     &http.Client{Timeout: timeout},
	}
}

// Wire shapes for the subset of the TMDB API the service consumes.
type tmdbSearchPage struct {
	Results []struct {
		ID          int     `json:"id"`
		Title       string  `json:"title"`
		ReleaseDate string  `json:"release_date"`
		Popularity  float64 `json:"popularity"`
	} `json:"results"`
}

type tmdbMovieDetail struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	Overview    string  `json:"overview"`
	ReleaseDate string  `json:"release_date"`
	Runtime     int     `json:"runtime"`
	VoteAverage float64 `json:"vote_average"`
	VoteCount   int     `json:"vote_count"`
	Popularity  float64 `json:"popularity"`
	PosterPath  string  `json:"poster_path"`
	Genres      []struct {
		Name string `json:"name"`
	} `json:"genres"`
}

type tmdbCredits struct {
	Cast []struct {
		Name      string `json:"name"`
		Character string `json:"character"`
	} `json:"cast"`
	Crew []struct {
		Name string `json:"name"`
		Job  string `json:"job"`
	} `json:"crew"`
}

type tmdbKeywords struct {
	Keywords []struct {
		Name string `json:"name"`
	} `json:"keywords"`
}

type tmdbReviewPage struct {
	Page       int `json:"page"`
	TotalPages int `json:"total_pages"`
	Results    []struct {
		Author  string `json:"author"`
		Content string `json:"content"`
	} `json:"results"`
}

// SearchMovie resolves a title (optionally disambiguated by year) to a full
// normalized metadata record. It performs the search plus the detail,
// credits, and keyword lookups for the best match. A search with no results
// returns a not-found error.
func (t *TMDBClient) SearchMovie(ctx context.Context, title string, year int) (*model.MovieMetadata, error) {
	const op = "tmdb.search_movie"

	params := url.Values{}
	params.Set("query", title)
	if year > 0 {
		params.Set("year", strconv.Itoa(year))
	}

	var page tmdbSearchPage
	if err := t.getJSON(ctx, op, "/search/movie", params, &page); err != nil {
		return nil, err
	}
	if len(page.Results) == 0 {
		if year > 0 {
			return nil, model.NotFound(op, fmt.Sprintf("no movie found for %q (%d)", title, year))
		}
		return nil, model.NotFound(op, fmt.Sprintf("no movie found for %q", title))
	}

	// TMDB orders search results by relevance; the first hit is the match.
	movieID := page.Results[0].ID

	var detail tmdbMovieDetail
	if err := t.getJSON(ctx, op, fmt.Sprintf("/movie/%d", movieID), nil, &detail); err != nil {
		return nil, err
	}

	meta := &model.MovieMetadata{
		ID:             detail.ID,
		Title:          detail.Title,
		Year:           releaseYear(detail.ReleaseDate),
		Synopsis:       detail.Overview,
		ExternalRating: detail.VoteAverage,
		VoteCount:      detail.VoteCount,
		Popularity:     detail.Popularity,
		RuntimeMinutes: detail.Runtime,
		ReleaseDate:    detail.ReleaseDate,
	}
	for _, g := range detail.Genres {
		meta.Genres = append(meta.Genres, g.Name)
	}
	if detail.PosterPath != "" && t.imageBaseURL != "" {
		meta.PosterURL = t.imageBaseURL + detail.PosterPath
	}

	var credits tmdbCredits
	if err := t.getJSON(ctx, op, fmt.Sprintf("/movie/%d/credits", movieID), nil, &credits); err != nil {
		return nil, err
	}
	for i, c := range credits.Cast {
		if i >= t.maxCastMembers {
			break
		}
		meta.Cast = append(meta.Cast, &model.CastMember{CharacterName: c.Character, ActorName: c.Name})
	}
	for _, c := range credits.Crew {
		if c.Job == "Director" {
			meta.Directors = append(meta.Directors, c.Name)
		}
	}

	var keywords tmdbKeywords
	if err := t.getJSON(ctx, op, fmt.Sprintf("/movie/%d/keywords", movieID), nil, &keywords); err != nil {
		return nil, err
	}
	for _, k := range keywords.Keywords {
		meta.Keywords = append(meta.Keywords, k.Name)
	}

	return meta, nil
}

// MovieReviews fetches the published review snippets for a movie, walking
// result pages up to the configured bound. An empty result is not an error;
// the sentiment stage falls back to the synopsis.
func (t *TMDBClient) MovieReviews(ctx context.Context, movieID int) ([]*model.ReviewSnippet, error) {
	const op = "tmdb.movie_reviews"

	var snippets []*model.ReviewSnippet
	for pageNum := 1; pageNum <= t.maxReviewPages; pageNum++ {
		params := url.Values{}
		params.Set("page", strconv.Itoa(pageNum))

		var page tmdbReviewPage
		if err := t.getJSON(ctx, op, fmt.Sprintf("/movie/%d/reviews", movieID), params, &page); err != nil {
			return nil, err
		}
		for _, r := range page.Results {
			if strings.TrimSpace(r.Content) == "" {
				continue
			}
			snippets = append(snippets, &model.ReviewSnippet{Author: r.Author, Content: r.Content})
		}
		if page.Page >= page.TotalPages {
			break
		}
	}
	return snippets, nil
}

// PopularMovies returns one page of the provider's current popularity chart
// as normalized metadata records. The records carry only the fields present
// on the chart payload; callers needing full detail use SearchMovie.
func (t *TMDBClient) PopularMovies(ctx context.Context, pageNum int) ([]*model.MovieMetadata, error) {
	const op = "tmdb.popular_movies"

	if pageNum < 1 {
		pageNum = 1
	}
	params := url.Values{}
	params.Set("page", strconv.Itoa(pageNum))

	var page struct {
		Results []struct {
			ID          int     `json:"id"`
			Title       string  `json:"title"`
			Overview    string  `json:"overview"`
			ReleaseDate string  `json:"release_date"`
			VoteAverage float64 `json:"vote_average"`
			VoteCount   int     `json:"vote_count"`
			Popularity  float64 `json:"popularity"`
			PosterPath  string  `json:"poster_path"`
		} `json:"results"`
	}
	if err := t.getJSON(ctx, op, "/movie/popular", params, &page); err != nil {
		return nil, err
	}

	movies := make([]*model.MovieMetadata, 0, len(page.Results))
	for _, r := range page.Results {
		m := &model.MovieMetadata{
			ID:             r.ID,
			Title:          r.Title,
			Year:           releaseYear(r.ReleaseDate),
			Synopsis:       r.Overview,
			ExternalRating: r.VoteAverage,
			VoteCount:      r.VoteCount,
			Popularity:     r.Popularity,
			ReleaseDate:    r.ReleaseDate,
		}
		if r.PosterPath != "" && t.imageBaseURL != "" {
			m.PosterURL = t.imageBaseURL + r.PosterPath
		}
		movies = append(movies, m)
	}
	return movies, nil
}

// getJSON performs one authenticated GET against the provider and decodes
// the response into out. Failures are translated into the application
// error taxonomy: transport errors and non-2xx statuses become upstream
// errors (404 on a concrete resource becomes not-found), and an
// undecodable body becomes a parse error.
func (t *TMDBClient) getJSON(ctx context.Context, op string, path string, params url.Values, out interface{}) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", t.apiKey)
	if t.language != "" {
		params.Set("language", t.language)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return model.Upstream(op, err, false)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		// url.Error prints the full request URL, which carries the API key.
		return model.Upstream(op, stripURLError(err), isTimeout(err))
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return model.NotFound(op, fmt.Sprintf("metadata provider has no resource at %s", path))
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return model.Upstream(op,
			fmt.Errorf("metadata provider returned status %d", resp.StatusCode),
			resp.StatusCode == http.StatusGatewayTimeout)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return model.Parse(op, "undecodable metadata provider response", err)
	}
	return nil
}

// releaseYear extracts the year from an ISO "YYYY-MM-DD" release date,
// returning 0 when the date is missing or malformed.
func releaseYear(releaseDate string) int {
	if len(releaseDate) < 4 {
		return 0
	}
	year, err := strconv.Atoi(releaseDate[:4])
	if err != nil {
		return 0
	}
	return year
}
