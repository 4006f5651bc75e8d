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
// This file holds the review-generation domain objects: the caller-supplied
// ReviewRequest, the MovieMetadata record fetched from the metadata provider,
// the SentimentResult derived from published reviews, and the terminal
// ReviewResult artifact. These objects flow between the pipeline commands
// via the chain-of-responsibility context and are never mutated after they
// are handed to the next stage.
package model

import (
	"fmt"
	"strings"
	"time"
)

// Review styles accepted by ReviewRequest.ReviewStyle. The style selects the
// prompt-template branch used by the review composer.
const (
	StyleProfessional = "professional"
	StyleCasual       = "casual"
	StyleAcademic     = "academic"
	StyleEntertaining = "entertaining"
	StyleBrief        = "brief"
)

// Target audiences accepted by ReviewRequest.TargetAudience.
const (
	AudienceGeneral    = "general"
	AudienceEnthusiast = "enthusiast"
	AudienceCritic     = "critic"
	AudienceStudent    = "student"
	AudienceFamily     = "family"
)

// Bounds and defaults for ReviewRequest.MaxLength (in words).
const (
	MinReviewLength     = 100
	MaxReviewLength     = 4000
	DefaultReviewLength = 1000
)

var validStyles = map[string]bool{
	StyleProfessional: true,
	StyleCasual:       true,
	StyleAcademic:     true,
	StyleEntertaining: true,
	StyleBrief:        true,
}

var validAudiences = map[string]bool{
	AudienceGeneral:    true,
	AudienceEnthusiast: true,
	AudienceCritic:     true,
	AudienceStudent:    true,
	AudienceFamily:     true,
}

// ReviewRequest is the caller-supplied description of the review to generate.
// A request is immutable once submitted; the task pipeline only reads it.
type ReviewRequest struct {
	Title           string `json:"title"`                      // The movie title to review. Required.
	Year            int    `json:"year,omitempty"`             // Optional release year used to disambiguate the title.
	TargetAudience  string `json:"target_audience,omitempty"`  // Who the review is written for. Defaults to "general".
	ReviewStyle     string `json:"review_style,omitempty"`     // The tone of the review. Defaults to "professional".
	MaxLength       int    `json:"max_length,omitempty"`       // Upper bound on the review length in words. Defaults to 1000.
	IncludeSpoilers bool   `json:"include_spoilers,omitempty"` // Whether the review may discuss plot resolutions.
}

// Normalize fills in the documented defaults for optional fields. It returns
// a copy so the original request stays untouched.
func (r ReviewRequest) Normalize() ReviewRequest {
	if r.TargetAudience == "" {
		r.TargetAudience = AudienceGeneral
	}
	if r.ReviewStyle == "" {
		r.ReviewStyle = StyleProfessional
	}
	if r.MaxLength == 0 {
		r.MaxLength = DefaultReviewLength
	}
	return r
}

// Validate checks the request against the documented bounds. It returns a
// *Error with KindValidation describing the first violation found, or nil
// when the request is acceptable. Callers should Normalize first.
func (r ReviewRequest) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return Validation("title is required")
	}
	if r.Year != 0 && (r.Year < 1888 || r.Year > time.Now().Year()+1) {
		return Validation(fmt.Sprintf("year %d is out of range", r.Year))
	}
	if !validStyles[r.ReviewStyle] {
		return Validation(fmt.Sprintf("unknown review_style %q", r.ReviewStyle))
	}
	if !validAudiences[r.TargetAudience] {
		return Validation(fmt.Sprintf("unknown target_audience %q", r.TargetAudience))
	}
	if r.MaxLength < MinReviewLength || r.MaxLength > MaxReviewLength {
		return Validation(fmt.Sprintf("max_length must be between %d and %d", MinReviewLength, MaxReviewLength))
	}
	return nil
}

// CastMember pairs a character with the actor playing it, as reported by the
// metadata provider.
type CastMember struct {
	CharacterName string `json:"character_name,omitempty"`
	ActorName     string `json:"actor_name"`
}

// MovieMetadata is the normalized metadata record for a single title. It is
// fetched once per task and never cached across tasks; any caching belongs
// to the provider layer.
type MovieMetadata struct {
	ID             int           `json:"id,omitempty"`              // The provider's identifier for the movie.
	Title          string        `json:"title"`                     // The canonical title.
	Year           int           `json:"year,omitempty"`            // Release year.
	Synopsis       string        `json:"synopsis,omitempty"`        // Plot overview.
	Cast           []*CastMember `json:"cast,omitempty"`            // Principal cast, provider order.
	Directors      []string      `json:"directors,omitempty"`       // Credited directors.
	Genres         []string      `json:"genres,omitempty"`          // Genre names.
	ExternalRating float64       `json:"external_rating,omitempty"` // The provider's aggregate rating on a 0-10 scale.
	VoteCount      int           `json:"vote_count,omitempty"`      // Number of votes behind ExternalRating.
	Popularity     float64       `json:"popularity,omitempty"`      // The provider's popularity signal (unbounded).
	RuntimeMinutes int           `json:"runtime_minutes,omitempty"` // Running time in minutes.
	PosterURL      string        `json:"poster_url,omitempty"`      // Full URL to the poster image.
	ReleaseDate    string        `json:"release_date,omitempty"`    // ISO release date as reported upstream.
	Keywords       []string      `json:"keywords,omitempty"`        // Provider keywords/tags.
}

// ReviewSnippet is a fragment of a published review used as input to the
// sentiment extraction stage.
type ReviewSnippet struct {
	Author  string `json:"author,omitempty"`
	Content string `json:"content"`
}

// Sentiment polarity values. Mixed is also the fallback when the extractor
// cannot confidently classify its input.
const (
	PolarityPositive = "positive"
	PolarityNegative = "negative"
	PolarityMixed    = "mixed"
)

// SentimentResult is the fixed-shape outcome of the sentiment/theme
// extraction stage. Read-only after creation.
type SentimentResult struct {
	Polarity string   `json:"polarity"`         // One of positive, negative, mixed.
	Themes   []string `json:"themes,omitempty"` // Ordered themes, most prominent first.
}

// ReviewResult is the terminal artifact of a completed task.
type ReviewResult struct {
	Title          string    `json:"title"`
	Year           int       `json:"year,omitempty"`
	Text           string    `json:"text"`                 // The generated review prose.
	CompositeScore float64   `json:"composite_score"`      // Deterministic 0-10 blend of rating and sentiment.
	WordCount      int       `json:"word_count"`           // Whitespace-delimited word count of Text.
	Sources        []string  `json:"sources,omitempty"`    // Upstream services that contributed to the review.
	ReviewStyle    string    `json:"review_style"`         // Echo of the requested style.
	GeneratedAt    time.Time `json:"generated_at"`         // UTC completion timestamp.
	Polarity       string    `json:"polarity,omitempty"`   // Aggregate sentiment behind the score.
	ThemeList      []string  `json:"themes,omitempty"`     // Themes surfaced by the extraction stage.
	ReviewCount    int       `json:"review_count"`         // Number of published reviews analyzed.
}

// CountWords returns the whitespace-delimited word count used for
// ReviewResult.WordCount.
func CountWords(text string) int {
	return len(strings.Fields(text))
}
