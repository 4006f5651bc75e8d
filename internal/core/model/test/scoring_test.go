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

package model_test

import (
	"math"
	"testing"

	"github.com/zeebo/assert"

	"github.com/jaycherian/go-movie-review-agent/internal/core/model"
)

func almostEqual(t *testing.T, want, got float64) {
	t.Helper()
	if math.Abs(want-got) > 1e-9 {
		t.Fatalf("want %v, got %v", want, got)
	}
}

func TestCompositeScoreBlend(t *testing.T) {
	meta := &model.MovieMetadata{ExternalRating: 8.0, Popularity: 50}
	sentiment := &model.SentimentResult{Polarity: model.PolarityPositive}

	// 0.6*8.0 + 0.2*10 (positive) + 0.2*10 (popularity clamped) = 8.8
	almostEqual(t, 8.8, model.CompositeScore(model.DefaultScoreWeights, meta, sentiment))
}

func TestCompositeScorePopularityClamp(t *testing.T) {
	low := &model.MovieMetadata{ExternalRating: 5.0, Popularity: 3}
	high := &model.MovieMetadata{ExternalRating: 5.0, Popularity: 900}
	sentiment := &model.SentimentResult{Polarity: model.PolarityMixed}

	almostEqual(t, 0.6*5+0.2*5+0.2*3, model.CompositeScore(model.DefaultScoreWeights, low, sentiment))
	almostEqual(t, 0.6*5+0.2*5+0.2*10, model.CompositeScore(model.DefaultScoreWeights, high, sentiment))
}

func TestCompositeScorePolarityMapping(t *testing.T) {
	meta := &model.MovieMetadata{ExternalRating: 0, Popularity: 0}
	weights := model.ScoreWeights{Sentiment: 1}

	almostEqual(t, 10, model.CompositeScore(weights, meta, &model.SentimentResult{Polarity: model.PolarityPositive}))
	almostEqual(t, 0, model.CompositeScore(weights, meta, &model.SentimentResult{Polarity: model.PolarityNegative}))
	almostEqual(t, 5, model.CompositeScore(weights, meta, &model.SentimentResult{Polarity: model.PolarityMixed}))
	// Missing sentiment behaves like mixed.
	almostEqual(t, 5, model.CompositeScore(weights, meta, nil))
}

func TestCompositeScoreDeterministic(t *testing.T) {
	meta := &model.MovieMetadata{ExternalRating: 8.7, Popularity: 88.5}
	sentiment := &model.SentimentResult{Polarity: model.PolarityPositive, Themes: []string{"hope"}}

	first := model.CompositeScore(model.DefaultScoreWeights, meta, sentiment)
	for i := 0; i < 10; i++ {
		almostEqual(t, first, model.CompositeScore(model.DefaultScoreWeights, meta, sentiment))
	}
}

func TestCompositeScoreClampedToScale(t *testing.T) {
	meta := &model.MovieMetadata{ExternalRating: 10, Popularity: 10}
	sentiment := &model.SentimentResult{Polarity: model.PolarityPositive}
	// Deliberately overweighted configuration still stays on the 0-10 scale.
	weights := model.ScoreWeights{Rating: 1, Sentiment: 1, Popularity: 1}
	almostEqual(t, 10, model.CompositeScore(weights, meta, sentiment))
}

func TestRequestNormalizeDefaults(t *testing.T) {
	request := model.ReviewRequest{Title: "The Shawshank Redemption"}.Normalize()
	assert.Equal(t, model.AudienceGeneral, request.TargetAudience)
	assert.Equal(t, model.StyleProfessional, request.ReviewStyle)
	assert.Equal(t, model.DefaultReviewLength, request.MaxLength)
}

func TestRequestValidate(t *testing.T) {
	valid := model.ReviewRequest{Title: "Heat", Year: 1995}.Normalize()
	assert.NoError(t, valid.Validate())

	missingTitle := model.ReviewRequest{}.Normalize()
	assert.Equal(t, model.KindValidation, model.KindOf(missingTitle.Validate()))

	preCinema := model.ReviewRequest{Title: "Heat", Year: 1600}.Normalize()
	assert.Equal(t, model.KindValidation, model.KindOf(preCinema.Validate()))

	badStyle := model.ReviewRequest{Title: "Heat", ReviewStyle: "sarcastic"}.Normalize()
	assert.Equal(t, model.KindValidation, model.KindOf(badStyle.Validate()))

	badAudience := model.ReviewRequest{Title: "Heat", TargetAudience: "robots"}.Normalize()
	assert.Equal(t, model.KindValidation, model.KindOf(badAudience.Validate()))

	tooShort := model.ReviewRequest{Title: "Heat", MaxLength: 10}.Normalize()
	assert.Equal(t, model.KindValidation, model.KindOf(tooShort.Validate()))

	tooLong := model.ReviewRequest{Title: "Heat", MaxLength: 10000}.Normalize()
	assert.Equal(t, model.KindValidation, model.KindOf(tooLong.Validate()))
}
