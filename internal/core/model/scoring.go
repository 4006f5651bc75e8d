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

package model

// ScoreWeights configures the composite-score blend. The weights should sum
// to 1.0; the score is clamped to [0, 10] regardless.
type ScoreWeights struct {
	Rating     float64 // Weight of the provider's aggregate rating (already 0-10).
	Sentiment  float64 // Weight of the extracted polarity mapped onto 0-10.
	Popularity float64 // Weight of the provider popularity signal clamped to 10.
}

// DefaultScoreWeights matches the blend the service shipped with: the
// external rating dominates, sentiment and popularity nudge it.
var DefaultScoreWeights = ScoreWeights{Rating: 0.6, Sentiment: 0.2, Popularity: 0.2}

// polarityScore maps a sentiment polarity onto the 0-10 scale used by the
// composite blend.
func polarityScore(polarity string) float64 {
	switch polarity {
	case PolarityPositive:
		return 10
	case PolarityNegative:
		return 0
	default:
		return 5
	}
}

// CompositeScore computes the deterministic 0-10 composite rating for a
// review. It is a pure function of the metadata record and the extracted
// sentiment: the same inputs always produce the same score, independent of
// the free-text review the model generated.
func CompositeScore(w ScoreWeights, meta *MovieMetadata, sentiment *SentimentResult) float64 {
	rating := meta.ExternalRating
	popularity := meta.Popularity
	if popularity > 10 {
		popularity = 10
	}
	polarity := PolarityMixed
	if sentiment != nil {
		polarity = sentiment.Polarity
	}

	score := w.Rating*rating + w.Sentiment*polarityScore(polarity) + w.Popularity*popularity
	if score < 0 {
		return 0
	}
	if score > 10 {
		return 10
	}
	return score
}
