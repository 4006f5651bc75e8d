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

// Package model_test verifies the lenient sentiment decoder against the
// kinds of output chat models actually produce: fenced JSON, JSON buried in
// prose, drifting enum spellings, and plain garbage.
package model_test

import (
	"testing"

	"github.com/zeebo/assert"

	"github.com/jaycherian/go-movie-review-agent/internal/core/model"
)

func TestDecodeCleanJSON(t *testing.T) {
	out, err := model.DecodeSentiment(`{"polarity": "positive", "themes": ["hope", "friendship"]}`)
	assert.NoError(t, err)
	assert.Equal(t, model.PolarityPositive, out.Polarity)
	assert.DeepEqual(t, []string{"hope", "friendship"}, out.Themes)
}

func TestDecodeFencedJSON(t *testing.T) {
	raw := "```json\n{\"polarity\": \"negative\", \"themes\": [\"violence\"]}\n```"
	out, err := model.DecodeSentiment(raw)
	assert.NoError(t, err)
	assert.Equal(t, model.PolarityNegative, out.Polarity)
}

func TestDecodeJSONBuriedInProse(t *testing.T) {
	raw := `Sure! Here is the classification you asked for:
{"polarity": "mixed", "themes": ["ambition"]}
Let me know if you need anything else.`
	out, err := model.DecodeSentiment(raw)
	assert.NoError(t, err)
	assert.Equal(t, model.PolarityMixed, out.Polarity)
}

func TestDecodePolaritySynonyms(t *testing.T) {
	cases := map[string]string{
		"favorable":  model.PolarityPositive,
		"Favourable": model.PolarityPositive,
		"good":       model.PolarityPositive,
		"bad":        model.PolarityNegative,
		"neutral":    model.PolarityMixed,
		"ambivalent": model.PolarityMixed,
	}
	for word, want := range cases {
		out, err := model.DecodeSentiment(`{"polarity": "` + word + `"}`)
		assert.NoError(t, err)
		assert.Equal(t, want, out.Polarity)
	}
}

func TestDecodeScoreFallback(t *testing.T) {
	out, err := model.DecodeSentiment(`{"polarity": "enthusiastic", "score": 0.8}`)
	assert.NoError(t, err)
	assert.Equal(t, model.PolarityPositive, out.Polarity)

	out, err = model.DecodeSentiment(`{"polarity": "scathing", "score": -0.9}`)
	assert.NoError(t, err)
	assert.Equal(t, model.PolarityNegative, out.Polarity)

	// A near-zero score is not a signal either way.
	out, err = model.DecodeSentiment(`{"polarity": "whatever", "score": 0.05}`)
	assert.NoError(t, err)
	assert.Equal(t, model.PolarityMixed, out.Polarity)
}

func TestDecodeUnknownPolarityWithoutScore(t *testing.T) {
	out, err := model.DecodeSentiment(`{"polarity": "lukewarm"}`)
	assert.NoError(t, err)
	assert.Equal(t, model.PolarityMixed, out.Polarity)
}

func TestDecodeThemeCleanup(t *testing.T) {
	out, err := model.DecodeSentiment(`{"polarity": "positive", "themes": ["Hope", "hope", "", "  friendship  ", "Friendship"]}`)
	assert.NoError(t, err)
	assert.DeepEqual(t, []string{"Hope", "friendship"}, out.Themes)
}

func TestDecodeNoJSONIsParseError(t *testing.T) {
	_, err := model.DecodeSentiment("I cannot classify this review.")
	assert.Error(t, err)
	assert.Equal(t, model.KindParse, model.KindOf(err))
}

func TestDecodeMalformedJSONIsParseError(t *testing.T) {
	_, err := model.DecodeSentiment(`{"polarity": "positive", "themes": [`)
	assert.Error(t, err)
	assert.Equal(t, model.KindParse, model.KindOf(err))
}
