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
// This file implements the lenient structured-output decoder for sentiment
// payloads returned by the language model. Models routinely wrap JSON in
// markdown fences, prepend prose, or drift on enum spelling, so the decoder
// extracts the first JSON object from the raw text and normalizes the
// polarity value instead of failing on every deviation. Only a response
// with no recoverable object at all is a parse error.
package model

import (
	"encoding/json"
	"strings"
)

// rawSentiment mirrors the JSON shape the sentiment prompt asks the model
// for. Score is accepted as a secondary signal when the polarity word is
// missing or unrecognized.
type rawSentiment struct {
	Polarity string   `json:"polarity"`
	Themes   []string `json:"themes"`
	Score    *float64 `json:"score"`
}

// DecodeSentiment maps a free-text model response onto a SentimentResult.
// It tolerates markdown fences, surrounding prose, and unknown polarity
// spellings (falling back to mixed). It returns a KindParse error only when
// no JSON object can be recovered from the text.
func DecodeSentiment(raw string) (*SentimentResult, error) {
	const op = "sentiment.decode"

	body := extractJSONObject(raw)
	if body == "" {
		return nil, Parse(op, "no JSON object in model response", nil)
	}

	var doc rawSentiment
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return nil, Parse(op, "model response is not valid JSON", err)
	}

	out := &SentimentResult{
		Polarity: normalizePolarity(doc.Polarity, doc.Score),
		Themes:   cleanThemes(doc.Themes),
	}
	return out, nil
}

// extractJSONObject strips markdown fences and returns the substring from
// the first '{' through the last '}', or "" when none exists.
func extractJSONObject(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

// normalizePolarity maps the model's polarity word onto the fixed enum. An
// unrecognized word falls back to the numeric score when one was supplied,
// and to mixed otherwise.
func normalizePolarity(word string, score *float64) string {
	switch strings.ToLower(strings.TrimSpace(word)) {
	case PolarityPositive, "pos", "favorable", "favourable", "good":
		return PolarityPositive
	case PolarityNegative, "neg", "unfavorable", "unfavourable", "bad":
		return PolarityNegative
	case PolarityMixed, "neutral", "ambivalent":
		return PolarityMixed
	}
	if score != nil {
		switch {
		case *score > 0.1:
			return PolarityPositive
		case *score < -0.1:
			return PolarityNegative
		}
	}
	return PolarityMixed
}

// cleanThemes drops empty entries and deduplicates while preserving the
// model's ordering.
func cleanThemes(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, t := range in {
		t = strings.TrimSpace(t)
		key := strings.ToLower(t)
		if t == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}
	return out
}
