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
// This file provides canned example objects that are serialized into
// prompts as few-shot guidance, which measurably improves how often the
// model answers with well-formed JSON.
package model

// GetExampleSentiment returns a fully populated SentimentResult used as the
// JSON example in the sentiment extraction prompt.
func GetExampleSentiment() *SentimentResult {
	return &SentimentResult{
		Polarity: PolarityPositive,
		Themes:   []string{"redemption", "friendship", "institutional injustice"},
	}
}
