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
// stage that merges the raw per-snippet model outputs into one
// SentimentResult.
//
// Chat models are sloppy JSON emitters, so decoding is lenient: each raw
// output goes through the tolerant sentiment decoder, undecodable outputs
// are dropped, and only a task where every output is unusable fails with a
// parse error. The merged polarity is the majority vote across snippets
// (ties resolve to mixed) and the merged theme list is ordered by how many
// snippets mention each theme.
package commands

import (
	"log/slog"

	"github.com/jaycherian/go-movie-review-agent/internal/core/cor"
	"github.com/jaycherian/go-movie-review-agent/internal/core/model"
)

// The maximum number of themes the merged result carries forward.
const maxMergedThemes = 8

// GetSentimentParameterName returns the context key for the merged
// sentiment result.
func GetSentimentParameterName() string {
	return "__SENTIMENT__"
}

// SentimentMerge folds the raw per-snippet outputs into one sentiment
// result.
type SentimentMerge struct {
	cor.BaseCommand
}

// NewSentimentMerge is the constructor for the SentimentMerge command.
func NewSentimentMerge(name string) *SentimentMerge {
	return &SentimentMerge{BaseCommand: *cor.NewBaseCommand(name)}
}

// Execute decodes each raw output leniently and merges the survivors.
func (c *SentimentMerge) Execute(context cor.Context) {
	rawOutputs := context.Get(c.GetInputParam()).([]string)

	var decoded []*model.SentimentResult
	var lastErr error
	for _, raw := range rawOutputs {
		result, err := model.DecodeSentiment(raw)
		if err != nil {
			lastErr = err
			slog.Debug("dropping undecodable sentiment output", "error", err.Error())
			continue
		}
		decoded = append(decoded, result)
	}

	if len(decoded) == 0 {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), model.Parse(c.GetName(), "no decodable sentiment output", lastErr))
		return
	}

	merged := mergeSentiments(decoded)

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(GetSentimentParameterName(), merged)
	context.Add(c.GetOutputParam(), merged)
}

// mergeSentiments combines per-snippet results: majority polarity with ties
// resolving to mixed, and themes ranked by mention count with first-seen
// order breaking frequency ties.
func mergeSentiments(results []*model.SentimentResult) *model.SentimentResult {
	polarityVotes := make(map[string]int)
	themeCounts := make(map[string]int)
	var themeOrder []string

	for _, r := range results {
		polarityVotes[r.Polarity]++
		for _, theme := range r.Themes {
			if themeCounts[theme] == 0 {
				themeOrder = append(themeOrder, theme)
			}
			themeCounts[theme]++
		}
	}

	polarity := model.PolarityMixed
	best := 0
	tied := false
	for _, p := range []string{model.PolarityPositive, model.PolarityNegative, model.PolarityMixed} {
		votes := polarityVotes[p]
		if votes > best {
			polarity, best, tied = p, votes, false
		} else if votes == best && votes > 0 {
			tied = true
		}
	}
	if tied {
		polarity = model.PolarityMixed
	}

	// Stable selection sort keeps first-seen order among equal counts; the
	// theme list is small enough that quadratic cost is irrelevant.
	themes := make([]string, 0, len(themeOrder))
	picked := make(map[string]bool)
	for len(themes) < maxMergedThemes && len(themes) < len(themeOrder) {
		bestTheme := ""
		bestCount := 0
		for _, t := range themeOrder {
			if !picked[t] && themeCounts[t] > bestCount {
				bestTheme, bestCount = t, themeCounts[t]
			}
		}
		if bestTheme == "" {
			break
		}
		picked[bestTheme] = true
		themes = append(themes, bestTheme)
	}

	return &model.SentimentResult{Polarity: polarity, Themes: themes}
}
