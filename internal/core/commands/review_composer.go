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
// review composition stage: one chat-model call that turns the metadata and
// the merged sentiment into the review prose.
//
// The prompt is assembled from a Go template in the configuration, with the
// style and audience guidance blocks looked up from the configuration maps
// keyed by the request's enums. The raw model output (fences already
// stripped by the transport helper) is passed downstream as plain text; the
// assembly stage owns scoring and packaging.
package commands

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"go.opentelemetry.io/otel/metric"

	"github.com/jaycherian/go-movie-review-agent/internal/cloud"
	"github.com/jaycherian/go-movie-review-agent/internal/core/cor"
	"github.com/jaycherian/go-movie-review-agent/internal/core/model"
)

// ReviewComposer generates the review prose with the chat model.
type ReviewComposer struct {
	cor.BaseCommand
	config                 *cloud.Config              // Application configuration, for style/audience guidance.
	chatModel              *cloud.QuotaAwareChatModel // The rate-limited chat model client.
	promptTemplate         *template.Template         // The Go template for the composition prompt.
	kimiInputTokenCounter  metric.Int64Counter        // OTel counter for prompt tokens.
	kimiOutputTokenCounter metric.Int64Counter        // OTel counter for completion tokens.
	kimiRetryCounter       metric.Int64Counter        // OTel counter for retries.
}

// NewReviewComposer is the constructor for the ReviewComposer command.
func NewReviewComposer(
	name string,
	config *cloud.Config,
	chatModel *cloud.QuotaAwareChatModel,
	promptTemplate *template.Template) *ReviewComposer {
	out := &ReviewComposer{
		BaseCommand:    *cor.NewBaseCommand(name),
		config:         config,
		chatModel:      chatModel,
		promptTemplate: promptTemplate}

	out.kimiInputTokenCounter, _ = out.GetMeter().Int64Counter(fmt.Sprintf("%s.kimi.token.input", out.GetName()))
	out.kimiOutputTokenCounter, _ = out.GetMeter().Int64Counter(fmt.Sprintf("%s.kimi.token.output", out.GetName()))
	out.kimiRetryCounter, _ = out.GetMeter().Int64Counter(fmt.Sprintf("%s.kimi.retry", out.GetName()))

	return out
}

// IsExecutable holds when the merged sentiment, the metadata record, and
// the originating request are all present.
func (c *ReviewComposer) IsExecutable(context cor.Context) bool {
	return context != nil &&
		context.GetContext() != nil &&
		context.Get(c.GetInputParam()) != nil &&
		context.Get(GetMovieMetadataParameterName()) != nil &&
		context.Get(GetReviewRequestParameterName()) != nil
}

// GenerateParams builds the template vocabulary from the request, the
// metadata, and the merged sentiment.
func (c *ReviewComposer) GenerateParams(
	request *model.ReviewRequest,
	metadata *model.MovieMetadata,
	sentiment *model.SentimentResult) map[string]string {
	var castBuilder strings.Builder
	for _, cast := range metadata.Cast {
		fmt.Fprintf(&castBuilder, "%s as %s\n", cast.ActorName, cast.CharacterName)
	}

	styleGuidance := c.config.Styles[request.ReviewStyle].Guidance
	audienceGuidance := c.config.Audiences[request.TargetAudience].Guidance

	spoilerGuidance := "Do not reveal plot twists, endings, or late-film developments."
	if request.IncludeSpoilers {
		spoilerGuidance = "You may discuss the full plot, including twists and the ending."
	}

	params := make(map[string]string)
	params["TITLE"] = metadata.Title
	params["YEAR"] = fmt.Sprintf("%d", metadata.Year)
	params["SYNOPSIS"] = metadata.Synopsis
	params["CAST"] = castBuilder.String()
	params["DIRECTORS"] = strings.Join(metadata.Directors, ", ")
	params["GENRES"] = strings.Join(metadata.Genres, ", ")
	params["KEYWORDS"] = strings.Join(metadata.Keywords, ", ")
	params["RATING"] = fmt.Sprintf("%.1f", metadata.ExternalRating)
	params["POLARITY"] = sentiment.Polarity
	params["THEMES"] = strings.Join(sentiment.Themes, ", ")
	params["STYLE_GUIDANCE"] = styleGuidance
	params["AUDIENCE_GUIDANCE"] = audienceGuidance
	params["SPOILER_GUIDANCE"] = spoilerGuidance
	params["MAX_LENGTH"] = fmt.Sprintf("%d", request.MaxLength)
	return params
}

// Execute renders the prompt, calls the model once, and passes the prose
// downstream.
func (c *ReviewComposer) Execute(context cor.Context) {
	sentiment := context.Get(c.GetInputParam()).(*model.SentimentResult)
	metadata := context.Get(GetMovieMetadataParameterName()).(*model.MovieMetadata)
	request := context.Get(GetReviewRequestParameterName()).(*model.ReviewRequest)

	var buffer bytes.Buffer
	if err := c.promptTemplate.Execute(&buffer, c.GenerateParams(request, metadata, sentiment)); err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("failed to execute review prompt template: %w", err))
		return
	}

	out, err := cloud.GenerateChatResponse(context.GetContext(), c.kimiInputTokenCounter, c.kimiOutputTokenCounter, c.kimiRetryCounter, 0, c.chatModel, buffer.String())
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), err)
		return
	}
	if strings.TrimSpace(out) == "" {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), model.Parse(c.GetName(), "model returned an empty review", nil))
		return
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(c.GetOutputParam(), strings.TrimSpace(out))
}
