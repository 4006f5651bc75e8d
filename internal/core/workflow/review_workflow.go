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

// Package workflow defines the high-level business logic orchestrations,
// combining pipeline commands into coherent chains. This file implements
// the review generation workflow, the one pipeline a task executes from
// submission to its terminal state.
package workflow

import (
	"context"
	"text/template"

	"github.com/jaycherian/go-movie-review-agent/internal/cloud"
	"github.com/jaycherian/go-movie-review-agent/internal/core/commands"
	"github.com/jaycherian/go-movie-review-agent/internal/core/cor"
	"github.com/jaycherian/go-movie-review-agent/internal/core/model"
)

// ReviewWorkflow orchestrates review generation for one movie: metadata
// lookup, snippet harvesting, parallel sentiment extraction, sentiment
// merging, prose composition, and deterministic result assembly. It is
// structured as a Chain of Responsibility (cor.Chain); the chain stops at
// the first failing stage, so an unresolvable title never reaches the
// model.
type ReviewWorkflow struct {
	cor.BaseCommand
	config            *cloud.Config
	tmdbClient        *cloud.TMDBClient
	analystModel      *cloud.QuotaAwareChatModel // Model used for snippet classification.
	reviewerModel     *cloud.QuotaAwareChatModel // Model used for prose composition.
	numberOfWorkers   int
	sentimentTemplate *template.Template
	reviewTemplate    *template.Template
	chain             cor.Chain // The underlying chain of commands to be executed.
}

// Execute runs the whole pipeline by invoking the underlying chain. The
// caller seeds the context with the normalized review request.
func (w *ReviewWorkflow) Execute(context cor.Context) {
	w.chain.Execute(context)
}

// GenerateReview runs the pipeline for one request on a fresh chain
// context. This is the entry point the task service calls; each invocation
// gets its own context, so concurrent tasks never share state.
func (w *ReviewWorkflow) GenerateReview(ctx context.Context, request *model.ReviewRequest) (*model.ReviewResult, error) {
	chainCtx := cor.NewBaseContext()
	chainCtx.SetContext(ctx)
	return w.Run(chainCtx, request)
}

// Run is a convenience wrapper for one request: it seeds a context, runs
// the chain, and returns either the terminal result or the first stage
// error.
func (w *ReviewWorkflow) Run(ctx cor.Context, request *model.ReviewRequest) (*model.ReviewResult, error) {
	ctx.Add(commands.GetReviewRequestParameterName(), request)
	ctx.Add(cor.CtxIn, request)

	w.Execute(ctx)

	if ctx.HasErrors() {
		return nil, ctx.FirstError()
	}
	result, ok := ctx.Get(commands.GetReviewResultParameterName()).(*model.ReviewResult)
	if !ok {
		return nil, model.Parse(w.GetName(), "pipeline completed without producing a result", nil)
	}
	return result, nil
}

// initializeChain builds the command sequence. Each command reads the
// previous command's output through the chain's piping and the shared
// records through their named context keys.
func (w *ReviewWorkflow) initializeChain() {
	out := cor.NewBaseChain(w.GetName())

	// Step 1: resolve the title to a metadata record. A miss here is
	// terminal and skips every later stage.
	out.AddCommand(commands.NewMetadataLookup("lookup-movie-metadata", w.tmdbClient))

	// Step 2: harvest published review snippets. Best-effort; an upstream
	// failure degrades to synopsis-only sentiment.
	out.AddCommand(commands.NewReviewHarvester("harvest-review-snippets", w.tmdbClient, w.config.Application.MaxReviewSnippets))

	// Step 3: classify each snippet with the analyst model, fanned out over
	// the worker pool.
	out.AddCommand(commands.NewSentimentExtractor("extract-snippet-sentiment", w.analystModel, w.sentimentTemplate, w.numberOfWorkers))

	// Step 4: merge the raw classifications into one sentiment result,
	// tolerating malformed model output.
	out.AddCommand(commands.NewSentimentMerge("merge-snippet-sentiment"))

	// Step 5: compose the review prose with the reviewer model.
	out.AddCommand(commands.NewReviewComposer("compose-review", w.config, w.reviewerModel, w.reviewTemplate))

	// Step 6: assemble the terminal result with the deterministic composite
	// score.
	weights := model.ScoreWeights{
		Rating:     w.config.Scoring.RatingWeight,
		Sentiment:  w.config.Scoring.SentimentWeight,
		Popularity: w.config.Scoring.PopularityWeight,
	}
	out.AddCommand(commands.NewReviewAssembly("assemble-review-result", weights, []string{"tmdb", "kimi"}))

	w.chain = out
}

// NewReviewWorkflow is the constructor for the ReviewWorkflow. It compiles
// the prompt templates from the configuration and builds the command chain.
// analystModelName and reviewerModelName select entries from the
// [agent_models] configuration; pointing both at the same entry is valid
// and shares one rate limiter.
func NewReviewWorkflow(
	config *cloud.Config,
	serviceClients *cloud.ServiceClients,
	analystModelName string,
	reviewerModelName string) *ReviewWorkflow {
	sentimentTemplate, err := template.New("sentiment-template").Parse(config.PromptTemplates.SentimentPrompt)
	if err != nil {
		panic(err) // The app cannot run without valid templates.
	}
	reviewTemplate, err := template.New("review-template").Parse(config.PromptTemplates.ReviewPrompt)
	if err != nil {
		panic(err)
	}

	pipeline := &ReviewWorkflow{
		BaseCommand:       *cor.NewBaseCommand("review-generation-pipeline"),
		config:            config,
		tmdbClient:        serviceClients.TMDBClient,
		analystModel:      serviceClients.AgentModels[analystModelName],
		reviewerModel:     serviceClients.AgentModels[reviewerModelName],
		numberOfWorkers:   config.Application.ThreadPoolSize,
		sentimentTemplate: sentimentTemplate,
		reviewTemplate:    reviewTemplate,
	}
	pipeline.initializeChain()
	return pipeline
}
