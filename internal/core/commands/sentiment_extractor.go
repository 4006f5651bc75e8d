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
// sentiment extraction stage, which asks the chat model to classify each
// harvested review snippet.
//
// Logic flow:
//  1. It receives the snippet slice from the harvester. When no snippets
//     exist it analyzes the synopsis instead, so every movie gets a
//     sentiment signal.
//  2. Worker pool: snippets are classified concurrently through a jobs
//     channel, a results channel, and a configurable number of worker
//     goroutines. The shared rate limiter on the chat model keeps the
//     fan-out inside the provider quota.
//  3. Each worker renders the sentiment prompt template for its snippet,
//     calls the model, and sends back the raw model output.
//  4. The raw outputs are collected in completion order and handed to the
//     merge stage, which owns all parsing. An upstream failure on any
//     snippet is recorded on the context and fails the chain.
package commands

import (
	"bytes"
	goctx "context"
	"encoding/json"
	"fmt"
	"sync"
	"text/template"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/jaycherian/go-movie-review-agent/internal/cloud"
	"github.com/jaycherian/go-movie-review-agent/internal/core/cor"
	"github.com/jaycherian/go-movie-review-agent/internal/core/model"
)

// SentimentExtractor classifies review snippets in parallel using the chat
// model.
type SentimentExtractor struct {
	cor.BaseCommand
	chatModel              *cloud.QuotaAwareChatModel // The rate-limited chat model client.
	promptTemplate         *template.Template         // The Go template for the per-snippet prompt.
	numberOfWorkers        int                        // The number of concurrent workers to spawn.
	kimiInputTokenCounter  metric.Int64Counter        // OTel counter for prompt tokens.
	kimiOutputTokenCounter metric.Int64Counter        // OTel counter for completion tokens.
	kimiRetryCounter       metric.Int64Counter        // OTel counter for retries.
}

// NewSentimentExtractor is the constructor for the SentimentExtractor
// command.
func NewSentimentExtractor(
	name string,
	chatModel *cloud.QuotaAwareChatModel,
	prompt *template.Template,
	numberOfWorkers int) *SentimentExtractor {
	if numberOfWorkers < 1 {
		numberOfWorkers = 1
	}
	out := &SentimentExtractor{
		BaseCommand:     *cor.NewBaseCommand(name),
		chatModel:       chatModel,
		promptTemplate:  prompt,
		numberOfWorkers: numberOfWorkers}

	out.kimiInputTokenCounter, _ = out.GetMeter().Int64Counter(fmt.Sprintf("%s.kimi.token.input", out.GetName()))
	out.kimiOutputTokenCounter, _ = out.GetMeter().Int64Counter(fmt.Sprintf("%s.kimi.token.output", out.GetName()))
	out.kimiRetryCounter, _ = out.GetMeter().Int64Counter(fmt.Sprintf("%s.kimi.retry", out.GetName()))

	return out
}

// IsExecutable holds when the metadata record is present. The snippet slice
// itself may be empty; the synopsis fallback covers that case.
func (s *SentimentExtractor) IsExecutable(context cor.Context) bool {
	return context != nil &&
		context.GetContext() != nil &&
		context.Get(GetMovieMetadataParameterName()) != nil
}

// Execute orchestrates the parallel snippet classification.
func (s *SentimentExtractor) Execute(context cor.Context) {
	metadata := context.Get(GetMovieMetadataParameterName()).(*model.MovieMetadata)

	snippets, _ := context.Get(s.GetInputParam()).([]*model.ReviewSnippet)
	harvestedCount := len(snippets)
	if len(snippets) == 0 {
		// No published reviews: classify the synopsis so the score and the
		// composer still get a polarity.
		snippets = []*model.ReviewSnippet{{Author: "synopsis", Content: metadata.Synopsis}}
	}

	exampleJson, _ := json.Marshal(model.GetExampleSentiment())
	exampleText := string(exampleJson)

	var wg sync.WaitGroup

	// Buffered to the job count so all jobs enqueue without blocking.
	jobs := make(chan *snippetJob, len(snippets))
	results := make(chan *snippetResponse, len(snippets))

	for w := 1; w <= s.numberOfWorkers; w++ {
		wg.Add(1)
		go snippetWorker(jobs, results, &wg)
	}

	for i, snippet := range snippets {
		jobs <- s.createJob(context.GetContext(), i, metadata.Title, exampleText, snippet)
	}
	close(jobs)

	wg.Wait()
	close(results)

	rawOutputs := make([]string, 0, len(snippets))
	for r := range results {
		if r.err != nil {
			s.GetErrorCounter().Add(context.GetContext(), 1)
			context.AddError(s.GetName(), r.err)
		} else {
			rawOutputs = append(rawOutputs, r.value)
		}
	}

	if !context.HasErrors() {
		s.GetSuccessCounter().Add(context.GetContext(), 1)
	}

	context.Add(GetSnippetCountParameterName(), harvestedCount)
	context.Add(s.GetOutputParam(), rawOutputs)
}

// GetSnippetCountParameterName returns the context key recording how many
// snippets were analyzed, used for the result's review_count field.
func GetSnippetCountParameterName() string {
	return "__SNIPPET_COUNT__"
}

// snippetResponse passes one worker's result or error back to Execute.
type snippetResponse struct {
	value string
	err   error
}

// snippetJob carries everything one worker needs to classify one snippet.
type snippetJob struct {
	sequence int
	ctx      goctx.Context
	span     trace.Span
	prompt   string
	model    *cloud.QuotaAwareChatModel
	input    metric.Int64Counter
	output   metric.Int64Counter
	retry    metric.Int64Counter
	err      error
}

// close ends the job's trace span with the given status.
func (j *snippetJob) close(status codes.Code, description string) {
	j.span.SetStatus(status, description)
	j.span.End()
}

// createJob renders the prompt for one snippet and packages it with its own
// trace span.
func (s *SentimentExtractor) createJob(
	ctx goctx.Context,
	sequence int,
	title string,
	exampleText string,
	snippet *model.ReviewSnippet) *snippetJob {
	jobCtx, jobSpan := s.Tracer.Start(ctx, fmt.Sprintf("%s_kimi_snippet_%d", s.GetName(), sequence))
	jobSpan.SetAttributes(
		attribute.Int("sequence", sequence),
		attribute.String("author", snippet.Author),
	)

	vocabulary := make(map[string]string)
	vocabulary["TITLE"] = title
	vocabulary["SNIPPET"] = snippet.Content
	vocabulary["EXAMPLE_JSON"] = exampleText

	var doc bytes.Buffer
	if err := s.promptTemplate.Execute(&doc, vocabulary); err != nil {
		return &snippetJob{span: jobSpan, err: fmt.Errorf("failed to execute sentiment prompt template: %w", err)}
	}

	return &snippetJob{
		sequence: sequence,
		ctx:      jobCtx,
		span:     jobSpan,
		prompt:   doc.String(),
		model:    s.chatModel,
		input:    s.kimiInputTokenCounter,
		output:   s.kimiOutputTokenCounter,
		retry:    s.kimiRetryCounter,
	}
}

// snippetWorker is the function each pool goroutine runs: pull jobs until
// the channel closes, classify, report.
func snippetWorker(jobs <-chan *snippetJob, results chan<- *snippetResponse, wg *sync.WaitGroup) {
	defer wg.Done()

	for j := range jobs {
		if j.err != nil {
			j.close(codes.Error, "snippet job setup failed")
			results <- &snippetResponse{err: j.err}
			continue
		}

		out, err := cloud.GenerateChatResponse(j.ctx, j.input, j.output, j.retry, 0, j.model, j.prompt)
		if err != nil {
			j.close(codes.Error, "snippet classification failed")
			results <- &snippetResponse{err: err}
			continue
		}

		results <- &snippetResponse{value: out}
		j.close(codes.Ok, "completed snippet")
	}
}
