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

// Package cloud provides the configuration loader and the clients for the
// external services. This file implements a decorator around ChatClient
// that adds rate limiting and a per-call deadline.
//
// Chat-completion providers enforce request quotas, and the sentiment stage
// fans out over review snippets concurrently, so calls from every worker
// funnel through one shared limiter per configured model. The limiter waits
// instead of failing, keeping quota pressure invisible to the pipeline
// until the task deadline intervenes.
package cloud

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// QuotaAwareChatModel wraps a ChatClient with a named model configuration
// and a token-bucket rate limiter shared by all callers of that model.
type QuotaAwareChatModel struct {
	Client             *ChatClient
	ModelName          string
	SystemInstructions string
	Temperature        float32
	MaxTokens          int
	MaxRetries         int
	Timeout            time.Duration
	RateLimit          *rate.Limiter
}

// NewQuotaAwareChatModel builds the decorated model from its configuration.
// The limiter sustains the configured requests per second, with a burst of
// the same size; a zero or negative limit is treated as one.
func NewQuotaAwareChatModel(client *ChatClient, cfg KimiLLMModel) *QuotaAwareChatModel {
	requestsPerSecond := cfg.RateLimit
	if requestsPerSecond < 1 {
		requestsPerSecond = 1
	}
	timeout := time.Duration(cfg.TimeoutInSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &QuotaAwareChatModel{
		Client:             client,
		ModelName:          cfg.Model,
		SystemInstructions: cfg.SystemInstructions,
		Temperature:        cfg.Temperature,
		MaxTokens:          cfg.MaxTokens,
		MaxRetries:         cfg.MaxRetries,
		Timeout:            timeout,
		RateLimit:          rate.NewLimiter(rate.Every(time.Second/time.Duration(requestsPerSecond)), requestsPerSecond),
	}
}

// GenerateContent sends one prompt to the model, blocking on the rate
// limiter first. The configured system instructions, when present, are
// prepended as a system message. The call runs under the model's per-call
// deadline layered on the caller's context, so cancellation of the task
// still wins.
func (q *QuotaAwareChatModel) GenerateContent(ctx context.Context, prompt string) (string, ChatUsage, error) {
	if err := q.RateLimit.Wait(ctx); err != nil {
		return "", ChatUsage{}, err
	}

	var messages []ChatMessage
	if q.SystemInstructions != "" {
		messages = append(messages, ChatMessage{Role: RoleSystem, Content: q.SystemInstructions})
	}
	messages = append(messages, ChatMessage{Role: RoleUser, Content: prompt})

	callCtx, cancel := context.WithTimeout(ctx, q.Timeout)
	defer cancel()

	return q.Client.ChatCompletion(callCtx, q.ModelName, messages, q.Temperature, q.MaxTokens)
}
