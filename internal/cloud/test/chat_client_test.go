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

package cloud_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"golang.org/x/time/rate"

	"github.com/jaycherian/go-movie-review-agent/internal/cloud"
	"github.com/jaycherian/go-movie-review-agent/internal/core/model"
)

func TestChatCompletion(t *testing.T) {
	content, usage, err := cloudClients.ChatClient.ChatCompletion(
		ctx,
		"moonshot-v1-8k",
		[]cloud.ChatMessage{{Role: cloud.RoleUser, Content: "Write a review of Heat."}},
		0.7,
		512)
	require.NoError(t, err)
	assert.NotEmpty(t, content)
	assert.Equal(t, 120, usage.PromptTokens)
	assert.Equal(t, 60, usage.CompletionTokens)
	assert.Equal(t, 180, usage.TotalTokens)
}

func TestChatCompletionUpstreamErrorHidesBody(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "provider quota detail"}}`))
	}))
	defer broken.Close()

	client := cloud.NewChatClient("test-key", broken.URL, 5*time.Second)
	_, _, err := client.ChatCompletion(ctx, "moonshot-v1-8k", []cloud.ChatMessage{{Role: cloud.RoleUser, Content: "hi"}}, 0, 0)
	require.Error(t, err)
	assert.Equal(t, model.KindUpstream, model.KindOf(err))
	assert.NotContains(t, err.Error(), "provider quota detail")
	assert.NotContains(t, err.Error(), "test-key")
}

func TestChatCompletionNoChoicesIsParseError(t *testing.T) {
	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices": [], "usage": {}}`))
	}))
	defer empty.Close()

	client := cloud.NewChatClient("test-key", empty.URL, 5*time.Second)
	_, _, err := client.ChatCompletion(ctx, "moonshot-v1-8k", []cloud.ChatMessage{{Role: cloud.RoleUser, Content: "hi"}}, 0, 0)
	require.Error(t, err)
	assert.Equal(t, model.KindParse, model.KindOf(err))
}

// TestGenerateChatResponseStripsFences verifies the full call path the
// pipeline commands use: limiter, system instructions, metrics, and markdown
// fence stripping on the way out.
func TestGenerateChatResponseStripsFences(t *testing.T) {
	meter := otel.Meter("chat-client-test")
	inputTokens, err := meter.Int64Counter("test.token.input")
	require.NoError(t, err)
	outputTokens, err := meter.Int64Counter("test.token.output")
	require.NoError(t, err)
	retries, err := meter.Int64Counter("test.token.retry")
	require.NoError(t, err)

	analyst := cloudClients.AgentModels["analyst"]
	require.NotNil(t, analyst)

	// The fake answers sentiment prompts with a fenced JSON block.
	out, err := cloud.GenerateChatResponse(ctx, inputTokens, outputTokens, retries, 0, analyst,
		"Classify the sentiment of this review of \"Heat\".")
	require.NoError(t, err)

	assert.False(t, strings.Contains(out, "```"))
	assert.True(t, strings.HasPrefix(out, "{"))
	assert.True(t, strings.HasSuffix(out, "}"))

	decoded, err := model.DecodeSentiment(out)
	require.NoError(t, err)
	assert.Equal(t, model.PolarityPositive, decoded.Polarity)
}

// TestQuotaAwareModelSustainedRate checks the limiter honors the configured
// requests-per-second as the sustained rate, not just the burst size.
func TestQuotaAwareModelSustainedRate(t *testing.T) {
	modelConfig := config.AgentModels["analyst"]
	modelConfig.RateLimit = 5
	limited := cloud.NewQuotaAwareChatModel(cloudClients.ChatClient, modelConfig)
	assert.Equal(t, rate.Limit(5), limited.RateLimit.Limit())
	assert.Equal(t, 5, limited.RateLimit.Burst())

	// A non-positive configured limit clamps to one request per second.
	modelConfig.RateLimit = 0
	clamped := cloud.NewQuotaAwareChatModel(cloudClients.ChatClient, modelConfig)
	assert.Equal(t, rate.Limit(1), clamped.RateLimit.Limit())
	assert.Equal(t, 1, clamped.RateLimit.Burst())
}

// TestGenerateChatResponseRetryBudget counts upstream attempts: a model
// configured with two retries makes exactly three calls before giving up.
func TestGenerateChatResponseRetryBudget(t *testing.T) {
	var attempts atomic.Int64
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer failing.Close()

	modelConfig := config.AgentModels["analyst"]
	modelConfig.MaxRetries = 2
	retryModel := cloud.NewQuotaAwareChatModel(cloud.NewChatClient("test-key", failing.URL, 5*time.Second), modelConfig)

	meter := otel.Meter("chat-client-test")
	inputTokens, _ := meter.Int64Counter("test.retry.token.input")
	outputTokens, _ := meter.Int64Counter("test.retry.token.output")
	retries, _ := meter.Int64Counter("test.retry.counter")

	_, err := cloud.GenerateChatResponse(ctx, inputTokens, outputTokens, retries, 0, retryModel, "hi")
	require.Error(t, err)
	assert.Equal(t, model.KindUpstream, model.KindOf(err))
	assert.Equal(t, int64(3), attempts.Load())
}
