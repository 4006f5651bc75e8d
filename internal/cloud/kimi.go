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
// external services. This file implements ChatClient, a minimal client for
// the Kimi chat-completion endpoint. The endpoint speaks the
// OpenAI-compatible wire format, so the client works unchanged against any
// provider that does (the test suite points it at a local fake).
//
// The client is deliberately small: bearer authentication, one POST per
// completion, and translation of every failure mode into the application's
// error taxonomy so callers never see raw transport errors or upstream
// payloads.
package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jaycherian/go-movie-review-agent/internal/core/model"
)

// Chat roles in the OpenAI-compatible wire format.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// ChatMessage is one turn of a chat-completion conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatUsage reports the token counts consumed by one completion call.
type ChatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// chatRequest is the wire request for POST /chat/completions.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

// chatResponse is the subset of the wire response the service consumes.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage ChatUsage `json:"usage"`
}

// ChatClient calls an OpenAI-compatible chat-completion endpoint.
type ChatClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewChatClient builds a client for the given endpoint. The timeout is a
// transport-level backstop; per-call deadlines come from the caller's
// context.
func NewChatClient(apiKey string, baseURL string, timeout time.Duration) *ChatClient {
	return &ChatClient{
		apiKey:     apiKey,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// ChatCompletion sends one conversation to the model and returns the first
// choice's text along with the token usage. All failures are returned as
// model.Error values: transport and non-2xx failures as upstream errors
// (with the timeout flag set when the deadline elapsed), and an empty or
// undecodable body as a parse error.
func (c *ChatClient) ChatCompletion(
	ctx context.Context,
	modelName string,
	messages []ChatMessage,
	temperature float32,
	maxTokens int) (string, ChatUsage, error) {
	const op = "kimi.chat_completion"

	body, err := json.Marshal(chatRequest{
		Model:       modelName,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", ChatUsage{}, model.Upstream(op, err, false)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", ChatUsage{}, model.Upstream(op, err, false)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", ChatUsage{}, model.Upstream(op, stripURLError(err), isTimeout(err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain and discard: upstream error bodies may carry provider
		// details that must not leak to API consumers.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", ChatUsage{}, model.Upstream(op,
			fmt.Errorf("chat completion returned status %d", resp.StatusCode),
			resp.StatusCode == http.StatusGatewayTimeout)
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", ChatUsage{}, model.Parse(op, "undecodable chat completion response", err)
	}
	if len(out.Choices) == 0 {
		return "", ChatUsage{}, model.Parse(op, "chat completion returned no choices", nil)
	}

	return out.Choices[0].Message.Content, out.Usage, nil
}

// isTimeout reports whether a transport error represents an elapsed
// deadline, covering both context cancellation and net-level timeouts.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// stripURLError unwraps *url.Error so credentialed request URLs never
// appear in error text, logs, or API responses.
func stripURLError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		return urlErr.Err
	}
	return err
}
