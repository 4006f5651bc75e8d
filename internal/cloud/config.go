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

// Package cloud defines the data structures for application configuration,
// loaded from TOML files, and the clients for the two external
// collaborators: the Kimi (OpenAI-compatible) chat-completion endpoint and
// the TMDB movie-metadata service.
//
// This file centralizes all configuration-related structs. API credentials
// are deliberately absent: they come from the process environment (see
// utils.go), never from a config file or source code.
//
// Structs:
//   - KimiLLMModel: Tuning for one named chat model (temperature, rate limit, timeout).
//   - TMDBConfig: Endpoint and fetch limits for the metadata provider.
//   - PromptTemplates: Go text templates for the sentiment and review prompts.
//   - Scoring: Weights for the deterministic composite score.
//   - ReviewStyle / Audience: Prompt guidance keyed by the request enums.
//   - Config: The top-level aggregate.
package cloud

// KimiLLMModel configures one named chat model. RateLimit is the allowed
// requests per second; MaxRetries bounds the shared retry helper (0 keeps
// the single-attempt contract).
type KimiLLMModel struct {
	Model              string  `toml:"model"`               // Upstream model name, e.g. "moonshot-v1-8k".
	SystemInstructions string  `toml:"system_instructions"` // Optional system message prepended to every call.
	Temperature        float32 `toml:"temperature"`         // Sampling temperature.
	MaxTokens          int     `toml:"max_tokens"`          // Completion token cap, 0 for the provider default.
	RateLimit          int     `toml:"rate_limit"`          // Requests per second allowed against the provider quota.
	MaxRetries         int     `toml:"max_retries"`         // Extra attempts after a failed call. 0 = single attempt.
	TimeoutInSeconds   int     `toml:"timeout_in_seconds"`  // Per-call deadline.
}

// TMDBConfig configures the metadata provider client.
type TMDBConfig struct {
	BaseURL          string `toml:"base_url"`           // API root, e.g. "https://api.themoviedb.org/3".
	ImageBaseURL     string `toml:"image_base_url"`     // Prefix for poster paths.
	Language         string `toml:"language"`           // Preferred response language, e.g. "en-US".
	TimeoutInSeconds int    `toml:"timeout_in_seconds"` // Per-call deadline.
	MaxReviewPages   int    `toml:"max_review_pages"`   // Upper bound on review pages fetched per movie.
	MaxCastMembers   int    `toml:"max_cast_members"`   // How many cast entries to keep from the credits payload.
}

// PromptTemplates holds the Go text templates for the two LLM prompts.
type PromptTemplates struct {
	SentimentPrompt string `toml:"sentiment"` // Template for the per-snippet sentiment/theme extraction prompt.
	ReviewPrompt    string `toml:"review"`    // Template for the final review composition prompt.
}

// Scoring holds the composite-score weights. They should sum to 1.0.
type Scoring struct {
	RatingWeight     float64 `toml:"rating_weight"`     // Weight of the provider's aggregate rating.
	SentimentWeight  float64 `toml:"sentiment_weight"`  // Weight of the extracted polarity.
	PopularityWeight float64 `toml:"popularity_weight"` // Weight of the provider popularity signal.
}

// ReviewStyle carries the prompt guidance for one review_style value.
type ReviewStyle struct {
	Name       string `toml:"name"`       // User-facing name, e.g. "Professional".
	Definition string `toml:"definition"` // Short description of the style.
	Guidance   string `toml:"guidance"`   // Tone instructions injected into the review prompt.
}

// Audience carries the prompt guidance for one target_audience value.
type Audience struct {
	Name       string `toml:"name"`
	Definition string `toml:"definition"`
	Guidance   string `toml:"guidance"`
}

// Config is the root configuration aggregate, loaded from layered TOML
// files (base plus runtime override).
type Config struct {
	Application struct {
		Name              string `toml:"name"`                // Service name used in telemetry.
		GoogleProjectId   string `toml:"google_project_id"`   // Project for the Cloud Trace/Monitoring exporters.
		Port              int    `toml:"port"`                // HTTP listen port.
		ThreadPoolSize    int    `toml:"thread_pool_size"`    // Worker pool size capping concurrent pipelines.
		TaskBacklog       int    `toml:"task_backlog"`        // Queued (not yet running) task capacity.
		HistoryDatabase   string `toml:"history_database"`    // SQLite path for the review archive; ":memory:" for ephemeral.
		MaxReviewSnippets int    `toml:"max_review_snippets"` // Published review snippets analyzed per task.
	} `toml:"application"`
	TMDB            TMDBConfig              `toml:"tmdb"`
	PromptTemplates PromptTemplates         `toml:"prompt_templates"`
	Scoring         Scoring                 `toml:"scoring"`
	AgentModels     map[string]KimiLLMModel `toml:"agent_models"` // Chat models keyed by a logical name (e.g. "analyst", "reviewer").
	Styles          map[string]ReviewStyle  `toml:"styles"`       // Prompt guidance keyed by review_style.
	Audiences       map[string]Audience     `toml:"audiences"`    // Prompt guidance keyed by target_audience.
}

// NewConfig creates a Config with its map fields initialized so the TOML
// loader can populate them without nil checks.
func NewConfig() *Config {
	return &Config{
		AgentModels: make(map[string]KimiLLMModel),
		Styles:      make(map[string]ReviewStyle),
		Audiences:   make(map[string]Audience),
	}
}
