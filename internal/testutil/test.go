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

// Package test provides utility functions and fake upstream servers to
// support the application's test suite. The fakes speak the exact wire
// formats of the two real dependencies (the TMDB REST API and an
// OpenAI-compatible chat-completion endpoint), so the production clients
// run unmodified against them: tests exercise real request construction,
// decoding, and error translation without credentials or network access.
package test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jaycherian/go-movie-review-agent/internal/cloud"
)

// HandleErr fails the test when err is not nil. Convenience to reduce
// boilerplate error checks.
func HandleErr(err error, t *testing.T) {
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

// NewTestConfig builds the configuration the test suite runs with. It
// mirrors configs/.env.test.toml but is constructed in code so tests do not
// depend on the working directory they execute from.
func NewTestConfig() *cloud.Config {
	config := cloud.NewConfig()
	config.Application.Name = "movie-review-agent-test"
	config.Application.ThreadPoolSize = 2
	config.Application.TaskBacklog = 8
	config.Application.HistoryDatabase = ":memory:"
	config.Application.MaxReviewSnippets = 4

	config.TMDB = cloud.TMDBConfig{
		BaseURL:          "http://127.0.0.1:0", // Overwritten per test with the fake server URL.
		ImageBaseURL:     "https://image.tmdb.org/t/p/w500",
		Language:         "en-US",
		TimeoutInSeconds: 5,
		MaxReviewPages:   1,
		MaxCastMembers:   10,
	}

	config.Scoring = cloud.Scoring{RatingWeight: 0.6, SentimentWeight: 0.2, PopularityWeight: 0.2}

	model := cloud.KimiLLMModel{
		Model:            "moonshot-v1-8k",
		Temperature:      0,
		MaxTokens:        512,
		RateLimit:        100,
		MaxRetries:       0,
		TimeoutInSeconds: 5,
	}
	config.AgentModels["analyst"] = model
	config.AgentModels["reviewer"] = model

	config.PromptTemplates = cloud.PromptTemplates{
		SentimentPrompt: "Classify the sentiment of this review of \"{{.TITLE}}\".\n{{.SNIPPET}}\nExample: {{.EXAMPLE_JSON}}",
		ReviewPrompt:    "Write a {{.STYLE_GUIDANCE}} review of \"{{.TITLE}}\" ({{.YEAR}}) for {{.AUDIENCE_GUIDANCE}}. Themes: {{.THEMES}}. {{.SPOILER_GUIDANCE}} Limit: {{.MAX_LENGTH}} words.",
	}

	config.Styles = map[string]cloud.ReviewStyle{
		"professional": {Name: "Professional", Guidance: "polished"},
		"casual":       {Name: "Casual", Guidance: "conversational"},
		"brief":        {Name: "Brief", Guidance: "capsule"},
	}
	config.Audiences = map[string]cloud.Audience{
		"general":    {Name: "General", Guidance: "a broad audience"},
		"enthusiast": {Name: "Enthusiast", Guidance: "cinephiles"},
	}
	return config
}

// NewTestClients wires the production clients against the two fake
// servers.
func NewTestClients(config *cloud.Config, tmdb *FakeTMDB, kimi *FakeKimi) *cloud.ServiceClients {
	tmdbConfig := config.TMDB
	tmdbConfig.BaseURL = tmdb.Server.URL

	chatClient := cloud.NewChatClient("test-key", kimi.Server.URL, 10*time.Second)
	agentModels := make(map[string]*cloud.QuotaAwareChatModel)
	for name, modelConfig := range config.AgentModels {
		agentModels[name] = cloud.NewQuotaAwareChatModel(chatClient, modelConfig)
	}

	return &cloud.ServiceClients{
		TMDBClient:  cloud.NewTMDBClient("test-key", tmdbConfig),
		ChatClient:  chatClient,
		AgentModels: agentModels,
	}
}

// FakeTMDB is an httptest server speaking the subset of the TMDB wire
// format the service consumes. It knows two movies, The Shawshank
// Redemption under id 278 and The Godfather under id 238; searches for
// anything else return an empty result set.
type FakeTMDB struct {
	Server *httptest.Server
}

// Close shuts the fake down.
func (f *FakeTMDB) Close() { f.Server.Close() }

// NewFakeTMDB starts the fake metadata provider.
func NewFakeTMDB() *FakeTMDB {
	mux := http.NewServeMux()

	mux.HandleFunc("/search/movie", func(w http.ResponseWriter, r *http.Request) {
		query := strings.ToLower(r.URL.Query().Get("query"))
		if strings.Contains(query, "shawshank") {
			writeJSON(w, map[string]any{
				"results": []map[string]any{{
					"id": 278, "title": "The Shawshank Redemption",
					"release_date": "1994-09-23", "popularity": 88.5,
				}},
			})
			return
		}
		if strings.Contains(query, "godfather") {
			writeJSON(w, map[string]any{
				"results": []map[string]any{{
					"id": 238, "title": "The Godfather",
					"release_date": "1972-03-14", "popularity": 75.1,
				}},
			})
			return
		}
		writeJSON(w, map[string]any{"results": []any{}})
	})

	mux.HandleFunc("/movie/278", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"id":           278,
			"title":        "The Shawshank Redemption",
			"overview":     "Framed in the 1940s for the double murder of his wife and her lover, banker Andy Dufresne begins a life sentence at Shawshank prison.",
			"release_date": "1994-09-23",
			"runtime":      142,
			"vote_average": 8.7,
			"vote_count":   26000,
			"popularity":   88.5,
			"poster_path":  "/q6y0Go1tsGEsmtFryDOJo3dEmqu.jpg",
			"genres":       []map[string]any{{"name": "Drama"}, {"name": "Crime"}},
		})
	})

	mux.HandleFunc("/movie/278/credits", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"cast": []map[string]any{
				{"name": "Tim Robbins", "character": "Andy Dufresne"},
				{"name": "Morgan Freeman", "character": "Ellis Boyd 'Red' Redding"},
			},
			"crew": []map[string]any{
				{"name": "Frank Darabont", "job": "Director"},
				{"name": "Roger Deakins", "job": "Director of Photography"},
			},
		})
	})

	mux.HandleFunc("/movie/278/keywords", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"keywords": []map[string]any{{"name": "prison"}, {"name": "friendship"}, {"name": "hope"}},
		})
	})

	mux.HandleFunc("/movie/278/reviews", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"page": 1, "total_pages": 1,
			"results": []map[string]any{
				{"author": "critic-one", "content": "A stirring meditation on hope and institutional life. Among the finest films of its decade."},
				{"author": "critic-two", "content": "Patient, humane storytelling. The friendship at its core earns every minute of the runtime."},
			},
		})
	})

	mux.HandleFunc("/movie/238", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"id":           238,
			"title":        "The Godfather",
			"overview":     "Spanning the years 1945 to 1955, a chronicle of the fictional Italian-American Corleone crime family.",
			"release_date": "1972-03-14",
			"runtime":      175,
			"vote_average": 8.7,
			"vote_count":   21000,
			"popularity":   75.1,
			"poster_path":  "/3bhkrj58Vtu7enYsRolD1fZdja1.jpg",
			"genres":       []map[string]any{{"name": "Drama"}, {"name": "Crime"}},
		})
	})

	mux.HandleFunc("/movie/238/credits", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"cast": []map[string]any{
				{"name": "Marlon Brando", "character": "Don Vito Corleone"},
				{"name": "Al Pacino", "character": "Michael Corleone"},
			},
			"crew": []map[string]any{
				{"name": "Francis Ford Coppola", "job": "Director"},
				{"name": "Gordon Willis", "job": "Director of Photography"},
			},
		})
	})

	mux.HandleFunc("/movie/238/keywords", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"keywords": []map[string]any{{"name": "mafia"}, {"name": "family"}, {"name": "loyalty"}},
		})
	})

	mux.HandleFunc("/movie/238/reviews", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"page": 1, "total_pages": 1,
			"results": []map[string]any{
				{"author": "critic-three", "content": "An operatic portrait of family and power. Coppola's control of tone never wavers."},
				{"author": "critic-four", "content": "Loyalty and succession told with patience and menace. A towering piece of American cinema."},
			},
		})
	})

	mux.HandleFunc("/movie/popular", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"results": []map[string]any{
				{"id": 278, "title": "The Shawshank Redemption", "release_date": "1994-09-23", "vote_average": 8.7, "vote_count": 26000, "popularity": 88.5},
				{"id": 238, "title": "The Godfather", "release_date": "1972-03-14", "vote_average": 8.7, "vote_count": 21000, "popularity": 75.1},
			},
		})
	})

	return &FakeTMDB{Server: httptest.NewServer(mux)}
}

// FakeKimi is an httptest server speaking the OpenAI-compatible
// chat-completion wire format. It answers sentiment prompts with a fenced
// JSON classification (exercising the fence stripping in the transport
// helper) and any other prompt with canned review prose. Calls counts the
// completion requests served.
type FakeKimi struct {
	Server *httptest.Server
	calls  atomic.Int64
}

// Calls returns how many completion requests the fake has served.
func (f *FakeKimi) Calls() int64 { return f.calls.Load() }

// Close shuts the fake down.
func (f *FakeKimi) Close() { f.Server.Close() }

// NewFakeKimi starts the fake chat-completion endpoint.
func NewFakeKimi() *FakeKimi {
	fake := &FakeKimi{}

	mux := http.NewServeMux()
	mux.HandleFunc("/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		fake.calls.Add(1)

		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Messages) == 0 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		prompt := req.Messages[len(req.Messages)-1].Content

		content := "A patient, humane piece of storytelling anchored by its central performances. The film earns its reputation scene by scene and rewards a close watch without once straining for effect."
		if strings.Contains(prompt, "Classify the sentiment") {
			content = "```json\n{\"polarity\": \"positive\", \"themes\": [\"hope\", \"friendship\"]}\n```"
		}

		writeJSON(w, map[string]any{
			"choices": []map[string]any{{
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": "stop",
			}},
			"usage": map[string]any{"prompt_tokens": 120, "completion_tokens": 60, "total_tokens": 180},
		})
	})

	fake.Server = httptest.NewServer(mux)
	return fake
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
