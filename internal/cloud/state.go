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
// external services. This file bundles the initialized clients into a
// single ServiceClients container, a small dependency-injection struct
// created once at startup and shared by the workflows and API handlers.
//
// Logic flow:
//  1. NewServiceClients runs at application startup with the loaded Config.
//  2. It reads the API credentials from the process environment. Missing
//     credentials fail startup; they are never defaulted or embedded.
//  3. It builds the metadata-provider client and one rate-limited chat
//     model per [agent_models] entry in the configuration.
package cloud

import (
	"context"
	"fmt"
	"os"
	"time"
)

// ServiceClients is the container for all external-service clients. It is
// created once and shared; all of its clients are safe for concurrent use.
type ServiceClients struct {
	TMDBClient  *TMDBClient                     // Client for the movie-metadata provider.
	ChatClient  *ChatClient                     // Shared transport for the chat-completion endpoint.
	AgentModels map[string]*QuotaAwareChatModel // Rate-limited chat models keyed by a logical name from the config.
}

// NewServiceClients initializes the external-service clients from the
// configuration and the process environment.
func NewServiceClients(_ context.Context, config *Config) (*ServiceClients, error) {
	kimiAPIKey := os.Getenv(EnvKimiAPIKey)
	if kimiAPIKey == "" {
		return nil, fmt.Errorf("missing required environment variable %s", EnvKimiAPIKey)
	}
	tmdbAPIKey := os.Getenv(EnvTMDBAPIKey)
	if tmdbAPIKey == "" {
		return nil, fmt.Errorf("missing required environment variable %s", EnvTMDBAPIKey)
	}

	kimiBaseURL := os.Getenv(EnvKimiBaseURL)
	if kimiBaseURL == "" {
		kimiBaseURL = DefaultKimiBaseURL
	}

	// The transport timeout is a backstop; each model carries its own
	// per-call deadline from its configuration.
	maxTimeout := 60
	for _, m := range config.AgentModels {
		if m.TimeoutInSeconds > maxTimeout {
			maxTimeout = m.TimeoutInSeconds
		}
	}
	chatClient := NewChatClient(kimiAPIKey, kimiBaseURL, time.Duration(maxTimeout+5)*time.Second)

	agentModels := make(map[string]*QuotaAwareChatModel)
	for name, modelConfig := range config.AgentModels {
		agentModels[name] = NewQuotaAwareChatModel(chatClient, modelConfig)
	}

	return &ServiceClients{
		TMDBClient:  NewTMDBClient(tmdbAPIKey, config.TMDB),
		ChatClient:  chatClient,
		AgentModels: agentModels,
	}, nil
}
