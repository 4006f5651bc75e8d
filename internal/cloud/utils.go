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
// external services. This file contains the general-purpose helpers:
//
//   - fileExists: reports whether a file exists.
//   - LoadConfig: hierarchical configuration loader. It reads a base TOML
//     file and then overwrites values with an environment-specific file
//     (e.g. .env.local.toml, .env.test.toml) selected by an environment
//     variable.
//   - GenerateChatResponse: wrapper for chat-completion calls that records
//     token-usage metrics, applies the configured retry budget, and strips
//     markdown code fences from the model output.
package cloud

import (
	"context"
	"errors"
	"log"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel/metric"
)

// Configuration constants: file naming for the layered TOML loader and the
// environment variables that select the config directory, the runtime
// context, and the external-service credentials. Credentials are read from
// the environment only, never from a configuration file.
const (
	ConfigFileBaseName  = ".env"                  // Base name for configuration files (e.g. ".env.toml").
	ConfigFileExtension = ".toml"                 // Extension for configuration files.
	ConfigSeparator     = "."                     // Separator in config file names (e.g. ".env.local.toml").
	EnvConfigFilePrefix = "REVIEW_CONFIG_PREFIX"  // Environment variable naming the config directory.
	EnvConfigRuntime    = "REVIEW_RUNTIME"        // Environment variable naming the runtime context (e.g. "local", "test", "prod").
	EnvKimiAPIKey       = "KIMI_API_KEY"          // Environment variable holding the chat-completion API key.
	EnvKimiBaseURL      = "KIMI_BASE_URL"         // Optional override for the chat-completion endpoint.
	EnvTMDBAPIKey       = "TMDB_API_KEY"          // Environment variable holding the metadata-provider API key.
	DefaultKimiBaseURL  = "https://api.moonshot.cn/v1"
)

// fileExists reports whether a file or directory exists at the given path.
func fileExists(in string) bool {
	_, err := os.Stat(in)
	return !errors.Is(err, os.ErrNotExist)
}

// LoadConfig provides a hierarchical configuration loading mechanism. It
// first loads a base configuration file and then overwrites its values with
// an environment-specific configuration file. The directory and runtime are
// determined by the EnvConfigFilePrefix and EnvConfigRuntime environment
// variables; the runtime defaults to "test" so test runs need no setup.
//
// A .env file next to the config files, when present, is loaded into the
// process environment first. This is where local developers keep their API
// keys; deployed environments inject the same variables directly.
func LoadConfig(baseConfig interface{}) {
	configurationFilePrefix := os.Getenv(EnvConfigFilePrefix)
	if len(configurationFilePrefix) > 0 && !strings.HasSuffix(configurationFilePrefix, string(os.PathSeparator)) {
		configurationFilePrefix = configurationFilePrefix + string(os.PathSeparator)
	}

	// Credentials travel through the environment. godotenv never overrides
	// variables that are already set, so real deployments win over .env.
	dotEnvFileName := configurationFilePrefix + ConfigFileBaseName
	if fileExists(dotEnvFileName) {
		if err := godotenv.Load(dotEnvFileName); err != nil {
			log.Printf("failed to load %s: %v", dotEnvFileName, err)
		}
	}

	runtimeEnvironment := os.Getenv(EnvConfigRuntime)
	if runtimeEnvironment == "" {
		runtimeEnvironment = "test"
	}

	baseConfigFileName := configurationFilePrefix + ConfigFileBaseName + ConfigFileExtension
	envConfigFileName := configurationFilePrefix + ConfigFileBaseName + ConfigSeparator + runtimeEnvironment + ConfigFileExtension

	if fileExists(baseConfigFileName) {
		if _, err := toml.DecodeFile(baseConfigFileName, baseConfig); err != nil {
			log.Fatalf("failed to decode base configuration file %s with error: %s", baseConfigFileName, err)
		}
	}

	// Values in the runtime-specific file overwrite the base values.
	if fileExists(envConfigFileName) {
		if _, err := toml.DecodeFile(envConfigFileName, baseConfig); err != nil {
			log.Fatalf("failed to decode environment configuration file: %s with error: %s", envConfigFileName, err)
		}
	}
}

// GenerateChatResponse executes one prompt against a rate-limited chat
// model, recording token usage and retries on the supplied counters. The
// retry budget comes from the model's configuration; the default of zero
// keeps a single upstream attempt per pipeline stage, so a failure surfaces
// immediately instead of stretching the task's running window.
//
// The returned text has any markdown code fences stripped, since chat
// models routinely wrap JSON answers in ```json blocks.
func GenerateChatResponse(
	ctx context.Context,
	inputTokenCounter metric.Int64Counter,
	outputTokenCounter metric.Int64Counter,
	retryCounter metric.Int64Counter,
	tryCount int,
	model *QuotaAwareChatModel,
	prompt string) (value string, err error) {
	resp, usage, err := model.GenerateContent(ctx, prompt)

	if err != nil {
		if tryCount < model.MaxRetries {
			retryCounter.Add(ctx, 1)
			return GenerateChatResponse(ctx, inputTokenCounter, outputTokenCounter, retryCounter, tryCount+1, model, prompt)
		}
		return "", err
	}

	inputTokenCounter.Add(ctx, int64(usage.PromptTokens))
	outputTokenCounter.Add(ctx, int64(usage.CompletionTokens))

	value = strings.TrimSpace(resp)
	value = strings.TrimPrefix(value, "```json")
	value = strings.TrimPrefix(value, "```")
	value = strings.TrimSuffix(value, "```")
	return strings.TrimSpace(value), nil
}
