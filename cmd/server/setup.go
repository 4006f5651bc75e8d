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

// Package main contains the setup and initialization logic for the
// application's state: a centralized state manager holding the
// configuration, the external-service clients, the review workflow, and
// the application services built on top of them.
//
// Functions:
//   - SetupOS: Points the configuration loader at the config directory and
//     the runtime environment.
//   - GetConfig: Singleton loader for the TOML configuration.
//   - InitState: Builds the service clients, the review workflow, and the
//     task, batch, search, and history services, and starts the worker pool.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/jaycherian/go-movie-review-agent/internal/cloud"
	"github.com/jaycherian/go-movie-review-agent/internal/core/services"
	"github.com/jaycherian/go-movie-review-agent/internal/core/workflow"
)

// Logical model names expected in the [agent_models] configuration block.
const (
	analystModelName  = "analyst"
	reviewerModelName = "reviewer"
)

// StateManager holds all the shared dependencies for the application,
// acting as a centralized container for service clients and configuration.
type StateManager struct {
	config         *cloud.Config
	cloud          *cloud.ServiceClients
	reviewWorkflow *workflow.ReviewWorkflow
	taskService    *services.TaskService
	batchService   *services.BatchService
	searchService  *services.SearchService
	historyService *services.HistoryService
}

// state is the single package-level StateManager instance.
var state = &StateManager{}

// SetupOS sets the environment variables the configuration loader uses to
// find the TOML files. Variables already present in the environment (as in
// a deployed container) are left alone.
func SetupOS() (err error) {
	if os.Getenv(cloud.EnvConfigFilePrefix) == "" {
		if err = os.Setenv(cloud.EnvConfigFilePrefix, "configs"); err != nil {
			return err
		}
	}
	if os.Getenv(cloud.EnvConfigRuntime) == "" {
		err = os.Setenv(cloud.EnvConfigRuntime, "local")
	}
	return err
}

// GetConfig provides a singleton instance of the application
// configuration, loading it from the TOML files on first use.
func GetConfig() *cloud.Config {
	if state.config == nil {
		if err := SetupOS(); err != nil {
			log.Fatalf("failed to set up environment: %v\n", err)
		}
		config := cloud.NewConfig()
		cloud.LoadConfig(&config)
		state.config = config
	}
	return state.config
}

// InitState initializes the entire application state: external-service
// clients, the review workflow, the optional history archive, and the task
// and search services. The task service's worker pool starts here and runs
// until ctx is cancelled.
func InitState(ctx context.Context) {
	config := GetConfig()

	cloudClients, err := cloud.NewServiceClients(ctx, config)
	if err != nil {
		panic(err)
	}
	state.cloud = cloudClients

	state.reviewWorkflow = workflow.NewReviewWorkflow(config, cloudClients, analystModelName, reviewerModelName)

	if config.Application.HistoryDatabase != "" {
		historyService, err := services.NewHistoryService(config.Application.HistoryDatabase)
		if err != nil {
			panic(err)
		}
		state.historyService = historyService
	} else {
		slog.Warn("no history database configured; completed reviews will not be archived")
	}

	state.taskService = services.NewTaskService(
		state.reviewWorkflow,
		state.historyService,
		config.Application.ThreadPoolSize,
		config.Application.TaskBacklog,
	)
	state.taskService.Start(ctx)

	state.batchService = services.NewBatchService(state.taskService)
	state.searchService = services.NewSearchService(cloudClients.TMDBClient)
}
