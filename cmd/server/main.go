// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
// *****************************************************************************************************//
// Package main is the entry point for the movie review agent server.
//
// This application runs a web server using the Gin framework exposing a
// REST API for asynchronous movie review generation: clients submit a
// title, poll the resulting task, and fetch the generated review once the
// pipeline finishes. Synchronous endpoints cover metadata search, the
// popularity chart, and the archive of completed reviews. The server is
// instrumented with OpenTelemetry for logging, tracing, and metrics.
//
// Functions:
//   - main: Sets up configuration, telemetry, state, routes, and graceful
//     shutdown.
//   - ReviewRouter: Routes for the asynchronous review task lifecycle.
//   - SearchRouter: Routes for synchronous metadata queries.
//   - writeError: Maps taxonomy errors onto HTTP statuses.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/jaycherian/go-movie-review-agent/internal/core/model"
	"github.com/jaycherian/go-movie-review-agent/internal/core/services"
	"github.com/jaycherian/go-movie-review-agent/internal/telemetry"
)

// main orchestrates the setup of logging, telemetry, configuration, the
// service clients and worker pool, the web server, and graceful shutdown.
func main() {
	telemetry.SetupLogging()
	slog.Info("Logging initialized")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	config := GetConfig()

	otelShutdown, err := telemetry.SetupOpenTelemetry(ctx, config)
	if err != nil {
		slog.Error("Failed to setup OpenTelemetry", "error", err)
		log.Fatal(err)
	}
	slog.Info("Tracing initialized")

	InitState(ctx)
	slog.Info("Initialized State")

	r := gin.Default()

	// Trace every incoming request and allow browser clients during
	// development.
	r.Use(otelgin.Middleware(config.Application.Name))
	r.Use(cors.Default())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Minimal browser UI for manual testing.
	r.StaticFile("/", "./web/index.html")

	apiV1 := r.Group("/api/v1")
	{
		ReviewRouter(apiV1)
		SearchRouter(apiV1)
		Dashboard(apiV1)
	}

	port := config.Application.Port
	if port == 0 {
		port = 8080
	}
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      r,
		ReadTimeout:  20 * time.Second,
		WriteTimeout: 20 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to listen: ", "error", err)
		}
	}()
	slog.Info("Server Ready", "port", port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutdown Server ...")

	// Give active requests a bounded window to complete.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server Shutdown Failed:", "error", err)
	}

	// Stop the worker pool and flush telemetry after the HTTP surface is
	// down.
	state.taskService.Close()
	if state.historyService != nil {
		_ = state.historyService.Close()
	}
	if err := otelShutdown(shutdownCtx); err != nil {
		slog.Error("telemetry shutdown failed", "error", err)
	}

	log.Println("Server exiting")
}

// writeError maps a taxonomy error to its HTTP status and a sanitized JSON
// body. Only the taxonomy kind and the application-authored message are
// exposed; wrapped upstream errors never reach the client.
func writeError(c *gin.Context, err error) {
	var status int
	kind := model.KindOf(err)
	switch kind {
	case model.KindValidation:
		status = http.StatusUnprocessableEntity
	case model.KindNotFound, model.KindTaskNotFound:
		status = http.StatusNotFound
	case model.KindNotReady:
		status = http.StatusTooEarly
	case model.KindUpstream:
		if model.IsTimeout(err) {
			status = http.StatusGatewayTimeout
		} else {
			status = http.StatusBadGateway
		}
	default:
		status = http.StatusBadGateway
	}

	message := "request failed"
	var appErr *model.Error
	if errors.As(err, &appErr) {
		message = appErr.Message
	}
	c.JSON(status, gin.H{"error": gin.H{"kind": kind, "message": message}})
}

// ReviewRouter sets up the asynchronous review task endpoints:
//   - POST /review: submit a request, answer 202 with the task id.
//   - POST /review/batch: submit several movies at once, answer 202 with
//     the batch id and the member task ids.
//   - GET /review/status/:id: poll the task's lifecycle state.
//   - GET /review/result/:id: fetch the terminal outcome; answers 425 Too
//     Early while the task is still pending or running.
//   - GET /review/batch/status/:id: poll the aggregate batch state.
//   - GET /review/batch/result/:id: fetch the combined batch outcome,
//     including the comparison analysis when one was requested.
//   - GET /review/history: list recently completed reviews from the
//     archive.
func ReviewRouter(r *gin.RouterGroup) {
	review := r.Group("/review")
	{
		review.POST("", func(c *gin.Context) {
			var request model.ReviewRequest
			if err := c.ShouldBindJSON(&request); err != nil {
				writeError(c, model.Validation("request body is not valid JSON for a review request"))
				return
			}
			taskID, err := state.taskService.Submit(request)
			if err != nil {
				writeError(c, err)
				return
			}
			c.JSON(http.StatusAccepted, gin.H{"task_id": taskID, "state": model.TaskPending})
		})

		review.POST("/batch", func(c *gin.Context) {
			var request model.BatchReviewRequest
			if err := c.ShouldBindJSON(&request); err != nil {
				writeError(c, model.Validation("request body is not valid JSON for a batch review request"))
				return
			}
			batchID, taskIDs, err := state.batchService.Submit(request)
			if err != nil {
				writeError(c, err)
				return
			}
			c.JSON(http.StatusAccepted, gin.H{"batch_id": batchID, "task_ids": taskIDs, "state": model.TaskPending})
		})

		review.GET("/batch/status/:id", func(c *gin.Context) {
			batchState, err := state.batchService.Status(c.Param("id"))
			if err != nil {
				writeError(c, err)
				return
			}
			c.JSON(http.StatusOK, gin.H{"batch_id": c.Param("id"), "state": batchState})
		})

		review.GET("/batch/result/:id", func(c *gin.Context) {
			result, err := state.batchService.Result(c.Param("id"))
			if err != nil {
				writeError(c, err)
				return
			}
			c.JSON(http.StatusOK, result)
		})

		review.GET("/status/:id", func(c *gin.Context) {
			taskState, err := state.taskService.Status(c.Param("id"))
			if err != nil {
				writeError(c, err)
				return
			}
			c.JSON(http.StatusOK, gin.H{"task_id": c.Param("id"), "state": taskState})
		})

		review.GET("/result/:id", func(c *gin.Context) {
			result, err := state.taskService.Result(c.Param("id"))
			if err != nil {
				writeError(c, err)
				return
			}
			c.JSON(http.StatusOK, result)
		})

		review.GET("/history", func(c *gin.Context) {
			if state.historyService == nil {
				c.JSON(http.StatusOK, []any{})
				return
			}
			limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
			if err != nil {
				limit = 10
			}
			entries, err := state.historyService.Recent(c.Request.Context(), limit)
			if err != nil {
				slog.Error("failed to read history", "error", err)
				c.Status(http.StatusInternalServerError)
				return
			}
			if entries == nil {
				entries = []*services.HistoryEntry{}
			}
			c.JSON(http.StatusOK, entries)
		})
	}
}

// SearchRouter sets up the synchronous metadata endpoints:
//   - GET /search?query=<t>&year=<y>: resolve a title to its metadata.
//   - GET /popular?page=<n>: one page of the provider popularity chart.
func SearchRouter(r *gin.RouterGroup) {
	r.GET("/search", func(c *gin.Context) {
		title := c.Query("query")
		if len(title) == 0 {
			writeError(c, model.Validation("query parameter is required"))
			return
		}
		year, err := strconv.Atoi(c.DefaultQuery("year", "0"))
		if err != nil {
			year = 0
		}
		metadata, err := state.searchService.Search(c.Request.Context(), title, year)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, metadata)
	})

	r.GET("/popular", func(c *gin.Context) {
		page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
		if err != nil {
			page = 1
		}
		movies, err := state.searchService.Popular(c.Request.Context(), page)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, movies)
	})
}
