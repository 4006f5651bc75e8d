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

// Package main contains the API route definitions for the server. This
// file defines the statistics endpoint backing operational dashboards.
package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Dashboard configures the statistics routes. GET /stats reports a
// point-in-time census of the task table, which is what an operator watches
// while the worker pool drains a backlog.
func Dashboard(r *gin.RouterGroup) {
	stats := r.Group("/stats")
	{
		stats.GET("", func(c *gin.Context) {
			c.JSON(http.StatusOK, state.taskService.Stats())
		})
	}
}
