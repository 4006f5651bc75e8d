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

// Package workflow_test contains integration tests for the review
// generation pipeline. This file provides the shared setup via TestMain:
// the test configuration, the two fake upstream servers, and the
// production clients wired against them. The fakes live for the whole
// suite; tests that need fresh call counts start their own.
package workflow_test

import (
	"context"
	"os"
	"testing"

	"go.opentelemetry.io/contrib/bridges/otelslog"

	"github.com/jaycherian/go-movie-review-agent/internal/cloud"
	test "github.com/jaycherian/go-movie-review-agent/internal/testutil"
)

// Shared suite state, initialized once in TestMain.
var (
	ctx          context.Context
	config       *cloud.Config
	cloudClients *cloud.ServiceClients
	fakeTMDB     *test.FakeTMDB
	fakeKimi     *test.FakeKimi

	logger = otelslog.NewLogger("github.com/jaycherian/go-movie-review-agent/tests/workflow")
)

func TestMain(m *testing.M) {
	var cancel context.CancelFunc
	ctx, cancel = context.WithCancel(context.Background())
	defer cancel()

	fakeTMDB = test.NewFakeTMDB()
	defer fakeTMDB.Close()
	fakeKimi = test.NewFakeKimi()
	defer fakeKimi.Close()

	config = test.NewTestConfig()
	cloudClients = test.NewTestClients(config, fakeTMDB, fakeKimi)

	logger.Info("completed test setup")

	exitCode := m.Run()

	os.Exit(exitCode)
}
