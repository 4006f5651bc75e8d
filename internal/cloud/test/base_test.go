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

// Package cloud_test exercises the upstream clients against local fakes
// speaking the real wire formats, so request construction, payload
// normalization, and error translation are tested without network access.
package cloud_test

import (
	"context"
	"os"
	"testing"

	"github.com/jaycherian/go-movie-review-agent/internal/cloud"
	test "github.com/jaycherian/go-movie-review-agent/internal/testutil"
)

var (
	ctx          context.Context
	config       *cloud.Config
	cloudClients *cloud.ServiceClients
	fakeTMDB     *test.FakeTMDB
	fakeKimi     *test.FakeKimi
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

	os.Exit(m.Run())
}
