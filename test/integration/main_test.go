/*
 * Copyright (c) 2025, WSO2 LLC. (http://www.wso2.com).
 *
 * WSO2 LLC. licenses this file to you under the Apache License,
 * Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing,
 * software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
 * KIND, either express or implied.  See the License for the
 * specific language governing permissions and limitations
 * under the License.
 */

package integration

import (
	"context"
	"flag"
	"fmt"
	"os"
	"testing"

	"github.com/wso2/commerce-trigger-service/internal/system/config"
	"github.com/wso2/commerce-trigger-service/internal/system/database/provider"
	"github.com/wso2/commerce-trigger-service/internal/system/log"
	"github.com/wso2/commerce-trigger-service/test/setup"
)

var testDB *setup.TestDatabase

func TestMain(m *testing.M) {

	flag.Parse()
	if testing.Short() {
		fmt.Println("Skipping Postgres integration tests in short mode")
		os.Exit(0)
	}

	ctx := context.Background()
	conf := config.Config{
		Log: config.LogConfig{
			LogLevel: "DEBUG",
		},
	}
	config.ApplyDefaults(&conf)
	config.OverrideRuntime(conf)
	_ = log.Init("ERROR")

	var err error
	testDB, err = setup.SetupTestDB(ctx)
	if err != nil {
		fmt.Println("Skipping Postgres integration tests, no container provider:", err)
		os.Exit(0)
	}
	provider.UseDB(testDB.DB)

	code := m.Run()

	_ = testDB.Close(ctx)
	os.Exit(code)
}
