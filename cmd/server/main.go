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

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/wso2/commerce-trigger-service/internal/system/config"
	"github.com/wso2/commerce-trigger-service/internal/system/constants"
	"github.com/wso2/commerce-trigger-service/internal/system/log"
)

var triggerHome string

func main() {

	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {

	root := &cobra.Command{
		Use:           "trigger-server",
		Short:         "Behavioral trigger and execution engine for commerce stores",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}
	root.PersistentFlags().StringVar(&triggerHome, "home", "", "Path to trigger service home directory")
	root.AddCommand(newServeCommand(), newMigrateCommand(), newSweepCommand(), newRetryCommand())
	return root
}

// bootstrap loads env files and the deployment config, then initializes the
// runtime and the logger. Every command runs it first.
func bootstrap() (*config.Config, error) {

	home, err := resolveHome()
	if err != nil {
		return nil, err
	}

	envFiles, err := filepath.Glob(filepath.Join(home, "config", "*.env"))
	if err == nil && len(envFiles) > 0 {
		if err := godotenv.Load(envFiles...); err != nil {
			return nil, fmt.Errorf("failed to load env files: %w", err)
		}
	}

	triggerConfig, err := config.LoadConfig(home, constants.ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load deployment config: %w", err)
	}
	if err := config.InitializeRuntime(home, triggerConfig); err != nil {
		return nil, fmt.Errorf("failed to initialize trigger runtime: %w", err)
	}
	if err := log.Init(triggerConfig.Log.LogLevel, triggerConfig.Log.Format); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if len(envFiles) == 0 {
		log.GetLogger().Debug("No .env files found in config directory")
	}
	log.GetLogger().Info(fmt.Sprintf("Using trigger service home: %s", home))
	return triggerConfig, nil
}

func resolveHome() (string, error) {

	if triggerHome != "" {
		return triggerHome, nil
	}
	// If no flag is provided, use the current working directory.
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current working directory: %w", err)
	}
	return dir, nil
}
