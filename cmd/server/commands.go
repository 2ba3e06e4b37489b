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
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/wso2/commerce-trigger-service/internal/system/constants"
	"github.com/wso2/commerce-trigger-service/internal/system/database/migrations"
	"github.com/wso2/commerce-trigger-service/internal/system/database/provider"
	"github.com/wso2/commerce-trigger-service/internal/system/managers"
)

func newMigrateCommand() *cobra.Command {

	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			triggerConfig, err := bootstrap()
			if err != nil {
				return err
			}
			if triggerConfig.DataSource.Driver != constants.DriverPostgres {
				return fmt.Errorf("migrations need the postgres datasource, configured driver is %s",
					triggerConfig.DataSource.Driver)
			}
			dbClient, err := provider.NewDBProvider().GetDBClient()
			if err != nil {
				return err
			}
			defer func() { _ = provider.CloseDBClient() }()
			return migrations.Up(dbClient.DB())
		},
	}
}

func newSweepCommand() *cobra.Command {

	var once bool
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Fire elapsed-time and no-action rules whose wait has passed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			triggerConfig, err := bootstrap()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			container, err := managers.BuildServiceContainer(ctx, *triggerConfig)
			if err != nil {
				return err
			}
			defer func() { _ = container.Close(context.Background()) }()

			if !once {
				return container.Scheduler.Start(ctx)
			}
			result, err := container.Scheduler.RunOnce(ctx)
			if err != nil {
				return err
			}
			if result == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "sweep skipped: another instance holds the sweep lock")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rules=%d references=%d fired=%d replayed=%d\n",
				result.Rules, result.References, result.Fired, result.Replayed)
			return nil
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "Run a single sweep and exit")
	return cmd
}

func newRetryCommand() *cobra.Command {

	var ownerId string
	cmd := &cobra.Command{
		Use:   "retry <executionId>",
		Short: "Re-send a failed trigger execution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			triggerConfig, err := bootstrap()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			container, err := managers.BuildServiceContainer(ctx, *triggerConfig)
			if err != nil {
				return err
			}
			defer func() { _ = container.Close(context.Background()) }()

			execution, err := container.Dispatcher.Retry(ctx, ownerId, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", execution.ExecutionId, execution.Status)
			return nil
		},
	}
	cmd.Flags().StringVar(&ownerId, "owner", "", "Owner the execution belongs to")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}
