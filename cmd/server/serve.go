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
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/wso2/commerce-trigger-service/internal/system/log"
	"github.com/wso2/commerce-trigger-service/internal/system/managers"
	"github.com/wso2/commerce-trigger-service/internal/system/messaging"
	"github.com/wso2/commerce-trigger-service/internal/system/telemetry"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 20 * time.Second

func newServeCommand() *cobra.Command {

	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, event subscriber, trigger workers and elapsed-time sweep",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {

	triggerConfig, err := bootstrap()
	if err != nil {
		return err
	}
	logger := log.GetLogger()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := telemetry.InitTracer(triggerConfig.Telemetry.Enabled, triggerConfig.Telemetry.ServiceName)
	if err != nil {
		return err
	}
	defer func() { _ = shutdownTracer(context.Background()) }()

	container, err := managers.BuildServiceContainer(ctx, *triggerConfig)
	if err != nil {
		return err
	}
	defer func() { _ = container.Close(context.Background()) }()

	handler, err := managers.NewRouter(container)
	if err != nil {
		return err
	}

	serverAddr := fmt.Sprintf("%s:%d", triggerConfig.Addr.Host, triggerConfig.Addr.Port)
	ln, err := net.Listen("tcp", serverAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", serverAddr, err)
	}
	server := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	container.Workers.Start(ctx)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info(fmt.Sprintf("Trigger service started in: %s", serverAddr))
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("Shutting down trigger service")
		serverErr := server.Shutdown(shutdownCtx)
		// Drain queued events after ingestion has stopped.
		workerErr := container.Workers.Stop(shutdownCtx)
		return errors.Join(serverErr, workerErr)
	})
	if container.NATS != nil {
		subscriber := messaging.NewEventSubscriber(container.NATS, triggerConfig.NATS.EventsSubject, container.EventService)
		group.Go(func() error { return subscriber.Run(groupCtx) })
	}
	if triggerConfig.Sweep.Enabled {
		group.Go(func() error { return container.Scheduler.Start(groupCtx) })
	} else {
		logger.Info("Elapsed-time sweep is disabled")
	}

	if err := group.Wait(); err != nil {
		logger.Error("Trigger service stopped with an error", log.Error(err))
		return err
	}
	logger.Info("Trigger service stopped")
	return nil
}
