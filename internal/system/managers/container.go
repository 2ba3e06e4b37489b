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

package managers

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	actionService "github.com/wso2/commerce-trigger-service/internal/actions/service"
	analyticsService "github.com/wso2/commerce-trigger-service/internal/analytics/service"
	eventModel "github.com/wso2/commerce-trigger-service/internal/behavior_events/model"
	eventService "github.com/wso2/commerce-trigger-service/internal/behavior_events/service"
	eventStore "github.com/wso2/commerce-trigger-service/internal/behavior_events/store"
	healthService "github.com/wso2/commerce-trigger-service/internal/health_check/service"
	"github.com/wso2/commerce-trigger-service/internal/system/client"
	"github.com/wso2/commerce-trigger-service/internal/system/config"
	"github.com/wso2/commerce-trigger-service/internal/system/constants"
	dbClient "github.com/wso2/commerce-trigger-service/internal/system/database/client"
	"github.com/wso2/commerce-trigger-service/internal/system/database/lock"
	"github.com/wso2/commerce-trigger-service/internal/system/database/provider"
	"github.com/wso2/commerce-trigger-service/internal/system/log"
	"github.com/wso2/commerce-trigger-service/internal/system/messaging"
	"github.com/wso2/commerce-trigger-service/internal/system/schedulers"
	"github.com/wso2/commerce-trigger-service/internal/system/workers"
	engine "github.com/wso2/commerce-trigger-service/internal/trigger_engine/service"
	execService "github.com/wso2/commerce-trigger-service/internal/trigger_executions/service"
	execStore "github.com/wso2/commerce-trigger-service/internal/trigger_executions/store"
	ruleService "github.com/wso2/commerce-trigger-service/internal/trigger_rules/service"
	ruleStore "github.com/wso2/commerce-trigger-service/internal/trigger_rules/store"
)

// ServiceContainer holds every wired component of a running trigger service.
type ServiceContainer struct {
	Config config.Config

	Events     eventStore.EventStoreInterface
	Rules      ruleStore.RuleStoreInterface
	Executions execStore.ExecutionStoreInterface

	Tracker    *execService.ExecutionTracker
	Dispatcher *actionService.ActionDispatcher
	Engine     *engine.TriggerEngine
	Workers    *workers.TriggerWorkerPool
	Scheduler  *schedulers.SweepScheduler

	EventService *eventService.BehaviorEventService
	RuleService  *ruleService.TriggerRuleService
	Aggregator   *analyticsService.AnalyticsAggregator
	Health       *healthService.HealthCheckService

	// NATS is nil when no broker is configured.
	NATS *nats.Conn

	closers []func(context.Context) error
}

// BuildServiceContainer opens the configured stores and connections and wires
// the trigger pipeline on top of them. Close releases what was opened, also
// when an error is returned part way.
func BuildServiceContainer(ctx context.Context, cfg config.Config) (c *ServiceContainer, err error) {

	c = &ServiceContainer{Config: cfg}
	defer func() {
		if err != nil {
			_ = c.Close(context.Background())
			c = nil
		}
	}()

	var checks []healthService.ReadinessCheck
	var locker schedulers.Locker

	var db dbClient.DBClientInterface
	if cfg.DataSource.Driver == constants.DriverPostgres || cfg.EventStore.Driver == constants.DriverPostgres {
		db, err = provider.NewDBProvider().GetDBClient()
		if err != nil {
			return c, err
		}
		c.closers = append(c.closers, func(context.Context) error { return provider.CloseDBClient() })
		checks = append(checks, healthService.ReadinessCheck{Name: "database", Check: db.DB().PingContext})
	}

	switch cfg.DataSource.Driver {
	case constants.DriverPostgres:
		c.Rules = ruleStore.NewPostgresRuleStore(db)
		c.Executions = execStore.NewPostgresExecutionStore(db)
		locker = lock.NewPostgresLock(db.DB())
	case constants.DriverMemory:
		c.Rules = ruleStore.NewMemoryRuleStore()
		c.Executions = execStore.NewMemoryExecutionStore()
	default:
		return c, fmt.Errorf("unsupported datasource driver: %s", cfg.DataSource.Driver)
	}

	switch cfg.EventStore.Driver {
	case constants.DriverPostgres:
		c.Events = eventStore.NewPostgresEventStore(db)
	case constants.DriverMongo:
		mongoStore, disconnect, mongoErr := eventStore.NewMongoEventStore(ctx, cfg.EventStore.MongoURI,
			cfg.EventStore.MongoDatabase, cfg.EventStore.MongoCollection)
		if mongoErr != nil {
			return c, mongoErr
		}
		c.closers = append(c.closers, disconnect)
		checks = append(checks, healthService.ReadinessCheck{Name: "event store", Check: mongoStore.Ping})
		c.Events = mongoStore
	case constants.DriverMemory:
		c.Events = eventStore.NewMemoryEventStore()
	default:
		return c, fmt.Errorf("unsupported event store driver: %s", cfg.EventStore.Driver)
	}

	var publisher execService.LifecyclePublisher = execService.NoopPublisher{}
	if cfg.NATS.URL != "" {
		c.NATS, err = messaging.Connect(cfg.NATS.URL)
		if err != nil {
			return c, err
		}
		conn := c.NATS
		c.closers = append(c.closers, func(context.Context) error { conn.Close(); return nil })
		checks = append(checks, healthService.ReadinessCheck{Name: "nats", Check: func(context.Context) error {
			if !conn.IsConnected() {
				return fmt.Errorf("connection status is %s", conn.Status())
			}
			return nil
		}})
		publisher = messaging.NewLifecyclePublisher(conn, cfg.NATS.LifecycleSubjectPrefix)
	} else {
		log.GetLogger().Info("NATS is not configured, execution lifecycle events will not be published")
	}

	httpClient := client.NewOutboundHTTPClient(time.Duration(cfg.Channels.TimeoutSeconds) * time.Second)
	channels := cfg.Channels
	profiles := client.NewProfileClient(channels.ProfileEndpoint, channels.APIKey, httpClient,
		time.Duration(channels.SegmentCacheTTL)*time.Second)
	registry := actionService.NewRegistry(actionService.Channels{
		Messages:  client.NewMessageClient(channels.MessageEndpoint, channels.APIKey, httpClient),
		Content:   client.NewContentClient(channels.ContentEndpoint, channels.APIKey, httpClient),
		Discounts: client.NewDiscountClient(channels.DiscountEndpoint, channels.APIKey, httpClient),
		Profiles:  profiles,
		Onsite:    client.NewOnsiteClient(channels.OnsiteEndpoint, channels.APIKey, httpClient),
		Webhooks:  client.NewWebhookClient(httpClient),
	})

	c.Tracker = execService.GetExecutionTracker(c.Executions, publisher)
	guard := engine.NewCooldownGuard(c.Tracker)
	evaluator := engine.NewConditionEvaluator(profiles, time.Duration(cfg.Engine.HistoryLookbackHours)*time.Hour)
	c.Dispatcher = actionService.GetActionDispatcher(registry, guard, c.Tracker, c.Rules, c.Events,
		actionService.DispatcherConfig{
			Timeout:         time.Duration(cfg.Engine.DispatchTimeoutSeconds) * time.Second,
			TrackingBaseURL: cfg.Tracking.PublicBaseURL,
		})
	c.Engine = engine.NewTriggerEngine(c.Rules, c.Events, evaluator, guard, c.Dispatcher)

	triggerEngine := c.Engine
	c.Workers = workers.NewTriggerWorkerPool(cfg.Engine.Workers, cfg.Engine.QueueSize,
		func(ctx context.Context, event *eventModel.BehaviorEvent) error {
			_, err := triggerEngine.Process(ctx, event)
			return err
		})
	c.Scheduler = schedulers.NewSweepScheduler(c.Engine, c.Tracker, locker,
		time.Duration(cfg.Sweep.IntervalSeconds)*time.Second,
		time.Duration(cfg.Sweep.WindowMinutes)*time.Minute,
		time.Duration(cfg.Sweep.StalePendingMinutes)*time.Minute).
		WithReplay(time.Duration(cfg.Sweep.ReplayAfterMinutes) * time.Minute)

	c.EventService = eventService.GetBehaviorEventService(c.Events, c.Workers)
	c.RuleService = ruleService.GetTriggerRuleService(c.Rules, cfg.Engine.DefaultCooldownHours)
	c.Aggregator = analyticsService.GetAnalyticsAggregator(c.Tracker)
	c.Health = healthService.GetHealthCheckService(checks...)
	return c, nil
}

// Close releases connections in the reverse order they were opened.
func (c *ServiceContainer) Close(ctx context.Context) error {

	var firstErr error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	c.closers = nil
	return firstErr
}
