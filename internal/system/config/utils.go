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

package config

import (
	"os"
	"path"

	"gopkg.in/yaml.v2"
)

const (
	defaultWorkers              = 8
	defaultQueueSize            = 1000
	defaultDispatchTimeout      = 10
	defaultCooldownHours        = 24
	defaultHistoryLookbackHours = 720
	defaultSweepInterval        = 300
	defaultSweepWindowMinutes   = 10
	defaultStalePendingMinutes  = 30
	defaultReplayAfterMinutes   = 5
	defaultChannelTimeout       = 10
	defaultSegmentCacheTTL      = 60
)

// LoadConfig reads the deployment file under the given home directory, expands
// environment variables and applies defaults for unset engine settings.
func LoadConfig(home, filePath string) (*Config, error) {
	file, err := os.ReadFile(path.Join(home, filePath))
	if err != nil {
		return nil, err
	}

	expanded := os.ExpandEnv(string(file))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(&cfg)
	return &cfg, nil
}

// ApplyDefaults fills zero valued settings with their defaults.
func ApplyDefaults(cfg *Config) {

	if cfg.Log.LogLevel == "" {
		cfg.Log.LogLevel = "INFO"
	}
	if cfg.DataSource.Driver == "" {
		cfg.DataSource.Driver = "postgres"
	}
	if cfg.EventStore.Driver == "" {
		cfg.EventStore.Driver = cfg.DataSource.Driver
	}
	if cfg.EventStore.MongoCollection == "" {
		cfg.EventStore.MongoCollection = "behavior_events"
	}
	if cfg.Engine.Workers <= 0 {
		cfg.Engine.Workers = defaultWorkers
	}
	if cfg.Engine.QueueSize <= 0 {
		cfg.Engine.QueueSize = defaultQueueSize
	}
	if cfg.Engine.DispatchTimeoutSeconds <= 0 {
		cfg.Engine.DispatchTimeoutSeconds = defaultDispatchTimeout
	}
	if cfg.Engine.DefaultCooldownHours <= 0 {
		cfg.Engine.DefaultCooldownHours = defaultCooldownHours
	}
	if cfg.Engine.HistoryLookbackHours <= 0 {
		cfg.Engine.HistoryLookbackHours = defaultHistoryLookbackHours
	}
	if cfg.Sweep.IntervalSeconds <= 0 {
		cfg.Sweep.IntervalSeconds = defaultSweepInterval
	}
	if cfg.Sweep.WindowMinutes <= 0 {
		cfg.Sweep.WindowMinutes = defaultSweepWindowMinutes
	}
	if cfg.Sweep.StalePendingMinutes < 0 {
		cfg.Sweep.StalePendingMinutes = 0
	} else if cfg.Sweep.StalePendingMinutes == 0 {
		cfg.Sweep.StalePendingMinutes = defaultStalePendingMinutes
	}
	if cfg.Sweep.ReplayAfterMinutes < 0 {
		cfg.Sweep.ReplayAfterMinutes = 0
	} else if cfg.Sweep.ReplayAfterMinutes == 0 {
		cfg.Sweep.ReplayAfterMinutes = defaultReplayAfterMinutes
	}
	if cfg.Channels.TimeoutSeconds <= 0 {
		cfg.Channels.TimeoutSeconds = defaultChannelTimeout
	}
	if cfg.Channels.SegmentCacheTTL <= 0 {
		cfg.Channels.SegmentCacheTTL = defaultSegmentCacheTTL
	}
	if cfg.NATS.EventsSubject == "" {
		cfg.NATS.EventsSubject = "commerce.behavior.>"
	}
	if cfg.NATS.LifecycleSubjectPrefix == "" {
		cfg.NATS.LifecycleSubjectPrefix = "triggers.execution"
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "commerce-trigger-service"
	}
	if cfg.Auth.Audience == "" {
		cfg.Auth.Audience = "commerce-trigger-service"
	}
}

// OverrideRuntime replaces the runtime configuration. Used by tests.
func OverrideRuntime(conf Config) {
	runtimeConfig = &TriggerRuntime{
		Config: conf,
	}
}
