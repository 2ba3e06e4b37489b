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

type AddrConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

type LogConfig struct {
	LogLevel string `yaml:"log_level"`
	Format   string `yaml:"format"`
}

type AuthConfig struct {
	CORSAllowedOrigins []string            `yaml:"cors_allowed_origins"`
	JWTSecret          string              `yaml:"jwt_secret"`
	Audience           string              `yaml:"audience"`
	RequiredScopes     map[string][]string `yaml:"required_scopes"`
}

type DataSourceConfig struct {
	Driver                 string `yaml:"driver"`
	Hostname               string `yaml:"hostname"`
	Port                   int    `yaml:"port"`
	Name                   string `yaml:"name"`
	Username               string `yaml:"username"`
	Password               string `yaml:"password"`
	SSLMode                string `yaml:"sslmode"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeSeconds int    `yaml:"conn_max_lifetime_seconds"`
}

type EventStoreConfig struct {
	Driver          string `yaml:"driver"`
	MongoURI        string `yaml:"mongo_uri"`
	MongoDatabase   string `yaml:"mongo_database"`
	MongoCollection string `yaml:"mongo_collection"`
}

type EngineConfig struct {
	Workers                int `yaml:"workers"`
	QueueSize              int `yaml:"queue_size"`
	DispatchTimeoutSeconds int `yaml:"dispatch_timeout_seconds"`
	DefaultCooldownHours   int `yaml:"default_cooldown_hours"`
	HistoryLookbackHours   int `yaml:"history_lookback_hours"`
}

type SweepConfig struct {
	Enabled         bool `yaml:"enabled"`
	IntervalSeconds int  `yaml:"interval_seconds"`
	WindowMinutes   int  `yaml:"window_minutes"`
	// Executions pending longer than this are failed by the sweep. Negative disables it.
	StalePendingMinutes int `yaml:"stale_pending_minutes"`
	// Events left unprocessed longer than this are evaluated by the sweep. Negative disables it.
	ReplayAfterMinutes int `yaml:"replay_after_minutes"`
}

type ChannelsConfig struct {
	MessageEndpoint  string `yaml:"message_endpoint"`
	DiscountEndpoint string `yaml:"discount_endpoint"`
	ProfileEndpoint  string `yaml:"profile_endpoint"`
	OnsiteEndpoint   string `yaml:"onsite_endpoint"`
	ContentEndpoint  string `yaml:"content_endpoint"`
	APIKey           string `yaml:"api_key"`
	TimeoutSeconds   int    `yaml:"timeout_seconds"`
	SegmentCacheTTL  int    `yaml:"segment_cache_ttl_seconds"`
}

type TrackingConfig struct {
	PublicBaseURL      string `yaml:"public_base_url"`
	DefaultRedirectURL string `yaml:"default_redirect_url"`
}

type NATSConfig struct {
	URL                    string `yaml:"url"`
	EventsSubject          string `yaml:"events_subject"`
	LifecycleSubjectPrefix string `yaml:"lifecycle_subject_prefix"`
}

type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
}

type Config struct {
	Addr       AddrConfig       `yaml:"addr"`
	Log        LogConfig        `yaml:"log"`
	Auth       AuthConfig       `yaml:"auth"`
	DataSource DataSourceConfig `yaml:"datasource"`
	EventStore EventStoreConfig `yaml:"event_store"`
	Engine     EngineConfig     `yaml:"engine"`
	Sweep      SweepConfig      `yaml:"sweep"`
	Channels   ChannelsConfig   `yaml:"channels"`
	Tracking   TrackingConfig   `yaml:"tracking"`
	NATS       NATSConfig       `yaml:"nats"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
}
