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

package constants

const ApiBasePath = "/api/v1"
const EventsApiPath = "events"
const TriggerRulesApiPath = "trigger-rules"
const TriggerExecutionsApiPath = "trigger-executions"
const AnalyticsApiPath = "analytics"
const TrackingBasePath = "/track"
const ConfigFile = "/repository/conf/deployment.yaml"
const TraceIDHeader = "X-Trace-Id"

type contextKey string

const (
	TenantContextKey  contextKey = "tenant"
	TraceIDContextKey contextKey = "trace_id"
	ClaimsContextKey  contextKey = "claims"
)

// AnonymousCustomer is the customer key used for events without an identity.
const AnonymousCustomer = ""

// Behavior event types.
const (
	EventProductView    = "product_view"
	EventCartAdd        = "cart_add"
	EventCartAbandon    = "cart_abandon"
	EventCheckoutStart  = "checkout_start"
	EventOrderPlaced    = "order_placed"
	EventOrderFulfilled = "order_fulfilled"
	EventPageVisit      = "page_visit"
	EventReturnVisit    = "return_visit"
)

var AllowedEventTypes = map[string]bool{
	EventProductView:    true,
	EventCartAdd:        true,
	EventCartAbandon:    true,
	EventCheckoutStart:  true,
	EventOrderPlaced:    true,
	EventOrderFulfilled: true,
	EventPageVisit:      true,
	EventReturnVisit:    true,
}

// Trigger condition types.
const (
	ConditionValueGte     = "value_gte"
	ConditionValueLte     = "value_lte"
	ConditionCountGte     = "count_gte"
	ConditionIsFirst      = "is_first"
	ConditionIsReturn     = "is_return"
	ConditionTimeElapsed  = "time_elapsed"
	ConditionNoAction     = "no_action"
	ConditionSegmentMatch = "segment_match"
)

// Trigger action types.
const (
	ActionSendEmail      = "send_email"
	ActionSendSMS        = "send_sms"
	ActionSendPush       = "send_push"
	ActionShowPopup      = "show_popup"
	ActionOfferDiscount  = "offer_discount"
	ActionAssignTag      = "assign_tag"
	ActionAddToSegment   = "add_to_segment"
	ActionTriggerWebhook = "trigger_webhook"
)

// Trigger rule statuses.
const (
	RuleStatusDraft  = "draft"
	RuleStatusActive = "active"
	RuleStatusPaused = "paused"
)

var AllowedRuleStatuses = map[string]bool{
	RuleStatusDraft:  true,
	RuleStatusActive: true,
	RuleStatusPaused: true,
}

// Trigger execution statuses.
const (
	ExecutionPending   = "pending"
	ExecutionSent      = "sent"
	ExecutionFailed    = "failed"
	ExecutionClicked   = "clicked"
	ExecutionConverted = "converted"
)

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

// Operations guarded by scope checks.
const (
	OperationIngestEvents    = "events:write"
	OperationReadEvents      = "events:read"
	OperationManageRules     = "trigger_rules:write"
	OperationReadRules       = "trigger_rules:read"
	OperationReadExecutions  = "trigger_executions:read"
	OperationRetryExecutions = "trigger_executions:retry"
	OperationReadAnalytics   = "analytics:read"
)

// DefaultValueFields are the payload fields checked, in order, when a value
// condition does not name one.
var DefaultValueFields = []string{"value", "cart_value", "order_value", "total"}
