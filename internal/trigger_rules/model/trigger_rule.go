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

package model

import (
	"encoding/json"
	"time"
)

// TriggerRule binds an event type and a condition to an action, with a per
// customer cooldown.
type TriggerRule struct {
	RuleId         string          `json:"rule_id"`
	OwnerId        string          `json:"owner_id"`
	Name           string          `json:"name"`
	Description    string          `json:"description,omitempty"`
	EventType      string          `json:"event_type"`
	ConditionType  string          `json:"condition_type"`
	ConditionValue json.RawMessage `json:"condition_value,omitempty"`
	ActionType     string          `json:"action_type"`
	ActionConfig   json.RawMessage `json:"action_config,omitempty"`
	CooldownHours  int             `json:"cooldown_hours"`
	Priority       int             `json:"priority"`
	Status         string          `json:"status"`
	LastFiredAt    *time.Time      `json:"last_fired_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Cooldown returns the minimum spacing between two executions for one customer.
func (r TriggerRule) Cooldown() time.Duration {
	return time.Duration(r.CooldownHours) * time.Hour
}

// TriggerRuleRequest is the payload accepted when creating or replacing a rule.
type TriggerRuleRequest struct {
	Name           string          `json:"name"`
	Description    string          `json:"description,omitempty"`
	EventType      string          `json:"event_type"`
	ConditionType  string          `json:"condition_type"`
	ConditionValue json.RawMessage `json:"condition_value,omitempty"`
	ActionType     string          `json:"action_type"`
	ActionConfig   json.RawMessage `json:"action_config,omitempty"`
	CooldownHours  *int            `json:"cooldown_hours,omitempty"`
	Priority       int             `json:"priority"`
	Status         string          `json:"status,omitempty"`
}
