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

	"github.com/wso2/commerce-trigger-service/internal/system/constants"
)

// TriggerExecution records one firing of a rule for one customer and follows it
// through delivery, engagement and conversion.
type TriggerExecution struct {
	ExecutionId       string          `json:"execution_id"`
	OwnerId           string          `json:"owner_id"`
	TriggerId         string          `json:"trigger_id"`
	CustomerKey       string          `json:"customer_key,omitempty"`
	EventId           string          `json:"event_id"`
	ActionType        string          `json:"action_type"`
	ActionPayload     json.RawMessage `json:"action_payload,omitempty"`
	Status            string          `json:"status"`
	Error             string          `json:"error,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	SentAt            *time.Time      `json:"sent_at,omitempty"`
	ClickedAt         *time.Time      `json:"clicked_at,omitempty"`
	ConvertedAt       *time.Time      `json:"converted_at,omitempty"`
	ConversionOrderId string          `json:"conversion_order_id,omitempty"`
	ConversionValue   *float64        `json:"conversion_value,omitempty"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// Clicked reports whether engagement was observed, either directly or implied by a conversion.
func (e TriggerExecution) Clicked() bool {
	return e.ClickedAt != nil || e.ConvertedAt != nil
}

// Delivered reports whether the action reached the customer.
func (e TriggerExecution) Delivered() bool {
	switch e.Status {
	case constants.ExecutionSent, constants.ExecutionClicked, constants.ExecutionConverted:
		return true
	}
	return false
}

// TriggerCounts tallies the executions of one trigger created within a window.
type TriggerCounts struct {
	TriggerId  string
	Executions int
	Sent       int
	Failed     int
	Clicked    int
	Converted  int
	Revenue    float64
}

// Add counts one execution of the trigger.
func (c *TriggerCounts) Add(e TriggerExecution) {

	c.Executions++
	if e.Delivered() {
		c.Sent++
	}
	if e.Status == constants.ExecutionFailed {
		c.Failed++
	}
	if e.Clicked() {
		c.Clicked++
	}
	if e.ConvertedAt != nil {
		c.Converted++
		if e.ConversionValue != nil {
			c.Revenue += *e.ConversionValue
		}
	}
}

var transitions = map[string]map[string]bool{
	constants.ExecutionPending: {constants.ExecutionSent: true, constants.ExecutionFailed: true},
	constants.ExecutionFailed:  {constants.ExecutionPending: true},
	constants.ExecutionSent:    {constants.ExecutionClicked: true, constants.ExecutionConverted: true},
	constants.ExecutionClicked: {constants.ExecutionConverted: true},
}

// CanTransition reports whether an execution may move from one status to another.
// failed to sent and failed to failed are only taken by an operator retry.
func CanTransition(from, to string) bool {
	return transitions[from][to]
}

// ConversionRequest is the payload of a conversion report.
type ConversionRequest struct {
	OrderId string   `json:"order_id"`
	Value   *float64 `json:"value"`
}

// LifecycleEvent is published whenever an execution changes status.
type LifecycleEvent struct {
	ExecutionId string    `json:"execution_id"`
	OwnerId     string    `json:"owner_id"`
	TriggerId   string    `json:"trigger_id"`
	CustomerKey string    `json:"customer_key,omitempty"`
	Status      string    `json:"status"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// DispatchResult is the outcome of handing an execution's action to its channel.
type DispatchResult struct {
	Status  string
	Payload json.RawMessage
	Error   string
	SentAt  *time.Time
	At      time.Time
}
