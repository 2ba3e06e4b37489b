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

import "time"

// RenderedAction is an action config resolved against one event, ready to be
// handed to its channel. It is stored on the execution as the action payload.
type RenderedAction struct {
	ActionType     string                 `json:"action_type"`
	ExecutionId    string                 `json:"execution_id"`
	OwnerId        string                 `json:"owner_id"`
	CustomerKey    string                 `json:"customer_key,omitempty"`
	Subject        string                 `json:"subject,omitempty"`
	Body           string                 `json:"body,omitempty"`
	Title          string                 `json:"title,omitempty"`
	ClickURL       string                 `json:"click_url,omitempty"`
	DisplaySeconds int                    `json:"display_seconds,omitempty"`
	Discount       *DiscountOffer         `json:"discount,omitempty"`
	Tag            string                 `json:"tag,omitempty"`
	Segment        string                 `json:"segment,omitempty"`
	WebhookURL     string                 `json:"webhook_url,omitempty"`
	Headers        map[string]string      `json:"-"`
	Data           map[string]interface{} `json:"data,omitempty"`
}

// DiscountOffer describes the discount to mint.
type DiscountOffer struct {
	Kind       string     `json:"kind"`
	Amount     float64    `json:"amount"`
	CodePrefix string     `json:"code_prefix,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

// Outcome is what a channel reported back after accepting an action.
type Outcome struct {
	Reference    string `json:"reference,omitempty"`
	DiscountCode string `json:"discount_code,omitempty"`
}

// DispatchRecord is the action payload persisted on an execution.
type DispatchRecord struct {
	Action  *RenderedAction `json:"action,omitempty"`
	Outcome *Outcome        `json:"outcome,omitempty"`
}
