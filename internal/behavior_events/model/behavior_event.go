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

// BehaviorEvent is a single shopper action reported by a storefront.
type BehaviorEvent struct {
	EventId           string                 `json:"event_id" bson:"event_id"`
	OwnerId           string                 `json:"owner_id" bson:"owner_id"`
	CustomerKey       string                 `json:"customer_key,omitempty" bson:"customer_key"`
	EventType         string                 `json:"event_type" bson:"event_type"`
	Payload           map[string]interface{} `json:"payload,omitempty" bson:"payload"`
	OccurredAt        time.Time              `json:"occurred_at" bson:"occurred_at"`
	ReceivedAt        time.Time              `json:"received_at" bson:"received_at"`
	Processed         bool                   `json:"processed" bson:"processed"`
	MatchedTriggerIds []string               `json:"matched_trigger_ids,omitempty" bson:"matched_trigger_ids"`
}

// IsAnonymous reports whether the event carries no customer identity.
func (e BehaviorEvent) IsAnonymous() bool {
	return e.CustomerKey == ""
}

// BehaviorEventRequest is the inbound contract accepted over HTTP and the message bus.
type BehaviorEventRequest struct {
	OwnerId     string                 `json:"owner_id,omitempty"`
	CustomerKey string                 `json:"customer_key,omitempty"`
	EventType   string                 `json:"event_type"`
	Payload     map[string]interface{} `json:"payload,omitempty"`
	OccurredAt  *time.Time             `json:"occurred_at,omitempty"`
}

// IngestResponse acknowledges an accepted event.
type IngestResponse struct {
	EventId string `json:"event_id"`
}
