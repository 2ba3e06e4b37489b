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

package store

import (
	"context"
	"iter"
	"time"

	"github.com/wso2/commerce-trigger-service/internal/behavior_events/model"
)

// historyPageSize bounds how many events a history sequence pulls per round trip.
var historyPageSize = 100

// EventStoreInterface is the append-only log of behavior events.
type EventStoreInterface interface {
	// Append stores a new event. Events are never deleted.
	Append(ctx context.Context, event *model.BehaviorEvent) error
	// MarkProcessed records the triggers an event fired. Calling it again overwrites the previous result.
	MarkProcessed(ctx context.Context, eventId string, matchedTriggerIds []string) error
	// Recent yields the customer's events of one type that occurred at or after since,
	// newest first. Events are fetched lazily and the sequence can be ranged over again.
	Recent(ctx context.Context, ownerId, customerKey, eventType string, since time.Time) iter.Seq2[model.BehaviorEvent, error]
	// Get returns the event with the given id or nil when none exists.
	Get(ctx context.Context, eventId string) (*model.BehaviorEvent, error)
	// FindBetween returns identified events of one type with occurredAt in [from, to).
	FindBetween(ctx context.Context, ownerId, eventType string, from, to time.Time) ([]model.BehaviorEvent, error)
	// FindUnprocessed returns up to limit events of every owner that were received
	// before receivedBefore and never marked processed, oldest first.
	FindUnprocessed(ctx context.Context, receivedBefore time.Time, limit int) ([]model.BehaviorEvent, error)
}
