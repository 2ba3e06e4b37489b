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
	"sort"
	"sync"
	"time"

	"github.com/wso2/commerce-trigger-service/internal/behavior_events/model"
)

// MemoryEventStore keeps the event log in process. Used for local runs and tests.
type MemoryEventStore struct {
	mu     sync.RWMutex
	events []model.BehaviorEvent
	index  map[string]int
}

var _ EventStoreInterface = (*MemoryEventStore)(nil)

func NewMemoryEventStore() *MemoryEventStore {
	return &MemoryEventStore{index: map[string]int{}}
}

func (s *MemoryEventStore) Append(_ context.Context, event *model.BehaviorEvent) error {

	s.mu.Lock()
	defer s.mu.Unlock()
	s.index[event.EventId] = len(s.events)
	s.events = append(s.events, cloneEvent(*event))
	return nil
}

func (s *MemoryEventStore) MarkProcessed(_ context.Context, eventId string, matchedTriggerIds []string) error {

	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[eventId]
	if !ok {
		return nil
	}
	s.events[i].Processed = true
	s.events[i].MatchedTriggerIds = append([]string{}, matchedTriggerIds...)
	return nil
}

func (s *MemoryEventStore) Recent(_ context.Context, ownerId, customerKey, eventType string,
	since time.Time) iter.Seq2[model.BehaviorEvent, error] {

	return func(yield func(model.BehaviorEvent, error) bool) {
		s.mu.RLock()
		var matches []model.BehaviorEvent
		for _, e := range s.events {
			if e.OwnerId == ownerId && e.CustomerKey == customerKey && e.EventType == eventType &&
				!e.OccurredAt.Before(since) {
				matches = append(matches, cloneEvent(e))
			}
		}
		s.mu.RUnlock()

		sort.SliceStable(matches, func(i, j int) bool {
			if matches[i].OccurredAt.Equal(matches[j].OccurredAt) {
				return matches[i].EventId > matches[j].EventId
			}
			return matches[i].OccurredAt.After(matches[j].OccurredAt)
		})
		for _, e := range matches {
			if !yield(e, nil) {
				return
			}
		}
	}
}

func (s *MemoryEventStore) Get(_ context.Context, eventId string) (*model.BehaviorEvent, error) {

	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[eventId]
	if !ok {
		return nil, nil
	}
	event := cloneEvent(s.events[i])
	return &event, nil
}

func (s *MemoryEventStore) FindBetween(_ context.Context, ownerId, eventType string,
	from, to time.Time) ([]model.BehaviorEvent, error) {

	s.mu.RLock()
	defer s.mu.RUnlock()
	var events []model.BehaviorEvent
	for _, e := range s.events {
		if e.OwnerId == ownerId && e.EventType == eventType && !e.IsAnonymous() &&
			!e.OccurredAt.Before(from) && e.OccurredAt.Before(to) {
			events = append(events, cloneEvent(e))
		}
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].OccurredAt.Before(events[j].OccurredAt) })
	return events, nil
}

func (s *MemoryEventStore) FindUnprocessed(_ context.Context, receivedBefore time.Time,
	limit int) ([]model.BehaviorEvent, error) {

	s.mu.RLock()
	defer s.mu.RUnlock()
	var events []model.BehaviorEvent
	for _, e := range s.events {
		if !e.Processed && e.ReceivedAt.Before(receivedBefore) {
			events = append(events, cloneEvent(e))
		}
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].ReceivedAt.Before(events[j].ReceivedAt) })
	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}

func cloneEvent(e model.BehaviorEvent) model.BehaviorEvent {
	if e.Payload != nil {
		payload := make(map[string]interface{}, len(e.Payload))
		for k, v := range e.Payload {
			payload[k] = v
		}
		e.Payload = payload
	}
	if e.MatchedTriggerIds != nil {
		e.MatchedTriggerIds = append([]string{}, e.MatchedTriggerIds...)
	}
	return e
}
