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

package service

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/wso2/commerce-trigger-service/internal/behavior_events/model"
	"github.com/wso2/commerce-trigger-service/internal/behavior_events/store"
	"github.com/wso2/commerce-trigger-service/internal/system/constants"
	systemContext "github.com/wso2/commerce-trigger-service/internal/system/context"
	"github.com/wso2/commerce-trigger-service/internal/system/errors"
	"github.com/wso2/commerce-trigger-service/internal/system/log"
)

// MaxClockSkew is how far in the future an event timestamp may lie.
const MaxClockSkew = 5 * time.Minute

// EventQueue hands stored events to the trigger engine.
type EventQueue interface {
	Enqueue(event model.BehaviorEvent) error
}

// BehaviorEventServiceInterface accepts and serves behavior events.
type BehaviorEventServiceInterface interface {
	// Ingest validates and stores an event, queues it for trigger evaluation and
	// returns its id without waiting for the evaluation.
	Ingest(ctx context.Context, ownerId string, request model.BehaviorEventRequest) (string, error)
	GetEvent(ctx context.Context, ownerId, eventId string) (*model.BehaviorEvent, error)
}

// BehaviorEventService is the default implementation of the BehaviorEventServiceInterface.
type BehaviorEventService struct {
	store store.EventStoreInterface
	queue EventQueue
	now   func() time.Time
}

// GetBehaviorEventService creates a service over an event store and a processing queue.
func GetBehaviorEventService(eventStore store.EventStoreInterface, queue EventQueue) *BehaviorEventService {

	return &BehaviorEventService{
		store: eventStore,
		queue: queue,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the service's time source.
func (s *BehaviorEventService) WithClock(now func() time.Time) *BehaviorEventService {
	s.now = now
	return s
}

func (s *BehaviorEventService) Ingest(ctx context.Context, ownerId string, request model.BehaviorEventRequest) (string, error) {

	event, err := s.buildEvent(ownerId, request)
	if err != nil {
		return "", err
	}

	logger := log.GetLogger().With(log.TraceID(systemContext.GetTraceID(ctx)),
		log.String("eventId", event.EventId), log.String("ownerId", event.OwnerId))

	if err := s.store.Append(ctx, event); err != nil {
		return "", err
	}

	if err := s.queue.Enqueue(*event); err != nil {
		// The event stays unprocessed until the sweep replays it.
		logger.Warn("Behavior event stored but not queued for trigger evaluation, it will be replayed by the sweep",
			log.Error(err))
		return event.EventId, nil
	}
	logger.Debug("Behavior event accepted", log.String("eventType", event.EventType))
	return event.EventId, nil
}

func (s *BehaviorEventService) buildEvent(ownerId string, request model.BehaviorEventRequest) (*model.BehaviorEvent, error) {

	if ownerId == "" {
		ownerId = request.OwnerId
	}
	if ownerId == "" {
		return nil, invalidEvent("owner_id is required.")
	}
	if request.OwnerId != "" && request.OwnerId != ownerId {
		return nil, invalidEvent("owner_id does not match the request path.")
	}
	if !constants.AllowedEventTypes[request.EventType] {
		return nil, invalidEvent(fmt.Sprintf("Unsupported event_type '%s'.", request.EventType))
	}

	now := s.now()
	occurredAt := now
	if request.OccurredAt != nil && !request.OccurredAt.IsZero() {
		occurredAt = request.OccurredAt.UTC()
	}
	if occurredAt.After(now.Add(MaxClockSkew)) {
		return nil, invalidEvent("occurred_at lies in the future.")
	}

	payload := request.Payload
	if payload == nil {
		payload = map[string]interface{}{}
	}
	return &model.BehaviorEvent{
		EventId:     uuid.New().String(),
		OwnerId:     ownerId,
		CustomerKey: request.CustomerKey,
		EventType:   request.EventType,
		Payload:     payload,
		OccurredAt:  occurredAt,
		ReceivedAt:  now,
	}, nil
}

func (s *BehaviorEventService) GetEvent(ctx context.Context, ownerId, eventId string) (*model.BehaviorEvent, error) {

	event, err := s.store.Get(ctx, eventId)
	if err != nil {
		return nil, err
	}
	if event == nil || event.OwnerId != ownerId {
		return nil, errors.NewClientError(errors.ErrorMessage{
			Code:        errors.EVENT_NOT_FOUND.Code,
			Message:     errors.EVENT_NOT_FOUND.Message,
			Description: fmt.Sprintf("Behavior event %s not found.", eventId),
		}, http.StatusNotFound)
	}
	return event, nil
}

func invalidEvent(description string) error {
	return errors.NewClientError(errors.ErrorMessage{
		Code:        errors.INVALID_EVENT.Code,
		Message:     errors.INVALID_EVENT.Message,
		Description: description,
	}, http.StatusBadRequest)
}
