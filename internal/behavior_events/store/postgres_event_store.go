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
	"encoding/json"
	"fmt"
	"iter"
	"time"

	"github.com/lib/pq"
	"github.com/wso2/commerce-trigger-service/internal/behavior_events/model"
	"github.com/wso2/commerce-trigger-service/internal/system/database/client"
	"github.com/wso2/commerce-trigger-service/internal/system/database/scripts"
	"github.com/wso2/commerce-trigger-service/internal/system/errors"
	"github.com/wso2/commerce-trigger-service/internal/system/log"
)

const dbType = "postgres"

// PostgresEventStore keeps the event log in the behavior_events table.
type PostgresEventStore struct {
	dbClient client.DBClientInterface
}

var _ EventStoreInterface = (*PostgresEventStore)(nil)

func NewPostgresEventStore(dbClient client.DBClientInterface) *PostgresEventStore {
	return &PostgresEventStore{dbClient: dbClient}
}

func (s *PostgresEventStore) Append(ctx context.Context, event *model.BehaviorEvent) error {

	logger := log.GetLogger()
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		errorMsg := fmt.Sprintf("Failed to encode payload of event: %s", event.EventId)
		logger.Debug(errorMsg, log.Error(err))
		return errors.NewServerError(errors.ErrorMessage{
			Code:        errors.ADD_EVENT.Code,
			Message:     errors.ADD_EVENT.Message,
			Description: errorMsg,
		}, err)
	}

	_, err = s.dbClient.ExecuteStatement(ctx, scripts.InsertBehaviorEvent[dbType],
		event.EventId, event.OwnerId, event.CustomerKey, event.EventType, string(payload),
		event.OccurredAt, event.ReceivedAt, event.Processed, pq.Array(nonNil(event.MatchedTriggerIds)))
	if err != nil {
		errorMsg := fmt.Sprintf("Failed to store event: %s", event.EventId)
		logger.Debug(errorMsg, log.Error(err))
		return errors.NewServerError(errors.ErrorMessage{
			Code:        errors.ADD_EVENT.Code,
			Message:     errors.ADD_EVENT.Message,
			Description: errorMsg,
		}, err)
	}
	return nil
}

func (s *PostgresEventStore) MarkProcessed(ctx context.Context, eventId string, matchedTriggerIds []string) error {

	_, err := s.dbClient.ExecuteStatement(ctx, scripts.MarkBehaviorEventProcessed[dbType],
		eventId, pq.Array(nonNil(matchedTriggerIds)))
	if err != nil {
		errorMsg := fmt.Sprintf("Failed to mark event: %s as processed", eventId)
		log.GetLogger().Debug(errorMsg, log.Error(err))
		return errors.NewServerError(errors.ErrorMessage{
			Code:        errors.UPDATE_EVENT.Code,
			Message:     errors.UPDATE_EVENT.Message,
			Description: errorMsg,
		}, err)
	}
	return nil
}

func (s *PostgresEventStore) Recent(ctx context.Context, ownerId, customerKey, eventType string,
	since time.Time) iter.Seq2[model.BehaviorEvent, error] {

	return func(yield func(model.BehaviorEvent, error) bool) {
		var last *model.BehaviorEvent
		for {
			var rows []map[string]interface{}
			var err error
			if last == nil {
				rows, err = s.dbClient.ExecuteQuery(ctx, scripts.RecentBehaviorEventsFirstPage[dbType],
					ownerId, customerKey, eventType, since, historyPageSize)
			} else {
				rows, err = s.dbClient.ExecuteQuery(ctx, scripts.RecentBehaviorEventsNextPage[dbType],
					ownerId, customerKey, eventType, since, last.OccurredAt, last.EventId, historyPageSize)
			}
			if err != nil {
				errorMsg := fmt.Sprintf("Failed to read %s history for customer: %s", eventType, customerKey)
				log.GetLogger().Debug(errorMsg, log.Error(err))
				yield(model.BehaviorEvent{}, errors.NewServerError(errors.ErrorMessage{
					Code:        errors.GET_EVENT.Code,
					Message:     errors.GET_EVENT.Message,
					Description: errorMsg,
				}, err))
				return
			}
			for _, row := range rows {
				event := mapRowToEvent(row)
				if !yield(event, nil) {
					return
				}
				last = &event
			}
			if len(rows) < historyPageSize {
				return
			}
		}
	}
}

func (s *PostgresEventStore) Get(ctx context.Context, eventId string) (*model.BehaviorEvent, error) {

	rows, err := s.dbClient.ExecuteQuery(ctx, scripts.GetBehaviorEvent[dbType], eventId)
	if err != nil {
		errorMsg := fmt.Sprintf("Failed to fetch event: %s", eventId)
		log.GetLogger().Debug(errorMsg, log.Error(err))
		return nil, errors.NewServerError(errors.ErrorMessage{
			Code:        errors.GET_EVENT.Code,
			Message:     errors.GET_EVENT.Message,
			Description: errorMsg,
		}, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	event := mapRowToEvent(rows[0])
	return &event, nil
}

func (s *PostgresEventStore) FindBetween(ctx context.Context, ownerId, eventType string,
	from, to time.Time) ([]model.BehaviorEvent, error) {

	rows, err := s.dbClient.ExecuteQuery(ctx, scripts.BehaviorEventsBetween[dbType], ownerId, eventType, from, to)
	if err != nil {
		errorMsg := fmt.Sprintf("Failed to fetch %s events between %s and %s", eventType,
			from.Format(time.RFC3339), to.Format(time.RFC3339))
		log.GetLogger().Debug(errorMsg, log.Error(err))
		return nil, errors.NewServerError(errors.ErrorMessage{
			Code:        errors.GET_EVENT.Code,
			Message:     errors.GET_EVENT.Message,
			Description: errorMsg,
		}, err)
	}
	events := make([]model.BehaviorEvent, 0, len(rows))
	for _, row := range rows {
		events = append(events, mapRowToEvent(row))
	}
	return events, nil
}

func (s *PostgresEventStore) FindUnprocessed(ctx context.Context, receivedBefore time.Time,
	limit int) ([]model.BehaviorEvent, error) {

	rows, err := s.dbClient.ExecuteQuery(ctx, scripts.UnprocessedBehaviorEvents[dbType], receivedBefore, limit)
	if err != nil {
		errorMsg := "Failed to fetch unprocessed events"
		log.GetLogger().Debug(errorMsg, log.Error(err))
		return nil, errors.NewServerError(errors.ErrorMessage{
			Code:        errors.GET_EVENT.Code,
			Message:     errors.GET_EVENT.Message,
			Description: errorMsg,
		}, err)
	}
	events := make([]model.BehaviorEvent, 0, len(rows))
	for _, row := range rows {
		events = append(events, mapRowToEvent(row))
	}
	return events, nil
}

func mapRowToEvent(row map[string]interface{}) model.BehaviorEvent {

	event := model.BehaviorEvent{
		EventId:           client.StringValue(row, "event_id"),
		OwnerId:           client.StringValue(row, "owner_id"),
		CustomerKey:       client.StringValue(row, "customer_key"),
		EventType:         client.StringValue(row, "event_type"),
		OccurredAt:        client.TimeValue(row, "occurred_at"),
		ReceivedAt:        client.TimeValue(row, "received_at"),
		Processed:         client.BoolValue(row, "processed"),
		MatchedTriggerIds: client.StringArrayValue(row, "matched_trigger_ids"),
	}
	if err := client.JSONValue(row, "payload", &event.Payload); err != nil {
		log.GetLogger().Warn("Ignoring undecodable event payload", log.String("event_id", event.EventId), log.Error(err))
	}
	return event
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
