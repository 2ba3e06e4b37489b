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
	"fmt"
	"iter"
	"time"

	"github.com/wso2/commerce-trigger-service/internal/behavior_events/model"
	"github.com/wso2/commerce-trigger-service/internal/system/errors"
	"github.com/wso2/commerce-trigger-service/internal/system/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoEventStore keeps the event log in a MongoDB collection.
type MongoEventStore struct {
	collection *mongo.Collection
}

var _ EventStoreInterface = (*MongoEventStore)(nil)

// NewMongoEventStore connects to MongoDB and ensures the history indexes exist.
func NewMongoEventStore(ctx context.Context, uri, database, collection string) (*MongoEventStore, func(context.Context) error, error) {

	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	if err := mongoClient.Ping(ctx, nil); err != nil {
		_ = mongoClient.Disconnect(ctx)
		return nil, nil, fmt.Errorf("ping mongodb: %w", err)
	}

	coll := mongoClient.Database(database).Collection(collection)
	_, err = coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "event_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{
			{Key: "owner_id", Value: 1}, {Key: "customer_key", Value: 1}, {Key: "event_type", Value: 1},
			{Key: "occurred_at", Value: -1}, {Key: "event_id", Value: -1},
		}},
		{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "event_type", Value: 1}, {Key: "occurred_at", Value: 1}}},
		{Keys: bson.D{{Key: "processed", Value: 1}, {Key: "received_at", Value: 1}}},
	})
	if err != nil {
		_ = mongoClient.Disconnect(ctx)
		return nil, nil, fmt.Errorf("create event indexes: %w", err)
	}
	return &MongoEventStore{collection: coll}, mongoClient.Disconnect, nil
}

// Ping checks that the backing deployment is reachable.
func (s *MongoEventStore) Ping(ctx context.Context) error {
	return s.collection.Database().Client().Ping(ctx, nil)
}

func (s *MongoEventStore) Append(ctx context.Context, event *model.BehaviorEvent) error {

	doc := *event
	if doc.MatchedTriggerIds == nil {
		doc.MatchedTriggerIds = []string{}
	}
	if _, err := s.collection.InsertOne(ctx, doc); err != nil {
		errorMsg := fmt.Sprintf("Failed to store event: %s", event.EventId)
		log.GetLogger().Debug(errorMsg, log.Error(err))
		return errors.NewServerError(errors.ErrorMessage{
			Code:        errors.ADD_EVENT.Code,
			Message:     errors.ADD_EVENT.Message,
			Description: errorMsg,
		}, err)
	}
	return nil
}

func (s *MongoEventStore) MarkProcessed(ctx context.Context, eventId string, matchedTriggerIds []string) error {

	if matchedTriggerIds == nil {
		matchedTriggerIds = []string{}
	}
	update := bson.M{"$set": bson.M{"processed": true, "matched_trigger_ids": matchedTriggerIds}}
	if _, err := s.collection.UpdateOne(ctx, bson.M{"event_id": eventId}, update); err != nil {
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

func (s *MongoEventStore) Recent(ctx context.Context, ownerId, customerKey, eventType string,
	since time.Time) iter.Seq2[model.BehaviorEvent, error] {

	return func(yield func(model.BehaviorEvent, error) bool) {
		filter := bson.M{
			"owner_id":     ownerId,
			"customer_key": customerKey,
			"event_type":   eventType,
			"occurred_at":  bson.M{"$gte": since},
		}
		findOptions := options.Find().
			SetSort(bson.D{{Key: "occurred_at", Value: -1}, {Key: "event_id", Value: -1}}).
			SetBatchSize(int32(historyPageSize))

		cursor, err := s.collection.Find(ctx, filter, findOptions)
		if err != nil {
			yield(model.BehaviorEvent{}, historyError(customerKey, eventType, err))
			return
		}
		defer cursor.Close(ctx)

		for cursor.Next(ctx) {
			var event model.BehaviorEvent
			if err := cursor.Decode(&event); err != nil {
				yield(model.BehaviorEvent{}, historyError(customerKey, eventType, err))
				return
			}
			event.OccurredAt = event.OccurredAt.UTC()
			if !yield(event, nil) {
				return
			}
		}
		if err := cursor.Err(); err != nil {
			yield(model.BehaviorEvent{}, historyError(customerKey, eventType, err))
		}
	}
}

func (s *MongoEventStore) Get(ctx context.Context, eventId string) (*model.BehaviorEvent, error) {

	var event model.BehaviorEvent
	err := s.collection.FindOne(ctx, bson.M{"event_id": eventId}).Decode(&event)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		errorMsg := fmt.Sprintf("Failed to fetch event: %s", eventId)
		log.GetLogger().Debug(errorMsg, log.Error(err))
		return nil, errors.NewServerError(errors.ErrorMessage{
			Code:        errors.GET_EVENT.Code,
			Message:     errors.GET_EVENT.Message,
			Description: errorMsg,
		}, err)
	}
	return &event, nil
}

func (s *MongoEventStore) FindBetween(ctx context.Context, ownerId, eventType string,
	from, to time.Time) ([]model.BehaviorEvent, error) {

	filter := bson.M{
		"owner_id":     ownerId,
		"event_type":   eventType,
		"customer_key": bson.M{"$ne": ""},
		"occurred_at":  bson.M{"$gte": from, "$lt": to},
	}
	cursor, err := s.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "occurred_at", Value: 1}}))
	if err != nil {
		return nil, historyError("*", eventType, err)
	}
	defer cursor.Close(ctx)

	var events []model.BehaviorEvent
	if err := cursor.All(ctx, &events); err != nil {
		return nil, historyError("*", eventType, err)
	}
	return events, nil
}

func (s *MongoEventStore) FindUnprocessed(ctx context.Context, receivedBefore time.Time,
	limit int) ([]model.BehaviorEvent, error) {

	filter := bson.M{"processed": false, "received_at": bson.M{"$lt": receivedBefore}}
	findOptions := options.Find().
		SetSort(bson.D{{Key: "received_at", Value: 1}, {Key: "event_id", Value: 1}}).
		SetLimit(int64(limit))
	cursor, err := s.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, historyError("*", "unprocessed", err)
	}
	defer cursor.Close(ctx)

	var events []model.BehaviorEvent
	if err := cursor.All(ctx, &events); err != nil {
		return nil, historyError("*", "unprocessed", err)
	}
	return events, nil
}

func historyError(customerKey, eventType string, err error) error {

	errorMsg := fmt.Sprintf("Failed to read %s history for customer: %s", eventType, customerKey)
	log.GetLogger().Debug(errorMsg, log.Error(err))
	return errors.NewServerError(errors.ErrorMessage{
		Code:        errors.GET_EVENT.Code,
		Message:     errors.GET_EVENT.Message,
		Description: errorMsg,
	}, err)
}
