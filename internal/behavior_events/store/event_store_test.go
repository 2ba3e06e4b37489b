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
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wso2/commerce-trigger-service/internal/behavior_events/model"
	"github.com/wso2/commerce-trigger-service/internal/system/database/client"
	"github.com/wso2/commerce-trigger-service/internal/system/log"
)

var eventColumns = []string{"event_id", "owner_id", "customer_key", "event_type", "payload", "occurred_at",
	"received_at", "processed", "matched_trigger_ids"}

func newMockDB(t *testing.T) (client.DBClientInterface, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return client.NewDBClient(db), mock
}

func TestMemoryEventStore_RecentIsNewestFirstAndRestartable(t *testing.T) {

	_ = log.Init("DEBUG")
	ctx := context.Background()
	s := NewMemoryEventStore()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	for i, id := range []string{"e1", "e2", "e3"} {
		require.NoError(t, s.Append(ctx, &model.BehaviorEvent{
			EventId: id, OwnerId: "shop", CustomerKey: "c1", EventType: "product_view",
			OccurredAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, s.Append(ctx, &model.BehaviorEvent{
		EventId: "other", OwnerId: "shop", CustomerKey: "c2", EventType: "product_view", OccurredAt: base,
	}))

	seq := s.Recent(ctx, "shop", "c1", "product_view", base.Add(30*time.Second))
	var first []string
	for e, err := range seq {
		require.NoError(t, err)
		first = append(first, e.EventId)
	}
	assert.Equal(t, []string{"e3", "e2"}, first)

	var again []string
	for e := range seq {
		again = append(again, e.EventId)
		break
	}
	assert.Equal(t, []string{"e3"}, again)
}

func TestMemoryEventStore_MarkProcessed(t *testing.T) {

	ctx := context.Background()
	s := NewMemoryEventStore()
	require.NoError(t, s.Append(ctx, &model.BehaviorEvent{EventId: "e1", OwnerId: "shop", EventType: "cart_add"}))
	require.NoError(t, s.MarkProcessed(ctx, "e1", []string{"r1"}))

	e, err := s.Get(ctx, "e1")
	require.NoError(t, err)
	assert.True(t, e.Processed)
	assert.Equal(t, []string{"r1"}, e.MatchedTriggerIds)
}

func TestPostgresEventStore_Append(t *testing.T) {

	_ = log.Init("DEBUG")
	dbClient, mock := newMockDB(t)
	s := NewPostgresEventStore(dbClient)
	now := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO behavior_events")).
		WithArgs("e1", "shop", "c1", "cart_add", `{"value":42}`, now, now, false, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.Append(context.Background(), &model.BehaviorEvent{
		EventId: "e1", OwnerId: "shop", CustomerKey: "c1", EventType: "cart_add",
		Payload: map[string]interface{}{"value": 42}, OccurredAt: now, ReceivedAt: now,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresEventStore_RecentPagesLazily(t *testing.T) {

	_ = log.Init("DEBUG")
	previous := historyPageSize
	historyPageSize = 2
	t.Cleanup(func() { historyPageSize = previous })

	dbClient, mock := newMockDB(t)
	s := NewPostgresEventStore(dbClient)
	since := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	t3 := since.Add(3 * time.Hour)
	t2 := since.Add(2 * time.Hour)
	t1 := since.Add(1 * time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY occurred_at DESC, event_id DESC LIMIT $5")).
		WithArgs("shop", "c1", "product_view", since, 2).
		WillReturnRows(sqlmock.NewRows(eventColumns).
			AddRow("e3", "shop", "c1", "product_view", []byte(`{}`), t3, t3, true, []byte("{}")).
			AddRow("e2", "shop", "c1", "product_view", []byte(`{}`), t2, t2, true, []byte("{r1}")))
	mock.ExpectQuery(regexp.QuoteMeta("(occurred_at, event_id) < ($5, $6)")).
		WithArgs("shop", "c1", "product_view", since, t2, "e2", 2).
		WillReturnRows(sqlmock.NewRows(eventColumns).
			AddRow("e1", "shop", "c1", "product_view", []byte(`{"sku":"A"}`), t1, t1, false, []byte("{}")))

	var ids []string
	for e, err := range s.Recent(context.Background(), "shop", "c1", "product_view", since) {
		require.NoError(t, err)
		ids = append(ids, e.EventId)
	}
	assert.Equal(t, []string{"e3", "e2", "e1"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresEventStore_RecentStopsEarlyWithoutExtraQueries(t *testing.T) {

	previous := historyPageSize
	historyPageSize = 2
	t.Cleanup(func() { historyPageSize = previous })

	dbClient, mock := newMockDB(t)
	s := NewPostgresEventStore(dbClient)
	since := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("LIMIT $5")).
		WillReturnRows(sqlmock.NewRows(eventColumns).
			AddRow("e3", "shop", "c1", "product_view", []byte(`{}`), since, since, true, []byte("{}")).
			AddRow("e2", "shop", "c1", "product_view", []byte(`{}`), since, since, true, []byte("{}")))

	count := 0
	for range s.Recent(context.Background(), "shop", "c1", "product_view", since) {
		count++
		break
	}
	assert.Equal(t, 1, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMemoryEventStore_FindUnprocessed(t *testing.T) {

	ctx := context.Background()
	s := NewMemoryEventStore()
	t0 := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"late", "early", "done", "fresh"} {
		received := t0.Add(time.Duration(i) * time.Minute)
		if id == "early" {
			received = t0.Add(-time.Hour)
		}
		require.NoError(t, s.Append(ctx, &model.BehaviorEvent{EventId: id, OwnerId: "shop", EventType: "cart_add",
			OccurredAt: received, ReceivedAt: received}))
	}
	require.NoError(t, s.MarkProcessed(ctx, "done", nil))

	events, err := s.FindUnprocessed(ctx, t0.Add(3*time.Minute), 10)
	require.NoError(t, err)
	var ids []string
	for _, e := range events {
		ids = append(ids, e.EventId)
	}
	assert.Equal(t, []string{"early", "late"}, ids)

	events, err = s.FindUnprocessed(ctx, t0.Add(3*time.Minute), 1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "early", events[0].EventId)
}

func TestPostgresEventStore_FindUnprocessed(t *testing.T) {

	dbClient, mock := newMockDB(t)
	s := NewPostgresEventStore(dbClient)
	before := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	received := before.Add(-time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE processed = FALSE AND received_at < $1")).
		WithArgs(before, 50).
		WillReturnRows(sqlmock.NewRows(eventColumns).
			AddRow("e9", "shop", "c1", "order_placed", []byte(`{"value":10}`), received, received, false, []byte("{}")))

	events, err := s.FindUnprocessed(context.Background(), before, 50)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "e9", events[0].EventId)
	assert.False(t, events[0].Processed)
	assert.NoError(t, mock.ExpectationsWereMet())
}
