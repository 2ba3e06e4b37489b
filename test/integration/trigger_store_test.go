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

package integration

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	eventModel "github.com/wso2/commerce-trigger-service/internal/behavior_events/model"
	eventStore "github.com/wso2/commerce-trigger-service/internal/behavior_events/store"
	"github.com/wso2/commerce-trigger-service/internal/system/constants"
	"github.com/wso2/commerce-trigger-service/internal/system/database/lock"
	"github.com/wso2/commerce-trigger-service/internal/system/database/provider"
	"github.com/wso2/commerce-trigger-service/internal/trigger_executions/model"
	execStore "github.com/wso2/commerce-trigger-service/internal/trigger_executions/store"
)

func executionStore(t *testing.T) *execStore.PostgresExecutionStore {

	dbClient, err := provider.NewDBProvider().GetDBClient()
	require.NoError(t, err)
	return execStore.NewPostgresExecutionStore(dbClient)
}

func pendingExecution(triggerId, customerKey string, createdAt time.Time) *model.TriggerExecution {

	return &model.TriggerExecution{
		ExecutionId: uuid.NewString(),
		OwnerId:     "shop-it",
		TriggerId:   triggerId,
		CustomerKey: customerKey,
		EventId:     uuid.NewString(),
		ActionType:  constants.ActionSendEmail,
		Status:      constants.ExecutionPending,
		CreatedAt:   createdAt,
	}
}

func TestCooldownReservation_ConcurrentInsertsKeepOne(t *testing.T) {

	store := executionStore(t)
	triggerId := uuid.NewString()
	now := time.Now().UTC()

	const attempts = 12
	var wg sync.WaitGroup
	results := make(chan bool, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			created, err := store.InsertIfOutsideCooldown(context.Background(),
				pendingExecution(triggerId, "c-race", now), 24*time.Hour)
			assert.NoError(t, err)
			results <- created
		}()
	}
	wg.Wait()
	close(results)

	var created int
	for ok := range results {
		if ok {
			created++
		}
	}
	assert.Equal(t, 1, created)

	executions, err := store.ListByTrigger(context.Background(), "shop-it", triggerId, 100)
	require.NoError(t, err)
	assert.Len(t, executions, 1)
}

func TestCooldownReservation_WindowBoundaries(t *testing.T) {

	store := executionStore(t)
	ctx := context.Background()
	triggerId := uuid.NewString()
	start := time.Now().UTC().Add(-48 * time.Hour).Truncate(time.Second)

	created, err := store.InsertIfOutsideCooldown(ctx, pendingExecution(triggerId, "c-1", start), 24*time.Hour)
	require.NoError(t, err)
	require.True(t, created)

	created, err = store.InsertIfOutsideCooldown(ctx, pendingExecution(triggerId, "c-1", start.Add(23*time.Hour)), 24*time.Hour)
	require.NoError(t, err)
	assert.False(t, created, "inside the cooldown window")

	created, err = store.InsertIfOutsideCooldown(ctx, pendingExecution(triggerId, "c-1", start.Add(24*time.Hour)), 24*time.Hour)
	require.NoError(t, err)
	assert.False(t, created, "exactly one cooldown later is still suppressed")

	created, err = store.InsertIfOutsideCooldown(ctx, pendingExecution(triggerId, "c-1", start.Add(24*time.Hour+time.Second)), 24*time.Hour)
	require.NoError(t, err)
	assert.True(t, created, "past the cooldown window")

	created, err = store.InsertIfOutsideCooldown(ctx, pendingExecution(triggerId, "c-2", start.Add(24*time.Hour)), 24*time.Hour)
	require.NoError(t, err)
	assert.True(t, created, "other customers have their own window")
}

func TestCooldownReservation_AnonymousAlwaysInserts(t *testing.T) {

	store := executionStore(t)
	triggerId := uuid.NewString()
	now := time.Now().UTC()

	for i := 0; i < 3; i++ {
		created, err := store.InsertIfOutsideCooldown(context.Background(),
			pendingExecution(triggerId, constants.AnonymousCustomer, now), 24*time.Hour)
		require.NoError(t, err)
		assert.True(t, created)
	}
}

func TestFailStalePending(t *testing.T) {

	store := executionStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	triggerId := uuid.NewString()

	stale := pendingExecution(triggerId, "c-stale", now.Add(-2*time.Hour))
	fresh := pendingExecution(triggerId, "c-fresh", now)
	for _, e := range []*model.TriggerExecution{stale, fresh} {
		created, err := store.InsertIfOutsideCooldown(ctx, e, 0)
		require.NoError(t, err)
		require.True(t, created)
	}

	failed, err := store.FailStalePending(ctx, now.Add(-time.Hour), "dispatch did not complete", now)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, failed, int64(1))

	got, err := store.Get(ctx, stale.ExecutionId)
	require.NoError(t, err)
	assert.Equal(t, constants.ExecutionFailed, got.Status)

	got, err = store.Get(ctx, fresh.ExecutionId)
	require.NoError(t, err)
	assert.Equal(t, constants.ExecutionPending, got.Status)
}

func TestSweepLock_SecondHolderIsRefused(t *testing.T) {

	locker := lock.NewPostgresLock(testDB.DB)
	ctx := context.Background()

	release, acquired, err := locker.TryAcquire(ctx, "integration-sweep")
	require.NoError(t, err)
	require.True(t, acquired)

	_, acquiredAgain, err := locker.TryAcquire(ctx, "integration-sweep")
	require.NoError(t, err)
	assert.False(t, acquiredAgain)

	release()
	releaseAfter, acquiredAfter, err := locker.TryAcquire(ctx, "integration-sweep")
	require.NoError(t, err)
	assert.True(t, acquiredAfter)
	releaseAfter()
}

func TestEventStore_RecentPagesNewestFirst(t *testing.T) {

	dbClient, err := provider.NewDBProvider().GetDBClient()
	require.NoError(t, err)
	store := eventStore.NewPostgresEventStore(dbClient)
	ctx := context.Background()

	customer := "c-" + uuid.NewString()
	base := time.Now().UTC().Add(-time.Hour).Truncate(time.Millisecond)
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Append(ctx, &eventModel.BehaviorEvent{
			EventId:     uuid.NewString(),
			OwnerId:     "shop-it",
			CustomerKey: customer,
			EventType:   constants.EventProductView,
			Payload:     map[string]interface{}{"sku": fmt.Sprintf("sku-%d", i)},
			OccurredAt:  base.Add(time.Duration(i) * time.Minute),
			ReceivedAt:  base.Add(time.Duration(i) * time.Minute),
		}))
	}

	var skus []string
	for event, err := range store.Recent(ctx, "shop-it", customer, constants.EventProductView, base.Add(2*time.Minute)) {
		require.NoError(t, err)
		skus = append(skus, event.Payload["sku"].(string))
	}
	assert.Equal(t, []string{"sku-4", "sku-3", "sku-2"}, skus)
}
