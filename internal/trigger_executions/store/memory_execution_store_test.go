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
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wso2/commerce-trigger-service/internal/system/constants"
	"github.com/wso2/commerce-trigger-service/internal/trigger_executions/model"
)

func pendingExecution(id, customerKey string, createdAt time.Time) *model.TriggerExecution {
	return &model.TriggerExecution{
		ExecutionId: id,
		OwnerId:     "shop",
		TriggerId:   "rule-1",
		CustomerKey: customerKey,
		EventId:     "event-" + id,
		ActionType:  constants.ActionSendEmail,
		Status:      constants.ExecutionPending,
		CreatedAt:   createdAt,
	}
}

func TestMemoryExecutionStore_ConcurrentInsertsCreateOneExecution(t *testing.T) {

	s := NewMemoryExecutionStore()
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

	const workers = 50
	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ok, err := s.InsertIfOutsideCooldown(context.Background(),
				pendingExecution(fmt.Sprintf("x%d", i), "cust-1", now), 24*time.Hour)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	executions, err := s.ListByTrigger(context.Background(), "shop", "rule-1", 0)
	require.NoError(t, err)
	assert.Len(t, executions, 1)
}

func TestMemoryExecutionStore_CooldownWindow(t *testing.T) {

	ctx := context.Background()
	s := NewMemoryExecutionStore()
	t0 := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

	ok, err := s.InsertIfOutsideCooldown(ctx, pendingExecution("a", "cust-1", t0), 24*time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.InsertIfOutsideCooldown(ctx, pendingExecution("b", "cust-1", t0.Add(time.Hour)), 24*time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.InsertIfOutsideCooldown(ctx, pendingExecution("b2", "cust-1", t0.Add(24*time.Hour)), 24*time.Hour)
	require.NoError(t, err)
	assert.False(t, ok, "the cutoff itself is inside the window")

	ok, err = s.InsertIfOutsideCooldown(ctx, pendingExecution("c", "cust-1", t0.Add(25*time.Hour)), 24*time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryExecutionStore_AnonymousIgnoresCooldown(t *testing.T) {

	ctx := context.Background()
	s := NewMemoryExecutionStore()
	t0 := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

	for _, id := range []string{"a", "b", "c"} {
		ok, err := s.InsertIfOutsideCooldown(ctx, pendingExecution(id, constants.AnonymousCustomer, t0), 24*time.Hour)
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

func TestMemoryExecutionStore_TransitionsAreIdempotent(t *testing.T) {

	ctx := context.Background()
	s := NewMemoryExecutionStore()
	t0 := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	_, err := s.InsertIfOutsideCooldown(ctx, pendingExecution("a", "cust-1", t0), 0)
	require.NoError(t, err)

	clicked, err := s.MarkClicked(ctx, "a", t0.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, clicked, "pending executions cannot be clicked")

	sentAt := t0.Add(time.Second)
	ok, err := s.CompleteDispatch(ctx, "a", model.DispatchResult{Status: constants.ExecutionSent, SentAt: &sentAt, At: sentAt},
		[]string{constants.ExecutionPending})
	require.NoError(t, err)
	require.True(t, ok)

	first := t0.Add(2 * time.Minute)
	clicked, err = s.MarkClicked(ctx, "a", first)
	require.NoError(t, err)
	assert.True(t, clicked)
	clicked, err = s.MarkClicked(ctx, "a", first.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, clicked)

	e, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, constants.ExecutionClicked, e.Status)
	assert.Equal(t, first, *e.ClickedAt)

	converted, err := s.MarkConverted(ctx, "a", "order-9", 49.5, first.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, converted)
	converted, err = s.MarkConverted(ctx, "a", "order-10", 10, first.Add(2*time.Hour))
	require.NoError(t, err)
	assert.False(t, converted)

	e, err = s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "order-9", e.ConversionOrderId)
	assert.Equal(t, 49.5, *e.ConversionValue)
}

func TestMemoryExecutionStore_FailStalePending(t *testing.T) {

	ctx := context.Background()
	s := NewMemoryExecutionStore()
	t0 := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	_, _ = s.InsertIfOutsideCooldown(ctx, pendingExecution("old", "c1", t0), 0)
	_, _ = s.InsertIfOutsideCooldown(ctx, pendingExecution("new", "c2", t0.Add(time.Hour)), 0)

	failed, err := s.FailStalePending(ctx, t0.Add(30*time.Minute), "dispatch interrupted", t0.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), failed)

	e, _ := s.Get(ctx, "old")
	assert.Equal(t, constants.ExecutionFailed, e.Status)
	e, _ = s.Get(ctx, "new")
	assert.Equal(t, constants.ExecutionPending, e.Status)
}

func TestMemoryExecutionStore_CountByTriggerSince(t *testing.T) {

	ctx := context.Background()
	s := NewMemoryExecutionStore()
	t0 := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	value := 40.0

	sent := pendingExecution("a", "cust-1", t0)
	sent.Status = constants.ExecutionSent
	converted := pendingExecution("b", "cust-2", t0)
	converted.Status = constants.ExecutionConverted
	converted.ConvertedAt = &t0
	converted.ConversionValue = &value
	failed := pendingExecution("c", "cust-3", t0)
	failed.Status = constants.ExecutionFailed
	failed.TriggerId = "rule-2"
	old := pendingExecution("d", "cust-4", t0.Add(-48*time.Hour))
	old.Status = constants.ExecutionSent

	for _, e := range []*model.TriggerExecution{sent, converted, failed, old} {
		created, err := s.InsertIfOutsideCooldown(ctx, e, 0)
		require.NoError(t, err)
		require.True(t, created)
	}

	counts, err := s.CountByTriggerSince(ctx, "shop", t0.Add(-time.Hour))
	require.NoError(t, err)
	byTrigger := map[string]model.TriggerCounts{}
	for _, c := range counts {
		byTrigger[c.TriggerId] = c
	}
	require.Len(t, byTrigger, 2)
	assert.Equal(t, model.TriggerCounts{TriggerId: "rule-1", Executions: 2, Sent: 2, Clicked: 1, Converted: 1, Revenue: 40},
		byTrigger["rule-1"])
	assert.Equal(t, model.TriggerCounts{TriggerId: "rule-2", Executions: 1, Failed: 1}, byTrigger["rule-2"])
}

func TestMemoryExecutionStore_ClaimForRetry(t *testing.T) {

	ctx := context.Background()
	s := NewMemoryExecutionStore()
	t0 := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	failed := pendingExecution("x1", "cust-1", t0)
	failed.Status = constants.ExecutionFailed
	failed.Error = "timeout"
	_, _ = s.InsertIfOutsideCooldown(ctx, failed, 0)
	_, _ = s.InsertIfOutsideCooldown(ctx, pendingExecution("x2", "cust-2", t0), 0)

	claimed, err := s.ClaimForRetry(ctx, "x1", t0.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, claimed)
	e, _ := s.Get(ctx, "x1")
	assert.Equal(t, constants.ExecutionPending, e.Status)
	assert.Empty(t, e.Error)

	claimed, err = s.ClaimForRetry(ctx, "x1", t0.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, claimed, "already claimed")

	claimed, err = s.ClaimForRetry(ctx, "x2", t0.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, claimed, "pending executions are not retried")

	failedCount, err := s.FailStalePending(ctx, t0.Add(30*time.Minute), "dispatch interrupted", t0.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), failedCount, "a fresh claim is not stale")
	e, _ = s.Get(ctx, "x1")
	assert.Equal(t, constants.ExecutionPending, e.Status)
}
