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
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/wso2/commerce-trigger-service/internal/system/constants"
	"github.com/wso2/commerce-trigger-service/internal/trigger_executions/model"
)

// MemoryExecutionStore keeps executions in process. A single mutex makes the
// cooldown check and insert atomic.
type MemoryExecutionStore struct {
	mu         sync.Mutex
	executions map[string]*model.TriggerExecution
}

var _ ExecutionStoreInterface = (*MemoryExecutionStore)(nil)

func NewMemoryExecutionStore() *MemoryExecutionStore {
	return &MemoryExecutionStore{executions: map[string]*model.TriggerExecution{}}
}

func (s *MemoryExecutionStore) InsertIfOutsideCooldown(_ context.Context, execution *model.TriggerExecution,
	cooldown time.Duration) (bool, error) {

	s.mu.Lock()
	defer s.mu.Unlock()
	if execution.CustomerKey != constants.AnonymousCustomer && cooldown > 0 {
		cutoff := execution.CreatedAt.Add(-cooldown)
		if s.hasExecutionSinceLocked(execution.TriggerId, execution.CustomerKey, cutoff) {
			return false, nil
		}
	}
	stored := *execution
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = stored.CreatedAt
	}
	s.executions[execution.ExecutionId] = &stored
	return true, nil
}

func (s *MemoryExecutionStore) HasExecutionSince(_ context.Context, triggerId, customerKey string, since time.Time) (bool, error) {

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasExecutionSinceLocked(triggerId, customerKey, since), nil
}

func (s *MemoryExecutionStore) hasExecutionSinceLocked(triggerId, customerKey string, since time.Time) bool {
	for _, e := range s.executions {
		if e.TriggerId == triggerId && e.CustomerKey == customerKey && !e.CreatedAt.Before(since) {
			return true
		}
	}
	return false
}

func (s *MemoryExecutionStore) Get(_ context.Context, executionId string) (*model.TriggerExecution, error) {

	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.executions[executionId]
	if !ok {
		return nil, nil
	}
	copied := *e
	return &copied, nil
}

func (s *MemoryExecutionStore) CompleteDispatch(_ context.Context, executionId string, result model.DispatchResult,
	from []string) (bool, error) {

	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.executions[executionId]
	if !ok || !slices.Contains(from, e.Status) {
		return false, nil
	}
	e.Status = result.Status
	e.ActionPayload = result.Payload
	e.Error = result.Error
	if result.SentAt != nil {
		e.SentAt = result.SentAt
	}
	e.UpdatedAt = result.At
	return true, nil
}

func (s *MemoryExecutionStore) MarkClicked(_ context.Context, executionId string, at time.Time) (bool, error) {

	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.executions[executionId]
	if !ok || e.Status != constants.ExecutionSent || e.ClickedAt != nil {
		return false, nil
	}
	e.Status = constants.ExecutionClicked
	e.ClickedAt = &at
	e.UpdatedAt = at
	return true, nil
}

func (s *MemoryExecutionStore) MarkConverted(_ context.Context, executionId, orderId string, value float64,
	at time.Time) (bool, error) {

	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.executions[executionId]
	if !ok || (e.Status != constants.ExecutionSent && e.Status != constants.ExecutionClicked) {
		return false, nil
	}
	e.Status = constants.ExecutionConverted
	e.ConvertedAt = &at
	e.ConversionOrderId = orderId
	e.ConversionValue = &value
	e.UpdatedAt = at
	return true, nil
}

func (s *MemoryExecutionStore) ClaimForRetry(_ context.Context, executionId string, at time.Time) (bool, error) {

	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.executions[executionId]
	if !ok || !model.CanTransition(e.Status, constants.ExecutionPending) {
		return false, nil
	}
	e.Status = constants.ExecutionPending
	e.Error = ""
	e.UpdatedAt = at
	return true, nil
}

func (s *MemoryExecutionStore) FailStalePending(_ context.Context, before time.Time, reason string, at time.Time) (int64, error) {

	s.mu.Lock()
	defer s.mu.Unlock()
	var failed int64
	for _, e := range s.executions {
		if e.Status == constants.ExecutionPending && e.UpdatedAt.Before(before) {
			e.Status = constants.ExecutionFailed
			e.Error = reason
			e.UpdatedAt = at
			failed++
		}
	}
	return failed, nil
}

func (s *MemoryExecutionStore) ListByTrigger(_ context.Context, ownerId, triggerId string, limit int) ([]model.TriggerExecution, error) {

	s.mu.Lock()
	var result []model.TriggerExecution
	for _, e := range s.executions {
		if e.OwnerId == ownerId && e.TriggerId == triggerId {
			result = append(result, *e)
		}
	}
	s.mu.Unlock()

	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *MemoryExecutionStore) CountByTriggerSince(_ context.Context, ownerId string,
	since time.Time) ([]model.TriggerCounts, error) {

	s.mu.Lock()
	defer s.mu.Unlock()
	byTrigger := map[string]*model.TriggerCounts{}
	for _, e := range s.executions {
		if e.OwnerId != ownerId || e.CreatedAt.Before(since) {
			continue
		}
		counts, ok := byTrigger[e.TriggerId]
		if !ok {
			counts = &model.TriggerCounts{TriggerId: e.TriggerId}
			byTrigger[e.TriggerId] = counts
		}
		counts.Add(*e)
	}
	result := make([]model.TriggerCounts, 0, len(byTrigger))
	for _, counts := range byTrigger {
		result = append(result, *counts)
	}
	return result, nil
}
