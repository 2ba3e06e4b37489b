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
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/wso2/commerce-trigger-service/internal/system/constants"
	"github.com/wso2/commerce-trigger-service/internal/system/errors"
	"github.com/wso2/commerce-trigger-service/internal/system/log"
	"github.com/wso2/commerce-trigger-service/internal/trigger_executions/model"
	"github.com/wso2/commerce-trigger-service/internal/trigger_executions/store"
)

// ExecutionTrackerInterface records executions and moves them through their lifecycle.
type ExecutionTrackerInterface interface {
	// RecordDispatch stores a pending execution unless the rule's cooldown suppresses it.
	RecordDispatch(ctx context.Context, execution *model.TriggerExecution, cooldown time.Duration) (bool, error)
	// HasExecutionSince reports whether the trigger fired for the customer at or after since.
	HasExecutionSince(ctx context.Context, triggerId, customerKey string, since time.Time) (bool, error)
	MarkSent(ctx context.Context, executionId string, payload json.RawMessage, from ...string) error
	MarkFailed(ctx context.Context, executionId string, payload json.RawMessage, reason string, from ...string) error
	MarkClicked(ctx context.Context, executionId string) (*model.TriggerExecution, error)
	MarkConverted(ctx context.Context, executionId string, conversion model.ConversionRequest) (*model.TriggerExecution, error)
	Get(ctx context.Context, executionId string) (*model.TriggerExecution, error)
	ListByTrigger(ctx context.Context, ownerId, triggerId string, limit int) ([]model.TriggerExecution, error)
	CountByTriggerSince(ctx context.Context, ownerId string, since time.Time) ([]model.TriggerCounts, error)
	// ClaimRetry moves a failed execution back to pending so that exactly one retry delivers it.
	ClaimRetry(ctx context.Context, executionId string) (bool, error)
	// FailStalePending fails executions that stayed pending for longer than olderThan.
	FailStalePending(ctx context.Context, olderThan time.Duration) (int64, error)
}

// LifecyclePublisher announces execution status changes to other systems.
type LifecyclePublisher interface {
	Publish(ctx context.Context, event model.LifecycleEvent) error
}

// NoopPublisher drops lifecycle events.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, model.LifecycleEvent) error { return nil }

// ExecutionTracker is the default implementation of the ExecutionTrackerInterface.
type ExecutionTracker struct {
	store     store.ExecutionStoreInterface
	publisher LifecyclePublisher
	now       func() time.Time
}

// GetExecutionTracker creates a tracker over the given store. A nil publisher
// disables lifecycle events.
func GetExecutionTracker(executionStore store.ExecutionStoreInterface, publisher LifecyclePublisher) *ExecutionTracker {

	if publisher == nil {
		publisher = NoopPublisher{}
	}
	return &ExecutionTracker{
		store:     executionStore,
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the tracker's time source.
func (t *ExecutionTracker) WithClock(now func() time.Time) *ExecutionTracker {
	t.now = now
	return t
}

func (t *ExecutionTracker) RecordDispatch(ctx context.Context, execution *model.TriggerExecution,
	cooldown time.Duration) (bool, error) {

	if execution.CreatedAt.IsZero() {
		execution.CreatedAt = t.now()
	}
	execution.Status = constants.ExecutionPending
	execution.UpdatedAt = execution.CreatedAt

	created, err := t.store.InsertIfOutsideCooldown(ctx, execution, cooldown)
	if err != nil {
		return false, err
	}
	if created {
		t.publish(ctx, *execution)
	}
	return created, nil
}

func (t *ExecutionTracker) HasExecutionSince(ctx context.Context, triggerId, customerKey string,
	since time.Time) (bool, error) {

	return t.store.HasExecutionSince(ctx, triggerId, customerKey, since)
}

func (t *ExecutionTracker) MarkSent(ctx context.Context, executionId string, payload json.RawMessage,
	from ...string) error {

	at := t.now()
	return t.complete(ctx, executionId, model.DispatchResult{
		Status:  constants.ExecutionSent,
		Payload: payload,
		SentAt:  &at,
		At:      at,
	}, from)
}

func (t *ExecutionTracker) MarkFailed(ctx context.Context, executionId string, payload json.RawMessage,
	reason string, from ...string) error {

	return t.complete(ctx, executionId, model.DispatchResult{
		Status:  constants.ExecutionFailed,
		Payload: payload,
		Error:   reason,
		At:      t.now(),
	}, from)
}

func (t *ExecutionTracker) complete(ctx context.Context, executionId string, result model.DispatchResult,
	from []string) error {

	if len(from) == 0 {
		from = []string{constants.ExecutionPending}
	}
	updated, err := t.store.CompleteDispatch(ctx, executionId, result, from)
	if err != nil {
		return err
	}
	execution, err := t.Get(ctx, executionId)
	if err != nil {
		return err
	}
	if !updated {
		return errors.NewClientError(errors.ErrorMessage{
			Code:    errors.INVALID_EXECUTION_TRANSITION.Code,
			Message: errors.INVALID_EXECUTION_TRANSITION.Message,
			Description: fmt.Sprintf("Execution %s is %s and cannot move to %s.",
				executionId, execution.Status, result.Status),
		}, http.StatusConflict)
	}
	t.publish(ctx, *execution)
	return nil
}

// MarkClicked records the first click on a sent execution. Repeated or early
// clicks leave the execution unchanged and are not errors.
func (t *ExecutionTracker) MarkClicked(ctx context.Context, executionId string) (*model.TriggerExecution, error) {

	changed, err := t.store.MarkClicked(ctx, executionId, t.now())
	if err != nil {
		return nil, err
	}
	execution, err := t.Get(ctx, executionId)
	if err != nil {
		return nil, err
	}
	if changed {
		t.publish(ctx, *execution)
	} else {
		log.GetLogger().Debug(fmt.Sprintf("Click on execution %s in status %s ignored", executionId, execution.Status))
	}
	return execution, nil
}

// MarkConverted records a conversion. A second conversion report for the same
// execution keeps the first order.
func (t *ExecutionTracker) MarkConverted(ctx context.Context, executionId string,
	conversion model.ConversionRequest) (*model.TriggerExecution, error) {

	if conversion.OrderId == "" {
		return nil, invalidConversion("order_id is required.")
	}
	if conversion.Value == nil || *conversion.Value < 0 {
		return nil, invalidConversion("value must be a non-negative number.")
	}

	changed, err := t.store.MarkConverted(ctx, executionId, conversion.OrderId, *conversion.Value, t.now())
	if err != nil {
		return nil, err
	}
	execution, err := t.Get(ctx, executionId)
	if err != nil {
		return nil, err
	}
	if changed {
		t.publish(ctx, *execution)
	} else {
		log.GetLogger().Debug(fmt.Sprintf("Conversion on execution %s in status %s ignored",
			executionId, execution.Status))
	}
	return execution, nil
}

func invalidConversion(description string) error {
	return errors.NewClientError(errors.ErrorMessage{
		Code:        errors.INVALID_CONVERSION.Code,
		Message:     errors.INVALID_CONVERSION.Message,
		Description: description,
	}, http.StatusBadRequest)
}

func (t *ExecutionTracker) Get(ctx context.Context, executionId string) (*model.TriggerExecution, error) {

	execution, err := t.store.Get(ctx, executionId)
	if err != nil {
		return nil, err
	}
	if execution == nil {
		return nil, errors.NewClientError(errors.ErrorMessage{
			Code:        errors.EXECUTION_NOT_FOUND.Code,
			Message:     errors.EXECUTION_NOT_FOUND.Message,
			Description: fmt.Sprintf("Trigger execution %s does not exist.", executionId),
		}, http.StatusNotFound)
	}
	return execution, nil
}

func (t *ExecutionTracker) ListByTrigger(ctx context.Context, ownerId, triggerId string,
	limit int) ([]model.TriggerExecution, error) {

	return t.store.ListByTrigger(ctx, ownerId, triggerId, limit)
}

func (t *ExecutionTracker) CountByTriggerSince(ctx context.Context, ownerId string,
	since time.Time) ([]model.TriggerCounts, error) {

	return t.store.CountByTriggerSince(ctx, ownerId, since)
}

func (t *ExecutionTracker) ClaimRetry(ctx context.Context, executionId string) (bool, error) {

	return t.store.ClaimForRetry(ctx, executionId, t.now())
}

func (t *ExecutionTracker) FailStalePending(ctx context.Context, olderThan time.Duration) (int64, error) {

	now := t.now()
	failed, err := t.store.FailStalePending(ctx, now.Add(-olderThan), "dispatch did not complete", now)
	if err != nil {
		return 0, err
	}
	if failed > 0 {
		log.GetLogger().Warn("Failed executions left pending", log.Int("count", int(failed)))
	}
	return failed, nil
}

func (t *ExecutionTracker) publish(ctx context.Context, execution model.TriggerExecution) {

	event := model.LifecycleEvent{
		ExecutionId: execution.ExecutionId,
		OwnerId:     execution.OwnerId,
		TriggerId:   execution.TriggerId,
		CustomerKey: execution.CustomerKey,
		Status:      execution.Status,
		OccurredAt:  execution.UpdatedAt,
	}
	if err := t.publisher.Publish(ctx, event); err != nil {
		log.GetLogger().Warn(fmt.Sprintf("Failed to publish %s lifecycle event for execution: %s",
			execution.Status, execution.ExecutionId), log.Error(err))
	}
}
