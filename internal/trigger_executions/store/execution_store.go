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
	"time"

	"github.com/wso2/commerce-trigger-service/internal/trigger_executions/model"
)

// ExecutionStoreInterface persists trigger executions and their lifecycle.
type ExecutionStoreInterface interface {
	// InsertIfOutsideCooldown stores a pending execution unless the same trigger already
	// has an execution for the same customer created within cooldown before
	// execution.CreatedAt. The check and the insert are atomic across processes.
	// Anonymous customers and a zero cooldown always insert. created is false when
	// the cooldown suppressed the insert.
	InsertIfOutsideCooldown(ctx context.Context, execution *model.TriggerExecution, cooldown time.Duration) (created bool, err error)
	// HasExecutionSince reports whether an execution of the trigger for the customer was created at or after since.
	HasExecutionSince(ctx context.Context, triggerId, customerKey string, since time.Time) (bool, error)
	Get(ctx context.Context, executionId string) (*model.TriggerExecution, error)
	// CompleteDispatch records a dispatch result when the execution is in one of the from statuses.
	CompleteDispatch(ctx context.Context, executionId string, result model.DispatchResult, from []string) (bool, error)
	// MarkClicked moves a sent execution to clicked. It is a no-op in any other status.
	MarkClicked(ctx context.Context, executionId string, at time.Time) (bool, error)
	// MarkConverted moves a sent or clicked execution to converted.
	MarkConverted(ctx context.Context, executionId, orderId string, value float64, at time.Time) (bool, error)
	// ClaimForRetry moves a failed execution back to pending. Of concurrent callers
	// only one gets true.
	ClaimForRetry(ctx context.Context, executionId string, at time.Time) (bool, error)
	// FailStalePending fails executions left pending since before the cutoff.
	FailStalePending(ctx context.Context, before time.Time, reason string, at time.Time) (int64, error)
	ListByTrigger(ctx context.Context, ownerId, triggerId string, limit int) ([]model.TriggerExecution, error)
	// CountByTriggerSince tallies the owner's executions created at or after since, one entry per trigger.
	CountByTriggerSince(ctx context.Context, ownerId string, since time.Time) ([]model.TriggerCounts, error)
}
