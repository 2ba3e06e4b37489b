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
	"time"

	"github.com/lib/pq"
	"github.com/wso2/commerce-trigger-service/internal/system/constants"
	"github.com/wso2/commerce-trigger-service/internal/system/database/client"
	"github.com/wso2/commerce-trigger-service/internal/system/database/lock"
	"github.com/wso2/commerce-trigger-service/internal/system/database/scripts"
	"github.com/wso2/commerce-trigger-service/internal/system/errors"
	"github.com/wso2/commerce-trigger-service/internal/system/log"
	"github.com/wso2/commerce-trigger-service/internal/trigger_executions/model"
)

const dbType = "postgres"

// PostgresExecutionStore keeps executions in the trigger_executions table.
type PostgresExecutionStore struct {
	dbClient client.DBClientInterface
}

var _ ExecutionStoreInterface = (*PostgresExecutionStore)(nil)

func NewPostgresExecutionStore(dbClient client.DBClientInterface) *PostgresExecutionStore {
	return &PostgresExecutionStore{dbClient: dbClient}
}

// InsertIfOutsideCooldown serializes competing inserts for one (trigger, customer)
// pair on a transaction scoped advisory lock, then inserts only when the cooldown
// window holds no execution. The insert statement sees every execution committed
// by a previous lock holder.
func (s *PostgresExecutionStore) InsertIfOutsideCooldown(ctx context.Context, execution *model.TriggerExecution,
	cooldown time.Duration) (bool, error) {

	logger := log.GetLogger()
	if execution.CustomerKey == constants.AnonymousCustomer || cooldown <= 0 {
		_, err := s.dbClient.ExecuteStatement(ctx, scripts.InsertTriggerExecution[dbType],
			execution.ExecutionId, execution.OwnerId, execution.TriggerId, execution.CustomerKey,
			execution.EventId, execution.ActionType, execution.Status, execution.CreatedAt)
		if err != nil {
			return false, addExecutionError(execution.ExecutionId, err)
		}
		return true, nil
	}

	tx, err := s.dbClient.BeginTx(ctx)
	if err != nil {
		return false, addExecutionError(execution.ExecutionId, err)
	}

	if err := lock.AcquireXact(ctx, tx, lock.CooldownKey(execution.TriggerId, execution.CustomerKey)); err != nil {
		_ = tx.Rollback()
		return false, err
	}

	result, err := tx.ExecContext(ctx, scripts.InsertTriggerExecutionOutsideCooldown[dbType],
		execution.ExecutionId, execution.OwnerId, execution.TriggerId, execution.CustomerKey,
		execution.EventId, execution.ActionType, execution.Status, execution.CreatedAt,
		execution.CreatedAt.Add(-cooldown))
	if err != nil {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			logger.Debug(fmt.Sprintf("Failed to rollback insert of execution: %s", execution.ExecutionId),
				log.Error(rollbackErr))
		}
		return false, addExecutionError(execution.ExecutionId, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		_ = tx.Rollback()
		return false, addExecutionError(execution.ExecutionId, err)
	}
	if err := tx.Commit(); err != nil {
		return false, addExecutionError(execution.ExecutionId, err)
	}
	return affected == 1, nil
}

func (s *PostgresExecutionStore) HasExecutionSince(ctx context.Context, triggerId, customerKey string,
	since time.Time) (bool, error) {

	rows, err := s.dbClient.ExecuteQuery(ctx, scripts.HasTriggerExecutionSince[dbType], triggerId, customerKey, since)
	if err != nil {
		return false, getExecutionError(fmt.Sprintf("Failed to check recent executions of trigger: %s", triggerId), err)
	}
	return len(rows) > 0, nil
}

func (s *PostgresExecutionStore) Get(ctx context.Context, executionId string) (*model.TriggerExecution, error) {

	rows, err := s.dbClient.ExecuteQuery(ctx, scripts.GetTriggerExecution[dbType], executionId)
	if err != nil {
		return nil, getExecutionError(fmt.Sprintf("Failed to fetch trigger execution: %s", executionId), err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	execution := mapRowToExecution(rows[0])
	return &execution, nil
}

func (s *PostgresExecutionStore) CompleteDispatch(ctx context.Context, executionId string, result model.DispatchResult,
	from []string) (bool, error) {

	var payload interface{}
	if len(result.Payload) > 0 {
		payload = string(result.Payload)
	}
	affected, err := s.dbClient.ExecuteStatement(ctx, scripts.CompleteTriggerExecution[dbType],
		executionId, result.Status, payload, result.Error, result.SentAt, result.At, pq.Array(from))
	if err != nil {
		return false, updateExecutionError(executionId, err)
	}
	return affected > 0, nil
}

func (s *PostgresExecutionStore) MarkClicked(ctx context.Context, executionId string, at time.Time) (bool, error) {

	affected, err := s.dbClient.ExecuteStatement(ctx, scripts.MarkTriggerExecutionClicked[dbType], executionId, at)
	if err != nil {
		return false, updateExecutionError(executionId, err)
	}
	return affected > 0, nil
}

func (s *PostgresExecutionStore) MarkConverted(ctx context.Context, executionId, orderId string, value float64,
	at time.Time) (bool, error) {

	affected, err := s.dbClient.ExecuteStatement(ctx, scripts.MarkTriggerExecutionConverted[dbType],
		executionId, at, orderId, value)
	if err != nil {
		return false, updateExecutionError(executionId, err)
	}
	return affected > 0, nil
}

func (s *PostgresExecutionStore) ClaimForRetry(ctx context.Context, executionId string, at time.Time) (bool, error) {

	affected, err := s.dbClient.ExecuteStatement(ctx, scripts.ClaimTriggerExecutionForRetry[dbType], executionId, at)
	if err != nil {
		return false, updateExecutionError(executionId, err)
	}
	return affected > 0, nil
}

func (s *PostgresExecutionStore) FailStalePending(ctx context.Context, before time.Time, reason string,
	at time.Time) (int64, error) {

	affected, err := s.dbClient.ExecuteStatement(ctx, scripts.FailStalePendingExecutions[dbType], before, reason, at)
	if err != nil {
		return 0, updateExecutionError("stale pending", err)
	}
	return affected, nil
}

func (s *PostgresExecutionStore) ListByTrigger(ctx context.Context, ownerId, triggerId string,
	limit int) ([]model.TriggerExecution, error) {

	rows, err := s.dbClient.ExecuteQuery(ctx, scripts.ListTriggerExecutionsByTrigger[dbType], ownerId, triggerId, limit)
	if err != nil {
		return nil, getExecutionError(fmt.Sprintf("Failed to list executions of trigger: %s", triggerId), err)
	}
	return mapRowsToExecutions(rows), nil
}

func (s *PostgresExecutionStore) CountByTriggerSince(ctx context.Context, ownerId string,
	since time.Time) ([]model.TriggerCounts, error) {

	rows, err := s.dbClient.ExecuteQuery(ctx, scripts.CountTriggerExecutionsSince[dbType], ownerId, since)
	if err != nil {
		return nil, getExecutionError(fmt.Sprintf("Failed to count executions of owner: %s", ownerId), err)
	}
	result := make([]model.TriggerCounts, 0, len(rows))
	for _, row := range rows {
		result = append(result, model.TriggerCounts{
			TriggerId:  client.StringValue(row, "trigger_id"),
			Executions: client.IntValue(row, "executions"),
			Sent:       client.IntValue(row, "sent"),
			Failed:     client.IntValue(row, "failed"),
			Clicked:    client.IntValue(row, "clicked"),
			Converted:  client.IntValue(row, "converted"),
			Revenue:    client.FloatValue(row, "revenue"),
		})
	}
	return result, nil
}

func addExecutionError(executionId string, err error) error {

	errorMsg := fmt.Sprintf("Failed to record trigger execution: %s", executionId)
	log.GetLogger().Debug(errorMsg, log.Error(err))
	return errors.NewServerError(errors.ErrorMessage{
		Code:        errors.ADD_EXECUTION.Code,
		Message:     errors.ADD_EXECUTION.Message,
		Description: errorMsg,
	}, err)
}

func getExecutionError(errorMsg string, err error) error {

	log.GetLogger().Debug(errorMsg, log.Error(err))
	return errors.NewServerError(errors.ErrorMessage{
		Code:        errors.GET_EXECUTION.Code,
		Message:     errors.GET_EXECUTION.Message,
		Description: errorMsg,
	}, err)
}

func updateExecutionError(executionId string, err error) error {

	errorMsg := fmt.Sprintf("Failed to update trigger execution: %s", executionId)
	log.GetLogger().Debug(errorMsg, log.Error(err))
	return errors.NewServerError(errors.ErrorMessage{
		Code:        errors.UPDATE_EXECUTION.Code,
		Message:     errors.UPDATE_EXECUTION.Message,
		Description: errorMsg,
	}, err)
}

func mapRowsToExecutions(rows []map[string]interface{}) []model.TriggerExecution {

	executions := make([]model.TriggerExecution, 0, len(rows))
	for _, row := range rows {
		executions = append(executions, mapRowToExecution(row))
	}
	return executions
}

func mapRowToExecution(row map[string]interface{}) model.TriggerExecution {

	execution := model.TriggerExecution{
		ExecutionId:       client.StringValue(row, "execution_id"),
		OwnerId:           client.StringValue(row, "owner_id"),
		TriggerId:         client.StringValue(row, "trigger_id"),
		CustomerKey:       client.StringValue(row, "customer_key"),
		EventId:           client.StringValue(row, "event_id"),
		ActionType:        client.StringValue(row, "action_type"),
		Status:            client.StringValue(row, "status"),
		Error:             client.StringValue(row, "error"),
		CreatedAt:         client.TimeValue(row, "created_at"),
		SentAt:            client.NullableTimeValue(row, "sent_at"),
		ClickedAt:         client.NullableTimeValue(row, "clicked_at"),
		ConvertedAt:       client.NullableTimeValue(row, "converted_at"),
		ConversionOrderId: client.StringValue(row, "conversion_order_id"),
		ConversionValue:   client.NullableFloatValue(row, "conversion_value"),
		UpdatedAt:         client.TimeValue(row, "updated_at"),
	}
	if raw := client.StringValue(row, "action_payload"); raw != "" {
		execution.ActionPayload = []byte(raw)
	}
	return execution
}
