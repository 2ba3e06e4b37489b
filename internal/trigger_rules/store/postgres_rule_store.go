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

	"github.com/wso2/commerce-trigger-service/internal/system/database/client"
	"github.com/wso2/commerce-trigger-service/internal/system/database/scripts"
	"github.com/wso2/commerce-trigger-service/internal/system/errors"
	"github.com/wso2/commerce-trigger-service/internal/system/log"
	"github.com/wso2/commerce-trigger-service/internal/trigger_rules/model"
)

const dbType = "postgres"

// PostgresRuleStore keeps trigger rules in the trigger_rules table.
type PostgresRuleStore struct {
	dbClient client.DBClientInterface
}

var _ RuleStoreInterface = (*PostgresRuleStore)(nil)

func NewPostgresRuleStore(dbClient client.DBClientInterface) *PostgresRuleStore {
	return &PostgresRuleStore{dbClient: dbClient}
}

func (s *PostgresRuleStore) ActiveRulesFor(ctx context.Context, ownerId, eventType string) ([]model.TriggerRule, error) {

	rows, err := s.dbClient.ExecuteQuery(ctx, scripts.ActiveTriggerRulesForEvent[dbType], ownerId, eventType)
	if err != nil {
		return nil, fetchError(fmt.Sprintf("Failed to fetch active trigger rules for event type: %s", eventType), err)
	}
	return mapRowsToRules(rows), nil
}

func (s *PostgresRuleStore) ActiveRulesWithCondition(ctx context.Context, conditionType string) ([]model.TriggerRule, error) {

	rows, err := s.dbClient.ExecuteQuery(ctx, scripts.ActiveTriggerRulesWithCondition[dbType], conditionType)
	if err != nil {
		return nil, fetchError(fmt.Sprintf("Failed to fetch active trigger rules with condition: %s", conditionType), err)
	}
	return mapRowsToRules(rows), nil
}

func (s *PostgresRuleStore) Create(ctx context.Context, rule *model.TriggerRule) error {

	_, err := s.dbClient.ExecuteStatement(ctx, scripts.InsertTriggerRule[dbType],
		rule.RuleId, rule.OwnerId, rule.Name, rule.Description, rule.EventType, rule.ConditionType,
		nullableJSON(rule.ConditionValue), rule.ActionType, jsonOrEmpty(rule.ActionConfig), rule.CooldownHours,
		rule.Priority, rule.Status, rule.LastFiredAt, rule.CreatedAt, rule.UpdatedAt)
	if err != nil {
		errorMsg := fmt.Sprintf("Failed to add trigger rule: %s", rule.RuleId)
		log.GetLogger().Debug(errorMsg, log.Error(err))
		return errors.NewServerError(errors.ErrorMessage{
			Code:        errors.ADD_TRIGGER_RULE.Code,
			Message:     errors.ADD_TRIGGER_RULE.Message,
			Description: errorMsg,
		}, err)
	}
	return nil
}

func (s *PostgresRuleStore) Get(ctx context.Context, ownerId, ruleId string) (*model.TriggerRule, error) {

	rows, err := s.dbClient.ExecuteQuery(ctx, scripts.GetTriggerRule[dbType], ruleId, ownerId)
	if err != nil {
		return nil, fetchError(fmt.Sprintf("Failed to fetch trigger rule: %s", ruleId), err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	rule := mapRowToRule(rows[0])
	return &rule, nil
}

func (s *PostgresRuleStore) List(ctx context.Context, ownerId string) ([]model.TriggerRule, error) {

	rows, err := s.dbClient.ExecuteQuery(ctx, scripts.ListTriggerRules[dbType], ownerId)
	if err != nil {
		return nil, fetchError(fmt.Sprintf("Failed to list trigger rules of owner: %s", ownerId), err)
	}
	return mapRowsToRules(rows), nil
}

func (s *PostgresRuleStore) Update(ctx context.Context, rule *model.TriggerRule) (bool, error) {

	affected, err := s.dbClient.ExecuteStatement(ctx, scripts.UpdateTriggerRule[dbType],
		rule.RuleId, rule.OwnerId, rule.Name, rule.Description, rule.EventType, rule.ConditionType,
		nullableJSON(rule.ConditionValue), rule.ActionType, jsonOrEmpty(rule.ActionConfig), rule.CooldownHours,
		rule.Priority, rule.Status, rule.UpdatedAt)
	if err != nil {
		errorMsg := fmt.Sprintf("Failed to update trigger rule: %s", rule.RuleId)
		log.GetLogger().Debug(errorMsg, log.Error(err))
		return false, errors.NewServerError(errors.ErrorMessage{
			Code:        errors.UPDATE_TRIGGER_RULE.Code,
			Message:     errors.UPDATE_TRIGGER_RULE.Message,
			Description: errorMsg,
		}, err)
	}
	return affected > 0, nil
}

func (s *PostgresRuleStore) Delete(ctx context.Context, ownerId, ruleId string) (bool, error) {

	affected, err := s.dbClient.ExecuteStatement(ctx, scripts.DeleteTriggerRule[dbType], ruleId, ownerId)
	if err != nil {
		errorMsg := fmt.Sprintf("Failed to delete trigger rule: %s", ruleId)
		log.GetLogger().Debug(errorMsg, log.Error(err))
		return false, errors.NewServerError(errors.ErrorMessage{
			Code:        errors.DELETE_TRIGGER_RULE.Code,
			Message:     errors.DELETE_TRIGGER_RULE.Message,
			Description: errorMsg,
		}, err)
	}
	return affected > 0, nil
}

func (s *PostgresRuleStore) TouchLastFired(ctx context.Context, ruleId string, firedAt time.Time) error {

	if _, err := s.dbClient.ExecuteStatement(ctx, scripts.TouchTriggerRuleLastFired[dbType], ruleId, firedAt); err != nil {
		errorMsg := fmt.Sprintf("Failed to record last fired time of trigger rule: %s", ruleId)
		log.GetLogger().Debug(errorMsg, log.Error(err))
		return errors.NewServerError(errors.ErrorMessage{
			Code:        errors.UPDATE_TRIGGER_RULE.Code,
			Message:     errors.UPDATE_TRIGGER_RULE.Message,
			Description: errorMsg,
		}, err)
	}
	return nil
}

func fetchError(errorMsg string, err error) error {

	log.GetLogger().Debug(errorMsg, log.Error(err))
	return errors.NewServerError(errors.ErrorMessage{
		Code:        errors.GET_TRIGGER_RULE.Code,
		Message:     errors.GET_TRIGGER_RULE.Message,
		Description: errorMsg,
	}, err)
}

func mapRowsToRules(rows []map[string]interface{}) []model.TriggerRule {

	rules := make([]model.TriggerRule, 0, len(rows))
	for _, row := range rows {
		rules = append(rules, mapRowToRule(row))
	}
	return rules
}

func mapRowToRule(row map[string]interface{}) model.TriggerRule {

	rule := model.TriggerRule{
		RuleId:        client.StringValue(row, "rule_id"),
		OwnerId:       client.StringValue(row, "owner_id"),
		Name:          client.StringValue(row, "name"),
		Description:   client.StringValue(row, "description"),
		EventType:     client.StringValue(row, "event_type"),
		ConditionType: client.StringValue(row, "condition_type"),
		ActionType:    client.StringValue(row, "action_type"),
		CooldownHours: client.IntValue(row, "cooldown_hours"),
		Priority:      client.IntValue(row, "priority"),
		Status:        client.StringValue(row, "status"),
		LastFiredAt:   client.NullableTimeValue(row, "last_fired_at"),
		CreatedAt:     client.TimeValue(row, "created_at"),
		UpdatedAt:     client.TimeValue(row, "updated_at"),
	}
	if raw := client.StringValue(row, "condition_value"); raw != "" {
		rule.ConditionValue = []byte(raw)
	}
	if raw := client.StringValue(row, "action_config"); raw != "" {
		rule.ActionConfig = []byte(raw)
	}
	return rule
}

func nullableJSON(raw []byte) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

func jsonOrEmpty(raw []byte) string {
	if len(raw) == 0 {
		return "{}"
	}
	return string(raw)
}
