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
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wso2/commerce-trigger-service/internal/system/constants"
	systemContext "github.com/wso2/commerce-trigger-service/internal/system/context"
	"github.com/wso2/commerce-trigger-service/internal/system/errors"
	"github.com/wso2/commerce-trigger-service/internal/system/log"
	"github.com/wso2/commerce-trigger-service/internal/trigger_rules/model"
	"github.com/wso2/commerce-trigger-service/internal/trigger_rules/store"
)

// TriggerRuleServiceInterface manages a merchant's trigger rules.
type TriggerRuleServiceInterface interface {
	AddTriggerRule(ctx context.Context, ownerId string, request model.TriggerRuleRequest) (*model.TriggerRule, error)
	GetTriggerRule(ctx context.Context, ownerId, ruleId string) (*model.TriggerRule, error)
	GetTriggerRules(ctx context.Context, ownerId string) ([]model.TriggerRule, error)
	UpdateTriggerRule(ctx context.Context, ownerId, ruleId string, request model.TriggerRuleRequest) (*model.TriggerRule, error)
	DeleteTriggerRule(ctx context.Context, ownerId, ruleId string) error
}

// TriggerRuleService is the default implementation of the TriggerRuleServiceInterface.
type TriggerRuleService struct {
	store           store.RuleStoreInterface
	defaultCooldown int
	now             func() time.Time
}

// statusTransitions lists the statuses a rule may move to from each status.
var statusTransitions = map[string][]string{
	constants.RuleStatusDraft:  {constants.RuleStatusActive},
	constants.RuleStatusActive: {constants.RuleStatusPaused},
	constants.RuleStatusPaused: {constants.RuleStatusActive},
}

// GetTriggerRuleService creates a rule service. defaultCooldownHours applies to
// rules created without an explicit cooldown.
func GetTriggerRuleService(ruleStore store.RuleStoreInterface, defaultCooldownHours int) *TriggerRuleService {

	return &TriggerRuleService{
		store:           ruleStore,
		defaultCooldown: defaultCooldownHours,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the service's time source.
func (s *TriggerRuleService) WithClock(now func() time.Time) *TriggerRuleService {
	s.now = now
	return s
}

func (s *TriggerRuleService) AddTriggerRule(ctx context.Context, ownerId string,
	request model.TriggerRuleRequest) (*model.TriggerRule, error) {

	status := request.Status
	if status == "" {
		status = constants.RuleStatusDraft
	}
	if status == constants.RuleStatusPaused {
		return nil, invalidRule("A new trigger rule can only be created as draft or active.")
	}

	now := s.now()
	rule := &model.TriggerRule{
		RuleId:    uuid.New().String(),
		OwnerId:   ownerId,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.apply(rule, request); err != nil {
		return nil, err
	}

	if err := s.store.Create(ctx, rule); err != nil {
		return nil, err
	}
	audit(ctx, log.ActionAddTriggerRule, rule)
	return rule, nil
}

func (s *TriggerRuleService) GetTriggerRule(ctx context.Context, ownerId, ruleId string) (*model.TriggerRule, error) {

	rule, err := s.store.Get(ctx, ownerId, ruleId)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, ruleNotFound(ruleId)
	}
	return rule, nil
}

func (s *TriggerRuleService) GetTriggerRules(ctx context.Context, ownerId string) ([]model.TriggerRule, error) {

	rules, err := s.store.List(ctx, ownerId)
	if err != nil {
		return nil, err
	}
	if rules == nil {
		rules = []model.TriggerRule{}
	}
	return rules, nil
}

func (s *TriggerRuleService) UpdateTriggerRule(ctx context.Context, ownerId, ruleId string,
	request model.TriggerRuleRequest) (*model.TriggerRule, error) {

	rule, err := s.GetTriggerRule(ctx, ownerId, ruleId)
	if err != nil {
		return nil, err
	}

	if request.Status != "" && request.Status != rule.Status {
		if !canMove(rule.Status, request.Status) {
			return nil, invalidRule(fmt.Sprintf("A trigger rule cannot move from %s to %s.", rule.Status, request.Status))
		}
		rule.Status = request.Status
	}
	if request.CooldownHours == nil {
		cooldown := rule.CooldownHours
		request.CooldownHours = &cooldown
	}
	if err := s.apply(rule, request); err != nil {
		return nil, err
	}
	rule.UpdatedAt = s.now()

	updated, err := s.store.Update(ctx, rule)
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, ruleNotFound(ruleId)
	}
	audit(ctx, log.ActionUpdateTriggerRule, rule)
	return rule, nil
}

func (s *TriggerRuleService) DeleteTriggerRule(ctx context.Context, ownerId, ruleId string) error {

	deleted, err := s.store.Delete(ctx, ownerId, ruleId)
	if err != nil {
		return err
	}
	if !deleted {
		return ruleNotFound(ruleId)
	}
	audit(ctx, log.ActionDeleteTriggerRule, &model.TriggerRule{RuleId: ruleId, OwnerId: ownerId})
	return nil
}

// apply validates the request and copies it onto the rule.
func (s *TriggerRuleService) apply(rule *model.TriggerRule, request model.TriggerRuleRequest) error {

	name := strings.TrimSpace(request.Name)
	if name == "" {
		return invalidRule("name is required.")
	}
	if !constants.AllowedEventTypes[request.EventType] {
		return invalidRule(fmt.Sprintf("Unsupported event_type '%s'.", request.EventType))
	}
	if !constants.AllowedRuleStatuses[rule.Status] {
		return invalidRule(fmt.Sprintf("Unsupported status '%s'.", rule.Status))
	}

	if _, err := model.ParseCondition(request.ConditionType, request.ConditionValue); err != nil {
		return malformed(errors.MALFORMED_CONDITION, err)
	}
	if _, err := model.ParseActionConfig(request.ActionType, request.ActionConfig); err != nil {
		return malformed(errors.MALFORMED_ACTION_CONFIG, err)
	}

	cooldown := s.defaultCooldown
	if request.CooldownHours != nil {
		cooldown = *request.CooldownHours
	}
	if cooldown < 0 {
		return invalidRule("cooldown_hours cannot be negative.")
	}

	rule.Name = name
	rule.Description = request.Description
	rule.EventType = request.EventType
	rule.ConditionType = request.ConditionType
	rule.ConditionValue = request.ConditionValue
	rule.ActionType = request.ActionType
	rule.ActionConfig = request.ActionConfig
	rule.CooldownHours = cooldown
	rule.Priority = request.Priority
	return nil
}

func canMove(from, to string) bool {
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func audit(ctx context.Context, action string, rule *model.TriggerRule) {

	initiator := rule.OwnerId
	if claims := systemContext.GetClaims(ctx); claims != nil {
		if sub, ok := claims["sub"].(string); ok && sub != "" {
			initiator = sub
		}
	}
	log.GetLogger().Audit(log.AuditEvent{
		InitiatorID:   initiator,
		InitiatorType: log.InitiatorTypeUser,
		TargetID:      rule.RuleId,
		TargetType:    log.TargetTypeTriggerRule,
		ActionID:      action,
		TraceID:       systemContext.GetTraceID(ctx),
		Data:          map[string]string{"ownerId": rule.OwnerId, "status": rule.Status},
	})
}

func invalidRule(description string) error {
	return errors.NewClientError(errors.ErrorMessage{
		Code:        errors.INVALID_TRIGGER_RULE.Code,
		Message:     errors.INVALID_TRIGGER_RULE.Message,
		Description: description,
	}, http.StatusBadRequest)
}

func malformed(msg errors.ErrorMessage, err error) error {

	description := err.Error()
	var configErr *model.MalformedConfigError
	if stderrors.As(err, &configErr) {
		description = fmt.Sprintf("%s: %s", configErr.Type, configErr.Reason)
	}
	return errors.NewClientError(errors.ErrorMessage{
		Code:        msg.Code,
		Message:     msg.Message,
		Description: description,
	}, http.StatusBadRequest)
}

func ruleNotFound(ruleId string) error {
	return errors.NewClientError(errors.ErrorMessage{
		Code:        errors.TRIGGER_RULE_NOT_FOUND.Code,
		Message:     errors.TRIGGER_RULE_NOT_FOUND.Message,
		Description: fmt.Sprintf("Trigger rule %s not found.", ruleId),
	}, http.StatusNotFound)
}
