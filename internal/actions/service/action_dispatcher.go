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

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wso2/commerce-trigger-service/internal/actions/model"
	eventModel "github.com/wso2/commerce-trigger-service/internal/behavior_events/model"
	eventStore "github.com/wso2/commerce-trigger-service/internal/behavior_events/store"
	"github.com/wso2/commerce-trigger-service/internal/system/constants"
	"github.com/wso2/commerce-trigger-service/internal/system/errors"
	"github.com/wso2/commerce-trigger-service/internal/system/idgen"
	"github.com/wso2/commerce-trigger-service/internal/system/log"
	execModel "github.com/wso2/commerce-trigger-service/internal/trigger_executions/model"
	execService "github.com/wso2/commerce-trigger-service/internal/trigger_executions/service"
	ruleModel "github.com/wso2/commerce-trigger-service/internal/trigger_rules/model"
	ruleStore "github.com/wso2/commerce-trigger-service/internal/trigger_rules/store"
)

var tracer = otel.Tracer("github.com/wso2/commerce-trigger-service/internal/actions")

// Reserver atomically claims the right to fire a rule for a customer by storing
// a pending execution.
type Reserver interface {
	Reserve(ctx context.Context, rule *ruleModel.TriggerRule, execution *execModel.TriggerExecution) (bool, error)
}

// ActionDispatcherInterface fires rule actions and re-sends failed ones on request.
type ActionDispatcherInterface interface {
	Dispatch(ctx context.Context, rule *ruleModel.TriggerRule, event *eventModel.BehaviorEvent) (string, bool, error)
	Retry(ctx context.Context, ownerId, executionId string) (*execModel.TriggerExecution, error)
}

// ActionDispatcher is the default implementation of the ActionDispatcherInterface.
type ActionDispatcher struct {
	registry        Registry
	reserver        Reserver
	tracker         execService.ExecutionTrackerInterface
	rules           ruleStore.RuleStoreInterface
	events          eventStore.EventStoreInterface
	timeout         time.Duration
	trackingBaseURL string
	now             func() time.Time
}

type DispatcherConfig struct {
	Timeout         time.Duration
	TrackingBaseURL string
}

func GetActionDispatcher(registry Registry, reserver Reserver, tracker execService.ExecutionTrackerInterface,
	rules ruleStore.RuleStoreInterface, events eventStore.EventStoreInterface, cfg DispatcherConfig) *ActionDispatcher {

	return &ActionDispatcher{
		registry:        registry,
		reserver:        reserver,
		tracker:         tracker,
		rules:           rules,
		events:          events,
		timeout:         cfg.Timeout,
		trackingBaseURL: cfg.TrackingBaseURL,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the dispatcher's time source.
func (d *ActionDispatcher) WithClock(now func() time.Time) *ActionDispatcher {
	d.now = now
	return d
}

// Dispatch reserves a pending execution and then delivers the rule's action.
// created is false when the cooldown suppressed the firing. Delivery failures
// are recorded on the execution and are not returned.
func (d *ActionDispatcher) Dispatch(ctx context.Context, rule *ruleModel.TriggerRule,
	event *eventModel.BehaviorEvent) (string, bool, error) {

	executionId, err := idgen.NewExecutionId()
	if err != nil {
		return "", false, errors.NewServerError(errors.DISPATCH_ACTION, err)
	}
	execution := &execModel.TriggerExecution{
		ExecutionId: executionId,
		OwnerId:     rule.OwnerId,
		TriggerId:   rule.RuleId,
		CustomerKey: event.CustomerKey,
		EventId:     event.EventId,
		ActionType:  rule.ActionType,
		CreatedAt:   d.now(),
	}
	created, err := d.reserver.Reserve(ctx, rule, execution)
	if err != nil || !created {
		return "", false, err
	}

	d.deliver(ctx, rule, event, executionId)
	return executionId, true, nil
}

// Retry re-sends the action of a failed execution under the same execution id.
func (d *ActionDispatcher) Retry(ctx context.Context, ownerId, executionId string) (*execModel.TriggerExecution, error) {

	execution, err := d.tracker.Get(ctx, executionId)
	if err != nil {
		return nil, err
	}
	if execution.OwnerId != ownerId {
		return nil, errors.NewClientError(errors.ErrorMessage{
			Code:        errors.EXECUTION_NOT_FOUND.Code,
			Message:     errors.EXECUTION_NOT_FOUND.Message,
			Description: fmt.Sprintf("Trigger execution %s does not exist.", executionId),
		}, http.StatusNotFound)
	}
	if execution.Status != constants.ExecutionFailed {
		return nil, errors.NewClientError(errors.ErrorMessage{
			Code:        errors.INVALID_EXECUTION_TRANSITION.Code,
			Message:     errors.INVALID_EXECUTION_TRANSITION.Message,
			Description: fmt.Sprintf("Only failed executions can be retried. Execution %s is %s.", executionId, execution.Status),
		}, http.StatusConflict)
	}

	rule, err := d.rules.Get(ctx, ownerId, execution.TriggerId)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, errors.NewClientError(errors.ErrorMessage{
			Code:        errors.TRIGGER_RULE_NOT_FOUND.Code,
			Message:     errors.TRIGGER_RULE_NOT_FOUND.Message,
			Description: fmt.Sprintf("Trigger rule %s of execution %s no longer exists.", execution.TriggerId, executionId),
		}, http.StatusNotFound)
	}
	event, err := d.events.Get(ctx, execution.EventId)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, errors.NewClientError(errors.ErrorMessage{
			Code:        errors.EVENT_NOT_FOUND.Code,
			Message:     errors.EVENT_NOT_FOUND.Message,
			Description: fmt.Sprintf("Behavior event %s of execution %s does not exist.", execution.EventId, executionId),
		}, http.StatusNotFound)
	}

	claimed, err := d.tracker.ClaimRetry(ctx, executionId)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, errors.NewClientError(errors.ErrorMessage{
			Code:        errors.INVALID_EXECUTION_TRANSITION.Code,
			Message:     errors.INVALID_EXECUTION_TRANSITION.Message,
			Description: fmt.Sprintf("Execution %s is already being retried.", executionId),
		}, http.StatusConflict)
	}

	log.GetLogger().Audit(log.AuditEvent{
		InitiatorID:   ownerId,
		InitiatorType: log.InitiatorTypeAdmin,
		TargetID:      executionId,
		TargetType:    log.TargetTypeTriggerExecution,
		ActionID:      log.ActionRetryExecution,
	})
	d.deliver(ctx, rule, event, executionId)
	return d.tracker.Get(ctx, executionId)
}

// deliver renders and sends the action, then records sent or failed on the
// execution. The outcome is recorded even when ctx has been cancelled.
func (d *ActionDispatcher) deliver(ctx context.Context, rule *ruleModel.TriggerRule, event *eventModel.BehaviorEvent,
	executionId string) {

	ctx, span := tracer.Start(ctx, "dispatch "+rule.ActionType)
	defer span.End()
	span.SetAttributes(
		attribute.String("trigger.id", rule.RuleId),
		attribute.String("trigger.action_type", rule.ActionType),
		attribute.String("execution.id", executionId),
	)

	logger := log.GetLogger().With(
		log.String("execution_id", executionId),
		log.String("trigger_id", rule.RuleId),
		log.String("action_type", rule.ActionType),
	)
	recordCtx := context.WithoutCancel(ctx)

	handler, ok := d.registry.Lookup(rule.ActionType)
	if !ok {
		d.fail(recordCtx, logger, span, executionId, nil, fmt.Errorf("unsupported action type %s", rule.ActionType))
		return
	}

	action, err := handler.Render(ctx, RenderRequest{
		Rule:            rule,
		Event:           event,
		ExecutionId:     executionId,
		TrackingBaseURL: d.trackingBaseURL,
		Now:             d.now(),
	})
	if err != nil {
		d.fail(recordCtx, logger, span, executionId, nil, err)
		return
	}

	sendCtx := ctx
	if d.timeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}
	outcome, err := handler.Send(sendCtx, action)
	record := model.DispatchRecord{Action: action, Outcome: outcome}
	if err != nil {
		d.fail(recordCtx, logger, span, executionId, &record, err)
		return
	}

	if err := d.tracker.MarkSent(recordCtx, executionId, encodeRecord(&record)); err != nil {
		logger.Error("Failed to record sent execution", log.Error(err))
		return
	}
	logger.Info("Trigger action sent")
}

func (d *ActionDispatcher) fail(ctx context.Context, logger *log.Logger, span trace.Span, executionId string,
	record *model.DispatchRecord, cause error) {

	span.RecordError(cause)
	span.SetStatus(codes.Error, cause.Error())
	logger.Warn("Trigger action failed", log.Error(cause))
	if err := d.tracker.MarkFailed(ctx, executionId, encodeRecord(record), cause.Error()); err != nil {
		logger.Error("Failed to record failed execution", log.Error(err))
	}
}

func encodeRecord(record *model.DispatchRecord) json.RawMessage {

	if record == nil || record.Action == nil {
		return nil
	}
	payload, err := json.Marshal(record)
	if err != nil {
		log.GetLogger().Debug("Failed to encode dispatch record", log.Error(err))
		return nil
	}
	return payload
}
