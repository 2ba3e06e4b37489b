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
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	actionService "github.com/wso2/commerce-trigger-service/internal/actions/service"
	eventModel "github.com/wso2/commerce-trigger-service/internal/behavior_events/model"
	eventStore "github.com/wso2/commerce-trigger-service/internal/behavior_events/store"
	"github.com/wso2/commerce-trigger-service/internal/system/constants"
	"github.com/wso2/commerce-trigger-service/internal/system/log"
	ruleModel "github.com/wso2/commerce-trigger-service/internal/trigger_rules/model"
	ruleStore "github.com/wso2/commerce-trigger-service/internal/trigger_rules/store"
)

var tracer = otel.Tracer("github.com/wso2/commerce-trigger-service/internal/trigger_engine")

// ProcessResult summarizes what one event did to each active rule of its type.
type ProcessResult struct {
	EventId    string
	Matched    []string
	Fired      []string
	Suppressed []string
	Failed     []string
}

// SweepResult summarizes one pass over the time based rules.
type SweepResult struct {
	Rules      int
	References int
	Fired      int
	Replayed   int
}

// TriggerEngineInterface matches behavior events against trigger rules and fires their actions.
type TriggerEngineInterface interface {
	Process(ctx context.Context, event *eventModel.BehaviorEvent) (*ProcessResult, error)
	FireDeferred(ctx context.Context, rule *ruleModel.TriggerRule, reference *eventModel.BehaviorEvent) (string, bool, error)
	SweepDeferred(ctx context.Context, window time.Duration) (*SweepResult, error)
	ReplayUnprocessed(ctx context.Context, receivedBefore time.Time, limit int) (int, error)
}

type TriggerEngine struct {
	rules      ruleStore.RuleStoreInterface
	events     eventStore.EventStoreInterface
	evaluator  *ConditionEvaluator
	guard      *CooldownGuard
	dispatcher actionService.ActionDispatcherInterface
	now        func() time.Time
}

func NewTriggerEngine(rules ruleStore.RuleStoreInterface, events eventStore.EventStoreInterface,
	evaluator *ConditionEvaluator, guard *CooldownGuard,
	dispatcher actionService.ActionDispatcherInterface) *TriggerEngine {

	return &TriggerEngine{
		rules:      rules,
		events:     events,
		evaluator:  evaluator,
		guard:      guard,
		dispatcher: dispatcher,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (e *TriggerEngine) WithClock(now func() time.Time) *TriggerEngine {
	e.now = now
	return e
}

// Process evaluates every active rule for the event's type, highest priority
// first. A failure on one rule never stops the others. The returned error is
// only set when the rules could not be read, in which case the event stays
// unprocessed.
func (e *TriggerEngine) Process(ctx context.Context, event *eventModel.BehaviorEvent) (*ProcessResult, error) {

	ctx, span := tracer.Start(ctx, "process "+event.EventType)
	defer span.End()
	span.SetAttributes(
		attribute.String("event.id", event.EventId),
		attribute.String("event.owner_id", event.OwnerId),
	)

	logger := log.GetLogger().With(log.String("event_id", event.EventId), log.String("owner_id", event.OwnerId))
	rules, err := e.rules.ActiveRulesFor(ctx, event.OwnerId, event.EventType)
	if err != nil {
		logger.Error("Failed to load trigger rules", log.Error(err))
		span.RecordError(err)
		return nil, err
	}

	result := &ProcessResult{EventId: event.EventId}
	for i := range rules {
		e.processRule(ctx, logger, &rules[i], event, result)
	}

	if err := e.events.MarkProcessed(ctx, event.EventId, result.Matched); err != nil {
		logger.Error("Failed to mark behavior event processed", log.Error(err))
	}
	firedAt := e.now()
	for _, ruleId := range result.Fired {
		if err := e.rules.TouchLastFired(ctx, ruleId, firedAt); err != nil {
			logger.Warn(fmt.Sprintf("Failed to update last fired time of rule: %s", ruleId), log.Error(err))
		}
	}

	span.SetAttributes(attribute.Int("trigger.fired", len(result.Fired)))
	if len(result.Matched) > 0 {
		logger.Info("Processed behavior event",
			log.Int("matched", len(result.Matched)),
			log.Int("fired", len(result.Fired)),
			log.Int("suppressed", len(result.Suppressed)),
			log.Int("failed", len(result.Failed)))
	}
	return result, nil
}

// processRule evaluates and fires one rule. Panics are contained to the rule.
func (e *TriggerEngine) processRule(ctx context.Context, logger *log.Logger, rule *ruleModel.TriggerRule,
	event *eventModel.BehaviorEvent, result *ProcessResult) {

	logger = logger.With(log.String("trigger_id", rule.RuleId))
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Trigger rule processing panicked", log.Any("panic", r))
			result.Failed = append(result.Failed, rule.RuleId)
		}
	}()

	matched, err := e.evaluator.Matches(ctx, rule, event, e.events)
	if err != nil {
		logger.Warn("Trigger condition could not be evaluated", log.Error(err))
		result.Failed = append(result.Failed, rule.RuleId)
		return
	}
	if !matched {
		return
	}
	result.Matched = append(result.Matched, rule.RuleId)

	fired, err := e.fire(ctx, logger, rule, event)
	switch {
	case err != nil:
		result.Failed = append(result.Failed, rule.RuleId)
	case fired:
		result.Fired = append(result.Fired, rule.RuleId)
	default:
		result.Suppressed = append(result.Suppressed, rule.RuleId)
	}
}

func (e *TriggerEngine) fire(ctx context.Context, logger *log.Logger, rule *ruleModel.TriggerRule,
	event *eventModel.BehaviorEvent) (bool, error) {

	mayFire, err := e.guard.MayFire(ctx, rule, event.CustomerKey)
	if err != nil {
		logger.Error("Failed to check trigger cooldown", log.Error(err))
		return false, err
	}
	if !mayFire {
		logger.Debug("Trigger rule is cooling down")
		return false, nil
	}

	executionId, created, err := e.dispatcher.Dispatch(ctx, rule, event)
	if err != nil {
		logger.Error("Failed to dispatch trigger action", log.Error(err))
		return false, err
	}
	if !created {
		logger.Debug("Concurrent execution won the cooldown window")
		return false, nil
	}
	logger.Debug("Trigger rule fired", log.String("execution_id", executionId))
	return true, nil
}

// FireDeferred fires a time based rule for a reference event found by the
// sweep. A reference fires at most once: any execution of the rule for the
// customer created at or after the reference occurred means it was already handled.
func (e *TriggerEngine) FireDeferred(ctx context.Context, rule *ruleModel.TriggerRule,
	reference *eventModel.BehaviorEvent) (string, bool, error) {

	if rule.Status != constants.RuleStatusActive || reference.IsAnonymous() {
		return "", false, nil
	}
	handled, err := e.guard.tracker.HasExecutionSince(ctx, rule.RuleId, reference.CustomerKey, reference.OccurredAt)
	if err != nil || handled {
		return "", false, err
	}

	logger := log.GetLogger().With(log.String("trigger_id", rule.RuleId), log.String("event_id", reference.EventId))
	mayFire, err := e.guard.MayFire(ctx, rule, reference.CustomerKey)
	if err != nil || !mayFire {
		return "", false, err
	}
	executionId, created, err := e.dispatcher.Dispatch(ctx, rule, reference)
	if err != nil || !created {
		return "", false, err
	}
	if err := e.rules.TouchLastFired(ctx, rule.RuleId, e.now()); err != nil {
		logger.Warn("Failed to update last fired time of rule", log.Error(err))
	}
	logger.Info("Time based trigger rule fired", log.String("execution_id", executionId))
	return executionId, true, nil
}

// SweepDeferred looks for reference events whose delay ended during the last
// window and fires the time based rules they satisfy.
func (e *TriggerEngine) SweepDeferred(ctx context.Context, window time.Duration) (*SweepResult, error) {

	ctx, span := tracer.Start(ctx, "sweep deferred triggers")
	defer span.End()

	logger := log.GetLogger()
	result := &SweepResult{}
	now := e.now()
	for _, conditionType := range []string{constants.ConditionTimeElapsed, constants.ConditionNoAction} {
		rules, err := e.rules.ActiveRulesWithCondition(ctx, conditionType)
		if err != nil {
			return result, err
		}
		for i := range rules {
			rule := &rules[i]
			condition, err := ruleModel.ParseCondition(rule.ConditionType, rule.ConditionValue)
			if err != nil {
				logger.Warn(fmt.Sprintf("Skipping rule %s with malformed condition", rule.RuleId), log.Error(err))
				continue
			}
			delay, _, _ := Deferral(condition)
			result.Rules++

			references, err := e.events.FindBetween(ctx, rule.OwnerId, rule.EventType,
				now.Add(-delay-window), now.Add(-delay))
			if err != nil {
				logger.Error(fmt.Sprintf("Failed to load reference events for rule: %s", rule.RuleId), log.Error(err))
				continue
			}
			for j := range references {
				result.References++
				if e.sweepReference(ctx, rule, &references[j]) {
					result.Fired++
				}
			}
		}
	}
	span.SetAttributes(attribute.Int("trigger.fired", result.Fired))
	return result, nil
}

func (e *TriggerEngine) sweepReference(ctx context.Context, rule *ruleModel.TriggerRule,
	reference *eventModel.BehaviorEvent) (fired bool) {

	logger := log.GetLogger().With(log.String("trigger_id", rule.RuleId), log.String("event_id", reference.EventId))
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Time based trigger rule panicked", log.Any("panic", r))
			fired = false
		}
	}()

	due, err := e.evaluator.DeferredDue(ctx, rule, reference, e.events)
	if err != nil {
		logger.Warn("Time based condition could not be evaluated", log.Error(err))
		return false
	}
	if !due {
		return false
	}
	_, fired, err = e.FireDeferred(ctx, rule, reference)
	if err != nil {
		logger.Error("Failed to fire time based trigger rule", log.Error(err))
	}
	return fired
}

// ReplayUnprocessed evaluates stored events that never reached a worker, for
// example because the trigger queue was full when they were ingested. It
// returns how many events were evaluated.
func (e *TriggerEngine) ReplayUnprocessed(ctx context.Context, receivedBefore time.Time, limit int) (int, error) {

	ctx, span := tracer.Start(ctx, "replay unprocessed events")
	defer span.End()

	events, err := e.events.FindUnprocessed(ctx, receivedBefore, limit)
	if err != nil {
		span.RecordError(err)
		return 0, err
	}
	replayed := 0
	for i := range events {
		if ctx.Err() != nil {
			break
		}
		if _, err := e.Process(ctx, &events[i]); err != nil {
			log.GetLogger().Warn(fmt.Sprintf("Replay of event %s failed", events[i].EventId), log.Error(err))
			continue
		}
		replayed++
	}
	span.SetAttributes(attribute.Int("events.replayed", replayed))
	return replayed, nil
}
