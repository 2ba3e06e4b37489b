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
	"iter"
	"strconv"
	"strings"
	"time"

	eventModel "github.com/wso2/commerce-trigger-service/internal/behavior_events/model"
	"github.com/wso2/commerce-trigger-service/internal/system/client"
	"github.com/wso2/commerce-trigger-service/internal/system/constants"
	"github.com/wso2/commerce-trigger-service/internal/system/log"
	ruleModel "github.com/wso2/commerce-trigger-service/internal/trigger_rules/model"
)

// History gives the evaluator access to a customer's past events.
type History interface {
	Recent(ctx context.Context, ownerId, customerKey, eventType string, since time.Time) iter.Seq2[eventModel.BehaviorEvent, error]
}

// ConditionEvaluator decides whether a rule's condition holds for an event.
// Anything it cannot decide is a non-match.
type ConditionEvaluator struct {
	segments client.SegmentLookup
	lookback time.Duration
	now      func() time.Time
}

// NewConditionEvaluator creates an evaluator. lookback is the default window of
// count_gte. First and repeat occurrences always consider the whole history.
func NewConditionEvaluator(segments client.SegmentLookup, lookback time.Duration) *ConditionEvaluator {
	return &ConditionEvaluator{
		segments: segments,
		lookback: lookback,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (e *ConditionEvaluator) WithClock(now func() time.Time) *ConditionEvaluator {
	e.now = now
	return e
}

// Matches evaluates the rule's condition against the event. A malformed
// condition, a failed lookup or a panic yields false together with the cause.
func (e *ConditionEvaluator) Matches(ctx context.Context, rule *ruleModel.TriggerRule, event *eventModel.BehaviorEvent,
	history History) (matched bool, err error) {

	defer func() {
		if r := recover(); r != nil {
			matched = false
			err = fmt.Errorf("condition %s of rule %s panicked: %v", rule.ConditionType, rule.RuleId, r)
		}
	}()

	condition, err := ruleModel.ParseCondition(rule.ConditionType, rule.ConditionValue)
	if err != nil {
		return false, err
	}

	switch c := condition.(type) {
	case ruleModel.ValueThreshold:
		return matchValue(c, event), nil

	case ruleModel.CountThreshold:
		if event.IsAnonymous() {
			return false, nil
		}
		lookback := e.lookback
		if c.LookbackHours > 0 {
			lookback = time.Duration(c.LookbackHours) * time.Hour
		}
		return e.countAtLeast(ctx, rule, event, history, c.Count, lookback)

	case ruleModel.FirstOccurrence:
		if event.IsAnonymous() {
			return false, nil
		}
		earlier, err := e.hasEarlier(ctx, rule, event, history)
		return err == nil && !earlier, err

	case ruleModel.RepeatOccurrence:
		if event.IsAnonymous() {
			return false, nil
		}
		earlier, err := e.hasEarlier(ctx, rule, event, history)
		return err == nil && earlier, err

	case ruleModel.ElapsedTime:
		log.GetLogger().Debug(fmt.Sprintf("Rule %s waits for the elapsed time sweep", rule.RuleId))
		return false, nil

	case ruleModel.NoFollowUp:
		// Decided here only when the window already closed, otherwise by the sweep.
		if e.now().Sub(event.OccurredAt) < hours(c.WindowHours) {
			return false, nil
		}
		return e.DeferredDue(ctx, rule, event, history)

	case ruleModel.SegmentMembership:
		if event.IsAnonymous() || e.segments == nil {
			return false, nil
		}
		return e.segments.IsMember(ctx, event.OwnerId, event.CustomerKey, c.Segment)
	}
	return false, fmt.Errorf("no evaluation for condition type %s", rule.ConditionType)
}

// Deferral returns how long after a reference event a time based condition
// becomes decidable and which event type cancels it. ok is false for
// conditions that are decided when the event arrives.
func Deferral(condition ruleModel.Condition) (delay time.Duration, followUp string, ok bool) {
	switch c := condition.(type) {
	case ruleModel.ElapsedTime:
		return hours(c.Hours), c.FollowUpEventType, true
	case ruleModel.NoFollowUp:
		return hours(c.WindowHours), c.FollowUpEventType, true
	}
	return 0, "", false
}

// DeferredDue reports whether a time based condition holds for a reference
// event now: the delay has passed and no cancelling event happened within it.
func (e *ConditionEvaluator) DeferredDue(ctx context.Context, rule *ruleModel.TriggerRule,
	reference *eventModel.BehaviorEvent, history History) (bool, error) {

	condition, err := ruleModel.ParseCondition(rule.ConditionType, rule.ConditionValue)
	if err != nil {
		return false, err
	}
	delay, followUp, ok := Deferral(condition)
	if !ok {
		return false, fmt.Errorf("condition type %s is not time based", rule.ConditionType)
	}
	if reference.IsAnonymous() || e.now().Sub(reference.OccurredAt) < delay {
		return false, nil
	}
	if followUp == "" {
		return true, nil
	}

	deadline := reference.OccurredAt.Add(delay)
	for past, err := range history.Recent(ctx, reference.OwnerId, reference.CustomerKey, followUp, reference.OccurredAt) {
		if err != nil {
			return false, err
		}
		if past.OccurredAt.Before(deadline) {
			return false, nil
		}
	}
	return true, nil
}

// countAtLeast counts the customer's events of the rule's type in the window,
// including the event being processed.
func (e *ConditionEvaluator) countAtLeast(ctx context.Context, rule *ruleModel.TriggerRule,
	event *eventModel.BehaviorEvent, history History, want int, lookback time.Duration) (bool, error) {

	count := 0
	sawCurrent := false
	for past, err := range history.Recent(ctx, event.OwnerId, event.CustomerKey, rule.EventType, event.OccurredAt.Add(-lookback)) {
		if err != nil {
			return false, err
		}
		if past.OccurredAt.After(event.OccurredAt) {
			continue
		}
		if past.EventId == event.EventId {
			sawCurrent = true
		}
		count++
		if count >= want && sawCurrent {
			return true, nil
		}
	}
	if !sawCurrent {
		count++
	}
	return count >= want, nil
}

// hasEarlier reports whether the customer produced another event of the rule's
// type at or before this one, at any point in the log.
func (e *ConditionEvaluator) hasEarlier(ctx context.Context, rule *ruleModel.TriggerRule,
	event *eventModel.BehaviorEvent, history History) (bool, error) {

	for past, err := range history.Recent(ctx, event.OwnerId, event.CustomerKey, rule.EventType, time.Time{}) {
		if err != nil {
			return false, err
		}
		if past.EventId == event.EventId || past.OccurredAt.After(event.OccurredAt) {
			continue
		}
		return true, nil
	}
	return false, nil
}

func matchValue(c ruleModel.ValueThreshold, event *eventModel.BehaviorEvent) bool {

	actual, ok := payloadNumber(event.Payload, c.Field)
	if !ok {
		return false
	}
	if c.AtMost {
		return actual <= c.Threshold
	}
	return actual >= c.Threshold
}

// payloadNumber finds the compared value. A named field may be a dotted path
// into nested objects. Without a name the first present default field is used.
func payloadNumber(payload map[string]interface{}, field string) (float64, bool) {

	if field == "" {
		for _, candidate := range constants.DefaultValueFields {
			if v, ok := payload[candidate]; ok {
				f, err := toFloat(v)
				return f, err == nil
			}
		}
		return 0, false
	}

	var current interface{} = payload
	for _, part := range strings.Split(field, ".") {
		object, ok := current.(map[string]interface{})
		if !ok {
			return 0, false
		}
		if current, ok = object[part]; !ok {
			return 0, false
		}
	}
	f, err := toFloat(current)
	return f, err == nil
}

// toFloat converts various types to float64
func toFloat(v interface{}) (float64, error) {
	switch val := v.(type) {
	case int:
		return float64(val), nil
	case int32:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case float32:
		return float64(val), nil
	case float64:
		return val, nil
	case json.Number:
		return val.Float64()
	case string:
		return strconv.ParseFloat(strings.TrimSpace(val), 64)
	default:
		return 0, fmt.Errorf("invalid type for conversion to float: %T", v)
	}
}

func hours(h float64) time.Duration {
	return time.Duration(h * float64(time.Hour))
}
