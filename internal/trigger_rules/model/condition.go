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

package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/wso2/commerce-trigger-service/internal/system/constants"
)

// Condition is the parsed form of a rule's condition value.
type Condition interface {
	ConditionType() string
}

// ValueThreshold compares a numeric payload field against a bound.
type ValueThreshold struct {
	Field     string  `json:"field,omitempty"`
	Threshold float64 `json:"threshold"`
	AtMost    bool    `json:"-"`
}

func (c ValueThreshold) ConditionType() string {
	if c.AtMost {
		return constants.ConditionValueLte
	}
	return constants.ConditionValueGte
}

// CountThreshold matches once the customer has produced Count events of the
// rule's type within the lookback window.
type CountThreshold struct {
	Count         int `json:"count"`
	LookbackHours int `json:"lookback_hours,omitempty"`
}

func (CountThreshold) ConditionType() string { return constants.ConditionCountGte }

// FirstOccurrence matches the customer's first event of the rule's type.
type FirstOccurrence struct{}

func (FirstOccurrence) ConditionType() string { return constants.ConditionIsFirst }

// RepeatOccurrence matches when the customer has an earlier event of the rule's type.
type RepeatOccurrence struct{}

func (RepeatOccurrence) ConditionType() string { return constants.ConditionIsReturn }

// ElapsedTime matches reference events that are at least Hours old. When
// FollowUpEventType is set, a follow up event inside that time cancels the match.
type ElapsedTime struct {
	Hours             float64 `json:"hours"`
	FollowUpEventType string  `json:"follow_up_event_type,omitempty"`
}

func (ElapsedTime) ConditionType() string { return constants.ConditionTimeElapsed }

// NoFollowUp matches when no event of FollowUpEventType occurred within
// WindowHours after the reference event.
type NoFollowUp struct {
	FollowUpEventType string  `json:"follow_up_event_type"`
	WindowHours       float64 `json:"window_hours"`
}

func (NoFollowUp) ConditionType() string { return constants.ConditionNoAction }

// SegmentMembership matches customers that belong to Segment.
type SegmentMembership struct {
	Segment string `json:"segment"`
}

func (SegmentMembership) ConditionType() string { return constants.ConditionSegmentMatch }

// MalformedConfigError reports a condition or action config that cannot be used.
type MalformedConfigError struct {
	Kind   string
	Type   string
	Reason string
}

func (e *MalformedConfigError) Error() string {
	return fmt.Sprintf("malformed %s config for %q: %s", e.Kind, e.Type, e.Reason)
}

func malformedCondition(conditionType, reason string) error {
	return &MalformedConfigError{Kind: "condition", Type: conditionType, Reason: reason}
}

// ParseCondition decodes the condition value of the given type. Unknown types and
// values that do not fit the type's shape are reported as MalformedConfigError.
func ParseCondition(conditionType string, raw json.RawMessage) (Condition, error) {

	raw = bytes.TrimSpace(raw)
	switch conditionType {
	case constants.ConditionValueGte, constants.ConditionValueLte:
		c := ValueThreshold{AtMost: conditionType == constants.ConditionValueLte}
		if isNumber(raw) {
			if err := json.Unmarshal(raw, &c.Threshold); err != nil {
				return nil, malformedCondition(conditionType, err.Error())
			}
		} else if err := decodeStrict(raw, &c); err != nil {
			return nil, malformedCondition(conditionType, err.Error())
		}
		if math.IsNaN(c.Threshold) || math.IsInf(c.Threshold, 0) {
			return nil, malformedCondition(conditionType, "threshold must be a finite number")
		}
		c.Field = strings.TrimSpace(c.Field)
		return c, nil

	case constants.ConditionCountGte:
		var c CountThreshold
		if isNumber(raw) {
			if err := json.Unmarshal(raw, &c.Count); err != nil {
				return nil, malformedCondition(conditionType, "count must be an integer")
			}
		} else if err := decodeStrict(raw, &c); err != nil {
			return nil, malformedCondition(conditionType, err.Error())
		}
		if c.Count < 1 {
			return nil, malformedCondition(conditionType, "count must be at least 1")
		}
		if c.LookbackHours < 0 {
			return nil, malformedCondition(conditionType, "lookback_hours cannot be negative")
		}
		return c, nil

	case constants.ConditionIsFirst:
		return FirstOccurrence{}, nil

	case constants.ConditionIsReturn:
		return RepeatOccurrence{}, nil

	case constants.ConditionTimeElapsed:
		var c ElapsedTime
		if isNumber(raw) {
			if err := json.Unmarshal(raw, &c.Hours); err != nil {
				return nil, malformedCondition(conditionType, err.Error())
			}
		} else if err := decodeStrict(raw, &c); err != nil {
			return nil, malformedCondition(conditionType, err.Error())
		}
		if c.Hours <= 0 {
			return nil, malformedCondition(conditionType, "hours must be positive")
		}
		if c.FollowUpEventType != "" && !constants.AllowedEventTypes[c.FollowUpEventType] {
			return nil, malformedCondition(conditionType, "unknown follow_up_event_type "+c.FollowUpEventType)
		}
		return c, nil

	case constants.ConditionNoAction:
		var c NoFollowUp
		if err := decodeStrict(raw, &c); err != nil {
			return nil, malformedCondition(conditionType, err.Error())
		}
		if !constants.AllowedEventTypes[c.FollowUpEventType] {
			return nil, malformedCondition(conditionType, "follow_up_event_type must be a known event type")
		}
		if c.WindowHours <= 0 {
			return nil, malformedCondition(conditionType, "window_hours must be positive")
		}
		return c, nil

	case constants.ConditionSegmentMatch:
		var c SegmentMembership
		if len(raw) > 0 && raw[0] == '"' {
			if err := json.Unmarshal(raw, &c.Segment); err != nil {
				return nil, malformedCondition(conditionType, err.Error())
			}
		} else if err := decodeStrict(raw, &c); err != nil {
			return nil, malformedCondition(conditionType, err.Error())
		}
		c.Segment = strings.TrimSpace(c.Segment)
		if c.Segment == "" {
			return nil, malformedCondition(conditionType, "segment is required")
		}
		return c, nil
	}
	return nil, malformedCondition(conditionType, "unknown condition type")
}

func isNumber(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	c := raw[0]
	return c == '-' || (c >= '0' && c <= '9')
}

// decodeStrict decodes a JSON object rejecting unknown fields. Empty input is an error.
func decodeStrict(raw json.RawMessage, target interface{}) error {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return fmt.Errorf("value is required")
	}
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}
