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
	"encoding/json"
	"net/url"
	"strings"

	"github.com/wso2/commerce-trigger-service/internal/system/constants"
)

// ActionConfig is the parsed form of a rule's action config.
type ActionConfig interface {
	ActionType() string
}

// MessageAction sends an email, SMS or push notification. Subject and Body are
// templates over the event payload. With GenerateContent the content generator
// writes the copy from Prompt instead.
type MessageAction struct {
	Channel         string `json:"-"`
	Subject         string `json:"subject,omitempty"`
	Body            string `json:"body,omitempty"`
	GenerateContent bool   `json:"generate_content,omitempty"`
	Prompt          string `json:"prompt,omitempty"`
}

func (a MessageAction) ActionType() string { return a.Channel }

// PopupAction shows an on-site popup to the customer.
type PopupAction struct {
	Title          string `json:"title"`
	Body           string `json:"body"`
	LinkURL        string `json:"link_url,omitempty"`
	DisplaySeconds int    `json:"display_seconds,omitempty"`
}

func (PopupAction) ActionType() string { return constants.ActionShowPopup }

// DiscountAction issues a single use discount code.
type DiscountAction struct {
	Kind           string  `json:"kind"`
	Amount         float64 `json:"amount"`
	ExpiresInHours int     `json:"expires_in_hours,omitempty"`
	CodePrefix     string  `json:"code_prefix,omitempty"`
	Message        string  `json:"message,omitempty"`
}

func (DiscountAction) ActionType() string { return constants.ActionOfferDiscount }

// TagAction assigns a tag to the customer profile.
type TagAction struct {
	Tag string `json:"tag"`
}

func (TagAction) ActionType() string { return constants.ActionAssignTag }

// SegmentAction adds the customer to a segment.
type SegmentAction struct {
	Segment string `json:"segment"`
}

func (SegmentAction) ActionType() string { return constants.ActionAddToSegment }

// WebhookAction posts the rendered event to an external URL.
type WebhookAction struct {
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
}

func (WebhookAction) ActionType() string { return constants.ActionTriggerWebhook }

const (
	DiscountPercent = "percent"
	DiscountFixed   = "fixed"
)

func malformedAction(actionType, reason string) error {
	return &MalformedConfigError{Kind: "action", Type: actionType, Reason: reason}
}

// ParseActionConfig decodes the action config of the given type.
func ParseActionConfig(actionType string, raw json.RawMessage) (ActionConfig, error) {

	switch actionType {
	case constants.ActionSendEmail, constants.ActionSendSMS, constants.ActionSendPush:
		a := MessageAction{Channel: actionType}
		if err := decodeStrict(raw, &a); err != nil {
			return nil, malformedAction(actionType, err.Error())
		}
		if a.GenerateContent {
			if strings.TrimSpace(a.Prompt) == "" {
				return nil, malformedAction(actionType, "prompt is required when generate_content is set")
			}
			return a, nil
		}
		if strings.TrimSpace(a.Body) == "" {
			return nil, malformedAction(actionType, "body is required")
		}
		if actionType == constants.ActionSendEmail && strings.TrimSpace(a.Subject) == "" {
			return nil, malformedAction(actionType, "subject is required for email")
		}
		return a, nil

	case constants.ActionShowPopup:
		var a PopupAction
		if err := decodeStrict(raw, &a); err != nil {
			return nil, malformedAction(actionType, err.Error())
		}
		if strings.TrimSpace(a.Title) == "" && strings.TrimSpace(a.Body) == "" {
			return nil, malformedAction(actionType, "title or body is required")
		}
		if a.DisplaySeconds < 0 {
			return nil, malformedAction(actionType, "display_seconds cannot be negative")
		}
		if a.LinkURL != "" && !IsAbsoluteHTTPURL(a.LinkURL) {
			return nil, malformedAction(actionType, "link_url must be an absolute http(s) URL")
		}
		return a, nil

	case constants.ActionOfferDiscount:
		var a DiscountAction
		if err := decodeStrict(raw, &a); err != nil {
			return nil, malformedAction(actionType, err.Error())
		}
		switch a.Kind {
		case DiscountPercent:
			if a.Amount <= 0 || a.Amount > 100 {
				return nil, malformedAction(actionType, "percent amount must be in (0, 100]")
			}
		case DiscountFixed:
			if a.Amount <= 0 {
				return nil, malformedAction(actionType, "fixed amount must be positive")
			}
		default:
			return nil, malformedAction(actionType, "kind must be percent or fixed")
		}
		if a.ExpiresInHours < 0 {
			return nil, malformedAction(actionType, "expires_in_hours cannot be negative")
		}
		return a, nil

	case constants.ActionAssignTag:
		var a TagAction
		if err := decodeStrict(raw, &a); err != nil {
			return nil, malformedAction(actionType, err.Error())
		}
		if strings.TrimSpace(a.Tag) == "" {
			return nil, malformedAction(actionType, "tag is required")
		}
		return a, nil

	case constants.ActionAddToSegment:
		var a SegmentAction
		if err := decodeStrict(raw, &a); err != nil {
			return nil, malformedAction(actionType, err.Error())
		}
		if strings.TrimSpace(a.Segment) == "" {
			return nil, malformedAction(actionType, "segment is required")
		}
		return a, nil

	case constants.ActionTriggerWebhook:
		var a WebhookAction
		if err := decodeStrict(raw, &a); err != nil {
			return nil, malformedAction(actionType, err.Error())
		}
		if !IsAbsoluteHTTPURL(a.URL) {
			return nil, malformedAction(actionType, "url must be an absolute http(s) URL")
		}
		return a, nil
	}
	return nil, malformedAction(actionType, "unknown action type")
}

// IsAbsoluteHTTPURL reports whether raw parses as an absolute http or https URL.
func IsAbsoluteHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
