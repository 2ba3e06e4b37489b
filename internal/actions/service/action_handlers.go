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

	"github.com/wso2/commerce-trigger-service/internal/actions/model"
	"github.com/wso2/commerce-trigger-service/internal/system/client"
	"github.com/wso2/commerce-trigger-service/internal/system/constants"
	ruleModel "github.com/wso2/commerce-trigger-service/internal/trigger_rules/model"
)

// ActionHandler renders and sends one kind of action.
type ActionHandler interface {
	Render(ctx context.Context, req RenderRequest) (*model.RenderedAction, error)
	Send(ctx context.Context, action *model.RenderedAction) (*model.Outcome, error)
}

// Channels are the downstream collaborators actions are delivered through.
type Channels struct {
	Messages  client.MessageSender
	Content   client.ContentGenerator
	Discounts client.DiscountIssuer
	Profiles  client.ProfileUpdater
	Onsite    client.OnsitePresenter
	Webhooks  client.WebhookCaller
}

// Registry maps an action type to its handler.
type Registry map[string]ActionHandler

// NewRegistry builds the handler for every supported action type.
func NewRegistry(channels Channels) Registry {

	messages := &messageHandler{sender: channels.Messages, content: channels.Content}
	return Registry{
		constants.ActionSendEmail:      messages,
		constants.ActionSendSMS:        messages,
		constants.ActionSendPush:       messages,
		constants.ActionShowPopup:      &popupHandler{onsite: channels.Onsite},
		constants.ActionOfferDiscount:  &discountHandler{issuer: channels.Discounts},
		constants.ActionAssignTag:      &tagHandler{profiles: channels.Profiles},
		constants.ActionAddToSegment:   &segmentHandler{profiles: channels.Profiles},
		constants.ActionTriggerWebhook: &webhookHandler{caller: channels.Webhooks},
	}
}

func (r Registry) Lookup(actionType string) (ActionHandler, bool) {
	h, ok := r[actionType]
	return h, ok
}

func baseAction(req RenderRequest) *model.RenderedAction {
	return &model.RenderedAction{
		ActionType:  req.Rule.ActionType,
		ExecutionId: req.ExecutionId,
		OwnerId:     req.Rule.OwnerId,
		CustomerKey: req.Event.CustomerKey,
	}
}

func parseConfig[T ruleModel.ActionConfig](req RenderRequest) (T, error) {

	var zero T
	config, err := ruleModel.ParseActionConfig(req.Rule.ActionType, req.Rule.ActionConfig)
	if err != nil {
		return zero, err
	}
	typed, ok := config.(T)
	if !ok {
		return zero, fmt.Errorf("action type %s has no %T config", req.Rule.ActionType, zero)
	}
	return typed, nil
}

func requireCustomer(req RenderRequest) error {
	if req.Event.IsAnonymous() {
		return fmt.Errorf("%s needs an identified customer", req.Rule.ActionType)
	}
	return nil
}

type messageHandler struct {
	sender  client.MessageSender
	content client.ContentGenerator
}

func (h *messageHandler) Render(ctx context.Context, req RenderRequest) (*model.RenderedAction, error) {

	if err := requireCustomer(req); err != nil {
		return nil, err
	}
	config, err := parseConfig[ruleModel.MessageAction](req)
	if err != nil {
		return nil, err
	}
	action := baseAction(req)
	action.ClickURL = req.ClickURL("")

	if config.GenerateContent {
		if h.content == nil {
			return nil, fmt.Errorf("no content generator is configured")
		}
		prompt, err := req.render("prompt", config.Prompt, nil)
		if err != nil {
			return nil, err
		}
		generated, err := h.content.GenerateContent(ctx, client.ContentRequest{
			OwnerId:   req.Rule.OwnerId,
			Channel:   config.Channel,
			Prompt:    prompt,
			EventType: req.Event.EventType,
			Context:   req.Event.Payload,
		})
		if err != nil {
			return nil, err
		}
		action.Subject = generated.Subject
		action.Body = generated.Body
		return action, nil
	}

	if action.Subject, err = req.render("subject", config.Subject, nil); err != nil {
		return nil, err
	}
	if action.Body, err = req.render("body", config.Body, nil); err != nil {
		return nil, err
	}
	return action, nil
}

func (h *messageHandler) Send(ctx context.Context, action *model.RenderedAction) (*model.Outcome, error) {

	receipt, err := h.sender.SendMessage(ctx, client.MessageRequest{
		OwnerId:     action.OwnerId,
		CustomerKey: action.CustomerKey,
		Channel:     action.ActionType,
		Subject:     action.Subject,
		Body:        action.Body,
		ExecutionId: action.ExecutionId,
	})
	if err != nil {
		return nil, err
	}
	return &model.Outcome{Reference: receipt.MessageId}, nil
}

type popupHandler struct {
	onsite client.OnsitePresenter
}

func (h *popupHandler) Render(_ context.Context, req RenderRequest) (*model.RenderedAction, error) {

	if err := requireCustomer(req); err != nil {
		return nil, err
	}
	config, err := parseConfig[ruleModel.PopupAction](req)
	if err != nil {
		return nil, err
	}
	action := baseAction(req)
	action.DisplaySeconds = config.DisplaySeconds
	if config.LinkURL != "" {
		action.ClickURL = req.ClickURL(config.LinkURL)
	}
	if action.Title, err = req.render("title", config.Title, nil); err != nil {
		return nil, err
	}
	if action.Body, err = req.render("body", config.Body, nil); err != nil {
		return nil, err
	}
	return action, nil
}

func (h *popupHandler) Send(ctx context.Context, action *model.RenderedAction) (*model.Outcome, error) {

	err := h.onsite.ShowPopup(ctx, client.PopupRequest{
		OwnerId:        action.OwnerId,
		CustomerKey:    action.CustomerKey,
		Title:          action.Title,
		Body:           action.Body,
		LinkURL:        action.ClickURL,
		DisplaySeconds: action.DisplaySeconds,
		ExecutionId:    action.ExecutionId,
	})
	if err != nil {
		return nil, err
	}
	return &model.Outcome{}, nil
}

type discountHandler struct {
	issuer client.DiscountIssuer
}

func (h *discountHandler) Render(_ context.Context, req RenderRequest) (*model.RenderedAction, error) {

	if err := requireCustomer(req); err != nil {
		return nil, err
	}
	config, err := parseConfig[ruleModel.DiscountAction](req)
	if err != nil {
		return nil, err
	}
	action := baseAction(req)
	action.Discount = &model.DiscountOffer{
		Kind:       config.Kind,
		Amount:     config.Amount,
		CodePrefix: config.CodePrefix,
	}
	if config.ExpiresInHours > 0 {
		expiresAt := req.Now.Add(time.Duration(config.ExpiresInHours) * time.Hour)
		action.Discount.ExpiresAt = &expiresAt
	}
	if action.Body, err = req.render("message", config.Message, nil); err != nil {
		return nil, err
	}
	return action, nil
}

func (h *discountHandler) Send(ctx context.Context, action *model.RenderedAction) (*model.Outcome, error) {

	code, err := h.issuer.IssueDiscount(ctx, client.DiscountRequest{
		OwnerId:     action.OwnerId,
		CustomerKey: action.CustomerKey,
		Kind:        action.Discount.Kind,
		Amount:      action.Discount.Amount,
		CodePrefix:  action.Discount.CodePrefix,
		ExpiresAt:   action.Discount.ExpiresAt,
		Message:     action.Body,
		ExecutionId: action.ExecutionId,
	})
	if err != nil {
		return nil, err
	}
	return &model.Outcome{Reference: code.Code, DiscountCode: code.Code}, nil
}

type tagHandler struct {
	profiles client.ProfileUpdater
}

func (h *tagHandler) Render(_ context.Context, req RenderRequest) (*model.RenderedAction, error) {

	if err := requireCustomer(req); err != nil {
		return nil, err
	}
	config, err := parseConfig[ruleModel.TagAction](req)
	if err != nil {
		return nil, err
	}
	action := baseAction(req)
	action.Tag = config.Tag
	return action, nil
}

func (h *tagHandler) Send(ctx context.Context, action *model.RenderedAction) (*model.Outcome, error) {

	if err := h.profiles.AssignTag(ctx, action.OwnerId, action.CustomerKey, action.Tag); err != nil {
		return nil, err
	}
	return &model.Outcome{}, nil
}

type segmentHandler struct {
	profiles client.ProfileUpdater
}

func (h *segmentHandler) Render(_ context.Context, req RenderRequest) (*model.RenderedAction, error) {

	if err := requireCustomer(req); err != nil {
		return nil, err
	}
	config, err := parseConfig[ruleModel.SegmentAction](req)
	if err != nil {
		return nil, err
	}
	action := baseAction(req)
	action.Segment = config.Segment
	return action, nil
}

func (h *segmentHandler) Send(ctx context.Context, action *model.RenderedAction) (*model.Outcome, error) {

	if err := h.profiles.AddToSegment(ctx, action.OwnerId, action.CustomerKey, action.Segment); err != nil {
		return nil, err
	}
	return &model.Outcome{}, nil
}

// webhookHandler posts the event and the firing rule to an external URL.
// Anonymous events are delivered too.
type webhookHandler struct {
	caller client.WebhookCaller
}

func (h *webhookHandler) Render(_ context.Context, req RenderRequest) (*model.RenderedAction, error) {

	config, err := parseConfig[ruleModel.WebhookAction](req)
	if err != nil {
		return nil, err
	}
	action := baseAction(req)
	action.WebhookURL = config.URL
	action.Headers = config.Headers
	action.Data = map[string]interface{}{
		"execution_id": req.ExecutionId,
		"trigger_id":   req.Rule.RuleId,
		"rule_name":    req.Rule.Name,
		"owner_id":     req.Rule.OwnerId,
		"customer_key": req.Event.CustomerKey,
		"event": map[string]interface{}{
			"event_id":    req.Event.EventId,
			"event_type":  req.Event.EventType,
			"occurred_at": req.Event.OccurredAt,
			"payload":     req.Event.Payload,
		},
	}
	return action, nil
}

func (h *webhookHandler) Send(ctx context.Context, action *model.RenderedAction) (*model.Outcome, error) {

	if err := h.caller.CallWebhook(ctx, action.WebhookURL, action.Headers, action.Data); err != nil {
		return nil, err
	}
	return &model.Outcome{}, nil
}
