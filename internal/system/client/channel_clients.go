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

package client

import (
	"context"
	"net/http"
	"time"
)

// MessageRequest is a rendered email, SMS or push notification.
type MessageRequest struct {
	OwnerId     string `json:"owner_id"`
	CustomerKey string `json:"to"`
	Channel     string `json:"channel"`
	Subject     string `json:"subject,omitempty"`
	Body        string `json:"body"`
	ExecutionId string `json:"tracking_execution_id"`
}

type MessageReceipt struct {
	MessageId string `json:"message_id"`
}

// MessageSender delivers customer messages.
type MessageSender interface {
	SendMessage(ctx context.Context, msg MessageRequest) (*MessageReceipt, error)
}

type DiscountRequest struct {
	OwnerId     string     `json:"owner_id"`
	CustomerKey string     `json:"customer_key"`
	Kind        string     `json:"kind"`
	Amount      float64    `json:"amount"`
	CodePrefix  string     `json:"code_prefix,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	Message     string     `json:"message,omitempty"`
	ExecutionId string     `json:"execution_id"`
}

type DiscountCode struct {
	Code      string     `json:"code"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// DiscountIssuer mints single use discount codes.
type DiscountIssuer interface {
	IssueDiscount(ctx context.Context, req DiscountRequest) (*DiscountCode, error)
}

type PopupRequest struct {
	OwnerId        string `json:"owner_id"`
	CustomerKey    string `json:"customer_key"`
	Title          string `json:"title"`
	Body           string `json:"body"`
	LinkURL        string `json:"link_url,omitempty"`
	DisplaySeconds int    `json:"display_seconds,omitempty"`
	ExecutionId    string `json:"execution_id"`
}

// OnsitePresenter queues popups for the customer's next page view.
type OnsitePresenter interface {
	ShowPopup(ctx context.Context, req PopupRequest) error
}

type ContentRequest struct {
	OwnerId   string                 `json:"owner_id"`
	Channel   string                 `json:"channel"`
	Prompt    string                 `json:"prompt"`
	EventType string                 `json:"event_type"`
	Context   map[string]interface{} `json:"context,omitempty"`
}

type GeneratedContent struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// ContentGenerator writes message copy from a prompt.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, req ContentRequest) (*GeneratedContent, error)
}

type MessageClient struct{ caller jsonCaller }

func NewMessageClient(baseURL, apiKey string, httpClient *http.Client) *MessageClient {
	return &MessageClient{caller: newJSONCaller(baseURL, apiKey, httpClient)}
}

func (c *MessageClient) SendMessage(ctx context.Context, msg MessageRequest) (*MessageReceipt, error) {
	var receipt MessageReceipt
	if err := c.caller.post(ctx, "/messages", msg, &receipt); err != nil {
		return nil, err
	}
	return &receipt, nil
}

type DiscountClient struct{ caller jsonCaller }

func NewDiscountClient(baseURL, apiKey string, httpClient *http.Client) *DiscountClient {
	return &DiscountClient{caller: newJSONCaller(baseURL, apiKey, httpClient)}
}

func (c *DiscountClient) IssueDiscount(ctx context.Context, req DiscountRequest) (*DiscountCode, error) {
	var code DiscountCode
	if err := c.caller.post(ctx, "/discounts", req, &code); err != nil {
		return nil, err
	}
	return &code, nil
}

type OnsiteClient struct{ caller jsonCaller }

func NewOnsiteClient(baseURL, apiKey string, httpClient *http.Client) *OnsiteClient {
	return &OnsiteClient{caller: newJSONCaller(baseURL, apiKey, httpClient)}
}

func (c *OnsiteClient) ShowPopup(ctx context.Context, req PopupRequest) error {
	return c.caller.post(ctx, "/popups", req, nil)
}

type ContentClient struct{ caller jsonCaller }

func NewContentClient(baseURL, apiKey string, httpClient *http.Client) *ContentClient {
	return &ContentClient{caller: newJSONCaller(baseURL, apiKey, httpClient)}
}

func (c *ContentClient) GenerateContent(ctx context.Context, req ContentRequest) (*GeneratedContent, error) {
	var content GeneratedContent
	if err := c.caller.post(ctx, "/generate", req, &content); err != nil {
		return nil, err
	}
	return &content, nil
}
