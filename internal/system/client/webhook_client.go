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
)

// WebhookCaller posts a JSON document to an arbitrary URL.
type WebhookCaller interface {
	CallWebhook(ctx context.Context, url string, headers map[string]string, body interface{}) error
}

type WebhookClient struct{ caller jsonCaller }

func NewWebhookClient(httpClient *http.Client) *WebhookClient {
	return &WebhookClient{caller: newJSONCaller("", "", httpClient)}
}

func (c *WebhookClient) CallWebhook(ctx context.Context, url string, headers map[string]string, body interface{}) error {
	return c.caller.do(ctx, http.MethodPost, url, headers, body, nil)
}
