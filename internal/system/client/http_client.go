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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/wso2/commerce-trigger-service/internal/system/errors"
	"github.com/wso2/commerce-trigger-service/internal/system/log"
)

// maxErrorBody bounds how much of a failed response is copied into the error.
const maxErrorBody = 2048

// NewOutboundHTTPClient builds the HTTP client shared by every channel
// collaborator. Outbound calls are traced when a tracer provider is installed.
func NewOutboundHTTPClient(timeout time.Duration) *http.Client {

	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		TLSHandshakeTimeout: 10 * time.Second,
		IdleConnTimeout:     60 * time.Second,
		MaxIdleConns:        100,
		MaxConnsPerHost:     100,
	}
	return &http.Client{
		Transport: otelhttp.NewTransport(tr),
		Timeout:   timeout,
	}
}

// jsonCaller posts JSON documents to one base URL and decodes JSON replies.
type jsonCaller struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func newJSONCaller(baseURL, apiKey string, httpClient *http.Client) jsonCaller {
	return jsonCaller{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

func (c jsonCaller) post(ctx context.Context, path string, body, out interface{}) error {
	return c.do(ctx, http.MethodPost, c.baseURL+path, nil, body, out)
}

func (c jsonCaller) get(ctx context.Context, path string, out interface{}) error {
	return c.do(ctx, http.MethodGet, c.baseURL+path, nil, nil, out)
}

// do sends one request. Any status outside 2xx is returned as a CHANNEL_CALL
// server error carrying the start of the response body.
func (c jsonCaller) do(ctx context.Context, method, endpoint string, headers map[string]string,
	body, out interface{}) error {

	logger := log.GetLogger()
	if c.baseURL == "" && !strings.HasPrefix(endpoint, "http") {
		errorMsg := fmt.Sprintf("No endpoint is configured for %s", endpoint)
		logger.Debug(errorMsg)
		return errors.NewServerError(errors.ErrorMessage{
			Code:        errors.CHANNEL_CALL.Code,
			Message:     errors.CHANNEL_CALL.Message,
			Description: errorMsg,
		}, nil)
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return channelError(fmt.Sprintf("Failed to encode request to %s", endpoint), err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return channelError(fmt.Sprintf("Failed to create request to %s", endpoint), err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Debug(fmt.Sprintf("Request to %s failed", endpoint), log.Error(err))
		return channelError(fmt.Sprintf("Failed to call %s", endpoint), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		errorMsg := fmt.Sprintf("%s returned status %d. Response: %s",
			endpoint, resp.StatusCode, strings.TrimSpace(string(bodyBytes)))
		logger.Debug(errorMsg)
		return channelError(errorMsg, fmt.Errorf("channel non-2xx: %d", resp.StatusCode))
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return channelError(fmt.Sprintf("Failed to parse response from %s", endpoint), err)
	}
	return nil
}

func channelError(description string, cause error) error {
	return errors.NewServerError(errors.ErrorMessage{
		Code:        errors.CHANNEL_CALL.Code,
		Message:     errors.CHANNEL_CALL.Message,
		Description: description,
	}, cause)
}
