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
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wso2/commerce-trigger-service/internal/system/errors"
)

func TestMessageClient_SendMessage(t *testing.T) {

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		var msg MessageRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&msg))
		assert.Equal(t, "send_email", msg.Channel)
		_ = json.NewEncoder(w).Encode(MessageReceipt{MessageId: "m-1"})
	}))
	defer server.Close()

	c := NewMessageClient(server.URL+"/", "secret", NewOutboundHTTPClient(time.Second))
	receipt, err := c.SendMessage(context.Background(), MessageRequest{Channel: "send_email", Body: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "m-1", receipt.MessageId)
}

func TestWebhookClient_Non2xxIsError(t *testing.T) {

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "abc", r.Header.Get("X-Signature"))
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer server.Close()

	c := NewWebhookClient(NewOutboundHTTPClient(time.Second))
	err := c.CallWebhook(context.Background(), server.URL, map[string]string{"X-Signature": "abc"}, map[string]string{"a": "b"})
	require.Error(t, err)
	var serverErr *errors.ServerError
	require.ErrorAs(t, err, &serverErr)
	assert.Equal(t, errors.CHANNEL_CALL.Code, serverErr.Code)
	assert.Contains(t, serverErr.Description, "502")
}

func TestWebhookClient_Timeout(t *testing.T) {

	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	c := NewWebhookClient(NewOutboundHTTPClient(50 * time.Millisecond))
	err := c.CallWebhook(context.Background(), server.URL, nil, nil)
	assert.Error(t, err)
}

func TestProfileClient_IsMemberCachesAnswer(t *testing.T) {

	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/owners/shop/customers/cust-1/segments/vip", r.URL.Path)
		_, _ = w.Write([]byte(`{"member":true}`))
	}))
	defer server.Close()

	c := NewProfileClient(server.URL, "", NewOutboundHTTPClient(time.Second), time.Minute)
	for i := 0; i < 3; i++ {
		member, err := c.IsMember(context.Background(), "shop", "cust-1", "vip")
		require.NoError(t, err)
		assert.True(t, member)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestMessageClient_MissingEndpoint(t *testing.T) {

	c := NewMessageClient("", "", NewOutboundHTTPClient(time.Second))
	_, err := c.SendMessage(context.Background(), MessageRequest{})
	assert.Error(t, err)
}
