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
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wso2/commerce-trigger-service/internal/actions/model"
	eventModel "github.com/wso2/commerce-trigger-service/internal/behavior_events/model"
	eventStore "github.com/wso2/commerce-trigger-service/internal/behavior_events/store"
	"github.com/wso2/commerce-trigger-service/internal/system/client"
	"github.com/wso2/commerce-trigger-service/internal/system/constants"
	"github.com/wso2/commerce-trigger-service/internal/system/errors"
	"github.com/wso2/commerce-trigger-service/internal/system/log"
	execModel "github.com/wso2/commerce-trigger-service/internal/trigger_executions/model"
	execService "github.com/wso2/commerce-trigger-service/internal/trigger_executions/service"
	execStore "github.com/wso2/commerce-trigger-service/internal/trigger_executions/store"
	ruleModel "github.com/wso2/commerce-trigger-service/internal/trigger_rules/model"
	ruleStore "github.com/wso2/commerce-trigger-service/internal/trigger_rules/store"
)

func TestMain(m *testing.M) {
	_ = log.Init("ERROR")
	os.Exit(m.Run())
}

type trackerReserver struct {
	tracker execService.ExecutionTrackerInterface
}

func (r trackerReserver) Reserve(ctx context.Context, rule *ruleModel.TriggerRule,
	execution *execModel.TriggerExecution) (bool, error) {
	return r.tracker.RecordDispatch(ctx, execution, rule.Cooldown())
}

type fakeMessages struct {
	mu       sync.Mutex
	sent     []client.MessageRequest
	blocking bool
}

func (f *fakeMessages) SendMessage(ctx context.Context, msg client.MessageRequest) (*client.MessageReceipt, error) {
	if f.blocking {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return &client.MessageReceipt{MessageId: "msg-1"}, nil
}

type fakeOnsite struct{ last client.PopupRequest }

func (f *fakeOnsite) ShowPopup(_ context.Context, req client.PopupRequest) error {
	f.last = req
	return nil
}

type fixture struct {
	dispatcher *ActionDispatcher
	tracker    *execService.ExecutionTracker
	rules      *ruleStore.MemoryRuleStore
	events     *eventStore.MemoryEventStore
	messages   *fakeMessages
	onsite     *fakeOnsite
}

func newFixture(t *testing.T, channels Channels) *fixture {
	t.Helper()
	messages := &fakeMessages{}
	onsite := &fakeOnsite{}
	if channels.Messages == nil {
		channels.Messages = messages
	}
	if channels.Onsite == nil {
		channels.Onsite = onsite
	}
	if channels.Webhooks == nil {
		channels.Webhooks = client.NewWebhookClient(client.NewOutboundHTTPClient(time.Second))
	}
	tracker := execService.GetExecutionTracker(execStore.NewMemoryExecutionStore(), nil)
	rules := ruleStore.NewMemoryRuleStore()
	events := eventStore.NewMemoryEventStore()
	dispatcher := GetActionDispatcher(NewRegistry(channels), trackerReserver{tracker}, tracker, rules, events,
		DispatcherConfig{Timeout: 200 * time.Millisecond, TrackingBaseURL: "https://t.example.com/"})
	return &fixture{dispatcher, tracker, rules, events, messages, onsite}
}

func (f *fixture) addRule(t *testing.T, actionType, config string) *ruleModel.TriggerRule {
	t.Helper()
	now := time.Now().UTC()
	rule := &ruleModel.TriggerRule{
		RuleId:        "rule-" + actionType,
		OwnerId:       "shop",
		Name:          "Cart rescue",
		EventType:     constants.EventCartAbandon,
		ConditionType: constants.ConditionIsFirst,
		ActionType:    actionType,
		ActionConfig:  json.RawMessage(config),
		CooldownHours: 24,
		Status:        constants.RuleStatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	require.NoError(t, f.rules.Create(context.Background(), rule))
	return rule
}

func (f *fixture) addEvent(t *testing.T, customerKey string, payload map[string]interface{}) *eventModel.BehaviorEvent {
	t.Helper()
	event := &eventModel.BehaviorEvent{
		EventId:     "evt-" + customerKey,
		OwnerId:     "shop",
		CustomerKey: customerKey,
		EventType:   constants.EventCartAbandon,
		Payload:     payload,
		OccurredAt:  time.Now().UTC(),
		ReceivedAt:  time.Now().UTC(),
	}
	require.NoError(t, f.events.Append(context.Background(), event))
	return event
}

func TestDispatch_RendersEmailTemplates(t *testing.T) {

	f := newFixture(t, Channels{})
	rule := f.addRule(t, constants.ActionSendEmail,
		`{"subject":"You left {{.cart_value}} behind","body":"Finish here: {{.click_url}}"}`)
	event := f.addEvent(t, "cust-1", map[string]interface{}{"cart_value": 150})

	executionId, created, err := f.dispatcher.Dispatch(context.Background(), rule, event)
	require.NoError(t, err)
	require.True(t, created)

	require.Len(t, f.messages.sent, 1)
	msg := f.messages.sent[0]
	assert.Equal(t, "You left 150 behind", msg.Subject)
	assert.Equal(t, "Finish here: https://t.example.com/track/click/"+executionId, msg.Body)
	assert.Equal(t, "cust-1", msg.CustomerKey)
	assert.Equal(t, executionId, msg.ExecutionId)

	execution, err := f.tracker.Get(context.Background(), executionId)
	require.NoError(t, err)
	assert.Equal(t, constants.ExecutionSent, execution.Status)
	var record model.DispatchRecord
	require.NoError(t, json.Unmarshal(execution.ActionPayload, &record))
	assert.Equal(t, "msg-1", record.Outcome.Reference)
}

func TestDispatch_CooldownSuppressesSecondFiring(t *testing.T) {

	f := newFixture(t, Channels{})
	rule := f.addRule(t, constants.ActionSendSMS, `{"body":"hi"}`)
	event := f.addEvent(t, "cust-1", nil)

	_, created, err := f.dispatcher.Dispatch(context.Background(), rule, event)
	require.NoError(t, err)
	assert.True(t, created)

	executionId, created, err := f.dispatcher.Dispatch(context.Background(), rule, event)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Empty(t, executionId)
	assert.Len(t, f.messages.sent, 1)
}

func TestDispatch_MissingTemplateFieldFailsExecution(t *testing.T) {

	f := newFixture(t, Channels{})
	rule := f.addRule(t, constants.ActionSendPush, `{"body":"{{.product_name}} is waiting"}`)
	event := f.addEvent(t, "cust-1", map[string]interface{}{})

	executionId, created, err := f.dispatcher.Dispatch(context.Background(), rule, event)
	require.NoError(t, err)
	require.True(t, created)

	execution, err := f.tracker.Get(context.Background(), executionId)
	require.NoError(t, err)
	assert.Equal(t, constants.ExecutionFailed, execution.Status)
	assert.Contains(t, execution.Error, "product_name")
	assert.Empty(t, f.messages.sent)
}

func TestDispatch_AnonymousMessageFails(t *testing.T) {

	f := newFixture(t, Channels{})
	rule := f.addRule(t, constants.ActionSendEmail, `{"subject":"s","body":"b"}`)
	event := f.addEvent(t, constants.AnonymousCustomer, nil)

	executionId, created, err := f.dispatcher.Dispatch(context.Background(), rule, event)
	require.NoError(t, err)
	require.True(t, created)
	execution, _ := f.tracker.Get(context.Background(), executionId)
	assert.Equal(t, constants.ExecutionFailed, execution.Status)
}

func TestDispatch_SlowChannelTimesOut(t *testing.T) {

	messages := &fakeMessages{blocking: true}
	f := newFixture(t, Channels{Messages: messages})
	rule := f.addRule(t, constants.ActionSendSMS, `{"body":"hi"}`)
	event := f.addEvent(t, "cust-1", nil)

	start := time.Now()
	executionId, _, err := f.dispatcher.Dispatch(context.Background(), rule, event)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)

	execution, _ := f.tracker.Get(context.Background(), executionId)
	assert.Equal(t, constants.ExecutionFailed, execution.Status)
	assert.Contains(t, execution.Error, "deadline")
}

func TestDispatch_PopupTracksLink(t *testing.T) {

	f := newFixture(t, Channels{})
	rule := f.addRule(t, constants.ActionShowPopup,
		`{"title":"Still thinking?","body":"Take another look","link_url":"https://shop.example.com/cart"}`)
	event := f.addEvent(t, "cust-1", nil)

	executionId, _, err := f.dispatcher.Dispatch(context.Background(), rule, event)
	require.NoError(t, err)

	link, err := url.Parse(f.onsite.last.LinkURL)
	require.NoError(t, err)
	assert.Equal(t, "/track/click/"+executionId, link.Path)
	assert.Equal(t, "https://shop.example.com/cart", link.Query().Get("redirect"))
}

func TestDispatch_WebhookFailureThenRetry(t *testing.T) {

	var healthy atomic.Bool
	var received atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !healthy.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		var body map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "rule-trigger_webhook", body["trigger_id"])
		received.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	f := newFixture(t, Channels{})
	rule := f.addRule(t, constants.ActionTriggerWebhook, `{"url":"`+server.URL+`/hook"}`)
	event := f.addEvent(t, constants.AnonymousCustomer, map[string]interface{}{"sku": "A1"})

	executionId, created, err := f.dispatcher.Dispatch(context.Background(), rule, event)
	require.NoError(t, err)
	require.True(t, created)
	execution, _ := f.tracker.Get(context.Background(), executionId)
	require.Equal(t, constants.ExecutionFailed, execution.Status)

	healthy.Store(true)
	retried, err := f.dispatcher.Retry(context.Background(), "shop", executionId)
	require.NoError(t, err)
	assert.Equal(t, constants.ExecutionSent, retried.Status)
	assert.Equal(t, int32(1), received.Load())

	_, err = f.dispatcher.Retry(context.Background(), "shop", executionId)
	require.Error(t, err)
	clientErr, ok := err.(*errors.ClientError)
	require.True(t, ok)
	assert.Equal(t, http.StatusConflict, clientErr.StatusCode)
}

func TestRetry_ConcurrentRequestsDeliverOnce(t *testing.T) {

	var healthy atomic.Bool
	var received atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !healthy.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		received.Add(1)
		time.Sleep(20 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	f := newFixture(t, Channels{})
	rule := f.addRule(t, constants.ActionTriggerWebhook, `{"url":"`+server.URL+`/hook"}`)
	event := f.addEvent(t, constants.AnonymousCustomer, nil)
	executionId, _, err := f.dispatcher.Dispatch(context.Background(), rule, event)
	require.NoError(t, err)
	healthy.Store(true)

	var wg sync.WaitGroup
	var succeeded, conflicted atomic.Int32
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.dispatcher.Retry(context.Background(), "shop", executionId)
			if err == nil {
				succeeded.Add(1)
				return
			}
			if clientErr, ok := err.(*errors.ClientError); ok && clientErr.StatusCode == http.StatusConflict {
				conflicted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), succeeded.Load())
	assert.Equal(t, int32(5), conflicted.Load())
	assert.Equal(t, int32(1), received.Load())
	execution, _ := f.tracker.Get(context.Background(), executionId)
	assert.Equal(t, constants.ExecutionSent, execution.Status)
}

func TestRetry_OtherOwnerSeesNotFound(t *testing.T) {

	f := newFixture(t, Channels{})
	rule := f.addRule(t, constants.ActionSendEmail, `{"subject":"s","body":"b"}`)
	event := f.addEvent(t, constants.AnonymousCustomer, nil)
	executionId, _, err := f.dispatcher.Dispatch(context.Background(), rule, event)
	require.NoError(t, err)

	_, err = f.dispatcher.Retry(context.Background(), "other-shop", executionId)
	clientErr, ok := err.(*errors.ClientError)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, clientErr.StatusCode)
}
