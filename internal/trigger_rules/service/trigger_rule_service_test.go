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
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wso2/commerce-trigger-service/internal/system/constants"
	"github.com/wso2/commerce-trigger-service/internal/system/errors"
	"github.com/wso2/commerce-trigger-service/internal/system/log"
	"github.com/wso2/commerce-trigger-service/internal/trigger_rules/model"
	"github.com/wso2/commerce-trigger-service/internal/trigger_rules/store"
)

func TestMain(m *testing.M) {
	_ = log.Init("ERROR")
	os.Exit(m.Run())
}

func highValueCartRequest() model.TriggerRuleRequest {
	return model.TriggerRuleRequest{
		Name:           "High value cart",
		EventType:      constants.EventCartAdd,
		ConditionType:  constants.ConditionValueGte,
		ConditionValue: json.RawMessage(`100`),
		ActionType:     constants.ActionSendEmail,
		ActionConfig:   json.RawMessage(`{"subject":"Still thinking?","body":"Hi {{.customer_key}}"}`),
		Priority:       5,
	}
}

func newService() *TriggerRuleService {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return GetTriggerRuleService(store.NewMemoryRuleStore(), 24).WithClock(func() time.Time { return now })
}

func statusOf(t *testing.T, err error) int {
	var clientErr *errors.ClientError
	require.ErrorAs(t, err, &clientErr)
	return clientErr.StatusCode
}

func TestAddTriggerRule_Defaults(t *testing.T) {

	svc := newService()
	rule, err := svc.AddTriggerRule(context.Background(), "shop-1", highValueCartRequest())
	require.NoError(t, err)

	assert.NotEmpty(t, rule.RuleId)
	assert.Equal(t, constants.RuleStatusDraft, rule.Status)
	assert.Equal(t, 24, rule.CooldownHours)

	zero := 0
	request := highValueCartRequest()
	request.CooldownHours = &zero
	request.Status = constants.RuleStatusActive
	rule, err = svc.AddTriggerRule(context.Background(), "shop-1", request)
	require.NoError(t, err)
	assert.Equal(t, 0, rule.CooldownHours)
	assert.Equal(t, constants.RuleStatusActive, rule.Status)
}

func TestAddTriggerRule_RejectsMalformedConfigs(t *testing.T) {

	svc := newService()
	cases := map[string]func(r *model.TriggerRuleRequest){
		"unknown condition": func(r *model.TriggerRuleRequest) { r.ConditionType = "moon_phase" },
		"bad threshold":     func(r *model.TriggerRuleRequest) { r.ConditionValue = json.RawMessage(`"lots"`) },
		"email no subject":  func(r *model.TriggerRuleRequest) { r.ActionConfig = json.RawMessage(`{"body":"x"}`) },
		"relative webhook": func(r *model.TriggerRuleRequest) {
			r.ActionType = constants.ActionTriggerWebhook
			r.ActionConfig = json.RawMessage(`{"url":"/hooks/cart"}`)
		},
		"unknown event type": func(r *model.TriggerRuleRequest) { r.EventType = "wishlist_add" },
		"missing name":       func(r *model.TriggerRuleRequest) { r.Name = "  " },
		"created paused":     func(r *model.TriggerRuleRequest) { r.Status = constants.RuleStatusPaused },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			request := highValueCartRequest()
			mutate(&request)
			_, err := svc.AddTriggerRule(context.Background(), "shop-1", request)
			assert.Equal(t, http.StatusBadRequest, statusOf(t, err))
		})
	}
}

func TestUpdateTriggerRule_StatusTransitions(t *testing.T) {

	svc := newService()
	rule, err := svc.AddTriggerRule(context.Background(), "shop-1", highValueCartRequest())
	require.NoError(t, err)

	move := func(status string) error {
		request := highValueCartRequest()
		request.Status = status
		_, err := svc.UpdateTriggerRule(context.Background(), "shop-1", rule.RuleId, request)
		return err
	}

	assert.Equal(t, http.StatusBadRequest, statusOf(t, move(constants.RuleStatusPaused)))
	require.NoError(t, move(constants.RuleStatusActive))
	require.NoError(t, move(constants.RuleStatusPaused))
	assert.Equal(t, http.StatusBadRequest, statusOf(t, move(constants.RuleStatusDraft)))
	require.NoError(t, move(constants.RuleStatusActive))

	stored, err := svc.GetTriggerRule(context.Background(), "shop-1", rule.RuleId)
	require.NoError(t, err)
	assert.Equal(t, constants.RuleStatusActive, stored.Status)
}

func TestUpdateTriggerRule_KeepsCooldownWhenOmitted(t *testing.T) {

	svc := newService()
	six := 6
	request := highValueCartRequest()
	request.CooldownHours = &six
	rule, err := svc.AddTriggerRule(context.Background(), "shop-1", request)
	require.NoError(t, err)

	update := highValueCartRequest()
	update.Name = "Renamed"
	updated, err := svc.UpdateTriggerRule(context.Background(), "shop-1", rule.RuleId, update)
	require.NoError(t, err)
	assert.Equal(t, 6, updated.CooldownHours)
	assert.Equal(t, "Renamed", updated.Name)
}

func TestTriggerRules_OwnerIsolationAndDelete(t *testing.T) {

	svc := newService()
	rule, err := svc.AddTriggerRule(context.Background(), "shop-1", highValueCartRequest())
	require.NoError(t, err)

	_, err = svc.GetTriggerRule(context.Background(), "shop-2", rule.RuleId)
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))
	assert.Equal(t, http.StatusNotFound, statusOf(t, svc.DeleteTriggerRule(context.Background(), "shop-2", rule.RuleId)))

	others, err := svc.GetTriggerRules(context.Background(), "shop-2")
	require.NoError(t, err)
	assert.Empty(t, others)

	require.NoError(t, svc.DeleteTriggerRule(context.Background(), "shop-1", rule.RuleId))
	assert.Equal(t, http.StatusNotFound, statusOf(t, svc.DeleteTriggerRule(context.Background(), "shop-1", rule.RuleId)))
}
