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

package store

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wso2/commerce-trigger-service/internal/system/constants"
	"github.com/wso2/commerce-trigger-service/internal/system/database/client"
	"github.com/wso2/commerce-trigger-service/internal/system/log"
	"github.com/wso2/commerce-trigger-service/internal/trigger_rules/model"
)

var ruleColumns = []string{"rule_id", "owner_id", "name", "description", "event_type", "condition_type",
	"condition_value", "action_type", "action_config", "cooldown_hours", "priority", "status", "last_fired_at",
	"created_at", "updated_at"}

func TestMemoryRuleStore_ActiveRulesForFiltersAndSorts(t *testing.T) {

	ctx := context.Background()
	s := NewMemoryRuleStore()
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	rules := []model.TriggerRule{
		{RuleId: "low", OwnerId: "shop", EventType: "cart_add", Status: constants.RuleStatusActive, Priority: 1, CreatedAt: base},
		{RuleId: "high", OwnerId: "shop", EventType: "cart_add", Status: constants.RuleStatusActive, Priority: 9, CreatedAt: base},
		{RuleId: "draft", OwnerId: "shop", EventType: "cart_add", Status: constants.RuleStatusDraft, Priority: 99, CreatedAt: base},
		{RuleId: "paused", OwnerId: "shop", EventType: "cart_add", Status: constants.RuleStatusPaused, Priority: 99, CreatedAt: base},
		{RuleId: "other-type", OwnerId: "shop", EventType: "product_view", Status: constants.RuleStatusActive, CreatedAt: base},
		{RuleId: "other-owner", OwnerId: "shop2", EventType: "cart_add", Status: constants.RuleStatusActive, CreatedAt: base},
		{RuleId: "low-newer", OwnerId: "shop", EventType: "cart_add", Status: constants.RuleStatusActive, Priority: 1, CreatedAt: base.Add(time.Hour)},
	}
	for i := range rules {
		require.NoError(t, s.Create(ctx, &rules[i]))
	}

	active, err := s.ActiveRulesFor(ctx, "shop", "cart_add")
	require.NoError(t, err)
	var ids []string
	for _, r := range active {
		ids = append(ids, r.RuleId)
	}
	assert.Equal(t, []string{"high", "low", "low-newer"}, ids)
}

func TestMemoryRuleStore_TouchLastFiredOnlyMovesForward(t *testing.T) {

	ctx := context.Background()
	s := NewMemoryRuleStore()
	require.NoError(t, s.Create(ctx, &model.TriggerRule{RuleId: "r1", OwnerId: "shop"}))
	later := time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)
	earlier := later.Add(-time.Hour)

	require.NoError(t, s.TouchLastFired(ctx, "r1", later))
	require.NoError(t, s.TouchLastFired(ctx, "r1", earlier))

	rule, err := s.Get(ctx, "shop", "r1")
	require.NoError(t, err)
	require.NotNil(t, rule.LastFiredAt)
	assert.Equal(t, later, *rule.LastFiredAt)
}

func TestPostgresRuleStore_ActiveRulesFor(t *testing.T) {

	_ = log.Init("DEBUG")
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	s := NewPostgresRuleStore(client.NewDBClient(db))
	created := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE owner_id = $1 AND event_type = $2 AND status = 'active'")).
		WithArgs("shop", "cart_add").
		WillReturnRows(sqlmock.NewRows(ruleColumns).
			AddRow("r1", "shop", "Big cart", "", "cart_add", "value_gte", []byte(`100`), "send_email",
				[]byte(`{"subject":"Hi","body":"Hello"}`), int64(24), int64(5), "active", nil, created, created))

	rules, err := s.ActiveRulesFor(context.Background(), "shop", "cart_add")
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "r1", rules[0].RuleId)
	assert.Equal(t, 24, rules[0].CooldownHours)
	assert.Equal(t, 5, rules[0].Priority)
	assert.JSONEq(t, `100`, string(rules[0].ConditionValue))
	assert.Nil(t, rules[0].LastFiredAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRuleStore_DeleteReportsMissing(t *testing.T) {

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	s := NewPostgresRuleStore(client.NewDBClient(db))

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM trigger_rules")).
		WithArgs("missing", "shop").
		WillReturnResult(sqlmock.NewResult(0, 0))

	deleted, err := s.Delete(context.Background(), "shop", "missing")
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}
