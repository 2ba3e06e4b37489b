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
	"sort"
	"time"

	"github.com/wso2/commerce-trigger-service/internal/trigger_rules/model"
)

// RuleStoreInterface persists trigger rules. Reads are never cached so edits
// apply to the next processed event.
type RuleStoreInterface interface {
	// ActiveRulesFor returns the owner's active rules for an event type, highest priority first.
	ActiveRulesFor(ctx context.Context, ownerId, eventType string) ([]model.TriggerRule, error)
	// ActiveRulesWithCondition returns active rules of every owner using a condition type.
	ActiveRulesWithCondition(ctx context.Context, conditionType string) ([]model.TriggerRule, error)
	Create(ctx context.Context, rule *model.TriggerRule) error
	Get(ctx context.Context, ownerId, ruleId string) (*model.TriggerRule, error)
	List(ctx context.Context, ownerId string) ([]model.TriggerRule, error)
	Update(ctx context.Context, rule *model.TriggerRule) (bool, error)
	Delete(ctx context.Context, ownerId, ruleId string) (bool, error)
	TouchLastFired(ctx context.Context, ruleId string, firedAt time.Time) error
}

// sortByPriority orders rules by priority descending, oldest first among equals.
func sortByPriority(rules []model.TriggerRule) {
	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].Priority != rules[j].Priority {
			return rules[i].Priority > rules[j].Priority
		}
		if !rules[i].CreatedAt.Equal(rules[j].CreatedAt) {
			return rules[i].CreatedAt.Before(rules[j].CreatedAt)
		}
		return rules[i].RuleId < rules[j].RuleId
	})
}
