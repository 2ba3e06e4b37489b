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
	"sync"
	"time"

	"github.com/wso2/commerce-trigger-service/internal/system/constants"
	"github.com/wso2/commerce-trigger-service/internal/trigger_rules/model"
)

// MemoryRuleStore keeps trigger rules in process.
type MemoryRuleStore struct {
	mu    sync.RWMutex
	rules map[string]model.TriggerRule
}

var _ RuleStoreInterface = (*MemoryRuleStore)(nil)

func NewMemoryRuleStore() *MemoryRuleStore {
	return &MemoryRuleStore{rules: map[string]model.TriggerRule{}}
}

func (s *MemoryRuleStore) ActiveRulesFor(_ context.Context, ownerId, eventType string) ([]model.TriggerRule, error) {
	return s.filter(func(r model.TriggerRule) bool {
		return r.OwnerId == ownerId && r.EventType == eventType && r.Status == constants.RuleStatusActive
	}), nil
}

func (s *MemoryRuleStore) ActiveRulesWithCondition(_ context.Context, conditionType string) ([]model.TriggerRule, error) {
	return s.filter(func(r model.TriggerRule) bool {
		return r.ConditionType == conditionType && r.Status == constants.RuleStatusActive
	}), nil
}

func (s *MemoryRuleStore) Create(_ context.Context, rule *model.TriggerRule) error {

	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules[rule.RuleId] = *rule
	return nil
}

func (s *MemoryRuleStore) Get(_ context.Context, ownerId, ruleId string) (*model.TriggerRule, error) {

	s.mu.RLock()
	defer s.mu.RUnlock()
	rule, ok := s.rules[ruleId]
	if !ok || rule.OwnerId != ownerId {
		return nil, nil
	}
	return &rule, nil
}

func (s *MemoryRuleStore) List(_ context.Context, ownerId string) ([]model.TriggerRule, error) {
	return s.filter(func(r model.TriggerRule) bool { return r.OwnerId == ownerId }), nil
}

func (s *MemoryRuleStore) Update(_ context.Context, rule *model.TriggerRule) (bool, error) {

	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.rules[rule.RuleId]
	if !ok || existing.OwnerId != rule.OwnerId {
		return false, nil
	}
	updated := *rule
	updated.CreatedAt = existing.CreatedAt
	updated.LastFiredAt = existing.LastFiredAt
	s.rules[rule.RuleId] = updated
	return true, nil
}

func (s *MemoryRuleStore) Delete(_ context.Context, ownerId, ruleId string) (bool, error) {

	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.rules[ruleId]
	if !ok || existing.OwnerId != ownerId {
		return false, nil
	}
	delete(s.rules, ruleId)
	return true, nil
}

func (s *MemoryRuleStore) TouchLastFired(_ context.Context, ruleId string, firedAt time.Time) error {

	s.mu.Lock()
	defer s.mu.Unlock()
	rule, ok := s.rules[ruleId]
	if !ok {
		return nil
	}
	if rule.LastFiredAt == nil || rule.LastFiredAt.Before(firedAt) {
		rule.LastFiredAt = &firedAt
		s.rules[ruleId] = rule
	}
	return nil
}

func (s *MemoryRuleStore) filter(keep func(model.TriggerRule) bool) []model.TriggerRule {

	s.mu.RLock()
	var rules []model.TriggerRule
	for _, r := range s.rules {
		if keep(r) {
			rules = append(rules, r)
		}
	}
	s.mu.RUnlock()
	sortByPriority(rules)
	return rules
}
