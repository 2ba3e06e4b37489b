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
	"time"

	"github.com/wso2/commerce-trigger-service/internal/system/constants"
	execModel "github.com/wso2/commerce-trigger-service/internal/trigger_executions/model"
	execService "github.com/wso2/commerce-trigger-service/internal/trigger_executions/service"
	ruleModel "github.com/wso2/commerce-trigger-service/internal/trigger_rules/model"
)

// CooldownGuard keeps a rule from firing twice for one customer inside its
// cooldown window.
type CooldownGuard struct {
	tracker execService.ExecutionTrackerInterface
	now     func() time.Time
}

func NewCooldownGuard(tracker execService.ExecutionTrackerInterface) *CooldownGuard {
	return &CooldownGuard{
		tracker: tracker,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (g *CooldownGuard) WithClock(now func() time.Time) *CooldownGuard {
	g.now = now
	return g
}

// MayFire is a read only pre-check. Only Reserve decides whether a rule fires.
func (g *CooldownGuard) MayFire(ctx context.Context, rule *ruleModel.TriggerRule, customerKey string) (bool, error) {

	if customerKey == constants.AnonymousCustomer || rule.CooldownHours <= 0 {
		return true, nil
	}
	recent, err := g.tracker.HasExecutionSince(ctx, rule.RuleId, customerKey, g.now().Add(-rule.Cooldown()))
	if err != nil {
		return false, err
	}
	return !recent, nil
}

// Reserve stores the pending execution only when the cooldown window of the
// rule holds no other execution for the customer. A false result without an
// error means a concurrent or earlier execution won.
func (g *CooldownGuard) Reserve(ctx context.Context, rule *ruleModel.TriggerRule,
	execution *execModel.TriggerExecution) (bool, error) {

	return g.tracker.RecordDispatch(ctx, execution, rule.Cooldown())
}
