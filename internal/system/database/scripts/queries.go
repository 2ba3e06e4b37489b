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

package scripts

const behaviorEventColumns = `event_id, owner_id, customer_key, event_type, payload, occurred_at, received_at, processed, matched_trigger_ids`

const triggerRuleColumns = `rule_id, owner_id, name, description, event_type, condition_type, condition_value, action_type,
	action_config, cooldown_hours, priority, status, last_fired_at, created_at, updated_at`

const triggerExecutionColumns = `execution_id, owner_id, trigger_id, customer_key, event_id, action_type, action_payload, status,
	error, created_at, sent_at, clicked_at, converted_at, conversion_order_id, conversion_value, updated_at`

var InsertBehaviorEvent = map[string]string{
	"postgres": `INSERT INTO behavior_events (` + behaviorEventColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
}

var MarkBehaviorEventProcessed = map[string]string{
	"postgres": `UPDATE behavior_events SET processed = TRUE, matched_trigger_ids = $2 WHERE event_id = $1`,
}

var GetBehaviorEvent = map[string]string{
	"postgres": `SELECT ` + behaviorEventColumns + ` FROM behavior_events WHERE event_id = $1`,
}

var RecentBehaviorEventsFirstPage = map[string]string{
	"postgres": `SELECT ` + behaviorEventColumns + ` FROM behavior_events
		WHERE owner_id = $1 AND customer_key = $2 AND event_type = $3 AND occurred_at >= $4
		ORDER BY occurred_at DESC, event_id DESC LIMIT $5`,
}

var RecentBehaviorEventsNextPage = map[string]string{
	"postgres": `SELECT ` + behaviorEventColumns + ` FROM behavior_events
		WHERE owner_id = $1 AND customer_key = $2 AND event_type = $3 AND occurred_at >= $4
		AND (occurred_at, event_id) < ($5, $6)
		ORDER BY occurred_at DESC, event_id DESC LIMIT $7`,
}

var UnprocessedBehaviorEvents = map[string]string{
	"postgres": `SELECT ` + behaviorEventColumns + ` FROM behavior_events
		WHERE processed = FALSE AND received_at < $1
		ORDER BY received_at ASC, event_id ASC LIMIT $2`,
}

var BehaviorEventsBetween = map[string]string{
	"postgres": `SELECT ` + behaviorEventColumns + ` FROM behavior_events
		WHERE owner_id = $1 AND event_type = $2 AND occurred_at >= $3 AND occurred_at < $4 AND customer_key <> ''
		ORDER BY occurred_at ASC`,
}

var InsertTriggerRule = map[string]string{
	"postgres": `INSERT INTO trigger_rules (` + triggerRuleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
}

var GetTriggerRule = map[string]string{
	"postgres": `SELECT ` + triggerRuleColumns + ` FROM trigger_rules WHERE rule_id = $1 AND owner_id = $2`,
}

var ListTriggerRules = map[string]string{
	"postgres": `SELECT ` + triggerRuleColumns + ` FROM trigger_rules WHERE owner_id = $1
		ORDER BY priority DESC, created_at ASC`,
}

var ActiveTriggerRulesForEvent = map[string]string{
	"postgres": `SELECT ` + triggerRuleColumns + ` FROM trigger_rules
		WHERE owner_id = $1 AND event_type = $2 AND status = 'active'
		ORDER BY priority DESC, created_at ASC`,
}

var ActiveTriggerRulesWithCondition = map[string]string{
	"postgres": `SELECT ` + triggerRuleColumns + ` FROM trigger_rules
		WHERE condition_type = $1 AND status = 'active'
		ORDER BY owner_id, priority DESC`,
}

var UpdateTriggerRule = map[string]string{
	"postgres": `UPDATE trigger_rules SET name = $3, description = $4, event_type = $5, condition_type = $6,
		condition_value = $7, action_type = $8, action_config = $9, cooldown_hours = $10, priority = $11,
		status = $12, updated_at = $13
		WHERE rule_id = $1 AND owner_id = $2`,
}

var DeleteTriggerRule = map[string]string{
	"postgres": `DELETE FROM trigger_rules WHERE rule_id = $1 AND owner_id = $2`,
}

var TouchTriggerRuleLastFired = map[string]string{
	"postgres": `UPDATE trigger_rules SET last_fired_at = $2
		WHERE rule_id = $1 AND (last_fired_at IS NULL OR last_fired_at < $2)`,
}

// InsertTriggerExecutionOutsideCooldown inserts the execution only when no other
// execution of the same trigger for the same customer exists at or after the cutoff ($9).
var InsertTriggerExecutionOutsideCooldown = map[string]string{
	"postgres": `INSERT INTO trigger_executions
		(execution_id, owner_id, trigger_id, customer_key, event_id, action_type, status, created_at, updated_at)
		SELECT $1::text, $2::text, $3::text, $4::text, $5::text, $6::text, $7::text, $8::timestamptz, $8::timestamptz
		WHERE NOT EXISTS (
			SELECT 1 FROM trigger_executions
			WHERE trigger_id = $3::text AND customer_key = $4::text AND created_at >= $9::timestamptz
		)`,
}

var InsertTriggerExecution = map[string]string{
	"postgres": `INSERT INTO trigger_executions
		(execution_id, owner_id, trigger_id, customer_key, event_id, action_type, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`,
}

var HasTriggerExecutionSince = map[string]string{
	"postgres": `SELECT 1 AS found FROM trigger_executions
		WHERE trigger_id = $1 AND customer_key = $2 AND created_at >= $3 LIMIT 1`,
}

var GetTriggerExecution = map[string]string{
	"postgres": `SELECT ` + triggerExecutionColumns + ` FROM trigger_executions WHERE execution_id = $1`,
}

var CompleteTriggerExecution = map[string]string{
	"postgres": `UPDATE trigger_executions SET status = $2, action_payload = $3, error = $4,
		sent_at = COALESCE($5, sent_at), updated_at = $6
		WHERE execution_id = $1 AND status = ANY($7)`,
}

var MarkTriggerExecutionClicked = map[string]string{
	"postgres": `UPDATE trigger_executions SET status = 'clicked', clicked_at = $2, updated_at = $2
		WHERE execution_id = $1 AND status = 'sent' AND clicked_at IS NULL`,
}

var MarkTriggerExecutionConverted = map[string]string{
	"postgres": `UPDATE trigger_executions SET status = 'converted', converted_at = $2, conversion_order_id = $3,
		conversion_value = $4, updated_at = $2
		WHERE execution_id = $1 AND status IN ('sent', 'clicked')`,
}

var FailStalePendingExecutions = map[string]string{
	"postgres": `UPDATE trigger_executions SET status = 'failed', error = $2, updated_at = $3
		WHERE status = 'pending' AND updated_at < $1`,
}

var ClaimTriggerExecutionForRetry = map[string]string{
	"postgres": `UPDATE trigger_executions SET status = 'pending', error = '', updated_at = $2
		WHERE execution_id = $1 AND status = 'failed'`,
}

var ListTriggerExecutionsByTrigger = map[string]string{
	"postgres": `SELECT ` + triggerExecutionColumns + ` FROM trigger_executions
		WHERE owner_id = $1 AND trigger_id = $2 ORDER BY created_at DESC LIMIT $3`,
}

var CountTriggerExecutionsSince = map[string]string{
	"postgres": `SELECT trigger_id,
		COUNT(*) AS executions,
		COUNT(*) FILTER (WHERE status IN ('sent', 'clicked', 'converted')) AS sent,
		COUNT(*) FILTER (WHERE status = 'failed') AS failed,
		COUNT(*) FILTER (WHERE clicked_at IS NOT NULL OR converted_at IS NOT NULL) AS clicked,
		COUNT(*) FILTER (WHERE converted_at IS NOT NULL) AS converted,
		COALESCE(SUM(conversion_value) FILTER (WHERE converted_at IS NOT NULL), 0) AS revenue
		FROM trigger_executions
		WHERE owner_id = $1 AND created_at >= $2
		GROUP BY trigger_id`,
}
