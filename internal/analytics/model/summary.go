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

package model

// Summary aggregates trigger executions created within a window.
type Summary struct {
	WindowDays          int              `json:"window_days"`
	Executions          int              `json:"executions"`
	Sent                int              `json:"sent"`
	Failed              int              `json:"failed"`
	Clicked             int              `json:"clicked"`
	Converted           int              `json:"converted"`
	Revenue             float64          `json:"revenue"`
	ClickRate           float64          `json:"click_rate"`
	ConversionRate      float64          `json:"conversion_rate"`
	RevenuePerExecution float64          `json:"revenue_per_execution"`
	Triggers            []TriggerSummary `json:"triggers,omitempty"`
}

// TriggerSummary is the share of a Summary produced by one trigger rule.
type TriggerSummary struct {
	TriggerId           string  `json:"trigger_id"`
	Executions          int     `json:"executions"`
	Sent                int     `json:"sent"`
	Failed              int     `json:"failed"`
	Clicked             int     `json:"clicked"`
	Converted           int     `json:"converted"`
	Revenue             float64 `json:"revenue"`
	ClickRate           float64 `json:"click_rate"`
	ConversionRate      float64 `json:"conversion_rate"`
	RevenuePerExecution float64 `json:"revenue_per_execution"`
}
