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
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/wso2/commerce-trigger-service/internal/analytics/model"
	"github.com/wso2/commerce-trigger-service/internal/system/errors"
	execModel "github.com/wso2/commerce-trigger-service/internal/trigger_executions/model"
)

// MaxWindowDays bounds the analytics window.
const MaxWindowDays = 365

// ExecutionSource tallies executions created at or after a point in time, per trigger.
type ExecutionSource interface {
	CountByTriggerSince(ctx context.Context, ownerId string, since time.Time) ([]execModel.TriggerCounts, error)
}

// AnalyticsAggregatorInterface derives engagement rates from the execution log.
type AnalyticsAggregatorInterface interface {
	Summarize(ctx context.Context, ownerId string, windowDays int) (*model.Summary, error)
	SummarizeByTrigger(ctx context.Context, ownerId string, windowDays int) (*model.Summary, error)
}

// AnalyticsAggregator is the default implementation of the AnalyticsAggregatorInterface.
// It reads a point in time snapshot and takes no locks.
type AnalyticsAggregator struct {
	executions ExecutionSource
	now        func() time.Time
}

func GetAnalyticsAggregator(executions ExecutionSource) *AnalyticsAggregator {
	return &AnalyticsAggregator{
		executions: executions,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the aggregator's time source.
func (a *AnalyticsAggregator) WithClock(now func() time.Time) *AnalyticsAggregator {
	a.now = now
	return a
}

func (a *AnalyticsAggregator) Summarize(ctx context.Context, ownerId string, windowDays int) (*model.Summary, error) {

	counts, err := a.load(ctx, ownerId, windowDays)
	if err != nil {
		return nil, err
	}
	summary := summarize(total(counts))
	summary.WindowDays = windowDays
	return &summary, nil
}

func (a *AnalyticsAggregator) SummarizeByTrigger(ctx context.Context, ownerId string, windowDays int) (*model.Summary, error) {

	counts, err := a.load(ctx, ownerId, windowDays)
	if err != nil {
		return nil, err
	}
	summary := summarize(total(counts))
	summary.WindowDays = windowDays
	summary.Triggers = make([]model.TriggerSummary, 0, len(counts))
	for _, c := range counts {
		s := summarize(c)
		summary.Triggers = append(summary.Triggers, model.TriggerSummary{
			TriggerId:           c.TriggerId,
			Executions:          s.Executions,
			Sent:                s.Sent,
			Failed:              s.Failed,
			Clicked:             s.Clicked,
			Converted:           s.Converted,
			Revenue:             s.Revenue,
			ClickRate:           s.ClickRate,
			ConversionRate:      s.ConversionRate,
			RevenuePerExecution: s.RevenuePerExecution,
		})
	}
	sort.Slice(summary.Triggers, func(i, j int) bool {
		if summary.Triggers[i].Executions != summary.Triggers[j].Executions {
			return summary.Triggers[i].Executions > summary.Triggers[j].Executions
		}
		return summary.Triggers[i].TriggerId < summary.Triggers[j].TriggerId
	})
	return &summary, nil
}

func (a *AnalyticsAggregator) load(ctx context.Context, ownerId string, windowDays int) ([]execModel.TriggerCounts, error) {

	if windowDays <= 0 || windowDays > MaxWindowDays {
		return nil, errors.NewClientError(errors.ErrorMessage{
			Code:        errors.INVALID_WINDOW.Code,
			Message:     errors.INVALID_WINDOW.Message,
			Description: fmt.Sprintf("days must be between 1 and %d.", MaxWindowDays),
		}, http.StatusBadRequest)
	}
	since := a.now().Add(-time.Duration(windowDays) * 24 * time.Hour)
	counts, err := a.executions.CountByTriggerSince(ctx, ownerId, since)
	if err != nil {
		return nil, errors.NewServerError(errors.SUMMARIZE_ANALYTICS, err)
	}
	return counts, nil
}

func total(counts []execModel.TriggerCounts) execModel.TriggerCounts {

	var t execModel.TriggerCounts
	for _, c := range counts {
		t.Executions += c.Executions
		t.Sent += c.Sent
		t.Failed += c.Failed
		t.Clicked += c.Clicked
		t.Converted += c.Converted
		t.Revenue += c.Revenue
	}
	return t
}

func summarize(c execModel.TriggerCounts) model.Summary {

	s := model.Summary{
		Executions: c.Executions,
		Sent:       c.Sent,
		Failed:     c.Failed,
		Clicked:    c.Clicked,
		Converted:  c.Converted,
		Revenue:    c.Revenue,
	}
	if c.Executions > 0 {
		n := float64(c.Executions)
		s.ClickRate = float64(c.Clicked) / n
		s.ConversionRate = float64(c.Converted) / n
		s.RevenuePerExecution = c.Revenue / n
	}
	return s
}
