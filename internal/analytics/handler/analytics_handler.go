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

package handler

import (
	"net/http"
	"strconv"

	"github.com/wso2/commerce-trigger-service/internal/analytics/model"
	"github.com/wso2/commerce-trigger-service/internal/analytics/service"
	"github.com/wso2/commerce-trigger-service/internal/system/errors"
	"github.com/wso2/commerce-trigger-service/internal/system/utils"
)

const defaultWindowDays = 30

type AnalyticsHandler struct {
	aggregator service.AnalyticsAggregatorInterface
}

func NewAnalyticsHandler(aggregator service.AnalyticsAggregatorInterface) *AnalyticsHandler {
	return &AnalyticsHandler{aggregator: aggregator}
}

// GetSummary handles GET /analytics/summary?days=N[&by=trigger]
func (h *AnalyticsHandler) GetSummary(w http.ResponseWriter, r *http.Request) {

	days := defaultWindowDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			utils.HandleError(w, r, utils.BadRequest(errors.INVALID_WINDOW, "days must be an integer."))
			return
		}
		days = parsed
	}

	ownerId := utils.ExtractOwnerIdFromRequest(r)
	var summary *model.Summary
	var err error
	switch r.URL.Query().Get("by") {
	case "":
		summary, err = h.aggregator.Summarize(r.Context(), ownerId, days)
	case "trigger":
		summary, err = h.aggregator.SummarizeByTrigger(r.Context(), ownerId, days)
	default:
		err = utils.BadRequest(errors.BAD_REQUEST, "by only supports 'trigger'.")
	}
	if err != nil {
		utils.HandleError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, summary)
}
