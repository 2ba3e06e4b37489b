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
	"context"
	stderrors "errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	systemContext "github.com/wso2/commerce-trigger-service/internal/system/context"
	"github.com/wso2/commerce-trigger-service/internal/system/errors"
	"github.com/wso2/commerce-trigger-service/internal/system/log"
	"github.com/wso2/commerce-trigger-service/internal/system/pagination"
	"github.com/wso2/commerce-trigger-service/internal/system/utils"
	"github.com/wso2/commerce-trigger-service/internal/trigger_executions/model"
	"github.com/wso2/commerce-trigger-service/internal/trigger_executions/service"
	ruleModel "github.com/wso2/commerce-trigger-service/internal/trigger_rules/model"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

// Retrier re-sends a failed execution.
type Retrier interface {
	Retry(ctx context.Context, ownerId, executionId string) (*model.TriggerExecution, error)
}

type ExecutionHandler struct {
	tracker         service.ExecutionTrackerInterface
	retrier         Retrier
	defaultRedirect string
}

// NewExecutionHandler creates the tracking and execution handlers. Clicks without
// a usable redirect target land on defaultRedirect.
func NewExecutionHandler(tracker service.ExecutionTrackerInterface, retrier Retrier, defaultRedirect string) *ExecutionHandler {

	if defaultRedirect == "" {
		defaultRedirect = "/"
	}
	return &ExecutionHandler{tracker: tracker, retrier: retrier, defaultRedirect: defaultRedirect}
}

// TrackClick handles GET /track/click/{executionId}
func (h *ExecutionHandler) TrackClick(w http.ResponseWriter, r *http.Request) {

	executionId := chi.URLParam(r, "executionId")
	target := h.defaultRedirect
	if redirect := r.URL.Query().Get("redirect"); ruleModel.IsAbsoluteHTTPURL(redirect) {
		target = redirect
	}

	// The shopper is redirected even when the click cannot be recorded.
	if _, err := h.tracker.MarkClicked(r.Context(), executionId); err != nil {
		logger := log.GetLogger().With(log.TraceID(systemContext.GetTraceID(r.Context())),
			log.String("executionId", executionId))
		var clientErr *errors.ClientError
		if stderrors.As(err, &clientErr) {
			logger.Debug("Click for unknown trigger execution")
		} else {
			logger.Error("Failed to record click", log.Error(err))
		}
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// TrackConversion handles POST /track/conversion/{executionId}
func (h *ExecutionHandler) TrackConversion(w http.ResponseWriter, r *http.Request) {

	var conversion model.ConversionRequest
	if err := utils.DecodeJSON(r, &conversion); err != nil {
		utils.HandleError(w, r, utils.BadRequest(errors.INVALID_CONVERSION, utils.HandleDecodeError(err, "conversion")))
		return
	}
	if _, err := h.tracker.MarkConverted(r.Context(), chi.URLParam(r, "executionId"), conversion); err != nil {
		utils.HandleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetRuleExecutions handles GET /trigger-rules/{ruleId}/executions
func (h *ExecutionHandler) GetRuleExecutions(w http.ResponseWriter, r *http.Request) {

	limit, err := pagination.ParseLimit(r, defaultListLimit, maxListLimit)
	if err != nil {
		utils.HandleError(w, r, utils.BadRequest(errors.BAD_REQUEST, err.Error()+"."))
		return
	}

	executions, err := h.tracker.ListByTrigger(r.Context(), utils.ExtractOwnerIdFromRequest(r),
		chi.URLParam(r, "ruleId"), limit)
	if err != nil {
		utils.HandleError(w, r, err)
		return
	}
	if executions == nil {
		executions = []model.TriggerExecution{}
	}
	utils.WriteJSON(w, http.StatusOK, executions)
}

// RetryExecution handles POST /trigger-executions/{executionId}/retry
func (h *ExecutionHandler) RetryExecution(w http.ResponseWriter, r *http.Request) {

	execution, err := h.retrier.Retry(r.Context(), utils.ExtractOwnerIdFromRequest(r), chi.URLParam(r, "executionId"))
	if err != nil {
		utils.HandleError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, execution)
}
