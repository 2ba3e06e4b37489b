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

	"github.com/go-chi/chi/v5"
	"github.com/wso2/commerce-trigger-service/internal/system/errors"
	"github.com/wso2/commerce-trigger-service/internal/system/utils"
	"github.com/wso2/commerce-trigger-service/internal/trigger_rules/model"
	"github.com/wso2/commerce-trigger-service/internal/trigger_rules/service"
)

type TriggerRuleHandler struct {
	service service.TriggerRuleServiceInterface
}

func NewTriggerRuleHandler(ruleService service.TriggerRuleServiceInterface) *TriggerRuleHandler {
	return &TriggerRuleHandler{service: ruleService}
}

// AddTriggerRule handles POST /trigger-rules
func (h *TriggerRuleHandler) AddTriggerRule(w http.ResponseWriter, r *http.Request) {

	request, ok := decodeRule(w, r)
	if !ok {
		return
	}
	rule, err := h.service.AddTriggerRule(r.Context(), utils.ExtractOwnerIdFromRequest(r), request)
	if err != nil {
		utils.HandleError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, rule)
}

// GetTriggerRules handles GET /trigger-rules
func (h *TriggerRuleHandler) GetTriggerRules(w http.ResponseWriter, r *http.Request) {

	rules, err := h.service.GetTriggerRules(r.Context(), utils.ExtractOwnerIdFromRequest(r))
	if err != nil {
		utils.HandleError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, rules)
}

// GetTriggerRule handles GET /trigger-rules/{ruleId}
func (h *TriggerRuleHandler) GetTriggerRule(w http.ResponseWriter, r *http.Request) {

	rule, err := h.service.GetTriggerRule(r.Context(), utils.ExtractOwnerIdFromRequest(r), chi.URLParam(r, "ruleId"))
	if err != nil {
		utils.HandleError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, rule)
}

// UpdateTriggerRule handles PUT /trigger-rules/{ruleId}
func (h *TriggerRuleHandler) UpdateTriggerRule(w http.ResponseWriter, r *http.Request) {

	request, ok := decodeRule(w, r)
	if !ok {
		return
	}
	rule, err := h.service.UpdateTriggerRule(r.Context(), utils.ExtractOwnerIdFromRequest(r),
		chi.URLParam(r, "ruleId"), request)
	if err != nil {
		utils.HandleError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, rule)
}

// DeleteTriggerRule handles DELETE /trigger-rules/{ruleId}
func (h *TriggerRuleHandler) DeleteTriggerRule(w http.ResponseWriter, r *http.Request) {

	err := h.service.DeleteTriggerRule(r.Context(), utils.ExtractOwnerIdFromRequest(r), chi.URLParam(r, "ruleId"))
	if err != nil {
		utils.HandleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeRule(w http.ResponseWriter, r *http.Request) (model.TriggerRuleRequest, bool) {

	var request model.TriggerRuleRequest
	if err := utils.DecodeJSON(r, &request); err != nil {
		utils.HandleError(w, r, utils.BadRequest(errors.INVALID_TRIGGER_RULE, utils.HandleDecodeError(err, "trigger rule")))
		return request, false
	}
	return request, true
}
