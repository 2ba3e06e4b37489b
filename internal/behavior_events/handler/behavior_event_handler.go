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
	"github.com/wso2/commerce-trigger-service/internal/behavior_events/model"
	"github.com/wso2/commerce-trigger-service/internal/behavior_events/service"
	"github.com/wso2/commerce-trigger-service/internal/system/errors"
	"github.com/wso2/commerce-trigger-service/internal/system/utils"
)

type BehaviorEventHandler struct {
	service service.BehaviorEventServiceInterface
}

func NewBehaviorEventHandler(eventService service.BehaviorEventServiceInterface) *BehaviorEventHandler {
	return &BehaviorEventHandler{service: eventService}
}

// AddEvent handles POST /events
func (h *BehaviorEventHandler) AddEvent(w http.ResponseWriter, r *http.Request) {

	var request model.BehaviorEventRequest
	if err := utils.DecodeJSON(r, &request); err != nil {
		utils.HandleError(w, r, utils.BadRequest(errors.INVALID_EVENT, utils.HandleDecodeError(err, "behavior event")))
		return
	}

	eventId, err := h.service.Ingest(r.Context(), utils.ExtractOwnerIdFromRequest(r), request)
	if err != nil {
		utils.HandleError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusAccepted, model.IngestResponse{EventId: eventId})
}

// GetEvent handles GET /events/{eventId}
func (h *BehaviorEventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {

	event, err := h.service.GetEvent(r.Context(), utils.ExtractOwnerIdFromRequest(r), chi.URLParam(r, "eventId"))
	if err != nil {
		utils.HandleError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, event)
}
