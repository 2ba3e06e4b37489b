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

package utils

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/wso2/commerce-trigger-service/internal/system/constants"
	systemContext "github.com/wso2/commerce-trigger-service/internal/system/context"
	customerrors "github.com/wso2/commerce-trigger-service/internal/system/errors"
	"github.com/wso2/commerce-trigger-service/internal/system/log"
)

// HandleError sends an HTTP error response based on the provided error
func HandleError(w http.ResponseWriter, r *http.Request, err error) {

	traceID := systemContext.GetTraceID(r.Context())
	var clientError *customerrors.ClientError
	if ok := errors.As(err, &clientError); ok {
		status := clientError.StatusCode
		if status == 0 {
			status = http.StatusBadRequest
		}
		msg := clientError.ErrorMessage
		msg.TraceID = traceID
		WriteJSON(w, status, msg)
		return
	}

	logger := log.GetLogger()
	var serverError *customerrors.ServerError
	if ok := errors.As(err, &serverError); ok {
		logger.Error(serverError.Message, log.TraceID(traceID), log.Error(serverError.Err))
	} else {
		logger.Error("Unexpected error while serving request", log.TraceID(traceID), log.Error(err))
	}
	WriteJSON(w, http.StatusInternalServerError, customerrors.ErrorMessage{
		Code:        "TRG-15000",
		Message:     "Internal server error.",
		Description: "The server could not complete the request.",
		TraceID:     traceID,
	})
}

// WriteJSON writes body as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, body interface{}) {

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.GetLogger().Debug("Failed to encode response body", log.Error(err))
	}
}

// BadRequest builds a 400 client error from a catalogue entry and a description.
func BadRequest(msg customerrors.ErrorMessage, description string) *customerrors.ClientError {

	return customerrors.NewClientError(customerrors.ErrorMessage{
		Code:        msg.Code,
		Message:     msg.Message,
		Description: description,
	}, http.StatusBadRequest)
}

// ExtractOwnerIdFromRequest returns the merchant the request is scoped to.
func ExtractOwnerIdFromRequest(r *http.Request) string {

	if ownerId := systemContext.GetOwner(r.Context()); ownerId != "" {
		return ownerId
	}
	return chi.URLParam(r, "ownerId")
}

// TenantContext puts the {ownerId} path segment and a trace id on the request context.
func TenantContext(next http.Handler) http.Handler {

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if ownerId := chi.URLParam(r, "ownerId"); ownerId != "" {
			ctx = systemContext.WithOwner(ctx, ownerId)
		}
		traceID := r.Header.Get(constants.TraceIDHeader)
		if traceID == "" {
			traceID = systemContext.GenerateTraceID()
		}
		ctx = systemContext.WithTraceID(ctx, traceID)
		w.Header().Set(constants.TraceIDHeader, traceID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
