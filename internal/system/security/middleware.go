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

package security

import (
	"net/http"
	"strings"

	"github.com/wso2/commerce-trigger-service/internal/system/authn"
	"github.com/wso2/commerce-trigger-service/internal/system/authz"
	systemContext "github.com/wso2/commerce-trigger-service/internal/system/context"
	"github.com/wso2/commerce-trigger-service/internal/system/errors"
	"github.com/wso2/commerce-trigger-service/internal/system/log"
	"github.com/wso2/commerce-trigger-service/internal/system/utils"
)

// AuthnAndAuthz performs authentication and authorization for the given HTTP request and operation.
func AuthnAndAuthz(r *http.Request, operation string) (map[string]interface{}, error) {

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
		return nil, errors.NewClientError(errors.ErrorMessage{
			Code:        errors.UN_AUTHORIZED.Code,
			Message:     errors.UN_AUTHORIZED.Message,
			Description: "Missing or invalid Authorization header",
		}, http.StatusUnauthorized)
	}

	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	ownerId := utils.ExtractOwnerIdFromRequest(r)

	claims, err := authn.ValidateAuthenticationAndReturnClaims(token, ownerId)
	if err != nil {
		log.GetLogger().Audit(log.AuditEvent{
			InitiatorID:   ownerId,
			InitiatorType: log.InitiatorTypeUser,
			TargetID:      r.URL.Path,
			ActionID:      log.ActionAuthenticationFailure,
			TraceID:       systemContext.GetTraceID(r.Context()),
		})
		return nil, err
	}

	scope, ok := claims["scope"].(string)
	if !ok || !authz.ValidatePermission(scope, operation) {
		return nil, errors.NewClientError(errors.ErrorMessage{
			Code:        errors.FORBIDDEN.Code,
			Message:     errors.FORBIDDEN.Message,
			Description: "Do not have permission to perform this operation",
		}, http.StatusForbidden)
	}
	return claims, nil
}

// Authorize guards a route with AuthnAndAuthz and exposes the token claims on the request context.
func Authorize(operation string) func(http.Handler) http.Handler {

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := AuthnAndAuthz(r, operation)
			if err != nil {
				utils.HandleError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(systemContext.WithClaims(r.Context(), claims)))
		})
	}
}
