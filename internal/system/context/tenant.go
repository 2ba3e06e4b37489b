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

package context

import (
	"context"

	"github.com/wso2/commerce-trigger-service/internal/system/constants"
)

// WithOwner adds the owning merchant id to the context.
func WithOwner(ctx context.Context, ownerId string) context.Context {
	return context.WithValue(ctx, constants.TenantContextKey, ownerId)
}

// GetOwner returns the owning merchant id carried by the context.
func GetOwner(ctx context.Context) string {
	if ownerId, ok := ctx.Value(constants.TenantContextKey).(string); ok {
		return ownerId
	}
	return ""
}

// WithClaims stores validated token claims on the context.
func WithClaims(ctx context.Context, claims map[string]interface{}) context.Context {
	return context.WithValue(ctx, constants.ClaimsContextKey, claims)
}

// GetClaims returns the token claims carried by the context, if any.
func GetClaims(ctx context.Context) map[string]interface{} {
	if claims, ok := ctx.Value(constants.ClaimsContextKey).(map[string]interface{}); ok {
		return claims
	}
	return nil
}
