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

package authn

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/wso2/commerce-trigger-service/internal/system/config"
	errors2 "github.com/wso2/commerce-trigger-service/internal/system/errors"
	"github.com/wso2/commerce-trigger-service/internal/system/log"
)

// OwnerClaim names the claim carrying the merchant a token was issued for.
const OwnerClaim = "owner_id"

// ValidateAuthenticationAndReturnClaims verifies an HS256 bearer token issued for
// the given owner and returns its claims.
func ValidateAuthenticationAndReturnClaims(token, ownerId string) (map[string]interface{}, error) {

	logger := log.GetLogger()
	if strings.Count(token, ".") != 2 {
		logger.Debug("Expecting a JWT token but received an opaque token.")
		return nil, unauthorizedError()
	}

	authConfig := config.GetRuntime().Config.Auth
	if authConfig.JWTSecret == "" {
		logger.Warn("No JWT secret configured. Rejecting bearer token.")
		return nil, unauthorizedError()
	}

	claims, err := ParseJWTClaims(token, []byte(authConfig.JWTSecret), authConfig.Audience)
	if err != nil {
		return nil, unauthorizedError()
	}
	if !validateOwner(ownerId, claims) {
		return nil, unauthorizedError()
	}
	return claims, nil
}

// ParseJWTClaims verifies the signature, expiry and audience of a token and returns its claims.
func ParseJWTClaims(tokenString string, secret []byte, audience string) (map[string]interface{}, error) {

	logger := log.GetLogger()
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		errMsg := "Error occurred when validating the JWT token."
		logger.Debug(errMsg, log.Error(err))
		return nil, errors2.NewServerError(errors2.ErrorMessage{
			Code:        errors2.PARSING_ERROR.Code,
			Message:     errors2.PARSING_ERROR.Message,
			Description: errMsg,
		}, err)
	}
	return claims, nil
}

// validateOwner ensures the token was issued for the merchant in the request path.
func validateOwner(ownerId string, claims map[string]interface{}) bool {

	ownerInClaim, ok := claims[OwnerClaim].(string)
	if !ok || ownerInClaim == "" {
		log.GetLogger().Debug("Token does not have an owner_id claim.")
		return false
	}
	if ownerInClaim != ownerId {
		log.GetLogger().Debug("Token owner_id claim does not match the requested owner.",
			log.String("ownerId", ownerId))
		return false
	}
	return true
}

func unauthorizedError() error {
	return errors2.NewClientError(errors2.ErrorMessage{
		Code:        errors2.UN_AUTHORIZED.Code,
		Message:     errors2.UN_AUTHORIZED.Message,
		Description: errors2.UN_AUTHORIZED.Description,
	}, http.StatusUnauthorized)
}
