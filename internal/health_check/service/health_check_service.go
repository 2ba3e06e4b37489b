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
	"time"

	"github.com/wso2/commerce-trigger-service/internal/system/log"
)

const checkTimeout = 2 * time.Second

// ReadinessCheck probes one dependency the service cannot work without.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// HealthCheckServiceInterface defines the service interface.
type HealthCheckServiceInterface interface {
	CheckReadiness(ctx context.Context) error
}

// HealthCheckService runs the registered readiness checks in order.
type HealthCheckService struct {
	checks []ReadinessCheck
}

// GetHealthCheckService returns a new instance.
func GetHealthCheckService(checks ...ReadinessCheck) *HealthCheckService {
	return &HealthCheckService{checks: checks}
}

func (h *HealthCheckService) CheckReadiness(ctx context.Context) error {

	for _, c := range h.checks {
		checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
		err := c.Check(checkCtx)
		cancel()
		if err != nil {
			log.GetLogger().Warn("Readiness check failed", log.String("check", c.Name), log.Error(err))
			return fmt.Errorf("%s check failed: %w", c.Name, err)
		}
	}
	return nil
}
