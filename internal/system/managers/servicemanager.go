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

package managers

import (
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	analyticsHandler "github.com/wso2/commerce-trigger-service/internal/analytics/handler"
	eventHandler "github.com/wso2/commerce-trigger-service/internal/behavior_events/handler"
	healthHandler "github.com/wso2/commerce-trigger-service/internal/health_check/handler"
	"github.com/wso2/commerce-trigger-service/internal/system/constants"
	"github.com/wso2/commerce-trigger-service/internal/system/security"
	"github.com/wso2/commerce-trigger-service/internal/system/utils"
	execHandler "github.com/wso2/commerce-trigger-service/internal/trigger_executions/handler"
	ruleHandler "github.com/wso2/commerce-trigger-service/internal/trigger_rules/handler"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type ServiceManagerInterface interface {
	RegisterServices(apiBasePath string) error
}

type ServiceManager struct {
	router    chi.Router
	container *ServiceContainer
}

// NewServiceManager creates a new instance of ServiceManager.
func NewServiceManager(router chi.Router, container *ServiceContainer) ServiceManagerInterface {

	return &ServiceManager{
		router:    router,
		container: container,
	}
}

// RegisterServices mounts the public tracking routes and the owner scoped API.
func (sm *ServiceManager) RegisterServices(apiBasePath string) error {

	c := sm.container
	health := healthHandler.NewHealthHandler(c.Health)
	events := eventHandler.NewBehaviorEventHandler(c.EventService)
	rules := ruleHandler.NewTriggerRuleHandler(c.RuleService)
	executions := execHandler.NewExecutionHandler(c.Tracker, c.Dispatcher, c.Config.Tracking.DefaultRedirectURL)
	analytics := analyticsHandler.NewAnalyticsHandler(c.Aggregator)

	sm.router.Get("/health", health.HandleHealth)
	sm.router.Get("/ready", health.HandleReadiness)

	// Tracking links are followed from customer inboxes, so they carry no credentials.
	sm.router.Route(constants.TrackingBasePath, func(r chi.Router) {
		r.Use(utils.TenantContext)
		r.Get("/click/{executionId}", executions.TrackClick)
		r.Post("/conversion/{executionId}", executions.TrackConversion)
	})

	sm.router.Route("/t/{ownerId}"+apiBasePath, func(r chi.Router) {
		r.Use(utils.TenantContext)

		r.Route("/"+constants.EventsApiPath, func(r chi.Router) {
			r.With(security.Authorize(constants.OperationIngestEvents)).Post("/", events.AddEvent)
			r.With(security.Authorize(constants.OperationReadEvents)).Get("/{eventId}", events.GetEvent)
		})

		r.Route("/"+constants.TriggerRulesApiPath, func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(security.Authorize(constants.OperationReadRules))
				r.Get("/", rules.GetTriggerRules)
				r.Get("/{ruleId}", rules.GetTriggerRule)
			})
			r.Group(func(r chi.Router) {
				r.Use(security.Authorize(constants.OperationManageRules))
				r.Post("/", rules.AddTriggerRule)
				r.Put("/{ruleId}", rules.UpdateTriggerRule)
				r.Delete("/{ruleId}", rules.DeleteTriggerRule)
			})
			r.With(security.Authorize(constants.OperationReadExecutions)).
				Get("/{ruleId}/executions", executions.GetRuleExecutions)
		})

		r.With(security.Authorize(constants.OperationRetryExecutions)).
			Post("/"+constants.TriggerExecutionsApiPath+"/{executionId}/retry", executions.RetryExecution)

		r.With(security.Authorize(constants.OperationReadAnalytics)).
			Get("/"+constants.AnalyticsApiPath+"/summary", analytics.GetSummary)
	})
	return nil
}

// NewRouter builds the instrumented HTTP handler of the service.
func NewRouter(container *ServiceContainer) (http.Handler, error) {

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(enableCORS(container.Config.Auth.CORSAllowedOrigins))
	router.NotFound(http.NotFound)

	if err := NewServiceManager(router, container).RegisterServices(constants.ApiBasePath); err != nil {
		return nil, err
	}
	return otelhttp.NewHandler(router, container.Config.Telemetry.ServiceName,
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + routePattern(r)
		})), nil
}

func routePattern(r *http.Request) string {

	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

// enableCORS answers preflight requests and echoes allowed origins. An empty
// list or "*" allows every origin.
func enableCORS(allowedOrigins []string) func(http.Handler) http.Handler {

	allowAll := len(allowedOrigins) == 0 || slices.Contains(allowedOrigins, "*")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && (allowAll || slices.Contains(allowedOrigins, origin)) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers",
					strings.Join([]string{"Authorization", "Content-Type", constants.TraceIDHeader}, ", "))
				w.Header().Set("Access-Control-Expose-Headers", constants.TraceIDHeader)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Add("Vary", "Origin")
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
