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
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wso2/commerce-trigger-service/internal/behavior_events/model"
	"github.com/wso2/commerce-trigger-service/internal/behavior_events/service"
	"github.com/wso2/commerce-trigger-service/internal/behavior_events/store"
	"github.com/wso2/commerce-trigger-service/internal/system/utils"
)

type queueFunc func(model.BehaviorEvent) error

func (f queueFunc) Enqueue(event model.BehaviorEvent) error { return f(event) }

func newRouter(queued *[]model.BehaviorEvent) http.Handler {
	svc := service.GetBehaviorEventService(store.NewMemoryEventStore(), queueFunc(func(e model.BehaviorEvent) error {
		*queued = append(*queued, e)
		return nil
	}))
	h := NewBehaviorEventHandler(svc)
	router := chi.NewRouter()
	router.Route("/t/{ownerId}/api/v1/events", func(r chi.Router) {
		r.Use(utils.TenantContext)
		r.Post("/", h.AddEvent)
		r.Get("/{eventId}", h.GetEvent)
	})
	return router
}

func TestAddEventThenGet(t *testing.T) {

	var queued []model.BehaviorEvent
	router := newRouter(&queued)

	body := `{"customer_key":"cust-1","event_type":"cart_add","payload":{"value":120}}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/t/shop-1/api/v1/events/", strings.NewReader(body)))
	require.Equal(t, http.StatusAccepted, rec.Code)

	var response model.IngestResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	require.Len(t, queued, 1)
	assert.Equal(t, queued[0].EventId, response.EventId)
	assert.Equal(t, "shop-1", queued[0].OwnerId)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/t/shop-1/api/v1/events/"+response.EventId, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"event_type":"cart_add"`)
}

func TestAddEvent_RejectsBadInput(t *testing.T) {

	var queued []model.BehaviorEvent
	router := newRouter(&queued)

	for _, body := range []string{``, `{"event_type":"cart_add","unknown":1}`, `{"event_type":"teleport"}`} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/t/shop-1/api/v1/events/", strings.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
	assert.Empty(t, queued)
}
