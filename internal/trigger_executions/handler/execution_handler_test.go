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
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/wso2/commerce-trigger-service/internal/system/constants"
	"github.com/wso2/commerce-trigger-service/internal/system/log"
	"github.com/wso2/commerce-trigger-service/internal/system/utils"
	"github.com/wso2/commerce-trigger-service/internal/trigger_executions/model"
	"github.com/wso2/commerce-trigger-service/internal/trigger_executions/service"
	"github.com/wso2/commerce-trigger-service/internal/trigger_executions/store"
)

type MockRetrier struct {
	mock.Mock
}

func (m *MockRetrier) Retry(ctx context.Context, ownerId, executionId string) (*model.TriggerExecution, error) {
	args := m.Called(ctx, ownerId, executionId)
	execution, _ := args.Get(0).(*model.TriggerExecution)
	return execution, args.Error(1)
}

func TestMain(m *testing.M) {
	_ = log.Init("ERROR")
	os.Exit(m.Run())
}

func setup(t *testing.T, retrier Retrier) (http.Handler, *service.ExecutionTracker) {
	t.Helper()
	tracker := service.GetExecutionTracker(store.NewMemoryExecutionStore(), nil)
	h := NewExecutionHandler(tracker, retrier, "https://shop.example.com/")

	router := chi.NewRouter()
	router.Get("/track/click/{executionId}", h.TrackClick)
	router.Post("/track/conversion/{executionId}", h.TrackConversion)
	router.Route("/t/{ownerId}/api/v1", func(r chi.Router) {
		r.Use(utils.TenantContext)
		r.Get("/trigger-rules/{ruleId}/executions", h.GetRuleExecutions)
		r.Post("/trigger-executions/{executionId}/retry", h.RetryExecution)
	})
	return router, tracker
}

func sentExecution(t *testing.T, tracker *service.ExecutionTracker, id string) {
	t.Helper()
	created, err := tracker.RecordDispatch(context.Background(), &model.TriggerExecution{
		ExecutionId: id,
		OwnerId:     "shop-1",
		TriggerId:   "rule-1",
		CustomerKey: "cust-1",
		EventId:     "evt-1",
		ActionType:  constants.ActionSendEmail,
	}, 0)
	require.NoError(t, err)
	require.True(t, created)
	require.NoError(t, tracker.MarkSent(context.Background(), id, nil))
}

func TestTrackClick_RedirectsAndRecordsFirstClick(t *testing.T) {

	router, tracker := setup(t, new(MockRetrier))
	sentExecution(t, tracker, "tx_click")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		"/track/click/tx_click?redirect=https%3A%2F%2Fshop.example.com%2Fcart", nil))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://shop.example.com/cart", rec.Header().Get("Location"))

	first, err := tracker.Get(context.Background(), "tx_click")
	require.NoError(t, err)
	require.NotNil(t, first.ClickedAt)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/track/click/tx_click", nil))
	assert.Equal(t, http.StatusFound, rec.Code)

	second, err := tracker.Get(context.Background(), "tx_click")
	require.NoError(t, err)
	assert.Equal(t, first.ClickedAt, second.ClickedAt)
	assert.Equal(t, constants.ExecutionClicked, second.Status)
}

func TestTrackClick_RejectsForeignRedirectSchemes(t *testing.T) {

	router, _ := setup(t, new(MockRetrier))
	for _, redirect := range []string{"javascript:alert(1)", "/relative/path", "//evil.example.com"} {
		req := httptest.NewRequest(http.MethodGet, "/track/click/tx_unknown", nil)
		q := req.URL.Query()
		q.Set("redirect", redirect)
		req.URL.RawQuery = q.Encode()

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "https://shop.example.com/", rec.Header().Get("Location"), redirect)
	}
}

func TestTrackConversion(t *testing.T) {

	router, tracker := setup(t, new(MockRetrier))
	sentExecution(t, tracker, "tx_conv")

	post := func(id, body string) int {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/track/conversion/"+id, strings.NewReader(body)))
		return rec.Code
	}

	assert.Equal(t, http.StatusBadRequest, post("tx_conv", `{"value": 10}`))
	assert.Equal(t, http.StatusNoContent, post("tx_conv", `{"order_id":"o-1","value":42.5}`))
	assert.Equal(t, http.StatusNoContent, post("tx_conv", `{"order_id":"o-2","value":99}`))
	assert.Equal(t, http.StatusNotFound, post("tx_missing", `{"order_id":"o-1","value":1}`))

	execution, err := tracker.Get(context.Background(), "tx_conv")
	require.NoError(t, err)
	assert.Equal(t, constants.ExecutionConverted, execution.Status)
	assert.Equal(t, "o-1", execution.ConversionOrderId)
	assert.Equal(t, 42.5, *execution.ConversionValue)
}

func TestGetRuleExecutionsAndRetry(t *testing.T) {

	retrier := new(MockRetrier)
	router, tracker := setup(t, retrier)
	sentExecution(t, tracker, "tx_list")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/t/shop-1/api/v1/trigger-rules/rule-1/executions", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var executions []model.TriggerExecution
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &executions))
	require.Len(t, executions, 1)
	assert.Equal(t, "tx_list", executions[0].ExecutionId)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/t/shop-1/api/v1/trigger-rules/rule-1/executions?limit=0", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	retrier.On("Retry", mock.Anything, "shop-1", "tx_list").
		Return(&model.TriggerExecution{ExecutionId: "tx_list", Status: constants.ExecutionSent}, nil).Once()
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/t/shop-1/api/v1/trigger-executions/tx_list/retry", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	retrier.AssertExpectations(t)
}
