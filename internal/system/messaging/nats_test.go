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

package messaging

import (
	"context"
	"os"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/wso2/commerce-trigger-service/internal/behavior_events/model"
	"github.com/wso2/commerce-trigger-service/internal/system/log"
	execModel "github.com/wso2/commerce-trigger-service/internal/trigger_executions/model"
)

type MockIngester struct{ mock.Mock }

func (m *MockIngester) Ingest(_ context.Context, ownerId string, request model.BehaviorEventRequest) (string, error) {
	args := m.Called(ownerId, request)
	return args.String(0), args.Error(1)
}

func TestMain(m *testing.M) {
	_ = log.Init("ERROR")
	os.Exit(m.Run())
}

func TestOwnerFromSubject(t *testing.T) {

	assert.Equal(t, "shop-1", ownerFromSubject("commerce.behavior.>", "commerce.behavior.shop-1.cart_add"))
	assert.Equal(t, "shop-1", ownerFromSubject("commerce.behavior.*", "commerce.behavior.shop-1"))
	assert.Equal(t, "", ownerFromSubject("commerce.behavior.>", "commerce.behavior"))
	assert.Equal(t, "", ownerFromSubject("commerce.behavior.>", "other.subject.shop-1"))
}

func TestHandleMessage(t *testing.T) {

	ingester := new(MockIngester)
	ingester.On("Ingest", "shop-1", mock.MatchedBy(func(r model.BehaviorEventRequest) bool {
		return r.EventType == "cart_add" && r.CustomerKey == "cust-1"
	})).Return("evt-1", nil).Once()
	ingester.On("Ingest", "shop-9", mock.Anything).Return("evt-2", nil).Once()

	subscriber := NewEventSubscriber(nil, "commerce.behavior.>", ingester)
	subscriber.HandleMessage(context.Background(), &nats.Msg{
		Subject: "commerce.behavior.shop-1.cart_add",
		Data:    []byte(`{"customer_key":"cust-1","event_type":"cart_add","payload":{"value":12}}`),
	})
	subscriber.HandleMessage(context.Background(), &nats.Msg{
		Subject: "commerce.behavior.shop-1.page_visit",
		Data:    []byte(`{"owner_id":"shop-9","event_type":"page_visit"}`),
	})
	subscriber.HandleMessage(context.Background(), &nats.Msg{
		Subject: "commerce.behavior.shop-1.cart_add",
		Data:    []byte(`not json`),
	})
	ingester.AssertExpectations(t)
}

func TestLifecycleSubject(t *testing.T) {

	publisher := NewLifecyclePublisher(nil, "triggers.execution.")
	assert.Equal(t, "triggers.execution.clicked",
		publisher.Subject(execModel.LifecycleEvent{Status: "clicked"}))
}
