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
	"encoding/json"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
	"github.com/wso2/commerce-trigger-service/internal/behavior_events/model"
	"github.com/wso2/commerce-trigger-service/internal/system/constants"
	systemContext "github.com/wso2/commerce-trigger-service/internal/system/context"
	customerrors "github.com/wso2/commerce-trigger-service/internal/system/errors"
	"github.com/wso2/commerce-trigger-service/internal/system/log"
	execModel "github.com/wso2/commerce-trigger-service/internal/trigger_executions/model"
)

// IngestQueueGroup spreads inbound events over every running instance.
const IngestQueueGroup = "commerce-trigger-service"

// Connect opens a NATS connection that keeps reconnecting when the server goes away.
func Connect(url string, opts ...nats.Option) (*nats.Conn, error) {

	defaults := []nats.Option{
		nats.Name(IngestQueueGroup),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.GetLogger().Warn("Disconnected from NATS", log.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.GetLogger().Info("Reconnected to NATS", log.String("url", nc.ConnectedUrl()))
		}),
	}
	nc, err := nats.Connect(url, append(defaults, opts...)...)
	if err != nil {
		return nil, errors.Wrapf(err, "connecting to NATS at %s", url)
	}
	return nc, nil
}

// LifecyclePublisher publishes execution status changes to <prefix>.<status>.
type LifecyclePublisher struct {
	conn   *nats.Conn
	prefix string
}

func NewLifecyclePublisher(conn *nats.Conn, subjectPrefix string) *LifecyclePublisher {
	return &LifecyclePublisher{conn: conn, prefix: strings.TrimSuffix(subjectPrefix, ".")}
}

// Subject returns the subject a lifecycle event is published on.
func (p *LifecyclePublisher) Subject(event execModel.LifecycleEvent) string {
	return p.prefix + "." + event.Status
}

func (p *LifecyclePublisher) Publish(_ context.Context, event execModel.LifecycleEvent) error {

	data, err := json.Marshal(event)
	if err != nil {
		return customerrors.NewServerError(customerrors.PUBLISH_LIFECYCLE, err)
	}
	if err := p.conn.Publish(p.Subject(event), data); err != nil {
		return customerrors.NewServerError(customerrors.PUBLISH_LIFECYCLE, err)
	}
	return nil
}

// Ingester accepts a behavior event for an owner.
type Ingester interface {
	Ingest(ctx context.Context, ownerId string, request model.BehaviorEventRequest) (string, error)
}

// EventSubscriber feeds behavior events published on NATS into ingestion.
// Subjects look like <base>.<ownerId>[.<anything>] so the owner can travel in the subject.
type EventSubscriber struct {
	conn     *nats.Conn
	subject  string
	ingester Ingester
}

func NewEventSubscriber(conn *nats.Conn, subject string, ingester Ingester) *EventSubscriber {
	return &EventSubscriber{conn: conn, subject: subject, ingester: ingester}
}

// Run subscribes and blocks until ctx is cancelled, then drains the subscription.
func (s *EventSubscriber) Run(ctx context.Context) error {

	sub, err := s.conn.QueueSubscribe(s.subject, IngestQueueGroup, func(msg *nats.Msg) {
		s.HandleMessage(ctx, msg)
	})
	if err != nil {
		return errors.Wrapf(err, "subscribing to %s", s.subject)
	}
	if err := s.conn.Flush(); err != nil {
		_ = sub.Unsubscribe()
		return errors.Wrap(err, "flushing subscription")
	}
	log.GetLogger().Info("Listening for behavior events", log.String("subject", s.subject))

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		log.GetLogger().Warn("Failed to drain behavior event subscription", log.Error(err))
	}
	return nil
}

// HandleMessage decodes one message and ingests it. Bad messages are logged and dropped.
func (s *EventSubscriber) HandleMessage(ctx context.Context, msg *nats.Msg) {

	ctx, traceID := systemContext.EnsureTraceID(systemContext.WithTraceID(ctx, msg.Header.Get(constants.TraceIDHeader)))
	logger := log.GetLogger().With(log.TraceID(traceID), log.String("subject", msg.Subject))

	var request model.BehaviorEventRequest
	if err := json.Unmarshal(msg.Data, &request); err != nil {
		logger.Warn("Dropping undecodable behavior event", log.Error(err))
		return
	}

	ownerId := request.OwnerId
	if ownerId == "" {
		ownerId = ownerFromSubject(s.subject, msg.Subject)
	}
	eventId, err := s.ingester.Ingest(ctx, ownerId, request)
	if err != nil {
		logger.Warn("Rejected behavior event from NATS", log.Error(err))
		return
	}
	logger.Debug("Behavior event ingested from NATS", log.String("eventId", eventId))
}

// ownerFromSubject returns the token that follows the fixed part of the subscription subject.
func ownerFromSubject(pattern, subject string) string {

	base := strings.TrimSuffix(strings.TrimSuffix(pattern, ">"), "*")
	base = strings.TrimSuffix(base, ".")
	rest := strings.TrimPrefix(subject, base+".")
	if rest == subject || rest == "" {
		return ""
	}
	owner, _, _ := strings.Cut(rest, ".")
	return owner
}
