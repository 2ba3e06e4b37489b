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

package workers

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/pkg/errors"
	"github.com/wso2/commerce-trigger-service/internal/behavior_events/model"
	systemContext "github.com/wso2/commerce-trigger-service/internal/system/context"
	customerrors "github.com/wso2/commerce-trigger-service/internal/system/errors"
	"github.com/wso2/commerce-trigger-service/internal/system/log"
)

var (
	ErrQueueFull   = errors.New("trigger queue is full")
	ErrPoolStopped = errors.New("trigger worker pool is stopped")
)

// ProcessFunc evaluates one stored behavior event against the owner's trigger rules.
type ProcessFunc func(ctx context.Context, event *model.BehaviorEvent) error

// TriggerWorkerPool runs trigger evaluation off the ingestion path. Each event is
// handled by one worker, so a slow dispatch only occupies the worker it runs on.
type TriggerWorkerPool struct {
	queue   chan model.BehaviorEvent
	process ProcessFunc
	workers int

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
	start   sync.Once
}

func NewTriggerWorkerPool(workers, queueSize int, process ProcessFunc) *TriggerWorkerPool {

	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	return &TriggerWorkerPool{
		queue:   make(chan model.BehaviorEvent, queueSize),
		process: process,
		workers: workers,
	}
}

// Start launches the workers. Work started by them runs under ctx.
func (p *TriggerWorkerPool) Start(ctx context.Context) {

	p.start.Do(func() {
		for i := 0; i < p.workers; i++ {
			p.wg.Add(1)
			go p.run(ctx, i)
		}
		log.GetLogger().Info(fmt.Sprintf("Started %d trigger workers", p.workers))
	})
}

// Enqueue hands an event to the workers without blocking. A full queue rejects the
// event, which stays unprocessed in the event store until the sweep replays it.
func (p *TriggerWorkerPool) Enqueue(event model.BehaviorEvent) error {

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return customerrors.NewServerError(customerrors.ENQUEUE_EVENT, ErrPoolStopped)
	}

	select {
	case p.queue <- event:
		return nil
	default:
		log.GetLogger().Error(fmt.Sprintf("Trigger queue is full. Deferring event to the replay sweep: %s", event.EventId),
			log.String("ownerId", event.OwnerId))
		return customerrors.NewServerError(customerrors.ENQUEUE_EVENT, ErrQueueFull)
	}
}

// Stop refuses new events and waits until queued events are processed or ctx ends.
func (p *TriggerWorkerPool) Stop(ctx context.Context) error {

	p.mu.Lock()
	if !p.stopped {
		p.stopped = true
		close(p.queue)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "waiting for trigger workers")
	}
}

func (p *TriggerWorkerPool) run(ctx context.Context, worker int) {

	defer p.wg.Done()
	for event := range p.queue {
		p.handle(ctx, worker, event)
	}
}

func (p *TriggerWorkerPool) handle(ctx context.Context, worker int, event model.BehaviorEvent) {

	eventCtx := systemContext.WithOwner(systemContext.WithTraceID(ctx, systemContext.GenerateTraceID()), event.OwnerId)
	logger := log.GetLogger().With(log.TraceID(systemContext.GetTraceID(eventCtx)),
		log.String("eventId", event.EventId), log.Int("worker", worker))

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Trigger evaluation panicked", log.Any("panic", r), log.String("stack", string(debug.Stack())))
		}
	}()

	if err := p.process(eventCtx, &event); err != nil {
		logger.Error("Failed to evaluate triggers for event", log.Error(err))
	}
}
