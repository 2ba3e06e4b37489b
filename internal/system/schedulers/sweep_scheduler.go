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

package schedulers

import (
	"context"
	"fmt"
	"time"

	systemContext "github.com/wso2/commerce-trigger-service/internal/system/context"
	"github.com/wso2/commerce-trigger-service/internal/system/log"
	engine "github.com/wso2/commerce-trigger-service/internal/trigger_engine/service"
)

// replayBatchSize bounds how many unprocessed events one sweep evaluates.
const replayBatchSize = 500

// SweepLockKey names the advisory lock that keeps one sweep running across instances.
const SweepLockKey = "trigger-elapsed-sweep"

// Locker grants a lock without waiting for it.
type Locker interface {
	TryAcquire(ctx context.Context, key string) (release func(), acquired bool, err error)
}

// Sweeper fires deferred conditions whose reference events have come due and
// evaluates stored events that were never handed to a worker.
type Sweeper interface {
	SweepDeferred(ctx context.Context, window time.Duration) (*engine.SweepResult, error)
	ReplayUnprocessed(ctx context.Context, receivedBefore time.Time, limit int) (int, error)
}

// StalePendingFailer fails executions whose dispatch never completed.
type StalePendingFailer interface {
	FailStalePending(ctx context.Context, olderThan time.Duration) (int64, error)
}

// SweepScheduler periodically runs the deferred condition sweep.
type SweepScheduler struct {
	sweeper     Sweeper
	executions  StalePendingFailer
	locker      Locker
	interval    time.Duration
	window      time.Duration
	staleAfter  time.Duration
	replayAfter time.Duration
	now         func() time.Time
}

// NewSweepScheduler creates a scheduler. A nil locker runs every sweep locally.
// The window must cover the interval so no reference event falls between sweeps.
func NewSweepScheduler(sweeper Sweeper, executions StalePendingFailer, locker Locker,
	interval, window, staleAfter time.Duration) *SweepScheduler {

	if window < interval {
		window = interval
	}
	return &SweepScheduler{
		sweeper:    sweeper,
		executions: executions,
		locker:     locker,
		interval:   interval,
		window:     window,
		staleAfter: staleAfter,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithReplay makes every sweep evaluate events left unprocessed for longer than
// after. Zero or a negative value disables the replay.
func (s *SweepScheduler) WithReplay(after time.Duration) *SweepScheduler {
	s.replayAfter = after
	return s
}

// WithClock replaces the scheduler's time source.
func (s *SweepScheduler) WithClock(now func() time.Time) *SweepScheduler {
	s.now = now
	return s
}

// Start runs a sweep at startup and then on every tick until ctx is cancelled.
func (s *SweepScheduler) Start(ctx context.Context) error {

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	log.GetLogger().Info(fmt.Sprintf("Elapsed-time sweep scheduled every %s", s.interval))
	s.runLogged(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.runLogged(ctx)
		}
	}
}

func (s *SweepScheduler) runLogged(ctx context.Context) {
	if _, err := s.RunOnce(ctx); err != nil {
		log.GetLogger().Error("Elapsed-time sweep failed", log.Error(err))
	}
}

// RunOnce performs a single sweep. It returns a nil result when another instance holds the sweep lock.
func (s *SweepScheduler) RunOnce(ctx context.Context) (*engine.SweepResult, error) {

	ctx, traceID := systemContext.EnsureTraceID(ctx)
	logger := log.GetLogger().With(log.TraceID(traceID))

	if s.locker != nil {
		release, acquired, err := s.locker.TryAcquire(ctx, SweepLockKey)
		if err != nil {
			return nil, err
		}
		if !acquired {
			logger.Debug("Elapsed-time sweep is running on another instance")
			return nil, nil
		}
		defer release()
	}

	if s.staleAfter > 0 {
		if _, err := s.executions.FailStalePending(ctx, s.staleAfter); err != nil {
			logger.Error("Failed to close stale pending executions", log.Error(err))
		}
	}

	result, err := s.sweeper.SweepDeferred(ctx, s.window)
	if err != nil {
		return nil, err
	}
	if s.replayAfter > 0 {
		replayed, err := s.sweeper.ReplayUnprocessed(ctx, s.now().Add(-s.replayAfter), replayBatchSize)
		if err != nil {
			logger.Error("Failed to replay unprocessed events", log.Error(err))
		}
		result.Replayed = replayed
	}
	if result.Fired > 0 || result.Replayed > 0 {
		logger.Audit(log.AuditEvent{
			InitiatorID:   SweepLockKey,
			InitiatorType: log.InitiatorTypeSystem,
			ActionID:      log.ActionElapsedSweep,
			TraceID:       traceID,
			Data:          result,
		})
	}
	logger.Debug("Elapsed-time sweep finished", log.Int("rules", result.Rules),
		log.Int("references", result.References), log.Int("fired", result.Fired), log.Int("replayed", result.Replayed))
	return result, nil
}
