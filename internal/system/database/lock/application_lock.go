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

package lock

import (
	"context"
	"database/sql"
	"fmt"
	"hash/fnv"

	"github.com/wso2/commerce-trigger-service/internal/system/errors"
	"github.com/wso2/commerce-trigger-service/internal/system/log"
)

// PostgresLock hands out PostgreSQL advisory locks keyed by arbitrary strings.
type PostgresLock struct {
	db *sql.DB
}

func NewPostgresLock(db *sql.DB) *PostgresLock {
	return &PostgresLock{db: db}
}

// GenerateLockKey hashes a string key into the bigint space advisory locks use.
func GenerateLockKey(key string) int64 {

	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	return int64(h.Sum64())
}

// CooldownKey is the lock key serializing executions of one trigger for one customer.
func CooldownKey(triggerId, customerKey string) string {

	return "cooldown:" + triggerId + "|" + customerKey
}

// AcquireXact takes a transaction scoped advisory lock. It blocks until the lock
// is granted and is released when tx commits or rolls back.
func AcquireXact(ctx context.Context, tx *sql.Tx, key string) error {

	lockID := GenerateLockKey(key)
	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", lockID); err != nil {
		errorMsg := fmt.Sprintf("Failed to acquire transaction advisory lock for key: %s", key)
		log.GetLogger().Debug(errorMsg, log.Error(err))
		return errors.NewServerError(errors.ErrorMessage{
			Code:        errors.LOCK_ACQUIRE.Code,
			Message:     errors.LOCK_ACQUIRE.Message,
			Description: errorMsg,
		}, err)
	}
	return nil
}

// TryAcquire attempts a session level advisory lock without waiting. When the lock
// is granted the returned release function must be called to give it back.
func (l *PostgresLock) TryAcquire(ctx context.Context, key string) (func(), bool, error) {

	logger := log.GetLogger()
	lockID := GenerateLockKey(key)

	// Session locks belong to a connection, so pin one for the lock's lifetime.
	conn, err := l.db.Conn(ctx)
	if err != nil {
		errorMsg := "Failed to obtain a connection for advisory lock acquiring."
		logger.Debug(errorMsg, log.Error(err))
		return nil, false, errors.NewServerError(errors.ErrorMessage{
			Code:        errors.DB_CLIENT_INIT.Code,
			Message:     errors.DB_CLIENT_INIT.Message,
			Description: errorMsg,
		}, err)
	}

	var acquired bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", lockID).Scan(&acquired); err != nil {
		_ = conn.Close()
		errorMsg := fmt.Sprintf("Failed to execute pg_try_advisory_lock for key: %s", key)
		logger.Debug(errorMsg, log.Error(err))
		return nil, false, errors.NewServerError(errors.ErrorMessage{
			Code:        errors.LOCK_ACQUIRE.Code,
			Message:     errors.LOCK_ACQUIRE.Message,
			Description: errorMsg,
		}, err)
	}
	if !acquired {
		_ = conn.Close()
		return nil, false, nil
	}

	release := func() {
		if _, err := conn.ExecContext(context.Background(), "SELECT pg_advisory_unlock($1)", lockID); err != nil {
			logger.Warn("pg_advisory_unlock failed", log.String("key", key), log.Error(err))
		}
		_ = conn.Close()
	}
	return release, true, nil
}
