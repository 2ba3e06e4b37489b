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
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateLockKey_IsStable(t *testing.T) {

	a := GenerateLockKey(CooldownKey("rule-1", "cust-1"))
	b := GenerateLockKey(CooldownKey("rule-1", "cust-1"))
	c := GenerateLockKey(CooldownKey("rule-1", "cust-2"))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestTryAcquire_NotGranted(t *testing.T) {

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT pg_try_advisory_lock").
		WithArgs(GenerateLockKey("sweep")).
		WillReturnRows(sqlmock.NewRows([]string{"pg_try_advisory_lock"}).AddRow(false))

	release, acquired, err := NewPostgresLock(db).TryAcquire(context.Background(), "sweep")
	require.NoError(t, err)
	assert.False(t, acquired)
	assert.Nil(t, release)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTryAcquire_GrantedAndReleased(t *testing.T) {

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	key := GenerateLockKey("sweep")
	mock.ExpectQuery("SELECT pg_try_advisory_lock").
		WithArgs(key).
		WillReturnRows(sqlmock.NewRows([]string{"pg_try_advisory_lock"}).AddRow(true))
	mock.ExpectExec("SELECT pg_advisory_unlock").
		WithArgs(key).
		WillReturnResult(sqlmock.NewResult(0, 1))

	release, acquired, err := NewPostgresLock(db).TryAcquire(context.Background(), "sweep")
	require.NoError(t, err)
	require.True(t, acquired)
	release()
	assert.NoError(t, mock.ExpectationsWereMet())
}
