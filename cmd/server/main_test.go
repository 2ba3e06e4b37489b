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

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_RegistersSubcommands(t *testing.T) {

	root := newRootCommand()
	for _, name := range []string{"serve", "migrate", "sweep", "retry"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}
	assert.NotNil(t, root.PersistentFlags().Lookup("home"))
}

func TestRetryCommand_RequiresExecutionId(t *testing.T) {

	root := newRootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"retry", "--owner", "shop-1"})
	assert.Error(t, root.Execute())
}

func TestResolveHome(t *testing.T) {

	triggerHome = "/opt/trigger"
	t.Cleanup(func() { triggerHome = "" })
	home, err := resolveHome()
	require.NoError(t, err)
	assert.Equal(t, "/opt/trigger", home)

	triggerHome = ""
	wd, _ := os.Getwd()
	home, err = resolveHome()
	require.NoError(t, err)
	assert.Equal(t, wd, home)
}

func TestMigrateCommand_MissingConfig(t *testing.T) {

	root := newRootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"migrate", "--home", filepath.Join(t.TempDir(), "missing")})
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load deployment config")
}
