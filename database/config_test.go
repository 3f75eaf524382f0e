/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadYAMLConfig(t *testing.T) {
	path := writeConfig(t, "database.yaml", `
events: true
query_log: true
slow_query_time: 500ms
auto_create_tables: true
pool:
  max_open_conns: 20
  conn_max_lifetime: 10m
connections:
  - driver: sqlite
    database: /tmp/app.db
  - driver: mysql
    database: app
    host: localhost
    username: root
    port: 3307
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.True(t, cfg.Events)
	assert.True(t, cfg.QueryLog)
	assert.True(t, cfg.AutoCreateTables)
	assert.Equal(t, 500*time.Millisecond, cfg.SlowQueryTime)
	assert.Equal(t, 20, cfg.Pool.MaxOpenConns)
	assert.Equal(t, 10*time.Minute, cfg.Pool.ConnMaxLifetime)
	require.Len(t, cfg.Connections, 2)
	assert.Equal(t, ConnectionDescriptor{"driver": "sqlite", "database": "/tmp/app.db"}, cfg.Connections[0])
	assert.Equal(t, 3307, cfg.Connections[1]["port"])
}

func TestLoadYAMLConfigKeepsNativeTypes(t *testing.T) {
	path := writeConfig(t, "bad.yml", `
connections:
  - driver: 42
    database: app
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Len(t, cfg.Connections, 1)

	err = Validate(cfg.Connections[0])
	assert.EqualError(t, err, "driver must be a string in the database connection")
}

func TestLoadHCLConfig(t *testing.T) {
	path := writeConfig(t, "database.hcl", `
events             = true
slow_query_time    = "1s"
auto_create_tables = false

pool {
  max_idle_conns     = 5
  conn_max_idle_time = "2m"
}

connection {
  driver   = "sqlite"
  database = "app.db"
}

connection {
  driver   = "pgsql"
  database = "app"
  host     = "localhost"
  username = "postgres"
  port     = 5433
  prefix   = "app_"
}
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.True(t, cfg.Events)
	assert.False(t, cfg.QueryLog)
	assert.Equal(t, time.Second, cfg.SlowQueryTime)
	assert.Equal(t, 5, cfg.Pool.MaxIdleConns)
	assert.Equal(t, 2*time.Minute, cfg.Pool.ConnMaxIdleTime)
	require.Len(t, cfg.Connections, 2)
	assert.Equal(t, ConnectionDescriptor{"driver": "sqlite", "database": "app.db"}, cfg.Connections[0])
	assert.Equal(t, 5433, cfg.Connections[1]["port"])
	assert.Equal(t, "app_", cfg.Connections[1]["prefix"])
	for _, c := range cfg.Connections {
		assert.NoError(t, Validate(c))
	}
}

func TestLoadHCLConfigKeepsNativeTypes(t *testing.T) {
	path := writeConfig(t, "bad.hcl", `
connection {
  driver   = 42
  database = "app"
}

connection {
  driver   = "mysql"
  database = "app"
  host     = "h"
  username = "u"
  password = 1.5
}

connection {
  driver   = "mysql"
  database = "app"
  host     = "h"
  username = ["u"]
}
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Len(t, cfg.Connections, 3)

	assert.Equal(t, 42, cfg.Connections[0]["driver"])
	assert.EqualError(t, Validate(cfg.Connections[0]), "driver must be a string in the database connection")
	assert.Equal(t, 1.5, cfg.Connections[1]["password"])
	assert.EqualError(t, Validate(cfg.Connections[1]), "password must be a string in the database connection")
	assert.EqualError(t, Validate(cfg.Connections[2]), "username must be a string in the database connection")
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadConfig(writeConfig(t, "database.toml", "x = 1"))
	assert.ErrorContains(t, err, "unsupported config file extension")

	_, err = LoadConfig(writeConfig(t, "broken.hcl", "connection {"))
	assert.ErrorContains(t, err, "failed to parse HCL file")

	_, err = LoadConfig(writeConfig(t, "duration.hcl", `slow_query_time = "soon"`))
	assert.ErrorContains(t, err, "invalid slow_query_time")

	_, err = LoadConfig(writeConfig(t, "broken.yaml", "connections: ["))
	assert.ErrorContains(t, err, "failed to parse YAML config")
}
