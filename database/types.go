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
	"context"
	"io"
	"os"
	"time"

	"github.com/tomoncle/folded/utils"
	"github.com/uptrace/bun"
)

// DefaultConnectionName is the name given to the first registered descriptor.
const DefaultConnectionName = "default"

// Engine is the ORM-side collaborator a Bootstrap configures. Manager is the
// bun implementation.
type Engine interface {
	// AddConnection registers descriptor under name. A later call with the
	// same name replaces the earlier connection.
	AddConnection(descriptor ConnectionDescriptor, name string) error
	SetEventDispatcher(dispatcher *Dispatcher)
	// SetAsGlobal makes the engine the process-wide active one.
	SetAsGlobal()
	BootModels(ctx context.Context) error
	Close() error
}

// ConnectionResolver is implemented by engines that expose opened connections.
type ConnectionResolver interface {
	DB(name string) *bun.DB
	Prefix(name string) string
}

// EngineFactory builds a fresh Engine for each boot.
type EngineFactory func() Engine

// HealthStatus holds the result of a health check against one connection.
type HealthStatus struct {
	Name          string        `json:"name"`
	Driver        Driver        `json:"driver"`
	Healthy       bool          `json:"healthy"`
	ResponseTime  time.Duration `json:"response_time"`
	ActiveConns   int           `json:"active_conns"`
	IdleConns     int           `json:"idle_conns"`
	MaxOpenConns  int           `json:"max_open_conns"`
	LastError     string        `json:"last_error,omitempty"`
	LastCheckTime time.Time     `json:"last_check_time"`
}

// DBStats mirrors database/sql stats for one connection.
type DBStats struct {
	MaxOpenConns      int           `json:"max_open_conns"`
	OpenConns         int           `json:"open_conns"`
	InUse             int           `json:"in_use"`
	Idle              int           `json:"idle"`
	WaitCount         int64         `json:"wait_count"`
	WaitDuration      time.Duration `json:"wait_duration"`
	MaxIdleClosed     int64         `json:"max_idle_closed"`
	MaxIdleTimeClosed int64         `json:"max_idle_time_closed"`
	MaxLifetimeClosed int64         `json:"max_lifetime_closed"`
}

// PoolConfig is forwarded to database/sql for every opened connection.
type PoolConfig struct {
	MaxIdleConns    int           `json:"max_idle_conns" yaml:"max_idle_conns"`
	MaxOpenConns    int           `json:"max_open_conns" yaml:"max_open_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time" yaml:"conn_max_idle_time"`
}

// merge copies the non-zero fields of o over p.
func (p PoolConfig) merge(o PoolConfig) PoolConfig {
	if o.MaxIdleConns > 0 {
		p.MaxIdleConns = o.MaxIdleConns
	}
	if o.MaxOpenConns > 0 {
		p.MaxOpenConns = o.MaxOpenConns
	}
	if o.ConnMaxLifetime > 0 {
		p.ConnMaxLifetime = o.ConnMaxLifetime
	}
	if o.ConnMaxIdleTime > 0 {
		p.ConnMaxIdleTime = o.ConnMaxIdleTime
	}
	return p
}

// ManagerOptions tunes how a Manager opens and instruments connections.
type ManagerOptions struct {
	Pool           PoolConfig
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	// QueryLog prints every query through QueryHook.
	QueryLog       bool
	QueryLogWriter io.Writer
	// SlowQueryTime logs queries slower than this as warnings; 0 disables.
	SlowQueryTime time.Duration
	// AutoCreateTables creates missing tables for registered models at boot.
	AutoCreateTables bool
	Models           ModelRegistry
	Logger           Logger
}

// DefaultManagerOptions returns options with sensible pool and timeout defaults.
func DefaultManagerOptions() ManagerOptions {
	return ManagerOptions{
		Pool: PoolConfig{
			MaxIdleConns:    10,
			MaxOpenConns:    100,
			ConnMaxLifetime: time.Hour,
			ConnMaxIdleTime: time.Minute * 30,
		},
		ConnectTimeout: time.Second * 10,
		ReadTimeout:    time.Second * 30,
		WriteTimeout:   time.Second * 30,
		QueryLog:       false,
		QueryLogWriter: os.Stderr,
		SlowQueryTime:  time.Second * 2,
	}
}

// overrideFromEnv applies DB_* environment variables on top of o.
func (o *ManagerOptions) overrideFromEnv() {
	o.Pool.MaxIdleConns = utils.EnvDefaultInt("DB_MAX_IDLE_CONNS", o.Pool.MaxIdleConns)
	o.Pool.MaxOpenConns = utils.EnvDefaultInt("DB_MAX_OPEN_CONNS", o.Pool.MaxOpenConns)
	o.Pool.ConnMaxLifetime = utils.EnvDefaultDuration("DB_CONN_MAX_LIFETIME", o.Pool.ConnMaxLifetime)
	o.Pool.ConnMaxIdleTime = utils.EnvDefaultDuration("DB_CONN_MAX_IDLE_TIME", o.Pool.ConnMaxIdleTime)
	o.ConnectTimeout = utils.EnvDefaultDuration("DB_CONNECT_TIMEOUT", o.ConnectTimeout)
	o.QueryLog = utils.EnvDefaultBool("DB_ENABLE_QUERY_LOG", o.QueryLog)
	o.SlowQueryTime = utils.EnvDefaultDuration("DB_SLOW_QUERY_TIME", o.SlowQueryTime)
	o.AutoCreateTables = utils.EnvDefaultBool("DB_AUTO_CREATE_TABLES", o.AutoCreateTables)
}

// Config is the file form of a capsule setup.
type Config struct {
	Connections      []ConnectionDescriptor `json:"connections" yaml:"connections"`
	Events           bool                   `json:"events" yaml:"events"`
	QueryLog         bool                   `json:"query_log" yaml:"query_log"`
	SlowQueryTime    time.Duration          `json:"slow_query_time" yaml:"slow_query_time"`
	AutoCreateTables bool                   `json:"auto_create_tables" yaml:"auto_create_tables"`
	Pool             PoolConfig             `json:"pool" yaml:"pool"`
}
