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
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/microsoft/go-mssqldb"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mssqldialect"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"
	"github.com/uptrace/bun/schema"
)

const sqliteMemory = ":memory:"

var (
	globalManager   *Manager
	globalManagerMu sync.RWMutex
)

type connection struct {
	name   string
	driver Driver
	prefix string
	sqlDB  *sql.DB
	db     *bun.DB
}

// Manager is the bun-backed Engine: it owns one *bun.DB per connection name.
type Manager struct {
	options    ManagerOptions
	logger     Logger
	mu         sync.RWMutex
	conns      map[string]*connection
	names      []string
	dispatcher *Dispatcher
}

var (
	_ Engine             = (*Manager)(nil)
	_ ConnectionResolver = (*Manager)(nil)
)

// NewManager returns an empty Manager. DB_* environment variables override
// the given options.
func NewManager(options ManagerOptions) *Manager {
	options.overrideFromEnv()
	if options.Models == nil {
		options.Models = defaultRegistry
	}
	if options.Logger == nil {
		options.Logger = GetLogger()
	}
	if options.QueryLogWriter == nil {
		options.QueryLogWriter = os.Stderr
	}
	return &Manager{
		options: options,
		logger:  options.Logger,
		conns:   make(map[string]*connection),
	}
}

// GlobalManager returns the manager last marked with SetAsGlobal, or nil.
func GlobalManager() *Manager {
	globalManagerMu.RLock()
	defer globalManagerMu.RUnlock()
	return globalManager
}

// GetDB returns a connection of the global manager, "default" when no name
// is given. It returns nil before any manager went global.
func GetDB(name ...string) *bun.DB {
	m := GlobalManager()
	if m == nil {
		return nil
	}
	if len(name) > 0 {
		return m.DB(name[0])
	}
	return m.DB(DefaultConnectionName)
}

func (m *Manager) AddConnection(descriptor ConnectionDescriptor, name string) error {
	if name == "" {
		return fmt.Errorf("connection name cannot be empty")
	}
	if err := Validate(descriptor); err != nil {
		return err
	}
	c, err := m.createConnection(descriptor, name)
	if err != nil {
		return fmt.Errorf("failed to create database connection %q: %w", name, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if old, ok := m.conns[name]; ok {
		m.logger.Warn("Connection name already registered, replacing it",
			"name", name, "previous_driver", old.driver, "driver", c.driver)
		if err := old.db.Close(); err != nil {
			m.logger.Warn("Failed to close replaced connection", "name", name, "error", err)
		}
	} else {
		m.names = append(m.names, name)
	}
	if m.dispatcher != nil {
		c.db.AddQueryHook(m.dispatcher)
	}
	m.conns[name] = c

	m.logger.Info("Database connection registered", "name", name, "driver", c.driver)
	return nil
}

func (m *Manager) createConnection(descriptor ConnectionDescriptor, name string) (*connection, error) {
	driver := descriptor.Driver()

	var (
		sqlDB   *sql.DB
		dialect schema.Dialect
		err     error
	)
	switch driver {
	case DriverMySQL:
		sqlDB, err = m.open("mysql", m.mysqlDSN, descriptor)
		dialect = mysqldialect.New()
	case DriverPgSQL:
		sqlDB, err = m.open("postgres", m.postgresDSN, descriptor)
		dialect = pgdialect.New()
	case DriverMSSQL:
		sqlDB, err = m.open("sqlserver", m.sqlServerDSN, descriptor)
		dialect = mssqldialect.New()
	case DriverSQLite:
		sqlDB, err = m.open(sqliteshim.ShimName, sqliteDSN, descriptor)
		dialect = sqlitedialect.New()
	default:
		return nil, &ConfigError{Field: KeyDriver, Defect: DefectUnsupported, Value: string(driver)}
	}
	if err != nil {
		return nil, err
	}

	m.configureConnectionPool(sqlDB, descriptor)

	db := bun.NewDB(sqlDB, dialect)
	if m.options.QueryLog {
		db.AddQueryHook(NewQueryHook(name, m.options.QueryLogWriter, true))
	}
	if _, ok := os.LookupEnv("BUNDEBUG"); ok {
		db.AddQueryHook(bundebug.NewQueryHook(
			bundebug.WithVerbose(true),
			bundebug.FromEnv("BUNDEBUG"),
		))
	}
	if m.options.SlowQueryTime > 0 {
		db.AddQueryHook(&slowQueryHook{
			connection: name,
			slowTime:   m.options.SlowQueryTime,
			logger:     m.logger,
		})
	}

	return &connection{
		name:   name,
		driver: driver,
		prefix: descriptor.String(KeyPrefix),
		sqlDB:  sqlDB,
		db:     db,
	}, nil
}

func (m *Manager) open(driverName string, dsn func(ConnectionDescriptor) (string, error), descriptor ConnectionDescriptor) (*sql.DB, error) {
	s, err := dsn(descriptor)
	if err != nil {
		return nil, err
	}
	return sql.Open(driverName, s)
}

func (m *Manager) mysqlDSN(d ConnectionDescriptor) (string, error) {
	port, err := d.Port()
	if err != nil {
		return "", err
	}
	cfg := mysql.NewConfig()
	cfg.User = d.String(KeyUsername)
	cfg.Passwd = d.String(KeyPassword)
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(d.String(KeyHost), strconv.Itoa(port))
	cfg.DBName = d.String(KeyDatabase)
	cfg.ParseTime = true
	cfg.Loc = time.Local
	cfg.Timeout = m.options.ConnectTimeout
	cfg.ReadTimeout = m.options.ReadTimeout
	cfg.WriteTimeout = m.options.WriteTimeout
	if charset := d.String(KeyCharset); charset != "" {
		cfg.Params = map[string]string{"charset": charset}
	}
	if collation := d.String(KeyCollation); collation != "" {
		cfg.Collation = collation
	}
	return cfg.FormatDSN(), nil
}

func (m *Manager) postgresDSN(d ConnectionDescriptor) (string, error) {
	port, err := d.Port()
	if err != nil {
		return "", err
	}
	sslMode := d.String(KeySSLMode)
	if sslMode == "" {
		sslMode = "disable"
	}
	q := url.Values{}
	q.Set("sslmode", sslMode)
	if secs := int(m.options.ConnectTimeout.Seconds()); secs > 0 {
		q.Set("connect_timeout", strconv.Itoa(secs))
	}
	if charset := d.String(KeyCharset); charset != "" {
		q.Set("client_encoding", charset)
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.String(KeyUsername), d.String(KeyPassword)),
		Host:     net.JoinHostPort(d.String(KeyHost), strconv.Itoa(port)),
		Path:     "/" + d.String(KeyDatabase),
		RawQuery: q.Encode(),
	}
	return u.String(), nil
}

func (m *Manager) sqlServerDSN(d ConnectionDescriptor) (string, error) {
	port, err := d.Port()
	if err != nil {
		return "", err
	}
	q := url.Values{}
	q.Set("database", d.String(KeyDatabase))
	if secs := int(m.options.ConnectTimeout.Seconds()); secs > 0 {
		q.Set("connection timeout", strconv.Itoa(secs))
	}
	u := url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(d.String(KeyUsername), d.String(KeyPassword)),
		Host:     net.JoinHostPort(d.String(KeyHost), strconv.Itoa(port)),
		RawQuery: q.Encode(),
	}
	return u.String(), nil
}

// sqliteDSN uses the database value as the file path.
func sqliteDSN(d ConnectionDescriptor) (string, error) {
	return d.String(KeyDatabase), nil
}

func (m *Manager) configureConnectionPool(sqlDB *sql.DB, descriptor ConnectionDescriptor) {
	if descriptor.Driver() == DriverSQLite && descriptor.String(KeyDatabase) == sqliteMemory {
		// every new connection would see its own empty in-memory database
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
		sqlDB.SetConnMaxLifetime(0)
		sqlDB.SetConnMaxIdleTime(0)
		return
	}
	pool := m.options.Pool
	sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
	sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(pool.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(pool.ConnMaxIdleTime)
}

// SetEventDispatcher hooks d into every current and future connection.
func (m *Manager) SetEventDispatcher(d *Dispatcher) {
	if d == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dispatcher == d {
		return
	}
	m.dispatcher = d
	for _, name := range m.names {
		m.conns[name].db.AddQueryHook(d)
	}
}

func (m *Manager) EventDispatcher() *Dispatcher {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.dispatcher
}

func (m *Manager) SetAsGlobal() {
	globalManagerMu.Lock()
	defer globalManagerMu.Unlock()
	globalManager = m
}

// BootModels registers the registry's models on each connection they are
// scoped to and, with AutoCreateTables, creates their tables when missing.
func (m *Manager) BootModels(ctx context.Context) error {
	conns := m.connections()

	booted := 0
	for _, c := range conns {
		instances := modelsFor(m.options.Models, c.name)
		booted += len(instances)
		if len(instances) > 0 {
			c.db.RegisterModel(instances...)
		}
		if !m.options.AutoCreateTables {
			continue
		}
		for _, instance := range instances {
			q := c.db.NewCreateTable().Model(instance).IfNotExists()
			if c.prefix != "" {
				q = q.ModelTableExpr("?", bun.Ident(c.prefix+tableName(c.db, instance)))
			}
			if _, err := q.Exec(ctx); err != nil {
				return fmt.Errorf("failed to create table for %T on connection %q: %w", instance, c.name, err)
			}
		}
	}

	m.logger.Info("Models booted", "models", booted, "connections", len(conns))
	return nil
}

func tableName(db *bun.DB, model interface{}) string {
	return db.Table(modelType(model)).Name
}

// Close closes every connection and stops being the global manager.
func (m *Manager) Close() error {
	globalManagerMu.Lock()
	if globalManager == m {
		globalManager = nil
	}
	globalManagerMu.Unlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for _, name := range m.names {
		if err := m.conns[name].db.Close(); err != nil {
			m.logger.Error("Failed to close database connection", "name", name, "error", err)
			errs = append(errs, fmt.Errorf("close %q: %w", name, err))
		}
	}
	m.conns = make(map[string]*connection)
	m.names = nil
	return errors.Join(errs...)
}

// DB returns the named connection or nil.
func (m *Manager) DB(name string) *bun.DB {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c, ok := m.conns[name]; ok {
		return c.db
	}
	return nil
}

// Prefix returns the table prefix configured for the named connection.
func (m *Manager) Prefix(name string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c, ok := m.conns[name]; ok {
		return c.prefix
	}
	return ""
}

// Names lists connection names in registration order.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.names))
	copy(out, m.names)
	return out
}

func (m *Manager) connections() []*connection {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*connection, 0, len(m.names))
	for _, name := range m.names {
		out = append(out, m.conns[name])
	}
	return out
}

func (m *Manager) Ping(ctx context.Context, name string) error {
	db := m.DB(name)
	if db == nil {
		return fmt.Errorf("%w: %s", ErrConnectionNotFound, name)
	}
	return db.PingContext(ctx)
}

// HealthCheck pings every connection and reports one status per name.
func (m *Manager) HealthCheck(ctx context.Context) []*HealthStatus {
	conns := m.connections()
	statuses := make([]*HealthStatus, 0, len(conns))
	for _, c := range conns {
		start := time.Now()
		status := &HealthStatus{Name: c.name, Driver: c.driver, LastCheckTime: start}

		ctxTimeout, cancel := context.WithTimeout(ctx, time.Second*5)
		err := c.db.PingContext(ctxTimeout)
		cancel()
		status.ResponseTime = time.Since(start)
		if err != nil {
			status.LastError = err.Error()
		} else {
			status.Healthy = true
		}

		stats := c.sqlDB.Stats()
		status.ActiveConns = stats.InUse
		status.IdleConns = stats.Idle
		status.MaxOpenConns = stats.MaxOpenConnections
		statuses = append(statuses, status)
	}
	return statuses
}

// Stats returns pool statistics of the named connection.
func (m *Manager) Stats(name string) (*DBStats, error) {
	m.mu.RLock()
	c, ok := m.conns[name]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrConnectionNotFound, name)
	}
	stats := c.sqlDB.Stats()
	return &DBStats{
		MaxOpenConns:      stats.MaxOpenConnections,
		OpenConns:         stats.OpenConnections,
		InUse:             stats.InUse,
		Idle:              stats.Idle,
		WaitCount:         stats.WaitCount,
		WaitDuration:      stats.WaitDuration,
		MaxIdleClosed:     stats.MaxIdleClosed,
		MaxIdleTimeClosed: stats.MaxIdleTimeClosed,
		MaxLifetimeClosed: stats.MaxLifetimeClosed,
	}, nil
}
