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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

// resolvingEngine is a fakeEngine that also answers ConnectionResolver.
type resolvingEngine struct {
	fakeEngine
}

func (e *resolvingEngine) DB(string) *bun.DB    { return nil }
func (e *resolvingEngine) Prefix(string) string { return "" }

func TestCapsuleBootsManager(t *testing.T) {
	ctx := context.Background()
	c := NewCapsule()
	c.SetManagerOptions(testManagerOptions())
	defer c.Clear()

	require.NoError(t, c.AddConnection(sqliteDescriptor(t, "capsule.db")))
	assert.False(t, c.Booted())

	resolver, err := c.Resolver(ctx)
	require.NoError(t, err)
	assert.True(t, c.Booted())
	require.NotNil(t, resolver.DB(DefaultConnectionName))

	m, ok := c.Bootstrap().Engine().(*Manager)
	require.True(t, ok)
	assert.Same(t, m, GlobalManager())
}

func TestCapsuleClearResetsEverything(t *testing.T) {
	c := NewCapsule()
	rec := &engineRecorder{}
	c.SetEngineFactory(rec.factory)

	require.NoError(t, c.AddConnection(ConnectionDescriptor{"driver": "sqlite", "database": "a.db"}))
	c.EnableEvents()
	require.NoError(t, c.EnsureStarted(context.Background()))

	c.Clear()
	assert.Empty(t, c.Connections())
	assert.False(t, c.Booted())
	assert.False(t, c.Bootstrap().EventsEnabled())
	assert.Equal(t, 1, rec.last().closed)
}

func TestCapsuleResolverNeedsResolvingEngine(t *testing.T) {
	c := NewCapsule()
	c.SetEngineFactory(func() Engine { return &fakeEngine{} })
	_, err := c.Resolver(context.Background())
	assert.ErrorContains(t, err, "does not expose connections")
}

func TestCapsuleResolverSurvivesClearDuringBoot(t *testing.T) {
	c := NewCapsule()
	require.NoError(t, c.AddConnection(ConnectionDescriptor{"driver": "sqlite", "database": "a.db"}))

	built := &resolvingEngine{}
	c.SetEngineFactory(func() Engine {
		c.Clear()
		return built
	})

	resolver, err := c.Resolver(context.Background())
	require.NoError(t, err)
	assert.Same(t, built, resolver)
	assert.True(t, c.Booted())
	assert.Empty(t, built.adds)
}

func TestCapsuleFactoryMayInspectCapsule(t *testing.T) {
	c := NewCapsule()
	require.NoError(t, c.AddConnection(ConnectionDescriptor{"driver": "sqlite", "database": "a.db"}))

	var queued int
	c.SetEngineFactory(func() Engine {
		queued = len(c.Connections())
		_ = c.Booted()
		c.SetManagerOptions(testManagerOptions())
		return &resolvingEngine{}
	})

	done := make(chan error, 1)
	go func() {
		_, err := c.Resolver(context.Background())
		done <- err
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Resolver blocked while the factory inspected the capsule")
	}
	assert.Equal(t, 1, queued)
	assert.True(t, c.Booted())
}

func TestCapsuleApply(t *testing.T) {
	c := NewCapsule()
	cfg := &Config{
		Events:   true,
		QueryLog: true,
		Pool:     PoolConfig{MaxOpenConns: 7},
		Connections: []ConnectionDescriptor{
			{"driver": "sqlite", "database": "a.db"},
			{"driver": "mysql", "database": "b"},
			{"driver": "sqlite", "database": "c.db"},
		},
	}

	err := c.Apply(cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "connection #1: host is missing from the database connection")
	assert.Len(t, c.Connections(), 1)
	assert.True(t, c.Bootstrap().EventsEnabled())

	c.mu.RLock()
	defer c.mu.RUnlock()
	assert.True(t, c.options.QueryLog)
	assert.Equal(t, 7, c.options.Pool.MaxOpenConns)
	assert.Equal(t, DefaultManagerOptions().Pool.MaxIdleConns, c.options.Pool.MaxIdleConns)

	assert.Error(t, c.Apply(nil))
}

func TestDefaultCapsuleIsShared(t *testing.T) {
	assert.Same(t, DefaultCapsule(), DefaultCapsule())
}
