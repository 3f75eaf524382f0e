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
	"fmt"
	"sync"
)

var (
	defaultCapsule     *Capsule
	defaultCapsuleOnce sync.Once
)

// Capsule owns one Registry and the Bootstrap built on it.
type Capsule struct {
	registry  *Registry
	bootstrap *Bootstrap

	mu      sync.RWMutex
	options ManagerOptions
	factory EngineFactory
}

// NewCapsule returns an empty capsule that boots a Manager with
// DefaultManagerOptions unless told otherwise.
func NewCapsule() *Capsule {
	c := &Capsule{
		registry: NewRegistry(),
		options:  DefaultManagerOptions(),
	}
	c.bootstrap = NewBootstrap(c.registry, c.newEngine)
	return c
}

// DefaultCapsule returns the process-wide capsule.
func DefaultCapsule() *Capsule {
	defaultCapsuleOnce.Do(func() {
		defaultCapsule = NewCapsule()
	})
	return defaultCapsule
}

func (c *Capsule) newEngine() Engine {
	c.mu.RLock()
	factory, options := c.factory, c.options
	c.mu.RUnlock()

	if factory != nil {
		return factory()
	}
	return NewManager(options)
}

// AddConnection validates descriptor and queues it for the next boot.
func (c *Capsule) AddConnection(descriptor ConnectionDescriptor) error {
	return c.registry.Add(descriptor)
}

// Connections returns a snapshot of the queued descriptors.
func (c *Capsule) Connections() []ConnectionDescriptor {
	return c.registry.All()
}

func (c *Capsule) EnableEvents()  { c.bootstrap.EnableEvents() }
func (c *Capsule) DisableEvents() { c.bootstrap.DisableEvents() }

// Events returns the dispatcher that receives model events once booted with
// events enabled.
func (c *Capsule) Events() *Dispatcher { return c.bootstrap.Events() }

func (c *Capsule) EnsureStarted(ctx context.Context) error {
	return c.bootstrap.EnsureStarted(ctx)
}

func (c *Capsule) Booted() bool { return c.bootstrap.Booted() }

// Resolver boots the capsule if needed and returns its engine as a
// ConnectionResolver.
func (c *Capsule) Resolver(ctx context.Context) (ConnectionResolver, error) {
	engine, err := c.bootstrap.ensureEngine(ctx)
	if err != nil {
		return nil, err
	}
	resolver, ok := engine.(ConnectionResolver)
	if !ok {
		return nil, fmt.Errorf("engine %T does not expose connections", engine)
	}
	return resolver, nil
}

// SetManagerOptions replaces the options of the Manager built at next boot.
func (c *Capsule) SetManagerOptions(options ManagerOptions) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.options = options
}

// SetEngineFactory overrides how the engine is built; nil restores the Manager.
// The factory runs outside the capsule's locks and may inspect or clear the
// capsule, but calling EnsureStarted or Resolver from it deadlocks.
func (c *Capsule) SetEngineFactory(factory EngineFactory) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.factory = factory
}

// Apply installs cfg: manager options, event flag, then every connection.
// The first invalid connection aborts; earlier ones stay queued.
func (c *Capsule) Apply(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("database configuration cannot be empty")
	}

	options := DefaultManagerOptions()
	options.Pool = options.Pool.merge(cfg.Pool)
	options.QueryLog = cfg.QueryLog
	options.AutoCreateTables = cfg.AutoCreateTables
	if cfg.SlowQueryTime > 0 {
		options.SlowQueryTime = cfg.SlowQueryTime
	}
	c.SetManagerOptions(options)

	if cfg.Events {
		c.EnableEvents()
	} else {
		c.DisableEvents()
	}

	for i, descriptor := range cfg.Connections {
		if err := c.AddConnection(descriptor); err != nil {
			return fmt.Errorf("connection #%d: %w", i, err)
		}
	}
	return nil
}

// Clear empties the registry and resets the bootstrap under one lock.
func (c *Capsule) Clear() {
	c.registry.mu.Lock()
	defer c.registry.mu.Unlock()
	c.registry.clearLocked()
	c.bootstrap.clearLocked()
}

func (c *Capsule) Registry() *Registry   { return c.registry }
func (c *Capsule) Bootstrap() *Bootstrap { return c.bootstrap }
