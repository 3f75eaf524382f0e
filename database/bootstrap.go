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

// Bootstrap hands the descriptors of a Registry to an Engine exactly once.
// It shares the registry's mutex.
type Bootstrap struct {
	registry  *Registry
	newEngine EngineFactory
	logger    Logger

	// bootMu serializes boot attempts. The factory runs under it, never
	// under the registry lock.
	bootMu sync.Mutex

	booted        bool
	eventsEnabled bool
	engine        Engine
	events        *Dispatcher
}

// NewBootstrap returns a bootstrap over registry. A nil factory builds a
// Manager with DefaultManagerOptions.
//
// The factory may read the registry and the boot flags, and may even clear
// them, but it must not call EnsureStarted on the same bootstrap.
func NewBootstrap(registry *Registry, factory EngineFactory) *Bootstrap {
	if factory == nil {
		factory = func() Engine { return NewManager(DefaultManagerOptions()) }
	}
	return &Bootstrap{
		registry:  registry,
		newEngine: factory,
		logger:    GetLogger(),
		events:    NewDispatcher(),
	}
}

// EnsureStarted boots the engine on the first call; later calls return nil
// without touching it. A failed boot leaves the bootstrap unbooted.
func (b *Bootstrap) EnsureStarted(ctx context.Context) error {
	_, err := b.ensureEngine(ctx)
	return err
}

// ensureEngine is EnsureStarted returning the engine that was booted or
// found, read under the same lock that saw the booted flag.
func (b *Bootstrap) ensureEngine(ctx context.Context) (Engine, error) {
	if engine, ok := b.bootedEngine(); ok {
		return engine, nil
	}

	b.bootMu.Lock()
	defer b.bootMu.Unlock()

	if engine, ok := b.bootedEngine(); ok {
		return engine, nil
	}

	engine := b.newEngine()
	if engine == nil {
		return nil, fmt.Errorf("engine factory returned nil")
	}

	b.registry.mu.Lock()
	defer b.registry.mu.Unlock()

	descriptors := b.registry.snapshotLocked()
	if err := b.start(ctx, engine, descriptors); err != nil {
		if closeErr := engine.Close(); closeErr != nil {
			b.logger.Warn("Failed to close engine after boot error", "error", closeErr)
		}
		return nil, err
	}

	b.engine = engine
	b.booted = true
	b.logger.Info("Database engine booted",
		"connections", len(descriptors), "events", b.eventsEnabled)
	return engine, nil
}

func (b *Bootstrap) bootedEngine() (Engine, bool) {
	b.registry.mu.Lock()
	defer b.registry.mu.Unlock()
	return b.engine, b.booted
}

func (b *Bootstrap) start(ctx context.Context, engine Engine, descriptors []ConnectionDescriptor) error {
	for i, descriptor := range descriptors {
		name := connectionName(i, descriptor)
		if err := engine.AddConnection(descriptor, name); err != nil {
			return fmt.Errorf("failed to add connection %q: %w", name, err)
		}
	}

	if b.eventsEnabled {
		engine.SetEventDispatcher(b.events)
	}

	engine.SetAsGlobal()

	if err := engine.BootModels(ctx); err != nil {
		return fmt.Errorf("failed to boot models: %w", err)
	}
	return nil
}

// connectionName is "default" for the first descriptor and the driver value
// for the others.
func connectionName(index int, descriptor ConnectionDescriptor) string {
	if index == 0 {
		return DefaultConnectionName
	}
	return string(descriptor.Driver())
}

// EnableEvents makes the next boot attach an event dispatcher.
func (b *Bootstrap) EnableEvents() {
	b.registry.mu.Lock()
	defer b.registry.mu.Unlock()
	b.eventsEnabled = true
}

// DisableEvents stops the next boot from attaching an event dispatcher.
func (b *Bootstrap) DisableEvents() {
	b.registry.mu.Lock()
	defer b.registry.mu.Unlock()
	b.eventsEnabled = false
}

// Clear resets both flags, closes the booted engine and drops every listener.
func (b *Bootstrap) Clear() {
	b.registry.mu.Lock()
	defer b.registry.mu.Unlock()
	b.clearLocked()
}

func (b *Bootstrap) clearLocked() {
	if b.engine != nil {
		if err := b.engine.Close(); err != nil {
			b.logger.Warn("Failed to close engine", "error", err)
		}
	}
	b.engine = nil
	b.events = NewDispatcher()
	b.booted = false
	b.eventsEnabled = false
}

func (b *Bootstrap) Booted() bool {
	b.registry.mu.Lock()
	defer b.registry.mu.Unlock()
	return b.booted
}

func (b *Bootstrap) EventsEnabled() bool {
	b.registry.mu.Lock()
	defer b.registry.mu.Unlock()
	return b.eventsEnabled
}

// Engine returns the booted engine or nil.
func (b *Bootstrap) Engine() Engine {
	b.registry.mu.Lock()
	defer b.registry.mu.Unlock()
	return b.engine
}

// Events returns the dispatcher attached to the engine when events are
// enabled at boot. Listeners may be registered before booting.
func (b *Bootstrap) Events() *Dispatcher {
	b.registry.mu.Lock()
	defer b.registry.mu.Unlock()
	return b.events
}
