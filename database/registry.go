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

import "sync"

// Registry is the ordered list of validated connection descriptors. The first
// entry becomes the "default" connection at boot.
//
// Its mutex is also the lock of any Bootstrap built on top of it, so the
// descriptor list and the boot flags change under one lock.
type Registry struct {
	mu          sync.Mutex
	connections []ConnectionDescriptor
	// current holds the descriptor being validated by Add.
	current ConnectionDescriptor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{connections: make([]ConnectionDescriptor, 0)}
}

// Add validates descriptor and appends a copy of it. On error nothing is stored.
func (r *Registry) Add(descriptor ConnectionDescriptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.current = descriptor.Clone()
	defer func() { r.current = nil }()

	if err := Validate(r.current); err != nil {
		return err
	}
	r.connections = append(r.connections, r.current)
	return nil
}

// All returns a copy of every stored descriptor in insertion order.
func (r *Registry) All() []ConnectionDescriptor {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

// Len reports how many descriptors are stored.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.connections)
}

// Clear forgets every descriptor.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clearLocked()
}

func (r *Registry) clearLocked() {
	r.connections = make([]ConnectionDescriptor, 0)
	r.current = nil
}

func (r *Registry) snapshotLocked() []ConnectionDescriptor {
	out := make([]ConnectionDescriptor, len(r.connections))
	for i, c := range r.connections {
		out[i] = c.Clone()
	}
	return out
}
