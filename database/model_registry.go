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
	"reflect"
	"slices"
	"sort"
	"sync"
)

var defaultRegistry = NewModelRegistry()

// SQLModel is a table that Manager.BootModels registers with bun and, when
// AutoCreateTables is set, creates. Instance returns a bun model pointer such
// as (*Post)(nil); lower Priority values boot first.
type SQLModel interface {
	Instance() interface{}
	Priority() int
}

// ConnectionScoped narrows a model to the named connections. Models that do
// not implement it boot on every connection.
type ConnectionScoped interface {
	Connections() []string
}

// ModelRegistry holds one SQLModel per Go struct type.
type ModelRegistry interface {
	// Register adds model; a model of an already registered struct type
	// replaces the earlier one and keeps its position.
	Register(model SQLModel)
	Models() []SQLModel
}

type modelRegistry struct {
	mu     sync.RWMutex
	models []SQLModel
	index  map[reflect.Type]int
}

func NewModelRegistry() ModelRegistry {
	return &modelRegistry{index: make(map[reflect.Type]int)}
}

func (r *modelRegistry) Register(model SQLModel) {
	if model == nil {
		return
	}
	key := modelType(model.Instance())

	r.mu.Lock()
	defer r.mu.Unlock()
	if i, ok := r.index[key]; ok && key != nil {
		r.models[i] = model
		return
	}
	if key != nil {
		r.index[key] = len(r.models)
	}
	r.models = append(r.models, model)
}

// Models returns a priority-sorted copy; equal priorities keep registration order.
func (r *modelRegistry) Models() []SQLModel {
	r.mu.RLock()
	out := slices.Clone(r.models)
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority() < out[j].Priority()
	})
	return out
}

func modelType(instance interface{}) reflect.Type {
	typ := reflect.TypeOf(instance)
	for typ != nil && typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	return typ
}

// ModelAdapter turns a bare struct pointer into an SQLModel.
type ModelAdapter struct {
	instance    interface{}
	priority    int
	connections []string
}

// NewModelAdapter wraps instance. With connection names the model only boots
// on those connections.
func NewModelAdapter(instance interface{}, priority int, connections ...string) SQLModel {
	return &ModelAdapter{
		instance:    instance,
		priority:    priority,
		connections: slices.Clone(connections),
	}
}

func (a *ModelAdapter) Instance() interface{} { return a.instance }
func (a *ModelAdapter) Priority() int         { return a.priority }

// Connections is nil for an adapter bound to every connection.
func (a *ModelAdapter) Connections() []string {
	if len(a.connections) == 0 {
		return nil
	}
	return slices.Clone(a.connections)
}

// RegisterModel adds a model to the registry used by managers built without
// ManagerOptions.Models.
func RegisterModel(model SQLModel) {
	defaultRegistry.Register(model)
}

// RegisteredModels returns the default registry's models by ascending priority.
func RegisteredModels() []SQLModel {
	return defaultRegistry.Models()
}

// modelsFor lists the instances that boot on the named connection.
func modelsFor(r ModelRegistry, connection string) []interface{} {
	var instances []interface{}
	for _, model := range r.Models() {
		if scoped, ok := model.(ConnectionScoped); ok {
			if names := scoped.Connections(); len(names) > 0 && !slices.Contains(names, connection) {
				continue
			}
		}
		instances = append(instances, model.Instance())
	}
	return instances
}
