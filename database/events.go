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
	"sync"

	"github.com/uptrace/bun"
)

// EventName is a model lifecycle event.
type EventName string

const (
	EventRetrieved EventName = "retrieved"
	EventCreating  EventName = "creating"
	EventCreated   EventName = "created"
	EventUpdating  EventName = "updating"
	EventUpdated   EventName = "updated"
	EventDeleting  EventName = "deleting"
	EventDeleted   EventName = "deleted"
)

var (
	beforeEvents = map[string]EventName{
		"INSERT": EventCreating,
		"UPDATE": EventUpdating,
		"DELETE": EventDeleting,
	}
	afterEvents = map[string]EventName{
		"SELECT": EventRetrieved,
		"INSERT": EventCreated,
		"UPDATE": EventUpdated,
		"DELETE": EventDeleted,
	}
)

// ModelEvent is what listeners receive.
type ModelEvent struct {
	Name  EventName
	Table string
	Query string
}

// Listener handles one dispatched event.
type Listener func(ctx context.Context, event ModelEvent)

// Dispatcher turns bun query events into model events. It is attached to
// every connection of a Manager when the event system is enabled.
type Dispatcher struct {
	mu        sync.RWMutex
	listeners map[EventName][]Listener
}

var _ bun.QueryHook = (*Dispatcher)(nil)

func NewDispatcher() *Dispatcher {
	return &Dispatcher{listeners: make(map[EventName][]Listener)}
}

// Listen registers l for name. Listeners run in registration order.
func (d *Dispatcher) Listen(name EventName, l Listener) {
	if l == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners[name] = append(d.listeners[name], l)
}

// Forget removes every listener of name.
func (d *Dispatcher) Forget(name EventName) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.listeners, name)
}

func (d *Dispatcher) HasListeners(name EventName) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.listeners[name]) > 0
}

// Dispatch calls the listeners of event.Name synchronously.
func (d *Dispatcher) Dispatch(ctx context.Context, event ModelEvent) {
	d.mu.RLock()
	ls := make([]Listener, len(d.listeners[event.Name]))
	copy(ls, d.listeners[event.Name])
	d.mu.RUnlock()

	for _, l := range ls {
		l(ctx, event)
	}
}

func (d *Dispatcher) BeforeQuery(ctx context.Context, event *bun.QueryEvent) context.Context {
	if name, ok := beforeEvents[event.Operation()]; ok {
		d.Dispatch(ctx, newModelEvent(name, event))
	}
	return ctx
}

// AfterQuery only reports queries that succeeded.
func (d *Dispatcher) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	if event.Err != nil {
		return
	}
	if name, ok := afterEvents[event.Operation()]; ok {
		d.Dispatch(ctx, newModelEvent(name, event))
	}
}

func newModelEvent(name EventName, event *bun.QueryEvent) ModelEvent {
	ev := ModelEvent{Name: name, Query: event.Query}
	if q, ok := event.IQuery.(interface{ GetTableName() string }); ok {
		ev.Table = q.GetTableName()
	}
	return ev
}
