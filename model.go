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

package folded

import (
	"context"
	"fmt"
	"sync"

	"github.com/tomoncle/folded/database"
	"github.com/tomoncle/folded/repository"
	"github.com/tomoncle/folded/types"
	"github.com/uptrace/bun"
)

// Model forwards to a repository bound to one connection of a capsule. The
// capsule boots on the first call that needs the database.
type Model[T any] struct {
	capsule    *database.Capsule
	connection string
	orders     []string
	page       *types.CurrentPage

	mu   sync.Mutex
	db   *bun.DB
	repo repository.Repository[T]
}

type modelOptions struct {
	capsule    *database.Capsule
	connection string
	orders     []string
	page       *types.CurrentPage
}

// ModelOption configures a Model.
type ModelOption func(*modelOptions)

// WithCapsule binds the model to c instead of the default capsule.
func WithCapsule(c *database.Capsule) ModelOption {
	return func(o *modelOptions) { o.capsule = c }
}

// WithConnection selects a connection by name: "default" or a driver value.
func WithConnection(name string) ModelOption {
	return func(o *modelOptions) { o.connection = name }
}

// WithOrder sets the ORDER BY clauses Paginate uses, e.g. "id ASC".
func WithOrder(orders ...string) ModelOption {
	return func(o *modelOptions) { o.orders = orders }
}

// WithCurrentPage makes the model read its page from p instead of the
// package-wide resolver.
func WithCurrentPage(p *types.CurrentPage) ModelOption {
	return func(o *modelOptions) { o.page = p }
}

func NewModel[T any](opts ...ModelOption) *Model[T] {
	o := &modelOptions{
		connection: database.DefaultConnectionName,
		page:       &currentPage,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.capsule == nil {
		o.capsule = database.DefaultCapsule()
	}
	return &Model[T]{
		capsule:    o.capsule,
		connection: o.connection,
		orders:     o.orders,
		page:       o.page,
	}
}

// Boot starts the capsule engine if it is not running yet.
func (m *Model[T]) Boot(ctx context.Context) error {
	_, err := m.repository(ctx)
	return err
}

// repository returns the repository of the live connection, rebuilding it
// after the capsule was cleared and booted again.
func (m *Model[T]) repository(ctx context.Context) (repository.Repository[T], error) {
	resolver, err := m.capsule.Resolver(ctx)
	if err != nil {
		return nil, err
	}
	db := resolver.DB(m.connection)
	if db == nil {
		return nil, fmt.Errorf("%w: %s", database.ErrConnectionNotFound, m.connection)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.db != db {
		m.db = db
		m.repo = repository.NewRepository[T](db, repository.WithTablePrefix(resolver.Prefix(m.connection)))
	}
	return m.repo, nil
}

func (m *Model[T]) All(ctx context.Context) ([]*T, error) {
	repo, err := m.repository(ctx)
	if err != nil {
		return nil, err
	}
	return repo.GetAll(ctx)
}

func (m *Model[T]) Find(ctx context.Context, id any) (*T, error) {
	repo, err := m.repository(ctx)
	if err != nil {
		return nil, err
	}
	return repo.GetOne(ctx, id)
}

// Where returns the rows matching a bun WHERE expression.
func (m *Model[T]) Where(ctx context.Context, query string, args ...interface{}) ([]*T, error) {
	repo, err := m.repository(ctx)
	if err != nil {
		return nil, err
	}
	return repo.Query(ctx, query, args...)
}

func (m *Model[T]) Create(ctx context.Context, entity ...*T) error {
	repo, err := m.repository(ctx)
	if err != nil {
		return err
	}
	return repo.Create(ctx, entity...)
}

// Save inserts entity or, when its key already exists, updates it.
func (m *Model[T]) Save(ctx context.Context, entity *T) error {
	repo, err := m.repository(ctx)
	if err != nil {
		return err
	}
	return repo.Save(ctx, entity)
}

func (m *Model[T]) Update(ctx context.Context, entity *T) error {
	repo, err := m.repository(ctx)
	if err != nil {
		return err
	}
	return repo.Update(ctx, entity)
}

func (m *Model[T]) Delete(ctx context.Context, id any) error {
	repo, err := m.repository(ctx)
	if err != nil {
		return err
	}
	return repo.Delete(ctx, id)
}

// Paginate reads the current page with perPage rows per page; perPage below
// 1 uses types.DefaultPageSize.
func (m *Model[T]) Paginate(ctx context.Context, perPage int) (*types.Pagination[T], error) {
	repo, err := m.repository(ctx)
	if err != nil {
		return nil, err
	}
	request := types.NewPageRequest(m.page.Resolve(), perPage, nil, m.orders)
	return repo.Page(ctx, request)
}

// OnPage pins the page later Paginate calls read. Pages below 1 fail with
// types.ErrPageOutOfRange.
func (m *Model[T]) OnPage(page int) error {
	return m.page.Force(page)
}
