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

package repository

import (
	"context"

	"github.com/tomoncle/folded/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

// CrudRepository defines basic CRUD operations for a generic entity type.
type CrudRepository[T any] interface {
	GetOne(ctx context.Context, id any) (*T, error)

	GetAll(ctx context.Context) ([]*T, error)

	List(ctx context.Context, filter *types.QueryFilter) ([]*T, error)

	Query(ctx context.Context, query string, args ...interface{}) ([]*T, error)

	Create(ctx context.Context, entity ...*T) error

	// Save inserts entity, or updates it by primary key when the insert hits a
	// duplicate key.
	Save(ctx context.Context, entity *T) error

	Update(ctx context.Context, entity *T) error

	Delete(ctx context.Context, id any) error
}

// PageQueryRepository defines pagination functionality for listing entities.
type PageQueryRepository[T any] interface {
	Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error)
}

// Repository combines CRUD and pagination and exposes Bun query builders
// already bound to the entity table, prefix included.
type Repository[T any] interface {
	CrudRepository[T]
	PageQueryRepository[T]
	Dialect() schema.Dialect
	TableName() string
	NewSelect() *bun.SelectQuery
	NewInsert() *bun.InsertQuery
	NewUpdate() *bun.UpdateQuery
	NewDelete() *bun.DeleteQuery
}

// Option configures a repository.
type Option func(*options)

type options struct {
	prefix string
}

// WithTablePrefix prepends prefix to the entity table name in every query.
func WithTablePrefix(prefix string) Option {
	return func(o *options) {
		o.prefix = prefix
	}
}
