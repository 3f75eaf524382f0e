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
	"reflect"

	"github.com/tomoncle/folded/database"
	"github.com/tomoncle/folded/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/feature"
	"github.com/uptrace/bun/schema"
)

type baseRepositoryImpl[T any] struct {
	db     *bun.DB
	prefix string
	table  *schema.Table
}

// NewRepository returns a generic repository backed by the provided Bun DB.
func NewRepository[T any](db *bun.DB, opts ...Option) Repository[T] {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	return &baseRepositoryImpl[T]{
		db:     db,
		prefix: o.prefix,
		table:  db.Table(reflect.TypeOf((*T)(nil)).Elem()),
	}
}

func (r *baseRepositoryImpl[T]) Dialect() schema.Dialect { return r.db.Dialect() }

// TableName is the model table name with the prefix applied.
func (r *baseRepositoryImpl[T]) TableName() string { return r.prefix + r.table.Name }

func (r *baseRepositoryImpl[T]) NewSelect() *bun.SelectQuery {
	q := r.db.NewSelect()
	if r.prefix != "" {
		q = q.ModelTableExpr("? AS ?", bun.Ident(r.TableName()), bun.Ident(r.table.Alias))
	}
	return q
}

func (r *baseRepositoryImpl[T]) NewInsert() *bun.InsertQuery {
	q := r.db.NewInsert()
	if r.prefix != "" {
		q = q.ModelTableExpr("?", bun.Ident(r.TableName()))
	}
	return q
}

func (r *baseRepositoryImpl[T]) NewUpdate() *bun.UpdateQuery {
	q := r.db.NewUpdate()
	if r.prefix == "" {
		return q
	}
	if r.db.HasFeature(feature.UpdateTableAlias) || r.db.HasFeature(feature.UpdateMultiTable) {
		return q.ModelTableExpr("? AS ?", bun.Ident(r.TableName()), bun.Ident(r.table.Alias))
	}
	return q.ModelTableExpr("?", bun.Ident(r.TableName()))
}

func (r *baseRepositoryImpl[T]) NewDelete() *bun.DeleteQuery {
	q := r.db.NewDelete()
	if r.prefix == "" {
		return q
	}
	if r.db.HasFeature(feature.DeleteTableAlias) {
		return q.ModelTableExpr("? AS ?", bun.Ident(r.TableName()), bun.Ident(r.table.Alias))
	}
	return q.ModelTableExpr("?", bun.Ident(r.TableName()))
}

func (r *baseRepositoryImpl[T]) ValsToSlice(entity ...*T) []*T {
	entities := make([]*T, len(entity))
	copy(entities, entity)
	return entities
}

func (r *baseRepositoryImpl[T]) GetOne(ctx context.Context, id any) (*T, error) {
	var entity T
	err := r.NewSelect().Model(&entity).Where("id = ?", id).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &entity, nil
}

func (r *baseRepositoryImpl[T]) GetAll(ctx context.Context) ([]*T, error) {
	var entities []*T
	err := r.NewSelect().Model(&entities).Scan(ctx)
	return entities, err
}

func (r *baseRepositoryImpl[T]) List(ctx context.Context, filter *types.QueryFilter) ([]*T, error) {
	var entities []*T
	query := r.NewSelect().Model(&entities)
	if filter != nil {
		query = query.Where(filter.Schema, filter.Args...)
	}
	err := query.Scan(ctx)
	if err != nil {
		return nil, err
	}
	return entities, err
}

func (r *baseRepositoryImpl[T]) Query(ctx context.Context, query string, args ...interface{}) ([]*T, error) {
	var entities []*T
	err := r.NewSelect().Model(&entities).Where(query, args...).Scan(ctx)
	return entities, err
}

func (r *baseRepositoryImpl[T]) Page(ctx context.Context, pageRequest *types.PageRequest) (*types.Pagination[T], error) {
	var entities []*T
	query := r.NewSelect().Model(&entities)
	if pageRequest.GetFilter() != nil {
		query = query.Where(pageRequest.GetFilter().Schema, pageRequest.GetFilter().Args...)
	}
	pagination := types.NewDefaultPagination[T](pageRequest.GetPage(), pageRequest.GetPageSize())
	total, err := query.Count(ctx)
	if err != nil || total == 0 {
		return pagination, err
	}
	pagination.Total = total
	if pageRequest.GetOffset() >= total {
		return pagination, nil
	}
	err = query.
		Offset(pageRequest.GetOffset()).
		Limit(pageRequest.GetPageSize()).
		Order(pageRequest.GetOrders()...).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	pagination.Items = entities
	return pagination, nil
}

func (r *baseRepositoryImpl[T]) Create(ctx context.Context, entity ...*T) error {
	entities := r.ValsToSlice(entity...)
	_, err := r.NewInsert().Model(&entities).Exec(ctx)
	return err
}

func (r *baseRepositoryImpl[T]) Save(ctx context.Context, entity *T) error {
	_, err := r.NewInsert().Model(entity).Exec(ctx)
	if err == nil {
		return nil
	}
	if ok, kind := database.IsSqlError(err); ok && kind == database.DuplicateKeyErr {
		return r.Update(ctx, entity)
	}
	return err
}

func (r *baseRepositoryImpl[T]) Update(ctx context.Context, entity *T) error {
	q := r.NewUpdate().Model(entity)
	if r.prefix == "" {
		q = q.WherePK()
	} else {
		// WherePK qualifies columns with the unprefixed table name
		v := reflect.ValueOf(entity).Elem()
		for _, pk := range r.table.PKs {
			q = q.Where("? = ?", bun.Ident(pk.Name), pk.Value(v).Interface())
		}
	}
	_, err := q.Exec(ctx)
	return err
}

func (r *baseRepositoryImpl[T]) Delete(ctx context.Context, id any) error {
	var entity T
	_, err := r.NewDelete().Model(&entity).Where("id = ?", id).Exec(ctx)
	return err
}
