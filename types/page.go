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

package types

import (
	"errors"
	"fmt"
	"sync"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 15
)

// ErrPageOutOfRange is matched by every PageRangeError.
var ErrPageOutOfRange = errors.New("page number out of range")

// PageRangeError reports a page number below 1.
type PageRangeError struct {
	Page int
}

func (e *PageRangeError) Error() string {
	return fmt.Sprintf("page number must be greater than or equal to 1, got %d", e.Page)
}

func (e *PageRangeError) Unwrap() error { return ErrPageOutOfRange }

// CheckPage returns a *PageRangeError when page is below 1.
func CheckPage(page int) error {
	if page < 1 {
		return &PageRangeError{Page: page}
	}
	return nil
}

// QueryFilter describes a WHERE clause schema and its argument values.
type QueryFilter struct {
	Schema string
	Args   []interface{}
}

// NewQueryFilter creates a new query filter with schema and args.
func NewQueryFilter(schema string, args ...interface{}) *QueryFilter {
	return &QueryFilter{schema, args}
}

// PageRequest describes pagination, optional filter, and ordering.
type PageRequest struct {
	page     int
	pageSize int
	filter   *QueryFilter
	orders   []string // "id ASC", "title DESC"
}

func (p *PageRequest) GetPageSize() int {
	if p.pageSize < 1 {
		p.pageSize = DefaultPageSize
	}
	return p.pageSize
}

func (p *PageRequest) GetPage() int {
	if p.page < 1 {
		p.page = DefaultPage
	}
	return p.page
}

func (p *PageRequest) GetOffset() int {
	return (p.GetPage() - 1) * p.GetPageSize()
}

func (p *PageRequest) GetFilter() *QueryFilter {
	return p.filter
}

func (p *PageRequest) GetOrders() []string {
	return p.orders
}

// NewPageRequest constructs a PageRequest with filter and order settings.
func NewPageRequest(page int, pageSize int, filter *QueryFilter, orders []string) *PageRequest {
	return &PageRequest{page, pageSize, filter, orders}
}

// NewDefaultPageRequest constructs a PageRequest with no filter or ordering.
func NewDefaultPageRequest(page int, pageSize int) *PageRequest {
	return NewPageRequest(page, pageSize, nil, make([]string, 0))
}

// Pagination holds paged result items along with pagination metadata.
type Pagination[T any] struct {
	Page     int
	PageSize int
	Total    int
	Items    []*T
}

// NewDefaultPagination constructs an empty pagination container.
func NewDefaultPagination[T any](page int, pageSize int) *Pagination[T] {
	return &Pagination[T]{page, pageSize, 0, make([]*T, 0)}
}

// LastPage is the number of the final page, at least 1.
func (p *Pagination[T]) LastPage() int {
	if p.PageSize < 1 || p.Total == 0 {
		return 1
	}
	return (p.Total + p.PageSize - 1) / p.PageSize
}

// HasMorePages reports whether pages exist after the current one.
func (p *Pagination[T]) HasMorePages() bool {
	return p.Page < p.LastPage()
}

// PageResolver yields the page a paginated query should read.
type PageResolver func() int

// CurrentPage holds a swappable PageResolver. The zero value resolves to page 1.
type CurrentPage struct {
	mu       sync.RWMutex
	resolver PageResolver
}

// Resolve returns the page chosen by the installed resolver, falling back to
// DefaultPage when none is set or the resolver yields a non-positive value.
func (c *CurrentPage) Resolve() int {
	c.mu.RLock()
	r := c.resolver
	c.mu.RUnlock()
	if r == nil {
		return DefaultPage
	}
	if page := r(); page >= 1 {
		return page
	}
	return DefaultPage
}

// SetResolver installs a custom resolver; nil restores the default.
func (c *CurrentPage) SetResolver(r PageResolver) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resolver = r
}

// Force pins the resolver to page.
func (c *CurrentPage) Force(page int) error {
	if err := CheckPage(page); err != nil {
		return err
	}
	c.SetResolver(func() int { return page })
	return nil
}
