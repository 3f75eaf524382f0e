// Package repository provides a generic repository built on Bun for CRUD,
// querying and pagination, with optional table prefixes.
package repository
