// Package database validates connection descriptors, keeps them in an ordered
// registry and boots a bun-backed connection manager from that registry once.
// It also carries the event dispatcher, query hooks, model registry,
// configuration loading and logging used around that bootstrap.
package database
