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
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryAdd(t *testing.T) {
	r := NewRegistry()
	assert.Empty(t, r.All())

	input := ConnectionDescriptor{"driver": "sqlite", "database": "/tmp/db.sqlite"}
	require.NoError(t, r.Add(input))

	all := r.All()
	require.Len(t, all, 1)
	assert.Equal(t, input, all[0])
	assert.Nil(t, r.current)
}

func TestRegistryRejectsInvalidWithoutStoring(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Add(ConnectionDescriptor{"driver": "sqlite", "database": "a.db"}))

	err := r.Add(ConnectionDescriptor{"driver": "mysql", "database": "test"})
	require.EqualError(t, err, "host is missing from the database connection")
	assert.Equal(t, 1, r.Len())
	assert.Nil(t, r.current)

	err = r.Add(ConnectionDescriptor{"driver": "mysql", "database": "test"})
	require.EqualError(t, err, "host is missing from the database connection")
	assert.Equal(t, 1, r.Len())
}

func TestRegistryKeepsOrderAndDuplicates(t *testing.T) {
	r := NewRegistry()
	first := ConnectionDescriptor{"driver": "sqlite", "database": "a.db"}
	second := ConnectionDescriptor{"driver": "mysql", "database": "b", "host": "h", "username": "u"}
	require.NoError(t, r.Add(first))
	require.NoError(t, r.Add(second))
	require.NoError(t, r.Add(first))

	all := r.All()
	require.Len(t, all, 3)
	assert.Equal(t, first, all[0])
	assert.Equal(t, second, all[1])
	assert.Equal(t, first, all[2])
}

func TestRegistrySnapshotIsolation(t *testing.T) {
	r := NewRegistry()
	input := ConnectionDescriptor{"driver": "sqlite", "database": "a.db"}
	require.NoError(t, r.Add(input))

	input["database"] = "changed.db"
	snapshot := r.All()
	assert.Equal(t, "a.db", snapshot[0]["database"])

	snapshot[0]["database"] = "mutated.db"
	snapshot = append(snapshot, ConnectionDescriptor{})
	assert.Equal(t, "a.db", r.All()[0]["database"])
	assert.Equal(t, 1, r.Len())
}

func TestRegistryAddTypedDriver(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Add(ConnectionDescriptor{KeyDriver: DriverSQLite, KeyDatabase: "a.db"}))

	all := r.All()
	require.Len(t, all, 1)
	assert.Equal(t, DriverSQLite, all[0].Driver())
	assert.Equal(t, "sqlite", connectionName(1, all[0]))
}

func TestRegistrySnapshotIsolatesNestedValues(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Add(ConnectionDescriptor{
		"driver":   "sqlite",
		"database": "a.db",
		"options":  map[string]any{"journal": "wal"},
		"pragmas":  []any{"foreign_keys"},
	}))

	snapshot := r.All()
	snapshot[0]["options"].(map[string]any)["journal"] = "delete"
	snapshot[0]["pragmas"].([]any)[0] = "recursive_triggers"

	stored := r.All()[0]
	assert.Equal(t, "wal", stored["options"].(map[string]any)["journal"])
	assert.Equal(t, "foreign_keys", stored["pragmas"].([]any)[0])
}

func TestRegistryClear(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Add(ConnectionDescriptor{"driver": "sqlite", "database": "a.db"}))
	r.Clear()
	assert.Equal(t, 0, r.Len())
	assert.Empty(t, r.All())
	assert.Nil(t, r.current)
}

func TestRegistryConcurrentAdd(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_ = r.Add(ConnectionDescriptor{"driver": "sqlite", "database": "a.db"})
			} else {
				_ = r.Add(ConnectionDescriptor{"driver": "sqlite"})
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 25, r.Len())
}
