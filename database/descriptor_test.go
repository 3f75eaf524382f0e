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
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/folded/types"
)

func TestDriverEnum(t *testing.T) {
	assert.True(t, DriverMySQL.IsValid())
	assert.Equal(t, 0, DriverMySQL.Number())
	assert.Equal(t, 3, DriverSQLite.Number())
	assert.Equal(t, "PostgreSQL", DriverPgSQL.Desc())
	assert.Equal(t, "mssql", DriverMSSQL.Name())

	oracle := Driver("oracle")
	assert.False(t, oracle.IsValid())
	assert.Equal(t, types.IllegalValue, oracle.Number())
	assert.Equal(t, types.IllegalName, oracle.Name())
	assert.Equal(t, types.IllegalDesc, oracle.Desc())
	assert.Equal(t, "oracle", oracle.String())
}

func TestDescriptorAccessors(t *testing.T) {
	d := ConnectionDescriptor{"driver": "pgsql", "database": 7}
	assert.Equal(t, DriverPgSQL, d.Driver())
	assert.Equal(t, "", d.String(KeyDatabase))
	assert.Equal(t, "", d.String(KeyHost))

	clone := d.Clone()
	clone["driver"] = "mysql"
	assert.Equal(t, DriverPgSQL, d.Driver())

	var empty ConnectionDescriptor
	assert.Nil(t, empty.Clone())
}

func TestDescriptorTypedDriver(t *testing.T) {
	d := ConnectionDescriptor{KeyDriver: DriverMySQL, KeyDatabase: "app"}
	assert.Equal(t, DriverMySQL, d.Driver())
	assert.Equal(t, "mysql", d.String(KeyDriver))

	port, err := d.Port()
	require.NoError(t, err)
	assert.Equal(t, 3306, port)
}

func TestDescriptorCloneIsDeep(t *testing.T) {
	d := ConnectionDescriptor{
		KeyDriver: "sqlite",
		"options": map[string]any{"journal": "wal", "pragmas": []any{"foreign_keys"}},
		"tags":    []string{"primary"},
		"replica": ConnectionDescriptor{KeyHost: "r1"},
	}
	clone := d.Clone()
	require.Equal(t, d, clone)

	clone["options"].(map[string]any)["journal"] = "delete"
	clone["options"].(map[string]any)["pragmas"].([]any)[0] = "recursive_triggers"
	clone["tags"].([]string)[0] = "secondary"
	clone["replica"].(ConnectionDescriptor)[KeyHost] = "r2"

	options := d["options"].(map[string]any)
	assert.Equal(t, "wal", options["journal"])
	assert.Equal(t, "foreign_keys", options["pragmas"].([]any)[0])
	assert.Equal(t, "primary", d["tags"].([]string)[0])
	assert.Equal(t, "r1", d["replica"].(ConnectionDescriptor)[KeyHost])
}

func TestDescriptorPort(t *testing.T) {
	tests := []struct {
		descriptor ConnectionDescriptor
		want       int
		wantErr    bool
	}{
		{ConnectionDescriptor{"driver": "mysql"}, 3306, false},
		{ConnectionDescriptor{"driver": "pgsql"}, 5432, false},
		{ConnectionDescriptor{"driver": "mssql", "port": nil}, 1433, false},
		{ConnectionDescriptor{"driver": "sqlite"}, 0, false},
		{ConnectionDescriptor{"driver": "mysql", "port": 3307}, 3307, false},
		{ConnectionDescriptor{"driver": "mysql", "port": int64(3308)}, 3308, false},
		{ConnectionDescriptor{"driver": "mysql", "port": float64(3309)}, 3309, false},
		{ConnectionDescriptor{"driver": "mysql", "port": " 3310 "}, 3310, false},
		{ConnectionDescriptor{"driver": "mysql", "port": 33.5}, 0, true},
		{ConnectionDescriptor{"driver": "mysql", "port": "abc"}, 0, true},
		{ConnectionDescriptor{"driver": "mysql", "port": true}, 0, true},
	}
	for _, tt := range tests {
		got, err := tt.descriptor.Port()
		if tt.wantErr {
			assert.Error(t, err, "%v", tt.descriptor)
			continue
		}
		require.NoError(t, err, "%v", tt.descriptor)
		assert.Equal(t, tt.want, got)
	}
}

func TestIsSqlError(t *testing.T) {
	ok, kind := IsSqlError(nil)
	assert.False(t, ok)
	assert.Equal(t, UnknownErr, kind)

	ok, kind = IsSqlError(fmt.Errorf("insert: %w", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}))
	assert.True(t, ok)
	assert.Equal(t, DuplicateKeyErr, kind)

	ok, kind = IsSqlError(errors.New("constraint failed: UNIQUE constraint failed: posts.id (1555)"))
	assert.True(t, ok)
	assert.Equal(t, DuplicateKeyErr, kind)

	ok, kind = IsSqlError(errors.New(`pq: duplicate key value violates unique constraint "posts_pkey"`))
	assert.True(t, ok)
	assert.Equal(t, DuplicateKeyErr, kind)

	ok, kind = IsSqlError(errors.New("SQL logic error: no such table: posts (1)"))
	assert.True(t, ok)
	assert.Equal(t, NoTableErr, kind)

	ok, kind = IsSqlError(errors.New("mssql: Invalid object name 'posts'."))
	assert.True(t, ok)
	assert.Equal(t, NoTableErr, kind)

	ok, _ = IsSqlError(errors.New("connection refused"))
	assert.False(t, ok)
}
