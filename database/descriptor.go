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
	"fmt"
	"strconv"
	"strings"

	"github.com/tomoncle/folded/types"
)

// Descriptor keys.
const (
	KeyDriver    = "driver"
	KeyDatabase  = "database"
	KeyHost      = "host"
	KeyUsername  = "username"
	KeyPassword  = "password"
	KeyCharset   = "charset"
	KeyCollation = "collation"
	KeyPrefix    = "prefix"
	KeyPort      = "port"
	KeySSLMode   = "sslmode"
)

// Driver identifies the target database engine of a connection.
type Driver string

const (
	DriverMySQL  Driver = "mysql"
	DriverPgSQL  Driver = "pgsql"
	DriverMSSQL  Driver = "mssql"
	DriverSQLite Driver = "sqlite"
)

// SupportedDrivers lists the accepted drivers in the order they are reported.
var SupportedDrivers = []Driver{DriverMySQL, DriverPgSQL, DriverMSSQL, DriverSQLite}

var _ types.BaseEnum = Driver("")

var driverDesc = map[Driver]string{
	DriverMySQL:  "MySQL",
	DriverPgSQL:  "PostgreSQL",
	DriverMSSQL:  "SQL Server",
	DriverSQLite: "SQLite",
}

func (d Driver) IsValid() bool { return d.Number() != types.IllegalValue }

// Number is the position of d in SupportedDrivers.
func (d Driver) Number() int { return types.IndexOf(SupportedDrivers, d) }

func (d Driver) String() string { return string(d) }

func (d Driver) Name() string {
	if !d.IsValid() {
		return types.IllegalName
	}
	return string(d)
}

func (d Driver) Desc() string {
	if desc, ok := driverDesc[d]; ok {
		return desc
	}
	return types.IllegalDesc
}

// defaultPort is the conventional port for network drivers, 0 for sqlite.
func (d Driver) defaultPort() int {
	switch d {
	case DriverMySQL:
		return 3306
	case DriverPgSQL:
		return 5432
	case DriverMSSQL:
		return 1433
	default:
		return 0
	}
}

func supportedDriverList() string { return types.JoinNames(SupportedDrivers, ", ") }

// ConnectionDescriptor is one connection's configuration, keyed by field name.
// Values keep whatever type the caller supplied; Validate decides whether they
// are acceptable.
type ConnectionDescriptor map[string]any

// Clone returns a deep copy of the descriptor. Nested maps and slices, as
// decoded from YAML or HCL, are copied too.
func (d ConnectionDescriptor) Clone() ConnectionDescriptor {
	if d == nil {
		return nil
	}
	out := make(ConnectionDescriptor, len(d))
	for k, v := range d {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case ConnectionDescriptor:
		return t.Clone()
	case map[string]any:
		if t == nil {
			return t
		}
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = cloneValue(e)
		}
		return out
	case []any:
		if t == nil {
			return t
		}
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		if t == nil {
			return t
		}
		return append([]string(nil), t...)
	default:
		return v
	}
}

// Driver returns the driver value when it is textual, "" otherwise.
func (d ConnectionDescriptor) Driver() Driver {
	return Driver(d.String(KeyDriver))
}

// String returns the value under key when it is a string or a Driver, ""
// otherwise.
func (d ConnectionDescriptor) String(key string) string {
	s, _ := textValue(d[key])
	return s
}

// textValue unwraps the textual kinds a descriptor may carry.
func textValue(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case Driver:
		return string(t), true
	default:
		return "", false
	}
}

// Port reads the optional port, falling back to the driver default. Numbers
// decoded from YAML/HCL and numeric strings are accepted.
func (d ConnectionDescriptor) Port() (int, error) {
	v, ok := d[KeyPort]
	if !ok || v == nil {
		return d.Driver().defaultPort(), nil
	}
	switch p := v.(type) {
	case int:
		return p, nil
	case int64:
		return int(p), nil
	case float64:
		if p != float64(int(p)) {
			return 0, fmt.Errorf("port %v is not an integer", p)
		}
		return int(p), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return 0, fmt.Errorf("port %q is not a number", p)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("port has unsupported type %T", v)
	}
}
