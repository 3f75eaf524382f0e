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
	"strings"

	"github.com/go-sql-driver/mysql"
)

var (
	// ErrInvalidConfig is matched by every *ConfigError.
	ErrInvalidConfig = errors.New("invalid database connection")

	// ErrConnectionNotFound is returned when a named connection was never registered.
	ErrConnectionNotFound = errors.New("database connection not found")
)

// Defect is the kind of problem found in a descriptor field.
type Defect int

const (
	DefectMissing Defect = iota + 1
	DefectNotString
	DefectEmpty
	DefectUnsupported
)

func (d Defect) String() string {
	switch d {
	case DefectMissing:
		return "missing"
	case DefectNotString:
		return "not-string"
	case DefectEmpty:
		return "empty"
	case DefectUnsupported:
		return "unsupported"
	default:
		return "unknown"
	}
}

// ConfigError reports the first rule a connection descriptor violated.
type ConfigError struct {
	Field  string
	Defect Defect
	Value  any
}

func (e *ConfigError) Error() string {
	switch e.Defect {
	case DefectMissing:
		return fmt.Sprintf("%s is missing from the database connection", e.Field)
	case DefectNotString:
		return fmt.Sprintf("%s must be a string in the database connection", e.Field)
	case DefectEmpty:
		return fmt.Sprintf("%s is empty in the database connection", e.Field)
	case DefectUnsupported:
		return fmt.Sprintf("%s %v not supported (supported: %s)", e.Field, e.Value, supportedDriverList())
	default:
		return fmt.Sprintf("%s is invalid in the database connection", e.Field)
	}
}

func (e *ConfigError) Unwrap() error { return ErrInvalidConfig }

type SQLError int

const (
	UnknownErr SQLError = iota
	NoRowsErr
	NoIndexErr
	NoColumnErr
	ExistIndexErr
	ExistColumnErr
	NoTableErr
	ExistTableErr
	DuplicateKeyErr
	NotNullViolationErr
	ForeignKeyViolationErr
	CheckConstraintViolationErr
	DataTruncatedErr
	InvalidTypeCastErr
)

// IsSqlError classifies driver errors from mysql, postgres, sqlite and sql
// server into a SQLError. The first result is false for non-SQL errors.
func IsSqlError(err error) (is bool, sqlErr SQLError) {
	if err == nil {
		return false, UnknownErr
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		switch mysqlErr.Number {
		case 1091:
			return true, NoIndexErr
		case 1054:
			return true, NoColumnErr
		case 1061:
			return true, ExistIndexErr
		case 1060:
			return true, ExistColumnErr
		case 1146:
			return true, NoTableErr
		case 1050:
			return true, ExistTableErr
		case 1062:
			return true, DuplicateKeyErr
		case 1048:
			return true, NotNullViolationErr
		case 1216, 1217, 1451, 1452:
			return true, ForeignKeyViolationErr
		case 3819:
			return true, CheckConstraintViolationErr
		case 1265, 1406:
			return true, DataTruncatedErr
		default:
			return true, UnknownErr
		}
	}
	s := strings.ToLower(err.Error())
	if strings.Contains(s, "sqlstate 42703") ||
		strings.Contains(s, "undefined column") ||
		strings.Contains(s, "no such column") ||
		strings.Contains(s, "invalid column name") {
		return true, NoColumnErr
	}
	if strings.Contains(s, "sqlstate 42704") ||
		strings.Contains(s, "no such index") ||
		(strings.Contains(s, "does not exist") && strings.Contains(s, "index")) {
		return true, NoIndexErr
	}
	if strings.Contains(s, "sqlstate 42p01") ||
		strings.Contains(s, "undefined table") ||
		strings.Contains(s, "no such table") ||
		strings.Contains(s, "invalid object name") {
		return true, NoTableErr
	}
	if strings.Contains(s, "already exists") &&
		strings.Contains(s, "index") {
		return true, ExistIndexErr
	}
	if strings.Contains(s, "already exists") &&
		(strings.Contains(s, "table") || strings.Contains(s, "relation")) {
		return true, ExistTableErr
	}
	if strings.Contains(s, "duplicate key") ||
		strings.Contains(s, "unique constraint failed") ||
		strings.Contains(s, "sqlstate 23505") {
		return true, DuplicateKeyErr
	}
	if strings.Contains(s, "not-null constraint") ||
		strings.Contains(s, "sqlstate 23502") ||
		strings.Contains(s, "not null constraint failed") {
		return true, NotNullViolationErr
	}
	if strings.Contains(s, "foreign key violation") ||
		strings.Contains(s, "foreign key constraint failed") ||
		strings.Contains(s, "sqlstate 23503") {
		return true, ForeignKeyViolationErr
	}
	if strings.Contains(s, "check constraint") ||
		strings.Contains(s, "sqlstate 23514") {
		return true, CheckConstraintViolationErr
	}
	if strings.Contains(s, "string data right truncation") ||
		strings.Contains(s, "sqlstate 22001") ||
		strings.Contains(s, "data truncated") {
		return true, DataTruncatedErr
	}
	if strings.Contains(s, "datatype mismatch") ||
		strings.Contains(s, "sqlstate 42804") {
		return true, InvalidTypeCastErr
	}
	return false, UnknownErr
}
