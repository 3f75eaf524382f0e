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

import "strings"

// Answers given by an enum member that is not part of its set, e.g. a
// driver name read from config that no dialect serves.
const (
	IllegalValue = -1
	IllegalName  = "unknown"
	IllegalDesc  = "unknown"
)

// BaseEnum is a closed set of named values. Number is the member's position
// in its declared order; Name and Desc are shown in messages and logs.
type BaseEnum interface {
	IsValid() bool
	Number() int
	String() string
	Desc() string
	Name() string
}

// IndexOf returns the position of v in set, or IllegalValue.
func IndexOf[E comparable](set []E, v E) int {
	for i, member := range set {
		if member == v {
			return i
		}
	}
	return IllegalValue
}

// JoinNames renders set in declared order, e.g. "mysql, pgsql".
func JoinNames[E BaseEnum](set []E, sep string) string {
	names := make([]string, len(set))
	for i, member := range set {
		names[i] = member.Name()
	}
	return strings.Join(names, sep)
}
