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

import "strings"

// trimCutset matches the characters stripped before the emptiness check.
const trimCutset = " \t\n\r\x00\x0B"

var (
	networkKeys  = []string{KeyHost, KeyUsername}
	optionalKeys = []string{KeyPassword, KeyCharset, KeyCollation, KeyPrefix}
)

// Validate checks a descriptor against the per-driver rules and returns a
// *ConfigError for the first rule it breaks:
//
//  1. driver is present, a string, non-blank and supported
//  2. database is present, a string and non-blank
//  3. sqlite stops here
//  4. host, then username, are present, strings and non-blank
//  5. password, charset, collation and prefix are strings when present
//
// A Driver value is accepted wherever a string is.
func Validate(descriptor ConnectionDescriptor) error {
	if err := checkDriver(descriptor); err != nil {
		return err
	}
	if err := checkRequired(descriptor, KeyDatabase); err != nil {
		return err
	}
	if descriptor.Driver() == DriverSQLite {
		return nil
	}
	for _, key := range networkKeys {
		if err := checkRequired(descriptor, key); err != nil {
			return err
		}
	}
	for _, key := range optionalKeys {
		if err := checkOptional(descriptor, key); err != nil {
			return err
		}
	}
	return nil
}

func checkDriver(descriptor ConnectionDescriptor) error {
	if err := checkRequired(descriptor, KeyDriver); err != nil {
		return err
	}
	if driver := descriptor.Driver(); !driver.IsValid() {
		return &ConfigError{Field: KeyDriver, Defect: DefectUnsupported, Value: string(driver)}
	}
	return nil
}

// checkRequired applies the missing, not-string, empty checks in that order.
// A key holding nil counts as missing.
func checkRequired(descriptor ConnectionDescriptor, key string) error {
	v, ok := descriptor[key]
	if !ok || v == nil {
		return &ConfigError{Field: key, Defect: DefectMissing}
	}
	s, ok := textValue(v)
	if !ok {
		return &ConfigError{Field: key, Defect: DefectNotString, Value: v}
	}
	if strings.Trim(s, trimCutset) == "" {
		return &ConfigError{Field: key, Defect: DefectEmpty, Value: s}
	}
	return nil
}

func checkOptional(descriptor ConnectionDescriptor, key string) error {
	v, ok := descriptor[key]
	if !ok || v == nil {
		return nil
	}
	if _, ok := textValue(v); !ok {
		return &ConfigError{Field: key, Defect: DefectNotString, Value: v}
	}
	return nil
}
