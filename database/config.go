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
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
	"gopkg.in/yaml.v3"
)

// LoadConfig reads a .yaml/.yml or .hcl file. Descriptor values keep their
// native types so validation sees exactly what the file contains.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAMLConfig(data)
	case ".hcl":
		return ParseHCLConfig(data, path)
	default:
		return nil, fmt.Errorf("unsupported config file extension %q", filepath.Ext(path))
	}
}

// ParseYAMLConfig decodes a YAML document into a Config.
func ParseYAMLConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	return &cfg, nil
}

type hclConfig struct {
	Events           bool            `hcl:"events,optional"`
	QueryLog         bool            `hcl:"query_log,optional"`
	SlowQueryTime    string          `hcl:"slow_query_time,optional"`
	AutoCreateTables bool            `hcl:"auto_create_tables,optional"`
	Pool             *hclPool        `hcl:"pool,block"`
	Connections      []hclConnection `hcl:"connection,block"`
}

type hclPool struct {
	MaxIdleConns    int    `hcl:"max_idle_conns,optional"`
	MaxOpenConns    int    `hcl:"max_open_conns,optional"`
	ConnMaxLifetime string `hcl:"conn_max_lifetime,optional"`
	ConnMaxIdleTime string `hcl:"conn_max_idle_time,optional"`
}

// hclConnection keeps the raw body; its attributes become descriptor keys.
type hclConnection struct {
	Body hcl.Body `hcl:",remain"`
}

// ParseHCLConfig decodes an HCL document into a Config:
//
//	events = true
//	connection {
//	  driver   = "sqlite"
//	  database = "app.db"
//	}
func ParseHCLConfig(data []byte, filename string) (*Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %s", filename, diags.Error())
	}

	var raw hclConfig
	diags = gohcl.DecodeBody(file.Body, nil, &raw)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %s", filename, diags.Error())
	}

	cfg := &Config{
		Events:           raw.Events,
		QueryLog:         raw.QueryLog,
		AutoCreateTables: raw.AutoCreateTables,
	}

	var err error
	if cfg.SlowQueryTime, err = parseOptionalDuration("slow_query_time", raw.SlowQueryTime); err != nil {
		return nil, err
	}
	if raw.Pool != nil {
		cfg.Pool.MaxIdleConns = raw.Pool.MaxIdleConns
		cfg.Pool.MaxOpenConns = raw.Pool.MaxOpenConns
		if cfg.Pool.ConnMaxLifetime, err = parseOptionalDuration("conn_max_lifetime", raw.Pool.ConnMaxLifetime); err != nil {
			return nil, err
		}
		if cfg.Pool.ConnMaxIdleTime, err = parseOptionalDuration("conn_max_idle_time", raw.Pool.ConnMaxIdleTime); err != nil {
			return nil, err
		}
	}

	for i, conn := range raw.Connections {
		descriptor, err := decodeHCLDescriptor(conn.Body)
		if err != nil {
			return nil, fmt.Errorf("connection #%d in %s: %w", i, filename, err)
		}
		cfg.Connections = append(cfg.Connections, descriptor)
	}
	return cfg, nil
}

func decodeHCLDescriptor(body hcl.Body) (ConnectionDescriptor, error) {
	attrs, diags := body.JustAttributes()
	if diags.HasErrors() {
		return nil, fmt.Errorf("%s", diags.Error())
	}

	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	sort.Strings(names)

	descriptor := make(ConnectionDescriptor, len(attrs))
	for _, name := range names {
		value, diags := attrs[name].Expr.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("attribute %q: %s", name, diags.Error())
		}
		native, err := ctyToNative(value)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", name, err)
		}
		descriptor[name] = native
	}
	return descriptor, nil
}

// ctyToNative converts v to plain Go values. Integral numbers become int.
func ctyToNative(v cty.Value) (any, error) {
	if v.IsNull() || !v.IsKnown() {
		return nil, nil
	}

	ty := v.Type()
	switch {
	case ty == cty.String:
		return v.AsString(), nil

	case ty == cty.Number:
		if v.AsBigFloat().IsInt() {
			var i int
			if err := gocty.FromCtyValue(v, &i); err == nil {
				return i, nil
			}
		}
		var f float64
		if err := gocty.FromCtyValue(v, &f); err != nil {
			return nil, fmt.Errorf("could not convert number: %w", err)
		}
		return f, nil

	case ty == cty.Bool:
		return v.True(), nil

	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		out := make([]any, 0, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			_, elem := it.Element()
			native, err := ctyToNative(elem)
			if err != nil {
				return nil, err
			}
			out = append(out, native)
		}
		return out, nil

	case ty.IsObjectType() || ty.IsMapType():
		out := make(map[string]any)
		for it := v.ElementIterator(); it.Next(); {
			key, elem := it.Element()
			native, err := ctyToNative(elem)
			if err != nil {
				return nil, fmt.Errorf("in attribute '%s': %w", key.AsString(), err)
			}
			out[key.AsString()] = native
		}
		return out, nil

	default:
		return nil, fmt.Errorf("unsupported value type %s", ty.FriendlyName())
	}
}

func parseOptionalDuration(field, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", field, value, err)
	}
	return d, nil
}
