// Package config loads repokit configuration.
//
// Files may be CUE, YAML or JSON. Every input is unified with the embedded
// #Config schema, which supplies defaults and rejects unknown or
// out-of-range fields, then decoded into Config.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/repokit/internal/ir"
	"github.com/roach88/repokit/internal/softdelete"
)

//go:embed schema.cue
var schemaCUE string

// Format identifies a configuration file syntax.
type Format string

const (
	FormatCUE  Format = "cue"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

// Config is the decoded configuration.
type Config struct {
	Store       StoreConfig                 `json:"store"`
	SoftDelete  SoftDeleteConfig            `json:"softDelete"`
	Log         LogConfig                   `json:"log"`
	Collections map[string]CollectionConfig `json:"collections"`
}

// StoreConfig selects the storage adapter.
type StoreConfig struct {
	// Driver is "memory" (sharded document store) or "sqlite".
	Driver string `json:"driver"`

	// Path is the SQLite database file. Required for the sqlite driver.
	Path string `json:"path"`

	// Shards is the document store shard count.
	Shards int `json:"shards"`
}

type SoftDeleteConfig struct {
	Enabled         bool   `json:"enabled"`
	Field           string `json:"field"`
	NotDeletedValue any    `json:"notDeletedValue"`
}

type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

type CollectionConfig struct {
	IDField string `json:"idField"`
}

// Default returns the configuration of an empty input.
func Default() (*Config, error) {
	return Parse([]byte("{}"), FormatJSON)
}

// Load reads and validates a configuration file. The format follows the
// extension: .cue, .yaml/.yml or .json.
func Load(path string) (*Config, error) {
	format, err := formatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := parse(data, format, path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse validates configuration text of the given format.
func Parse(data []byte, format Format) (*Config, error) {
	return parse(data, format, "config."+string(format))
}

func parse(data []byte, format Format, filename string) (*Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	var input cue.Value
	switch format {
	case FormatCUE:
		input = ctx.CompileBytes(data, cue.Filename(filename))
	case FormatYAML, FormatJSON:
		// YAML is a superset of JSON
		var raw map[string]any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse %s: %w", format, err)
		}
		if raw == nil {
			raw = map[string]any{}
		}
		input = ctx.Encode(raw)
	default:
		return nil, fmt.Errorf("unknown config format %q", format)
	}
	if err := input.Err(); err != nil {
		return nil, fmt.Errorf("parse %s: %w", format, formatCUEError(err))
	}

	v := def.Unify(input)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("invalid config: %w", formatCUEError(err))
	}

	var cfg Config
	if err := v.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Collections == nil {
		cfg.Collections = map[string]CollectionConfig{}
	}
	if err := cfg.check(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// check enforces rules that span fields.
func (c *Config) check() error {
	if c.Store.Driver == DriverSQLite && c.Store.Path == "" {
		return fmt.Errorf("store.path is required for the sqlite driver")
	}
	if _, err := ir.FromGo(c.SoftDelete.NotDeletedValue); err != nil {
		return fmt.Errorf("softDelete.notDeletedValue: %w", err)
	}
	return nil
}

// Policy returns the soft-delete policy to fix on every executor.
func (c *Config) Policy() softdelete.Policy {
	if !c.SoftDelete.Enabled {
		return softdelete.Disabled()
	}
	sentinel, err := ir.FromGo(c.SoftDelete.NotDeletedValue)
	if err != nil {
		sentinel = nil
	}
	return softdelete.Policy{Enabled: true, Field: c.SoftDelete.Field, NotDeletedValue: sentinel}
}

// IDField returns the identity field configured for a collection, "id" when
// the collection is not listed.
func (c *Config) IDField(collection string) string {
	if cc, ok := c.Collections[collection]; ok && cc.IDField != "" {
		return cc.IDField
	}
	return "id"
}

func formatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		return FormatCUE, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported config file extension %q", filepath.Ext(path))
	}
}
