package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"cuelang.org/go/cue/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/repokit/internal/ir"
	"github.com/roach88/repokit/internal/softdelete"
)

func TestDefault(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)

	assert.Equal(t, StoreConfig{Driver: DriverMemory, Path: "", Shards: 1}, cfg.Store)
	assert.Equal(t, LogConfig{Level: "info", Format: "json"}, cfg.Log)
	assert.True(t, cfg.SoftDelete.Enabled)
	assert.Equal(t, "deleted", cfg.SoftDelete.Field)
	assert.Equal(t, false, cfg.SoftDelete.NotDeletedValue)
	assert.Empty(t, cfg.Collections)
	assert.Equal(t, softdelete.Default(), cfg.Policy())
}

func TestParse_YAML(t *testing.T) {
	cfg, err := Parse([]byte(`
store:
  driver: sqlite
  path: /tmp/app.db
softDelete:
  field: removed
  notDeletedValue: 0
log:
  level: debug
  format: console
collections:
  orders:
    idField: order_id
  users: {}
`), FormatYAML)
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, "/tmp/app.db", cfg.Store.Path)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "order_id", cfg.IDField("orders"))
	assert.Equal(t, "id", cfg.IDField("users"))
	assert.Equal(t, "id", cfg.IDField("unlisted"))

	p := cfg.Policy()
	assert.True(t, p.Enabled)
	assert.Equal(t, "removed", p.Field)
	assert.Equal(t, ir.IRInt(0), p.NotDeletedValue)
}

func TestParse_CUE(t *testing.T) {
	cfg, err := Parse([]byte(`
store: shards: 8
softDelete: enabled: false
`), FormatCUE)
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Store.Shards)
	assert.False(t, cfg.Policy().Enabled)
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		input  string
	}{
		{"unknown top-level field", FormatYAML, "cache: true"},
		{"unknown nested field", FormatYAML, "store: {host: x}"},
		{"bad driver", FormatYAML, "store: {driver: mongo}"},
		{"zero shards", FormatJSON, `{"store": {"shards": 0}}`},
		{"empty soft delete field", FormatYAML, `softDelete: {field: ""}`},
		{"bad log level", FormatYAML, "log: {level: trace}"},
		{"sqlite without path", FormatYAML, "store: {driver: sqlite}"},
		{"empty id field", FormatYAML, `collections: {users: {idField: ""}}`},
		{"malformed yaml", FormatYAML, "store: ["},
		{"malformed cue", FormatCUE, "store: {"},
		{"unknown format", Format("toml"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input), tt.format)
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "repokit.yml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("store: {shards: 4}\n"), 0o644))
	cfg, err := Load(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Store.Shards)

	jsonPath := filepath.Join(dir, "repokit.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"log": {"format": "console"}}`), 0o644))
	cfg, err = Load(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, "console", cfg.Log.Format)

	_, err = Load(filepath.Join(dir, "repokit.toml"))
	assert.ErrorContains(t, err, "unsupported config file extension")

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestParse_ErrorsCarryPath(t *testing.T) {
	_, err := Parse([]byte("store: shards: 0\n"), FormatCUE)
	require.Error(t, err)

	var ce *Error
	require.True(t, errors.As(err, &ce), "got %T", err)
	assert.Contains(t, ce.Path, "shards")
	assert.True(t, ce.Pos.IsValid())
}

func TestError_Format(t *testing.T) {
	assert.Equal(t, "store.driver: bad value", (&Error{Path: "store.driver", Message: "bad value"}).Error())
	assert.Equal(t, "bad value", (&Error{Message: "bad value", Pos: token.NoPos}).Error())
}
