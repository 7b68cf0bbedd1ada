package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/repokit/internal/config"
	"github.com/roach88/repokit/internal/docstore"
	"github.com/roach88/repokit/internal/ir"
	"github.com/roach88/repokit/internal/logging"
	"github.com/roach88/repokit/internal/queryir"
	"github.com/roach88/repokit/internal/repository"
	"github.com/roach88/repokit/internal/sequence"
	"github.com/roach88/repokit/internal/store"
)

// env is the configured backend a command runs against.
type env struct {
	cfg    *config.Config
	logger *slog.Logger

	docs *docstore.Store
	sql  *store.Store
}

// openEnv loads the config, builds the logger and opens the configured
// backend. The caller must Close the env.
func openEnv(opts *RootOptions, cmd *cobra.Command, f *OutputFormatter) (*env, error) {
	cfg, err := loadConfig(opts.Config)
	if err != nil {
		_ = f.Error(ErrCodeConfig, err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}

	logCfg := logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format}
	if opts.Verbose {
		logCfg.Level = "debug"
	}
	logger, err := logging.New(cmd.ErrOrStderr(), logCfg)
	if err != nil {
		_ = f.Error(ErrCodeConfig, err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, "invalid log config", err)
	}

	e := &env{cfg: cfg, logger: logger}
	switch cfg.Store.Driver {
	case config.DriverSQLite:
		f.VerboseLog("opening database %s", cfg.Store.Path)
		e.sql, err = store.Open(cfg.Store.Path, store.WithLogger(logger))
	default:
		f.VerboseLog("using in-memory store with %d shard(s)", cfg.Store.Shards)
		e.docs, err = docstore.New(cfg.Store.Shards, docstore.WithLogger(logger))
	}
	if err != nil {
		_ = f.Error(ErrCodeOpen, err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, "failed to open store", err)
	}
	return e, nil
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default()
	}
	return config.Load(path)
}

func (e *env) Close() error {
	if e.sql != nil {
		return e.sql.Close()
	}
	return nil
}

// counters returns the sequence store of the configured backend.
func (e *env) counters() sequence.Counters {
	if e.sql != nil {
		return e.sql
	}
	return e.docs
}

func (e *env) generator() *sequence.Generator {
	return sequence.New(e.counters(), sequence.WithLogger(e.logger))
}

// collection opens a collection using the identity field from config.
func (e *env) collection(ctx context.Context, name string) (repository.Collection, error) {
	idField := e.cfg.IDField(name)
	if e.sql != nil {
		return e.sql.Table(ctx, name, idField)
	}
	return e.docs.Collection(name, idField)
}

func (e *env) executor(coll repository.Collection) *repository.Executor[repository.Record] {
	return repository.NewRecords(coll,
		repository.WithPolicy(e.cfg.Policy()),
		repository.WithLogger(e.logger),
	)
}

// readQuery reads a query descriptor in wire form from path, or from stdin
// when path is "-". An empty path is the empty query.
func readQuery(path string, stdin io.Reader) (queryir.Query, error) {
	if path == "" {
		return queryir.Query{}, nil
	}
	data, err := readInput(path, stdin)
	if err != nil {
		return queryir.Query{}, err
	}
	return queryir.UnmarshalQuery(data)
}

// parseRecords decodes a JSON object or array of objects.
func parseRecords(data []byte) ([]repository.Record, error) {
	v, err := ir.UnmarshalIRValue(data)
	if err != nil {
		return nil, fmt.Errorf("parse records: %w", err)
	}
	var objs []ir.IRValue
	switch val := v.(type) {
	case ir.IRObject:
		objs = []ir.IRValue{val}
	case ir.IRArray:
		objs = val
	default:
		return nil, fmt.Errorf("records must be a JSON object or array, got %T", v)
	}

	out := make([]repository.Record, len(objs))
	for i, o := range objs {
		m, ok := ir.ToGo(o).(map[string]any)
		if !ok {
			return nil, fmt.Errorf("record %d is not an object", i)
		}
		out[i] = m
	}
	return out, nil
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// withEnv opens the env, runs fn and closes the env.
func withEnv(opts *RootOptions, cmd *cobra.Command, fn func(ctx context.Context, e *env, f *OutputFormatter) error) error {
	f := newFormatter(opts, cmd)
	e, err := openEnv(opts, cmd, f)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := e.Close(); closeErr != nil {
			e.logger.Error("error closing store", "error", closeErr)
		}
	}()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return fn(ctx, e, f)
}
