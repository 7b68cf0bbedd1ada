package harness

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/roach88/repokit/internal/docstore"
	"github.com/roach88/repokit/internal/logging"
	"github.com/roach88/repokit/internal/querysql"
	"github.com/roach88/repokit/internal/repoerr"
	"github.com/roach88/repokit/internal/repository"
	"github.com/roach88/repokit/internal/store"
)

// Backend names a storage adapter a scenario can run against.
type Backend string

const (
	// Memory is the sharded in-memory document store.
	Memory Backend = "memory"

	// SQLite is the relational adapter over an in-memory database.
	SQLite Backend = "sqlite"
)

// Backends lists every adapter, in the order tests run them.
var Backends = []Backend{Memory, SQLite}

// memoryShards spreads seed records over more than one shard so count
// summing and cross-shard ordering are exercised.
const memoryShards = 3

// Option configures Run.
type Option func(*runner)

// WithLogger sets the logger handed to the backend and the executor.
func WithLogger(l *slog.Logger) Option {
	return func(r *runner) { r.logger = l }
}

type runner struct {
	logger *slog.Logger
}

// Run executes a scenario against a fresh instance of backend and returns
// the result.
//
// Execution flow:
// 1. Open an empty backend and create the scenario's collection
// 2. Insert the seed records
// 3. Execute steps in order, checking affected counts
// 4. Run the query through FindPage and check expectations
//
// A returned error means the scenario could not be executed. Query errors
// are recorded on the Result and checked against expect.error.
func Run(ctx context.Context, s *Scenario, backend Backend, opts ...Option) (*Result, error) {
	r := &runner{logger: logging.Discard()}
	for _, o := range opts {
		o(r)
	}

	coll, closeFn, err := r.open(ctx, s, backend)
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", backend, err)
	}
	defer closeFn()

	e := repository.NewRecords(coll,
		repository.WithPolicy(s.policy()),
		repository.WithLogger(r.logger),
	)

	if len(s.Seed) > 0 {
		if _, err := e.Insert(ctx, records(s.Seed)...); err != nil {
			return nil, fmt.Errorf("seed: %w", err)
		}
	}

	result := NewResult(s.Name, backend)
	for i, st := range s.Steps {
		if err := runStep(ctx, e, i, st, result); err != nil {
			return nil, err
		}
	}

	page, err := e.FindPage(ctx, s.query, s.pageRequest())
	if err != nil {
		code := repoerr.CodeOf(err)
		if code == "" {
			return nil, fmt.Errorf("query: %w", err)
		}
		result.ErrorCode = string(code)
	} else {
		result.Records = page.Content
		result.Total = page.Total
	}

	checkExpect(s, result)
	return result, nil
}

func runStep(ctx context.Context, e *repository.Executor[repository.Record], i int, st Step, result *Result) error {
	var (
		n   int64
		err error
	)
	switch {
	case st.Insert != nil:
		_, err = e.Insert(ctx, records(st.Insert)...)
	case st.Update != nil:
		m := repository.Mutation{}
		for _, a := range st.update.set {
			m = m.SetField(a.field, a.value)
		}
		for _, a := range st.update.inc {
			m = m.IncField(a.field, a.value)
		}
		n, err = e.Update(ctx, st.update.query, m)
	default:
		n, err = e.DeleteWhere(ctx, st.deleteQuery)
	}
	if err != nil {
		return fmt.Errorf("steps[%d]: %w", i, err)
	}
	if st.Affected != nil && *st.Affected != n {
		result.AddError(fmt.Sprintf("steps[%d]: expected %d affected records, got %d", i, *st.Affected, n))
	}
	return nil
}

func (r *runner) open(ctx context.Context, s *Scenario, backend Backend) (repository.Collection, func(), error) {
	switch backend {
	case Memory:
		ds, err := docstore.New(memoryShards, docstore.WithLogger(r.logger))
		if err != nil {
			return nil, nil, err
		}
		coll, err := ds.Collection(s.collection(), s.idField())
		if err != nil {
			return nil, nil, err
		}
		return coll, func() {}, nil

	case SQLite:
		st, err := store.Open(":memory:", store.WithLogger(r.logger))
		if err != nil {
			return nil, nil, err
		}
		if err := st.Exec(ctx, tableDDL(s)); err != nil {
			st.Close()
			return nil, nil, err
		}
		tbl, err := st.Table(ctx, s.collection(), s.idField())
		if err != nil {
			st.Close()
			return nil, nil, err
		}
		return tbl, func() { st.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown backend %q", backend)
	}
}

// tableDDL creates a table with one column per field named by the seed,
// insert and update data. Columns are untyped so values keep their own
// storage class; fields holding only booleans are declared BOOLEAN and
// fields holding only arrays or objects are declared JSON so they decode
// back to the values the document store returns.
func tableDDL(s *Scenario) string {
	values := map[string][]any{}
	note := func(r map[string]any) {
		for k, v := range r {
			values[k] = append(values[k], v)
		}
	}
	for _, r := range s.Seed {
		note(r)
	}
	for _, st := range s.Steps {
		for _, r := range st.Insert {
			note(r)
		}
		if st.Update != nil {
			note(st.Update.Set)
			note(st.Update.Inc)
		}
	}
	if s.SoftDelete != nil {
		values[s.SoftDelete.Field] = append(values[s.SoftDelete.Field], s.SoftDelete.NotDeletedValue)
	}

	id := s.idField()
	fields := make([]string, 0, len(values))
	for k := range values {
		if k != id {
			fields = append(fields, k)
		}
	}
	slices.Sort(fields)

	cols := []string{querysql.Quote(id) + " PRIMARY KEY"}
	for _, f := range fields {
		col := querysql.Quote(f)
		if t := declType(values[f]); t != "" {
			col += " " + t
		}
		cols = append(cols, col)
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", querysql.Quote(s.collection()), strings.Join(cols, ", "))
}

func declType(vals []any) string {
	kind := ""
	for _, v := range vals {
		var k string
		switch v.(type) {
		case nil:
			continue
		case bool:
			k = "BOOLEAN"
		case []any, map[string]any:
			k = "JSON"
		default:
			return ""
		}
		if kind != "" && kind != k {
			return ""
		}
		kind = k
	}
	return kind
}

func records(ms []map[string]any) []repository.Record {
	out := make([]repository.Record, len(ms))
	for i, m := range ms {
		out[i] = repository.Record(m)
	}
	return out
}
