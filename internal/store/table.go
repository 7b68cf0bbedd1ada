package store

import (
	"context"
	"database/sql"
	"fmt"
	"slices"

	"github.com/roach88/repokit/internal/querysql"
	"github.com/roach88/repokit/internal/queryir"
	"github.com/roach88/repokit/internal/repository"
)

// Table is a storage port over one caller-created table.
//
// Thread-safety: safe for concurrent use.
type Table struct {
	db       *sql.DB
	compiler querysql.Compiler
}

var _ repository.Collection = (*Table)(nil)

// Table binds an existing table. The column list is read once, here, for
// exclude projections; recreate the Table after altering the schema.
func (s *Store) Table(ctx context.Context, name, idField string) (*Table, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name FROM pragma_table_info(?) ORDER BY cid", name)
	if err != nil {
		return nil, fmt.Errorf("table %s: read columns: %w", name, err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var col string
		if err := rows.Scan(&col); err != nil {
			return nil, fmt.Errorf("table %s: read columns: %w", name, err)
		}
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("table %s: read columns: %w", name, err)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("table %s does not exist", name)
	}
	if !slices.Contains(columns, idField) {
		return nil, fmt.Errorf("table %s has no identity column %q", name, idField)
	}

	return &Table{
		db:       s.db,
		compiler: querysql.Compiler{Table: name, IDField: idField, Columns: columns},
	}, nil
}

func (t *Table) Name() string    { return t.compiler.Table }
func (t *Table) IDField() string { return t.compiler.IDField }

// Columns returns the table's columns in declaration order.
func (t *Table) Columns() []string {
	return append([]string(nil), t.compiler.Columns...)
}

func (t *Table) CompileFind(q queryir.Query, limit, offset int64) (repository.Compiled, error) {
	return t.compiler.Find(q, limit, offset)
}

func (t *Table) CompileCount(filter []queryir.Predicate) (repository.Compiled, error) {
	return t.compiler.Count(filter)
}

func (t *Table) CompileUpdate(filter []queryir.Predicate, m repository.Mutation) (repository.Compiled, error) {
	return t.compiler.Update(filter, m)
}

func statement(c repository.Compiled) (querysql.Statement, error) {
	st, ok := c.(querysql.Statement)
	if !ok {
		return querysql.Statement{}, fmt.Errorf("not a compiled sql statement: %T", c)
	}
	return st, nil
}

// ExecuteFind runs a compiled SELECT. Rows come back in the compiled order.
func (t *Table) ExecuteFind(ctx context.Context, c repository.Compiled) ([]repository.Record, error) {
	st, err := statement(c)
	if err != nil {
		return nil, err
	}
	rows, err := t.db.QueryContext(ctx, st.SQL, st.Args...)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", t.Name(), err)
	}
	defer rows.Close()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", t.Name(), err)
	}

	records := []repository.Record{}
	for rows.Next() {
		values := make([]any, len(types))
		ptrs := make([]any, len(types))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("find %s: scan: %w", t.Name(), err)
		}
		r := make(repository.Record, len(types))
		for i, ct := range types {
			v, err := decodeColumn(ct.DatabaseTypeName(), values[i])
			if err != nil {
				return nil, fmt.Errorf("find %s: column %s: %w", t.Name(), ct.Name(), err)
			}
			r[ct.Name()] = v
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find %s: %w", t.Name(), err)
	}
	return records, nil
}

// ExecuteCount returns a single partial: SQLite counts in one statement.
func (t *Table) ExecuteCount(ctx context.Context, c repository.Compiled) ([]*int64, error) {
	st, err := statement(c)
	if err != nil {
		return nil, err
	}
	var n int64
	if err := t.db.QueryRowContext(ctx, st.SQL, st.Args...).Scan(&n); err != nil {
		return nil, fmt.Errorf("count %s: %w", t.Name(), err)
	}
	return []*int64{&n}, nil
}

func (t *Table) ExecuteUpdate(ctx context.Context, c repository.Compiled) (int64, error) {
	st, err := statement(c)
	if err != nil {
		return 0, err
	}
	res, err := t.db.ExecContext(ctx, st.SQL, st.Args...)
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", t.Name(), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", t.Name(), err)
	}
	return n, nil
}

// ExecuteDelete removes the row with the given identity. A missing row is
// not an error.
func (t *Table) ExecuteDelete(ctx context.Context, id any) error {
	st, err := t.compiler.Delete(id)
	if err != nil {
		return err
	}
	if _, err := t.db.ExecContext(ctx, st.SQL, st.Args...); err != nil {
		return fmt.Errorf("delete %s: %w", t.Name(), err)
	}
	return nil
}

// ExecuteInsert writes records in one transaction: either all are stored or
// none are. A record without an identity gets the one SQLite assigns, which
// requires an INTEGER PRIMARY KEY identity column.
func (t *Table) ExecuteInsert(ctx context.Context, records []repository.Record) ([]repository.Record, error) {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("insert %s: %w", t.Name(), err)
	}
	defer tx.Rollback()

	stored := make([]repository.Record, len(records))
	for i, r := range records {
		plain, err := plainRecord(r)
		if err != nil {
			return nil, fmt.Errorf("insert %s: %w", t.Name(), err)
		}
		row, err := normalizeRecord(plain)
		if err != nil {
			return nil, fmt.Errorf("insert %s: %w", t.Name(), err)
		}
		if id, ok := row[t.IDField()]; ok && id == nil {
			delete(row, t.IDField())
		}
		st, err := t.compiler.Insert(row)
		if err != nil {
			return nil, err
		}

		var id any
		if err := tx.QueryRowContext(ctx, st.SQL, st.Args...).Scan(&id); err != nil {
			if isUniqueViolation(err) {
				return nil, fmt.Errorf("insert %s: duplicate identity %v: %w", t.Name(), row[t.IDField()], err)
			}
			return nil, fmt.Errorf("insert %s: %w", t.Name(), err)
		}
		if b, ok := id.([]byte); ok {
			id = string(b)
		}

		plain[t.IDField()] = id
		stored[i] = plain
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("insert %s: %w", t.Name(), err)
	}
	return stored, nil
}

// ExecuteReplace overwrites rows by identity in one transaction and returns
// how many rows matched. Records whose identity is not stored are skipped.
func (t *Table) ExecuteReplace(ctx context.Context, records []repository.Record) (int64, error) {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("replace %s: %w", t.Name(), err)
	}
	defer tx.Rollback()

	var replaced int64
	for _, r := range records {
		plain, err := plainRecord(r)
		if err != nil {
			return 0, fmt.Errorf("replace %s: %w", t.Name(), err)
		}
		row, err := normalizeRecord(plain)
		if err != nil {
			return 0, fmt.Errorf("replace %s: %w", t.Name(), err)
		}
		st, err := t.compiler.Replace(row)
		if err != nil {
			return 0, err
		}
		res, err := tx.ExecContext(ctx, st.SQL, st.Args...)
		if err != nil {
			return 0, fmt.Errorf("replace %s: %w", t.Name(), err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("replace %s: %w", t.Name(), err)
		}
		replaced += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("replace %s: %w", t.Name(), err)
	}
	return replaced, nil
}
